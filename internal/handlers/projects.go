package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/models"
	"mess-o-midi-backend/internal/projects"
)

type ProjectsHandler struct {
	manager *projects.Manager
	log     *logger.Logger
}

func NewProjectsHandler(manager *projects.Manager, log *logger.Logger) *ProjectsHandler {
	return &ProjectsHandler{manager: manager, log: log}
}

// CreateProject godoc
// @Summary     Create a project
// @Description Creates a project for the current user. Fails with 403 when the plan's project limit is reached.
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateProjectRequest true "Project"
// @Success     201 {object} models.CreateProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /projects [post]
func (h *ProjectsHandler) CreateProject(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Project title is required",
			Message: err.Error(),
		})
		return
	}

	id, err := h.manager.CreateProject(c.Request.Context(), principal.UserID, req.Title, req.Description)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateProjectResponse{Success: true, ProjectID: id.String()})
}

// ListProjects godoc
// @Summary     List projects
// @Description Lists the current user's projects, newest first
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.ProjectListResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /projects [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	list, err := h.manager.ListProjects(c.Request.Context(), principal.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]models.ProjectResponse, len(list))
	for i := range list {
		out[i] = models.NewProjectResponse(&list[i])
	}
	c.JSON(http.StatusOK, models.ProjectListResponse{Projects: out})
}

// GetProject godoc
// @Summary     Get a project
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Success     200 {object} models.ProjectResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id} [get]
func (h *ProjectsHandler) GetProject(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, c.Param("project_id"), "project id")
	if !ok {
		return
	}

	project, err := h.manager.GetProject(c.Request.Context(), projectID, principal.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.NewProjectResponse(project))
}

// UpdateProject godoc
// @Summary     Update a project
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Param       request body models.UpdateProjectRequest true "Project"
// @Success     200 {object} models.SuccessResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id} [put]
func (h *ProjectsHandler) UpdateProject(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, c.Param("project_id"), "project id")
	if !ok {
		return
	}

	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Project title is required",
			Message: err.Error(),
		})
		return
	}

	if err := h.manager.UpdateProject(c.Request.Context(), projectID, principal.UserID, req.Title, req.Description); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// DeleteProject godoc
// @Summary     Delete a project
// @Description Deletes the project, its MIDI assets and their files
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Success     200 {object} models.SuccessResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id} [delete]
func (h *ProjectsHandler) DeleteProject(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, c.Param("project_id"), "project id")
	if !ok {
		return
	}

	if err := h.manager.DeleteProject(c.Request.Context(), projectID, principal.UserID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// DuplicateProject godoc
// @Summary     Duplicate a project
// @Description Creates "Copy of {title}" with the same description. Assets are not copied.
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Success     201 {object} models.CreateProjectResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/duplicate [post]
func (h *ProjectsHandler) DuplicateProject(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, c.Param("project_id"), "project id")
	if !ok {
		return
	}

	id, err := h.manager.DuplicateProject(c.Request.Context(), projectID, principal.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreateProjectResponse{Success: true, ProjectID: id.String()})
}

// ListAssets godoc
// @Summary     List a project's MIDI assets
// @Description Newest first. A project the caller does not own yields an empty list.
// @Tags        midi
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Success     200 {object} models.MidiAssetListResponse
// @Router      /projects/{project_id}/assets [get]
func (h *ProjectsHandler) ListAssets(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, c.Param("project_id"), "project id")
	if !ok {
		return
	}

	assets, err := h.manager.ListProjectMidiAssets(c.Request.Context(), projectID, principal.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]models.MidiAssetResponse, len(assets))
	for i := range assets {
		out[i] = models.NewMidiAssetResponse(&assets[i])
	}
	c.JSON(http.StatusOK, models.MidiAssetListResponse{Assets: out})
}
