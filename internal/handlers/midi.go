package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/filestore"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/midigen"
	"mess-o-midi-backend/internal/models"
	"mess-o-midi-backend/internal/projects"
	"mess-o-midi-backend/internal/services"
)

type MidiHandler struct {
	manager    *projects.Manager
	generation *services.GenerationService
	files      filestore.Store
	log        *logger.Logger
}

func NewMidiHandler(manager *projects.Manager, generation *services.GenerationService, files filestore.Store, log *logger.Logger) *MidiHandler {
	return &MidiHandler{
		manager:    manager,
		generation: generation,
		files:      files,
		log:        log,
	}
}

// Generate godoc
// @Summary     Generate a MIDI file
// @Description Asks the generation service for a bass line or chord progression and stores it in the project.
// @Description Accepted types: bass, simple_chords, complex_chords.
// @Tags        midi
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.GenerateRequest true "Generation request"
// @Success     200 {object} models.GenerateResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     429 {object} models.ErrorResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /midi/generate [post]
func (h *MidiHandler) Generate(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "project_id and type are required",
			Message: err.Error(),
		})
		return
	}
	projectID, ok := parseID(c, req.ProjectID, "project id")
	if !ok {
		return
	}
	kind, err := midigen.ParseKind(req.Type)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	generated, err := h.generation.Generate(c.Request.Context(), principal, projectID, kind, midigen.Options{
		Scale:  req.Scale,
		Rhythm: req.Rhythm,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrUpstream) {
			h.log.Warn("MIDI generation failed", "project_id", projectID, "type", kind, "error", err)
		}
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, models.GenerateResponse{
		Success:  true,
		FileID:   generated.AssetID.String(),
		Filename: generated.Filename,
	})
}

// Delete godoc
// @Summary     Delete a MIDI file
// @Tags        midi
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.FileIDRequest true "File"
// @Success     200 {object} models.SuccessResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /midi/delete [post]
func (h *MidiHandler) Delete(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req models.FileIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "file_id is required"})
		return
	}
	id, ok := parseID(c, req.FileID, "file id")
	if !ok {
		return
	}

	if err := h.manager.DeleteMidiAsset(c.Request.Context(), id, principal.UserID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// Rename godoc
// @Summary     Rename a MIDI file
// @Description Sets the display name. An empty name restores the default label.
// @Tags        midi
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.RenameRequest true "New name"
// @Success     200 {object} models.SuccessResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /midi/rename [post]
func (h *MidiHandler) Rename(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req models.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "file_id is required"})
		return
	}
	id, ok := parseID(c, req.FileID, "file id")
	if !ok {
		return
	}

	if err := h.manager.UpdateDisplayName(c.Request.Context(), id, principal.UserID, req.DisplayName); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// Download godoc
// @Summary     Download a MIDI file
// @Tags        midi
// @Produce     audio/midi
// @Security    Bearer
// @Param       id query string true "File ID (UUID)"
// @Success     200 {file} file
// @Failure     404 {object} models.ErrorResponse
// @Router      /midi/download [get]
func (h *MidiHandler) Download(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, c.Query("id"), "file id")
	if !ok {
		return
	}

	asset, project, err := h.manager.GetOwnedMidiAsset(c.Request.Context(), id, principal.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	rc, err := h.files.Open(c.Request.Context(), asset.FilePath)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			h.log.Warn("MIDI file missing for asset", "asset_id", asset.ID, "path", asset.FilePath)
		}
		respondError(c, h.log, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "audio/midi", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, projects.DownloadName(project, asset)),
	})
}
