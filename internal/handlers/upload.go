package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/models"
	"mess-o-midi-backend/internal/services"
)

// maxUploadBody bounds the whole multipart request, well above the file
// limit so the service can report the friendlier size error.
const maxUploadBody = 1 << 20

type UploadHandler struct {
	uploads *services.UploadService
	log     *logger.Logger
}

func NewUploadHandler(uploads *services.UploadService, log *logger.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, log: log}
}

// Upload godoc
// @Summary     Upload a chord file
// @Description Stores a user supplied .mid or .midi file (at most 50KB, must start with MThd) as uploaded chords.
// @Tags        midi
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       project_id formData string true "Project ID (UUID)"
// @Param       chord_file formData file true "MIDI file"
// @Success     200 {object} models.UploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /midi/upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	projectID, ok := parseID(c, c.PostForm("project_id"), "project id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("chord_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "No file uploaded",
			Message: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to read uploaded file",
			Message: err.Error(),
		})
		return
	}
	defer file.Close()

	uploaded, err := h.uploads.Upload(c.Request.Context(), principal, projectID, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, models.UploadResponse{
		Success:     true,
		FileID:      uploaded.AssetID.String(),
		Filename:    uploaded.Filename,
		ChordNumber: uploaded.Number,
	})
}
