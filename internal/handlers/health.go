package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"mess-o-midi-backend/internal/models"
)

// ServiceProbe reports whether the generation service answers.
type ServiceProbe interface {
	IsAvailable(ctx context.Context) bool
}

type HealthHandler struct {
	probe ServiceProbe
}

func NewHealthHandler(probe ServiceProbe) *HealthHandler {
	return &HealthHandler{probe: probe}
}

// Health godoc
// @Summary     Health check
// @Description Returns the health status of the API and whether the MIDI generation service is reachable
// @Tags        health
// @Accept      json
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Router      /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response := models.HealthResponse{
		Status:      "ok",
		MidiService: "unavailable",
	}
	if h.probe.IsAvailable(c.Request.Context()) {
		response.MidiService = "available"
	}
	c.JSON(http.StatusOK, response)
}
