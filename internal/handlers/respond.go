package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/auth"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/middleware"
	"mess-o-midi-backend/internal/models"
)

// respondError writes err with its mapped status. Causes of 5xx responses
// are logged and never sent to the client.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "route", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, models.ErrorResponse{Error: apperr.PublicMessage(err)})
}

func currentPrincipal(c *gin.Context) (auth.Principal, bool) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
	}
	return principal, ok
}

func parseID(c *gin.Context, raw, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid " + what})
		return uuid.Nil, false
	}
	return id, true
}
