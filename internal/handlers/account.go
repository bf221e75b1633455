package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"mess-o-midi-backend/internal/auth"
	"mess-o-midi-backend/internal/billing"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/models"
)

type AccountHandler struct {
	users *auth.Users
	gate  *billing.UsageGate
	log   *logger.Logger
}

func NewAccountHandler(users *auth.Users, gate *billing.UsageGate, log *logger.Logger) *AccountHandler {
	return &AccountHandler{users: users, gate: gate, log: log}
}

// Me godoc
// @Summary     Current user
// @Tags        account
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.UserResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /me [get]
func (h *AccountHandler) Me(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), principal.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	plan, err := h.gate.Plan(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, models.UserResponse{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Plan:  plan,
	})
}

// Usage godoc
// @Summary     Project usage
// @Description Current project count against the plan limit. A null limit means unlimited.
// @Tags        account
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Usage
// @Failure     401 {object} models.ErrorResponse
// @Router      /usage [get]
func (h *AccountHandler) Usage(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	usage, err := h.gate.CanCreateProject(c.Request.Context(), principal.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}
