package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"mess-o-midi-backend/internal/auth"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/models"
)

const (
	stateCookie    = "oauth_state"
	stateCookieTTL = 600
)

type AuthHandler struct {
	provider     auth.IdentityProvider
	users        *auth.Users
	sessions     *auth.SessionIssuer
	secureCookie bool
	log          *logger.Logger
}

// NewAuthHandler accepts a nil provider when Google login is not configured.
func NewAuthHandler(provider auth.IdentityProvider, users *auth.Users, sessions *auth.SessionIssuer, secureCookie bool, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		provider:     provider,
		users:        users,
		sessions:     sessions,
		secureCookie: secureCookie,
		log:          log,
	}
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.secureCookie, true)
}

// Login godoc
// @Summary     Start Google sign-in
// @Tags        auth
// @Success     302
// @Failure     503 {object} models.ErrorResponse
// @Router      /auth/google/login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Google login is not configured"})
		return
	}

	state := uuid.NewString()
	h.setCookie(c, stateCookie, state, stateCookieTTL)
	c.Redirect(http.StatusFound, h.provider.AuthURL(state))
}

// Callback godoc
// @Summary     Finish Google sign-in
// @Description Exchanges the authorization code, creates the user on first login and sets the session cookie.
// @Tags        auth
// @Param       state query string true "OAuth state"
// @Param       code  query string true "Authorization code"
// @Success     302
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /auth/google/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Google login is not configured"})
		return
	}

	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid OAuth state"})
		return
	}
	h.setCookie(c, stateCookie, "", -1)

	if denied := c.Query("error"); denied != "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Google sign-in was cancelled", Message: denied})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing authorization code"})
		return
	}

	identity, err := h.provider.Exchange(c.Request.Context(), code)
	if err != nil {
		h.log.Warn("Google code exchange failed", "error", err)
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Google sign-in failed"})
		return
	}

	user, err := h.users.UpsertGoogleUser(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	token, _, err := h.sessions.Issue(user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("User signed in", "user_id", user.ID)
	h.setCookie(c, auth.SessionCookie, token, int(h.sessions.TTL().Seconds()))
	c.Redirect(http.StatusFound, "/")
}

// Logout godoc
// @Summary     Sign out
// @Tags        auth
// @Produce     json
// @Success     200 {object} models.SuccessResponse
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setCookie(c, auth.SessionCookie, "", -1)
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}
