package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orynlabs/oryn-auth/internal/config"
	domainoauth "github.com/orynlabs/oryn-auth/internal/domain/oauth"
	"github.com/orynlabs/oryn-auth/internal/http/middleware"
	"github.com/orynlabs/oryn-auth/internal/service"
)

const (
	// StateCookie carries the CSRF state between initiate and callback.
	StateCookie = "oauth_state"
	// SessionCookie carries the signed identity token.
	SessionCookie = "session"

	dashboardPath = "/#/dashboard"
	loginPath     = "/#/login"
)

// AuthHandler exposes the four gateway endpoints.
type AuthHandler struct {
	Auth *service.AuthService
	cfg  config.Config
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{Auth: auth, cfg: cfg}
}

// Login initiates the OAuth flow: mints a CSRF state, stores it in a
// short-lived cookie, and redirects the browser to the provider.
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := h.Auth.NewState()
	if err != nil {
		zap.L().Error("state generation failed", zap.Error(err))
		h.loginErrorRedirect(c, "auth_failed")
		return
	}

	h.setCookie(c, StateCookie, state, int(h.cfg.StateTTL.Seconds()))
	c.Redirect(http.StatusFound, h.Auth.AuthorizeURL(state))
}

// Callback validates the CSRF state, exchanges the code, and issues the
// session cookie. Every failure recovers into a login redirect carrying a
// short machine-readable code.
func (h *AuthHandler) Callback(c *gin.Context) {
	// Provider error passthrough comes first, before any cookie is read.
	if errCode := c.Query("error"); errCode != "" {
		h.loginErrorRedirect(c, domainoauth.SanitizeErrorCode(errCode))
		return
	}

	state := c.Query("state")
	savedState, cookieErr := c.Cookie(StateCookie)

	// The state cookie is single-use: gone after this attempt no matter how
	// the rest of the callback goes.
	h.clearCookie(c, StateCookie)

	if state == "" || cookieErr != nil || savedState == "" || state != savedState {
		h.loginErrorRedirect(c, "state_mismatch")
		return
	}

	code := c.Query("code")
	if code == "" {
		h.loginErrorRedirect(c, "auth_failed")
		return
	}

	token, _, err := h.Auth.HandleCallback(c.Request.Context(), code)
	if err != nil {
		var providerErr *domainoauth.ProviderError
		if errors.As(err, &providerErr) {
			h.loginErrorRedirect(c, domainoauth.SanitizeErrorCode(providerErr.Code))
			return
		}
		h.loginErrorRedirect(c, "auth_failed")
		return
	}

	h.setCookie(c, SessionCookie, token, int(h.cfg.SessionTTL.Seconds()))
	c.Redirect(http.StatusFound, dashboardPath)
}

// Me returns the identity decoded by the session middleware.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout revokes the session server-side when the token still decodes, and
// always instructs the client to drop the cookie. Calling it with no active
// session is not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		h.Auth.RevokeSession(c.Request.Context(), token)
	}
	h.clearCookie(c, SessionCookie)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) loginErrorRedirect(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, loginPath+"?error="+code)
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
