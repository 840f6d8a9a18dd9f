package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orynlabs/oryn-auth/internal/config"
	"github.com/orynlabs/oryn-auth/internal/domain"
	"github.com/orynlabs/oryn-auth/internal/service"
)

const (
	sessionCookieName = "session"
	currentUserKey    = "currentUser"
)

// Session validates the session cookie and attaches the identity record.
type Session struct {
	Auth *service.AuthService
	Cfg  config.Config
}

// Validate ensures the request carries a decodable, unrevoked session
// cookie. A missing cookie is 401 Unauthorized; a cookie that fails to
// decode is 401 Invalid session and is expired on the spot, since it can
// never become valid again.
func (m *Session) Validate(c *gin.Context) {
	token, err := c.Cookie(sessionCookieName)
	if err != nil || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := m.Auth.ValidateSession(c.Request.Context(), token)
	if err != nil {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     sessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   m.Cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return
	}

	c.Set(currentUserKey, user)
	c.Next()
}

// CurrentUser exposes the validated identity to handlers.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}
