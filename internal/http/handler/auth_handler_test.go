package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orynlabs/oryn-auth/internal/config"
	"github.com/orynlabs/oryn-auth/internal/domain"
	"github.com/orynlabs/oryn-auth/internal/github"
	httptransport "github.com/orynlabs/oryn-auth/internal/http"
	httpHandler "github.com/orynlabs/oryn-auth/internal/http/handler"
	httpmiddleware "github.com/orynlabs/oryn-auth/internal/http/middleware"
	"github.com/orynlabs/oryn-auth/internal/service"
	"github.com/orynlabs/oryn-auth/internal/session"
	"github.com/orynlabs/oryn-auth/internal/session/revocation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type gateway struct {
	engine     *gin.Engine
	codec      *session.Codec
	tokenCalls *atomic.Int64
}

// newGateway assembles the full router against a mocked provider.
func newGateway(t *testing.T) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokenCalls := new(atomic.Int64)
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "T", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "token T", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":7,"login":"amy","name":null,"avatar_url":"u"}`))
	})
	provider := httptest.NewServer(mux)
	t.Cleanup(provider.Close)

	cfg := config.Config{
		Environment:  "development",
		ServiceName:  "oryn-auth-test",
		StateTTL:     5 * time.Minute,
		SessionTTL:   24 * time.Hour,
		CookieSecure: false,
	}

	codec, err := session.NewCodec(testSecret, cfg.SessionTTL)
	require.NoError(t, err)

	client := github.NewClient(github.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://console.example/api/auth/callback",
		AuthorizeURL: provider.URL + "/login/oauth/authorize",
		TokenURL:     provider.URL + "/login/oauth/access_token",
		ProfileURL:   provider.URL + "/user",
		Timeout:      2 * time.Second,
	}, zap.NewNop())

	auth := service.NewAuthService(client, codec, revocation.NewMemoryList(), zap.NewNop())
	authHandler := httpHandler.NewAuthHandler(auth, cfg)
	sessionMiddleware := &httpmiddleware.Session{Auth: auth, Cfg: cfg}

	return &gateway{
		engine:     httptransport.NewRouter(cfg, authHandler, sessionMiddleware, nil),
		codec:      codec,
		tokenCalls: tokenCalls,
	}
}

func (g *gateway) do(req *http.Request) *http.Response {
	w := httptest.NewRecorder()
	g.engine.ServeHTTP(w, req)
	return w.Result()
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginRedirectsToProviderWithFreshState(t *testing.T) {
	g := newGateway(t)

	first := g.do(httptest.NewRequest(http.MethodGet, "/api/auth/github", nil))
	require.Equal(t, http.StatusFound, first.StatusCode)

	firstState := cookieByName(first, httpHandler.StateCookie)
	require.NotNil(t, firstState)
	require.NotEmpty(t, firstState.Value)
	require.True(t, firstState.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, firstState.SameSite)
	require.Equal(t, 300, firstState.MaxAge)

	location, err := url.Parse(first.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/login/oauth/authorize", location.Path)
	require.Equal(t, firstState.Value, location.Query().Get("state"))
	require.Equal(t, "read:user", location.Query().Get("scope"))

	second := g.do(httptest.NewRequest(http.MethodGet, "/api/auth/github", nil))
	secondState := cookieByName(second, httpHandler.StateCookie)
	require.NotNil(t, secondState)
	require.NotEqual(t, firstState.Value, secondState.Value)
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		cookie string
	}{
		{"missing state", "code=x", "saved"},
		{"missing cookie", "code=x&state=abc", ""},
		{"mismatched values", "code=x&state=abc", "other"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGateway(t)
			req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?"+tc.query, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: httpHandler.StateCookie, Value: tc.cookie})
			}

			resp := g.do(req)
			require.Equal(t, http.StatusFound, resp.StatusCode)
			require.Equal(t, "/#/login?error=state_mismatch", resp.Header.Get("Location"))

			// The token endpoint must never be contacted on a CSRF failure.
			require.Zero(t, g.tokenCalls.Load())

			cleared := cookieByName(resp, httpHandler.StateCookie)
			require.NotNil(t, cleared)
			require.LessOrEqual(t, cleared.MaxAge, 0)
		})
	}
}

func TestCallbackProviderErrorShortCircuits(t *testing.T) {
	g := newGateway(t)

	resp := g.do(httptest.NewRequest(http.MethodGet, "/api/auth/callback?error=access_denied", nil))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/#/login?error=access_denied", resp.Header.Get("Location"))
	require.Zero(t, g.tokenCalls.Load())
}

func TestCallbackSanitizesUnknownProviderError(t *testing.T) {
	g := newGateway(t)

	resp := g.do(httptest.NewRequest(http.MethodGet, "/api/auth/callback?error=weird_internal_thing", nil))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/#/login?error=provider_error", resp.Header.Get("Location"))
}

func TestCallbackWithoutCodeFails(t *testing.T) {
	g := newGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state=abc", nil)
	req.AddCookie(&http.Cookie{Name: httpHandler.StateCookie, Value: "abc"})

	resp := g.do(req)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/#/login?error=auth_failed", resp.Header.Get("Location"))
	require.Zero(t, g.tokenCalls.Load())
}

func TestMeWithoutSession(t *testing.T) {
	g := newGateway(t)

	resp := g.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "Unauthorized", body["error"])
}

func TestMeWithGarbledSession(t *testing.T) {
	g := newGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: httpHandler.SessionCookie, Value: "garbled"})

	resp := g.do(req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "Invalid session", body["error"])

	// An undecodable cookie is expired on the spot.
	cleared := cookieByName(resp, httpHandler.SessionCookie)
	require.NotNil(t, cleared)
	require.LessOrEqual(t, cleared.MaxAge, 0)
}

func TestMeWithValidSession(t *testing.T) {
	g := newGateway(t)

	user := domain.User{ID: 7, Login: "amy", Name: "amy", AvatarURL: "u", Role: domain.DefaultRole}
	token, err := g.codec.Encode(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: httpHandler.SessionCookie, Value: token})

	resp := g.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got domain.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, user, got)
}

func TestLogoutIsIdempotent(t *testing.T) {
	g := newGateway(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		resp := g.do(httptest.NewRequest(method, "/api/auth/logout", nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.True(t, body["success"])

		cleared := cookieByName(resp, httpHandler.SessionCookie)
		require.NotNil(t, cleared)
		require.LessOrEqual(t, cleared.MaxAge, 0)
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	g := newGateway(t)

	resp := g.do(httptest.NewRequest(http.MethodGet, "/api/auth/unknown", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestEndToEndLoginFlow walks the whole round trip: initiate, callback with
// the minted state, identity check, logout, and the post-logout 401.
func TestEndToEndLoginFlow(t *testing.T) {
	g := newGateway(t)

	initiate := g.do(httptest.NewRequest(http.MethodGet, "/api/auth/github", nil))
	require.Equal(t, http.StatusFound, initiate.StatusCode)
	stateCookie := cookieByName(initiate, httpHandler.StateCookie)
	require.NotNil(t, stateCookie)

	location, err := url.Parse(initiate.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.Equal(t, stateCookie.Value, state)

	callbackReq := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=code-1&state="+url.QueryEscape(state), nil)
	callbackReq.AddCookie(&http.Cookie{Name: httpHandler.StateCookie, Value: stateCookie.Value})

	callback := g.do(callbackReq)
	require.Equal(t, http.StatusFound, callback.StatusCode)
	require.Equal(t, "/#/dashboard", callback.Header.Get("Location"))
	require.Equal(t, int64(1), g.tokenCalls.Load())

	clearedState := cookieByName(callback, httpHandler.StateCookie)
	require.NotNil(t, clearedState)
	require.LessOrEqual(t, clearedState.MaxAge, 0)

	sessionCookie := cookieByName(callback, httpHandler.SessionCookie)
	require.NotNil(t, sessionCookie)
	require.True(t, sessionCookie.HttpOnly)
	require.Equal(t, 86400, sessionCookie.MaxAge)

	sess, err := g.codec.Decode(sessionCookie.Value)
	require.NoError(t, err)
	require.Equal(t, domain.User{
		ID:        7,
		Login:     "amy",
		Name:      "amy", // null name falls back to login
		AvatarURL: "u",
		Role:      domain.DefaultRole,
	}, sess.User)

	meReq := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	meReq.AddCookie(&http.Cookie{Name: httpHandler.SessionCookie, Value: sessionCookie.Value})
	me := g.do(meReq)
	require.Equal(t, http.StatusOK, me.StatusCode)

	logoutReq := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	logoutReq.AddCookie(&http.Cookie{Name: httpHandler.SessionCookie, Value: sessionCookie.Value})
	logout := g.do(logoutReq)
	require.Equal(t, http.StatusOK, logout.StatusCode)

	// The revocation list rejects the copied token even before cookie expiry.
	replayReq := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	replayReq.AddCookie(&http.Cookie{Name: httpHandler.SessionCookie, Value: sessionCookie.Value})
	replay := g.do(replayReq)
	require.Equal(t, http.StatusUnauthorized, replay.StatusCode)
}
