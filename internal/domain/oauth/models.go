package oauth

import (
	"errors"
	"fmt"
)

// TokenResponse models the provider token endpoint response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// Profile is the raw profile payload returned by the provider's current-user
// endpoint. Name may be empty; callers apply the login fallback.
type Profile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// ProviderError is an OAuth error reported by the provider, either as a
// callback query parameter or in a token endpoint response body.
type ProviderError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

var (
	// ErrProfileFetch indicates the provider's profile endpoint returned a
	// non-success response after a successful code exchange.
	ErrProfileFetch = errors.New("profile fetch failed")

	// ErrInvalidSession marks a session token that failed to decode, failed
	// signature verification, expired, or was revoked.
	ErrInvalidSession = errors.New("invalid session")

	// ErrUnauthenticated marks a request carrying no session at all.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// knownErrorCodes is the set of OAuth error codes the gateway is willing to
// surface to the login page verbatim. Anything else collapses to
// "provider_error" so arbitrary provider text never reaches a redirect URL.
var knownErrorCodes = map[string]struct{}{
	"access_denied":                {},
	"invalid_request":              {},
	"invalid_scope":                {},
	"unauthorized_client":          {},
	"unsupported_response_type":    {},
	"server_error":                 {},
	"temporarily_unavailable":      {},
	"application_suspended":        {},
	"redirect_uri_mismatch":        {},
	"bad_verification_code":        {},
	"incorrect_client_credentials": {},
	"expired_token":                {},
}

// SanitizeErrorCode maps a provider-supplied error code to one safe to embed
// in a redirect.
func SanitizeErrorCode(code string) string {
	if _, ok := knownErrorCodes[code]; ok {
		return code
	}
	return "provider_error"
}
