// Package session encodes the user identity into a tamper-evident, client-held
// token. There is no server-side session table; the token is the session.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/orynlabs/oryn-auth/internal/domain"
)

// ErrInvalidToken is returned for any token that fails to decode: malformed,
// truncated, tampered, expired, or missing required identity fields. Callers
// treat all of those identically.
var ErrInvalidToken = fmt.Errorf("session: invalid token")

// Session is a decoded token: the identity record plus the metadata needed
// for revocation.
type Session struct {
	ID        string
	User      domain.User
	ExpiresAt time.Time
}

type identityClaims struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
}

// Codec signs and verifies session tokens. Tokens are HS256 JWTs keyed by a
// server-held secret, so a holder of cookie-write access cannot forge one.
type Codec struct {
	key    []byte
	ttl    time.Duration
	signer jose.Signer
}

// NewCodec builds a codec from the session signing secret.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	key := []byte(secret)
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	return &Codec{key: key, ttl: ttl, signer: signer}, nil
}

// Encode serializes the identity record into a signed cookie-safe token with
// a fresh random session ID.
func (c *Codec) Encode(user domain.User) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	now := time.Now()
	std := jwt.Claims{
		ID:       id,
		Subject:  strconv.FormatInt(user.ID, 10),
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(c.ttl)),
	}
	custom := identityClaims{
		Login:     user.Login,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Role:      user.Role,
	}

	token, err := jwt.Signed(c.signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Decode verifies the signature and expiry and reconstructs the session.
// Every failure mode collapses into ErrInvalidToken; no partial record is
// ever returned, and missing id or login fields are rejected rather than
// default-filled.
func (c *Codec) Decode(token string) (*Session, error) {
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, ErrInvalidToken
	}

	var std jwt.Claims
	var custom identityClaims
	if err := parsed.Claims(c.key, &std, &custom); err != nil {
		return nil, ErrInvalidToken
	}
	if err := std.Validate(jwt.Expected{Time: time.Now()}); err != nil {
		return nil, ErrInvalidToken
	}
	if std.ID == "" || std.Subject == "" || custom.Login == "" || std.Expiry == nil {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(std.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Session{
		ID: std.ID,
		User: domain.User{
			ID:        userID,
			Login:     custom.Login,
			Name:      custom.Name,
			AvatarURL: custom.AvatarURL,
			Role:      custom.Role,
		},
		ExpiresAt: std.Expiry.Time(),
	}, nil
}

// TTL reports the configured session lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

func newSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
