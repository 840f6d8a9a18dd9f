package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/orynlabs/oryn-auth/internal/domain"
	domainoauth "github.com/orynlabs/oryn-auth/internal/domain/oauth"
	"github.com/orynlabs/oryn-auth/internal/session"
	"github.com/orynlabs/oryn-auth/internal/session/revocation"
)

// Provider is the server-to-server surface of the identity provider.
type Provider interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*domainoauth.TokenResponse, error)
	FetchProfile(ctx context.Context, accessToken string) (*domainoauth.Profile, error)
}

// AuthService orchestrates the authorization code flow and session lifecycle.
// It holds no per-request state; everything a request needs travels in the
// request itself or the client's cookies.
type AuthService struct {
	provider Provider
	codec    *session.Codec
	revoked  revocation.List
	logger   *zap.Logger
}

// NewAuthService wires the gateway's core service.
func NewAuthService(provider Provider, codec *session.Codec, revoked revocation.List, logger *zap.Logger) *AuthService {
	return &AuthService{
		provider: provider,
		codec:    codec,
		revoked:  revoked,
		logger:   logger,
	}
}

// NewState mints a fresh CSRF state token. Each call produces an independent
// value; any prior state becomes irrelevant once the new cookie is set.
func (s *AuthService) NewState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// AuthorizeURL builds the provider redirect for an initiate request.
func (s *AuthService) AuthorizeURL(state string) string {
	return s.provider.AuthorizeURL(state)
}

// HandleCallback exchanges the authorization code, fetches the profile, and
// issues a signed session token. The access token lives only inside this
// call. No step is retried; codes are single-use.
func (s *AuthService) HandleCallback(ctx context.Context, code string) (string, domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.HandleCallback")
	defer span.End()

	tokenResp, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		span.RecordError(err)
		s.log().Warn("code exchange failed", zap.Error(err))
		return "", domain.User{}, err
	}

	profile, err := s.provider.FetchProfile(ctx, tokenResp.AccessToken)
	if err != nil {
		span.RecordError(err)
		s.log().Warn("profile fetch failed", zap.Error(err))
		return "", domain.User{}, err
	}

	user := newIdentity(profile)
	token, err := s.codec.Encode(user)
	if err != nil {
		span.RecordError(err)
		return "", domain.User{}, fmt.Errorf("issue session: %w", err)
	}

	s.log().Info("session issued",
		zap.Int64("user_id", user.ID),
		zap.String("login", user.Login),
	)
	return token, user, nil
}

// ValidateSession decodes a session token and checks it against the
// revocation list. Pure with respect to the token; safe to call concurrently.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.ValidateSession")
	defer span.End()

	sess, err := s.codec.Decode(token)
	if err != nil {
		return domain.User{}, domainoauth.ErrInvalidSession
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, sess.ID)
		if err != nil {
			span.RecordError(err)
			s.log().Error("revocation lookup failed", zap.Error(err))
			return domain.User{}, domainoauth.ErrInvalidSession
		}
		if revoked {
			return domain.User{}, domainoauth.ErrInvalidSession
		}
	}

	return sess.User, nil
}

// RevokeSession invalidates a session token server-side for the remainder of
// its lifetime. Undecodable tokens are ignored; logout is idempotent.
func (s *AuthService) RevokeSession(ctx context.Context, token string) {
	ctx, span := s.startSpan(ctx, "AuthService.RevokeSession")
	defer span.End()

	if s.revoked == nil || token == "" {
		return
	}
	sess, err := s.codec.Decode(token)
	if err != nil {
		if !errors.Is(err, session.ErrInvalidToken) {
			span.RecordError(err)
		}
		return
	}
	ttl := time.Until(sess.ExpiresAt)
	if err := s.revoked.Revoke(ctx, sess.ID, ttl); err != nil {
		span.RecordError(err)
		s.log().Error("session revocation failed", zap.String("session_id", sess.ID), zap.Error(err))
		return
	}
	s.log().Info("session revoked", zap.String("session_id", sess.ID))
}

// newIdentity normalizes the provider profile into the identity record:
// the display name falls back to the login and every identity carries the
// default role label.
func newIdentity(profile *domainoauth.Profile) domain.User {
	name := profile.Name
	if name == "" {
		name = profile.Login
	}
	return domain.User{
		ID:        profile.ID,
		Login:     profile.Login,
		Name:      name,
		AvatarURL: profile.AvatarURL,
		Role:      domain.DefaultRole,
	}
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("oryn-auth/service").Start(ctx, name)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
