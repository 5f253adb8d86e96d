package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/repository"
)

// sessionKeyPrefix namespaces session tokens in the cache.
const sessionKeyPrefix = "session:"

// SessionService manages login sessions.
// A session is an opaque token mapped to a user ID in the cache; the
// token travels in a cookie. Sessions expire after the configured TTL
// of inactivity and are refreshed on every resolved request.
type SessionService struct {
	cache  repository.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(cache repository.Cache, ttl time.Duration, logger zerolog.Logger) *SessionService {
	return &SessionService{
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("service", "session").Logger(),
	}
}

// Create starts a new session for the given user and returns the token.
func (s *SessionService) Create(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	value := []byte(strconv.FormatInt(userID, 10))

	if err := s.cache.Set(ctx, sessionKeyPrefix+token, value, s.ttl); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to store session")
		return "", fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().Int64("user_id", userID).Msg("session created")

	return token, nil
}

// Resolve maps a session token to a user ID and refreshes the TTL.
func (s *SessionService) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrSessionNotFound
	}

	value, err := s.cache.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return 0, ErrSessionNotFound
		}
		s.logger.Error().Err(err).Msg("failed to look up session")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	userID, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		s.logger.Error().Err(err).Msg("corrupt session value")
		return 0, ErrSessionNotFound
	}

	// Sliding expiry: activity keeps the session alive.
	if err := s.cache.Expire(ctx, sessionKeyPrefix+token, s.ttl); err != nil {
		s.logger.Warn().Err(err).Msg("failed to refresh session TTL")
	}

	return userID, nil
}

// Destroy ends a session. Destroying an unknown token is not an error.
func (s *SessionService) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.cache.Delete(ctx, sessionKeyPrefix+token); err != nil {
		s.logger.Error().Err(err).Msg("failed to delete session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().Msg("session destroyed")
	return nil
}
