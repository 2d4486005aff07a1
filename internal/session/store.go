package session

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/kvstore"
	"github.com/jwalitptl/clinic-portal/pkg/metrics"
)

const keyPrefix = "session:"

// Store persists sessions. Every Get reads the latest persisted value.
type Store struct {
	kv      kvstore.Store
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewStore(kv kvstore.Store, ttl time.Duration, m *metrics.Metrics, logger *zerolog.Logger) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Store{kv: kv, ttl: ttl, metrics: m, logger: logger, now: time.Now}
}

// TTL is the default session lifetime when the token carries no expiry.
func (s *Store) TTL() time.Duration { return s.ttl }

// Get returns the session or an unauthorized error when it is missing or expired.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, errors.Unauthorized(nil)
	}
	var sess Session
	if err := kvstore.GetJSON(ctx, s.kv, keyPrefix+id, &sess); err != nil {
		if stderrors.Is(err, kvstore.ErrNotFound) {
			s.metrics.SessionOperation("get", "miss")
			return Session{}, errors.Unauthorized(err)
		}
		s.metrics.SessionOperation("get", "error")
		return Session{}, errors.NewInternal(err)
	}
	if sess.Expired(s.now()) {
		s.metrics.SessionOperation("get", "expired")
		_ = s.kv.Delete(ctx, keyPrefix+id)
		return Session{}, errors.Unauthorized(nil)
	}
	s.metrics.SessionOperation("get", "hit")
	return sess, nil
}

func (s *Store) Set(ctx context.Context, sess Session) error {
	ttl := s.ttl
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return errors.Unauthorized(nil)
		}
	}
	if err := kvstore.SetJSON(ctx, s.kv, keyPrefix+sess.ID, sess, ttl); err != nil {
		s.metrics.SessionOperation("set", "error")
		return errors.NewInternal(err)
	}
	s.metrics.SessionOperation("set", "ok")
	s.logger.Debug().Str("session_id", sess.ID).Str("role", string(sess.Role)).Msg("session stored")
	return nil
}

func (s *Store) Clear(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.kv.Delete(ctx, keyPrefix+id); err != nil {
		s.metrics.SessionOperation("clear", "error")
		return errors.NewInternal(err)
	}
	s.metrics.SessionOperation("clear", "ok")
	s.logger.Debug().Str("session_id", id).Msg("session cleared")
	return nil
}
