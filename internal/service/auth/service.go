package auth

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

type Backend interface {
	Login(ctx context.Context, email, password string) (*model.LoginResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*model.AuthUser, error)
}

type BackendFor func(token string) Backend

// SessionStore is the part of session.Store the auth flow writes to.
type SessionStore interface {
	Set(ctx context.Context, sess session.Session) error
	Clear(ctx context.Context, id string) error
	TTL() time.Duration
}

type Service struct {
	backend  BackendFor
	sessions SessionStore
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewService(backend BackendFor, sessions SessionStore, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{backend: backend, sessions: sessions, logger: logger, now: time.Now}
}

// Login exchanges credentials for a backend token and stores the new session.
func (s *Service) Login(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.TrimSpace(email)
	res, err := s.backend("").Login(ctx, email, password)
	if err != nil {
		s.logger.Info().Err(err).Msg("login rejected")
		return session.Session{}, err
	}

	sess := session.FromLogin(res, email, s.sessions.TTL(), s.now())
	if err := s.sessions.Set(ctx, sess); err != nil {
		return session.Session{}, err
	}
	s.logger.Info().
		Str("session_id", sess.ID).
		Str("user_id", sess.UserID.String()).
		Str("role", string(sess.Role)).
		Msg("user logged in")
	return sess, nil
}

// Logout tells the backend and always clears the local session, even when
// the backend call fails.
func (s *Service) Logout(ctx context.Context, sess session.Session) error {
	if err := s.backend(sess.Token).Logout(ctx); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("backend logout failed")
	}
	if err := s.sessions.Clear(ctx, sess.ID); err != nil {
		return err
	}
	s.logger.Info().Str("session_id", sess.ID).Msg("user logged out")
	return nil
}

// Me returns the backend's view of the current user.
func (s *Service) Me(ctx context.Context, sess session.Session) (*model.AuthUser, error) {
	me, err := s.backend(sess.Token).Me(ctx)
	if err != nil {
		return nil, session.Reject(ctx, s.sessions, sess, err, s.logger)
	}
	return me, nil
}

// Restore looks up the session for a token issued outside the portal, as the
// CLI does when it is given a raw token.
func (s *Service) Restore(ctx context.Context, token string) (session.Session, error) {
	if strings.TrimSpace(token) == "" {
		return session.Session{}, errors.Unauthorized(nil)
	}
	me, err := s.backend(token).Me(ctx)
	if err != nil {
		return session.Session{}, err
	}
	res := &model.LoginResult{Token: token, UserID: me.ID, Role: me.Role}
	return session.FromLogin(res, me.Email, s.sessions.TTL(), s.now()), nil
}
