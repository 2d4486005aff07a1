package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
)

type Backend interface {
	Notifications(ctx context.Context, userID model.ID) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id model.ID) error
}

type BackendFor func(token string) Backend

// Inbox is the caller's notifications with the unread count.
type Inbox struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

type Service struct {
	backend  BackendFor
	sessions session.Clearer
	logger   *zerolog.Logger
}

func NewService(backend BackendFor, sessions session.Clearer, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{backend: backend, sessions: sessions, logger: logger}
}

func (s *Service) Inbox(ctx context.Context, sess session.Session) (*Inbox, error) {
	list, err := s.backend(sess.Token).Notifications(ctx, sess.UserID)
	if err != nil {
		return nil, session.Reject(ctx, s.sessions, sess, err, s.logger)
	}
	return &Inbox{Notifications: list, Unread: UnreadCount(list)}, nil
}

func (s *Service) MarkRead(ctx context.Context, sess session.Session, id model.ID) error {
	if err := s.backend(sess.Token).MarkNotificationRead(ctx, id); err != nil {
		return session.Reject(ctx, s.sessions, sess, err, s.logger)
	}
	return nil
}

func UnreadCount(list []model.Notification) int {
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n
}
