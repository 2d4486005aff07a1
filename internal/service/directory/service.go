// Package directory answers the read-only lookups patients browse before
// booking: specializations, the doctors practising them and the slot table
// for a day.
package directory

import (
	"context"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/availability"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

type Backend interface {
	availability.Directory
	Specializations(ctx context.Context) ([]string, error)
}

type BackendFor func(token string) Backend

type Aggregator interface {
	Aggregate(ctx context.Context, dir availability.Directory, specialization string, date civil.Date) (*availability.Table, error)
}

type Service struct {
	backend    BackendFor
	aggregator Aggregator
	sessions   session.Clearer
	logger     *zerolog.Logger
}

func NewService(backend BackendFor, aggregator Aggregator, sessions session.Clearer, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{backend: backend, aggregator: aggregator, sessions: sessions, logger: logger}
}

func (s *Service) Specializations(ctx context.Context, sess session.Session) ([]string, error) {
	specs, err := s.backend(sess.Token).Specializations(ctx)
	if err != nil {
		return nil, s.reject(ctx, sess, err)
	}
	if specs == nil {
		specs = []string{}
	}
	return specs, nil
}

func (s *Service) Doctors(ctx context.Context, sess session.Session, specialization string) ([]model.Doctor, error) {
	specialization = strings.TrimSpace(specialization)
	if specialization == "" {
		return nil, errors.NewBadRequest("specialization is required", nil)
	}
	doctors, err := s.backend(sess.Token).DoctorsBySpecialization(ctx, specialization)
	if err != nil {
		return nil, s.reject(ctx, sess, err)
	}
	if doctors == nil {
		doctors = []model.Doctor{}
	}
	return doctors, nil
}

// Availability builds the slot table for one specialization and day without
// opening a booking.
func (s *Service) Availability(ctx context.Context, sess session.Session, specialization string, date civil.Date) (*availability.Table, error) {
	specialization = strings.TrimSpace(specialization)
	if specialization == "" {
		return nil, errors.NewBadRequest("specialization is required", nil)
	}
	if !date.IsValid() {
		return nil, errors.NewBadRequest("date is required", nil)
	}
	table, err := s.aggregator.Aggregate(ctx, s.backend(sess.Token), specialization, date)
	if err != nil {
		return nil, s.reject(ctx, sess, err)
	}
	return table, nil
}

func (s *Service) reject(ctx context.Context, sess session.Session, err error) error {
	return session.Reject(ctx, s.sessions, sess, err, s.logger)
}
