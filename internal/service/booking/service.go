package booking

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/availability"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

// API is everything the wizard reads from or writes to the backend.
type API interface {
	availability.Directory
	Backend
	Specializations(ctx context.Context) ([]string, error)
}

// APIFor scopes the backend to one caller's token.
type APIFor func(token string) API

// Aggregator builds the slot table for a date.
type Aggregator interface {
	Aggregate(ctx context.Context, dir availability.Directory, specialization string, date civil.Date) (*availability.Table, error)
}

// AppointmentLister reloads the caller's appointments after a booking.
type AppointmentLister interface {
	Refresh(ctx context.Context, sess session.Session) ([]model.Appointment, error)
}

// Notifier sends the booking confirmation.
type Notifier interface {
	BookingConfirmed(ctx context.Context, to string, booking Submitted) error
}

// Confirmation is the result of a confirmed wizard.
type Confirmation struct {
	Wizard       *Wizard             `json:"wizard"`
	Appointments []model.Appointment `json:"appointments,omitempty"`
	RefreshError string              `json:"refresh_error,omitempty"`
	Notified     bool                `json:"notified"`
	NotifyError  string              `json:"notify_error,omitempty"`
}

type Service struct {
	store        *Store
	apiFor       APIFor
	aggregator   Aggregator
	submitter    *Submitter
	sessions     session.Clearer
	appointments AppointmentLister
	notifier     Notifier
	logger       *zerolog.Logger
	now          func() time.Time

	mu    sync.Mutex
	locks map[string]*wizardLock
}

// wizardLock serializes steps of one wizard. refs counts holders and waiters;
// the entry leaves the map when it drops to zero.
type wizardLock struct {
	mu   sync.Mutex
	refs int
}

type Deps struct {
	Store        *Store
	APIFor       APIFor
	Aggregator   Aggregator
	Submitter    *Submitter
	Sessions     session.Clearer
	Appointments AppointmentLister
	Notifier     Notifier
	Logger       *zerolog.Logger
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	submitter := d.Submitter
	if submitter == nil {
		submitter = NewSubmitter(false, nil, logger)
	}
	return &Service{
		store:        d.Store,
		apiFor:       d.APIFor,
		aggregator:   d.Aggregator,
		submitter:    submitter,
		sessions:     d.Sessions,
		appointments: d.Appointments,
		notifier:     d.Notifier,
		logger:       logger,
		now:          time.Now,
		locks:        map[string]*wizardLock{},
	}
}

// Start opens a wizard, optionally with a preselected specialization.
func (s *Service) Start(ctx context.Context, sess session.Session, preselected string) (*Wizard, error) {
	now := s.now()
	w := &Wizard{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		State:     ChoosingSpecialization{Preselected: preselected},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, w); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("wizard_id", w.ID).Msg("booking started")
	return w, nil
}

func (s *Service) Get(ctx context.Context, sess session.Session, id string) (*Wizard, error) {
	return s.store.Get(ctx, sess.ID, id)
}

// Specializations lists what the wizard offers in its first step.
func (s *Service) Specializations(ctx context.Context, sess session.Session) ([]string, error) {
	specs, err := s.apiFor(sess.Token).Specializations(ctx)
	return specs, s.guard(ctx, sess, err)
}

func (s *Service) ChooseSpecialization(ctx context.Context, sess session.Session, id, specialization string) (*Wizard, error) {
	return s.transition(ctx, sess, id, func(st State) (State, error) {
		cur, ok := st.(ChoosingSpecialization)
		if !ok {
			return nil, wrongStep(st, StepSpecialization)
		}
		return cur.Choose(specialization)
	})
}

// LoadSlots picks the date, aggregates availability and applies the result
// if the wizard still asks for the same specialization and date.
func (s *Service) LoadSlots(ctx context.Context, sess session.Session, id string, date civil.Date) (*Wizard, error) {
	w, err := s.transition(ctx, sess, id, func(st State) (State, error) {
		cur, ok := st.(ChoosingDateTimeAndDoctor)
		if !ok {
			return nil, wrongStep(st, StepSlot)
		}
		return cur.PickDate(date), nil
	})
	if err != nil {
		return nil, err
	}
	specialization := w.State.(ChoosingDateTimeAndDoctor).Specialization

	api := s.apiFor(sess.Token)
	table, err := s.aggregator.Aggregate(ctx, api, specialization, date)
	if err != nil {
		return nil, s.guard(ctx, sess, err)
	}

	return s.transition(ctx, sess, id, func(st State) (State, error) {
		cur, ok := st.(ChoosingDateTimeAndDoctor)
		if !ok {
			return st, nil
		}
		next, applied := cur.ApplySlots(table)
		if !applied {
			s.logger.Debug().Str("wizard_id", id).Msg("stale slot table discarded")
		}
		return next, nil
	})
}

func (s *Service) Select(ctx context.Context, sess session.Session, id string, date civil.Date, at string, doctorID model.ID) (*Wizard, error) {
	return s.transition(ctx, sess, id, func(st State) (State, error) {
		cur, ok := st.(ChoosingDateTimeAndDoctor)
		if !ok {
			return nil, wrongStep(st, StepSlot)
		}
		return cur.Select(date, at, doctorID)
	})
}

func (s *Service) Describe(ctx context.Context, sess session.Session, id, visitType, reason string) (*Wizard, error) {
	return s.transition(ctx, sess, id, func(st State) (State, error) {
		cur, ok := st.(EnteringDetails)
		if !ok {
			return nil, wrongStep(st, StepDetails)
		}
		return cur.Describe(visitType, reason)
	})
}

func (s *Service) Back(ctx context.Context, sess session.Session, id string) (*Wizard, error) {
	return s.transition(ctx, sess, id, Back)
}

// Confirm submits the appointment. The wizard lock is held for the whole
// submission so one wizard cannot book twice.
func (s *Service) Confirm(ctx context.Context, sess session.Session, id string) (*Confirmation, error) {
	unlock := s.lock(id)
	defer unlock()

	w, err := s.store.Get(ctx, sess.ID, id)
	if err != nil {
		return nil, err
	}
	cur, ok := w.State.(Confirming)
	if !ok {
		return nil, wrongStep(w.State, StepConfirm)
	}

	next, outcome, submitErr := s.submitter.Submit(ctx, s.apiFor(sess.Token), sess, cur)
	if outcome == OutcomeUnauthorized {
		return nil, s.guard(ctx, sess, submitErr)
	}

	w.State = next
	w.UpdatedAt = s.now()
	if err := s.store.Save(ctx, w); err != nil {
		return nil, err
	}
	if submitErr != nil {
		return &Confirmation{Wizard: w}, submitErr
	}

	res := &Confirmation{Wizard: w}
	done := next.(Submitted)
	if s.appointments != nil {
		list, err := s.appointments.Refresh(ctx, sess)
		if err != nil {
			res.RefreshError = errors.MessageOf(err)
		} else {
			res.Appointments = list
		}
	}
	if s.notifier != nil && sess.Email != "" {
		if err := s.notifier.BookingConfirmed(ctx, sess.Email, done); err != nil {
			res.NotifyError = err.Error()
			s.logger.Warn().Err(err).Str("wizard_id", id).Msg("booking confirmation not sent")
		} else {
			res.Notified = true
		}
	}
	return res, nil
}

func (s *Service) Discard(ctx context.Context, sess session.Session, id string) error {
	unlock := s.lock(id)
	defer unlock()

	if _, err := s.store.Get(ctx, sess.ID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) transition(ctx context.Context, sess session.Session, id string, fn func(State) (State, error)) (*Wizard, error) {
	unlock := s.lock(id)
	defer unlock()

	w, err := s.store.Get(ctx, sess.ID, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(w.State)
	if err != nil {
		return nil, err
	}
	w.State = next
	w.UpdatedAt = s.now()
	if err := s.store.Save(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// guard clears the session when the backend rejected its token.
func (s *Service) guard(ctx context.Context, sess session.Session, err error) error {
	return session.Reject(ctx, s.sessions, sess, err, s.logger)
}

// lock takes the wizard's lock and returns its release.
func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &wizardLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func wrongStep(st State, want Step) error {
	return errors.NewInvalidState("booking is at step " + string(st.Step()) + ", not " + string(want))
}
