package booking

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/kvstore"
)

// Wizard is one booking in progress, owned by a single session.
type Wizard struct {
	ID        string
	SessionID string
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

type wizardRecord struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Step      Step            `json:"step"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (w Wizard) MarshalJSON() ([]byte, error) {
	state, err := json.Marshal(w.State)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wizardRecord{
		ID:        w.ID,
		SessionID: w.SessionID,
		Step:      w.State.Step(),
		State:     state,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	})
}

func (w *Wizard) UnmarshalJSON(b []byte) error {
	var rec wizardRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	state, err := decodeState(rec.Step, rec.State)
	if err != nil {
		return err
	}
	*w = Wizard{
		ID:        rec.ID,
		SessionID: rec.SessionID,
		State:     state,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	return nil
}

func decodeState(step Step, raw json.RawMessage) (State, error) {
	switch step {
	case StepSpecialization:
		return decodeInto[ChoosingSpecialization](raw)
	case StepSlot:
		return decodeInto[ChoosingDateTimeAndDoctor](raw)
	case StepDetails:
		return decodeInto[EnteringDetails](raw)
	case StepConfirm:
		return decodeInto[Confirming](raw)
	case StepSubmitted:
		return decodeInto[Submitted](raw)
	default:
		return nil, fmt.Errorf("unknown wizard step %q", step)
	}
}

func decodeInto[T State](raw json.RawMessage) (State, error) {
	var s T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Store keeps wizards in the key/value store for a fixed lifetime.
type Store struct {
	kv  kvstore.Store
	ttl time.Duration
}

func NewStore(kv kvstore.Store, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl}
}

func wizardKey(id string) string { return "wizard:" + id }

// Get loads a wizard owned by sessionID. Wizards of other sessions are
// reported as not found.
func (s *Store) Get(ctx context.Context, sessionID, id string) (*Wizard, error) {
	var w Wizard
	if err := kvstore.GetJSON(ctx, s.kv, wizardKey(id), &w); err != nil {
		if stderrors.Is(err, kvstore.ErrNotFound) {
			return nil, errors.NewNotFound("booking", nil)
		}
		return nil, errors.NewInternal(err)
	}
	if w.SessionID != sessionID {
		return nil, errors.NewNotFound("booking", nil)
	}
	return &w, nil
}

func (s *Store) Save(ctx context.Context, w *Wizard) error {
	if err := kvstore.SetJSON(ctx, s.kv, wizardKey(w.ID), w, s.ttl); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, wizardKey(id)); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
