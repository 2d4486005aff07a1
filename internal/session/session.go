package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/pkg/auth"
)

// Session is the caller identity established at login. It is passed by value
// and never mutated; login, logout and a rejected token replace or drop it.
type Session struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	UserID    model.ID   `json:"user_id,omitempty"`
	PatientID model.ID   `json:"patient_id,omitempty"`
	DoctorID  model.ID   `json:"doctor_id,omitempty"`
	Role      model.Role `json:"role,omitempty"`
	Email     string     `json:"email,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// FromLogin builds a session from the backend login response. Token claims
// fill the expiry and, when the response omits it, the user id.
func FromLogin(res *model.LoginResult, email string, ttl time.Duration, now time.Time) Session {
	s := Session{
		ID:        uuid.NewString(),
		Token:     res.Token,
		UserID:    res.UserID,
		PatientID: res.PatientID,
		DoctorID:  res.DoctorID,
		Role:      res.Role,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if claims, err := auth.InspectToken(res.Token); err == nil {
		if !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(s.ExpiresAt) {
			s.ExpiresAt = claims.ExpiresAt
		}
		if s.UserID.IsZero() && claims.Subject != "" {
			s.UserID = model.ID(claims.Subject)
		}
		if s.Role == "" && claims.Role != "" {
			s.Role = model.Role(claims.Role)
		}
	}
	return s
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s Session) IsPatient() bool { return s.Role == model.RolePatient }
func (s Session) IsDoctor() bool  { return s.Role == model.RoleDoctor }
func (s Session) IsAdmin() bool   { return s.Role == model.RoleAdmin }
