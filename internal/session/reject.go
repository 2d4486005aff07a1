package session

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

// Clearer drops a stored session.
type Clearer interface {
	Clear(ctx context.Context, id string) error
}

// Reject clears sess when err says the backend no longer accepts its token
// and returns an error asking the caller to sign in again. Other errors are
// returned unchanged.
func Reject(ctx context.Context, c Clearer, sess Session, err error, logger *zerolog.Logger) error {
	if err == nil || !errors.IsUnauthorized(err) {
		return err
	}
	if c != nil && sess.ID != "" {
		if clearErr := c.Clear(ctx, sess.ID); clearErr != nil && logger != nil {
			logger.Error().Err(clearErr).Str("session_id", sess.ID).Msg("failed to clear rejected session")
		}
	}
	return &errors.AppError{
		Code:    errors.ErrUnauthorized,
		Message: "session expired, please sign in again",
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}
