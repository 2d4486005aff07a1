package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned when the breaker rejects a call without running it.
var ErrOpen = errors.New("circuit breaker is open")

type Settings struct {
	Name string
	// MaxFailures is the number of consecutive counted failures that opens the breaker.
	MaxFailures uint32
	// HalfOpenRequests is the number of probe calls allowed while half-open.
	HalfOpenRequests uint32
	Interval         time.Duration
	Timeout          time.Duration
	// IsFailure decides which errors count toward opening; nil counts every error.
	IsFailure     func(err error) bool
	OnStateChange func(name string, from, to string)
}

type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.HalfOpenRequests == 0 {
		settings.HalfOpenRequests = 1
	}

	st := gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.HalfOpenRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
	}
	if settings.IsFailure != nil {
		isFailure := settings.IsFailure
		st.IsSuccessful = func(err error) bool {
			return err == nil || !isFailure(err)
		}
	}
	if settings.OnStateChange != nil {
		onChange := settings.OnStateChange
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			onChange(name, from.String(), to.String())
		}
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(st)}
}

// Execute runs fn through the breaker. Errors from fn are returned unchanged;
// a rejected call returns ErrOpen.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := cb.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

func (cb *CircuitBreaker) State() string {
	return cb.cb.State().String()
}
