// Package app assembles the backend client and stores shared by the portal
// binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/config"
	"github.com/jwalitptl/clinic-portal/internal/medapi"
	"github.com/jwalitptl/clinic-portal/pkg/apiclient"
	"github.com/jwalitptl/clinic-portal/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-portal/pkg/kvstore"
	"github.com/jwalitptl/clinic-portal/pkg/logger"
	"github.com/jwalitptl/clinic-portal/pkg/metrics"
)

// Backend is the clinic backend as seen by the portal: the gateway, its
// breaker and the resource clients on top.
type Backend struct {
	Gateway *apiclient.Client
	Breaker *circuitbreaker.CircuitBreaker
	API     *medapi.Client
}

func NewBackend(cfg config.BackendConfig, dir config.DirectoryConfig, m *metrics.Metrics, log *zerolog.Logger) *Backend {
	gwLog := logger.Component(log, "gateway")
	opts := []apiclient.Option{
		apiclient.WithTimeout(cfg.Timeout),
		apiclient.WithMetrics(m),
		apiclient.WithLogger(gwLog),
	}

	var cb *circuitbreaker.CircuitBreaker
	if cfg.Breaker.Enabled {
		cb = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:             "backend",
			MaxFailures:      cfg.Breaker.MaxFailures,
			HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			IsFailure:        apiclient.IsBreakerFailure,
			OnStateChange: func(name, from, to string) {
				gwLog.Warn().Str("breaker", name).Str("from", from).Str("to", to).Msg("circuit breaker state changed")
				m.BreakerChanged(to)
			},
		})
		opts = append(opts, apiclient.WithBreaker(cb))
	}

	gw := apiclient.New(cfg.BaseURL, opts...)
	api := medapi.New(gw,
		medapi.WithDirectoryCache(dir.CacheTTL),
		medapi.WithLogger(logger.Component(log, "medapi")),
	)
	return &Backend{Gateway: gw, Breaker: cb, API: api}
}

// For returns the resource clients acting for token.
func (b *Backend) For(token string) *medapi.Client {
	return b.API.WithToken(token)
}

// Store is a kvstore that can report its health.
type Store interface {
	kvstore.Store
	Ping(ctx context.Context) error
}

// NewStore opens the session and wizard store the config asks for.
func NewStore(ctx context.Context, sess config.SessionConfig, cfg config.RedisConfig, log *zerolog.Logger) (Store, func() error, error) {
	switch sess.Store {
	case "redis":
		rs, err := kvstore.NewRedisStore(ctx, kvstore.RedisConfig{
			URL:        cfg.URL,
			Prefix:     cfg.Prefix,
			MaxRetries: cfg.MaxRetries,
			PoolSize:   cfg.PoolSize,
		}, logger.Component(log, "redis"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return rs, rs.Close, nil
	case "memory", "":
		return kvstore.NewMemoryStore(time.Minute), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", sess.Store)
	}
}
