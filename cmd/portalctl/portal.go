package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-portal/internal/app"
	"github.com/jwalitptl/clinic-portal/internal/config"
	"github.com/jwalitptl/clinic-portal/internal/service/auth"
	"github.com/jwalitptl/clinic-portal/internal/service/availability"
	"github.com/jwalitptl/clinic-portal/internal/service/booking"
	"github.com/jwalitptl/clinic-portal/internal/service/directory"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/kvstore"
	"github.com/jwalitptl/clinic-portal/pkg/logger"
)

const tokenEnv = "PORTAL_TOKEN"

// portal holds the services one CLI invocation uses. Sessions and wizards
// live in memory for the life of the process.
type portal struct {
	sessions  *session.Store
	auth      *auth.Service
	directory *directory.Service
	booking   *booking.Service
}

func newPortal(cmd *cobra.Command) (*portal, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	var paths []string
	if cfgPath != "" {
		paths = append(paths, cfgPath)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, err
	}
	if url, _ := cmd.Flags().GetString("backend"); url != "" {
		cfg.Backend.BaseURL = url
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	level := "warn"
	if verbose {
		level = "debug"
	}
	base := logger.New(logger.Config{Level: level, Console: true, Output: cmd.ErrOrStderr()})
	lg := &base

	backend := app.NewBackend(cfg.Backend, config.DirectoryConfig{}, nil, lg)
	kv := kvstore.NewMemoryStore(time.Minute)
	sessions := session.NewStore(kv, cfg.Session.TTL, nil, lg)

	aggregator := availability.NewService(availability.Config{
		Mode:   availability.Mode(cfg.Booking.Aggregation),
		FanOut: cfg.Booking.FanOut,
	}, nil, lg)

	return &portal{
		sessions:  sessions,
		auth:      auth.NewService(func(t string) auth.Backend { return backend.For(t) }, sessions, lg),
		directory: directory.NewService(func(t string) directory.Backend { return backend.For(t) }, aggregator, sessions, lg),
		booking: booking.NewService(booking.Deps{
			Store:      booking.NewStore(kv, cfg.Booking.WizardTTL),
			APIFor:     func(t string) booking.API { return backend.For(t) },
			Aggregator: aggregator,
			Submitter:  booking.NewSubmitter(cfg.Booking.SendPatientID, nil, lg),
			Sessions:   sessions,
			Logger:     lg,
		}),
	}, nil
}

// session resolves the caller from --token or PORTAL_TOKEN.
func (p *portal) session(ctx context.Context, cmd *cobra.Command) (session.Session, error) {
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv(tokenEnv)
	}
	sess, err := p.auth.Restore(ctx, strings.TrimSpace(token))
	if err != nil {
		return session.Session{}, err
	}
	if err := p.sessions.Set(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}
