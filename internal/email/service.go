package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Service interface {
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

// Dialer is the part of gomail.Dialer the SMTP service uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer Dialer
	from   string
	logger *zerolog.Logger
}

// NewService returns an SMTP sender, or a no-op sender when no host is configured.
func NewService(cfg Config, logger *zerolog.Logger) Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if strings.TrimSpace(cfg.Host) == "" {
		logger.Info().Msg("smtp host not set, outgoing mail disabled")
		return noopService{logger: logger}
	}
	return NewWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, logger)
}

func NewWithDialer(d Dialer, from string, logger *zerolog.Logger) Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &smtpService{dialer: d, from: from, logger: logger}
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Debug().Str("subject", subject).Msg("email sent")
	return nil
}

type noopService struct {
	logger *zerolog.Logger
}

func (n noopService) SendCustom(ctx context.Context, to, subject, content string) error {
	n.logger.Debug().Str("subject", subject).Msg("email skipped")
	return nil
}
