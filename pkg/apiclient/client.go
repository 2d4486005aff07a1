package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwalitptl/clinic-portal/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/metrics"
)

const (
	DefaultTimeout = 20 * time.Second

	fallbackMessage = "Request failed"
	maxBodyBytes    = 4 << 20
)

var gatewayTracer = otel.Tracer("clinicportal.pkg.apiclient")

// Client is the single chokepoint for calls to the clinic backend.
// A Client is immutable once built; WithToken returns a copy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	token      string
	breaker    *circuitbreaker.CircuitBreaker
	metrics    *metrics.Metrics
	logger     *zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout overrides the client timeout regardless of option order. The
// rest of a custom http.Client (transport, jar, redirect policy) is kept.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *zerolog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	nop := zerolog.Nop()
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     &nop,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// WithToken returns a copy of the client that sends the bearer token.
// An empty token produces a client that sends no Authorization header.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Token() string { return c.token }

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

func (c *Client) Patch(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do sends one request and returns the parsed JSON payload. A 2xx response with
// an empty or non-JSON body yields a nil payload. Non-2xx responses and
// transport failures are returned as *errors.AppError.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	route := RouteLabel(path)
	ctx, span := gatewayTracer.Start(ctx, "apiclient."+strings.ToLower(method), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("clinicportal.route", route),
	)

	var (
		payload json.RawMessage
		status  int
	)
	call := func() error {
		var err error
		payload, status, err = c.roundTrip(ctx, method, path, body)
		return err
	}

	start := time.Now()
	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
		if errors.Is(err, circuitbreaker.ErrOpen) {
			err = apperrors.NewNetwork("backend unavailable", err)
		}
	} else {
		err = call()
	}
	elapsed := time.Since(start)

	statusLabel := strconv.Itoa(status)
	if status == 0 {
		statusLabel = apperrors.CodeOf(err).String()
	}
	c.metrics.ObserveBackend(method, route, statusLabel, elapsed)
	span.SetAttributes(attribute.Int("http.status_code", status))

	event := c.logger.Debug()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.MessageOf(err))
		event = c.logger.Warn().Err(err)
	}
	event.
		Str("method", method).
		Str("route", route).
		Int("status", status).
		Str("request_id", RequestIDFrom(ctx)).
		Dur("duration", elapsed).
		Msg("backend call")

	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body interface{}) (json.RawMessage, int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, 0, apperrors.NewBadRequest("invalid request body", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, apperrors.NewInternal(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := RequestIDFrom(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, classifyTransport(ctx, err)
	}
	payload := parsePayload(raw)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return payload, resp.StatusCode, nil
	}
	return nil, resp.StatusCode, statusError(resp.StatusCode, payload)
}

func parsePayload(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil
	}
	return json.RawMessage(trimmed)
}

func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeout(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeout(err)
	}
	return apperrors.NewNetwork("backend unreachable", err)
}

func statusError(status int, payload json.RawMessage) *apperrors.AppError {
	appErr := &apperrors.AppError{
		Status:  status,
		Message: messageFor(status, payload),
	}
	if payload != nil {
		var decoded interface{}
		if json.Unmarshal(payload, &decoded) == nil {
			appErr.Payload = decoded
		}
	}

	switch {
	case status == http.StatusUnauthorized:
		appErr.Code = apperrors.ErrUnauthorized
	case status == http.StatusBadRequest:
		appErr.Code = apperrors.ErrBadRequest
	case status == http.StatusNotFound:
		appErr.Code = apperrors.ErrNotFound
	case status == http.StatusConflict:
		appErr.Code = apperrors.ErrConflict
	case status == http.StatusForbidden:
		appErr.Code = apperrors.ErrForbidden
	default:
		appErr.Code = apperrors.ErrInternal
	}
	return appErr
}

// messageFor prefers the backend's own message, then the status text.
func messageFor(status int, payload json.RawMessage) string {
	if payload != nil {
		var body struct {
			Message interface{} `json:"message"`
		}
		if json.Unmarshal(payload, &body) == nil {
			if msg, ok := body.Message.(string); ok && strings.TrimSpace(msg) != "" {
				return msg
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fallbackMessage
}

// IsBreakerFailure reports whether err should count against the circuit breaker.
// Only transport failures, timeouts and server faults count; client errors do not.
func IsBreakerFailure(err error) bool {
	appErr, ok := apperrors.As(err)
	if !ok {
		return true
	}
	switch appErr.Code {
	case apperrors.ErrNetwork, apperrors.ErrTimeout:
		return true
	case apperrors.ErrInternal:
		return appErr.Status == 0 || appErr.Status >= 500
	default:
		return false
	}
}

// RouteLabel collapses identifiers in a path so it can be used as a metric label.
func RouteLabel(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg != "" && strings.ContainsAny(seg, "0123456789") {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
