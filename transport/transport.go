// Package transport provides the http.RoundTripper that integrates the auth
// session into the request pipeline.
//
// It implements the two pipeline hooks: bearer decoration for every
// non-exempt request, and authorization-failure recovery: one single-flight
// refresh followed by one transparent re-issue, never more. Every other
// failure class passes through untouched.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	hrm "github.com/openhrms/hrm-go"
	"github.com/openhrms/hrm-go/audit"
	"github.com/openhrms/hrm-go/metrics"
	"github.com/openhrms/hrm-go/session"
)

// Session is the slice of the auth session the transport needs.
type Session interface {
	// Token returns the current access token, or "" if no session exists.
	Token() string

	// Refresh rotates the token single-flight and returns the new value.
	Refresh(ctx context.Context) (string, error)
}

// Transport decorates outbound requests with the session's bearer token and
// repairs authorization failures. It implements http.RoundTripper.
type Transport struct {
	base    http.RoundTripper
	session Session
	exempt  map[string]bool
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// compile-time check
var _ http.RoundTripper = (*Transport)(nil)

// Option configures the Transport.
type Option func(*Transport)

// WithBase sets the underlying RoundTripper. Default: http.DefaultTransport.
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) { t.base = rt }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// WithMetrics sets the Prometheus metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transport) { t.metrics = m }
}

// WithExemptPaths adds request paths that are never decorated and never
// repaired, on top of the identity endpoints.
func WithExemptPaths(paths ...string) Option {
	return func(t *Transport) {
		for _, p := range paths {
			t.exempt[p] = true
		}
	}
}

// New creates a Transport bound to the given session. The identity endpoints
// are always exempt: attaching a soon-to-be-replaced token to them is
// meaningless, and repairing them would loop during login and refresh.
func New(sess Session, opts ...Option) *Transport {
	t := &Transport{
		base:    http.DefaultTransport,
		session: sess,
		exempt:  make(map[string]bool),
		logger:  slog.New(slog.DiscardHandler),
		metrics: metrics.New(false),
	}
	for _, p := range session.ExemptPaths() {
		t.exempt[p] = true
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.exempt[req.URL.Path] || hrm.SkipAuth(ctx) {
		return t.base.RoundTrip(req)
	}

	resp, err := t.base.RoundTrip(t.decorate(req, t.session.Token()))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	t.metrics.RecordUnauthorized()

	// One transparent repair. If the body cannot be replayed the original
	// 401 stands.
	retry, ok := rewind(req)
	if !ok {
		t.logger.Debug("401 response not retriable, body not replayable",
			"method", req.Method, "path", req.URL.Path)
		return resp, nil
	}

	token, rerr := t.session.Refresh(ctx)
	if rerr != nil {
		drain(resp)
		return nil, fmt.Errorf("%w: %v", hrm.ErrSessionExpired, rerr)
	}

	drain(resp)
	t.metrics.RecordRetry()
	t.logger.Debug("re-issuing request after token refresh",
		"method", req.Method, "path", req.URL.Path)

	// A second 401 propagates as-is rather than triggering another cycle.
	return t.base.RoundTrip(t.decorate(retry, token))
}

// decorate returns a copy of req carrying the bearer token and, when the
// context has one, the request correlation ID. The caller's request is
// never mutated.
func (t *Transport) decorate(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	if id := audit.RequestID(req.Context()); id != "" {
		out.Header.Set("X-Request-ID", id)
	}
	return out
}

// rewind prepares a fresh copy of req for re-issue. Requests whose body has
// been consumed and cannot be recreated via GetBody are not retriable.
func rewind(req *http.Request) (*http.Request, bool) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	out.Body = body
	return out, true
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
