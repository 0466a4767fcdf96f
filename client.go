// Package hrm provides a Go client SDK for an HRM (human-resource
// management) REST API.
//
// The SDK is built around an explicit AuthSession that owns the bearer
// credential and a request transport that attaches it to outbound calls and
// transparently repairs authorization failures with a single-flight token
// refresh. Concrete implementations live in subpackages and are injected via
// Option functions, so nothing in this package touches the network.
//
// Typical wiring:
//
//	sess := session.New(cfg.BaseURL, session.WithStore(store.NewMemory()))
//	httpClient := &http.Client{Transport: transport.New(sess)}
//	client, err := hrm.NewClient(
//	    hrm.Config{BaseURL: cfg.BaseURL},
//	    hrm.WithSession(sess),
//	    hrm.WithEmployeeService(employees.New(cfg.BaseURL, httpClient)),
//	)
package hrm

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Client is the entry point for HRM API operations. Service implementations
// are injected via Option functions; the Client itself holds no network state.
type Client struct {
	config    Config
	logger    *slog.Logger
	session   AuthSession
	employees EmployeeService
	leave     LeaveService
}

// Config holds connection and behavior configuration.
type Config struct {
	// BaseURL is the root of the HRM backend API, e.g. "https://hr.example.com".
	BaseURL string

	// HTTPTimeout bounds individual API calls. Default: 15 seconds.
	// The refresh cycle itself carries no extra timeout beyond this and the
	// caller's context.
	HTTPTimeout time.Duration

	// RefreshThreshold is how close to expiry a token is considered
	// "expiring soon" for proactive UI warnings. Default: 2 minutes.
	RefreshThreshold time.Duration
}

// DefaultHTTPTimeout bounds individual API calls unless overridden.
const DefaultHTTPTimeout = 15 * time.Second

// DefaultRefreshThreshold is the default ExpiringSoon window.
const DefaultRefreshThreshold = 2 * time.Minute

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSession sets the auth session implementation.
func WithSession(s AuthSession) Option {
	return func(c *Client) { c.session = s }
}

// WithEmployeeService sets the employee directory implementation.
func WithEmployeeService(e EmployeeService) Option {
	return func(c *Client) { c.employees = e }
}

// WithLeaveService sets the leave management implementation.
func WithLeaveService(l LeaveService) Option {
	return func(c *Client) { c.leave = l }
}

// NewClient creates a new HRM client with the given configuration and options.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("hrm: BaseURL is required")
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.RefreshThreshold == 0 {
		cfg.RefreshThreshold = DefaultRefreshThreshold
	}

	c := &Client{config: cfg}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Session returns the auth session, or nil if not configured.
func (c *Client) Session() AuthSession { return c.session }

// Employees returns the employee service, or nil if not configured.
func (c *Client) Employees() EmployeeService { return c.employees }

// Leave returns the leave service, or nil if not configured.
func (c *Client) Leave() LeaveService { return c.leave }

// Close releases all resources held by the client.
// Any injected service that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []interface{}{c.session, c.employees, c.leave}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
