// Package session implements the authenticated session for the HRM API.
//
// A Session exclusively owns the current hrm.Credential: it restores it at
// startup, replaces it on login and refresh, and destroys it on logout. The
// refresh protocol is single-flight: concurrent callers coalesce onto one
// network call to the rotation endpoint and all observe the same outcome.
//
// The rotation credential itself is a server-set cookie carried by the
// session's HTTP client cookie jar. This package never reads, stores, or
// logs it.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	hrm "github.com/openhrms/hrm-go"
	"github.com/openhrms/hrm-go/audit"
	"github.com/openhrms/hrm-go/metrics"
	"github.com/openhrms/hrm-go/store"
)

// Identity endpoint paths. These are exempt from bearer decoration and
// 401 repair in the transport.
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathRefresh        = "/auth/refresh-token"
	PathLogout         = "/auth/logout"
	PathChangePassword = "/auth/change-password"
	PathForgotPassword = "/auth/forgot-password"
	PathResetPassword  = "/auth/reset-password"
)

// ExemptPaths lists every identity endpoint.
func ExemptPaths() []string {
	return []string{
		PathLogin, PathRegister, PathRefresh, PathLogout,
		PathChangePassword, PathForgotPassword, PathResetPassword,
	}
}

// Session implements hrm.AuthSession.
type Session struct {
	baseURL    string
	httpClient *http.Client
	creds      hrm.CredentialStore
	logger     *slog.Logger
	logoutFn   func(hrm.LogoutReason)
	auditLog   *audit.Logger
	metrics    *metrics.Metrics

	mu       sync.RWMutex
	current  *hrm.Credential
	watchers []func(*hrm.Credential)

	sf singleflight.Group
}

// compile-time check
var _ hrm.AuthSession = (*Session)(nil)

// Option configures the Session.
type Option func(*Session)

// WithHTTPClient sets a custom HTTP client for identity endpoint calls.
// It should carry a cookie jar so the server-set rotation cookie survives
// between login and refresh.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.httpClient = c }
}

// WithStore sets the credential persistence backend.
func WithStore(cs hrm.CredentialStore) Option {
	return func(s *Session) { s.creds = cs }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithLogoutHandler sets the callback fired after every logout with the
// machine-readable reason. This is the navigation signal for UI callers.
func WithLogoutHandler(fn func(hrm.LogoutReason)) Option {
	return func(s *Session) { s.logoutFn = fn }
}

// WithAudit sets the session event logger.
func WithAudit(l *audit.Logger) Option {
	return func(s *Session) { s.auditLog = l }
}

// WithMetrics sets the Prometheus metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// New creates a Session for the given API base URL.
func New(baseURL string, opts ...Option) *Session {
	s := &Session{
		baseURL: baseURL,
		creds:   store.NewMemory(),
		logger:  slog.New(slog.DiscardHandler),
		metrics: metrics.New(false),
	}
	for _, o := range opts {
		o(s)
	}
	if s.httpClient == nil {
		jar, _ := cookiejar.New(nil)
		s.httpClient = &http.Client{Timeout: hrm.DefaultHTTPTimeout, Jar: jar}
	}
	return s
}

// Restore loads a previously persisted Credential. Malformed or unreadable
// stored state is discarded silently and logged at debug level only.
func (s *Session) Restore() *hrm.Credential {
	cred, err := s.creds.Load()
	if err != nil {
		s.logger.Debug("discarding unreadable stored credential", "error", err)
		_ = s.creds.Clear()
		return nil
	}
	if cred == nil || cred.AccessToken == "" {
		return nil
	}

	s.mu.Lock()
	s.current = cred.Clone()
	s.mu.Unlock()
	s.notify(cred)

	s.event(audit.ActionRestore, audit.ResultSuccess, cred.User.ID, "")
	return cred.Clone()
}

// Login authenticates against the identity endpoint and installs the
// resulting Credential. The transport is expected to let the server set the
// rotation cookie out of band; this method never touches it.
func (s *Session) Login(ctx context.Context, username, password string) (*hrm.Credential, error) {
	var out loginResponse
	err := s.post(ctx, PathLogin, loginRequest{Username: username, Password: password}, &out)
	if err != nil {
		s.metrics.RecordLogin(metrics.ResultFailure)
		s.event(audit.ActionLogin, audit.ResultFailure, username, err.Error())
		return nil, err
	}

	cred := credentialFromIssue(out.AccessToken, out.TokenType, out.ExpiresIn, out.User)
	s.install(cred)

	s.metrics.RecordLogin(metrics.ResultSuccess)
	s.event(audit.ActionLogin, audit.ResultSuccess, cred.User.ID, "")
	return cred.Clone(), nil
}

// Logout clears local state first so observers react immediately, then makes
// a best-effort call to invalidate the rotation credential server-side, then
// fires the logout handler with reason. It is idempotent and never fails.
func (s *Session) Logout(ctx context.Context, reason hrm.LogoutReason) {
	s.mu.Lock()
	had := s.current != nil
	userID := ""
	if had {
		userID = s.current.User.ID
	}
	s.current = nil
	s.mu.Unlock()

	if err := s.creds.Clear(); err != nil {
		s.logger.Debug("clearing credential store failed", "error", err)
	}
	s.notify(nil)

	if had {
		// Failures are swallowed: logout must never fail for the caller.
		s.invalidateServerSide(ctx)
	}

	s.metrics.RecordLogout(string(reason))
	s.event(audit.ActionLogout, audit.ResultSuccess, userID, string(reason))
	if s.logoutFn != nil {
		s.logoutFn(reason)
	}
}

// Refresh rotates the access token. At most one network call is in flight at
// a time; concurrent callers receive the outcome of that one call. A failed
// refresh always tears the session down; there is no automatic retry.
//
// The underlying HTTP call runs under the first caller's context. There is
// no additional timeout: a hung rotation call holds every waiter until the
// transport gives up.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	v, err, _ := s.sf.Do("refresh", func() (interface{}, error) {
		return s.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Session) doRefresh(ctx context.Context) (string, error) {
	cur := s.Current()
	if cur == nil {
		// No session to repair: skip the network entirely.
		s.metrics.RecordRefresh(metrics.ResultFailure)
		s.event(audit.ActionRefresh, audit.ResultFailure, "", hrm.ErrNoTokens.Error())
		s.Logout(ctx, hrm.ReasonSessionExpired)
		return "", hrm.ErrNoTokens
	}

	var out refreshResponse
	err := s.post(ctx, PathRefresh, refreshRequest{AccessToken: cur.AccessToken}, &out)
	if err != nil {
		s.logger.Warn("token refresh failed, ending session", "error", err)
		s.metrics.RecordRefresh(metrics.ResultFailure)
		s.event(audit.ActionRefresh, audit.ResultFailure, cur.User.ID, err.Error())
		s.Logout(ctx, hrm.ReasonSessionExpired)
		return "", fmt.Errorf("%w: %v", hrm.ErrRefreshFailed, err)
	}

	next := cur.Clone()
	next.AccessToken = out.AccessToken
	if out.TokenType != "" {
		next.TokenType = out.TokenType
	}
	next.ExpiresAt = tokenExpiry(out.AccessToken, out.ExpiresIn)
	s.install(next)

	s.metrics.RecordRefresh(metrics.ResultSuccess)
	s.event(audit.ActionRefresh, audit.ResultSuccess, next.User.ID, "")
	return out.AccessToken, nil
}

// Token returns the current access token, or "" if no session exists.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.AccessToken
}

// Current returns a copy of the current Credential, or nil.
func (s *Session) Current() *hrm.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// IsAuthenticated reports whether any session exists at all.
//
// An elapsed expiry deliberately does not make this return false: the
// refresh protocol repairs expired tokens transparently on the next request,
// so this check only answers "is there a session", not "is the token
// currently valid". Callers wanting proactive warnings use ExpiringSoon.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// ExpiringSoon reports whether the token expires within threshold of now.
// It returns true when no session exists. Pass 0 to use the default window.
func (s *Session) ExpiringSoon(threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = hrm.DefaultRefreshThreshold
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return true
	}
	if s.current.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(s.current.ExpiresAt) <= threshold
}

// Watch registers fn to receive every credential change. It is called with
// the new Credential after login/refresh/restore and with nil after logout,
// exactly once per change.
func (s *Session) Watch(fn func(*hrm.Credential)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// Register creates a new account. No credential is issued.
func (s *Session) Register(ctx context.Context, req RegisterRequest) error {
	return s.post(ctx, PathRegister, req, nil)
}

// ChangePassword changes the current user's password and, on success, clears
// the must-change-password flag on the local Credential.
func (s *Session) ChangePassword(ctx context.Context, current, newPassword, confirm string) error {
	err := s.post(ctx, PathChangePassword, changePasswordRequest{
		CurrentPassword: current,
		NewPassword:     newPassword,
		ConfirmPassword: confirm,
	}, nil)
	if err != nil {
		return err
	}

	if cur := s.Current(); cur != nil && cur.User.MustChangePassword {
		cur.User.MustChangePassword = false
		s.install(cur)
	}
	return nil
}

// ForgotPassword requests a password-reset email.
func (s *Session) ForgotPassword(ctx context.Context, email string) error {
	return s.post(ctx, PathForgotPassword, forgotPasswordRequest{Email: email}, nil)
}

// ResetPassword completes a password reset with the emailed token.
func (s *Session) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return s.post(ctx, PathResetPassword, req, nil)
}

// install persists the credential, swaps it in, and notifies watchers.
func (s *Session) install(cred *hrm.Credential) {
	if err := s.creds.Save(cred); err != nil {
		s.logger.Warn("persisting credential failed", "error", err)
	}
	s.mu.Lock()
	s.current = cred.Clone()
	s.mu.Unlock()
	s.notify(cred)
}

// notify calls every watcher once with its own copy of cred.
func (s *Session) notify(cred *hrm.Credential) {
	s.mu.RLock()
	watchers := make([]func(*hrm.Credential), len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.RUnlock()

	for _, fn := range watchers {
		fn(cred.Clone())
	}
}

// invalidateServerSide asks the server to drop the rotation credential.
func (s *Session) invalidateServerSide(ctx context.Context) {
	body := bytes.NewReader([]byte("{}"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+PathLogout, body)
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("server-side logout failed", "error", err)
		return
	}
	_ = resp.Body.Close()
}

// post sends a JSON body to an identity endpoint and unwraps the envelope.
func (s *Session) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("hrm/session: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("hrm/session: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hrm/session: %w", err)
	}
	return hrm.Decode(resp, out)
}

// event emits a session audit event if an audit logger is configured.
func (s *Session) event(action audit.Action, result, userID, details string) {
	if s.auditLog == nil {
		return
	}
	s.auditLog.Log(audit.Event{
		Action:  action,
		Result:  result,
		UserID:  userID,
		Details: details,
	})
}

// credentialFromIssue builds a Credential from an identity-endpoint payload.
// If the server omitted roles, the baseline role is assumed.
func credentialFromIssue(token, tokenType string, expiresIn int64, user hrm.User) *hrm.Credential {
	if len(user.Roles) == 0 {
		user.Roles = []string{hrm.DefaultRole}
	}
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &hrm.Credential{
		AccessToken: token,
		TokenType:   tokenType,
		ExpiresAt:   tokenExpiry(token, expiresIn),
		User:        user,
	}
}

// tokenExpiry reads the exp claim from the (unverified) token payload,
// falling back to now+expiresIn. The decode is best-effort only; the
// client is never a token verifier.
func tokenExpiry(token string, expiresIn int64) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err == nil {
		if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if expiresIn > 0 {
		return time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return time.Time{}
}
