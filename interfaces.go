package hrm

import (
	"context"
	"time"
)

// CredentialStore persists the serialized Credential between runs.
// Implementations: store/ (in-memory, JSON file).
//
// The rotation credential is never part of the stored state; it lives only
// in the transport's cookie jar.
type CredentialStore interface {
	// Load returns the stored Credential, or (nil, nil) if none exists.
	// Unreadable or malformed state returns an error; callers treat it as
	// "no session" and never surface it.
	Load() (*Credential, error)

	// Save replaces the stored Credential.
	Save(cred *Credential) error

	// Clear removes any stored Credential. Clearing an empty store is a no-op.
	Clear() error
}

// AuthSession owns the current Credential and the single-flight refresh
// protocol. Implementation: session/.
type AuthSession interface {
	// Restore loads a previously persisted Credential, discarding malformed
	// state silently. Returns the restored Credential or nil.
	Restore() *Credential

	// Login authenticates and installs a new Credential.
	Login(ctx context.Context, username, password string) (*Credential, error)

	// Logout tears the session down. It never fails from the caller's
	// perspective and is idempotent.
	Logout(ctx context.Context, reason LogoutReason)

	// Refresh runs the single-flight token rotation and returns the new
	// access token. A failed refresh always ends the session.
	Refresh(ctx context.Context) (string, error)

	// Token returns the current access token, or "" if no session exists.
	Token() string

	// Current returns a copy of the current Credential, or nil.
	Current() *Credential

	// IsAuthenticated reports whether any session exists. An elapsed expiry
	// does not flip this to false; repair is deferred to the request pipeline.
	IsAuthenticated() bool

	// ExpiringSoon reports whether the token expires within threshold.
	ExpiringSoon(threshold time.Duration) bool

	// Watch registers fn to be called with each credential change
	// (nil on logout).
	Watch(fn func(*Credential))
}

// EmployeeService provides the employee directory. Implementation: employees/.
type EmployeeService interface {
	// List returns employees with pagination and the total record count.
	List(ctx context.Context, opts ListOptions) ([]Employee, int, error)

	// Get returns an employee by ID.
	Get(ctx context.Context, id string) (*Employee, error)

	// Create adds a new employee record.
	Create(ctx context.Context, emp Employee) (*Employee, error)

	// Update replaces an employee record.
	Update(ctx context.Context, id string, emp Employee) (*Employee, error)

	// Delete removes an employee record.
	Delete(ctx context.Context, id string) error
}

// LeaveService manages leave requests. Implementation: leave/.
type LeaveService interface {
	// List returns leave requests with pagination and the total count.
	List(ctx context.Context, opts ListOptions) ([]LeaveRequest, int, error)

	// Submit files a new leave request.
	Submit(ctx context.Context, req LeaveRequest) (*LeaveRequest, error)

	// Approve approves a pending request.
	Approve(ctx context.Context, id string) error

	// Reject rejects a pending request with a reason.
	Reject(ctx context.Context, id, reason string) error

	// Balances returns the leave balances for an employee.
	Balances(ctx context.Context, employeeID string) ([]LeaveBalance, error)
}
