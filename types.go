package hrm

import (
	"encoding/json"
	"slices"
	"time"
)

// DefaultRole is assigned when the server omits roles from the login payload.
const DefaultRole = "Employee"

// User is the identity object issued by the server at login.
// The client never derives trust decisions from it; the server is authoritative.
type User struct {
	ID                 string   `json:"id"`
	Username           string   `json:"username"`
	Email              string   `json:"email"`
	FullName           string   `json:"fullName"`
	EmployeeID         string   `json:"employeeId,omitempty"`
	Roles              []string `json:"roles"`
	IsActive           bool     `json:"isActive"`
	MustChangePassword bool     `json:"mustChangePassword"`
}

// Credential is the bearer token plus the identity it was issued for.
//
// AccessToken is opaque to the client: its payload is decoded only to read
// the expiry timestamp and is never verified locally. A zero ExpiresAt means
// the token carried no exp claim.
type Credential struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        User      `json:"user"`
}

// Clone returns a deep copy so callers cannot mutate session-owned state.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	out := *c
	out.User.Roles = slices.Clone(c.User.Roles)
	return &out
}

// HasRole reports whether the issued identity carries the given role.
func (c *Credential) HasRole(role string) bool {
	return c != nil && slices.Contains(c.User.Roles, role)
}

// LogoutReason is the machine-readable context passed to logout handlers
// so callers can explain why a session ended.
type LogoutReason string

const (
	ReasonManual         LogoutReason = "manual"
	ReasonSessionExpired LogoutReason = "session_expired"
)

// Envelope is the response wrapper used by every HRM API endpoint.
type Envelope struct {
	Succeeded bool            `json:"succeeded"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

// Employee is an employee record as returned by the directory endpoints.
type Employee struct {
	ID         string    `json:"id"`
	Number     string    `json:"employeeNumber"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Position   string    `json:"position"`
	HireDate   time.Time `json:"hireDate"`
	IsActive   bool      `json:"isActive"`
}

// LeaveRequest is a leave request record.
type LeaveRequest struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Type       string    `json:"type"` // annual, sick, unpaid, ...
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Days       float64   `json:"days"`
	Status     string    `json:"status"` // pending, approved, rejected
	Reason     string    `json:"reason,omitempty"`

	RejectionReason string `json:"rejectionReason,omitempty"`
}

// LeaveBalance is the remaining allowance for one leave type.
type LeaveBalance struct {
	Type      string  `json:"type"`
	Entitled  float64 `json:"entitled"`
	Taken     float64 `json:"taken"`
	Remaining float64 `json:"remaining"`
}

// ListOptions holds pagination parameters.
type ListOptions struct {
	Page     int
	PageSize int
}
