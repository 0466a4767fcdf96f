// Package leave provides the leave-management service: listing and filing
// leave requests, approval actions, and balances. All balance and entitlement
// calculation happens server-side; this client only transports the results.
package leave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	hrm "github.com/openhrms/hrm-go"
)

// Service implements hrm.LeaveService over the HRM REST API.
type Service struct {
	baseURL    string
	httpClient *http.Client
}

// compile-time check
var _ hrm.LeaveService = (*Service)(nil)

// New creates the leave service. httpClient must carry the auth transport.
func New(baseURL string, httpClient *http.Client) *Service {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Service{baseURL: baseURL, httpClient: httpClient}
}

type pagedRequests struct {
	Items      []hrm.LeaveRequest `json:"items"`
	TotalCount int                `json:"totalCount"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type balancesResponse struct {
	Balances []hrm.LeaveBalance `json:"balances"`
}

// List returns leave requests with pagination and the total count.
func (s *Service) List(ctx context.Context, opts hrm.ListOptions) ([]hrm.LeaveRequest, int, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	path := "/api/leave-requests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out pagedRequests
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.TotalCount, nil
}

// Submit files a new leave request.
func (s *Service) Submit(ctx context.Context, req hrm.LeaveRequest) (*hrm.LeaveRequest, error) {
	var out hrm.LeaveRequest
	if err := s.do(ctx, http.MethodPost, "/api/leave-requests", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approve approves a pending request.
func (s *Service) Approve(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("hrm/leave: id cannot be empty")
	}
	return s.do(ctx, http.MethodPost, "/api/leave-requests/"+url.PathEscape(id)+"/approve", nil, nil)
}

// Reject rejects a pending request with a reason.
func (s *Service) Reject(ctx context.Context, id, reason string) error {
	if id == "" {
		return fmt.Errorf("hrm/leave: id cannot be empty")
	}
	return s.do(ctx, http.MethodPost, "/api/leave-requests/"+url.PathEscape(id)+"/reject", rejectRequest{Reason: reason}, nil)
}

// Balances returns the leave balances for an employee.
func (s *Service) Balances(ctx context.Context, employeeID string) ([]hrm.LeaveBalance, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("hrm/leave: employeeID cannot be empty")
	}
	var out balancesResponse
	if err := s.do(ctx, http.MethodGet, "/api/leave-balances/"+url.PathEscape(employeeID), nil, &out); err != nil {
		return nil, err
	}
	return out.Balances, nil
}

// do sends one API request and unwraps the response envelope into out.
func (s *Service) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("hrm/leave: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("hrm/leave: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hrm/leave: %w", err)
	}
	return hrm.Decode(resp, out)
}
