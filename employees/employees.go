// Package employees provides the employee directory service.
//
// The service is a thin typed wrapper over the REST endpoints: it maps DTOs
// and classifies failures, nothing more. Authentication is handled entirely
// by the transport the injected HTTP client carries.
package employees

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

// Service implements hrm.EmployeeService over the HRM REST API.
type Service struct {
	baseURL    string
	httpClient *http.Client
}

// compile-time check
var _ hrm.EmployeeService = (*Service)(nil)

// New creates the employee service. httpClient must carry the auth transport
// so requests are decorated and repaired.
func New(baseURL string, httpClient *http.Client) *Service {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Service{baseURL: baseURL, httpClient: httpClient}
}

type pagedEmployees struct {
	Items      []hrm.Employee `json:"items"`
	TotalCount int            `json:"totalCount"`
}

// List returns employees with pagination and the total record count.
func (s *Service) List(ctx context.Context, opts hrm.ListOptions) ([]hrm.Employee, int, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	path := "/api/employees"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out pagedEmployees
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.TotalCount, nil
}

// Get returns an employee by ID.
func (s *Service) Get(ctx context.Context, id string) (*hrm.Employee, error) {
	if id == "" {
		return nil, fmt.Errorf("hrm/employees: id cannot be empty")
	}
	var out hrm.Employee
	if err := s.do(ctx, http.MethodGet, "/api/employees/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create adds a new employee record.
func (s *Service) Create(ctx context.Context, emp hrm.Employee) (*hrm.Employee, error) {
	var out hrm.Employee
	if err := s.do(ctx, http.MethodPost, "/api/employees", emp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces an employee record.
func (s *Service) Update(ctx context.Context, id string, emp hrm.Employee) (*hrm.Employee, error) {
	if id == "" {
		return nil, fmt.Errorf("hrm/employees: id cannot be empty")
	}
	var out hrm.Employee
	if err := s.do(ctx, http.MethodPut, "/api/employees/"+url.PathEscape(id), emp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an employee record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("hrm/employees: id cannot be empty")
	}
	return s.do(ctx, http.MethodDelete, "/api/employees/"+url.PathEscape(id), nil, nil)
}

// do sends one API request and unwraps the response envelope into out.
func (s *Service) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("hrm/employees: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("hrm/employees: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hrm/employees: %w", err)
	}
	return hrm.Decode(resp, out)
}
