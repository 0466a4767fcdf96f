package hrm_test

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	hrm "github.com/openhrms/hrm-go"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, hrm.ErrUnauthorized},
		{http.StatusForbidden, hrm.ErrForbidden},
		{http.StatusNotFound, hrm.ErrNotFound},
		{http.StatusBadRequest, hrm.ErrValidation},
		{http.StatusUnprocessableEntity, hrm.ErrValidation},
		{http.StatusInternalServerError, hrm.ErrServer},
		{http.StatusBadGateway, hrm.ErrServer},
		{http.StatusOK, nil},
		{http.StatusTeapot, nil},
	}
	for _, tc := range cases {
		if got := hrm.ClassifyStatus(tc.status); !errors.Is(got, tc.want) {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestAPIError_UnwrapsToSentinel(t *testing.T) {
	err := error(&hrm.APIError{Status: http.StatusNotFound, Message: "employee not found"})

	if !errors.Is(err, hrm.ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false")
	}
	if errors.Is(err, hrm.ErrUnauthorized) {
		t.Error("errors.Is(err, ErrUnauthorized) = true for a 404")
	}
	if !strings.Contains(err.Error(), "employee not found") {
		t.Errorf("Error() = %q, want the server message", err.Error())
	}
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestDecode_Success(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	resp := response(http.StatusOK, `{"succeeded":true,"message":"","data":{"name":"alice"}}`)
	if err := hrm.Decode(resp, &out); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if out.Name != "alice" {
		t.Errorf("out.Name = %q, want alice", out.Name)
	}
}

func TestDecode_NilOutDiscardsPayload(t *testing.T) {
	resp := response(http.StatusOK, `{"succeeded":true,"message":"","data":{"ignored":1}}`)
	if err := hrm.Decode(resp, nil); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
}

func TestDecode_FailureStatusCarriesMessage(t *testing.T) {
	resp := response(http.StatusForbidden, `{"succeeded":false,"message":"admins only","data":null}`)
	err := hrm.Decode(resp, nil)
	if !errors.Is(err, hrm.ErrForbidden) {
		t.Fatalf("Decode() = %v, want ErrForbidden", err)
	}
	var apiErr *hrm.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "admins only" {
		t.Errorf("Decode() = %v, want APIError with server message", err)
	}
}

func TestDecode_EnvelopeFailureOn200(t *testing.T) {
	resp := response(http.StatusOK, `{"succeeded":false,"message":"quota exceeded","data":null}`)
	err := hrm.Decode(resp, nil)
	if err == nil {
		t.Fatal("Decode() expected error for succeeded=false")
	}
	var apiErr *hrm.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "quota exceeded" {
		t.Errorf("Decode() = %v, want APIError carrying the envelope message", err)
	}
}

func TestDecode_MalformedEnvelope(t *testing.T) {
	resp := response(http.StatusOK, `<html>gateway error</html>`)
	if err := hrm.Decode(resp, nil); err == nil {
		t.Error("Decode() expected error for a non-JSON body")
	}
}

func TestCredential_Clone(t *testing.T) {
	cred := &hrm.Credential{
		AccessToken: "tok",
		User:        hrm.User{Roles: []string{"Admin"}},
	}
	clone := cred.Clone()
	clone.User.Roles[0] = "Employee"
	if cred.User.Roles[0] != "Admin" {
		t.Error("Clone() shares the roles slice with the original")
	}

	var nilCred *hrm.Credential
	if nilCred.Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}

func TestCredential_HasRole(t *testing.T) {
	cred := &hrm.Credential{User: hrm.User{Roles: []string{"Admin", "Employee"}}}
	if !cred.HasRole("Admin") || cred.HasRole("Auditor") {
		t.Errorf("HasRole() misreported for %v", cred.User.Roles)
	}
	var nilCred *hrm.Credential
	if nilCred.HasRole("Admin") {
		t.Error("HasRole() on nil credential should be false")
	}
}
