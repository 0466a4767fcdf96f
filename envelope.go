package hrm

import (
	"encoding/json"
	"io"
	"net/http"
)

// responses larger than this are treated as malformed
const maxResponseBytes = 4 << 20

// Decode unwraps an enveloped API response into out, closing the body.
// Non-2xx statuses and envelopes with succeeded=false become an *APIError
// carrying the server's message. Pass a nil out to discard the payload.
func Decode(resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &APIError{Status: resp.StatusCode, Message: "unreadable response body"}
	}

	var env Envelope
	parseErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if parseErr != nil {
		return &APIError{Status: resp.StatusCode, Message: "malformed response envelope"}
	}
	if !env.Succeeded {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "malformed response payload"}
	}
	return nil
}
