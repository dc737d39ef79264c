package aggregator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/banklink/go-bank-link/internal/errors"
	"github.com/pkg/errors"
)

// APIError is a normalized aggregator failure: an HTTP status code and
// a human readable detail. It is the only error shape handlers render.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("aggregator error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("aggregator error: status %d: %s", e.StatusCode, e.Detail)
}

// upstreamFailure is the error shape the aggregator client library
// serializes: the interesting fields all live under "response".
type upstreamFailure struct {
	Response struct {
		StatusCode        int             `json:"status_code"`
		Detail            json.RawMessage `json:"detail"`
		MaxHistoricalDays *struct {
			Summary string `json:"summary"`
		} `json:"max_historical_days"`
	} `json:"response"`
}

// Normalize converts a raw upstream failure body into an *APIError.
//
// Bodies are strict JSON in the usual case. The upstream client's
// string serialization emits single-quoted almost-JSON, so when the
// strict parse fails a single pass of quote substitution is tried
// before giving up. If a detail string itself contains a single quote
// that pass produces garbage; both parses failing is surfaced as
// ErrMalformedUpstream rather than a wrong result.
func Normalize(body string) (*APIError, error) {
	var failure upstreamFailure
	if err := json.Unmarshal([]byte(body), &failure); err != nil {
		lenient := strings.ReplaceAll(body, "'", `"`)
		if err := json.Unmarshal([]byte(lenient), &failure); err != nil {
			return nil, errors.Wrap(apperrors.ErrMalformedUpstream, err.Error())
		}
	}

	// Missing or zero status code: the upstream gave us nothing to
	// relay, report not-found with no detail.
	if failure.Response.StatusCode == 0 {
		return &APIError{StatusCode: http.StatusNotFound}, nil
	}

	detail := rawToString(failure.Response.Detail)
	if failure.Response.MaxHistoricalDays != nil {
		// Rate/window-limit errors carry their message in a dedicated
		// shape, preferred over the generic detail field.
		detail = failure.Response.MaxHistoricalDays.Summary
	}

	return &APIError{
		StatusCode: failure.Response.StatusCode,
		Detail:     detail,
	}, nil
}

// rawToString renders a detail field that may be either a plain string
// or a structured object.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
