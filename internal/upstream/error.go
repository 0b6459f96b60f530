// Package upstream describes failures returned by remote model providers.
package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response from an embedding or generation provider.
type APIError struct {
	Provider   string
	Operation  string
	Status     int
	StatusText string
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed (%d)", e.Provider, e.Operation, e.Status)
}

// BodyPreview returns at most n bytes of the response body.
func (e *APIError) BodyPreview(n int) string {
	if len(e.Body) <= n {
		return e.Body
	}
	return e.Body[:n]
}

// NewAPIError builds an APIError from a failed response and its body.
// The retry hint comes from the Retry-After header or, for Google APIs,
// from a RetryInfo detail in the error payload.
func NewAPIError(provider, operation string, resp *http.Response, body []byte) *APIError {
	e := &APIError{
		Provider:   provider,
		Operation:  operation,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Body:       string(body),
	}
	if d, ok := parseRetryAfterHeader(resp.Header.Get("Retry-After")); ok {
		e.RetryAfter = d
	} else if d, ok := parseRetryInfo(body); ok {
		e.RetryAfter = d
	}
	return e
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func parseRetryAfterHeader(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

type googleError struct {
	Error struct {
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		} `json:"details"`
	} `json:"error"`
}

func parseRetryInfo(body []byte) (time.Duration, bool) {
	var ge googleError
	if err := json.Unmarshal(body, &ge); err != nil {
		return 0, false
	}
	for _, d := range ge.Error.Details {
		if !strings.Contains(d.Type, "RetryInfo") || d.RetryDelay == "" {
			continue
		}
		if dur, err := time.ParseDuration(d.RetryDelay); err == nil {
			return dur, true
		}
	}
	return 0, false
}
