package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	// KindHTTP is a non-2xx response from the API.
	KindHTTP ErrorKind = iota + 1
	// KindNetwork is a transport-level failure; Status is 0.
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is returned for every failed call. Data holds the parsed response body
// (a JSON value, or the raw text when the body is not JSON).
type Error struct {
	Message string
	Status  int
	Data    any
	Kind    ErrorKind

	Method string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: %s (status %d)", e.Method, e.Path, e.Message, e.Status)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

func IsStatus(err error, status int) bool {
	return err != nil && StatusOf(err) == status
}

func IsNetwork(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindNetwork
}

func httpError(method, path string, status int, body []byte) *Error {
	data := parseBody(body)
	return &Error{
		Message: messageFrom(data, status),
		Status:  status,
		Data:    data,
		Kind:    KindHTTP,
		Method:  method,
		Path:    path,
	}
}

func networkError(method, path string, err error) *Error {
	return &Error{
		Message: "network error: " + err.Error(),
		Kind:    KindNetwork,
		Method:  method,
		Path:    path,
		Err:     err,
	}
}

func parseBody(body []byte) any {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

func messageFrom(data any, status int) string {
	if m, ok := data.(map[string]any); ok {
		for _, k := range []string{"message", "error", "detail"} {
			if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}
