package client

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a 200 response does not carry the
// JSON envelope the endpoint is documented to return.
var ErrMalformedResponse = errors.New("malformed provider response")

// AuthenticationError is returned for every failed provider call: a non-200
// status or a transport failure. The provider gives no reliable way to tell a
// revoked key from an outage, so callers treat both the same.
type AuthenticationError struct {
	Endpoint   string
	Status     int
	StatusText string
	Err        error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider authentication error (endpoint %s, status %d): %s: %v",
			e.Endpoint, e.Status, e.StatusText, e.Err)
	}
	return fmt.Sprintf("provider authentication error (endpoint %s, status %d): %s",
		e.Endpoint, e.Status, e.StatusText)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ErrorClass labels failures for metrics and logs.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassUnexpected represents any other non-200 status.
	ErrorClassUnexpected ErrorClass = "unexpected_status"

	// ErrorClassNetwork represents transport failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents bodies that are not the expected JSON.
	ErrorClassDecode ErrorClass = "decode"
)

func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}
