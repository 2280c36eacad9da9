package model

import (
	"errors"
	"fmt"
)

// ErrDocumentNotFound is returned by document readers when no record matches.
var ErrDocumentNotFound = errors.New("document not found")

// DecodeError: the triggering document is malformed or incomplete.
type DecodeError struct {
	Field string // empty when the body could not be parsed at all
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("failed to decode email data: field %q: %v", e.Field, e.Cause)
	}
	return fmt.Sprintf("failed to decode email data: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// SerializationError: the payload could not be encoded for the wire.
type SerializationError struct {
	Cause error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize email payload: %v", e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }

// CredentialError: no bearer token could be resolved.
type CredentialError struct {
	Strategy string
	Lookups  []LookupFailure
}

// LookupFailure records why one configuration document could not provide a token.
type LookupFailure struct {
	DocID string
	Cause error
}

func (e *CredentialError) Error() string {
	msg := fmt.Sprintf("failed to resolve notifications token (%s)", e.Strategy)
	for _, l := range e.Lookups {
		msg += fmt.Sprintf("; %s: %v", l.DocID, l.Cause)
	}
	return msg
}

func (e *CredentialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Lookups))
	for _, l := range e.Lookups {
		errs = append(errs, l.Cause)
	}
	return errs
}

// TransportError: the outbound call did not complete.
type TransportError struct {
	Reason  string // timeout, connection, response_too_large, canceled, request
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP request failed. Reason: %s, Error: %s", e.Reason, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Timeout reports whether the call was abandoned because the deadline passed.
func (e *TransportError) Timeout() bool { return e.Reason == "timeout" }

// RemoteError: the notification API answered with a non-2xx status.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("email API returned status %d: %s", e.Status, e.Body)
}
