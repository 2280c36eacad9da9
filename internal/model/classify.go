package model

import (
	"context"
	"errors"
)

// ClassifyError maps a pipeline error to a stable label for logs and metrics.
func ClassifyError(err error) string {
	if err == nil {
		return "success"
	}

	var (
		decodeErr     *DecodeError
		serializeErr  *SerializationError
		credentialErr *CredentialError
		transportErr  *TransportError
		remoteErr     *RemoteError
	)

	switch {
	case errors.As(err, &decodeErr):
		return "decode_error"
	case errors.As(err, &serializeErr):
		return "serialization_error"
	case errors.As(err, &credentialErr):
		return "credential_error"
	case errors.As(err, &transportErr):
		if transportErr.Timeout() {
			return "transport_timeout"
		}
		return "transport_error"
	case errors.As(err, &remoteErr):
		if remoteErr.Status >= 500 {
			return "remote_5xx"
		}
		return "remote_4xx"
	case errors.Is(err, context.DeadlineExceeded):
		return "transport_timeout"
	}

	return "unknown_error"
}
