package model

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{&DecodeError{Field: "to", Cause: errors.New("missing")}, "decode_error"},
		{&SerializationError{Cause: errors.New("x")}, "serialization_error"},
		{&CredentialError{Strategy: "store"}, "credential_error"},
		{&TransportError{Reason: "timeout"}, "transport_timeout"},
		{&TransportError{Reason: "connection"}, "transport_error"},
		{&RemoteError{Status: 404, Body: "not found"}, "remote_4xx"},
		{&RemoteError{Status: 503}, "remote_5xx"},
		{fmt.Errorf("wrapped: %w", &RemoteError{Status: 429}), "remote_4xx"},
		{context.DeadlineExceeded, "transport_timeout"},
		{errors.New("something else"), "unknown_error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyError(tc.err), "%v", tc.err)
	}
}
