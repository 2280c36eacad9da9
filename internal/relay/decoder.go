package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/552020/futura-prealpha/internal/model"
)

var errMissingField = errors.New("missing required field")

// DecodeEmailRequest decodes the stored body of an email-request document.
// Every field must be present and a JSON string; unknown fields are ignored.
func DecodeEmailRequest(raw []byte) (model.EmailRequest, error) {
	var req model.EmailRequest
	if len(bytes.TrimSpace(raw)) == 0 {
		return req, &model.DecodeError{Cause: errors.New("empty document data")}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return req, &model.DecodeError{Cause: err}
	}

	targets := []struct {
		name string
		dst  *string
	}{
		{"from", &req.From},
		{"to", &req.To},
		{"subject", &req.Subject},
		{"text", &req.Text},
		{"user_name", &req.UserName},
		{"recipient_name", &req.RecipientName},
	}
	for _, t := range targets {
		v, ok := fields[t.name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return model.EmailRequest{}, &model.DecodeError{Field: t.name, Cause: errMissingField}
		}
		if err := json.Unmarshal(v, t.dst); err != nil {
			return model.EmailRequest{}, &model.DecodeError{
				Field: t.name,
				Cause: fmt.Errorf("expected string: %w", err),
			}
		}
	}
	return req, nil
}
