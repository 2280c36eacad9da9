// Package delivery posts composed emails to the notification API.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/552020/futura-prealpha/internal/model"
	"github.com/552020/futura-prealpha/pkg/logger"
	"github.com/552020/futura-prealpha/pkg/metrics"
	"github.com/552020/futura-prealpha/pkg/otel"
)

const (
	DefaultEndpoint         = "https://observatory-7kdhmtcbfq-oa.a.run.app/notifications/email"
	DefaultTimeout          = 5 * time.Second
	DefaultMaxResponseBytes = 1000
	DefaultKeyPrefix        = "futura-"

	HeaderIdempotencyKey = "idempotency-key"
)

// Options configures a Client. Zero values take the defaults above.
type Options struct {
	Endpoint         string
	Timeout          time.Duration
	MaxResponseBytes int64
	KeyPrefix        string
	// Transport overrides the underlying RoundTripper (tests).
	Transport http.RoundTripper
}

// Client performs exactly one POST per Send; it never retries.
type Client struct {
	endpoint         string
	keyPrefix        string
	maxResponseBytes int64
	httpClient       *http.Client
	logger           *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	return &Client{
		endpoint:         opts.Endpoint,
		keyPrefix:        opts.KeyPrefix,
		maxResponseBytes: opts.MaxResponseBytes,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otel.NewTransport(opts.Transport),
		},
		logger: logger,
	}
}

// IdempotencyKey derives the key the API uses to deduplicate deliveries of one document.
func (c *Client) IdempotencyKey(docKey string) string {
	return c.keyPrefix + docKey
}

// Send posts payload on behalf of document docKey. A nil error means the API
// answered 2xx. Failures are *model.SerializationError, *model.TransportError
// or *model.RemoteError.
func (c *Client) Send(ctx context.Context, docKey, token string, payload model.EmailPayload) error {
	log := logger.WithTrace(ctx, c.logger).With(zap.String("doc_key", docKey))

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("Failed to serialize email payload", zap.Error(err))
		return &model.SerializationError{Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &model.TransportError{Reason: "request", Message: err.Error(), Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderIdempotencyKey, c.IdempotencyKey(docKey))

	log.Info("Posting email notification",
		zap.String("endpoint", c.endpoint),
		zap.Int("body_bytes", len(body)),
		zap.Bool("auth_token_present", token != ""),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordDeliveryLatency("error", time.Since(start))
		terr := transportError(err)
		log.Error("HTTP request failed",
			zap.String("reason", terr.Reason),
			zap.Error(err),
		)
		return terr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	metrics.RecordDeliveryLatency(strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		terr := transportError(err)
		log.Error("Failed to read notification API response", zap.Error(err))
		return terr
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		log.Error("Notification API response exceeds limit",
			zap.Int("status", resp.StatusCode),
			zap.Int64("limit", c.maxResponseBytes),
		)
		return &model.TransportError{
			Reason:  "response_too_large",
			Message: fmt.Sprintf("response body exceeds %d bytes", c.maxResponseBytes),
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Info("Email notification accepted",
			zap.Int("status", resp.StatusCode),
			zap.String("to", payload.To),
		)
		return nil
	}

	log.Error("Email API error",
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", respBody),
	)
	return &model.RemoteError{Status: resp.StatusCode, Body: strings.ToValidUTF8(string(respBody), "\uFFFD")}
}

func transportError(err error) *model.TransportError {
	reason := "connection"
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		reason = "timeout"
	case errors.Is(err, context.Canceled):
		reason = "canceled"
	}
	return &model.TransportError{Reason: reason, Message: err.Error(), Cause: err}
}
