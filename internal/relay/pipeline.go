// Package relay turns a stored email request into one notification delivery.
package relay

import (
	"context"

	"go.uber.org/zap"

	"github.com/552020/futura-prealpha/internal/credential"
	"github.com/552020/futura-prealpha/internal/hook"
	"github.com/552020/futura-prealpha/internal/model"
	"github.com/552020/futura-prealpha/pkg/logger"
	"github.com/552020/futura-prealpha/pkg/metrics"
)

// Sender delivers one payload for the document identified by docKey.
type Sender interface {
	Send(ctx context.Context, docKey, token string, payload model.EmailPayload) error
}

// Pipeline is the set_doc handler: decode, compose, resolve credentials, deliver.
type Pipeline struct {
	resolver credential.Resolver
	sender   Sender
	owner    string
	logger   *zap.Logger
}

// NewPipeline builds a pipeline; owner is the principal used to scope credential lookups.
func NewPipeline(resolver credential.Resolver, sender Sender, owner string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		sender:   sender,
		owner:    owner,
		logger:   logger,
	}
}

// Handle satisfies hook.Handler.
func (p *Pipeline) Handle(ctx context.Context, ev hook.Event) error {
	err := p.run(ctx, ev)
	metrics.RecordDelivery(model.ClassifyError(err))
	return err
}

func (p *Pipeline) run(ctx context.Context, ev hook.Event) error {
	log := logger.WithTrace(ctx, p.logger).With(zap.String("doc_key", ev.Key))

	req, err := DecodeEmailRequest(ev.After)
	if err != nil {
		log.Error("Failed to decode email data", zap.Error(err))
		return err
	}
	log.Info("Decoded email request",
		zap.String("user_name", req.UserName),
		zap.String("recipient_name", req.RecipientName),
	)

	payload := Compose(req)

	token, err := p.resolver.Resolve(ctx, p.owner)
	if err != nil {
		return err
	}

	return p.sender.Send(ctx, ev.Key, token, payload)
}
