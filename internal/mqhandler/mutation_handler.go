package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "github.com/552020/futura-prealpha/contracts/mq"
	"github.com/552020/futura-prealpha/internal/hook"
	"github.com/552020/futura-prealpha/pkg/logger"
	"github.com/552020/futura-prealpha/pkg/trace"
	"github.com/552020/futura-prealpha/pkg/util"
)

const dedupHandlerName = "relay"

// MutationHandler feeds store mutation events from the queue into the dispatcher.
type MutationHandler struct {
	dispatcher *hook.Dispatcher
	deduper    *util.Deduper
	logger     *zap.Logger
}

func NewMutationHandler(dispatcher *hook.Dispatcher, deduper *util.Deduper, logger *zap.Logger) *MutationHandler {
	return &MutationHandler{
		dispatcher: dispatcher,
		deduper:    deduper,
		logger:     logger,
	}
}

// Handle processes one queued mutation. A returned error dead-letters the message.
func (h *MutationHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var m mqcontracts.MutationEvent
	if err := json.Unmarshal(raw, &m); err != nil {
		h.logger.Error("Failed to unmarshal MutationEvent", zap.Error(err))
		return fmt.Errorf("failed to unmarshal mutation event: %w", err)
	}

	ctx = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, h.logger)

	if !h.deduper.AcquireOnce(ctx, dedupHandlerName, m.ID) {
		return nil
	}

	log.Debug("Handling store mutation",
		zap.String("event_id", m.ID),
		zap.String("kind", m.Kind),
		zap.String("collection", m.Collection),
		zap.String("key", m.Key),
	)

	return h.dispatcher.HandleMutation(ctx, m)
}
