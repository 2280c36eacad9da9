// Package hook routes document-store mutation events to handlers through an
// explicit table keyed by event kind and collection. Events without an entry
// are acknowledged as no-ops.
package hook

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/552020/futura-prealpha/pkg/logger"
	"github.com/552020/futura-prealpha/pkg/metrics"
	"github.com/552020/futura-prealpha/pkg/trace"
)

type EventKind string

const (
	SetDoc           EventKind = "set_doc"
	SetManyDocs      EventKind = "set_many_docs"
	DeleteDoc        EventKind = "delete_doc"
	DeleteManyDocs   EventKind = "delete_many_docs"
	UploadAsset      EventKind = "upload_asset"
	DeleteAsset      EventKind = "delete_asset"
	DeleteManyAssets EventKind = "delete_many_assets"
)

// Kinds lists every lifecycle event the store can emit.
var Kinds = []EventKind{SetDoc, SetManyDocs, DeleteDoc, DeleteManyDocs, UploadAsset, DeleteAsset, DeleteManyAssets}

// ParseKind returns the kind named s, or false if the store never emits it.
func ParseKind(s string) (EventKind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Batched reports whether events of kind k carry several items.
func (k EventKind) Batched() bool {
	return k == SetManyDocs || k == DeleteManyDocs || k == DeleteManyAssets
}

// Event is one mutated document or asset. Before and After are raw stored bodies.
type Event struct {
	Kind       EventKind
	Collection string
	Key        string
	Owner      string
	Before     []byte
	After      []byte
}

// Handler runs for a matching event; its error is surfaced to the store as-is.
type Handler func(ctx context.Context, ev Event) error

type Dispatcher struct {
	mu     sync.RWMutex
	table  map[EventKind]map[string]Handler
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		table:  make(map[EventKind]map[string]Handler),
		logger: logger,
	}
}

// Register binds h to kind events on collection, replacing any earlier binding.
func (d *Dispatcher) Register(kind EventKind, collection string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byCollection, ok := d.table[kind]
	if !ok {
		byCollection = make(map[string]Handler)
		d.table[kind] = byCollection
	}
	byCollection[collection] = h

	d.logger.Info("Hook registered",
		zap.String("event", string(kind)),
		zap.String("collection", collection),
	)
}

func (d *Dispatcher) lookup(kind EventKind, collection string) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.table[kind][collection]
}

// Dispatch routes ev; it returns nil without side effects when nothing is registered.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	ctx = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, d.logger).With(
		zap.String("event", string(ev.Kind)),
		zap.String("collection", ev.Collection),
		zap.String("key", ev.Key),
	)

	h := d.lookup(ev.Kind, ev.Collection)
	if h == nil {
		log.Debug("No hook for event, ignoring")
		metrics.RecordHook(string(ev.Kind), "ignored")
		return nil
	}

	log.Info("Hook triggered")
	if err := h(ctx, ev); err != nil {
		log.Error("Hook failed", zap.Error(err))
		metrics.RecordHook(string(ev.Kind), "failed")
		return err
	}
	metrics.RecordHook(string(ev.Kind), "handled")
	return nil
}

func (d *Dispatcher) dispatchMany(ctx context.Context, kind EventKind, evs []Event) error {
	var errs []error
	for _, ev := range evs {
		ev.Kind = kind
		if err := d.Dispatch(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) OnSetDoc(ctx context.Context, ev Event) error {
	ev.Kind = SetDoc
	return d.Dispatch(ctx, ev)
}

func (d *Dispatcher) OnSetManyDocs(ctx context.Context, evs []Event) error {
	return d.dispatchMany(ctx, SetManyDocs, evs)
}

func (d *Dispatcher) OnDeleteDoc(ctx context.Context, ev Event) error {
	ev.Kind = DeleteDoc
	return d.Dispatch(ctx, ev)
}

func (d *Dispatcher) OnDeleteManyDocs(ctx context.Context, evs []Event) error {
	return d.dispatchMany(ctx, DeleteManyDocs, evs)
}

func (d *Dispatcher) OnUploadAsset(ctx context.Context, ev Event) error {
	ev.Kind = UploadAsset
	return d.Dispatch(ctx, ev)
}

func (d *Dispatcher) OnDeleteAsset(ctx context.Context, ev Event) error {
	ev.Kind = DeleteAsset
	return d.Dispatch(ctx, ev)
}

func (d *Dispatcher) OnDeleteManyAssets(ctx context.Context, evs []Event) error {
	return d.dispatchMany(ctx, DeleteManyAssets, evs)
}
