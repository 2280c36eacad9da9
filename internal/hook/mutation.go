package hook

import (
	"context"
	"fmt"

	mqcontracts "github.com/552020/futura-prealpha/contracts/mq"
)

// HandleMutation calls the entry point matching m.Kind.
func (d *Dispatcher) HandleMutation(ctx context.Context, m mqcontracts.MutationEvent) error {
	kind, ok := ParseKind(m.Kind)
	if !ok {
		return fmt.Errorf("unknown mutation kind %q", m.Kind)
	}

	if kind.Batched() {
		evs := make([]Event, 0, len(m.Items))
		for _, it := range m.Items {
			evs = append(evs, Event{
				Collection: it.Collection,
				Key:        it.Key,
				Owner:      it.Owner,
				Before:     versionData(it.Before),
				After:      versionData(it.After),
			})
		}
		switch kind {
		case SetManyDocs:
			return d.OnSetManyDocs(ctx, evs)
		case DeleteManyDocs:
			return d.OnDeleteManyDocs(ctx, evs)
		default:
			return d.OnDeleteManyAssets(ctx, evs)
		}
	}

	ev := Event{
		Collection: m.Collection,
		Key:        m.Key,
		Owner:      m.Owner,
		Before:     versionData(m.Before),
		After:      versionData(m.After),
	}
	switch kind {
	case SetDoc:
		return d.OnSetDoc(ctx, ev)
	case DeleteDoc:
		return d.OnDeleteDoc(ctx, ev)
	case UploadAsset:
		return d.OnUploadAsset(ctx, ev)
	default:
		return d.OnDeleteAsset(ctx, ev)
	}
}

func versionData(v *mqcontracts.DocVersion) []byte {
	if v == nil {
		return nil
	}
	return v.Data
}
