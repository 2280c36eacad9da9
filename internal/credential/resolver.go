// Package credential resolves the bearer token presented to the notification API.
//
// Two strategies exist, selected per deployment: EnvResolver reads a process
// variable, StoreResolver reads a configuration document from the store with an
// ordered primary/fallback pair. Tokens are resolved on every delivery and never cached.
package credential

import (
	"context"

	"github.com/552020/futura-prealpha/internal/model"
)

const (
	StrategyEnv   = "env"
	StrategyStore = "store"

	// TokenName is both the environment variable and the document field holding the token.
	TokenName = "NOTIFICATIONS_TOKEN"
	// ConfigCollection holds the per-stage configuration documents.
	ConfigCollection = "ENV_VARS"
)

// Resolver returns the token to authenticate one delivery. owner is the
// principal whose configuration documents may be read.
type Resolver interface {
	Resolve(ctx context.Context, owner string) (string, error)
}

// DocumentReader reads a single document; it returns model.ErrDocumentNotFound
// when nothing matches.
type DocumentReader interface {
	GetDocument(ctx context.Context, owner, collection, key string) (*model.Document, error)
}
