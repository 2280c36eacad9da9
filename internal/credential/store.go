package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/552020/futura-prealpha/internal/model"
	"github.com/552020/futura-prealpha/pkg/logger"
	"github.com/552020/futura-prealpha/pkg/metrics"
)

var (
	errTokenMissing = errors.New(TokenName + " missing or empty")

	// errInvalidDocument marks failures that allow falling through to the next document.
	errInvalidDocument = errors.New("invalid configuration document")
)

// StoreResolver reads the token from a configuration document. The primary
// document is tried first; the fallback is read only when the primary is absent
// or does not carry a usable token.
type StoreResolver struct {
	docs       DocumentReader
	collection string
	primaryID  string
	fallbackID string
	logger     *zap.Logger
}

func NewStoreResolver(docs DocumentReader, primaryID, fallbackID string, logger *zap.Logger) *StoreResolver {
	return &StoreResolver{
		docs:       docs,
		collection: ConfigCollection,
		primaryID:  primaryID,
		fallbackID: fallbackID,
		logger:     logger,
	}
}

func (r *StoreResolver) Resolve(ctx context.Context, owner string) (string, error) {
	log := logger.WithTrace(ctx, r.logger).With(zap.String("owner", owner))

	token, err := r.lookup(ctx, owner, r.primaryID)
	if err == nil {
		metrics.RecordCredentialLookup(StrategyStore, "primary", "found")
		return token, nil
	}

	failures := []model.LookupFailure{{DocID: r.primaryID, Cause: err}}
	if !fallsThrough(err) || r.fallbackID == "" {
		metrics.RecordCredentialLookup(StrategyStore, "primary", "error")
		log.Error("Credential lookup failed", zap.String("doc_id", r.primaryID), zap.Error(err))
		return "", &model.CredentialError{Strategy: StrategyStore, Lookups: failures}
	}

	log.Warn("Primary credential document unusable, trying fallback",
		zap.String("primary", r.primaryID),
		zap.String("fallback", r.fallbackID),
		zap.Error(err),
	)

	token, err = r.lookup(ctx, owner, r.fallbackID)
	if err == nil {
		metrics.RecordCredentialLookup(StrategyStore, "fallback", "found")
		return token, nil
	}

	metrics.RecordCredentialLookup(StrategyStore, "fallback", "error")
	failures = append(failures, model.LookupFailure{DocID: r.fallbackID, Cause: err})
	log.Error("Credential lookup failed for primary and fallback", zap.Error(err))
	return "", &model.CredentialError{Strategy: StrategyStore, Lookups: failures}
}

func (r *StoreResolver) lookup(ctx context.Context, owner, docID string) (string, error) {
	doc, err := r.docs.GetDocument(ctx, owner, r.collection, docID)
	if err != nil {
		if errors.Is(err, model.ErrDocumentNotFound) {
			return "", fmt.Errorf("%s/%s: %w", r.collection, docID, err)
		}
		return "", fmt.Errorf("read %s/%s: %w", r.collection, docID, err)
	}

	var body struct {
		Token *string `json:"NOTIFICATIONS_TOKEN"`
	}
	if err := json.Unmarshal(doc.Data, &body); err != nil {
		return "", fmt.Errorf("%w %s/%s: %v", errInvalidDocument, r.collection, docID, err)
	}
	if body.Token == nil || *body.Token == "" {
		return "", fmt.Errorf("%w %s/%s: %w", errInvalidDocument, r.collection, docID, errTokenMissing)
	}
	return *body.Token, nil
}

// fallsThrough reports whether the primary is conclusively absent or invalid.
// Storage failures are not: the primary may exist and be valid.
func fallsThrough(err error) bool {
	return errors.Is(err, model.ErrDocumentNotFound) || errors.Is(err, errInvalidDocument)
}
