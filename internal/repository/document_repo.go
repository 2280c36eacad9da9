package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/552020/futura-prealpha/internal/model"
	"github.com/552020/futura-prealpha/pkg/metrics"
)

// DocumentRepository reads store documents mirrored into PostgreSQL.
type DocumentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDocumentRepository(db *pgxpool.Pool, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

func (r *DocumentRepository) GetDocument(ctx context.Context, owner, collection, key string) (*model.Document, error) {
	query := `
		SELECT owner, collection, key, data, version, updated_at
		FROM documents
		WHERE owner = $1 AND collection = $2 AND key = $3
	`

	start := time.Now()
	var doc model.Document
	err := r.db.QueryRow(ctx, query, owner, collection, key).Scan(
		&doc.Owner,
		&doc.Collection,
		&doc.Key,
		&doc.Data,
		&doc.Version,
		&doc.UpdatedAt,
	)
	metrics.RecordDBQueryDuration("select", "documents", time.Since(start))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrDocumentNotFound
	}
	if err != nil {
		r.logger.Error("Failed to query document",
			zap.String("collection", collection),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return &doc, nil
}

// Ping checks the pool for readiness probes.
func (r *DocumentRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
