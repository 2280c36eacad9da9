package repository

import (
	"context"
	"sync"
	"time"

	"github.com/552020/futura-prealpha/internal/model"
)

type docKey struct {
	owner, collection, key string
}

// MemoryDocuments is an in-process document store used in development and tests.
type MemoryDocuments struct {
	mu    sync.RWMutex
	docs  map[docKey]model.Document
	reads map[docKey]int
}

func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{
		docs:  make(map[docKey]model.Document),
		reads: make(map[docKey]int),
	}
}

// Put stores doc, bumping its version.
func (m *MemoryDocuments) Put(doc model.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := docKey{doc.Owner, doc.Collection, doc.Key}
	doc.Version = m.docs[k].Version + 1
	doc.UpdatedAt = time.Now()
	doc.Data = append([]byte(nil), doc.Data...)
	m.docs[k] = doc
}

func (m *MemoryDocuments) GetDocument(_ context.Context, owner, collection, key string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := docKey{owner, collection, key}
	m.reads[k]++
	doc, ok := m.docs[k]
	if !ok {
		return nil, model.ErrDocumentNotFound
	}
	doc.Data = append([]byte(nil), doc.Data...)
	return &doc, nil
}

// Reads returns how many times a document was requested.
func (m *MemoryDocuments) Reads(owner, collection, key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads[docKey{owner, collection, key}]
}

func (m *MemoryDocuments) Ping(context.Context) error { return nil }
