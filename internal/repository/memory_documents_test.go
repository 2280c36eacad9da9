package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/552020/futura-prealpha/internal/model"
)

func TestMemoryDocumentsScopesByOwner(t *testing.T) {
	m := NewMemoryDocuments()
	m.Put(model.Document{Owner: "relay", Collection: "ENV_VARS", Key: "prod", Data: []byte(`{"a":1}`)})

	doc, err := m.GetDocument(context.Background(), "relay", "ENV_VARS", "prod")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)
	assert.JSONEq(t, `{"a":1}`, string(doc.Data))

	_, err = m.GetDocument(context.Background(), "someone-else", "ENV_VARS", "prod")
	assert.ErrorIs(t, err, model.ErrDocumentNotFound)
	assert.Equal(t, 1, m.Reads("someone-else", "ENV_VARS", "prod"))
}

func TestMemoryDocumentsPutBumpsVersion(t *testing.T) {
	m := NewMemoryDocuments()
	d := model.Document{Owner: "o", Collection: "c", Key: "k", Data: []byte(`{}`)}
	m.Put(d)
	m.Put(d)

	doc, err := m.GetDocument(context.Background(), "o", "c", "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Version)
}
