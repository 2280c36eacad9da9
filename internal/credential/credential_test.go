package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/552020/futura-prealpha/internal/model"
)

type fakeDocs struct {
	docs  map[string]string
	errs  map[string]error
	reads []string
	owner string
}

func (f *fakeDocs) GetDocument(_ context.Context, owner, collection, key string) (*model.Document, error) {
	f.reads = append(f.reads, key)
	f.owner = owner
	if collection != ConfigCollection {
		return nil, model.ErrDocumentNotFound
	}
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	data, ok := f.docs[key]
	if !ok {
		return nil, model.ErrDocumentNotFound
	}
	return &model.Document{Owner: owner, Collection: collection, Key: key, Data: []byte(data)}, nil
}

func TestStoreResolverPrimary(t *testing.T) {
	docs := &fakeDocs{docs: map[string]string{
		"prod": `{"NOTIFICATIONS_TOKEN":"prod-token"}`,
		"dev":  `{"NOTIFICATIONS_TOKEN":"dev-token"}`,
	}}
	r := NewStoreResolver(docs, "prod", "dev", zap.NewNop())

	token, err := r.Resolve(context.Background(), "relay-principal")
	require.NoError(t, err)
	assert.Equal(t, "prod-token", token)
	assert.Equal(t, []string{"prod"}, docs.reads)
	assert.Equal(t, "relay-principal", docs.owner)
}

func TestStoreResolverFallsBackWhenPrimaryAbsent(t *testing.T) {
	docs := &fakeDocs{docs: map[string]string{"dev": `{"NOTIFICATIONS_TOKEN":"dev-token"}`}}
	core, logs := observer.New(zap.InfoLevel)
	r := NewStoreResolver(docs, "prod", "dev", zap.New(core))

	token, err := r.Resolve(context.Background(), "relay-principal")
	require.NoError(t, err)
	assert.Equal(t, "dev-token", token)
	assert.Equal(t, []string{"prod", "dev"}, docs.reads)
	assert.Equal(t, 1, logs.FilterMessage("Primary credential document unusable, trying fallback").Len())
}

func TestStoreResolverFallsBackWhenPrimaryInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `nope`,
		"missing field": `{"OTHER":"x"}`,
		"empty token":   `{"NOTIFICATIONS_TOKEN":""}`,
		"wrong type":    `{"NOTIFICATIONS_TOKEN":7}`,
	} {
		t.Run(name, func(t *testing.T) {
			docs := &fakeDocs{docs: map[string]string{
				"prod": body,
				"dev":  `{"NOTIFICATIONS_TOKEN":"dev-token"}`,
			}}
			token, err := NewStoreResolver(docs, "prod", "dev", zap.NewNop()).Resolve(context.Background(), "o")
			require.NoError(t, err)
			assert.Equal(t, "dev-token", token)
		})
	}
}

func TestStoreResolverBothUnusable(t *testing.T) {
	docs := &fakeDocs{docs: map[string]string{"dev": `{"NOTIFICATIONS_TOKEN":""}`}}
	_, err := NewStoreResolver(docs, "prod", "dev", zap.NewNop()).Resolve(context.Background(), "o")

	var credErr *model.CredentialError
	require.True(t, errors.As(err, &credErr))
	require.Len(t, credErr.Lookups, 2)
	assert.Equal(t, "prod", credErr.Lookups[0].DocID)
	assert.Equal(t, "dev", credErr.Lookups[1].DocID)
	assert.ErrorIs(t, err, model.ErrDocumentNotFound)
	assert.Contains(t, err.Error(), "prod")
	assert.Contains(t, err.Error(), "dev")
}

func TestStoreResolverStorageFailureDoesNotFallBack(t *testing.T) {
	docs := &fakeDocs{
		docs: map[string]string{"dev": `{"NOTIFICATIONS_TOKEN":"dev-token"}`},
		errs: map[string]error{"prod": errors.New("connection refused")},
	}
	_, err := NewStoreResolver(docs, "prod", "dev", zap.NewNop()).Resolve(context.Background(), "o")

	var credErr *model.CredentialError
	require.True(t, errors.As(err, &credErr))
	assert.Len(t, credErr.Lookups, 1)
	assert.Equal(t, []string{"prod"}, docs.reads)
}

func TestEnvResolver(t *testing.T) {
	var asked string
	r := NewEnvResolver("", func(k string) (string, bool) {
		asked = k
		return "tok1", true
	}, zap.NewNop())

	token, err := r.Resolve(context.Background(), "ignored")
	require.NoError(t, err)
	assert.Equal(t, "tok1", token)
	assert.Equal(t, TokenName, asked)
}

func TestEnvResolverUnsetIsEmptyNotError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewEnvResolver("CUSTOM_TOKEN", func(string) (string, bool) { return "", false }, zap.New(core))

	token, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, token)

	entries := logs.FilterMessage("Auth token resolved from environment").All()
	require.Len(t, entries, 1)
	assert.Equal(t, false, entries[0].ContextMap()["present"])
}
