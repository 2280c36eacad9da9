package mq

import "encoding/json"

// Routing keys are "store." + kind, e.g. store.set_doc.
const RoutingKeyPrefix = "store."

const (
	KindSetDoc           = "set_doc"
	KindSetManyDocs      = "set_many_docs"
	KindDeleteDoc        = "delete_doc"
	KindDeleteManyDocs   = "delete_many_docs"
	KindUploadAsset      = "upload_asset"
	KindDeleteAsset      = "delete_asset"
	KindDeleteManyAssets = "delete_many_assets"
)

// MutationEvent is published by the document store after a write completes.
type MutationEvent struct {
	ID         string       `json:"id"` // unique per mutation, reused on redelivery
	Kind       string       `json:"kind"`
	Collection string       `json:"collection"`
	Key        string       `json:"key"`
	Owner      string       `json:"owner,omitempty"`
	Before     *DocVersion  `json:"before,omitempty"`
	After      *DocVersion  `json:"after,omitempty"`
	Items      []ItemChange `json:"items,omitempty"` // *_many_* kinds
}

// DocVersion is one version of a document; Data is the stored body.
type DocVersion struct {
	Data    json.RawMessage `json:"data"`
	Version int64           `json:"version,omitempty"`
}

// ItemChange is one entry of a batched mutation.
type ItemChange struct {
	Collection string      `json:"collection"`
	Key        string      `json:"key"`
	Owner      string      `json:"owner,omitempty"`
	Before     *DocVersion `json:"before,omitempty"`
	After      *DocVersion `json:"after,omitempty"`
}
