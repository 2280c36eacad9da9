package model

import "time"

// Document is a record read from the document store.
type Document struct {
	Owner      string
	Collection string
	Key        string
	Data       []byte
	Version    int64
	UpdatedAt  time.Time
}
