// Package vectorstore abstracts the external similarity store. One
// namespace is used per analyzed project, so retrieval never crosses
// project boundaries.
package vectorstore

import "context"

// Metadata travels with each stored vector and is returned on query.
type Metadata struct {
	QualifiedName string `json:"qualified_name"`
	Summary       string `json:"summary"`
	RawText       string `json:"raw_text"`
}

// Match is one ranked query result.
type Match struct {
	Key      string
	Score    float32
	Metadata Metadata
}

// Store is the similarity-store collaborator. Put upserts a vector
// keyed by symbol ID; Query returns the topK nearest entries within
// the namespace.
type Store interface {
	Put(ctx context.Context, namespace, key string, vector []float32, md Metadata) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
}
