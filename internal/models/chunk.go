// Package models defines core data structures for statute chunks, queries,
// retrieved passages, prompt contexts, and answers.
package models

import "time"

// Chunk is a stored unit of legal text with a stable identifier and citation
// metadata. Chunks are created once during ingestion and are read-only on the
// request path.
type Chunk struct {
	ID             string    `json:"id" db:"id"`
	Text           string    `json:"text" db:"text"`
	SourceCitation string    `json:"source_citation" db:"source_citation"`
	Act            string    `json:"act,omitempty" db:"act"`
	Section        string    `json:"section,omitempty" db:"section"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// EmbeddingVector is a fixed-length vector tagged with the model that
// produced it. All vectors in one index share dimensionality and model.
type EmbeddingVector struct {
	Values []float32 `json:"values"`
	Model  string    `json:"model"`
}

// Dimensions returns the vector length.
func (v EmbeddingVector) Dimensions() int { return len(v.Values) }
