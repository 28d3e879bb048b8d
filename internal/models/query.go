package models

import "fmt"

// AskOptions are per-request overrides for retrieval and assembly. Zero
// values mean "use configured defaults".
type AskOptions struct {
	TopK             int               `json:"top_k,omitempty"`
	MaxContextTokens int               `json:"max_context_tokens,omitempty"`
	Filters          map[string]string `json:"filters,omitempty"`
}

// AskQuery is an inbound question with optional overrides.
type AskQuery struct {
	Query   string     `json:"query"`
	Options AskOptions `json:"options,omitempty"`
}

// Validate ensures the query is answerable and clamps option overrides.
// Returns an error for an empty query; negative overrides are reset to zero
// so the configured defaults apply.
func (q *AskQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Options.TopK < 0 {
		q.Options.TopK = 0
	}
	if q.Options.MaxContextTokens < 0 {
		q.Options.MaxContextTokens = 0
	}
	return nil
}
