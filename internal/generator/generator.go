// Package generator wraps a chat-completion provider to produce grounded answers.
package generator

import (
	"context"

	"github.com/lexforge/lexrag/internal/models"
)

// Generator produces an answer for a query given an assembled prompt context.
type Generator interface {
	// Generate returns the answer text. The prompt context may be empty only
	// when the implementation's empty-context policy allows it.
	Generate(ctx context.Context, query string, pc *models.PromptContext) (string, error)

	// Model returns the provider model identifier.
	Model() string

	// Ping checks provider reachability.
	Ping(ctx context.Context) error

	Close() error
}
