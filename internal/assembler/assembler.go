// Package assembler packs ranked passages into a token-budgeted prompt context.
package assembler

import (
	"github.com/lexforge/lexrag/internal/faults"
	"github.com/lexforge/lexrag/internal/models"
)

const componentName = "context_assembler"

// Assembler builds a PromptContext from ranked passages under a token budget.
type Assembler struct {
	maxTokens int
}

// New returns an Assembler with the given default token budget.
func New(maxTokens int) *Assembler {
	return &Assembler{maxTokens: maxTokens}
}

// Assemble packs passages in rank order until the budget is exhausted.
// Passages are consumed strictly in order; the first passage that does not fit
// stops packing, so a cheap later passage never jumps an expensive earlier one
// and the context stays deterministic for a given ranking.
//
// If the top-ranked passage alone exceeds the budget it is truncated to fit
// and its chunk id is recorded in Truncated, so the caller gets at least one
// passage when retrieval produced any and the budget admits a single word.
//
// Consecutive passages with the same source citation are collapsed to the
// higher-ranked one. budgetOverride <= 0 keeps the configured default.
func (a *Assembler) Assemble(passages []models.RetrievedPassage, budgetOverride int) (*models.PromptContext, error) {
	budget := a.maxTokens
	if budgetOverride > 0 {
		budget = budgetOverride
	}
	if budget <= 0 {
		return nil, faults.Wrapf(componentName, faults.ErrInvalidInput, "token budget must be positive, got %d", budget)
	}

	pc := &models.PromptContext{TokenBudget: budget}

	deduped := dedupeAdjacent(passages)
	for i, p := range deduped {
		cost := models.EstimateTokens(p.Text)
		if pc.TokensUsed+cost > budget {
			if i == 0 {
				// A budget too small for a single word yields an empty context
				// rather than a context that overruns it.
				if p.Text = models.TruncateToTokens(p.Text, budget); p.Text != "" {
					pc.Passages = append(pc.Passages, p)
					pc.TokensUsed = models.EstimateTokens(p.Text)
					pc.Truncated = p.ChunkID
				}
			}
			break
		}
		pc.Passages = append(pc.Passages, p)
		pc.TokensUsed += cost
	}

	return pc, nil
}

// dedupeAdjacent drops a passage whose citation matches the previous kept one.
// Input is already in rank order, so the kept passage is the higher ranked.
func dedupeAdjacent(passages []models.RetrievedPassage) []models.RetrievedPassage {
	if len(passages) < 2 {
		return passages
	}
	out := make([]models.RetrievedPassage, 0, len(passages))
	for _, p := range passages {
		if len(out) > 0 && out[len(out)-1].SourceCitation == p.SourceCitation {
			continue
		}
		out = append(out, p)
	}
	return out
}
