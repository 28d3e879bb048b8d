// Package rag composes retrieval, context assembly and generation into the
// ask operation, owning the retry and fallback policy.
package rag

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexforge/lexrag/internal/assembler"
	"github.com/lexforge/lexrag/internal/faults"
	"github.com/lexforge/lexrag/internal/generator"
	"github.com/lexforge/lexrag/internal/models"
)

// State is a request's position in the ask pipeline.
type State string

const (
	StateRetrieving   State = "RETRIEVING"
	StateAssembling   State = "ASSEMBLING"
	StateGenerating   State = "GENERATING"
	StateDone         State = "DONE"
	StateDegradedDone State = "DEGRADED_DONE"
	StateFailed       State = "FAILED"
)

// Degraded-answer reasons recorded on AnswerResult.
const (
	ReasonStaticFallback = "static_fallback"
	ReasonExtractive     = "extractive_fallback"
	ReasonModelKnowledge = "model_knowledge_only"
)

// Retriever is the slice of the retrieval component the orchestrator needs.
type Retriever interface {
	Retrieve(ctx context.Context, q *models.AskQuery) ([]models.RetrievedPassage, error)
}

// Orchestrator runs the per-request state machine. Each request is
// independent; the orchestrator itself holds no per-request state.
type Orchestrator struct {
	retriever Retriever
	assembler *assembler.Assembler
	generator generator.Generator

	// fallbackAnswer, when non-empty, turns a retrieval failure into a
	// degraded static answer instead of a hard failure.
	fallbackAnswer string

	log *zap.Logger
}

// New creates an Orchestrator. fallbackAnswer may be empty to disable the
// static-answer policy for retrieval failures.
func New(r Retriever, a *assembler.Assembler, g generator.Generator, fallbackAnswer string, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		retriever:      r,
		assembler:      a,
		generator:      g,
		fallbackAnswer: fallbackAnswer,
		log:            log,
	}
}

// Ask answers one query. The request walks RETRIEVING, ASSEMBLING and
// GENERATING strictly in order; terminal states are DONE, DEGRADED_DONE
// (an AnswerResult with Degraded set) and FAILED (a nil result and an error).
func (o *Orchestrator) Ask(ctx context.Context, q *models.AskQuery) (*models.AnswerResult, error) {
	requestID := uuid.NewString()
	log := o.log.With(zap.String("request_id", requestID))

	result := &models.AnswerResult{RequestID: requestID}

	log.Debug("state transition", zap.String("state", string(StateRetrieving)))
	retrieveStart := time.Now()
	passages, err := o.retriever.Retrieve(ctx, q)
	result.RetrievalLatency = time.Since(retrieveStart)
	if err != nil {
		// Only a genuine retrieval outage earns the static answer; caller
		// errors and load shedding keep their identity and surface.
		if errors.Is(err, faults.ErrRetrievalFailed) && o.fallbackAnswer != "" {
			log.Warn("retrieval failed, serving static fallback", zap.Error(err))
			return o.degraded(log, result, o.fallbackAnswer, nil, ReasonStaticFallback), nil
		}
		return nil, o.failed(log, err)
	}

	log.Debug("state transition", zap.String("state", string(StateAssembling)),
		zap.Int("passages", len(passages)))
	pc, err := o.assembler.Assemble(passages, q.Options.MaxContextTokens)
	if err != nil {
		return nil, o.failed(log, err)
	}
	if pc.Truncated != "" {
		log.Warn("top passage truncated to fit budget", zap.String("chunk_id", pc.Truncated))
	}

	log.Debug("state transition", zap.String("state", string(StateGenerating)),
		zap.Int("tokens_used", pc.TokensUsed))
	generateStart := time.Now()
	answer, err := o.generate(ctx, log, q.Query, pc)
	result.GenerationLatency = time.Since(generateStart)
	if err != nil {
		if !pc.Empty() {
			// Both generation attempts failed but we hold relevant statute
			// text; degrade to quoting the top passage rather than failing.
			top := pc.Passages[0]
			log.Warn("generation exhausted, serving extractive answer",
				zap.String("chunk_id", top.ChunkID), zap.Error(err))
			return o.degraded(log, result, top.Text, []string{top.ChunkID}, ReasonExtractive), nil
		}
		return nil, o.failed(log, err)
	}

	result.AnswerText = answer
	result.CitedChunkIDs = citedIDs(pc)
	if pc.Empty() {
		// Answer came from model knowledge alone.
		result.Degraded = true
		result.DegradedReason = ReasonModelKnowledge
		log.Info("request complete", zap.String("state", string(StateDegradedDone)),
			zap.String("reason", result.DegradedReason))
		return result, nil
	}
	log.Info("request complete", zap.String("state", string(StateDone)),
		zap.Int("cited", len(result.CitedChunkIDs)),
		zap.Duration("retrieval", result.RetrievalLatency),
		zap.Duration("generation", result.GenerationLatency))
	return result, nil
}

// generate calls the generator, retrying exactly once with identical inputs
// on timeout or provider error. An empty-context rejection is not retried.
func (o *Orchestrator) generate(ctx context.Context, log *zap.Logger, query string, pc *models.PromptContext) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		answer, err := o.generator.Generate(ctx, query, pc)
		if err == nil {
			return answer, nil
		}
		if errors.Is(err, faults.ErrEmptyContext) || errors.Is(err, faults.ErrInvalidInput) || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
		if attempt == 0 {
			log.Warn("generation failed, retrying once", zap.Error(err))
		}
	}
	return "", lastErr
}

func (o *Orchestrator) failed(log *zap.Logger, err error) error {
	log.Error("request failed", zap.String("state", string(StateFailed)),
		zap.String("component", faults.Component(err)), zap.Error(err))
	return err
}

func (o *Orchestrator) degraded(log *zap.Logger, result *models.AnswerResult, answer string, cited []string, reason string) *models.AnswerResult {
	result.AnswerText = answer
	result.CitedChunkIDs = cited
	result.Degraded = true
	result.DegradedReason = reason
	log.Info("request complete", zap.String("state", string(StateDegradedDone)),
		zap.String("reason", reason))
	return result
}

func citedIDs(pc *models.PromptContext) []string {
	ids := make([]string, len(pc.Passages))
	for i, p := range pc.Passages {
		ids[i] = p.ChunkID
	}
	return ids
}
