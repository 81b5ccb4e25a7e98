package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/medleyre/leasehound/internal/ai"
)

// Reformulator turns conversational follow-ups into standalone retrieval
// queries. Reformulation is best-effort: a rewrite failure degrades to the
// original utterance rather than failing the turn.
type Reformulator struct {
	generator ai.Generator
	logger    *slog.Logger
}

// NewReformulator creates a reformulator on top of the generator.
func NewReformulator(generator ai.Generator) *Reformulator {
	return &Reformulator{
		generator: generator,
		logger:    slog.Default().With("component", "reformulator"),
	}
}

// Reformulate returns the query to use for retrieval. With no history the
// utterance passes through untouched and no model call is made. degraded
// reports whether a rewrite was attempted and failed.
func (r *Reformulator) Reformulate(ctx context.Context, utterance string, history []ai.Exchange) (query string, degraded bool) {
	if len(history) == 0 {
		return utterance, false
	}

	rewritten, err := r.generator.RewriteQuery(ctx, utterance, history)
	if err != nil {
		r.logger.Warn("query rewrite failed, using original utterance",
			slog.String("utterance", utterance),
			slog.String("error", err.Error()))
		return utterance, true
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		r.logger.Warn("query rewrite returned empty, using original utterance",
			slog.String("utterance", utterance))
		return utterance, true
	}

	if rewritten != utterance {
		r.logger.Debug("query reformulated",
			slog.String("from", utterance),
			slog.String("to", rewritten))
	}

	return rewritten, false
}
