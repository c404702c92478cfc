package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
)

// runEnsemble invokes the fast and expert extraction agents with the same
// pages and packages both outcomes. In parallel mode the two calls run as
// independent units of work; one tier failing never cancels the other.
func runEnsemble(ctx context.Context, fast, expert ports.ExtractionAgent, pages []domain.PageImage, parallel bool) domain.EnsembleResult {
	var result domain.EnsembleResult

	if fast == nil && expert == nil {
		return result
	}
	if fast == nil {
		result.Expert, result.ExpertErr = expert.Extract(ctx, pages)
		return result
	}
	if expert == nil {
		result.Fast, result.FastErr = fast.Extract(ctx, pages)
		return result
	}

	if !parallel {
		result.Fast, result.FastErr = fast.Extract(ctx, pages)
		result.Expert, result.ExpertErr = expert.Extract(ctx, pages)
		return result
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Fast, result.FastErr = fast.Extract(ctx, pages)
	}()
	go func() {
		defer wg.Done()
		result.Expert, result.ExpertErr = expert.Extract(ctx, pages)
	}()
	wg.Wait()

	if result.FastErr != nil {
		slog.Warn("ensemble_tier_failed", "tier", "fast", "error", result.FastErr)
	}
	if result.ExpertErr != nil {
		slog.Warn("ensemble_tier_failed", "tier", "expert", "error", result.ExpertErr)
	}
	return result
}
