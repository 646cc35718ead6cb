package rollup

import (
	"context"
	"slices"
	"sync"

	"eagleeye/api/internal/store"
)

// Hook turns lead and campaign writes into recomputes. Failures are logged by
// the engine and never returned to the caller that performed the write.
type Hook struct {
	engine *Engine
	async  bool
	wg     sync.WaitGroup
}

// NewHook returns a hook over engine. With async set, recomputes run on
// their own goroutine detached from the request context.
func NewHook(engine *Engine, async bool) *Hook {
	return &Hook{engine: engine, async: async}
}

// Engine returns the engine the hook drives.
func (h *Hook) Engine() *Engine {
	return h.engine
}

// Wait blocks until detached recomputes have finished.
func (h *Hook) Wait() {
	h.wg.Wait()
}

func (h *Hook) run(ctx context.Context, fn func(ctx context.Context)) {
	if !h.async {
		fn(ctx)
		return
	}
	// The request context is cancelled once the response is written.
	detached := context.WithoutCancel(ctx)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn(detached)
	}()
}

// LeadCreated recomputes the lead's neighborhood when it has one and the
// counters of its campaign.
func (h *Hook) LeadCreated(ctx context.Context, lead store.Lead) {
	h.run(ctx, func(ctx context.Context) {
		if lead.Neighborhood != "" && lead.City != "" {
			_, _, _ = h.engine.Recompute(ctx, lead.Key())
		}
		if lead.CampaignID != nil {
			_ = h.engine.RecomputeCampaign(ctx, *lead.CampaignID)
		}
	})
}

// LeadUpdated compares the stored lead before and after an update.
func (h *Hook) LeadUpdated(ctx context.Context, before, after store.Lead) {
	neighborhood := wonChanged(before, after)
	campaigns := campaignsToRecount(before, after)
	if !neighborhood && len(campaigns) == 0 {
		return
	}
	h.run(ctx, func(ctx context.Context) {
		if neighborhood {
			if before.Status == store.LeadStatusWon && before.Key() != after.Key() {
				_, _, _ = h.engine.Recompute(ctx, before.Key())
			}
			_, _, _ = h.engine.Recompute(ctx, after.Key())
		}
		for _, id := range campaigns {
			_ = h.engine.RecomputeCampaign(ctx, id)
		}
	})
}

// CampaignChanged refreshes the performance rows of every neighborhood the
// campaign targets before or after the change when its spend or target area
// moved. before is nil on create and after is nil on delete.
func (h *Hook) CampaignChanged(ctx context.Context, before, after *store.Campaign) {
	var names []string
	switch {
	case before == nil && after == nil:
		return
	case before == nil:
		names = after.TargetArea
	case after == nil:
		names = before.TargetArea
	default:
		if before.Spent == after.Spent && sameSet(before.TargetArea, after.TargetArea) {
			return
		}
		names = append(slices.Clone(before.TargetArea), after.TargetArea...)
	}
	if len(names) == 0 {
		return
	}
	h.run(ctx, func(ctx context.Context) {
		_, _ = h.engine.RecomputeNeighborhoods(ctx, names)
	})
}

// wonChanged reports whether the update moves WON revenue: a transition into
// WON with an actual value, a changed value while WON, or a WON lead leaving WON.
func wonChanged(before, after store.Lead) bool {
	wasWon := before.Status == store.LeadStatusWon
	isWon := after.Status == store.LeadStatusWon
	switch {
	case isWon && !wasWon:
		return after.ActualValue != nil
	case isWon && wasWon:
		return !sameValue(before.ActualValue, after.ActualValue) || before.Key() != after.Key()
	case wasWon && !isWon:
		return true
	}
	return false
}

func campaignsToRecount(before, after store.Lead) []string {
	var ids []string
	if before.CampaignID != nil {
		ids = append(ids, *before.CampaignID)
	}
	if after.CampaignID != nil && (before.CampaignID == nil || *before.CampaignID != *after.CampaignID) {
		ids = append(ids, *after.CampaignID)
	}
	if len(ids) == 0 {
		return nil
	}
	moved := !sameString(before.CampaignID, after.CampaignID)
	if !moved && before.Status == after.Status && sameValue(before.ActualValue, after.ActualValue) {
		return nil
	}
	return ids
}

func sameValue(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameSet(a, b []string) bool {
	left := uniqueNonEmpty(a)
	right := uniqueNonEmpty(b)
	return slices.Equal(left, right)
}
