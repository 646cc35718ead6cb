package rollup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"eagleeye/api/internal/store"
)

// Store is the record access the engine needs.
type Store interface {
	ListLeadsByKey(ctx context.Context, key store.NeighborhoodKey) ([]store.Lead, error)
	ListCampaignsTargeting(ctx context.Context, neighborhood string) ([]store.Campaign, error)
	UpsertNeighborhoodPerformance(ctx context.Context, item store.NeighborhoodPerformance) (store.NeighborhoodPerformance, error)
	ListPerformanceKeys(ctx context.Context, neighborhoods []string) ([]store.NeighborhoodKey, error)
	ListLeadsByCampaign(ctx context.Context, campaignID string) ([]store.Lead, error)
	UpdateCampaignCounters(ctx context.Context, campaignID string, leads, conversions int, revenue float64) error
}

// Observer receives one call per recompute.
type Observer interface {
	ObserveRollup(kind string, err error, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveRollup(string, error, time.Duration) {}

// Engine recomputes neighborhood performance rows and campaign counters from
// the stored leads and campaigns.
type Engine struct {
	store        Store
	defaultState string
	now          func() time.Time
	observer     Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObserver reports every recompute to observer. A nil observer is ignored.
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// NewEngine returns an engine over s. An empty defaultState means GA.
func NewEngine(s Store, defaultState string, opts ...Option) *Engine {
	if defaultState == "" {
		defaultState = "GA"
	}
	e := &Engine{store: s, defaultState: defaultState, now: time.Now, observer: noopObserver{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultState is the state used when a lead or lookup omits one.
func (e *Engine) DefaultState() string {
	return e.defaultState
}

// Key fills in the default state.
func (e *Engine) Key(neighborhood, city, state string) store.NeighborhoodKey {
	if state == "" {
		state = e.defaultState
	}
	return store.NeighborhoodKey{Neighborhood: neighborhood, City: city, State: state}
}

// Recompute rebuilds and upserts the performance row for key. A key without
// neighborhood or city is skipped and reports ok=false. On error the stored
// row is left as it was.
func (e *Engine) Recompute(ctx context.Context, key store.NeighborhoodKey) (row store.NeighborhoodPerformance, ok bool, err error) {
	key = e.Key(key.Neighborhood, key.City, key.State)
	if key.Neighborhood == "" || key.City == "" {
		return store.NeighborhoodPerformance{}, false, nil
	}

	started := time.Now()
	row, err = e.recompute(ctx, key)
	e.observer.ObserveRollup("neighborhood", err, time.Since(started))
	if err != nil {
		log.Printf("rollup: recompute neighborhood=%q city=%q state=%q: %v", key.Neighborhood, key.City, key.State, err)
		return store.NeighborhoodPerformance{}, false, err
	}
	return row, true, nil
}

func (e *Engine) recompute(ctx context.Context, key store.NeighborhoodKey) (store.NeighborhoodPerformance, error) {
	leads, err := e.store.ListLeadsByKey(ctx, key)
	if err != nil {
		return store.NeighborhoodPerformance{}, fmt.Errorf("load leads: %w", err)
	}
	campaigns, err := e.store.ListCampaignsTargeting(ctx, key.Neighborhood)
	if err != nil {
		return store.NeighborhoodPerformance{}, fmt.Errorf("load campaigns: %w", err)
	}

	row := Compute(leads, campaigns).Row(key)
	row.LastUpdated = e.now().UTC()
	saved, err := e.store.UpsertNeighborhoodPerformance(ctx, row)
	if err != nil {
		return store.NeighborhoodPerformance{}, err
	}
	return saved, nil
}

// RecomputeNeighborhoods refreshes every existing performance row whose
// neighborhood is in names. Rows that were never created stay absent.
func (e *Engine) RecomputeNeighborhoods(ctx context.Context, names []string) (int, error) {
	names = uniqueNonEmpty(names)
	if len(names) == 0 {
		return 0, nil
	}
	keys, err := e.store.ListPerformanceKeys(ctx, names)
	if err != nil {
		log.Printf("rollup: list performance keys for %v: %v", names, err)
		return 0, err
	}

	var errs []error
	refreshed := 0
	for _, key := range keys {
		if _, ok, err := e.Recompute(ctx, key); err != nil {
			errs = append(errs, err)
		} else if ok {
			refreshed++
		}
	}
	return refreshed, errors.Join(errs...)
}

// RecomputeCampaign rewrites the campaign's leads, conversions and revenue
// counters from the leads that reference it.
func (e *Engine) RecomputeCampaign(ctx context.Context, campaignID string) error {
	if campaignID == "" {
		return nil
	}
	started := time.Now()
	err := e.recomputeCampaign(ctx, campaignID)
	e.observer.ObserveRollup("campaign", err, time.Since(started))
	if err != nil {
		log.Printf("rollup: recompute campaign=%s: %v", campaignID, err)
	}
	return err
}

func (e *Engine) recomputeCampaign(ctx context.Context, campaignID string) error {
	leads, err := e.store.ListLeadsByCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign leads: %w", err)
	}
	counters := CountCampaign(leads)
	return e.store.UpdateCampaignCounters(ctx, campaignID, counters.Leads, counters.Conversions, counters.Revenue)
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
