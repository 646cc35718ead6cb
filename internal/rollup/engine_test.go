package rollup

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"eagleeye/api/internal/store"
)

type fakeStore struct {
	mu        sync.Mutex
	leads     []store.Lead
	campaigns []store.Campaign
	rows      map[store.NeighborhoodKey]store.NeighborhoodPerformance
	counters  map[string]CampaignCounters
	calls     []string

	leadsErr     error
	campaignsErr error
	upsertErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:     map[store.NeighborhoodKey]store.NeighborhoodPerformance{},
		counters: map[string]CampaignCounters{},
	}
}

func (f *fakeStore) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeStore) ListLeadsByKey(ctx context.Context, key store.NeighborhoodKey) ([]store.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("leads")
	if f.leadsErr != nil {
		return nil, f.leadsErr
	}
	var out []store.Lead
	for _, l := range f.leads {
		if l.Key() == key {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCampaignsTargeting(ctx context.Context, neighborhood string) ([]store.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("campaigns")
	if f.campaignsErr != nil {
		return nil, f.campaignsErr
	}
	var out []store.Campaign
	for _, c := range f.campaigns {
		if c.Targets(neighborhood) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertNeighborhoodPerformance(ctx context.Context, item store.NeighborhoodPerformance) (store.NeighborhoodPerformance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upsert")
	if f.upsertErr != nil {
		return store.NeighborhoodPerformance{}, f.upsertErr
	}
	f.rows[item.Key()] = item
	return item, nil
}

func (f *fakeStore) ListPerformanceKeys(ctx context.Context, neighborhoods []string) ([]store.NeighborhoodKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []store.NeighborhoodKey
	for key := range f.rows {
		for _, name := range neighborhoods {
			if key.Neighborhood == name {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (f *fakeStore) ListLeadsByCampaign(ctx context.Context, campaignID string) ([]store.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Lead
	for _, l := range f.leads {
		if l.CampaignID != nil && *l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateCampaignCounters(ctx context.Context, campaignID string, leads, conversions int, revenue float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[campaignID] = CampaignCounters{Leads: leads, Conversions: conversions, Revenue: revenue}
	return nil
}

func (f *fakeStore) row(key store.NeighborhoodKey) (store.NeighborhoodPerformance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[key]
	return row, ok
}

type recordingObserver struct {
	mu   sync.Mutex
	runs map[string]int
	errs int
}

func (r *recordingObserver) ObserveRollup(kind string, err error, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[string]int{}
	}
	r.runs[kind]++
	if err != nil {
		r.errs++
	}
}

var medlock = store.NeighborhoodKey{Neighborhood: "Medlock Bridge", City: "Johns Creek", State: "GA"}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestRecomputeWritesRowForKey(t *testing.T) {
	fs := newFakeStore()
	fs.leads = []store.Lead{
		lead(store.LeadStatusNew, nil),
		lead(store.LeadStatusContacted, nil),
		lead(store.LeadStatusWon, value(10000)),
		{Neighborhood: "Medlock Bridge", City: "Duluth", State: "GA", Status: store.LeadStatusWon, ActualValue: value(99999)},
	}
	fs.campaigns = []store.Campaign{
		{ID: "cmp_1", Spent: 300, TargetArea: []string{"Medlock Bridge"}},
		{ID: "cmp_2", Spent: 999, TargetArea: []string{"Windward"}},
	}
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	observer := &recordingObserver{}
	engine := NewEngine(fs, "GA", WithClock(fixedClock(now)), WithObserver(observer))

	row, ok, err := engine.Recompute(context.Background(), medlock)
	if err != nil || !ok {
		t.Fatalf("Recompute() = ok %v, err %v", ok, err)
	}
	if row.TotalLeads != 3 || row.TotalCampaigns != 1 || !row.LastUpdated.Equal(now) {
		t.Fatalf("unexpected row: %+v", row)
	}
	approx(t, "avgCostPerLead", row.AvgCostPerLead, 100)
	approx(t, "roi", row.ROI, 10000.0/300.0)
	if observer.runs["neighborhood"] != 1 || observer.errs != 0 {
		t.Fatalf("unexpected observations: %+v", observer)
	}
}

func TestRecomputeDefaultsState(t *testing.T) {
	fs := newFakeStore()
	fs.leads = []store.Lead{lead(store.LeadStatusNew, nil)}
	engine := NewEngine(fs, "GA")

	if _, ok, err := engine.Recompute(context.Background(), store.NeighborhoodKey{Neighborhood: "Medlock Bridge", City: "Johns Creek"}); err != nil || !ok {
		t.Fatalf("Recompute() = ok %v, err %v", ok, err)
	}
	if _, found := fs.row(medlock); !found {
		t.Fatal("expected row stored under state GA")
	}
}

func TestRecomputeSkipsEmptyNeighborhoodOrCity(t *testing.T) {
	fs := newFakeStore()
	engine := NewEngine(fs, "GA")

	for _, key := range []store.NeighborhoodKey{
		{City: "Johns Creek", State: "GA"},
		{Neighborhood: "Medlock Bridge", State: "GA"},
	} {
		if _, ok, err := engine.Recompute(context.Background(), key); ok || err != nil {
			t.Fatalf("Recompute(%+v) = ok %v, err %v", key, ok, err)
		}
	}
	if len(fs.calls) != 0 || len(fs.rows) != 0 {
		t.Fatalf("expected no store access, got calls=%v rows=%d", fs.calls, len(fs.rows))
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	fs.leads = []store.Lead{lead(store.LeadStatusWon, value(4000)), lead(store.LeadStatusLost, nil)}
	fs.campaigns = []store.Campaign{{Spent: 800, TargetArea: []string{"Medlock Bridge"}}}

	tick := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	engine := NewEngine(fs, "GA", WithClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}))

	first, _, err := engine.Recompute(context.Background(), medlock)
	if err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	second, _, err := engine.Recompute(context.Background(), medlock)
	if err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	if !second.LastUpdated.After(first.LastUpdated) {
		t.Fatalf("expected lastUpdated to advance: %v -> %v", first.LastUpdated, second.LastUpdated)
	}
	first.LastUpdated, second.LastUpdated = time.Time{}, time.Time{}
	if first != second {
		t.Fatalf("derived fields changed between runs:\n%+v\n%+v", first, second)
	}
	if len(fs.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(fs.rows))
	}
}

func TestRecomputeFailureKeepsPreviousRow(t *testing.T) {
	previous := store.NeighborhoodPerformance{Neighborhood: medlock.Neighborhood, City: medlock.City, State: medlock.State, TotalLeads: 7}

	cases := []struct {
		name    string
		arrange func(*fakeStore)
		calls   int
	}{
		{name: "lead query", arrange: func(f *fakeStore) { f.leadsErr = errors.New("db down") }, calls: 1},
		{name: "campaign query", arrange: func(f *fakeStore) { f.campaignsErr = errors.New("db down") }, calls: 2},
		{name: "upsert", arrange: func(f *fakeStore) { f.upsertErr = errors.New("db down") }, calls: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := newFakeStore()
			fs.rows[medlock] = previous
			fs.leads = []store.Lead{lead(store.LeadStatusNew, nil)}
			tc.arrange(fs)
			observer := &recordingObserver{}
			engine := NewEngine(fs, "GA", WithObserver(observer))

			_, ok, err := engine.Recompute(context.Background(), medlock)
			if err == nil || ok {
				t.Fatalf("expected failure, got ok=%v err=%v", ok, err)
			}
			if len(fs.calls) != tc.calls {
				t.Fatalf("calls = %v, want %d", fs.calls, tc.calls)
			}
			if row, _ := fs.row(medlock); row != previous {
				t.Fatalf("previous row overwritten: %+v", row)
			}
			if observer.errs != 1 {
				t.Fatalf("expected one failed observation, got %d", observer.errs)
			}
		})
	}
}

func TestRecomputeNeighborhoodsOnlyTouchesExistingRows(t *testing.T) {
	fs := newFakeStore()
	fs.rows[medlock] = store.NeighborhoodPerformance{Neighborhood: medlock.Neighborhood, City: medlock.City, State: medlock.State}
	fs.campaigns = []store.Campaign{{Spent: 250, TargetArea: []string{"Medlock Bridge", "Seven Oaks"}}}
	engine := NewEngine(fs, "GA")

	refreshed, err := engine.RecomputeNeighborhoods(context.Background(), []string{"Seven Oaks", "Medlock Bridge", "", "Medlock Bridge"})
	if err != nil {
		t.Fatalf("RecomputeNeighborhoods() error = %v", err)
	}
	if refreshed != 1 || len(fs.rows) != 1 {
		t.Fatalf("refreshed=%d rows=%d, want 1/1", refreshed, len(fs.rows))
	}
	row, _ := fs.row(medlock)
	approx(t, "totalSpent", row.TotalSpent, 250)
}

func TestRecomputeCampaignCountsLeadRecords(t *testing.T) {
	fs := newFakeStore()
	id := "cmp_1"
	fs.leads = []store.Lead{
		{ID: "a", CampaignID: &id, Status: store.LeadStatusWon, ActualValue: value(3000)},
		{ID: "b", CampaignID: &id, Status: store.LeadStatusNew},
		{ID: "c", Status: store.LeadStatusWon, ActualValue: value(500)},
	}
	engine := NewEngine(fs, "GA")
	if err := engine.RecomputeCampaign(context.Background(), id); err != nil {
		t.Fatalf("RecomputeCampaign() error = %v", err)
	}
	got := fs.counters[id]
	if got.Leads != 2 || got.Conversions != 1 || got.Revenue != 3000 {
		t.Fatalf("unexpected counters: %+v", got)
	}
}

func TestEngineAgainstSQLiteStore(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenSQLite(ctx, "sqlite://"+filepath.Join(t.TempDir(), "rollup.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	s := store.NewSQLiteStore(db)
	if err := s.CreateSchema(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	if _, err := s.InsertCampaign(ctx, store.Campaign{
		ID: "cmp_nd", Name: "Nextdoor", Platform: "NEXTDOOR", Spent: 300, Status: store.CampaignActive,
		TargetArea: []string{"Medlock Bridge", "Seven Oaks"}, StartDate: time.Now(),
	}); err != nil {
		t.Fatalf("insert campaign: %v", err)
	}
	for i, status := range []string{store.LeadStatusNew, store.LeadStatusContacted, store.LeadStatusWon} {
		l := lead(status, nil)
		l.ID = []string{"lead_a", "lead_b", "lead_c"}[i]
		l.Priority = "MEDIUM"
		if status == store.LeadStatusWon {
			l.ActualValue = value(10000)
		}
		if _, err := s.InsertLead(ctx, l); err != nil {
			t.Fatalf("insert lead: %v", err)
		}
	}

	engine := NewEngine(s, "GA")
	if _, _, err := engine.Recompute(ctx, medlock); err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	row, err := s.GetNeighborhoodPerformance(ctx, medlock)
	if err != nil {
		t.Fatalf("get performance: %v", err)
	}
	if row.TotalLeads != 3 || row.TotalCampaigns != 1 {
		t.Fatalf("unexpected row: %+v", row)
	}
	approx(t, "avgCostPerLead", row.AvgCostPerLead, 100)
	approx(t, "conversionRate", row.ConversionRate, 100.0/3.0)
	approx(t, "roi", row.ROI, 10000.0/300.0)
}
