package rollup

import (
	"context"
	"testing"

	"eagleeye/api/internal/store"
)

func TestLeadCreatedRecomputesNeighborhoodAndCampaign(t *testing.T) {
	fs := newFakeStore()
	id := "cmp_1"
	created := lead(store.LeadStatusNew, nil)
	created.CampaignID = &id
	fs.leads = []store.Lead{created}
	hook := NewHook(NewEngine(fs, "GA"), false)

	hook.LeadCreated(context.Background(), created)

	row, ok := fs.row(medlock)
	if !ok || row.TotalLeads != 1 {
		t.Fatalf("expected row with one lead, got %+v (found=%v)", row, ok)
	}
	if fs.counters[id].Leads != 1 {
		t.Fatalf("expected campaign counters, got %+v", fs.counters[id])
	}
}

func TestLeadCreatedWithoutNeighborhoodIsNoop(t *testing.T) {
	fs := newFakeStore()
	hook := NewHook(NewEngine(fs, "GA"), false)

	hook.LeadCreated(context.Background(), store.Lead{City: "Johns Creek", State: "GA", Status: store.LeadStatusNew})
	hook.LeadCreated(context.Background(), store.Lead{Neighborhood: "Windward", State: "GA", Status: store.LeadStatusNew})

	if len(fs.rows) != 0 || len(fs.calls) != 0 {
		t.Fatalf("expected no recompute, rows=%d calls=%v", len(fs.rows), fs.calls)
	}
}

func TestLeadUpdatedTriggers(t *testing.T) {
	cases := []struct {
		name    string
		before  store.Lead
		after   store.Lead
		trigger bool
	}{
		{name: "won with value", before: lead(store.LeadStatusQuoteSent, nil), after: lead(store.LeadStatusWon, value(8000)), trigger: true},
		{name: "won without value", before: lead(store.LeadStatusQuoteSent, nil), after: lead(store.LeadStatusWon, nil), trigger: false},
		{name: "other transition", before: lead(store.LeadStatusNew, nil), after: lead(store.LeadStatusContacted, nil), trigger: false},
		{name: "won value changed", before: lead(store.LeadStatusWon, value(8000)), after: lead(store.LeadStatusWon, value(9000)), trigger: true},
		{name: "won unchanged", before: lead(store.LeadStatusWon, value(8000)), after: lead(store.LeadStatusWon, value(8000)), trigger: false},
		{name: "won reverted", before: lead(store.LeadStatusWon, value(8000)), after: lead(store.LeadStatusLost, value(8000)), trigger: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := newFakeStore()
			fs.leads = []store.Lead{tc.after}
			hook := NewHook(NewEngine(fs, "GA"), false)

			hook.LeadUpdated(context.Background(), tc.before, tc.after)

			if _, ok := fs.row(medlock); ok != tc.trigger {
				t.Fatalf("recompute happened = %v, want %v", ok, tc.trigger)
			}
		})
	}
}

func TestLeadUpdatedRecountsOldAndNewCampaign(t *testing.T) {
	fs := newFakeStore()
	oldID, newID := "cmp_old", "cmp_new"
	before := lead(store.LeadStatusNew, nil)
	before.CampaignID = &oldID
	after := before
	after.CampaignID = &newID
	fs.leads = []store.Lead{after}
	fs.counters[oldID] = CampaignCounters{Leads: 1}
	hook := NewHook(NewEngine(fs, "GA"), false)

	hook.LeadUpdated(context.Background(), before, after)

	if fs.counters[oldID].Leads != 0 || fs.counters[newID].Leads != 1 {
		t.Fatalf("unexpected counters: %+v", fs.counters)
	}
}

func TestCampaignChangedRefreshesOldAndNewTargets(t *testing.T) {
	fs := newFakeStore()
	windward := store.NeighborhoodKey{Neighborhood: "Windward", City: "Alpharetta", State: "GA"}
	fs.rows[medlock] = store.NeighborhoodPerformance{Neighborhood: medlock.Neighborhood, City: medlock.City, State: medlock.State, TotalSpent: 300, TotalCampaigns: 1}
	fs.rows[windward] = store.NeighborhoodPerformance{Neighborhood: windward.Neighborhood, City: windward.City, State: windward.State}

	before := store.Campaign{ID: "cmp_1", Spent: 300, TargetArea: []string{"Medlock Bridge"}}
	after := store.Campaign{ID: "cmp_1", Spent: 300, TargetArea: []string{"Windward"}}
	fs.campaigns = []store.Campaign{after}
	hook := NewHook(NewEngine(fs, "GA"), false)

	hook.CampaignChanged(context.Background(), &before, &after)

	old, _ := fs.row(medlock)
	moved, _ := fs.row(windward)
	if old.TotalCampaigns != 0 || old.TotalSpent != 0 {
		t.Fatalf("old target not refreshed: %+v", old)
	}
	if moved.TotalCampaigns != 1 || moved.TotalSpent != 300 {
		t.Fatalf("new target not refreshed: %+v", moved)
	}
}

func TestCampaignChangedIgnoresUnrelatedEdits(t *testing.T) {
	fs := newFakeStore()
	fs.rows[medlock] = store.NeighborhoodPerformance{Neighborhood: medlock.Neighborhood, City: medlock.City, State: medlock.State}
	hook := NewHook(NewEngine(fs, "GA"), false)

	before := store.Campaign{Name: "Spring", Spent: 100, TargetArea: []string{"Medlock Bridge", "Seven Oaks"}}
	after := store.Campaign{Name: "Spring push", Spent: 100, TargetArea: []string{"Seven Oaks", "Medlock Bridge"}}
	hook.CampaignChanged(context.Background(), &before, &after)

	if len(fs.calls) != 0 {
		t.Fatalf("expected no recompute, got %v", fs.calls)
	}
}

func TestAsyncHookDetachesFromRequestContext(t *testing.T) {
	fs := newFakeStore()
	fs.leads = []store.Lead{lead(store.LeadStatusNew, nil)}
	hook := NewHook(NewEngine(fs, "GA"), true)

	ctx, cancel := context.WithCancel(context.Background())
	hook.LeadCreated(ctx, fs.leads[0])
	cancel()
	hook.Wait()

	if _, ok := fs.row(medlock); !ok {
		t.Fatal("expected detached recompute to finish")
	}
}
