package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, "sqlite://"+filepath.Join(t.TempDir(), "eagleeye.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQLiteStore(db)
	if err := s.CreateSchema(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return s
}

func strPtr(value string) *string { return &value }

func floatPtr(value float64) *float64 { return &value }

func TestSQLiteLeadRoundTripWithCampaignJoin(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteTestStore(t)

	campaign, err := s.InsertCampaign(ctx, Campaign{
		ID: "cmp_1", Name: "Spring Nextdoor", Platform: "NEXTDOOR", Budget: 500, Spent: 300,
		TargetArea: []string{"Medlock Bridge", "Seven Oaks"}, Status: CampaignActive,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("insert campaign: %v", err)
	}
	if len(campaign.TargetArea) != 2 || campaign.TargetArea[1] != "Seven Oaks" {
		t.Fatalf("unexpected target area: %#v", campaign.TargetArea)
	}

	lead, err := s.InsertLead(ctx, Lead{
		ID: "lead_1", FirstName: "Dana", LastName: "Reyes", Neighborhood: "Medlock Bridge",
		City: "Johns Creek", State: "GA", Source: "NEXTDOOR", CampaignID: strPtr(campaign.ID),
		Status: LeadStatusNew, Priority: "MEDIUM", EstimatedValue: floatPtr(12000),
	})
	if err != nil {
		t.Fatalf("insert lead: %v", err)
	}
	if lead.CampaignName != "Spring Nextdoor" || lead.CampaignPlatform != "NEXTDOOR" {
		t.Fatalf("expected joined campaign fields, got %+v", lead)
	}
	if lead.ActualValue != nil || lead.EstimatedValue == nil || *lead.EstimatedValue != 12000 {
		t.Fatalf("unexpected values: %+v", lead)
	}
	if lead.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	lead.Status = LeadStatusWon
	lead.ActualValue = floatPtr(10000)
	lead.ConversionDate = &now
	updated, err := s.UpdateLead(ctx, lead)
	if err != nil {
		t.Fatalf("update lead: %v", err)
	}
	if updated.Status != LeadStatusWon || *updated.ActualValue != 10000 || !updated.ConversionDate.Equal(now) {
		t.Fatalf("unexpected updated lead: %+v", updated)
	}

	byKey, err := s.ListLeadsByKey(ctx, NeighborhoodKey{Neighborhood: "Medlock Bridge", City: "Johns Creek", State: "GA"})
	if err != nil {
		t.Fatalf("list by key: %v", err)
	}
	if len(byKey) != 1 {
		t.Fatalf("expected 1 lead by key, got %d", len(byKey))
	}
	caseMismatch, err := s.ListLeadsByKey(ctx, NeighborhoodKey{Neighborhood: "medlock bridge", City: "Johns Creek", State: "GA"})
	if err != nil {
		t.Fatalf("list by key: %v", err)
	}
	if len(caseMismatch) != 0 {
		t.Fatalf("neighborhood match must be case-sensitive, got %d", len(caseMismatch))
	}
}

func TestSQLiteUpdateMissingLeadReturnsNoRows(t *testing.T) {
	s := newSQLiteTestStore(t)
	_, err := s.UpdateLead(context.Background(), Lead{ID: "missing", Status: LeadStatusNew})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSQLiteInsertLeadWithUnknownCampaignIsInvalidReference(t *testing.T) {
	s := newSQLiteTestStore(t)
	_, err := s.InsertLead(context.Background(), Lead{
		ID: "lead_x", Neighborhood: "Windward", City: "Alpharetta", State: "GA",
		CampaignID: strPtr("cmp_missing"), Status: LeadStatusNew, Priority: "MEDIUM",
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestSQLiteRejectsUnknownLeadStatus(t *testing.T) {
	s := newSQLiteTestStore(t)
	_, err := s.InsertLead(context.Background(), Lead{
		ID: "lead_bad", Neighborhood: "Windward", City: "Alpharetta", State: "GA",
		Status: "CLOSED", Priority: "MEDIUM",
	})
	if err == nil || errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected check constraint error, got %v", err)
	}
}

func TestSQLiteCampaignsTargetingUsesSetMembership(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteTestStore(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, c := range []Campaign{
		{ID: "cmp_a", Name: "A", Platform: "FACEBOOK", Spent: 100, TargetArea: []string{"Windward"}},
		{ID: "cmp_b", Name: "B", Platform: "GOOGLE_ADS", Spent: 50, TargetArea: []string{"Windward Lake", "Seven Oaks"}},
		{ID: "cmp_c", Name: "C", Platform: "ORGANIC"},
	} {
		c.Status = CampaignDraft
		c.StartDate = start
		if _, err := s.InsertCampaign(ctx, c); err != nil {
			t.Fatalf("insert campaign %s: %v", c.ID, err)
		}
	}

	got, err := s.ListCampaignsTargeting(ctx, "Windward")
	if err != nil {
		t.Fatalf("list targeting: %v", err)
	}
	if len(got) != 1 || got[0].ID != "cmp_a" {
		t.Fatalf("expected only exact member cmp_a, got %+v", got)
	}

	c, err := s.GetCampaign(ctx, "cmp_c")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if c.TargetArea == nil || len(c.TargetArea) != 0 {
		t.Fatalf("expected empty non-nil target area, got %#v", c.TargetArea)
	}
}

func TestSQLiteDeleteCampaignClearsLeadReference(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteTestStore(t)
	if _, err := s.InsertCampaign(ctx, Campaign{ID: "cmp_1", Name: "Angi", Platform: "ANGI", Status: CampaignActive, StartDate: time.Now()}); err != nil {
		t.Fatalf("insert campaign: %v", err)
	}
	if _, err := s.InsertLead(ctx, Lead{ID: "lead_1", CampaignID: strPtr("cmp_1"), Status: LeadStatusNew, Priority: "MEDIUM", State: "GA"}); err != nil {
		t.Fatalf("insert lead: %v", err)
	}

	if err := s.DeleteCampaign(ctx, "cmp_1"); err != nil {
		t.Fatalf("delete campaign: %v", err)
	}
	lead, err := s.GetLead(ctx, "lead_1")
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if lead.CampaignID != nil {
		t.Fatalf("expected cleared campaign reference, got %v", *lead.CampaignID)
	}
	if err := s.DeleteCampaign(ctx, "cmp_1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows on second delete, got %v", err)
	}
}

func TestSQLiteUpsertPerformanceOverwritesByKey(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteTestStore(t)
	first := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	row := NeighborhoodPerformance{
		Neighborhood: "Seven Oaks", City: "Johns Creek", State: "GA",
		TotalLeads: 1, TotalSpent: 100, AvgCostPerLead: 100, LastUpdated: first,
	}
	if _, err := s.UpsertNeighborhoodPerformance(ctx, row); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	row.TotalLeads = 4
	row.TotalRevenue = 800
	row.ROI = 8
	row.LastUpdated = first.Add(time.Hour)
	saved, err := s.UpsertNeighborhoodPerformance(ctx, row)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if saved.TotalLeads != 4 || saved.ROI != 8 || !saved.LastUpdated.Equal(first.Add(time.Hour)) {
		t.Fatalf("expected overwritten row, got %+v", saved)
	}

	if _, err := s.UpsertNeighborhoodPerformance(ctx, NeighborhoodPerformance{
		Neighborhood: "Windward", City: "Alpharetta", State: "GA", ROI: 12, LastUpdated: first,
	}); err != nil {
		t.Fatalf("upsert windward: %v", err)
	}

	rows, err := s.ListNeighborhoodPerformance(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].Neighborhood != "Windward" || rows[1].Neighborhood != "Seven Oaks" {
		t.Fatalf("expected rows sorted by roi desc, got %+v", rows)
	}

	keys, err := s.ListPerformanceKeys(ctx, []string{"Seven Oaks", "Nowhere"})
	if err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != row.Key() {
		t.Fatalf("unexpected keys: %+v", keys)
	}

	if _, err := s.GetNeighborhoodPerformance(ctx, NeighborhoodKey{Neighborhood: "Seven Oaks", City: "Johns Creek", State: "FL"}); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for other state, got %v", err)
	}
}

func TestSQLiteActiveBudgetPlanDeactivatesOthers(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteTestStore(t)
	if err := s.EnsureUser(ctx, User{ID: "usr_1", Email: "owner@example.com", Name: "Owner", PasswordHash: "x", Role: "admin"}); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.InsertBudgetPlan(ctx, BudgetPlan{ID: "bp_1", Name: "Starter", Tier: "STARTER", MonthlyBudget: 1000, Active: true, StartDate: start, UserID: strPtr("usr_1")}); err != nil {
		t.Fatalf("insert first plan: %v", err)
	}
	second, err := s.InsertBudgetPlan(ctx, BudgetPlan{ID: "bp_2", Name: "Growth", Tier: "GROWTH", MonthlyBudget: 2500, Active: true, StartDate: start, UserID: strPtr("usr_1")})
	if err != nil {
		t.Fatalf("insert second plan: %v", err)
	}
	if !second.Active {
		t.Fatal("expected new plan to be active")
	}

	plans, err := s.ListBudgetPlans(ctx, "usr_1")
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	active := 0
	for _, plan := range plans {
		if plan.Active {
			active++
			if plan.ID != "bp_2" {
				t.Fatalf("unexpected active plan %s", plan.ID)
			}
		}
	}
	if len(plans) != 2 || active != 1 {
		t.Fatalf("expected 2 plans with 1 active, got %d/%d", len(plans), active)
	}
}

func TestSQLiteSearchLeadsMatchesNameAndNeighborhood(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteTestStore(t)
	for _, lead := range []Lead{
		{ID: "lead_1", FirstName: "Dana", LastName: "Reyes", Neighborhood: "Medlock Bridge", City: "Johns Creek"},
		{ID: "lead_2", FirstName: "Sam", LastName: "Ortiz", Neighborhood: "Windward", City: "Alpharetta"},
	} {
		lead.State = "GA"
		lead.Status = LeadStatusNew
		lead.Priority = "MEDIUM"
		if _, err := s.InsertLead(ctx, lead); err != nil {
			t.Fatalf("insert lead: %v", err)
		}
	}

	got, err := s.SearchLeads(ctx, "dana reyes", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "lead_1" {
		t.Fatalf("unexpected search result: %+v", got)
	}
	got, err = s.SearchLeads(ctx, "windward", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "lead_2" {
		t.Fatalf("unexpected search result: %+v", got)
	}
}
