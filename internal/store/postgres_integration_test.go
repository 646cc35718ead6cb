package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func openPostgresTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func TestMigrationsRoundTripPostgres(t *testing.T) {
	s := openPostgresTestStore(t)
	ctx := context.Background()

	if err := RollbackMigrations(ctx, s.DB(), migrationsDir); err != nil {
		t.Fatalf("rollback migrations: %v", err)
	}
	if err := ApplyMigrations(ctx, s.DB(), migrationsDir); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}
	// Second apply is a no-op.
	if err := ApplyMigrations(ctx, s.DB(), migrationsDir); err != nil {
		t.Fatalf("apply migrations twice: %v", err)
	}
}

func TestPostgresTargetAreaAndUpsert(t *testing.T) {
	s := openPostgresTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertCampaign(ctx, Campaign{
		ID: "cmp_1", Name: "Nextdoor spring", Platform: "NEXTDOOR", Spent: 300, Status: CampaignActive,
		TargetArea: []string{"Medlock Bridge", "Seven Oaks"}, StartDate: time.Now(),
	}); err != nil {
		t.Fatalf("insert campaign: %v", err)
	}
	campaigns, err := s.ListCampaignsTargeting(ctx, "Seven Oaks")
	if err != nil {
		t.Fatalf("list targeting: %v", err)
	}
	if len(campaigns) != 1 || len(campaigns[0].TargetArea) != 2 {
		t.Fatalf("unexpected campaigns: %+v", campaigns)
	}

	_, err = s.InsertLead(ctx, Lead{ID: "lead_1", CampaignID: strPtr("cmp_missing"), State: "GA", Status: LeadStatusNew, Priority: "MEDIUM"})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}

	key := NeighborhoodKey{Neighborhood: "Medlock Bridge", City: "Johns Creek", State: "GA"}
	for _, leads := range []int{1, 3} {
		if _, err := s.UpsertNeighborhoodPerformance(ctx, NeighborhoodPerformance{
			Neighborhood: key.Neighborhood, City: key.City, State: key.State,
			TotalLeads: leads, LastUpdated: time.Now(),
		}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	row, err := s.GetNeighborhoodPerformance(ctx, key)
	if err != nil {
		t.Fatalf("get performance: %v", err)
	}
	if row.TotalLeads != 3 {
		t.Fatalf("expected last write to win, got %d", row.TotalLeads)
	}
}
