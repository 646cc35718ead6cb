package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"

	"eagleeye/api/internal/store"
)

type fakeLeadStore struct {
	leads []store.Lead
	err   error
	limit int
}

func (f *fakeLeadStore) SearchLeads(ctx context.Context, query string, limit int) ([]store.Lead, error) {
	f.limit = limit
	return f.leads, f.err
}

func sampleLeads() []store.Lead {
	return []store.Lead{
		{ID: "lead_1", FirstName: "Dana", LastName: "Reyes", Neighborhood: "Medlock Bridge", Source: "NEXTDOOR", Status: "NEW"},
		{ID: "lead_2", FirstName: "Dana", LastName: "Ortiz", Neighborhood: "Windward", Source: "FACEBOOK", Status: "WON"},
		{ID: "lead_3", FirstName: "Danielle", LastName: "Kim", Neighborhood: "Medlock Bridge", Source: "NEXTDOOR", Status: "WON"},
	}
}

func TestSQLSearchAppliesFiltersAndPaging(t *testing.T) {
	fake := &fakeLeadStore{leads: sampleLeads()}
	searcher := NewSQL(fake)

	results, total, err := searcher.Search(context.Background(), Query{Text: "dan", Source: "NEXTDOOR", Limit: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 2 || len(results) != 1 || results[0].ID != "lead_1" || results[0].Name != "Dana Reyes" {
		t.Fatalf("unexpected results total=%d %+v", total, results)
	}
	if fake.limit != 4 {
		t.Fatalf("store limit = %d, want 4", fake.limit)
	}

	results, _, err = searcher.Search(context.Background(), Query{Text: "dan", Source: "NEXTDOOR", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "lead_3" {
		t.Fatalf("unexpected second page: %+v", results)
	}
}

func TestSQLSearchBlankQueryReturnsNothing(t *testing.T) {
	fake := &fakeLeadStore{leads: sampleLeads()}
	results, total, err := NewSQL(fake).Search(context.Background(), Query{Text: "   "})
	if err != nil || total != 0 || len(results) != 0 {
		t.Fatalf("Search() = %v, %d, %v", results, total, err)
	}
}

func TestServiceFallsBackToSQL(t *testing.T) {
	svc := NewService(nil, NewSQL(&fakeLeadStore{leads: sampleLeads()}))
	resp := svc.Search(context.Background(), Query{Text: "dana", Status: "WON"})
	if resp.Engine != "sql" || resp.Total != 2 || resp.Query != "dana" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	broken := NewService(nil, NewSQL(&fakeLeadStore{err: errors.New("db down")}))
	resp = broken.Search(context.Background(), Query{Text: "dana"})
	if resp.Results == nil || len(resp.Results) != 0 || resp.Total != 0 {
		t.Fatalf("expected empty non-nil results on error, got %+v", resp)
	}

	// Indexing without Meilisearch is a no-op.
	svc.IndexLead(sampleLeads()[0])
	svc.Reindex(sampleLeads())
	svc.Close()
}

func TestLeadFilters(t *testing.T) {
	got := leadFilters(Query{Source: "GOOGLE_LSA", Neighborhood: "Seven Oaks"})
	want := []string{`source = "GOOGLE_LSA"`, `neighborhood = "Seven Oaks"`}
	if len(got) != len(want) {
		t.Fatalf("leadFilters() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("leadFilters() = %v, want %v", got, want)
		}
	}
	if filters := leadFilters(Query{}); len(filters) != 0 {
		t.Fatalf("expected no filters, got %v", filters)
	}
}

func TestHitToResult(t *testing.T) {
	raw := func(v any) json.RawMessage {
		b, _ := json.Marshal(v)
		return b
	}
	hit := meili.Hit{
		"id":           raw("lead_9"),
		"firstName":    raw("Avery"),
		"lastName":     raw("Stone"),
		"neighborhood": raw("Windward"),
		"source":       raw("ANGI"),
		"status":       raw("QUALIFIED"),
		"_formatted":   raw(map[string]any{"notes": " wants a <mark>deck</mark> ", "id": "lead_9"}),
	}
	r := hitToResult(hit)
	if r.ID != "lead_9" || r.Name != "Avery Stone" || r.Source != "ANGI" || r.Snippet != "wants a <mark>deck</mark>" {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestSQLSearchClampsNegativeOffset(t *testing.T) {
	fake := &fakeLeadStore{leads: sampleLeads()}
	searcher := NewSQL(fake)

	results, total, err := searcher.Search(context.Background(), Query{Text: "dan", Offset: -1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 3 || len(results) != 3 || results[0].ID != "lead_1" {
		t.Fatalf("unexpected results total=%d %+v", total, results)
	}
	if fake.limit != 80 {
		t.Fatalf("store limit = %d, want 80", fake.limit)
	}

	empty := NewSQL(&fakeLeadStore{})
	results, total, err = empty.Search(context.Background(), Query{Text: "nobody", Offset: -5})
	if err != nil || total != 0 || len(results) != 0 {
		t.Fatalf("Search() = %v, %d, %v", results, total, err)
	}
}

func TestRejectedOnlyMatchesClientErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "bad request", err: &meili.Error{StatusCode: 400}, want: true},
		{name: "wrapped bad request", err: fmt.Errorf("multi-search: %w", &meili.Error{StatusCode: 422}), want: true},
		{name: "server error", err: &meili.Error{StatusCode: 503}, want: false},
		{name: "transport", err: errors.New("dial tcp: connection refused"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rejected(tt.err); got != tt.want {
				t.Fatalf("rejected() = %v, want %v", got, tt.want)
			}
		})
	}
}
