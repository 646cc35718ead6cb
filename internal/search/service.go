package search

import (
	"context"
	"log"

	"eagleeye/api/internal/store"
)

// Service is the facade that tries Meilisearch first and falls back to SQL.
type Service struct {
	meili *Meili
	sql   *SQL
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, sql *SQL) *Service {
	return &Service{meili: meili, sql: sql}
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: "meilisearch"}
		}
		log.Printf("search: meilisearch error, falling back to sql: %v", err)
	}

	results, total, err := s.sql.Search(ctx, q)
	if err != nil {
		log.Printf("search: sql error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text, Engine: "sql"}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: "sql"}
}

// IndexLead indexes a lead (fire-and-forget to Meilisearch).
func (s *Service) IndexLead(lead store.Lead) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	record := RecordFromLead(lead)
	go func() {
		if err := s.meili.IndexLeads([]LeadRecord{record}); err != nil {
			log.Printf("search: index lead %s: %v", record.ID, err)
		}
	}()
}

// Reindex pushes every lead to Meilisearch. Called during bootstrap.
func (s *Service) Reindex(leads []store.Lead) {
	if s.meili == nil || !s.meili.Healthy() || len(leads) == 0 {
		return
	}
	records := make([]LeadRecord, 0, len(leads))
	for _, lead := range leads {
		records = append(records, RecordFromLead(lead))
	}
	if err := s.meili.IndexLeads(records); err != nil {
		log.Printf("search: reindex leads: %v", err)
	}
}

func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
