package search

import (
	"context"
	"strings"

	"eagleeye/api/internal/store"
)

// LeadStore is the SQL search the fallback delegates to.
type LeadStore interface {
	SearchLeads(ctx context.Context, query string, limit int) ([]store.Lead, error)
}

// SQL searches leads with LIKE matching in the primary database.
type SQL struct {
	store LeadStore
}

func NewSQL(s LeadStore) *SQL {
	return &SQL{store: s}
}

func (s *SQL) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	offset := q.offset()
	// Over-fetch so the filters and offset below still fill a page.
	leads, err := s.store.SearchLeads(ctx, q.Text, offset+q.limit()*4)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]Result, 0, len(leads))
	for _, lead := range leads {
		record := RecordFromLead(lead)
		if q.matches(record) {
			matched = append(matched, record.result())
		}
	}
	total := len(matched)
	if offset >= len(matched) {
		return []Result{}, total, nil
	}
	matched = matched[offset:]
	if len(matched) > q.limit() {
		matched = matched[:q.limit()]
	}
	return matched, total, nil
}

// RecordFromLead converts a stored lead into its index document.
func RecordFromLead(lead store.Lead) LeadRecord {
	return LeadRecord{
		ID:           lead.ID,
		FirstName:    lead.FirstName,
		LastName:     lead.LastName,
		Email:        lead.Email,
		Phone:        lead.Phone,
		Neighborhood: lead.Neighborhood,
		City:         lead.City,
		State:        lead.State,
		Source:       lead.Source,
		Status:       lead.Status,
		Notes:        lead.Notes,
	}
}

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
