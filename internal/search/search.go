package search

// Result is a single lead hit returned to the caller.
type Result struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Source       string `json:"source"`
	Status       string `json:"status"`
	Snippet      string `json:"snippet,omitempty"`
}

// Query describes a lead search request. Empty filters match everything.
type Query struct {
	Text         string
	Source       string
	Status       string
	Neighborhood string
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Engine  string   `json:"engine"`
}

// LeadRecord is the data we index for a lead.
type LeadRecord struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Source       string `json:"source"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
}

func (r LeadRecord) result() Result {
	return Result{
		ID:           r.ID,
		Name:         joinName(r.FirstName, r.LastName),
		Email:        r.Email,
		Phone:        r.Phone,
		Neighborhood: r.Neighborhood,
		City:         r.City,
		State:        r.State,
		Source:       r.Source,
		Status:       r.Status,
	}
}

func (q Query) matches(r LeadRecord) bool {
	return (q.Source == "" || q.Source == r.Source) &&
		(q.Status == "" || q.Status == r.Status) &&
		(q.Neighborhood == "" || q.Neighborhood == r.Neighborhood)
}

func (q Query) limit() int {
	if q.Limit <= 0 || q.Limit > 100 {
		return 20
	}
	return q.Limit
}

func (q Query) offset() int {
	return max(q.Offset, 0)
}
