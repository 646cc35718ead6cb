// Package seed loads demo campaigns and leads from a YAML file.
package seed

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"eagleeye/api/internal/store"
	"eagleeye/api/internal/util"
	"gopkg.in/yaml.v3"
)

// File is the on-disk seed document.
type File struct {
	Campaigns []Campaign `yaml:"campaigns"`
	Leads     []Lead     `yaml:"leads"`
}

type Campaign struct {
	Ref          string   `yaml:"ref"`
	Name         string   `yaml:"name"`
	Platform     string   `yaml:"platform"`
	CampaignType string   `yaml:"type"`
	Budget       float64  `yaml:"budget"`
	Spent        float64  `yaml:"spent"`
	TargetArea   []string `yaml:"targetArea"`
	Status       string   `yaml:"status"`
	StartDate    string   `yaml:"startDate"`
}

type Lead struct {
	FirstName      string   `yaml:"firstName"`
	LastName       string   `yaml:"lastName"`
	Email          string   `yaml:"email"`
	Phone          string   `yaml:"phone"`
	Neighborhood   string   `yaml:"neighborhood"`
	City           string   `yaml:"city"`
	State          string   `yaml:"state"`
	Source         string   `yaml:"source"`
	Campaign       string   `yaml:"campaign"`
	Status         string   `yaml:"status"`
	EstimatedValue *float64 `yaml:"estimatedValue"`
	ActualValue    *float64 `yaml:"actualValue"`
}

// Store is the write surface the loader needs.
type Store interface {
	CountLeads(ctx context.Context) (int, error)
	InsertCampaign(ctx context.Context, item store.Campaign) (store.Campaign, error)
	InsertLead(ctx context.Context, item store.Lead) (store.Lead, error)
}

// Hooks receives the inserted rows so rollups stay current.
type Hooks interface {
	CampaignChanged(ctx context.Context, before, after *store.Campaign)
	LeadCreated(ctx context.Context, lead store.Lead)
}

var (
	platforms = set("NEXTDOOR", "GOOGLE_LSA", "GOOGLE_ADS", "FACEBOOK", "INSTAGRAM", "ANGI", "REFERRAL", "ORGANIC")
	sources   = set("NEXTDOOR", "GOOGLE_LSA", "GOOGLE_ADS", "FACEBOOK", "INSTAGRAM", "ANGI", "REFERRAL", "ORGANIC", "WEBSITE", "OTHER")

	campaignStatuses = set(store.CampaignDraft, store.CampaignActive, store.CampaignPaused, store.CampaignCompleted)
	leadStatuses     = set(store.LeadStatusNew, store.LeadStatusContacted, store.LeadStatusQualified,
		store.LeadStatusQuoteSent, store.LeadStatusWon, store.LeadStatusLost)
)

// Parse decodes a seed document. Blank enum fields are left for Load to
// default; anything else must be a known value.
func Parse(data []byte) (File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("decode seed: %w", err)
	}
	for i, c := range file.Campaigns {
		if c.Ref == "" || c.Name == "" {
			return File{}, fmt.Errorf("campaign %d: ref and name are required", i)
		}
		if !allowed(platforms, c.Platform) {
			return File{}, fmt.Errorf("campaign %s: unknown platform %q", c.Ref, c.Platform)
		}
		if !allowed(campaignStatuses, c.Status) {
			return File{}, fmt.Errorf("campaign %s: unknown status %q", c.Ref, c.Status)
		}
	}
	for i, l := range file.Leads {
		if !allowed(sources, l.Source) {
			return File{}, fmt.Errorf("lead %d: unknown source %q", i, l.Source)
		}
		if !allowed(leadStatuses, l.Status) {
			return File{}, fmt.Errorf("lead %d: unknown status %q", i, l.Status)
		}
	}
	return file, nil
}

func set(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func allowed(values map[string]struct{}, value string) bool {
	if value == "" {
		return true
	}
	_, ok := values[value]
	return ok
}

// LoadFile reads path and loads it with Load.
func LoadFile(ctx context.Context, path string, s Store, hooks Hooks, defaultState string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read seed %s: %w", path, err)
	}
	file, err := Parse(data)
	if err != nil {
		return false, err
	}
	return Load(ctx, file, s, hooks, defaultState)
}

// Load inserts the seed rows into an empty lead table. It reports false
// without writing anything when leads already exist.
func Load(ctx context.Context, file File, s Store, hooks Hooks, defaultState string) (bool, error) {
	count, err := s.CountLeads(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	refs := make(map[string]string, len(file.Campaigns))
	for _, c := range file.Campaigns {
		start := time.Now().UTC()
		if c.StartDate != "" {
			start, err = time.Parse("2006-01-02", c.StartDate)
			if err != nil {
				return false, fmt.Errorf("campaign %s start date: %w", c.Ref, err)
			}
		}
		saved, err := s.InsertCampaign(ctx, store.Campaign{
			ID:           util.NewID("cmp"),
			Name:         c.Name,
			Platform:     orDefault(c.Platform, "NEXTDOOR"),
			CampaignType: orDefault(c.CampaignType, "AWARENESS"),
			Budget:       c.Budget,
			Spent:        c.Spent,
			TargetArea:   c.TargetArea,
			Status:       orDefault(c.Status, store.CampaignActive),
			StartDate:    start,
		})
		if err != nil {
			return false, fmt.Errorf("seed campaign %s: %w", c.Ref, err)
		}
		refs[c.Ref] = saved.ID
		if hooks != nil {
			hooks.CampaignChanged(ctx, nil, &saved)
		}
	}

	for i, l := range file.Leads {
		lead := store.Lead{
			ID:             util.NewID("lead"),
			FirstName:      l.FirstName,
			LastName:       l.LastName,
			Email:          l.Email,
			Phone:          l.Phone,
			Neighborhood:   l.Neighborhood,
			City:           l.City,
			State:          orDefault(l.State, defaultState),
			Source:         orDefault(l.Source, "NEXTDOOR"),
			Status:         orDefault(l.Status, store.LeadStatusNew),
			Priority:       "MEDIUM",
			EstimatedValue: l.EstimatedValue,
			ActualValue:    l.ActualValue,
		}
		if l.Campaign != "" {
			id, ok := refs[l.Campaign]
			if !ok {
				return false, fmt.Errorf("lead %d: unknown campaign ref %q", i, l.Campaign)
			}
			lead.CampaignID = &id
		}
		saved, err := s.InsertLead(ctx, lead)
		if err != nil {
			return false, fmt.Errorf("seed lead %d: %w", i, err)
		}
		if hooks != nil {
			hooks.LeadCreated(ctx, saved)
		}
	}

	log.Printf("seed: loaded %d campaigns and %d leads", len(file.Campaigns), len(file.Leads))
	return true, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
