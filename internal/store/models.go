package store

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidReference is returned when a write points at a row that does not exist.
var ErrInvalidReference = errors.New("invalid reference")

// ErrDuplicate is returned when a write collides with a unique column.
var ErrDuplicate = errors.New("duplicate")

const (
	LeadStatusNew       = "NEW"
	LeadStatusContacted = "CONTACTED"
	LeadStatusQualified = "QUALIFIED"
	LeadStatusQuoteSent = "QUOTE_SENT"
	LeadStatusWon       = "WON"
	LeadStatusLost      = "LOST"
)

const (
	CampaignDraft     = "DRAFT"
	CampaignActive    = "ACTIVE"
	CampaignPaused    = "PAUSED"
	CampaignCompleted = "COMPLETED"
)

const (
	ProjectLead       = "LEAD"
	ProjectPlanning   = "PLANNING"
	ProjectInProgress = "IN_PROGRESS"
	ProjectCompleted  = "COMPLETED"
	ProjectOnHold     = "ON_HOLD"
)

const (
	EstimateDraft    = "DRAFT"
	EstimateSent     = "SENT"
	EstimateApproved = "APPROVED"
	EstimateRejected = "REJECTED"
)

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Lead struct {
	ID                 string
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	Address            string
	City               string
	State              string
	ZipCode            string
	Neighborhood       string
	Source             string
	SourceNeighborhood string
	CampaignID         *string
	ServiceInterest    string
	Status             string
	Priority           string
	EstimatedValue     *float64
	ActualValue        *float64
	Notes              string
	UserID             *string
	ContactedAt        *time.Time
	QuoteSentAt        *time.Time
	ConversionDate     *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	// Joined from campaigns for list responses
	CampaignName     string
	CampaignPlatform string
}

// Key returns the neighborhood performance key the lead rolls into.
func (l Lead) Key() NeighborhoodKey {
	return NeighborhoodKey{Neighborhood: l.Neighborhood, City: l.City, State: l.State}
}

type Campaign struct {
	ID           string
	Name         string
	Platform     string
	CampaignType string
	Budget       float64
	Spent        float64
	Revenue      float64
	Impressions  int
	Clicks       int
	Leads        int
	Conversions  int
	TargetArea   []string
	AdCopy       string
	ImageURL     string
	Status       string
	StartDate    time.Time
	EndDate      *time.Time
	UserID       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	// Number of lead rows referencing the campaign
	LeadRecords int
}

// Targets reports whether the campaign's target area contains the neighborhood.
func (c Campaign) Targets(neighborhood string) bool {
	for _, area := range c.TargetArea {
		if area == neighborhood {
			return true
		}
	}
	return false
}

// NeighborhoodKey identifies one NeighborhoodPerformance row.
type NeighborhoodKey struct {
	Neighborhood string
	City         string
	State        string
}

type NeighborhoodPerformance struct {
	Neighborhood   string
	City           string
	State          string
	TotalLeads     int
	TotalCampaigns int
	TotalSpent     float64
	TotalRevenue   float64
	AvgCostPerLead float64
	ConversionRate float64
	ROI            float64
	LastUpdated    time.Time
}

func (p NeighborhoodPerformance) Key() NeighborhoodKey {
	return NeighborhoodKey{Neighborhood: p.Neighborhood, City: p.City, State: p.State}
}

type LeadActivity struct {
	ID           string
	LeadID       string
	ActivityType string
	Description  string
	Notes        string
	UserID       *string
	CreatedAt    time.Time
}

type BudgetPlan struct {
	ID               string
	Name             string
	Tier             string
	MonthlyBudget    float64
	NextdoorBudget   float64
	GoogleBudget     float64
	FacebookBudget   float64
	OtherBudget      float64
	ProjectedLeads   int
	ProjectedRevenue float64
	ProjectedROI     float64
	Active           bool
	StartDate        time.Time
	EndDate          *time.Time
	UserID           *string
	CreatedAt        time.Time
}

type LeadFilter struct {
	Source       string
	Status       string
	Neighborhood string
}

type CampaignFilter struct {
	Platform string
	Status   string
}

type ProjectFilter struct {
	Status string
	LeadID string
}

type Project struct {
	ID          string
	Name        string
	Description string
	Address     string
	ProjectType string
	Status      string
	LeadID      *string
	UserID      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Number of estimates attached to the project
	EstimateCount int
}

type MaterialFilter struct {
	Category string
	Green    *bool
	Search   string
}

type Material struct {
	ID          string
	Name        string
	Description string
	Category    string
	Unit        string
	CostPerUnit float64
	Supplier    string
	SKU         string
	IsGreen     bool
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MaterialPrice is one observed price for a material.
type MaterialPrice struct {
	ID         string
	MaterialID string
	Price      float64
	Source     string
	CreatedAt  time.Time
}

type Estimate struct {
	ID            string
	ProjectID     string
	Name          string
	Description   string
	Status        string
	LaborCost     float64
	MarkupPercent float64
	TaxPercent    float64
	MaterialCost  float64
	Subtotal      float64
	MarkupAmount  float64
	TaxAmount     float64
	TotalCost     float64
	UserID        *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LineItems     []EstimateLineItem
	// Joined for list responses
	ProjectName   string
	LineItemCount int
}

type EstimateLineItem struct {
	ID          string
	EstimateID  string
	MaterialID  *string
	Description string
	Quantity    float64
	UnitCost    float64
	Total       float64
	SortOrder   int
	CreatedAt   time.Time
	// Joined from materials
	MaterialName string
	Unit         string
}

// Priced returns the estimate with line totals and cost columns derived from
// its line items, labor, markup and tax. Markup applies to materials plus
// labor; tax applies after markup. Amounts are rounded to cents.
func (e Estimate) Priced() Estimate {
	out := e
	out.LineItems = make([]EstimateLineItem, len(e.LineItems))
	materials := 0.0
	for i, item := range e.LineItems {
		item.Total = cents(item.Quantity * item.UnitCost)
		materials += item.Total
		out.LineItems[i] = item
	}
	out.MaterialCost = cents(materials)
	out.Subtotal = cents(out.MaterialCost + e.LaborCost)
	out.MarkupAmount = cents(out.Subtotal * e.MarkupPercent / 100)
	out.TaxAmount = cents((out.Subtotal + out.MarkupAmount) * e.TaxPercent / 100)
	out.TotalCost = cents(out.Subtotal + out.MarkupAmount + out.TaxAmount)
	return out
}

func cents(value float64) float64 {
	return math.Round(value*100) / 100
}
