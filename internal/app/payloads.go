package app

import (
	"time"

	"eagleeye/api/internal/rollup"
	"eagleeye/api/internal/store"
)

var allowedPlatforms = map[string]struct{}{
	"NEXTDOOR":   {},
	"GOOGLE_LSA": {},
	"GOOGLE_ADS": {},
	"FACEBOOK":   {},
	"INSTAGRAM":  {},
	"ANGI":       {},
	"REFERRAL":   {},
	"ORGANIC":    {},
}

// Lead sources are the campaign platforms plus direct intake channels.
var allowedLeadSources = map[string]struct{}{
	"NEXTDOOR":   {},
	"GOOGLE_LSA": {},
	"GOOGLE_ADS": {},
	"FACEBOOK":   {},
	"INSTAGRAM":  {},
	"ANGI":       {},
	"REFERRAL":   {},
	"ORGANIC":    {},
	"WEBSITE":    {},
	"OTHER":      {},
}

var allowedLeadStatuses = map[string]struct{}{
	store.LeadStatusNew:       {},
	store.LeadStatusContacted: {},
	store.LeadStatusQualified: {},
	store.LeadStatusQuoteSent: {},
	store.LeadStatusWon:       {},
	store.LeadStatusLost:      {},
}

var allowedCampaignStatuses = map[string]struct{}{
	store.CampaignDraft:     {},
	store.CampaignActive:    {},
	store.CampaignPaused:    {},
	store.CampaignCompleted: {},
}

var allowedPriorities = map[string]struct{}{
	"LOW":    {},
	"MEDIUM": {},
	"HIGH":   {},
	"URGENT": {},
}

var allowedActivityTypes = map[string]struct{}{
	"CALL":          {},
	"EMAIL":         {},
	"TEXT":          {},
	"MEETING":       {},
	"NOTE":          {},
	"STATUS_CHANGE": {},
	"QUOTE_SENT":    {},
	"FOLLOW_UP":     {},
}

type LeadInput struct {
	FirstName          string   `json:"firstName"`
	LastName           string   `json:"lastName"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	Address            string   `json:"address"`
	City               string   `json:"city"`
	State              string   `json:"state"`
	ZipCode            string   `json:"zipCode"`
	Neighborhood       string   `json:"neighborhood"`
	Source             string   `json:"source"`
	SourceNeighborhood string   `json:"sourceNeighborhood"`
	CampaignID         *string  `json:"campaignId"`
	ServiceInterest    string   `json:"serviceInterest"`
	Priority           string   `json:"priority"`
	EstimatedValue     *float64 `json:"estimatedValue"`
	Notes              string   `json:"notes"`
}

// LeadUpdate applies only the fields that are present. An empty campaignId
// detaches the lead from its campaign.
type LeadUpdate struct {
	FirstName       *string  `json:"firstName"`
	LastName        *string  `json:"lastName"`
	Email           *string  `json:"email"`
	Phone           *string  `json:"phone"`
	Address         *string  `json:"address"`
	City            *string  `json:"city"`
	State           *string  `json:"state"`
	ZipCode         *string  `json:"zipCode"`
	Neighborhood    *string  `json:"neighborhood"`
	CampaignID      *string  `json:"campaignId"`
	ServiceInterest *string  `json:"serviceInterest"`
	Status          *string  `json:"status"`
	Priority        *string  `json:"priority"`
	EstimatedValue  *float64 `json:"estimatedValue"`
	ActualValue     *float64 `json:"actualValue"`
	Notes           *string  `json:"notes"`
	ContactedAt     *string  `json:"contactedAt"`
	QuoteSentAt     *string  `json:"quoteSentAt"`
	ConversionDate  *string  `json:"conversionDate"`
}

// CaptureInput is the public lead form.
type CaptureInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	City            string `json:"city"`
	State           string `json:"state"`
	ZipCode         string `json:"zipCode"`
	Neighborhood    string `json:"neighborhood"`
	Source          string `json:"source"`
	CampaignID      string `json:"campaignId"`
	ServiceInterest string `json:"serviceInterest"`
	Notes           string `json:"notes"`
}

type ActivityInput struct {
	ActivityType string `json:"activityType"`
	Description  string `json:"description"`
	Notes        string `json:"notes"`
}

type CampaignInput struct {
	Name         string   `json:"name"`
	Platform     string   `json:"platform"`
	CampaignType string   `json:"campaignType"`
	Budget       float64  `json:"budget"`
	TargetArea   []string `json:"targetArea"`
	AdCopy       string   `json:"adCopy"`
	ImageURL     string   `json:"imageUrl"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
}

type CampaignUpdate struct {
	Name         *string   `json:"name"`
	Platform     *string   `json:"platform"`
	CampaignType *string   `json:"campaignType"`
	Status       *string   `json:"status"`
	Budget       *float64  `json:"budget"`
	Spent        *float64  `json:"spent"`
	Impressions  *int      `json:"impressions"`
	Clicks       *int      `json:"clicks"`
	TargetArea   *[]string `json:"targetArea"`
	AdCopy       *string   `json:"adCopy"`
	ImageURL     *string   `json:"imageUrl"`
	StartDate    *string   `json:"startDate"`
	EndDate      *string   `json:"endDate"`
}

type RecomputeInput struct {
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

type BudgetPlanInput struct {
	Name             string   `json:"name"`
	Tier             string   `json:"tier"`
	MonthlyBudget    float64  `json:"monthlyBudget"`
	NextdoorBudget   float64  `json:"nextdoorBudget"`
	GoogleBudget     float64  `json:"googleBudget"`
	FacebookBudget   float64  `json:"facebookBudget"`
	OtherBudget      float64  `json:"otherBudget"`
	ProjectedLeads   int      `json:"projectedLeads"`
	ProjectedRevenue float64  `json:"projectedRevenue"`
	ProjectedROI     *float64 `json:"projectedRoi"`
	Active           *bool    `json:"active"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
}

type LeadView struct {
	ID                 string     `json:"id"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	Address            string     `json:"address"`
	City               string     `json:"city"`
	State              string     `json:"state"`
	ZipCode            string     `json:"zipCode"`
	Neighborhood       string     `json:"neighborhood"`
	Source             string     `json:"source"`
	SourceNeighborhood string     `json:"sourceNeighborhood"`
	CampaignID         *string    `json:"campaignId"`
	CampaignName       string     `json:"campaignName,omitempty"`
	CampaignPlatform   string     `json:"campaignPlatform,omitempty"`
	ServiceInterest    string     `json:"serviceInterest"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	EstimatedValue     *float64   `json:"estimatedValue"`
	ActualValue        *float64   `json:"actualValue"`
	Notes              string     `json:"notes"`
	ContactedAt        *time.Time `json:"contactedAt"`
	QuoteSentAt        *time.Time `json:"quoteSentAt"`
	ConversionDate     *time.Time `json:"conversionDate"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func leadView(l store.Lead) LeadView {
	return LeadView{
		ID:                 l.ID,
		FirstName:          l.FirstName,
		LastName:           l.LastName,
		Email:              l.Email,
		Phone:              l.Phone,
		Address:            l.Address,
		City:               l.City,
		State:              l.State,
		ZipCode:            l.ZipCode,
		Neighborhood:       l.Neighborhood,
		Source:             l.Source,
		SourceNeighborhood: l.SourceNeighborhood,
		CampaignID:         l.CampaignID,
		CampaignName:       l.CampaignName,
		CampaignPlatform:   l.CampaignPlatform,
		ServiceInterest:    l.ServiceInterest,
		Status:             l.Status,
		Priority:           l.Priority,
		EstimatedValue:     l.EstimatedValue,
		ActualValue:        l.ActualValue,
		Notes:              l.Notes,
		ContactedAt:        l.ContactedAt,
		QuoteSentAt:        l.QuoteSentAt,
		ConversionDate:     l.ConversionDate,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

type CampaignView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Platform     string     `json:"platform"`
	CampaignType string     `json:"campaignType"`
	Budget       float64    `json:"budget"`
	Spent        float64    `json:"spent"`
	Revenue      float64    `json:"revenue"`
	Impressions  int        `json:"impressions"`
	Clicks       int        `json:"clicks"`
	Leads        int        `json:"leads"`
	Conversions  int        `json:"conversions"`
	TargetArea   []string   `json:"targetArea"`
	AdCopy       string     `json:"adCopy"`
	ImageURL     string     `json:"imageUrl"`
	Status       string     `json:"status"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
	LeadRecords  int        `json:"leadRecords"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func campaignView(c store.Campaign) CampaignView {
	areas := c.TargetArea
	if areas == nil {
		areas = []string{}
	}
	return CampaignView{
		ID:           c.ID,
		Name:         c.Name,
		Platform:     c.Platform,
		CampaignType: c.CampaignType,
		Budget:       c.Budget,
		Spent:        c.Spent,
		Revenue:      c.Revenue,
		Impressions:  c.Impressions,
		Clicks:       c.Clicks,
		Leads:        c.Leads,
		Conversions:  c.Conversions,
		TargetArea:   areas,
		AdCopy:       c.AdCopy,
		ImageURL:     c.ImageURL,
		Status:       c.Status,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		LeadRecords:  c.LeadRecords,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

type PerformanceView struct {
	Neighborhood   string    `json:"neighborhood"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	TotalLeads     int       `json:"totalLeads"`
	TotalCampaigns int       `json:"totalCampaigns"`
	TotalSpent     float64   `json:"totalSpent"`
	TotalRevenue   float64   `json:"totalRevenue"`
	AvgCostPerLead float64   `json:"avgCostPerLead"`
	ConversionRate float64   `json:"conversionRate"`
	ROI            float64   `json:"roi"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

func performanceView(p store.NeighborhoodPerformance) PerformanceView {
	return PerformanceView{
		Neighborhood:   p.Neighborhood,
		City:           p.City,
		State:          p.State,
		TotalLeads:     p.TotalLeads,
		TotalCampaigns: p.TotalCampaigns,
		TotalSpent:     p.TotalSpent,
		TotalRevenue:   p.TotalRevenue,
		AvgCostPerLead: p.AvgCostPerLead,
		ConversionRate: p.ConversionRate,
		ROI:            p.ROI,
		LastUpdated:    p.LastUpdated,
	}
}

type ActivityView struct {
	ID           string    `json:"id"`
	LeadID       string    `json:"leadId"`
	ActivityType string    `json:"activityType"`
	Description  string    `json:"description"`
	Notes        string    `json:"notes"`
	UserID       *string   `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
}

func activityView(a store.LeadActivity) ActivityView {
	return ActivityView{
		ID:           a.ID,
		LeadID:       a.LeadID,
		ActivityType: a.ActivityType,
		Description:  a.Description,
		Notes:        a.Notes,
		UserID:       a.UserID,
		CreatedAt:    a.CreatedAt,
	}
}

type BudgetPlanView struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Tier             string     `json:"tier"`
	MonthlyBudget    float64    `json:"monthlyBudget"`
	NextdoorBudget   float64    `json:"nextdoorBudget"`
	GoogleBudget     float64    `json:"googleBudget"`
	FacebookBudget   float64    `json:"facebookBudget"`
	OtherBudget      float64    `json:"otherBudget"`
	ProjectedLeads   int        `json:"projectedLeads"`
	ProjectedRevenue float64    `json:"projectedRevenue"`
	ProjectedROI     float64    `json:"projectedRoi"`
	Active           bool       `json:"active"`
	StartDate        time.Time  `json:"startDate"`
	EndDate          *time.Time `json:"endDate"`
	UserID           *string    `json:"userId"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func budgetPlanView(p store.BudgetPlan) BudgetPlanView {
	return BudgetPlanView{
		ID:               p.ID,
		Name:             p.Name,
		Tier:             p.Tier,
		MonthlyBudget:    p.MonthlyBudget,
		NextdoorBudget:   p.NextdoorBudget,
		GoogleBudget:     p.GoogleBudget,
		FacebookBudget:   p.FacebookBudget,
		OtherBudget:      p.OtherBudget,
		ProjectedLeads:   p.ProjectedLeads,
		ProjectedRevenue: p.ProjectedRevenue,
		ProjectedROI:     p.ProjectedROI,
		Active:           p.Active,
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		UserID:           p.UserID,
		CreatedAt:        p.CreatedAt,
	}
}

type OverviewView struct {
	TotalSpent       float64 `json:"totalSpent"`
	TotalRevenue     float64 `json:"totalRevenue"`
	TotalLeads       int     `json:"totalLeads"`
	TotalConversions int     `json:"totalConversions"`
	ActiveCampaigns  int     `json:"activeCampaigns"`
	AvgCostPerLead   float64 `json:"avgCostPerLead"`
	ConversionRate   float64 `json:"conversionRate"`
	ROI              float64 `json:"roi"`
}

func overviewView(o rollup.Overview) OverviewView {
	return OverviewView{
		TotalSpent:       o.TotalSpent,
		TotalRevenue:     o.TotalRevenue,
		TotalLeads:       o.TotalLeads,
		TotalConversions: o.TotalConversions,
		ActiveCampaigns:  o.ActiveCampaigns,
		AvgCostPerLead:   o.AvgCostPerLead,
		ConversionRate:   o.ConversionRate,
		ROI:              o.ROI,
	}
}
