// Package rollup maintains the neighborhood performance cache and the
// campaign lead counters from current lead and campaign records.
package rollup

import "eagleeye/api/internal/store"

// Aggregate is the derived part of a NeighborhoodPerformance row.
type Aggregate struct {
	TotalLeads     int
	WonLeads       int
	TotalCampaigns int
	TotalSpent     float64
	TotalRevenue   float64
	AvgCostPerLead float64
	ConversionRate float64
	ROI            float64
}

// Compute aggregates the leads of one neighborhood key and the campaigns
// targeting it. Every ratio is 0 when its denominator is 0.
func Compute(leads []store.Lead, campaigns []store.Campaign) Aggregate {
	var agg Aggregate
	agg.TotalLeads = len(leads)
	for _, lead := range leads {
		if lead.Status != store.LeadStatusWon {
			continue
		}
		agg.WonLeads++
		if lead.ActualValue != nil {
			agg.TotalRevenue += *lead.ActualValue
		}
	}

	agg.TotalCampaigns = len(campaigns)
	for _, campaign := range campaigns {
		agg.TotalSpent += campaign.Spent
	}

	if agg.TotalLeads > 0 {
		agg.AvgCostPerLead = agg.TotalSpent / float64(agg.TotalLeads)
		agg.ConversionRate = float64(agg.WonLeads) / float64(agg.TotalLeads) * 100
	}
	if agg.TotalSpent > 0 {
		agg.ROI = agg.TotalRevenue / agg.TotalSpent
	}
	return agg
}

// Row turns the aggregate into the performance row stored under key.
func (a Aggregate) Row(key store.NeighborhoodKey) store.NeighborhoodPerformance {
	return store.NeighborhoodPerformance{
		Neighborhood:   key.Neighborhood,
		City:           key.City,
		State:          key.State,
		TotalLeads:     a.TotalLeads,
		TotalCampaigns: a.TotalCampaigns,
		TotalSpent:     a.TotalSpent,
		TotalRevenue:   a.TotalRevenue,
		AvgCostPerLead: a.AvgCostPerLead,
		ConversionRate: a.ConversionRate,
		ROI:            a.ROI,
	}
}

// CampaignCounters are the lead-derived counters of one campaign.
type CampaignCounters struct {
	Leads       int
	Conversions int
	Revenue     float64
}

// CountCampaign derives a campaign's counters from the leads referencing it.
func CountCampaign(leads []store.Lead) CampaignCounters {
	counters := CampaignCounters{Leads: len(leads)}
	for _, lead := range leads {
		if lead.Status != store.LeadStatusWon {
			continue
		}
		counters.Conversions++
		if lead.ActualValue != nil {
			counters.Revenue += *lead.ActualValue
		}
	}
	return counters
}

// Overview summarizes every campaign for the marketing dashboard.
type Overview struct {
	TotalSpent       float64
	TotalRevenue     float64
	TotalLeads       int
	TotalConversions int
	ActiveCampaigns  int
	AvgCostPerLead   float64
	ConversionRate   float64
	ROI              float64
}

// Summarize totals campaign counters with the same zero guards as Compute.
func Summarize(campaigns []store.Campaign) Overview {
	var o Overview
	for _, campaign := range campaigns {
		o.TotalSpent += campaign.Spent
		o.TotalRevenue += campaign.Revenue
		o.TotalLeads += campaign.Leads
		o.TotalConversions += campaign.Conversions
		if campaign.Status == store.CampaignActive {
			o.ActiveCampaigns++
		}
	}
	if o.TotalLeads > 0 {
		o.AvgCostPerLead = o.TotalSpent / float64(o.TotalLeads)
		o.ConversionRate = float64(o.TotalConversions) / float64(o.TotalLeads) * 100
	}
	if o.TotalSpent > 0 {
		o.ROI = o.TotalRevenue / o.TotalSpent
	}
	return o
}
