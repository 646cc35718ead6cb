package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"eagleeye/api/internal/store"
)

var neighborhoodHeader = []string{
	"neighborhood", "city", "state", "total_leads", "total_campaigns", "total_spent",
	"total_revenue", "avg_cost_per_lead", "conversion_rate", "roi", "last_updated",
}

var leadHeader = []string{
	"id", "first_name", "last_name", "email", "phone", "neighborhood", "city", "state",
	"source", "campaign", "status", "priority", "estimated_value", "actual_value", "created_at",
}

// NeighborhoodsCSV renders performance rows in the order given.
func NeighborhoodsCSV(rows []store.NeighborhoodPerformance) ([]byte, error) {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, neighborhoodHeader)
	for _, row := range rows {
		records = append(records, []string{
			row.Neighborhood,
			row.City,
			row.State,
			strconv.Itoa(row.TotalLeads),
			strconv.Itoa(row.TotalCampaigns),
			money(row.TotalSpent),
			money(row.TotalRevenue),
			money(row.AvgCostPerLead),
			ratio(row.ConversionRate),
			ratio(row.ROI),
			row.LastUpdated.UTC().Format(time.RFC3339),
		})
	}
	return writeCSV(records)
}

func LeadsCSV(leads []store.Lead) ([]byte, error) {
	records := make([][]string, 0, len(leads)+1)
	records = append(records, leadHeader)
	for _, lead := range leads {
		records = append(records, []string{
			lead.ID,
			lead.FirstName,
			lead.LastName,
			lead.Email,
			lead.Phone,
			lead.Neighborhood,
			lead.City,
			lead.State,
			lead.Source,
			lead.CampaignName,
			lead.Status,
			lead.Priority,
			optionalMoney(lead.EstimatedValue),
			optionalMoney(lead.ActualValue),
			lead.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return writeCSV(records)
}

func writeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func optionalMoney(v *float64) string {
	if v == nil {
		return ""
	}
	return money(*v)
}
