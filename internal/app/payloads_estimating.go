package app

import (
	"time"

	"eagleeye/api/internal/store"
)

var allowedProjectTypes = map[string]struct{}{
	"SINGLE_FAMILY": {},
	"MULTI_FAMILY":  {},
	"COMMERCIAL":    {},
	"INDUSTRIAL":    {},
	"RENOVATION":    {},
}

var allowedProjectStatuses = map[string]struct{}{
	store.ProjectLead:       {},
	store.ProjectPlanning:   {},
	store.ProjectInProgress: {},
	store.ProjectCompleted:  {},
	store.ProjectOnHold:     {},
}

var allowedEstimateStatuses = map[string]struct{}{
	store.EstimateDraft:    {},
	store.EstimateSent:     {},
	store.EstimateApproved: {},
	store.EstimateRejected: {},
}

type ProjectInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	ProjectType string  `json:"projectType"`
	Status      string  `json:"status"`
	LeadID      *string `json:"leadId"`
}

type ProjectUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	ProjectType *string `json:"projectType"`
	Status      *string `json:"status"`
	LeadID      *string `json:"leadId"`
}

type MaterialInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Unit        string  `json:"unit"`
	CostPerUnit float64 `json:"costPerUnit"`
	Supplier    string  `json:"supplier"`
	SKU         string  `json:"sku"`
	IsGreen     bool    `json:"isGreen"`
}

type MaterialUpdate struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Unit        *string  `json:"unit"`
	CostPerUnit *float64 `json:"costPerUnit"`
	Supplier    *string  `json:"supplier"`
	SKU         *string  `json:"sku"`
	IsGreen     *bool    `json:"isGreen"`
	Active      *bool    `json:"active"`
}

type MaterialPriceInput struct {
	Price  float64 `json:"price"`
	Source string  `json:"source"`
}

// LineItemInput omits unitCost to price the item at the material's current cost.
type LineItemInput struct {
	MaterialID  *string  `json:"materialId"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitCost    *float64 `json:"unitCost"`
}

type EstimateInput struct {
	ProjectID     string          `json:"projectId"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	LaborCost     float64         `json:"laborCost"`
	MarkupPercent float64         `json:"markupPercent"`
	TaxPercent    float64         `json:"taxPercent"`
	LineItems     []LineItemInput `json:"lineItems"`
}

type EstimateUpdate struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Status        *string  `json:"status"`
	LaborCost     *float64 `json:"laborCost"`
	MarkupPercent *float64 `json:"markupPercent"`
	TaxPercent    *float64 `json:"taxPercent"`
}

type ProjectView struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Address       string         `json:"address"`
	ProjectType   string         `json:"projectType"`
	Status        string         `json:"status"`
	LeadID        *string        `json:"leadId"`
	UserID        *string        `json:"userId"`
	EstimateCount int            `json:"estimateCount"`
	Estimates     []EstimateView `json:"estimates,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func projectView(p store.Project) ProjectView {
	return ProjectView{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Address:       p.Address,
		ProjectType:   p.ProjectType,
		Status:        p.Status,
		LeadID:        p.LeadID,
		UserID:        p.UserID,
		EstimateCount: p.EstimateCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type MaterialPriceView struct {
	ID        string    `json:"id"`
	Price     float64   `json:"price"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

type MaterialView struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Unit        string              `json:"unit"`
	CostPerUnit float64             `json:"costPerUnit"`
	Supplier    string              `json:"supplier"`
	SKU         string              `json:"sku"`
	IsGreen     bool                `json:"isGreen"`
	Active      bool                `json:"active"`
	Prices      []MaterialPriceView `json:"prices,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func materialView(m store.Material) MaterialView {
	return MaterialView{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		Unit:        m.Unit,
		CostPerUnit: m.CostPerUnit,
		Supplier:    m.Supplier,
		SKU:         m.SKU,
		IsGreen:     m.IsGreen,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func materialPriceView(p store.MaterialPrice) MaterialPriceView {
	return MaterialPriceView{ID: p.ID, Price: p.Price, Source: p.Source, CreatedAt: p.CreatedAt}
}

type LineItemView struct {
	ID           string    `json:"id"`
	MaterialID   *string   `json:"materialId"`
	MaterialName string    `json:"materialName,omitempty"`
	Unit         string    `json:"unit,omitempty"`
	Description  string    `json:"description"`
	Quantity     float64   `json:"quantity"`
	UnitCost     float64   `json:"unitCost"`
	Total        float64   `json:"total"`
	SortOrder    int       `json:"sortOrder"`
	CreatedAt    time.Time `json:"createdAt"`
}

type EstimateView struct {
	ID            string         `json:"id"`
	ProjectID     string         `json:"projectId"`
	ProjectName   string         `json:"projectName"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Status        string         `json:"status"`
	LaborCost     float64        `json:"laborCost"`
	MarkupPercent float64        `json:"markupPercent"`
	TaxPercent    float64        `json:"taxPercent"`
	MaterialCost  float64        `json:"materialCost"`
	Subtotal      float64        `json:"subtotal"`
	MarkupAmount  float64        `json:"markupAmount"`
	TaxAmount     float64        `json:"taxAmount"`
	TotalCost     float64        `json:"totalCost"`
	LineItemCount int            `json:"lineItemCount"`
	LineItems     []LineItemView `json:"lineItems,omitempty"`
	UserID        *string        `json:"userId"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func estimateView(e store.Estimate) EstimateView {
	view := EstimateView{
		ID:            e.ID,
		ProjectID:     e.ProjectID,
		ProjectName:   e.ProjectName,
		Name:          e.Name,
		Description:   e.Description,
		Status:        e.Status,
		LaborCost:     e.LaborCost,
		MarkupPercent: e.MarkupPercent,
		TaxPercent:    e.TaxPercent,
		MaterialCost:  e.MaterialCost,
		Subtotal:      e.Subtotal,
		MarkupAmount:  e.MarkupAmount,
		TaxAmount:     e.TaxAmount,
		TotalCost:     e.TotalCost,
		LineItemCount: e.LineItemCount,
		UserID:        e.UserID,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	for _, li := range e.LineItems {
		view.LineItems = append(view.LineItems, LineItemView{
			ID:           li.ID,
			MaterialID:   li.MaterialID,
			MaterialName: li.MaterialName,
			Unit:         li.Unit,
			Description:  li.Description,
			Quantity:     li.Quantity,
			UnitCost:     li.UnitCost,
			Total:        li.Total,
			SortOrder:    li.SortOrder,
			CreatedAt:    li.CreatedAt,
		})
	}
	return view
}
