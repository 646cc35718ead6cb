package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"eagleeye/api/internal/store"
	"eagleeye/api/internal/util"
)

// materialPriceHistory caps the price history returned with a material.
const materialPriceHistory = 20

type estimatingStore interface {
	ListProjects(context.Context, store.ProjectFilter) ([]store.Project, error)
	GetProject(context.Context, string) (store.Project, error)
	InsertProject(context.Context, store.Project) (store.Project, error)
	UpdateProject(context.Context, store.Project) (store.Project, error)
	DeleteProject(context.Context, string) error
	ListMaterials(context.Context, store.MaterialFilter) ([]store.Material, error)
	GetMaterial(context.Context, string) (store.Material, error)
	InsertMaterial(context.Context, store.Material) (store.Material, error)
	UpdateMaterial(context.Context, store.Material) (store.Material, error)
	ListMaterialCategories(context.Context) ([]string, error)
	AddMaterialPrice(context.Context, store.MaterialPrice) (store.MaterialPrice, error)
	ListMaterialPrices(context.Context, string, int) ([]store.MaterialPrice, error)
	ListEstimates(context.Context, string) ([]store.Estimate, error)
	GetEstimate(context.Context, string) (store.Estimate, error)
	InsertEstimate(context.Context, store.Estimate) (store.Estimate, error)
	UpdateEstimate(context.Context, store.Estimate) (store.Estimate, error)
	AddEstimateLineItem(context.Context, store.EstimateLineItem) (store.Estimate, error)
	DeleteEstimate(context.Context, string) error
}

func (s *Service) ListProjects(ctx context.Context, filter store.ProjectFilter) ([]ProjectView, error) {
	projects, err := s.store.ListProjects(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]ProjectView, 0, len(projects))
	for _, project := range projects {
		views = append(views, projectView(project))
	}
	return views, nil
}

// GetProject returns the project with its estimate headers.
func (s *Service) GetProject(ctx context.Context, projectID string) (ProjectView, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	estimates, err := s.store.ListEstimates(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	view := projectView(project)
	view.Estimates = make([]EstimateView, 0, len(estimates))
	for _, estimate := range estimates {
		view.Estimates = append(view.Estimates, estimateView(estimate))
	}
	return view, nil
}

func (s *Service) CreateProject(ctx context.Context, session Session, input ProjectInput) (ProjectView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ProjectView{}, validationError("name is required")
	}
	address := strings.TrimSpace(input.Address)
	if address == "" {
		return ProjectView{}, validationError("address is required")
	}
	projectType := strings.ToUpper(strings.TrimSpace(input.ProjectType))
	if projectType == "" {
		projectType = "SINGLE_FAMILY"
	}
	if _, ok := allowedProjectTypes[projectType]; !ok {
		return ProjectView{}, validationError("projectType is invalid")
	}
	status := strings.ToUpper(strings.TrimSpace(input.Status))
	if status == "" {
		status = store.ProjectPlanning
	}
	if _, ok := allowedProjectStatuses[status]; !ok {
		return ProjectView{}, validationError("status is invalid")
	}

	item := store.Project{
		ID:          util.NewID("proj"),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Address:     address,
		ProjectType: projectType,
		Status:      status,
		LeadID:      optionalID(input.LeadID),
	}
	if session.UserID != "" {
		item.UserID = &session.UserID
	}
	saved, err := s.store.InsertProject(ctx, item)
	if err != nil {
		return ProjectView{}, err
	}
	return projectView(saved), nil
}

func (s *Service) UpdateProject(ctx context.Context, projectID string, input ProjectUpdate) (ProjectView, error) {
	next, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}

	setTrimmed(&next.Name, input.Name)
	setTrimmed(&next.Description, input.Description)
	setTrimmed(&next.Address, input.Address)
	if next.Name == "" {
		return ProjectView{}, validationError("name must not be empty")
	}
	if next.Address == "" {
		return ProjectView{}, validationError("address must not be empty")
	}
	if input.ProjectType != nil {
		projectType := strings.ToUpper(strings.TrimSpace(*input.ProjectType))
		if _, ok := allowedProjectTypes[projectType]; !ok {
			return ProjectView{}, validationError("projectType is invalid")
		}
		next.ProjectType = projectType
	}
	if input.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*input.Status))
		if _, ok := allowedProjectStatuses[status]; !ok {
			return ProjectView{}, validationError("status is invalid")
		}
		next.Status = status
	}
	if input.LeadID != nil {
		next.LeadID = optionalID(input.LeadID)
	}

	saved, err := s.store.UpdateProject(ctx, next)
	if err != nil {
		return ProjectView{}, err
	}
	return projectView(saved), nil
}

func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	return s.store.DeleteProject(ctx, projectID)
}

func (s *Service) ListMaterials(ctx context.Context, filter store.MaterialFilter) ([]MaterialView, error) {
	materials, err := s.store.ListMaterials(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]MaterialView, 0, len(materials))
	for _, material := range materials {
		views = append(views, materialView(material))
	}
	return views, nil
}

func (s *Service) ListMaterialCategories(ctx context.Context) ([]string, error) {
	return s.store.ListMaterialCategories(ctx)
}

// GetMaterial returns the material with its most recent prices.
func (s *Service) GetMaterial(ctx context.Context, materialID string) (MaterialView, error) {
	material, err := s.store.GetMaterial(ctx, materialID)
	if err != nil {
		return MaterialView{}, err
	}
	prices, err := s.store.ListMaterialPrices(ctx, materialID, materialPriceHistory)
	if err != nil {
		return MaterialView{}, err
	}
	view := materialView(material)
	view.Prices = make([]MaterialPriceView, 0, len(prices))
	for _, price := range prices {
		view.Prices = append(view.Prices, materialPriceView(price))
	}
	return view, nil
}

func (s *Service) CreateMaterial(ctx context.Context, input MaterialInput) (MaterialView, error) {
	item := store.Material{
		ID:          util.NewID("mat"),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Unit:        strings.TrimSpace(input.Unit),
		CostPerUnit: input.CostPerUnit,
		Supplier:    strings.TrimSpace(input.Supplier),
		SKU:         strings.TrimSpace(input.SKU),
		IsGreen:     input.IsGreen,
		Active:      true,
	}
	if err := validateMaterial(item); err != nil {
		return MaterialView{}, err
	}
	saved, err := s.store.InsertMaterial(ctx, item)
	if err != nil {
		return MaterialView{}, err
	}
	return materialView(saved), nil
}

func (s *Service) UpdateMaterial(ctx context.Context, materialID string, input MaterialUpdate) (MaterialView, error) {
	next, err := s.store.GetMaterial(ctx, materialID)
	if err != nil {
		return MaterialView{}, err
	}
	setTrimmed(&next.Name, input.Name)
	setTrimmed(&next.Description, input.Description)
	setTrimmed(&next.Category, input.Category)
	setTrimmed(&next.Unit, input.Unit)
	setTrimmed(&next.Supplier, input.Supplier)
	setTrimmed(&next.SKU, input.SKU)
	if input.CostPerUnit != nil {
		next.CostPerUnit = *input.CostPerUnit
	}
	if input.IsGreen != nil {
		next.IsGreen = *input.IsGreen
	}
	if input.Active != nil {
		next.Active = *input.Active
	}
	if err := validateMaterial(next); err != nil {
		return MaterialView{}, err
	}
	saved, err := s.store.UpdateMaterial(ctx, next)
	if err != nil {
		return MaterialView{}, err
	}
	return materialView(saved), nil
}

func validateMaterial(m store.Material) error {
	switch {
	case m.Name == "":
		return validationError("name is required")
	case m.Category == "":
		return validationError("category is required")
	case m.Unit == "":
		return validationError("unit is required")
	case m.CostPerUnit < 0:
		return validationError("costPerUnit must not be negative")
	}
	return nil
}

// AddMaterialPrice records a price and makes it the material's current cost.
func (s *Service) AddMaterialPrice(ctx context.Context, materialID string, input MaterialPriceInput) (MaterialPriceView, error) {
	if input.Price < 0 {
		return MaterialPriceView{}, validationError("price must not be negative")
	}
	if _, err := s.store.GetMaterial(ctx, materialID); err != nil {
		return MaterialPriceView{}, err
	}
	saved, err := s.store.AddMaterialPrice(ctx, store.MaterialPrice{
		ID:         util.NewID("price"),
		MaterialID: materialID,
		Price:      input.Price,
		Source:     strings.TrimSpace(input.Source),
	})
	if err != nil {
		return MaterialPriceView{}, err
	}
	return materialPriceView(saved), nil
}

func (s *Service) ListEstimates(ctx context.Context, projectID string) ([]EstimateView, error) {
	estimates, err := s.store.ListEstimates(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, err
	}
	views := make([]EstimateView, 0, len(estimates))
	for _, estimate := range estimates {
		views = append(views, estimateView(estimate))
	}
	return views, nil
}

func (s *Service) GetEstimate(ctx context.Context, estimateID string) (EstimateView, error) {
	estimate, err := s.store.GetEstimate(ctx, estimateID)
	if err != nil {
		return EstimateView{}, err
	}
	return estimateView(estimate), nil
}

func (s *Service) CreateEstimate(ctx context.Context, session Session, input EstimateInput) (EstimateView, error) {
	projectID := strings.TrimSpace(input.ProjectID)
	if projectID == "" {
		return EstimateView{}, validationError("projectId is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return EstimateView{}, validationError("name is required")
	}
	if err := validateRates(input.LaborCost, input.MarkupPercent, input.TaxPercent); err != nil {
		return EstimateView{}, err
	}

	item := store.Estimate{
		ID:            util.NewID("est"),
		ProjectID:     projectID,
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		Status:        store.EstimateDraft,
		LaborCost:     input.LaborCost,
		MarkupPercent: input.MarkupPercent,
		TaxPercent:    input.TaxPercent,
	}
	if session.UserID != "" {
		item.UserID = &session.UserID
	}
	for i, lineInput := range input.LineItems {
		li, err := s.newLineItem(ctx, lineInput)
		if err != nil {
			var domainErr *DomainError
			if errors.As(err, &domainErr) && domainErr.Code == "VALIDATION_ERROR" {
				return EstimateView{}, validationError(fmt.Sprintf("lineItems[%d]: %s", i, domainErr.Message))
			}
			return EstimateView{}, err
		}
		item.LineItems = append(item.LineItems, li)
	}

	saved, err := s.store.InsertEstimate(ctx, item)
	if err != nil {
		return EstimateView{}, err
	}
	return estimateView(saved), nil
}

func (s *Service) UpdateEstimate(ctx context.Context, estimateID string, input EstimateUpdate) (EstimateView, error) {
	next, err := s.store.GetEstimate(ctx, estimateID)
	if err != nil {
		return EstimateView{}, err
	}
	setTrimmed(&next.Name, input.Name)
	setTrimmed(&next.Description, input.Description)
	if next.Name == "" {
		return EstimateView{}, validationError("name must not be empty")
	}
	if input.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*input.Status))
		if _, ok := allowedEstimateStatuses[status]; !ok {
			return EstimateView{}, validationError("status is invalid")
		}
		next.Status = status
	}
	if input.LaborCost != nil {
		next.LaborCost = *input.LaborCost
	}
	if input.MarkupPercent != nil {
		next.MarkupPercent = *input.MarkupPercent
	}
	if input.TaxPercent != nil {
		next.TaxPercent = *input.TaxPercent
	}
	if err := validateRates(next.LaborCost, next.MarkupPercent, next.TaxPercent); err != nil {
		return EstimateView{}, err
	}

	saved, err := s.store.UpdateEstimate(ctx, next)
	if err != nil {
		return EstimateView{}, err
	}
	return estimateView(saved), nil
}

func (s *Service) AddEstimateLineItem(ctx context.Context, estimateID string, input LineItemInput) (EstimateView, error) {
	if _, err := s.store.GetEstimate(ctx, estimateID); err != nil {
		return EstimateView{}, err
	}
	li, err := s.newLineItem(ctx, input)
	if err != nil {
		return EstimateView{}, err
	}
	li.EstimateID = estimateID
	saved, err := s.store.AddEstimateLineItem(ctx, li)
	if err != nil {
		return EstimateView{}, err
	}
	return estimateView(saved), nil
}

func (s *Service) DeleteEstimate(ctx context.Context, estimateID string) error {
	return s.store.DeleteEstimate(ctx, estimateID)
}

// newLineItem validates the input and fills the unit cost and description
// from the referenced material when they are omitted.
func (s *Service) newLineItem(ctx context.Context, input LineItemInput) (store.EstimateLineItem, error) {
	if input.Quantity <= 0 {
		return store.EstimateLineItem{}, validationError("quantity must be positive")
	}
	if input.UnitCost != nil && *input.UnitCost < 0 {
		return store.EstimateLineItem{}, validationError("unitCost must not be negative")
	}
	li := store.EstimateLineItem{
		ID:          util.NewID("li"),
		MaterialID:  optionalID(input.MaterialID),
		Description: strings.TrimSpace(input.Description),
		Quantity:    input.Quantity,
	}
	if input.UnitCost != nil {
		li.UnitCost = *input.UnitCost
	}

	if li.MaterialID != nil {
		material, err := s.store.GetMaterial(ctx, *li.MaterialID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.EstimateLineItem{}, fmt.Errorf("material %s: %w", *li.MaterialID, store.ErrInvalidReference)
			}
			return store.EstimateLineItem{}, err
		}
		if input.UnitCost == nil {
			li.UnitCost = material.CostPerUnit
		}
		if li.Description == "" {
			li.Description = material.Name
		}
	} else if input.UnitCost == nil {
		return store.EstimateLineItem{}, validationError("unitCost is required without a material")
	}
	if li.Description == "" {
		return store.EstimateLineItem{}, validationError("description is required")
	}
	return li, nil
}

func validateRates(labor, markup, tax float64) error {
	switch {
	case labor < 0:
		return validationError("laborCost must not be negative")
	case markup < 0 || markup > 100:
		return validationError("markupPercent must be between 0 and 100")
	case tax < 0 || tax > 50:
		return validationError("taxPercent must be between 0 and 50")
	}
	return nil
}
