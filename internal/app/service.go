package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"eagleeye/api/internal/auth"
	"eagleeye/api/internal/authpw"
	"eagleeye/api/internal/capture"
	"eagleeye/api/internal/config"
	"eagleeye/api/internal/email"
	"eagleeye/api/internal/export"
	"eagleeye/api/internal/metrics"
	"eagleeye/api/internal/rbac"
	"eagleeye/api/internal/rollup"
	"eagleeye/api/internal/search"
	"eagleeye/api/internal/seed"
	"eagleeye/api/internal/store"
	"eagleeye/api/internal/util"
)

type Session struct {
	Token     string
	UserID    string
	Email     string
	UserName  string
	Role      rbac.Role
	ExpiresAt time.Time
}

type dataStore interface {
	rollup.Store
	authpw.UserStore
	search.LeadStore
	seed.Store
	estimatingStore
	Ping(context.Context) error
	GetUserByID(context.Context, string) (store.User, error)
	ListLeads(context.Context, store.LeadFilter) ([]store.Lead, error)
	GetLead(context.Context, string) (store.Lead, error)
	UpdateLead(context.Context, store.Lead) (store.Lead, error)
	InsertLeadActivity(context.Context, store.LeadActivity) (store.LeadActivity, error)
	ListLeadActivities(context.Context, string) ([]store.LeadActivity, error)
	ListCampaigns(context.Context, store.CampaignFilter) ([]store.Campaign, error)
	GetCampaign(context.Context, string) (store.Campaign, error)
	UpdateCampaign(context.Context, store.Campaign) (store.Campaign, error)
	DeleteCampaign(context.Context, string) error
	ListNeighborhoodPerformance(context.Context) ([]store.NeighborhoodPerformance, error)
	GetNeighborhoodPerformance(context.Context, store.NeighborhoodKey) (store.NeighborhoodPerformance, error)
	InsertBudgetPlan(context.Context, store.BudgetPlan) (store.BudgetPlan, error)
	ListBudgetPlans(context.Context, string) ([]store.BudgetPlan, error)
}

// CaptureFeed indexes publicly captured leads.
type CaptureFeed interface {
	Record(ctx context.Context, entry capture.Entry) error
	Recent(ctx context.Context, source string, limit int) ([]capture.Entry, error)
	Ping(ctx context.Context) error
}

type LeadNotifier interface {
	IsConfigured() bool
	SendLeadNotification(lead email.LeadData) error
}

// Dependencies are the optional collaborators of the service. Nil fields
// disable the feature they back.
type Dependencies struct {
	Meili    *search.Meili
	Capture  CaptureFeed
	Notifier LeadNotifier
	Exports  *export.Service
	Metrics  *metrics.Recorder
}

type Service struct {
	cfg       config.Config
	store     dataStore
	engine    *rollup.Engine
	hook      *rollup.Hook
	tokens    *auth.Issuer
	passwords *authpw.Service
	search    *search.Service
	capture   CaptureFeed
	notifier  LeadNotifier
	exports   *export.Service
	metrics   *metrics.Recorder
	now       func() time.Time
}

func New(cfg config.Config, s dataStore, deps Dependencies) *Service {
	var opts []rollup.Option
	if deps.Metrics != nil {
		opts = append(opts, rollup.WithObserver(deps.Metrics))
	}
	engine := rollup.NewEngine(s, cfg.DefaultState, opts...)

	exports := deps.Exports
	if exports == nil {
		exports = export.NewService(nil, cfg.ExportURLTTL)
	}

	return &Service{
		cfg:       cfg,
		store:     s,
		engine:    engine,
		hook:      rollup.NewHook(engine, cfg.RollupAsync),
		tokens:    auth.NewIssuer(cfg.JWTSecret, cfg.AccessTTL),
		passwords: authpw.NewService(s),
		search:    search.NewService(deps.Meili, search.NewSQL(s)),
		capture:   deps.Capture,
		notifier:  deps.Notifier,
		exports:   exports,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

// Bootstrap ensures the admin account exists, loads the seed file into an
// empty database and pushes every lead to the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.passwords.EnsureUser(ctx, s.cfg.AdminEmail, "Administrator", s.cfg.AdminPassword, rbac.RoleAdmin); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	if path := strings.TrimSpace(s.cfg.SeedFile); path != "" {
		if _, err := seed.LoadFile(ctx, path, s.store, s.hook, s.engine.DefaultState()); err != nil {
			return err
		}
	}
	leads, err := s.store.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return err
	}
	s.search.Reindex(leads)
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PingCapture checks the capture feed. ok is false when no feed is configured.
func (s *Service) PingCapture(ctx context.Context) (ok bool, err error) {
	if s.capture == nil {
		return false, nil
	}
	return true, s.capture.Ping(ctx)
}

// Close waits for detached recomputes and stops the search health loop.
func (s *Service) Close() {
	s.hook.Wait()
	s.search.Close()
}

// Hook exposes the rollup hook so callers can wait for detached recomputes.
func (s *Service) Hook() *rollup.Hook {
	return s.hook
}

func (s *Service) Metrics() *metrics.Recorder {
	return s.metrics
}

func (s *Service) Can(role rbac.Role, action rbac.Action) bool {
	return rbac.Can(role, action)
}

func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (map[string]any, error) {
	user, err := s.passwords.SignIn(ctx, emailAddr, password)
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return nil, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return nil, validationError(err.Error())
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"accessToken": token,
		"userId":      user.ID,
		"userName":    user.Name,
		"role":        user.Role,
		"expiresAt":   expiresAt.Unix(),
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		UserName:  user.Name,
		Role:      rbac.Normalize(user.Role),
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) ListLeads(ctx context.Context, filter store.LeadFilter) ([]LeadView, error) {
	leads, err := s.store.ListLeads(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]LeadView, 0, len(leads))
	for _, lead := range leads {
		views = append(views, leadView(lead))
	}
	return views, nil
}

func (s *Service) GetLead(ctx context.Context, leadID string) (LeadView, error) {
	lead, err := s.store.GetLead(ctx, leadID)
	if err != nil {
		return LeadView{}, err
	}
	return leadView(lead), nil
}

func (s *Service) CreateLead(ctx context.Context, session Session, input LeadInput) (LeadView, error) {
	if strings.TrimSpace(input.LastName) == "" {
		return LeadView{}, validationError("lastName is required")
	}
	lead, err := s.newLead(input)
	if err != nil {
		return LeadView{}, err
	}
	if session.UserID != "" {
		lead.UserID = &session.UserID
	}
	saved, err := s.createLead(ctx, lead)
	if err != nil {
		return LeadView{}, err
	}
	return leadView(saved), nil
}

func (s *Service) newLead(input LeadInput) (store.Lead, error) {
	firstName := strings.TrimSpace(input.FirstName)
	if firstName == "" {
		return store.Lead{}, validationError("firstName is required")
	}
	source := strings.ToUpper(strings.TrimSpace(input.Source))
	if _, ok := allowedLeadSources[source]; !ok {
		return store.Lead{}, validationError("source is invalid")
	}
	priority := strings.ToUpper(strings.TrimSpace(input.Priority))
	if priority == "" {
		priority = "MEDIUM"
	}
	if _, ok := allowedPriorities[priority]; !ok {
		return store.Lead{}, validationError("priority is invalid")
	}
	if input.EstimatedValue != nil && *input.EstimatedValue < 0 {
		return store.Lead{}, validationError("estimatedValue must not be negative")
	}

	state := strings.TrimSpace(input.State)
	if state == "" {
		state = s.engine.DefaultState()
	}
	return store.Lead{
		ID:                 util.NewID("lead"),
		FirstName:          firstName,
		LastName:           strings.TrimSpace(input.LastName),
		Email:              strings.TrimSpace(input.Email),
		Phone:              strings.TrimSpace(input.Phone),
		Address:            strings.TrimSpace(input.Address),
		City:               strings.TrimSpace(input.City),
		State:              state,
		ZipCode:            strings.TrimSpace(input.ZipCode),
		Neighborhood:       strings.TrimSpace(input.Neighborhood),
		Source:             source,
		SourceNeighborhood: strings.TrimSpace(input.SourceNeighborhood),
		CampaignID:         optionalID(input.CampaignID),
		ServiceInterest:    strings.TrimSpace(input.ServiceInterest),
		Status:             store.LeadStatusNew,
		Priority:           priority,
		EstimatedValue:     input.EstimatedValue,
		Notes:              input.Notes,
	}, nil
}

func (s *Service) createLead(ctx context.Context, lead store.Lead) (store.Lead, error) {
	saved, err := s.store.InsertLead(ctx, lead)
	if err != nil {
		return store.Lead{}, err
	}
	s.hook.LeadCreated(ctx, saved)
	s.search.IndexLead(saved)
	return saved, nil
}

func (s *Service) UpdateLead(ctx context.Context, leadID string, input LeadUpdate) (LeadView, error) {
	before, err := s.store.GetLead(ctx, leadID)
	if err != nil {
		return LeadView{}, err
	}
	next := before

	setTrimmed(&next.FirstName, input.FirstName)
	setTrimmed(&next.LastName, input.LastName)
	setTrimmed(&next.Email, input.Email)
	setTrimmed(&next.Phone, input.Phone)
	setTrimmed(&next.Address, input.Address)
	setTrimmed(&next.City, input.City)
	setTrimmed(&next.ZipCode, input.ZipCode)
	setTrimmed(&next.Neighborhood, input.Neighborhood)
	setTrimmed(&next.ServiceInterest, input.ServiceInterest)
	if input.State != nil {
		next.State = strings.TrimSpace(*input.State)
		if next.State == "" {
			next.State = s.engine.DefaultState()
		}
	}
	if input.Notes != nil {
		next.Notes = *input.Notes
	}
	if next.FirstName == "" {
		return LeadView{}, validationError("firstName must not be empty")
	}
	if input.CampaignID != nil {
		next.CampaignID = optionalID(input.CampaignID)
	}
	if input.Priority != nil {
		priority := strings.ToUpper(strings.TrimSpace(*input.Priority))
		if _, ok := allowedPriorities[priority]; !ok {
			return LeadView{}, validationError("priority is invalid")
		}
		next.Priority = priority
	}
	if input.EstimatedValue != nil {
		if *input.EstimatedValue < 0 {
			return LeadView{}, validationError("estimatedValue must not be negative")
		}
		next.EstimatedValue = input.EstimatedValue
	}
	if input.ActualValue != nil {
		if *input.ActualValue < 0 {
			return LeadView{}, validationError("actualValue must not be negative")
		}
		next.ActualValue = input.ActualValue
	}

	for _, field := range []struct {
		value  *string
		target **time.Time
		name   string
	}{
		{input.ContactedAt, &next.ContactedAt, "contactedAt"},
		{input.QuoteSentAt, &next.QuoteSentAt, "quoteSentAt"},
		{input.ConversionDate, &next.ConversionDate, "conversionDate"},
	} {
		if field.value == nil {
			continue
		}
		parsed, err := parseOptionalDate(*field.value)
		if err != nil {
			return LeadView{}, validationError(field.name + " must be a date")
		}
		*field.target = parsed
	}

	if input.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*input.Status))
		if _, ok := allowedLeadStatuses[status]; !ok {
			return LeadView{}, validationError("status is invalid")
		}
		if status != before.Status {
			now := s.now().UTC()
			switch status {
			case store.LeadStatusContacted:
				stampOnce(&next.ContactedAt, now)
			case store.LeadStatusQuoteSent:
				stampOnce(&next.QuoteSentAt, now)
			case store.LeadStatusWon:
				stampOnce(&next.ConversionDate, now)
			}
		}
		next.Status = status
	}

	after, err := s.store.UpdateLead(ctx, next)
	if err != nil {
		return LeadView{}, err
	}
	s.hook.LeadUpdated(ctx, before, after)
	s.search.IndexLead(after)
	return leadView(after), nil
}

func (s *Service) SearchLeads(ctx context.Context, q search.Query) search.Response {
	return s.search.Search(ctx, q)
}

func (s *Service) AddLeadActivity(ctx context.Context, session Session, leadID string, input ActivityInput) (ActivityView, error) {
	if _, err := s.store.GetLead(ctx, leadID); err != nil {
		return ActivityView{}, err
	}
	activityType := strings.ToUpper(strings.TrimSpace(input.ActivityType))
	if _, ok := allowedActivityTypes[activityType]; !ok {
		return ActivityView{}, validationError("activityType is invalid")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return ActivityView{}, validationError("description is required")
	}
	item := store.LeadActivity{
		ID:           util.NewID("act"),
		LeadID:       leadID,
		ActivityType: activityType,
		Description:  description,
		Notes:        input.Notes,
	}
	if session.UserID != "" {
		item.UserID = &session.UserID
	}
	saved, err := s.store.InsertLeadActivity(ctx, item)
	if err != nil {
		return ActivityView{}, err
	}
	return activityView(saved), nil
}

func (s *Service) ListLeadActivities(ctx context.Context, leadID string) ([]ActivityView, error) {
	if _, err := s.store.GetLead(ctx, leadID); err != nil {
		return nil, err
	}
	items, err := s.store.ListLeadActivities(ctx, leadID)
	if err != nil {
		return nil, err
	}
	views := make([]ActivityView, 0, len(items))
	for _, item := range items {
		views = append(views, activityView(item))
	}
	return views, nil
}

func (s *Service) Overview(ctx context.Context) (OverviewView, error) {
	campaigns, err := s.store.ListCampaigns(ctx, store.CampaignFilter{})
	if err != nil {
		return OverviewView{}, err
	}
	return overviewView(rollup.Summarize(campaigns)), nil
}

func (s *Service) ListCampaigns(ctx context.Context, filter store.CampaignFilter) ([]CampaignView, error) {
	campaigns, err := s.store.ListCampaigns(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]CampaignView, 0, len(campaigns))
	for _, campaign := range campaigns {
		views = append(views, campaignView(campaign))
	}
	return views, nil
}

func (s *Service) CreateCampaign(ctx context.Context, session Session, input CampaignInput) (CampaignView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return CampaignView{}, validationError("name is required")
	}
	platform := strings.ToUpper(strings.TrimSpace(input.Platform))
	if _, ok := allowedPlatforms[platform]; !ok {
		return CampaignView{}, validationError("platform is invalid")
	}
	if input.Budget < 0 {
		return CampaignView{}, validationError("budget must not be negative")
	}
	if strings.TrimSpace(input.StartDate) == "" {
		return CampaignView{}, validationError("startDate is required")
	}
	start, err := parseDate(input.StartDate)
	if err != nil {
		return CampaignView{}, validationError("startDate must be a date")
	}
	end, err := parseOptionalDate(input.EndDate)
	if err != nil {
		return CampaignView{}, validationError("endDate must be a date")
	}
	campaignType := strings.ToUpper(strings.TrimSpace(input.CampaignType))
	if campaignType == "" {
		campaignType = "LEAD_GENERATION"
	}

	item := store.Campaign{
		ID:           util.NewID("cmp"),
		Name:         name,
		Platform:     platform,
		CampaignType: campaignType,
		Budget:       input.Budget,
		TargetArea:   cleanAreas(input.TargetArea),
		AdCopy:       input.AdCopy,
		ImageURL:     strings.TrimSpace(input.ImageURL),
		Status:       store.CampaignDraft,
		StartDate:    start,
		EndDate:      end,
	}
	if session.UserID != "" {
		item.UserID = &session.UserID
	}
	saved, err := s.store.InsertCampaign(ctx, item)
	if err != nil {
		return CampaignView{}, err
	}
	s.hook.CampaignChanged(ctx, nil, &saved)
	return campaignView(saved), nil
}

func (s *Service) UpdateCampaign(ctx context.Context, campaignID string, input CampaignUpdate) (CampaignView, error) {
	before, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return CampaignView{}, err
	}
	next := before
	next.TargetArea = slices.Clone(before.TargetArea)

	if input.Name != nil {
		next.Name = strings.TrimSpace(*input.Name)
		if next.Name == "" {
			return CampaignView{}, validationError("name must not be empty")
		}
	}
	if input.Platform != nil {
		platform := strings.ToUpper(strings.TrimSpace(*input.Platform))
		if _, ok := allowedPlatforms[platform]; !ok {
			return CampaignView{}, validationError("platform is invalid")
		}
		next.Platform = platform
	}
	if input.CampaignType != nil {
		next.CampaignType = strings.ToUpper(strings.TrimSpace(*input.CampaignType))
	}
	if input.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*input.Status))
		if _, ok := allowedCampaignStatuses[status]; !ok {
			return CampaignView{}, validationError("status is invalid")
		}
		next.Status = status
	}
	if input.Budget != nil {
		if *input.Budget < 0 {
			return CampaignView{}, validationError("budget must not be negative")
		}
		next.Budget = *input.Budget
	}
	if input.Spent != nil {
		if *input.Spent < 0 {
			return CampaignView{}, validationError("spent must not be negative")
		}
		next.Spent = *input.Spent
	}
	if input.Impressions != nil {
		next.Impressions = max(*input.Impressions, 0)
	}
	if input.Clicks != nil {
		next.Clicks = max(*input.Clicks, 0)
	}
	if input.TargetArea != nil {
		next.TargetArea = cleanAreas(*input.TargetArea)
	}
	if input.AdCopy != nil {
		next.AdCopy = *input.AdCopy
	}
	if input.ImageURL != nil {
		next.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.StartDate != nil {
		start, err := parseDate(*input.StartDate)
		if err != nil {
			return CampaignView{}, validationError("startDate must be a date")
		}
		next.StartDate = start
	}
	if input.EndDate != nil {
		end, err := parseOptionalDate(*input.EndDate)
		if err != nil {
			return CampaignView{}, validationError("endDate must be a date")
		}
		next.EndDate = end
	}

	after, err := s.store.UpdateCampaign(ctx, next)
	if err != nil {
		return CampaignView{}, err
	}
	s.hook.CampaignChanged(ctx, &before, &after)
	return campaignView(after), nil
}

func (s *Service) DeleteCampaign(ctx context.Context, campaignID string) error {
	before, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCampaign(ctx, campaignID); err != nil {
		return err
	}
	s.hook.CampaignChanged(ctx, &before, nil)
	return nil
}

func (s *Service) ListNeighborhoods(ctx context.Context) ([]PerformanceView, error) {
	rows, err := s.store.ListNeighborhoodPerformance(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]PerformanceView, 0, len(rows))
	for _, row := range rows {
		views = append(views, performanceView(row))
	}
	return views, nil
}

func (s *Service) GetNeighborhood(ctx context.Context, neighborhood, city, state string) (PerformanceView, error) {
	key := s.engine.Key(strings.TrimSpace(neighborhood), strings.TrimSpace(city), strings.TrimSpace(state))
	row, err := s.store.GetNeighborhoodPerformance(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PerformanceView{}, domainError(http.StatusNotFound, "NOT_FOUND", "Neighborhood performance not found", nil)
		}
		return PerformanceView{}, err
	}
	return performanceView(row), nil
}

func (s *Service) RecomputeNeighborhood(ctx context.Context, input RecomputeInput) (PerformanceView, error) {
	key := s.engine.Key(strings.TrimSpace(input.Neighborhood), strings.TrimSpace(input.City), strings.TrimSpace(input.State))
	if key.Neighborhood == "" || key.City == "" {
		return PerformanceView{}, validationError("neighborhood and city are required")
	}
	row, _, err := s.engine.Recompute(ctx, key)
	if err != nil {
		return PerformanceView{}, domainError(http.StatusBadGateway, "RECOMPUTE_FAILED", "Recompute failed", nil)
	}
	return performanceView(row), nil
}

func (s *Service) CreateBudgetPlan(ctx context.Context, session Session, input BudgetPlanInput) (BudgetPlanView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return BudgetPlanView{}, validationError("name is required")
	}
	for _, amount := range []float64{input.MonthlyBudget, input.NextdoorBudget, input.GoogleBudget, input.FacebookBudget, input.OtherBudget, input.ProjectedRevenue} {
		if amount < 0 {
			return BudgetPlanView{}, validationError("budget amounts must not be negative")
		}
	}
	start := s.now().UTC()
	if strings.TrimSpace(input.StartDate) != "" {
		parsed, err := parseDate(input.StartDate)
		if err != nil {
			return BudgetPlanView{}, validationError("startDate must be a date")
		}
		start = parsed
	}
	end, err := parseOptionalDate(input.EndDate)
	if err != nil {
		return BudgetPlanView{}, validationError("endDate must be a date")
	}

	projectedROI := 0.0
	if input.ProjectedROI != nil {
		projectedROI = *input.ProjectedROI
	} else if input.MonthlyBudget > 0 {
		projectedROI = input.ProjectedRevenue / input.MonthlyBudget
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}

	item := store.BudgetPlan{
		ID:               util.NewID("plan"),
		Name:             name,
		Tier:             strings.ToUpper(strings.TrimSpace(input.Tier)),
		MonthlyBudget:    input.MonthlyBudget,
		NextdoorBudget:   input.NextdoorBudget,
		GoogleBudget:     input.GoogleBudget,
		FacebookBudget:   input.FacebookBudget,
		OtherBudget:      input.OtherBudget,
		ProjectedLeads:   max(input.ProjectedLeads, 0),
		ProjectedRevenue: input.ProjectedRevenue,
		ProjectedROI:     projectedROI,
		Active:           active,
		StartDate:        start,
		EndDate:          end,
	}
	if session.UserID != "" {
		item.UserID = &session.UserID
	}
	saved, err := s.store.InsertBudgetPlan(ctx, item)
	if err != nil {
		return BudgetPlanView{}, err
	}
	return budgetPlanView(saved), nil
}

func (s *Service) ListBudgetPlans(ctx context.Context, userID string) ([]BudgetPlanView, error) {
	plans, err := s.store.ListBudgetPlans(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	views := make([]BudgetPlanView, 0, len(plans))
	for _, plan := range plans {
		views = append(views, budgetPlanView(plan))
	}
	return views, nil
}

// CaptureLead stores a lead submitted through the public form. The capture
// feed and the email notification are best effort.
func (s *Service) CaptureLead(ctx context.Context, input CaptureInput) (LeadView, error) {
	if strings.TrimSpace(input.Email) == "" && strings.TrimSpace(input.Phone) == "" {
		return LeadView{}, validationError("email or phone is required")
	}
	source := input.Source
	if strings.TrimSpace(source) == "" {
		source = "WEBSITE"
	}
	lead, err := s.newLead(LeadInput{
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Email:           input.Email,
		Phone:           input.Phone,
		Address:         input.Address,
		City:            input.City,
		State:           input.State,
		ZipCode:         input.ZipCode,
		Neighborhood:    input.Neighborhood,
		Source:          source,
		CampaignID:      &input.CampaignID,
		ServiceInterest: input.ServiceInterest,
		Notes:           input.Notes,
	})
	if err != nil {
		return LeadView{}, err
	}
	saved, err := s.createLead(ctx, lead)
	if err != nil {
		return LeadView{}, err
	}
	s.metrics.ObserveCapture(saved.Source)

	if s.capture != nil {
		entry := capture.Entry{
			ID:              saved.ID,
			FirstName:       saved.FirstName,
			LastName:        saved.LastName,
			Email:           saved.Email,
			Phone:           saved.Phone,
			Neighborhood:    saved.Neighborhood,
			City:            saved.City,
			State:           saved.State,
			Source:          saved.Source,
			ServiceInterest: saved.ServiceInterest,
			CapturedAt:      saved.CreatedAt,
		}
		if err := s.capture.Record(ctx, entry); err != nil {
			log.Printf("capture: record lead %s: %v", saved.ID, err)
		}
	}
	s.notifyLead(saved)
	return leadView(saved), nil
}

func (s *Service) notifyLead(lead store.Lead) {
	if s.notifier == nil || !s.notifier.IsConfigured() {
		return
	}
	data := email.LeadData{
		ID:              lead.ID,
		Name:            strings.TrimSpace(lead.FirstName + " " + lead.LastName),
		Email:           lead.Email,
		Phone:           lead.Phone,
		Address:         lead.Address,
		Neighborhood:    lead.Neighborhood,
		City:            lead.City,
		State:           lead.State,
		Source:          lead.Source,
		ServiceInterest: lead.ServiceInterest,
		Notes:           lead.Notes,
		ReceivedAt:      lead.CreatedAt,
	}
	go func() {
		if err := s.notifier.SendLeadNotification(data); err != nil {
			log.Printf("capture: notify lead %s: %v", data.ID, err)
		}
	}()
}

func (s *Service) RecentCaptures(ctx context.Context, source string, limit int) ([]capture.Entry, error) {
	if s.capture == nil {
		return nil, domainError(http.StatusServiceUnavailable, "CAPTURE_UNAVAILABLE", "Lead capture feed not configured", nil)
	}
	return s.capture.Recent(ctx, strings.ToUpper(strings.TrimSpace(source)), limit)
}

func (s *Service) Export(ctx context.Context, kind string) (export.Result, error) {
	parsed, ok := export.ParseKind(kind)
	if !ok {
		return export.Result{}, domainError(http.StatusNotFound, "NOT_FOUND", "Unknown export kind", nil)
	}
	if !s.exports.Available() {
		return export.Result{}, export.ErrUnavailable
	}
	switch parsed {
	case export.KindNeighborhoods:
		rows, err := s.store.ListNeighborhoodPerformance(ctx)
		if err != nil {
			return export.Result{}, err
		}
		return s.exports.ExportNeighborhoods(ctx, rows)
	default:
		leads, err := s.store.ListLeads(ctx, store.LeadFilter{})
		if err != nil {
			return export.Result{}, err
		}
		return s.exports.ExportLeads(ctx, leads)
	}
}

func setTrimmed(target *string, value *string) {
	if value != nil {
		*target = strings.TrimSpace(*value)
	}
}

func stampOnce(target **time.Time, now time.Time) {
	if *target == nil {
		*target = &now
	}
}

func optionalID(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// cleanAreas trims names and drops blanks and duplicates, keeping order.
func cleanAreas(areas []string) []string {
	cleaned := make([]string, 0, len(areas))
	for _, area := range areas {
		area = strings.TrimSpace(area)
		if area == "" || slices.Contains(cleaned, area) {
			continue
		}
		cleaned = append(cleaned, area)
	}
	return cleaned
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

func parseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
