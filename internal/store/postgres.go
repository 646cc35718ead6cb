package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// mapWriteError turns foreign-key violations into ErrInvalidReference and
// unique violations into ErrDuplicate.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		}
	}
	return err
}

func nonNilAreas(areas []string) []string {
	if areas == nil {
		return []string{}
	}
	return areas
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, role, created_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// EnsureUser inserts the user unless the email is already registered.
func (s *PostgresStore) EnsureUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`, user.ID, user.Email, user.Name, user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

const leadColumns = `
	l.id, l.first_name, l.last_name, l.email, l.phone, l.address, l.city, l.state, l.zip_code,
	l.neighborhood, l.source, l.source_neighborhood, l.campaign_id, l.service_interest,
	l.status, l.priority, l.estimated_value, l.actual_value, l.notes, l.user_id,
	l.contacted_at, l.quote_sent_at, l.conversion_date, l.created_at, l.updated_at,
	COALESCE(c.name, ''), COALESCE(c.platform, '')
`

const leadFrom = `FROM leads l LEFT JOIN campaigns c ON c.id = l.campaign_id`

func scanPostgresLead(row rowScanner) (Lead, error) {
	var item Lead
	err := row.Scan(
		&item.ID, &item.FirstName, &item.LastName, &item.Email, &item.Phone, &item.Address,
		&item.City, &item.State, &item.ZipCode, &item.Neighborhood, &item.Source,
		&item.SourceNeighborhood, &item.CampaignID, &item.ServiceInterest, &item.Status,
		&item.Priority, &item.EstimatedValue, &item.ActualValue, &item.Notes, &item.UserID,
		&item.ContactedAt, &item.QuoteSentAt, &item.ConversionDate, &item.CreatedAt, &item.UpdatedAt,
		&item.CampaignName, &item.CampaignPlatform,
	)
	return item, err
}

func (s *PostgresStore) queryLeads(ctx context.Context, label, where string, args ...any) ([]Lead, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+leadColumns+` `+leadFrom+` `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		item, err := scanPostgresLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]Lead, error) {
	var clauses []string
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("l.source", filter.Source)
	add("l.status", filter.Status)
	add("l.neighborhood", filter.Neighborhood)

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	return s.queryLeads(ctx, "list leads", where+" ORDER BY l.created_at DESC", args...)
}

func (s *PostgresStore) GetLead(ctx context.Context, leadID string) (Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` `+leadFrom+` WHERE l.id = $1`, leadID)
	item, err := scanPostgresLead(row)
	if err != nil {
		return Lead{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertLead(ctx context.Context, item Lead) (Lead, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (
			id, first_name, last_name, email, phone, address, city, state, zip_code,
			neighborhood, source, source_neighborhood, campaign_id, service_interest,
			status, priority, estimated_value, actual_value, notes, user_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		item.ID, item.FirstName, item.LastName, item.Email, item.Phone, item.Address, item.City,
		item.State, item.ZipCode, item.Neighborhood, item.Source, item.SourceNeighborhood,
		item.CampaignID, item.ServiceInterest, item.Status, item.Priority, item.EstimatedValue,
		item.ActualValue, item.Notes, item.UserID,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("insert lead: %w", mapWriteError(err))
	}
	return s.GetLead(ctx, item.ID)
}

// UpdateLead overwrites every mutable column of the lead.
func (s *PostgresStore) UpdateLead(ctx context.Context, item Lead) (Lead, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE leads
		SET first_name=$2, last_name=$3, email=$4, phone=$5, address=$6, city=$7, state=$8,
			zip_code=$9, neighborhood=$10, source=$11, source_neighborhood=$12, campaign_id=$13,
			service_interest=$14, status=$15, priority=$16, estimated_value=$17, actual_value=$18,
			notes=$19, contacted_at=$20, quote_sent_at=$21, conversion_date=$22, updated_at=NOW()
		WHERE id=$1
	`,
		item.ID, item.FirstName, item.LastName, item.Email, item.Phone, item.Address, item.City,
		item.State, item.ZipCode, item.Neighborhood, item.Source, item.SourceNeighborhood,
		item.CampaignID, item.ServiceInterest, item.Status, item.Priority, item.EstimatedValue,
		item.ActualValue, item.Notes, item.ContactedAt, item.QuoteSentAt, item.ConversionDate,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("update lead: %w", mapWriteError(err))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return Lead{}, sql.ErrNoRows
	}
	return s.GetLead(ctx, item.ID)
}

func (s *PostgresStore) ListLeadsByKey(ctx context.Context, key NeighborhoodKey) ([]Lead, error) {
	return s.queryLeads(ctx, "list leads by neighborhood",
		`WHERE l.neighborhood = $1 AND l.city = $2 AND l.state = $3 ORDER BY l.created_at`,
		key.Neighborhood, key.City, key.State)
}

func (s *PostgresStore) ListLeadsByCampaign(ctx context.Context, campaignID string) ([]Lead, error) {
	return s.queryLeads(ctx, "list leads by campaign",
		`WHERE l.campaign_id = $1 ORDER BY l.created_at`, campaignID)
}

func (s *PostgresStore) SearchLeads(ctx context.Context, query string, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	return s.queryLeads(ctx, "search leads", `
		WHERE l.first_name ILIKE $1 OR l.last_name ILIKE $1 OR l.email ILIKE $1
			OR l.phone ILIKE $1 OR l.neighborhood ILIKE $1 OR l.city ILIKE $1
			OR (l.first_name || ' ' || l.last_name) ILIKE $1
		ORDER BY l.created_at DESC
		LIMIT `+fmt.Sprint(limit), pattern)
}

func (s *PostgresStore) CountLeads(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) InsertLeadActivity(ctx context.Context, item LeadActivity) (LeadActivity, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO lead_activities (id, lead_id, activity_type, description, notes, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, item.ID, item.LeadID, item.ActivityType, item.Description, item.Notes, item.UserID).Scan(&item.CreatedAt)
	if err != nil {
		return LeadActivity{}, fmt.Errorf("insert lead activity: %w", mapWriteError(err))
	}
	return item, nil
}

func (s *PostgresStore) ListLeadActivities(ctx context.Context, leadID string) ([]LeadActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lead_id, activity_type, description, notes, user_id, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead activities: %w", err)
	}
	defer rows.Close()

	items := make([]LeadActivity, 0)
	for rows.Next() {
		var item LeadActivity
		if err := rows.Scan(&item.ID, &item.LeadID, &item.ActivityType, &item.Description, &item.Notes, &item.UserID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead activity: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lead activities: %w", err)
	}
	return items, nil
}

const campaignColumns = `
	c.id, c.name, c.platform, c.campaign_type, c.budget, c.spent, c.revenue, c.impressions,
	c.clicks, c.leads, c.conversions, c.target_area, c.ad_copy, c.image_url, c.status,
	c.start_date, c.end_date, c.user_id, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM leads l WHERE l.campaign_id = c.id)
`

func scanPostgresCampaign(row rowScanner) (Campaign, error) {
	var item Campaign
	err := row.Scan(
		&item.ID, &item.Name, &item.Platform, &item.CampaignType, &item.Budget, &item.Spent,
		&item.Revenue, &item.Impressions, &item.Clicks, &item.Leads, &item.Conversions,
		pq.Array(&item.TargetArea), &item.AdCopy, &item.ImageURL, &item.Status, &item.StartDate,
		&item.EndDate, &item.UserID, &item.CreatedAt, &item.UpdatedAt, &item.LeadRecords,
	)
	return item, err
}

func (s *PostgresStore) queryCampaigns(ctx context.Context, label, where string, args ...any) ([]Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns c `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	defer rows.Close()

	items := make([]Campaign, 0)
	for rows.Next() {
		item, err := scanPostgresCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]Campaign, error) {
	var clauses []string
	var args []any
	if filter.Platform != "" {
		args = append(args, filter.Platform)
		clauses = append(clauses, fmt.Sprintf("c.platform = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("c.status = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	return s.queryCampaigns(ctx, "list campaigns", where+" ORDER BY c.created_at DESC", args...)
}

// ListCampaignsTargeting returns campaigns whose target area contains the neighborhood.
func (s *PostgresStore) ListCampaignsTargeting(ctx context.Context, neighborhood string) ([]Campaign, error) {
	return s.queryCampaigns(ctx, "list campaigns by target area",
		`WHERE $1 = ANY(c.target_area) ORDER BY c.created_at`, neighborhood)
}

func (s *PostgresStore) GetCampaign(ctx context.Context, campaignID string) (Campaign, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns c WHERE c.id = $1`, campaignID)
	item, err := scanPostgresCampaign(row)
	if err != nil {
		return Campaign{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertCampaign(ctx context.Context, item Campaign) (Campaign, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns (
			id, name, platform, campaign_type, budget, spent, revenue, impressions, clicks,
			leads, conversions, target_area, ad_copy, image_url, status, start_date, end_date, user_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		item.ID, item.Name, item.Platform, item.CampaignType, item.Budget, item.Spent, item.Revenue,
		item.Impressions, item.Clicks, item.Leads, item.Conversions, nonNilAreas(item.TargetArea),
		item.AdCopy, item.ImageURL, item.Status, item.StartDate, item.EndDate, item.UserID,
	)
	if err != nil {
		return Campaign{}, fmt.Errorf("insert campaign: %w", mapWriteError(err))
	}
	return s.GetCampaign(ctx, item.ID)
}

// UpdateCampaign overwrites the user-editable columns. The derived lead
// counters are owned by UpdateCampaignCounters.
func (s *PostgresStore) UpdateCampaign(ctx context.Context, item Campaign) (Campaign, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET name=$2, platform=$3, campaign_type=$4, budget=$5, spent=$6, impressions=$7, clicks=$8,
			target_area=$9, ad_copy=$10, image_url=$11, status=$12, start_date=$13, end_date=$14,
			updated_at=NOW()
		WHERE id=$1
	`,
		item.ID, item.Name, item.Platform, item.CampaignType, item.Budget, item.Spent,
		item.Impressions, item.Clicks, nonNilAreas(item.TargetArea), item.AdCopy, item.ImageURL,
		item.Status, item.StartDate, item.EndDate,
	)
	if err != nil {
		return Campaign{}, fmt.Errorf("update campaign: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return Campaign{}, sql.ErrNoRows
	}
	return s.GetCampaign(ctx, item.ID)
}

func (s *PostgresStore) UpdateCampaignCounters(ctx context.Context, campaignID string, leads, conversions int, revenue float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET leads=$2, conversions=$3, revenue=$4, updated_at=NOW()
		WHERE id=$1
	`, campaignID, leads, conversions, revenue)
	if err != nil {
		return fmt.Errorf("update campaign counters: %w", err)
	}
	return nil
}

// DeleteCampaign removes the campaign; leads keep their rows with the
// reference cleared by the foreign key.
func (s *PostgresStore) DeleteCampaign(ctx context.Context, campaignID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1`, campaignID)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const performanceColumns = `
	neighborhood, city, state, total_leads, total_campaigns, total_spent, total_revenue,
	avg_cost_per_lead, conversion_rate, roi, last_updated
`

func scanPerformance(row rowScanner, item *NeighborhoodPerformance) error {
	return row.Scan(
		&item.Neighborhood, &item.City, &item.State, &item.TotalLeads, &item.TotalCampaigns,
		&item.TotalSpent, &item.TotalRevenue, &item.AvgCostPerLead, &item.ConversionRate,
		&item.ROI, &item.LastUpdated,
	)
}

// UpsertNeighborhoodPerformance writes the row atomically per key.
func (s *PostgresStore) UpsertNeighborhoodPerformance(ctx context.Context, item NeighborhoodPerformance) (NeighborhoodPerformance, error) {
	var saved NeighborhoodPerformance
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO neighborhood_performance (
			neighborhood, city, state, total_leads, total_campaigns, total_spent, total_revenue,
			avg_cost_per_lead, conversion_rate, roi, last_updated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (neighborhood, city, state) DO UPDATE SET
			total_leads=EXCLUDED.total_leads,
			total_campaigns=EXCLUDED.total_campaigns,
			total_spent=EXCLUDED.total_spent,
			total_revenue=EXCLUDED.total_revenue,
			avg_cost_per_lead=EXCLUDED.avg_cost_per_lead,
			conversion_rate=EXCLUDED.conversion_rate,
			roi=EXCLUDED.roi,
			last_updated=EXCLUDED.last_updated
		RETURNING `+performanceColumns,
		item.Neighborhood, item.City, item.State, item.TotalLeads, item.TotalCampaigns,
		item.TotalSpent, item.TotalRevenue, item.AvgCostPerLead, item.ConversionRate, item.ROI,
		item.LastUpdated,
	)
	if err := scanPerformance(row, &saved); err != nil {
		return NeighborhoodPerformance{}, fmt.Errorf("upsert neighborhood performance: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) ListNeighborhoodPerformance(ctx context.Context) ([]NeighborhoodPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+performanceColumns+`
		FROM neighborhood_performance
		ORDER BY roi DESC, neighborhood, city, state
	`)
	if err != nil {
		return nil, fmt.Errorf("list neighborhood performance: %w", err)
	}
	defer rows.Close()

	items := make([]NeighborhoodPerformance, 0)
	for rows.Next() {
		var item NeighborhoodPerformance
		if err := scanPerformance(rows, &item); err != nil {
			return nil, fmt.Errorf("scan neighborhood performance: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighborhood performance: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetNeighborhoodPerformance(ctx context.Context, key NeighborhoodKey) (NeighborhoodPerformance, error) {
	var item NeighborhoodPerformance
	row := s.db.QueryRowContext(ctx, `
		SELECT `+performanceColumns+`
		FROM neighborhood_performance
		WHERE neighborhood = $1 AND city = $2 AND state = $3
	`, key.Neighborhood, key.City, key.State)
	if err := scanPerformance(row, &item); err != nil {
		return NeighborhoodPerformance{}, err
	}
	return item, nil
}

// ListPerformanceKeys returns the keys of existing rows for any of the neighborhoods.
func (s *PostgresStore) ListPerformanceKeys(ctx context.Context, neighborhoods []string) ([]NeighborhoodKey, error) {
	if len(neighborhoods) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT neighborhood, city, state
		FROM neighborhood_performance
		WHERE neighborhood = ANY($1)
		ORDER BY neighborhood, city, state
	`, neighborhoods)
	if err != nil {
		return nil, fmt.Errorf("list performance keys: %w", err)
	}
	defer rows.Close()

	keys := make([]NeighborhoodKey, 0)
	for rows.Next() {
		var key NeighborhoodKey
		if err := rows.Scan(&key.Neighborhood, &key.City, &key.State); err != nil {
			return nil, fmt.Errorf("scan performance key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performance keys: %w", err)
	}
	return keys, nil
}

const budgetPlanColumns = `
	id, name, tier, monthly_budget, nextdoor_budget, google_budget, facebook_budget,
	other_budget, projected_leads, projected_revenue, projected_roi, active, start_date,
	end_date, user_id, created_at
`

func scanBudgetPlan(row rowScanner, item *BudgetPlan) error {
	return row.Scan(
		&item.ID, &item.Name, &item.Tier, &item.MonthlyBudget, &item.NextdoorBudget,
		&item.GoogleBudget, &item.FacebookBudget, &item.OtherBudget, &item.ProjectedLeads,
		&item.ProjectedRevenue, &item.ProjectedROI, &item.Active, &item.StartDate, &item.EndDate,
		&item.UserID, &item.CreatedAt,
	)
}

// InsertBudgetPlan stores the plan. An active plan deactivates the owner's
// other active plans in the same transaction.
func (s *PostgresStore) InsertBudgetPlan(ctx context.Context, item BudgetPlan) (BudgetPlan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BudgetPlan{}, fmt.Errorf("begin budget plan tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if item.Active {
		if _, err := tx.ExecContext(ctx, `
			UPDATE budget_plans SET active = FALSE
			WHERE active = TRUE AND user_id IS NOT DISTINCT FROM $1
		`, item.UserID); err != nil {
			return BudgetPlan{}, fmt.Errorf("deactivate budget plans: %w", err)
		}
	}

	var saved BudgetPlan
	row := tx.QueryRowContext(ctx, `
		INSERT INTO budget_plans (
			id, name, tier, monthly_budget, nextdoor_budget, google_budget, facebook_budget,
			other_budget, projected_leads, projected_revenue, projected_roi, active, start_date,
			end_date, user_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+budgetPlanColumns,
		item.ID, item.Name, item.Tier, item.MonthlyBudget, item.NextdoorBudget, item.GoogleBudget,
		item.FacebookBudget, item.OtherBudget, item.ProjectedLeads, item.ProjectedRevenue,
		item.ProjectedROI, item.Active, item.StartDate, item.EndDate, item.UserID,
	)
	if err := scanBudgetPlan(row, &saved); err != nil {
		return BudgetPlan{}, fmt.Errorf("insert budget plan: %w", mapWriteError(err))
	}
	if err := tx.Commit(); err != nil {
		return BudgetPlan{}, fmt.Errorf("commit budget plan: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) ListBudgetPlans(ctx context.Context, userID string) ([]BudgetPlan, error) {
	query := `SELECT ` + budgetPlanColumns + ` FROM budget_plans`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list budget plans: %w", err)
	}
	defer rows.Close()

	items := make([]BudgetPlan, 0)
	for rows.Next() {
		var item BudgetPlan
		if err := scanBudgetPlan(rows, &item); err != nil {
			return nil, fmt.Errorf("scan budget plan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget plans: %w", err)
	}
	return items, nil
}
