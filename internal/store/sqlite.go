package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SQLiteSchema mirrors db/migrations for the embedded driver. Timestamps are
// stored as fixed-width UTC text so they sort lexically; target areas are JSON arrays.
const SQLiteSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE COLLATE NOCASE,
	name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'viewer' CHECK (role IN ('viewer', 'marketer', 'admin')),
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS campaigns (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	platform TEXT NOT NULL,
	campaign_type TEXT NOT NULL DEFAULT '',
	budget REAL NOT NULL DEFAULT 0,
	spent REAL NOT NULL DEFAULT 0,
	revenue REAL NOT NULL DEFAULT 0,
	impressions INTEGER NOT NULL DEFAULT 0,
	clicks INTEGER NOT NULL DEFAULT 0,
	leads INTEGER NOT NULL DEFAULT 0,
	conversions INTEGER NOT NULL DEFAULT 0,
	target_area TEXT NOT NULL DEFAULT '[]',
	ad_copy TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'DRAFT' CHECK (status IN ('DRAFT', 'ACTIVE', 'PAUSED', 'COMPLETED')),
	start_date TEXT NOT NULL,
	end_date TEXT,
	user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT 'GA',
	zip_code TEXT NOT NULL DEFAULT '',
	neighborhood TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	source_neighborhood TEXT NOT NULL DEFAULT '',
	campaign_id TEXT REFERENCES campaigns(id) ON DELETE SET NULL,
	service_interest TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'NEW' CHECK (status IN ('NEW', 'CONTACTED', 'QUALIFIED', 'QUOTE_SENT', 'WON', 'LOST')),
	priority TEXT NOT NULL DEFAULT 'MEDIUM',
	estimated_value REAL,
	actual_value REAL,
	notes TEXT NOT NULL DEFAULT '',
	user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
	contacted_at TEXT,
	quote_sent_at TEXT,
	conversion_date TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_neighborhood_key ON leads (neighborhood, city, state);
CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads (campaign_id);

CREATE TABLE IF NOT EXISTS lead_activities (
	id TEXT PRIMARY KEY,
	lead_id TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	activity_type TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS neighborhood_performance (
	neighborhood TEXT NOT NULL,
	city TEXT NOT NULL,
	state TEXT NOT NULL,
	total_leads INTEGER NOT NULL DEFAULT 0,
	total_campaigns INTEGER NOT NULL DEFAULT 0,
	total_spent REAL NOT NULL DEFAULT 0,
	total_revenue REAL NOT NULL DEFAULT 0,
	avg_cost_per_lead REAL NOT NULL DEFAULT 0,
	conversion_rate REAL NOT NULL DEFAULT 0,
	roi REAL NOT NULL DEFAULT 0,
	last_updated TEXT NOT NULL,
	PRIMARY KEY (neighborhood, city, state)
);

CREATE TABLE IF NOT EXISTS budget_plans (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	tier TEXT NOT NULL DEFAULT '',
	monthly_budget REAL NOT NULL DEFAULT 0,
	nextdoor_budget REAL NOT NULL DEFAULT 0,
	google_budget REAL NOT NULL DEFAULT 0,
	facebook_budget REAL NOT NULL DEFAULT 0,
	other_budget REAL NOT NULL DEFAULT 0,
	projected_leads INTEGER NOT NULL DEFAULT 0,
	projected_revenue REAL NOT NULL DEFAULT 0,
	projected_roi REAL NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 0,
	start_date TEXT NOT NULL,
	end_date TEXT,
	user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL,
	project_type TEXT NOT NULL CHECK (project_type IN ('SINGLE_FAMILY', 'MULTI_FAMILY', 'COMMERCIAL', 'INDUSTRIAL', 'RENOVATION')),
	status TEXT NOT NULL DEFAULT 'PLANNING' CHECK (status IN ('LEAD', 'PLANNING', 'IN_PROGRESS', 'COMPLETED', 'ON_HOLD')),
	lead_id TEXT REFERENCES leads(id) ON DELETE SET NULL,
	user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS materials (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	unit TEXT NOT NULL,
	cost_per_unit REAL NOT NULL DEFAULT 0 CHECK (cost_per_unit >= 0),
	supplier TEXT NOT NULL DEFAULT '',
	sku TEXT NOT NULL DEFAULT '',
	is_green INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS material_prices (
	id TEXT PRIMARY KEY,
	material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
	price REAL NOT NULL CHECK (price >= 0),
	source TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS estimates (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'DRAFT' CHECK (status IN ('DRAFT', 'SENT', 'APPROVED', 'REJECTED')),
	labor_cost REAL NOT NULL DEFAULT 0,
	markup_percent REAL NOT NULL DEFAULT 0,
	tax_percent REAL NOT NULL DEFAULT 0,
	material_cost REAL NOT NULL DEFAULT 0,
	subtotal REAL NOT NULL DEFAULT 0,
	markup_amount REAL NOT NULL DEFAULT 0,
	tax_amount REAL NOT NULL DEFAULT 0,
	total_cost REAL NOT NULL DEFAULT 0,
	user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS estimate_line_items (
	id TEXT PRIMARY KEY,
	estimate_id TEXT NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
	material_id TEXT REFERENCES materials(id) ON DELETE SET NULL,
	description TEXT NOT NULL DEFAULT '',
	quantity REAL NOT NULL CHECK (quantity > 0),
	unit_cost REAL NOT NULL CHECK (unit_cost >= 0),
	total REAL NOT NULL DEFAULT 0,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
`

const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// CreateSchema creates every table that does not exist yet.
func (s *SQLiteStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) timestamp() string {
	return formatSQLiteTime(s.now())
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func sqliteNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatSQLiteTime(*t)
}

func parseSQLiteTime(value string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse sqlite time %q", value)
}

// timeText scans a text timestamp column into a time.Time.
type timeText struct{ dst *time.Time }

func (t timeText) Scan(src any) error {
	switch value := src.(type) {
	case nil:
		*t.dst = time.Time{}
		return nil
	case time.Time:
		*t.dst = value.UTC()
		return nil
	case string:
		parsed, err := parseSQLiteTime(value)
		*t.dst = parsed
		return err
	case []byte:
		parsed, err := parseSQLiteTime(string(value))
		*t.dst = parsed
		return err
	}
	return fmt.Errorf("unsupported time value %T", src)
}

// nullTimeText scans a nullable text timestamp column.
type nullTimeText struct{ dst **time.Time }

func (t nullTimeText) Scan(src any) error {
	if src == nil {
		*t.dst = nil
		return nil
	}
	var parsed time.Time
	if err := (timeText{dst: &parsed}).Scan(src); err != nil {
		return err
	}
	*t.dst = &parsed
	return nil
}

// jsonStrings scans a JSON array column into a string slice.
type jsonStrings struct{ dst *[]string }

func (j jsonStrings) Scan(src any) error {
	var raw []byte
	switch value := src.(type) {
	case nil:
		*j.dst = []string{}
		return nil
	case string:
		raw = []byte(value)
	case []byte:
		raw = value
	default:
		return fmt.Errorf("unsupported target area value %T", src)
	}
	items := []string{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decode target area: %w", err)
	}
	*j.dst = items
	return nil
}

func encodeAreas(areas []string) (string, error) {
	encoded, err := json.Marshal(nonNilAreas(areas))
	if err != nil {
		return "", fmt.Errorf("encode target area: %w", err)
	}
	return string(encoded), nil
}

func mapSQLiteWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case strings.Contains(err.Error(), "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, role, created_at FROM users `+where, arg,
	).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, timeText{&user.CreatedAt})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return s.getUser(ctx, `WHERE id = ?`, userID)
}

func (s *SQLiteStore) EnsureUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING
	`, user.ID, user.Email, user.Name, user.PasswordHash, user.Role, s.timestamp())
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func scanSQLiteLead(row rowScanner) (Lead, error) {
	var item Lead
	err := row.Scan(
		&item.ID, &item.FirstName, &item.LastName, &item.Email, &item.Phone, &item.Address,
		&item.City, &item.State, &item.ZipCode, &item.Neighborhood, &item.Source,
		&item.SourceNeighborhood, &item.CampaignID, &item.ServiceInterest, &item.Status,
		&item.Priority, &item.EstimatedValue, &item.ActualValue, &item.Notes, &item.UserID,
		nullTimeText{&item.ContactedAt}, nullTimeText{&item.QuoteSentAt},
		nullTimeText{&item.ConversionDate}, timeText{&item.CreatedAt}, timeText{&item.UpdatedAt},
		&item.CampaignName, &item.CampaignPlatform,
	)
	return item, err
}

func (s *SQLiteStore) queryLeads(ctx context.Context, label, where string, args ...any) ([]Lead, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+leadColumns+` `+leadFrom+` `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		item, err := scanSQLiteLead(rows)
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

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]Lead, error) {
	var clauses []string
	var args []any
	for _, f := range []struct{ column, value string }{
		{"l.source", filter.Source},
		{"l.status", filter.Status},
		{"l.neighborhood", filter.Neighborhood},
	} {
		if f.value != "" {
			clauses = append(clauses, f.column+" = ?")
			args = append(args, f.value)
		}
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	return s.queryLeads(ctx, "list leads", where+" ORDER BY l.created_at DESC, l.rowid DESC", args...)
}

func (s *SQLiteStore) GetLead(ctx context.Context, leadID string) (Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` `+leadFrom+` WHERE l.id = ?`, leadID)
	return scanSQLiteLead(row)
}

func (s *SQLiteStore) InsertLead(ctx context.Context, item Lead) (Lead, error) {
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (
			id, first_name, last_name, email, phone, address, city, state, zip_code,
			neighborhood, source, source_neighborhood, campaign_id, service_interest,
			status, priority, estimated_value, actual_value, notes, user_id, created_at, updated_at
		)
		VALUES (`+placeholders(22)+`)
	`,
		item.ID, item.FirstName, item.LastName, item.Email, item.Phone, item.Address, item.City,
		item.State, item.ZipCode, item.Neighborhood, item.Source, item.SourceNeighborhood,
		item.CampaignID, item.ServiceInterest, item.Status, item.Priority, item.EstimatedValue,
		item.ActualValue, item.Notes, item.UserID, now, now,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("insert lead: %w", mapSQLiteWriteError(err))
	}
	return s.GetLead(ctx, item.ID)
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, item Lead) (Lead, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE leads
		SET first_name=?, last_name=?, email=?, phone=?, address=?, city=?, state=?, zip_code=?,
			neighborhood=?, source=?, source_neighborhood=?, campaign_id=?, service_interest=?,
			status=?, priority=?, estimated_value=?, actual_value=?, notes=?, contacted_at=?,
			quote_sent_at=?, conversion_date=?, updated_at=?
		WHERE id=?
	`,
		item.FirstName, item.LastName, item.Email, item.Phone, item.Address, item.City, item.State,
		item.ZipCode, item.Neighborhood, item.Source, item.SourceNeighborhood, item.CampaignID,
		item.ServiceInterest, item.Status, item.Priority, item.EstimatedValue, item.ActualValue,
		item.Notes, sqliteNullTime(item.ContactedAt), sqliteNullTime(item.QuoteSentAt),
		sqliteNullTime(item.ConversionDate), s.timestamp(), item.ID,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("update lead: %w", mapSQLiteWriteError(err))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return Lead{}, sql.ErrNoRows
	}
	return s.GetLead(ctx, item.ID)
}

func (s *SQLiteStore) ListLeadsByKey(ctx context.Context, key NeighborhoodKey) ([]Lead, error) {
	return s.queryLeads(ctx, "list leads by neighborhood",
		`WHERE l.neighborhood = ? AND l.city = ? AND l.state = ? ORDER BY l.created_at, l.rowid`,
		key.Neighborhood, key.City, key.State)
}

func (s *SQLiteStore) ListLeadsByCampaign(ctx context.Context, campaignID string) ([]Lead, error) {
	return s.queryLeads(ctx, "list leads by campaign",
		`WHERE l.campaign_id = ? ORDER BY l.created_at, l.rowid`, campaignID)
}

func (s *SQLiteStore) SearchLeads(ctx context.Context, query string, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	return s.queryLeads(ctx, "search leads", `
		WHERE l.first_name LIKE ?1 OR l.last_name LIKE ?1 OR l.email LIKE ?1
			OR l.phone LIKE ?1 OR l.neighborhood LIKE ?1 OR l.city LIKE ?1
			OR (l.first_name || ' ' || l.last_name) LIKE ?1
		ORDER BY l.created_at DESC, l.rowid DESC
		LIMIT ?2
	`, pattern, limit)
}

func (s *SQLiteStore) CountLeads(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) InsertLeadActivity(ctx context.Context, item LeadActivity) (LeadActivity, error) {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lead_activities (id, lead_id, activity_type, description, notes, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.LeadID, item.ActivityType, item.Description, item.Notes, item.UserID, formatSQLiteTime(now))
	if err != nil {
		return LeadActivity{}, fmt.Errorf("insert lead activity: %w", mapSQLiteWriteError(err))
	}
	item.CreatedAt = now.UTC()
	return item, nil
}

func (s *SQLiteStore) ListLeadActivities(ctx context.Context, leadID string) ([]LeadActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lead_id, activity_type, description, notes, user_id, created_at
		FROM lead_activities
		WHERE lead_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead activities: %w", err)
	}
	defer rows.Close()

	items := make([]LeadActivity, 0)
	for rows.Next() {
		var item LeadActivity
		if err := rows.Scan(&item.ID, &item.LeadID, &item.ActivityType, &item.Description, &item.Notes, &item.UserID, timeText{&item.CreatedAt}); err != nil {
			return nil, fmt.Errorf("scan lead activity: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lead activities: %w", err)
	}
	return items, nil
}

func scanSQLiteCampaign(row rowScanner) (Campaign, error) {
	var item Campaign
	err := row.Scan(
		&item.ID, &item.Name, &item.Platform, &item.CampaignType, &item.Budget, &item.Spent,
		&item.Revenue, &item.Impressions, &item.Clicks, &item.Leads, &item.Conversions,
		jsonStrings{&item.TargetArea}, &item.AdCopy, &item.ImageURL, &item.Status,
		timeText{&item.StartDate}, nullTimeText{&item.EndDate}, &item.UserID,
		timeText{&item.CreatedAt}, timeText{&item.UpdatedAt}, &item.LeadRecords,
	)
	return item, err
}

func (s *SQLiteStore) queryCampaigns(ctx context.Context, label, where string, args ...any) ([]Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns c `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	defer rows.Close()

	items := make([]Campaign, 0)
	for rows.Next() {
		item, err := scanSQLiteCampaign(rows)
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

func (s *SQLiteStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]Campaign, error) {
	var clauses []string
	var args []any
	if filter.Platform != "" {
		clauses = append(clauses, "c.platform = ?")
		args = append(args, filter.Platform)
	}
	if filter.Status != "" {
		clauses = append(clauses, "c.status = ?")
		args = append(args, filter.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	return s.queryCampaigns(ctx, "list campaigns", where+" ORDER BY c.created_at DESC, c.rowid DESC", args...)
}

func (s *SQLiteStore) ListCampaignsTargeting(ctx context.Context, neighborhood string) ([]Campaign, error) {
	return s.queryCampaigns(ctx, "list campaigns by target area", `
		WHERE EXISTS (SELECT 1 FROM json_each(c.target_area) WHERE json_each.value = ?)
		ORDER BY c.created_at, c.rowid
	`, neighborhood)
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, campaignID string) (Campaign, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns c WHERE c.id = ?`, campaignID)
	return scanSQLiteCampaign(row)
}

func (s *SQLiteStore) InsertCampaign(ctx context.Context, item Campaign) (Campaign, error) {
	areas, err := encodeAreas(item.TargetArea)
	if err != nil {
		return Campaign{}, err
	}
	now := s.timestamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaigns (
			id, name, platform, campaign_type, budget, spent, revenue, impressions, clicks,
			leads, conversions, target_area, ad_copy, image_url, status, start_date, end_date,
			user_id, created_at, updated_at
		)
		VALUES (`+placeholders(20)+`)
	`,
		item.ID, item.Name, item.Platform, item.CampaignType, item.Budget, item.Spent, item.Revenue,
		item.Impressions, item.Clicks, item.Leads, item.Conversions, areas, item.AdCopy,
		item.ImageURL, item.Status, formatSQLiteTime(item.StartDate), sqliteNullTime(item.EndDate),
		item.UserID, now, now,
	)
	if err != nil {
		return Campaign{}, fmt.Errorf("insert campaign: %w", mapSQLiteWriteError(err))
	}
	return s.GetCampaign(ctx, item.ID)
}

func (s *SQLiteStore) UpdateCampaign(ctx context.Context, item Campaign) (Campaign, error) {
	areas, err := encodeAreas(item.TargetArea)
	if err != nil {
		return Campaign{}, err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET name=?, platform=?, campaign_type=?, budget=?, spent=?, impressions=?, clicks=?,
			target_area=?, ad_copy=?, image_url=?, status=?, start_date=?, end_date=?, updated_at=?
		WHERE id=?
	`,
		item.Name, item.Platform, item.CampaignType, item.Budget, item.Spent, item.Impressions,
		item.Clicks, areas, item.AdCopy, item.ImageURL, item.Status,
		formatSQLiteTime(item.StartDate), sqliteNullTime(item.EndDate), s.timestamp(), item.ID,
	)
	if err != nil {
		return Campaign{}, fmt.Errorf("update campaign: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return Campaign{}, sql.ErrNoRows
	}
	return s.GetCampaign(ctx, item.ID)
}

func (s *SQLiteStore) UpdateCampaignCounters(ctx context.Context, campaignID string, leads, conversions int, revenue float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE campaigns SET leads=?, conversions=?, revenue=?, updated_at=? WHERE id=?
	`, leads, conversions, revenue, s.timestamp(), campaignID)
	if err != nil {
		return fmt.Errorf("update campaign counters: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteCampaign(ctx context.Context, campaignID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id=?`, campaignID)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanSQLitePerformance(row rowScanner, item *NeighborhoodPerformance) error {
	return row.Scan(
		&item.Neighborhood, &item.City, &item.State, &item.TotalLeads, &item.TotalCampaigns,
		&item.TotalSpent, &item.TotalRevenue, &item.AvgCostPerLead, &item.ConversionRate,
		&item.ROI, timeText{&item.LastUpdated},
	)
}

func (s *SQLiteStore) UpsertNeighborhoodPerformance(ctx context.Context, item NeighborhoodPerformance) (NeighborhoodPerformance, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO neighborhood_performance (
			neighborhood, city, state, total_leads, total_campaigns, total_spent, total_revenue,
			avg_cost_per_lead, conversion_rate, roi, last_updated
		)
		VALUES (`+placeholders(11)+`)
		ON CONFLICT (neighborhood, city, state) DO UPDATE SET
			total_leads=excluded.total_leads,
			total_campaigns=excluded.total_campaigns,
			total_spent=excluded.total_spent,
			total_revenue=excluded.total_revenue,
			avg_cost_per_lead=excluded.avg_cost_per_lead,
			conversion_rate=excluded.conversion_rate,
			roi=excluded.roi,
			last_updated=excluded.last_updated
	`,
		item.Neighborhood, item.City, item.State, item.TotalLeads, item.TotalCampaigns,
		item.TotalSpent, item.TotalRevenue, item.AvgCostPerLead, item.ConversionRate, item.ROI,
		formatSQLiteTime(item.LastUpdated),
	)
	if err != nil {
		return NeighborhoodPerformance{}, fmt.Errorf("upsert neighborhood performance: %w", err)
	}
	return s.GetNeighborhoodPerformance(ctx, item.Key())
}

func (s *SQLiteStore) ListNeighborhoodPerformance(ctx context.Context) ([]NeighborhoodPerformance, error) {
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
		if err := scanSQLitePerformance(rows, &item); err != nil {
			return nil, fmt.Errorf("scan neighborhood performance: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighborhood performance: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) GetNeighborhoodPerformance(ctx context.Context, key NeighborhoodKey) (NeighborhoodPerformance, error) {
	var item NeighborhoodPerformance
	row := s.db.QueryRowContext(ctx, `
		SELECT `+performanceColumns+`
		FROM neighborhood_performance
		WHERE neighborhood = ? AND city = ? AND state = ?
	`, key.Neighborhood, key.City, key.State)
	if err := scanSQLitePerformance(row, &item); err != nil {
		return NeighborhoodPerformance{}, err
	}
	return item, nil
}

func (s *SQLiteStore) ListPerformanceKeys(ctx context.Context, neighborhoods []string) ([]NeighborhoodKey, error) {
	if len(neighborhoods) == 0 {
		return nil, nil
	}
	args := make([]any, len(neighborhoods))
	for i, name := range neighborhoods {
		args[i] = name
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT neighborhood, city, state
		FROM neighborhood_performance
		WHERE neighborhood IN (`+placeholders(len(args))+`)
		ORDER BY neighborhood, city, state
	`, args...)
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

func scanSQLiteBudgetPlan(row rowScanner, item *BudgetPlan) error {
	return row.Scan(
		&item.ID, &item.Name, &item.Tier, &item.MonthlyBudget, &item.NextdoorBudget,
		&item.GoogleBudget, &item.FacebookBudget, &item.OtherBudget, &item.ProjectedLeads,
		&item.ProjectedRevenue, &item.ProjectedROI, &item.Active, timeText{&item.StartDate},
		nullTimeText{&item.EndDate}, &item.UserID, timeText{&item.CreatedAt},
	)
}

func (s *SQLiteStore) InsertBudgetPlan(ctx context.Context, item BudgetPlan) (BudgetPlan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BudgetPlan{}, fmt.Errorf("begin budget plan tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if item.Active {
		if _, err := tx.ExecContext(ctx, `
			UPDATE budget_plans SET active = 0 WHERE active = 1 AND user_id IS ?
		`, item.UserID); err != nil {
			return BudgetPlan{}, fmt.Errorf("deactivate budget plans: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budget_plans (
			id, name, tier, monthly_budget, nextdoor_budget, google_budget, facebook_budget,
			other_budget, projected_leads, projected_revenue, projected_roi, active, start_date,
			end_date, user_id, created_at
		)
		VALUES (`+placeholders(16)+`)
	`,
		item.ID, item.Name, item.Tier, item.MonthlyBudget, item.NextdoorBudget, item.GoogleBudget,
		item.FacebookBudget, item.OtherBudget, item.ProjectedLeads, item.ProjectedRevenue,
		item.ProjectedROI, item.Active, formatSQLiteTime(item.StartDate), sqliteNullTime(item.EndDate),
		item.UserID, s.timestamp(),
	)
	if err != nil {
		return BudgetPlan{}, fmt.Errorf("insert budget plan: %w", mapSQLiteWriteError(err))
	}

	var saved BudgetPlan
	row := tx.QueryRowContext(ctx, `SELECT `+budgetPlanColumns+` FROM budget_plans WHERE id = ?`, item.ID)
	if err := scanSQLiteBudgetPlan(row, &saved); err != nil {
		return BudgetPlan{}, fmt.Errorf("load budget plan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return BudgetPlan{}, fmt.Errorf("commit budget plan: %w", err)
	}
	return saved, nil
}

func (s *SQLiteStore) ListBudgetPlans(ctx context.Context, userID string) ([]BudgetPlan, error) {
	query := `SELECT ` + budgetPlanColumns + ` FROM budget_plans`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY created_at DESC, rowid DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list budget plans: %w", err)
	}
	defer rows.Close()

	items := make([]BudgetPlan, 0)
	for rows.Next() {
		var item BudgetPlan
		if err := scanSQLiteBudgetPlan(rows, &item); err != nil {
			return nil, fmt.Errorf("scan budget plan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget plans: %w", err)
	}
	return items, nil
}
