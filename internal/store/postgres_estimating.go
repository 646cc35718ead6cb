package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const projectColumns = `
	p.id, p.name, p.description, p.address, p.project_type, p.status, p.lead_id, p.user_id,
	p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM estimates e WHERE e.project_id = p.id)
`

func scanPostgresProject(row rowScanner) (Project, error) {
	var item Project
	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Address, &item.ProjectType, &item.Status,
		&item.LeadID, &item.UserID, &item.CreatedAt, &item.UpdatedAt, &item.EstimateCount,
	)
	return item, err
}

func (s *PostgresStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.LeadID != "" {
		args = append(args, filter.LeadID)
		clauses = append(clauses, fmt.Sprintf("p.lead_id = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects p `+where+` ORDER BY p.created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		item, err := scanPostgresProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, projectID)
	return scanPostgresProject(row)
}

func (s *PostgresStore) InsertProject(ctx context.Context, item Project) (Project, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, address, project_type, status, lead_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.Name, item.Description, item.Address, item.ProjectType, item.Status, item.LeadID, item.UserID)
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", mapWriteError(err))
	}
	return s.GetProject(ctx, item.ID)
}

func (s *PostgresStore) UpdateProject(ctx context.Context, item Project) (Project, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name=$2, description=$3, address=$4, project_type=$5, status=$6, lead_id=$7, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Name, item.Description, item.Address, item.ProjectType, item.Status, item.LeadID)
	if err != nil {
		return Project{}, fmt.Errorf("update project: %w", mapWriteError(err))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return Project{}, sql.ErrNoRows
	}
	return s.GetProject(ctx, item.ID)
}

// DeleteProject removes the project and, through the foreign key, its estimates.
func (s *PostgresStore) DeleteProject(ctx context.Context, projectID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const materialColumns = `
	id, name, description, category, unit, cost_per_unit, supplier, sku, is_green, active,
	created_at, updated_at
`

func scanPostgresMaterial(row rowScanner) (Material, error) {
	var item Material
	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Category, &item.Unit, &item.CostPerUnit,
		&item.Supplier, &item.SKU, &item.IsGreen, &item.Active, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

// ListMaterials returns active materials ordered by name.
func (s *PostgresStore) ListMaterials(ctx context.Context, filter MaterialFilter) ([]Material, error) {
	clauses := []string{"active = TRUE"}
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Green != nil {
		args = append(args, *filter.Green)
		clauses = append(clauses, fmt.Sprintf("is_green = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+materialColumns+` FROM materials
		WHERE `+strings.Join(clauses, " AND ")+`
		ORDER BY name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	items := make([]Material, 0)
	for rows.Next() {
		item, err := scanPostgresMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetMaterial(ctx context.Context, materialID string) (Material, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, materialID)
	return scanPostgresMaterial(row)
}

func (s *PostgresStore) InsertMaterial(ctx context.Context, item Material) (Material, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO materials (id, name, description, category, unit, cost_per_unit, supplier, sku, is_green, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		item.ID, item.Name, item.Description, item.Category, item.Unit, item.CostPerUnit,
		item.Supplier, item.SKU, item.IsGreen, item.Active,
	)
	if err != nil {
		return Material{}, fmt.Errorf("insert material: %w", mapWriteError(err))
	}
	return s.GetMaterial(ctx, item.ID)
}

func (s *PostgresStore) UpdateMaterial(ctx context.Context, item Material) (Material, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE materials
		SET name=$2, description=$3, category=$4, unit=$5, cost_per_unit=$6, supplier=$7, sku=$8,
			is_green=$9, active=$10, updated_at=NOW()
		WHERE id=$1
	`,
		item.ID, item.Name, item.Description, item.Category, item.Unit, item.CostPerUnit,
		item.Supplier, item.SKU, item.IsGreen, item.Active,
	)
	if err != nil {
		return Material{}, fmt.Errorf("update material: %w", mapWriteError(err))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return Material{}, sql.ErrNoRows
	}
	return s.GetMaterial(ctx, item.ID)
}

func (s *PostgresStore) ListMaterialCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM materials WHERE active = TRUE ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list material categories: %w", err)
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scan material category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate material categories: %w", err)
	}
	return categories, nil
}

// AddMaterialPrice records the price and makes it the material's current cost.
func (s *PostgresStore) AddMaterialPrice(ctx context.Context, item MaterialPrice) (MaterialPrice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MaterialPrice{}, fmt.Errorf("begin material price tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var saved MaterialPrice
	err = tx.QueryRowContext(ctx, `
		INSERT INTO material_prices (id, material_id, price, source)
		VALUES ($1, $2, $3, $4)
		RETURNING id, material_id, price, source, created_at
	`, item.ID, item.MaterialID, item.Price, item.Source).Scan(
		&saved.ID, &saved.MaterialID, &saved.Price, &saved.Source, &saved.CreatedAt,
	)
	if err != nil {
		return MaterialPrice{}, fmt.Errorf("insert material price: %w", mapWriteError(err))
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE materials SET cost_per_unit=$2, updated_at=NOW() WHERE id=$1
	`, item.MaterialID, item.Price); err != nil {
		return MaterialPrice{}, fmt.Errorf("update material cost: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return MaterialPrice{}, fmt.Errorf("commit material price: %w", err)
	}
	return saved, nil
}

// ListMaterialPrices returns the newest prices first. limit <= 0 returns all.
func (s *PostgresStore) ListMaterialPrices(ctx context.Context, materialID string, limit int) ([]MaterialPrice, error) {
	query := `
		SELECT id, material_id, price, source, created_at
		FROM material_prices
		WHERE material_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{materialID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list material prices: %w", err)
	}
	defer rows.Close()

	items := make([]MaterialPrice, 0)
	for rows.Next() {
		var item MaterialPrice
		if err := rows.Scan(&item.ID, &item.MaterialID, &item.Price, &item.Source, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan material price: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate material prices: %w", err)
	}
	return items, nil
}

const estimateColumns = `
	e.id, e.project_id, e.name, e.description, e.status, e.labor_cost, e.markup_percent,
	e.tax_percent, e.material_cost, e.subtotal, e.markup_amount, e.tax_amount, e.total_cost,
	e.user_id, e.created_at, e.updated_at, COALESCE(p.name, ''),
	(SELECT COUNT(*) FROM estimate_line_items li WHERE li.estimate_id = e.id)
`

const estimateFrom = `FROM estimates e LEFT JOIN projects p ON p.id = e.project_id`

func scanPostgresEstimate(row rowScanner) (Estimate, error) {
	var item Estimate
	err := row.Scan(
		&item.ID, &item.ProjectID, &item.Name, &item.Description, &item.Status, &item.LaborCost,
		&item.MarkupPercent, &item.TaxPercent, &item.MaterialCost, &item.Subtotal,
		&item.MarkupAmount, &item.TaxAmount, &item.TotalCost, &item.UserID, &item.CreatedAt,
		&item.UpdatedAt, &item.ProjectName, &item.LineItemCount,
	)
	return item, err
}

const lineItemColumns = `
	li.id, li.estimate_id, li.material_id, li.description, li.quantity, li.unit_cost, li.total,
	li.sort_order, li.created_at, COALESCE(m.name, ''), COALESCE(m.unit, '')
`

const lineItemFrom = `FROM estimate_line_items li LEFT JOIN materials m ON m.id = li.material_id`

// ListEstimates returns estimate headers, newest first. An empty projectID lists all.
func (s *PostgresStore) ListEstimates(ctx context.Context, projectID string) ([]Estimate, error) {
	query := `SELECT ` + estimateColumns + ` ` + estimateFrom
	var args []any
	if projectID != "" {
		query += ` WHERE e.project_id = $1`
		args = append(args, projectID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY e.created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list estimates: %w", err)
	}
	defer rows.Close()

	items := make([]Estimate, 0)
	for rows.Next() {
		item, err := scanPostgresEstimate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimates: %w", err)
	}
	return items, nil
}

// GetEstimate returns the estimate with its line items in sort order.
func (s *PostgresStore) GetEstimate(ctx context.Context, estimateID string) (Estimate, error) {
	return getPostgresEstimate(ctx, s.db, estimateID, false)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getPostgresEstimate(ctx context.Context, q queryer, estimateID string, lock bool) (Estimate, error) {
	query := `SELECT ` + estimateColumns + ` ` + estimateFrom + ` WHERE e.id = $1`
	if lock {
		query += ` FOR UPDATE OF e`
	}
	item, err := scanPostgresEstimate(q.QueryRowContext(ctx, query, estimateID))
	if err != nil {
		return Estimate{}, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+lineItemColumns+` `+lineItemFrom+`
		WHERE li.estimate_id = $1
		ORDER BY li.sort_order, li.created_at
	`, estimateID)
	if err != nil {
		return Estimate{}, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	item.LineItems = make([]EstimateLineItem, 0)
	for rows.Next() {
		var li EstimateLineItem
		if err := rows.Scan(
			&li.ID, &li.EstimateID, &li.MaterialID, &li.Description, &li.Quantity, &li.UnitCost,
			&li.Total, &li.SortOrder, &li.CreatedAt, &li.MaterialName, &li.Unit,
		); err != nil {
			return Estimate{}, fmt.Errorf("scan line item: %w", err)
		}
		item.LineItems = append(item.LineItems, li)
	}
	if err := rows.Err(); err != nil {
		return Estimate{}, fmt.Errorf("iterate line items: %w", err)
	}
	return item, nil
}

// InsertEstimate prices the estimate and stores it with its line items.
func (s *PostgresStore) InsertEstimate(ctx context.Context, item Estimate) (Estimate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("begin estimate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	priced := item.Priced()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO estimates (
			id, project_id, name, description, status, labor_cost, markup_percent, tax_percent,
			material_cost, subtotal, markup_amount, tax_amount, total_cost, user_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		priced.ID, priced.ProjectID, priced.Name, priced.Description, priced.Status, priced.LaborCost,
		priced.MarkupPercent, priced.TaxPercent, priced.MaterialCost, priced.Subtotal,
		priced.MarkupAmount, priced.TaxAmount, priced.TotalCost, priced.UserID,
	)
	if err != nil {
		return Estimate{}, fmt.Errorf("insert estimate: %w", mapWriteError(err))
	}
	for i, li := range priced.LineItems {
		li.EstimateID = priced.ID
		li.SortOrder = i
		if err := insertPostgresLineItem(ctx, tx, li); err != nil {
			return Estimate{}, err
		}
	}

	saved, err := getPostgresEstimate(ctx, tx, priced.ID, false)
	if err != nil {
		return Estimate{}, fmt.Errorf("load estimate: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Estimate{}, fmt.Errorf("commit estimate: %w", err)
	}
	return saved, nil
}

func insertPostgresLineItem(ctx context.Context, tx *sql.Tx, li EstimateLineItem) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO estimate_line_items (id, estimate_id, material_id, description, quantity, unit_cost, total, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, li.ID, li.EstimateID, li.MaterialID, li.Description, li.Quantity, li.UnitCost, li.Total, li.SortOrder)
	if err != nil {
		return fmt.Errorf("insert line item: %w", mapWriteError(err))
	}
	return nil
}

// UpdateEstimate overwrites the editable header columns and reprices the
// estimate from its stored line items.
func (s *PostgresStore) UpdateEstimate(ctx context.Context, item Estimate) (Estimate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("begin estimate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getPostgresEstimate(ctx, tx, item.ID, true)
	if err != nil {
		return Estimate{}, err
	}
	item.LineItems = current.LineItems
	if err := s.writeEstimateHeader(ctx, tx, item.Priced()); err != nil {
		return Estimate{}, err
	}
	return s.commitEstimate(ctx, tx, item.ID)
}

// AddEstimateLineItem appends the item and reprices the estimate in one
// transaction.
func (s *PostgresStore) AddEstimateLineItem(ctx context.Context, li EstimateLineItem) (Estimate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("begin line item tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getPostgresEstimate(ctx, tx, li.EstimateID, true)
	if err != nil {
		return Estimate{}, err
	}
	li.SortOrder = 0
	for _, existing := range current.LineItems {
		li.SortOrder = max(li.SortOrder, existing.SortOrder+1)
	}
	current.LineItems = append(current.LineItems, li)
	priced := current.Priced()
	if err := insertPostgresLineItem(ctx, tx, priced.LineItems[len(priced.LineItems)-1]); err != nil {
		return Estimate{}, err
	}
	if err := s.writeEstimateHeader(ctx, tx, priced); err != nil {
		return Estimate{}, err
	}
	return s.commitEstimate(ctx, tx, li.EstimateID)
}

func (s *PostgresStore) writeEstimateHeader(ctx context.Context, tx *sql.Tx, e Estimate) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE estimates
		SET name=$2, description=$3, status=$4, labor_cost=$5, markup_percent=$6, tax_percent=$7,
			material_cost=$8, subtotal=$9, markup_amount=$10, tax_amount=$11, total_cost=$12,
			updated_at=NOW()
		WHERE id=$1
	`,
		e.ID, e.Name, e.Description, e.Status, e.LaborCost, e.MarkupPercent, e.TaxPercent,
		e.MaterialCost, e.Subtotal, e.MarkupAmount, e.TaxAmount, e.TotalCost,
	)
	if err != nil {
		return fmt.Errorf("update estimate: %w", err)
	}
	return nil
}

func (s *PostgresStore) commitEstimate(ctx context.Context, tx *sql.Tx, estimateID string) (Estimate, error) {
	saved, err := getPostgresEstimate(ctx, tx, estimateID, false)
	if err != nil {
		return Estimate{}, fmt.Errorf("load estimate: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Estimate{}, fmt.Errorf("commit estimate: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) DeleteEstimate(ctx context.Context, estimateID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM estimates WHERE id=$1`, estimateID)
	if err != nil {
		return fmt.Errorf("delete estimate: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
