package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func scanSQLiteProject(row rowScanner) (Project, error) {
	var item Project
	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Address, &item.ProjectType, &item.Status,
		&item.LeadID, &item.UserID, timeText{&item.CreatedAt}, timeText{&item.UpdatedAt},
		&item.EstimateCount,
	)
	return item, err
}

func (s *SQLiteStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "p.status = ?")
		args = append(args, filter.Status)
	}
	if filter.LeadID != "" {
		clauses = append(clauses, "p.lead_id = ?")
		args = append(args, filter.LeadID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects p `+where+` ORDER BY p.created_at DESC, p.rowid DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		item, err := scanSQLiteProject(rows)
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

func (s *SQLiteStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, projectID)
	return scanSQLiteProject(row)
}

func (s *SQLiteStore) InsertProject(ctx context.Context, item Project) (Project, error) {
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, address, project_type, status, lead_id, user_id, created_at, updated_at)
		VALUES (`+placeholders(10)+`)
	`,
		item.ID, item.Name, item.Description, item.Address, item.ProjectType, item.Status,
		item.LeadID, item.UserID, now, now,
	)
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", mapSQLiteWriteError(err))
	}
	return s.GetProject(ctx, item.ID)
}

func (s *SQLiteStore) UpdateProject(ctx context.Context, item Project) (Project, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name=?, description=?, address=?, project_type=?, status=?, lead_id=?, updated_at=?
		WHERE id=?
	`,
		item.Name, item.Description, item.Address, item.ProjectType, item.Status, item.LeadID,
		s.timestamp(), item.ID,
	)
	if err != nil {
		return Project{}, fmt.Errorf("update project: %w", mapSQLiteWriteError(err))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return Project{}, sql.ErrNoRows
	}
	return s.GetProject(ctx, item.ID)
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanSQLiteMaterial(row rowScanner) (Material, error) {
	var item Material
	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Category, &item.Unit, &item.CostPerUnit,
		&item.Supplier, &item.SKU, &item.IsGreen, &item.Active, timeText{&item.CreatedAt},
		timeText{&item.UpdatedAt},
	)
	return item, err
}

func (s *SQLiteStore) ListMaterials(ctx context.Context, filter MaterialFilter) ([]Material, error) {
	clauses := []string{"active = 1"}
	var args []any
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Green != nil {
		clauses = append(clauses, "is_green = ?")
		args = append(args, *filter.Green)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		clauses = append(clauses, "(name LIKE ? OR description LIKE ?)")
		args = append(args, pattern, pattern)
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
		item, err := scanSQLiteMaterial(rows)
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

func (s *SQLiteStore) GetMaterial(ctx context.Context, materialID string) (Material, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = ?`, materialID)
	return scanSQLiteMaterial(row)
}

func (s *SQLiteStore) InsertMaterial(ctx context.Context, item Material) (Material, error) {
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO materials (
			id, name, description, category, unit, cost_per_unit, supplier, sku, is_green, active,
			created_at, updated_at
		)
		VALUES (`+placeholders(12)+`)
	`,
		item.ID, item.Name, item.Description, item.Category, item.Unit, item.CostPerUnit,
		item.Supplier, item.SKU, item.IsGreen, item.Active, now, now,
	)
	if err != nil {
		return Material{}, fmt.Errorf("insert material: %w", mapSQLiteWriteError(err))
	}
	return s.GetMaterial(ctx, item.ID)
}

func (s *SQLiteStore) UpdateMaterial(ctx context.Context, item Material) (Material, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE materials
		SET name=?, description=?, category=?, unit=?, cost_per_unit=?, supplier=?, sku=?,
			is_green=?, active=?, updated_at=?
		WHERE id=?
	`,
		item.Name, item.Description, item.Category, item.Unit, item.CostPerUnit, item.Supplier,
		item.SKU, item.IsGreen, item.Active, s.timestamp(), item.ID,
	)
	if err != nil {
		return Material{}, fmt.Errorf("update material: %w", mapSQLiteWriteError(err))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return Material{}, sql.ErrNoRows
	}
	return s.GetMaterial(ctx, item.ID)
}

func (s *SQLiteStore) ListMaterialCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM materials WHERE active = 1 ORDER BY category`)
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

func (s *SQLiteStore) AddMaterialPrice(ctx context.Context, item MaterialPrice) (MaterialPrice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MaterialPrice{}, fmt.Errorf("begin material price tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.timestamp()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO material_prices (id, material_id, price, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.ID, item.MaterialID, item.Price, item.Source, now); err != nil {
		return MaterialPrice{}, fmt.Errorf("insert material price: %w", mapSQLiteWriteError(err))
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE materials SET cost_per_unit=?, updated_at=? WHERE id=?
	`, item.Price, now, item.MaterialID); err != nil {
		return MaterialPrice{}, fmt.Errorf("update material cost: %w", err)
	}

	var saved MaterialPrice
	err = tx.QueryRowContext(ctx, `
		SELECT id, material_id, price, source, created_at FROM material_prices WHERE id = ?
	`, item.ID).Scan(&saved.ID, &saved.MaterialID, &saved.Price, &saved.Source, timeText{&saved.CreatedAt})
	if err != nil {
		return MaterialPrice{}, fmt.Errorf("load material price: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return MaterialPrice{}, fmt.Errorf("commit material price: %w", err)
	}
	return saved, nil
}

func (s *SQLiteStore) ListMaterialPrices(ctx context.Context, materialID string, limit int) ([]MaterialPrice, error) {
	query := `
		SELECT id, material_id, price, source, created_at
		FROM material_prices
		WHERE material_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{materialID}
	if limit > 0 {
		query += ` LIMIT ?`
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
		if err := rows.Scan(&item.ID, &item.MaterialID, &item.Price, &item.Source, timeText{&item.CreatedAt}); err != nil {
			return nil, fmt.Errorf("scan material price: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate material prices: %w", err)
	}
	return items, nil
}

func scanSQLiteEstimate(row rowScanner) (Estimate, error) {
	var item Estimate
	err := row.Scan(
		&item.ID, &item.ProjectID, &item.Name, &item.Description, &item.Status, &item.LaborCost,
		&item.MarkupPercent, &item.TaxPercent, &item.MaterialCost, &item.Subtotal,
		&item.MarkupAmount, &item.TaxAmount, &item.TotalCost, &item.UserID,
		timeText{&item.CreatedAt}, timeText{&item.UpdatedAt}, &item.ProjectName, &item.LineItemCount,
	)
	return item, err
}

func (s *SQLiteStore) ListEstimates(ctx context.Context, projectID string) ([]Estimate, error) {
	query := `SELECT ` + estimateColumns + ` ` + estimateFrom
	var args []any
	if projectID != "" {
		query += ` WHERE e.project_id = ?`
		args = append(args, projectID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY e.created_at DESC, e.rowid DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list estimates: %w", err)
	}
	defer rows.Close()

	items := make([]Estimate, 0)
	for rows.Next() {
		item, err := scanSQLiteEstimate(rows)
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

func (s *SQLiteStore) GetEstimate(ctx context.Context, estimateID string) (Estimate, error) {
	return getSQLiteEstimate(ctx, s.db, estimateID)
}

func getSQLiteEstimate(ctx context.Context, q queryer, estimateID string) (Estimate, error) {
	item, err := scanSQLiteEstimate(q.QueryRowContext(ctx, `SELECT `+estimateColumns+` `+estimateFrom+` WHERE e.id = ?`, estimateID))
	if err != nil {
		return Estimate{}, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+lineItemColumns+` `+lineItemFrom+`
		WHERE li.estimate_id = ?
		ORDER BY li.sort_order, li.rowid
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
			&li.Total, &li.SortOrder, timeText{&li.CreatedAt}, &li.MaterialName, &li.Unit,
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

func (s *SQLiteStore) InsertEstimate(ctx context.Context, item Estimate) (Estimate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("begin estimate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	priced := item.Priced()
	now := s.timestamp()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO estimates (
			id, project_id, name, description, status, labor_cost, markup_percent, tax_percent,
			material_cost, subtotal, markup_amount, tax_amount, total_cost, user_id, created_at,
			updated_at
		)
		VALUES (`+placeholders(16)+`)
	`,
		priced.ID, priced.ProjectID, priced.Name, priced.Description, priced.Status, priced.LaborCost,
		priced.MarkupPercent, priced.TaxPercent, priced.MaterialCost, priced.Subtotal,
		priced.MarkupAmount, priced.TaxAmount, priced.TotalCost, priced.UserID, now, now,
	)
	if err != nil {
		return Estimate{}, fmt.Errorf("insert estimate: %w", mapSQLiteWriteError(err))
	}
	for i, li := range priced.LineItems {
		li.EstimateID = priced.ID
		li.SortOrder = i
		if err := s.insertLineItem(ctx, tx, li); err != nil {
			return Estimate{}, err
		}
	}
	return s.commitEstimate(ctx, tx, priced.ID)
}

func (s *SQLiteStore) insertLineItem(ctx context.Context, tx *sql.Tx, li EstimateLineItem) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO estimate_line_items (
			id, estimate_id, material_id, description, quantity, unit_cost, total, sort_order, created_at
		)
		VALUES (`+placeholders(9)+`)
	`,
		li.ID, li.EstimateID, li.MaterialID, li.Description, li.Quantity, li.UnitCost, li.Total,
		li.SortOrder, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("insert line item: %w", mapSQLiteWriteError(err))
	}
	return nil
}

func (s *SQLiteStore) UpdateEstimate(ctx context.Context, item Estimate) (Estimate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("begin estimate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getSQLiteEstimate(ctx, tx, item.ID)
	if err != nil {
		return Estimate{}, err
	}
	item.LineItems = current.LineItems
	if err := s.writeEstimateHeader(ctx, tx, item.Priced()); err != nil {
		return Estimate{}, err
	}
	return s.commitEstimate(ctx, tx, item.ID)
}

func (s *SQLiteStore) AddEstimateLineItem(ctx context.Context, li EstimateLineItem) (Estimate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("begin line item tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getSQLiteEstimate(ctx, tx, li.EstimateID)
	if err != nil {
		return Estimate{}, err
	}
	li.SortOrder = 0
	for _, existing := range current.LineItems {
		li.SortOrder = max(li.SortOrder, existing.SortOrder+1)
	}
	current.LineItems = append(current.LineItems, li)
	priced := current.Priced()
	if err := s.insertLineItem(ctx, tx, priced.LineItems[len(priced.LineItems)-1]); err != nil {
		return Estimate{}, err
	}
	if err := s.writeEstimateHeader(ctx, tx, priced); err != nil {
		return Estimate{}, err
	}
	return s.commitEstimate(ctx, tx, li.EstimateID)
}

func (s *SQLiteStore) writeEstimateHeader(ctx context.Context, tx *sql.Tx, e Estimate) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE estimates
		SET name=?, description=?, status=?, labor_cost=?, markup_percent=?, tax_percent=?,
			material_cost=?, subtotal=?, markup_amount=?, tax_amount=?, total_cost=?, updated_at=?
		WHERE id=?
	`,
		e.Name, e.Description, e.Status, e.LaborCost, e.MarkupPercent, e.TaxPercent,
		e.MaterialCost, e.Subtotal, e.MarkupAmount, e.TaxAmount, e.TotalCost, s.timestamp(), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update estimate: %w", mapSQLiteWriteError(err))
	}
	return nil
}

func (s *SQLiteStore) commitEstimate(ctx context.Context, tx *sql.Tx, estimateID string) (Estimate, error) {
	saved, err := getSQLiteEstimate(ctx, tx, estimateID)
	if err != nil {
		return Estimate{}, fmt.Errorf("load estimate: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Estimate{}, fmt.Errorf("commit estimate: %w", err)
	}
	return saved, nil
}

func (s *SQLiteStore) DeleteEstimate(ctx context.Context, estimateID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM estimates WHERE id=?`, estimateID)
	if err != nil {
		return fmt.Errorf("delete estimate: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
