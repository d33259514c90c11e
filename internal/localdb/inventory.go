package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"
	"centrovision-data/internal/domain"

	"go.uber.org/zap"
)

// supplierRow is the local supplier shape. Inactive suppliers are included.
type supplierRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Active      bool   `json:"active"`
}

func (s *Store) getSuppliers(ctx context.Context, _ json.RawMessage) (any, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, contact_name, phone, email, active FROM suppliers`)
	if err != nil {
		return nil, classifySQL("get_suppliers", err)
	}
	defer rows.Close()

	out := []supplierRow{}
	for rows.Next() {
		var r supplierRow
		if err := rows.Scan(&r.ID, &r.Name, &r.ContactName, &r.Phone, &r.Email, &r.Active); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// itemRow is the local inventory item shape: flat supplier name, current_stock.
type itemRow struct {
	ID           string  `json:"id"`
	BranchID     string  `json:"branch_id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	SupplierID   string  `json:"supplier_id"`
	SupplierName string  `json:"supplier_name"`
	UnitPrice    float64 `json:"unit_price"`
	CostPrice    float64 `json:"cost_price"`
	CurrentStock float64 `json:"current_stock"`
	MinStock     float64 `json:"min_stock"`
	Active       bool    `json:"active"`
	Notes        string  `json:"notes"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

const itemSelect = `
	SELECT i.id, i.branch_id, i.code, i.name, i.category,
	       COALESCE(i.supplier_id, ''), COALESCE(s.name, ''),
	       i.unit_price, i.cost_price, i.current_stock, i.min_stock,
	       i.active, i.notes, i.created_at, i.updated_at
	FROM inventory_items i
	LEFT JOIN suppliers s ON s.id = i.supplier_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(sc rowScanner) (itemRow, error) {
	var r itemRow
	err := sc.Scan(&r.ID, &r.BranchID, &r.Code, &r.Name, &r.Category,
		&r.SupplierID, &r.SupplierName,
		&r.UnitPrice, &r.CostPrice, &r.CurrentStock, &r.MinStock,
		&r.Active, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

type itemsArgs struct {
	BranchID        string `json:"branch_id"`
	Category        string `json:"category"`
	Search          string `json:"search"`
	IncludeInactive bool   `json:"include_inactive"`
}

func (s *Store) getInventoryItems(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[itemsArgs](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	where := []string{}
	args := []any{}
	if a.BranchID != "" {
		where = append(where, "i.branch_id = ?")
		args = append(args, a.BranchID)
	}
	if a.Category != "" {
		where = append(where, "i.category = ?")
		args = append(args, a.Category)
	}
	if a.Search != "" {
		pattern := "%" + escapeLike(a.Search) + "%"
		where = append(where, `(i.name LIKE ? ESCAPE '\' OR i.code LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if !a.IncludeInactive {
		where = append(where, "i.active = 1")
	}
	q := itemSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY i.name COLLATE NOCASE, i.code"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classifySQL("get_inventory_items", err)
	}
	defer rows.Close()
	out := []itemRow{}
	for rows.Next() {
		r, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) getInventoryItem(ctx context.Context, raw json.RawMessage) (any, error) {
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	r, err := scanItem(s.db.QueryRowContext(ctx, itemSelect+" WHERE i.id = ?", id))
	if err != nil {
		return nil, classifySQL("get_inventory_item", err)
	}
	return r, nil
}

// itemWrite is the argument shape of create_inventory_item and each row of
// import_inventory_items.
type itemWrite struct {
	BranchID     string  `json:"branch_id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	SupplierID   string  `json:"supplier_id"`
	UnitPrice    float64 `json:"unit_price"`
	CostPrice    float64 `json:"cost_price"`
	CurrentStock float64 `json:"current_stock"`
	MinStock     float64 `json:"min_stock"`
	Notes        string  `json:"notes"`
}

const itemInsert = `
	INSERT INTO inventory_items
		(id, branch_id, code, name, category, supplier_id, unit_price, cost_price,
		 current_stock, min_stock, active, notes, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertItem(ctx context.Context, ex execer, w itemWrite) (string, error) {
	id := s.newID()
	now := s.timestamp()
	_, err := ex.ExecContext(ctx, itemInsert,
		id, w.BranchID, w.Code, w.Name, w.Category, nullString(w.SupplierID),
		w.UnitPrice, w.CostPrice, w.CurrentStock, w.MinStock, w.Notes, now, now)
	return id, err
}

func (s *Store) createInventoryItem(ctx context.Context, raw json.RawMessage) (any, error) {
	w, err := bridge.Decode[itemWrite](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	id, err := s.insertItem(ctx, s.db, w)
	if err != nil {
		return nil, classifySQL("create_inventory_item", err)
	}
	r, err := scanItem(s.db.QueryRowContext(ctx, itemSelect+" WHERE i.id = ?", id))
	return r, classifySQL("create_inventory_item", err)
}

type itemUpdateArgs struct {
	ID    string         `json:"id"`
	Patch map[string]any `json:"patch"`
}

// updatable columns of update_inventory_item
var itemColumns = map[string]bool{
	"code": true, "name": true, "category": true, "supplier_id": true,
	"unit_price": true, "cost_price": true, "min_stock": true, "notes": true,
}

func (s *Store) updateInventoryItem(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[itemUpdateArgs](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if a.ID == "" {
		return nil, apperr.Validation("id is required")
	}
	sets := []string{}
	args := []any{}
	for col, v := range a.Patch {
		if !itemColumns[col] {
			return nil, apperr.Validation("column %q cannot be updated", col)
		}
		if col == "supplier_id" && v == "" {
			v = nil
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.timestamp(), a.ID)

	res, err := s.db.ExecContext(ctx, "UPDATE inventory_items SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, classifySQL("update_inventory_item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("inventory item %s not found", a.ID)
	}
	r, err := scanItem(s.db.QueryRowContext(ctx, itemSelect+" WHERE i.id = ?", a.ID))
	return r, classifySQL("update_inventory_item", err)
}

type activeArgs struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

func (s *Store) setInventoryItemActive(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[activeArgs](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE inventory_items SET active = ?, updated_at = ? WHERE id = ?`,
		a.Active, s.timestamp(), a.ID)
	if err != nil {
		return nil, classifySQL("set_inventory_item_active", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("inventory item %s not found", a.ID)
	}
	return map[string]any{"id": a.ID, "active": a.Active}, nil
}

func (s *Store) countInventoryMovements(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		ItemID string `json:"item_id"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_movements WHERE item_id = ?`, a.ItemID).Scan(&n); err != nil {
		return nil, classifySQL("count_inventory_movements", err)
	}
	return map[string]int{"count": n}, nil
}

// movementRow is the local movement shape (movement_type instead of type).
type movementRow struct {
	ID           string  `json:"id"`
	ItemID       string  `json:"item_id"`
	MovementType string  `json:"movement_type"`
	Quantity     float64 `json:"quantity"`
	Reason       string  `json:"reason"`
	Reference    string  `json:"reference"`
	CreatedBy    string  `json:"created_by"`
	CreatedAt    string  `json:"created_at"`
}

// createInventoryMovement records the movement and updates stock in one
// transaction. A salida larger than the stock is rejected.
func (s *Store) createInventoryMovement(ctx context.Context, raw json.RawMessage) (any, error) {
	m, err := bridge.Decode[movementRow](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	m.ID = s.newID()
	m.CreatedAt = s.timestamp()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var stock float64
		var active bool
		if err := tx.QueryRowContext(ctx,
			`SELECT current_stock, active FROM inventory_items WHERE id = ?`, m.ItemID).Scan(&stock, &active); err != nil {
			return classifySQL("create_inventory_movement", err)
		}
		if !active {
			return apperr.BusinessRule("inventory item %s is inactive", m.ItemID)
		}
		mt := domain.MovementType(m.MovementType)
		if mt == domain.MovementOut && m.Quantity > stock {
			return apperr.BusinessRule("insufficient stock: %.2f available, %.2f requested", stock, m.Quantity)
		}
		next := domain.ApplyMovement(stock, mt, m.Quantity)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inventory_movements (id, item_id, movement_type, quantity, reason, reference, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.ItemID, m.MovementType, m.Quantity, m.Reason, m.Reference, m.CreatedBy, m.CreatedAt); err != nil {
			return classifySQL("create_inventory_movement", err)
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE inventory_items SET current_stock = ?, updated_at = ? WHERE id = ?`,
			next, m.CreatedAt, m.ItemID)
		return classifySQL("create_inventory_movement", err)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) getInventoryMovements(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		ItemID string `json:"item_id"`
		Limit  int    `json:"limit"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if a.Limit <= 0 {
		a.Limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, movement_type, quantity, reason, reference, created_by, created_at
		 FROM inventory_movements WHERE item_id = ? ORDER BY created_at DESC LIMIT ?`, a.ItemID, a.Limit)
	if err != nil {
		return nil, classifySQL("get_inventory_movements", err)
	}
	defer rows.Close()
	out := []movementRow{}
	for rows.Next() {
		var m movementRow
		if err := rows.Scan(&m.ID, &m.ItemID, &m.MovementType, &m.Quantity, &m.Reason, &m.Reference, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// importInventoryItems inserts all rows or none.
func (s *Store) importInventoryItems(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		Items []itemWrite `json:"items"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for i, w := range a.Items {
			if _, err := s.insertItem(ctx, tx, w); err != nil {
				s.logger.Warn("Local import row failed", zap.Int("row", i), zap.String("code", w.Code), zap.Error(err))
				return classifySQL("import_inventory_items", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]int{"imported": len(a.Items)}, nil
}
