package repository

import (
	"context"
	"sort"
	"strings"

	"centrovision-data/internal/bridge"
	"centrovision-data/internal/domain"
)

// LocalInventoryRepository serves inventory through the Local Command Bridge.
type LocalInventoryRepository struct {
	bridge bridge.Invoker
}

func NewLocalInventoryRepository(b bridge.Invoker) *LocalInventoryRepository {
	return &LocalInventoryRepository{bridge: b}
}

type localSupplierRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Active      bool   `json:"active"`
}

// ListSuppliers applies the active filter and name order that the hosted
// query applies server-side; get_suppliers returns every supplier.
func (r *LocalInventoryRepository) ListSuppliers(ctx context.Context) ([]*domain.Supplier, error) {
	var rows []localSupplierRow
	if err := r.bridge.Invoke(ctx, "get_suppliers", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.Supplier, 0, len(rows))
	for _, s := range rows {
		if !s.Active {
			continue
		}
		out = append(out, &domain.Supplier{
			ID:          s.ID,
			Name:        s.Name,
			ContactName: s.ContactName,
			Phone:       s.Phone,
			Email:       s.Email,
			Active:      true,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// localItemRow is the get_inventory_items row: flat supplier_name and
// current_stock instead of the hosted supplier relation and stock.
type localItemRow struct {
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

func (r localItemRow) toDomain() *domain.InventoryItem {
	return &domain.InventoryItem{
		ID:           r.ID,
		BranchID:     r.BranchID,
		Code:         r.Code,
		Name:         r.Name,
		Category:     domain.Category(r.Category),
		SupplierID:   r.SupplierID,
		SupplierName: r.SupplierName,
		UnitPrice:    r.UnitPrice,
		CostPrice:    r.CostPrice,
		Stock:        r.CurrentStock,
		MinStock:     r.MinStock,
		Active:       r.Active,
		Notes:        r.Notes,
		CreatedAt:    parseLocalTime(r.CreatedAt),
		UpdatedAt:    parseLocalTime(r.UpdatedAt),
	}
}

type localItemWrite struct {
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

func toLocalItemWrite(item *domain.InventoryItem) localItemWrite {
	return localItemWrite{
		BranchID:     item.BranchID,
		Code:         item.Code,
		Name:         item.Name,
		Category:     string(item.Category),
		SupplierID:   item.SupplierID,
		UnitPrice:    item.UnitPrice,
		CostPrice:    item.CostPrice,
		CurrentStock: item.Stock,
		MinStock:     item.MinStock,
		Notes:        item.Notes,
	}
}

func (r *LocalInventoryRepository) ListItems(ctx context.Context, f ItemFilters) ([]*domain.InventoryItem, error) {
	args := map[string]any{
		"branch_id":        f.BranchID,
		"category":         string(f.Category),
		"search":           f.Search,
		"include_inactive": f.IncludeInactive,
	}
	var rows []localItemRow
	if err := r.bridge.Invoke(ctx, "get_inventory_items", args, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.InventoryItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *LocalInventoryRepository) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var row localItemRow
	if err := r.bridge.Invoke(ctx, "get_inventory_item", map[string]string{"id": id}, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalInventoryRepository) CreateItem(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error) {
	var row localItemRow
	if err := r.bridge.Invoke(ctx, "create_inventory_item", toLocalItemWrite(item), &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalInventoryRepository) UpdateItem(ctx context.Context, id string, patch domain.InventoryItemPatch) (*domain.InventoryItem, error) {
	var row localItemRow
	args := map[string]any{"id": id, "patch": itemPatchValues(patch)}
	if err := r.bridge.Invoke(ctx, "update_inventory_item", args, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalInventoryRepository) SetItemActive(ctx context.Context, id string, active bool) error {
	return r.bridge.Invoke(ctx, "set_inventory_item_active", map[string]any{"id": id, "active": active}, nil)
}

func (r *LocalInventoryRepository) CountMovements(ctx context.Context, itemID string) (int, error) {
	var res struct {
		Count int `json:"count"`
	}
	if err := r.bridge.Invoke(ctx, "count_inventory_movements", map[string]string{"item_id": itemID}, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// localMovementRow names the movement kind movement_type.
type localMovementRow struct {
	ID           string  `json:"id"`
	ItemID       string  `json:"item_id"`
	MovementType string  `json:"movement_type"`
	Quantity     float64 `json:"quantity"`
	Reason       string  `json:"reason"`
	Reference    string  `json:"reference"`
	CreatedBy    string  `json:"created_by"`
	CreatedAt    string  `json:"created_at"`
}

func (m localMovementRow) toDomain() *domain.InventoryMovement {
	return &domain.InventoryMovement{
		ID:        m.ID,
		ItemID:    m.ItemID,
		Type:      domain.MovementType(m.MovementType),
		Quantity:  m.Quantity,
		Reason:    m.Reason,
		Reference: m.Reference,
		CreatedBy: m.CreatedBy,
		CreatedAt: parseLocalTime(m.CreatedAt),
	}
}

func (r *LocalInventoryRepository) CreateMovement(ctx context.Context, m *domain.InventoryMovement) (*domain.InventoryMovement, error) {
	var row localMovementRow
	err := r.bridge.Invoke(ctx, "create_inventory_movement", localMovementRow{
		ItemID:       m.ItemID,
		MovementType: string(m.Type),
		Quantity:     m.Quantity,
		Reason:       m.Reason,
		Reference:    m.Reference,
		CreatedBy:    m.CreatedBy,
	}, &row)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *LocalInventoryRepository) ListMovements(ctx context.Context, itemID string, limit int) ([]*domain.InventoryMovement, error) {
	var rows []localMovementRow
	if err := r.bridge.Invoke(ctx, "get_inventory_movements", map[string]any{"item_id": itemID, "limit": limit}, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.InventoryMovement, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *LocalInventoryRepository) ImportItems(ctx context.Context, items []*domain.InventoryItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	writes := make([]localItemWrite, 0, len(items))
	for _, it := range items {
		writes = append(writes, toLocalItemWrite(it))
	}
	var res struct {
		Imported int `json:"imported"`
	}
	if err := r.bridge.Invoke(ctx, "import_inventory_items", map[string]any{"items": writes}, &res); err != nil {
		return 0, err
	}
	return res.Imported, nil
}
