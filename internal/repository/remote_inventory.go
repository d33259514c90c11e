package repository

import (
	"context"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/remote"
)

// RemoteInventoryRepository reads and writes inventory on the hosted backend.
type RemoteInventoryRepository struct {
	client *remote.Client
}

func NewRemoteInventoryRepository(client *remote.Client) *RemoteInventoryRepository {
	return &RemoteInventoryRepository{client: client}
}

// remoteItemRow is the hosted inventory_items row with its supplier relation.
type remoteItemRow struct {
	ID         string  `json:"id"`
	BranchID   string  `json:"branch_id"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	SupplierID *string `json:"supplier_id"`
	Supplier   *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"supplier"`
	UnitPrice float64   `json:"unit_price"`
	CostPrice float64   `json:"cost_price"`
	Stock     float64   `json:"stock"`
	MinStock  float64   `json:"min_stock"`
	Active    bool      `json:"active"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const remoteItemSelect = "*, supplier:suppliers(id,name)"

func (r remoteItemRow) toDomain() *domain.InventoryItem {
	item := &domain.InventoryItem{
		ID:        r.ID,
		BranchID:  r.BranchID,
		Code:      r.Code,
		Name:      r.Name,
		Category:  domain.Category(r.Category),
		UnitPrice: r.UnitPrice,
		CostPrice: r.CostPrice,
		Stock:     r.Stock,
		MinStock:  r.MinStock,
		Active:    r.Active,
		Notes:     deref(r.Notes),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	item.SupplierID = deref(r.SupplierID)
	if r.Supplier != nil {
		item.SupplierID = r.Supplier.ID
		item.SupplierName = r.Supplier.Name
	}
	return item
}

func (r *RemoteInventoryRepository) ListSuppliers(ctx context.Context) ([]*domain.Supplier, error) {
	var rows []*domain.Supplier
	err := r.client.From("suppliers").
		Select("id,name,contact_name,phone,email,active").
		Eq("active", true).
		Order("name", true).
		Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *RemoteInventoryRepository) ListItems(ctx context.Context, f ItemFilters) ([]*domain.InventoryItem, error) {
	q := r.client.From("inventory_items").Select(remoteItemSelect)
	if f.BranchID != "" {
		q.Eq("branch_id", f.BranchID)
	}
	if f.Category != "" {
		q.Eq("category", string(f.Category))
	}
	if f.Search != "" {
		pattern := searchPattern(f.Search)
		q.Or("name.ilike." + pattern + ",code.ilike." + pattern)
	}
	if !f.IncludeInactive {
		q.Eq("active", true)
	}
	var rows []remoteItemRow
	if err := q.Order("name", true).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.InventoryItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RemoteInventoryRepository) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var row remoteItemRow
	if err := r.client.From("inventory_items").Select(remoteItemSelect).Eq("id", id).Single(ctx, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func remoteItemValues(item *domain.InventoryItem) map[string]any {
	return map[string]any{
		"branch_id":   item.BranchID,
		"code":        item.Code,
		"name":        item.Name,
		"category":    string(item.Category),
		"supplier_id": nullable(item.SupplierID),
		"unit_price":  item.UnitPrice,
		"cost_price":  item.CostPrice,
		"stock":       item.Stock,
		"min_stock":   item.MinStock,
		"notes":       item.Notes,
		"active":      true,
	}
}

func (r *RemoteInventoryRepository) CreateItem(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error) {
	var created []remoteItemRow
	if err := r.client.Insert(ctx, "inventory_items", remoteItemValues(item), &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apperr.External("inventory.CreateItem", errEmptyRepresentation)
	}
	// the insert representation carries no supplier relation
	return r.GetItem(ctx, created[0].ID)
}

func (r *RemoteInventoryRepository) UpdateItem(ctx context.Context, id string, patch domain.InventoryItemPatch) (*domain.InventoryItem, error) {
	values := itemPatchValues(patch)
	if len(values) > 0 {
		var updated []remoteItemRow
		if err := r.client.From("inventory_items").Eq("id", id).Update(ctx, values, &updated); err != nil {
			return nil, err
		}
		if len(updated) == 0 {
			return nil, apperr.NotFound("inventory item %s not found", id)
		}
	}
	return r.GetItem(ctx, id)
}

func (r *RemoteInventoryRepository) SetItemActive(ctx context.Context, id string, active bool) error {
	var updated []remoteItemRow
	if err := r.client.From("inventory_items").Eq("id", id).Update(ctx, map[string]any{"active": active}, &updated); err != nil {
		return err
	}
	if len(updated) == 0 {
		return apperr.NotFound("inventory item %s not found", id)
	}
	return nil
}

func (r *RemoteInventoryRepository) CountMovements(ctx context.Context, itemID string) (int, error) {
	return r.client.From("inventory_movements").Eq("item_id", itemID).Count(ctx)
}

// remoteMovementRow matches the hosted inventory_movements row.
type remoteMovementRow struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Type      string    `json:"type"`
	Quantity  float64   `json:"quantity"`
	Reason    *string   `json:"reason"`
	Reference *string   `json:"reference"`
	CreatedBy *string   `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (m remoteMovementRow) toDomain() *domain.InventoryMovement {
	return &domain.InventoryMovement{
		ID:        m.ID,
		ItemID:    m.ItemID,
		Type:      domain.MovementType(m.Type),
		Quantity:  m.Quantity,
		Reason:    deref(m.Reason),
		Reference: deref(m.Reference),
		CreatedBy: deref(m.CreatedBy),
		CreatedAt: m.CreatedAt,
	}
}

// CreateMovement calls the register_inventory_movement function, which
// updates stock in the same transaction and raises on insufficient stock.
func (r *RemoteInventoryRepository) CreateMovement(ctx context.Context, m *domain.InventoryMovement) (*domain.InventoryMovement, error) {
	var row remoteMovementRow
	err := r.client.RPC(ctx, "register_inventory_movement", map[string]any{
		"p_item_id":    m.ItemID,
		"p_type":       string(m.Type),
		"p_quantity":   m.Quantity,
		"p_reason":     m.Reason,
		"p_reference":  m.Reference,
		"p_created_by": m.CreatedBy,
	}, &row)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *RemoteInventoryRepository) ListMovements(ctx context.Context, itemID string, limit int) ([]*domain.InventoryMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []remoteMovementRow
	err := r.client.From("inventory_movements").
		Eq("item_id", itemID).
		Order("created_at", false).
		Limit(limit).
		Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.InventoryMovement, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ImportItems sends all rows in one bulk insert, which the backend applies
// atomically.
func (r *RemoteInventoryRepository) ImportItems(ctx context.Context, items []*domain.InventoryItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	rows := make([]map[string]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, remoteItemValues(it))
	}
	if err := r.client.Insert(ctx, "inventory_items", rows, nil); err != nil {
		return 0, err
	}
	return len(items), nil
}
