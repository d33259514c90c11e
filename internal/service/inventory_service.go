package service

import (
	"context"
	"strings"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/repository"

	"go.uber.org/zap"
)

// InventoryService is the inventory feature module.
type InventoryService struct {
	runner *dualaccess.Runner
	repos  dualaccess.Backends[repository.InventoryRepository]
	logger *zap.Logger
}

func NewInventoryService(runner *dualaccess.Runner, repos dualaccess.Backends[repository.InventoryRepository], logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{runner: runner, repos: repos, logger: logger}
}

// ListSuppliers returns active suppliers ordered by name.
func (s *InventoryService) ListSuppliers(ctx context.Context) ([]*domain.Supplier, error) {
	return dualaccess.Do(ctx, s.runner, familyInventory, "ListSuppliers", s.repos,
		func(ctx context.Context, r repository.InventoryRepository) ([]*domain.Supplier, error) {
			return r.ListSuppliers(ctx)
		})
}

func (s *InventoryService) ListItems(ctx context.Context, f repository.ItemFilters) ([]*domain.InventoryItem, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, apperr.Validation("unknown category %q", f.Category)
	}
	f.Search = strings.TrimSpace(f.Search)
	return dualaccess.Do(ctx, s.runner, familyInventory, "ListItems", s.repos,
		func(ctx context.Context, r repository.InventoryRepository) ([]*domain.InventoryItem, error) {
			return r.ListItems(ctx, f)
		})
}

func (s *InventoryService) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyInventory, "GetItem", s.repos,
		func(ctx context.Context, r repository.InventoryRepository) (*domain.InventoryItem, error) {
			return r.GetItem(ctx, id)
		})
}

// validateItem checks a new item and normalizes its text fields in place.
func validateItem(item *domain.InventoryItem) error {
	item.Code = strings.TrimSpace(item.Code)
	item.Name = strings.TrimSpace(item.Name)
	if err := required("branch_id", item.BranchID); err != nil {
		return err
	}
	if err := required("code", item.Code); err != nil {
		return err
	}
	if err := required("name", item.Name); err != nil {
		return err
	}
	if !item.Category.Valid() {
		return apperr.Validation("unknown category %q", item.Category)
	}
	return nonNegative(
		amount{"unit_price", &item.UnitPrice},
		amount{"cost_price", &item.CostPrice},
		amount{"stock", &item.Stock},
		amount{"min_stock", &item.MinStock},
	)
}

// amount is a named numeric field; a nil value is skipped.
type amount struct {
	field string
	value *float64
}

func nonNegative(values ...amount) error {
	for _, a := range values {
		if a.value != nil && *a.value < 0 {
			return apperr.Validation("%s cannot be negative", a.field)
		}
	}
	return nil
}

func (s *InventoryService) CreateItem(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error) {
	if item == nil {
		return nil, apperr.Validation("item is required")
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyInventory, "CreateItem", s.repos,
		func(ctx context.Context, r repository.InventoryRepository) (*domain.InventoryItem, error) {
			return r.CreateItem(ctx, item)
		})
}

func (s *InventoryService) UpdateItem(ctx context.Context, id string, patch domain.InventoryItemPatch) (*domain.InventoryItem, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	if patch == (domain.InventoryItemPatch{}) {
		return nil, apperr.Validation("nothing to update")
	}
	if patch.Code != nil {
		if err := required("code", *patch.Code); err != nil {
			return nil, err
		}
	}
	if patch.Name != nil {
		if err := required("name", *patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Category != nil && !patch.Category.Valid() {
		return nil, apperr.Validation("unknown category %q", *patch.Category)
	}
	err := nonNegative(
		amount{"unit_price", patch.UnitPrice},
		amount{"cost_price", patch.CostPrice},
		amount{"min_stock", patch.MinStock},
	)
	if err != nil {
		return nil, err
	}
	return dualaccess.Do(ctx, s.runner, familyInventory, "UpdateItem", s.repos,
		func(ctx context.Context, r repository.InventoryRepository) (*domain.InventoryItem, error) {
			return r.UpdateItem(ctx, id, patch)
		})
}

// DeleteItem deactivates an item. Items with recorded movements keep their
// history and cannot be deleted; that check runs before any write.
func (s *InventoryService) DeleteItem(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	return dualaccess.Exec(ctx, s.runner, familyInventory, "DeleteItem", s.repos,
		func(ctx context.Context, r repository.InventoryRepository) error {
			n, err := r.CountMovements(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				s.logger.Warn("Inventory delete rejected",
					zap.String("item_id", id),
					zap.Int("movements", n),
				)
				return apperr.BusinessRule("item has %d recorded movements and cannot be deleted", n)
			}
			return r.SetItemActive(ctx, id, false)
		})
}

// RecordMovement registers a stock movement. For ajuste the quantity is the
// counted stock; entrada and salida are relative.
func (s *InventoryService) RecordMovement(ctx context.Context, m *domain.InventoryMovement) (*domain.InventoryMovement, error) {
	if m == nil {
		return nil, apperr.Validation("movement is required")
	}
	if err := required("item_id", m.ItemID); err != nil {
		return nil, err
	}
	if !m.Type.Valid() {
		return nil, apperr.Validation("unknown movement type %q", m.Type)
	}
	if m.Type == domain.MovementAdjust {
		if m.Quantity < 0 {
			return nil, apperr.Validation("quantity cannot be negative")
		}
	} else if m.Quantity <= 0 {
		return nil, apperr.Validation("quantity must be greater than zero")
	}
	if m.CreatedBy == "" {
		m.CreatedBy = callerID(ctx)
	}
	return dualaccess.Do(ctx, s.runner, familyInventory, "RecordMovement", s.repos,
		func(ctx context.Context, r repository.InventoryRepository) (*domain.InventoryMovement, error) {
			return r.CreateMovement(ctx, m)
		})
}

func (s *InventoryService) ListMovements(ctx context.Context, itemID string, limit int) ([]*domain.InventoryMovement, error) {
	if err := required("item_id", itemID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return dualaccess.Do(ctx, s.runner, familyInventory, "ListMovements", s.repos,
		func(ctx context.Context, r repository.InventoryRepository) ([]*domain.InventoryMovement, error) {
			return r.ListMovements(ctx, itemID, limit)
		})
}
