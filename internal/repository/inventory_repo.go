package repository

import (
	"context"

	"centrovision-data/internal/domain"
)

// InventoryRepository is the inventory contract both backends satisfy.
type InventoryRepository interface {
	// ListSuppliers returns active suppliers ordered by name.
	ListSuppliers(ctx context.Context) ([]*domain.Supplier, error)

	ListItems(ctx context.Context, filters ItemFilters) ([]*domain.InventoryItem, error)
	GetItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	CreateItem(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error)
	UpdateItem(ctx context.Context, id string, patch domain.InventoryItemPatch) (*domain.InventoryItem, error)
	SetItemActive(ctx context.Context, id string, active bool) error

	CountMovements(ctx context.Context, itemID string) (int, error)
	// CreateMovement stores the movement and applies it to the item stock atomically.
	CreateMovement(ctx context.Context, m *domain.InventoryMovement) (*domain.InventoryMovement, error)
	ListMovements(ctx context.Context, itemID string, limit int) ([]*domain.InventoryMovement, error)

	// ImportItems inserts all items or none and returns the number inserted.
	ImportItems(ctx context.Context, items []*domain.InventoryItem) (int, error)
}

// ItemFilters narrows ListItems.
type ItemFilters struct {
	BranchID        string
	Category        domain.Category
	Search          string // name or code, case-insensitive substring
	IncludeInactive bool
}
