package domain

import (
	"time"
)

// Category is an inventory category. The set is fixed.
type Category string

const (
	CategoryMedicamentos   Category = "medicamentos"
	CategoryGotas          Category = "gotas"
	CategoryLentes         Category = "lentes"
	CategoryLentesContacto Category = "lentes_contacto"
	CategoryArmazones      Category = "armazones"
	CategoryInsumos        Category = "insumos"
	CategoryAccesorios     Category = "accesorios"
	CategoryOtros          Category = "otros"
)

// Categories lists the valid categories in display order.
var Categories = []Category{
	CategoryMedicamentos,
	CategoryGotas,
	CategoryLentes,
	CategoryLentesContacto,
	CategoryArmazones,
	CategoryInsumos,
	CategoryAccesorios,
	CategoryOtros,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Supplier provides inventory items.
type Supplier struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContactName string `json:"contact_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"active"`
}

// InventoryItem is one stock-keeping unit of a branch.
type InventoryItem struct {
	ID       string   `json:"id"`
	BranchID string   `json:"branch_id"`
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Category Category `json:"category"`

	// supplier (name resolved by the backend)
	SupplierID   string `json:"supplier_id,omitempty"`
	SupplierName string `json:"supplier_name,omitempty"`

	UnitPrice float64 `json:"unit_price"`
	CostPrice float64 `json:"cost_price"`
	Stock     float64 `json:"stock"`
	MinStock  float64 `json:"min_stock"`

	Active    bool      `json:"active"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LowStock reports whether the item is at or below its minimum.
func (i *InventoryItem) LowStock() bool {
	return i.MinStock > 0 && i.Stock <= i.MinStock
}

// InventoryItemPatch carries the editable fields; nil means unchanged.
type InventoryItemPatch struct {
	Code       *string   `json:"code,omitempty"`
	Name       *string   `json:"name,omitempty"`
	Category   *Category `json:"category,omitempty"`
	SupplierID *string   `json:"supplier_id,omitempty"`
	UnitPrice  *float64  `json:"unit_price,omitempty"`
	CostPrice  *float64  `json:"cost_price,omitempty"`
	MinStock   *float64  `json:"min_stock,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
}

type MovementType string

const (
	MovementIn     MovementType = "entrada"
	MovementOut    MovementType = "salida"
	MovementAdjust MovementType = "ajuste"
)

func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut || t == MovementAdjust
}

// InventoryMovement is a stock change. For ajuste, Quantity is the new
// absolute stock; for entrada/salida it is the delta magnitude.
type InventoryMovement struct {
	ID        string       `json:"id"`
	ItemID    string       `json:"item_id"`
	Type      MovementType `json:"type"`
	Quantity  float64      `json:"quantity"`
	Reason    string       `json:"reason,omitempty"`
	Reference string       `json:"reference,omitempty"`
	CreatedBy string       `json:"created_by,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// ApplyMovement returns the stock after m is applied to stock.
func ApplyMovement(stock float64, m MovementType, qty float64) float64 {
	switch m {
	case MovementIn:
		return Round2(stock + qty)
	case MovementOut:
		return Round2(stock - qty)
	default:
		return Round2(qty)
	}
}
