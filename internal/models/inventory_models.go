package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// LocationType classifies a node in the location tree.
type LocationType string

const (
	LocationWarehouse LocationType = "WAREHOUSE"
	LocationArea      LocationType = "AREA"
	LocationShelf     LocationType = "SHELF"
	LocationBin       LocationType = "BIN"
)

// Valid reports whether t is a known location type.
func (t LocationType) Valid() bool {
	switch t {
	case LocationWarehouse, LocationArea, LocationShelf, LocationBin:
		return true
	}
	return false
}

// Product is a stocked item. Products are deactivated, never deleted.
type Product struct {
	ID          string          `json:"id" db:"id"`
	Code        string          `json:"code" db:"code"`
	Name        string          `json:"name" db:"name"`
	Description *string         `json:"description,omitempty" db:"description"`
	Category    string          `json:"category" db:"category"`
	Unit        string          `json:"unit" db:"unit"`
	UnitCost    decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	LotTracked  bool            `json:"lot_tracked" db:"lot_tracked"`
	MinStock    *int64          `json:"min_stock,omitempty" db:"min_stock"`
	MaxStock    *int64          `json:"max_stock,omitempty" db:"max_stock"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Location is a warehouse, area, shelf or bin.
type Location struct {
	ID        string       `json:"id" db:"id"`
	Code      string       `json:"code" db:"code"`
	Name      string       `json:"name" db:"name"`
	Type      LocationType `json:"type" db:"type"`
	ParentID  *string      `json:"parent_id,omitempty" db:"parent_id"`
	Capacity  *int64       `json:"capacity,omitempty" db:"capacity"`
	IsActive  bool         `json:"is_active" db:"is_active"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// StockKey identifies one ledger row.
type StockKey struct {
	ProductID  string
	LocationID string
}

// Stock is the ledger row for one product at one location.
// Available is derived and never stored.
type Stock struct {
	ProductID  string    `json:"product_id" db:"product_id"`
	LocationID string    `json:"location_id" db:"location_id"`
	Quantity   int64     `json:"quantity" db:"quantity"`
	Reserved   int64     `json:"reserved" db:"reserved"`
	Version    int64     `json:"version" db:"version"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
	UpdatedBy  string    `json:"updated_by" db:"updated_by"`
}

// Key returns the ledger key of the row.
func (s Stock) Key() StockKey {
	return StockKey{ProductID: s.ProductID, LocationID: s.LocationID}
}

// Available is quantity minus reserved.
func (s Stock) Available() int64 {
	return s.Quantity - s.Reserved
}

// Valid reports whether 0 <= reserved <= quantity.
func (s Stock) Valid() bool {
	return s.Quantity >= 0 && s.Reserved >= 0 && s.Reserved <= s.Quantity
}

// MarshalJSON adds the derived available field.
func (s Stock) MarshalJSON() ([]byte, error) {
	type plain Stock
	return json.Marshal(struct {
		plain
		Available int64 `json:"available"`
	}{plain(s), s.Available()})
}

// StockWithDetails is a ledger row joined with its master data and lots.
type StockWithDetails struct {
	Stock
	Product  Product  `json:"product"`
	Location Location `json:"location"`
	Lots     []Lot    `json:"lots,omitempty"`
}

// MarshalJSON keeps the embedded stock fields flat next to the joined records.
func (s StockWithDetails) MarshalJSON() ([]byte, error) {
	type plain Stock
	return json.Marshal(struct {
		plain
		Available int64    `json:"available"`
		Product   Product  `json:"product"`
		Location  Location `json:"location"`
		Lots      []Lot    `json:"lots,omitempty"`
	}{plain(s.Stock), s.Available(), s.Product, s.Location, s.Lots})
}

// StockSearchFilters narrows a stock search.
type StockSearchFilters struct {
	ProductCode string
	ProductName string
	LocationID  string
	Category    string
	MinQuantity *int64
	MaxQuantity *int64
	Page        int
	PageSize    int
}

// Lot is a traceable sub-grouping of stock at one location.
type Lot struct {
	ID               string     `json:"id" db:"id"`
	Number           string     `json:"number" db:"number"`
	ProductID        string     `json:"product_id" db:"product_id"`
	LocationID       string     `json:"location_id" db:"location_id"`
	Quantity         int64      `json:"quantity" db:"quantity"`
	ManufacturedDate *time.Time `json:"manufactured_date,omitempty" db:"manufactured_date"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// TransactionType is the kind of ledger movement.
type TransactionType string

const (
	TransactionInbound  TransactionType = "inbound"
	TransactionOutbound TransactionType = "outbound"
	TransactionTransfer TransactionType = "transfer"
	TransactionAdjust   TransactionType = "adjust"
)

// Transaction is an immutable ledger movement record.
type Transaction struct {
	ID             string            `json:"id" db:"id"`
	Type           TransactionType   `json:"type" db:"type"`
	ProductID      string            `json:"product_id" db:"product_id"`
	FromLocationID *string           `json:"from_location_id,omitempty" db:"from_location_id"`
	ToLocationID   *string           `json:"to_location_id,omitempty" db:"to_location_id"`
	Quantity       int64             `json:"quantity" db:"quantity"`
	Reference      string            `json:"reference" db:"reference"`
	LotNumber      *string           `json:"lot_number,omitempty" db:"lot_number"`
	Metadata       map[string]string `json:"metadata,omitempty" db:"-"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	CreatedBy      string            `json:"created_by" db:"created_by"`
}

// TransactionFilters selects transaction log entries. Results are newest first.
// From and To bound created_at inclusively.
type TransactionFilters struct {
	ProductID  string
	LocationID string
	LotNumber  string
	From       *time.Time
	To         *time.Time
	Limit      int
}

// InRange reports whether t passes the time bounds.
func (f TransactionFilters) InRange(t time.Time) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.To != nil && t.After(*f.To) {
		return false
	}
	return true
}

// ProductStockTotal sums one product's ledger rows across locations.
type ProductStockTotal struct {
	ProductID string  `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	Reserved  int64   `json:"reserved"`
	Available int64   `json:"available"`
	Locations []Stock `json:"locations"`
}
