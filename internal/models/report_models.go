package models

import "time"

// Valuation line for one ledger row.
type ValuationLine struct {
	ProductID   string `json:"product_id"`
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	LocationID  string `json:"location_id"`
	Quantity    int64  `json:"quantity"`
	UnitCost    string `json:"unit_cost"`
	Value       string `json:"value"`
}

// ValuationReport totals stock value at unit cost.
type ValuationReport struct {
	LocationID  *string         `json:"location_id,omitempty"`
	Lines       []ValuationLine `json:"lines"`
	TotalValue  string          `json:"total_value"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ABCClass ranks a product by its share of consumption value.
type ABCClass string

const (
	ABCClassA ABCClass = "A"
	ABCClassB ABCClass = "B"
	ABCClassC ABCClass = "C"
)

// ABCItem is one product's consumption at a location over the report window.
type ABCItem struct {
	ProductID        string   `json:"product_id"`
	ProductCode      string   `json:"product_code"`
	ProductName      string   `json:"product_name"`
	OutboundQuantity int64    `json:"outbound_quantity"`
	ConsumptionValue string   `json:"consumption_value"`
	CumulativeShare  string   `json:"cumulative_share"` // percent, after this item
	Class            ABCClass `json:"class"`
}

// ABCReport classifies the products of one location, highest value first.
type ABCReport struct {
	LocationID string    `json:"location_id"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	TotalValue string    `json:"total_value"`
	Items      []ABCItem `json:"items"`
}

// TurnoverReport relates a product's outbound volume to its average stock.
type TurnoverReport struct {
	ProductID        string    `json:"product_id"`
	From             time.Time `json:"from"`
	To               time.Time `json:"to"`
	OutboundQuantity int64     `json:"outbound_quantity"`
	OpeningQuantity  int64     `json:"opening_quantity"`
	ClosingQuantity  int64     `json:"closing_quantity"`
	AverageInventory string    `json:"average_inventory"`
	TurnoverRate     string    `json:"turnover_rate"`
	DaysOfSupply     *string   `json:"days_of_supply,omitempty"`
}

// SlowMovingItem is stock that has not left its location within the window.
type SlowMovingItem struct {
	ProductID   string `json:"product_id"`
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	Value       string `json:"value"`
}

// SlowMovingReport lists idle stock at one location, highest value first.
type SlowMovingReport struct {
	LocationID string           `json:"location_id"`
	Since      time.Time        `json:"since"`
	Items      []SlowMovingItem `json:"items"`
}
