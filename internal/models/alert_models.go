package models

import "time"

// AlertType is the condition a stock alert reports.
type AlertType string

const (
	AlertLowStock    AlertType = "low_stock"
	AlertOverStock   AlertType = "over_stock"
	AlertExpiring    AlertType = "expiring"
	AlertExpired     AlertType = "expired"
	AlertDiscrepancy AlertType = "discrepancy"
)

// StockAlert is raised by the background evaluator and resolved when its condition clears.
type StockAlert struct {
	ID         string     `json:"id" db:"id"`
	Type       AlertType  `json:"type" db:"type"`
	ProductID  string     `json:"product_id" db:"product_id"`
	LocationID string     `json:"location_id" db:"location_id"`
	Message    string     `json:"message" db:"message"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// AlertKey identifies the condition behind an alert. At most one active alert exists per key.
type AlertKey struct {
	Type       AlertType
	ProductID  string
	LocationID string
}

// Key returns the condition key of the alert.
func (a StockAlert) Key() AlertKey {
	return AlertKey{Type: a.Type, ProductID: a.ProductID, LocationID: a.LocationID}
}
