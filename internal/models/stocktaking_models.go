package models

import (
	"encoding/json"
	"time"
)

// StocktakingStatus is a state of the counting workflow.
type StocktakingStatus string

const (
	StocktakingDraft           StocktakingStatus = "DRAFT"
	StocktakingInProgress      StocktakingStatus = "IN_PROGRESS"
	StocktakingPendingApproval StocktakingStatus = "PENDING_APPROVAL"
	StocktakingApproved        StocktakingStatus = "APPROVED"
	StocktakingRejected        StocktakingStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s StocktakingStatus) Valid() bool {
	switch s {
	case StocktakingDraft, StocktakingInProgress, StocktakingPendingApproval, StocktakingApproved, StocktakingRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s StocktakingStatus) Terminal() bool {
	return s == StocktakingApproved || s == StocktakingRejected
}

// Open reports whether counting may still change the result.
func (s StocktakingStatus) Open() bool {
	return s == StocktakingInProgress || s == StocktakingPendingApproval
}

// Stocktaking is one count of a location.
type Stocktaking struct {
	ID              string            `json:"id" db:"id"`
	LocationID      string            `json:"location_id" db:"location_id"`
	Status          StocktakingStatus `json:"status" db:"status"`
	ScheduledDate   time.Time         `json:"scheduled_date" db:"scheduled_date"`
	StartedAt       *time.Time        `json:"started_at,omitempty" db:"started_at"`
	SubmittedBy     *string           `json:"submitted_by,omitempty" db:"submitted_by"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty" db:"submitted_at"`
	CompletedDate   *time.Time        `json:"completed_date,omitempty" db:"completed_date"`
	ApprovedBy      *string           `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty" db:"approved_at"`
	RejectionReason *string           `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedBy       string            `json:"created_by" db:"created_by"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
	Items           []StocktakingItem `json:"items,omitempty" db:"-"`
}

// StocktakingItem is one counted product within a stocktaking.
type StocktakingItem struct {
	ID             string    `json:"id" db:"id"`
	StocktakingID  string    `json:"stocktaking_id" db:"stocktaking_id"`
	ProductID      string    `json:"product_id" db:"product_id"`
	LocationID     string    `json:"location_id" db:"location_id"`
	SystemQuantity int64     `json:"system_quantity" db:"system_quantity"`
	ActualQuantity *int64    `json:"actual_quantity,omitempty" db:"actual_quantity"`
	Note           *string   `json:"note,omitempty" db:"note"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Counted reports whether an actual quantity was recorded.
func (i StocktakingItem) Counted() bool {
	return i.ActualQuantity != nil
}

// Discrepancy is actual minus system, or zero while uncounted.
func (i StocktakingItem) Discrepancy() int64 {
	if i.ActualQuantity == nil {
		return 0
	}
	return *i.ActualQuantity - i.SystemQuantity
}

// MarshalJSON adds the derived discrepancy once the item is counted.
func (i StocktakingItem) MarshalJSON() ([]byte, error) {
	type plain StocktakingItem
	var d *int64
	if i.Counted() {
		v := i.Discrepancy()
		d = &v
	}
	return json.Marshal(struct {
		plain
		Discrepancy *int64 `json:"discrepancy,omitempty"`
	}{plain(i), d})
}
