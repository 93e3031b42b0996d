package models

import (
	"encoding/json"
	"time"
)

// AuditAction is the verb recorded in the audit log.
type AuditAction string

const (
	AuditCreate  AuditAction = "CREATE"
	AuditUpdate  AuditAction = "UPDATE"
	AuditDelete  AuditAction = "DELETE"
	AuditLogin   AuditAction = "LOGIN"
	AuditLogout  AuditAction = "LOGOUT"
	AuditApprove AuditAction = "APPROVE"
	AuditReject  AuditAction = "REJECT"
	AuditExport  AuditAction = "EXPORT"
)

// Valid reports whether a is a known action.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditCreate, AuditUpdate, AuditDelete, AuditLogin, AuditLogout, AuditApprove, AuditReject, AuditExport:
		return true
	}
	return false
}

// Entity types written to the audit log.
const (
	EntityTransaction = "transaction"
	EntityStock       = "stock"
	EntityProduct     = "product"
	EntityLocation    = "location"
	EntityUser        = "user"
	EntitySession     = "session"
	EntityStocktaking = "stocktaking"
	EntityAuditLog    = "audit_log"
	EntityAlert       = "alert"
)

// AuditLog is an immutable record of a state-changing or security-relevant action.
type AuditLog struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	Action     AuditAction     `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// AuditFilters selects audit entries. From and To are inclusive.
type AuditFilters struct {
	UserID     string
	Action     AuditAction
	EntityType string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// Matches reports whether the entry passes the filters, ignoring paging.
func (f AuditFilters) Matches(e AuditLog) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
