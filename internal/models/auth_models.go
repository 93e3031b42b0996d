package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Role is one of the five fixed user roles.
type Role string

const (
	RoleSystemAdmin      Role = "SYSTEM_ADMIN"
	RoleInventoryManager Role = "INVENTORY_MANAGER"
	RoleFieldOperator    Role = "FIELD_OPERATOR"
	RoleAnalyst          Role = "ANALYST"
	RoleViewer           Role = "VIEWER"
)

// AllRoles lists the roles in display order.
var AllRoles = []Role{RoleSystemAdmin, RoleInventoryManager, RoleFieldOperator, RoleAnalyst, RoleViewer}

// Capability is a single named permission granted to a role.
type Capability string

const (
	CapInventoryRead    Capability = "inventory:read"
	CapInventoryWrite   Capability = "inventory:write"
	CapMasterRead       Capability = "master:read"
	CapMasterWrite      Capability = "master:write"
	CapStocktakingRead  Capability = "stocktaking:read"
	CapStocktakingWrite Capability = "stocktaking:write"
	CapReportRead       Capability = "report:read"
	CapAuditRead        Capability = "audit:read"
	CapUserManage       Capability = "user:manage"
)

// CapabilitySet is an unordered set of capabilities.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the capabilities in lexical order.
func (s CapabilitySet) Sorted() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoleCapabilities is the role-permission matrix. It is configuration data, not an ACL engine.
var RoleCapabilities = map[Role]CapabilitySet{
	RoleSystemAdmin: NewCapabilitySet(
		CapInventoryRead, CapInventoryWrite,
		CapMasterRead, CapMasterWrite,
		CapStocktakingRead, CapStocktakingWrite,
		CapReportRead, CapAuditRead, CapUserManage,
	),
	RoleInventoryManager: NewCapabilitySet(
		CapInventoryRead, CapInventoryWrite,
		CapMasterRead, CapMasterWrite,
		CapStocktakingRead, CapStocktakingWrite,
		CapReportRead,
	),
	RoleFieldOperator: NewCapabilitySet(
		CapInventoryRead, CapInventoryWrite,
		CapStocktakingRead, CapStocktakingWrite,
	),
	RoleAnalyst: NewCapabilitySet(
		CapInventoryRead, CapMasterRead,
		CapReportRead, CapAuditRead,
	),
	RoleViewer: NewCapabilitySet(
		CapInventoryRead, CapMasterRead,
	),
}

// Can reports whether the role grants the capability. Unknown roles grant nothing.
func (r Role) Can(c Capability) bool {
	caps, ok := RoleCapabilities[r]
	if !ok {
		return false
	}
	return caps.Has(c)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := RoleCapabilities[r]
	return ok
}

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// RoleInfo describes a role and its capabilities for listing.
type RoleInfo struct {
	Role         Role         `json:"role"`
	Capabilities []Capability `json:"capabilities"`
}

// User represents a user in the system
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"` // '-' means don't send in JSON response
	Role         Role      `json:"role" db:"role"`
	LocationID   *string   `json:"location_id,omitempty" db:"location_id"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Session is a login session; its ID is carried in access and refresh tokens.
// ExpiresAt bounds how long the session can be refreshed.
type Session struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	IPAddress string     `json:"ip_address" db:"ip_address"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// Active reports whether the session is usable at t.
func (s *Session) Active(t time.Time) bool {
	return s.RevokedAt == nil && t.Before(s.ExpiresAt)
}
