package services

import (
	"context"
	"errors"
	"fmt"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/pkg/utils"
)

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	UserID    string
	SessionID string
	IPAddress string
}

// Operation is what an authorization check guards. Action is empty for reads;
// denied reads are logged but not audited.
type Operation struct {
	Name       string
	Capability models.Capability
	Action     models.AuditAction
	EntityType string
}

// Authorizer consults the role matrix against the user's current record on every call.
type Authorizer struct {
	users   repositories.UserRepository
	auditor *auditor
}

// newAuthorizer creates a new Authorizer.
func newAuthorizer(users repositories.UserRepository, auditor *auditor) *Authorizer {
	return &Authorizer{users: users, auditor: auditor}
}

// Authorize returns the acting user when their role grants op.Capability.
func (a *Authorizer) Authorize(ctx context.Context, actor Actor, op Operation, entityID string) (*models.User, error) {
	user, err := a.activeUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !user.Role.Can(op.Capability) {
		a.deny(ctx, actor, op, entityID, fmt.Sprintf("role %s lacks %s", user.Role, op.Capability))
		return nil, fmt.Errorf("%w: %s requires %s", ErrAuthorization, op.Name, op.Capability)
	}
	return user, nil
}

// Authenticated returns the acting user without checking a capability.
func (a *Authorizer) Authenticated(ctx context.Context, actor Actor) (*models.User, error) {
	return a.activeUser(ctx, actor)
}

func (a *Authorizer) activeUser(ctx context.Context, actor Actor) (*models.User, error) {
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: no authenticated user", ErrAuthentication)
	}
	user, err := a.users.GetUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrAuthentication)
		}
		return nil, fmt.Errorf("loading acting user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", ErrAuthentication)
	}
	return user, nil
}

// deny records an authorization failure. Write denials go to the audit log.
func (a *Authorizer) deny(ctx context.Context, actor Actor, op Operation, entityID, reason string) {
	utils.LogWarn(nil, "Authorization denied", map[string]interface{}{
		"user_id":    actor.UserID,
		"operation":  op.Name,
		"capability": string(op.Capability),
	})
	if op.Action == "" {
		return
	}
	a.auditor.record(ctx, a.auditor.entry(actor, op.Action, op.EntityType, entityID, map[string]interface{}{
		"outcome":   "denied",
		"operation": op.Name,
		"reason":    reason,
	}))
}
