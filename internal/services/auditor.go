package services

import (
	"context"
	"encoding/json"
	"time"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/google/uuid"
)

// auditor builds and appends audit entries. Ledger writes put the entry in
// their batch instead of calling record.
type auditor struct {
	repo repositories.AuditRepository
	now  func() time.Time
}

func newAuditor(repo repositories.AuditRepository, now func() time.Time) *auditor {
	return &auditor{repo: repo, now: now}
}

func (a *auditor) entry(actor Actor, action models.AuditAction, entityType, entityID string, details map[string]interface{}) models.AuditLog {
	raw, err := json.Marshal(details)
	if err != nil || details == nil {
		raw = json.RawMessage(`{}`)
	}
	return models.AuditLog{
		ID:         uuid.NewString(),
		UserID:     actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    raw,
		IPAddress:  actor.IPAddress,
		CreatedAt:  a.now(),
	}
}

// record appends e after the audited change has already been applied.
// A failure is logged; the change itself stands.
func (a *auditor) record(ctx context.Context, e models.AuditLog) {
	if err := a.repo.AppendAudit(context.WithoutCancel(ctx), &e); err != nil {
		utils.LogError(err, "Failed to append audit entry "+string(e.Action)+" "+e.EntityType+"/"+e.EntityID)
	}
}
