package repositories

import (
	"context"
	"fmt"
	"strings"

	"warehouse_inventory_backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// AuditRepository defines the interface for the append-only audit log.
type AuditRepository interface {
	AppendAudit(ctx context.Context, e *models.AuditLog) error
	// ListAudit returns matching entries newest first. PageSize <= 0 returns every match.
	ListAudit(ctx context.Context, f models.AuditFilters) ([]models.AuditLog, int, error)
}

type auditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) AppendAudit(ctx context.Context, e *models.AuditLog) error {
	return insertAudit(ctx, r.db, e)
}

func insertAudit(ctx context.Context, db sqlx.ExecerContext, e *models.AuditLog) error {
	details := "{}"
	if len(e.Details) > 0 {
		details = string(e.Details)
	}
	_, err := db.ExecContext(ctx, `INSERT INTO audit_logs
	    (id, user_id, action, entity_type, entity_id, details, ip_address, created_at)
	    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, e.Action, e.EntityType, e.EntityID, details, e.IPAddress, e.CreatedAt)
	if err != nil {
		return wrapPQError(err, "appending audit entry")
	}
	return nil
}

func (r *auditRepository) ListAudit(ctx context.Context, f models.AuditFilters) ([]models.AuditLog, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, user_id, action, entity_type, entity_id, details, ip_address, created_at,
	    COUNT(*) OVER() AS total_count
	  FROM audit_logs`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if f.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argCount))
		args = append(args, f.UserID)
		argCount++
	}
	if f.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argCount))
		args = append(args, f.Action)
		argCount++
	}
	if f.EntityType != "" {
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", argCount))
		args = append(args, f.EntityType)
		argCount++
	}
	if f.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argCount))
		args = append(args, *f.From)
		argCount++
	}
	if f.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argCount))
		args = append(args, *f.To)
		argCount++
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY seq DESC")
	if f.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
		args = append(args, f.PageSize, models.Offset(f.Page, f.PageSize))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing audit log: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	entries := []models.AuditLog{}
	total := 0
	for rows.Next() {
		var e models.AuditLog
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &details,
			&e.IPAddress, &e.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning audit entry: %v", ErrDatabaseError, err)
		}
		e.Details = details
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating audit log: %v", ErrDatabaseError, err)
	}
	return entries, total, nil
}
