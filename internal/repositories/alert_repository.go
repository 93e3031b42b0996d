package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"warehouse_inventory_backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// AlertRepository defines the interface for stock alerts.
type AlertRepository interface {
	CreateAlert(ctx context.Context, a *models.StockAlert) error
	GetAlert(ctx context.Context, id string) (*models.StockAlert, error)
	ResolveAlert(ctx context.Context, id string, at time.Time) error
	ListAlerts(ctx context.Context, activeOnly bool, locationID string) ([]models.StockAlert, error)
}

type alertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates a new instance of AlertRepository.
func NewAlertRepository(db *sqlx.DB) AlertRepository {
	return &alertRepository{db: db}
}

const alertColumns = `id, type, product_id, location_id, message, is_active, created_at, resolved_at`

func (r *alertRepository) CreateAlert(ctx context.Context, a *models.StockAlert) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO stock_alerts (`+alertColumns+`)
	    VALUES (:id, :type, :product_id, :location_id, :message, :is_active, :created_at, :resolved_at)`, a)
	if err != nil {
		return wrapPQError(err, "creating alert")
	}
	return nil
}

func (r *alertRepository) GetAlert(ctx context.Context, id string) (*models.StockAlert, error) {
	var a models.StockAlert
	err := r.db.GetContext(ctx, &a, `SELECT `+alertColumns+` FROM stock_alerts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding alert: %v", ErrDatabaseError, err)
	}
	return &a, nil
}

func (r *alertRepository) ResolveAlert(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stock_alerts SET is_active = FALSE, resolved_at = $2 WHERE id = $1 AND is_active`, id, at)
	if err != nil {
		return fmt.Errorf("%w: resolving alert: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *alertRepository) ListAlerts(ctx context.Context, activeOnly bool, locationID string) ([]models.StockAlert, error) {
	alerts := []models.StockAlert{}
	err := r.db.SelectContext(ctx, &alerts, `SELECT `+alertColumns+` FROM stock_alerts
	    WHERE (NOT $1 OR is_active) AND ($2 = '' OR location_id = $2)
	    ORDER BY created_at DESC`, activeOnly, locationID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing alerts: %v", ErrDatabaseError, err)
	}
	return alerts, nil
}
