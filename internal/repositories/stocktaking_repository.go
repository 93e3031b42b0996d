package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warehouse_inventory_backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// StocktakingRepository defines the interface for stocktaking records and their items.
type StocktakingRepository interface {
	CreateStocktaking(ctx context.Context, st *models.Stocktaking) error
	GetStocktaking(ctx context.Context, id string) (*models.Stocktaking, error)
	ListStocktakings(ctx context.Context, status *models.StocktakingStatus) ([]models.Stocktaking, error)
	// UpdateStocktaking writes st only while the stored status is still from.
	UpdateStocktaking(ctx context.Context, st *models.Stocktaking, from models.StocktakingStatus) error
	// UpsertStocktakingItem writes item only while the stocktaking is in status required.
	UpsertStocktakingItem(ctx context.Context, item *models.StocktakingItem, required models.StocktakingStatus) error
}

type stocktakingRepository struct {
	db *sqlx.DB
}

// NewStocktakingRepository creates a new instance of StocktakingRepository.
func NewStocktakingRepository(db *sqlx.DB) StocktakingRepository {
	return &stocktakingRepository{db: db}
}

const stocktakingColumns = `id, location_id, status, scheduled_date, started_at, submitted_by, submitted_at,
	completed_date, approved_by, approved_at, rejection_reason, created_by, created_at, updated_at`

const stocktakingItemColumns = `id, stocktaking_id, product_id, location_id, system_quantity, actual_quantity, note, updated_at`

func (r *stocktakingRepository) CreateStocktaking(ctx context.Context, st *models.Stocktaking) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning stocktaking insert: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `INSERT INTO stocktakings (`+stocktakingColumns+`)
	    VALUES (:id, :location_id, :status, :scheduled_date, :started_at, :submitted_by, :submitted_at,
	            :completed_date, :approved_by, :approved_at, :rejection_reason, :created_by, :created_at, :updated_at)`, st)
	if err != nil {
		return wrapPQError(err, "creating stocktaking")
	}
	for _, item := range st.Items {
		_, err = tx.NamedExecContext(ctx, `INSERT INTO stocktaking_items (`+stocktakingItemColumns+`)
		    VALUES (:id, :stocktaking_id, :product_id, :location_id, :system_quantity, :actual_quantity, :note, :updated_at)`, item)
		if err != nil {
			return wrapPQError(err, "creating stocktaking item")
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing stocktaking: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *stocktakingRepository) GetStocktaking(ctx context.Context, id string) (*models.Stocktaking, error) {
	var st models.Stocktaking
	err := r.db.GetContext(ctx, &st, `SELECT `+stocktakingColumns+` FROM stocktakings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding stocktaking %s: %v", ErrDatabaseError, id, err)
	}
	st.Items = []models.StocktakingItem{}
	err = r.db.SelectContext(ctx, &st.Items,
		`SELECT `+stocktakingItemColumns+` FROM stocktaking_items WHERE stocktaking_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: listing stocktaking items: %v", ErrDatabaseError, err)
	}
	return &st, nil
}

func (r *stocktakingRepository) ListStocktakings(ctx context.Context, status *models.StocktakingStatus) ([]models.Stocktaking, error) {
	query := `SELECT ` + stocktakingColumns + ` FROM stocktakings`
	var args []interface{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`
	list := []models.Stocktaking{}
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("%w: listing stocktakings: %v", ErrDatabaseError, err)
	}
	return list, nil
}

func (r *stocktakingRepository) UpdateStocktaking(ctx context.Context, st *models.Stocktaking, from models.StocktakingStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning stocktaking update: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()
	if err := updateStocktakingTx(ctx, tx, st, from); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing stocktaking update: %v", ErrDatabaseError, err)
	}
	return nil
}

func updateStocktakingTx(ctx context.Context, tx *sqlx.Tx, st *models.Stocktaking, from models.StocktakingStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE stocktakings
	    SET status = $2, started_at = $3, submitted_by = $4, submitted_at = $5, completed_date = $6,
	        approved_by = $7, approved_at = $8, rejection_reason = $9, updated_at = $10
	    WHERE id = $1 AND status = $11`,
		st.ID, st.Status, st.StartedAt, st.SubmittedBy, st.SubmittedAt, st.CompletedDate,
		st.ApprovedBy, st.ApprovedAt, st.RejectionReason, st.UpdatedAt, from)
	if err != nil {
		return fmt.Errorf("%w: updating stocktaking: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: stocktaking %s is no longer %s", ErrVersionConflict, st.ID, from)
	}
	return nil
}

func (r *stocktakingRepository) UpsertStocktakingItem(ctx context.Context, item *models.StocktakingItem, required models.StocktakingStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning item upsert: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	// Lock the header so a concurrent submit cannot slip between the check and the write.
	var status models.StocktakingStatus
	err = tx.GetContext(ctx, &status, `SELECT status FROM stocktakings WHERE id = $1 FOR UPDATE`, item.StocktakingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: locking stocktaking: %v", ErrDatabaseError, err)
	}
	if status != required {
		return fmt.Errorf("%w: stocktaking %s is %s", ErrVersionConflict, item.StocktakingID, status)
	}
	_, err = tx.NamedExecContext(ctx, `INSERT INTO stocktaking_items (`+stocktakingItemColumns+`)
	    VALUES (:id, :stocktaking_id, :product_id, :location_id, :system_quantity, :actual_quantity, :note, :updated_at)
	    ON CONFLICT (stocktaking_id, product_id) DO UPDATE
	    SET actual_quantity = EXCLUDED.actual_quantity, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at`, item)
	if err != nil {
		return wrapPQError(err, "upserting stocktaking item")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing item upsert: %v", ErrDatabaseError, err)
	}
	return nil
}
