package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehouse_inventory_backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// StockWrite replaces one ledger row if its stored version still equals ExpectedVersion.
// ExpectedVersion 0 means the row must not exist yet.
type StockWrite struct {
	Stock           models.Stock
	ExpectedVersion int64
}

// StocktakingTransition moves a stocktaking out of status From as part of a batch.
type StocktakingTransition struct {
	Stocktaking *models.Stocktaking
	From        models.StocktakingStatus
}

// LedgerBatch is committed all-or-nothing.
// Lot rows are upserted by (product, location, number): the quantity is replaced
// and a missing manufactured or expiry date is filled in. They are only written
// together with the stock row of the same key, so the stock version guards them.
type LedgerBatch struct {
	Stocks       []StockWrite
	Lots         []models.Lot
	Transactions []models.Transaction
	Stocktaking  *StocktakingTransition
	Audit        []models.AuditLog
}

// LotExpiryQuery selects lots with quantity > 0 and an expiry date in [From, Before).
// A nil From leaves the range open below.
type LotExpiryQuery struct {
	From   *time.Time
	Before time.Time
}

// LedgerRepository defines the interface for the stock ledger, lot registry and transaction log.
type LedgerRepository interface {
	GetStock(ctx context.Context, productID, locationID string) (*models.Stock, error)
	ListStocks(ctx context.Context, locationID string) ([]models.Stock, error)
	ListProductStocks(ctx context.Context, productID string) ([]models.Stock, error)
	SearchStock(ctx context.Context, f models.StockSearchFilters) ([]models.StockWithDetails, int, error)
	GetLot(ctx context.Context, productID, locationID, number string) (*models.Lot, error)
	ListLots(ctx context.Context, productID, locationID string) ([]models.Lot, error)
	ListLotsByExpiry(ctx context.Context, q LotExpiryQuery) ([]models.Lot, error)
	ListTransactions(ctx context.Context, f models.TransactionFilters) ([]models.Transaction, error)
	Commit(ctx context.Context, b *LedgerBatch) error
}

type ledgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new instance of LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

const stockColumns = `product_id, location_id, quantity, reserved, version, updated_at, updated_by`

const lotColumns = `id, number, product_id, location_id, quantity, manufactured_date, expiry_date, created_at`

func (r *ledgerRepository) GetStock(ctx context.Context, productID, locationID string) (*models.Stock, error) {
	var s models.Stock
	err := r.db.GetContext(ctx, &s,
		`SELECT `+stockColumns+` FROM stocks WHERE product_id = $1 AND location_id = $2`, productID, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding stock: %v", ErrDatabaseError, err)
	}
	return &s, nil
}

func (r *ledgerRepository) ListStocks(ctx context.Context, locationID string) ([]models.Stock, error) {
	stocks := []models.Stock{}
	query := `SELECT ` + stockColumns + ` FROM stocks`
	var args []interface{}
	if locationID != "" {
		query += ` WHERE location_id = $1`
		args = append(args, locationID)
	}
	query += ` ORDER BY location_id, product_id`
	if err := r.db.SelectContext(ctx, &stocks, query, args...); err != nil {
		return nil, fmt.Errorf("%w: listing stocks: %v", ErrDatabaseError, err)
	}
	return stocks, nil
}

func (r *ledgerRepository) ListProductStocks(ctx context.Context, productID string) ([]models.Stock, error) {
	stocks := []models.Stock{}
	err := r.db.SelectContext(ctx, &stocks,
		`SELECT `+stockColumns+` FROM stocks WHERE product_id = $1 ORDER BY location_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing product stocks: %v", ErrDatabaseError, err)
	}
	return stocks, nil
}

func (r *ledgerRepository) SearchStock(ctx context.Context, f models.StockSearchFilters) ([]models.StockWithDetails, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    s.product_id, s.location_id, s.quantity, s.reserved, s.version, s.updated_at, s.updated_by,
	    p.id, p.code, p.name, p.description, p.category, p.unit, p.unit_cost, p.lot_tracked,
	    p.min_stock, p.max_stock, p.is_active, p.created_at, p.updated_at,
	    l.id, l.code, l.name, l.type, l.parent_id, l.capacity, l.is_active, l.created_at, l.updated_at,
	    COUNT(*) OVER() AS total_count
	  FROM stocks s
	  JOIN products p ON s.product_id = p.id
	  JOIN locations l ON s.location_id = l.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if f.ProductCode != "" {
		conditions = append(conditions, fmt.Sprintf("p.code = $%d", argCount))
		args = append(args, f.ProductCode)
		argCount++
	}
	if f.ProductName != "" {
		conditions = append(conditions, fmt.Sprintf("p.name ILIKE $%d", argCount))
		args = append(args, "%"+f.ProductName+"%")
		argCount++
	}
	if f.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("s.location_id = $%d", argCount))
		args = append(args, f.LocationID)
		argCount++
	}
	if f.Category != "" {
		conditions = append(conditions, fmt.Sprintf("p.category = $%d", argCount))
		args = append(args, f.Category)
		argCount++
	}
	if f.MinQuantity != nil {
		conditions = append(conditions, fmt.Sprintf("s.quantity >= $%d", argCount))
		args = append(args, *f.MinQuantity)
		argCount++
	}
	if f.MaxQuantity != nil {
		conditions = append(conditions, fmt.Sprintf("s.quantity <= $%d", argCount))
		args = append(args, *f.MaxQuantity)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY p.code, l.code")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, f.PageSize, models.Offset(f.Page, f.PageSize))

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: searching stock: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	results := []models.StockWithDetails{}
	totalCount := 0
	for rows.Next() {
		var d models.StockWithDetails
		if err := scanStockWithDetails(rows, &d, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning stock: %v", ErrDatabaseError, err)
		}
		results = append(results, d)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating stock: %v", ErrDatabaseError, err)
	}
	return results, totalCount, nil
}

func scanStockWithDetails(row scanner, d *models.StockWithDetails, total *int) error {
	s, p, l := &d.Stock, &d.Product, &d.Location
	return row.Scan(
		&s.ProductID, &s.LocationID, &s.Quantity, &s.Reserved, &s.Version, &s.UpdatedAt, &s.UpdatedBy,
		&p.ID, &p.Code, &p.Name, &p.Description, &p.Category, &p.Unit, &p.UnitCost, &p.LotTracked,
		&p.MinStock, &p.MaxStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		&l.ID, &l.Code, &l.Name, &l.Type, &l.ParentID, &l.Capacity, &l.IsActive, &l.CreatedAt, &l.UpdatedAt,
		total,
	)
}

func (r *ledgerRepository) GetLot(ctx context.Context, productID, locationID, number string) (*models.Lot, error) {
	var lot models.Lot
	err := r.db.GetContext(ctx, &lot,
		`SELECT `+lotColumns+` FROM lots WHERE product_id = $1 AND location_id = $2 AND number = $3`,
		productID, locationID, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding lot: %v", ErrDatabaseError, err)
	}
	return &lot, nil
}

// ListLots filters by product and location when they are non-empty.
func (r *ledgerRepository) ListLots(ctx context.Context, productID, locationID string) ([]models.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE ($1 = '' OR product_id = $1) AND ($2 = '' OR location_id = $2)
	          ORDER BY location_id, number`
	lots := []models.Lot{}
	if err := r.db.SelectContext(ctx, &lots, query, productID, locationID); err != nil {
		return nil, fmt.Errorf("%w: listing lots: %v", ErrDatabaseError, err)
	}
	return lots, nil
}

func (r *ledgerRepository) ListLotsByExpiry(ctx context.Context, q LotExpiryQuery) ([]models.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots
	          WHERE quantity > 0 AND expiry_date IS NOT NULL AND expiry_date < $1
	            AND ($2::timestamptz IS NULL OR expiry_date >= $2)
	          ORDER BY expiry_date, number`
	lots := []models.Lot{}
	if err := r.db.SelectContext(ctx, &lots, query, q.Before, q.From); err != nil {
		return nil, fmt.Errorf("%w: listing lots by expiry: %v", ErrDatabaseError, err)
	}
	return lots, nil
}

type transactionRow struct {
	models.Transaction
	MetadataJSON []byte `db:"metadata"`
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, f models.TransactionFilters) ([]models.Transaction, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, type, product_id, from_location_id, to_location_id, quantity,
	    reference, lot_number, metadata, created_at, created_by
	  FROM transactions`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if f.ProductID != "" {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", argCount))
		args = append(args, f.ProductID)
		argCount++
	}
	if f.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("(from_location_id = $%d OR to_location_id = $%d)", argCount, argCount))
		args = append(args, f.LocationID)
		argCount++
	}
	if f.LotNumber != "" {
		conditions = append(conditions, fmt.Sprintf("lot_number = $%d", argCount))
		args = append(args, f.LotNumber)
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
	if f.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, f.Limit)
	}

	rows := []transactionRow{}
	if err := r.db.SelectContext(ctx, &rows, queryBuilder.String(), args...); err != nil {
		return nil, fmt.Errorf("%w: listing transactions: %v", ErrDatabaseError, err)
	}
	txns := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		t := row.Transaction
		if len(row.MetadataJSON) > 0 {
			if err := json.Unmarshal(row.MetadataJSON, &t.Metadata); err != nil {
				return nil, fmt.Errorf("%w: decoding transaction metadata: %v", ErrDatabaseError, err)
			}
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// Commit applies the batch in one SQL transaction. Any stale version or
// unexpected stocktaking status rolls everything back with ErrVersionConflict.
func (r *ledgerRepository) Commit(ctx context.Context, b *LedgerBatch) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning ledger batch: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	for _, w := range b.Stocks {
		if err := writeStock(ctx, tx, w); err != nil {
			return err
		}
	}
	for _, lot := range b.Lots {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO lots (`+lotColumns+`)
		    VALUES (:id, :number, :product_id, :location_id, :quantity, :manufactured_date, :expiry_date, :created_at)
		    ON CONFLICT (product_id, location_id, number) DO UPDATE SET
		        quantity = EXCLUDED.quantity,
		        manufactured_date = COALESCE(lots.manufactured_date, EXCLUDED.manufactured_date),
		        expiry_date = COALESCE(lots.expiry_date, EXCLUDED.expiry_date)`, lot)
		if err != nil {
			return wrapPQError(err, "writing lot")
		}
	}
	for _, t := range b.Transactions {
		metadata, err := json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("%w: encoding transaction metadata: %v", ErrDatabaseError, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO transactions
		    (id, type, product_id, from_location_id, to_location_id, quantity, reference, lot_number, metadata, created_at, created_by)
		    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			t.ID, t.Type, t.ProductID, t.FromLocationID, t.ToLocationID, t.Quantity, t.Reference,
			t.LotNumber, string(metadata), t.CreatedAt, t.CreatedBy)
		if err != nil {
			return wrapPQError(err, "appending transaction")
		}
	}
	if b.Stocktaking != nil {
		if err := updateStocktakingTx(ctx, tx, b.Stocktaking.Stocktaking, b.Stocktaking.From); err != nil {
			return err
		}
	}
	for i := range b.Audit {
		if err := insertAudit(ctx, tx, &b.Audit[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing ledger batch: %v", ErrDatabaseError, err)
	}
	return nil
}

func writeStock(ctx context.Context, tx *sqlx.Tx, w StockWrite) error {
	s := w.Stock
	var res sql.Result
	var err error
	if w.ExpectedVersion == 0 {
		res, err = tx.ExecContext(ctx, `INSERT INTO stocks (`+stockColumns+`)
		    VALUES ($1, $2, $3, $4, $5, $6, $7)
		    ON CONFLICT (product_id, location_id) DO NOTHING`,
			s.ProductID, s.LocationID, s.Quantity, s.Reserved, s.Version, s.UpdatedAt, s.UpdatedBy)
	} else {
		res, err = tx.ExecContext(ctx, `UPDATE stocks
		    SET quantity = $3, reserved = $4, version = $5, updated_at = $6, updated_by = $7
		    WHERE product_id = $1 AND location_id = $2 AND version = $8`,
			s.ProductID, s.LocationID, s.Quantity, s.Reserved, s.Version, s.UpdatedAt, s.UpdatedBy, w.ExpectedVersion)
	}
	if err != nil {
		return wrapPQError(err, "writing stock")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: writing stock: %v", ErrDatabaseError, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: stock %s@%s moved past version %d", ErrVersionConflict, s.ProductID, s.LocationID, w.ExpectedVersion)
	}
	return nil
}
