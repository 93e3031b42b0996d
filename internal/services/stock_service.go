package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

var (
	opStockRead  = Operation{Name: "stock.read", Capability: models.CapInventoryRead}
	opInbound    = Operation{Name: "stock.inbound", Capability: models.CapInventoryWrite, Action: models.AuditCreate, EntityType: models.EntityTransaction}
	opOutbound   = Operation{Name: "stock.outbound", Capability: models.CapInventoryWrite, Action: models.AuditCreate, EntityType: models.EntityTransaction}
	opTransfer   = Operation{Name: "stock.transfer", Capability: models.CapInventoryWrite, Action: models.AuditCreate, EntityType: models.EntityTransaction}
	opReserve    = Operation{Name: "stock.reserve", Capability: models.CapInventoryWrite, Action: models.AuditUpdate, EntityType: models.EntityStock}
	opRelease    = Operation{Name: "stock.release", Capability: models.CapInventoryWrite, Action: models.AuditUpdate, EntityType: models.EntityStock}
)

// --- Data Transfer Objects (DTOs) ---

// InboundRequest DTO
type InboundRequest struct {
	ProductID        string            `json:"product_id" binding:"required"`
	LocationID       string            `json:"location_id" binding:"required"`
	Quantity         int64             `json:"quantity"`
	Reference        string            `json:"reference"`
	LotNumber        string            `json:"lot_number"`
	ManufacturedDate string            `json:"manufactured_date"` // YYYY-MM-DD or RFC 3339
	ExpiryDate       string            `json:"expiry_date"`       // YYYY-MM-DD or RFC 3339
	Metadata         map[string]string `json:"metadata"`
}

// OutboundRequest DTO
type OutboundRequest struct {
	ProductID  string            `json:"product_id" binding:"required"`
	LocationID string            `json:"location_id" binding:"required"`
	Quantity   int64             `json:"quantity"`
	Reference  string            `json:"reference"`
	LotNumber  string            `json:"lot_number"`
	Metadata   map[string]string `json:"metadata"`
}

// TransferRequest DTO
type TransferRequest struct {
	ProductID      string            `json:"product_id" binding:"required"`
	FromLocationID string            `json:"from_location_id" binding:"required"`
	ToLocationID   string            `json:"to_location_id" binding:"required"`
	Quantity       int64             `json:"quantity"`
	Reference      string            `json:"reference"`
	LotNumber      string            `json:"lot_number"`
	Metadata       map[string]string `json:"metadata"`
}

// ReservationRequest DTO, used for both reserve and release.
type ReservationRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	LocationID string `json:"location_id" binding:"required"`
	Quantity   int64  `json:"quantity"`
	Reference  string `json:"reference"`
}

// StockService owns every write to the stock ledger.
type StockService struct {
	ledger    repositories.LedgerRepository
	committer *ledgerCommitter
	products  repositories.ProductRepository
	locations repositories.LocationRepository
	authz     *Authorizer
	auditor   *auditor
	now       func() time.Time
}

// ledgerRow is a stock row together with its lots, read at one version.
type ledgerRow struct {
	stock  models.Stock
	lots   map[string]models.Lot
	lotSum int64
}

// untracked is the quantity not attributed to any lot.
func (r ledgerRow) untracked() int64 {
	return r.stock.Quantity - r.lotSum
}

func (s *StockService) readRow(ctx context.Context, productID, locationID string) (*ledgerRow, error) {
	stock, err := s.ledger.GetStock(ctx, productID, locationID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		stock = &models.Stock{ProductID: productID, LocationID: locationID}
	case err != nil:
		return nil, fmt.Errorf("reading stock: %w", err)
	}
	lots, err := s.ledger.ListLots(ctx, productID, locationID)
	if err != nil {
		return nil, fmt.Errorf("reading lots: %w", err)
	}
	row := &ledgerRow{stock: *stock, lots: make(map[string]models.Lot, len(lots))}
	for _, lot := range lots {
		row.lots[lot.Number] = lot
		row.lotSum += lot.Quantity
	}
	return row, nil
}

// next returns the row's successor stock with the version bumped.
func (s *StockService) next(row *ledgerRow, actor Actor, at time.Time) models.Stock {
	n := row.stock
	n.Version = row.stock.Version + 1
	n.UpdatedAt = at
	n.UpdatedBy = actor.UserID
	return n
}

// activeMasterData returns the product and locations, requiring all to exist and be active.
func (s *StockService) activeMasterData(ctx context.Context, productID string, locationIDs ...string) (*models.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, ErrValidation, "unknown product "+productID)
	}
	if !product.IsActive {
		return nil, validationf("product %s is inactive", product.Code)
	}
	for _, id := range locationIDs {
		location, err := s.locations.GetLocation(ctx, id)
		if err != nil {
			return nil, notFoundOr(err, ErrValidation, "unknown location "+id)
		}
		if !location.IsActive {
			return nil, validationf("location %s is inactive", location.Code)
		}
	}
	return product, nil
}

func validateMovement(quantity int64, reference string) error {
	if quantity <= 0 {
		return validationf("quantity must be positive, got %d", quantity)
	}
	if utils.IsEmpty(reference) {
		return validationf("reference is required")
	}
	return nil
}

func requireLot(product *models.Product, lotNumber string) error {
	if product.LotTracked && lotNumber == "" {
		return validationf("product %s is lot tracked, lot_number is required", product.Code)
	}
	return nil
}

func stockEntityID(productID, locationID string) string {
	return productID + "@" + locationID
}

// Inbound receives quantity into a location, optionally into a lot.
func (s *StockService) Inbound(ctx context.Context, actor Actor, req InboundRequest) (*models.Transaction, error) {
	if _, err := s.authz.Authorize(ctx, actor, opInbound, ""); err != nil {
		return nil, err
	}
	if err := validateMovement(req.Quantity, req.Reference); err != nil {
		return nil, err
	}
	manufactured, err := utils.StrToOptionalTime(req.ManufacturedDate)
	if err != nil {
		return nil, validationf("manufactured_date: %v", err)
	}
	expiry, err := utils.StrToOptionalTime(req.ExpiryDate)
	if err != nil {
		return nil, validationf("expiry_date: %v", err)
	}
	lotNumber := strings.TrimSpace(req.LotNumber)
	if lotNumber == "" && (manufactured != nil || expiry != nil) {
		return nil, validationf("lot dates require a lot_number")
	}
	product, err := s.activeMasterData(ctx, req.ProductID, req.LocationID)
	if err != nil {
		return nil, err
	}
	if err := requireLot(product, lotNumber); err != nil {
		return nil, err
	}

	now := s.now()
	txn := models.Transaction{
		ID:           uuid.NewString(),
		Type:         models.TransactionInbound,
		ProductID:    req.ProductID,
		ToLocationID: &req.LocationID,
		Quantity:     req.Quantity,
		Reference:    strings.TrimSpace(req.Reference),
		LotNumber:    utils.NewNullString(lotNumber),
		Metadata:     req.Metadata,
		CreatedAt:    now,
		CreatedBy:    actor.UserID,
	}

	err = s.committer.commit(ctx, "inbound", func(ctx context.Context) (*repositories.LedgerBatch, error) {
		row, err := s.readRow(ctx, req.ProductID, req.LocationID)
		if err != nil {
			return nil, err
		}
		stock := s.next(row, actor, now)
		stock.Quantity += req.Quantity
		batch := &repositories.LedgerBatch{
			Stocks:       []repositories.StockWrite{{Stock: stock, ExpectedVersion: row.stock.Version}},
			Transactions: []models.Transaction{txn},
		}
		if lotNumber != "" {
			lot, ok := row.lots[lotNumber]
			if !ok {
				lot = models.Lot{
					ID:               uuid.NewString(),
					Number:           lotNumber,
					ProductID:        req.ProductID,
					LocationID:       req.LocationID,
					ManufacturedDate: dayPtr(manufactured),
					ExpiryDate:       dayPtr(expiry),
					CreatedAt:        now,
				}
			} else if err := mergeLotDates(&lot, dayPtr(manufactured), dayPtr(expiry)); err != nil {
				return nil, err
			}
			lot.Quantity += req.Quantity
			batch.Lots = append(batch.Lots, lot)
		}
		batch.Audit = []models.AuditLog{s.auditor.entry(actor, models.AuditCreate, models.EntityTransaction, txn.ID, map[string]interface{}{
			"type":        txn.Type,
			"product_id":  txn.ProductID,
			"location_id": req.LocationID,
			"quantity":    txn.Quantity,
			"reference":   txn.Reference,
			"lot_number":  lotNumber,
		})}
		return batch, nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// mergeLotDates folds incoming dates into an existing lot. A date the lot lacks
// is adopted; a different expiry is rejected since one lot has one expiry.
func mergeLotDates(lot *models.Lot, manufactured, expiry *time.Time) error {
	if expiry != nil {
		switch {
		case lot.ExpiryDate == nil:
			lot.ExpiryDate = expiry
		case !expiry.Equal(*lot.ExpiryDate):
			return validationf("lot %s already exists with expiry %s, got %s",
				lot.Number, lot.ExpiryDate.Format(time.DateOnly), expiry.Format(time.DateOnly))
		}
	}
	if manufactured != nil && lot.ManufacturedDate == nil {
		lot.ManufacturedDate = manufactured
	}
	return nil
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := startOfDay(*t)
	return &d
}

// consume validates taking quantity out of row, from lotNumber when given.
// It returns the updated lot, if any.
func consume(row *ledgerRow, quantity int64, lotNumber string) (*models.Lot, error) {
	if available := row.stock.Available(); available < quantity {
		return nil, fmt.Errorf("%w: available %d, requested %d", ErrInsufficientStock, available, quantity)
	}
	if lotNumber == "" {
		if row.untracked() < quantity {
			return nil, validationf("only %d units are outside lots; specify a lot_number", row.untracked())
		}
		return nil, nil
	}
	lot, ok := row.lots[lotNumber]
	if !ok {
		return nil, validationf("lot %s does not exist at this location", lotNumber)
	}
	if lot.Quantity < quantity {
		return nil, fmt.Errorf("%w: lot %s holds %d, requested %d", ErrInsufficientStock, lotNumber, lot.Quantity, quantity)
	}
	lot.Quantity -= quantity
	return &lot, nil
}

// Outbound ships quantity out of a location. Available stock must cover it.
func (s *StockService) Outbound(ctx context.Context, actor Actor, req OutboundRequest) (*models.Transaction, error) {
	if _, err := s.authz.Authorize(ctx, actor, opOutbound, ""); err != nil {
		return nil, err
	}
	if err := validateMovement(req.Quantity, req.Reference); err != nil {
		return nil, err
	}
	product, err := s.activeMasterData(ctx, req.ProductID, req.LocationID)
	if err != nil {
		return nil, err
	}
	lotNumber := strings.TrimSpace(req.LotNumber)
	if err := requireLot(product, lotNumber); err != nil {
		return nil, err
	}

	now := s.now()
	txn := models.Transaction{
		ID:             uuid.NewString(),
		Type:           models.TransactionOutbound,
		ProductID:      req.ProductID,
		FromLocationID: &req.LocationID,
		Quantity:       req.Quantity,
		Reference:      strings.TrimSpace(req.Reference),
		LotNumber:      utils.NewNullString(lotNumber),
		Metadata:       req.Metadata,
		CreatedAt:      now,
		CreatedBy:      actor.UserID,
	}

	err = s.committer.commit(ctx, "outbound", func(ctx context.Context) (*repositories.LedgerBatch, error) {
		row, err := s.readRow(ctx, req.ProductID, req.LocationID)
		if err != nil {
			return nil, err
		}
		lot, err := consume(row, req.Quantity, lotNumber)
		if err != nil {
			return nil, err
		}
		stock := s.next(row, actor, now)
		stock.Quantity -= req.Quantity
		batch := &repositories.LedgerBatch{
			Stocks:       []repositories.StockWrite{{Stock: stock, ExpectedVersion: row.stock.Version}},
			Transactions: []models.Transaction{txn},
		}
		if lot != nil {
			batch.Lots = append(batch.Lots, *lot)
		}
		batch.Audit = []models.AuditLog{s.auditor.entry(actor, models.AuditCreate, models.EntityTransaction, txn.ID, map[string]interface{}{
			"type":        txn.Type,
			"product_id":  txn.ProductID,
			"location_id": req.LocationID,
			"quantity":    txn.Quantity,
			"reference":   txn.Reference,
			"lot_number":  lotNumber,
		})}
		return batch, nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Transfer moves quantity between two locations in one batch. Lots move with
// their number; the destination gets its own lot row with the same dates.
func (s *StockService) Transfer(ctx context.Context, actor Actor, req TransferRequest) (*models.Transaction, error) {
	if _, err := s.authz.Authorize(ctx, actor, opTransfer, ""); err != nil {
		return nil, err
	}
	if err := validateMovement(req.Quantity, req.Reference); err != nil {
		return nil, err
	}
	if req.FromLocationID == req.ToLocationID {
		return nil, validationf("source and destination locations must differ")
	}
	product, err := s.activeMasterData(ctx, req.ProductID, req.FromLocationID, req.ToLocationID)
	if err != nil {
		return nil, err
	}
	lotNumber := strings.TrimSpace(req.LotNumber)
	if err := requireLot(product, lotNumber); err != nil {
		return nil, err
	}

	now := s.now()
	txn := models.Transaction{
		ID:             uuid.NewString(),
		Type:           models.TransactionTransfer,
		ProductID:      req.ProductID,
		FromLocationID: &req.FromLocationID,
		ToLocationID:   &req.ToLocationID,
		Quantity:       req.Quantity,
		Reference:      strings.TrimSpace(req.Reference),
		LotNumber:      utils.NewNullString(lotNumber),
		Metadata:       req.Metadata,
		CreatedAt:      now,
		CreatedBy:      actor.UserID,
	}

	err = s.committer.commit(ctx, "transfer", func(ctx context.Context) (*repositories.LedgerBatch, error) {
		src, err := s.readRow(ctx, req.ProductID, req.FromLocationID)
		if err != nil {
			return nil, err
		}
		dst, err := s.readRow(ctx, req.ProductID, req.ToLocationID)
		if err != nil {
			return nil, err
		}
		srcLot, err := consume(src, req.Quantity, lotNumber)
		if err != nil {
			return nil, err
		}
		srcStock := s.next(src, actor, now)
		srcStock.Quantity -= req.Quantity
		dstStock := s.next(dst, actor, now)
		dstStock.Quantity += req.Quantity

		batch := &repositories.LedgerBatch{
			Stocks: []repositories.StockWrite{
				{Stock: srcStock, ExpectedVersion: src.stock.Version},
				{Stock: dstStock, ExpectedVersion: dst.stock.Version},
			},
			Transactions: []models.Transaction{txn},
		}
		if srcLot != nil {
			dstLot, ok := dst.lots[lotNumber]
			if !ok {
				dstLot = models.Lot{
					ID:               uuid.NewString(),
					Number:           lotNumber,
					ProductID:        req.ProductID,
					LocationID:       req.ToLocationID,
					ManufacturedDate: srcLot.ManufacturedDate,
					ExpiryDate:       srcLot.ExpiryDate,
					CreatedAt:        now,
				}
			} else if err := mergeLotDates(&dstLot, srcLot.ManufacturedDate, srcLot.ExpiryDate); err != nil {
				return nil, err
			}
			dstLot.Quantity += req.Quantity
			batch.Lots = append(batch.Lots, *srcLot, dstLot)
		}
		batch.Audit = []models.AuditLog{s.auditor.entry(actor, models.AuditCreate, models.EntityTransaction, txn.ID, map[string]interface{}{
			"type":             txn.Type,
			"product_id":       txn.ProductID,
			"from_location_id": req.FromLocationID,
			"to_location_id":   req.ToLocationID,
			"quantity":         txn.Quantity,
			"reference":        txn.Reference,
			"lot_number":       lotNumber,
		})}
		return batch, nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Reserve commits available quantity to a future outbound. No transaction is logged.
func (s *StockService) Reserve(ctx context.Context, actor Actor, req ReservationRequest) (*models.Stock, error) {
	return s.changeReservation(ctx, actor, opReserve, req, req.Quantity)
}

// ReleaseReservation returns reserved quantity to available.
func (s *StockService) ReleaseReservation(ctx context.Context, actor Actor, req ReservationRequest) (*models.Stock, error) {
	return s.changeReservation(ctx, actor, opRelease, req, -req.Quantity)
}

func (s *StockService) changeReservation(ctx context.Context, actor Actor, op Operation, req ReservationRequest, delta int64) (*models.Stock, error) {
	entityID := stockEntityID(req.ProductID, req.LocationID)
	if _, err := s.authz.Authorize(ctx, actor, op, entityID); err != nil {
		return nil, err
	}
	if err := validateMovement(req.Quantity, req.Reference); err != nil {
		return nil, err
	}
	if _, err := s.activeMasterData(ctx, req.ProductID, req.LocationID); err != nil {
		return nil, err
	}

	now := s.now()
	var result models.Stock
	err := s.committer.commit(ctx, op.Name, func(ctx context.Context) (*repositories.LedgerBatch, error) {
		row, err := s.readRow(ctx, req.ProductID, req.LocationID)
		if err != nil {
			return nil, err
		}
		if delta > 0 && row.stock.Available() < delta {
			return nil, fmt.Errorf("%w: available %d, requested reservation of %d", ErrInsufficientStock, row.stock.Available(), delta)
		}
		if delta < 0 && row.stock.Reserved < -delta {
			return nil, fmt.Errorf("%w: reserved %d, requested release of %d", ErrInvariantViolation, row.stock.Reserved, -delta)
		}
		stock := s.next(row, actor, now)
		stock.Reserved += delta
		result = stock
		return &repositories.LedgerBatch{
			Stocks: []repositories.StockWrite{{Stock: stock, ExpectedVersion: row.stock.Version}},
			Audit: []models.AuditLog{s.auditor.entry(actor, models.AuditUpdate, models.EntityStock, entityID, map[string]interface{}{
				"operation": op.Name,
				"quantity":  req.Quantity,
				"reference": strings.TrimSpace(req.Reference),
				"reserved":  stock.Reserved,
			})},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// adjustment is one planned stocktaking correction.
type adjustment struct {
	write repositories.StockWrite
	txn   models.Transaction
}

// planAdjust reads the row and plans applying delta to its quantity. It never writes.
// The result must remain >= reserved and >= the lot sum.
func (s *StockService) planAdjust(ctx context.Context, actor Actor, productID, locationID string, delta int64, reference string, metadata map[string]string, at time.Time) (*adjustment, error) {
	if delta == 0 {
		return nil, validationf("adjustment delta must be non-zero")
	}
	row, err := s.readRow(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}
	stock := s.next(row, actor, at)
	stock.Quantity += delta
	if stock.Quantity < stock.Reserved {
		return nil, fmt.Errorf("%w: adjusting %s by %d leaves quantity %d below reserved %d",
			ErrInvariantViolation, stockEntityID(productID, locationID), delta, stock.Quantity, stock.Reserved)
	}
	if stock.Quantity < row.lotSum {
		return nil, fmt.Errorf("%w: adjusting %s by %d leaves quantity %d below lot total %d",
			ErrInvariantViolation, stockEntityID(productID, locationID), delta, stock.Quantity, row.lotSum)
	}

	txn := models.Transaction{
		ID:        uuid.NewString(),
		Type:      models.TransactionAdjust,
		ProductID: productID,
		Quantity:  delta,
		Reference: reference,
		Metadata:  metadata,
		CreatedAt: at,
		CreatedBy: actor.UserID,
	}
	if delta > 0 {
		txn.ToLocationID = &locationID
	} else {
		txn.Quantity = -delta
		txn.FromLocationID = &locationID
	}
	return &adjustment{
		write: repositories.StockWrite{Stock: stock, ExpectedVersion: row.stock.Version},
		txn:   txn,
	}, nil
}

// GetStock returns the ledger row. A known pair without a row reads as zero at version 0.
func (s *StockService) GetStock(ctx context.Context, actor Actor, productID, locationID string) (*models.Stock, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStockRead, ""); err != nil {
		return nil, err
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, ErrNotFound, "product "+productID)
	}
	if _, err := s.locations.GetLocation(ctx, locationID); err != nil {
		return nil, notFoundOr(err, ErrNotFound, "location "+locationID)
	}
	stock, err := s.ledger.GetStock(ctx, productID, locationID)
	if errors.Is(err, repositories.ErrNotFound) {
		return &models.Stock{ProductID: productID, LocationID: locationID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading stock: %w", err)
	}
	return stock, nil
}

// SearchStock pages through ledger rows joined with their master data and lots.
func (s *StockService) SearchStock(ctx context.Context, actor Actor, filters models.StockSearchFilters) (*models.Page[models.StockWithDetails], error) {
	if _, err := s.authz.Authorize(ctx, actor, opStockRead, ""); err != nil {
		return nil, err
	}
	if filters.MinQuantity != nil && filters.MaxQuantity != nil && *filters.MinQuantity > *filters.MaxQuantity {
		return nil, validationf("min_quantity exceeds max_quantity")
	}
	filters.Page, filters.PageSize = models.NormalizePage(filters.Page, filters.PageSize)
	rows, total, err := s.ledger.SearchStock(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("searching stock: %w", err)
	}
	for i := range rows {
		lots, err := s.ledger.ListLots(ctx, rows[i].ProductID, rows[i].LocationID)
		if err != nil {
			return nil, fmt.Errorf("reading lots: %w", err)
		}
		if len(lots) > 0 {
			rows[i].Lots = lots
		}
	}
	page := models.NewPage(rows, total, filters.Page, filters.PageSize)
	return &page, nil
}

// History lists a product's transactions, newest first.
func (s *StockService) History(ctx context.Context, actor Actor, productID string, limit int) ([]models.Transaction, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStockRead, ""); err != nil {
		return nil, err
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, ErrNotFound, "product "+productID)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	txns, err := s.ledger.ListTransactions(ctx, models.TransactionFilters{ProductID: productID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return txns, nil
}

// LocationHistory lists transactions touching a location, newest first.
func (s *StockService) LocationHistory(ctx context.Context, actor Actor, locationID string, limit int) ([]models.Transaction, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStockRead, ""); err != nil {
		return nil, err
	}
	if _, err := s.locations.GetLocation(ctx, locationID); err != nil {
		return nil, notFoundOr(err, ErrNotFound, "location "+locationID)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	txns, err := s.ledger.ListTransactions(ctx, models.TransactionFilters{LocationID: locationID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return txns, nil
}

// ProductTotal sums a product's stock over every location it is held in.
func (s *StockService) ProductTotal(ctx context.Context, actor Actor, productID string) (*models.ProductStockTotal, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStockRead, ""); err != nil {
		return nil, err
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, ErrNotFound, "product "+productID)
	}
	stocks, err := s.ledger.ListProductStocks(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("reading stock: %w", err)
	}
	total := &models.ProductStockTotal{ProductID: productID, Locations: stocks}
	for _, st := range stocks {
		total.Quantity += st.Quantity
		total.Reserved += st.Reserved
	}
	total.Available = total.Quantity - total.Reserved
	return total, nil
}

// HistoryInRange lists a product's transactions created within [from, to], newest first.
// Either bound may be nil.
func (s *StockService) HistoryInRange(ctx context.Context, actor Actor, productID string, from, to *time.Time, limit int) ([]models.Transaction, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStockRead, ""); err != nil {
		return nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, validationf("from must not be after to")
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, ErrNotFound, "product "+productID)
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	txns, err := s.ledger.ListTransactions(ctx, models.TransactionFilters{ProductID: productID, From: from, To: to, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return txns, nil
}
