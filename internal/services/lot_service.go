package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/repositories"
)

// DefaultExpiringWithinDays is used when the caller gives no window.
const DefaultExpiringWithinDays = 14

var opLotRead = Operation{Name: "lots.read", Capability: models.CapInventoryRead}

// LotService answers lot registry queries. Lot rows change only through the ledger.
type LotService struct {
	ledger   repositories.LedgerRepository
	products repositories.ProductRepository
	authz    *Authorizer
	now      func() time.Time
}

// ByProduct lists every lot of a product, ordered by location then number.
func (s *LotService) ByProduct(ctx context.Context, actor Actor, productID string) ([]models.Lot, error) {
	if _, err := s.authz.Authorize(ctx, actor, opLotRead, ""); err != nil {
		return nil, err
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, ErrNotFound, "product "+productID)
	}
	lots, err := s.ledger.ListLots(ctx, productID, "")
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	return lots, nil
}

// Get returns one lot of a product at a location.
func (s *LotService) Get(ctx context.Context, actor Actor, productID, locationID, number string) (*models.Lot, error) {
	if _, err := s.authz.Authorize(ctx, actor, opLotRead, ""); err != nil {
		return nil, err
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, validationf("lot number is required")
	}
	lot, err := s.ledger.GetLot(ctx, productID, locationID, number)
	if err != nil {
		return nil, notFoundOr(err, ErrNotFound, "lot "+number)
	}
	return lot, nil
}

// Expiring lists non-empty lots expiring in [today, today+withinDays].
func (s *LotService) Expiring(ctx context.Context, actor Actor, withinDays int) ([]models.Lot, error) {
	if _, err := s.authz.Authorize(ctx, actor, opLotRead, ""); err != nil {
		return nil, err
	}
	if withinDays < 0 {
		return nil, validationf("within_days must not be negative, got %d", withinDays)
	}
	return expiringLots(ctx, s.ledger, s.now(), withinDays)
}

func expiringLots(ctx context.Context, ledger repositories.LedgerRepository, now time.Time, withinDays int) ([]models.Lot, error) {
	today := startOfDay(now)
	lots, err := ledger.ListLotsByExpiry(ctx, repositories.LotExpiryQuery{
		From:   &today,
		Before: today.AddDate(0, 0, withinDays+1),
	})
	if err != nil {
		return nil, fmt.Errorf("listing expiring lots: %w", err)
	}
	return lots, nil
}

// Expired lists non-empty lots whose expiry date is before today.
func (s *LotService) Expired(ctx context.Context, actor Actor) ([]models.Lot, error) {
	if _, err := s.authz.Authorize(ctx, actor, opLotRead, ""); err != nil {
		return nil, err
	}
	return expiredLots(ctx, s.ledger, s.now())
}

func expiredLots(ctx context.Context, ledger repositories.LedgerRepository, now time.Time) ([]models.Lot, error) {
	lots, err := ledger.ListLotsByExpiry(ctx, repositories.LotExpiryQuery{Before: startOfDay(now)})
	if err != nil {
		return nil, fmt.Errorf("listing expired lots: %w", err)
	}
	return lots, nil
}

// HistoryByLotNumber lists transactions that carried the lot number, newest first.
func (s *LotService) HistoryByLotNumber(ctx context.Context, actor Actor, number string) ([]models.Transaction, error) {
	if _, err := s.authz.Authorize(ctx, actor, opLotRead, ""); err != nil {
		return nil, err
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, validationf("lot number is required")
	}
	txns, err := s.ledger.ListTransactions(ctx, models.TransactionFilters{LotNumber: number, Limit: maxHistoryLimit})
	if err != nil {
		return nil, fmt.Errorf("listing lot history: %w", err)
	}
	return txns, nil
}
