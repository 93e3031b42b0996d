package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/google/uuid"
)

var (
	opAlertRead    = Operation{Name: "alerts.read", Capability: models.CapInventoryRead}
	opAlertResolve = Operation{Name: "alerts.resolve", Capability: models.CapInventoryWrite, Action: models.AuditUpdate, EntityType: models.EntityAlert}
)

// EvaluationResult counts what one evaluation pass changed.
type EvaluationResult struct {
	Created  int `json:"created"`
	Resolved int `json:"resolved"`
}

// AlertService raises and clears stock alerts from the current ledger state.
type AlertService struct {
	alerts           repositories.AlertRepository
	ledger           repositories.LedgerRepository
	products         repositories.ProductRepository
	stocktakings     repositories.StocktakingRepository
	authz            *Authorizer
	auditor          *auditor
	expiryWindowDays int
	now              func() time.Time
}

// Run evaluates once immediately and then every interval until ctx is done.
func (s *AlertService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return validationf("alert interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		res, err := s.Evaluate(ctx)
		if err != nil && ctx.Err() == nil {
			utils.LogError(err, "Stock alert evaluation failed")
		} else if res.Created+res.Resolved > 0 {
			utils.LogInfo("Stock alerts evaluated", map[string]interface{}{"created": res.Created, "resolved": res.Resolved})
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Evaluate creates an active alert for every condition that holds and has none,
// and resolves active alerts whose condition has cleared.
func (s *AlertService) Evaluate(ctx context.Context) (EvaluationResult, error) {
	var res EvaluationResult
	desired, err := s.conditions(ctx)
	if err != nil {
		return res, err
	}
	active, err := s.alerts.ListAlerts(ctx, true, "")
	if err != nil {
		return res, fmt.Errorf("listing active alerts: %w", err)
	}

	now := s.now()
	for _, a := range active {
		if _, ok := desired[a.Key()]; ok {
			delete(desired, a.Key())
			continue
		}
		if err := s.alerts.ResolveAlert(ctx, a.ID, now); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			return res, fmt.Errorf("resolving alert %s: %w", a.ID, err)
		}
		res.Resolved++
	}
	for key, message := range desired {
		alert := &models.StockAlert{
			ID:         uuid.NewString(),
			Type:       key.Type,
			ProductID:  key.ProductID,
			LocationID: key.LocationID,
			Message:    message,
			IsActive:   true,
			CreatedAt:  now,
		}
		if err := s.alerts.CreateAlert(ctx, alert); err != nil {
			// Another evaluator raised it first.
			if errors.Is(err, repositories.ErrDuplicateKey) {
				continue
			}
			return res, fmt.Errorf("creating alert: %w", err)
		}
		res.Created++
	}
	return res, nil
}

// conditions maps every currently holding alert condition to its message.
func (s *AlertService) conditions(ctx context.Context) (map[models.AlertKey]string, error) {
	desired := map[models.AlertKey]string{}

	products, err := s.productIndex(ctx)
	if err != nil {
		return nil, err
	}
	stocks, err := s.ledger.ListStocks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing stock: %w", err)
	}
	for _, st := range stocks {
		p, ok := products[st.ProductID]
		if !ok || !p.IsActive {
			continue
		}
		if p.MinStock != nil && st.Available() <= *p.MinStock {
			desired[models.AlertKey{Type: models.AlertLowStock, ProductID: st.ProductID, LocationID: st.LocationID}] =
				fmt.Sprintf("%s: available %d at or below minimum %d", p.Code, st.Available(), *p.MinStock)
		}
		if p.MaxStock != nil && st.Quantity > *p.MaxStock {
			desired[models.AlertKey{Type: models.AlertOverStock, ProductID: st.ProductID, LocationID: st.LocationID}] =
				fmt.Sprintf("%s: quantity %d above maximum %d", p.Code, st.Quantity, *p.MaxStock)
		}
	}

	now := s.now()
	expiring, err := expiringLots(ctx, s.ledger, now, s.expiryWindowDays)
	if err != nil {
		return nil, err
	}
	for _, lot := range expiring {
		key := models.AlertKey{Type: models.AlertExpiring, ProductID: lot.ProductID, LocationID: lot.LocationID}
		if _, seen := desired[key]; !seen {
			desired[key] = fmt.Sprintf("lot %s expires on %s", lot.Number, lot.ExpiryDate.Format("2006-01-02"))
		}
	}
	expired, err := expiredLots(ctx, s.ledger, now)
	if err != nil {
		return nil, err
	}
	for _, lot := range expired {
		key := models.AlertKey{Type: models.AlertExpired, ProductID: lot.ProductID, LocationID: lot.LocationID}
		if _, seen := desired[key]; !seen {
			desired[key] = fmt.Sprintf("lot %s expired on %s", lot.Number, lot.ExpiryDate.Format("2006-01-02"))
		}
	}

	for _, status := range []models.StocktakingStatus{models.StocktakingInProgress, models.StocktakingPendingApproval} {
		headers, err := s.stocktakings.ListStocktakings(ctx, &status)
		if err != nil {
			return nil, fmt.Errorf("listing open stocktakings: %w", err)
		}
		for _, h := range headers {
			st, err := s.stocktakings.GetStocktaking(ctx, h.ID)
			if err != nil {
				return nil, fmt.Errorf("loading stocktaking %s: %w", h.ID, err)
			}
			for _, item := range st.Items {
				if !item.Counted() || item.Discrepancy() == 0 {
					continue
				}
				desired[models.AlertKey{Type: models.AlertDiscrepancy, ProductID: item.ProductID, LocationID: item.LocationID}] =
					fmt.Sprintf("stocktaking %s counted %+d against the ledger", st.ID, item.Discrepancy())
			}
		}
	}
	return desired, nil
}

func (s *AlertService) productIndex(ctx context.Context) (map[string]models.Product, error) {
	index := map[string]models.Product{}
	for offset := 0; ; offset += models.MaxPageSize {
		batch, total, err := s.products.ListProducts(ctx, offset, models.MaxPageSize)
		if err != nil {
			return nil, fmt.Errorf("listing products: %w", err)
		}
		for _, p := range batch {
			index[p.ID] = p
		}
		if len(batch) == 0 || offset+len(batch) >= total {
			return index, nil
		}
	}
}

// List returns alerts newest first, optionally only active ones at one location.
func (s *AlertService) List(ctx context.Context, actor Actor, locationID string, activeOnly bool) ([]models.StockAlert, error) {
	if _, err := s.authz.Authorize(ctx, actor, opAlertRead, ""); err != nil {
		return nil, err
	}
	alerts, err := s.alerts.ListAlerts(ctx, activeOnly, locationID)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	return alerts, nil
}

// Resolve acknowledges an active alert. It is raised again by the next
// evaluation if its condition still holds.
func (s *AlertService) Resolve(ctx context.Context, actor Actor, id string) (*models.StockAlert, error) {
	if _, err := s.authz.Authorize(ctx, actor, opAlertResolve, id); err != nil {
		return nil, err
	}
	if err := s.alerts.ResolveAlert(ctx, id, s.now()); err != nil {
		return nil, notFoundOr(err, ErrNotFound, "active alert "+id)
	}
	alert, err := s.alerts.GetAlert(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrNotFound, "alert "+id)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditUpdate, models.EntityAlert, id, map[string]interface{}{
		"resolved": true,
		"type":     alert.Type,
	}))
	return alert, nil
}
