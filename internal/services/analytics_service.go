package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// DefaultAnalyticsDays is the look-back window when the caller gives none.
const DefaultAnalyticsDays = 90

const maxAnalyticsDays = 3650

// Cumulative value shares, in percent, below which a product still ranks A or B.
var (
	abcClassALimit = decimal.NewFromInt(80)
	abcClassBLimit = decimal.NewFromInt(95)
	hundred        = decimal.NewFromInt(100)
)

// AnalyticsService derives movement analytics from the transaction log.
type AnalyticsService struct {
	ledger    repositories.LedgerRepository
	products  repositories.ProductRepository
	locations repositories.LocationRepository
	authz     *Authorizer
	now       func() time.Time
}

// window returns [now-days, now].
func (s *AnalyticsService) window(days int) (time.Time, time.Time, error) {
	if days <= 0 || days > maxAnalyticsDays {
		return time.Time{}, time.Time{}, validationf("days must be between 1 and %d, got %d", maxAnalyticsDays, days)
	}
	to := s.now()
	return to.AddDate(0, 0, -days), to, nil
}

// productCache loads each product once per report.
type productCache struct {
	repo repositories.ProductRepository
	seen map[string]*models.Product
}

func (c *productCache) get(ctx context.Context, id string) (*models.Product, error) {
	if p, ok := c.seen[id]; ok {
		return p, nil
	}
	p, err := c.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrNotFound, "product "+id)
	}
	c.seen[id] = p
	return p, nil
}

func (s *AnalyticsService) newProductCache() *productCache {
	return &productCache{repo: s.products, seen: map[string]*models.Product{}}
}

func (s *AnalyticsService) checkLocation(ctx context.Context, locationID string) error {
	if _, err := s.locations.GetLocation(ctx, locationID); err != nil {
		return notFoundOr(err, ErrNotFound, "location "+locationID)
	}
	return nil
}

func leaves(t models.Transaction, locationID string) bool {
	return t.FromLocationID != nil && *t.FromLocationID == locationID
}

// ABCClassification ranks the products of a location by outbound value over the
// last days. Walking down the ranking, a product is A while the value share
// before it is under 80%, B under 95%, and C after that or when it did not move.
func (s *AnalyticsService) ABCClassification(ctx context.Context, actor Actor, locationID string, days int) (*models.ABCReport, error) {
	if _, err := s.authz.Authorize(ctx, actor, opReportRead, ""); err != nil {
		return nil, err
	}
	from, to, err := s.window(days)
	if err != nil {
		return nil, err
	}
	if err := s.checkLocation(ctx, locationID); err != nil {
		return nil, err
	}

	outbound := map[string]int64{}
	stocks, err := s.ledger.ListStocks(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("listing stock: %w", err)
	}
	for _, st := range stocks {
		if _, ok := outbound[st.ProductID]; !ok {
			outbound[st.ProductID] = 0
		}
	}
	txns, err := s.ledger.ListTransactions(ctx, models.TransactionFilters{LocationID: locationID, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	for _, t := range txns {
		if t.Type == models.TransactionOutbound && leaves(t, locationID) {
			outbound[t.ProductID] += t.Quantity
		}
	}

	type ranked struct {
		product *models.Product
		qty     int64
		value   decimal.Decimal
	}
	cache := s.newProductCache()
	rows := make([]ranked, 0, len(outbound))
	total := decimal.Zero
	for id, qty := range outbound {
		p, err := cache.get(ctx, id)
		if err != nil {
			return nil, err
		}
		value := p.UnitCost.Mul(decimal.NewFromInt(qty))
		total = total.Add(value)
		rows = append(rows, ranked{product: p, qty: qty, value: value})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].value.Equal(rows[j].value) {
			return rows[i].value.GreaterThan(rows[j].value)
		}
		return rows[i].product.Code < rows[j].product.Code
	})

	report := &models.ABCReport{LocationID: locationID, From: from, To: to, TotalValue: total.StringFixed(2), Items: make([]models.ABCItem, 0, len(rows))}
	cumulative := decimal.Zero
	for _, r := range rows {
		class := models.ABCClassC
		share := decimal.Zero
		if total.IsPositive() {
			before := cumulative.Mul(hundred).Div(total)
			switch {
			case !r.value.IsPositive():
			case before.LessThan(abcClassALimit):
				class = models.ABCClassA
			case before.LessThan(abcClassBLimit):
				class = models.ABCClassB
			}
			cumulative = cumulative.Add(r.value)
			share = cumulative.Mul(hundred).Div(total)
		}
		report.Items = append(report.Items, models.ABCItem{
			ProductID:        r.product.ID,
			ProductCode:      r.product.Code,
			ProductName:      r.product.Name,
			OutboundQuantity: r.qty,
			ConsumptionValue: r.value.StringFixed(2),
			CumulativeShare:  share.StringFixed(2),
			Class:            class,
		})
	}
	return report, nil
}

// Turnover divides a product's outbound quantity over the last days by its
// average stock, taken as the mean of opening and closing quantity. The
// opening quantity is the current total minus the net movement in the window.
func (s *AnalyticsService) Turnover(ctx context.Context, actor Actor, productID string, days int) (*models.TurnoverReport, error) {
	if _, err := s.authz.Authorize(ctx, actor, opReportRead, ""); err != nil {
		return nil, err
	}
	from, to, err := s.window(days)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, ErrNotFound, "product "+productID)
	}

	stocks, err := s.ledger.ListProductStocks(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("reading stock: %w", err)
	}
	report := &models.TurnoverReport{ProductID: productID, From: from, To: to}
	for _, st := range stocks {
		report.ClosingQuantity += st.Quantity
	}

	txns, err := s.ledger.ListTransactions(ctx, models.TransactionFilters{ProductID: productID, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	var net int64
	for _, t := range txns {
		switch t.Type {
		case models.TransactionInbound:
			net += t.Quantity
		case models.TransactionOutbound:
			net -= t.Quantity
			report.OutboundQuantity += t.Quantity
		case models.TransactionAdjust:
			if t.ToLocationID != nil {
				net += t.Quantity
			} else {
				net -= t.Quantity
			}
		}
	}
	report.OpeningQuantity = report.ClosingQuantity - net

	average := decimal.NewFromInt(report.OpeningQuantity + report.ClosingQuantity).Div(decimal.NewFromInt(2))
	report.AverageInventory = average.StringFixed(2)
	rate := decimal.Zero
	if average.IsPositive() {
		rate = decimal.NewFromInt(report.OutboundQuantity).Div(average)
	}
	report.TurnoverRate = rate.StringFixed(2)
	if report.OutboundQuantity > 0 {
		supply := decimal.NewFromInt(report.ClosingQuantity * int64(days)).Div(decimal.NewFromInt(report.OutboundQuantity)).StringFixed(1)
		report.DaysOfSupply = &supply
	}
	return report, nil
}

// SlowMoving lists stock at a location that has not been shipped or transferred
// out within the last days, highest value first.
func (s *AnalyticsService) SlowMoving(ctx context.Context, actor Actor, locationID string, days int) (*models.SlowMovingReport, error) {
	if _, err := s.authz.Authorize(ctx, actor, opReportRead, ""); err != nil {
		return nil, err
	}
	from, to, err := s.window(days)
	if err != nil {
		return nil, err
	}
	if err := s.checkLocation(ctx, locationID); err != nil {
		return nil, err
	}

	txns, err := s.ledger.ListTransactions(ctx, models.TransactionFilters{LocationID: locationID, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	moved := map[string]bool{}
	for _, t := range txns {
		if (t.Type == models.TransactionOutbound || t.Type == models.TransactionTransfer) && leaves(t, locationID) {
			moved[t.ProductID] = true
		}
	}

	stocks, err := s.ledger.ListStocks(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("listing stock: %w", err)
	}
	cache := s.newProductCache()
	type idle struct {
		item  models.SlowMovingItem
		value decimal.Decimal
	}
	rows := []idle{}
	for _, st := range stocks {
		if st.Quantity == 0 || moved[st.ProductID] {
			continue
		}
		p, err := cache.get(ctx, st.ProductID)
		if err != nil {
			return nil, err
		}
		value := p.UnitCost.Mul(decimal.NewFromInt(st.Quantity))
		rows = append(rows, idle{value: value, item: models.SlowMovingItem{
			ProductID:   p.ID,
			ProductCode: p.Code,
			ProductName: p.Name,
			Quantity:    st.Quantity,
			Value:       value.StringFixed(2),
		}})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].value.Equal(rows[j].value) {
			return rows[i].value.GreaterThan(rows[j].value)
		}
		return rows[i].item.ProductCode < rows[j].item.ProductCode
	})

	report := &models.SlowMovingReport{LocationID: locationID, Since: from, Items: make([]models.SlowMovingItem, 0, len(rows))}
	for _, r := range rows {
		report.Items = append(report.Items, r.item)
	}
	return report, nil
}
