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

var opReportRead = Operation{Name: "reports.read", Capability: models.CapReportRead}

// ReportService builds read-only reports over the ledger.
type ReportService struct {
	ledger    repositories.LedgerRepository
	products  repositories.ProductRepository
	locations repositories.LocationRepository
	authz     *Authorizer
	now       func() time.Time
}

// Valuation prices every non-empty ledger row at its product's unit cost.
// An empty locationID covers all locations.
func (s *ReportService) Valuation(ctx context.Context, actor Actor, locationID string) (*models.ValuationReport, error) {
	if _, err := s.authz.Authorize(ctx, actor, opReportRead, ""); err != nil {
		return nil, err
	}
	report := &models.ValuationReport{Lines: []models.ValuationLine{}, GeneratedAt: s.now()}
	if locationID != "" {
		if _, err := s.locations.GetLocation(ctx, locationID); err != nil {
			return nil, notFoundOr(err, ErrNotFound, "location "+locationID)
		}
		report.LocationID = &locationID
	}

	stocks, err := s.ledger.ListStocks(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("listing stock: %w", err)
	}
	products := map[string]*models.Product{}
	total := decimal.Zero
	for _, st := range stocks {
		if st.Quantity == 0 {
			continue
		}
		p, ok := products[st.ProductID]
		if !ok {
			p, err = s.products.GetProduct(ctx, st.ProductID)
			if err != nil {
				return nil, notFoundOr(err, ErrNotFound, "product "+st.ProductID)
			}
			products[st.ProductID] = p
		}
		value := p.UnitCost.Mul(decimal.NewFromInt(st.Quantity))
		total = total.Add(value)
		report.Lines = append(report.Lines, models.ValuationLine{
			ProductID:   p.ID,
			ProductCode: p.Code,
			ProductName: p.Name,
			LocationID:  st.LocationID,
			Quantity:    st.Quantity,
			UnitCost:    p.UnitCost.StringFixed(2),
			Value:       value.StringFixed(2),
		})
	}
	sort.Slice(report.Lines, func(i, j int) bool {
		a, b := report.Lines[i], report.Lines[j]
		if a.ProductCode != b.ProductCode {
			return a.ProductCode < b.ProductCode
		}
		return a.LocationID < b.LocationID
	})
	report.TotalValue = total.StringFixed(2)
	return report, nil
}
