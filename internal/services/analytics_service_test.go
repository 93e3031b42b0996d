package services

import (
	"testing"
	"time"

	"warehouse_inventory_backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analyticsFixture struct {
	*fixture
	operator, analyst Actor
	loc               *models.Location
	a, b, c, d        *models.Product
}

// newAnalyticsFixture receives four products, ships three of them a day later
// and leaves the clock one more day on.
func newAnalyticsFixture(t *testing.T) *analyticsFixture {
	f := &analyticsFixture{fixture: newFixture(t)}
	cost := func(v string) func(*models.Product) {
		return func(p *models.Product) { p.UnitCost = decimal.RequireFromString(v) }
	}
	f.operator = f.user(models.RoleFieldOperator)
	f.analyst = f.user(models.RoleAnalyst)
	f.loc = f.location("BIN-1")
	f.a = f.product("A", cost("10"))
	f.b = f.product("B")
	f.c = f.product("C", cost("1"))
	f.d = f.product("D", cost("1"))
	f.receive(f.operator, f.a.ID, f.loc.ID, 100)
	f.receive(f.operator, f.b.ID, f.loc.ID, 100)
	f.receive(f.operator, f.c.ID, f.loc.ID, 100)
	f.receive(f.operator, f.d.ID, f.loc.ID, 10)
	f.clock.Advance(24 * time.Hour)
	for _, ship := range []struct {
		p   *models.Product
		qty int64
	}{{f.a, 8}, {f.b, 6}, {f.c, 5}} {
		_, err := f.svc.Stock.Outbound(f.ctx, f.operator, OutboundRequest{ProductID: ship.p.ID, LocationID: f.loc.ID, Quantity: ship.qty, Reference: "SO-1"})
		require.NoError(t, err)
	}
	f.clock.Advance(24 * time.Hour)
	return f
}

func TestABCClassificationByOutboundValue(t *testing.T) {
	f := newAnalyticsFixture(t)

	report, err := f.svc.Analytics.ABCClassification(f.ctx, f.analyst, f.loc.ID, 30)
	require.NoError(t, err)
	// 8*10 + 6*2.50 + 5*1
	assert.Equal(t, "100.00", report.TotalValue)
	require.Len(t, report.Items, 4)

	got := map[string]models.ABCItem{}
	order := []string{}
	for _, item := range report.Items {
		got[item.ProductCode] = item
		order = append(order, item.ProductCode)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
	assert.Equal(t, models.ABCClassA, got["A"].Class)
	assert.Equal(t, "80.00", got["A"].CumulativeShare)
	assert.Equal(t, models.ABCClassB, got["B"].Class)
	assert.Equal(t, "95.00", got["B"].CumulativeShare)
	assert.Equal(t, models.ABCClassC, got["C"].Class)
	assert.Equal(t, "100.00", got["C"].CumulativeShare)
	assert.Equal(t, models.ABCClassC, got["D"].Class, "unmoved stock is C")
	assert.Equal(t, "0.00", got["D"].ConsumptionValue)
	assert.Equal(t, int64(6), got["B"].OutboundQuantity)

	// Outside the window nothing moved.
	f.clock.Advance(10 * 24 * time.Hour)
	report, err = f.svc.Analytics.ABCClassification(f.ctx, f.analyst, f.loc.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, "0.00", report.TotalValue)
	for _, item := range report.Items {
		assert.Equal(t, models.ABCClassC, item.Class, item.ProductCode)
	}
}

func TestTurnoverFromOutboundAndAverageStock(t *testing.T) {
	f := newAnalyticsFixture(t)

	report, err := f.svc.Analytics.Turnover(f.ctx, f.analyst, f.a.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(8), report.OutboundQuantity)
	assert.Equal(t, int64(0), report.OpeningQuantity)
	assert.Equal(t, int64(92), report.ClosingQuantity)
	assert.Equal(t, "46.00", report.AverageInventory)
	assert.Equal(t, "0.17", report.TurnoverRate)
	require.NotNil(t, report.DaysOfSupply)
	assert.Equal(t, "345.0", *report.DaysOfSupply)

	report, err = f.svc.Analytics.Turnover(f.ctx, f.analyst, f.d.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, "0.00", report.TurnoverRate)
	assert.Nil(t, report.DaysOfSupply)

	// A one day window starts after the receipt, so it opens with stock on hand.
	report, err = f.svc.Analytics.Turnover(f.ctx, f.analyst, f.a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), report.OpeningQuantity)
	assert.Equal(t, "96.00", report.AverageInventory)
}

func TestSlowMovingListsIdleStockByValue(t *testing.T) {
	f := newAnalyticsFixture(t)

	report, err := f.svc.Analytics.SlowMoving(f.ctx, f.analyst, f.loc.ID, 30)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "D", report.Items[0].ProductCode)
	assert.Equal(t, "10.00", report.Items[0].Value)

	f.clock.Advance(40 * 24 * time.Hour)
	report, err = f.svc.Analytics.SlowMoving(f.ctx, f.analyst, f.loc.ID, 30)
	require.NoError(t, err)
	codes := []string{}
	values := []string{}
	for _, item := range report.Items {
		codes = append(codes, item.ProductCode)
		values = append(values, item.Value)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, codes)
	assert.Equal(t, []string{"920.00", "235.00", "95.00", "10.00"}, values)
}

func TestAnalyticsRejectsBadInput(t *testing.T) {
	f := newAnalyticsFixture(t)

	_, err := f.svc.Analytics.ABCClassification(f.ctx, f.analyst, f.loc.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Analytics.SlowMoving(f.ctx, f.analyst, f.loc.ID, maxAnalyticsDays+1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Analytics.ABCClassification(f.ctx, f.operator, f.loc.ID, 30)
	assert.ErrorIs(t, err, ErrAuthorization)
	_, err = f.svc.Analytics.SlowMoving(f.ctx, f.analyst, "missing", 30)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Analytics.Turnover(f.ctx, f.analyst, "missing", 30)
	assert.ErrorIs(t, err, ErrNotFound)
}
