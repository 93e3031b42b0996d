package services

import (
	"testing"

	"warehouse_inventory_backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuationTotalsAtUnitCost(t *testing.T) {
	f := newFixture(t)
	operator := f.user(models.RoleFieldOperator)
	analyst := f.user(models.RoleAnalyst)
	bolts := f.product("BOLT", func(p *models.Product) { p.UnitCost = decimal.RequireFromString("0.15") })
	nuts := f.product("NUT")
	empty := f.product("ZERO")
	a := f.location("BIN-A")
	b := f.location("BIN-B")
	f.receive(operator, bolts.ID, a.ID, 100)
	f.receive(operator, nuts.ID, a.ID, 3)
	f.receive(operator, nuts.ID, b.ID, 2)
	f.receive(operator, empty.ID, b.ID, 1)
	_, err := f.svc.Stock.Outbound(f.ctx, operator, OutboundRequest{ProductID: empty.ID, LocationID: b.ID, Quantity: 1, Reference: "SO"})
	require.NoError(t, err)

	report, err := f.svc.Reports.Valuation(f.ctx, analyst, "")
	require.NoError(t, err)
	require.Len(t, report.Lines, 3, "empty rows are skipped")
	assert.Equal(t, "BOLT", report.Lines[0].ProductCode)
	assert.Equal(t, "15.00", report.Lines[0].Value)
	assert.Equal(t, "2.50", report.Lines[1].UnitCost)
	// 15.00 + 3*2.50 + 2*2.50
	assert.Equal(t, "27.50", report.TotalValue)

	report, err = f.svc.Reports.Valuation(f.ctx, analyst, b.ID)
	require.NoError(t, err)
	require.Len(t, report.Lines, 1)
	assert.Equal(t, "5.00", report.TotalValue)
	require.NotNil(t, report.LocationID)

	_, err = f.svc.Reports.Valuation(f.ctx, analyst, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Reports.Valuation(f.ctx, operator, "")
	assert.ErrorIs(t, err, ErrAuthorization)
}
