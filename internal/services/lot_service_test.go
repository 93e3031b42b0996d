package services

import (
	"testing"

	"warehouse_inventory_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveLot(f *fixture, actor Actor, productID, locationID, number, expiry string, qty int64) {
	f.t.Helper()
	_, err := f.svc.Stock.Inbound(f.ctx, actor, InboundRequest{
		ProductID: productID, LocationID: locationID, Quantity: qty, Reference: "PO-LOT",
		LotNumber: number, ExpiryDate: expiry,
	})
	require.NoError(f.t, err)
}

func lotNumbers(lots []models.Lot) []string {
	out := make([]string, 0, len(lots))
	for _, l := range lots {
		out = append(out, l.Number)
	}
	return out
}

func TestExpiringLotsWithinWindow(t *testing.T) {
	f := newFixture(t)
	operator := f.user(models.RoleFieldOperator)
	viewer := f.user(models.RoleViewer)
	p := f.product("MED-1", func(p *models.Product) { p.LotTracked = true })
	loc := f.location("BIN-1")

	// The clock reads 2026-03-10.
	receiveLot(f, operator, p.ID, loc.ID, "L-PLUS10", "2026-03-20", 5)
	receiveLot(f, operator, p.ID, loc.ID, "L-PLUS3", "2026-03-13", 5)
	receiveLot(f, operator, p.ID, loc.ID, "L-TODAY", "2026-03-10", 5)
	receiveLot(f, operator, p.ID, loc.ID, "L-PAST", "2026-03-01", 5)

	lots, err := f.svc.Lots.Expiring(f.ctx, viewer, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"L-TODAY", "L-PLUS3"}, lotNumbers(lots))

	lots, err = f.svc.Lots.Expiring(f.ctx, viewer, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"L-TODAY", "L-PLUS3", "L-PLUS10"}, lotNumbers(lots))

	expired, err := f.svc.Lots.Expired(f.ctx, viewer)
	require.NoError(t, err)
	assert.Equal(t, []string{"L-PAST"}, lotNumbers(expired))

	_, err = f.svc.Lots.Expiring(f.ctx, viewer, -1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEmptyLotsAreNotReportedAsExpiring(t *testing.T) {
	f := newFixture(t)
	operator := f.user(models.RoleFieldOperator)
	p := f.product("MED-1", func(p *models.Product) { p.LotTracked = true })
	loc := f.location("BIN-1")
	receiveLot(f, operator, p.ID, loc.ID, "L-1", "2026-03-11", 2)

	_, err := f.svc.Stock.Outbound(f.ctx, operator, OutboundRequest{ProductID: p.ID, LocationID: loc.ID, Quantity: 2, Reference: "SO-1", LotNumber: "L-1"})
	require.NoError(t, err)

	lots, err := f.svc.Lots.Expiring(f.ctx, operator, 7)
	require.NoError(t, err)
	assert.Empty(t, lots)

	all, err := f.svc.Lots.ByProduct(f.ctx, operator, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(0), all[0].Quantity)
}

func TestInboundIntoExistingLotKeepsExpiry(t *testing.T) {
	f := newFixture(t)
	operator := f.user(models.RoleFieldOperator)
	p := f.product("MED-1", func(p *models.Product) { p.LotTracked = true })
	loc := f.location("BIN-1")
	receiveLot(f, operator, p.ID, loc.ID, "L-1", "2026-05-01", 2)
	receiveLot(f, operator, p.ID, loc.ID, "L-1", "", 3)

	_, err := f.svc.Stock.Inbound(f.ctx, operator, InboundRequest{
		ProductID: p.ID, LocationID: loc.ID, Quantity: 1, Reference: "PO", LotNumber: "L-1", ExpiryDate: "2026-06-01",
	})
	require.ErrorIs(t, err, ErrValidation)

	lot, err := f.svc.Lots.Get(f.ctx, operator, p.ID, loc.ID, "L-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), lot.Quantity)
	assert.Equal(t, "2026-05-01", lot.ExpiryDate.Format("2006-01-02"))
	assert.Equal(t, int64(5), f.stock(p.ID, loc.ID).Quantity)
}

func TestInboundFillsMissingLotExpiry(t *testing.T) {
	f := newFixture(t)
	operator := f.user(models.RoleFieldOperator)
	p := f.product("MED-1", func(p *models.Product) { p.LotTracked = true })
	loc := f.location("BIN-1")
	receiveLot(f, operator, p.ID, loc.ID, "L-1", "", 5)
	receiveLot(f, operator, p.ID, loc.ID, "L-1", "2026-03-12", 5)

	lot, err := f.svc.Lots.Get(f.ctx, operator, p.ID, loc.ID, "L-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), lot.Quantity)
	require.NotNil(t, lot.ExpiryDate)
	assert.Equal(t, "2026-03-12", lot.ExpiryDate.Format("2006-01-02"))

	lots, err := f.svc.Lots.Expiring(f.ctx, operator, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"L-1"}, lotNumbers(lots))

	_, err = f.svc.Alerts.Evaluate(f.ctx)
	require.NoError(t, err)
	alerts, err := f.svc.Alerts.List(f.ctx, operator, loc.ID, true)
	require.NoError(t, err)
	assert.Contains(t, alertTypes(alerts), models.AlertExpiring)
}

func TestLotQueries(t *testing.T) {
	f := newFixture(t)
	viewer := f.user(models.RoleViewer)

	_, err := f.svc.Lots.ByProduct(f.ctx, viewer, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Lots.HistoryByLotNumber(f.ctx, viewer, " ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Lots.Get(f.ctx, viewer, "p", "l", "L-404")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Lots.Get(f.ctx, viewer, "p", "l", "")
	assert.ErrorIs(t, err, ErrValidation)
}
