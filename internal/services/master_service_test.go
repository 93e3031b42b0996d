package services

import (
	"testing"

	"warehouse_inventory_backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	manager := f.user(models.RoleInventoryManager)
	cost := decimal.RequireFromString("4.20")

	p, err := f.svc.Master.CreateProduct(f.ctx, manager, ProductRequest{
		Code: strPtr(" GLV-01 "), Name: strPtr("Gloves"), Unit: strPtr("box"), UnitCost: &cost, MinStock: int64Ptr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "GLV-01", p.Code)
	assert.True(t, p.IsActive)
	assert.True(t, cost.Equal(p.UnitCost))

	_, err = f.svc.Master.CreateProduct(f.ctx, manager, ProductRequest{Code: strPtr("GLV-01"), Name: strPtr("Again"), Unit: strPtr("box")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.Master.CreateProduct(f.ctx, manager, ProductRequest{Code: strPtr("GLV-02"), Name: strPtr("No unit")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Master.CreateProduct(f.ctx, manager, ProductRequest{
		Code: strPtr("GLV-03"), Name: strPtr("Bad range"), Unit: strPtr("box"), MinStock: int64Ptr(9), MaxStock: int64Ptr(3),
	})
	assert.ErrorIs(t, err, ErrValidation)

	created := f.audit(models.AuditFilters{EntityType: models.EntityProduct})
	require.Len(t, created, 1)
	assert.Equal(t, p.ID, created[0].EntityID)
}

func TestDeleteProductDeactivatesAndBlocksMovements(t *testing.T) {
	f := newFixture(t)
	manager := f.user(models.RoleInventoryManager)
	p := f.product("SKU-1")
	loc := f.location("BIN-1")
	f.receive(manager, p.ID, loc.ID, 3)

	require.NoError(t, f.svc.Master.DeleteProduct(f.ctx, manager, p.ID))
	stored, err := f.svc.Master.GetProduct(f.ctx, manager, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	_, err = f.svc.Stock.Inbound(f.ctx, manager, InboundRequest{ProductID: p.ID, LocationID: loc.ID, Quantity: 1, Reference: "PO"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, f.transactions(p.ID), 1, "history survives deactivation")
}

func TestLocationTree(t *testing.T) {
	f := newFixture(t)
	manager := f.user(models.RoleInventoryManager)

	wh, err := f.svc.Master.CreateLocation(f.ctx, manager, LocationRequest{Code: strPtr("WH-1"), Name: strPtr("Main")})
	require.NoError(t, err)
	assert.Equal(t, models.LocationWarehouse, wh.Type)

	shelf, err := f.svc.Master.CreateLocation(f.ctx, manager, LocationRequest{
		Code: strPtr("WH-1-S1"), Name: strPtr("Shelf 1"), Type: strPtr("shelf"), ParentID: &wh.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.LocationShelf, shelf.Type)

	_, err = f.svc.Master.UpdateLocation(f.ctx, manager, wh.ID, LocationRequest{ParentID: &shelf.ID})
	assert.ErrorIs(t, err, ErrValidation, "a location cannot sit under its own child")

	_, err = f.svc.Master.CreateLocation(f.ctx, manager, LocationRequest{Code: strPtr("X"), Name: strPtr("X"), ParentID: strPtr("missing")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Master.CreateLocation(f.ctx, manager, LocationRequest{Code: strPtr("Y"), Name: strPtr("Y"), Type: strPtr("attic")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Master.CreateLocation(f.ctx, manager, LocationRequest{Code: strPtr("WH-1"), Name: strPtr("Dup")})
	assert.ErrorIs(t, err, ErrConflict)

	list, total, err := f.svc.Master.ListLocations(f.ctx, manager, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "WH-1", list[0].Code)

	require.NoError(t, f.svc.Master.DeleteLocation(f.ctx, manager, shelf.ID))
	stored, err := f.svc.Master.GetLocation(f.ctx, manager, shelf.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestMasterDataWritesNeedMasterCapability(t *testing.T) {
	f := newFixture(t)
	operator := f.user(models.RoleFieldOperator)
	analyst := f.user(models.RoleAnalyst)

	_, err := f.svc.Master.CreateProduct(f.ctx, operator, ProductRequest{Code: strPtr("A"), Name: strPtr("A"), Unit: strPtr("pcs")})
	assert.ErrorIs(t, err, ErrAuthorization)
	_, _, err = f.svc.Master.ListProducts(f.ctx, operator, 0, 10)
	assert.ErrorIs(t, err, ErrAuthorization)

	_, total, err := f.svc.Master.ListProducts(f.ctx, analyst, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}
