package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleMatrix(t *testing.T) {
	cases := []struct {
		role    Role
		granted []Capability
	}{
		{RoleSystemAdmin, []Capability{CapInventoryWrite, CapMasterWrite, CapStocktakingWrite, CapAuditRead, CapUserManage}},
		{RoleInventoryManager, []Capability{CapInventoryWrite, CapMasterWrite, CapStocktakingWrite, CapReportRead}},
		{RoleFieldOperator, []Capability{CapInventoryRead, CapInventoryWrite, CapStocktakingWrite}},
		{RoleAnalyst, []Capability{CapInventoryRead, CapReportRead, CapAuditRead}},
		{RoleViewer, []Capability{CapInventoryRead, CapMasterRead}},
	}
	for _, tc := range cases {
		for _, c := range tc.granted {
			assert.True(t, tc.role.Can(c), "%s should have %s", tc.role, c)
		}
	}

	assert.False(t, RoleInventoryManager.Can(CapUserManage))
	assert.False(t, RoleInventoryManager.Can(CapAuditRead))
	assert.False(t, RoleFieldOperator.Can(CapMasterWrite))
	assert.False(t, RoleFieldOperator.Can(CapReportRead))
	assert.False(t, RoleAnalyst.Can(CapInventoryWrite))
	assert.False(t, RoleViewer.Can(CapStocktakingRead))
	assert.False(t, Role("GHOST").Can(CapInventoryRead))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" inventory_manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleInventoryManager, r)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
}

func TestStockDerivedFields(t *testing.T) {
	s := Stock{Quantity: 10, Reserved: 4}
	assert.Equal(t, int64(6), s.Available())
	assert.True(t, s.Valid())
	assert.False(t, Stock{Quantity: 3, Reserved: 4}.Valid())
	assert.False(t, Stock{Quantity: -1}.Valid())

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"available":6`)
}

func TestStocktakingItemDiscrepancy(t *testing.T) {
	item := StocktakingItem{SystemQuantity: 10}
	assert.False(t, item.Counted())
	assert.Zero(t, item.Discrepancy())
	raw, err := json.Marshal(item)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "discrepancy")

	actual := int64(7)
	item.ActualQuantity = &actual
	assert.Equal(t, int64(-3), item.Discrepancy())
	raw, err = json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"discrepancy":-3`)
}

func TestAuditFiltersBoundsAreInclusive(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	f := AuditFilters{Action: AuditCreate, From: &from, To: &to}

	assert.True(t, f.Matches(AuditLog{Action: AuditCreate, CreatedAt: from}))
	assert.True(t, f.Matches(AuditLog{Action: AuditCreate, CreatedAt: to}))
	assert.False(t, f.Matches(AuditLog{Action: AuditCreate, CreatedAt: to.Add(time.Nanosecond)}))
	assert.False(t, f.Matches(AuditLog{Action: AuditUpdate, CreatedAt: from}))
	assert.True(t, AuditExport.Valid())
	assert.False(t, AuditAction("PURGE").Valid())
}

func TestStocktakingStatus(t *testing.T) {
	assert.True(t, StocktakingApproved.Terminal())
	assert.True(t, StocktakingRejected.Terminal())
	assert.False(t, StocktakingPendingApproval.Terminal())
	assert.True(t, StocktakingInProgress.Open())
	assert.False(t, StocktakingDraft.Open())
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, size)
	_, size = NormalizePage(3, 1000)
	assert.Equal(t, MaxPageSize, size)
	assert.Equal(t, 40, Offset(3, 20))

	p := NewPage[int](nil, 41, 1, 20)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 3, p.TotalPages)
}
