package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"warehouse_inventory_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedAudit writes three inbound entries one hour apart starting at the fixture clock.
func seedAudit(t *testing.T, f *fixture) (Actor, []time.Time) {
	t.Helper()
	operator := f.user(models.RoleFieldOperator)
	p := f.product("SKU-1")
	loc := f.location("BIN-1")
	var at []time.Time
	for i := 0; i < 3; i++ {
		at = append(at, f.clock.Now())
		f.receive(operator, p.ID, loc.ID, 1)
		f.clock.Advance(time.Hour)
	}
	return operator, at
}

func TestAuditListFiltersAndOrder(t *testing.T) {
	f := newFixture(t)
	analyst := f.user(models.RoleAnalyst)
	operator, at := seedAudit(t, f)

	all, err := f.svc.Audit.List(f.ctx, analyst, models.AuditFilters{})
	require.NoError(t, err)
	require.Equal(t, 3, all.Total)
	assert.True(t, all.Items[0].CreatedAt.After(all.Items[2].CreatedAt), "newest first")

	byUser, err := f.svc.Audit.List(f.ctx, analyst, models.AuditFilters{UserID: operator.UserID, Action: models.AuditCreate})
	require.NoError(t, err)
	assert.Equal(t, 3, byUser.Total)

	// Both bounds are inclusive.
	ranged, err := f.svc.Audit.List(f.ctx, analyst, models.AuditFilters{From: &at[1], To: &at[2]})
	require.NoError(t, err)
	require.Equal(t, 2, ranged.Total)
	assert.True(t, ranged.Items[0].CreatedAt.Equal(at[2]))
	assert.True(t, ranged.Items[1].CreatedAt.Equal(at[1]))

	paged, err := f.svc.Audit.List(f.ctx, analyst, models.AuditFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Items, 1)
	assert.Equal(t, 2, paged.TotalPages)

	_, err = f.svc.Audit.List(f.ctx, analyst, models.AuditFilters{Action: "DESTROY"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Audit.List(f.ctx, analyst, models.AuditFilters{From: &at[2], To: &at[0]})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuditListRequiresAuditCapability(t *testing.T) {
	f := newFixture(t)
	manager := f.user(models.RoleInventoryManager)

	_, err := f.svc.Audit.List(f.ctx, manager, models.AuditFilters{})
	assert.ErrorIs(t, err, ErrAuthorization)
	var buf bytes.Buffer
	_, err = f.svc.Audit.ExportCSV(f.ctx, manager, models.AuditFilters{}, &buf)
	assert.ErrorIs(t, err, ErrAuthorization)
	assert.Zero(t, buf.Len())
}

func TestAuditExportWritesCSVAndRecordsExport(t *testing.T) {
	f := newFixture(t)
	analyst := f.user(models.RoleAnalyst)
	seedAudit(t, f)

	var buf bytes.Buffer
	rows, err := f.svc.Audit.ExportCSV(f.ctx, analyst, models.AuditFilters{Action: models.AuditCreate}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"id", "created_at", "user_id", "action", "entity_type", "entity_id", "ip_address", "details"}, records[0])
	assert.Equal(t, "CREATE", records[1][3])
	assert.Equal(t, models.EntityTransaction, records[1][4])
	assert.Contains(t, records[1][7], `"type":"inbound"`)

	exports := f.audit(models.AuditFilters{Action: models.AuditExport})
	require.Len(t, exports, 1)
	assert.Equal(t, analyst.UserID, exports[0].UserID)
	assert.Equal(t, models.EntityAuditLog, exports[0].EntityType)
	assert.Contains(t, string(exports[0].Details), `"rows":3`)
	assert.Contains(t, string(exports[0].Details), `"action":"CREATE"`)

	assert.Regexp(t, `^audit-\d+\.csv$`, f.svc.Audit.ExportFilename())
}
