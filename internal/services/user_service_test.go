package services

import (
	"testing"

	"warehouse_inventory_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	admin := f.user(models.RoleSystemAdmin)

	user, err := f.svc.Users.Create(f.ctx, admin, CreateUserRequest{
		Email: "picker@example.com", Name: "Picker", Password: "long-enough", Role: "field_operator",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFieldOperator, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "long-enough", user.PasswordHash)

	_, err = f.svc.Users.Create(f.ctx, admin, CreateUserRequest{
		Email: "PICKER@example.com", Name: "Other", Password: "long-enough", Role: "VIEWER",
	})
	assert.ErrorIs(t, err, ErrConflict)

	created := f.audit(models.AuditFilters{Action: models.AuditCreate, EntityType: models.EntityUser})
	require.Len(t, created, 1)
	assert.Equal(t, user.ID, created[0].EntityID)
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	admin := f.user(models.RoleSystemAdmin)
	missing := "missing"

	cases := map[string]CreateUserRequest{
		"bad email":        {Email: "nope", Name: "X", Password: "long-enough", Role: "VIEWER"},
		"short password":   {Email: "a@example.com", Name: "X", Password: "short", Role: "VIEWER"},
		"unknown role":     {Email: "a@example.com", Name: "X", Password: "long-enough", Role: "JANITOR"},
		"blank name":       {Email: "a@example.com", Name: " ", Password: "long-enough", Role: "VIEWER"},
		"unknown location": {Email: "a@example.com", Name: "X", Password: "long-enough", Role: "VIEWER", LocationID: &missing},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Users.Create(f.ctx, admin, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestOnlyAdminsManageUsers(t *testing.T) {
	f := newFixture(t)
	manager := f.user(models.RoleInventoryManager)

	_, err := f.svc.Users.Create(f.ctx, manager, CreateUserRequest{
		Email: "x@example.com", Name: "X", Password: "long-enough", Role: "VIEWER",
	})
	require.ErrorIs(t, err, ErrAuthorization)
	_, err = f.svc.Users.List(f.ctx, manager, 1, 20)
	require.ErrorIs(t, err, ErrAuthorization)

	denied := f.audit(models.AuditFilters{UserID: manager.UserID})
	require.Len(t, denied, 1, "only the denied write is audited")
	assert.Equal(t, models.AuditCreate, denied[0].Action)
}

func TestUpdateAndDeactivateUser(t *testing.T) {
	f := newFixture(t)
	admin := f.user(models.RoleSystemAdmin)
	target := f.user(models.RoleViewer)

	name := "Renamed"
	updated, err := f.svc.Users.Update(f.ctx, admin, target.UserID, UpdateUserRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.NotEmpty(t, f.userRecord(target).PasswordHash)

	inactive := false
	_, err = f.svc.Users.Update(f.ctx, admin, admin.UserID, UpdateUserRequest{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, f.svc.Users.Delete(f.ctx, admin, admin.UserID), ErrValidation)

	require.NoError(t, f.svc.Users.Delete(f.ctx, admin, target.UserID))
	assert.False(t, f.userRecord(target).IsActive)
	assert.ErrorIs(t, f.svc.Users.Delete(f.ctx, admin, "missing"), ErrNotFound)

	page, err := f.svc.Users.List(f.ctx, admin, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total, "deactivated users are still listed")
}

func TestEnsureBootstrapAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)

	admin, created, err := f.svc.Users.EnsureBootstrapAdmin(f.ctx, "root@example.com", "bootstrap-pass", "Root")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleSystemAdmin, admin.Role)

	again, created, err := f.svc.Users.EnsureBootstrapAdmin(f.ctx, "root@example.com", "bootstrap-pass", "Root")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)
}

func TestListRolesForAnyUser(t *testing.T) {
	f := newFixture(t)
	viewer := f.user(models.RoleViewer)

	roles, err := f.svc.Users.ListRoles(f.ctx, viewer)
	require.NoError(t, err)
	require.Len(t, roles, len(models.AllRoles))
	assert.Equal(t, models.RoleSystemAdmin, roles[0].Role)
	assert.Contains(t, roles[0].Capabilities, models.CapUserManage)
	assert.Equal(t, []models.Capability{models.CapInventoryRead, models.CapMasterRead}, roles[4].Capabilities)

	_, err = f.svc.Users.ListRoles(f.ctx, Actor{})
	assert.ErrorIs(t, err, ErrAuthentication)
}
