package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var (
	opUserRead   = Operation{Name: "users.read", Capability: models.CapUserManage}
	opUserCreate = Operation{Name: "users.create", Capability: models.CapUserManage, Action: models.AuditCreate, EntityType: models.EntityUser}
	opUserUpdate = Operation{Name: "users.update", Capability: models.CapUserManage, Action: models.AuditUpdate, EntityType: models.EntityUser}
	opUserDelete = Operation{Name: "users.delete", Capability: models.CapUserManage, Action: models.AuditDelete, EntityType: models.EntityUser}
)

// CreateUserRequest DTO
type CreateUserRequest struct {
	Email      string  `json:"email" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	Password   string  `json:"password" binding:"required"`
	Role       string  `json:"role" binding:"required"`
	LocationID *string `json:"location_id"`
}

// UpdateUserRequest DTO. The password cannot be changed here.
type UpdateUserRequest struct {
	Email      *string `json:"email"`
	Name       *string `json:"name"`
	Role       *string `json:"role"`
	LocationID *string `json:"location_id"`
	IsActive   *bool   `json:"is_active"`
}

// UserService manages user accounts and exposes the role matrix.
type UserService struct {
	users     repositories.UserRepository
	locations repositories.LocationRepository
	authz     *Authorizer
	auditor   *auditor
	now       func() time.Time
}

func (s *UserService) checkLocation(ctx context.Context, locationID *string) error {
	if locationID == nil || *locationID == "" {
		return nil
	}
	if _, err := s.locations.GetLocation(ctx, *locationID); err != nil {
		return notFoundOr(err, ErrValidation, "unknown location "+*locationID)
	}
	return nil
}

func (s *UserService) create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)
	if !utils.IsValidEmail(email) {
		return nil, validationf("invalid email %q", req.Email)
	}
	if utils.IsEmpty(req.Name) {
		return nil, validationf("name is required")
	}
	if !utils.IsValidPasswordLength(req.Password, minPasswordLength) {
		return nil, validationf("password must be at least %d characters", minPasswordLength)
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, validationf("%v", err)
	}
	if err := s.checkLocation(ctx, req.LocationID); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.LocationID != nil {
		user.LocationID = utils.NewNullString(*req.LocationID)
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: email %s is already registered", ErrConflict, email)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

// Create registers a new account.
func (s *UserService) Create(ctx context.Context, actor Actor, req CreateUserRequest) (*models.User, error) {
	if _, err := s.authz.Authorize(ctx, actor, opUserCreate, ""); err != nil {
		return nil, err
	}
	user, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditCreate, models.EntityUser, user.ID, map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	}))
	return user, nil
}

// EnsureBootstrapAdmin creates a SYSTEM_ADMIN when no user holds the email yet.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, email, password, name string) (*models.User, bool, error) {
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, fmt.Errorf("looking up bootstrap admin: %w", err)
	}
	user, err := s.create(ctx, CreateUserRequest{Email: email, Name: name, Password: password, Role: string(models.RoleSystemAdmin)})
	if err != nil {
		return nil, false, err
	}
	s.auditor.record(ctx, s.auditor.entry(Actor{UserID: user.ID}, models.AuditCreate, models.EntityUser, user.ID, map[string]interface{}{
		"email":     user.Email,
		"role":      user.Role,
		"bootstrap": true,
	}))
	return user, true, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, actor Actor, id string) (*models.User, error) {
	if _, err := s.authz.Authorize(ctx, actor, opUserRead, ""); err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrNotFound, "user "+id)
	}
	return user, nil
}

// List pages through users ordered by email.
func (s *UserService) List(ctx context.Context, actor Actor, page, pageSize int) (*models.Page[models.User], error) {
	if _, err := s.authz.Authorize(ctx, actor, opUserRead, ""); err != nil {
		return nil, err
	}
	page, pageSize = models.NormalizePage(page, pageSize)
	users, total, err := s.users.ListUsers(ctx, models.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	result := models.NewPage(users, total, page, pageSize)
	return &result, nil
}

// Update changes profile, role, home location or active flag.
// Role changes apply from the user's next authorization check.
func (s *UserService) Update(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*models.User, error) {
	if _, err := s.authz.Authorize(ctx, actor, opUserUpdate, id); err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrNotFound, "user "+id)
	}
	changes := map[string]interface{}{}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !utils.IsValidEmail(email) {
			return nil, validationf("invalid email %q", *req.Email)
		}
		user.Email = email
		changes["email"] = email
	}
	if req.Name != nil {
		if utils.IsEmpty(*req.Name) {
			return nil, validationf("name must not be empty")
		}
		user.Name = strings.TrimSpace(*req.Name)
		changes["name"] = user.Name
	}
	if req.Role != nil {
		role, err := models.ParseRole(*req.Role)
		if err != nil {
			return nil, validationf("%v", err)
		}
		user.Role = role
		changes["role"] = role
	}
	if req.LocationID != nil {
		if err := s.checkLocation(ctx, req.LocationID); err != nil {
			return nil, err
		}
		user.LocationID = utils.NewNullString(*req.LocationID)
		changes["location_id"] = *req.LocationID
	}
	if req.IsActive != nil {
		if !*req.IsActive && id == actor.UserID {
			return nil, validationf("you cannot deactivate your own account")
		}
		user.IsActive = *req.IsActive
		changes["is_active"] = *req.IsActive
	}
	user.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: email %s is already registered", ErrConflict, user.Email)
		}
		return nil, notFoundOr(err, ErrNotFound, "user "+id)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditUpdate, models.EntityUser, user.ID, changes))
	return user, nil
}

// Delete deactivates the account. Users are never removed.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.authz.Authorize(ctx, actor, opUserDelete, id); err != nil {
		return err
	}
	if id == actor.UserID {
		return validationf("you cannot deactivate your own account")
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return notFoundOr(err, ErrNotFound, "user "+id)
	}
	user.IsActive = false
	user.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return notFoundOr(err, ErrNotFound, "user "+id)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditDelete, models.EntityUser, user.ID, map[string]interface{}{
		"deactivated": true,
	}))
	return nil
}

// ListRoles returns every role with its sorted capabilities. Any authenticated user may call it.
func (s *UserService) ListRoles(ctx context.Context, actor Actor) ([]models.RoleInfo, error) {
	if _, err := s.authz.Authenticated(ctx, actor); err != nil {
		return nil, err
	}
	roles := make([]models.RoleInfo, 0, len(models.AllRoles))
	for _, role := range models.AllRoles {
		roles = append(roles, models.RoleInfo{Role: role, Capabilities: models.RoleCapabilities[role].Sorted()})
	}
	return roles, nil
}
