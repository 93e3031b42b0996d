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
	"github.com/shopspring/decimal"
)

var (
	opMasterRead     = Operation{Name: "master.read", Capability: models.CapMasterRead}
	opProductCreate  = Operation{Name: "products.create", Capability: models.CapMasterWrite, Action: models.AuditCreate, EntityType: models.EntityProduct}
	opProductUpdate  = Operation{Name: "products.update", Capability: models.CapMasterWrite, Action: models.AuditUpdate, EntityType: models.EntityProduct}
	opProductDelete  = Operation{Name: "products.delete", Capability: models.CapMasterWrite, Action: models.AuditDelete, EntityType: models.EntityProduct}
	opLocationCreate = Operation{Name: "locations.create", Capability: models.CapMasterWrite, Action: models.AuditCreate, EntityType: models.EntityLocation}
	opLocationUpdate = Operation{Name: "locations.update", Capability: models.CapMasterWrite, Action: models.AuditUpdate, EntityType: models.EntityLocation}
	opLocationDelete = Operation{Name: "locations.delete", Capability: models.CapMasterWrite, Action: models.AuditDelete, EntityType: models.EntityLocation}
)

// ProductRequest DTO. Create requires code, name and unit; update applies only non-nil fields.
type ProductRequest struct {
	Code        *string          `json:"code"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Unit        *string          `json:"unit"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
	LotTracked  *bool            `json:"lot_tracked"`
	MinStock    *int64           `json:"min_stock"`
	MaxStock    *int64           `json:"max_stock"`
	IsActive    *bool            `json:"is_active"`
}

// LocationRequest DTO, same conventions as ProductRequest.
type LocationRequest struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Type     *string `json:"type"`
	ParentID *string `json:"parent_id"`
	Capacity *int64  `json:"capacity"`
	IsActive *bool   `json:"is_active"`
}

// MasterDataService manages products and locations.
type MasterDataService struct {
	products  repositories.ProductRepository
	locations repositories.LocationRepository
	authz     *Authorizer
	auditor   *auditor
	now       func() time.Time
}

func requiredField(v *string, name string) (string, error) {
	if v == nil || utils.IsEmpty(*v) {
		return "", validationf("%s is required", name)
	}
	return strings.TrimSpace(*v), nil
}

func duplicateCode(err error, what, code string) error {
	if errors.Is(err, repositories.ErrDuplicateKey) {
		return fmt.Errorf("%w: %s code %s already exists", ErrConflict, what, code)
	}
	return nil
}

// --- Products ---

func applyProduct(p *models.Product, req ProductRequest) error {
	if req.Code != nil {
		code, err := requiredField(req.Code, "code")
		if err != nil {
			return err
		}
		p.Code = code
	}
	if req.Name != nil {
		name, err := requiredField(req.Name, "name")
		if err != nil {
			return err
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = utils.NewNullString(*req.Description)
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
	if req.Unit != nil {
		unit, err := requiredField(req.Unit, "unit")
		if err != nil {
			return err
		}
		p.Unit = unit
	}
	if req.UnitCost != nil {
		if req.UnitCost.IsNegative() {
			return validationf("unit_cost must not be negative")
		}
		p.UnitCost = *req.UnitCost
	}
	if req.LotTracked != nil {
		p.LotTracked = *req.LotTracked
	}
	if req.MinStock != nil {
		p.MinStock = req.MinStock
	}
	if req.MaxStock != nil {
		p.MaxStock = req.MaxStock
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if p.MinStock != nil && *p.MinStock < 0 {
		return validationf("min_stock must not be negative")
	}
	if p.MaxStock != nil && *p.MaxStock < 0 {
		return validationf("max_stock must not be negative")
	}
	if p.MinStock != nil && p.MaxStock != nil && *p.MinStock > *p.MaxStock {
		return validationf("min_stock %d exceeds max_stock %d", *p.MinStock, *p.MaxStock)
	}
	return nil
}

// CreateProduct adds a product.
func (s *MasterDataService) CreateProduct(ctx context.Context, actor Actor, req ProductRequest) (*models.Product, error) {
	if _, err := s.authz.Authorize(ctx, actor, opProductCreate, ""); err != nil {
		return nil, err
	}
	if _, err := requiredField(req.Code, "code"); err != nil {
		return nil, err
	}
	if _, err := requiredField(req.Name, "name"); err != nil {
		return nil, err
	}
	if _, err := requiredField(req.Unit, "unit"); err != nil {
		return nil, err
	}
	now := s.now()
	p := &models.Product{ID: uuid.NewString(), UnitCost: decimal.Zero, IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := applyProduct(p, req); err != nil {
		return nil, err
	}
	if err := s.products.CreateProduct(ctx, p); err != nil {
		if dup := duplicateCode(err, "product", p.Code); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("creating product: %w", err)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditCreate, models.EntityProduct, p.ID, map[string]interface{}{
		"code": p.Code,
		"name": p.Name,
	}))
	return p, nil
}

// GetProduct returns one product.
func (s *MasterDataService) GetProduct(ctx context.Context, actor Actor, id string) (*models.Product, error) {
	if _, err := s.authz.Authorize(ctx, actor, opMasterRead, ""); err != nil {
		return nil, err
	}
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrNotFound, "product "+id)
	}
	return p, nil
}

// ListProducts returns products ordered by code.
func (s *MasterDataService) ListProducts(ctx context.Context, actor Actor, offset, limit int) ([]models.Product, int, error) {
	if _, err := s.authz.Authorize(ctx, actor, opMasterRead, ""); err != nil {
		return nil, 0, err
	}
	offset, limit = clampWindow(offset, limit)
	products, total, err := s.products.ListProducts(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	return products, total, nil
}

// UpdateProduct applies the non-nil request fields.
func (s *MasterDataService) UpdateProduct(ctx context.Context, actor Actor, id string, req ProductRequest) (*models.Product, error) {
	if _, err := s.authz.Authorize(ctx, actor, opProductUpdate, id); err != nil {
		return nil, err
	}
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrNotFound, "product "+id)
	}
	if err := applyProduct(p, req); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		if dup := duplicateCode(err, "product", p.Code); dup != nil {
			return nil, dup
		}
		return nil, notFoundOr(err, ErrNotFound, "product "+id)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditUpdate, models.EntityProduct, p.ID, map[string]interface{}{
		"code": p.Code,
	}))
	return p, nil
}

// DeleteProduct deactivates the product. Ledger history keeps referring to it.
func (s *MasterDataService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	if _, err := s.authz.Authorize(ctx, actor, opProductDelete, id); err != nil {
		return err
	}
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return notFoundOr(err, ErrNotFound, "product "+id)
	}
	p.IsActive = false
	p.UpdatedAt = s.now()
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return notFoundOr(err, ErrNotFound, "product "+id)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditDelete, models.EntityProduct, p.ID, map[string]interface{}{
		"code":        p.Code,
		"deactivated": true,
	}))
	return nil
}

// --- Locations ---

func (s *MasterDataService) applyLocation(ctx context.Context, l *models.Location, req LocationRequest) error {
	if req.Code != nil {
		code, err := requiredField(req.Code, "code")
		if err != nil {
			return err
		}
		l.Code = code
	}
	if req.Name != nil {
		name, err := requiredField(req.Name, "name")
		if err != nil {
			return err
		}
		l.Name = name
	}
	if req.Type != nil {
		t := models.LocationType(strings.ToUpper(strings.TrimSpace(*req.Type)))
		if !t.Valid() {
			return validationf("unknown location type %q", *req.Type)
		}
		l.Type = t
	}
	if req.Capacity != nil {
		if *req.Capacity < 0 {
			return validationf("capacity must not be negative")
		}
		l.Capacity = req.Capacity
	}
	if req.IsActive != nil {
		l.IsActive = *req.IsActive
	}
	if req.ParentID != nil {
		l.ParentID = utils.NewNullString(*req.ParentID)
		if l.ParentID != nil {
			if err := s.checkParent(ctx, l.ID, *l.ParentID); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkParent walks up from parentID and rejects unknown parents and cycles through id.
func (s *MasterDataService) checkParent(ctx context.Context, id, parentID string) error {
	seen := map[string]bool{id: true}
	for cur := parentID; cur != ""; {
		if seen[cur] {
			return validationf("location %s cannot be its own ancestor", id)
		}
		seen[cur] = true
		parent, err := s.locations.GetLocation(ctx, cur)
		if err != nil {
			return notFoundOr(err, ErrValidation, "unknown parent location "+cur)
		}
		cur = utils.StringValue(parent.ParentID)
	}
	return nil
}

// CreateLocation adds a location node.
func (s *MasterDataService) CreateLocation(ctx context.Context, actor Actor, req LocationRequest) (*models.Location, error) {
	if _, err := s.authz.Authorize(ctx, actor, opLocationCreate, ""); err != nil {
		return nil, err
	}
	if _, err := requiredField(req.Code, "code"); err != nil {
		return nil, err
	}
	if _, err := requiredField(req.Name, "name"); err != nil {
		return nil, err
	}
	now := s.now()
	l := &models.Location{ID: uuid.NewString(), Type: models.LocationWarehouse, IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := s.applyLocation(ctx, l, req); err != nil {
		return nil, err
	}
	if err := s.locations.CreateLocation(ctx, l); err != nil {
		if dup := duplicateCode(err, "location", l.Code); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("creating location: %w", err)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditCreate, models.EntityLocation, l.ID, map[string]interface{}{
		"code": l.Code,
		"type": l.Type,
	}))
	return l, nil
}

// GetLocation returns one location.
func (s *MasterDataService) GetLocation(ctx context.Context, actor Actor, id string) (*models.Location, error) {
	if _, err := s.authz.Authorize(ctx, actor, opMasterRead, ""); err != nil {
		return nil, err
	}
	l, err := s.locations.GetLocation(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrNotFound, "location "+id)
	}
	return l, nil
}

// ListLocations returns locations ordered by code.
func (s *MasterDataService) ListLocations(ctx context.Context, actor Actor, offset, limit int) ([]models.Location, int, error) {
	if _, err := s.authz.Authorize(ctx, actor, opMasterRead, ""); err != nil {
		return nil, 0, err
	}
	offset, limit = clampWindow(offset, limit)
	locations, total, err := s.locations.ListLocations(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing locations: %w", err)
	}
	return locations, total, nil
}

// UpdateLocation applies the non-nil request fields.
func (s *MasterDataService) UpdateLocation(ctx context.Context, actor Actor, id string, req LocationRequest) (*models.Location, error) {
	if _, err := s.authz.Authorize(ctx, actor, opLocationUpdate, id); err != nil {
		return nil, err
	}
	l, err := s.locations.GetLocation(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrNotFound, "location "+id)
	}
	if err := s.applyLocation(ctx, l, req); err != nil {
		return nil, err
	}
	l.UpdatedAt = s.now()
	if err := s.locations.UpdateLocation(ctx, l); err != nil {
		if dup := duplicateCode(err, "location", l.Code); dup != nil {
			return nil, dup
		}
		return nil, notFoundOr(err, ErrNotFound, "location "+id)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditUpdate, models.EntityLocation, l.ID, map[string]interface{}{
		"code": l.Code,
	}))
	return l, nil
}

// DeleteLocation deactivates the location.
func (s *MasterDataService) DeleteLocation(ctx context.Context, actor Actor, id string) error {
	if _, err := s.authz.Authorize(ctx, actor, opLocationDelete, id); err != nil {
		return err
	}
	l, err := s.locations.GetLocation(ctx, id)
	if err != nil {
		return notFoundOr(err, ErrNotFound, "location "+id)
	}
	l.IsActive = false
	l.UpdatedAt = s.now()
	if err := s.locations.UpdateLocation(ctx, l); err != nil {
		return notFoundOr(err, ErrNotFound, "location "+id)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditDelete, models.EntityLocation, l.ID, map[string]interface{}{
		"code":        l.Code,
		"deactivated": true,
	}))
	return nil
}

// clampWindow applies the listing defaults: limit 20, at most 100.
func clampWindow(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = models.DefaultPageSize
	}
	if limit > models.MaxPageSize {
		limit = models.MaxPageSize
	}
	return offset, limit
}
