package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warehouse_inventory_backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// ProductRepository defines the interface for product master data.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	ListProducts(ctx context.Context, offset, limit int) ([]models.Product, int, error)
}

// LocationRepository defines the interface for location master data.
type LocationRepository interface {
	CreateLocation(ctx context.Context, l *models.Location) error
	GetLocation(ctx context.Context, id string) (*models.Location, error)
	UpdateLocation(ctx context.Context, l *models.Location) error
	ListLocations(ctx context.Context, offset, limit int) ([]models.Location, int, error)
}

type productRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, code, name, description, category, unit, unit_cost, lot_tracked,
	min_stock, max_stock, is_active, created_at, updated_at`

func (r *productRepository) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `INSERT INTO products (` + productColumns + `)
	          VALUES (:id, :code, :name, :description, :category, :unit, :unit_cost, :lot_tracked,
	                  :min_stock, :max_stock, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return wrapPQError(err, "creating product")
	}
	return nil
}

func (r *productRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding product %s: %v", ErrDatabaseError, id, err)
	}
	return &p, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `UPDATE products SET code = :code, name = :name, description = :description,
	          category = :category, unit = :unit, unit_cost = :unit_cost, lot_tracked = :lot_tracked,
	          min_stock = :min_stock, max_stock = :max_stock, is_active = :is_active, updated_at = :updated_at
	          WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return wrapPQError(err, "updating product")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) ListProducts(ctx context.Context, offset, limit int) ([]models.Product, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products`); err != nil {
		return nil, 0, fmt.Errorf("%w: counting products: %v", ErrDatabaseError, err)
	}
	products := []models.Product{}
	err := r.db.SelectContext(ctx, &products,
		`SELECT `+productColumns+` FROM products ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing products: %v", ErrDatabaseError, err)
	}
	return products, total, nil
}

type locationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository creates a new instance of LocationRepository.
func NewLocationRepository(db *sqlx.DB) LocationRepository {
	return &locationRepository{db: db}
}

const locationColumns = `id, code, name, type, parent_id, capacity, is_active, created_at, updated_at`

func (r *locationRepository) CreateLocation(ctx context.Context, l *models.Location) error {
	query := `INSERT INTO locations (` + locationColumns + `)
	          VALUES (:id, :code, :name, :type, :parent_id, :capacity, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, l); err != nil {
		return wrapPQError(err, "creating location")
	}
	return nil
}

func (r *locationRepository) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	var l models.Location
	err := r.db.GetContext(ctx, &l, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding location %s: %v", ErrDatabaseError, id, err)
	}
	return &l, nil
}

func (r *locationRepository) UpdateLocation(ctx context.Context, l *models.Location) error {
	query := `UPDATE locations SET code = :code, name = :name, type = :type, parent_id = :parent_id,
	          capacity = :capacity, is_active = :is_active, updated_at = :updated_at
	          WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, l)
	if err != nil {
		return wrapPQError(err, "updating location")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *locationRepository) ListLocations(ctx context.Context, offset, limit int) ([]models.Location, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM locations`); err != nil {
		return nil, 0, fmt.Errorf("%w: counting locations: %v", ErrDatabaseError, err)
	}
	locations := []models.Location{}
	err := r.db.SelectContext(ctx, &locations,
		`SELECT `+locationColumns+` FROM locations ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing locations: %v", ErrDatabaseError, err)
	}
	return locations, total, nil
}
