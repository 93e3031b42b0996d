package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-horse-battery"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *repositories.Store
	svc   *Services
	clock *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRetries(t, 5)
}

func newFixtureWithRetries(t *testing.T, retries int) *fixture {
	t.Helper()
	return newFixtureAt(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), retries)
}

// newFixtureAt starts the clock at now. Token tests need a clock close to the
// wall clock because token expiry is checked against real time.
func newFixtureAt(t *testing.T, now time.Time, retries int) *fixture {
	t.Helper()
	clock := &fakeClock{t: now}
	store := repositories.NewMemoryStore()
	svc := New(store, Options{
		Tokens:           utils.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour),
		LedgerMaxRetries: retries,
		ExpiryWindowDays: 7,
		Now:              clock.Now,
	})
	return &fixture{t: t, ctx: context.Background(), store: store, svc: svc, clock: clock}
}

// user stores an active account with the role and returns it as an actor.
func (f *fixture) user(role models.Role) Actor {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(f.t, err)
	id := uuid.NewString()
	require.NoError(f.t, f.store.Users.CreateUser(f.ctx, &models.User{
		ID:           id,
		Email:        id[:8] + "@example.com",
		Name:         string(role),
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}))
	return Actor{UserID: id, IPAddress: "127.0.0.1"}
}

func (f *fixture) product(code string, opts ...func(*models.Product)) *models.Product {
	f.t.Helper()
	p := &models.Product{
		ID:        uuid.NewString(),
		Code:      code,
		Name:      "Product " + code,
		Category:  "general",
		Unit:      "pcs",
		UnitCost:  decimal.RequireFromString("2.50"),
		IsActive:  true,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(f.t, f.store.Products.CreateProduct(f.ctx, p))
	return p
}

func (f *fixture) location(code string) *models.Location {
	f.t.Helper()
	l := &models.Location{
		ID:        uuid.NewString(),
		Code:      code,
		Name:      "Location " + code,
		Type:      models.LocationBin,
		IsActive:  true,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(f.t, f.store.Locations.CreateLocation(f.ctx, l))
	return l
}

// receive books quantity into a location as the given actor.
func (f *fixture) receive(actor Actor, productID, locationID string, qty int64) {
	f.t.Helper()
	_, err := f.svc.Stock.Inbound(f.ctx, actor, InboundRequest{
		ProductID: productID, LocationID: locationID, Quantity: qty, Reference: "PO-1",
	})
	require.NoError(f.t, err)
}

func (f *fixture) stock(productID, locationID string) models.Stock {
	f.t.Helper()
	st, err := f.store.Ledger.GetStock(f.ctx, productID, locationID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Stock{ProductID: productID, LocationID: locationID}
	}
	require.NoError(f.t, err)
	return *st
}

func (f *fixture) audit(filters models.AuditFilters) []models.AuditLog {
	f.t.Helper()
	entries, _, err := f.store.Audit.ListAudit(f.ctx, filters)
	require.NoError(f.t, err)
	return entries
}

func (f *fixture) transactions(productID string) []models.Transaction {
	f.t.Helper()
	txns, err := f.store.Ledger.ListTransactions(f.ctx, models.TransactionFilters{ProductID: productID})
	require.NoError(f.t, err)
	return txns
}

func (f *fixture) userRecord(actor Actor) *models.User {
	f.t.Helper()
	u, err := f.store.Users.GetUser(f.ctx, actor.UserID)
	require.NoError(f.t, err)
	return u
}

func int64Ptr(v int64) *int64 { return &v }
