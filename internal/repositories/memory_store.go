package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"warehouse_inventory_backend/internal/models"
)

type lotKey struct {
	productID  string
	locationID string
	number     string
}

// memoryDB keeps every table in maps behind one mutex. Batch commits check
// all expected versions before applying anything.
type memoryDB struct {
	mu sync.RWMutex

	products  map[string]models.Product
	locations map[string]models.Location
	users     map[string]models.User
	sessions  map[string]models.Session

	stocks       map[models.StockKey]models.Stock
	lots         map[lotKey]models.Lot
	transactions []models.Transaction

	stocktakings     map[string]models.Stocktaking
	stocktakingItems map[string][]models.StocktakingItem
	stocktakingOrder []string

	audit []models.AuditLog

	alerts     map[string]models.StockAlert
	alertOrder []string
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		products:         make(map[string]models.Product),
		locations:        make(map[string]models.Location),
		users:            make(map[string]models.User),
		sessions:         make(map[string]models.Session),
		stocks:           make(map[models.StockKey]models.Stock),
		lots:             make(map[lotKey]models.Lot),
		stocktakings:     make(map[string]models.Stocktaking),
		stocktakingItems: make(map[string][]models.StocktakingItem),
		alerts:           make(map[string]models.StockAlert),
	}
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]T{}, items[offset:end]...)
}

// Products

func (m *memoryDB) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.products {
		if existing.Code == p.Code {
			return fmt.Errorf("%w: product code %s", ErrDuplicateKey, p.Code)
		}
	}
	m.products[p.ID] = *p
	return nil
}

func (m *memoryDB) GetProduct(_ context.Context, id string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memoryDB) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.products {
		if id != p.ID && existing.Code == p.Code {
			return fmt.Errorf("%w: product code %s", ErrDuplicateKey, p.Code)
		}
	}
	m.products[p.ID] = *p
	return nil
}

func (m *memoryDB) ListProducts(_ context.Context, offset, limit int) ([]models.Product, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return page(all, offset, limit), len(all), nil
}

// Locations

func (m *memoryDB) CreateLocation(_ context.Context, l *models.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.locations {
		if existing.Code == l.Code {
			return fmt.Errorf("%w: location code %s", ErrDuplicateKey, l.Code)
		}
	}
	m.locations[l.ID] = *l
	return nil
}

func (m *memoryDB) GetLocation(_ context.Context, id string) (*models.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (m *memoryDB) UpdateLocation(_ context.Context, l *models.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[l.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.locations {
		if id != l.ID && existing.Code == l.Code {
			return fmt.Errorf("%w: location code %s", ErrDuplicateKey, l.Code)
		}
	}
	m.locations[l.ID] = *l
	return nil
}

func (m *memoryDB) ListLocations(_ context.Context, offset, limit int) ([]models.Location, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]models.Location, 0, len(m.locations))
	for _, l := range m.locations {
		all = append(all, l)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return page(all, offset, limit), len(all), nil
}

// Users and sessions

func (m *memoryDB) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("%w: email %s", ErrDuplicateKey, u.Email)
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memoryDB) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *memoryDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryDB) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.users {
		if id != u.ID && strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("%w: email %s", ErrDuplicateKey, u.Email)
		}
	}
	updated := *u
	updated.PasswordHash = existing.PasswordHash
	m.users[u.ID] = updated
	return nil
}

func (m *memoryDB) ListUsers(_ context.Context, offset, limit int) ([]models.User, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return page(all, offset, limit), len(all), nil
}

func (m *memoryDB) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("%w: session %s", ErrDuplicateKey, s.ID)
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memoryDB) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memoryDB) RevokeSession(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.RevokedAt != nil {
		return ErrNotFound
	}
	s.RevokedAt = &at
	m.sessions[id] = s
	return nil
}

// Ledger

func (m *memoryDB) GetStock(_ context.Context, productID, locationID string) (*models.Stock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stocks[models.StockKey{ProductID: productID, LocationID: locationID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memoryDB) ListStocks(_ context.Context, locationID string) ([]models.Stock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Stock{}
	for _, s := range m.stocks {
		if locationID == "" || s.LocationID == locationID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (m *memoryDB) ListProductStocks(_ context.Context, productID string) ([]models.Stock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Stock{}
	for _, s := range m.stocks {
		if s.ProductID == productID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

func (m *memoryDB) SearchStock(_ context.Context, f models.StockSearchFilters) ([]models.StockWithDetails, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := []models.StockWithDetails{}
	for _, s := range m.stocks {
		p, okP := m.products[s.ProductID]
		l, okL := m.locations[s.LocationID]
		if !okP || !okL {
			continue
		}
		if f.ProductCode != "" && p.Code != f.ProductCode {
			continue
		}
		if f.ProductName != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.ProductName)) {
			continue
		}
		if f.LocationID != "" && s.LocationID != f.LocationID {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.MinQuantity != nil && s.Quantity < *f.MinQuantity {
			continue
		}
		if f.MaxQuantity != nil && s.Quantity > *f.MaxQuantity {
			continue
		}
		matched = append(matched, models.StockWithDetails{Stock: s, Product: p, Location: l})
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Product.Code != matched[j].Product.Code {
			return matched[i].Product.Code < matched[j].Product.Code
		}
		return matched[i].Location.Code < matched[j].Location.Code
	})
	return page(matched, models.Offset(f.Page, f.PageSize), f.PageSize), len(matched), nil
}

func (m *memoryDB) GetLot(_ context.Context, productID, locationID, number string) (*models.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lot, ok := m.lots[lotKey{productID, locationID, number}]
	if !ok {
		return nil, ErrNotFound
	}
	return &lot, nil
}

func (m *memoryDB) ListLots(_ context.Context, productID, locationID string) ([]models.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Lot{}
	for _, lot := range m.lots {
		if productID != "" && lot.ProductID != productID {
			continue
		}
		if locationID != "" && lot.LocationID != locationID {
			continue
		}
		out = append(out, lot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (m *memoryDB) ListLotsByExpiry(_ context.Context, q LotExpiryQuery) ([]models.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Lot{}
	for _, lot := range m.lots {
		if lot.Quantity <= 0 || lot.ExpiryDate == nil {
			continue
		}
		if !lot.ExpiryDate.Before(q.Before) {
			continue
		}
		if q.From != nil && lot.ExpiryDate.Before(*q.From) {
			continue
		}
		out = append(out, lot)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(*out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(*out[j].ExpiryDate)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (m *memoryDB) ListTransactions(_ context.Context, f models.TransactionFilters) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Transaction{}
	for i := len(m.transactions) - 1; i >= 0; i-- {
		t := m.transactions[i]
		if f.ProductID != "" && t.ProductID != f.ProductID {
			continue
		}
		if f.LocationID != "" && !strPtrEquals(t.FromLocationID, f.LocationID) && !strPtrEquals(t.ToLocationID, f.LocationID) {
			continue
		}
		if f.LotNumber != "" && !strPtrEquals(t.LotNumber, f.LotNumber) {
			continue
		}
		if !f.InRange(t.CreatedAt) {
			continue
		}
		out = append(out, cloneTransaction(t))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func strPtrEquals(p *string, s string) bool {
	return p != nil && *p == s
}

func cloneTransaction(t models.Transaction) models.Transaction {
	if t.Metadata != nil {
		md := make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			md[k] = v
		}
		t.Metadata = md
	}
	return t
}

func (m *memoryDB) Commit(_ context.Context, b *LedgerBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check everything before writing anything.
	for _, w := range b.Stocks {
		current, exists := m.stocks[w.Stock.Key()]
		switch {
		case w.ExpectedVersion == 0 && exists:
			return fmt.Errorf("%w: stock %s@%s already exists", ErrVersionConflict, w.Stock.ProductID, w.Stock.LocationID)
		case w.ExpectedVersion != 0 && (!exists || current.Version != w.ExpectedVersion):
			return fmt.Errorf("%w: stock %s@%s moved past version %d", ErrVersionConflict, w.Stock.ProductID, w.Stock.LocationID, w.ExpectedVersion)
		}
		if !w.Stock.Valid() {
			return fmt.Errorf("%w: stock %s@%s violates quantity >= reserved >= 0", ErrDatabaseError, w.Stock.ProductID, w.Stock.LocationID)
		}
	}
	for _, lot := range b.Lots {
		if lot.Quantity < 0 {
			return fmt.Errorf("%w: lot %s has negative quantity", ErrDatabaseError, lot.Number)
		}
	}
	if b.Stocktaking != nil {
		current, ok := m.stocktakings[b.Stocktaking.Stocktaking.ID]
		if !ok {
			return ErrNotFound
		}
		if current.Status != b.Stocktaking.From {
			return fmt.Errorf("%w: stocktaking %s is no longer %s", ErrVersionConflict, current.ID, b.Stocktaking.From)
		}
	}

	for _, w := range b.Stocks {
		m.stocks[w.Stock.Key()] = w.Stock
	}
	for _, lot := range b.Lots {
		key := lotKey{lot.ProductID, lot.LocationID, lot.Number}
		if existing, ok := m.lots[key]; ok {
			existing.Quantity = lot.Quantity
			if existing.ManufacturedDate == nil {
				existing.ManufacturedDate = lot.ManufacturedDate
			}
			if existing.ExpiryDate == nil {
				existing.ExpiryDate = lot.ExpiryDate
			}
			m.lots[key] = existing
			continue
		}
		m.lots[key] = lot
	}
	for _, t := range b.Transactions {
		m.transactions = append(m.transactions, cloneTransaction(t))
	}
	if b.Stocktaking != nil {
		st := *b.Stocktaking.Stocktaking
		st.Items = nil
		m.stocktakings[st.ID] = st
	}
	m.audit = append(m.audit, b.Audit...)
	return nil
}

// Stocktaking

func (m *memoryDB) CreateStocktaking(_ context.Context, st *models.Stocktaking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stocktakings[st.ID]; ok {
		return fmt.Errorf("%w: stocktaking %s", ErrDuplicateKey, st.ID)
	}
	header := *st
	header.Items = nil
	m.stocktakings[st.ID] = header
	m.stocktakingItems[st.ID] = append([]models.StocktakingItem{}, st.Items...)
	m.stocktakingOrder = append(m.stocktakingOrder, st.ID)
	return nil
}

func (m *memoryDB) GetStocktaking(_ context.Context, id string) (*models.Stocktaking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stocktakings[id]
	if !ok {
		return nil, ErrNotFound
	}
	items := append([]models.StocktakingItem{}, m.stocktakingItems[id]...)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	st.Items = items
	return &st, nil
}

func (m *memoryDB) ListStocktakings(_ context.Context, status *models.StocktakingStatus) ([]models.Stocktaking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Stocktaking{}
	for i := len(m.stocktakingOrder) - 1; i >= 0; i-- {
		st := m.stocktakings[m.stocktakingOrder[i]]
		if status != nil && st.Status != *status {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (m *memoryDB) UpdateStocktaking(_ context.Context, st *models.Stocktaking, from models.StocktakingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.stocktakings[st.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != from {
		return fmt.Errorf("%w: stocktaking %s is no longer %s", ErrVersionConflict, st.ID, from)
	}
	header := *st
	header.Items = nil
	m.stocktakings[st.ID] = header
	return nil
}

func (m *memoryDB) UpsertStocktakingItem(_ context.Context, item *models.StocktakingItem, required models.StocktakingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stocktakings[item.StocktakingID]
	if !ok {
		return ErrNotFound
	}
	if st.Status != required {
		return fmt.Errorf("%w: stocktaking %s is %s", ErrVersionConflict, st.ID, st.Status)
	}
	items := m.stocktakingItems[st.ID]
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].ActualQuantity = item.ActualQuantity
			items[i].Note = item.Note
			items[i].UpdatedAt = item.UpdatedAt
			return nil
		}
	}
	m.stocktakingItems[st.ID] = append(items, *item)
	return nil
}

// Audit

func (m *memoryDB) AppendAudit(_ context.Context, e *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, *e)
	return nil
}

func (m *memoryDB) ListAudit(_ context.Context, f models.AuditFilters) ([]models.AuditLog, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := []models.AuditLog{}
	for i := len(m.audit) - 1; i >= 0; i-- {
		if f.Matches(m.audit[i]) {
			matched = append(matched, m.audit[i])
		}
	}
	if f.PageSize <= 0 {
		return matched, len(matched), nil
	}
	return page(matched, models.Offset(f.Page, f.PageSize), f.PageSize), len(matched), nil
}

// Alerts

func (m *memoryDB) CreateAlert(_ context.Context, a *models.StockAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = *a
	m.alertOrder = append(m.alertOrder, a.ID)
	return nil
}

func (m *memoryDB) GetAlert(_ context.Context, id string) (*models.StockAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *memoryDB) ResolveAlert(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok || !a.IsActive {
		return ErrNotFound
	}
	a.IsActive = false
	a.ResolvedAt = &at
	m.alerts[id] = a
	return nil
}

func (m *memoryDB) ListAlerts(_ context.Context, activeOnly bool, locationID string) ([]models.StockAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.StockAlert{}
	for i := len(m.alertOrder) - 1; i >= 0; i-- {
		a := m.alerts[m.alertOrder[i]]
		if activeOnly && !a.IsActive {
			continue
		}
		if locationID != "" && a.LocationID != locationID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
