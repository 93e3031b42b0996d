package repositories

import "github.com/jmoiron/sqlx"

// Store groups the repositories the services depend on.
type Store struct {
	Products     ProductRepository
	Locations    LocationRepository
	Users        UserRepository
	Sessions     SessionRepository
	Ledger       LedgerRepository
	Stocktakings StocktakingRepository
	Audit        AuditRepository
	Alerts       AlertRepository
}

// NewPostgresStore wires every repository to one connection pool.
func NewPostgresStore(db *sqlx.DB) *Store {
	return &Store{
		Products:     NewProductRepository(db),
		Locations:    NewLocationRepository(db),
		Users:        NewUserRepository(db),
		Sessions:     NewSessionRepository(db),
		Ledger:       NewLedgerRepository(db),
		Stocktakings: NewStocktakingRepository(db),
		Audit:        NewAuditRepository(db),
		Alerts:       NewAlertRepository(db),
	}
}

// NewMemoryStore wires every repository to one in-process store.
func NewMemoryStore() *Store {
	m := newMemoryDB()
	return &Store{
		Products:     m,
		Locations:    m,
		Users:        m,
		Sessions:     m,
		Ledger:       m,
		Stocktakings: m,
		Audit:        m,
		Alerts:       m,
	}
}
