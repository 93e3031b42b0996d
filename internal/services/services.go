package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/internal/telemetry"
	"warehouse_inventory_backend/pkg/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options configures the service layer.
type Options struct {
	Tokens           *utils.TokenManager
	LedgerMaxRetries int
	ExpiryWindowDays int
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

// Services bundles every domain service over one store.
type Services struct {
	Authorizer  *Authorizer
	Auth        *AuthService
	Users       *UserService
	Master      *MasterDataService
	Stock       *StockService
	Lots        *LotService
	Stocktaking *StocktakingService
	Audit       *AuditService
	Alerts      *AlertService
	Reports     *ReportService
	Analytics   *AnalyticsService
}

// New wires the services to the given store.
func New(store *repositories.Store, opts Options) *Services {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if opts.LedgerMaxRetries < 1 {
		opts.LedgerMaxRetries = 1
	}
	aud := newAuditor(store.Audit, now)
	authz := newAuthorizer(store.Users, aud)
	ledger := &ledgerCommitter{repo: store.Ledger, maxRetries: opts.LedgerMaxRetries, tracer: telemetry.Tracer()}

	stock := &StockService{
		ledger:    store.Ledger,
		committer: ledger,
		products:  store.Products,
		locations: store.Locations,
		authz:     authz,
		auditor:   aud,
		now:       now,
	}
	return &Services{
		Authorizer: authz,
		Auth:       &AuthService{users: store.Users, sessions: store.Sessions, tokens: opts.Tokens, authz: authz, auditor: aud, now: now},
		Users:      &UserService{users: store.Users, locations: store.Locations, authz: authz, auditor: aud, now: now},
		Master:     &MasterDataService{products: store.Products, locations: store.Locations, authz: authz, auditor: aud, now: now},
		Stock:      stock,
		Lots:       &LotService{ledger: store.Ledger, products: store.Products, authz: authz, now: now},
		Stocktaking: &StocktakingService{
			repo:      store.Stocktakings,
			stock:     stock,
			committer: ledger,
			authz:     authz,
			auditor:   aud,
			now:       now,
		},
		Audit: &AuditService{repo: store.Audit, authz: authz, auditor: aud},
		Alerts: &AlertService{
			alerts:           store.Alerts,
			ledger:           store.Ledger,
			products:         store.Products,
			stocktakings:     store.Stocktakings,
			authz:            authz,
			auditor:          aud,
			expiryWindowDays: opts.ExpiryWindowDays,
			now:              now,
		},
		Reports:   &ReportService{ledger: store.Ledger, products: store.Products, locations: store.Locations, authz: authz, now: now},
		Analytics: &AnalyticsService{ledger: store.Ledger, products: store.Products, locations: store.Locations, authz: authz, now: now},
	}
}

// ledgerCommitter runs the read-compute-commit loop of every ledger write.
type ledgerCommitter struct {
	repo       repositories.LedgerRepository
	maxRetries int
	tracer     trace.Tracer
}

// commit calls build and commits its batch, rebuilding from fresh reads on a
// version conflict. After maxRetries conflicts it reports ErrConflict.
func (l *ledgerCommitter) commit(ctx context.Context, op string, build func(ctx context.Context) (*repositories.LedgerBatch, error)) error {
	ctx, span := l.tracer.Start(ctx, "ledger."+op)
	defer span.End()

	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		batch, err := build(ctx)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		err = l.repo.Commit(ctx, batch)
		if err == nil {
			span.SetAttributes(attribute.Int("ledger.attempts", attempt))
			return nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "commit failed")
			return fmt.Errorf("committing %s: %w", op, err)
		}
		utils.LogDebug("Ledger version conflict, retrying", map[string]interface{}{"operation": op, "attempt": attempt})
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	span.SetStatus(codes.Error, "retries exhausted")
	return fmt.Errorf("%w: %s lost %d optimistic races", ErrConflict, op, l.maxRetries)
}

// startOfDay truncates t to UTC midnight.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
