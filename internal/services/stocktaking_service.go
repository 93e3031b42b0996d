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
)

var (
	opStocktakingRead    = Operation{Name: "stocktaking.read", Capability: models.CapStocktakingRead}
	opStocktakingCreate  = Operation{Name: "stocktaking.create", Capability: models.CapStocktakingWrite, Action: models.AuditCreate, EntityType: models.EntityStocktaking}
	opStocktakingUpdate  = Operation{Name: "stocktaking.update", Capability: models.CapStocktakingWrite, Action: models.AuditUpdate, EntityType: models.EntityStocktaking}
	opStocktakingApprove = Operation{Name: "stocktaking.approve", Capability: models.CapStocktakingWrite, Action: models.AuditApprove, EntityType: models.EntityStocktaking}
	opStocktakingReject  = Operation{Name: "stocktaking.reject", Capability: models.CapStocktakingWrite, Action: models.AuditReject, EntityType: models.EntityStocktaking}
)

// stocktakingTransitions is the workflow table. Anything absent is invalid.
var stocktakingTransitions = map[models.StocktakingStatus][]models.StocktakingStatus{
	models.StocktakingDraft:           {models.StocktakingInProgress},
	models.StocktakingInProgress:      {models.StocktakingPendingApproval},
	models.StocktakingPendingApproval: {models.StocktakingApproved, models.StocktakingRejected},
}

func checkTransition(from, to models.StocktakingStatus) error {
	for _, allowed := range stocktakingTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}

// CreateStocktakingRequest DTO
type CreateStocktakingRequest struct {
	LocationID    string `json:"location_id" binding:"required"`
	ScheduledDate string `json:"scheduled_date" binding:"required"` // YYYY-MM-DD or RFC 3339
}

// UpdateItemRequest DTO
type UpdateItemRequest struct {
	ProductID      string  `json:"product_id" binding:"required"`
	ActualQuantity *int64  `json:"actual_quantity" binding:"required"`
	Note           *string `json:"note"`
}

// RejectRequest DTO
type RejectRequest struct {
	Reason string `json:"reason"`
}

// StocktakingService runs the count-and-reconcile workflow.
type StocktakingService struct {
	repo      repositories.StocktakingRepository
	stock     *StockService
	committer *ledgerCommitter
	authz     *Authorizer
	auditor   *auditor
	now       func() time.Time
}

func (s *StocktakingService) load(ctx context.Context, id string) (*models.Stocktaking, error) {
	st, err := s.repo.GetStocktaking(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrNotFound, "stocktaking "+id)
	}
	return st, nil
}

// Create opens a DRAFT count seeded from the location's ledger rows.
func (s *StocktakingService) Create(ctx context.Context, actor Actor, req CreateStocktakingRequest) (*models.Stocktaking, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStocktakingCreate, ""); err != nil {
		return nil, err
	}
	scheduled, err := utils.StrToOptionalTime(req.ScheduledDate)
	if err != nil || scheduled == nil {
		return nil, validationf("scheduled_date must be YYYY-MM-DD or RFC 3339")
	}
	location, err := s.stock.locations.GetLocation(ctx, req.LocationID)
	if err != nil {
		return nil, notFoundOr(err, ErrValidation, "unknown location "+req.LocationID)
	}
	if !location.IsActive {
		return nil, validationf("location %s is inactive", location.Code)
	}
	stocks, err := s.stock.ledger.ListStocks(ctx, req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("seeding stocktaking: %w", err)
	}

	now := s.now()
	st := &models.Stocktaking{
		ID:            uuid.NewString(),
		LocationID:    req.LocationID,
		Status:        models.StocktakingDraft,
		ScheduledDate: *scheduled,
		CreatedBy:     actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         make([]models.StocktakingItem, 0, len(stocks)),
	}
	for _, stock := range stocks {
		st.Items = append(st.Items, models.StocktakingItem{
			ID:             uuid.NewString(),
			StocktakingID:  st.ID,
			ProductID:      stock.ProductID,
			LocationID:     stock.LocationID,
			SystemQuantity: stock.Quantity,
			UpdatedAt:      now,
		})
	}
	if err := s.repo.CreateStocktaking(ctx, st); err != nil {
		return nil, fmt.Errorf("creating stocktaking: %w", err)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditCreate, models.EntityStocktaking, st.ID, map[string]interface{}{
		"location_id": st.LocationID,
		"items":       len(st.Items),
	}))
	return st, nil
}

// transition moves st to the next status with a compare-and-swap on the current one.
func (s *StocktakingService) transition(ctx context.Context, st *models.Stocktaking, to models.StocktakingStatus) error {
	from := st.Status
	if err := checkTransition(from, to); err != nil {
		return err
	}
	st.Status = to
	st.UpdatedAt = s.now()
	if err := s.repo.UpdateStocktaking(ctx, st, from); err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			return fmt.Errorf("%w: stocktaking %s changed concurrently", ErrInvalidStateTransition, st.ID)
		}
		return fmt.Errorf("updating stocktaking: %w", err)
	}
	return nil
}

// Start moves a DRAFT count to IN_PROGRESS.
func (s *StocktakingService) Start(ctx context.Context, actor Actor, id string) (*models.Stocktaking, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStocktakingUpdate, id); err != nil {
		return nil, err
	}
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	st.StartedAt = &now
	if err := s.transition(ctx, st, models.StocktakingInProgress); err != nil {
		return nil, err
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditUpdate, models.EntityStocktaking, st.ID, map[string]interface{}{
		"status": st.Status,
	}))
	return st, nil
}

// UpdateItem records a counted quantity. Products not seeded at creation are
// added with the ledger quantity at this moment as their system quantity.
func (s *StocktakingService) UpdateItem(ctx context.Context, actor Actor, id string, req UpdateItemRequest) (*models.StocktakingItem, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStocktakingUpdate, id); err != nil {
		return nil, err
	}
	if req.ActualQuantity == nil || *req.ActualQuantity < 0 {
		return nil, validationf("actual_quantity must be zero or positive")
	}
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Status != models.StocktakingInProgress {
		return nil, fmt.Errorf("%w: items can only be counted while IN_PROGRESS, stocktaking is %s", ErrInvalidStateTransition, st.Status)
	}

	now := s.now()
	var item *models.StocktakingItem
	for i := range st.Items {
		if st.Items[i].ProductID == req.ProductID {
			item = &st.Items[i]
			break
		}
	}
	if item == nil {
		if _, err := s.stock.products.GetProduct(ctx, req.ProductID); err != nil {
			return nil, notFoundOr(err, ErrValidation, "unknown product "+req.ProductID)
		}
		row, err := s.stock.readRow(ctx, req.ProductID, st.LocationID)
		if err != nil {
			return nil, err
		}
		item = &models.StocktakingItem{
			ID:             uuid.NewString(),
			StocktakingID:  st.ID,
			ProductID:      req.ProductID,
			LocationID:     st.LocationID,
			SystemQuantity: row.stock.Quantity,
		}
	}
	actual := *req.ActualQuantity
	item.ActualQuantity = &actual
	if req.Note != nil {
		item.Note = utils.NewNullString(*req.Note)
	}
	item.UpdatedAt = now

	if err := s.repo.UpsertStocktakingItem(ctx, item, models.StocktakingInProgress); err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: stocktaking %s is no longer IN_PROGRESS", ErrInvalidStateTransition, st.ID)
		}
		return nil, fmt.Errorf("updating stocktaking item: %w", err)
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditUpdate, models.EntityStocktaking, st.ID, map[string]interface{}{
		"product_id":      item.ProductID,
		"system_quantity": item.SystemQuantity,
		"actual_quantity": actual,
		"discrepancy":     item.Discrepancy(),
	}))
	return item, nil
}

// Submit hands a fully counted stocktaking over for approval.
func (s *StocktakingService) Submit(ctx context.Context, actor Actor, id string) (*models.Stocktaking, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStocktakingUpdate, id); err != nil {
		return nil, err
	}
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(st.Status, models.StocktakingPendingApproval); err != nil {
		return nil, err
	}
	var uncounted []string
	for _, item := range st.Items {
		if !item.Counted() {
			uncounted = append(uncounted, item.ProductID)
		}
	}
	if len(uncounted) > 0 {
		return nil, validationf("%d items are not counted yet: %s", len(uncounted), strings.Join(uncounted, ", "))
	}
	now := s.now()
	st.SubmittedBy = &actor.UserID
	st.SubmittedAt = &now
	if err := s.transition(ctx, st, models.StocktakingPendingApproval); err != nil {
		return nil, err
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditUpdate, models.EntityStocktaking, st.ID, map[string]interface{}{
		"status": st.Status,
	}))
	return st, nil
}

// checkDecider rejects a decision by the user who submitted the count.
func (s *StocktakingService) checkDecider(ctx context.Context, actor Actor, op Operation, st *models.Stocktaking) error {
	if st.SubmittedBy != nil && *st.SubmittedBy == actor.UserID {
		s.authz.deny(ctx, actor, op, st.ID, "submitter cannot decide their own stocktaking")
		return fmt.Errorf("%w: the submitter of a stocktaking cannot approve or reject it", ErrAuthorization)
	}
	return nil
}

// Approve applies every non-zero discrepancy as an adjust transaction and
// moves the count to APPROVED in one ledger batch. If any adjustment would
// break an invariant nothing is written and the count stays PENDING_APPROVAL.
func (s *StocktakingService) Approve(ctx context.Context, actor Actor, id string) (*models.Stocktaking, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStocktakingApprove, id); err != nil {
		return nil, err
	}
	var approved *models.Stocktaking
	err := s.committer.commit(ctx, "stocktaking.approve", func(ctx context.Context) (*repositories.LedgerBatch, error) {
		st, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := checkTransition(st.Status, models.StocktakingApproved); err != nil {
			return nil, err
		}
		if err := s.checkDecider(ctx, actor, opStocktakingApprove, st); err != nil {
			return nil, err
		}

		now := s.now()
		batch := &repositories.LedgerBatch{}
		for _, item := range st.Items {
			delta := item.Discrepancy()
			if delta == 0 {
				continue
			}
			adj, err := s.stock.planAdjust(ctx, actor, item.ProductID, st.LocationID, delta,
				"stocktaking:"+st.ID, map[string]string{"stocktaking_id": st.ID, "item_id": item.ID}, now)
			if err != nil {
				return nil, err
			}
			batch.Stocks = append(batch.Stocks, adj.write)
			batch.Transactions = append(batch.Transactions, adj.txn)
		}

		from := st.Status
		st.Status = models.StocktakingApproved
		st.ApprovedBy = &actor.UserID
		st.ApprovedAt = &now
		st.CompletedDate = &now
		st.UpdatedAt = now
		batch.Stocktaking = &repositories.StocktakingTransition{Stocktaking: st, From: from}
		batch.Audit = []models.AuditLog{s.auditor.entry(actor, models.AuditApprove, models.EntityStocktaking, st.ID, map[string]interface{}{
			"adjustments": len(batch.Transactions),
		})}
		approved = st
		return batch, nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject closes a pending count without touching the ledger. A reason is required.
func (s *StocktakingService) Reject(ctx context.Context, actor Actor, id string, reason string) (*models.Stocktaking, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStocktakingReject, id); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationf("a rejection reason is required")
	}
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(st.Status, models.StocktakingRejected); err != nil {
		return nil, err
	}
	if err := s.checkDecider(ctx, actor, opStocktakingReject, st); err != nil {
		return nil, err
	}
	now := s.now()
	st.RejectionReason = &reason
	st.CompletedDate = &now
	if err := s.transition(ctx, st, models.StocktakingRejected); err != nil {
		return nil, err
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditReject, models.EntityStocktaking, st.ID, map[string]interface{}{
		"reason": reason,
	}))
	return st, nil
}

// Get returns a stocktaking with its items.
func (s *StocktakingService) Get(ctx context.Context, actor Actor, id string) (*models.Stocktaking, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStocktakingRead, ""); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// List returns stocktakings newest first, optionally filtered by status.
func (s *StocktakingService) List(ctx context.Context, actor Actor, status string) ([]models.Stocktaking, error) {
	if _, err := s.authz.Authorize(ctx, actor, opStocktakingRead, ""); err != nil {
		return nil, err
	}
	var filter *models.StocktakingStatus
	if status != "" {
		st := models.StocktakingStatus(strings.ToUpper(status))
		if !st.Valid() {
			return nil, validationf("unknown status %q", status)
		}
		filter = &st
	}
	list, err := s.repo.ListStocktakings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing stocktakings: %w", err)
	}
	return list, nil
}
