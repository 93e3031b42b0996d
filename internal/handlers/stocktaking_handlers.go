package handlers

import (
	"net/http"

	"warehouse_inventory_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// StocktakingHandler serves the counting workflow.
type StocktakingHandler struct {
	stocktakingService *services.StocktakingService
}

// NewStocktakingHandler creates a new StocktakingHandler.
func NewStocktakingHandler(ss *services.StocktakingService) *StocktakingHandler {
	return &StocktakingHandler{stocktakingService: ss}
}

// Create schedules a count of a location.
func (h *StocktakingHandler) Create(c *gin.Context) {
	var req services.CreateStocktakingRequest
	if !bindJSON(c, "CreateStocktaking", &req) {
		return
	}
	st, err := h.stocktakingService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondServiceError(c, "CreateStocktaking", err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// List returns stocktakings, optionally filtered by ?status=.
func (h *StocktakingHandler) List(c *gin.Context) {
	list, err := h.stocktakingService.List(c.Request.Context(), actorFrom(c), c.Query("status"))
	if err != nil {
		respondServiceError(c, "ListStocktakings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// Get returns one stocktaking with its items.
func (h *StocktakingHandler) Get(c *gin.Context) {
	st, err := h.stocktakingService.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, "GetStocktaking", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Start moves a draft into counting.
func (h *StocktakingHandler) Start(c *gin.Context) {
	st, err := h.stocktakingService.Start(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, "StartStocktaking", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// UpdateItem records a counted quantity.
func (h *StocktakingHandler) UpdateItem(c *gin.Context) {
	var req services.UpdateItemRequest
	if !bindJSON(c, "UpdateStocktakingItem", &req) {
		return
	}
	item, err := h.stocktakingService.UpdateItem(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, "UpdateStocktakingItem", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Submit hands a finished count over for approval.
func (h *StocktakingHandler) Submit(c *gin.Context) {
	st, err := h.stocktakingService.Submit(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, "SubmitStocktaking", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Approve applies every discrepancy to the ledger at once.
func (h *StocktakingHandler) Approve(c *gin.Context) {
	st, err := h.stocktakingService.Approve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, "ApproveStocktaking", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Reject closes a count without touching the ledger. A reason is required.
func (h *StocktakingHandler) Reject(c *gin.Context) {
	var req services.RejectRequest
	if !bindJSON(c, "RejectStocktaking", &req) {
		return
	}
	st, err := h.stocktakingService.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondServiceError(c, "RejectStocktaking", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
