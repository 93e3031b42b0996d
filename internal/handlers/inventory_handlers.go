package handlers

import (
	"net/http"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/services"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// StockHandler serves the stock ledger.
type StockHandler struct {
	stockService *services.StockService
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(ss *services.StockService) *StockHandler {
	return &StockHandler{stockService: ss}
}

// Inbound records goods received.
func (h *StockHandler) Inbound(c *gin.Context) {
	var req services.InboundRequest
	if !bindJSON(c, "Inbound", &req) {
		return
	}
	txn, err := h.stockService.Inbound(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondServiceError(c, "Inbound", err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// Outbound records goods shipped.
func (h *StockHandler) Outbound(c *gin.Context) {
	var req services.OutboundRequest
	if !bindJSON(c, "Outbound", &req) {
		return
	}
	txn, err := h.stockService.Outbound(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondServiceError(c, "Outbound", err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// Transfer moves goods between two locations.
func (h *StockHandler) Transfer(c *gin.Context) {
	var req services.TransferRequest
	if !bindJSON(c, "Transfer", &req) {
		return
	}
	txn, err := h.stockService.Transfer(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondServiceError(c, "Transfer", err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// Reserve holds available stock.
func (h *StockHandler) Reserve(c *gin.Context) {
	var req services.ReservationRequest
	if !bindJSON(c, "Reserve", &req) {
		return
	}
	stock, err := h.stockService.Reserve(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondServiceError(c, "Reserve", err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

// Release gives back a reservation.
func (h *StockHandler) Release(c *gin.Context) {
	var req services.ReservationRequest
	if !bindJSON(c, "Release", &req) {
		return
	}
	stock, err := h.stockService.ReleaseReservation(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondServiceError(c, "Release", err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

// GetStock returns one (product, location) row.
func (h *StockHandler) GetStock(c *gin.Context) {
	stock, err := h.stockService.GetStock(c.Request.Context(), actorFrom(c), c.Param("productId"), c.Param("locationId"))
	if err != nil {
		respondServiceError(c, "GetStock", err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

// SearchStock lists stock rows with product, location and lot details.
func (h *StockHandler) SearchStock(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "page_size", models.DefaultPageSize)
	if !ok {
		return
	}
	minQty, err := utils.StrToOptionalInt64(c.Query("min_quantity"))
	if err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	maxQty, err := utils.StrToOptionalInt64(c.Query("max_quantity"))
	if err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	result, err := h.stockService.SearchStock(c.Request.Context(), actorFrom(c), models.StockSearchFilters{
		ProductCode: c.Query("product_code"),
		ProductName: c.Query("product_name"),
		LocationID:  c.Query("location_id"),
		Category:    c.Query("category"),
		MinQuantity: minQty,
		MaxQuantity: maxQty,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		respondServiceError(c, "SearchStock", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ProductHistory lists a product's transactions, newest first.
func (h *StockHandler) ProductHistory(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	txns, err := h.stockService.History(c.Request.Context(), actorFrom(c), c.Param("productId"), limit)
	if err != nil {
		respondServiceError(c, "ProductHistory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txns})
}

// LocationHistory lists transactions touching a location, newest first.
func (h *StockHandler) LocationHistory(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	txns, err := h.stockService.LocationHistory(c.Request.Context(), actorFrom(c), c.Param("locationId"), limit)
	if err != nil {
		respondServiceError(c, "LocationHistory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txns})
}

// ProductTotal sums a product's stock across locations.
func (h *StockHandler) ProductTotal(c *gin.Context) {
	total, err := h.stockService.ProductTotal(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, "ProductTotal", err)
		return
	}
	c.JSON(http.StatusOK, total)
}

// ProductHistoryRange lists a product's transactions within ?from=&to=.
func (h *StockHandler) ProductHistoryRange(c *gin.Context) {
	from, to, ok := queryTimeRange(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	txns, err := h.stockService.HistoryInRange(c.Request.Context(), actorFrom(c), c.Param("productId"), from, to, limit)
	if err != nil {
		respondServiceError(c, "ProductHistoryRange", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txns})
}
