package handlers

import (
	"net/http"

	"warehouse_inventory_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// LotHandler serves lot registry queries.
type LotHandler struct {
	lotService *services.LotService
}

// NewLotHandler creates a new LotHandler.
func NewLotHandler(ls *services.LotService) *LotHandler {
	return &LotHandler{lotService: ls}
}

// ByProduct lists the lots of a product.
func (h *LotHandler) ByProduct(c *gin.Context) {
	lots, err := h.lotService.ByProduct(c.Request.Context(), actorFrom(c), c.Param("productId"))
	if err != nil {
		respondServiceError(c, "LotsByProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lots})
}

// GetLot returns one lot at a location.
func (h *LotHandler) GetLot(c *gin.Context) {
	lot, err := h.lotService.Get(c.Request.Context(), actorFrom(c), c.Param("productId"), c.Param("locationId"), c.Param("lotNumber"))
	if err != nil {
		respondServiceError(c, "GetLot", err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// Expiring lists lots expiring within ?days= (default 14).
func (h *LotHandler) Expiring(c *gin.Context) {
	days, ok := queryInt(c, "days", services.DefaultExpiringWithinDays)
	if !ok {
		return
	}
	lots, err := h.lotService.Expiring(c.Request.Context(), actorFrom(c), days)
	if err != nil {
		respondServiceError(c, "ExpiringLots", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lots, "days": days})
}

// Expired lists lots past their expiry date.
func (h *LotHandler) Expired(c *gin.Context) {
	lots, err := h.lotService.Expired(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, "ExpiredLots", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lots})
}

// History lists transactions carrying a lot number.
func (h *LotHandler) History(c *gin.Context) {
	txns, err := h.lotService.HistoryByLotNumber(c.Request.Context(), actorFrom(c), c.Param("lotNumber"))
	if err != nil {
		respondServiceError(c, "LotHistory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txns})
}
