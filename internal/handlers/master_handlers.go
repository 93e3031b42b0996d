package handlers

import (
	"net/http"

	"warehouse_inventory_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// MasterDataHandler serves products and locations.
type MasterDataHandler struct {
	masterService *services.MasterDataService
}

// NewMasterDataHandler creates a new MasterDataHandler.
func NewMasterDataHandler(ms *services.MasterDataService) *MasterDataHandler {
	return &MasterDataHandler{masterService: ms}
}

func listWindow(c *gin.Context) (int, int, bool) {
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return 0, 0, false
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return 0, 0, false
	}
	return offset, limit, true
}

// CreateProduct handles product creation.
func (h *MasterDataHandler) CreateProduct(c *gin.Context) {
	var req services.ProductRequest
	if !bindJSON(c, "CreateProduct", &req) {
		return
	}
	p, err := h.masterService.CreateProduct(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondServiceError(c, "CreateProduct", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetProducts lists products by ?offset=&limit=.
func (h *MasterDataHandler) GetProducts(c *gin.Context) {
	offset, limit, ok := listWindow(c)
	if !ok {
		return
	}
	products, total, err := h.masterService.ListProducts(c.Request.Context(), actorFrom(c), offset, limit)
	if err != nil {
		respondServiceError(c, "GetProducts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products, "total": total, "offset": offset})
}

// GetProductByID fetches one product.
func (h *MasterDataHandler) GetProductByID(c *gin.Context) {
	p, err := h.masterService.GetProduct(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, "GetProductByID", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProduct applies a partial update.
func (h *MasterDataHandler) UpdateProduct(c *gin.Context) {
	var req services.ProductRequest
	if !bindJSON(c, "UpdateProduct", &req) {
		return
	}
	p, err := h.masterService.UpdateProduct(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, "UpdateProduct", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteProduct deactivates a product.
func (h *MasterDataHandler) DeleteProduct(c *gin.Context) {
	if err := h.masterService.DeleteProduct(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondServiceError(c, "DeleteProduct", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateLocation handles location creation.
func (h *MasterDataHandler) CreateLocation(c *gin.Context) {
	var req services.LocationRequest
	if !bindJSON(c, "CreateLocation", &req) {
		return
	}
	l, err := h.masterService.CreateLocation(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondServiceError(c, "CreateLocation", err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// GetLocations lists locations by ?offset=&limit=.
func (h *MasterDataHandler) GetLocations(c *gin.Context) {
	offset, limit, ok := listWindow(c)
	if !ok {
		return
	}
	locations, total, err := h.masterService.ListLocations(c.Request.Context(), actorFrom(c), offset, limit)
	if err != nil {
		respondServiceError(c, "GetLocations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": locations, "total": total, "offset": offset})
}

// GetLocationByID fetches one location.
func (h *MasterDataHandler) GetLocationByID(c *gin.Context) {
	l, err := h.masterService.GetLocation(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, "GetLocationByID", err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// UpdateLocation applies a partial update.
func (h *MasterDataHandler) UpdateLocation(c *gin.Context) {
	var req services.LocationRequest
	if !bindJSON(c, "UpdateLocation", &req) {
		return
	}
	l, err := h.masterService.UpdateLocation(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, "UpdateLocation", err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// DeleteLocation deactivates a location.
func (h *MasterDataHandler) DeleteLocation(c *gin.Context) {
	if err := h.masterService.DeleteLocation(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondServiceError(c, "DeleteLocation", err)
		return
	}
	c.Status(http.StatusNoContent)
}
