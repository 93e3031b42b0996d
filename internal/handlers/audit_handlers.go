package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AuditHandler serves the audit log.
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(as *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: as}
}

// auditFilters parses ?user_id=&action=&entity_type=&from=&to=&page=&page_size=.
func auditFilters(c *gin.Context) (models.AuditFilters, bool) {
	f := models.AuditFilters{
		UserID:     c.Query("user_id"),
		Action:     models.AuditAction(strings.ToUpper(c.Query("action"))),
		EntityType: c.Query("entity_type"),
	}
	var ok bool
	if f.From, f.To, ok = queryTimeRange(c); !ok {
		return f, false
	}
	if f.Page, ok = queryInt(c, "page", 1); !ok {
		return f, false
	}
	if f.PageSize, ok = queryInt(c, "page_size", models.DefaultPageSize); !ok {
		return f, false
	}
	return f, true
}

// ListAudit returns one page of audit entries, newest first.
func (h *AuditHandler) ListAudit(c *gin.Context) {
	f, ok := auditFilters(c)
	if !ok {
		return
	}
	result, err := h.auditService.List(c.Request.Context(), actorFrom(c), f)
	if err != nil {
		respondServiceError(c, "ListAudit", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportAudit downloads every matching entry as CSV.
func (h *AuditHandler) ExportAudit(c *gin.Context) {
	f, ok := auditFilters(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if _, err := h.auditService.ExportCSV(c.Request.Context(), actorFrom(c), f, &buf); err != nil {
		respondServiceError(c, "ExportAudit", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+h.auditService.ExportFilename()+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
