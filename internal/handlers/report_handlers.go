package handlers

import (
	"net/http"

	"warehouse_inventory_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves reports, analytics and stock alerts.
type ReportHandler struct {
	reportService    *services.ReportService
	alertService     *services.AlertService
	analyticsService *services.AnalyticsService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(rs *services.ReportService, as *services.AlertService, an *services.AnalyticsService) *ReportHandler {
	return &ReportHandler{reportService: rs, alertService: as, analyticsService: an}
}

// Valuation prices current stock, optionally for one ?location_id=.
func (h *ReportHandler) Valuation(c *gin.Context) {
	report, err := h.reportService.Valuation(c.Request.Context(), actorFrom(c), c.Query("location_id"))
	if err != nil {
		respondServiceError(c, "Valuation", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetAlerts lists alerts; ?active=false includes resolved ones.
func (h *ReportHandler) GetAlerts(c *gin.Context) {
	activeOnly, ok := queryBool(c, "active", true)
	if !ok {
		return
	}
	alerts, err := h.alertService.List(c.Request.Context(), actorFrom(c), c.Query("location_id"), activeOnly)
	if err != nil {
		respondServiceError(c, "GetAlerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// ResolveAlert acknowledges an active alert.
func (h *ReportHandler) ResolveAlert(c *gin.Context) {
	alert, err := h.alertService.Resolve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, "ResolveAlert", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// ABCAnalysis classifies a location's products by outbound value over ?days=.
func (h *ReportHandler) ABCAnalysis(c *gin.Context) {
	days, ok := queryInt(c, "days", services.DefaultAnalyticsDays)
	if !ok {
		return
	}
	report, err := h.analyticsService.ABCClassification(c.Request.Context(), actorFrom(c), c.Param("locationId"), days)
	if err != nil {
		respondServiceError(c, "ABCAnalysis", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) Turnover(c *gin.Context) {
	days, ok := queryInt(c, "days", services.DefaultAnalyticsDays)
	if !ok {
		return
	}
	report, err := h.analyticsService.Turnover(c.Request.Context(), actorFrom(c), c.Param("productId"), days)
	if err != nil {
		respondServiceError(c, "Turnover", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// SlowMoving lists stock at a location with no outbound movement in ?days=.
func (h *ReportHandler) SlowMoving(c *gin.Context) {
	days, ok := queryInt(c, "days", services.DefaultAnalyticsDays)
	if !ok {
		return
	}
	report, err := h.analyticsService.SlowMoving(c.Request.Context(), actorFrom(c), c.Param("locationId"), days)
	if err != nil {
		respondServiceError(c, "SlowMoving", err)
		return
	}
	c.JSON(http.StatusOK, report)
}
