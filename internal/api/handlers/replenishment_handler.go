package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/supplyplan/replenish-go/internal/domain"
	"github.com/supplyplan/replenish-go/internal/service"
)

type ReplenishmentHandler struct {
	service *service.ReplenishmentService
}

func NewReplenishmentHandler(service *service.ReplenishmentService) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service}
}

type runRequestBody struct {
	SKU                   string  `json:"sku"`
	Country               string  `json:"country"`
	BaselineDate          string  `json:"baseline_date"`
	BaseStock             float64 `json:"base_stock"`
	TargetCoverMonths     int     `json:"target_cover_months"`
	ProcurementSafeMargin float64 `json:"procurement_safe_margin"`
}

// Run executes one replenishment forecasting run for a SKU/country.
func (h *ReplenishmentHandler) Run(c *gin.Context) {
	var body runRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	body.SKU = strings.TrimSpace(body.SKU)
	body.Country = strings.TrimSpace(body.Country)
	if body.SKU == "" || body.Country == "" {
		errorResponse(c, http.StatusBadRequest, "sku and country are required")
		return
	}
	if body.BaseStock < 0 {
		errorResponse(c, http.StatusBadRequest, "base_stock must not be negative")
		return
	}
	if body.TargetCoverMonths < 0 {
		errorResponse(c, http.StatusBadRequest, "target_cover_months must not be negative")
		return
	}

	var baseline time.Time
	if body.BaselineDate != "" {
		parsed, err := time.Parse("2006-01-02", body.BaselineDate)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "baseline_date must be YYYY-MM-DD")
			return
		}
		baseline = parsed
	}

	summary, err := h.service.Run(c.Request.Context(), domain.RunRequest{
		SKU:                   body.SKU,
		Country:               body.Country,
		BaselineDate:          baseline,
		BaseStock:             body.BaseStock,
		TargetCoverMonths:     body.TargetCoverMonths,
		ProcurementSafeMargin: body.ProcurementSafeMargin,
	})
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetSummary returns the cached summary of the latest run for a SKU/country.
func (h *ReplenishmentHandler) GetSummary(c *gin.Context) {
	sku := strings.TrimSpace(c.Query("sku"))
	country := strings.TrimSpace(c.Query("country"))
	if sku == "" || country == "" {
		errorResponse(c, http.StatusBadRequest, "sku and country are required")
		return
	}

	summary, ok, err := h.service.LatestSummary(c.Request.Context(), sku, country)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		errorResponse(c, http.StatusNotFound, "no summary available")
		return
	}

	c.JSON(http.StatusOK, summary)
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}
