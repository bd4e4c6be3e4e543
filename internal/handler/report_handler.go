package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/homestay-labs/service-availability/internal/application"
	"github.com/homestay-labs/service-availability/internal/auth"
	"github.com/homestay-labs/service-availability/internal/middleware"
	"github.com/homestay-labs/service-availability/internal/response"
)

// ReportHandler handles HTTP requests for aggregate reports.
type ReportHandler struct {
	service *application.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(service *application.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// RegisterRoutes registers all report routes on the given router group.
func (h *ReportHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	reports := r.Group("/api/v1/reports")
	reports.Use(authMW, middleware.RequireRole(auth.RoleAdmin))
	{
		reports.GET("/users", h.UserStats)
		reports.GET("/properties/top", h.TopProperties)
		reports.GET("/properties/:id/moving-average", h.MovingAverage)
	}
}

// UserStats handles GET /api/v1/reports/users.
func (h *ReportHandler) UserStats(c *gin.Context) {
	stats, err := h.service.UserStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// TopProperties handles GET /api/v1/reports/properties/top?limit=10.
func (h *ReportHandler) TopProperties(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	ranked, err := h.service.TopProperties(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ranked)
}

// MovingAverage handles GET /api/v1/reports/properties/:id/moving-average?window=3.
func (h *ReportHandler) MovingAverage(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}

	window, _ := strconv.Atoi(c.DefaultQuery("window", "3"))
	if window < 1 {
		response.BadRequest(c, "window must be at least 1")
		return
	}

	averages, err := h.service.PropertyMovingAverage(c.Request.Context(), propertyID, window)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"property_id":     propertyID,
		"window":          window,
		"moving_averages": averages,
	})
}
