package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/homestay-labs/service-availability/internal/application"
	"github.com/homestay-labs/service-availability/internal/auth"
	"github.com/homestay-labs/service-availability/internal/middleware"
	"github.com/homestay-labs/service-availability/internal/response"
)

// PropertyHandler handles HTTP requests for property listings.
type PropertyHandler struct {
	service *application.PropertyService
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(service *application.PropertyService) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// RegisterRoutes registers all property routes on the given router group.
func (h *PropertyHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	properties := r.Group("/api/v1/properties")
	properties.Use(authMW)
	{
		properties.POST("", middleware.RequireRole(auth.RoleHost), h.CreateProperty)
		properties.GET("", h.ListProperties)
		properties.GET("/:id", h.GetProperty)
		properties.PUT("/:id", middleware.RequireRole(auth.RoleHost), h.UpdateProperty)
	}

	host := r.Group("/api/v1/host/properties")
	host.Use(authMW, middleware.RequireRole(auth.RoleHost))
	{
		host.GET("", h.ListMyProperties)
	}
}

// CreateProperty handles POST /api/v1/properties.
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	hostID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateProperty(c.Request.Context(), hostID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateProperty handles PUT /api/v1/properties/:id.
func (h *PropertyHandler) UpdateProperty(c *gin.Context) {
	hostID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}

	var req application.UpdatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateProperty(c.Request.Context(), hostID, propertyID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetProperty handles GET /api/v1/properties/:id.
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}

	result, err := h.service.GetProperty(c.Request.Context(), propertyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListProperties handles GET /api/v1/properties.
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.service.ListProperties(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ListMyProperties handles GET /api/v1/host/properties.
func (h *PropertyHandler) ListMyProperties(c *gin.Context) {
	hostID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := h.service.GetHostProperties(c.Request.Context(), hostID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
