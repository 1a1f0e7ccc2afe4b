package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carva/internal/domain"
	"carva/internal/geo"
	"carva/internal/service"
)

// DriverHandler handles HTTP requests for flatbed drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// UpdateLocationRequest is the HTTP request body for updating driver location.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PendingItemResponse is one entry of the pending feed.
type PendingItemResponse struct {
	Request    *domain.ActiveRequest `json:"request"`
	DistClient float64               `json:"distClient"`
	DistDest   float64               `json:"distDest"`
}

// UpdateLocation handles POST /v1/drivers/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.driverService.UpdateLocation(c.Request.Context(), who, req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GoOffline handles DELETE /v1/drivers/location
func (h *DriverHandler) GoOffline(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	if err := h.driverService.GoOffline(c.Request.Context(), who); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PendingFeed handles GET /v1/drivers/requests
func (h *DriverHandler) PendingFeed(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	items, err := h.driverService.PendingFeed(c.Request.Context(), who)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PendingItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, PendingItemResponse{
			Request:    item.Request,
			DistClient: item.DistClient,
			DistDest:   item.DistDest,
		})
	}

	respondJSON(c, http.StatusOK, gin.H{
		"requests": response,
		"count":    len(response),
	})
}

// Distance handles GET /v1/distance. Missing or non-numeric coordinates
// yield 0.
func Distance(c *gin.Context) {
	km := geo.DistanceFromStrings(c.Query("lat1"), c.Query("lng1"), c.Query("lat2"), c.Query("lng2"))
	respondJSON(c, http.StatusOK, gin.H{"km": km})
}
