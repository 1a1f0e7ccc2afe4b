package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carva/internal/domain"
	"carva/internal/export"
	"carva/internal/service"
)

// WorkshopHandler handles workshop listing, the workshop inbox and the
// history export.
type WorkshopHandler struct {
	workshopService *service.WorkshopService
	requestService  *service.RequestService
}

// NewWorkshopHandler creates a new WorkshopHandler.
func NewWorkshopHandler(workshopService *service.WorkshopService, requestService *service.RequestService) *WorkshopHandler {
	return &WorkshopHandler{workshopService: workshopService, requestService: requestService}
}

// WorkshopResponse is a workshop as shown to owners.
type WorkshopResponse struct {
	*domain.Workshop
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// List handles GET /v1/workshops
func (h *WorkshopHandler) List(c *gin.Context) {
	workshops, err := h.workshopService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]WorkshopResponse, 0, len(workshops))
	for _, ws := range workshops {
		lat, lng := ws.Coordinates()
		response = append(response, WorkshopResponse{Workshop: ws, Lat: lat, Lng: lng})
	}

	respondJSON(c, http.StatusOK, gin.H{
		"workshops": response,
		"count":     len(response),
	})
}

// Inbox handles GET /v1/workshops/inbox
func (h *WorkshopHandler) Inbox(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	inbox, err := h.workshopService.Inbox(c.Request.Context(), who)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"requests": inbox,
		"count":    len(inbox),
	})
}

// ExportHistory handles GET /v1/history/export
func (h *WorkshopHandler) ExportHistory(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	list, err := h.requestService.ListForUser(c.Request.Context(), who)
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	filename := fmt.Sprintf("carva_history_%s_%s.xlsx", who.Username, now.Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	if err := export.WriteHistory(c.Writer, "Order history: "+who.Username, list.History, now); err != nil {
		_ = c.Error(err)
	}
}
