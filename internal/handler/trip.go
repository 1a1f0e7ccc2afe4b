package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carva/internal/service"
)

// TripHandler handles the flatbed leg of a request: matching and the
// two-phase arrival handshakes.
type TripHandler struct {
	requestService *service.RequestService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(requestService *service.RequestService) *TripHandler {
	return &TripHandler{requestService: requestService}
}

// Accept handles POST /v1/requests/:id/accept
func (h *TripHandler) Accept(c *gin.Context) {
	transition(c, h.requestService.Accept)
}

// Confirm handles POST /v1/requests/:id/confirm
func (h *TripHandler) Confirm(c *gin.Context) {
	transition(c, h.requestService.ConfirmArrival)
}

// Reject handles POST /v1/requests/:id/reject
func (h *TripHandler) Reject(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := h.requestService.Reject(c.Request.Context(), who, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
