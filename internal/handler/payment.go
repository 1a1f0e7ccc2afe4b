package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carva/internal/domain"
	"carva/internal/service"
)

// PaymentHandler handles HTTP requests for trip payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
	requestService *service.RequestService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService, requestService *service.RequestService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, requestService: requestService}
}

// PaymentResponse is the HTTP response for a completed payment.
type PaymentResponse struct {
	Payment *domain.Payment       `json:"payment"`
	Request *domain.ActiveRequest `json:"request"`
	View    domain.View           `json:"view"`
}

// Pay handles POST /v1/requests/:id/pay
func (h *PaymentHandler) Pay(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	result, err := h.paymentService.Pay(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, PaymentResponse{
		Payment: result.Payment,
		Request: result.Request,
		View:    domain.RouteFor(who.Role, result.Request),
	})
}

// GetPayment handles GET /v1/requests/:id/payment
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	// Only participants of the request may see its payment.
	if _, err := h.requestService.Get(c.Request.Context(), who, id); err != nil {
		respondError(c, err)
		return
	}

	payment, err := h.paymentService.GetByRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, payment)
}
