package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"carva/internal/domain"
	"carva/internal/geo"
	"carva/internal/service"
)

// RequestHandler handles HTTP requests for towing/repair requests.
type RequestHandler struct {
	requestService *service.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requestService *service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// SubmitRequest is the HTTP request body for creating or editing a request.
type SubmitRequest struct {
	Car                 string   `json:"car"`
	Year                int      `json:"year"`
	UserLat             float64  `json:"userLat"`
	UserLng             float64  `json:"userLng"`
	WorkshopID          int64    `json:"workshopId,omitempty"`
	DestLat             *float64 `json:"destLat,omitempty"`
	DestLng             *float64 `json:"destLng,omitempty"`
	DestName            string   `json:"destName,omitempty"`
	ProblemDescription  string   `json:"problemDescription,omitempty"`
	IncidentTime        string   `json:"incidentTime,omitempty"`
	IsAccident          bool     `json:"isAccident"`
	AccidentReportImage string   `json:"accidentReportImage,omitempty"`
	CarImage            string   `json:"carImage,omitempty"`
	CanDrive            bool     `json:"canDrive"`
}

// MessageRequest is the HTTP request body for a chat message.
type MessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// BillRequest is the HTTP request body for replacing a draft bill.
type BillRequest struct {
	Items     []domain.BillItem `json:"billItems"`
	LaborCost float64           `json:"laborCost"`
}

// RequestResponse is the HTTP response for a single request. View is the
// screen the caller should be on for the request's current state.
type RequestResponse struct {
	Request *domain.ActiveRequest `json:"request"`
	View    domain.View           `json:"view"`
}

// RequestListResponse is the HTTP response for the caller's requests.
type RequestListResponse struct {
	Active  []*domain.ActiveRequest `json:"active"`
	History []*domain.ActiveRequest `json:"history"`
	View    domain.View             `json:"view"`
}

func (r SubmitRequest) details() service.RequestDetails {
	return service.RequestDetails{
		Car:                 r.Car,
		Year:                r.Year,
		UserLat:             r.UserLat,
		UserLng:             r.UserLng,
		WorkshopID:          r.WorkshopID,
		DestLat:             r.DestLat,
		DestLng:             r.DestLng,
		DestName:            r.DestName,
		ProblemDescription:  r.ProblemDescription,
		IncidentTime:        r.IncidentTime,
		IsAccident:          r.IsAccident,
		AccidentReportImage: r.AccidentReportImage,
		CarImage:            r.CarImage,
		CanDrive:            r.CanDrive,
	}
}

func respondRequest(c *gin.Context, code int, who service.Actor, req *domain.ActiveRequest) {
	respondJSON(c, code, RequestResponse{Request: req, View: domain.RouteFor(who.Role, req)})
}

// Submit handles POST /v1/requests
func (h *RequestHandler) Submit(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	created, err := h.requestService.Submit(c.Request.Context(), who, req.details())
	if err != nil {
		respondError(c, err)
		return
	}

	respondRequest(c, http.StatusCreated, who, created)
}

// Update handles PUT /v1/requests/:id
func (h *RequestHandler) Update(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	updated, err := h.requestService.UpdateDetails(c.Request.Context(), who, id, req.details())
	if err != nil {
		respondError(c, err)
		return
	}

	respondRequest(c, http.StatusOK, who, updated)
}

// List handles GET /v1/requests
func (h *RequestHandler) List(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	list, err := h.requestService.ListForUser(c.Request.Context(), who)
	if err != nil {
		respondError(c, err)
		return
	}

	var current *domain.ActiveRequest
	if len(list.Active) > 0 {
		current = list.Active[0]
	}
	respondJSON(c, http.StatusOK, RequestListResponse{
		Active:  list.Active,
		History: list.History,
		View:    domain.RouteFor(who.Role, current),
	})
}

// Get handles GET /v1/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	req, err := h.requestService.Get(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondRequest(c, http.StatusOK, who, req)
}

// GeoJSON handles GET /v1/requests/:id/geojson
func (h *RequestHandler) GeoJSON(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	req, err := h.requestService.Get(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := geo.RequestFeatures(req).MarshalJSON()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}

// Cancel handles POST /v1/requests/:id/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	cancelled, err := h.requestService.Cancel(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondRequest(c, http.StatusOK, who, cancelled)
}

// SendMessage handles POST /v1/requests/:id/messages
func (h *RequestHandler) SendMessage(c *gin.Context) {
	h.sendMessage(c, domain.ChannelTrip)
}

// SendNegotiationMessage handles POST /v1/requests/:id/negotiation/messages
func (h *RequestHandler) SendNegotiationMessage(c *gin.Context) {
	h.sendMessage(c, domain.ChannelNegotiation)
}

func (h *RequestHandler) sendMessage(c *gin.Context, ch domain.Channel) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.requestService.SendMessage(c.Request.Context(), who, id, ch, req.Text, req.Image)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, msg)
}

// OpenNegotiation handles POST /v1/requests/:id/negotiation/open
func (h *RequestHandler) OpenNegotiation(c *gin.Context) {
	transition(c, h.requestService.OpenNegotiation)
}

// FinalizeBill handles POST /v1/requests/:id/bill/finalize
func (h *RequestHandler) FinalizeBill(c *gin.Context) {
	transition(c, h.requestService.FinalizeBill)
}

// AgreeToBill handles POST /v1/requests/:id/bill/agree
func (h *RequestHandler) AgreeToBill(c *gin.Context) {
	transition(c, h.requestService.AgreeToBill)
}

// UpdateBill handles PUT /v1/requests/:id/bill
func (h *RequestHandler) UpdateBill(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req BillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	updated, err := h.requestService.UpdateBill(c.Request.Context(), who, id, req.Items, req.LaborCost)
	if err != nil {
		respondError(c, err)
		return
	}

	respondRequest(c, http.StatusOK, who, updated)
}

// transition runs a lifecycle operation that takes no body.
func transition(c *gin.Context, op func(context.Context, service.Actor, int64) (*domain.ActiveRequest, error)) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	req, err := op(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondRequest(c, http.StatusOK, who, req)
}
