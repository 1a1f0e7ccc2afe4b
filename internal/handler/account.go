package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carva/internal/domain"
	"carva/internal/service"
)

// AccountHandler handles HTTP requests for accounts.
type AccountHandler struct {
	accountService *service.AccountService
	paymentService *service.PaymentService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, paymentService *service.PaymentService) *AccountHandler {
	return &AccountHandler{accountService: accountService, paymentService: paymentService}
}

// SignupRequest is the HTTP request body for account signup.
type SignupRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
	OTP             string `json:"otp"`

	FlatbedPlate string `json:"flatbedPlate,omitempty"`

	WorkshopPhone    string   `json:"workshopPhone,omitempty"`
	WorkshopLat      *float64 `json:"workshopLat,omitempty"`
	WorkshopLng      *float64 `json:"workshopLng,omitempty"`
	LocationEn       string   `json:"locationEn,omitempty"`
	LocationAr       string   `json:"locationAr,omitempty"`
	CommercialReg    string   `json:"commercialReg,omitempty"`
	MunicipalLicense string   `json:"municipalLicense,omitempty"`
}

// LoginRequest is the HTTP request body for login by username or email.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// CarRequest is the HTTP request body for a garage entry.
type CarRequest struct {
	NameEn string `json:"nameEn"`
	NameAr string `json:"nameAr"`
	Year   int    `json:"year"`
	Color  string `json:"color"`
	Plate  string `json:"plate"`
	Photo  string `json:"photo,omitempty"`
}

// AccountResponse is the HTTP response for account data. It never carries
// the password hash.
type AccountResponse struct {
	Name          string                  `json:"name"`
	Username      string                  `json:"username"`
	Email         string                  `json:"email"`
	Role          domain.Role             `json:"role"`
	JoinDate      string                  `json:"joinDate"`
	WalletBalance int                     `json:"walletBalance"`
	Unread        int                     `json:"unread"`
	Notifications []domain.Notification   `json:"notifications"`
	Owner         *domain.OwnerProfile    `json:"owner,omitempty"`
	Driver        *domain.DriverProfile   `json:"driver,omitempty"`
	Workshop      *domain.WorkshopProfile `json:"workshop,omitempty"`
}

// SessionResponse is the HTTP response for signup and login.
type SessionResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
	View    domain.View     `json:"view"`
}

func toAccountResponse(acc *domain.Account) AccountResponse {
	notifications := acc.Notifications
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return AccountResponse{
		Name:          acc.Name,
		Username:      acc.Username,
		Email:         acc.Email,
		Role:          acc.Role,
		JoinDate:      acc.JoinDate,
		WalletBalance: acc.WalletBalance,
		Unread:        acc.UnreadCount(),
		Notifications: notifications,
		Owner:         acc.Owner,
		Driver:        acc.Driver,
		Workshop:      acc.Workshop,
	}
}

func toSessionResponse(s *service.Session) SessionResponse {
	return SessionResponse{
		Token:   s.Token,
		Account: toAccountResponse(s.Account),
		View:    domain.Dashboard(s.Account.Role),
	}
}

// Signup handles POST /v1/auth/signup
func (h *AccountHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session, err := h.accountService.Signup(c.Request.Context(), service.SignupRequest{
		Name:             req.Name,
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
		ConfirmPassword:  req.ConfirmPassword,
		Role:             req.Role,
		OTP:              req.OTP,
		FlatbedPlate:     req.FlatbedPlate,
		WorkshopPhone:    req.WorkshopPhone,
		WorkshopLat:      req.WorkshopLat,
		WorkshopLng:      req.WorkshopLng,
		LocationEn:       req.LocationEn,
		LocationAr:       req.LocationAr,
		CommercialReg:    req.CommercialReg,
		MunicipalLicense: req.MunicipalLicense,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toSessionResponse(session))
}

// Login handles POST /v1/auth/login
func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session, err := h.accountService.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toSessionResponse(session))
}

// Me handles GET /v1/me
func (h *AccountHandler) Me(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	acc, err := h.accountService.Profile(c.Request.Context(), who.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toAccountResponse(acc))
}

// Payments handles GET /v1/me/payments
func (h *AccountHandler) Payments(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListForAccount(c.Request.Context(), who.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}

// MarkNotificationRead handles POST /v1/me/notifications/:id/read
func (h *AccountHandler) MarkNotificationRead(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := h.accountService.MarkNotificationRead(c.Request.Context(), who.Username, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /v1/me/notifications/read
func (h *AccountHandler) MarkAllNotificationsRead(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	if err := h.accountService.MarkAllNotificationsRead(c.Request.Context(), who.Username); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteNotification handles DELETE /v1/me/notifications/:id
func (h *AccountHandler) DeleteNotification(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := h.accountService.DeleteNotification(c.Request.Context(), who.Username, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddCar handles POST /v1/me/garage
func (h *AccountHandler) AddCar(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	var req CarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	car, err := h.accountService.AddCar(c.Request.Context(), who.Username, service.CarInput(req))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, car)
}

// UpdateCar handles PUT /v1/me/garage/:id
func (h *AccountHandler) UpdateCar(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req CarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	car, err := h.accountService.UpdateCar(c.Request.Context(), who.Username, id, service.CarInput(req))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, car)
}

// DeleteCar handles DELETE /v1/me/garage/:id
func (h *AccountHandler) DeleteCar(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := h.accountService.DeleteCar(c.Request.Context(), who.Username, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
