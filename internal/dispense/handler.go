package dispense

import (
	"net/http"

	"becard/internal/api"
	"becard/internal/auth"
	"becard/internal/sale"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateSession godoc
// @Summary      Authorize a pour
// @Description  Prices the equipment's product and authorizes a volume. In wallet mode the volume is capped by the payer's balance.
// @Tags         device
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRequest  true  "Pour request"
// @Success      201      {object}  CreateResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /device/sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "tenant not resolved"})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	in := CreateInput{
		TenantID:       tenantID,
		EquipmentID:    req.EquipmentID,
		RequestedML:    req.RequestedML,
		PaymentMode:    PaymentMode(req.PaymentMode),
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.UID != nil {
		in.UID = *req.UID
	}
	if req.UIDHash != nil {
		in.CardHash = *req.UIDHash
	}
	// Customers pour on their own account.
	if auth.GetRole(c) == auth.RoleCustomer {
		if userID, ok := auth.GetUserID(c); ok {
			in.AccountID = &userID
		}
	}

	sess, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess.Response())
}

// CompleteSession godoc
// @Summary      Settle a pour
// @Description  Wallet sessions are debited and completed. External sessions record a pending payment.
// @Tags         device
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID  path      string           true  "Session ID"
// @Param        request    body      CompleteRequest  true  "Poured volume"
// @Success      200        {object}  CompleteResponse
// @Failure      400        {object}  api.ErrorResponse
// @Failure      402        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /device/sessions/{sessionID}/complete [post]
func (h *Handler) CompleteSession(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "tenant not resolved"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "session not found", Code: "SESSION_NOT_FOUND"})
		return
	}

	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}
	callerID, _ := auth.GetUserID(c)

	completion, err := h.service.Complete(c.Request.Context(), CompleteInput{
		TenantID:    tenantID,
		SessionID:   sessionID,
		PouredML:    *req.PouredML,
		PaymentMode: PaymentMode(req.PaymentMode),
		Method:      req.Method,
		ProviderRef: req.ProviderRef,
		CompletedBy: callerID,
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}

	var saleID *uuid.UUID
	if completion.Sale != nil {
		saleID = &completion.Sale.ExternalID
	}
	c.JSON(http.StatusOK, completion.Session.CompletionResponse(saleID))
}

// ConfirmPayment godoc
// @Summary      Confirm an external payment
// @Description  Records the provider's verdict. Approval accrues loyalty once and completes the session.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      ConfirmPaymentRequest  true  "Provider verdict"
// @Success      200      {object}  ConfirmPaymentResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /payments/confirm [post]
func (h *Handler) ConfirmPayment(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "tenant not resolved"})
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	p, err := h.service.ConfirmPayment(c.Request.Context(), ConfirmInput{
		TenantID:        tenantID,
		ProviderRef:     req.ProviderRef,
		Status:          sale.PaymentStatus(req.Status),
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ConfirmPaymentResponse{PaymentID: p.ID, Status: p.Status, Message: "payment updated"})
}

// ClaimSale godoc
// @Summary      Claim a sale
// @Description  Attaches an anonymous sale to the caller's account and accrues its loyalty points once.
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        saleID  path      string  true  "Sale ID"
// @Success      200     {object}  ClaimResponse
// @Failure      404     {object}  api.ErrorResponse
// @Failure      409     {object}  api.ErrorResponse
// @Router       /sales/{saleID}/claim [post]
func (h *Handler) ClaimSale(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "tenant not resolved"})
		return
	}

	saleID, err := uuid.Parse(c.Param("saleID"))
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "sale not found", Code: "SALE_NOT_FOUND"})
		return
	}

	res, err := h.service.Claim(c.Request.Context(), ClaimInput{TenantID: tenantID, SaleID: saleID, AccountID: userID})
	if err != nil {
		api.RespondError(c, err)
		return
	}

	out := ClaimResponse{SaleID: res.Sale.ExternalID, Message: "sale claimed"}
	if res.Loyalty != nil {
		out.PointsEarned = res.Loyalty.PointsEarned
	}
	c.JSON(http.StatusOK, out)
}
