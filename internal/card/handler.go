package card

import (
	"net/http"
	"strconv"

	"becard/internal/api"
	"becard/internal/auth"
	"becard/internal/wallet"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Lookup godoc
// @Summary      Look up a card
// @Description  Reports whether a card is unknown, bound to an account or an anonymous wallet card.
// @Tags         cards
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      LookupRequest  true  "Card UID"
// @Success      200      {object}  LookupResult
// @Failure      400      {object}  api.ErrorResponse
// @Router       /cards/lookup [post]
func (h *Handler) Lookup(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}

	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	res, err := h.service.Lookup(c.Request.Context(), tenantID, req.UID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Bind godoc
// @Summary      Bind a card to an account
// @Tags         cards
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      BindRequest  true  "Card UID and account reference"
// @Success      201      {object}  CardResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /cards/bind [post]
func (h *Handler) Bind(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	staffID, _ := auth.GetUserID(c)

	var req BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	card, err := h.service.Bind(c.Request.Context(), BindInput{
		TenantID:   tenantID,
		UID:        req.UID,
		Account:    req.Reference,
		AssignedBy: staffID,
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CardResponse{CardID: card.ID, Message: "card bound"})
}

// IssueAnonymous godoc
// @Summary      Issue an anonymous wallet card
// @Tags         cards
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      IssueAnonymousRequest  true  "Card UID"
// @Success      201      {object}  CardResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /cards/issue-anonymous [post]
func (h *Handler) IssueAnonymous(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	staffID, _ := auth.GetUserID(c)

	var req IssueAnonymousRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	card, err := h.service.IssueAnonymous(c.Request.Context(), tenantID, req.UID, staffID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CardResponse{CardID: card.ID, Message: "anonymous card issued"})
}

// TopUp godoc
// @Summary      Top up an anonymous card
// @Tags         cards
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        cardID   path      int                  true  "Card ID"
// @Param        request  body      wallet.TopUpRequest  true  "Top-up amount"
// @Success      200      {object}  wallet.TopUpResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /cards/{cardID}/topup [post]
func (h *Handler) TopUp(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	staffID, _ := auth.GetUserID(c)

	cardID, err := strconv.Atoi(c.Param("cardID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid card ID"})
		return
	}

	var req wallet.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	w, txn, err := h.service.TopUp(c.Request.Context(), TopUpInput{
		TenantID:       tenantID,
		CardID:         cardID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		CreatedBy:      staffID,
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wallet.TopUpResponse{Wallet: w, Transaction: txn})
}

func tenant(c *gin.Context) (int, bool) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "tenant not resolved"})
	}
	return tenantID, ok
}
