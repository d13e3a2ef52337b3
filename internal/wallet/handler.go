package wallet

import (
	"net/http"
	"strconv"

	"becard/internal/api"
	"becard/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetBalance godoc
// @Summary      Get my wallet
// @Description  Returns the caller's account wallet, creating it on first use.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Wallet
// @Failure      401  {object}  api.ErrorResponse
// @Router       /wallet [get]
func (h *Handler) GetBalance(c *gin.Context) {
	accountID, tenantID, ok := caller(c)
	if !ok {
		return
	}

	w, err := h.service.GetOrCreate(c.Request.Context(), nil, tenantID, OwnerAccount, accountID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, w)
}

// TopUp godoc
// @Summary      Top up my wallet
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      TopUpRequest  true  "Top-up amount"
// @Success      200      {object}  TopUpResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Router       /wallet/topup [post]
func (h *Handler) TopUp(c *gin.Context) {
	accountID, tenantID, ok := caller(c)
	if !ok {
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	w, txn, err := h.service.TopUp(c.Request.Context(), TopUpInput{
		TenantID:       tenantID,
		OwnerType:      OwnerAccount,
		OwnerID:        accountID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		CreatedBy:      &accountID,
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TopUpResponse{Wallet: w, Transaction: txn})
}

// ListTransactions godoc
// @Summary      List my wallet transactions
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"  default(50)
// @Param        offset  query     int  false  "Offset"     default(0)
// @Success      200     {array}   Transaction
// @Failure      401     {object}  api.ErrorResponse
// @Router       /wallet/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	accountID, tenantID, ok := caller(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.service.Transactions(c.Request.Context(), tenantID, OwnerAccount, accountID, limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, txs)
}

func caller(c *gin.Context) (accountID, tenantID int, ok bool) {
	accountID, ok = auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return 0, 0, false
	}
	tenantID, ok = auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "tenant not resolved"})
		return 0, 0, false
	}
	return accountID, tenantID, true
}
