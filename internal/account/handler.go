package account

import (
	"net/http"

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

// GetMe godoc
// @Summary      Get current account
// @Description  Returns the account of the authenticated customer.
// @Tags         accounts
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Account
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}
	tenantID, _ := auth.GetTenantID(c)

	acc, err := h.service.GetByID(c.Request.Context(), tenantID, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, acc)
}
