package loyalty

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

// GetBalance godoc
// @Summary      Get my loyalty points
// @Tags         loyalty
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Balance
// @Failure      401  {object}  api.ErrorResponse
// @Router       /loyalty/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	accountID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}
	tenantID, _ := auth.GetTenantID(c)

	bal, err := h.service.Balance(c.Request.Context(), tenantID, accountID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bal)
}
