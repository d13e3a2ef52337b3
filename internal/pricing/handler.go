package pricing

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

// Calculate godoc
// @Summary      Calculate effective price
// @Description  Resolves the unit price of a product for an equipment/point of sale at a point in time.
// @Tags         pricing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CalculateRequest  true  "Price query"
// @Success      200      {object}  Calculation
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /pricing/calculate [post]
func (h *Handler) Calculate(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "tenant not resolved"})
		return
	}

	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	q := Query{
		TenantID:      tenantID,
		ProductID:     req.ProductID,
		EquipmentID:   req.EquipmentID,
		PointOfSaleID: req.PointOfSaleID,
	}
	if req.At != nil {
		q.At = *req.At
	}

	calc, err := h.service.Calculate(c.Request.Context(), q)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, calc)
}
