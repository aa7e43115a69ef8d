package controllers

import (
	"net/http"

	"echezona/internal/models/request_models"
	"echezona/internal/services"
	"echezona/pkg/utils"
	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	gateway services.PaymentGatewayService
}

func NewPaymentController(gateway services.PaymentGatewayService) *PaymentController {
	return &PaymentController{
		gateway: gateway,
	}
}

// CreateCheckout godoc
// @Summary Initiate an Echezona charge for an order
// @Description Initializes a charge and returns the hosted checkout URL the shopper must be redirected to. The order status is not touched.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.CheckoutRequest true "Checkout Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/checkout [post]
func (p *PaymentController) CreateCheckout(c *gin.Context) {

	var request request_models.CheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := p.gateway.ProcessPayment(c.Request.Context(), request.OrderID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, result, "Checkout created successfully")
}

// CreateRefund godoc
// @Summary Request a refund for a charged order
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.RefundRequest true "Refund Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/refund [post]
func (p *PaymentController) CreateRefund(c *gin.Context) {

	var request request_models.RefundRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := p.gateway.ProcessRefund(c.Request.Context(), request.OrderID, request.AmountMinor, request.Reason)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, result, "Refund requested successfully")
}

// Availability lets the host hide the gateway at checkout-render time
// instead of failing mid-flow.
func (p *PaymentController) Availability(c *gin.Context) {
	currency := c.Query("currency")
	if currency == "" {
		utils.RespondError(c, http.StatusBadRequest, "currency is required")
		return
	}

	if err := p.gateway.CheckAvailability(currency); err != nil {
		utils.RespondSuccess(c, gin.H{"available": false, "reason": err.Error()}, "Gateway unavailable")
		return
	}

	utils.RespondSuccess(c, gin.H{"available": true}, "Gateway available")
}
