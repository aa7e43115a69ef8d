package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"echezona/internal/services"
	"echezona/pkg/utils"
	"github.com/gin-gonic/gin"
)

type ReconcileController struct {
	reconcile services.ReconciliationService
}

func NewReconcileController(reconcile services.ReconciliationService) *ReconcileController {
	return &ReconcileController{
		reconcile: reconcile,
	}
}

// HandleCallback is the shopper's browser return from the hosted checkout
// page. It always ends in a redirect except when the order cannot be
// resolved at all.
func (r *ReconcileController) HandleCallback(c *gin.Context) {

	orderID, err := strconv.ParseUint(c.Query("order_id"), 10, 64)
	if err != nil || orderID == 0 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid order_id")
		return
	}

	reference := c.Query("orderReference")
	responseCode := c.Query("responseCode")

	redirectURL, err := r.reconcile.HandleBrowserReturn(c.Request.Context(), uint(orderID), reference, responseCode)
	if err != nil {
		if redirectURL == "" {
			utils.HandleServiceError(c, err)
			return
		}
		// Verification errors still redirect the shopper somewhere
		// sensible; the webhook channel remains able to resolve the order.
		log.Printf("[Callback] Browser return error for order %d: %v", orderID, err)
	}

	c.Redirect(http.StatusFound, redirectURL)
}

// HandleWebhook is the processor's server-to-server notification endpoint.
// Short text responses, never a redirect.
func (r *ReconcileController) HandleWebhook(c *gin.Context) {

	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "Could not read request body")
		return
	}

	signature := c.GetHeader(services.SignatureHeader)

	err = r.reconcile.HandleWebhook(c.Request.Context(), rawBody, signature)
	switch {
	case err == nil:
		c.String(http.StatusOK, "Webhook processed")
	case errors.Is(err, utils.ErrInvalidSignature):
		c.String(http.StatusUnauthorized, "Invalid signature")
	case errors.Is(err, utils.ErrInvalidPayload):
		c.String(http.StatusBadRequest, "Invalid payload")
	case errors.Is(err, utils.ErrOrderNotFound):
		c.String(http.StatusBadRequest, "Unknown order")
	default:
		log.Printf("[Webhook] Processing error: %v", err)
		c.String(http.StatusInternalServerError, "Webhook processing failed")
	}
}
