package utils

import (
	"errors"
	"github.com/gin-gonic/gin"
	"log"
	"net/http"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	v, _ := c.Get("trace_id")
	s, _ := v.(string)
	return s
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		RespondError(c, http.StatusNotFound, "Order not found")
	case errors.Is(err, ErrOrderAlreadyPaid):
		RespondError(c, http.StatusConflict, "Order has already been paid")
	case errors.Is(err, ErrUnsupportedCurrency):
		RespondError(c, http.StatusBadRequest, "Currency is not supported by Echezona")
	case errors.Is(err, ErrMissingAPIKey):
		RespondError(c, http.StatusServiceUnavailable, "Payment gateway is not configured")
	case errors.Is(err, ErrNoTransaction):
		RespondError(c, http.StatusBadRequest, "No Echezona transaction recorded for this order")
	case errors.Is(err, ErrMalformedResponse):
		RespondError(c, http.StatusBadGateway, "Could not process the payment gateway response. Please try again.")
	case errors.Is(err, ErrDatabaseError):
		log.Printf("Database error: %v", err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	default:
		log.Printf("Unknown error: %v", err)
		RespondError(c, http.StatusInternalServerError, "An error occurred while processing your payment. Please try again.")
	}
}
