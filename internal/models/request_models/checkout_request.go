package request_models

type CheckoutRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

type RefundRequest struct {
	OrderID     uint   `json:"order_id" binding:"required"`
	AmountMinor int64  `json:"amount" binding:"required,gt=0"`
	Reason      string `json:"reason"`
}
