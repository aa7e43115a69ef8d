package response_models

type ProcessPaymentResponse struct {
	Result      string `json:"result"` // "success" | "failure"
	RedirectURL string `json:"redirect_url,omitempty"`
	Message     string `json:"message,omitempty"`
}

type AvailabilityResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type RefundResponse struct {
	Result   string `json:"result"`
	RefundID string `json:"refund_id,omitempty"`
	Message  string `json:"message,omitempty"`
}
