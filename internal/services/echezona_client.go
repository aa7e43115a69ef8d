package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"echezona/pkg/utils"
)

// EchezonaConfig is the explicit gateway configuration, passed into every
// component at construction.
type EchezonaConfig struct {
	APIKey  string
	BaseURL string // e.g. https://api.echezona.com/api

	TestMode          bool
	AutocompleteOrder bool

	CallbackBaseURL string // public base URL of this service
	ReceiptURL      string // host "order received" page
	CheckoutURL     string // host checkout page, failure redirects land here

	ProviderName string // "echezona"
}

// Mode returns the value the processor expects on initialize requests.
func (c EchezonaConfig) Mode() string {
	if c.TestMode {
		return "Test"
	}
	return "Live"
}

// RemoteError is a failed call to the processor: a transport failure
// (Status 0) or a non-2xx response, raw body attached.
type RemoteError struct {
	Status int
	Body   string
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("echezona request failed: %v", e.Err)
	}
	return fmt.Sprintf("echezona responded %d: %s", e.Status, e.Body)
}

func (e *RemoteError) Unwrap() error { return e.Err }

type MetadataField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type InitializeRequest struct {
	Amount             float64         `json:"amount"`
	Currency           string          `json:"currency"`
	Email              string          `json:"email"`
	FirstName          string          `json:"firstName"`
	LastName           string          `json:"lastName"`
	CallbackURL        string          `json:"callbackUrl"`
	TransactionID      string          `json:"transactionId"`
	Mode               string          `json:"mode"` // "Test" | "Live"
	Metadata           []MetadataField `json:"metadata"`
	ProductID          string          `json:"productId"`
	ProductDescription string          `json:"producDescription"` // key spelled as the processor expects it
	ApplyCharge        bool            `json:"applyConviniencyCharge"`
}

type InitializeResult struct {
	PaymentURL    string
	AccessCode    string
	TransactionID string
}

type VerifyResult struct {
	ResponseCode string
	IsSuccessful bool
	Reference    string
	Message      string
}

// Successful is the single verify contract: the documented isSuccessful
// flag, with response code "00" accepted as the legacy success code.
func (v *VerifyResult) Successful() bool {
	return v.IsSuccessful || v.ResponseCode == "00"
}

type PaymentInfo struct {
	ValidationToken string
}

type RefundResult struct {
	RefundID string
	Message  string
}

// EchezonaClient is the typed client for the processor's payment endpoints.
// Calls are synchronous with a bounded timeout and are never retried here;
// retry policy belongs to the caller.
type EchezonaClient interface {
	Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResult, error)
	VerifyPayment(ctx context.Context, transactionID string, credential string) (*VerifyResult, error)
	GetPaymentInfo(ctx context.Context, accessCode string) (*PaymentInfo, error)
	Refund(ctx context.Context, transactionID string, amount float64, reason string) (*RefundResult, error)
}

type echezonaClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	debug   bool
}

func NewEchezonaClient(cfg EchezonaConfig) EchezonaClient {
	return &echezonaClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		debug:   cfg.TestMode,
	}
}

func (c *echezonaClient) post(ctx context.Context, path string, credential string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	if c.debug {
		log.Printf("[EchezonaClient] POST %s body: %s", path, payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{Status: resp.StatusCode, Err: err}
	}

	if c.debug {
		log.Printf("[EchezonaClient] POST %s -> %d: %s", path, resp.StatusCode, raw)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Status: resp.StatusCode, Body: string(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrMalformedResponse, err)
	}
	return nil
}

func (c *echezonaClient) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResult, error) {

	var envelope struct {
		Message string `json:"message"`
		Data    struct {
			PaymentURL    string `json:"paymentUrl"`
			AccessCode    string `json:"accessCode"`
			TransactionID string `json:"transactionId"`
		} `json:"data"`
	}

	if err := c.post(ctx, "/Payments/Initialize", c.apiKey, req, &envelope); err != nil {
		return nil, err
	}

	if envelope.Data.PaymentURL == "" || envelope.Data.TransactionID == "" {
		return nil, fmt.Errorf("%w: initialize response missing paymentUrl or transactionId (%s)",
			utils.ErrMalformedResponse, envelope.Message)
	}

	return &InitializeResult{
		PaymentURL:    envelope.Data.PaymentURL,
		AccessCode:    envelope.Data.AccessCode,
		TransactionID: envelope.Data.TransactionID,
	}, nil
}

func (c *echezonaClient) VerifyPayment(ctx context.Context, transactionID string, credential string) (*VerifyResult, error) {

	if credential == "" {
		credential = c.apiKey
	}

	body := map[string]string{"transactionId": transactionID}

	var envelope struct {
		ResponseCode string `json:"responseCode"`
		Message      string `json:"message"`
		Data         struct {
			IsSuccessful bool   `json:"isSuccessful"`
			Reference    string `json:"reference"`
		} `json:"data"`
	}

	if err := c.post(ctx, "/Payments/VerifyPayment", credential, body, &envelope); err != nil {
		return nil, err
	}

	return &VerifyResult{
		ResponseCode: envelope.ResponseCode,
		IsSuccessful: envelope.Data.IsSuccessful,
		Reference:    envelope.Data.Reference,
		Message:      envelope.Message,
	}, nil
}

func (c *echezonaClient) GetPaymentInfo(ctx context.Context, accessCode string) (*PaymentInfo, error) {

	body := map[string]string{"accessCode": accessCode}

	var envelope struct {
		Data struct {
			ValidationToken string `json:"validationToken"`
		} `json:"data"`
	}

	if err := c.post(ctx, "/Payments/GetPaymentInfo", c.apiKey, body, &envelope); err != nil {
		return nil, err
	}

	if envelope.Data.ValidationToken == "" {
		return nil, fmt.Errorf("%w: payment info response missing validationToken", utils.ErrMalformedResponse)
	}

	return &PaymentInfo{ValidationToken: envelope.Data.ValidationToken}, nil
}

func (c *echezonaClient) Refund(ctx context.Context, transactionID string, amount float64, reason string) (*RefundResult, error) {

	body := map[string]interface{}{
		"transactionId": transactionID,
		"amount":        amount,
		"reason":        reason,
	}

	var envelope struct {
		Message string `json:"message"`
		Data    struct {
			RefundID string `json:"refundId"`
		} `json:"data"`
	}

	if err := c.post(ctx, "/Payments/Refund", c.apiKey, body, &envelope); err != nil {
		return nil, err
	}

	return &RefundResult{
		RefundID: envelope.Data.RefundID,
		Message:  envelope.Message,
	}, nil
}
