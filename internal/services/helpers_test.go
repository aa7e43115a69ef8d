package services

import (
	"context"

	"echezona/internal/models/db_models"
	"time"
)

// fakeOrderRepo is an in-memory stand-in for the host platform's order
// store, mirroring the gorm repository's semantics.
type fakeOrderRepo struct {
	orders    map[uint]*db_models.Order
	meta      map[uint]map[string]string
	notes     map[uint][]string
	events    []*db_models.WebhookEvent
	metaReads int
}

func newFakeOrderRepo(orders ...*db_models.Order) *fakeOrderRepo {
	r := &fakeOrderRepo{
		orders: make(map[uint]*db_models.Order),
		meta:   make(map[uint]map[string]string),
		notes:  make(map[uint][]string),
	}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeOrderRepo) GetOrder(ctx context.Context, orderID uint) (*db_models.Order, error) {
	return r.orders[orderID], nil
}

func (r *fakeOrderRepo) MarkPaid(ctx context.Context, order *db_models.Order, reference string) error {
	if order.Paid() {
		return nil
	}
	now := time.Now().Unix()
	order.Status = db_models.OrderStatusProcessing
	order.PaidReference = reference
	order.PaidAt = &now
	return nil
}

func (r *fakeOrderRepo) SetStatus(ctx context.Context, order *db_models.Order, status db_models.OrderStatus, note string) error {
	order.Status = status
	if note != "" {
		return r.AppendNote(ctx, order.ID, note)
	}
	return nil
}

func (r *fakeOrderRepo) AppendNote(ctx context.Context, orderID uint, note string) error {
	r.notes[orderID] = append(r.notes[orderID], note)
	return nil
}

func (r *fakeOrderRepo) GetMeta(ctx context.Context, orderID uint, key string) (string, error) {
	r.metaReads++
	return r.meta[orderID][key], nil
}

func (r *fakeOrderRepo) SetMeta(ctx context.Context, orderID uint, key string, value string) error {
	if r.meta[orderID] == nil {
		r.meta[orderID] = make(map[string]string)
	}
	r.meta[orderID][key] = value
	return nil
}

func (r *fakeOrderRepo) RecordWebhookEvent(ctx context.Context, event *db_models.WebhookEvent) error {
	r.events = append(r.events, event)
	return nil
}

type verifyCall struct {
	TransactionID string
	Credential    string
}

// fakeEchezonaClient scripts processor responses and records what it was
// called with.
type fakeEchezonaClient struct {
	initResult *InitializeResult
	initErr    error

	verifyResult *VerifyResult
	verifyErr    error

	infoResult *PaymentInfo
	infoErr    error

	refundResult *RefundResult
	refundErr    error

	initRequests []*InitializeRequest
	verifyCalls  []verifyCall
	infoCalls    []string
}

func (c *fakeEchezonaClient) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResult, error) {
	c.initRequests = append(c.initRequests, req)
	if c.initErr != nil {
		return nil, c.initErr
	}
	return c.initResult, nil
}

func (c *fakeEchezonaClient) VerifyPayment(ctx context.Context, transactionID string, credential string) (*VerifyResult, error) {
	c.verifyCalls = append(c.verifyCalls, verifyCall{TransactionID: transactionID, Credential: credential})
	if c.verifyErr != nil {
		return nil, c.verifyErr
	}
	return c.verifyResult, nil
}

func (c *fakeEchezonaClient) GetPaymentInfo(ctx context.Context, accessCode string) (*PaymentInfo, error) {
	c.infoCalls = append(c.infoCalls, accessCode)
	if c.infoErr != nil {
		return nil, c.infoErr
	}
	return c.infoResult, nil
}

func (c *fakeEchezonaClient) Refund(ctx context.Context, transactionID string, amount float64, reason string) (*RefundResult, error) {
	if c.refundErr != nil {
		return nil, c.refundErr
	}
	return c.refundResult, nil
}

func pendingOrder(id uint, totalMinor int64, currency string) *db_models.Order {
	return &db_models.Order{
		ID:               id,
		CustomerID:       7,
		TotalMinor:       totalMinor,
		Currency:         currency,
		Status:           db_models.OrderStatusPending,
		BillingEmail:     "shopper@example.com",
		BillingFirstName: "Ada",
		BillingLastName:  "Obi",
		BillingAddress1:  "1 Marina Rd",
		BillingCity:      "Lagos",
	}
}

var testConfig = EchezonaConfig{
	APIKey:          "sk_test_123",
	BaseURL:         "https://api.echezona.example/api",
	TestMode:        true,
	CallbackBaseURL: "https://shop.example/gateway",
	ReceiptURL:      "https://shop.example/order-received",
	CheckoutURL:     "https://shop.example/checkout",
	ProviderName:    "echezona",
}
