package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"time"

	"echezona/internal/models/db_models"
	"echezona/internal/models/response_models"
	"echezona/internal/repositories"
	"echezona/pkg/utils"
)

// Currencies the processor settles in.
var supportedCurrencies = map[string]bool{
	"NGN": true,
	"USD": true,
	"GBP": true,
	"EUR": true,
	"GHS": true,
	"KES": true,
	"UGX": true,
	"ZAR": true,
}

// PaymentGatewayService owns charge initiation and refunds. It never
// mutates order status: reaching a terminal state is the reconciliation
// service's job alone.
type PaymentGatewayService interface {
	ProcessPayment(ctx context.Context, orderID uint) (*response_models.ProcessPaymentResponse, error)
	ProcessRefund(ctx context.Context, orderID uint, amountMinor int64, reason string) (*response_models.RefundResponse, error)
	CheckAvailability(currency string) error
}

type gatewayService struct {
	repo   repositories.IOrderRepository
	ledger *TransactionLedger
	client EchezonaClient
	cfg    EchezonaConfig
}

func NewPaymentGatewayService(
	repo repositories.IOrderRepository,
	ledger *TransactionLedger,
	client EchezonaClient,
	cfg EchezonaConfig,
) PaymentGatewayService {
	return &gatewayService{
		repo:   repo,
		ledger: ledger,
		client: client,
		cfg:    cfg,
	}
}

// CheckAvailability gates the gateway out of checkout instead of letting it
// fail mid-flow: configuration problems surface here.
func (s *gatewayService) CheckAvailability(currency string) error {
	if s.cfg.APIKey == "" {
		return utils.ErrMissingAPIKey
	}
	if !supportedCurrencies[currency] {
		return fmt.Errorf("%w: %s", utils.ErrUnsupportedCurrency, currency)
	}
	return nil
}

func (s *gatewayService) ProcessPayment(ctx context.Context, orderID uint) (*response_models.ProcessPaymentResponse, error) {

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if order == nil {
		return nil, utils.ErrOrderNotFound
	}

	if err := s.CheckAvailability(order.Currency); err != nil {
		return nil, err
	}

	// A paid or otherwise terminal order never gets a new charge attempt;
	// a failed or still-pending one may retry with a fresh transaction id.
	if order.Paid() || order.Status == db_models.OrderStatusRefunded {
		return nil, utils.ErrOrderAlreadyPaid
	}

	transactionID := s.generateTransactionID(order.ID)

	req := &InitializeRequest{
		Amount:        order.Total(),
		Currency:      order.Currency,
		Email:         order.BillingEmail,
		FirstName:     order.BillingFirstName,
		LastName:      order.BillingLastName,
		CallbackURL:   fmt.Sprintf("%s/payments/callback?order_id=%d", s.cfg.CallbackBaseURL, order.ID),
		TransactionID: transactionID,
		Mode:          s.cfg.Mode(),
		Metadata: []MetadataField{
			{Name: "Order Id", Value: strconv.FormatUint(uint64(order.ID), 10)},
			{Name: "Customer Id", Value: strconv.FormatUint(uint64(order.CustomerID), 10)},
			{Name: "Customer Name", Value: order.BillingName()},
			{Name: "Customer Email", Value: order.BillingEmail},
			{Name: "Customer Address", Value: order.BillingAddress()},
			{Name: "Customer City", Value: order.BillingCity},
		},
		ProductID:          strconv.FormatUint(uint64(order.ID), 10),
		ProductDescription: "Payment with Echezona payment gateway",
	}

	result, err := s.client.Initialize(ctx, req)
	if err != nil {
		// Order status untouched: the shopper can retry and a fresh
		// transaction id will be generated.
		log.Printf("[Gateway] Initialize failed for order %d: %v", order.ID, err)
		return nil, err
	}

	if result.TransactionID != transactionID {
		log.Printf("[Gateway] Processor echoed transaction id %q for order %d, local id %q kept",
			result.TransactionID, order.ID, transactionID)
	}

	err = s.ledger.Put(ctx, order.ID, TransactionRecord{
		TransactionID: transactionID,
		AccessCode:    result.AccessCode,
		PaymentURL:    result.PaymentURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	log.Printf("[Gateway] Initialized charge for order %d, transaction %s", order.ID, transactionID)

	return &response_models.ProcessPaymentResponse{
		Result:      "success",
		RedirectURL: result.PaymentURL,
	}, nil
}

func (s *gatewayService) ProcessRefund(ctx context.Context, orderID uint, amountMinor int64, reason string) (*response_models.RefundResponse, error) {

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if order == nil {
		return nil, utils.ErrOrderNotFound
	}

	rec, err := s.ledger.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if rec == nil {
		return nil, utils.ErrNoTransaction
	}

	amount := float64(amountMinor) / 100

	result, err := s.client.Refund(ctx, rec.TransactionID, amount, reason)
	if err != nil {
		log.Printf("[Gateway] Refund failed for order %d: %v", orderID, err)
		return nil, err
	}

	note := fmt.Sprintf("Refund requested via Echezona. Amount: %.2f %s. Reason: %s. Refund Id: %s",
		amount, order.Currency, reason, result.RefundID)
	if err := s.repo.AppendNote(ctx, orderID, note); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	return &response_models.RefundResponse{
		Result:   "success",
		RefundID: result.RefundID,
		Message:  result.Message,
	}, nil
}

// generateTransactionID builds "ECZ-<order>-<unix>-<rand>"; the embedded
// order id and timestamp keep processor-side records traceable, the random
// suffix keeps retries distinct within the same second.
func (s *gatewayService) generateTransactionID(orderID uint) string {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		// Fall back to the nanosecond clock; uniqueness still holds per order.
		return fmt.Sprintf("ECZ-%d-%d-%06x", orderID, time.Now().Unix(), time.Now().UnixNano()%0xffffff)
	}
	return fmt.Sprintf("ECZ-%d-%d-%s", orderID, time.Now().Unix(), hex.EncodeToString(suffix))
}
