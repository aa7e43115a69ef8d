package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"echezona/internal/models/db_models"
	"echezona/internal/repositories"
	"gorm.io/datatypes"
	"echezona/pkg/memcache"
	"echezona/pkg/utils"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeRefund  Outcome = "refund"
)

// ReconciliationEvent is a normalized charge outcome, produced by either
// entry channel before being applied to the order.
type ReconciliationEvent struct {
	OrderID       uint
	TransactionID string
	Outcome       Outcome
	Reference     string
	AmountMinor   int64
	Raw           []byte
}

// ReconciliationService resolves a charge's final outcome. Its two entry
// points race freely: the shopper's browser return and the processor's
// webhook may arrive within milliseconds of each other, for the same
// transaction, in either order. Coordination is through the persisted
// order state only.
type ReconciliationService interface {
	// HandleBrowserReturn re-verifies the charge with the processor and
	// returns the URL the shopper should be redirected to. The browser's
	// responseCode is attacker-observable and never trusted.
	HandleBrowserReturn(ctx context.Context, orderID uint, browserReference string, responseCode string) (string, error)

	// HandleWebhook authenticates and applies an asynchronous
	// notification. Signature verification happens before the payload is
	// parsed or any order state is read.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) error
}

type reconcileService struct {
	repo     repositories.IOrderRepository
	ledger   *TransactionLedger
	client   EchezonaClient
	verifier *WebhookVerifier
	tokens   memcache.TokenStore
	cfg      EchezonaConfig
}

func NewReconciliationService(
	repo repositories.IOrderRepository,
	ledger *TransactionLedger,
	client EchezonaClient,
	verifier *WebhookVerifier,
	tokens memcache.TokenStore,
	cfg EchezonaConfig,
) ReconciliationService {
	return &reconcileService{
		repo:     repo,
		ledger:   ledger,
		client:   client,
		verifier: verifier,
		tokens:   tokens,
		cfg:      cfg,
	}
}

func (s *reconcileService) HandleBrowserReturn(ctx context.Context, orderID uint, browserReference string, responseCode string) (string, error) {

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if order == nil {
		return "", utils.ErrOrderNotFound
	}

	rec, err := s.ledger.Get(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if rec == nil {
		return "", utils.ErrNoTransaction
	}

	log.Printf("[Reconcile] Browser return for order %d, transaction %s, browser code %q",
		orderID, rec.TransactionID, responseCode)

	verify, err := s.client.VerifyPayment(ctx, rec.TransactionID, s.verifyCredential(ctx, rec))
	if err != nil {
		// The order stays non-terminal; the webhook channel can still
		// resolve it. The shopper just sees a generic error.
		log.Printf("[Reconcile] Verify failed for order %d: %v", orderID, err)
		return s.cfg.CheckoutURL, err
	}

	reference := verify.Reference
	if reference == "" {
		reference = browserReference
	}
	if reference == "" {
		reference = rec.TransactionID
	}

	event := ReconciliationEvent{
		OrderID:       orderID,
		TransactionID: rec.TransactionID,
		Reference:     reference,
	}
	if verify.Successful() {
		event.Outcome = OutcomeSuccess
	} else {
		event.Outcome = OutcomeFailure
	}

	if err := s.applyEvent(ctx, order, event); err != nil {
		return s.cfg.CheckoutURL, err
	}

	if event.Outcome == OutcomeSuccess {
		return fmt.Sprintf("%s?order_id=%d", s.cfg.ReceiptURL, orderID), nil
	}
	return s.cfg.CheckoutURL, nil
}

// verifyCredential prefers a short-lived validation token scoped to the
// checkout session, falling back to the merchant API key when the token
// cannot be fetched.
func (s *reconcileService) verifyCredential(ctx context.Context, rec *TransactionRecord) string {
	if rec.AccessCode == "" {
		return s.cfg.APIKey
	}

	if token, ok := s.tokens.Get(rec.AccessCode); ok {
		return token
	}

	info, err := s.client.GetPaymentInfo(ctx, rec.AccessCode)
	if err != nil {
		log.Printf("[Reconcile] GetPaymentInfo failed for access code, using API key: %v", err)
		return s.cfg.APIKey
	}

	s.tokens.Set(rec.AccessCode, info.ValidationToken, 10*time.Minute)
	return info.ValidationToken
}

// webhookEnvelope is the processor's notification shape:
// {event, data:{reference, amount, metadata:{order_id}}}.
type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string  `json:"reference"`
		Amount    float64 `json:"amount"`
		Metadata  struct {
			OrderID flexibleID `json:"order_id"`
		} `json:"metadata"`
	} `json:"data"`
}

// flexibleID tolerates order ids delivered as either a JSON number or a
// quoted string.
type flexibleID uint

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexibleID(n)
	return nil
}

func (s *reconcileService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {

	if err := s.verifier.Verify(rawBody, signature); err != nil {
		log.Printf("[Reconcile] Webhook rejected: bad signature")
		return err
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil || envelope.Event == "" {
		return fmt.Errorf("%w: %v", utils.ErrInvalidPayload, err)
	}

	orderID := uint(envelope.Data.Metadata.OrderID)
	if orderID == 0 {
		return fmt.Errorf("%w: missing order_id in metadata", utils.ErrInvalidPayload)
	}

	event := ReconciliationEvent{
		OrderID:     orderID,
		Reference:   envelope.Data.Reference,
		AmountMinor: int64(envelope.Data.Amount),
		Raw:         rawBody,
	}

	switch envelope.Event {
	case "charge.success":
		event.Outcome = OutcomeSuccess
	case "charge.failed":
		event.Outcome = OutcomeFailure
	case "refund.processed":
		event.Outcome = OutcomeRefund
	default:
		// Unknown events are acknowledged so the processor stops
		// redelivering them.
		log.Printf("[Reconcile] Unhandled webhook event: %s", envelope.Event)
		return nil
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if order == nil {
		return utils.ErrOrderNotFound
	}

	if err := s.repo.RecordWebhookEvent(ctx, &db_models.WebhookEvent{
		OrderID:   orderID,
		Event:     envelope.Event,
		Reference: envelope.Data.Reference,
		Payload:   datatypes.JSON(rawBody),
	}); err != nil {
		log.Printf("[Reconcile] Could not record webhook event for order %d: %v", orderID, err)
	}

	if rec, err := s.ledger.Get(ctx, orderID); err == nil && rec != nil {
		event.TransactionID = rec.TransactionID
	}

	return s.applyEvent(ctx, order, event)
}

// applyEvent is the single place order status transitions happen.
//
// Rules, in order:
//   - refunds only annotate, they never reopen or revert a status;
//   - an order already completed or refunded ignores further outcomes;
//   - a success event supersedes an earlier provisional failure (the
//     processor is the source of truth) but never re-runs completion side
//     effects on an order that is already paid;
//   - a failure event never reverts a paid order.
func (s *reconcileService) applyEvent(ctx context.Context, order *db_models.Order, event ReconciliationEvent) error {

	if event.Outcome == OutcomeRefund {
		note := fmt.Sprintf("Refund processed via Echezona. Amount: %.2f %s. Reference: %s",
			float64(event.AmountMinor)/100, order.Currency, event.Reference)
		return s.repo.AppendNote(ctx, order.ID, note)
	}

	if order.Status == db_models.OrderStatusCompleted || order.Status == db_models.OrderStatusRefunded {
		log.Printf("[Reconcile] Order %d already %s, ignoring %s event", order.ID, order.Status, event.Outcome)
		return nil
	}

	switch event.Outcome {
	case OutcomeSuccess:
		if order.Paid() {
			log.Printf("[Reconcile] Order %d already paid with reference %s, ignoring duplicate success",
				order.ID, order.PaidReference)
			return nil
		}

		if err := s.repo.MarkPaid(ctx, order, event.Reference); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}

		note := fmt.Sprintf("Payment completed via Echezona. Reference: %s", event.Reference)
		if err := s.repo.AppendNote(ctx, order.ID, note); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}

		if s.cfg.AutocompleteOrder {
			if err := s.repo.SetStatus(ctx, order, db_models.OrderStatusCompleted, ""); err != nil {
				return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
			}
		}

		log.Printf("[Reconcile] Order %d paid, reference %s", order.ID, event.Reference)
		return nil

	case OutcomeFailure:
		if order.Paid() {
			log.Printf("[Reconcile] Order %d already paid, stale failure for transaction %s ignored",
				order.ID, event.TransactionID)
			return nil
		}

		note := fmt.Sprintf("Payment failed via Echezona. Reference: %s", event.Reference)
		if err := s.repo.SetStatus(ctx, order, db_models.OrderStatusFailed, note); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}

		log.Printf("[Reconcile] Order %d marked failed, reference %s", order.ID, event.Reference)
		return nil
	}

	return nil
}
