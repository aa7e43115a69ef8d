package services

import (
	"context"

	"echezona/internal/repositories"
)

// Meta keys the ledger persists under, one order at a time. Kept compatible
// with the keys the WooCommerce plugin wrote.
const (
	metaTransactionID = "_echezona_transaction_id"
	metaAccessCode    = "_echezona_access_code"
	metaPaymentURL    = "_echezona_payment_url"
)

// TransactionRecord maps an order to one charge attempt at the processor.
// A record is superseded by a fresh initiation, never deleted.
type TransactionRecord struct {
	TransactionID string
	AccessCode    string
	PaymentURL    string
}

// TransactionLedger stores transaction records in the order's metadata
// store. It carries no locking of its own: per-order serialization is the
// host platform's, and cross-channel races are resolved at the state
// machine, not here.
type TransactionLedger struct {
	repo repositories.IOrderRepository
}

func NewTransactionLedger(repo repositories.IOrderRepository) *TransactionLedger {
	return &TransactionLedger{repo: repo}
}

func (l *TransactionLedger) Put(ctx context.Context, orderID uint, rec TransactionRecord) error {
	if err := l.repo.SetMeta(ctx, orderID, metaTransactionID, rec.TransactionID); err != nil {
		return err
	}
	if rec.AccessCode != "" {
		if err := l.repo.SetMeta(ctx, orderID, metaAccessCode, rec.AccessCode); err != nil {
			return err
		}
	}
	if rec.PaymentURL != "" {
		if err := l.repo.SetMeta(ctx, orderID, metaPaymentURL, rec.PaymentURL); err != nil {
			return err
		}
	}
	return nil
}

// Get returns nil when no charge was ever initiated for the order.
func (l *TransactionLedger) Get(ctx context.Context, orderID uint) (*TransactionRecord, error) {
	transactionID, err := l.repo.GetMeta(ctx, orderID, metaTransactionID)
	if err != nil {
		return nil, err
	}
	if transactionID == "" {
		return nil, nil
	}

	accessCode, err := l.repo.GetMeta(ctx, orderID, metaAccessCode)
	if err != nil {
		return nil, err
	}
	paymentURL, err := l.repo.GetMeta(ctx, orderID, metaPaymentURL)
	if err != nil {
		return nil, err
	}

	return &TransactionRecord{
		TransactionID: transactionID,
		AccessCode:    accessCode,
		PaymentURL:    paymentURL,
	}, nil
}
