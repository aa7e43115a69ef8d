package utils

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderAlreadyPaid    = errors.New("order already paid")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrMissingAPIKey       = errors.New("missing api key")
	ErrMalformedResponse   = errors.New("malformed processor response")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrInvalidPayload      = errors.New("invalid webhook payload")
	ErrNoTransaction       = errors.New("no transaction recorded for order")
	ErrDatabaseError       = errors.New("database error")
)
