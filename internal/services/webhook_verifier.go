package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"echezona/pkg/utils"
)

// SignatureHeader carries the processor's webhook signature.
const SignatureHeader = "X-Echezona-Signature"

// WebhookVerifier authenticates inbound notifications: HMAC-SHA256 over the
// raw body, merchant API key as the shared secret, constant-time compare.
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(cfg EchezonaConfig) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(cfg.APIKey)}
}

func (v *WebhookVerifier) Verify(rawBody []byte, signature string) error {
	if signature == "" {
		return utils.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return utils.ErrInvalidSignature
	}
	return nil
}

// Sign is the counterpart of Verify, exposed for the test suite and for
// replaying stored notifications against a local instance.
func (v *WebhookVerifier) Sign(rawBody []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
