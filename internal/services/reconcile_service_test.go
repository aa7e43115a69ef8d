package services

import (
	"context"
	"fmt"
	"testing"

	"echezona/internal/models/db_models"
	"echezona/pkg/memcache"
	"echezona/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconcileFixture(repo *fakeOrderRepo, client *fakeEchezonaClient, cfg EchezonaConfig) ReconciliationService {
	return NewReconciliationService(
		repo,
		NewTransactionLedger(repo),
		client,
		NewWebhookVerifier(cfg),
		memcache.NewValidationTokens(),
		cfg,
	)
}

func successWebhook(orderID uint, reference string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"charge.success","data":{"reference":"%s","amount":1000000,"metadata":{"order_id":%d}}}`,
		reference, orderID))
}

func TestHandleWebhook_ChargeSuccess_MarksOrderPaid(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	body := successWebhook(500, "R1")
	err := svc.HandleWebhook(context.Background(), body, signWith(testConfig.APIKey, body))
	require.NoError(t, err)

	assert.True(t, order.Paid())
	assert.Equal(t, "R1", order.PaidReference)
	assert.Equal(t, db_models.OrderStatusProcessing, order.Status)
	require.Len(t, repo.notes[500], 1)
	assert.Contains(t, repo.notes[500][0], "R1")
	require.Len(t, repo.events, 1)
	assert.Equal(t, "charge.success", repo.events[0].Event)
}

func TestHandleWebhook_DuplicateSuccess_IsNoOp(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	body := successWebhook(500, "R1")
	sig := signWith(testConfig.APIKey, body)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))

	assert.Equal(t, "R1", order.PaidReference)
	assert.Len(t, repo.notes[500], 1, "completion note must not be appended twice")
}

func TestHandleWebhook_Autocomplete(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	cfg := testConfig
	cfg.AutocompleteOrder = true
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, cfg)

	body := successWebhook(500, "R1")
	require.NoError(t, svc.HandleWebhook(context.Background(), body, signWith(cfg.APIKey, body)))

	assert.Equal(t, db_models.OrderStatusCompleted, order.Status)
	assert.Equal(t, "R1", order.PaidReference)
}

func TestHandleWebhook_InvalidSignature_NoMutationNoLedgerRead(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	body := successWebhook(500, "R1")
	err := svc.HandleWebhook(context.Background(), body, "not-a-signature")

	assert.ErrorIs(t, err, utils.ErrInvalidSignature)
	assert.Equal(t, db_models.OrderStatusPending, order.Status)
	assert.False(t, order.Paid())
	assert.Empty(t, repo.notes[500])
	assert.Empty(t, repo.events)
	assert.Zero(t, repo.metaReads, "ledger must not be read before the signature gate")
}

func TestHandleWebhook_StaleFailure_DoesNotRevertPaidOrder(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	success := successWebhook(500, "R1")
	require.NoError(t, svc.HandleWebhook(context.Background(), success, signWith(testConfig.APIKey, success)))

	failure := []byte(`{"event":"charge.failed","data":{"reference":"R1","metadata":{"order_id":500}}}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), failure, signWith(testConfig.APIKey, failure)))

	assert.True(t, order.Paid())
	assert.Equal(t, db_models.OrderStatusProcessing, order.Status)
	assert.Equal(t, "R1", order.PaidReference)
}

func TestHandleWebhook_LateSuccess_SupersedesFailure(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	order.Status = db_models.OrderStatusFailed
	repo := newFakeOrderRepo(order)
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	body := successWebhook(500, "R2")
	require.NoError(t, svc.HandleWebhook(context.Background(), body, signWith(testConfig.APIKey, body)))

	assert.True(t, order.Paid())
	assert.Equal(t, "R2", order.PaidReference)
	assert.Equal(t, db_models.OrderStatusProcessing, order.Status)
}

func TestHandleWebhook_Failure_MarksOrderFailed(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	body := []byte(`{"event":"charge.failed","data":{"reference":"R9","metadata":{"order_id":500}}}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), body, signWith(testConfig.APIKey, body)))

	assert.Equal(t, db_models.OrderStatusFailed, order.Status)
	assert.False(t, order.Paid())
	require.Len(t, repo.notes[500], 1)
	assert.Contains(t, repo.notes[500][0], "R9")
}

func TestHandleWebhook_Refund_AnnotatesWithoutStatusChange(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	order.Status = db_models.OrderStatusCompleted
	repo := newFakeOrderRepo(order)
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	body := []byte(`{"event":"refund.processed","data":{"reference":"RF1","amount":500000,"metadata":{"order_id":500}}}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), body, signWith(testConfig.APIKey, body)))

	assert.Equal(t, db_models.OrderStatusCompleted, order.Status, "refund must not revert completed")
	require.Len(t, repo.notes[500], 1)
	assert.Contains(t, repo.notes[500][0], "5000.00 NGN")
	assert.Contains(t, repo.notes[500][0], "RF1")
}

func TestHandleWebhook_UnknownOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	body := successWebhook(999, "R1")
	err := svc.HandleWebhook(context.Background(), body, signWith(testConfig.APIKey, body))

	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
}

func TestHandleWebhook_MalformedPayload(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"missing event", `{"data":{"metadata":{"order_id":500}}}`},
		{"missing order id", `{"event":"charge.success","data":{"reference":"R1","metadata":{}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(tt.body)
			err := svc.HandleWebhook(context.Background(), body, signWith(testConfig.APIKey, body))
			assert.ErrorIs(t, err, utils.ErrInvalidPayload)
		})
	}
}

func TestHandleWebhook_StringOrderIDAccepted(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	body := []byte(`{"event":"charge.success","data":{"reference":"R1","metadata":{"order_id":"500"}}}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), body, signWith(testConfig.APIKey, body)))

	assert.True(t, order.Paid())
}

func TestHandleWebhook_UnknownEventAcked(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	body := []byte(`{"event":"charge.disputed","data":{"metadata":{"order_id":500}}}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), body, signWith(testConfig.APIKey, body)))

	assert.Equal(t, db_models.OrderStatusPending, order.Status)
}

func TestHandleBrowserReturn_VerifiesServerSide(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	repo.meta[500] = map[string]string{
		"_echezona_transaction_id": "ECZ-500-1700000000-abc123",
	}
	client := &fakeEchezonaClient{
		verifyResult: &VerifyResult{ResponseCode: "00", IsSuccessful: true, Reference: "R1"},
	}
	svc := newReconcileFixture(repo, client, testConfig)

	redirect, err := svc.HandleBrowserReturn(context.Background(), 500, "browser-ref", "00")
	require.NoError(t, err)

	require.Len(t, client.verifyCalls, 1, "must re-verify with the processor")
	assert.Equal(t, "ECZ-500-1700000000-abc123", client.verifyCalls[0].TransactionID)
	assert.Equal(t, testConfig.APIKey, client.verifyCalls[0].Credential)

	assert.True(t, order.Paid())
	assert.Equal(t, "R1", order.PaidReference)
	assert.Equal(t, "https://shop.example/order-received?order_id=500", redirect)
}

func TestHandleBrowserReturn_BrowserCodeNotTrusted(t *testing.T) {
	// The browser claims success but the processor says otherwise.
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	repo.meta[500] = map[string]string{
		"_echezona_transaction_id": "ECZ-500-1700000000-abc123",
	}
	client := &fakeEchezonaClient{
		verifyResult: &VerifyResult{ResponseCode: "05", IsSuccessful: false, Reference: "R1"},
	}
	svc := newReconcileFixture(repo, client, testConfig)

	redirect, err := svc.HandleBrowserReturn(context.Background(), 500, "browser-ref", "00")
	require.NoError(t, err)

	assert.False(t, order.Paid())
	assert.Equal(t, db_models.OrderStatusFailed, order.Status)
	assert.Equal(t, testConfig.CheckoutURL, redirect)
}

func TestHandleBrowserReturn_UsesValidationToken(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	repo.meta[500] = map[string]string{
		"_echezona_transaction_id": "ECZ-500-1700000000-abc123",
		"_echezona_access_code":    "AC-42",
	}
	client := &fakeEchezonaClient{
		infoResult:   &PaymentInfo{ValidationToken: "VT-99"},
		verifyResult: &VerifyResult{IsSuccessful: true, Reference: "R1"},
	}
	svc := newReconcileFixture(repo, client, testConfig)

	_, err := svc.HandleBrowserReturn(context.Background(), 500, "", "00")
	require.NoError(t, err)

	require.Len(t, client.infoCalls, 1)
	assert.Equal(t, "AC-42", client.infoCalls[0])
	require.Len(t, client.verifyCalls, 1)
	assert.Equal(t, "VT-99", client.verifyCalls[0].Credential)
}

func TestHandleBrowserReturn_ValidationTokenCached(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	repo.meta[500] = map[string]string{
		"_echezona_transaction_id": "ECZ-500-1700000000-abc123",
		"_echezona_access_code":    "AC-42",
	}
	client := &fakeEchezonaClient{
		infoResult:   &PaymentInfo{ValidationToken: "VT-99"},
		verifyResult: &VerifyResult{IsSuccessful: false, Reference: "R1"},
	}
	svc := newReconcileFixture(repo, client, testConfig)

	_, err := svc.HandleBrowserReturn(context.Background(), 500, "", "00")
	require.NoError(t, err)
	_, err = svc.HandleBrowserReturn(context.Background(), 500, "", "00")
	require.NoError(t, err)

	assert.Len(t, client.infoCalls, 1, "token must be served from cache on the second return")
	assert.Len(t, client.verifyCalls, 2)
}

func TestHandleBrowserReturn_VerifyError_LeavesOrderOpen(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	repo.meta[500] = map[string]string{
		"_echezona_transaction_id": "ECZ-500-1700000000-abc123",
	}
	client := &fakeEchezonaClient{
		verifyErr: &RemoteError{Status: 503, Body: "unavailable"},
	}
	svc := newReconcileFixture(repo, client, testConfig)

	redirect, err := svc.HandleBrowserReturn(context.Background(), 500, "", "00")
	require.Error(t, err)

	assert.Equal(t, testConfig.CheckoutURL, redirect)
	assert.Equal(t, db_models.OrderStatusPending, order.Status, "a verify outage must not fail the order")
	assert.False(t, order.Paid())
}

func TestHandleBrowserReturn_NoLedgerEntry(t *testing.T) {
	order := pendingOrder(500, 1000000, "NGN")
	repo := newFakeOrderRepo(order)
	svc := newReconcileFixture(repo, &fakeEchezonaClient{}, testConfig)

	_, err := svc.HandleBrowserReturn(context.Background(), 500, "", "00")
	assert.ErrorIs(t, err, utils.ErrNoTransaction)
}

func TestHandleBrowserReturn_UnknownOrder(t *testing.T) {
	svc := newReconcileFixture(newFakeOrderRepo(), &fakeEchezonaClient{}, testConfig)

	_, err := svc.HandleBrowserReturn(context.Background(), 404, "", "00")
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
}
