package gateway_fx

import (
	"os"

	"echezona/internal/api/controllers"
	"echezona/internal/repositories"
	"echezona/internal/services"
	"echezona/pkg/memcache"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Provide(
	provideConfig,
	provideOrderRepository,
	provideLedger,
	provideClient,
	provideVerifier,
	provideTokenStore,
	provideGatewayService,
	provideReconciliationService,
	providePaymentController,
	provideReconcileController,
)

func provideConfig() services.EchezonaConfig {
	baseURL := os.Getenv("ECHEZONA_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.echezona.com/api"
	}

	return services.EchezonaConfig{
		APIKey:            os.Getenv("ECHEZONA_API_KEY"),
		BaseURL:           baseURL,
		TestMode:          os.Getenv("ECHEZONA_TEST_MODE") == "yes",
		AutocompleteOrder: os.Getenv("ECHEZONA_AUTOCOMPLETE_ORDER") == "yes",
		CallbackBaseURL:   os.Getenv("ECHEZONA_CALLBACK_BASE_URL"),
		ReceiptURL:        os.Getenv("ECHEZONA_RECEIPT_URL"),
		CheckoutURL:       os.Getenv("ECHEZONA_CHECKOUT_URL"),
		ProviderName:      "echezona",
	}
}

func provideOrderRepository(db *gorm.DB) repositories.IOrderRepository {
	return repositories.NewOrderRepository(db)
}

func provideLedger(repo repositories.IOrderRepository) *services.TransactionLedger {
	return services.NewTransactionLedger(repo)
}

func provideClient(cfg services.EchezonaConfig) services.EchezonaClient {
	return services.NewEchezonaClient(cfg)
}

func provideVerifier(cfg services.EchezonaConfig) *services.WebhookVerifier {
	return services.NewWebhookVerifier(cfg)
}

func provideTokenStore() memcache.TokenStore {
	return memcache.NewValidationTokens()
}

func provideGatewayService(
	repo repositories.IOrderRepository,
	ledger *services.TransactionLedger,
	client services.EchezonaClient,
	cfg services.EchezonaConfig,
) services.PaymentGatewayService {
	return services.NewPaymentGatewayService(repo, ledger, client, cfg)
}

func provideReconciliationService(
	repo repositories.IOrderRepository,
	ledger *services.TransactionLedger,
	client services.EchezonaClient,
	verifier *services.WebhookVerifier,
	tokens memcache.TokenStore,
	cfg services.EchezonaConfig,
) services.ReconciliationService {
	return services.NewReconciliationService(repo, ledger, client, verifier, tokens, cfg)
}

func providePaymentController(gateway services.PaymentGatewayService) *controllers.PaymentController {
	return controllers.NewPaymentController(gateway)
}

func provideReconcileController(reconcile services.ReconciliationService) *controllers.ReconcileController {
	return controllers.NewReconcileController(reconcile)
}
