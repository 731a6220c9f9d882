package payments

import "csrgive.com/app/internal/config"

// NewProviders builds the provider set from configuration. Mock is always
// present; Stripe and PayPal only when their credentials are set.
func NewProviders(cfg config.PaymentConfig) []Provider {
	ps := []Provider{
		NewMockProvider(MockConfig{ForceSuccess: cfg.Mock.ForceSuccess, SuccessRate: cfg.Mock.SuccessRate}),
	}
	if cfg.Stripe.SecretKey != "" {
		ps = append(ps, NewStripeProvider(cfg.Stripe.SecretKey))
	}
	if cfg.PayPal.ClientID != "" && cfg.PayPal.ClientSecret != "" {
		ps = append(ps, NewPayPalProvider(cfg.PayPal.ClientID, cfg.PayPal.ClientSecret))
	}
	return ps
}

// WebhookSecret returns the signing secret configured for a provider, or "".
func WebhookSecret(cfg config.PaymentConfig, provider string) string {
	switch provider {
	case "mock":
		return cfg.Mock.WebhookSecret
	case "stripe":
		return cfg.Stripe.WebhookSecret
	case "paypal":
		return cfg.PayPal.WebhookSecret
	default:
		return ""
	}
}
