package config

import "fmt"

// WebhookConfig holds GitHub webhook configuration.
type WebhookConfig struct {
	// Secret is the shared secret used to sign deliveries. Empty disables
	// signature checks.
	Secret string
	// RequireSecret rejects startup without a secret.
	RequireSecret bool
}

// LoadWebhookConfigFromEnv loads webhook configuration from environment variables.
func LoadWebhookConfigFromEnv() WebhookConfig {
	return WebhookConfig{
		Secret:        GetEnv("GITHUB_WEBHOOK_SECRET", ""),
		RequireSecret: GetEnvBool("GITHUB_WEBHOOK_REQUIRE_SECRET", false),
	}
}

// Validate validates webhook configuration.
func (c WebhookConfig) Validate() error {
	if c.RequireSecret && c.Secret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET is required when GITHUB_WEBHOOK_REQUIRE_SECRET is set")
	}
	return nil
}
