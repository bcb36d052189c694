package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first, without overriding variables that
// are already exported.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(key string, target *string) {
		if v, ok := os.LookupEnv(key); ok {
			*target = v
		}
	}
	setDuration := func(key string, target *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*target = d
			}
		}
	}

	setString("ENDPOINT_ADDR_HTTP", &config.EndpointAddrHTTP)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("SECRET_KEY", &config.SecretKey)
	setDuration("SESSION_TOKEN_VALIDITY_DURATION", &config.SessionTokenValidityDuration)
	setDuration("ACTIVATION_TOKEN_VALIDITY_DURATION", &config.ActivationTokenValidityDuration)
	setString("S3_ROOT_USER", &config.S3RootUser)
	setString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	setString("S3_BUCKET", &config.S3Bucket)
	setString("S3_REGION", &config.S3Region)
	setString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	setString("STRIPE_API_KEY", &config.StripeAPIKey)
	setString("STRIPE_WEBHOOK_SECRET", &config.StripeWebhookSecret)
	setString("CURRENCY", &config.Currency)
	setString("CHECKOUT_SUCCESS_URL", &config.CheckoutSuccessURL)
	setString("CHECKOUT_CANCEL_URL", &config.CheckoutCancelURL)
	setString("ACTIVATION_BASE_URL", &config.ActivationBaseURL)
	setString("POST_ACTIVATION_REDIRECT_URL", &config.PostActivationRedirectURL)
	setString("ADMIN_EMAIL", &config.AdminEmail)
	setString("SMTP_HOST", &config.SMTPHost)
	if v, ok := os.LookupEnv("SMTP_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			config.SMTPPort = port
		}
	}
	setString("SMTP_USER", &config.SMTPUser)
	setString("SMTP_PASSWORD", &config.SMTPPassword)
	setString("SMTP_FROM", &config.SMTPFrom)
}
