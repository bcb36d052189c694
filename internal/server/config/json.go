package config

import (
	"encoding/json"
	"os"

	"github.com/corrigo/corrigo/internal/flagx"
	"github.com/corrigo/corrigo/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON
// configuration files. It uses timex.Duration for interval fields, which
// allows parsing both string values such as "72h" and integer nanoseconds.
// After unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP                string         `json:"endpoint_addr_http"`
	DatabaseDSN                     string         `json:"database_dsn"`
	SecretKey                       string         `json:"secret_key"`
	SessionTokenValidityDuration    timex.Duration `json:"session_token_validity_duration"`
	ActivationTokenValidityDuration timex.Duration `json:"activation_token_validity_duration"`
	S3RootUser                      string         `json:"s3_root_user"`
	S3RootPassword                  string         `json:"s3_root_password"`
	S3Bucket                        string         `json:"s3_bucket"`
	S3Region                        string         `json:"s3_region"`
	S3BaseEndpoint                  string         `json:"s3_base_endpoint"`
	StripeAPIKey                    string         `json:"stripe_api_key"`
	StripeWebhookSecret             string         `json:"stripe_webhook_secret"`
	Currency                        string         `json:"currency"`
	CheckoutSuccessURL              string         `json:"checkout_success_url"`
	CheckoutCancelURL               string         `json:"checkout_cancel_url"`
	ActivationBaseURL               string         `json:"activation_base_url"`
	PostActivationRedirectURL       string         `json:"post_activation_redirect_url"`
	AdminEmail                      string         `json:"admin_email"`
	SMTPHost                        string         `json:"smtp_host"`
	SMTPPort                        int            `json:"smtp_port"`
	SMTPUser                        string         `json:"smtp_user"`
	SMTPPassword                    string         `json:"smtp_password"`
	SMTPFrom                        string         `json:"smtp_from"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. If no flag is set, nothing is
// loaded. An unreadable or invalid file panics: a config file that was
// explicitly asked for must parse.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	config.ActivationTokenValidityDuration = c.ActivationTokenValidityDuration.Duration
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.StripeAPIKey = c.StripeAPIKey
	config.StripeWebhookSecret = c.StripeWebhookSecret
	config.Currency = c.Currency
	config.CheckoutSuccessURL = c.CheckoutSuccessURL
	config.CheckoutCancelURL = c.CheckoutCancelURL
	config.ActivationBaseURL = c.ActivationBaseURL
	config.PostActivationRedirectURL = c.PostActivationRedirectURL
	config.AdminEmail = c.AdminEmail
	config.SMTPHost = c.SMTPHost
	config.SMTPPort = c.SMTPPort
	config.SMTPUser = c.SMTPUser
	config.SMTPPassword = c.SMTPPassword
	config.SMTPFrom = c.SMTPFrom
}
