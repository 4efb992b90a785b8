package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	// InventoryAccountCode is the well-known chart-of-accounts code of the
	// Inventory Asset account, resolved per company when posting stock
	// adjustments.
	InventoryAccountCode string

	// GLPostingThreshold is the minimum adjustment value that triggers a
	// journal entry. Adjustments that round below it still persist and move
	// stock but intentionally skip GL posting.
	GLPostingThreshold decimal.Decimal

	// ReconciliationTolerance is the maximum allowed difference between the
	// bank-side and ledger-side totals of a reconciliation, absorbing
	// rounding from third-party statement exports.
	ReconciliationTolerance decimal.Decimal

	// WebhookRateLimit is a ulule/limiter formatted rate ("60-M") applied to
	// the payment-provider webhook route.
	WebhookRateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("INVENTORY_ACCOUNT_CODE", "1400")
	viper.SetDefault("GL_POSTING_THRESHOLD", "0.01")
	viper.SetDefault("RECONCILIATION_TOLERANCE", "0.05")
	viper.SetDefault("WEBHOOK_RATE_LIMIT", "60-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.InventoryAccountCode = viper.GetString("INVENTORY_ACCOUNT_CODE")
	cfg.WebhookRateLimit = viper.GetString("WEBHOOK_RATE_LIMIT")

	threshold, err := decimal.NewFromString(viper.GetString("GL_POSTING_THRESHOLD"))
	if err != nil {
		threshold = decimal.RequireFromString("0.01")
		log.Printf("Warning: Invalid value for GL_POSTING_THRESHOLD. Defaulting to %s.\n", threshold)
	}
	cfg.GLPostingThreshold = threshold

	tolerance, err := decimal.NewFromString(viper.GetString("RECONCILIATION_TOLERANCE"))
	if err != nil {
		tolerance = decimal.RequireFromString("0.05")
		log.Printf("Warning: Invalid value for RECONCILIATION_TOLERANCE. Defaulting to %s.\n", tolerance)
	}
	cfg.ReconciliationTolerance = tolerance

	return cfg, nil
}
