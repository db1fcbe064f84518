package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	App       AppConfig
	Affiliate AffiliateSettings
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret      string
	IPHashSalt     string
	FraudSweepSpec string
}

// FeatureSet is the typed feature configuration resolved once per
// request instead of scattered boolean flags.
type FeatureSet struct {
	VelocityLimits    bool
	TieredCommissions bool
	CampaignBoost     bool
}

// BoostSettings define the campaign boost window and amount. A nil
// StartsAt/EndsAt bound means unbounded on that side.
type BoostSettings struct {
	Amount   decimal.Decimal
	Target   string // "all" or "selected"
	StartsAt *time.Time
	EndsAt   *time.Time
}

// AffiliateSettings is the configuration snapshot injected into every
// operation of the attribution core. It is read-only here; editing
// lives with the external admin surface.
type AffiliateSettings struct {
	DefaultCommissionRate decimal.Decimal
	DefaultCommissionType string

	SilverThreshold int
	GoldThreshold   int
	BronzeRate      decimal.Decimal
	SilverRate      decimal.Decimal
	GoldRate        decimal.Decimal

	MaxVisitsPerHour      int
	MaxSignupsPerIPPerDay int

	CookieAttributionDays int

	Boost BoostSettings

	SpamKeywords []string

	Features FeatureSet
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "referral_engine"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			IPHashSalt:     getEnv("IP_HASH_SALT", ""),
			FraudSweepSpec: getEnv("FRAUD_SWEEP_SPEC", "0 2 * * *"),
		},
		Affiliate: AffiliateSettings{
			DefaultCommissionRate: getEnvDecimal("AFFILIATE_DEFAULT_RATE", "30"),
			DefaultCommissionType: getEnvCommissionType("AFFILIATE_DEFAULT_TYPE", "percentage"),
			SilverThreshold:       getEnvInt("TIER_SILVER_THRESHOLD", 10),
			GoldThreshold:         getEnvInt("TIER_GOLD_THRESHOLD", 25),
			BronzeRate:            getEnvDecimal("TIER_BRONZE_RATE", "30"),
			SilverRate:            getEnvDecimal("TIER_SILVER_RATE", "35"),
			GoldRate:              getEnvDecimal("TIER_GOLD_RATE", "40"),
			MaxVisitsPerHour:      getEnvInt("VELOCITY_MAX_VISITS_PER_HOUR", 10),
			MaxSignupsPerIPPerDay: getEnvInt("VELOCITY_MAX_SIGNUPS_PER_IP_PER_DAY", 5),
			CookieAttributionDays: getEnvInt("COOKIE_ATTRIBUTION_DAYS", 365),
			Boost: BoostSettings{
				Amount:   getEnvDecimal("CAMPAIGN_BOOST_AMOUNT", "5"),
				Target:   getEnv("CAMPAIGN_BOOST_TARGET", "all"),
				StartsAt: getEnvTime("CAMPAIGN_BOOST_STARTS_AT"),
				EndsAt:   getEnvTime("CAMPAIGN_BOOST_ENDS_AT"),
			},
			SpamKeywords: getEnvList("SPAM_KEYWORDS", "casino,viagra,lottery,get rich quick,free money"),
			Features: FeatureSet{
				VelocityLimits:    getEnvBool("FEATURE_VELOCITY_LIMITS", true),
				TieredCommissions: getEnvBool("FEATURE_TIERED_COMMISSIONS", true),
				CampaignBoost:     getEnvBool("FEATURE_CAMPAIGN_BOOST", false),
			},
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.App.IPHashSalt == "" {
		return nil, fmt.Errorf("IP_HASH_SALT is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// TierRate maps a stored tier to its configured rate.
func (s *AffiliateSettings) TierRate(tier string) decimal.Decimal {
	switch tier {
	case "gold":
		return s.GoldRate
	case "silver":
		return s.SilverRate
	case "bronze":
		return s.BronzeRate
	}
	return s.DefaultCommissionRate
}

// AttributionWindow returns the attribution window as a duration.
func (s *AffiliateSettings) AttributionWindow() time.Duration {
	days := s.CookieAttributionDays
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt parses an integer env var, falling back on missing or
// malformed values rather than failing startup.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	fallback, _ := decimal.NewFromString(defaultValue)
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil || parsed.IsNegative() {
		return fallback
	}
	return parsed
}

func getEnvCommissionType(key, defaultValue string) string {
	value := strings.ToLower(os.Getenv(key))
	if value == "percentage" || value == "flat" {
		return value
	}
	return defaultValue
}

// getEnvTime parses an RFC3339 timestamp; empty or malformed values
// mean the bound is unset.
func getEnvTime(key string) *time.Time {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &parsed
}

func getEnvList(key, defaultValue string) []string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	parts := strings.Split(value, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}
