// README: Config loader; KURS_* env vars (or app.env) with defaults for HTTP, DB, Redis, payments and jobs.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvProduction = "production"

type MatchingConfig struct {
	RadiusKm float64
}

type PaymentConfig struct {
	XenditSecretKey     string
	XenditBaseURL       string
	XenditCallbackToken string
	Timeout             time.Duration
	Currency            string
	SweepGrace          time.Duration
}

type PricingConfig struct {
	MinimumFee int64
	Currency   string
}

type SchedulerConfig struct {
	SweepPendingPayments string
	SweepIdleCollectors  string
	CollectorIdleAfter   time.Duration
}

type Config struct {
	Environment string
	HTTP        struct {
		Addr        string
		CORSOrigins []string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
	}
	Auth struct {
		DevJWTSecret string
	}
	Maps struct {
		APIKey string
	}
	Log struct {
		Level string
	}
	Matching  MatchingConfig
	Payment   PaymentConfig
	Pricing   PricingConfig
	Scheduler SchedulerConfig
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("KURS")
	v.AutomaticEnv()
	setDefaults(v)

	_ = v.ReadInConfig()

	var cfg Config
	cfg.Environment = v.GetString("APP_ENV")
	cfg.HTTP.Addr = v.GetString("HTTP_ADDR")
	cfg.HTTP.CORSOrigins = parseList(v.GetString("CORS_ORIGINS"))
	cfg.DB.DSN = v.GetString("DB_DSN")
	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Firebase.ProjectID = v.GetString("FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = v.GetString("FIREBASE_CREDENTIALS_FILE")
	cfg.Auth.DevJWTSecret = v.GetString("DEV_JWT_SECRET")
	cfg.Maps.APIKey = v.GetString("GOOGLE_MAPS_API_KEY")
	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Matching.RadiusKm = v.GetFloat64("MATCH_RADIUS_KM")
	cfg.Payment = PaymentConfig{
		XenditSecretKey:     v.GetString("XENDIT_SECRET_KEY"),
		XenditBaseURL:       v.GetString("XENDIT_BASE_URL"),
		XenditCallbackToken: v.GetString("XENDIT_CALLBACK_TOKEN"),
		Timeout:             v.GetDuration("XENDIT_TIMEOUT"),
		Currency:            v.GetString("PAYMENT_CURRENCY"),
		SweepGrace:          v.GetDuration("PAYMENT_SWEEP_GRACE"),
	}
	cfg.Pricing = PricingConfig{
		MinimumFee: v.GetInt64("PICKUP_MINIMUM_FEE"),
		Currency:   v.GetString("PAYMENT_CURRENCY"),
	}
	cfg.Scheduler = SchedulerConfig{
		SweepPendingPayments: v.GetString("CRON_SWEEP_PAYMENTS"),
		SweepIdleCollectors:  v.GetString("CRON_SWEEP_COLLECTORS"),
		CollectorIdleAfter:   v.GetDuration("COLLECTOR_IDLE_AFTER"),
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MATCH_RADIUS_KM", 5.0)
	v.SetDefault("XENDIT_BASE_URL", "https://api.xendit.co")
	v.SetDefault("XENDIT_TIMEOUT", "5s")
	v.SetDefault("PAYMENT_CURRENCY", "IDR")
	v.SetDefault("PAYMENT_SWEEP_GRACE", "2m")
	v.SetDefault("PICKUP_MINIMUM_FEE", 10000)
	v.SetDefault("CRON_SWEEP_PAYMENTS", "0 */2 * * * *")
	v.SetDefault("CRON_SWEEP_COLLECTORS", "0 */5 * * * *")
	v.SetDefault("COLLECTOR_IDLE_AFTER", "30m")
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("KURS_DB_DSN is required")
	}
	if cfg.IsProduction() && cfg.Firebase.ProjectID == "" {
		return fmt.Errorf("KURS_FIREBASE_PROJECT_ID is required in production")
	}
	if !cfg.IsProduction() && cfg.Firebase.ProjectID == "" && cfg.Auth.DevJWTSecret == "" {
		return fmt.Errorf("either KURS_FIREBASE_PROJECT_ID or KURS_DEV_JWT_SECRET is required")
	}
	if cfg.Pricing.MinimumFee <= 0 {
		return fmt.Errorf("KURS_PICKUP_MINIMUM_FEE must be positive")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
