package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Refund    RefundConfig    `mapstructure:"refund"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Mail      MailConfig      `mapstructure:"mail"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Mailtrap  MailtrapConfig  `mapstructure:"mailtrap"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	Addr     string `mapstructure:"addr"`
	BaseURL  string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql|postgres|sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type PaymentConfig struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	Currency        string        `mapstructure:"currency"`
	Mock            MockConfig    `mapstructure:"mock"`
	Stripe          StripeConfig  `mapstructure:"stripe"`
	PayPal          PayPalConfig  `mapstructure:"paypal"`
	WebhookTTL      time.Duration `mapstructure:"webhook_tolerance"`
}

type MockConfig struct {
	ForceSuccess  bool    `mapstructure:"force_success"`
	SuccessRate   float64 `mapstructure:"success_rate"`
	WebhookSecret string  `mapstructure:"webhook_secret"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type PayPalConfig struct {
	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type RefundConfig struct {
	TimeLimitDays int `mapstructure:"time_limit_days"`
}

// Window is the refund window as a duration.
func (r RefundConfig) Window() time.Duration {
	return time.Duration(r.TimeLimitDays) * 24 * time.Hour
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	DonationsPerMinute int `mapstructure:"donations_per_minute"`
}

type MailConfig struct {
	Driver   string `mapstructure:"driver"` // log|smtp|mailtrap
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Pass          string `mapstructure:"pass"`
	TLSMode       string `mapstructure:"tls_mode"` // none|starttls|tls
	SkipVerifyTLS bool   `mapstructure:"skip_verify_tls"`
}

type MailtrapConfig struct {
	APIURL   string `mapstructure:"api_url"`
	APIToken string `mapstructure:"api_token"`
}

type StorageConfig struct {
	Driver          string `mapstructure:"driver"` // local|s3
	LocalDir        string `mapstructure:"local_dir"`
	LocalURLPrefix  string `mapstructure:"local_url_prefix"`
	S3Region        string `mapstructure:"s3_region"`
	S3Bucket        string `mapstructure:"s3_bucket"`
	S3Prefix        string `mapstructure:"s3_prefix"`
	S3PublicBaseURL string `mapstructure:"s3_public_base_url"`
}

var defaults = map[string]any{
	"app.env":       "development",
	"app.log_level": "info",
	"app.addr":      ":8080",
	"app.base_url":  "http://localhost:8080",

	"db.driver":            "mysql",
	"db.dsn":               "",
	"db.max_open_conns":    25,
	"db.max_idle_conns":    25,
	"db.conn_max_lifetime": time.Hour,

	"payment.default_provider":      "mock",
	"payment.currency":              "USD",
	"payment.webhook_tolerance":     5 * time.Minute,
	"payment.mock.force_success":    false,
	"payment.mock.success_rate":     0.9,
	"payment.mock.webhook_secret":   "",
	"payment.stripe.secret_key":     "",
	"payment.stripe.webhook_secret": "",
	"payment.paypal.client_id":      "",
	"payment.paypal.client_secret":  "",
	"payment.paypal.webhook_secret": "",

	"refund.time_limit_days": 30,

	"auth.jwt_secret": "",

	"redis.addr":     "",
	"redis.password": "",
	"redis.db":       0,

	"ratelimit.donations_per_minute": 10,

	"mail.driver":    "log",
	"mail.from":      "no-reply@csrgive.local",
	"mail.from_name": "CSR Give",

	"smtp.host":            "localhost",
	"smtp.port":            "1025",
	"smtp.user":            "",
	"smtp.pass":            "",
	"smtp.tls_mode":        "none",
	"smtp.skip_verify_tls": false,

	"mailtrap.api_url":   "",
	"mailtrap.api_token": "",

	"storage.driver":             "local",
	"storage.local_dir":          "./storage/receipts",
	"storage.local_url_prefix":   "/receipts",
	"storage.s3_region":          "",
	"storage.s3_bucket":          "",
	"storage.s3_prefix":          "receipts",
	"storage.s3_public_base_url": "",
}

// Load reads .env (if present), an optional YAML file named by CONFIG_FILE and
// the process environment. Env keys are the upper-cased dotted keys with dots
// replaced by underscores, e.g. PAYMENT_DEFAULT_PROVIDER.
func Load() (*Config, error) {
	// .env is optional; prod uses real env vars
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown db.driver %q", c.Database.Driver))
	}
	if c.Payment.Mock.SuccessRate < 0 || c.Payment.Mock.SuccessRate > 1 {
		errs = append(errs, fmt.Errorf("payment.mock.success_rate must be within [0,1], got %v", c.Payment.Mock.SuccessRate))
	}
	if c.Refund.TimeLimitDays < 0 {
		errs = append(errs, errors.New("refund.time_limit_days must not be negative"))
	}
	if c.Auth.JWTSecret == "" && !c.IsTest() {
		errs = append(errs, errors.New("auth.jwt_secret (AUTH_JWT_SECRET) is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool { return strings.EqualFold(c.App.Env, "development") }

func (c *Config) IsTest() bool { return strings.EqualFold(c.App.Env, "test") }
