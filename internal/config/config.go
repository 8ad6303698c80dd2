// Package config defines the tenderbot configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TENDERBOT_* environment variables.
type Config struct {
	Exchange ExchangeConfig `toml:"exchange"`
	Tender   TenderConfig   `toml:"tender"`
	Risk     RiskConfig     `toml:"risk"`
	Unwind   UnwindConfig   `toml:"unwind"`
	Supabase SupabaseConfig `toml:"supabase"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ExchangeConfig holds the RIT REST endpoint and credentials.
type ExchangeConfig struct {
	BaseURL       string   `toml:"base_url"`
	Username      string   `toml:"username"`
	Password      string   `toml:"password"`
	Timeout       duration `toml:"timeout"`
	CancelSpacing duration `toml:"cancel_spacing"`
}

// TenderConfig controls tender evaluation and the decision loop.
type TenderConfig struct {
	DepthPoints     int      `toml:"depth_points"`
	MinVWAPMargin   float64  `toml:"min_vwap_margin"`
	TradeUntilTick  int      `toml:"trade_until_tick"`
	PollInterval    duration `toml:"poll_interval"`
	ConfirmAttempts int      `toml:"confirm_attempts"`
	ConfirmInterval duration `toml:"confirm_interval"`
	DedupTTL        duration `toml:"dedup_ttl"`
}

// RiskConfig holds the position ceilings.
type RiskConfig struct {
	NetLimit   int64 `toml:"net_limit"`
	GrossLimit int64 `toml:"gross_limit"`
}

// UnwindConfig selects the liquidation tactic and its parameters.
type UnwindConfig struct {
	Tactic             string   `toml:"tactic"`
	MinProfitMargin    float64  `toml:"min_profit_margin"`
	StopLossPercent    float64  `toml:"stop_loss_percent"`
	BatchSize          int64    `toml:"batch_size"`
	SquareOffBatchSize int64    `toml:"square_off_batch_size"`
	PollInterval       duration `toml:"poll_interval"`
	JitterStep         float64  `toml:"jitter_step"`
	JitterMaxSteps     int      `toml:"jitter_max_steps"`
	OrderSpacing       duration `toml:"order_spacing"`
	// DeadlineTick forces liquidation of monitored jobs; 0 disables it.
	DeadlineTick int `toml:"deadline_tick"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	KeyPrefix  string   `toml:"key_prefix"`
	LockTTL    duration `toml:"lock_ttl"`
}

// S3Config holds the session archive bucket parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration wraps time.Duration so TOML strings like "500ms" decode.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled        bool     `toml:"enabled"`
	Port           int      `toml:"port"`
	CORSOrigins    []string `toml:"cors_origins"`
	APIKey         string   `toml:"api_key"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	RateLimitBurst int      `toml:"rate_limit_burst"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with the values in config.example.toml.
func Defaults() Config {
	return Config{
		Exchange: ExchangeConfig{
			BaseURL:       "http://localhost:9999",
			Timeout:       duration{5 * time.Second},
			CancelSpacing: duration{100 * time.Millisecond},
		},
		Tender: TenderConfig{
			DepthPoints:     20,
			MinVWAPMargin:   0.05,
			TradeUntilTick:  290,
			PollInterval:    duration{500 * time.Millisecond},
			ConfirmAttempts: 5,
			ConfirmInterval: duration{200 * time.Millisecond},
			DedupTTL:        duration{10 * time.Minute},
		},
		Risk: RiskConfig{
			NetLimit:   100000,
			GrossLimit: 250000,
		},
		Unwind: UnwindConfig{
			Tactic:             "stoploss",
			MinProfitMargin:    0.10,
			StopLossPercent:    0.02,
			BatchSize:          5000,
			SquareOffBatchSize: 10000,
			PollInterval:       duration{500 * time.Millisecond},
			JitterStep:         0.01,
			JitterMaxSteps:     5,
			OrderSpacing:       duration{100 * time.Millisecond},
			DeadlineTick:       295,
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "tenderbot",
			LockTTL:    duration{30 * time.Second},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "tenderbot-sessions",
			Prefix:         "sessions",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:        true,
			Port:           8000,
			CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Notify: NotifyConfig{
			Events: []string{"tender_accepted", "stop_loss", "force_liquidated", "unwind_failed", "session_end"},
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"trade":   true,
	"paper":   true,
	"monitor": true,
}

var validTactics = map[string]bool{
	"immediate": true,
	"limit":     true,
	"jitter":    true,
	"stoploss":  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, paper, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Exchange
	if c.Exchange.BaseURL == "" {
		errs = append(errs, "exchange: base_url must not be empty")
	}
	if c.Exchange.Timeout.Duration <= 0 {
		errs = append(errs, "exchange: timeout must be > 0")
	}

	// Tender
	if c.Tender.DepthPoints < 1 {
		errs = append(errs, "tender: depth_points must be >= 1")
	}
	if c.Tender.MinVWAPMargin < 0 {
		errs = append(errs, "tender: min_vwap_margin must be >= 0")
	}
	if c.Tender.TradeUntilTick < 0 {
		errs = append(errs, "tender: trade_until_tick must be >= 0")
	}
	if c.Tender.PollInterval.Duration <= 0 {
		errs = append(errs, "tender: poll_interval must be > 0")
	}
	if c.Tender.ConfirmAttempts < 1 {
		errs = append(errs, "tender: confirm_attempts must be >= 1")
	}

	// Risk
	if c.Risk.NetLimit <= 0 {
		errs = append(errs, "risk: net_limit must be > 0")
	}
	if c.Risk.GrossLimit <= 0 {
		errs = append(errs, "risk: gross_limit must be > 0")
	}
	if c.Risk.GrossLimit > 0 && c.Risk.NetLimit > c.Risk.GrossLimit {
		errs = append(errs, "risk: net_limit must not exceed gross_limit")
	}

	// Unwind
	if !validTactics[c.Unwind.Tactic] {
		errs = append(errs, fmt.Sprintf("unwind: unknown tactic %q (valid: immediate, limit, jitter, stoploss)", c.Unwind.Tactic))
	}
	if c.Unwind.MinProfitMargin < 0 {
		errs = append(errs, "unwind: min_profit_margin must be >= 0")
	}
	if c.Unwind.StopLossPercent < 0 || c.Unwind.StopLossPercent >= 1 {
		errs = append(errs, "unwind: stop_loss_percent must be in [0, 1)")
	}
	if c.Unwind.BatchSize < 1 {
		errs = append(errs, "unwind: batch_size must be >= 1")
	}
	if c.Unwind.SquareOffBatchSize < 1 {
		errs = append(errs, "unwind: square_off_batch_size must be >= 1")
	}
	if c.Unwind.Tactic == "stoploss" && c.Unwind.PollInterval.Duration <= 0 {
		errs = append(errs, "unwind: poll_interval must be > 0 for the stoploss tactic")
	}
	if c.Unwind.Tactic == "jitter" && (c.Unwind.JitterStep <= 0 || c.Unwind.JitterMaxSteps < 1) {
		errs = append(errs, "unwind: jitter_step must be > 0 and jitter_max_steps >= 1 for the jitter tactic")
	}

	// Supabase
	if c.Supabase.Enabled {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Server
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
