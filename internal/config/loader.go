package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path over Defaults(), loads .env when present,
// and applies TENDERBOT_* environment overrides. An empty path skips the
// file. The result is not validated; call Config.Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// A missing .env is not an error.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides lets operators inject secrets and per-deployment tuning
// without touching the TOML file. Unset or unparsable variables are ignored.
func applyEnvOverrides(cfg *Config) {
	// ── Exchange ──
	setStr(&cfg.Exchange.BaseURL, "TENDERBOT_EXCHANGE_BASE_URL")
	setStr(&cfg.Exchange.Username, "TENDERBOT_EXCHANGE_USERNAME")
	setStr(&cfg.Exchange.Password, "TENDERBOT_EXCHANGE_PASSWORD")
	setDuration(&cfg.Exchange.Timeout, "TENDERBOT_EXCHANGE_TIMEOUT")

	// ── Tender ──
	setInt(&cfg.Tender.DepthPoints, "TENDERBOT_TENDER_DEPTH_POINTS")
	setFloat64(&cfg.Tender.MinVWAPMargin, "TENDERBOT_TENDER_MIN_VWAP_MARGIN")
	setInt(&cfg.Tender.TradeUntilTick, "TENDERBOT_TENDER_TRADE_UNTIL_TICK")
	setDuration(&cfg.Tender.PollInterval, "TENDERBOT_TENDER_POLL_INTERVAL")
	setInt(&cfg.Tender.ConfirmAttempts, "TENDERBOT_TENDER_CONFIRM_ATTEMPTS")
	setDuration(&cfg.Tender.ConfirmInterval, "TENDERBOT_TENDER_CONFIRM_INTERVAL")

	// ── Risk ──
	setInt64(&cfg.Risk.NetLimit, "TENDERBOT_RISK_NET_LIMIT")
	setInt64(&cfg.Risk.GrossLimit, "TENDERBOT_RISK_GROSS_LIMIT")

	// ── Unwind ──
	setStr(&cfg.Unwind.Tactic, "TENDERBOT_UNWIND_TACTIC")
	setFloat64(&cfg.Unwind.MinProfitMargin, "TENDERBOT_UNWIND_MIN_PROFIT_MARGIN")
	setFloat64(&cfg.Unwind.StopLossPercent, "TENDERBOT_UNWIND_STOP_LOSS_PERCENT")
	setInt64(&cfg.Unwind.BatchSize, "TENDERBOT_UNWIND_BATCH_SIZE")
	setInt64(&cfg.Unwind.SquareOffBatchSize, "TENDERBOT_UNWIND_SQUARE_OFF_BATCH_SIZE")
	setDuration(&cfg.Unwind.PollInterval, "TENDERBOT_UNWIND_POLL_INTERVAL")
	setInt(&cfg.Unwind.DeadlineTick, "TENDERBOT_UNWIND_DEADLINE_TICK")

	// ── Supabase ──
	setBool(&cfg.Supabase.Enabled, "TENDERBOT_SUPABASE_ENABLED")
	setStr(&cfg.Supabase.DSN, "TENDERBOT_SUPABASE_DSN")
	setStr(&cfg.Supabase.Host, "TENDERBOT_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "TENDERBOT_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "TENDERBOT_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "TENDERBOT_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "TENDERBOT_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "TENDERBOT_SUPABASE_SSL_MODE")
	setBool(&cfg.Supabase.RunMigrations, "TENDERBOT_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TENDERBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TENDERBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TENDERBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TENDERBOT_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "TENDERBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "TENDERBOT_REDIS_KEY_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "TENDERBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "TENDERBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TENDERBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "TENDERBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TENDERBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TENDERBOT_S3_SECRET_KEY")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "TENDERBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TENDERBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TENDERBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "TENDERBOT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TENDERBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TENDERBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TENDERBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TENDERBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "TENDERBOT_MODE")
	setStr(&cfg.LogLevel, "TENDERBOT_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// set, non-empty and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
