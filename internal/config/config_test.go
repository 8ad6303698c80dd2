package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeTOML(t, `
mode = "trade"

[exchange]
base_url = "http://rit.local:9999"
username = "team7"

[tender]
min_vwap_margin = 0.08
poll_interval = "250ms"

[unwind]
tactic = "jitter"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "trade", cfg.Mode)
	require.Equal(t, "http://rit.local:9999", cfg.Exchange.BaseURL)
	require.Equal(t, "team7", cfg.Exchange.Username)
	require.Equal(t, 0.08, cfg.Tender.MinVWAPMargin)
	require.Equal(t, 250*time.Millisecond, cfg.Tender.PollInterval.Duration)
	require.Equal(t, "jitter", cfg.Unwind.Tactic)
	// untouched keys keep their defaults
	require.Equal(t, 290, cfg.Tender.TradeUntilTick)
	require.Equal(t, int64(100000), cfg.Risk.NetLimit)
	require.NoError(t, cfg.Validate())
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	var cfg Config
	_, err := toml.DecodeFile(filepath.Join("..", "..", "config.example.toml"), &cfg)
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TENDERBOT_EXCHANGE_PASSWORD", "hunter2")
	t.Setenv("TENDERBOT_RISK_NET_LIMIT", "50000")
	t.Setenv("TENDERBOT_UNWIND_POLL_INTERVAL", "2s")
	t.Setenv("TENDERBOT_REDIS_ENABLED", "true")
	t.Setenv("TENDERBOT_NOTIFY_EVENTS", "stop_loss, session_end,")
	t.Setenv("TENDERBOT_TENDER_DEPTH_POINTS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "hunter2", cfg.Exchange.Password)
	require.Equal(t, int64(50000), cfg.Risk.NetLimit)
	require.Equal(t, 2*time.Second, cfg.Unwind.PollInterval.Duration)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, []string{"stop_loss", "session_end"}, cfg.Notify.Events)
	require.Equal(t, 20, cfg.Tender.DepthPoints)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "yolo"
	cfg.Unwind.Tactic = "twap"
	cfg.Risk.NetLimit = 300000
	cfg.Tender.ConfirmAttempts = 0
	cfg.S3.Enabled = true
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "yolo"`,
		`unknown tactic "twap"`,
		"net_limit must not exceed gross_limit",
		"confirm_attempts must be >= 1",
		"s3: bucket must not be empty",
	} {
		require.ErrorContains(t, err, want)
	}
}

func TestValidateSkipsDisabledBackends(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Addr = ""
	cfg.Supabase.Host = ""
	require.NoError(t, cfg.Validate())

	cfg.Redis.Enabled = true
	require.ErrorContains(t, cfg.Validate(), "redis: addr must not be empty")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Exchange.Password = "pw"
	cfg.S3.SecretKey = "sk"
	cfg.Server.APIKey = "key"

	out := RedactedConfig(&cfg)
	require.Equal(t, "***", out.Exchange.Password)
	require.Equal(t, "***", out.S3.SecretKey)
	require.Equal(t, "***", out.Server.APIKey)
	require.Empty(t, out.Notify.TelegramToken)
	require.Equal(t, "pw", cfg.Exchange.Password)

	out.Notify.Events[0] = "mutated"
	require.Equal(t, "tender_accepted", cfg.Notify.Events[0])
}
