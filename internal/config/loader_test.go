package config

import (
	"os"
	"path/filepath"
	"testing"

	"wti-trading-bot/pkg/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
symbol: USOIL
risk:
  max_daily_drawdown: 0.03
take_profit:
  levels:
    - target_atr_multiple: 1.5
      close_percentage: 0.4
`)

	loaded, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	cfg := loaded.Config

	assert.Equal(t, "USOIL", cfg.Symbol)
	assert.InDelta(t, 0.03, cfg.Risk.MaxDailyDrawdown, 1e-9)
	assert.InDelta(t, 0.02, cfg.Risk.MaxRiskPerTrade, 1e-9, "untouched keys keep defaults")
	assert.Equal(t, 14, cfg.Risk.ATRPeriod)
	require.Len(t, cfg.TakeProfit.Levels, 1, "a configured ladder replaces the default one")
	assert.InDelta(t, 0.4, cfg.TakeProfit.Levels[0].ClosePercentage, 1e-9)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig().Symbol, loaded.Config.Symbol)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("MT5_BRIDGE_URL", "http://bridge:9000")
	t.Setenv("MT5_LOGIN", "5001234")
	t.Setenv("MT5_PASSWORD", "pw")
	t.Setenv("MT5_SERVER", "Broker-Demo")
	t.Setenv("BOT_MODE", "LIVE")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("LOG_LEVEL", "DEBUG")

	loaded, err := Load(writeConfig(t, "symbol: WTI\n"), zerolog.Nop())
	require.NoError(t, err)
	cfg := loaded.Config

	assert.Equal(t, "http://bridge:9000", cfg.MetaTrader.BridgeURL)
	assert.Equal(t, int64(5001234), cfg.MetaTrader.Login)
	assert.Equal(t, "pw", cfg.MetaTrader.Password)
	assert.Equal(t, "Broker-Demo", cfg.MetaTrader.Server)
	assert.Equal(t, "live", cfg.Bot.Mode)
	assert.Equal(t, "token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"risk fraction out of range", "risk:\n  max_risk_per_trade: 1.5\n"},
		{"unknown mode", "bot:\n  mode: demo\n"},
		{"close fractions above one", "take_profit:\n  levels:\n    - {target_atr_multiple: 2, close_percentage: 0.7}\n    - {target_atr_multiple: 3, close_percentage: 0.5}\n"},
		{"bad session hour", "sessions:\n  london: {enabled: true, start_hour: 8, end_hour: 25}\n"},
		{"bad release day", "news:\n  eia: {release_day: 7}\n"},
		{"malformed yaml", "risk: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), zerolog.Nop())
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}
}

func TestLoadRejectsNonNumericLogin(t *testing.T) {
	t.Setenv("MT5_LOGIN", "abc")
	_, err := Load("", zerolog.Nop())
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestLookup(t *testing.T) {
	loaded, err := Load(writeConfig(t, `
risk:
  max_daily_drawdown: 0.04
metatrader:
  bridge_url: http://127.0.0.1:8765
`), zerolog.Nop())
	require.NoError(t, err)

	v, ok := loaded.Lookup("risk.max_daily_drawdown")
	require.True(t, ok)
	assert.Equal(t, 0.04, v)

	v, ok = loaded.Lookup("metatrader.bridge_url")
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:8765", v)

	_, ok = loaded.Lookup("risk.atr_period")
	assert.False(t, ok, "defaults are not part of the raw tree")
	_, ok = loaded.Lookup("risk.max_daily_drawdown.deeper")
	assert.False(t, ok)

	assert.Equal(t, 14, loaded.LookupDefault("risk.atr_period", 14))
}
