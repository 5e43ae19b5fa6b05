// File: internal/config/loader.go
// ============================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"wti-trading-bot/pkg/types"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loaded is a validated configuration plus the raw YAML tree it came from.
type Loaded struct {
	Config types.Config
	raw    map[string]interface{}
}

// Load reads path on top of the defaults, applies .env and environment
// overrides, then validates. A missing .env is only a warning.
func Load(path string, logger zerolog.Logger) (*Loaded, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, using config values")
	}

	config := types.DefaultConfig()
	raw := map[string]interface{}{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn().Str("path", path).Msg("config file not found, using defaults")
		case err != nil:
			return nil, fmt.Errorf("%w: failed to read config: %v", types.ErrConfiguration, err)
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("%w: failed to parse config: %v", types.ErrConfiguration, err)
			}
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("%w: failed to parse config: %v", types.ErrConfiguration, err)
			}
		}
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Loaded{Config: config, raw: raw}, nil
}

// Override with environment variables
func applyEnv(config *types.Config) error {
	if v := os.Getenv("MT5_BRIDGE_URL"); v != "" {
		config.MetaTrader.BridgeURL = v
	}
	if v := os.Getenv("MT5_BRIDGE_SECRET"); v != "" {
		config.MetaTrader.BridgeSecret = v
	}
	if v := os.Getenv("MT5_LOGIN"); v != "" {
		login, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: MT5_LOGIN must be numeric: %v", types.ErrConfiguration, err)
		}
		config.MetaTrader.Login = login
	}
	if v := os.Getenv("MT5_PASSWORD"); v != "" {
		config.MetaTrader.Password = v
	}
	if v := os.Getenv("MT5_SERVER"); v != "" {
		config.MetaTrader.Server = v
	}
	if v := os.Getenv("BOT_MODE"); v != "" {
		config.Bot.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		config.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		config.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	return nil
}

// Lookup resolves a dotted key such as "risk.max_daily_drawdown" against the
// file as written. ok is false when any segment is missing.
func (l *Loaded) Lookup(key string) (value interface{}, ok bool) {
	var node interface{} = l.raw
	for _, part := range strings.Split(key, ".") {
		m, isMap := node.(map[string]interface{})
		if !isMap {
			return nil, false
		}
		if node, ok = m[part]; !ok {
			return nil, false
		}
	}
	return node, true
}

// LookupDefault is Lookup with a fallback.
func (l *Loaded) LookupDefault(key string, def interface{}) interface{} {
	if v, ok := l.Lookup(key); ok {
		return v
	}
	return def
}
