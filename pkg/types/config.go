// File: pkg/types/config.go
// ============================================
package types

import (
	"fmt"
	"strings"
)

// Config represents the bot configuration
type Config struct {
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`

	Bot        BotConfig        `yaml:"bot"`
	Risk       RiskConfig       `yaml:"risk"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	TakeProfit TakeProfitConfig `yaml:"take_profit"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	News       NewsConfig       `yaml:"news"`
	MetaTrader MetaTraderConfig `yaml:"metatrader"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type BotConfig struct {
	Mode             string `yaml:"mode"` // paper | live
	CheckIntervalSec int    `yaml:"check_interval"`
	StatsIntervalSec int    `yaml:"stats_interval"`
}

type RiskConfig struct {
	MaxRiskPerTrade     float64 `yaml:"max_risk_per_trade"`
	MaxDailyDrawdown    float64 `yaml:"max_daily_drawdown"`
	MaxTotalDrawdown    float64 `yaml:"max_total_drawdown"`
	ATRPeriod           int     `yaml:"atr_period"`
	StopLossATRMultiple float64 `yaml:"stop_loss_atr_multiple"`
}

type StrategyConfig struct {
	Volatility VolatilityConfig `yaml:"volatility"`
	Breakout   BreakoutConfig   `yaml:"breakout"`
	Bollinger  BollingerConfig  `yaml:"bollinger"`
}

type VolatilityConfig struct {
	CompressionPeriod    int     `yaml:"compression_period"`
	CompressionThreshold float64 `yaml:"compression_threshold"`
	ExpansionMultiplier  float64 `yaml:"expansion_multiplier"`
}

type BreakoutConfig struct {
	LookbackPeriod  int     `yaml:"lookback_period"`
	MinBreakoutSize float64 `yaml:"min_breakout_size"`
	MomentumPeriod  int     `yaml:"momentum_period"`
}

type BollingerConfig struct {
	Period int     `yaml:"period"`
	StdDev float64 `yaml:"std_dev"`
}

type TakeProfitConfig struct {
	Enabled      bool                    `yaml:"enabled"`
	Levels       []TakeProfitLevelConfig `yaml:"levels"`
	TrailingStop TrailingStopConfig      `yaml:"trailing_stop"`
}

type TakeProfitLevelConfig struct {
	TargetATRMultiple float64 `yaml:"target_atr_multiple"`
	ClosePercentage   float64 `yaml:"close_percentage"`
}

type TrailingStopConfig struct {
	Enabled               bool    `yaml:"enabled"`
	ActivationATRMultiple float64 `yaml:"activation_atr_multiple"`
	TrailATRMultiple      float64 `yaml:"trail_atr_multiple"`
}

type SessionsConfig struct {
	London  SessionWindow `yaml:"london"`
	NewYork SessionWindow `yaml:"newyork"`
	Asian   SessionWindow `yaml:"asian"`
}

// SessionWindow is a [StartHour, EndHour) window in UTC.
type SessionWindow struct {
	Enabled   bool `yaml:"enabled"`
	StartHour int  `yaml:"start_hour"`
	EndHour   int  `yaml:"end_hour"`
}

type NewsConfig struct {
	EIA EIAConfig `yaml:"eia"`
}

type EIAConfig struct {
	Enabled            bool `yaml:"enabled"`
	AvoidMinutesBefore int  `yaml:"avoid_minutes_before"`
	AvoidMinutesAfter  int  `yaml:"avoid_minutes_after"`
	ReleaseDay         int  `yaml:"release_day"` // 0=Monday ... 6=Sunday
	ReleaseHour        int  `yaml:"release_hour"`
	ReleaseMinute      int  `yaml:"release_minute"`
}

type MetaTraderConfig struct {
	BridgeURL    string `yaml:"bridge_url"`
	BridgeSecret string `yaml:"bridge_secret"`
	Login        int64  `yaml:"login"`
	Password     string `yaml:"password"`
	Server       string `yaml:"server"`
	MagicNumber  int64  `yaml:"magic_number"`
	Deviation    int    `yaml:"deviation"`
	BarsCount    int    `yaml:"bars_count"`
	TimeoutSec   int    `yaml:"timeout"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	Enabled  bool   `yaml:"enabled"`
}

// DefaultConfig returns a configuration with every knob at its named default.
func DefaultConfig() Config {
	return Config{
		Symbol:    "WTI",
		Timeframe: "M15",
		Bot: BotConfig{
			Mode:             "paper",
			CheckIntervalSec: 60,
			StatsIntervalSec: 3600,
		},
		Risk: RiskConfig{
			MaxRiskPerTrade:     0.02,
			MaxDailyDrawdown:    0.05,
			MaxTotalDrawdown:    0.15,
			ATRPeriod:           14,
			StopLossATRMultiple: 2.0,
		},
		Strategy: StrategyConfig{
			Volatility: VolatilityConfig{
				CompressionPeriod:    20,
				CompressionThreshold: 0.6,
				ExpansionMultiplier:  1.5,
			},
			Breakout: BreakoutConfig{
				LookbackPeriod:  10,
				MinBreakoutSize: 0.3,
				MomentumPeriod:  10,
			},
			Bollinger: BollingerConfig{Period: 20, StdDev: 2.0},
		},
		TakeProfit: TakeProfitConfig{
			Enabled: true,
			Levels: []TakeProfitLevelConfig{
				{TargetATRMultiple: 2.0, ClosePercentage: 0.5},
				{TargetATRMultiple: 3.0, ClosePercentage: 0.3},
			},
			TrailingStop: TrailingStopConfig{
				Enabled:               true,
				ActivationATRMultiple: 2.5,
				TrailATRMultiple:      1.5,
			},
		},
		Sessions: SessionsConfig{
			London:  SessionWindow{Enabled: true, StartHour: 8, EndHour: 16},
			NewYork: SessionWindow{Enabled: true, StartHour: 13, EndHour: 21},
			Asian:   SessionWindow{Enabled: false, StartHour: 0, EndHour: 8},
		},
		News: NewsConfig{
			EIA: EIAConfig{
				Enabled:            true,
				AvoidMinutesBefore: 30,
				AvoidMinutesAfter:  60,
				ReleaseDay:         2, // Wednesday
				ReleaseHour:        15,
				ReleaseMinute:      30,
			},
		},
		MetaTrader: MetaTraderConfig{
			BridgeURL:   "http://127.0.0.1:8765",
			MagicNumber: 987654,
			Deviation:   10,
			BarsCount:   200,
			TimeoutSec:  10,
		},
		Logging: LoggingConfig{
			Level:   "INFO",
			File:    "logs/trading_bot.log",
			Console: true,
		},
		API: APIConfig{Enabled: true, Host: "127.0.0.1", Port: 8080},
	}
}

// Validate checks ranges. Every failure wraps ErrConfiguration.
func (c *Config) Validate() error {
	var problems []string
	bad := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Symbol) == "" {
		bad("symbol is required")
	}
	switch c.Bot.Mode {
	case "paper", "live":
	default:
		bad("bot.mode must be paper or live, got %q", c.Bot.Mode)
	}
	if c.Bot.CheckIntervalSec < 1 {
		bad("bot.check_interval must be >= 1")
	}

	fraction := func(name string, v float64) {
		if v <= 0 || v > 1 {
			bad("%s must be in (0, 1], got %v", name, v)
		}
	}
	fraction("risk.max_risk_per_trade", c.Risk.MaxRiskPerTrade)
	fraction("risk.max_daily_drawdown", c.Risk.MaxDailyDrawdown)
	fraction("risk.max_total_drawdown", c.Risk.MaxTotalDrawdown)
	if c.Risk.ATRPeriod < 1 {
		bad("risk.atr_period must be >= 1")
	}
	if c.Risk.StopLossATRMultiple <= 0 {
		bad("risk.stop_loss_atr_multiple must be > 0")
	}

	v := c.Strategy.Volatility
	if v.CompressionPeriod < 1 {
		bad("strategy.volatility.compression_period must be >= 1")
	}
	if v.CompressionThreshold <= 0 {
		bad("strategy.volatility.compression_threshold must be > 0")
	}
	if v.ExpansionMultiplier <= 0 {
		bad("strategy.volatility.expansion_multiplier must be > 0")
	}
	b := c.Strategy.Breakout
	if b.LookbackPeriod < 1 {
		bad("strategy.breakout.lookback_period must be >= 1")
	}
	if b.MinBreakoutSize < 0 {
		bad("strategy.breakout.min_breakout_size must be >= 0")
	}
	if b.MomentumPeriod < 1 {
		bad("strategy.breakout.momentum_period must be >= 1")
	}
	if c.Strategy.Bollinger.Period < 1 {
		bad("strategy.bollinger.period must be >= 1")
	}

	total := 0.0
	for i, l := range c.TakeProfit.Levels {
		if l.TargetATRMultiple <= 0 {
			bad("take_profit.levels[%d].target_atr_multiple must be > 0", i)
		}
		if l.ClosePercentage <= 0 || l.ClosePercentage > 1 {
			bad("take_profit.levels[%d].close_percentage must be in (0, 1]", i)
		}
		total += l.ClosePercentage
	}
	if total > 1+1e-9 {
		bad("take_profit.levels close_percentage sum %.4f exceeds 1", total)
	}
	ts := c.TakeProfit.TrailingStop
	if ts.Enabled && (ts.ActivationATRMultiple <= 0 || ts.TrailATRMultiple <= 0) {
		bad("take_profit.trailing_stop multiples must be > 0")
	}

	window := func(name string, w SessionWindow) {
		if w.StartHour < 0 || w.StartHour > 24 || w.EndHour < 0 || w.EndHour > 24 {
			bad("sessions.%s hours must be within [0, 24]", name)
		}
	}
	window("london", c.Sessions.London)
	window("newyork", c.Sessions.NewYork)
	window("asian", c.Sessions.Asian)

	e := c.News.EIA
	if e.ReleaseDay < 0 || e.ReleaseDay > 6 {
		bad("news.eia.release_day must be within [0, 6]")
	}
	if e.ReleaseHour < 0 || e.ReleaseHour > 23 || e.ReleaseMinute < 0 || e.ReleaseMinute > 59 {
		bad("news.eia release time is out of range")
	}

	if c.MetaTrader.BarsCount < 2 {
		bad("metatrader.bars_count must be >= 2")
	}
	if c.Bot.Mode == "live" && strings.TrimSpace(c.MetaTrader.BridgeURL) == "" {
		bad("metatrader.bridge_url is required in live mode")
	}
	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		bad("api.port out of range")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}
