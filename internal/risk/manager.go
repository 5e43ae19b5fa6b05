// File: internal/risk/manager.go
// ============================================
package risk

import (
	"math"
	"time"

	"wti-trading-bot/pkg/types"

	"github.com/rs/zerolog"
)

const (
	ReasonDailyDrawdown = "daily drawdown limit exceeded"
	ReasonTotalDrawdown = "total drawdown limit exceeded"
	ReasonAllowed       = "all risk checks passed"
)

// Contract defaults used when the terminal leaves a field empty.
const (
	defaultContractSize = 100.0
	defaultMinLot       = 0.01
	defaultMaxLot       = 100.0
	defaultLotStep      = 0.01
)

// State is the process-wide risk bookkeeping. It is never persisted.
type State struct {
	DailyAnchor       time.Time `json:"daily_anchor"`
	DailyStartBalance float64   `json:"daily_start_balance"`
	DailyPnL          float64   `json:"daily_pnl"`
	DailyHalted       bool      `json:"daily_halted"`
	InitialBalance    float64   `json:"initial_balance"`
	PeakBalance       float64   `json:"peak_balance"`

	anchored    bool
	initialized bool
}

// Manager sizes positions and gates trading on drawdown. One instance is
// owned by one orchestrator; it is not safe for concurrent use.
type Manager struct {
	config *types.Config
	logger zerolog.Logger
	state  State
}

func NewManager(config *types.Config, logger zerolog.Logger) *Manager {
	return &Manager{
		config: config,
		logger: logger.With().Str("component", "risk").Logger(),
	}
}

// CalculatePositionSize converts the stop distance into lots so that hitting
// the stop loses balance*max_risk_per_trade.
func (m *Manager) CalculatePositionSize(balance, entry, stop float64, spec types.SymbolSpec) float64 {
	contractSize := orDefault(spec.ContractSize, defaultContractSize)
	minLot := orDefault(spec.MinLot, defaultMinLot)
	maxLot := orDefault(spec.MaxLot, defaultMaxLot)
	lotStep := orDefault(spec.LotStep, defaultLotStep)

	riskAmount := balance * m.config.Risk.MaxRiskPerTrade
	priceDiff := math.Abs(entry - stop)

	size := minLot
	if priceDiff > 0 {
		size = riskAmount / (contractSize * priceDiff)
	}

	size = math.Round(size/lotStep) * lotStep
	size = math.Max(minLot, math.Min(size, maxLot))

	m.logger.Debug().
		Float64("risk_amount", riskAmount).
		Float64("price_diff", priceDiff).
		Float64("lots", size).
		Msg("position sized")
	return size
}

// CanTrade applies the daily gate, then the total gate. Both running states
// are updated on every call.
func (m *Manager) CanTrade(balance float64, now time.Time) types.FilterResult {
	day := now.UTC()
	if !m.state.anchored || !sameUTCDay(m.state.DailyAnchor, day) {
		m.state.anchored = true
		m.state.DailyAnchor = day
		m.state.DailyStartBalance = balance
		m.state.DailyPnL = 0
		m.state.DailyHalted = false
		m.logger.Info().Float64("start_balance", balance).Time("anchor", day).Msg("daily risk anchor reset")
	}

	if !m.state.initialized {
		m.state.initialized = true
		m.state.InitialBalance = balance
		m.state.PeakBalance = balance
	}
	if balance > m.state.PeakBalance {
		m.state.PeakBalance = balance
	}

	// Once tripped the daily gate stays shut until the UTC day rolls over.
	if !m.state.DailyHalted && m.dailyDrawdown(balance) >= m.config.Risk.MaxDailyDrawdown {
		m.state.DailyHalted = true
		m.logger.Warn().
			Float64("drawdown", m.dailyDrawdown(balance)).
			Float64("limit", m.config.Risk.MaxDailyDrawdown).
			Msg("daily drawdown limit hit, trading halted for the day")
	}
	if m.state.DailyHalted {
		return types.FilterResult{Allowed: false, Reason: ReasonDailyDrawdown}
	}

	if m.totalDrawdown(balance) >= m.config.Risk.MaxTotalDrawdown {
		return types.FilterResult{Allowed: false, Reason: ReasonTotalDrawdown}
	}

	return types.FilterResult{Allowed: true, Reason: ReasonAllowed}
}

func (m *Manager) UpdateDailyPnL(pnl float64) {
	m.state.DailyPnL += pnl
}

func (m *Manager) GetDailyPnL() float64 {
	return m.state.DailyPnL
}

// Statistics reports drawdowns against the limits for logging and the API.
func (m *Manager) Statistics(balance float64) types.RiskStatistics {
	return types.RiskStatistics{
		DailyDrawdown:      m.dailyDrawdown(balance),
		DailyDrawdownLimit: m.config.Risk.MaxDailyDrawdown,
		TotalDrawdown:      m.totalDrawdown(balance),
		TotalDrawdownLimit: m.config.Risk.MaxTotalDrawdown,
		DailyPnL:           m.state.DailyPnL,
		PeakBalance:        m.state.PeakBalance,
		CurrentBalance:     balance,
	}
}

// Snapshot returns a copy of the running state.
func (m *Manager) Snapshot() State {
	return m.state
}

func (m *Manager) dailyDrawdown(balance float64) float64 {
	if m.state.DailyStartBalance <= 0 {
		return 0
	}
	return (m.state.DailyStartBalance - balance) / m.state.DailyStartBalance
}

func (m *Manager) totalDrawdown(balance float64) float64 {
	if m.state.PeakBalance <= 0 {
		return 0
	}
	return (m.state.PeakBalance - balance) / m.state.PeakBalance
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
