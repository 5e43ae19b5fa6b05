// File: internal/bot/snapshot.go
// ============================================
package bot

import (
	"time"

	"wti-trading-bot/internal/strategy"
	"wti-trading-bot/pkg/types"
)

// FilterStatus is one filter's verdict for the last tick.
type FilterStatus struct {
	Name    string `json:"name"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// PositionStatus pairs a tracked position with its profit-management state.
type PositionStatus struct {
	types.Position
	ProfitState types.ProfitState `json:"profit_state"`
	Remaining   float64           `json:"remaining_volume"`
}

// Snapshot is a read-only copy of the orchestrator state after a tick.
type Snapshot struct {
	Mode           string                `json:"mode"`
	Symbol         string                `json:"symbol"`
	Running        bool                  `json:"running"`
	Ticks          int64                 `json:"ticks"`
	LastTick       time.Time             `json:"last_tick"`
	TradingAllowed bool                  `json:"trading_allowed"`
	Filters        []FilterStatus        `json:"filters"`
	LastSignal     types.Signal          `json:"last_signal"`
	CurrentPrice   float64               `json:"current_price"`
	CurrentATR     float64               `json:"current_atr"`
	Account        types.AccountSnapshot `json:"account"`
	Risk           types.RiskStatistics  `json:"risk"`
	Positions      []PositionStatus      `json:"positions"`
}

// Snapshot returns the state published by the last tick. Safe to call from
// any goroutine.
func (b *Bot) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := b.snapshot
	out.Filters = append([]FilterStatus(nil), b.snapshot.Filters...)
	out.Positions = append([]PositionStatus(nil), b.snapshot.Positions...)
	return out
}

func (b *Bot) setRunning(running bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot.Running = running
}

func (b *Bot) publish(now time.Time, allowed bool, statuses []FilterStatus, analysis strategy.Analysis, analyzed bool, account types.AccountSnapshot, hasAccount bool) {
	positions := make([]PositionStatus, 0, len(b.positions))
	for _, ticket := range b.sortedTickets() {
		pos := *b.positions[ticket]
		pos.TakeProfitLevels = append([]types.TakeProfitLevel(nil), pos.TakeProfitLevels...)
		state, _ := b.profit.Status(ticket)
		positions = append(positions, PositionStatus{
			Position:    pos,
			ProfitState: state,
			Remaining:   b.profit.RemainingVolume(ticket, pos.InitialVolume),
		})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s := &b.snapshot
	s.Ticks = b.ticks
	s.LastTick = now
	s.TradingAllowed = allowed
	s.Filters = statuses
	s.Positions = positions
	if analyzed {
		s.LastSignal = analysis.Signal
		s.CurrentPrice = analysis.CurrentPrice
		s.CurrentATR = analysis.CurrentATR
	}
	if hasAccount {
		s.Account = account
		s.Risk = b.risk.Statistics(account.Balance)
	}
}
