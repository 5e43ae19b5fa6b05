// File: internal/risk/profit.go
// ============================================
package risk

import (
	"fmt"
	"sort"

	"wti-trading-bot/pkg/types"

	"github.com/rs/zerolog"
)

// ProfitManager runs the partial take-profit ladder and the trailing stop
// for every tracked ticket. Levels only ever get added to a ticket's state
// and the trailing latch never resets, so a level fires at most once and a
// stop only tightens.
type ProfitManager struct {
	config *types.Config
	logger zerolog.Logger
	states map[int64]*types.ProfitState
}

func NewProfitManager(config *types.Config, logger zerolog.Logger) *ProfitManager {
	return &ProfitManager{
		config: config,
		logger: logger.With().Str("component", "profit").Logger(),
		states: make(map[int64]*types.ProfitState),
	}
}

// InitializePosition starts tracking a ticket. Re-initializing an already
// tracked ticket keeps its state.
func (p *ProfitManager) InitializePosition(ticket int64) {
	if _, ok := p.states[ticket]; ok {
		return
	}
	p.states[ticket] = &types.ProfitState{LevelsHit: make([]int, 0, len(p.config.TakeProfit.Levels))}
}

// RemovePosition drops a ticket once the broker no longer reports it.
func (p *ProfitManager) RemovePosition(ticket int64) {
	delete(p.states, ticket)
}

func (p *ProfitManager) Tracking(ticket int64) bool {
	_, ok := p.states[ticket]
	return ok
}

// Status returns a copy of a ticket's state.
func (p *ProfitManager) Status(ticket int64) (types.ProfitState, bool) {
	st, ok := p.states[ticket]
	if !ok {
		return types.ProfitState{}, false
	}
	return copyState(st), true
}

// Snapshot copies every tracked state, for reporting.
func (p *ProfitManager) Snapshot() map[int64]types.ProfitState {
	out := make(map[int64]types.ProfitState, len(p.states))
	for t, st := range p.states {
		out[t] = copyState(st)
	}
	return out
}

// CheckPartialTP returns one partial close per level newly reached, in
// configured order. Several levels can fire on one call after a gap.
func (p *ProfitManager) CheckPartialTP(ticket int64, entry, currentPrice float64, side types.Side, atr, initialVolume float64) []types.PartialCloseAction {
	st, ok := p.states[ticket]
	if !ok || !p.config.TakeProfit.Enabled {
		return nil
	}
	if atr <= 0 {
		return nil
	}

	profitATR := profitPoints(entry, currentPrice, side) / atr
	if profitATR > st.HighestProfitInATRUnits {
		st.HighestProfitInATRUnits = profitATR
	}

	var actions []types.PartialCloseAction
	for i, level := range p.config.TakeProfit.Levels {
		if st.HasLevel(i) || profitATR < level.TargetATRMultiple {
			continue
		}
		actions = append(actions, types.PartialCloseAction{
			Ticket: ticket,
			Volume: initialVolume * level.ClosePercentage,
			Level:  i,
			Reason: fmt.Sprintf("TP level %d hit (%gx ATR)", i+1, level.TargetATRMultiple),
		})
		st.LevelsHit = append(st.LevelsHit, i)

		p.logger.Info().
			Int64("ticket", ticket).
			Int("level", i+1).
			Float64("profit_atr", profitATR).
			Msg("take-profit level reached")
	}
	return actions
}

// CheckTrailingStop latches the trail once profit reaches the activation
// multiple and then proposes a stop trail_atr_multiple ATRs behind price.
// It returns nil unless the proposal tightens the current stop.
func (p *ProfitManager) CheckTrailingStop(ticket int64, entry, currentPrice float64, side types.Side, currentStop, atr float64) *types.ModifyStopAction {
	st, ok := p.states[ticket]
	ts := p.config.TakeProfit.TrailingStop
	if !ok || !ts.Enabled {
		return nil
	}
	if atr <= 0 {
		return nil
	}

	profitATR := profitPoints(entry, currentPrice, side) / atr
	if !st.TrailingActive && profitATR >= ts.ActivationATRMultiple {
		st.TrailingActive = true
		p.logger.Info().Int64("ticket", ticket).Float64("profit_atr", profitATR).Msg("trailing stop activated")
	}
	if !st.TrailingActive {
		return nil
	}

	distance := atr * ts.TrailATRMultiple
	var candidate float64
	var tighter bool
	switch side {
	case types.SideBuy:
		candidate = currentPrice - distance
		tighter = candidate > currentStop
	case types.SideSell:
		candidate = currentPrice + distance
		tighter = currentStop == 0 || candidate < currentStop
	default:
		return nil
	}
	if !tighter {
		return nil
	}

	return &types.ModifyStopAction{
		Ticket:  ticket,
		NewStop: candidate,
		Reason:  fmt.Sprintf("trailing stop update (trail at %gx ATR)", ts.TrailATRMultiple),
	}
}

// RemainingVolume is initialVolume less every fired level's close fraction.
func (p *ProfitManager) RemainingVolume(ticket int64, initialVolume float64) float64 {
	st, ok := p.states[ticket]
	if !ok {
		return initialVolume
	}

	closed := 0.0
	for _, i := range st.LevelsHit {
		if i < len(p.config.TakeProfit.Levels) {
			closed += p.config.TakeProfit.Levels[i].ClosePercentage
		}
	}
	remaining := initialVolume * (1 - closed)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func profitPoints(entry, current float64, side types.Side) float64 {
	if side == types.SideSell {
		return entry - current
	}
	return current - entry
}

func copyState(st *types.ProfitState) types.ProfitState {
	out := *st
	out.LevelsHit = append([]int(nil), st.LevelsHit...)
	sort.Ints(out.LevelsHit)
	return out
}
