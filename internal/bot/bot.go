// File: internal/bot/bot.go
// ============================================
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"wti-trading-bot/internal/broker"
	"wti-trading-bot/internal/filters"
	"wti-trading-bot/internal/metrics"
	"wti-trading-bot/internal/risk"
	"wti-trading-bot/internal/strategy"
	"wti-trading-bot/pkg/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const reasonNoAccount = "failed to get account info"

// Notifier receives trading events. A nil Notifier in Options disables them.
type Notifier interface {
	NotifyStart(symbol, mode string, balance float64) error
	NotifySignal(signal types.Signal) error
	NotifyPositionOpened(pos types.Position) error
	NotifyPartialClose(action types.PartialCloseAction) error
	NotifyTrailingStop(action types.ModifyStopAction) error
	NotifyRiskBlocked(reason string) error
	NotifyError(msg string) error
	NotifyShutdown(openPositions int) error
}

// Options carries the collaborators of a Bot.
type Options struct {
	Connector broker.Connector
	Notifier  Notifier
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Bot is the orchestrator. Trading state is owned by the goroutine running
// Run; other goroutines only read the published Snapshot.
type Bot struct {
	config    *types.Config
	connector broker.Connector
	strategy  *strategy.VolatilityExpansionStrategy
	risk      *risk.Manager
	profit    *risk.ProfitManager
	filters   []filters.Filter
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time

	positions   map[int64]*types.Position
	lastBalance float64
	lastStats   time.Time
	riskBlocked string
	ticks       int64

	mu       sync.RWMutex
	snapshot Snapshot
}

func New(config *types.Config, opts Options) *Bot {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := opts.Logger
	b := &Bot{
		config:    config,
		connector: opts.Connector,
		strategy:  strategy.NewVolatilityExpansionStrategy(config, logger),
		risk:      risk.NewManager(config, logger),
		profit:    risk.NewProfitManager(config, logger),
		filters: []filters.Filter{
			filters.NewSessionFilter(config),
			filters.NewNewsCalendar(config),
		},
		notifier:  notifier,
		metrics:   m,
		logger:    logger.With().Str("component", "bot").Logger(),
		now:       clock,
		positions: make(map[int64]*types.Position),
	}
	b.snapshot = Snapshot{Mode: config.Bot.Mode, Symbol: config.Symbol}
	return b
}

// Start connects the terminal and reports the opening account.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.connector.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", b.connector.Name(), err)
	}

	balance := 0.0
	if account, err := b.connector.AccountSnapshot(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("account info unavailable at startup")
	} else {
		balance = account.Balance
		b.logger.Info().
			Float64("balance", account.Balance).
			Float64("equity", account.Equity).
			Str("currency", account.Currency).
			Msg("account connected")
	}

	b.lastStats = b.now()
	b.logger.Info().
		Str("symbol", b.config.Symbol).
		Str("timeframe", b.config.Timeframe).
		Str("mode", b.config.Bot.Mode).
		Str("connector", b.connector.Name()).
		Msg("WTI volatility expansion bot initialized")
	_ = b.notifier.NotifyStart(b.config.Symbol, b.config.Bot.Mode, balance)
	return nil
}

// Run ticks every bot.check_interval seconds until ctx is cancelled. A tick
// in flight always completes; cancellation is observed before each tick and
// during the wait.
func (b *Bot) Run(ctx context.Context) error {
	interval := time.Duration(b.config.Bot.CheckIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	b.setRunning(true)
	defer b.setRunning(false)
	b.logger.Info().Dur("interval", interval).Msg("starting main loop")

	// Tick I/O is not tied to shutdown so a tick is never half applied.
	tickCtx := context.WithoutCancel(ctx)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("received shutdown signal")
			return nil
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return nil
		}

		b.Tick(tickCtx)
		timer.Reset(interval)
	}
}

// Shutdown disconnects the terminal. Open positions are left to their
// broker-side stops.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.logger.Info().Int("open_positions", len(b.positions)).Msg("shutting down trading bot")
	_ = b.notifier.NotifyShutdown(len(b.positions))
	if err := b.connector.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect %s: %w", b.connector.Name(), err)
	}
	b.logger.Info().Msg("trading bot shutdown complete")
	return nil
}

// Tick runs one control cycle: filters, analysis, execution, then position
// management. Errors are logged and end the affected step only.
func (b *Bot) Tick(ctx context.Context) {
	now := b.now().UTC()

	allowed, statuses, account, hasAccount := b.checkFilters(ctx, now)

	analysis, analyzed := b.analyzeMarket(ctx)
	if allowed && analyzed && analysis.Signal.Kind != types.SideNone {
		b.logger.Info().Str("signal", string(analysis.Signal.Kind)).Msg("signal detected")
		b.executeSignal(ctx, analysis.Signal, account, now)
	} else if !allowed {
		for _, s := range statuses {
			if !s.Allowed {
				b.logger.Info().Str("filter", s.Name).Str("reason", s.Reason).Msg("filter blocked")
			}
		}
	}

	atr := 0.0
	if analyzed {
		atr = analysis.CurrentATR
	}
	b.managePositions(ctx, atr, now)

	if hasAccount && now.Sub(b.lastStats) >= b.statsInterval() {
		b.logStatistics(account)
		b.lastStats = now
	}

	b.ticks++
	b.metrics.Ticks.Inc()
	b.metrics.OpenPositions.Set(float64(len(b.positions)))
	b.publish(now, allowed, statuses, analysis, analyzed, account, hasAccount)
}

// checkFilters evaluates every filter without short-circuiting so each
// reason is visible, then the risk gate against the live balance.
func (b *Bot) checkFilters(ctx context.Context, now time.Time) (bool, []FilterStatus, types.AccountSnapshot, bool) {
	allowed := true
	statuses := make([]FilterStatus, 0, len(b.filters)+1)

	for _, f := range b.filters {
		res := f.Check(now)
		statuses = append(statuses, FilterStatus{Name: f.Name(), Allowed: res.Allowed, Reason: res.Reason})
		if !res.Allowed {
			allowed = false
			b.metrics.FilterBlocks.WithLabelValues(f.Name()).Inc()
		}
	}

	account, err := b.connector.AccountSnapshot(ctx)
	if err != nil {
		b.connectorError("account", err)
		statuses = append(statuses, FilterStatus{Name: "risk", Allowed: false, Reason: reasonNoAccount})
		b.metrics.FilterBlocks.WithLabelValues("risk").Inc()
		return false, statuses, types.AccountSnapshot{}, false
	}

	b.metrics.Balance.Set(account.Balance)
	b.metrics.Equity.Set(account.Equity)

	res := b.risk.CanTrade(account.Balance, now)
	if b.lastBalance > 0 {
		b.risk.UpdateDailyPnL(account.Balance - b.lastBalance)
	}
	b.lastBalance = account.Balance

	statuses = append(statuses, FilterStatus{Name: "risk", Allowed: res.Allowed, Reason: res.Reason})
	if !res.Allowed {
		allowed = false
		b.metrics.FilterBlocks.WithLabelValues("risk").Inc()
		if res.Reason != b.riskBlocked {
			_ = b.notifier.NotifyRiskBlocked(res.Reason)
		}
		b.riskBlocked = res.Reason
	} else {
		b.riskBlocked = ""
	}

	stats := b.risk.Statistics(account.Balance)
	b.metrics.DailyDrawdown.Set(stats.DailyDrawdown)
	b.metrics.TotalDrawdown.Set(stats.TotalDrawdown)
	return allowed, statuses, account, true
}

func (b *Bot) analyzeMarket(ctx context.Context) (strategy.Analysis, bool) {
	bars, err := b.connector.FetchRecentBars(ctx, b.config.MetaTrader.BarsCount)
	if err != nil {
		b.connectorError("bars", err)
		return strategy.Analysis{Signal: types.Signal{Kind: types.SideNone}}, false
	}

	analysis := b.strategy.Analyze(bars)
	if analysis.DataUnavailable {
		b.logger.Debug().Int("bars", len(bars)).Msg("insufficient history, no signal this tick")
	}
	b.metrics.CurrentATR.Set(analysis.CurrentATR)
	b.metrics.Signals.WithLabelValues(string(analysis.Signal.Kind)).Inc()
	return analysis, true
}

func (b *Bot) executeSignal(ctx context.Context, signal types.Signal, account types.AccountSnapshot, now time.Time) {
	side := signal.Kind
	spec, err := b.connector.SymbolSpec(ctx)
	if err != nil {
		b.connectorError("symbol", err)
		return
	}

	volume := b.risk.CalculatePositionSize(account.Balance, signal.EntryPrice, signal.StopLoss, spec)
	takeProfit := 0.0
	if len(signal.TakeProfitLevels) > 0 {
		takeProfit = signal.TakeProfitLevels[0].Price
	}
	_ = b.notifier.NotifySignal(signal)

	req := types.OrderRequest{
		Symbol:     b.config.Symbol,
		Side:       side,
		Volume:     volume,
		Price:      signal.EntryPrice,
		StopLoss:   signal.StopLoss,
		TakeProfit: takeProfit,
		Comment:    "VE-" + string(side),
		Magic:      b.config.MetaTrader.MagicNumber,
		Deviation:  b.config.MetaTrader.Deviation,
		ClientID:   uuid.New().String(),
	}
	b.logger.Info().
		Str("side", string(side)).
		Float64("entry", signal.EntryPrice).
		Float64("stop", signal.StopLoss).
		Float64("take_profit", takeProfit).
		Float64("lots", volume).
		Str("client_id", req.ClientID).
		Msg("placing order")

	result, err := b.connector.PlaceOrder(ctx, req)
	if err != nil {
		b.metrics.Orders.WithLabelValues(string(side), "rejected").Inc()
		if !errors.Is(err, types.ErrOrderRejected) {
			b.connectorError("order", err)
		} else {
			b.logger.Error().Err(err).Msg("failed to open position")
		}
		_ = b.notifier.NotifyError(fmt.Sprintf("Failed to open %s: %v", side, err))
		return
	}
	b.metrics.Orders.WithLabelValues(string(side), "filled").Inc()

	entry := result.Price
	if entry <= 0 {
		entry = signal.EntryPrice
	}
	filled := result.Volume
	if filled <= 0 {
		filled = volume
	}
	pos := &types.Position{
		Ticket:           result.Ticket,
		Side:             side,
		EntryPrice:       entry,
		CurrentPrice:     entry,
		CurrentVolume:    filled,
		InitialVolume:    filled,
		StopLoss:         signal.StopLoss,
		TakeProfit:       takeProfit,
		TakeProfitLevels: signal.TakeProfitLevels,
		EntryATR:         signal.CurrentATR,
		EntryTime:        now,
	}
	b.positions[pos.Ticket] = pos
	b.profit.InitializePosition(pos.Ticket)

	b.logger.Info().Int64("ticket", pos.Ticket).Float64("price", entry).Float64("lots", filled).Msg("position opened")
	_ = b.notifier.NotifyPositionOpened(*pos)
}

// managePositions reconciles the position table with the terminal, then runs
// the partial take-profit ladder and the trailing stop per ticket.
func (b *Bot) managePositions(ctx context.Context, atr float64, now time.Time) {
	open, err := b.connector.OpenPositions(ctx)
	if err != nil {
		b.connectorError("positions", err)
		return
	}

	seen := make(map[int64]bool, len(open))
	for _, bp := range open {
		if bp.Magic != b.config.MetaTrader.MagicNumber {
			continue
		}
		seen[bp.Ticket] = true

		pos, ok := b.positions[bp.Ticket]
		if !ok {
			pos = &types.Position{
				Ticket:        bp.Ticket,
				Side:          bp.Side,
				EntryPrice:    bp.EntryPrice,
				InitialVolume: bp.Volume,
				TakeProfit:    bp.TakeProfit,
				EntryATR:      atr,
				EntryTime:     now,
				Adopted:       true,
			}
			b.positions[bp.Ticket] = pos
			b.profit.InitializePosition(bp.Ticket)
			b.logger.Info().Int64("ticket", bp.Ticket).Str("side", string(bp.Side)).Msg("adopted untracked position")
		}
		pos.CurrentPrice = bp.CurrentPrice
		pos.CurrentVolume = bp.Volume
		pos.StopLoss = bp.StopLoss

		b.applyPartialTP(ctx, pos, atr)
		if pos.CurrentVolume > 0 {
			b.applyTrailingStop(ctx, pos, atr)
		}
	}

	for ticket := range b.positions {
		if seen[ticket] {
			continue
		}
		b.logger.Info().Int64("ticket", ticket).Msg("position closed")
		b.profit.RemovePosition(ticket)
		delete(b.positions, ticket)
	}
}

func (b *Bot) applyPartialTP(ctx context.Context, pos *types.Position, atr float64) {
	actions := b.profit.CheckPartialTP(pos.Ticket, pos.EntryPrice, pos.CurrentPrice, pos.Side, atr, pos.InitialVolume)
	for _, action := range actions {
		volume := action.Volume
		if volume > pos.CurrentVolume {
			volume = pos.CurrentVolume
		}
		if volume <= 0 {
			continue
		}

		b.logger.Info().Int64("ticket", pos.Ticket).Float64("lots", volume).Str("reason", action.Reason).Msg("executing partial close")
		if err := b.connector.ClosePosition(ctx, pos.Ticket, volume); err != nil {
			b.metrics.PartialCloses.WithLabelValues(metrics.ResultFailed).Inc()
			b.logger.Error().Err(err).Int64("ticket", pos.Ticket).Int("level", action.Level+1).Msg("partial close failed")
			continue
		}
		b.metrics.PartialCloses.WithLabelValues(metrics.ResultOK).Inc()
		pos.CurrentVolume -= volume
		_ = b.notifier.NotifyPartialClose(action)
	}
}

func (b *Bot) applyTrailingStop(ctx context.Context, pos *types.Position, atr float64) {
	action := b.profit.CheckTrailingStop(pos.Ticket, pos.EntryPrice, pos.CurrentPrice, pos.Side, pos.StopLoss, atr)
	if action == nil {
		return
	}

	b.logger.Info().Int64("ticket", pos.Ticket).Float64("new_stop", action.NewStop).Str("reason", action.Reason).Msg("updating trailing stop")
	if err := b.connector.ModifyStop(ctx, pos.Ticket, action.NewStop, 0); err != nil {
		b.metrics.StopUpdates.WithLabelValues(metrics.ResultFailed).Inc()
		b.logger.Error().Err(err).Int64("ticket", pos.Ticket).Msg("stop update failed")
		return
	}
	b.metrics.StopUpdates.WithLabelValues(metrics.ResultOK).Inc()
	pos.StopLoss = action.NewStop
	_ = b.notifier.NotifyTrailingStop(*action)
}

func (b *Bot) logStatistics(account types.AccountSnapshot) {
	stats := b.risk.Statistics(account.Balance)
	b.logger.Info().
		Float64("balance", account.Balance).
		Float64("equity", account.Equity).
		Str("currency", account.Currency).
		Int("open_positions", len(b.positions)).
		Float64("daily_pnl", stats.DailyPnL).
		Str("daily_drawdown", fmt.Sprintf("%.2f%%", stats.DailyDrawdown*100)).
		Str("total_drawdown", fmt.Sprintf("%.2f%%", stats.TotalDrawdown*100)).
		Msg("bot statistics")
}

func (b *Bot) statsInterval() time.Duration {
	if b.config.Bot.StatsIntervalSec <= 0 {
		return time.Hour
	}
	return time.Duration(b.config.Bot.StatsIntervalSec) * time.Second
}

func (b *Bot) connectorError(op string, err error) {
	b.metrics.ConnectorErrors.WithLabelValues(op).Inc()
	b.logger.Error().Err(err).Str("op", op).Msg("connector call failed, skipping step")
}

func (b *Bot) sortedTickets() []int64 {
	tickets := make([]int64, 0, len(b.positions))
	for t := range b.positions {
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i] < tickets[j] })
	return tickets
}

type nopNotifier struct{}

func (nopNotifier) NotifyStart(string, string, float64) error { return nil }
func (nopNotifier) NotifySignal(types.Signal) error { return nil }
func (nopNotifier) NotifyPositionOpened(types.Position) error { return nil }
func (nopNotifier) NotifyPartialClose(types.PartialCloseAction) error { return nil }
func (nopNotifier) NotifyTrailingStop(types.ModifyStopAction) error { return nil }
func (nopNotifier) NotifyRiskBlocked(string) error { return nil }
func (nopNotifier) NotifyError(string) error { return nil }
func (nopNotifier) NotifyShutdown(int) error { return nil }
