// File: internal/broker/paper.go
// ============================================
package broker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"wti-trading-bot/pkg/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BarSource supplies market data to the paper terminal.
type BarSource interface {
	FetchRecentBars(ctx context.Context, count int) ([]types.PriceBar, error)
}

type paperPosition struct {
	types.BrokerPosition
	dealID string
}

// PaperConnector simulates a terminal in memory: fills at the latest close,
// realizes PnL into the balance on close and never touches a real account.
// Bars come from an optional upstream source (e.g. the bridge) or from
// SetBars/AppendBar.
type PaperConnector struct {
	mu        sync.Mutex
	source    BarSource
	symbol    string
	magic     int64
	spec      types.SymbolSpec
	balance   float64
	currency  string
	bars      []types.PriceBar
	positions map[int64]*paperPosition
	nextTick  int64
	failures  map[string]error
	connected bool
	logger    zerolog.Logger
}

func NewPaperConnector(config *types.Config, balance float64, source BarSource, logger zerolog.Logger) *PaperConnector {
	return &PaperConnector{
		source: source,
		symbol: config.Symbol,
		magic:  config.MetaTrader.MagicNumber,
		spec: types.SymbolSpec{
			Symbol:       config.Symbol,
			PointSize:    0.01,
			Digits:       2,
			ContractSize: 100,
			MinLot:       0.01,
			MaxLot:       100,
			LotStep:      0.01,
		},
		balance:   balance,
		currency:  "USD",
		positions: make(map[int64]*paperPosition),
		nextTick:  1000,
		failures:  make(map[string]error),
		logger:    logger.With().Str("component", "paper").Logger(),
	}
}

func (p *PaperConnector) Name() string { return "paper" }

// SetSymbolSpec overrides the simulated contract metadata.
func (p *PaperConnector) SetSymbolSpec(spec types.SymbolSpec) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spec = spec
}

// SetBars replaces the local bar history and reprices open positions.
func (p *PaperConnector) SetBars(bars []types.PriceBar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars = append([]types.PriceBar(nil), bars...)
	p.repriceLocked()
}

// AppendBar pushes one bar and reprices open positions.
func (p *PaperConnector) AppendBar(bar types.PriceBar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars = append(p.bars, bar)
	p.repriceLocked()
}

// FailNext makes the next call of op ("bars", "account", "symbol", "order",
// "close", "modify", "positions") return err.
func (p *PaperConnector) FailNext(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op] = err
}

func (p *PaperConnector) takeFailure(op string) error {
	err, ok := p.failures[op]
	if !ok {
		return nil
	}
	delete(p.failures, op)
	return err
}

// Connect also connects the bar source when it is a full Connector.
func (p *PaperConnector) Connect(ctx context.Context) error {
	if c, ok := p.source.(Connector); ok {
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	p.logger.Info().Float64("balance", p.balance).Msg("paper terminal ready")
	return nil
}

func (p *PaperConnector) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	if c, ok := p.source.(Connector); ok {
		return c.Disconnect(ctx)
	}
	return nil
}

// Connected reports whether Connect succeeded and Disconnect was not called.
func (p *PaperConnector) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *PaperConnector) FetchRecentBars(ctx context.Context, count int) ([]types.PriceBar, error) {
	p.mu.Lock()
	if err := p.takeFailure("bars"); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	source := p.source
	p.mu.Unlock()

	if source != nil {
		bars, err := source.FetchRecentBars(ctx, count)
		if err != nil {
			return nil, err
		}
		p.SetBars(bars)
		return bars, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.bars) == 0 {
		return nil, fmt.Errorf("%w: paper terminal has no bars", types.ErrConnectivity)
	}
	start := 0
	if count > 0 && len(p.bars) > count {
		start = len(p.bars) - count
	}
	return append([]types.PriceBar(nil), p.bars[start:]...), nil
}

func (p *PaperConnector) AccountSnapshot(ctx context.Context) (types.AccountSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("account"); err != nil {
		return types.AccountSnapshot{}, err
	}

	floating := 0.0
	for _, pos := range p.positions {
		floating += pos.Profit
	}
	return types.AccountSnapshot{
		Balance:    p.balance,
		Equity:     p.balance + floating,
		FreeMargin: p.balance + floating,
		Profit:     floating,
		Currency:   p.currency,
	}, nil
}

func (p *PaperConnector) SymbolSpec(ctx context.Context) (types.SymbolSpec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("symbol"); err != nil {
		return types.SymbolSpec{}, err
	}
	spec := p.spec
	if px := p.lastPriceLocked(); px > 0 {
		spec.Bid, spec.Ask = px, px
	}
	return spec, nil
}

func (p *PaperConnector) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("order"); err != nil {
		return types.OrderResult{}, err
	}
	if req.Side != types.SideBuy && req.Side != types.SideSell {
		return types.OrderResult{}, fmt.Errorf("%w: invalid side %q", types.ErrOrderRejected, req.Side)
	}
	if req.Volume < p.spec.MinLot || req.Volume > p.spec.MaxLot {
		return types.OrderResult{}, fmt.Errorf("%w: volume %.2f outside [%.2f, %.2f]", types.ErrOrderRejected, req.Volume, p.spec.MinLot, p.spec.MaxLot)
	}

	price := p.lastPriceLocked()
	if price <= 0 {
		price = req.Price
	}
	if price <= 0 {
		return types.OrderResult{}, fmt.Errorf("%w: no price to fill at", types.ErrOrderRejected)
	}

	p.nextTick++
	ticket := p.nextTick
	symbol := req.Symbol
	if symbol == "" {
		symbol = p.symbol
	}
	magic := req.Magic
	if magic == 0 {
		magic = p.magic
	}
	deal := &paperPosition{
		BrokerPosition: types.BrokerPosition{
			Ticket:       ticket,
			Symbol:       symbol,
			Side:         req.Side,
			Volume:       req.Volume,
			EntryPrice:   price,
			CurrentPrice: price,
			StopLoss:     req.StopLoss,
			TakeProfit:   req.TakeProfit,
			Magic:        magic,
			Comment:      req.Comment,
		},
		dealID: uuid.New().String(),
	}
	p.positions[ticket] = deal

	p.logger.Info().
		Int64("ticket", ticket).
		Str("deal", deal.dealID).
		Str("side", string(req.Side)).
		Float64("volume", req.Volume).
		Float64("price", price).
		Msg("paper fill")
	return types.OrderResult{
		Ticket:     ticket,
		Price:      price,
		Volume:     req.Volume,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Comment:    req.Comment,
	}, nil
}

func (p *PaperConnector) ClosePosition(ctx context.Context, ticket int64, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("close"); err != nil {
		return err
	}

	pos, ok := p.positions[ticket]
	if !ok {
		return fmt.Errorf("%w: position %d not found", types.ErrOrderRejected, ticket)
	}
	if volume <= 0 || volume >= pos.Volume-1e-9 {
		volume = pos.Volume
	}

	p.balance += p.pnlLocked(pos.BrokerPosition, pos.CurrentPrice, volume)
	pos.Volume = math.Round((pos.Volume-volume)*1e8) / 1e8
	if pos.Volume <= 0 {
		delete(p.positions, ticket)
	} else {
		pos.Profit = p.pnlLocked(pos.BrokerPosition, pos.CurrentPrice, pos.Volume)
	}
	return nil
}

func (p *PaperConnector) ModifyStop(ctx context.Context, ticket int64, newStop, newTakeProfit float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("modify"); err != nil {
		return err
	}

	pos, ok := p.positions[ticket]
	if !ok {
		return fmt.Errorf("%w: position %d not found", types.ErrOrderRejected, ticket)
	}
	if newStop > 0 {
		pos.StopLoss = newStop
	}
	if newTakeProfit > 0 {
		pos.TakeProfit = newTakeProfit
	}
	return nil
}

func (p *PaperConnector) OpenPositions(ctx context.Context) ([]types.BrokerPosition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure("positions"); err != nil {
		return nil, err
	}

	out := make([]types.BrokerPosition, 0, len(p.positions))
	for _, pos := range p.positions {
		if pos.Symbol == p.symbol {
			out = append(out, pos.BrokerPosition)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

// InjectPosition places a position directly, as if opened outside this process.
func (p *PaperConnector) InjectPosition(pos types.BrokerPosition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos.Ticket == 0 {
		p.nextTick++
		pos.Ticket = p.nextTick
	}
	if pos.Symbol == "" {
		pos.Symbol = p.symbol
	}
	p.positions[pos.Ticket] = &paperPosition{BrokerPosition: pos, dealID: uuid.New().String()}
}

// Balance returns the realized balance.
func (p *PaperConnector) Balance() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

// SetBalance overrides the realized balance, e.g. to simulate a drawdown.
func (p *PaperConnector) SetBalance(balance float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = balance
}

// repriceLocked marks positions to the last close and applies SL/TP hits.
func (p *PaperConnector) repriceLocked() {
	price := p.lastPriceLocked()
	if price <= 0 {
		return
	}
	for ticket, pos := range p.positions {
		pos.CurrentPrice = price
		pos.Profit = p.pnlLocked(pos.BrokerPosition, price, pos.Volume)
		if hit, reason := stopHit(pos.BrokerPosition, price); hit {
			p.balance += pos.Profit
			delete(p.positions, ticket)
			p.logger.Info().Int64("ticket", ticket).Str("reason", reason).Float64("price", price).Msg("paper position closed by terminal")
		}
	}
}

func (p *PaperConnector) lastPriceLocked() float64 {
	if len(p.bars) == 0 {
		return 0
	}
	return p.bars[len(p.bars)-1].Close
}

func (p *PaperConnector) pnlLocked(pos types.BrokerPosition, price, volume float64) float64 {
	contract := p.spec.ContractSize
	if contract <= 0 {
		contract = 1
	}
	diff := price - pos.EntryPrice
	if pos.Side == types.SideSell {
		diff = -diff
	}
	return diff * volume * contract
}

func stopHit(pos types.BrokerPosition, price float64) (bool, string) {
	switch pos.Side {
	case types.SideBuy:
		if pos.StopLoss > 0 && price <= pos.StopLoss {
			return true, "stop loss"
		}
		if pos.TakeProfit > 0 && price >= pos.TakeProfit {
			return true, "take profit"
		}
	case types.SideSell:
		if pos.StopLoss > 0 && price >= pos.StopLoss {
			return true, "stop loss"
		}
		if pos.TakeProfit > 0 && price <= pos.TakeProfit {
			return true, "take profit"
		}
	}
	return false, ""
}
