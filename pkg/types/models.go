// File: pkg/types/models.go
// ============================================
package types

import "time"

// Side is the direction of a signal or position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideNone Side = "NONE"
)

// Opposite returns the closing side for a position side.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	}
	return SideNone
}

// PriceBar is one OHLCV bar. Sequences are ordered oldest-first.
type PriceBar struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// TakeProfitLevel is one rung of the partial take-profit ladder.
type TakeProfitLevel struct {
	Price         float64 `json:"price"`
	CloseFraction float64 `json:"close_fraction"`
	ATRMultiple   float64 `json:"atr_multiple"`
}

// Signal is derived fresh on every tick and never persisted.
type Signal struct {
	Kind             Side              `json:"kind"`
	EntryPrice       float64           `json:"entry_price"`
	StopLoss         float64           `json:"stop_loss"`
	TakeProfitLevels []TakeProfitLevel `json:"take_profit_levels"`
	CurrentATR       float64           `json:"current_atr"`
	Timestamp        time.Time         `json:"timestamp"`
}

// Position is a bot-managed position keyed by the broker ticket.
type Position struct {
	Ticket           int64             `json:"ticket"`
	Side             Side              `json:"side"`
	EntryPrice       float64           `json:"entry_price"`
	CurrentPrice     float64           `json:"current_price"`
	CurrentVolume    float64           `json:"current_volume"`
	InitialVolume    float64           `json:"initial_volume"`
	StopLoss         float64           `json:"stop_loss"`
	TakeProfit       float64           `json:"take_profit"`
	TakeProfitLevels []TakeProfitLevel `json:"take_profit_levels,omitempty"`
	EntryATR         float64           `json:"entry_atr"`
	EntryTime        time.Time         `json:"entry_time"`
	Adopted          bool              `json:"adopted"` // discovered at the broker, not opened by this process
}

// ProfitState tracks partial take-profit and trailing-stop progress for one ticket.
type ProfitState struct {
	LevelsHit               []int   `json:"levels_hit"`
	TrailingActive          bool    `json:"trailing_active"`
	HighestProfitInATRUnits float64 `json:"highest_profit_atr"`
}

// HasLevel reports whether level index i already fired.
func (p ProfitState) HasLevel(i int) bool {
	for _, hit := range p.LevelsHit {
		if hit == i {
			return true
		}
	}
	return false
}

// SymbolSpec carries broker contract metadata for the traded symbol.
type SymbolSpec struct {
	Symbol       string  `json:"symbol"`
	PointSize    float64 `json:"point"`
	Digits       int     `json:"digits"`
	ContractSize float64 `json:"contract_size"`
	MinLot       float64 `json:"min_lot"`
	MaxLot       float64 `json:"max_lot"`
	LotStep      float64 `json:"lot_step"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
}

type AccountSnapshot struct {
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"free_margin"`
	Profit     float64 `json:"profit"`
	Currency   string  `json:"currency"`
}

// OrderRequest describes a market order. Zero StopLoss/TakeProfit/Price mean unset.
type OrderRequest struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price,omitempty"`
	StopLoss   float64 `json:"sl,omitempty"`
	TakeProfit float64 `json:"tp,omitempty"`
	Comment    string  `json:"comment"`
	Magic      int64   `json:"magic"`
	Deviation  int     `json:"deviation"`
	ClientID   string  `json:"client_id"`
}

// OrderResult is a confirmed fill.
type OrderResult struct {
	Ticket     int64   `json:"ticket"`
	Price      float64 `json:"price"`
	Volume     float64 `json:"volume"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Comment    string  `json:"comment"`
}

// BrokerPosition is an open position as reported by the terminal.
type BrokerPosition struct {
	Ticket       int64   `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Side         Side    `json:"type"`
	Volume       float64 `json:"volume"`
	EntryPrice   float64 `json:"price_open"`
	CurrentPrice float64 `json:"price_current"`
	StopLoss     float64 `json:"sl"`
	TakeProfit   float64 `json:"tp"`
	Profit       float64 `json:"profit"`
	Magic        int64   `json:"magic"`
	Comment      string  `json:"comment"`
}

// FilterResult is the verdict of one trading gate.
type FilterResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Session string `json:"session,omitempty"`
}

// PartialCloseAction asks the connector to close part of a position.
type PartialCloseAction struct {
	Ticket int64
	Volume float64
	Level  int
	Reason string
}

// ModifyStopAction asks the connector to move a position's stop-loss.
type ModifyStopAction struct {
	Ticket  int64
	NewStop float64
	Reason  string
}

type RiskStatistics struct {
	DailyDrawdown      float64 `json:"daily_drawdown"`
	DailyDrawdownLimit float64 `json:"daily_drawdown_limit"`
	TotalDrawdown      float64 `json:"total_drawdown"`
	TotalDrawdownLimit float64 `json:"total_drawdown_limit"`
	DailyPnL           float64 `json:"daily_pnl"`
	PeakBalance        float64 `json:"peak_balance"`
	CurrentBalance     float64 `json:"current_balance"`
}
