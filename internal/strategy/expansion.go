// File: internal/strategy/expansion.go
// ============================================
package strategy

import (
	"wti-trading-bot/pkg/types"

	"github.com/rs/zerolog"
)

// IndicatorSeries holds every series aligned 1:1 with the analysed bars.
type IndicatorSeries struct {
	ATR             []float64
	Compression     []bool
	Expansion       []bool
	Resistance      []float64
	Support         []float64
	BullishBreakout []bool
	BearishBreakout []bool
	Momentum        []float64
	UpperBand       []float64
	MiddleBand      []float64
	LowerBand       []float64
	BandWidth       []float64
}

// Analysis is the result of one pass over a bar window.
type Analysis struct {
	Series          IndicatorSeries
	Signal          types.Signal
	CurrentPrice    float64
	CurrentATR      float64
	DataUnavailable bool
}

// VolatilityExpansionStrategy trades a volatility expansion out of a
// compression when it coincides with a structural breakout in the direction
// of momentum.
type VolatilityExpansionStrategy struct {
	config *types.Config
	logger zerolog.Logger
}

func NewVolatilityExpansionStrategy(config *types.Config, logger zerolog.Logger) *VolatilityExpansionStrategy {
	return &VolatilityExpansionStrategy{
		config: config,
		logger: logger.With().Str("component", "strategy").Logger(),
	}
}

// MinBars is the shortest window for which the last bar's ATR, levels and
// momentum are all defined.
func (s *VolatilityExpansionStrategy) MinBars() int {
	n := 2
	if p := s.config.Risk.ATRPeriod; p > n {
		n = p
	}
	if p := s.config.Strategy.Breakout.LookbackPeriod + 1; p > n {
		n = p
	}
	if p := s.config.Strategy.Breakout.MomentumPeriod + 1; p > n {
		n = p
	}
	return n
}

// Analyze computes the full indicator set and evaluates the last bar only.
func (s *VolatilityExpansionStrategy) Analyze(bars []types.PriceBar) Analysis {
	n := len(bars)
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i, b := range bars {
		high[i] = b.High
		low[i] = b.Low
		close[i] = b.Close
	}

	vol := s.config.Strategy.Volatility
	brk := s.config.Strategy.Breakout
	bb := s.config.Strategy.Bollinger

	series := IndicatorSeries{}
	series.ATR = CalculateATR(high, low, close, s.config.Risk.ATRPeriod)
	series.Compression = DetectCompression(series.ATR, vol.CompressionPeriod, vol.CompressionThreshold)
	series.Expansion = DetectExpansion(series.ATR, series.Compression, vol.ExpansionMultiplier)
	series.Resistance, series.Support = CalculateSupportResistance(high, low, brk.LookbackPeriod)
	series.BullishBreakout = DetectBullishBreakout(close, series.Resistance, series.ATR, brk.MinBreakoutSize)
	series.BearishBreakout = DetectBearishBreakout(close, series.Support, series.ATR, brk.MinBreakoutSize)
	series.Momentum = CalculateMomentum(close, brk.MomentumPeriod)
	series.UpperBand, series.MiddleBand, series.LowerBand = CalculateBollingerBands(close, bb.Period, bb.StdDev)
	series.BandWidth = CalculateBandWidth(series.UpperBand, series.LowerBand, series.MiddleBand)

	analysis := Analysis{
		Series: series,
		Signal: types.Signal{Kind: types.SideNone},
	}
	if n == 0 {
		analysis.DataUnavailable = true
		return analysis
	}

	last := n - 1
	analysis.CurrentPrice = close[last]
	analysis.CurrentATR = series.ATR[last]
	analysis.Signal.Timestamp = bars[last].Timestamp
	analysis.Signal.CurrentATR = analysis.CurrentATR

	if n < s.MinBars() {
		analysis.DataUnavailable = true
		s.logger.Debug().Int("bars", n).Int("need", s.MinBars()).Msg("not enough bars for a signal")
		return analysis
	}

	expansion := series.Expansion[last]
	momentum := series.Momentum[last]

	// BUY is evaluated first and wins if both could ever hold.
	var kind types.Side
	switch {
	case expansion && series.BullishBreakout[last] && momentum > 0:
		kind = types.SideBuy
	case expansion && series.BearishBreakout[last] && momentum < 0:
		kind = types.SideSell
	default:
		return analysis
	}

	entry := s.CalculateEntryPrice(kind, analysis.CurrentPrice)
	analysis.Signal.Kind = kind
	analysis.Signal.EntryPrice = entry
	analysis.Signal.StopLoss = s.CalculateStopLoss(entry, kind, analysis.CurrentATR)
	analysis.Signal.TakeProfitLevels = s.CalculateTakeProfitLevels(entry, kind, analysis.CurrentATR)

	s.logger.Info().
		Str("signal", string(kind)).
		Float64("entry", entry).
		Float64("stop", analysis.Signal.StopLoss).
		Float64("atr", analysis.CurrentATR).
		Float64("momentum", momentum).
		Msg("signal generated")
	return analysis
}

// CalculateEntryPrice - market order semantics, entry is the current price.
func (s *VolatilityExpansionStrategy) CalculateEntryPrice(side types.Side, currentPrice float64) float64 {
	return currentPrice
}

func (s *VolatilityExpansionStrategy) CalculateStopLoss(entry float64, side types.Side, atr float64) float64 {
	distance := atr * s.config.Risk.StopLossATRMultiple
	if side == types.SideBuy {
		return entry - distance
	}
	return entry + distance
}

// CalculateTakeProfitLevels projects every configured level from the entry.
func (s *VolatilityExpansionStrategy) CalculateTakeProfitLevels(entry float64, side types.Side, atr float64) []types.TakeProfitLevel {
	levels := make([]types.TakeProfitLevel, 0, len(s.config.TakeProfit.Levels))
	for _, l := range s.config.TakeProfit.Levels {
		distance := atr * l.TargetATRMultiple
		price := entry + distance
		if side == types.SideSell {
			price = entry - distance
		}
		levels = append(levels, types.TakeProfitLevel{
			Price:         price,
			CloseFraction: l.ClosePercentage,
			ATRMultiple:   l.TargetATRMultiple,
		})
	}
	return levels
}
