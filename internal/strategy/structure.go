// File: internal/strategy/structure.go
// ============================================
package strategy

// CalculateSupportResistance - rolling levels over the lookback bars strictly
// before i. Zero until the window is full.
func CalculateSupportResistance(high, low []float64, lookback int) (resistance, support []float64) {
	n := len(high)
	if len(low) < n {
		n = len(low)
	}
	resistance = make([]float64, n)
	support = make([]float64, n)
	if lookback < 1 {
		return resistance, support
	}

	for i := lookback; i < n; i++ {
		hi := high[i-lookback]
		lo := low[i-lookback]
		for j := i - lookback + 1; j < i; j++ {
			if high[j] > hi {
				hi = high[j]
			}
			if low[j] < lo {
				lo = low[j]
			}
		}
		resistance[i] = hi
		support[i] = lo
	}
	return resistance, support
}

// DetectBullishBreakout - close crosses above the prior bar's resistance by
// at least minSizeATR times the current ATR.
func DetectBullishBreakout(close, resistance, atr []float64, minSizeATR float64) []bool {
	n := minLen(close, resistance, atr)
	breakouts := make([]bool, len(close))

	for i := 1; i < n; i++ {
		level := resistance[i-1]
		if level <= 0 || close[i-1] >= level || close[i] <= level {
			continue
		}
		if atr[i] > 0 {
			breakouts[i] = (close[i]-level)/atr[i] >= minSizeATR
		}
	}
	return breakouts
}

// DetectBearishBreakout - mirror of DetectBullishBreakout against support.
func DetectBearishBreakout(close, support, atr []float64, minSizeATR float64) []bool {
	n := minLen(close, support, atr)
	breakouts := make([]bool, len(close))

	for i := 1; i < n; i++ {
		level := support[i-1]
		if level <= 0 || close[i-1] <= level || close[i] >= level {
			continue
		}
		if atr[i] > 0 {
			breakouts[i] = (level-close[i])/atr[i] >= minSizeATR
		}
	}
	return breakouts
}

// CalculateMomentum - close[i] - close[i-period], zero during warm-up.
func CalculateMomentum(close []float64, period int) []float64 {
	momentum := make([]float64, len(close))
	if period < 1 {
		return momentum
	}
	for i := period; i < len(close); i++ {
		momentum[i] = close[i] - close[i-period]
	}
	return momentum
}
