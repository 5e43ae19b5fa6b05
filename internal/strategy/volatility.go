// File: internal/strategy/volatility.go
// ============================================
package strategy

import "math"

// TrueRange - per-bar true range; the first bar has no prior close.
func TrueRange(high, low, close []float64) []float64 {
	n := minLen(high, low, close)
	tr := make([]float64, n)
	if n == 0 {
		return tr
	}

	// Malformed bars (high < low) would otherwise yield a negative range.
	tr[0] = math.Max(high[0]-low[0], 0)
	for i := 1; i < n; i++ {
		highLow := high[i] - low[i]
		highClose := math.Abs(high[i] - close[i-1])
		lowClose := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}
	return tr
}

// CalculateATR - Average True Range series with Wilder smoothing.
// Entries before index period-1 are zero.
func CalculateATR(high, low, close []float64, period int) []float64 {
	tr := TrueRange(high, low, close)
	atr := make([]float64, len(tr))
	if period < 1 || len(tr) < period {
		return atr
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr[period-1] = sum / float64(period)

	k := 1.0 / float64(period)
	for i := period; i < len(tr); i++ {
		atr[i] = atr[i-1] + k*(tr[i]-atr[i-1])
	}
	return atr
}

// DetectCompression flags bars whose ATR is below threshold times the mean
// ATR of the preceding period bars.
func DetectCompression(atr []float64, period int, threshold float64) []bool {
	compression := make([]bool, len(atr))
	if period < 1 {
		return compression
	}

	for i := period; i < len(atr); i++ {
		sum := 0.0
		for j := i - period; j < i; j++ {
			sum += atr[j]
		}
		avg := sum / float64(period)
		if avg > 0 {
			compression[i] = atr[i]/avg < threshold
		}
	}
	return compression
}

// DetectExpansion fires only on a compression -> non-compression transition
// where ATR grew by at least multiplier.
func DetectExpansion(atr []float64, compression []bool, multiplier float64) []bool {
	n := len(atr)
	if len(compression) < n {
		n = len(compression)
	}
	expansion := make([]bool, len(atr))

	for i := 1; i < n; i++ {
		if !compression[i-1] || compression[i] {
			continue
		}
		if atr[i-1] > 0 {
			expansion[i] = atr[i]/atr[i-1] >= multiplier
		}
	}
	return expansion
}

// CalculateBollingerBands - upper, middle, lower series using population
// standard deviation. Entries before index period-1 are zero.
func CalculateBollingerBands(close []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	n := len(close)
	upper = make([]float64, n)
	middle = make([]float64, n)
	lower = make([]float64, n)
	if period < 1 {
		return upper, middle, lower
	}

	for i := period - 1; i < n; i++ {
		window := close[i-period+1 : i+1]

		sum := 0.0
		for _, c := range window {
			sum += c
		}
		mean := sum / float64(period)

		variance := 0.0
		for _, c := range window {
			variance += (c - mean) * (c - mean)
		}
		sd := math.Sqrt(variance / float64(period))

		middle[i] = mean
		upper[i] = mean + stdDev*sd
		lower[i] = mean - stdDev*sd
	}
	return upper, middle, lower
}

// CalculateBandWidth - (upper-lower)/middle, zero where middle is not positive.
func CalculateBandWidth(upper, lower, middle []float64) []float64 {
	n := minLen(upper, lower, middle)
	width := make([]float64, n)
	for i := 0; i < n; i++ {
		if middle[i] > 0 {
			width[i] = (upper[i] - lower[i]) / middle[i]
		}
	}
	return width
}

func minLen(a, b, c []float64) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if len(c) < n {
		n = len(c)
	}
	return n
}
