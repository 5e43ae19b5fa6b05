package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateATRWilderSmoothing(t *testing.T) {
	high := []float64{100.5, 101, 102, 101.5, 103}
	low := []float64{99.5, 100, 100.5, 100, 101}
	close := []float64{100, 100.5, 101, 100.5, 102}

	tr := TrueRange(high, low, close)
	// Bar 4 gaps from the 100.5 close, so |103-100.5| wins over high-low.
	assert.InDeltaSlice(t, []float64{1.0, 1.0, 1.5, 1.5, 2.5}, tr, 1e-9)

	atr := CalculateATR(high, low, close, 3)
	require.Len(t, atr, 5)
	assert.Equal(t, 0.0, atr[0])
	assert.Equal(t, 0.0, atr[1])
	assert.InDelta(t, 1.1667, atr[2], 1e-4)
	assert.InDelta(t, 1.2778, atr[3], 1e-4)
	assert.InDelta(t, 1.6852, atr[4], 1e-4)
}

func TestCalculateATRWithoutGap(t *testing.T) {
	high := []float64{100.5, 101, 102, 101.5, 102.5}
	low := []float64{99.5, 100, 100.5, 100, 100.5}
	close := []float64{100, 100.5, 101, 100.5, 102}

	atr := CalculateATR(high, low, close, 3)
	assert.InDelta(t, 1.1667, atr[2], 1e-4)
	assert.InDelta(t, 1.2778, atr[3], 1e-4)
	assert.InDelta(t, 1.5185, atr[4], 1e-4)
}

func TestCalculateATREdgeCases(t *testing.T) {
	t.Run("shorter than period", func(t *testing.T) {
		atr := CalculateATR([]float64{2, 3}, []float64{1, 2}, []float64{1.5, 2.5}, 3)
		assert.Equal(t, []float64{0, 0}, atr)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, CalculateATR(nil, nil, nil, 14))
	})

	t.Run("inverted first bar never goes negative", func(t *testing.T) {
		atr := CalculateATR([]float64{99, 100, 100}, []float64{100, 99, 99}, []float64{99.5, 99.5, 99.5}, 1)
		for i, v := range atr {
			assert.GreaterOrEqual(t, v, 0.0, "atr[%d]", i)
		}
	})
}

func TestDetectCompression(t *testing.T) {
	atr := []float64{2, 2, 2, 2, 2, 1, 1, 1}
	got := DetectCompression(atr, 5, 0.6)
	assert.Equal(t, []bool{false, false, false, false, false, true, true, false}, got)
}

func TestDetectCompressionIgnoresZeroAverage(t *testing.T) {
	atr := []float64{0, 0, 0, 0.1}
	assert.Equal(t, []bool{false, false, false, false}, DetectCompression(atr, 3, 0.6))
}

func TestDetectExpansion(t *testing.T) {
	atr := []float64{2, 2, 1, 1, 2.5, 3}
	compression := []bool{false, false, true, true, false, false}

	got := DetectExpansion(atr, compression, 1.5)
	assert.Equal(t, []bool{false, false, false, false, true, false}, got)

	for i := range got {
		if got[i] {
			assert.True(t, compression[i-1])
			assert.False(t, compression[i])
		}
	}
}

func TestDetectExpansionBelowMultiplier(t *testing.T) {
	atr := []float64{1, 1, 1.2}
	compression := []bool{false, true, false}
	assert.Equal(t, []bool{false, false, false}, DetectExpansion(atr, compression, 1.5))
}

func TestCalculateBollingerBands(t *testing.T) {
	upper, middle, lower := CalculateBollingerBands([]float64{1, 2, 3, 4}, 3, 2)

	assert.Equal(t, 0.0, middle[0])
	assert.Equal(t, 0.0, middle[1])
	assert.InDelta(t, 2.0, middle[2], 1e-9)
	assert.InDelta(t, 3.6330, upper[2], 1e-4)
	assert.InDelta(t, 0.3670, lower[2], 1e-4)
	assert.InDelta(t, 3.0, middle[3], 1e-9)

	width := CalculateBandWidth(upper, lower, middle)
	assert.Equal(t, 0.0, width[0])
	assert.InDelta(t, 1.6330, width[2], 1e-4)
}
