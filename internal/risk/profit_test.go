package risk

import (
	"testing"

	"wti-trading-bot/pkg/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProfitManager(mutate func(*types.Config)) *ProfitManager {
	cfg := types.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewProfitManager(&cfg, zerolog.Nop())
}

func TestTrailingStopRatchetsBuy(t *testing.T) {
	p := newTestProfitManager(nil)
	p.InitializePosition(1)

	assert.Nil(t, p.CheckTrailingStop(1, 100, 102.0, types.SideBuy, 99, 1.0), "below activation")

	first := p.CheckTrailingStop(1, 100, 102.6, types.SideBuy, 99, 1.0)
	require.NotNil(t, first)
	assert.InDelta(t, 101.1, first.NewStop, 1e-9)
	assert.Equal(t, int64(1), first.Ticket)

	second := p.CheckTrailingStop(1, 100, 103.0, types.SideBuy, first.NewStop, 1.0)
	require.NotNil(t, second)
	assert.InDelta(t, 101.5, second.NewStop, 1e-9)
	assert.GreaterOrEqual(t, second.NewStop, first.NewStop)

	assert.Nil(t, p.CheckTrailingStop(1, 100, 102.8, types.SideBuy, second.NewStop, 1.0), "stop must not loosen")

	st, ok := p.Status(1)
	require.True(t, ok)
	assert.True(t, st.TrailingActive)
}

func TestTrailingStopStaysActiveAfterPullback(t *testing.T) {
	p := newTestProfitManager(nil)
	p.InitializePosition(7)

	require.NotNil(t, p.CheckTrailingStop(7, 100, 102.6, types.SideBuy, 99, 1.0))
	// Profit falls back under the activation multiple; the latch holds.
	action := p.CheckTrailingStop(7, 100, 101.0, types.SideBuy, 99, 1.0)
	require.NotNil(t, action)
	assert.InDelta(t, 99.5, action.NewStop, 1e-9)

	st, _ := p.Status(7)
	assert.True(t, st.TrailingActive)
}

func TestTrailingStopSell(t *testing.T) {
	p := newTestProfitManager(nil)
	p.InitializePosition(2)

	action := p.CheckTrailingStop(2, 100, 97.0, types.SideSell, 0, 1.0)
	require.NotNil(t, action, "an unset stop always accepts the first trail")
	assert.InDelta(t, 98.5, action.NewStop, 1e-9)

	assert.Nil(t, p.CheckTrailingStop(2, 100, 97.2, types.SideSell, 98.5, 1.0))

	tighter := p.CheckTrailingStop(2, 100, 96.0, types.SideSell, 98.5, 1.0)
	require.NotNil(t, tighter)
	assert.InDelta(t, 97.5, tighter.NewStop, 1e-9)
}

func TestPartialTPLevelsFireOnce(t *testing.T) {
	p := newTestProfitManager(nil)
	p.InitializePosition(3)

	assert.Empty(t, p.CheckPartialTP(3, 100, 101.5, types.SideBuy, 1.0, 2.0))

	actions := p.CheckPartialTP(3, 100, 102.1, types.SideBuy, 1.0, 2.0)
	require.Len(t, actions, 1)
	assert.Equal(t, 0, actions[0].Level)
	assert.InDelta(t, 1.0, actions[0].Volume, 1e-9)
	assert.Equal(t, "TP level 1 hit (2x ATR)", actions[0].Reason)

	assert.Empty(t, p.CheckPartialTP(3, 100, 102.2, types.SideBuy, 1.0, 2.0), "level 1 already taken")

	actions = p.CheckPartialTP(3, 100, 103.5, types.SideBuy, 1.0, 2.0)
	require.Len(t, actions, 1)
	assert.Equal(t, 1, actions[0].Level)
	assert.InDelta(t, 0.6, actions[0].Volume, 1e-9)

	// Price retraces: nothing is removed and nothing refires.
	assert.Empty(t, p.CheckPartialTP(3, 100, 100.5, types.SideBuy, 1.0, 2.0))
	st, _ := p.Status(3)
	assert.Equal(t, []int{0, 1}, st.LevelsHit)
	assert.InDelta(t, 3.5, st.HighestProfitInATRUnits, 1e-9)
	assert.InDelta(t, 0.4, p.RemainingVolume(3, 2.0), 1e-9)
}

func TestPartialTPGapFiresSeveralLevels(t *testing.T) {
	p := newTestProfitManager(nil)
	p.InitializePosition(4)

	actions := p.CheckPartialTP(4, 70, 66.5, types.SideSell, 1.0, 1.0)
	require.Len(t, actions, 2)
	assert.Equal(t, 0, actions[0].Level)
	assert.Equal(t, 1, actions[1].Level)
	assert.InDelta(t, 0.5, actions[0].Volume, 1e-9)
	assert.InDelta(t, 0.3, actions[1].Volume, 1e-9)
}

func TestProfitManagerInertCases(t *testing.T) {
	t.Run("untracked ticket", func(t *testing.T) {
		p := newTestProfitManager(nil)
		assert.Empty(t, p.CheckPartialTP(9, 100, 110, types.SideBuy, 1, 1))
		assert.Nil(t, p.CheckTrailingStop(9, 100, 110, types.SideBuy, 99, 1))
		assert.InDelta(t, 1.5, p.RemainingVolume(9, 1.5), 1e-9)
	})

	t.Run("zero atr", func(t *testing.T) {
		p := newTestProfitManager(nil)
		p.InitializePosition(1)
		assert.Empty(t, p.CheckPartialTP(1, 100, 110, types.SideBuy, 0, 1))
		assert.Nil(t, p.CheckTrailingStop(1, 100, 110, types.SideBuy, 99, 0))
	})

	t.Run("take profit disabled", func(t *testing.T) {
		p := newTestProfitManager(func(c *types.Config) { c.TakeProfit.Enabled = false })
		p.InitializePosition(1)
		assert.Empty(t, p.CheckPartialTP(1, 100, 110, types.SideBuy, 1, 1))
	})

	t.Run("trailing disabled", func(t *testing.T) {
		p := newTestProfitManager(func(c *types.Config) { c.TakeProfit.TrailingStop.Enabled = false })
		p.InitializePosition(1)
		assert.Nil(t, p.CheckTrailingStop(1, 100, 110, types.SideBuy, 99, 1))
	})
}

func TestInitializeAndRemovePosition(t *testing.T) {
	p := newTestProfitManager(nil)
	p.InitializePosition(5)
	require.Len(t, p.CheckPartialTP(5, 100, 102, types.SideBuy, 1, 1), 1)

	p.InitializePosition(5)
	st, ok := p.Status(5)
	require.True(t, ok)
	assert.Equal(t, []int{0}, st.LevelsHit, "re-initializing keeps progress")

	p.RemovePosition(5)
	assert.False(t, p.Tracking(5))
	_, ok = p.Status(5)
	assert.False(t, ok)
	assert.Empty(t, p.Snapshot())
}

func TestRemainingVolumeNeverNegative(t *testing.T) {
	p := newTestProfitManager(func(c *types.Config) {
		c.TakeProfit.Levels = []types.TakeProfitLevelConfig{
			{TargetATRMultiple: 1, ClosePercentage: 0.7},
			{TargetATRMultiple: 2, ClosePercentage: 0.7},
		}
	})
	p.InitializePosition(1)
	p.CheckPartialTP(1, 100, 105, types.SideBuy, 1, 1)
	assert.Equal(t, 0.0, p.RemainingVolume(1, 1))
}
