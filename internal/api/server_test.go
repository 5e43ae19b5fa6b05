package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wti-trading-bot/internal/bot"
	"wti-trading-bot/internal/metrics"
	"wti-trading-bot/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct{ snap bot.Snapshot }

func (f fixedSource) Snapshot() bot.Snapshot { return f.snap }

func newTestServer(t *testing.T) (*Server, *metrics.Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	snap := bot.Snapshot{
		Mode:           "paper",
		Symbol:         "USOIL",
		Running:        true,
		Ticks:          12,
		LastTick:       time.Date(2024, 1, 9, 14, 0, 0, 0, time.UTC),
		TradingAllowed: false,
		Filters: []bot.FilterStatus{
			{Name: "session", Allowed: true, Reason: "London/NY overlap session (13:00-16:00 UTC)"},
			{Name: "news", Allowed: true, Reason: "no major news events"},
			{Name: "risk", Allowed: false, Reason: "daily drawdown limit exceeded"},
		},
		LastSignal:   types.Signal{Kind: types.SideNone},
		CurrentPrice: 72.5,
		CurrentATR:   0.41,
		Account:      types.AccountSnapshot{Balance: 9400, Equity: 9420, Currency: "USD"},
		Positions: []bot.PositionStatus{
			{Position: types.Position{Ticket: 1001, Side: types.SideBuy, EntryPrice: 71.9, InitialVolume: 0.5, CurrentVolume: 0.25}, Remaining: 0.25},
		},
	}
	return NewServer(types.APIConfig{Host: "127.0.0.1", Port: 0}, fixedSource{snap: snap}, reg, zerolog.Nop()), m
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s, "/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Mode           string             `json:"mode"`
		Symbol         string             `json:"symbol"`
		Running        bool               `json:"running"`
		Ticks          int64              `json:"ticks"`
		TradingAllowed bool               `json:"trading_allowed"`
		Filters        []bot.FilterStatus `json:"filters"`
		CurrentPrice   float64            `json:"current_price"`
		OpenPositions  int                `json:"open_positions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "paper", body.Mode)
	assert.Equal(t, "USOIL", body.Symbol)
	assert.True(t, body.Running)
	assert.Equal(t, int64(12), body.Ticks)
	assert.False(t, body.TradingAllowed)
	require.Len(t, body.Filters, 3)
	assert.Equal(t, "daily drawdown limit exceeded", body.Filters[2].Reason)
	assert.InDelta(t, 72.5, body.CurrentPrice, 1e-9)
	assert.Equal(t, 1, body.OpenPositions)
}

func TestPositions(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s, "/positions")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count     int                  `json:"count"`
		Positions []bot.PositionStatus `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Positions, 1)
	assert.Equal(t, int64(1001), body.Positions[0].Ticket)
	assert.InDelta(t, 0.25, body.Positions[0].Remaining, 1e-9)
}

func TestMetricsEndpoint(t *testing.T) {
	s, m := newTestServer(t)
	m.Ticks.Inc()
	m.Orders.WithLabelValues("BUY", "filled").Inc()

	w := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bot_ticks_total 1")
	assert.Contains(t, w.Body.String(), `bot_orders_total{result="filled",side="BUY"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/orders").Code)
}
