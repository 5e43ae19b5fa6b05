// File: internal/broker/bridge.go
// ============================================
package broker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wti-trading-bot/pkg/types"

	"github.com/rs/zerolog"
)

// retcodeDone is the terminal's success code for trade requests.
const retcodeDone = 10009

// BridgeConnector talks JSON over HTTP to a sidecar that fronts the
// MetaTrader 5 terminal API.
type BridgeConnector struct {
	baseURL    string
	secret     string
	symbol     string
	timeframe  string
	login      int64
	password   string
	server     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewBridgeConnector(config *types.Config, logger zerolog.Logger) *BridgeConnector {
	timeout := time.Duration(config.MetaTrader.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &BridgeConnector{
		baseURL:    strings.TrimRight(strings.TrimSpace(config.MetaTrader.BridgeURL), "/"),
		secret:     config.MetaTrader.BridgeSecret,
		symbol:     config.Symbol,
		timeframe:  config.Timeframe,
		login:      config.MetaTrader.Login,
		password:   config.MetaTrader.Password,
		server:     config.MetaTrader.Server,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "bridge").Logger(),
	}
}

func (c *BridgeConnector) Name() string { return "mt5-bridge" }

func (c *BridgeConnector) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// do sends one request and decodes a 2xx JSON body into out. Transport
// errors and non-2xx replies wrap types.ErrConnectivity.
func (c *BridgeConnector) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "wti-trading-bot/bridge")
	if c.secret != "" {
		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		req.Header.Set("X-Bridge-Timestamp", ts)
		req.Header.Set("X-Bridge-Signature", c.sign(append([]byte(ts+method+path), body...)))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", types.ErrConnectivity, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", types.ErrConnectivity, path, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: status %d: %s", types.ErrConnectivity, method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", types.ErrConnectivity, path, err)
	}
	return nil
}

func (c *BridgeConnector) Connect(ctx context.Context) error {
	payload := map[string]interface{}{}
	if c.login != 0 && c.password != "" && c.server != "" {
		payload["login"] = c.login
		payload["password"] = c.password
		payload["server"] = c.server
	}

	var out struct {
		Connected bool    `json:"connected"`
		Login     int64   `json:"login"`
		Balance   float64 `json:"balance"`
		Error     string  `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/connect", payload, &out); err != nil {
		return err
	}
	if !out.Connected {
		return fmt.Errorf("%w: terminal refused connection: %s", types.ErrConnectivity, out.Error)
	}
	c.logger.Info().Int64("login", out.Login).Float64("balance", out.Balance).Msg("terminal connected")
	return nil
}

func (c *BridgeConnector) Disconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/disconnect", nil, nil)
}

type rawRate struct {
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	TickVolume float64 `json:"tick_volume"`
}

func (c *BridgeConnector) FetchRecentBars(ctx context.Context, count int) ([]types.PriceBar, error) {
	q := url.Values{}
	q.Set("symbol", c.symbol)
	q.Set("timeframe", c.timeframe)
	q.Set("count", strconv.Itoa(count))

	var rates []rawRate
	if err := c.do(ctx, http.MethodGet, "/rates?"+q.Encode(), nil, &rates); err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("%w: no rates for %s", types.ErrConnectivity, c.symbol)
	}

	bars := make([]types.PriceBar, 0, len(rates))
	for _, r := range rates {
		bars = append(bars, types.PriceBar{
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.TickVolume,
			Timestamp: time.Unix(r.Time, 0).UTC(),
		})
	}
	return bars, nil
}

func (c *BridgeConnector) AccountSnapshot(ctx context.Context) (types.AccountSnapshot, error) {
	var acct types.AccountSnapshot
	err := c.do(ctx, http.MethodGet, "/account", nil, &acct)
	return acct, err
}

func (c *BridgeConnector) SymbolSpec(ctx context.Context) (types.SymbolSpec, error) {
	var spec types.SymbolSpec
	err := c.do(ctx, http.MethodGet, "/symbol/"+url.PathEscape(c.symbol), nil, &spec)
	return spec, err
}

type tradeReply struct {
	Retcode int     `json:"retcode"`
	Comment string  `json:"comment"`
	Order   int64   `json:"order"`
	Price   float64 `json:"price"`
	Volume  float64 `json:"volume"`
}

func (r tradeReply) err(op string) error {
	if r.Retcode == retcodeDone {
		return nil
	}
	return fmt.Errorf("%w: %s: retcode %d: %s", types.ErrOrderRejected, op, r.Retcode, r.Comment)
}

func (c *BridgeConnector) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	if req.Symbol == "" {
		req.Symbol = c.symbol
	}

	var reply tradeReply
	if err := c.do(ctx, http.MethodPost, "/order", req, &reply); err != nil {
		return types.OrderResult{}, err
	}
	if err := reply.err("place order"); err != nil {
		return types.OrderResult{}, err
	}

	c.logger.Info().
		Str("side", string(req.Side)).
		Float64("volume", reply.Volume).
		Float64("price", reply.Price).
		Int64("ticket", reply.Order).
		Msg("order filled")
	return types.OrderResult{
		Ticket:     reply.Order,
		Price:      reply.Price,
		Volume:     reply.Volume,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Comment:    req.Comment,
	}, nil
}

func (c *BridgeConnector) ClosePosition(ctx context.Context, ticket int64, volume float64) error {
	payload := map[string]interface{}{}
	if volume > 0 {
		payload["volume"] = volume
	}

	var reply tradeReply
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/positions/%d/close", ticket), payload, &reply); err != nil {
		return err
	}
	return reply.err(fmt.Sprintf("close %d", ticket))
}

func (c *BridgeConnector) ModifyStop(ctx context.Context, ticket int64, newStop, newTakeProfit float64) error {
	payload := map[string]interface{}{}
	if newStop > 0 {
		payload["sl"] = newStop
	}
	if newTakeProfit > 0 {
		payload["tp"] = newTakeProfit
	}

	var reply tradeReply
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/positions/%d/modify", ticket), payload, &reply); err != nil {
		return err
	}
	return reply.err(fmt.Sprintf("modify %d", ticket))
}

func (c *BridgeConnector) OpenPositions(ctx context.Context) ([]types.BrokerPosition, error) {
	var positions []types.BrokerPosition
	if err := c.do(ctx, http.MethodGet, "/positions?symbol="+url.QueryEscape(c.symbol), nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}
