// File: internal/telegram/notifier.go
// ============================================
package telegram

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wti-trading-bot/pkg/types"

	"github.com/rs/zerolog"
)

type Notifier struct {
	botToken string
	chatID   string
	enabled  bool
	apiBase  string
	client   *http.Client
	logger   zerolog.Logger
}

func NewNotifier(config types.TelegramConfig, logger zerolog.Logger) *Notifier {
	return &Notifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		apiBase:  "https://api.telegram.org",
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.With().Str("component", "telegram").Logger(),
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

func (n *Notifier) Enabled() bool { return n.enabled }

func (n *Notifier) sendMessage(message string) error {
	if !n.enabled {
		return nil
	}

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)

	data := url.Values{}
	data.Set("chat_id", n.chatID)
	data.Set("text", message)
	data.Set("parse_mode", "HTML")
	data.Set("disable_web_page_preview", "true")

	resp, err := n.client.PostForm(apiURL, data)
	if err != nil {
		n.logger.Warn().Err(err).Msg("telegram API error")
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		n.logger.Warn().Int("status", resp.StatusCode).Str("body", string(body)).Msg("telegram API rejected message")
		return fmt.Errorf("telegram API error: %s", string(body))
	}
	return nil
}

func (n *Notifier) NotifyStart(symbol, mode string, balance float64) error {
	msg := "🤖 <b>WTI Volatility Bot Started</b>\n\n"
	msg += fmt.Sprintf("Symbol: <b>%s</b>\n", symbol)
	msg += fmt.Sprintf("Mode: <b>%s</b>\n", strings.ToUpper(mode))
	msg += fmt.Sprintf("Balance: <code>%.2f</code>", balance)
	return n.sendMessage(msg)
}

func (n *Notifier) NotifySignal(signal types.Signal) error {
	emoji := "📈"
	if signal.Kind == types.SideSell {
		emoji = "📉"
	}

	msg := fmt.Sprintf("%s <b>%s SIGNAL</b>\n", emoji, signal.Kind)
	msg += strings.Repeat("━", 24) + "\n"
	msg += fmt.Sprintf("💰 Entry: <code>%.2f</code>\n", signal.EntryPrice)
	msg += fmt.Sprintf("🛑 Stop Loss: <code>%.2f</code>\n", signal.StopLoss)
	for i, l := range signal.TakeProfitLevels {
		msg += fmt.Sprintf("🎯 TP%d: <code>%.2f</code> (%.0f%% at %gx ATR)\n", i+1, l.Price, l.CloseFraction*100, l.ATRMultiple)
	}
	msg += fmt.Sprintf("📊 ATR: <code>%.4f</code>", signal.CurrentATR)
	return n.sendMessage(msg)
}

func (n *Notifier) NotifyPositionOpened(pos types.Position) error {
	msg := "✅ <b>POSITION OPENED</b>\n\n"
	msg += fmt.Sprintf("Ticket: <b>%d</b> %s\n", pos.Ticket, pos.Side)
	msg += fmt.Sprintf("Volume: %.2f lots\n", pos.InitialVolume)
	msg += fmt.Sprintf("Entry: %.2f\n", pos.EntryPrice)
	msg += fmt.Sprintf("Stop Loss: %.2f\n", pos.StopLoss)
	msg += fmt.Sprintf("Take Profit: %.2f", pos.TakeProfit)
	return n.sendMessage(msg)
}

func (n *Notifier) NotifyPartialClose(action types.PartialCloseAction) error {
	msg := "🎯 <b>Partial Take Profit</b>\n\n"
	msg += fmt.Sprintf("Ticket: <b>%d</b>\n", action.Ticket)
	msg += fmt.Sprintf("Closed: %.2f lots\n", action.Volume)
	msg += fmt.Sprintf("💡 %s", action.Reason)
	return n.sendMessage(msg)
}

func (n *Notifier) NotifyTrailingStop(action types.ModifyStopAction) error {
	msg := "🔒 <b>Trailing Stop Updated</b>\n\n"
	msg += fmt.Sprintf("Ticket: <b>%d</b>\n", action.Ticket)
	msg += fmt.Sprintf("New Stop: %.2f", action.NewStop)
	return n.sendMessage(msg)
}

func (n *Notifier) NotifyRiskBlocked(reason string) error {
	return n.sendMessage(fmt.Sprintf("⛔ <b>Trading Halted</b>\n\n%s", reason))
}

func (n *Notifier) NotifyError(errorMsg string) error {
	return n.sendMessage(fmt.Sprintf("⚠️ <b>Error Alert</b>\n\n%s", errorMsg))
}

func (n *Notifier) NotifyShutdown(openPositions int) error {
	msg := "🛑 <b>Bot Stopped</b>\n\n"
	msg += fmt.Sprintf("Open positions left with the terminal: %d", openPositions)
	return n.sendMessage(msg)
}
