// File: internal/broker/connector.go
// ============================================
package broker

import (
	"context"

	"wti-trading-bot/pkg/types"
)

// Connector is the execution surface the orchestrator drives. Every call is
// blocking I/O scoped to the configured symbol. Failures wrap
// types.ErrConnectivity or types.ErrOrderRejected.
type Connector interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	FetchRecentBars(ctx context.Context, count int) ([]types.PriceBar, error)
	AccountSnapshot(ctx context.Context) (types.AccountSnapshot, error)
	SymbolSpec(ctx context.Context) (types.SymbolSpec, error)

	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)
	// ClosePosition closes volume lots of ticket; volume <= 0 closes it fully.
	ClosePosition(ctx context.Context, ticket int64, volume float64) error
	// ModifyStop sets new SL/TP; a zero value keeps the current one.
	ModifyStop(ctx context.Context, ticket int64, newStop, newTakeProfit float64) error
	OpenPositions(ctx context.Context) ([]types.BrokerPosition, error)
}
