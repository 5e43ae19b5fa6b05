// File: pkg/types/errors.go
// ============================================
package types

import "errors"

var (
	// ErrConfiguration is fatal at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrConnectivity means the connector was unreachable or returned nothing; retry next tick.
	ErrConnectivity = errors.New("connector unavailable")
	// ErrDataUnavailable means too little bar history for the requested windows.
	ErrDataUnavailable = errors.New("insufficient data")
	// ErrOrderRejected means the terminal refused an order action. Not retried.
	ErrOrderRejected = errors.New("order rejected")
)
