package gateway

import "errors"

// Gateway errors. Use errors.Is() to check error types.
var (
	// ErrNotConnected indicates an operation that requires a live broker
	// connection was called while disconnected.
	ErrNotConnected = errors.New("gateway: not connected")

	// ErrConnectFailed indicates the broker connection could not be
	// established.
	ErrConnectFailed = errors.New("gateway: connect failed")
)
