package protocol

import "errors"

// Codec errors for command validation and payload decoding.
// Use errors.Is() to check error types.
var (
	// ErrInvalidRelayNumber indicates a relay number outside [5, 8].
	ErrInvalidRelayNumber = errors.New("relay number must be between 5 and 8")

	// ErrInvalidRelayState indicates a relay state other than 0 or 1.
	ErrInvalidRelayState = errors.New("relay state must be 0 or 1")

	// ErrInvalidBrightness indicates an LED brightness outside [0, 255].
	ErrInvalidBrightness = errors.New("led brightness must be between 0 and 255")

	// ErrDecodeFailed indicates a payload that could not be parsed as JSON.
	ErrDecodeFailed = errors.New("failed to decode payload")

	// ErrEncodeFailed indicates a command envelope that could not be serialized.
	ErrEncodeFailed = errors.New("failed to encode command")
)
