package protocol

import (
	"fmt"
	"strconv"
)

// Command is a control intent bound for the device. The two variants are
// RelayCommand and LEDCommand; both validate their values before any
// encoding or network I/O happens.
type Command interface {
	// Validate checks the command's values against the device's accepted
	// ranges. Encode calls this before building the wire envelope.
	Validate() error

	// wireEntries maps the command onto rw_prot w_data entries. Only
	// called on validated commands.
	wireEntries() []wireEntry
}

// RelayCommand switches one of the four controllable relays.
//
// Relays 5-8 map onto device nodes node0601-node0604; relays 1-4 are not
// remotely controllable.
type RelayCommand struct {
	Number int // 5-8
	State  int // 0 = off, 1 = on
}

func (c RelayCommand) Validate() error {
	if c.Number < minRelayNumber || c.Number > maxRelayNumber {
		return fmt.Errorf("%w: got %d", ErrInvalidRelayNumber, c.Number)
	}
	if c.State != 0 && c.State != 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidRelayState, c.State)
	}
	return nil
}

func (c RelayCommand) wireEntries() []wireEntry {
	// relay5 -> node0601 ... relay8 -> node0604
	node := fmt.Sprintf("node060%d", c.Number-4)
	return []wireEntry{{Name: node, Value: strconv.Itoa(c.State)}}
}

// LEDCommand sets the brightness of all four LED channels at once. The
// device protocol has no single-channel write; channels the caller does
// not care about should carry their current (or zero) value.
type LEDCommand struct {
	Brightness [4]int // each 0-255, index 0 = LED1
}

func (c LEDCommand) Validate() error {
	for i, b := range c.Brightness {
		if b < 0 || b > maxBrightness {
			return fmt.Errorf("%w: LED%d got %d", ErrInvalidBrightness, i+1, b)
		}
	}
	return nil
}

func (c LEDCommand) wireEntries() []wireEntry {
	// led1 -> node0501 ... led4 -> node0504
	entries := make([]wireEntry, len(c.Brightness))
	for i, b := range c.Brightness {
		entries[i] = wireEntry{
			Name:  fmt.Sprintf("node050%d", i+1),
			Value: strconv.Itoa(b),
		}
	}
	return entries
}

// Accepted value ranges for control commands.
const (
	minRelayNumber = 5
	maxRelayNumber = 8
	maxBrightness  = 255
)
