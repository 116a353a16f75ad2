package mqtt

import (
	"time"

	"github.com/meimefarm/greenhouse-core/internal/infrastructure/config"
)

// ReconnectPolicy maps a consecutive reconnect attempt count to a delay.
//
// The schedule is exponential: InitialDelay, doubled per attempt, capped at
// MaxDelay. After MaxAttempts consecutive failures the client gives up and
// stays disconnected until a caller reconnects manually. MaxAttempts of zero
// means retry forever.
//
// The policy is a plain value so the backoff schedule can be unit-tested
// without a broker.
type ReconnectPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

// PolicyFromConfig builds a ReconnectPolicy from the reconnect config section.
func PolicyFromConfig(cfg config.MQTTReconnectConfig) ReconnectPolicy {
	return ReconnectPolicy{
		InitialDelay: time.Duration(cfg.InitialDelay) * time.Second,
		MaxDelay:     time.Duration(cfg.MaxDelay) * time.Second,
		MaxAttempts:  cfg.MaxAttempts,
	}
}

// Delay returns the wait before reconnect attempt n (1-based).
//
// Attempt 1 waits InitialDelay, attempt 2 twice that, and so on up to
// MaxDelay. Attempts below 1 are treated as attempt 1.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Exhausted reports whether attempt n exceeds the attempt budget.
// A zero MaxAttempts never exhausts.
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
