package alerting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// dispatchTimeout bounds the history write for a dispatched digest.
const dispatchTimeout = 5 * time.Second

// Notifier delivers a preformatted message out-of-band. Implemented by
// notify.WeComClient.
type Notifier interface {
	Send(content, format string) error
}

// Recorder persists dispatched digests for the audit trail. Implemented
// by HistoryRepository. Optional; a nil Recorder disables history.
type Recorder interface {
	RecordDispatch(ctx context.Context, rec Record) error
}

// Logger interface for dispatch outcome logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

// Dispatcher gates alert digests behind a single global cooldown window
// and hands them to the notifier.
//
// The whole alert set shares one lastSent timestamp: inside the cooldown
// everything is suppressed, outside it all current fragments go out as
// one consolidated digest. lastSent only advances on a successful send,
// so a failed webhook call gets retried on the next evaluation cycle.
//
// Thread Safety:
//   - Dispatch is safe for concurrent use; the mutex is held across the
//     notifier call so concurrent evaluations cannot double-send inside
//     one cooldown window. Callers on the message-handling hot path
//     should invoke Dispatch from a goroutine.
type Dispatcher struct {
	notifier Notifier
	history  Recorder
	cooldown time.Duration
	location *time.Location

	mu       sync.Mutex
	lastSent time.Time

	logger Logger

	// now is swappable for deterministic cooldown tests.
	now func() time.Time
}

// NewDispatcher creates a dispatcher with the given cooldown window and
// site timezone (used for the digest timestamp). history may be nil.
func NewDispatcher(notifier Notifier, history Recorder, cooldown time.Duration, location *time.Location, logger Logger) *Dispatcher {
	if location == nil {
		location = time.UTC
	}
	return &Dispatcher{
		notifier: notifier,
		history:  history,
		cooldown: cooldown,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// Dispatch sends alerts as one digest message unless the cooldown window
// suppresses it. snapshotTs is the TimestampMs of the evaluated snapshot,
// recorded with the history row.
//
// Returns true when a digest was actually sent. Errors are logged and
// swallowed; dispatch failures never reach the message-handling path.
func (d *Dispatcher) Dispatch(alerts []Alert, snapshotTs int64) bool {
	if len(alerts) == 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !d.lastSent.IsZero() && now.Sub(d.lastSent) <= d.cooldown {
		return false
	}

	digest := d.buildDigest(alerts, now)
	if err := d.notifier.Send(digest, "markdown"); err != nil {
		d.logError("alert dispatch failed", "error", err, "alerts", len(alerts))
		return false
	}

	d.lastSent = now
	d.logInfo("alert digest dispatched", "alerts", len(alerts))

	d.recordHistory(alerts, digest, now, snapshotTs)
	return true
}

// buildDigest formats the consolidated markdown message: title, localized
// timestamp, then one line per fragment in rule order.
func (d *Dispatcher) buildDigest(alerts []Alert, now time.Time) string {
	var b strings.Builder
	b.WriteString("# 🚨 温室环境警报\n\n")
	fmt.Fprintf(&b, "> 时间: %s\n\n", now.In(d.location).Format("2006-01-02 15:04:05"))
	for _, a := range alerts {
		b.WriteString("- ")
		b.WriteString(a.Message)
		b.WriteString("\n")
	}
	return b.String()
}

func (d *Dispatcher) recordHistory(alerts []Alert, digest string, sentAt time.Time, snapshotTs int64) {
	if d.history == nil {
		return
	}

	codes := make([]string, len(alerts))
	for i, a := range alerts {
		codes[i] = a.Code
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	err := d.history.RecordDispatch(ctx, Record{
		SentAt:     sentAt,
		Codes:      codes,
		Message:    digest,
		SnapshotTs: snapshotTs,
	})
	if err != nil {
		d.logError("recording alert history failed", "error", err)
	}
}

func (d *Dispatcher) logError(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Error(msg, args...)
	}
}

func (d *Dispatcher) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}
