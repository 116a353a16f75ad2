package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeNotifier struct {
	sent   []string
	format []string
	err    error
}

func (f *fakeNotifier) Send(content, format string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, content)
	f.format = append(f.format, format)
	return nil
}

type fakeRecorder struct {
	records []Record
	err     error
}

func (f *fakeRecorder) RecordDispatch(_ context.Context, rec Record) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func testDispatcher(notifier Notifier, history Recorder) *Dispatcher {
	return NewDispatcher(notifier, history, 30*time.Minute, time.UTC, nil)
}

func TestDispatch_EmptyAlerts(t *testing.T) {
	notifier := &fakeNotifier{}
	d := testDispatcher(notifier, nil)

	if d.Dispatch(nil, 0) {
		t.Error("Dispatch(nil) = true, want false")
	}
	if len(notifier.sent) != 0 {
		t.Errorf("notifier called %d times for empty alerts, want 0", len(notifier.sent))
	}
}

func TestDispatch_SendsDigest(t *testing.T) {
	notifier := &fakeNotifier{}
	d := testDispatcher(notifier, nil)

	alerts := []Alert{
		{Code: CodeHighTemp, Message: "temp fragment"},
		{Code: CodeHighCO2, Message: "co2 fragment"},
	}
	if !d.Dispatch(alerts, 1234) {
		t.Fatal("Dispatch() = false, want true")
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("notifier called %d times, want 1", len(notifier.sent))
	}
	digest := notifier.sent[0]
	if !strings.Contains(digest, "temp fragment") || !strings.Contains(digest, "co2 fragment") {
		t.Errorf("digest missing fragments: %q", digest)
	}
	if !strings.Contains(digest, "时间:") {
		t.Errorf("digest missing timestamp line: %q", digest)
	}
	if notifier.format[0] != "markdown" {
		t.Errorf("format = %q, want markdown", notifier.format[0])
	}
}

// Inside the cooldown window everything is suppressed; after the window
// passes the next evaluation dispatches again.
func TestDispatch_CooldownSuppression(t *testing.T) {
	notifier := &fakeNotifier{}
	d := testDispatcher(notifier, nil)

	current := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return current }

	alerts := []Alert{{Code: CodeHighTemp, Message: "hot"}}

	if !d.Dispatch(alerts, 0) {
		t.Fatal("first Dispatch() = false, want true")
	}

	// 5 seconds later: suppressed.
	current = current.Add(5 * time.Second)
	if d.Dispatch(alerts, 0) {
		t.Error("Dispatch() inside cooldown = true, want false")
	}

	// 29 minutes later: still suppressed.
	current = current.Add(29 * time.Minute)
	if d.Dispatch(alerts, 0) {
		t.Error("Dispatch() at 29m = true, want false")
	}

	// Past the 30 minute window: dispatched again.
	current = current.Add(2 * time.Minute)
	if !d.Dispatch(alerts, 0) {
		t.Error("Dispatch() after cooldown = false, want true")
	}

	if len(notifier.sent) != 2 {
		t.Errorf("notifier called %d times, want 2", len(notifier.sent))
	}
}

// A failed send must not advance the cooldown gate; the next evaluation
// gets another chance immediately.
func TestDispatch_FailureDoesNotAdvanceCooldown(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("webhook down")}
	d := testDispatcher(notifier, nil)

	alerts := []Alert{{Code: CodeSoilDrought, Message: "dry"}}

	if d.Dispatch(alerts, 0) {
		t.Error("Dispatch() with failing notifier = true, want false")
	}

	// Notifier recovers; the very next dispatch succeeds without waiting
	// out any cooldown.
	notifier.err = nil
	if !d.Dispatch(alerts, 0) {
		t.Error("Dispatch() after notifier recovery = false, want true")
	}
}

func TestDispatch_RecordsHistory(t *testing.T) {
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	d := testDispatcher(notifier, recorder)

	alerts := []Alert{
		{Code: CodeHighTemp, Message: "hot"},
		{Code: CodeLowHumidity, Message: "dry air"},
	}
	d.Dispatch(alerts, 987654)

	if len(recorder.records) != 1 {
		t.Fatalf("recorded %d history rows, want 1", len(recorder.records))
	}
	rec := recorder.records[0]
	if len(rec.Codes) != 2 || rec.Codes[0] != CodeHighTemp || rec.Codes[1] != CodeLowHumidity {
		t.Errorf("recorded codes = %v, want [high_temp low_humidity]", rec.Codes)
	}
	if rec.SnapshotTs != 987654 {
		t.Errorf("SnapshotTs = %d, want 987654", rec.SnapshotTs)
	}
}

// A history write failure is logged and swallowed; the digest still
// counts as dispatched and the cooldown advances.
func TestDispatch_HistoryFailureIsNonFatal(t *testing.T) {
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{err: errors.New("disk full")}
	d := testDispatcher(notifier, recorder)

	if !d.Dispatch([]Alert{{Code: CodeFrost, Message: "cold"}}, 0) {
		t.Error("Dispatch() = false when only history failed, want true")
	}
	if len(notifier.sent) != 1 {
		t.Errorf("notifier called %d times, want 1", len(notifier.sent))
	}
}

func TestDispatch_DigestUsesConfiguredTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Skip("tzdata not available")
	}

	notifier := &fakeNotifier{}
	d := NewDispatcher(notifier, nil, 30*time.Minute, loc, nil)
	d.now = func() time.Time {
		return time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC) // 08:00 in Shanghai
	}

	d.Dispatch([]Alert{{Code: CodeHighTemp, Message: "hot"}}, 0)

	if len(notifier.sent) != 1 {
		t.Fatal("digest not sent")
	}
	if !strings.Contains(notifier.sent[0], "2026-07-01 08:00:00") {
		t.Errorf("digest timestamp not localized: %q", notifier.sent[0])
	}
}
