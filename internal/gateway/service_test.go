package gateway

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/meimefarm/greenhouse-core/internal/alerting"
	"github.com/meimefarm/greenhouse-core/internal/infrastructure/config"
	"github.com/meimefarm/greenhouse-core/internal/infrastructure/mqtt"
	"github.com/meimefarm/greenhouse-core/internal/protocol"
	"github.com/meimefarm/greenhouse-core/internal/telemetry"
)

type publishedMsg struct {
	topic   string
	payload []byte
	qos     byte
}

type fakeBroker struct {
	mu        sync.Mutex
	connected bool
	subs      map[string]mqtt.MessageHandler
	published []publishedMsg
	giveUp    func(err error)
	logger    mqtt.Logger
	subErr    error
	pubErr    error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{connected: true, subs: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeBroker) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	if f.subErr != nil {
		return f.subErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = handler
	return nil
}

func (f *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if f.pubErr != nil {
		return f.pubErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMsg{topic: topic, payload: payload, qos: qos})
	return nil
}

func (f *fakeBroker) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeBroker) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeBroker) SetOnGiveUp(fn func(err error)) { f.giveUp = fn }

func (f *fakeBroker) SetLogger(logger mqtt.Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = logger
}

// deliver feeds a message to the handler registered for topic.
func (f *fakeBroker) deliver(t *testing.T, topic string, payload string) {
	t.Helper()
	f.mu.Lock()
	handler, ok := f.subs[topic]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for topic %s", topic)
	}
	handler(topic, []byte(payload)) //nolint:errcheck // handlers log their own errors
}

// chanNotifier signals each delivered digest on a channel so tests can
// wait for the goroutine-dispatched notification.
type chanNotifier struct {
	digests chan string
}

func (n *chanNotifier) Send(content, _ string) error {
	n.digests <- content
	return nil
}

type fakePersister struct {
	mu    sync.Mutex
	snaps []telemetry.Snapshot
	sites []string
}

func (p *fakePersister) WriteEnvironment(siteID string, snap telemetry.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sites = append(p.sites, siteID)
	p.snaps = append(p.snaps, snap)
}

func (p *fakePersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

func testGatewayConfig() *config.Config {
	cfg := config.Default()
	cfg.Site.ID = "greenhouse-01"
	cfg.Site.Timezone = "UTC"
	cfg.MQTT.Broker.Host = "127.0.0.1"
	cfg.MQTT.Auth.Username = "farm"
	cfg.MQTT.Auth.Password = "secret"
	return cfg
}

func newTestService(t *testing.T, fb *fakeBroker, dispatcher *alerting.Dispatcher, persister Persister) *Service {
	t.Helper()
	svc := New(testGatewayConfig(), dispatcher, persister, nil)
	svc.dial = func(config.MQTTConfig) (broker, error) { return fb, nil }
	return svc
}

func TestConnect_SubscribesInboundTopics(t *testing.T) {
	fb := newFakeBroker()
	svc := newTestService(t, fb, nil, nil)

	if err := svc.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !svc.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}

	cfg := testGatewayConfig()
	for _, topic := range []string{
		cfg.MQTT.Topics.Environment,
		cfg.MQTT.Topics.SensorNode,
		cfg.MQTT.Topics.Spectral,
	} {
		if _, ok := fb.subs[topic]; !ok {
			t.Errorf("topic %s not subscribed", topic)
		}
	}
}

func TestConnect_Idempotent(t *testing.T) {
	fb := newFakeBroker()
	svc := newTestService(t, fb, nil, nil)

	dials := 0
	svc.dial = func(config.MQTTConfig) (broker, error) {
		dials++
		return fb, nil
	}

	if err := svc.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := svc.Connect(); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if dials != 1 {
		t.Errorf("dialed %d times, want 1", dials)
	}
}

func TestConnect_DialFailure(t *testing.T) {
	svc := New(testGatewayConfig(), nil, nil, nil)
	dialErr := errors.New("broker unreachable")
	svc.dial = func(config.MQTTConfig) (broker, error) { return nil, dialErr }

	err := svc.Connect()
	if !errors.Is(err, ErrConnectFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectFailed", err)
	}
	if !errors.Is(svc.LastError(), dialErr) {
		t.Errorf("LastError() = %v, want the dial error", svc.LastError())
	}
}

func TestDisconnect(t *testing.T) {
	fb := newFakeBroker()
	svc := newTestService(t, fb, nil, nil)

	if err := svc.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := svc.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if svc.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}

	// Safe to call again while already disconnected.
	if err := svc.Disconnect(); err != nil {
		t.Errorf("second Disconnect() error = %v", err)
	}
}

// recordLogger counts log calls so tests can assert wiring.
type recordLogger struct {
	mu     sync.Mutex
	errors int
	warns  int
	infos  int
}

func (l *recordLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors++
}

func (l *recordLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns++
}

func (l *recordLogger) Info(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos++
}

func TestConnect_WiresLoggerIntoBroker(t *testing.T) {
	fb := newFakeBroker()
	logger := &recordLogger{}
	svc := New(testGatewayConfig(), nil, nil, logger)
	svc.dial = func(config.MQTTConfig) (broker, error) { return fb, nil }

	if err := svc.Connect(); err != nil {
		t.Fatal(err)
	}

	fb.mu.Lock()
	got := fb.logger
	fb.mu.Unlock()
	if got == nil {
		t.Fatal("broker logger not set after Connect")
	}
	got.Warn("reconnecting")
	logger.mu.Lock()
	warns := logger.warns
	logger.mu.Unlock()
	if warns != 1 {
		t.Errorf("broker warnings reach the gateway logger: warns = %d, want 1", warns)
	}
}

func TestDisconnect_DuringConnectDiscardsClient(t *testing.T) {
	fb := newFakeBroker()
	svc := newTestService(t, fb, nil, nil)

	// Tear down between the dial and the client installation; the late
	// client must not resurrect the connection.
	svc.dial = func(config.MQTTConfig) (broker, error) {
		if err := svc.Disconnect(); err != nil {
			t.Fatalf("Disconnect() error = %v", err)
		}
		return fb, nil
	}

	if err := svc.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if svc.IsConnected() {
		t.Error("IsConnected() = true after Disconnect raced Connect")
	}
	if fb.IsConnected() {
		t.Error("late-dialed broker client left open")
	}
}

func TestReconnectGiveUp_FlagsDisconnected(t *testing.T) {
	fb := newFakeBroker()
	svc := newTestService(t, fb, nil, nil)

	if err := svc.Connect(); err != nil {
		t.Fatal(err)
	}

	giveUpErr := errors.New("reconnect exhausted")
	fb.giveUp(giveUpErr)

	if svc.IsConnected() {
		t.Error("IsConnected() = true after give-up")
	}
	if !errors.Is(svc.LastError(), giveUpErr) {
		t.Errorf("LastError() = %v, want the give-up error", svc.LastError())
	}
}

func TestSendCommand_FailsFastWhenDisconnected(t *testing.T) {
	svc := New(testGatewayConfig(), nil, nil, nil)

	err := svc.SendCommand(protocol.RelayCommand{Number: 5, State: 1})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendCommand() error = %v, want ErrNotConnected", err)
	}
}

func TestSendCommand_ValidationBeforePublish(t *testing.T) {
	fb := newFakeBroker()
	svc := newTestService(t, fb, nil, nil)
	if err := svc.Connect(); err != nil {
		t.Fatal(err)
	}

	err := svc.SendCommand(protocol.RelayCommand{Number: 9, State: 1})
	if !errors.Is(err, protocol.ErrInvalidRelayNumber) {
		t.Errorf("SendCommand() error = %v, want ErrInvalidRelayNumber", err)
	}
	if len(fb.published) != 0 {
		t.Error("invalid command reached the broker")
	}
}

func TestSendCommand_PublishesOnCommandTopic(t *testing.T) {
	fb := newFakeBroker()
	svc := newTestService(t, fb, nil, nil)
	if err := svc.Connect(); err != nil {
		t.Fatal(err)
	}

	if err := svc.SendCommand(protocol.LEDCommand{Brightness: [4]int{10, 0, 255, 5}}); err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}

	if len(fb.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(fb.published))
	}
	msg := fb.published[0]
	if msg.topic != testGatewayConfig().MQTT.Topics.Command {
		t.Errorf("published on %q, want the command topic", msg.topic)
	}
	if msg.qos != 1 {
		t.Errorf("qos = %d, want 1", msg.qos)
	}
}

func TestInboundMessage_MergesAndFansOut(t *testing.T) {
	fb := newFakeBroker()
	svc := newTestService(t, fb, nil, nil)
	if err := svc.Connect(); err != nil {
		t.Fatal(err)
	}

	var notified []telemetry.Snapshot
	svc.Subscribe(func(s telemetry.Snapshot) { notified = append(notified, s) })

	cfg := testGatewayConfig()
	fb.deliver(t, cfg.MQTT.Topics.Environment, `{"temperature":215,"humidity":550}`)
	fb.deliver(t, cfg.MQTT.Topics.SensorNode, `{"relay5":1,"led2":100}`)

	snap, ok := svc.LatestSnapshot()
	if !ok {
		t.Fatal("LatestSnapshot() ok = false after messages")
	}
	if snap.Temperature != 215 || snap.Relay5 != 1 || snap.LED2 != 100 {
		t.Errorf("snapshot = %+v, want merged values from both topics", snap)
	}
	if len(notified) != 2 {
		t.Errorf("listener notified %d times, want 2", len(notified))
	}
}

func TestInboundMessage_MalformedDropped(t *testing.T) {
	fb := newFakeBroker()
	svc := newTestService(t, fb, nil, nil)
	if err := svc.Connect(); err != nil {
		t.Fatal(err)
	}

	cfg := testGatewayConfig()
	fb.deliver(t, cfg.MQTT.Topics.Environment, `{"temperature":215}`)
	fb.deliver(t, cfg.MQTT.Topics.Environment, `{broken json`)

	snap, ok := svc.LatestSnapshot()
	if !ok || snap.Temperature != 215 {
		t.Errorf("snapshot changed by malformed payload: %+v", snap)
	}
}

// Feed a payload that trips three rules, expect one consolidated digest;
// replaying the same payload shortly after must dispatch nothing.
func TestEnvironmentAlertPipeline(t *testing.T) {
	fb := newFakeBroker()
	notifier := &chanNotifier{digests: make(chan string, 4)}
	dispatcher := alerting.NewDispatcher(notifier, nil, 30*time.Minute, time.UTC, nil)
	persister := &fakePersister{}

	svc := newTestService(t, fb, dispatcher, persister)
	// Pin the evaluation to mid-day so no time-gated rule interferes.
	svc.now = func() time.Time {
		return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	}
	if err := svc.Connect(); err != nil {
		t.Fatal(err)
	}

	cfg := testGatewayConfig()
	// First a healthy full reading so defaults don't trip extra rules.
	fb.deliver(t, cfg.MQTT.Topics.Environment,
		`{"temperature":250,"humidity":550,"light":8000,"co2":800,"earth_temp":180,"earth_water":45,"earth_ec":1500,"earth_n":50,"earth_p":30,"earth_k":80}`)

	select {
	case digest := <-notifier.digests:
		t.Fatalf("healthy reading dispatched a digest: %q", digest)
	case <-time.After(100 * time.Millisecond):
	}

	// Now the alerting reading from the same sensors.
	fb.deliver(t, cfg.MQTT.Topics.Environment, `{"temperature":450,"humidity":150,"co2":3500}`)

	var digest string
	select {
	case digest = <-notifier.digests:
	case <-time.After(2 * time.Second):
		t.Fatal("no digest dispatched for alerting reading")
	}
	for _, fragment := range []string{"高温", "低湿", "CO2"} {
		if !strings.Contains(digest, fragment) {
			t.Errorf("digest missing %q fragment: %q", fragment, digest)
		}
	}

	// Replay the identical payload: inside the cooldown, nothing goes out.
	fb.deliver(t, cfg.MQTT.Topics.Environment, `{"temperature":450,"humidity":150,"co2":3500}`)
	select {
	case digest := <-notifier.digests:
		t.Fatalf("replay inside cooldown dispatched: %q", digest)
	case <-time.After(200 * time.Millisecond):
	}

	// Every environmental message was persisted regardless of alerting.
	if persister.count() != 3 {
		t.Errorf("persisted %d snapshots, want 3", persister.count())
	}
	if persister.sites[0] != "greenhouse-01" {
		t.Errorf("persisted site = %q, want greenhouse-01", persister.sites[0])
	}
}

func TestActuatorMessages_DoNotTriggerAlerting(t *testing.T) {
	fb := newFakeBroker()
	notifier := &chanNotifier{digests: make(chan string, 1)}
	dispatcher := alerting.NewDispatcher(notifier, nil, 30*time.Minute, time.UTC, nil)
	persister := &fakePersister{}

	svc := newTestService(t, fb, dispatcher, persister)
	if err := svc.Connect(); err != nil {
		t.Fatal(err)
	}

	// Actuator and spectral messages never evaluate thresholds or persist,
	// even though the snapshot's zeroed environment would trip rules.
	cfg := testGatewayConfig()
	fb.deliver(t, cfg.MQTT.Topics.SensorNode, `{"relay5":1}`)
	fb.deliver(t, cfg.MQTT.Topics.Spectral, `{"channel_1":10}`)

	select {
	case digest := <-notifier.digests:
		t.Fatalf("non-environment topic dispatched a digest: %q", digest)
	case <-time.After(200 * time.Millisecond):
	}
	if persister.count() != 0 {
		t.Errorf("persisted %d snapshots from non-environment topics, want 0", persister.count())
	}
}
