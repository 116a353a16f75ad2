package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/meimefarm/greenhouse-core/internal/alerting"
	"github.com/meimefarm/greenhouse-core/internal/infrastructure/config"
	"github.com/meimefarm/greenhouse-core/internal/infrastructure/mqtt"
	"github.com/meimefarm/greenhouse-core/internal/protocol"
	"github.com/meimefarm/greenhouse-core/internal/telemetry"
)

// broker is the slice of mqtt.Client the service depends on. Narrowed
// to an interface so tests can run against a fake.
type broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
	Close() error
	SetOnGiveUp(fn func(err error))
	SetLogger(logger mqtt.Logger)
}

// Persister saves the environmental subset of snapshots. Implemented by
// influxdb.Client. Calls are fire-and-forget from the hot path.
type Persister interface {
	WriteEnvironment(siteID string, snap telemetry.Snapshot)
}

// Logger interface for gateway logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// Service is the gateway facade: the single owner of the broker
// connection and the device snapshot.
//
// Lifecycle: Disconnected -> Connecting -> Connected, with the broker
// client handling Reconnecting internally. When reconnection gives up,
// the service drops back to Disconnected with the error retained until
// a caller invokes Connect again.
//
// Thread Safety:
//   - All methods are safe for concurrent use. SendCommand and the
//     inbound message path may run concurrently; the snapshot and the
//     debounce gate are serialized by their own mutexes.
type Service struct {
	cfg      *config.Config
	store    *telemetry.Store
	registry *telemetry.Registry

	dispatcher *alerting.Dispatcher // nil when alerting is disabled
	persister  Persister            // nil when persistence is disabled
	logger     Logger

	mu         sync.Mutex
	client     broker
	connecting bool
	lastErr    error
	// gen is bumped by Disconnect; an in-flight Connect from an earlier
	// generation must not install its client after teardown.
	gen uint64

	// dial is swappable for tests; defaults to mqtt.Connect.
	dial func(cfg config.MQTTConfig) (broker, error)

	// now is swappable for deterministic local-hour tests.
	now func() time.Time
}

// New creates a gateway service. dispatcher and persister may be nil to
// disable alerting or persistence.
func New(cfg *config.Config, dispatcher *alerting.Dispatcher, persister Persister, logger Logger) *Service {
	registry := telemetry.NewRegistry()
	if logger != nil {
		registry.SetLogger(logger)
	}

	return &Service{
		cfg:        cfg,
		store:      telemetry.NewStore(),
		registry:   registry,
		dispatcher: dispatcher,
		persister:  persister,
		logger:     logger,
		dial: func(mqttCfg config.MQTTConfig) (broker, error) {
			return mqtt.Connect(mqttCfg)
		},
		now: time.Now,
	}
}

// Connect establishes the broker connection and subscribes the three
// inbound topics. Calling Connect while connected or connecting is an
// idempotent no-op.
func (s *Service) Connect() error {
	s.mu.Lock()
	if s.connecting || (s.client != nil && s.client.IsConnected()) {
		s.mu.Unlock()
		return nil
	}
	s.connecting = true
	s.lastErr = nil
	gen := s.gen
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
	}()

	client, err := s.dial(s.cfg.MQTT)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	// Handler panics and reconnect attempts inside the broker client must
	// surface in the gateway's log.
	if s.logger != nil {
		client.SetLogger(s.logger)
	}

	client.SetOnGiveUp(func(err error) {
		s.logError("broker reconnection exhausted", "error", err)
		s.mu.Lock()
		s.client = nil
		s.lastErr = err
		s.mu.Unlock()
	})

	qos := byte(s.cfg.MQTT.QoS)
	topics := s.cfg.MQTT.Topics
	subscriptions := map[string]mqtt.MessageHandler{
		topics.Environment: s.handleEnvironment,
		topics.SensorNode:  s.handleActuator,
		topics.Spectral:    s.handleSpectral,
	}
	for topic, handler := range subscriptions {
		if err := client.Subscribe(topic, qos, handler); err != nil {
			client.Close() //nolint:errcheck // Best effort cleanup on error path
			s.setError(err)
			return fmt.Errorf("%w: subscribing %s: %w", ErrConnectFailed, topic, err)
		}
	}

	s.mu.Lock()
	if s.gen != gen {
		// Disconnect won the race; the fresh client must not outlive it.
		s.mu.Unlock()
		client.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil
	}
	s.client = client
	s.mu.Unlock()

	s.logInfo("gateway connected",
		"broker", s.cfg.MQTT.Broker.Host,
		"topics", len(subscriptions))
	return nil
}

// Disconnect closes the broker connection gracefully. Safe to call in
// any state, including mid-reconnect.
func (s *Service) Disconnect() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.gen++
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

// IsConnected reports whether the broker connection is live.
func (s *Service) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.client.IsConnected()
}

// LastError returns the error that dropped the gateway to Disconnected,
// or nil. Cleared on the next Connect attempt.
func (s *Service) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LatestSnapshot returns the current device snapshot. ok is false until
// the first message has been merged.
func (s *Service) LatestSnapshot() (telemetry.Snapshot, bool) {
	return s.store.Latest()
}

// Subscribe registers fn for snapshot updates after every merge and
// returns an unsubscribe function. Legal in any connection state.
func (s *Service) Subscribe(fn telemetry.Listener) (unsubscribe func()) {
	return s.registry.Subscribe(fn)
}

// SendCommand validates, encodes, and publishes a control command on the
// command topic with at-least-once delivery. It fails fast with
// ErrNotConnected outside the Connected state; validation errors surface
// before any I/O.
func (s *Service) SendCommand(cmd protocol.Command) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}

	if err := client.Publish(s.cfg.MQTT.Topics.Command, payload, byte(s.cfg.MQTT.QoS), false); err != nil {
		return fmt.Errorf("publishing command: %w", err)
	}
	return nil
}

// handleEnvironment processes environmental topic messages: merge,
// fan-out, then alert evaluation and persistence off the hot path.
func (s *Service) handleEnvironment(topic string, payload []byte) error {
	partial, err := protocol.DecodeEnvironment(payload)
	if err != nil {
		s.logWarn("dropping malformed environment payload", "topic", topic, "error", err)
		return err
	}

	snap := s.store.Merge(partial)
	s.registry.Notify(snap)

	if s.dispatcher != nil && s.cfg.Alerting.Enabled {
		hour := s.now().In(s.cfg.Location()).Hour()
		alerts := alerting.Evaluate(snap, hour)
		if len(alerts) > 0 {
			// Off the hot path; the dispatcher serializes internally.
			go s.dispatcher.Dispatch(alerts, snap.TimestampMs)
		}
	}

	if s.persister != nil {
		// Non-blocking batched write; errors surface via the async
		// callback wired in main.
		s.persister.WriteEnvironment(s.cfg.Site.ID, snap)
	}
	return nil
}

func (s *Service) handleActuator(topic string, payload []byte) error {
	partial, err := protocol.DecodeActuator(payload)
	if err != nil {
		s.logWarn("dropping malformed sensor node payload", "topic", topic, "error", err)
		return err
	}

	snap := s.store.Merge(partial)
	s.registry.Notify(snap)
	return nil
}

func (s *Service) handleSpectral(topic string, payload []byte) error {
	partial, err := protocol.DecodeSpectral(payload)
	if err != nil {
		s.logWarn("dropping malformed spectral payload", "topic", topic, "error", err)
		return err
	}

	snap := s.store.Merge(partial)
	s.registry.Notify(snap)
	return nil
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Service) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}

func (s *Service) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Service) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
