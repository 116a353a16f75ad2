// Package logging provides structured logging for the greenhouse gateway.
//
// It wraps the standard library's log/slog with:
//   - Configurable output format (JSON or text)
//   - Level filtering (debug, info, warn, error)
//   - Default attributes (service name, version)
//
// # Usage
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("gateway started", "broker", cfg.MQTT.Broker.Host)
//
//	mqttLog := log.With("component", "mqtt")
//	mqttLog.Warn("reconnecting", "attempt", 3)
//
// Domain packages accept a narrow Logger interface of their own and treat
// this logger as one implementation, keeping them testable without slog.
package logging
