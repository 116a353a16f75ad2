// Greenhouse Core - device telemetry and control gateway.
//
// A long-lived MQTT client for the Meime Farm greenhouse: ingests sensor
// telemetry from the device topics, maintains the authoritative device
// snapshot, dispatches threshold alerts to a WeCom webhook, persists
// environmental readings to InfluxDB, and publishes rw_prot control
// commands back to the hardware.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/meimefarm/greenhouse-core/migrations"

	"github.com/meimefarm/greenhouse-core/internal/alerting"
	"github.com/meimefarm/greenhouse-core/internal/gateway"
	"github.com/meimefarm/greenhouse-core/internal/infrastructure/config"
	"github.com/meimefarm/greenhouse-core/internal/infrastructure/database"
	"github.com/meimefarm/greenhouse-core/internal/infrastructure/influxdb"
	"github.com/meimefarm/greenhouse-core/internal/infrastructure/logging"
	"github.com/meimefarm/greenhouse-core/internal/infrastructure/notify"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// How often the background loop re-checks infrastructure health.
const healthCheckInterval = 60 * time.Second

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error lets main handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting greenhouse gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open the alert history database and apply embedded migrations
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Alert dispatcher (needs the notification webhook)
	var dispatcher *alerting.Dispatcher
	if cfg.Alerting.Enabled && cfg.Notify.Enabled {
		notifier := notify.NewWeComClient(cfg.Notify)
		history := alerting.NewHistoryRepository(db)
		dispatcher = alerting.NewDispatcher(
			notifier,
			history,
			cfg.CooldownDuration(),
			cfg.Location(),
			log,
		)
		log.Info("alerting enabled", "cooldown_minutes", cfg.Alerting.CooldownMinutes)
	} else {
		log.Info("alerting disabled")
	}

	// Gateway facade: owns the broker connection and the snapshot
	svc := newService(cfg, dispatcher, influxClient, log)
	if err := svc.Connect(); err != nil {
		return fmt.Errorf("connecting gateway: %w", err)
	}
	defer func() {
		log.Info("disconnecting gateway")
		if closeErr := svc.Disconnect(); closeErr != nil {
			log.Error("error disconnecting gateway", "error", closeErr)
		}
	}()
	log.Info("gateway connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Verify infrastructure is healthy before declaring readiness
	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Keep watching; a degraded dependency is logged, not fatal. The
	// broker client reconnects on its own and persistence errors surface
	// via their async callbacks.
	go healthCheckLoop(ctx, log, db, influxClient, svc)

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Gateway disconnect (publishes offline status)
	// 2. InfluxDB (if enabled, flushes pending writes)
	// 3. Database

	log.Info("greenhouse gateway stopped")
	return nil
}

// newService wires the gateway with optional collaborators. influxClient
// may be nil; a typed nil must not become a non-nil interface.
func newService(cfg *config.Config, dispatcher *alerting.Dispatcher, influxClient *influxdb.Client, log *logging.Logger) *gateway.Service {
	var persister gateway.Persister
	if influxClient != nil {
		persister = influxClient
	}
	return gateway.New(cfg, dispatcher, persister, log)
}

// getConfigPath returns the configuration file path.
// Uses GREENHOUSE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GREENHOUSE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
// influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// healthCheckLoop re-runs the infrastructure checks on a ticker and logs
// degradations until the context is cancelled.
func healthCheckLoop(ctx context.Context, log *logging.Logger, db *database.DB, influxClient *influxdb.Client, svc *gateway.Service) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := healthCheck(ctx, db, influxClient); err != nil {
				log.Warn("health check failed", "error", err)
			}
			if !svc.IsConnected() {
				log.Warn("broker connection down", "error", svc.LastError())
			}
		}
	}
}
