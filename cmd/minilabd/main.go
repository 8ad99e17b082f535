// MiniLab Core - bench instrument firmware core
//
// This is the main entry point for the MiniLab daemon. It wires the
// channel registry, the UDP sync protocol, the remote-update history
// store, the optional MQTT/InfluxDB telemetry bridges, and the HTTP API
// together, then waits for a shutdown signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/minilabo/minilab-core/internal/api"
	"github.com/minilabo/minilab-core/internal/hardware"
	"github.com/minilabo/minilab-core/internal/history"
	"github.com/minilabo/minilab-core/internal/infrastructure/config"
	"github.com/minilabo/minilab-core/internal/infrastructure/database"
	"github.com/minilabo/minilab-core/internal/infrastructure/influxdb"
	"github.com/minilabo/minilab-core/internal/infrastructure/logging"
	"github.com/minilabo/minilab-core/internal/infrastructure/mqtt"
	"github.com/minilabo/minilab-core/internal/io"
	"github.com/minilabo/minilab-core/internal/telemetry"
	"github.com/minilabo/minilab-core/internal/udpsync"
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

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting MiniLab Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database for the remote-update history
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	historyRepo, err := history.NewSQLiteRepository(db.DB)
	if err != nil {
		return fmt.Errorf("initialising history store: %w", err)
	}

	// Build the channel registry over the configured hardware backend
	var hw io.Hardware
	if cfg.IO.Simulate {
		hw = hardware.NewSim()
		log.Info("using simulated converters")
	} else {
		// Real converter drivers ship with the device image; this build
		// reads local channels as zero without them.
		log.Warn("hardware drivers unavailable, local channels read zero")
	}

	registry := io.NewRegistry(hw)
	registry.SetLogger(log)
	registry.SetRecorder(historyRepo)
	count := registry.Load(cfg.ChannelDocument())
	log.Info("channel registry initialised",
		"channels", count,
		"document", cfg.IO.ChannelsFile,
	)

	// Start the UDP sync service
	ident := udpsync.DetectIdentity()
	if cfg.Device.Hostname != "" {
		ident.Hostname = cfg.Device.Hostname
	}
	syncSvc := udpsync.New(udpsync.Config{
		Enabled:       cfg.UDP.Enabled,
		RxPort:        cfg.UDP.Port,
		TxPort:        cfg.UDP.TxPort,
		BroadcastAddr: cfg.UDP.BroadcastAddr,
	}, registry, ident)
	syncSvc.SetLogger(log)

	if err := syncSvc.Start(ctx); err != nil {
		return fmt.Errorf("starting UDP sync: %w", err)
	}
	defer func() {
		log.Info("stopping UDP sync")
		if closeErr := syncSvc.Close(); closeErr != nil {
			log.Error("error closing UDP sync", "error", closeErr)
		}
	}()
	if cfg.UDP.Enabled {
		log.Info("UDP sync started",
			"rx_port", cfg.UDP.Port,
			"tx_port", cfg.UDP.TxPort,
			"mac", ident.MAC,
			"hostname", ident.Hostname,
		)
	} else {
		log.Info("UDP sync disabled")
	}

	// Connect to MQTT broker (optional). A broker outage degrades the
	// device to local operation rather than failing startup.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, continuing without it", "error", err)
			mqttClient = nil
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			mqttClient.SetLogger(log)
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
				"client_id", cfg.MQTT.ClientID,
			)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional), same degradation policy as MQTT.
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			log.Warn("InfluxDB unavailable, continuing without it", "error", err)
			influxClient = nil
		} else {
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
				"org", cfg.InfluxDB.Org,
				"bucket", cfg.InfluxDB.Bucket,
			)
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the telemetry sampler when at least one sink is up
	var publisher telemetry.Publisher
	if mqttClient != nil {
		publisher = mqttClient
	}
	var writer telemetry.SampleWriter
	if influxClient != nil {
		writer = influxClient
	}
	if publisher != nil || writer != nil {
		sampler := telemetry.New(registry, publisher, writer, cfg.GetPublishInterval())
		sampler.SetLogger(log)
		go sampler.Run(ctx)
		log.Info("telemetry sampler started", "interval", cfg.GetPublishInterval())
	}

	// Start the HTTP API
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Registry: registry,
		Sync:     syncSvc,
		History:  historyRepo,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, apiServer, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, MQTT, UDP sync, database.

	log.Info("MiniLab Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MINILAB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MINILAB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The optional clients may be nil when disabled or degraded.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, apiServer *api.Server, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
