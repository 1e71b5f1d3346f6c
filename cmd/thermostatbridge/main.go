// Gray Logic Thermostat Bridge
//
// This is the main entry point for the thermostat bridge. It reads
// thermostat snapshots from the device bus, republishes them as climate
// entities on MQTT and applies the commands a home automation hub sends
// back.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-thermostat/migrations"

	"github.com/nerrad567/gray-logic-thermostat/internal/api"
	"github.com/nerrad567/gray-logic-thermostat/internal/audit"
	"github.com/nerrad567/gray-logic-thermostat/internal/bridges/thermostat"
	"github.com/nerrad567/gray-logic-thermostat/internal/device"
	"github.com/nerrad567/gray-logic-thermostat/internal/devicebus"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// migrateDownCommand rolls back the latest command log migration and
	// exits without starting the bridge.
	migrateDownCommand = "migrate-down"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == migrateDownCommand {
		err = runMigrateDown(ctx)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Everything opened here is closed by a deferred call, so teardown runs
// in reverse start order.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting thermostat bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Command log storage
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		db.Close() //nolint:errcheck // shutdown
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")

	commandRepo := audit.NewSQLiteRepository(db.DB)
	writerCtx, stopWriter := context.WithCancel(context.Background())
	commandLog := audit.NewWriter(commandRepo, log.With("component", "command_log"))
	commandLog.Start(writerCtx)
	defer func() {
		stopWriter()
		commandLog.Wait()
	}()

	// MQTT
	statusTopic := mqtt.StatusTopic(cfg.Thermostat.TopicPrefix, cfg.Site.ID)
	mqttClient, err := mqtt.Connect(cfg.MQTT, statusTopic)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		mqttClient.Close() //nolint:errcheck // shutdown
	}()
	mqttClient.SetLogger(log.With("component", "mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"status_topic", statusTopic,
	)

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			influxClient.Close() //nolint:errcheck // shutdown
		}()
		influxClient.SetOnError(func(err error) {
			log.Warn("InfluxDB write failed", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	transport := &mqttBridgeAdapter{client: mqttClient}

	// Device bus
	location := device.NewLocation(cfg.Site.ID)
	bus, err := devicebus.New(devicebus.Options{
		Prefix:     cfg.DeviceBus.TopicPrefix,
		Location:   location,
		MQTTClient: transport,
		Logger:     log.With("component", "devicebus"),
	})
	if err != nil {
		return fmt.Errorf("creating device bus: %w", err)
	}
	if err := bus.Start(); err != nil {
		return fmt.Errorf("starting device bus: %w", err)
	}
	defer func() {
		log.Info("stopping device bus")
		bus.Stop()
	}()

	if err := waitForDevices(ctx, bus, cfg.GetStartupTimeout()); err != nil {
		if ctx.Err() != nil {
			log.Info("shutdown requested during startup")
			return nil
		}
		// Thermostats that show up later are attached as they arrive.
		log.Warn("no complete thermostat yet, continuing", "error", err)
	}
	log.Info("device bus ready", "devices", location.Len())

	// The hub streams every state publish to API WebSocket clients.
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.With("component", "websocket"))
	}

	// Thermostat bridge
	bridgeOpts := thermostat.BridgeOptions{
		Config:          cfg.Thermostat,
		Location:        location,
		MQTTClient:      transport,
		RefreshInterval: cfg.GetRefreshInterval(),
		StatusTopic:     statusTopic,
		QoS:             byte(cfg.MQTT.QoS), //nolint:gosec // validated 0..2
		Version:         version,
		Devices:         bus,
		Logger:          log.With("component", "thermostat"),
		Recorder:        &commandRecorder{writer: commandLog},
	}
	if influxClient != nil {
		bridgeOpts.Telemetry = influxClient
	}
	if hub != nil {
		bridgeOpts.Observer = hub
	}
	bridge, err := thermostat.NewBridge(bridgeOpts)
	if err != nil {
		return fmt.Errorf("creating thermostat bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting thermostat bridge: %w", err)
	}
	defer func() {
		log.Info("stopping thermostat bridge")
		bridge.Stop()
	}()
	log.Info("thermostat bridge started", "thermostats", len(bridge.Thermostats()))

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected, republishing state")
		bridge.Refresh()
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// HTTP API (optional)
	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{
			"database": db,
			"mqtt":     mqttClient,
		}
		if influxClient != nil {
			checks["influxdb"] = influxClient
		}
		server, err := api.New(api.Deps{
			Config:      cfg.API,
			WebSocket:   cfg.WebSocket,
			Logger:      log.With("component", "api"),
			Thermostats: bridge,
			Commands:    commandRepo,
			Checks:      checks,
			Hub:         hub,
			Version:     version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			log.Info("stopping API server")
			server.Close() //nolint:errcheck // shutdown
		}()
		log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// runMigrateDown rolls back the most recently applied migration.
func runMigrateDown(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log := logging.New(cfg.Logging, version)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // shutdown

	if err := db.MigrateDown(ctx); err != nil {
		return fmt.Errorf("rolling back migration: %w", err)
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	log.Info("migration rolled back",
		"path", cfg.Database.Path,
		"applied", len(applied),
		"pending", len(pending),
	)
	return nil
}

// getConfigPath returns the configuration file path.
// GRAYLOGIC_CONFIG overrides the default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// waitForDevices blocks until the bus has seen a complete thermostat or
// the timeout elapses.
func waitForDevices(ctx context.Context, bus *devicebus.Bus, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return bus.WaitForDevices(waitCtx)
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
