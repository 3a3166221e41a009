// Fertigate Core - Irrigation and Fertigation Controller
//
// This is the main entry point for the fertigation controller daemon.
// It wires the persistence stores, the hardware IO layers, the MQTT
// bridge and telemetry export, and the HTTP API, then runs until a
// shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/fertigate-core/migrations"

	"github.com/nerrad567/fertigate-core/internal/api"
	"github.com/nerrad567/fertigate-core/internal/audit"
	"github.com/nerrad567/fertigate-core/internal/auth"
	"github.com/nerrad567/fertigate-core/internal/bridge"
	"github.com/nerrad567/fertigate-core/internal/hardware"
	"github.com/nerrad567/fertigate-core/internal/history"
	"github.com/nerrad567/fertigate-core/internal/infrastructure/config"
	"github.com/nerrad567/fertigate-core/internal/infrastructure/database"
	"github.com/nerrad567/fertigate-core/internal/infrastructure/logging"
	"github.com/nerrad567/fertigate-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/fertigate-core/internal/infrastructure/telemetry"
	"github.com/nerrad567/fertigate-core/internal/input"
	"github.com/nerrad567/fertigate-core/internal/lock"
	"github.com/nerrad567/fertigate-core/internal/output"
	"github.com/nerrad567/fertigate-core/internal/schedule"
	"github.com/nerrad567/fertigate-core/internal/session"
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

// historyInterval throttles persisted input snapshots: at most one
// batch per interval regardless of the sampler rate.
const historyInterval = time.Minute

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
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
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup wiring is linear but long
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Fertigate Core",
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
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// The persistence layer cannot limp along: missing directories are fatal.
	for _, dir := range cfg.RequiredDirs() {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	// Database (audit trail and input sample history)
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// User accounts
	users, err := auth.NewStore(cfg.Storage.UsersDir)
	if err != nil {
		return fmt.Errorf("initialising user store: %w", err)
	}
	if _, err := auth.SeedOwner(users, log); err != nil {
		return fmt.Errorf("seeding owner account: %w", err)
	}

	// Locks and sessions
	locks := lock.NewRegistry(cfg.Storage.LockFile, cfg.LockTimeout(), log)
	sessions := session.NewRegistry(cfg.SessionTimeout(), locks, log)

	// Schedules
	schedules, err := schedule.NewStore(cfg.Storage.SchedulesDir, cfg.IndexFile(), log)
	if err != nil {
		return fmt.Errorf("initialising schedule store: %w", err)
	}
	if added, removed, err := schedules.Reconcile(); err != nil {
		log.Warn("schedule index reconciliation failed", "error", err)
	} else if added > 0 || removed > 0 {
		log.Info("schedule index reconciled", "added", added, "removed", removed)
	}

	// Hardware IO
	board, err := hardware.LoadBoardConfig(cfg.Hardware.BoardConfig)
	if err != nil {
		return fmt.Errorf("loading board config: %w", err)
	}
	driver, err := hardware.NewDriver(cfg.Hardware.Adaptor, board)
	if err != nil {
		return fmt.Errorf("creating hardware driver: %w", err)
	}
	if err := driver.Connect(); err != nil {
		return fmt.Errorf("connecting hardware driver: %w", err)
	}
	defer func() {
		log.Info("closing hardware driver")
		if closeErr := driver.Close(); closeErr != nil {
			log.Error("error closing hardware driver", "error", closeErr)
		}
	}()
	log.Info("hardware driver connected",
		"adaptor", cfg.Hardware.Adaptor,
		"board", board.BoardName,
	)

	dispatcher := output.NewDispatcher(driver, board, log)
	sampler := input.NewSampler(driver, board, cfg.SampleInterval(), log)

	// Local history and audit trail
	auditRecorder := audit.NewRecorder(db.DB)
	historyStore := history.NewStore(db.DB)
	historyRecorder := history.NewRecorder(historyStore, historyInterval, log)
	sampler.AddListener(historyRecorder.Observe)

	// MQTT bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		// #nosec G115 -- QoS validated to 0..2 by config
		mqttBridge := bridge.New(mqttClient, dispatcher, byte(cfg.MQTT.QoS), log)
		if err := mqttBridge.Start(); err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		dispatcher.AddListener(mqttBridge.OutputListener())
		sampler.AddListener(mqttBridge.SampleListener())
		log.Info("MQTT bridge started", "prefix", cfg.MQTT.TopicPrefix)
	} else {
		log.Info("MQTT disabled")
	}

	// Telemetry export (optional)
	var telemetryClient *telemetry.Client
	if cfg.Telemetry.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.Telemetry, cfg.Controller.ID)
		if err != nil {
			return fmt.Errorf("connecting telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry client")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		telemetryClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
		dispatcher.AddListener(telemetryListener(telemetryClient))
		sampler.AddListener(telemetrySampleListener(telemetryClient))
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
	} else {
		log.Info("telemetry disabled")
	}

	// HTTP API
	server, err := api.New(api.Deps{
		Config:     cfg.Server,
		Session:    cfg.Session,
		Logger:     log,
		Sessions:   sessions,
		Locks:      locks,
		Schedules:  schedules,
		Users:      users,
		Dispatcher: dispatcher,
		Sampler:    sampler,
		Audit:      auditRecorder,
		History:    historyStore,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	dispatcher.AddListener(server.OutputListener())
	sampler.AddListener(server.SampleListener())

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, server, mqttClient, telemetryClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Background workers. The dispatcher is the sole writer of relay
	// state and the sampler the sole reader of the converters; both
	// listeners were wired before either loop starts.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return sampler.Run(gctx) })
	g.Go(func() error { return historyRecorder.Run(gctx) })
	g.Go(func() error { return sessions.Run(gctx, cfg.SessionSweepInterval()) })
	g.Go(func() error { return locks.Run(gctx, cfg.LockSweepInterval()) })

	log.Info("initialisation complete, waiting for shutdown signal")

	// Workers return the context error on shutdown; anything else is a
	// genuine failure.
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("worker failed: %w", err)
	}

	log.Info("Fertigate Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FERTIGATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FERTIGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - server: API server to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - telemetryClient: Telemetry client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, server *api.Server, mqttClient *mqtt.Client, telemetryClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if telemetryClient != nil {
		if err := telemetryClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

// telemetryListener exports applied output transitions.
func telemetryListener(client *telemetry.Client) output.Listener {
	return func(ev output.Event) {
		client.WriteOutputState(ev.PointID, ev.On, ev.Origin, ev.At)
	}
}

// telemetrySampleListener exports each polled input batch.
func telemetrySampleListener(client *telemetry.Client) input.Listener {
	return func(snap input.Snapshot) {
		for _, d := range snap.Digital {
			if d.At.IsZero() {
				continue
			}
			value := 0.0
			if d.High {
				value = 1.0
			}
			client.WriteSample(d.PointID, history.KindDigital, value, d.At)
		}
		for _, a := range snap.Analog {
			if a.At.IsZero() {
				continue
			}
			client.WriteSample(a.PointID, history.KindAnalog, float64(a.Raw), a.At)
		}
	}
}
