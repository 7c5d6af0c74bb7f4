// Gray Logic Thermal - adaptive thermal polling monitor
//
// thermalmon polls temperature sensors, shortening the interval while a
// sensor is at or above its hot threshold, and exposes a per-monitor
// enable/disable control over HTTP and MQTT.
//
// Usage:
//
//	thermalmon                 run the daemon (config from THERMALMON_CONFIG)
//	thermalmon hash-password   read a password on stdin, print its Argon2id hash
//	thermalmon migrate-down    roll back the latest history schema migration
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-thermal/internal/api"
	"github.com/nerrad567/gray-logic-thermal/internal/auth"
	"github.com/nerrad567/gray-logic-thermal/internal/control"
	"github.com/nerrad567/gray-logic-thermal/internal/history"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-thermal/internal/sensor"
	"github.com/nerrad567/gray-logic-thermal/internal/sink"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
	"github.com/nerrad567/gray-logic-thermal/migrations"
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

// errNoMonitors is returned when every configured monitor failed to start.
var errNoMonitors = errors.New("no monitors started")

func main() {
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "hash-password":
			err = hashPassword(os.Stdin, os.Stdout)
		case "migrate-down":
			err = migrateDown(context.Background(), getConfigPath(), os.Stdout)
		default:
			err = fmt.Errorf("unknown command %q", os.Args[1])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Cancel on Ctrl+C or SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting thermalmon",
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

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// History database (optional)
	var db *database.DB
	var store *history.Store
	if cfg.History.Enabled {
		db, err = database.Open(cfg.Database)
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

		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")
		store = history.NewStore(db.DB)
	} else {
		log.Info("history disabled")
	}

	// MQTT broker (optional)
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
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
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
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.Component("websocket"))
		go hub.Run(ctx)
	}

	observers := buildObservers(log, store, mqttClient, influxClient, hub)

	scheduler := thermal.NewTimerScheduler()
	defer func() {
		if closeErr := scheduler.Close(); closeErr != nil {
			log.Error("error closing scheduler", "error", closeErr)
		}
	}()

	registry, err := startMonitors(ctx, cfg, scheduler, mqttClient, observers, log)
	// Registered before the error check so partially started monitors are
	// stopped; runs ahead of scheduler.Close.
	defer func() {
		log.Info("stopping monitors")
		if stopErr := registry.StopAll(); stopErr != nil {
			log.Error("error stopping monitors", "error", stopErr)
		}
	}()
	if err != nil {
		return err
	}

	controls := buildControls(ctx, cfg, registry, store, influxClient, hub, log)
	if mqttClient != nil {
		binding := control.NewMQTTBinding(mqttClient, mqttClient.QoS(), log.Component("control"))
		for _, c := range controls {
			binding.Add(c)
		}
		if startErr := binding.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT control binding: %w", startErr)
		}
		defer binding.Close()
	}

	if store != nil {
		pruner, pruneErr := history.NewPruner(store, cfg.History, log.Component("history"))
		if pruneErr != nil {
			return fmt.Errorf("creating history pruner: %w", pruneErr)
		}
		pruner.Start()
		defer pruner.Stop()
	}

	if cfg.API.Enabled {
		srv, apiErr := startAPI(ctx, cfg, log, registry, controls, store, db, mqttClient, influxClient, hub)
		if apiErr != nil {
			return apiErr
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"monitors", registry.Len(),
	)
	<-ctx.Done()

	// Deferred calls run in reverse order: API, pruner, monitors,
	// scheduler, InfluxDB, MQTT, database.
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses THERMALMON_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("THERMALMON_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildObservers collects the reading sinks for the enabled outputs.
func buildObservers(log *logging.Logger, store *history.Store, mqttClient *mqtt.Client,
	influxClient *influxdb.Client, hub *api.Hub) []thermal.Observer {
	var observers []thermal.Observer
	if store != nil {
		observers = append(observers, history.NewRecorder(store, log.Component("history")))
	}
	if mqttClient != nil {
		observers = append(observers, sink.NewMQTTState(mqttClient, log.Component("mqtt")))
	}
	if influxClient != nil {
		observers = append(observers, sink.NewInflux(influxClient))
	}
	if hub != nil {
		observers = append(observers, hub)
	}
	return observers
}

// startMonitors creates and starts one monitor per enabled config entry.
//
// A monitor whose sensor or properties are unusable is logged and skipped;
// the others keep running.
//
// Returns:
//   - *thermal.Registry: Started monitors, never nil
//   - error: errNoMonitors if none could be started
func startMonitors(ctx context.Context, cfg *config.Config, scheduler thermal.Scheduler,
	mqttClient *mqtt.Client, observers []thermal.Observer, log *logging.Logger) (*thermal.Registry, error) {
	registry := thermal.NewRegistry()

	var sub sensor.Subscriber
	var qos byte
	if mqttClient != nil {
		sub = mqttClient
		qos = mqttClient.QoS()
	}

	for _, mc := range cfg.Monitors {
		mlog := log.With("monitor", mc.Name)
		if !mc.IsEnabled() {
			mlog.Info("monitor disabled in config, skipping")
			continue
		}

		src, err := sensor.New(mc.Sensor, sub, qos)
		if err != nil {
			mlog.Error("sensor setup failed, skipping monitor", "error", err)
			continue
		}

		m, err := thermal.NewMonitor(thermal.Options{
			Name:        mc.Name,
			Sensor:      src,
			Scheduler:   scheduler,
			Logger:      mlog,
			ReadTimeout: mc.ReadTimeout(),
			Observers:   observers,
		})
		if err != nil {
			mlog.Error("monitor creation failed, skipping", "error", err)
			continue
		}
		if err := m.Start(ctx, mc); err != nil {
			mlog.Error("monitor failed to start, skipping", "error", err)
			continue
		}
		if err := registry.Add(m); err != nil {
			mlog.Error("monitor registration failed", "error", err)
			_ = m.Stop() //nolint:errcheck // Already failing; Stop only cancels the armed poll
			continue
		}

		c := m.Config()
		mlog.Info("monitor started",
			"sensor", mc.Sensor.Type,
			"poll_interval", c.NormalInterval,
			"hot_interval", c.HotInterval,
			"hot_threshold", c.HotThreshold,
		)
	}

	if registry.Len() == 0 {
		return registry, errNoMonitors
	}
	return registry, nil
}

// buildControls creates a control surface per running monitor and, when
// configured, re-applies the last recorded operator toggle.
func buildControls(ctx context.Context, cfg *config.Config, registry *thermal.Registry, store *history.Store,
	influxClient *influxdb.Client, hub *api.Hub, log *logging.Logger) []*control.Surface {
	var events control.EventStore
	if store != nil {
		events = store
	}

	clog := log.Component("control")
	var influxSink *sink.Influx
	if influxClient != nil {
		influxSink = sink.NewInflux(influxClient)
	}

	controls := make([]*control.Surface, 0, registry.Len())
	for _, m := range registry.List() {
		s := control.NewSurface(m, events, clog)
		if influxSink != nil {
			s.OnChange(influxSink.ObserveChange)
		}
		if hub != nil {
			s.OnChange(hub.ObserveChange)
		}
		s.OnChange(func(c control.Change) {
			clog.Info("monitor toggled",
				"monitor", c.Monitor,
				"enabled", c.Enabled,
				"source", c.Source,
			)
		})

		if cfg.History.RestoreState && events != nil {
			if err := s.Restore(ctx); err != nil {
				clog.Warn("restoring toggle state failed", "monitor", m.Name(), "error", err)
			}
		}
		controls = append(controls, s)
	}
	return controls
}

// startAPI builds and starts the HTTP API.
func startAPI(ctx context.Context, cfg *config.Config, log *logging.Logger, registry *thermal.Registry,
	controls []*control.Surface, store *history.Store, db *database.DB, mqttClient *mqtt.Client,
	influxClient *influxdb.Client, hub *api.Hub) (*api.Server, error) {
	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log.Component("api"),
		Monitors: registry,
		Controls: controls,
		History:  store,
		Auth:     auth.NewAuthenticator(cfg.Security),
		Checks:   make(map[string]api.HealthChecker),
		Hub:      hub,
		Version:  version,
	}
	if db != nil {
		deps.DB = db.DB
		deps.Checks["database"] = db
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
		deps.Checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		deps.Checks["influxdb"] = influxClient
	}
	if !deps.Auth.Enabled() {
		log.Warn("security.jwt.secret is empty, control writes are unauthenticated")
	}

	srv, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return srv, nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check (nil if history is disabled)
//   - mqttClient: MQTT client to check (nil if disabled)
//   - influxClient: InfluxDB client to check (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	g, gctx := errgroup.WithContext(ctx)

	if db != nil {
		g.Go(func() error {
			if err := db.HealthCheck(gctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
			return nil
		})
	}
	if mqttClient != nil {
		g.Go(func() error {
			if err := mqttClient.HealthCheck(gctx); err != nil {
				return fmt.Errorf("mqtt: %w", err)
			}
			return nil
		})
	}
	if influxClient != nil {
		g.Go(func() error {
			if err := influxClient.HealthCheck(gctx); err != nil {
				return fmt.Errorf("influxdb: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// hashPassword reads one password line from in and writes its Argon2id
// hash to out, for use as security.operators[].password_hash.
func hashPassword(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

// migrateDown rolls back the most recently applied history migration in
// the database named by the config at configPath.
//
// Parameters:
//   - ctx: Context for cancellation
//   - configPath: Daemon configuration file
//   - out: Receives a one-line summary
//
// Returns:
//   - error: If the config cannot be loaded or the rollback fails
func migrateDown(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // one-shot command, nothing to flush

	applied, _, err := db.MigrationStatus(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	if len(applied) == 0 {
		_, err = fmt.Fprintln(out, "no migrations applied")
		return err
	}
	latest := applied[len(applied)-1].Version

	if err := db.MigrateDown(ctx, migrations.FS); err != nil {
		return fmt.Errorf("rolling back migration %s: %w", latest, err)
	}
	_, err = fmt.Fprintf(out, "rolled back %s\n", latest)
	return err
}
