package fedkmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/absmach/fedkm/coordinator"
	"github.com/absmach/fedkm/coordinator/api"
	"github.com/absmach/fedkm/coordinator/middleware"
	"github.com/absmach/fedkm/pkg/mqtt"
	"github.com/absmach/fedkm/pkg/storage"
	"github.com/absmach/fedkm/pkg/storage/sqlite"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	coordinatorSvcName     = "coordinator"
	DefCoordinatorHTTPPort = "7070"
	CoordinatorHTTPPrefix  = "COORDINATOR_HTTP_"

	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

type CoordinatorConfig struct {
	LogLevel        string        `env:"COORDINATOR_LOG_LEVEL"        envDefault:"info"`
	InstanceID      string        `env:"COORDINATOR_INSTANCE_ID"`
	MQTTAddress     string        `env:"COORDINATOR_MQTT_ADDRESS"     envDefault:"tcp://localhost:1883"`
	MQTTQoS         uint8         `env:"COORDINATOR_MQTT_QOS"         envDefault:"2"`
	MQTTTimeout     time.Duration `env:"COORDINATOR_MQTT_TIMEOUT"     envDefault:"30s"`
	MQTTEncoding    mqtt.Encoding `env:"COORDINATOR_MQTT_ENCODING"    envDefault:"json"`
	ClientID        string        `env:"COORDINATOR_CLIENT_ID"`
	ClientKey       string        `env:"COORDINATOR_CLIENT_KEY"`
	ChannelID       string        `env:"COORDINATOR_CHANNEL_ID"`
	MinNodes        int           `env:"COORDINATOR_MIN_NODES"        envDefault:"3"`
	DispatchTimeout time.Duration `env:"COORDINATOR_DISPATCH_TIMEOUT" envDefault:"0s"`
	StorageType     string        `env:"COORDINATOR_STORAGE_TYPE"     envDefault:"memory"`
	SQLitePath      string        `env:"COORDINATOR_SQLITE_PATH"      envDefault:"./fedkm.db"`
	Server          server.Config
	OTELURL         url.URL `env:"COORDINATOR_OTEL_URL"`
	TraceRatio      float64 `env:"COORDINATOR_TRACE_RATIO" envDefault:"0"`
}

func (c CoordinatorConfig) Validate() error {
	if c.ChannelID == "" {
		return errors.New("channel ID is required")
	}
	if c.MinNodes < 1 {
		return fmt.Errorf("minimum number of nodes must be positive, got %d", c.MinNodes)
	}
	if c.DispatchTimeout < 0 {
		return errors.New("dispatch timeout must not be negative")
	}
	switch c.StorageType {
	case StorageMemory, StorageSQLite:
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	return nil
}

// NewRunRepository opens the configured run storage. The returned close
// function releases it.
func NewRunRepository(cfg CoordinatorConfig) (coordinator.RunRepository, func() error, error) {
	switch cfg.StorageType {
	case StorageMemory:
		return coordinator.NewRunRepository(storage.NewInMemoryStorage()), func() error { return nil }, nil
	case StorageSQLite:
		db, err := sqlite.NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		return sqlite.NewRunRepository(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}

func StartCoordinator(ctx context.Context, cancel context.CancelFunc, cfg CoordinatorConfig) error {
	g, ctx := errgroup.WithContext(ctx)

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid coordinator configuration: %w", err)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, coordinatorSvcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize opentelemetry: %s", err.Error())
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(coordinatorSvcName)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = coordinatorSvcName + "-" + cfg.InstanceID
	}
	mqttPubSub, err := mqtt.NewPubSub(mqtt.Config{
		URL:      cfg.MQTTAddress,
		QoS:      cfg.MQTTQoS,
		ClientID: clientID,
		Username: cfg.ClientID,
		Password: cfg.ClientKey,
		Encoding: cfg.MQTTEncoding,
		Timeout:  cfg.MQTTTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
	}

	runs, closeRuns, err := NewRunRepository(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRuns(); err != nil {
			logger.Error("failed to close run storage", slog.Any("error", err))
		}
	}()

	nodesDB := storage.NewInMemoryStorage()
	launcher := coordinator.NewMQTTLauncher(cfg.ChannelID, mqttPubSub, cfg.DispatchTimeout, logger)
	if err := coordinator.Subscribe(ctx, cfg.ChannelID, mqttPubSub, nodesDB, launcher, logger); err != nil {
		return fmt.Errorf("failed to subscribe to coordinator channel: %s", err.Error())
	}

	svc := coordinator.NewService(
		launcher,
		nodesDB,
		runs,
		cfg.MinNodes,
		logger,
	)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(coordinatorSvcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if cfg.Server.Port == "" {
		cfg.Server.Port = DefCoordinatorHTTPPort
	}
	hs := httpserver.NewServer(ctx, cancel, coordinatorSvcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, coordinatorSvcName, hs)
	})

	defer func() {
		if err := mqttPubSub.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect from mqtt broker", slog.Any("error", err))
		}
	}()

	return g.Wait()
}
