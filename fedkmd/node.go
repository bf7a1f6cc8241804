package fedkmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/absmach/fedkm/node"
	"github.com/absmach/fedkm/pkg/dataset"
	"github.com/absmach/fedkm/pkg/eventtable"
	"github.com/absmach/fedkm/pkg/mqtt"
)

const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

var (
	errInvalidNodeID   = errors.New("node ID must be positive")
	errMissingChannel  = errors.New("channel ID is required")
	errMissingDataPath = errors.New("data path is required")
	errMissingQuery    = errors.New("data query is required for sqlite sources")
	errUnknownSource   = errors.New("unknown data source")
)

type NodeConfig struct {
	LogLevel           string        `env:"NODE_LOG_LEVEL"           envDefault:"info"`
	ID                 int           `env:"NODE_ID"`
	Name               string        `env:"NODE_NAME"`
	MQTTAddress        string        `env:"NODE_MQTT_ADDRESS"        envDefault:"tcp://localhost:1883"`
	MQTTQoS            uint8         `env:"NODE_MQTT_QOS"            envDefault:"2"`
	MQTTTimeout        time.Duration `env:"NODE_MQTT_TIMEOUT"        envDefault:"30s"`
	MQTTEncoding       mqtt.Encoding `env:"NODE_MQTT_ENCODING"       envDefault:"json"`
	ClientID           string        `env:"NODE_CLIENT_ID"`
	ClientKey          string        `env:"NODE_CLIENT_KEY"`
	ChannelID          string        `env:"NODE_CHANNEL_ID"`
	LivelinessInterval time.Duration `env:"NODE_LIVELINESS_INTERVAL" envDefault:"5s"`
	DataSource         string        `env:"NODE_DATA_SOURCE"         envDefault:"csv"`
	DataPath           string        `env:"NODE_DATA_PATH"`
	DataQuery          string        `env:"NODE_DATA_QUERY"`
	Privacy            node.Config
}

func (c NodeConfig) Validate() error {
	if c.ID <= 0 {
		return errInvalidNodeID
	}
	if c.ChannelID == "" {
		return errMissingChannel
	}
	if c.DataPath == "" {
		return errMissingDataPath
	}
	switch c.DataSource {
	case SourceCSV:
	case SourceSQLite:
		if c.DataQuery == "" {
			return errMissingQuery
		}
	default:
		return fmt.Errorf("%w: %s", errUnknownSource, c.DataSource)
	}

	return nil
}

// NewProvider opens the node's data source. The returned close function
// releases it.
func NewProvider(cfg NodeConfig) (dataset.Provider, func() error, error) {
	switch cfg.DataSource {
	case SourceCSV:
		return dataset.NewCSVProvider(cfg.DataPath), func() error { return nil }, nil
	case SourceSQLite:
		db, err := sql.Open(dataset.SQLiteDriver, cfg.DataPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}

		return dataset.NewSQLProvider(db, cfg.DataQuery), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", errUnknownSource, cfg.DataSource)
	}
}

func StartNode(ctx context.Context, cancel context.CancelFunc, cfg NodeConfig) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid node configuration: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = "node-" + strconv.Itoa(cfg.ID)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	policy, err := cfg.Privacy.Policy()
	if err != nil {
		return err
	}

	provider, closeProvider, err := NewProvider(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeProvider(); err != nil {
			logger.Error("failed to close data source", slog.Any("error", err))
		}
	}()

	ds, err := provider.Load(ctx)
	if err != nil {
		return errors.Join(errors.New("failed to load dataset"), err)
	}
	logger.Info("Dataset loaded",
		slog.String("source", cfg.DataSource),
		slog.Int("records", ds.Len()),
		slog.Any("columns", ds.Columns()),
		slog.String("noise", cfg.Privacy.NoiseType.String()),
		slog.Int("min_records", policy.MinRecords()),
	)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = cfg.Name
	}
	mqttPubSub, err := mqtt.NewPubSub(mqtt.Config{
		URL:       cfg.MQTTAddress,
		QoS:       cfg.MQTTQoS,
		ClientID:  clientID,
		Username:  cfg.ClientID,
		Password:  cfg.ClientKey,
		ChannelID: cfg.ChannelID,
		NodeID:    cfg.ID,
		Encoding:  cfg.MQTTEncoding,
		Timeout:   cfg.MQTTTimeout,
	}, logger)
	if err != nil {
		return errors.Join(errors.New("failed to initialize mqtt client"), err)
	}
	defer func() {
		if err := mqttPubSub.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect from mqtt broker", slog.Any("error", err))
		}
	}()

	builder := eventtable.NewBuilder(policy, cfg.Privacy.Noise(), logger)
	executor := node.NewExecutor(provider, builder, logger)

	service, err := node.NewService(ctx, cfg.ChannelID, cfg.ID, cfg.Name, cfg.LivelinessInterval, mqttPubSub, executor, logger)
	if err != nil {
		return errors.Join(errors.New("failed to initialize service"), err)
	}

	if err := service.Run(ctx); err != nil {
		return errors.Join(errors.New("failed to run service"), err)
	}

	return nil
}
