package fedkmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/fedkm/node"
	"github.com/absmach/fedkm/pkg/mqtt"
	"github.com/absmach/fedkm/pkg/noise"
	"github.com/absmach/supermq/pkg/server"
	"github.com/spf13/cobra"
)

var (
	logLevel     = "info"
	mqttAddress  = "tcp://localhost:1883"
	mqttQoS      = 2
	mqttTimeout  = 30 * time.Second
	mqttEncoding = string(mqtt.EncodingJSON)
	clientID     = ""
	clientKey    = ""
	channelID    = ""
)

var (
	httpPort        = DefCoordinatorHTTPPort
	minNodes        = 3
	dispatchTimeout = time.Duration(0)
	storageType     = StorageMemory
	sqlitePath      = "./fedkm.db"
)

var (
	nodeID             = 0
	nodeName           = ""
	livelinessInterval = 5 * time.Second
	dataSource         = SourceCSV
	dataPath           = ""
	dataQuery          = ""
	noiseType          = noise.None.String()
)

var privacy = node.Config{
	MinRecords:         3,
	AllowedTimeColumns: []string{".*"},
	NoiseType:          noise.None,
}

var coordinatorCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start coordinator",
		Long:  `Start the coordinator service and its HTTP API.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := CoordinatorConfig{
				LogLevel:        logLevel,
				MQTTAddress:     mqttAddress,
				MQTTQoS:         uint8(mqttQoS),
				MQTTTimeout:     mqttTimeout,
				MQTTEncoding:    mqtt.Encoding(mqttEncoding),
				ClientID:        clientID,
				ClientKey:       clientKey,
				ChannelID:       channelID,
				MinNodes:        minNodes,
				DispatchTimeout: dispatchTimeout,
				StorageType:     storageType,
				SQLitePath:      sqlitePath,
				Server: server.Config{
					Port: httpPort,
				},
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := StartCoordinator(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start coordinator: %s\n", err.Error())
			}
		},
	},
}

var nodeCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start node",
		Long:  `Start a node serving its local dataset.`,
		Run: func(cmd *cobra.Command, _ []string) {
			privacy.NoiseType = noise.ParseMechanism(noiseType)

			cfg := NodeConfig{
				LogLevel:           logLevel,
				ID:                 nodeID,
				Name:               nodeName,
				MQTTAddress:        mqttAddress,
				MQTTQoS:            uint8(mqttQoS),
				MQTTTimeout:        mqttTimeout,
				MQTTEncoding:       mqtt.Encoding(mqttEncoding),
				ClientID:           clientID,
				ClientKey:          clientKey,
				ChannelID:          channelID,
				LivelinessInterval: livelinessInterval,
				DataSource:         dataSource,
				DataPath:           dataPath,
				DataQuery:          dataQuery,
				Privacy:            privacy,
			}
			if err := cfg.Validate(); err != nil {
				slog.Error("invalid config", slog.Any("error", err))

				return
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := StartNode(ctx, cancel, cfg); err != nil {
				slog.Error("failed to start node", slog.String("error", err.Error()))
			}
		},
	},
}

func addMQTTFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", logLevel, "Log level")
	cmd.PersistentFlags().StringVarP(&mqttAddress, "mqtt-address", "m", mqttAddress, "MQTT broker address")
	cmd.PersistentFlags().IntVarP(&mqttQoS, "mqtt-qos", "q", mqttQoS, "MQTT QoS")
	cmd.PersistentFlags().DurationVarP(&mqttTimeout, "mqtt-timeout", "o", mqttTimeout, "MQTT timeout")
	cmd.PersistentFlags().StringVar(&mqttEncoding, "mqtt-encoding", mqttEncoding, "MQTT payload encoding: json or cbor")
	cmd.PersistentFlags().StringVarP(&clientID, "client-id", "u", clientID, "MQTT client ID")
	cmd.PersistentFlags().StringVarP(&clientKey, "client-key", "k", clientKey, "MQTT client key")
	cmd.PersistentFlags().StringVarP(&channelID, "channel-id", "c", channelID, "Channel ID")
}

func NewCoordinatorCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "coordinator [start]",
		Short: "Coordinator management",
		Long:  `Start the coordinator of a federated survival analysis.`,
	}

	for i := range coordinatorCmd {
		cmd.AddCommand(&coordinatorCmd[i])
	}

	addMQTTFlags(&cmd)
	cmd.PersistentFlags().StringVarP(&httpPort, "port", "p", httpPort, "HTTP port")
	cmd.PersistentFlags().IntVarP(&minNodes, "min-nodes", "n", minNodes, "Minimum number of nodes per run")
	cmd.PersistentFlags().DurationVarP(&dispatchTimeout, "dispatch-timeout", "t", dispatchTimeout, "Time to wait for node results, 0 waits indefinitely")
	cmd.PersistentFlags().StringVar(&storageType, "storage", storageType, "Run storage: memory or sqlite")
	cmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", sqlitePath, "SQLite database path")

	return &cmd
}

func NewNodeCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "node [start]",
		Short: "Node management",
		Long:  `Start a node holding a private dataset.`,
	}

	for i := range nodeCmd {
		cmd.AddCommand(&nodeCmd[i])
	}

	addMQTTFlags(&cmd)
	cmd.PersistentFlags().IntVarP(&nodeID, "id", "i", nodeID, "Node ID")
	cmd.PersistentFlags().StringVarP(&nodeName, "name", "N", nodeName, "Node name")
	cmd.PersistentFlags().DurationVarP(&livelinessInterval, "liveliness-interval", "I", livelinessInterval, "Liveliness interval")
	cmd.PersistentFlags().StringVarP(&dataSource, "data-source", "s", dataSource, "Data source: csv or sqlite")
	cmd.PersistentFlags().StringVarP(&dataPath, "data-path", "d", dataPath, "CSV file or sqlite database path")
	cmd.PersistentFlags().StringVarP(&dataQuery, "data-query", "Q", dataQuery, "SQL query selecting the dataset")
	cmd.PersistentFlags().IntVar(&privacy.MinRecords, "min-records", privacy.MinRecords, "Minimum number of records, exclusive")
	cmd.PersistentFlags().StringSliceVar(&privacy.AllowedTimeColumns, "allowed-time-columns", privacy.AllowedTimeColumns, "Allowed time column patterns")
	cmd.PersistentFlags().StringVar(&privacy.FilterColumn, "filter-column", privacy.FilterColumn, "Column cohort filters apply to")
	cmd.PersistentFlags().StringSliceVar(&privacy.AllowedFilterValues, "allowed-filter-values", privacy.AllowedFilterValues, "Allowed cohort filter values")
	cmd.PersistentFlags().StringVar(&noiseType, "noise", noiseType, "Noise mechanism: NONE, GAUSSIAN or POISSON")
	cmd.PersistentFlags().Float64Var(&privacy.SNR, "snr", privacy.SNR, "Signal to noise ratio of gaussian noise")
	cmd.PersistentFlags().Int64Var(&privacy.RandomSeed, "seed", privacy.RandomSeed, "Noise random seed")

	return &cmd
}
