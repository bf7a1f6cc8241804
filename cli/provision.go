package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/fedkm"
	"github.com/absmach/fedkm/pkg/noise"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const filePermission = 0o644

var (
	errInvalidNodeCount = errors.New("number of nodes must be a positive integer")
	errEmptyChannel     = errors.New("channel ID must not be empty")
)

// Provision describes a collaboration: one coordinator and its nodes sharing
// an MQTT channel.
type Provision struct {
	MQTTAddress    string
	ChannelID      string
	CoordinatorURL string
	MinNodes       int
	Nodes          int
	Noise          noise.Mechanism
	SNR            string
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a collaboration",
	Long: `Interactively describe a collaboration and write the environment files of
the coordinator and of every node, together with a CLI config file.`,
	Run: func(cmd *cobra.Command, _ []string) {
		p := Provision{
			MQTTAddress:    "tcp://localhost:1883",
			ChannelID:      uuid.NewString(),
			CoordinatorURL: fedkm.DefCoordinatorURL,
			Noise:          noise.None,
			SNR:            "0",
		}
		nodes := "3"
		minNodes := "3"

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("MQTT broker address").
					Value(&p.MQTTAddress),
				huh.NewInput().
					Title("Channel ID").
					Value(&p.ChannelID).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return errEmptyChannel
						}

						return nil
					}),
				huh.NewInput().
					Title("Coordinator URL").
					Value(&p.CoordinatorURL),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("Number of nodes").
					Value(&nodes).
					Validate(positive),
				huh.NewInput().
					Title("Minimum number of nodes per run").
					Value(&minNodes).
					Validate(positive),
				huh.NewSelect[noise.Mechanism]().
					Title("Noise mechanism of the nodes").
					Options(
						huh.NewOption("None", noise.None),
						huh.NewOption("Gaussian", noise.Gaussian),
						huh.NewOption("Poisson", noise.Poisson),
					).
					Value(&p.Noise),
				huh.NewInput().
					Title("Signal to noise ratio (gaussian only)").
					Value(&p.SNR),
			),
		)
		if err := form.Run(); err != nil {
			logErrorCmd(*cmd, err)

			return
		}

		p.Nodes, _ = strconv.Atoi(nodes)
		p.MinNodes, _ = strconv.Atoi(minNodes)

		cfg, err := WriteProvision(".", p, namegenerator.NewGenerator())
		if err != nil {
			logErrorCmd(*cmd, err)

			return
		}
		logSuccessCmd(*cmd, fmt.Sprintf("Successfully provisioned %d nodes on channel %s", len(cfg.Nodes), cfg.Coordinator.ChannelID))

		logJSONCmd(*cmd, cfg)
	},
}

func NewProvisionCmd() *cobra.Command {
	return provisionCmd
}

func positive(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errInvalidNodeCount
	}

	return nil
}

// NameGenerator names provisioned nodes.
type NameGenerator interface {
	Generate() string
}

// WriteProvision writes .env for the coordinator, node-<id>.env per node
// and config.toml into dir.
func WriteProvision(dir string, p Provision, names NameGenerator) (fedkm.Config, error) {
	if p.Nodes <= 0 {
		return fedkm.Config{}, errInvalidNodeCount
	}
	if p.ChannelID == "" {
		return fedkm.Config{}, errEmptyChannel
	}

	cfg := fedkm.DefaultConfig()
	if p.CoordinatorURL != "" {
		cfg.CLI.CoordinatorURL = p.CoordinatorURL
	}
	cfg.Coordinator = fedkm.CoordinatorConfig{
		ClientID:  "coordinator-" + uuid.NewString(),
		ClientKey: uuid.NewString(),
		ChannelID: p.ChannelID,
		MinNodes:  p.MinNodes,
	}

	coordinatorEnv := fmt.Sprintf(`# Coordinator Configuration
COORDINATOR_MQTT_ADDRESS=%s
COORDINATOR_CLIENT_ID=%s
COORDINATOR_CLIENT_KEY=%s
COORDINATOR_CHANNEL_ID=%s
COORDINATOR_MIN_NODES=%d
`,
		p.MQTTAddress,
		cfg.Coordinator.ClientID,
		cfg.Coordinator.ClientKey,
		p.ChannelID,
		p.MinNodes,
	)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(coordinatorEnv), filePermission); err != nil {
		return fedkm.Config{}, fmt.Errorf("failed to create .env file: %w", err)
	}

	for id := 1; id <= p.Nodes; id++ {
		n := fedkm.NodeConfig{
			ID:        id,
			Name:      names.Generate(),
			ClientID:  "node-" + uuid.NewString(),
			ClientKey: uuid.NewString(),
			DataPath:  fmt.Sprintf("data/node-%d.csv", id),
		}
		cfg.Nodes = append(cfg.Nodes, n)

		nodeEnv := fmt.Sprintf(`# Node Configuration
NODE_ID=%d
NODE_NAME=%s
NODE_MQTT_ADDRESS=%s
NODE_CLIENT_ID=%s
NODE_CLIENT_KEY=%s
NODE_CHANNEL_ID=%s
NODE_DATA_SOURCE=csv
NODE_DATA_PATH=%s

# Privacy Configuration
NODE_MIN_RECORDS=3
NODE_ALLOWED_TIME_COLUMNS=.*
NODE_NOISE_TYPE=%s
NODE_SNR=%s
NODE_RANDOM_SEED=0
`,
			n.ID,
			n.Name,
			p.MQTTAddress,
			n.ClientID,
			n.ClientKey,
			p.ChannelID,
			n.DataPath,
			p.Noise,
			p.SNR,
		)
		path := filepath.Join(dir, fmt.Sprintf("node-%d.env", id))
		if err := os.WriteFile(path, []byte(nodeEnv), filePermission); err != nil {
			return fedkm.Config{}, fmt.Errorf("failed to create %s: %w", path, err)
		}
	}

	if err := fedkm.SaveConfig(filepath.Join(dir, fedkm.DefConfigPath), cfg); err != nil {
		return fedkm.Config{}, err
	}

	return cfg, nil
}
