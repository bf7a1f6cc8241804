package main

import (
	"log"
	"os"

	"github.com/absmach/fedkm"
	"github.com/absmach/fedkm/cli"
	"github.com/absmach/fedkm/pkg/sdk"
	"github.com/spf13/cobra"
)

var configPath = fedkm.DefConfigPath

func main() {
	rootCmd := &cobra.Command{
		Use:   "fedkm-cli",
		Short: "Federated Kaplan-Meier CLI",
		Long:  `fedkm-cli is a command line interface for computing survival curves across nodes.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			cfg := fedkm.DefaultConfig()
			if _, err := os.Stat(configPath); err == nil {
				loaded, err := fedkm.LoadConfig(configPath)
				if err != nil {
					log.Fatal(err)
				}
				cfg = loaded
			}

			sdkConf := sdk.Config{
				CoordinatorURL:  cfg.CLI.CoordinatorURL,
				TLSVerification: cfg.CLI.TLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "Config file path")

	rootCmd.AddCommand(cli.NewCurvesCmd())
	rootCmd.AddCommand(cli.NewRunsCmd())
	rootCmd.AddCommand(cli.NewNodesCmd())
	rootCmd.AddCommand(cli.NewProvisionCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
