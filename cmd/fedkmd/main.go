package main

import (
	"log"

	"github.com/absmach/fedkm/fedkmd"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fedkmd",
		Short: "Federated Kaplan-Meier Daemon",
		Long:  `fedkmd starts the coordinator and the nodes of a federated survival analysis.`,
	}

	rootCmd.AddCommand(fedkmd.NewCoordinatorCmd())
	rootCmd.AddCommand(fedkmd.NewNodeCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
