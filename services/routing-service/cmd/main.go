// cmd/main.go in routing-service
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "shipbroker",
		Short:         "ShipBroker - multi-tenant parcel rating and carrier routing",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "optional YAML config file (env vars override it)")

	rootCmd.AddCommand(serveCmd(&configFile))
	rootCmd.AddCommand(workerCmd(&configFile))
	rootCmd.AddCommand(trackingConsumerCmd(&configFile))
	rootCmd.AddCommand(importCmd(&configFile))
	rootCmd.AddCommand(quoteCmd(&configFile))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
