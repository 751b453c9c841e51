package main

import (
	"fmt"
	"os"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/store/seed"
	"github.com/spf13/cobra"
)

func importCmd(configFile *string) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import [seed.yaml]",
		Short: "Load reference data (shippers, zip zones, rate cards, zone matrices)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				fh, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer fh.Close()
				f, err := seed.Parse(fh)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %d organizations, %d zip zones, %d rate cards, %d zone matrices\n",
					len(f.Organizations), len(f.ZipZones), len(f.RateCards), len(f.ZoneMatrices))
				return nil
			}

			a, err := newApp(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := seed.LoadFile(cmd.Context(), args[0], a.store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d organizations, %d zip zones, %d rate cards, %d zone matrices\n",
				sum.Organizations, sum.ZipZones, sum.RateCards, sum.ZoneMatrices)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only parse the file")
	return cmd
}
