package main

import (
	"encoding/json"
	"errors"

	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/spf13/cobra"
)

func quoteCmd(configFile *string) *cobra.Command {
	var (
		shipper       int64
		to, from      string
		weight        float64
		l, w, h       float64
		tobacco       bool
		withSelection bool
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Rate one parcel (and optionally pick its carrier) from the command line",
		Example: `  shipbroker quote --shipper 12 --to 10001 --from 90210 --weight 1 --length 10 --width 10 --height 10
  STORE_BACKEND=memory SEED_FILE=seed.yaml shipbroker quote --shipper 12 --to 10001 --from 90210 --weight 3 --select`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			org, err := a.orders.Organization(ctx, shipper)
			if err != nil {
				return err
			}
			req := models.OrderRequest{
				ToAddress:   models.Address{Zip: to},
				FromAddress: models.Address{Zip: from},
				Parcel: models.Parcel{
					Length: models.Numeric(l),
					Width:  models.Numeric(w),
					Height: models.Numeric(h),
					Weight: models.Numeric(weight),
				},
			}
			if tobacco {
				req.ControlledSubstance = models.ControlledSubstanceTobacco
			}

			out := map[string]any{}
			rate, err := a.orders.Quote(ctx, org, req)
			if err != nil {
				return err
			}
			out["rate"] = rate

			if withSelection {
				route, err := a.orders.Route(ctx, org, req)
				switch {
				case errors.Is(err, domainErr.ErrUnroutable):
					out["carrier"] = nil
				case err != nil:
					return err
				default:
					out["carrier"] = route.Carrier
					out["eligible"] = route.Eligible
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().Int64Var(&shipper, "shipper", 0, "shipper sequence number")
	cmd.Flags().StringVar(&to, "to", "", "destination zip")
	cmd.Flags().StringVar(&from, "from", "", "origin zip")
	cmd.Flags().Float64Var(&weight, "weight", 0, "weight in pounds")
	cmd.Flags().Float64Var(&l, "length", 0, "length in inches")
	cmd.Flags().Float64Var(&w, "width", 0, "width in inches")
	cmd.Flags().Float64Var(&h, "height", 0, "height in inches")
	cmd.Flags().BoolVar(&tobacco, "tobacco", false, "declare tobacco contents")
	cmd.Flags().BoolVar(&withSelection, "select", false, "also run carrier selection")
	for _, name := range []string{"shipper", "to", "from", "weight"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}
