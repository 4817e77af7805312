package commands

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
	"github.com/motoristapro/offerwatch/internal/settings"
)

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Show or change the stored yield thresholds",
}

var thresholdsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active thresholds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		t, err := store.Thresholds(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	},
}

var setFlags = struct {
	goodKm, badKm, goodHour, badHour string
}{}

var thresholdsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update one or more thresholds",
	Example: `  offerwatch thresholds set --good-km 2,20 --bad-km 1.60
  offerwatch thresholds set --good-hour 70`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		t, err := store.Thresholds(cmd.Context())
		if err != nil {
			return err
		}
		for _, f := range []struct {
			flag string
			raw  string
			dst  *decimal.Decimal
		}{
			{"good-km", setFlags.goodKm, &t.GoodPerKm},
			{"bad-km", setFlags.badKm, &t.BadPerKm},
			{"good-hour", setFlags.goodHour, &t.GoodPerHour},
			{"bad-hour", setFlags.badHour, &t.BadPerHour},
		} {
			if !cmd.Flags().Changed(f.flag) {
				continue
			}
			d, err := settings.ParseAmount(f.raw)
			if err != nil {
				return apperrors.Wrapf(err, apperrors.CodeInvalidArgument, "--%s", f.flag)
			}
			*f.dst = d
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if err := store.SaveThresholds(cmd.Context(), t); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved: R$ %s/%s per km, R$ %s/%s per hour\n",
			t.GoodPerKm.StringFixed(2), t.BadPerKm.StringFixed(2), t.GoodPerHour.StringFixed(0), t.BadPerHour.StringFixed(0))
		return nil
	},
}

func init() {
	f := thresholdsSetCmd.Flags()
	f.StringVar(&setFlags.goodKm, "good-km", "", "minimum R$/km for a good offer")
	f.StringVar(&setFlags.badKm, "bad-km", "", "R$/km below which an offer is rejected")
	f.StringVar(&setFlags.goodHour, "good-hour", "", "minimum R$/h for a good offer")
	f.StringVar(&setFlags.badHour, "bad-hour", "", "R$/h below which an offer is rejected")

	thresholdsCmd.AddCommand(thresholdsShowCmd, thresholdsSetCmd)
	rootCmd.AddCommand(thresholdsCmd)
}

func openSettings(cmd *cobra.Command) (*settings.SQLiteStore, error) {
	store, err := settings.OpenSQLite(cmd.Context(), cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	return store.WithDefaults(cfg.Thresholds), nil
}
