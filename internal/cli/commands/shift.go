package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/roadsync/internal/cli/config"
	"github.com/leapstack-labs/roadsync/internal/pipeline"
)

// NewShiftCommand creates the shift command.
func NewShiftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Recalculate road elevation and shift the chainage origin",
		Long: `Rebuild the 3D centerline of each road from the elevation surfaces,
refresh its measure and length, and update the road dictionary.

With a positive --km-beg the chainage of every segment is shifted by that
many kilometres and panorama positions are re-snapped to the new measure.
Every road is handled in a single transaction.`,
		Example: `  # Elevation and length only
  roadsync shift --project demo --road-codes 101

  # Start road 101 at km 12.4
  roadsync shift --project demo --road-codes 101 --km-beg 12.4`,
		RunE:        runShift,
		Annotations: batchAnnotations(),
	}

	cmd.Flags().String("km-beg", "", "Shift the chainage origin by this many kilometres")

	return cmd
}

func runShift(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	delta, err := cfg.ShiftDelta()
	if err != nil {
		return err
	}
	roads, err := cfg.Roads()
	if err != nil {
		return err
	}

	ok, err := confirmBatch(cmd.InOrStdin(), cmd.OutOrStdout(), cfg, roads, fmt.Sprintf("Km beg:   %g", delta))
	if err != nil {
		return err
	}
	if !ok {
		config.GetLogger(cmd.Context()).Info("cancelled by user")
		return nil
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	shifter := pipeline.NewShifter(cc.Store, delta, pipeline.Options{
		SRID:    cfg.SRID,
		Metrics: cc.Metrics,
		Logger:  cc.Logger,
	})
	return runBatch(cmd, cc, "shift", roads, shifter)
}
