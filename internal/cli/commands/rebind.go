package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/roadsync/internal/cli/config"
	"github.com/leapstack-labs/roadsync/internal/rebind"
)

// NewRebindCommand creates the rebind command.
func NewRebindCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebind",
		Short: "Re-derive object chainage after the centerline changed",
		Long: `Touch every object of the road in each object layer so the layer's
own triggers re-derive its chainage against the current centerline.

Layers are read from the layer catalog. Use --layers to restrict the run
to some of them.`,
		Example: `  # Every layer of roads 101 and 102
  roadsync rebind --project demo --road-codes 101,102

  # Only signs and crossroads
  roadsync rebind --road-codes 101 --layers tbl_signs,tbl_crossroads`,
		RunE:        runRebind,
		Annotations: batchAnnotations(),
	}

	cmd.Flags().StringSlice("layers", nil, "Comma-separated list of layer tables")

	return cmd
}

func runRebind(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	roads, err := cfg.Roads()
	if err != nil {
		return err
	}

	layerText := "all"
	if len(cfg.Layers) > 0 {
		layerText = strings.Join(cfg.Layers, ",")
	}
	ok, err := confirmBatch(cmd.InOrStdin(), cmd.OutOrStdout(), cfg, roads, fmt.Sprintf("Layers:   %s", layerText))
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

	layers, err := rebind.LoadLayers(cmd.Context(), cc.Store, cfg.Layers, cc.Logger)
	if err != nil {
		cc.Logger.Error("batch aborted", "command", "rebind", "error", err)
		cc.Logger.Info("STATUS: FAIL")
		cc.Logger.Info("MESSAGE: " + err.Error())
		return ErrBatchFailed
	}

	return runBatch(cmd, cc, "rebind", roads, rebind.New(cc.Store, layers, cc.Logger))
}
