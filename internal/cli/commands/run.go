package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/roadsync/internal/catalog"
	"github.com/leapstack-labs/roadsync/internal/cli/config"
	"github.com/leapstack-labs/roadsync/internal/pipeline"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import objects and recompute derived layers per road",
		Long: `Process each road code in order: verify the centerline and elevation
surfaces, optionally import staged objects, then run the selected
derived computations in their fixed order.

A road that fails is logged and skipped; the batch continues with the
next road. The exit status is 1 when any road failed.`,
		Example: `  # Import staged objects and run every computation
  roadsync run --project demo --road-codes 101,102 -a

  # Recompute widths and transverse slopes only
  roadsync run --project demo --road-codes 101 -w -t

  # Unattended, with a run journal
  roadsync run --road-codes 101 -i --yes --journal roadsync.db`,
		RunE:        runRun,
		Annotations: batchAnnotations(),
	}

	cmd.Flags().BoolP("all", "a", false, "Import objects and run every computation")
	for _, d := range catalog.Default().Ordered() {
		cmd.Flags().BoolP(config.TaskFlagName(d.Name), d.Flag, false, d.Title)
	}

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	sel, err := cfg.Selection()
	if err != nil {
		return err
	}
	roads, err := cfg.Roads()
	if err != nil {
		return err
	}

	ok, err := confirmBatch(cmd.InOrStdin(), cmd.OutOrStdout(), cfg, roads, fmt.Sprintf("Tasks:    %s", sel))
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

	orch := pipeline.New(cc.Store, cc.Catalog, sel, pipeline.Options{
		SRID:    cfg.SRID,
		Metrics: cc.Metrics,
		Logger:  cc.Logger,
	})
	return runBatch(cmd, cc, "run", roads, orch)
}
