package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/roadsync/internal/catalog"
	"github.com/leapstack-labs/roadsync/internal/cli/config"
	"github.com/leapstack-labs/roadsync/internal/journal"
	"github.com/leapstack-labs/roadsync/internal/metrics"
	"github.com/leapstack-labs/roadsync/internal/store"
	"github.com/spf13/cobra"
)

// ErrBatchFailed is returned when a batch finished with failed roads or could
// not start. The details are already logged, so it is not printed again.
var ErrBatchFailed = errors.New("batch failed")

// annotationBatch marks commands that process roads.
const annotationBatch = "roadsync.batch"

// batchAnnotations is set on run, shift and rebind.
func batchAnnotations() map[string]string {
	return map[string]string{annotationBatch: "true"}
}

// IsBatch reports whether cmd processes roads and keeps a log file.
func IsBatch(cmd *cobra.Command) bool {
	return cmd.Annotations[annotationBatch] == "true"
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Store   *store.Store
	Catalog *catalog.Catalog
	Metrics *metrics.Collector
	// Journal is nil unless a journal path is configured.
	Journal *journal.Journal
}

// NewCommandContext connects to the database and opens the journal.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(cmd.Context())

	reg, err := store.DefaultRegistry(cfg.Database.Schema)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(cmd.Context(), cfg.StoreConfig(), reg, logger)
	if err != nil {
		return nil, nil, err
	}

	cc := &CommandContext{
		Cfg:     cfg,
		Logger:  logger,
		Store:   st,
		Catalog: catalog.Default(),
		Metrics: metrics.NewCollector(),
	}

	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal, logger)
		if err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		cc.Journal = j
	}

	cleanup := func() {
		if cc.Journal != nil {
			_ = cc.Journal.Close()
		}
		_ = st.Close()
	}

	return cc, cleanup, nil
}

// getConfig returns the configuration loaded by the root command.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg, nil
	}
	return nil, fmt.Errorf("configuration not loaded")
}
