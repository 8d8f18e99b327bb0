package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/roadsync/internal/testutil"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_Migrate(t *testing.T) {
	j := openTestJournal(t)

	v, err := j.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestJournal_BatchLifecycle(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	r := core.NewReport("batch-1", "run")
	r.AmountMeters = 4200
	require.NoError(t, j.BeginBatch(ctx, r))

	b, err := j.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusRunning, b.Status)
	assert.Nil(t, b.CompletedAt)

	ok := core.Succeeded(1, []string{"import", "roadways"})
	ok.Duration = 1500 * time.Millisecond
	failed := core.Failed(2, nil, core.Precondition(2, "verify", errors.New("no elevation surfaces registered")))

	for _, o := range []core.Outcome{ok, failed} {
		r.Add(o)
		require.NoError(t, j.RecordOutcome(ctx, r.BatchID, o))
	}
	r.Finish()
	require.NoError(t, j.CompleteBatch(ctx, r))

	b, err = j.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusFailed, b.Status)
	assert.Equal(t, 1, b.Errors)
	assert.Equal(t, "completed with errors (1)", b.Message)
	assert.Equal(t, int64(4200), b.Amount)
	require.NotNil(t, b.CompletedAt)

	outcomes, err := j.Outcomes(ctx, "batch-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, core.RoadCode(1), outcomes[0].Road)
	assert.Equal(t, []string{"import", "roadways"}, outcomes[0].Tasks)
	assert.Equal(t, 1500*time.Millisecond, outcomes[0].Duration)
	assert.Equal(t, core.OutcomeFailed, outcomes[1].Status)
	assert.Equal(t, "precondition", outcomes[1].Kind)
	assert.Equal(t, "verify", outcomes[1].Phase)
	assert.Contains(t, outcomes[1].Error, "no elevation surfaces")
}

func TestJournal_RecentBatches(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		r := core.NewReport(id, "shift")
		r.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, j.BeginBatch(ctx, r))
	}

	batches, err := j.RecentBatches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "c", batches[0].ID)
	assert.Equal(t, "b", batches[1].ID)
}

func TestJournal_GetBatchMissing(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.GetBatch(context.Background(), "nope")
	assert.ErrorContains(t, err, "batch not found")
}
