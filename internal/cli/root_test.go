package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/roadsync/pkg/core"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := []string{"run", "shift", "rebind", "tasks", "config", "history", "version", "completion"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"config", "project", "host", "database", "road-codes", "srid", "quiet", "yes", "journal", "pushgateway"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_Tasks(t *testing.T) {
	out, err := execute(t, "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "calc_transverse_slopes")
}

func TestRootCommand_ConfigShowsFlags(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "roadsync.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("project: demo\ndatabase:\n  password: hunter2\n"), 0o600))

	out, err := execute(t, "config", "--config", cfgPath, "--road-codes", "3,4", "--host", "gis.example")
	require.NoError(t, err)
	assert.Contains(t, out, "host: gis.example")
	assert.Contains(t, out, "name: dorgis_demo")
	assert.Contains(t, out, "- \"3\"")
	assert.NotContains(t, out, "hunter2")
}

func TestRootCommand_RunWithoutTasks(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "run.log")

	_, err := execute(t, "run", "--project", "demo", "--road-codes", "1", "--logfile", logfile, "--yes")
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
	assert.Contains(t, err.Error(), "no tasks selected")
}

func TestRootCommand_RunBadRoadCodes(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "run.log")

	_, err := execute(t, "run", "-a", "--project", "demo", "--road-codes", "1,x", "--logfile", logfile, "--yes")
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
}

func TestRootCommand_ShiftBadKmBeg(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "run.log")

	_, err := execute(t, "shift", "--project", "demo", "--road-codes", "1", "--km-beg", "abc", "--logfile", logfile, "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "km_beg must be a number")
}

func TestRootCommand_Version(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "roadsync v"+Version)
}
