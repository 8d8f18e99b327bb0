package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/leapstack-labs/roadsync/internal/cli/config"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool { return isTerminal(os.Stdin) }

// needsConfirmation reports whether the user must approve the run.
func needsConfirmation(cfg *config.Config, interactive bool) bool {
	return interactive && !cfg.Quiet && !cfg.Yes
}

// describeRun writes the effective settings of a batch.
func describeRun(w io.Writer, cfg *config.Config, roads []core.RoadCode, details ...string) {
	codes := make([]string, len(roads))
	for i, r := range roads {
		codes[i] = r.String()
	}
	_, _ = fmt.Fprintf(w, "Server:   %s:%d\n", cfg.Database.Host, cfg.Database.Port)
	_, _ = fmt.Fprintf(w, "Database: %s\n", cfg.Database.Name)
	_, _ = fmt.Fprintf(w, "Roads:    %s\n", strings.Join(codes, ","))
	for _, d := range details {
		_, _ = fmt.Fprintln(w, d)
	}
}

// askYes prompts on out and reads one answer from in. Only "y" or "yes"
// counts as approval.
func askYes(in io.Reader, out io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// confirmBatch shows the settings and asks for approval when running
// interactively. It returns true when the batch may start.
func confirmBatch(in io.Reader, out io.Writer, cfg *config.Config, roads []core.RoadCode, details ...string) (bool, error) {
	if !needsConfirmation(cfg, stdinIsTerminal()) {
		return true, nil
	}
	describeRun(out, cfg, roads, details...)
	return askYes(in, out, "Continue?")
}
