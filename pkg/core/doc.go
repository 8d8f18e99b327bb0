// Package core defines the shared language of the roadsync system.
//
// This package contains:
//   - Road identity (RoadCode) and its parsing rules
//   - The error kinds a road or a batch can fail with (Error, ErrorKind)
//   - Per-road results and the batch report built from them (Outcome, Report)
//   - Batch status values shared by the run journal and the CLI
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
