package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/ssa-datasets/internal/lifetable"
	"github.com/pfrederiksen/ssa-datasets/internal/names"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// RunResult summarizes the artifacts produced by one run.
type RunResult struct {
	StartedAt  time.Time         `json:"started_at"`
	Elapsed    time.Duration     `json:"elapsed_ns"`
	Names      *names.Result     `json:"names,omitempty"`
	Lifetables *lifetable.Result `json:"lifetables,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *RunResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON writes the result as indented JSON
func writeJSON(w io.Writer, result *RunResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText writes the result as a short human-readable summary
func writeText(w io.Writer, result *RunResult) error {
	if r := result.Names; r != nil {
		fmt.Fprintf(w, "names: %d rows from %d year files -> %s\n", r.Rows, r.Files, r.Path)
		fmt.Fprintf(w, "  archive: %d bytes, sha256 %s\n", r.ArchiveSize, r.ArchiveSHA256)
	}
	if r := result.Lifetables; r != nil {
		fmt.Fprintf(w, "lifetables: %d rows from %d years -> %s\n", r.Rows, len(r.Years), r.Path)
	}
	fmt.Fprintf(w, "completed in %s\n", result.Elapsed.Round(time.Millisecond))
	return nil
}
