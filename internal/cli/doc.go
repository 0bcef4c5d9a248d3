// Package cli provides the command-line interface for ssa-datasets.
//
// The root command exposes one subcommand per dataset plus an "all"
// subcommand that builds both sequentially. Persistent flags select the
// data directory, the HTTP timeout, the output format and the log
// verbosity. Run summaries are printed as text or JSON.
package cli
