// Package storage handles persistence of dataset artifacts.
//
// Artifacts are written into a single data directory which is created on
// first use. Paths beginning with ~/ are expanded to the user's home
// directory. Dataframes are written as CSV with a header row, gzip
// compressed when the artifact name ends in .gz.
package storage
