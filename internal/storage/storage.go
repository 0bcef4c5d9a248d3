package storage

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// Storage writes dataset artifacts into a data directory.
type Storage struct {
	dataDir string
}

// New creates a Storage rooted at dataDir, creating the directory if
// needed. A leading ~/ is expanded to the user's home directory.
func New(dataDir string) (*Storage, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{dataDir: dataDir}, nil
}

// Dir returns the resolved data directory.
func (s *Storage) Dir() string {
	return s.dataDir
}

// Path returns the location of the named artifact inside the data directory.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.dataDir, name)
}

// WriteFrame persists a dataframe as CSV with a header row. Artifacts named
// with a .gz suffix are gzip compressed. It returns the artifact path and
// its size on disk.
func (s *Storage) WriteFrame(df dataframe.DataFrame, name string) (string, int64, error) {
	if df.Err != nil {
		return "", 0, fmt.Errorf("invalid frame: %w", df.Err)
	}

	path := s.Path(name)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("creating %s: %w", path, err)
	}

	var werr error
	if strings.HasSuffix(name, ".gz") {
		gz := gzip.NewWriter(f)
		werr = df.WriteCSV(gz)
		if cerr := gz.Close(); werr == nil {
			werr = cerr
		}
	} else {
		werr = df.WriteCSV(f)
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return "", 0, fmt.Errorf("writing %s: %w", path, werr)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", path, err)
	}

	return path, info.Size(), nil
}
