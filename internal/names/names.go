package names

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/pfrederiksen/ssa-datasets/internal/fetch"
	"github.com/pfrederiksen/ssa-datasets/internal/metrics"
	"github.com/pfrederiksen/ssa-datasets/internal/storage"
)

const (
	// ArchiveURL is the national baby-names archive published by the SSA.
	ArchiveURL = "https://www.ssa.gov/oact/babynames/names.zip"

	// OutName is the artifact written into the data directory.
	OutName = "names.csv.gz"

	// yearFileSuffix marks the per-year members of the archive. The
	// archive also ships a PDF readme, which is skipped.
	yearFileSuffix = ".txt"
)

// Options configures a name-counts build. Zero-valued fields fall back to
// package defaults.
type Options struct {
	// ArchiveURL overrides the archive location.
	ArchiveURL string

	// OutName overrides the artifact name. A .gz suffix selects gzip.
	OutName string

	// Client is the HTTP client used for the download.
	Client *fetch.Client

	// Metrics receives counters and phase timings for the build.
	Metrics *metrics.Tracker
}

// Result summarizes a completed build.
type Result struct {
	Path          string `json:"path"`
	Rows          int    `json:"rows"`
	Files         int    `json:"files"`
	Years         []int  `json:"years"`
	ArchiveSize   int64  `json:"archive_size"`
	ArchiveSHA256 string `json:"archive_sha256"`
}

// Build downloads the name-counts archive and reshapes it into a single
// compressed CSV covering all published years.
func Build(ctx context.Context, store *storage.Storage, opts Options) (*Result, error) {
	if opts.ArchiveURL == "" {
		opts.ArchiveURL = ArchiveURL
	}
	if opts.OutName == "" {
		opts.OutName = OutName
	}
	if opts.Client == nil {
		opts.Client = fetch.New(fetch.DefaultOptions())
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	work, err := os.MkdirTemp("", "ssa-names-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(work)

	slog.Info("downloading name archive", "url", opts.ArchiveURL)

	stopDownload := opts.Metrics.Time("names_download")
	dl, err := opts.Client.DownloadFile(ctx, opts.ArchiveURL, filepath.Join(work, "names.zip"))
	stopDownload()
	if err != nil {
		return nil, fmt.Errorf("downloading archive: %w", err)
	}
	opts.Metrics.Add("names_archive_bytes", dl.Size)

	slog.Info("downloaded name archive", "bytes", dl.Size, "sha256", dl.SHA256)

	raw := filepath.Join(work, "raw")
	stopExtract := opts.Metrics.Time("names_extract")
	err = extractArchive(dl.Path, raw)
	stopExtract()
	if err != nil {
		return nil, fmt.Errorf("extracting archive: %w", err)
	}

	stopParse := opts.Metrics.Time("names_parse")
	combined, files, years, err := readYearFiles(raw)
	stopParse()
	if err != nil {
		return nil, err
	}
	opts.Metrics.Add("names_files", int64(files))
	opts.Metrics.Add("names_rows", int64(combined.Nrow()))

	stopWrite := opts.Metrics.Time("names_write")
	path, _, err := store.WriteFrame(combined, opts.OutName)
	stopWrite()
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", opts.OutName, err)
	}

	slog.Debug("name counts built", "metrics", opts.Metrics.Snapshot())

	return &Result{
		Path:          path,
		Rows:          combined.Nrow(),
		Files:         files,
		Years:         years,
		ArchiveSize:   dl.Size,
		ArchiveSHA256: dl.SHA256,
	}, nil
}

// extractArchive unpacks every member of the zip at src into dir.
func extractArchive(src, dir string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	for _, member := range r.File {
		if err := extractMember(member, dir); err != nil {
			return fmt.Errorf("extracting %s: %w", member.Name, err)
		}
	}

	return nil
}

// extractMember writes one zip member below dir, refusing member names
// that would escape it.
func extractMember(member *zip.File, dir string) error {
	dest := filepath.Join(dir, member.Name)
	if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal member path %q", member.Name)
	}

	if member.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	in, err := member.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}

	return err
}

// readYearFiles parses every per-year file under dir and concatenates them
// in directory order, which os.ReadDir keeps sorted by filename.
func readYearFiles(dir string) (dataframe.DataFrame, int, []int, error) {
	var combined dataframe.DataFrame

	entries, err := os.ReadDir(dir)
	if err != nil {
		return combined, 0, nil, fmt.Errorf("reading scratch directory: %w", err)
	}

	files := 0
	var years []int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), yearFileSuffix) {
			continue
		}

		df, year, err := readYearFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return combined, 0, nil, err
		}

		slog.Debug("parsed year file", "file", entry.Name(), "year", year, "rows", df.Nrow())

		if files == 0 {
			combined = df
		} else {
			combined = combined.RBind(df)
			if combined.Err != nil {
				return combined, 0, nil, fmt.Errorf("concatenating %s: %w", entry.Name(), combined.Err)
			}
		}
		files++
		years = append(years, year)
	}

	if files == 0 {
		return combined, 0, nil, fmt.Errorf("archive contains no %s files", yearFileSuffix)
	}

	return combined, files, years, nil
}

// readYearFile parses one per-year file into a (name, sex, births, year)
// frame, tagging every row with the year encoded in its filename.
func readYearFile(path string) (dataframe.DataFrame, int, error) {
	year, err := yearFromFile(filepath.Base(path))
	if err != nil {
		return dataframe.DataFrame{}, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(false),
		dataframe.Names("name", "sex", "births"),
		dataframe.WithTypes(map[string]series.Type{
			"name":   series.String,
			"sex":    series.String,
			"births": series.Int,
		}),
	)
	if df.Err != nil {
		return df, 0, fmt.Errorf("parsing %s: %w", filepath.Base(path), df.Err)
	}

	tags := make([]int, df.Nrow())
	for i := range tags {
		tags[i] = year
	}
	df = df.Mutate(series.New(tags, series.Int, "year"))
	if df.Err != nil {
		return df, 0, fmt.Errorf("tagging %s: %w", filepath.Base(path), df.Err)
	}

	return df, year, nil
}

// yearFromFile derives the dataset year from a per-year filename. The
// archive names its members yobNNNN.txt, so the four characters after the
// yob prefix must form the year.
func yearFromFile(name string) (int, error) {
	if len(name) < 7 {
		return 0, fmt.Errorf("filename %q too short to contain a year", name)
	}

	digits := name[3:7]
	year, err := strconv.Atoi(digits)
	if err != nil || year < 1000 {
		return 0, fmt.Errorf("filename %q: expected a 4-digit year at offset 3, got %q", name, digits)
	}

	return year, nil
}
