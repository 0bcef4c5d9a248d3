package lifetable

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gota/gota/dataframe"

	"github.com/pfrederiksen/ssa-datasets/internal/fetch"
	"github.com/pfrederiksen/ssa-datasets/internal/metrics"
	"github.com/pfrederiksen/ssa-datasets/internal/storage"
)

const (
	// URLTemplate locates the life table page for a given year. The %d
	// verb receives the table year.
	URLTemplate = "https://www.ssa.gov/oact/NOTES/as120/LifeTables_Tbl_6_%d.html"

	// FirstYear through LastYear in steps of Step are the decade tables
	// published with Actuarial Study No. 120.
	FirstYear = 1900
	LastYear  = 2090
	Step      = 10

	// OutName is the artifact written into the data directory.
	OutName = "lifetables.csv"
)

// Options configures a life-table build. Zero-valued fields fall back to
// package defaults.
type Options struct {
	// URLTemplate overrides the page location. It must contain one %d
	// verb for the table year.
	URLTemplate string

	// FirstYear, LastYear and Step define the fetched years, inclusive
	// of LastYear.
	FirstYear int
	LastYear  int
	Step      int

	// OutName overrides the artifact name.
	OutName string

	// Client is the HTTP client used for page fetches.
	Client *fetch.Client

	// Metrics receives counters and phase timings for the build.
	Metrics *metrics.Tracker
}

// Result summarizes a completed build.
type Result struct {
	Path  string `json:"path"`
	Rows  int    `json:"rows"`
	Years []int  `json:"years"`
}

// Build fetches one life-table page per decade and combines them into a
// single CSV artifact. Pages are fetched strictly one at a time, in year
// order, and any failure aborts the build before the artifact is written.
func Build(ctx context.Context, store *storage.Storage, opts Options) (*Result, error) {
	if opts.URLTemplate == "" {
		opts.URLTemplate = URLTemplate
	}
	if opts.FirstYear <= 0 {
		opts.FirstYear = FirstYear
	}
	if opts.LastYear <= 0 {
		opts.LastYear = LastYear
	}
	if opts.Step <= 0 {
		opts.Step = Step
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

	var combined dataframe.DataFrame
	var years []int
	for year := opts.FirstYear; year <= opts.LastYear; year += opts.Step {
		url := fmt.Sprintf(opts.URLTemplate, year)
		slog.Info("fetching life table", "year", year, "url", url)

		df, err := fetchTable(ctx, opts.Client, opts.Metrics, url, year)
		if err != nil {
			return nil, fmt.Errorf("life table %d: %w", year, err)
		}

		slog.Debug("parsed life table", "year", year, "rows", df.Nrow())

		if len(years) == 0 {
			combined = df
		} else {
			combined = combined.RBind(df)
			if combined.Err != nil {
				return nil, fmt.Errorf("concatenating year %d: %w", year, combined.Err)
			}
		}
		years = append(years, year)
	}

	if len(years) == 0 {
		return nil, fmt.Errorf("no years between %d and %d with step %d", opts.FirstYear, opts.LastYear, opts.Step)
	}

	opts.Metrics.Add("lifetable_pages", int64(len(years)))
	opts.Metrics.Add("lifetable_rows", int64(combined.Nrow()))

	stopWrite := opts.Metrics.Time("lifetable_write")
	path, _, err := store.WriteFrame(combined, opts.OutName)
	stopWrite()
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", opts.OutName, err)
	}

	slog.Debug("life tables built", "metrics", opts.Metrics.Snapshot())

	return &Result{
		Path:  path,
		Rows:  combined.Nrow(),
		Years: years,
	}, nil
}

// fetchTable downloads one page and parses its data table.
func fetchTable(ctx context.Context, client *fetch.Client, tracker *metrics.Tracker, url string, year int) (dataframe.DataFrame, error) {
	stopFetch := tracker.Time("lifetable_fetch")
	body, err := client.Get(ctx, url)
	stopFetch()
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer body.Close()

	stopParse := tracker.Time("lifetable_parse")
	df, err := parseTable(body, year)
	stopParse()

	return df, err
}
