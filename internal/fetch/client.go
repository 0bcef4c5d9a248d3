package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// UserAgent identifies the tool to the servers it downloads from.
	UserAgent = "ssa-datasets/1.0 (github.com/pfrederiksen/ssa-datasets)"

	// Timeout is the default timeout for a single HTTP request.
	Timeout = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	// Timeout bounds each individual request, including reading the body.
	Timeout time.Duration

	// RetryAttempts is how many times a failed request is retried before
	// giving up. Only transport errors and 5xx responses are retried.
	RetryAttempts uint64

	// RetryInitialWait is the delay before the first retry. Subsequent
	// waits grow exponentially up to RetryMaxWait.
	RetryInitialWait time.Duration
	RetryMaxWait     time.Duration

	// UserAgent overrides the User-Agent header sent with each request.
	UserAgent string
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Timeout:          Timeout,
		RetryAttempts:    3,
		RetryInitialWait: time.Second,
		RetryMaxWait:     10 * time.Second,
		UserAgent:        UserAgent,
	}
}

// Client fetches pages and files over HTTP.
type Client struct {
	client *http.Client
	opts   Options
}

// New creates a Client. Zero-valued option fields fall back to defaults.
func New(opts Options) *Client {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = def.RetryAttempts
	}
	if opts.RetryInitialWait <= 0 {
		opts.RetryInitialWait = def.RetryInitialWait
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = def.RetryMaxWait
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}

	return &Client{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Download describes a file fetched to local storage.
type Download struct {
	Path   string
	Size   int64
	SHA256 string
}

// Get fetches url and returns the response body. The caller must close it.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	var body io.ReadCloser

	attempt := func() error {
		resp, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		body = resp.Body
		return nil
	}

	if err := backoff.RetryNotify(attempt, c.newBackOff(ctx), notify("fetch", url)); err != nil {
		return nil, err
	}

	return body, nil
}

// DownloadFile streams url into the file at dest and reports the size and
// SHA-256 digest of the bytes written. A retried attempt rewrites dest from
// scratch, so a partially written file is never left behind as the result.
func (c *Client) DownloadFile(ctx context.Context, url, dest string) (*Download, error) {
	var dl *Download

	attempt := func() error {
		resp, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		f, err := os.Create(dest)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating %s: %w", dest, err))
		}

		sum := sha256.New()
		size, err := io.Copy(io.MultiWriter(f, sum), resp.Body)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}

		dl = &Download{
			Path:   dest,
			Size:   size,
			SHA256: hex.EncodeToString(sum.Sum(nil)),
		}
		return nil
	}

	if err := backoff.RetryNotify(attempt, c.newBackOff(ctx), notify("download", url)); err != nil {
		return nil, err
	}

	return dl, nil
}

// get performs a single GET attempt. Transport errors and 5xx responses are
// returned as retryable errors; any other non-200 status is permanent.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	if resp.StatusCode >= 500 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, backoff.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	return resp, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryInitialWait
	b.MaxInterval = c.opts.RetryMaxWait
	b.MaxElapsedTime = 0 // the retry count is the only limit
	return backoff.WithContext(backoff.WithMaxRetries(b, c.opts.RetryAttempts), ctx)
}

func notify(op, url string) backoff.Notify {
	return func(err error, wait time.Duration) {
		slog.Warn("retrying "+op, "url", url, "error", err, "wait", wait)
	}
}
