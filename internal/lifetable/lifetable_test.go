package lifetable

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pfrederiksen/ssa-datasets/internal/fetch"
	"github.com/pfrederiksen/ssa-datasets/internal/metrics"
	"github.com/pfrederiksen/ssa-datasets/internal/storage"
)

func testClient() *fetch.Client {
	opts := fetch.DefaultOptions()
	opts.RetryInitialWait = time.Millisecond
	opts.RetryMaxWait = 5 * time.Millisecond
	return fetch.New(opts)
}

func testPage() string {
	return page(
		dataRow("0", "0.1", "100", "50", "75", "200", "50.5",
			"&nbsp;",
			"0", "0.2", "90", "40", "70", "180", "55.5"),
		dataRow("1", "0.3", "50", "15", "42", "125", "42.1",
			"&nbsp;",
			"1", "0.4", "50", "20", "40", "110", "44.2"),
	)
}

func TestBuild(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		io.WriteString(w, testPage())
	}))
	defer server.Close()

	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating storage: %v", err)
	}

	tracker := metrics.New()
	res, err := Build(context.Background(), store, Options{
		URLTemplate: server.URL + "/LifeTables_Tbl_6_%d.html",
		FirstYear:   1900,
		LastYear:    1910,
		Step:        10,
		Client:      testClient(),
		Metrics:     tracker,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]int{1900, 1910}, res.Years); diff != "" {
		t.Errorf("years mismatch (-want +got):\n%s", diff)
	}
	if res.Rows != 8 {
		t.Errorf("expected 8 rows (2 ages, 2 sexes, 2 years), got %d", res.Rows)
	}

	wantRequests := []string{"/LifeTables_Tbl_6_1900.html", "/LifeTables_Tbl_6_1910.html"}
	if diff := cmp.Diff(wantRequests, requests); diff != "" {
		t.Errorf("request order mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}

	want := "age,sex,year,q(x),l(x),d(x),L(x),T(x),ex\n" +
		"0,M,1900,0.1,100,50,75,200,50.5\n" +
		"1,M,1900,0.3,50,15,42,125,42.1\n" +
		"0,F,1900,0.2,90,40,70,180,55.5\n" +
		"1,F,1900,0.4,50,20,40,110,44.2\n" +
		"0,M,1910,0.1,100,50,75,200,50.5\n" +
		"1,M,1910,0.3,50,15,42,125,42.1\n" +
		"0,F,1910,0.2,90,40,70,180,55.5\n" +
		"1,F,1910,0.4,50,20,40,110,44.2\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("artifact mismatch (-want +got):\n%s", diff)
	}

	if got := tracker.Counter("lifetable_pages"); got != 2 {
		t.Errorf("expected lifetable_pages metric 2, got %d", got)
	}
	if got := tracker.Counter("lifetable_rows"); got != 8 {
		t.Errorf("expected lifetable_rows metric 8, got %d", got)
	}
}

func TestBuildMissingPageAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "1910") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, testPage())
	}))
	defer server.Close()

	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating storage: %v", err)
	}

	_, err = Build(context.Background(), store, Options{
		URLTemplate: server.URL + "/LifeTables_Tbl_6_%d.html",
		FirstYear:   1900,
		LastYear:    1920,
		Step:        10,
		Client:      testClient(),
	})
	if err == nil {
		t.Fatal("expected error when a page is missing, got nil")
	}
	if !strings.Contains(err.Error(), "life table 1910") {
		t.Errorf("expected failing year in error, got %v", err)
	}

	if _, err := os.Stat(store.Path(OutName)); !os.IsNotExist(err) {
		t.Error("expected no artifact to be written for a failed build")
	}
}

func TestBuildEmptyRange(t *testing.T) {
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating storage: %v", err)
	}

	_, err = Build(context.Background(), store, Options{
		FirstYear: 2000,
		LastYear:  1900,
		Step:      10,
		Client:    testClient(),
	})
	if err == nil {
		t.Fatal("expected error for an empty year range, got nil")
	}
}

func TestBuildHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, testPage())
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating storage: %v", err)
	}

	_, err = Build(ctx, store, Options{
		URLTemplate: server.URL + "/LifeTables_Tbl_6_%d.html",
		FirstYear:   1900,
		LastYear:    1910,
		Step:        10,
		Client:      testClient(),
	})
	if err == nil {
		t.Fatal("expected error for canceled context, got nil")
	}
}
