package spaceweather

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "sub", "sw.db")

	store, err := OpenSQLiteStore(dbPath, quietLogger())
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer store.Close()

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	days := syntheticDays(start, 5)
	days[2].Missing = MissingF107 | MissingSSN
	days[2].Kp[3] = 2.667

	if err := store.Save(ctx, days); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// Upsert keeps one row per date.
	days[4].DayAp = 42
	if err := store.Save(ctx, days[4:]); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("Load() returned %d days, want 5", len(got))
	}
	for i := range days {
		g := got[i]
		if !g.Date.Equal(days[i].Date) {
			t.Errorf("day %d date = %v, want %v", i, g.Date, days[i].Date)
		}
		g.Date = days[i].Date
		if g != days[i] {
			t.Errorf("day %d = %+v, want %+v", i, got[i], days[i])
		}
	}

	ranged, err := store.Load(ctx, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 2 {
		t.Errorf("ranged Load() returned %d days, want 2", len(ranged))
	}

	last, err := store.LastUpdate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last.IsZero() || time.Since(last) > time.Hour {
		t.Errorf("LastUpdate() = %v", last)
	}
}

func TestSQLiteStoreEmpty(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "sw.db"), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	last, err := store.LastUpdate(context.Background())
	if err != nil || !last.IsZero() {
		t.Errorf("LastUpdate() = %v, %v; want zero", last, err)
	}
}

func gfzBody(start time.Time, n int) string {
	var lines []string
	lines = append(lines, "# header")
	for i := 0; i < n; i++ {
		lines = append(lines, gfzLine(start.AddDate(0, 0, i), float64(i), float64(i+1), 100+float64(i)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestDownload(t *testing.T) {
	body := gfzBody(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	defer server.Close()

	dir := t.TempDir()
	ctx := context.Background()

	path, n, err := Download(ctx, server.Client(), server.URL+"/kp.txt", filepath.Join(dir, "kp.txt"), false)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if n != int64(len(body)) {
		t.Errorf("bytes = %d, want %d", n, len(body))
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != body {
		t.Error("downloaded content differs")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	gzPath, _, err := Download(ctx, server.Client(), server.URL+"/kp.txt", filepath.Join(dir, "kp.txt"), true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(gzPath, ".gz") {
		t.Errorf("compressed path = %q", gzPath)
	}
	f, err := os.Open(gzPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	unzipped, _ := io.ReadAll(zr)
	if string(unzipped) != body {
		t.Error("gzip content differs")
	}

	// Parsing the .gz goes through the parallel reader.
	days, err := ParseFile(gzPath, time.Time{}, time.Time{})
	if err != nil || len(days) != 3 {
		t.Errorf("ParseFile(gz) = %d days, %v", len(days), err)
	}

	if _, _, err := Download(ctx, server.Client(), server.URL+"/missing", filepath.Join(dir, "x.txt"), false); err == nil {
		t.Error("expected error for HTTP 404")
	}
}

type recordingSaver struct {
	saved int
}

func (s *recordingSaver) Save(_ context.Context, days []Day) error {
	s.saved += len(days)
	return nil
}

func TestRefresherRefreshAndWarm(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	body := gfzBody(start, 10)
	fail := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, body)
	}))
	defer server.Close()

	dir := t.TempDir()
	store, err := OpenSQLiteStore(filepath.Join(dir, "sw.db"), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	sink := &recordingSaver{}

	r := NewRefresher(RefresherConfig{
		URL:      server.URL,
		DestPath: filepath.Join(dir, "data", "kp.txt"),
		Client:   server.Client(),
		Store:    store,
		Sinks:    []Saver{sink},
		Log:      quietLogger(),
	})
	if r.Table().Len() != 0 {
		t.Fatal("new refresher should start empty")
	}

	ctx := context.Background()
	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if r.Table().Len() != 10 || sink.saved != 10 || r.LastRefresh().IsZero() {
		t.Errorf("table %d days, sink %d", r.Table().Len(), sink.saved)
	}

	drv, err := r.Drivers(start.AddDate(0, 0, 5))
	if err != nil {
		t.Fatal(err)
	}
	if drv.Ap != 6 || drv.F107 != 104 {
		t.Errorf("Drivers() = %+v", drv)
	}

	// A failed refresh keeps the current table.
	fail = true
	if err := r.Refresh(ctx); err == nil {
		t.Error("expected refresh error")
	}
	if r.Table().Len() != 10 {
		t.Error("table replaced after failed refresh")
	}

	// A new refresher warms from the cache.
	r2 := NewRefresher(RefresherConfig{Store: store, Log: quietLogger()})
	if err := r2.Warm(ctx); err != nil {
		t.Fatal(err)
	}
	if r2.Table().Len() != 10 {
		t.Errorf("warmed table has %d days", r2.Table().Len())
	}
}

func TestRefresherConcurrentRefreshSerialised(t *testing.T) {
	body := gfzBody(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 5)
	var inFlight, maxInFlight atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		io.WriteString(w, body)
	}))
	defer server.Close()

	dir := t.TempDir()
	sink := &recordingSaver{}
	r := NewRefresher(RefresherConfig{
		URL:      server.URL,
		DestPath: filepath.Join(dir, "kp.txt"),
		Client:   server.Client(),
		Sinks:    []Saver{sink},
		Log:      quietLogger(),
	})

	const runs = 3
	var wg sync.WaitGroup
	errs := make(chan error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Refresh(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Refresh() error = %v", err)
		}
	}

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent downloads = %d, want 1", got)
	}
	if sink.saved != runs*5 {
		t.Errorf("sink saved %d days, want %d", sink.saved, runs*5)
	}
	if r.Table().Len() != 5 {
		t.Errorf("table has %d days, want 5", r.Table().Len())
	}
}

func TestRefresherStartRejectsBadSpec(t *testing.T) {
	r := NewRefresher(RefresherConfig{Log: quietLogger()})
	if err := r.Start("not a cron spec"); err == nil {
		t.Error("expected error for bad cron spec")
	}
	r.Stop()
}
