package common

import (
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	t.Setenv("CLICKHOUSE_PORT", "")
	t.Setenv("API_PORT", "")
	t.Setenv("MSIS_WORKERS", "")
	t.Setenv("MSIS_DATA_DIR", "/tmp/msis")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ClickHousePort != 9000 || cfg.APIPort != 8080 || cfg.Workers <= 0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.SpaceWeatherSQLite != "/tmp/msis/spaceweather.db" {
		t.Errorf("SpaceWeatherSQLite = %q", cfg.SpaceWeatherSQLite)
	}
	if cfg.SpaceWeatherFile() != "/tmp/msis/spaceweather/Kp_ap_Ap_SN_F107_since_1932.txt" {
		t.Errorf("SpaceWeatherFile() = %q", cfg.SpaceWeatherFile())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLICKHOUSE_HOST", "ch.example")
	t.Setenv("CLICKHOUSE_PORT", "9440")
	t.Setenv("API_PORT", "9090")
	t.Setenv("MSIS_WORKERS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ClickHouseAddr() != "ch.example:9440" {
		t.Errorf("ClickHouseAddr() = %q", cfg.ClickHouseAddr())
	}
	if cfg.ListenAddr() != ":9090" || cfg.Workers != 3 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadInvalidNumbers(t *testing.T) {
	for _, key := range []string{"CLICKHOUSE_PORT", "API_PORT", "MSIS_WORKERS"} {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, "abc")
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=abc should fail", key)
			}
		})
	}
}

func TestNewLoggerLevel(t *testing.T) {
	if l := NewLogger("debug"); l.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", l.GetLevel())
	}
	if l := NewLogger("nonsense"); l.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", l.GetLevel())
	}
}

func TestStatsConcurrentAdd(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	s := NewStats(l)
	s.SetTotal(8000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.AddPoints(1)
			}
		}()
	}
	wg.Wait()

	if got := s.GetPoints(); got != 8000 {
		t.Errorf("GetPoints() = %d, want 8000", got)
	}
	s.Reset()
	if s.GetPoints() != 0 || s.GetTotal() != 0 {
		t.Error("Reset() did not clear counters")
	}
}

func TestStatsMovingAverage(t *testing.T) {
	s := NewStats(nil)
	s.pushRate(10)
	s.pushRate(0)
	if got := s.pushRate(20); got != 15 {
		t.Errorf("pushRate average = %v, want 15", got)
	}
}
