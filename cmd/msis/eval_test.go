package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KI7MT/ki7mt-msis/internal/spaceweather"
)

func TestEvalLooksUpIndicesWithoutTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kp.txt")
	line := "2024 01 01 33238 33238.5 2597 20 1.000 1.000 1.000 1.000 1.000 1.000 1.000 1.000 4 4 4 4 4 4 4 4 4 100 150.0 150.0 2\n"
	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		t.Fatal(err)
	}

	// Day 200 is outside the file, so the lookup from --year/--doy fails
	// instead of evaluating with zero indices.
	rootCmd.SetArgs([]string{"eval", "--log-level", "error", "--sw-file", path, "--year", "2024", "--doy", "200"})
	err := rootCmd.ExecuteContext(context.Background())
	if !errors.Is(err, spaceweather.ErrNoData) {
		t.Errorf("eval error = %v, want ErrNoData", err)
	}
}

func TestGiven(t *testing.T) {
	if given(false, 3) != nil {
		t.Error("unset flag should give nil")
	}
	if p := given(true, 3); p == nil || *p != 3 {
		t.Errorf("given(true, 3) = %v", p)
	}
}
