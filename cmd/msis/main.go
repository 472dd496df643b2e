// msis - NRLMSISE-00 command line
//
// Evaluates the model at a single point (eval) or over a
// time x altitude x latitude x longitude grid (grid). Missing Ap/F10.7
// indices are looked up in the space weather cache maintained by
// msis-server and sw-backfill.
//
// Build: CGO_ENABLED=1 go build -tags nrlmsise -ldflags="-s -w" -o build/msis ./cmd/msis

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KI7MT/ki7mt-msis/internal/common"
	"github.com/KI7MT/ki7mt-msis/internal/msis"
	"github.com/KI7MT/ki7mt-msis/internal/spaceweather"
)

// Version can be overridden at build time via -ldflags
var Version = "0.3.0"

var (
	cfg *common.Config
	log *logrus.Logger

	logLevel string
	swFile   string
)

// rootCmd is the main command.
var rootCmd = &cobra.Command{
	Use:           "msis",
	Short:         "NRLMSISE-00 neutral atmosphere model",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = common.Load()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = cfg.LogLevel
		}
		log = common.NewLogger(logLevel)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("msis v%s (model: %s)\n", Version, msis.Native().Name())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&swFile, "sw-file", "", "GFZ index file to read indices from instead of the SQLite cache")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadTable reads the space weather table from --sw-file or the SQLite
// cache.
func loadTable(ctx context.Context) (*spaceweather.Table, error) {
	t0 := time.Now()
	var days []spaceweather.Day
	if swFile != "" {
		var err error
		if days, err = spaceweather.ParseFile(swFile, time.Time{}, time.Time{}); err != nil {
			return nil, err
		}
	} else {
		if _, err := os.Stat(cfg.SpaceWeatherSQLite); err != nil {
			return nil, fmt.Errorf("no space weather cache at %s (run sw-backfill --sqlite or give --sw-file): %w",
				cfg.SpaceWeatherSQLite, err)
		}
		store, err := spaceweather.OpenSQLiteStore(cfg.SpaceWeatherSQLite, log)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		if days, err = store.Load(ctx, time.Time{}, time.Time{}); err != nil {
			return nil, err
		}
	}

	table := spaceweather.NewTable(days)
	first, last := table.Range()
	log.WithFields(logrus.Fields{
		"days":    table.Len(),
		"first":   first.Format("2006-01-02"),
		"last":    last.Format("2006-01-02"),
		"elapsed": time.Since(t0).Round(time.Millisecond),
	}).Debug("Space weather table loaded")
	return table, nil
}
