// sw-download - Download space weather index files from GFZ and NOAA
//
// Data sources:
//   - GFZ Potsdam: Kp/ap/Ap/SN/F10.7 since 1932 and the 30-day nowcast
//   - NOAA SWPC: planetary K-index and observed solar cycle indices
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/sw-download ./cmd/sw-download

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/KI7MT/ki7mt-msis/internal/common"
	"github.com/KI7MT/ki7mt-msis/internal/spaceweather"
)

// Version can be overridden at build time via -ldflags
var Version = "0.3.0"

func main() {
	cfg, err := common.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	destDir := flag.String("dest", cfg.SpaceWeatherDataDir(), "Destination directory")
	timeout := flag.Duration("timeout", 60*time.Second, "HTTP timeout per download")
	listSources := flag.Bool("list", false, "List available data sources")
	source := flag.String("source", "all", "Source to download (or 'all')")
	compress := flag.Bool("gzip", false, "Store files gzip-compressed (.gz)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "sw-download v%s - Space Weather Index Downloader\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Downloads geomagnetic and solar flux indices from GFZ and NOAA.\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nData Sources:\n")
		for _, s := range spaceweather.Sources {
			fmt.Fprintf(os.Stderr, "  %-15s %s\n", s.Name, s.Desc)
		}
	}

	flag.Parse()

	if *listSources {
		fmt.Printf("Available space weather sources:\n\n")
		for _, s := range spaceweather.Sources {
			fmt.Printf("  %-15s %s\n", s.Name, s.Desc)
			fmt.Printf("                  URL: %s\n", s.URL)
			fmt.Printf("                  File: %s\n\n", s.Filename)
		}
		return
	}

	log := common.NewLogger(*logLevel)

	if *source != "all" {
		if _, ok := spaceweather.LookupSource(*source); !ok {
			log.Fatalf("Unknown source %q (use --list)", *source)
		}
	}

	common.Banner(log, "Space Weather Download v%s", Version)
	log.Infof("Destination: %s", *destDir)
	log.Infof("Timeout:     %v", *timeout)
	log.Infof("Compress:    %v", *compress)

	if err := os.MkdirAll(*destDir, 0755); err != nil {
		log.Fatalf("Cannot create directory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Shutdown requested...")
		cancel()
	}()

	client := &http.Client{Timeout: *timeout}
	startTime := time.Now()
	downloaded := 0
	failed := 0
	var bytes int64

	for _, src := range spaceweather.Sources {
		if *source != "all" && *source != src.Name {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		destPath := filepath.Join(*destDir, src.Filename)
		log.Infof("[%s] Downloading from %s...", src.Name, src.URL)

		path, n, err := spaceweather.Download(ctx, client, src.URL, destPath, *compress)
		if err != nil {
			log.Errorf("  [%s] %v", src.Name, err)
			failed++
			continue
		}
		log.Infof("  Downloaded %s (%d bytes)", filepath.Base(path), n)
		bytes += n
		downloaded++
	}

	common.Banner(log, "Download Summary")
	log.Infof("Downloaded: %d files (%d bytes)", downloaded, bytes)
	log.Infof("Failed:     %d files", failed)
	log.Infof("Elapsed:    %v", time.Since(startTime).Round(time.Millisecond))

	if failed > 0 || ctx.Err() != nil {
		os.Exit(1)
	}
}
