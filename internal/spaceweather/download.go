package spaceweather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/klauspost/compress/gzip"
)

// Source is a downloadable index file.
type Source struct {
	Name     string
	URL      string
	Filename string
	Desc     string
}

// Sources lists the known index files.
var Sources = []Source{
	{
		Name:     "gfz_since_1932",
		URL:      "https://kp.gfz-potsdam.de/app/files/Kp_ap_Ap_SN_F107_since_1932.txt",
		Filename: "Kp_ap_Ap_SN_F107_since_1932.txt",
		Desc:     "GFZ Kp/ap/Ap/SN/F10.7 (1932-present)",
	},
	{
		Name:     "gfz_nowcast",
		URL:      "https://kp.gfz-potsdam.de/app/files/Kp_ap_Ap_SN_F107_nowcast.txt",
		Filename: "Kp_ap_Ap_SN_F107_nowcast.txt",
		Desc:     "GFZ Kp/ap/Ap/SN/F10.7 nowcast (last 30 days)",
	},
	{
		Name:     "noaa_kp",
		URL:      "https://services.swpc.noaa.gov/products/noaa-planetary-k-index.json",
		Filename: "noaa_kp_index.json",
		Desc:     "NOAA planetary K-index (3-hourly geomagnetic)",
	},
	{
		Name:     "noaa_sfi",
		URL:      "https://services.swpc.noaa.gov/json/solar-cycle/observed-solar-cycle-indices.json",
		Filename: "noaa_solar_cycle.json",
		Desc:     "NOAA solar cycle indices (F10.7 flux, SSN)",
	},
}

// LookupSource returns the source with the given name.
func LookupSource(name string) (Source, bool) {
	for _, s := range Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// Download fetches url into destPath through a temporary file and an
// atomic rename. With compress set the file is gzip-compressed on the fly
// and ".gz" is appended to destPath. It returns the final path and the
// number of bytes received.
func Download(ctx context.Context, client *http.Client, url, destPath string, compress bool) (string, int64, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if compress {
		destPath += ".gz"
	}

	// Create temp file
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("create file failed: %w", err)
	}

	n, err := copyBody(f, resp.Body, compress)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("download failed: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("rename failed: %w", err)
	}

	return destPath, n, nil
}

func copyBody(w io.Writer, r io.Reader, compress bool) (int64, error) {
	if !compress {
		return io.Copy(w, r)
	}
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(gz, r)
	if err != nil {
		gz.Close()
		return n, err
	}
	return n, gz.Close()
}
