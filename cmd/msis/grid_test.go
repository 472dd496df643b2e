package main

import (
	"testing"
	"time"
)

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in   string
		want []float64
	}{
		{"100:300:100", []float64{100, 200, 300}},
		{"0:1:0.25", []float64{0, 0.25, 0.5, 0.75, 1}},
		{"-90:90:60", []float64{-90, -30, 30, 90}},
		{"0:10:4", []float64{0, 4, 8}},
		{"5", []float64{5}},
		{"1, 2.5,4", []float64{1, 2.5, 4}},
	}
	for _, tt := range tests {
		got, err := parseAxis("alt", tt.in)
		if err != nil {
			t.Errorf("parseAxis(%q): %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseAxis(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseAxis(%q) = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}

	for _, bad := range []string{"", "a,b", "1:0:1", "0:10:0", "0:x:1"} {
		if _, err := parseAxis("alt", bad); err == nil {
			t.Errorf("parseAxis(%q) should fail", bad)
		}
	}
}

func TestTimeRange(t *testing.T) {
	times, err := timeRange("2024-03-01T00:00:00Z", "2024-03-01T06:00:00Z", 3*time.Hour)
	if err != nil {
		t.Fatalf("timeRange: %v", err)
	}
	if len(times) != 3 || times[2].Hour() != 6 {
		t.Errorf("times = %v", times)
	}

	single, err := timeRange("2024-03-01T12:00:00+02:00", "", time.Hour)
	if err != nil {
		t.Fatalf("timeRange: %v", err)
	}
	if len(single) != 1 || single[0].Hour() != 10 || single[0].Location() != time.UTC {
		t.Errorf("single = %v", single)
	}

	if _, err := timeRange("", "", time.Hour); err == nil {
		t.Error("missing start should fail")
	}
	if _, err := timeRange("2024-03-02T00:00:00Z", "2024-03-01T00:00:00Z", time.Hour); err == nil {
		t.Error("end before start should fail")
	}
	if _, err := timeRange("2024-03-01T00:00:00Z", "", 0); err == nil {
		t.Error("zero step should fail")
	}
}
