package common

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats holds atomic counters for evaluation progress
type Stats struct {
	TotalPoints         uint64 // Points expected for the run (0 = unknown)
	PointsEvaluated     uint64 // Atomic counter for model evaluations done
	CurrentChunkLatency uint64 // Atomic counter for last chunk latency in nanoseconds

	// Internal state for reporter
	log        logrus.FieldLogger
	interval   time.Duration
	running    atomic.Bool
	stopCh     chan struct{}
	silent     bool
	lastPoints uint64
	lastTime   time.Time

	// Moving average window for rate calculation
	rateWindow     []float64
	rateWindowSize int
	rateIndex      int
}

// NewStats creates a new Stats instance reporting through log
func NewStats(log logrus.FieldLogger) *Stats {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Stats{
		log:            log,
		interval:       500 * time.Millisecond,
		stopCh:         make(chan struct{}),
		rateWindow:     make([]float64, 10), // 10-sample moving average (5 seconds)
		rateWindowSize: 10,
	}
}

// SetTotal sets the number of points expected for the run
func (s *Stats) SetTotal(n uint64) {
	atomic.StoreUint64(&s.TotalPoints, n)
}

// AddPoints atomically increments the evaluated points counter
func (s *Stats) AddPoints(count uint64) {
	atomic.AddUint64(&s.PointsEvaluated, count)
}

// SetChunkLatency atomically sets the last chunk latency in nanoseconds
func (s *Stats) SetChunkLatency(ns uint64) {
	atomic.StoreUint64(&s.CurrentChunkLatency, ns)
}

// GetPoints atomically reads the evaluated points counter
func (s *Stats) GetPoints() uint64 {
	return atomic.LoadUint64(&s.PointsEvaluated)
}

// GetTotal atomically reads the expected points
func (s *Stats) GetTotal() uint64 {
	return atomic.LoadUint64(&s.TotalPoints)
}

// GetChunkLatency atomically reads the last chunk latency
func (s *Stats) GetChunkLatency() uint64 {
	return atomic.LoadUint64(&s.CurrentChunkLatency)
}

// SetSilent enables or disables silent mode
func (s *Stats) SetSilent(silent bool) {
	s.silent = silent
}

// StartReporter starts a background goroutine that logs progress
// every 500ms
func (s *Stats) StartReporter() {
	if s.running.Load() {
		return // Already running
	}

	s.running.Store(true)
	s.lastTime = time.Now()
	s.lastPoints = 0

	go s.reporterLoop()
}

// StopReporter stops the background reporter goroutine
func (s *Stats) StopReporter() {
	if !s.running.Load() {
		return
	}

	s.running.Store(false)
	close(s.stopCh)
}

// reporterLoop is the background goroutine that periodically logs stats
func (s *Stats) reporterLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.printStatus()
		}
	}
}

// printStatus logs the current progress
func (s *Stats) printStatus() {
	if s.silent {
		return
	}

	now := time.Now()
	elapsed := now.Sub(s.lastTime).Seconds()

	if elapsed < 0.001 {
		// Avoid division by zero on first tick
		return
	}

	current := s.GetPoints()
	rate := float64(current-s.lastPoints) / elapsed
	smoothed := s.pushRate(rate)

	fields := logrus.Fields{
		"points":   current,
		"rate":     int64(rate),
		"rate_avg": int64(smoothed),
		"chunk_ms": float64(s.GetChunkLatency()) / 1_000_000,
	}
	if total := s.GetTotal(); total > 0 {
		fields["progress"] = float64(current) / float64(total) * 100
	}
	s.log.WithFields(fields).Info("[Progress]")

	s.lastPoints = current
	s.lastTime = now
}

// pushRate adds a sample to the moving average window and returns the
// mean of the non-zero samples.
func (s *Stats) pushRate(rate float64) float64 {
	s.rateWindow[s.rateIndex] = rate
	s.rateIndex = (s.rateIndex + 1) % s.rateWindowSize

	var sum float64
	var count int
	for i := 0; i < s.rateWindowSize; i++ {
		if s.rateWindow[i] > 0 {
			sum += s.rateWindow[i]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Reset resets all counters (useful for testing or restarting)
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.TotalPoints, 0)
	atomic.StoreUint64(&s.PointsEvaluated, 0)
	atomic.StoreUint64(&s.CurrentChunkLatency, 0)
	s.lastPoints = 0
	s.lastTime = time.Now()

	for i := range s.rateWindow {
		s.rateWindow[i] = 0
	}
	s.rateIndex = 0
}
