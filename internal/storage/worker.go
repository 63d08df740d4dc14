// Package storage persists telemetry readings to an append-only log.
package storage

import (
	"bufio"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/andreivlad/ecohub/internal/device"
	"github.com/andreivlad/ecohub/internal/metrics"
)

const (
	defaultFlushEvery = 500 * time.Millisecond
	defaultQueueSize  = 4096
)

// Config tunes the worker. Zero values fall back to defaults.
type Config struct {
	Path       string
	FlushEvery time.Duration
	QueueSize  int
}

// Worker drains a queue of readings onto disk from a single background
// goroutine so file I/O never blocks the simulation. Records are encoded
// as Influx line protocol, one per line, no rotation.
type Worker struct {
	path       string
	flushEvery time.Duration
	queue      chan *device.Reading
	log        *zap.Logger
	metrics    *metrics.Set

	mu      sync.Mutex
	written int64
	running bool

	done    chan struct{}
	started time.Time
}

func NewWorker(cfg Config, logger *zap.Logger, m *metrics.Set) *Worker {
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushEvery
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		path:       cfg.Path,
		flushEvery: cfg.FlushEvery,
		queue:      make(chan *device.Reading, cfg.QueueSize),
		log:        logger,
		metrics:    m,
		done:       make(chan struct{}),
	}
}

// RecordsWritten is monotonically non-decreasing and counts only records
// actually appended to the log.
func (w *Worker) RecordsWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *Worker) QueueDepth() int {
	return len(w.queue)
}

// Start launches the consumer goroutine. Calling Start on a running
// worker is a no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.started = time.Now()
	go w.loop()
	w.log.Info("storage worker started", zap.String("path", w.path))
}

// Stop requests a graceful shutdown: a sentinel is queued behind any
// pending records and the worker is joined with the given timeout. A
// worker that fails to exit is reported, not treated as fatal. Stop is
// idempotent.
func (w *Worker) Stop(timeout time.Duration) {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	// nil is the shutdown sentinel.
	select {
	case w.queue <- nil:
	case <-time.After(timeout):
		w.log.Warn("storage queue refused sentinel")
		return
	}

	select {
	case <-w.done:
		w.log.Info("storage worker stopped", zap.Int64("records_written", w.RecordsWritten()))
	case <-time.After(timeout):
		w.log.Warn("storage worker did not stop in time")
	}
}

// Enqueue hands a reading to the worker without blocking. Records are
// silently dropped when the worker is not running; a full queue drops the
// record and counts it.
func (w *Worker) Enqueue(r *device.Reading) {
	if r == nil {
		return
	}
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running {
		return
	}

	select {
	case w.queue <- r:
		w.metrics.SetQueueDepth(len(w.queue))
	default:
		w.metrics.IncDropped()
		w.log.Warn("storage queue full, dropping record", zap.String("device_id", r.DeviceID))
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		w.log.Error("open log file", zap.Error(err))
		// Keep draining so producers and Stop are not wedged.
		for r := range w.queue {
			if r == nil {
				return
			}
		}
		return
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	defer buf.Flush()

	last := time.Now()
	for {
		select {
		case r := <-w.queue:
			if r == nil {
				return
			}
			w.metrics.SetQueueDepth(len(w.queue))
			if _, err := buf.WriteString(encode(r)); err != nil {
				// One bad write is non-fatal.
				w.log.Error("write record", zap.Error(err))
				continue
			}
			w.mu.Lock()
			w.written++
			w.mu.Unlock()
			w.metrics.IncWritten()
			if time.Since(last) >= w.flushEvery {
				if err := buf.Flush(); err != nil {
					w.log.Error("flush log", zap.Error(err))
				}
				last = time.Now()
			}

		case <-time.After(w.flushEvery):
			if time.Since(last) >= w.flushEvery {
				if err := buf.Flush(); err != nil {
					w.log.Error("flush log", zap.Error(err))
				}
				last = time.Now()
			}
		}
	}
}

// encode renders one reading as a line-protocol record terminated by a
// single newline.
func encode(r *device.Reading) string {
	tags := map[string]string{
		"device_id": r.DeviceID,
		"type":      string(r.DeviceType),
	}
	fields := map[string]interface{}{
		"signal_strength":  r.SignalStrength,
		"status":           string(r.Status),
		"issue":            string(r.Issue),
		"response_time_ms": r.ResponseTimeMS,
	}
	for k, v := range r.Payload {
		fields["payload_"+k] = v
	}

	p := influxdb2.NewPoint("telemetry", tags, fields, r.Timestamp)
	line := strings.TrimRight(write.PointToLineProtocol(p, time.Nanosecond), "\n")
	return line + "\n"
}

// Stats is a point-in-time storage summary for the session report.
type Stats struct {
	RecordsWritten int64
	QueueDepth     int
	Elapsed        time.Duration
	Rate           float64
}

func (w *Worker) Stats() Stats {
	w.mu.Lock()
	written := w.written
	started := w.started
	w.mu.Unlock()

	elapsed := time.Duration(0)
	if !started.IsZero() {
		elapsed = time.Since(started)
	}
	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(written) / secs
	}
	return Stats{
		RecordsWritten: written,
		QueueDepth:     len(w.queue),
		Elapsed:        elapsed,
		Rate:           rate,
	}
}
