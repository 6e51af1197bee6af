package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalhouse/dispatch/internal/domain"
)

const (
	healthyMaxErrorRate  = 0.05
	healthyMaxQueueDepth = 1000
)

// Sample is one periodic observation of pipeline state.
type Sample struct {
	Timestamp      time.Time                            `json:"timestamp"`
	Queues         map[domain.Channel]domain.QueueDepth `json:"queues"`
	TotalProcessed int64                                `json:"total_processed"`
	TotalErrors    int64                                `json:"total_errors"`
	ActiveWorkers  int64                                `json:"active_workers"`
	Throughput     float64                              `json:"throughput_per_second"`
	ErrorRate      float64                              `json:"error_rate"`
}

// Health is the evaluated health predicate with its inputs.
type Health struct {
	Healthy       bool    `json:"healthy"`
	ErrorRate     float64 `json:"error_rate"`
	QueueDepth    int64   `json:"queue_depth"`
	ActiveWorkers int64   `json:"active_workers"`
	Throughput    float64 `json:"throughput_per_second"`
}

// Collector samples queue depths and processing counters on a fixed
// interval and keeps a bounded window of samples. All Prometheus state
// lives in a registry owned by the collector, never in package globals.
type Collector struct {
	queue    domain.Queue
	logger   *slog.Logger
	interval time.Duration
	window   int

	startedAt      time.Time
	totalProcessed atomic.Int64
	totalErrors    atomic.Int64
	activeWorkers  atomic.Int64

	mu      sync.RWMutex
	samples []Sample

	runMu    sync.Mutex
	running  bool
	stopChan chan struct{}

	registry            *prometheus.Registry
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	notificationsSent   *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
	eventsDropped       *prometheus.CounterVec
	queueDepth          *prometheus.GaugeVec
	workersGauge        *prometheus.GaugeVec
	processingLatency   *prometheus.HistogramVec
}

// NewCollector creates a Collector sampling every interval, retaining
// the last window samples.
func NewCollector(queue domain.Queue, logger *slog.Logger, interval time.Duration, window int) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		queue:     queue,
		logger:    logger,
		interval:  interval,
		window:    window,
		startedAt: time.Now().UTC(),
		samples:   make([]Sample, 0, window),
		registry:  registry,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		notificationsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Total number of notifications sent successfully",
			},
			[]string{"channel"},
		),
		notificationsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_failed_total",
				Help: "Total number of failed notifications",
			},
			[]string{"channel", "reason"},
		),
		eventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_dropped_total",
				Help: "Total number of consumed events dropped without dispatch",
			},
			[]string{"topic", "reason"},
		),
		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "notification_queue_depth",
				Help: "Current depth of the notification queue",
			},
			[]string{"channel", "state"},
		),
		workersGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "notification_active_workers",
				Help: "Number of running channel workers",
			},
			[]string{"channel"},
		),
		processingLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notification_processing_latency_seconds",
				Help:    "Time from creation to successful send",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"channel"},
		),
	}
}

// Start begins periodic sampling
func (c *Collector) Start(ctx context.Context) error {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		return nil
	}
	c.running = true
	c.stopChan = make(chan struct{})
	c.runMu.Unlock()

	c.logger.Info("metrics collector started", "interval", c.interval, "window", c.window)

	go c.run(ctx)
	return nil
}

// Stop stops the sampler
func (c *Collector) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if !c.running {
		return
	}

	close(c.stopChan)
	c.running = false
	c.logger.Info("metrics collector stopped")
}

func (c *Collector) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.takeSample(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.takeSample(ctx)
		}
	}
}

func (c *Collector) takeSample(ctx context.Context) {
	depths, err := c.queue.Depths(ctx)
	if err != nil {
		c.logger.Error("failed to sample queue depths", "error", err)
		return
	}

	for channel, depth := range depths {
		c.queueDepth.WithLabelValues(string(channel), "waiting").Set(float64(depth.Waiting))
		c.queueDepth.WithLabelValues(string(channel), "delayed").Set(float64(depth.Delayed))
		c.queueDepth.WithLabelValues(string(channel), "active").Set(float64(depth.Active))
	}

	processed := c.totalProcessed.Load()
	errs := c.totalErrors.Load()

	sample := Sample{
		Timestamp:      time.Now().UTC(),
		Queues:         depths,
		TotalProcessed: processed,
		TotalErrors:    errs,
		ActiveWorkers:  c.activeWorkers.Load(),
		Throughput:     float64(processed) / time.Since(c.startedAt).Seconds(),
		ErrorRate:      errorRate(processed, errs),
	}

	c.mu.Lock()
	c.samples = append(c.samples, sample)
	if len(c.samples) > c.window {
		c.samples = c.samples[len(c.samples)-c.window:]
	}
	c.mu.Unlock()
}

// RecordSent counts one successful delivery and its end-to-end latency
func (c *Collector) RecordSent(channel domain.Channel, latency time.Duration) {
	c.totalProcessed.Add(1)
	c.notificationsSent.WithLabelValues(string(channel)).Inc()
	c.processingLatency.WithLabelValues(string(channel)).Observe(latency.Seconds())
}

// RecordFailed counts one failed delivery execution
func (c *Collector) RecordFailed(channel domain.Channel, reason domain.ErrorCode) {
	c.totalProcessed.Add(1)
	c.totalErrors.Add(1)
	c.notificationsFailed.WithLabelValues(string(channel), string(reason)).Inc()
}

// RecordEventDropped counts a consumed event that was skipped
func (c *Collector) RecordEventDropped(topic string, reason domain.ErrorCode) {
	c.eventsDropped.WithLabelValues(topic, string(reason)).Inc()
}

// RecordRequest records HTTP request metrics
func (c *Collector) RecordRequest(method, path, status string, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// WorkerStarted registers one running worker for a channel
func (c *Collector) WorkerStarted(channel domain.Channel) {
	c.activeWorkers.Add(1)
	c.workersGauge.WithLabelValues(string(channel)).Inc()
}

// WorkerStopped deregisters one worker for a channel
func (c *Collector) WorkerStopped(channel domain.Channel) {
	c.activeWorkers.Add(-1)
	c.workersGauge.WithLabelValues(string(channel)).Dec()
}

// Current returns the most recent sample, or false before the first one.
func (c *Collector) Current() (Sample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.samples) == 0 {
		return Sample{}, false
	}
	return c.samples[len(c.samples)-1], true
}

// Window returns a copy of the retained samples, oldest first.
func (c *Collector) Window() []Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Sample, len(c.samples))
	copy(out, c.samples)
	return out
}

// AverageThroughput averages throughput across the sample window.
func (c *Collector) AverageThroughput() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.samples {
		sum += s.Throughput
	}
	return sum / float64(len(c.samples))
}

// PeakThroughput returns the highest throughput in the sample window.
func (c *Collector) PeakThroughput() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var peak float64
	for _, s := range c.samples {
		if s.Throughput > peak {
			peak = s.Throughput
		}
	}
	return peak
}

// CheckHealth evaluates the health predicate against a live queue depth
// reading, falling back to the last sample when the queue is unreachable.
func (c *Collector) CheckHealth(ctx context.Context) Health {
	var totalDepth int64
	depths, err := c.queue.Depths(ctx)
	if err != nil {
		if sample, ok := c.Current(); ok {
			for _, depth := range sample.Queues {
				totalDepth += depth.Total()
			}
		}
	} else {
		for _, depth := range depths {
			totalDepth += depth.Total()
		}
	}

	processed := c.totalProcessed.Load()
	rate := errorRate(processed, c.totalErrors.Load())
	workers := c.activeWorkers.Load()

	return Health{
		Healthy:       rate < healthyMaxErrorRate && totalDepth < healthyMaxQueueDepth && workers > 0,
		ErrorRate:     rate,
		QueueDepth:    totalDepth,
		ActiveWorkers: workers,
		Throughput:    float64(processed) / time.Since(c.startedAt).Seconds(),
	}
}

// Handler serves the collector's registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func errorRate(processed, errs int64) float64 {
	if processed < 1 {
		processed = 1
	}
	return float64(errs) / float64(processed)
}
