package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/signalhouse/dispatch/internal/domain"
	"github.com/signalhouse/dispatch/internal/metrics"
)

// MetricsHandler handles metrics endpoints
type MetricsHandler struct {
	collector *metrics.Collector
	queue     domain.Queue
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(collector *metrics.Collector, queue domain.Queue) *MetricsHandler {
	return &MetricsHandler{
		collector: collector,
		queue:     queue,
	}
}

// Handler returns the Prometheus HTTP handler backed by the collector's registry
func (h *MetricsHandler) Handler() http.Handler {
	return h.collector.Handler()
}

// QueueMetrics represents real-time queue metrics per channel
type QueueMetrics struct {
	Email QueueChannelMetrics `json:"email"`
	Push  QueueChannelMetrics `json:"push"`
	SMS   QueueChannelMetrics `json:"sms"`
}

// QueueChannelMetrics represents metrics for a single channel
type QueueChannelMetrics struct {
	Waiting int64 `json:"waiting"`
	Delayed int64 `json:"delayed"`
	Active  int64 `json:"active"`
	Total   int64 `json:"total"`
}

// RealtimeSnapshot represents real-time pipeline metrics
type RealtimeSnapshot struct {
	Timestamp           time.Time    `json:"timestamp"`
	Queues              QueueMetrics `json:"queues"`
	TotalQueueDepth     int64        `json:"total_queue_depth"`
	ActiveWorkers       int64        `json:"active_workers"`
	ThroughputPerSecond float64      `json:"throughput_per_second"`
	AverageThroughput   float64      `json:"average_throughput_per_second"`
	PeakThroughput      float64      `json:"peak_throughput_per_second"`
	ErrorRate           float64      `json:"error_rate"`
}

// RealtimeMetrics handles real-time metrics requests
// @Summary Real-time metrics
// @Description Get real-time metrics including per-channel queue depths and throughput over the sample window
// @Tags metrics
// @Produce json
// @Success 200 {object} RealtimeSnapshot
// @Failure 500 {object} Response
// @Router /metrics/realtime [get]
func (h *MetricsHandler) RealtimeMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	depths, err := h.queue.Depths(ctx)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "METRICS_ERROR", "Failed to get queue depths", nil)
		return
	}

	snapshot := RealtimeSnapshot{
		Timestamp: time.Now().UTC(),
		Queues: QueueMetrics{
			Email: channelMetrics(depths[domain.ChannelEmail]),
			Push:  channelMetrics(depths[domain.ChannelPush]),
			SMS:   channelMetrics(depths[domain.ChannelSMS]),
		},
		AverageThroughput: h.collector.AverageThroughput(),
		PeakThroughput:    h.collector.PeakThroughput(),
	}
	for _, depth := range depths {
		snapshot.TotalQueueDepth += depth.Total()
	}

	if sample, ok := h.collector.Current(); ok {
		snapshot.ActiveWorkers = sample.ActiveWorkers
		snapshot.ThroughputPerSecond = sample.Throughput
		snapshot.ErrorRate = sample.ErrorRate
	}

	JSON(w, http.StatusOK, snapshot)
}

func channelMetrics(depth domain.QueueDepth) QueueChannelMetrics {
	return QueueChannelMetrics{
		Waiting: depth.Waiting,
		Delayed: depth.Delayed,
		Active:  depth.Active,
		Total:   depth.Total(),
	}
}
