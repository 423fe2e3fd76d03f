// Package metrics holds the prometheus collectors for conversions and
// ingestion. Labels are bounded: media type, outcome and result only.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaconv_conversions_total",
		Help: "Conversions finished, by media type and outcome.",
	}, []string{"media_type", "outcome"})

	ConversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediaconv_conversion_duration_seconds",
		Help:    "Wall time of one transcoder invocation, by media type.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 180, 600, 1800},
	}, []string{"media_type"})

	OutputBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaconv_output_bytes_total",
		Help: "Bytes written by successful conversions, by media type.",
	}, []string{"media_type"})

	ActiveConversions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaconv_active_conversions",
		Help: "Transcoder invocations currently running (0 or 1).",
	})

	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaconv_ingest_total",
		Help: "Ingest attempts, by result (added, duplicate, unsupported, kind_mismatch, error).",
	}, []string{"result"})

	ProbeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaconv_probe_failures_total",
		Help: "Metadata probes that failed, by media type.",
	}, []string{"media_type"})
)

// RecordConversion records one finished transcoder invocation.
func RecordConversion(mediaType, outcome string, elapsed time.Duration, outputBytes int64) {
	ConversionsTotal.WithLabelValues(mediaType, outcome).Inc()
	ConversionDuration.WithLabelValues(mediaType).Observe(elapsed.Seconds())
	if outputBytes > 0 {
		OutputBytesTotal.WithLabelValues(mediaType).Add(float64(outputBytes))
	}
}

func RecordIngest(result string) {
	IngestTotal.WithLabelValues(result).Inc()
}

func RecordProbeFailure(mediaType string) {
	ProbeFailuresTotal.WithLabelValues(mediaType).Inc()
}
