package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the conversation engine.
type Metrics struct {
	// Conversation metrics
	TurnsSent       prometheus.Counter
	TurnFailures    prometheus.Counter
	SessionsStarted prometheus.Counter

	// Enrichment metrics
	EnrichmentRequests  prometheus.Counter
	EnrichmentSuccesses prometheus.Counter
	EnrichmentFailures  prometheus.Counter

	// Audio metrics
	PlaybackStarts  prometheus.Counter
	PlaybackErrors  prometheus.Counter
	SpeechSyntheses prometheus.Counter
	Transcriptions  prometheus.Counter

	// Persistence metrics
	PersistWrites   prometheus.Counter
	PersistFailures prometheus.Counter
	PersistStale    prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_turns_sent_total",
			Help: "Total number of conversation turns sent to the backend",
		}),
		TurnFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_turn_failures_total",
			Help: "Total number of failed conversation turns",
		}),
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_sessions_started_total",
			Help: "Total number of sessions started",
		}),
		EnrichmentRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_enrichment_requests_total",
			Help: "Total number of image enrichment requests launched",
		}),
		EnrichmentSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_enrichment_successes_total",
			Help: "Total number of image enrichments that produced an image",
		}),
		EnrichmentFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_enrichment_failures_total",
			Help: "Total number of image enrichments that resolved without an image",
		}),
		PlaybackStarts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_playback_starts_total",
			Help: "Total number of voice playbacks started",
		}),
		PlaybackErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_playback_errors_total",
			Help: "Total number of decode or device errors during playback",
		}),
		SpeechSyntheses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_speech_syntheses_total",
			Help: "Total number of voice clips synthesized",
		}),
		Transcriptions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_transcriptions_total",
			Help: "Total number of capture payloads sent for transcription",
		}),
		PersistWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_persist_writes_total",
			Help: "Total number of session records written to durable storage",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_persist_failures_total",
			Help: "Total number of failed durable storage writes",
		}),
		PersistStale: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronos_persist_stale_discarded_total",
			Help: "Total number of stale persistence snapshots discarded",
		}),
	}
}
