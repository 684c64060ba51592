package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the risk
// pipeline.
type Metrics struct {
	RowsIngested    prometheus.Counter
	RowsSkipped     prometheus.Counter
	FacilitiesTotal prometheus.Gauge

	FacilitiesScored   prometheus.Counter
	FacilitiesUnscored prometheus.Counter
	UnknownChemicals   prometheus.Counter
	AnomaliesFlagged   prometheus.Counter

	// Per-detector vote counts, label detector={global_outlier,
	// industry_outlier, extreme_risk, carcinogen_proximity}.
	DetectorVotes *prometheus.CounterVec

	// labels: stage={ingest,score,fit,classify,export,store,publish}
	StageDuration *prometheus.HistogramVec

	RecordsPublished prometheus.Counter
	RecordsStored    prometheus.Counter
	PipelineRunning  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemtrac",
			Name:      "rows_ingested_total",
			Help:      "Total CSV rows successfully ingested.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemtrac",
			Name:      "rows_skipped_total",
			Help:      "Total malformed CSV rows skipped.",
		}),
		FacilitiesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chemtrac",
			Name:      "facilities_total",
			Help:      "Distinct facilities in the last ingested dataset.",
		}),
		FacilitiesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemtrac",
			Name:      "facilities_scored_total",
			Help:      "Facilities that received a risk score.",
		}),
		FacilitiesUnscored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemtrac",
			Name:      "facilities_unscored_total",
			Help:      "Facilities left unscored for missing coordinates.",
		}),
		UnknownChemicals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemtrac",
			Name:      "unknown_chemicals_total",
			Help:      "Release lines resolved to the default toxicity entry.",
		}),
		AnomaliesFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemtrac",
			Name:      "anomalies_flagged_total",
			Help:      "Facilities classified anomalous by the ensemble.",
		}),
		DetectorVotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chemtrac",
			Name:      "detector_votes_total",
			Help:      "Anomaly detector votes by detector name.",
		}, []string{"detector"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chemtrac",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemtrac",
			Name:      "records_published_total",
			Help:      "Scored facility records published to the Kafka sink.",
		}),
		RecordsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemtrac",
			Name:      "records_stored_total",
			Help:      "Scored facility records persisted to the run store.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chemtrac",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.RowsIngested,
		m.RowsSkipped,
		m.FacilitiesTotal,
		m.FacilitiesScored,
		m.FacilitiesUnscored,
		m.UnknownChemicals,
		m.AnomaliesFlagged,
		m.DetectorVotes,
		m.StageDuration,
		m.RecordsPublished,
		m.RecordsStored,
		m.PipelineRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsIngested:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemtrac", Name: "rows_ingested_total"}),
		RowsSkipped:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemtrac", Name: "rows_skipped_total"}),
		FacilitiesTotal:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "chemtrac", Name: "facilities_total"}),
		FacilitiesScored:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemtrac", Name: "facilities_scored_total"}),
		FacilitiesUnscored: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemtrac", Name: "facilities_unscored_total"}),
		UnknownChemicals:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemtrac", Name: "unknown_chemicals_total"}),
		AnomaliesFlagged:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemtrac", Name: "anomalies_flagged_total"}),
		DetectorVotes:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "chemtrac", Name: "detector_votes_total"}, []string{"detector"}),
		StageDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "chemtrac", Name: "stage_duration_seconds"}, []string{"stage"}),
		RecordsPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemtrac", Name: "records_published_total"}),
		RecordsStored:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chemtrac", Name: "records_stored_total"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "chemtrac", Name: "pipeline_running"}),
	}
}
