// Package pipeline orchestrates one full scoring run: ingest, score, fit the
// anomaly ensemble, classify, export, then the optional sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/anomaly"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/export"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/ingest"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/observability"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/scoring"
)

// Sink receives the full scored population after classification. The Kafka
// writer implements it; tests use stubs.
type Sink interface {
	Publish(ctx context.Context, scored []domain.ScoredFacility) error
}

// Persister saves the scored population to the run store.
type Persister interface {
	SaveRun(ctx context.Context, scored []domain.ScoredFacility) error
}

// Pipeline runs the batch scoring flow. Sinks and the persister are optional;
// nil disables them.
type Pipeline struct {
	table     *domain.ToxicityTable
	proximity *domain.ProximityEngine
	cfg       anomaly.Config

	sink      Sink
	persister Persister

	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New wires a pipeline from its reference data and optional sinks.
func New(table *domain.ToxicityTable, proximity *domain.ProximityEngine, cfg anomaly.Config,
	sink Sink, persister Persister, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		table:     table,
		proximity: proximity,
		cfg:       cfg,
		sink:      sink,
		persister: persister,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no completed run")
	}
	return nil
}

// Run executes one full pass: read the CSV from in, write the export document
// to out. The scored population is returned for callers that want it (the
// validate binary, tests). An empty dataset is a successful run with an empty
// document.
func (p *Pipeline) Run(ctx context.Context, in io.Reader, out io.Writer) ([]domain.ScoredFacility, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ingested, err := p.timedIngest(in)
	if err != nil {
		return nil, err
	}

	scored := p.timedScore(ingested.Facilities)
	p.timedClassify(scored)

	if err := p.timedExport(out, scored); err != nil {
		return nil, err
	}
	if err := p.runSinks(ctx, scored); err != nil {
		return nil, err
	}

	p.ready.Store(true)
	p.logSummary(ingested, scored)
	return scored, nil
}

func (p *Pipeline) timedIngest(in io.Reader) (ingest.Result, error) {
	defer p.observeStage("ingest")()

	result, err := ingest.Read(in, p.logger)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("ingest: %w", err)
	}
	p.metrics.RowsIngested.Add(float64(result.RowsRead))
	p.metrics.RowsSkipped.Add(float64(result.RowsSkipped))
	p.metrics.FacilitiesTotal.Set(float64(len(result.Facilities)))
	p.countUnknownChemicals(result.Facilities)
	return result, nil
}

func (p *Pipeline) timedScore(facilities []domain.Facility) []domain.ScoredFacility {
	defer p.observeStage("score")()

	normalizer := scoring.NewIndustryNormalizer(facilities, p.cfg.MinPeerGroup)
	scorer := scoring.NewScorer(p.table, p.proximity, normalizer)
	scored := scorer.ScoreAll(facilities)

	for _, f := range scored {
		if f.Unscored {
			p.metrics.FacilitiesUnscored.Inc()
		} else {
			p.metrics.FacilitiesScored.Inc()
		}
	}
	return scored
}

// timedClassify fits the ensemble over the complete scored population, then
// classifies each facility in place. Fitting before any classification is the
// barrier that keeps the detectors population-relative.
func (p *Pipeline) timedClassify(scored []domain.ScoredFacility) {
	fitDone := p.observeStage("fit")
	model := anomaly.Fit(scored, p.cfg)
	fitDone()

	defer p.observeStage("classify")()
	for i := range scored {
		v := model.Classify(scored[i])
		scored[i].Anomaly = v.Anomaly
		scored[i].AnomalyConfidence = v.Confidence
		scored[i].AnomalyVotes = sortedVotes(v.Votes)

		if v.Anomaly {
			p.metrics.AnomaliesFlagged.Inc()
		}
		for _, vote := range v.Votes {
			p.metrics.DetectorVotes.WithLabelValues(vote).Inc()
		}
	}
}

func (p *Pipeline) timedExport(out io.Writer, scored []domain.ScoredFacility) error {
	defer p.observeStage("export")()

	if err := export.Write(out, scored, p.table); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func (p *Pipeline) runSinks(ctx context.Context, scored []domain.ScoredFacility) error {
	if p.persister != nil {
		done := p.observeStage("store")
		err := p.persister.SaveRun(ctx, scored)
		done()
		if err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		p.metrics.RecordsStored.Add(float64(len(scored)))
	}

	if p.sink != nil {
		done := p.observeStage("publish")
		err := p.sink.Publish(ctx, scored)
		done()
		if err != nil {
			return fmt.Errorf("publish run: %w", err)
		}
		p.metrics.RecordsPublished.Add(float64(len(scored)))
	}
	return nil
}

func (p *Pipeline) countUnknownChemicals(facilities []domain.Facility) {
	unknown := p.table.DefaultEntry().ChemicalName
	for _, f := range facilities {
		for _, r := range f.Releases {
			if p.table.Lookup(r.ChemicalName).ChemicalName == unknown {
				p.metrics.UnknownChemicals.Inc()
				p.logger.Warn("unknown chemical, using default toxicity",
					"facility_id", f.ID, "chemical", r.ChemicalName)
			}
		}
	}
}

func (p *Pipeline) logSummary(ingested ingest.Result, scored []domain.ScoredFacility) {
	var anomalies, unscored int
	for _, f := range scored {
		if f.Anomaly {
			anomalies++
		}
		if f.Unscored {
			unscored++
		}
	}
	p.logger.Info("run complete",
		"rows_read", ingested.RowsRead,
		"rows_skipped", ingested.RowsSkipped,
		"facilities", len(scored),
		"unscored", unscored,
		"anomalies", anomalies,
	)
}

// observeStage returns a closure recording the stage duration when called.
func (p *Pipeline) observeStage(stage string) func() {
	start := time.Now()
	return func() {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func sortedVotes(votes []string) []string {
	out := append([]string(nil), votes...)
	sort.Strings(out)
	return out
}
