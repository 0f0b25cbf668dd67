package services

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/davidkell/replay-audit/internal/capture"
	"github.com/davidkell/replay-audit/internal/config"
	"github.com/davidkell/replay-audit/internal/journal"
	"github.com/davidkell/replay-audit/internal/models"
)

// ReportStore persists the aggregate report to durable storage.
type ReportStore interface {
	SaveReport(ctx context.Context, report models.AggregateReport) error
}

// RunSummary is everything one audit run produced.
type RunSummary struct {
	RunID        string
	Report       models.AggregateReport
	Timing       []models.TimingResult
	Correlation  models.CorrelationResult
	TradeDates   []models.DateCount
	CaptureDates []models.DateCount
}

// Auditor orchestrates a full audit run: load captures, validate timing,
// aggregate, correlate against the trade journal, reconcile retention, and
// write the output artifacts. Each run owns its own accumulator state.
type Auditor struct {
	cfg       *config.Config
	loader    *capture.Loader
	journal   *journal.Reader
	validator *TimingValidator
	store     ReportStore
	logger    *logrus.Logger
}

// NewAuditor wires an auditor from configuration. store may be nil when no
// durable report storage is configured.
func NewAuditor(cfg *config.Config, store ReportStore, logger *logrus.Logger) *Auditor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Auditor{
		cfg:       cfg,
		loader:    capture.NewLoader(cfg.Capture, logger),
		journal:   journal.NewReader(cfg.Journal.Path, logger),
		validator: NewTimingValidator(cfg.Capture.BarInterval()),
		store:     store,
		logger:    logger,
	}
}

// Run executes the full audit under the given run identifier. Individual
// malformed records never abort the run; only configuration-level failures
// (unreadable root, broken output path, failing report store) surface as
// errors.
func (a *Auditor) Run(ctx context.Context, runID string) (*RunSummary, error) {
	captures, results, err := a.loadAndValidate()
	if err != nil {
		return nil, err
	}

	reporter := NewReporter(runID, a.validator.Interval().Seconds())
	for _, res := range results {
		reporter.Add(res)
	}
	report := reporter.Report()

	trades, err := a.journal.ReadAll()
	if err != nil {
		return nil, err
	}

	correlator := NewCorrelator(a.cfg.Correlation.Tolerance(), a.cfg.Correlation.Exclusive, a.logger)
	correlation := correlator.Correlate(trades, captures)

	reconciler := NewReconciler(a.cfg.Correlation.RetentionCap, a.logger)
	reconciler.Reconcile(&correlation, captures)

	summaryPath := filepath.Join(a.cfg.Output.Directory, a.cfg.Output.SummaryFile)
	if err := reporter.WriteSummary(report, summaryPath); err != nil {
		return nil, err
	}
	detailPath := filepath.Join(a.cfg.Output.Directory, a.cfg.Output.DetailFile)
	if err := reporter.WriteDetail(detailPath); err != nil {
		return nil, err
	}

	if a.store != nil {
		if err := a.store.SaveReport(ctx, report); err != nil {
			return nil, err
		}
	}

	a.logger.WithFields(logrus.Fields{
		"run_id":           report.RunID,
		"total_captures":   report.TotalCaptures,
		"premature":        report.PrematureCount,
		"young_bars":       report.YoungBarCount,
		"matched_trades":   len(correlation.Matched),
		"unmatched":        len(correlation.UnmatchedTrades),
		"summary_artifact": summaryPath,
	}).Info("Audit run complete")

	return &RunSummary{
		RunID:        report.RunID,
		Report:       report,
		Timing:       reporter.Results(),
		Correlation:  correlation,
		TradeDates:   TradeDateDistribution(trades),
		CaptureDates: CaptureDateDistribution(captures),
	}, nil
}

// loadAndValidate fans capture files out over a bounded worker pool. Loading
// and validation are independent per capture; results are re-sorted by
// (signal timestamp, id) afterwards so the correlator's tie-break stays
// deterministic regardless of worker interleaving.
func (a *Auditor) loadAndValidate() ([]*models.Capture, []models.TimingResult, error) {
	files, err := a.loader.Files()
	if err != nil {
		return nil, nil, err
	}

	type loaded struct {
		capture *models.Capture
		result  models.TimingResult
	}

	jobs := make(chan string)
	out := make(chan loaded)

	workers := a.cfg.Capture.Workers
	if workers > len(files) && len(files) > 0 {
		workers = len(files)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				c, err := a.loader.LoadFile(file)
				if err != nil {
					a.logger.WithFields(logrus.Fields{
						"file":   file,
						"reason": err.Error(),
					}).Warn("Skipping capture file")
					continue
				}
				out <- loaded{capture: c, result: a.validator.Validate(c)}
			}
		}()
	}

	go func() {
		for _, file := range files {
			jobs <- file
		}
		close(jobs)
		wg.Wait()
		close(out)
	}()

	var (
		captures []*models.Capture
		results  []models.TimingResult
	)
	for item := range out {
		captures = append(captures, item.capture)
		results = append(results, item.result)
	}

	sort.SliceStable(captures, func(i, j int) bool {
		if !captures[i].SignalTimestamp.Equal(captures[j].SignalTimestamp) {
			return captures[i].SignalTimestamp.Before(captures[j].SignalTimestamp)
		}
		return captures[i].ID < captures[j].ID
	})
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].SignalTimestamp.Equal(results[j].SignalTimestamp) {
			return results[i].SignalTimestamp.Before(results[j].SignalTimestamp)
		}
		return results[i].CaptureID < results[j].CaptureID
	})

	a.logger.WithFields(logrus.Fields{
		"found":  len(files),
		"loaded": len(captures),
	}).Info("Capture loading complete")

	return captures, results, nil
}
