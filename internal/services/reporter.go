package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/davidkell/replay-audit/internal/models"
)

// Reporter reduces per-capture timing results into the aggregate report. The
// accumulator is owned by the run that constructed the reporter; there is no
// process-wide state.
type Reporter struct {
	runID    string
	interval float64
	results  []models.TimingResult
}

// NewReporter creates a reporter for one audit run. An empty runID gets a
// fresh identifier.
func NewReporter(runID string, intervalSeconds float64) *Reporter {
	if runID == "" {
		runID = uuid.New().String()
	}
	return &Reporter{
		runID:    runID,
		interval: intervalSeconds,
	}
}

// RunID returns the identifier stamped on this run's artifacts.
func (r *Reporter) RunID() string {
	return r.runID
}

// Add records one timing result.
func (r *Reporter) Add(result models.TimingResult) {
	r.results = append(r.results, result)
}

// Results returns the accumulated timing results.
func (r *Reporter) Results() []models.TimingResult {
	return r.results
}

// Report reduces the accumulated results into the flat summary. Premature
// statistics are computed over the premature subset only; bar-age statistics
// over the full set. An empty input yields a zero-valued report, never a
// division by zero.
func (r *Reporter) Report() models.AggregateReport {
	report := models.AggregateReport{
		RunID:              r.runID,
		GeneratedAt:        time.Now().UTC(),
		BarIntervalSeconds: r.interval,
	}

	if len(r.results) == 0 {
		return report
	}

	var (
		sumPremature float64
		sumBarAge    float64
		minBarAge    = r.results[0].BarAgeSeconds
		maxBarAge    = r.results[0].BarAgeSeconds
	)

	for _, res := range r.results {
		if res.IsPremature {
			report.PrematureCount++
			sumPremature += res.SecondsPrematureBy
			if res.SecondsPrematureBy > report.MaxSecondsPremature {
				report.MaxSecondsPremature = res.SecondsPrematureBy
			}
		}
		if res.IsYoungBar {
			report.YoungBarCount++
		}
		sumBarAge += res.BarAgeSeconds
		if res.BarAgeSeconds < minBarAge {
			minBarAge = res.BarAgeSeconds
		}
		if res.BarAgeSeconds > maxBarAge {
			maxBarAge = res.BarAgeSeconds
		}
	}

	report.TotalCaptures = len(r.results)
	report.PrematurePercentage = float64(report.PrematureCount) / float64(report.TotalCaptures) * 100
	if report.PrematureCount > 0 {
		report.AvgSecondsPremature = sumPremature / float64(report.PrematureCount)
	}
	report.AvgBarAgeSeconds = sumBarAge / float64(report.TotalCaptures)
	report.MinBarAgeSeconds = minBarAge
	report.MaxBarAgeSeconds = maxBarAge

	return report
}

// WriteSummary serializes the aggregate report as JSON to the given path.
func (r *Reporter) WriteSummary(report models.AggregateReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary report: %w", err)
	}
	return nil
}

// WriteDetail writes the per-capture tabular dump mirroring every timing
// result field plus the raw bar OHLCV values.
func (r *Reporter) WriteDetail(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create detail file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	header := []string{
		"capture_id", "source_file", "side",
		"signal_timestamp", "bar_timestamp", "bar_close_deadline",
		"is_premature", "seconds_premature_by", "bar_age_seconds", "is_young_bar",
		"bar_open", "bar_high", "bar_low", "bar_close", "bar_volume", "bar_range",
		"num_bars",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write detail header: %w", err)
	}

	for _, res := range r.results {
		row := []string{
			res.CaptureID,
			res.SourceFile,
			string(res.Side),
			res.SignalTimestamp.Format(time.RFC3339),
			res.BarTimestamp.Format(time.RFC3339),
			res.BarCloseDeadline.Format(time.RFC3339),
			strconv.FormatBool(res.IsPremature),
			strconv.FormatFloat(res.SecondsPrematureBy, 'f', 1, 64),
			strconv.FormatFloat(res.BarAgeSeconds, 'f', 1, 64),
			strconv.FormatBool(res.IsYoungBar),
			res.BarOpen.String(),
			res.BarHigh.String(),
			res.BarLow.String(),
			res.BarClose.String(),
			res.BarVolume.String(),
			res.BarRange.String(),
			strconv.Itoa(res.NumBars),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write detail row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush detail file: %w", err)
	}
	return nil
}
