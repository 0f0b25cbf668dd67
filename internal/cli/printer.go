package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/davidkell/replay-audit/internal/models"
	"github.com/davidkell/replay-audit/internal/services"
)

const bandWidth = 70

func band(w io.Writer, c string) {
	fmt.Fprintln(w, strings.Repeat(c, bandWidth))
}

// printTimingReport renders the human-readable timing summary, including the
// premature and young-bar warning listings.
func printTimingReport(w io.Writer, s *services.RunSummary) {
	r := s.Report

	fmt.Fprintln(w)
	band(w, "=")
	fmt.Fprintln(w, "CAPTURE TIMING AUDIT")
	band(w, "=")
	fmt.Fprintf(w, "Total captures analyzed: %d\n", r.TotalCaptures)
	fmt.Fprintln(w, "\nCandle Completion Issues:")
	fmt.Fprintf(w, "  Premature signals (before candle close): %d (%.1f%%)\n", r.PrematureCount, r.PrematurePercentage)
	if r.PrematureCount > 0 {
		fmt.Fprintf(w, "  Average seconds before completion: %.1fs\n", r.AvgSecondsPremature)
		fmt.Fprintf(w, "  Maximum seconds before completion: %.1fs\n", r.MaxSecondsPremature)
	}
	fmt.Fprintln(w, "\nBar Age Statistics:")
	fmt.Fprintf(w, "  Average bar age at signal: %.1fs\n", r.AvgBarAgeSeconds)
	fmt.Fprintf(w, "  Minimum bar age at signal: %.1fs\n", r.MinBarAgeSeconds)
	fmt.Fprintf(w, "  Maximum bar age at signal: %.1fs\n", r.MaxBarAgeSeconds)
	fmt.Fprintf(w, "  Bar interval: %.0fs\n", r.BarIntervalSeconds)
	band(w, "=")

	var premature, young []models.TimingResult
	for _, res := range s.Timing {
		if res.IsPremature {
			premature = append(premature, res)
		}
		if res.IsYoungBar {
			young = append(young, res)
		}
	}

	if len(premature) > 0 {
		fmt.Fprintln(w, "\nWARNING: CAPTURES WITH PREMATURE SIGNALS:")
		band(w, "-")
		for _, res := range premature {
			fmt.Fprintf(w, "  %s\n", res.SourceFile)
			fmt.Fprintf(w, "    Signal: %s\n", res.SignalTimestamp.Format(time.RFC3339))
			fmt.Fprintf(w, "    Bar: %s (ends at %s)\n", res.BarTimestamp.Format(time.RFC3339), res.BarCloseDeadline.Format(time.RFC3339))
			fmt.Fprintf(w, "    %.1fs before completion\n\n", res.SecondsPrematureBy)
		}
	}

	if len(young) > 0 {
		fmt.Fprintln(w, "\nWARNING: CAPTURES WITH BARS YOUNGER THAN INTERVAL:")
		band(w, "-")
		for _, res := range young {
			fmt.Fprintf(w, "  %s\n", res.SourceFile)
			fmt.Fprintf(w, "    Bar age at signal: %.1fs (interval: %.0fs)\n\n", res.BarAgeSeconds, r.BarIntervalSeconds)
		}
	}
}

// printCorrelationReport renders the trade/capture matching summary, the
// reconciliation cause breakdown and the per-date distributions.
func printCorrelationReport(w io.Writer, s *services.RunSummary) {
	c := s.Correlation

	fmt.Fprintln(w)
	band(w, "=")
	fmt.Fprintln(w, "TRADE / CAPTURE CORRELATION")
	band(w, "=")
	fmt.Fprintf(w, "Matched: %d trades have captures\n", len(c.Matched))
	fmt.Fprintf(w, "Unmatched trades: %d trades missing captures\n", len(c.UnmatchedTrades))
	fmt.Fprintf(w, "Unmatched captures: %d captures without trades\n", len(c.UnmatchedCaptures))

	if len(c.Matched) > 0 {
		fmt.Fprintln(w, "\nSample matches:")
		for _, m := range sampleMatches(c.Matched, 3) {
			fmt.Fprintf(w, "  Trade: %s (%s)\n", m.Trade.Timestamp.Format(time.RFC3339), m.Trade.Side)
			fmt.Fprintf(w, "  Capture: %s (diff: %.0fs)\n\n", m.Capture.SourceFile, m.DeltaSeconds)
		}
	}

	if len(c.UnmatchedTrades) > 0 {
		evicted, missing := 0, 0
		for _, u := range c.UnmatchedTrades {
			switch u.Cause {
			case models.CauseEvicted:
				evicted++
			case models.CauseNeverCaptured:
				missing++
			}
		}
		fmt.Fprintln(w, "\nUnmatched trade causes:")
		fmt.Fprintf(w, "  Plausibly evicted by retention: %d\n", evicted)
		fmt.Fprintf(w, "  Never captured (pipeline defect): %d\n", missing)
	}

	if len(s.TradeDates) > 0 {
		fmt.Fprintln(w, "\nDate distribution of trades:")
		for _, dc := range s.TradeDates {
			fmt.Fprintf(w, "  %s: %d trades\n", dc.Date.Format("2006-01-02"), dc.Count)
		}
	}
	if len(s.CaptureDates) > 0 {
		fmt.Fprintln(w, "\nDate distribution of captures:")
		for _, dc := range s.CaptureDates {
			fmt.Fprintf(w, "  %s: %d captures\n", dc.Date.Format("2006-01-02"), dc.Count)
		}
	}
}

func sampleMatches(matched []models.MatchedTrade, n int) []models.MatchedTrade {
	if len(matched) <= n {
		return matched
	}
	return matched[:n]
}
