package services

import (
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidkell/replay-audit/internal/models"
)

// Correlator matches journal trades against captures by side and timestamp
// proximity. Candidate captures are always enumerated in stable
// (signal timestamp, id) order, so equidistant ties resolve deterministically
// to the earlier capture.
type Correlator struct {
	tolerance time.Duration
	exclusive bool
	logger    *logrus.Logger
}

// NewCorrelator creates a correlator with the given tolerance window. When
// exclusive is true a capture can be claimed by at most one trade, assigned
// by greedy global minimum distance; otherwise each trade matches
// independently and one capture may be selected by several trades.
func NewCorrelator(tolerance time.Duration, exclusive bool, logger *logrus.Logger) *Correlator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Correlator{tolerance: tolerance, exclusive: exclusive, logger: logger}
}

// Correlate produces an outcome for every trade and marks every capture as
// matched or not. The inputs are not mutated.
func (c *Correlator) Correlate(trades []models.TradeEvent, captures []*models.Capture) models.CorrelationResult {
	result := models.CorrelationResult{
		Matched:           make([]models.MatchedTrade, 0),
		UnmatchedTrades:   make([]models.UnmatchedTrade, 0),
		UnmatchedCaptures: make([]*models.Capture, 0),
		ToleranceSeconds:  c.tolerance.Seconds(),
		Exclusive:         c.exclusive,
	}

	ordered := orderCaptures(captures)

	if c.exclusive {
		c.correlateExclusive(trades, ordered, &result)
	} else {
		c.correlateIndependent(trades, ordered, &result)
	}

	c.logger.WithFields(logrus.Fields{
		"trades":             len(trades),
		"captures":           len(captures),
		"matched":            len(result.Matched),
		"unmatched_trades":   len(result.UnmatchedTrades),
		"unmatched_captures": len(result.UnmatchedCaptures),
		"exclusive":          c.exclusive,
	}).Info("Correlation complete")

	return result
}

// correlateIndependent resolves each trade on its own: nearest same-side
// capture wins if strictly inside the tolerance window.
func (c *Correlator) correlateIndependent(trades []models.TradeEvent, captures []*models.Capture, result *models.CorrelationResult) {
	selected := make(map[string]bool, len(captures))

	for _, trade := range trades {
		var best *models.Capture
		bestDelta := math.Inf(1)

		for _, capture := range captures {
			if capture.Side != trade.Side {
				continue
			}
			delta := math.Abs(capture.SignalTimestamp.Sub(trade.Timestamp).Seconds())
			if delta >= c.tolerance.Seconds() {
				continue
			}
			// Strict less-than keeps the first capture in enumeration
			// order on an equidistant tie.
			if delta < bestDelta {
				bestDelta = delta
				best = capture
			}
		}

		if best == nil {
			result.UnmatchedTrades = append(result.UnmatchedTrades, models.UnmatchedTrade{
				Trade: trade,
				Cause: models.CauseUnclassified,
			})
			continue
		}

		selected[best.ID] = true
		result.Matched = append(result.Matched, models.MatchedTrade{
			Trade:        trade,
			Capture:      best,
			DeltaSeconds: bestDelta,
		})
	}

	for _, capture := range captures {
		if !selected[capture.ID] {
			result.UnmatchedCaptures = append(result.UnmatchedCaptures, capture)
		}
	}
}

// candidatePair is one admissible trade/capture pairing considered by the
// exclusive assignment.
type candidatePair struct {
	tradeIdx   int
	captureIdx int
	delta      float64
}

// correlateExclusive enforces one-to-one matching: all admissible pairs are
// ranked by distance and assigned greedily, smallest delta first.
func (c *Correlator) correlateExclusive(trades []models.TradeEvent, captures []*models.Capture, result *models.CorrelationResult) {
	var pairs []candidatePair
	for ti, trade := range trades {
		for ci, capture := range captures {
			if capture.Side != trade.Side {
				continue
			}
			delta := math.Abs(capture.SignalTimestamp.Sub(trade.Timestamp).Seconds())
			if delta >= c.tolerance.Seconds() {
				continue
			}
			pairs = append(pairs, candidatePair{tradeIdx: ti, captureIdx: ci, delta: delta})
		}
	}

	// Equal deltas fall back to trade order, then capture order, keeping
	// the assignment deterministic.
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].delta != pairs[j].delta {
			return pairs[i].delta < pairs[j].delta
		}
		if pairs[i].tradeIdx != pairs[j].tradeIdx {
			return pairs[i].tradeIdx < pairs[j].tradeIdx
		}
		return pairs[i].captureIdx < pairs[j].captureIdx
	})

	tradeTaken := make([]bool, len(trades))
	captureTaken := make([]bool, len(captures))
	matchByTrade := make(map[int]models.MatchedTrade, len(trades))

	for _, pair := range pairs {
		if tradeTaken[pair.tradeIdx] || captureTaken[pair.captureIdx] {
			continue
		}
		tradeTaken[pair.tradeIdx] = true
		captureTaken[pair.captureIdx] = true
		matchByTrade[pair.tradeIdx] = models.MatchedTrade{
			Trade:        trades[pair.tradeIdx],
			Capture:      captures[pair.captureIdx],
			DeltaSeconds: pair.delta,
		}
	}

	for ti, trade := range trades {
		if match, ok := matchByTrade[ti]; ok {
			result.Matched = append(result.Matched, match)
		} else {
			result.UnmatchedTrades = append(result.UnmatchedTrades, models.UnmatchedTrade{
				Trade: trade,
				Cause: models.CauseUnclassified,
			})
		}
	}
	for ci, capture := range captures {
		if !captureTaken[ci] {
			result.UnmatchedCaptures = append(result.UnmatchedCaptures, capture)
		}
	}
}

// orderCaptures returns a copy sorted by (signal timestamp, id). The stable
// enumeration order is what pins the tie-break.
func orderCaptures(captures []*models.Capture) []*models.Capture {
	ordered := make([]*models.Capture, len(captures))
	copy(ordered, captures)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].SignalTimestamp.Equal(ordered[j].SignalTimestamp) {
			return ordered[i].SignalTimestamp.Before(ordered[j].SignalTimestamp)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// TradeDateDistribution counts trades per UTC date, ascending.
func TradeDateDistribution(trades []models.TradeEvent) []models.DateCount {
	buckets := make(map[time.Time]int)
	for _, t := range trades {
		buckets[truncateToDate(t.Timestamp)]++
	}
	return sortDateCounts(buckets)
}

// CaptureDateDistribution counts captures per UTC date, ascending.
func CaptureDateDistribution(captures []*models.Capture) []models.DateCount {
	buckets := make(map[time.Time]int)
	for _, c := range captures {
		buckets[truncateToDate(c.SignalTimestamp)]++
	}
	return sortDateCounts(buckets)
}

func truncateToDate(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

func sortDateCounts(buckets map[time.Time]int) []models.DateCount {
	counts := make([]models.DateCount, 0, len(buckets))
	for date, n := range buckets {
		counts = append(counts, models.DateCount{Date: date, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Date.Before(counts[j].Date)
	})
	return counts
}
