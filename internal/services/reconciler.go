package services

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidkell/replay-audit/internal/models"
)

// Reconciler interprets unmatched trades in light of the capture pipeline's
// bounded FIFO retention: once the living set reaches the cap, the oldest
// captures are evicted. It only annotates causes; nothing is mutated beyond
// the Cause field of each unmatched trade.
type Reconciler struct {
	retentionCap int
	logger       *logrus.Logger
}

// NewReconciler creates a reconciler for the configured retention cap.
func NewReconciler(retentionCap int, logger *logrus.Logger) *Reconciler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reconciler{retentionCap: retentionCap, logger: logger}
}

// Reconcile classifies every unmatched trade as plausibly evicted or never
// captured. Eviction is only plausible when the retained set has actually
// reached the cap; below the cap nothing was ever deleted, so every
// unmatched trade is a genuine capture gap.
func (r *Reconciler) Reconcile(result *models.CorrelationResult, captures []*models.Capture) {
	evictionPossible := len(captures) >= r.retentionCap

	oldestBySide := make(map[models.Side]time.Time)
	var oldestOverall time.Time
	for _, c := range captures {
		if ts, ok := oldestBySide[c.Side]; !ok || c.SignalTimestamp.Before(ts) {
			oldestBySide[c.Side] = c.SignalTimestamp
		}
		if oldestOverall.IsZero() || c.SignalTimestamp.Before(oldestOverall) {
			oldestOverall = c.SignalTimestamp
		}
	}

	evicted := 0
	for i := range result.UnmatchedTrades {
		trade := &result.UnmatchedTrades[i]
		trade.Cause = models.CauseNeverCaptured

		if !evictionPossible {
			continue
		}
		// Compare against the oldest retained capture of the trade's side;
		// a side with no retained captures falls back to the oldest capture
		// overall.
		oldest, ok := oldestBySide[trade.Trade.Side]
		if !ok {
			oldest = oldestOverall
		}
		if trade.Trade.Timestamp.Before(oldest) {
			trade.Cause = models.CauseEvicted
			evicted++
		}
	}

	r.logger.WithFields(logrus.Fields{
		"retention_cap":     r.retentionCap,
		"retained":          len(captures),
		"eviction_possible": evictionPossible,
		"plausibly_evicted": evicted,
		"never_captured":    len(result.UnmatchedTrades) - evicted,
	}).Info("Reconciliation complete")
}
