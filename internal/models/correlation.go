package models

import "time"

// UnmatchedCause classifies why a trade has no corresponding capture.
type UnmatchedCause string

const (
	// CauseUnclassified is the state before reconciliation has run.
	CauseUnclassified UnmatchedCause = "unclassified"
	// CauseEvicted means the capture plausibly existed but fell off the end
	// of the FIFO retention window.
	CauseEvicted UnmatchedCause = "plausibly_evicted"
	// CauseNeverCaptured means the trade falls inside the retained window yet
	// has no capture, which indicates a real pipeline defect.
	CauseNeverCaptured UnmatchedCause = "never_captured"
)

// MatchedTrade pairs a journal trade with the capture that recorded it.
type MatchedTrade struct {
	Trade        TradeEvent `json:"trade"`
	Capture      *Capture   `json:"capture"`
	DeltaSeconds float64    `json:"delta_seconds"`
}

// UnmatchedTrade is a journal trade with no capture inside the tolerance
// window. Cause is annotated by the reconciler, never by the correlator.
type UnmatchedTrade struct {
	Trade TradeEvent     `json:"trade"`
	Cause UnmatchedCause `json:"cause"`
}

// CorrelationResult holds the full partition produced by one correlator run.
// A single capture may appear in more than one match unless exclusive
// assignment was enabled.
type CorrelationResult struct {
	Matched           []MatchedTrade   `json:"matched"`
	UnmatchedTrades   []UnmatchedTrade `json:"unmatched_trades"`
	UnmatchedCaptures []*Capture       `json:"unmatched_captures"`
	ToleranceSeconds  float64          `json:"tolerance_seconds"`
	Exclusive         bool             `json:"exclusive"`
}

// DateCount is one bucket of the per-UTC-date distribution of trades or
// captures, used by the correlation report.
type DateCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}
