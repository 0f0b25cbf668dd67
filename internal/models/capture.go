package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies the direction of a signal or trade.
type Side string

const (
	SideLong    Side = "long"
	SideShort   Side = "short"
	SideUnknown Side = "unknown"
)

// ParseSide normalizes a raw side token. Anything that is not a recognized
// direction maps to SideUnknown rather than failing.
func ParseSide(raw string) Side {
	switch raw {
	case "long", "LONG", "Long", "buy", "BUY":
		return SideLong
	case "short", "SHORT", "Short", "sell", "SELL":
		return SideShort
	default:
		return SideUnknown
	}
}

// Bar represents one OHLCV-aggregated market interval.
type Bar struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Range returns high minus low.
func (b Bar) Range() decimal.Decimal {
	return b.High.Sub(b.Low)
}

// Capture is a recorded bar sequence plus the signal metadata embedded in the
// capture file's name. Bars are sorted ascending by timestamp with duplicate
// timestamps removed; the sequence is never empty for a loaded capture.
type Capture struct {
	ID              string    `json:"id"`
	SignalTimestamp time.Time `json:"signal_timestamp"`
	Side            Side      `json:"side"`
	Bars            []Bar     `json:"bars,omitempty"`
	SourceFile      string    `json:"source_file"`
}

// LastBar returns the final (most recent) bar of the capture.
func (c *Capture) LastBar() Bar {
	return c.Bars[len(c.Bars)-1]
}

// CaptureKey is the decomposed form of a capture filename,
// prefix_YYYYMMDD_HHMMSS_side.ext. Timezone-naive date/time tokens are
// interpreted as UTC.
type CaptureKey struct {
	Prefix          string
	SignalTimestamp time.Time
	Side            Side
}

// ID derives the capture identifier from the date/time/side triplet.
func (k CaptureKey) ID() string {
	return k.SignalTimestamp.UTC().Format("20060102_150405") + "_" + string(k.Side)
}
