package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimingResult is the per-capture outcome of timing validation. Numeric fields
// are passed through unclamped: BarAgeSeconds may be negative when the signal
// timestamp precedes the bar's own open, which is itself a diagnostic.
type TimingResult struct {
	CaptureID          string          `json:"capture_id"`
	SourceFile         string          `json:"source_file"`
	Side               Side            `json:"side"`
	SignalTimestamp    time.Time       `json:"signal_timestamp"`
	BarTimestamp       time.Time       `json:"bar_timestamp"`
	BarCloseDeadline   time.Time       `json:"bar_close_deadline"`
	IsPremature        bool            `json:"is_premature"`
	SecondsPrematureBy float64         `json:"seconds_premature_by"`
	BarAgeSeconds      float64         `json:"bar_age_seconds"`
	IsYoungBar         bool            `json:"is_young_bar"`
	BarOpen            decimal.Decimal `json:"bar_open"`
	BarHigh            decimal.Decimal `json:"bar_high"`
	BarLow             decimal.Decimal `json:"bar_low"`
	BarClose           decimal.Decimal `json:"bar_close"`
	BarVolume          decimal.Decimal `json:"bar_volume"`
	BarRange           decimal.Decimal `json:"bar_range"`
	NumBars            int             `json:"num_bars"`
}

// AggregateReport is the flat summary written back to durable storage. Every
// field is always populated so downstream consumers never need conditional
// field-presence handling.
type AggregateReport struct {
	RunID               string    `json:"run_id"`
	GeneratedAt         time.Time `json:"generated_at"`
	TotalCaptures       int       `json:"total_captures"`
	PrematureCount      int       `json:"premature_count"`
	PrematurePercentage float64   `json:"premature_percentage"`
	AvgSecondsPremature float64   `json:"avg_seconds_premature"`
	MaxSecondsPremature float64   `json:"max_seconds_premature"`
	YoungBarCount       int       `json:"young_bar_count"`
	AvgBarAgeSeconds    float64   `json:"avg_bar_age_seconds"`
	MinBarAgeSeconds    float64   `json:"min_bar_age_seconds"`
	MaxBarAgeSeconds    float64   `json:"max_bar_age_seconds"`
	BarIntervalSeconds  float64   `json:"bar_interval_seconds"`
}
