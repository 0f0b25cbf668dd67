package services

import (
	"time"

	"github.com/davidkell/replay-audit/internal/models"
)

// TimingValidator checks whether a capture's signal fired before the close of
// the bar that justified it.
type TimingValidator struct {
	interval time.Duration
}

// NewTimingValidator creates a validator for the given bar interval.
func NewTimingValidator(interval time.Duration) *TimingValidator {
	return &TimingValidator{interval: interval}
}

// Interval returns the configured bar interval.
func (v *TimingValidator) Interval() time.Duration {
	return v.interval
}

// Validate produces the timing result for one capture. The last bar of the
// sorted sequence is the one the signal was generated from; its close
// deadline is the bar timestamp plus the interval. Bar age may be negative
// when the signal precedes the bar's own open; it is surfaced unclamped.
func (v *TimingValidator) Validate(c *models.Capture) models.TimingResult {
	lastBar := c.LastBar()
	deadline := lastBar.Timestamp.Add(v.interval)

	isPremature := c.SignalTimestamp.Before(deadline)
	secondsPremature := 0.0
	if isPremature {
		secondsPremature = deadline.Sub(c.SignalTimestamp).Seconds()
	}

	barAge := c.SignalTimestamp.Sub(lastBar.Timestamp).Seconds()

	return models.TimingResult{
		CaptureID:          c.ID,
		SourceFile:         c.SourceFile,
		Side:               c.Side,
		SignalTimestamp:    c.SignalTimestamp,
		BarTimestamp:       lastBar.Timestamp,
		BarCloseDeadline:   deadline,
		IsPremature:        isPremature,
		SecondsPrematureBy: secondsPremature,
		BarAgeSeconds:      barAge,
		IsYoungBar:         barAge < v.interval.Seconds(),
		BarOpen:            lastBar.Open,
		BarHigh:            lastBar.High,
		BarLow:             lastBar.Low,
		BarClose:           lastBar.Close,
		BarVolume:          lastBar.Volume,
		BarRange:           lastBar.Range(),
		NumBars:            len(c.Bars),
	}
}
