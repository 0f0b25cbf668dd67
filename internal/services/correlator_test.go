package services

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidkell/replay-audit/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testCapture(ts time.Time, side models.Side) *models.Capture {
	return &models.Capture{
		ID:              ts.Format("20060102_150405") + "_" + string(side),
		SignalTimestamp: ts,
		Side:            side,
		SourceFile:      "replay_" + ts.Format("20060102_150405") + "_" + string(side) + ".csv",
		Bars:            []models.Bar{{Timestamp: ts.Add(-3 * time.Minute)}},
	}
}

func testTrade(ts time.Time, side models.Side) models.TradeEvent {
	return models.TradeEvent{Timestamp: ts, Side: side}
}

func TestCorrelateNearestWithinTolerance(t *testing.T) {
	// Trade at 09:05:10 against a lone candidate at 09:05:00: matched with
	// a 10s delta.
	capture := testCapture(time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC), models.SideLong)
	trade := testTrade(time.Date(2026, 1, 1, 9, 5, 10, 0, time.UTC), models.SideLong)

	c := NewCorrelator(300*time.Second, false, quietLogger())
	result := c.Correlate([]models.TradeEvent{trade}, []*models.Capture{capture})

	require.Len(t, result.Matched, 1)
	assert.Equal(t, capture.ID, result.Matched[0].Capture.ID)
	assert.Equal(t, 10.0, result.Matched[0].DeltaSeconds)
	assert.Empty(t, result.UnmatchedTrades)
	assert.Empty(t, result.UnmatchedCaptures)
}

func TestCorrelateNoCandidateWithinTolerance(t *testing.T) {
	capture := testCapture(time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC), models.SideLong)
	trade := testTrade(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), models.SideLong)

	c := NewCorrelator(300*time.Second, false, quietLogger())
	result := c.Correlate([]models.TradeEvent{trade}, []*models.Capture{capture})

	assert.Empty(t, result.Matched)
	require.Len(t, result.UnmatchedTrades, 1)
	assert.Equal(t, models.CauseUnclassified, result.UnmatchedTrades[0].Cause)
	require.Len(t, result.UnmatchedCaptures, 1)
}

func TestCorrelateToleranceIsStrict(t *testing.T) {
	// A delta of exactly the tolerance window is rejected.
	capture := testCapture(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), models.SideLong)
	trade := testTrade(time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC), models.SideLong)

	c := NewCorrelator(300*time.Second, false, quietLogger())
	result := c.Correlate([]models.TradeEvent{trade}, []*models.Capture{capture})

	assert.Empty(t, result.Matched)
	assert.Len(t, result.UnmatchedTrades, 1)
}

func TestCorrelateSideMustMatch(t *testing.T) {
	capture := testCapture(time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC), models.SideShort)
	trade := testTrade(time.Date(2026, 1, 1, 9, 5, 10, 0, time.UTC), models.SideLong)

	c := NewCorrelator(300*time.Second, false, quietLogger())
	result := c.Correlate([]models.TradeEvent{trade}, []*models.Capture{capture})

	assert.Empty(t, result.Matched)
	assert.Len(t, result.UnmatchedTrades, 1)
	assert.Len(t, result.UnmatchedCaptures, 1)
}

func TestCorrelateEquidistantTieBreak(t *testing.T) {
	// Two candidates 30s on either side of the trade. The earlier capture
	// wins because candidates are enumerated in (timestamp, id) order.
	earlier := testCapture(time.Date(2026, 1, 1, 9, 4, 30, 0, time.UTC), models.SideLong)
	later := testCapture(time.Date(2026, 1, 1, 9, 5, 30, 0, time.UTC), models.SideLong)
	trade := testTrade(time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC), models.SideLong)

	c := NewCorrelator(300*time.Second, false, quietLogger())

	// Input order must not affect the outcome.
	for _, captures := range [][]*models.Capture{
		{earlier, later},
		{later, earlier},
	} {
		result := c.Correlate([]models.TradeEvent{trade}, captures)
		require.Len(t, result.Matched, 1)
		assert.Equal(t, earlier.ID, result.Matched[0].Capture.ID)
	}
}

func TestCorrelateOneCaptureManyTrades(t *testing.T) {
	// Independent per-trade matching allows one capture to be claimed by
	// several trades.
	capture := testCapture(time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC), models.SideLong)
	trades := []models.TradeEvent{
		testTrade(time.Date(2026, 1, 1, 9, 5, 10, 0, time.UTC), models.SideLong),
		testTrade(time.Date(2026, 1, 1, 9, 6, 0, 0, time.UTC), models.SideLong),
	}

	c := NewCorrelator(300*time.Second, false, quietLogger())
	result := c.Correlate(trades, []*models.Capture{capture})

	assert.Len(t, result.Matched, 2)
	assert.Empty(t, result.UnmatchedCaptures)
}

func TestCorrelateExclusiveOneToOne(t *testing.T) {
	// Exclusive mode assigns the capture to the closest trade only.
	capture := testCapture(time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC), models.SideLong)
	trades := []models.TradeEvent{
		testTrade(time.Date(2026, 1, 1, 9, 6, 0, 0, time.UTC), models.SideLong),
		testTrade(time.Date(2026, 1, 1, 9, 5, 10, 0, time.UTC), models.SideLong),
	}

	c := NewCorrelator(300*time.Second, true, quietLogger())
	result := c.Correlate(trades, []*models.Capture{capture})

	require.Len(t, result.Matched, 1)
	assert.Equal(t, 10.0, result.Matched[0].DeltaSeconds)
	require.Len(t, result.UnmatchedTrades, 1)
	assert.Equal(t, time.Date(2026, 1, 1, 9, 6, 0, 0, time.UTC), result.UnmatchedTrades[0].Trade.Timestamp)
}

func TestCorrelateExclusiveGlobalMinimum(t *testing.T) {
	// Two trades, two captures: greedy global assignment gives each trade
	// its own capture even though both trades are nearest to the same one.
	c1 := testCapture(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), models.SideLong)
	c2 := testCapture(time.Date(2026, 1, 1, 9, 4, 0, 0, time.UTC), models.SideLong)
	trades := []models.TradeEvent{
		testTrade(time.Date(2026, 1, 1, 9, 3, 0, 0, time.UTC), models.SideLong),
		testTrade(time.Date(2026, 1, 1, 9, 4, 30, 0, time.UTC), models.SideLong),
	}

	c := NewCorrelator(300*time.Second, true, quietLogger())
	result := c.Correlate(trades, []*models.Capture{c1, c2})

	require.Len(t, result.Matched, 2)
	byTrade := map[time.Time]string{}
	for _, m := range result.Matched {
		byTrade[m.Trade.Timestamp] = m.Capture.ID
	}
	// 09:04:30 takes the 09:04 capture (30s); 09:03 falls back to 09:00.
	assert.Equal(t, c2.ID, byTrade[time.Date(2026, 1, 1, 9, 4, 30, 0, time.UTC)])
	assert.Equal(t, c1.ID, byTrade[time.Date(2026, 1, 1, 9, 3, 0, 0, time.UTC)])
}

func TestCorrelateIdempotent(t *testing.T) {
	captures := []*models.Capture{
		testCapture(time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC), models.SideLong),
		testCapture(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), models.SideShort),
		testCapture(time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC), models.SideLong),
	}
	trades := []models.TradeEvent{
		testTrade(time.Date(2026, 1, 1, 9, 5, 10, 0, time.UTC), models.SideLong),
		testTrade(time.Date(2026, 1, 1, 10, 1, 0, 0, time.UTC), models.SideShort),
		testTrade(time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC), models.SideLong),
	}

	c := NewCorrelator(300*time.Second, false, quietLogger())
	first := c.Correlate(trades, captures)
	second := c.Correlate(trades, captures)

	assert.Equal(t, first, second)
}

func TestDateDistributions(t *testing.T) {
	trades := []models.TradeEvent{
		testTrade(time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC), models.SideLong),
		testTrade(time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC), models.SideShort),
		testTrade(time.Date(2026, 1, 2, 9, 5, 0, 0, time.UTC), models.SideLong),
	}
	captures := []*models.Capture{
		testCapture(time.Date(2026, 1, 2, 9, 5, 0, 0, time.UTC), models.SideLong),
	}

	tradeDates := TradeDateDistribution(trades)
	require.Len(t, tradeDates, 2)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), tradeDates[0].Date)
	assert.Equal(t, 2, tradeDates[0].Count)
	assert.Equal(t, 1, tradeDates[1].Count)

	captureDates := CaptureDateDistribution(captures)
	require.Len(t, captureDates, 1)
	assert.Equal(t, 1, captureDates[0].Count)
}
