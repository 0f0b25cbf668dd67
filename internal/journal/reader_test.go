package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidkell/replay-audit/internal/models"
)

func testReader(t *testing.T, content string) *Reader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trade_journal.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewReader(path, logger)
}

func TestReadAll(t *testing.T) {
	reader := testReader(t,
		`{"timestamp":"2026-01-01T09:05:10Z","side":"long","entry":2045.0}`+"\n"+
			`{"timestamp":"2026-01-01 10:15:00","side":"SHORT","entry":2050.5}`+"\n")

	events, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, time.Date(2026, 1, 1, 9, 5, 10, 0, time.UTC), events[0].Timestamp)
	assert.Equal(t, models.SideLong, events[0].Side)
	assert.True(t, events[0].EntryPrice.Equal(decimal.NewFromFloat(2045.0)))
	assert.Equal(t, 1, events[0].SourceLine)

	// Naive timestamps are UTC; side tokens are case-normalized.
	assert.Equal(t, time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC), events[1].Timestamp)
	assert.Equal(t, models.SideShort, events[1].Side)
	assert.Equal(t, 2, events[1].SourceLine)
}

func TestReadAllOffsetAwareTimestamp(t *testing.T) {
	reader := testReader(t,
		`{"timestamp":"2026-01-01T04:05:10-05:00","side":"long","entry":2045.0}`+"\n")

	events, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2026, 1, 1, 9, 5, 10, 0, time.UTC), events[0].Timestamp)
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	reader := testReader(t,
		"not json at all\n"+
			`{"timestamp":"garbage","side":"long"}`+"\n"+
			"\n"+
			`{"timestamp":"2026-01-01T09:05:10Z","side":"long","entry":2045.0}`+"\n")

	events, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 4, events[0].SourceLine)
}

func TestReadAllMissingFile(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	reader := NewReader(filepath.Join(t.TempDir(), "missing.jsonl"), logger)

	events, err := reader.ReadAll()
	assert.NoError(t, err)
	assert.Empty(t, events)
}
