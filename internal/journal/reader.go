package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/davidkell/replay-audit/internal/models"
)

// entryTimestampLayouts cover the journal's ISO-8601 variants. Naive values
// are interpreted as UTC, matching how the capture pipeline records them.
var entryTimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// journalEntry mirrors the raw journal line; only timestamp and side are
// required, entry price is carried through when present.
type journalEntry struct {
	Timestamp string          `json:"timestamp"`
	Side      string          `json:"side"`
	Entry     decimal.Decimal `json:"entry"`
}

// Reader parses the append-only trade journal (line-delimited JSON).
type Reader struct {
	path   string
	logger *logrus.Logger
}

// NewReader creates a journal reader for the given path.
func NewReader(path string, logger *logrus.Logger) *Reader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reader{path: path, logger: logger}
}

// ReadAll parses every journal line into a TradeEvent. Malformed lines are
// skipped and logged; a missing journal file yields no events and no error.
func (r *Reader) ReadAll() ([]models.TradeEvent, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.WithFields(logrus.Fields{
				"path": r.path,
			}).Warn("Trade journal does not exist")
			return nil, nil
		}
		return nil, fmt.Errorf("unreadable trade journal %s: %w", r.path, err)
	}
	defer func() { _ = f.Close() }()

	var events []models.TradeEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry journalEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			r.logger.WithFields(logrus.Fields{
				"line":   lineNum,
				"reason": err.Error(),
			}).Warn("Skipping malformed journal line")
			continue
		}

		ts, err := parseEntryTimestamp(entry.Timestamp)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"line":      lineNum,
				"timestamp": entry.Timestamp,
			}).Warn("Skipping journal line with unparseable timestamp")
			continue
		}

		events = append(events, models.TradeEvent{
			Timestamp:  ts,
			Side:       models.ParseSide(strings.ToLower(entry.Side)),
			EntryPrice: entry.Entry,
			SourceLine: lineNum,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trade journal %s: %w", r.path, err)
	}

	r.logger.WithFields(logrus.Fields{
		"path":   r.path,
		"events": len(events),
	}).Info("Trade journal loaded")

	return events, nil
}

// parseEntryTimestamp normalizes a journal timestamp to UTC.
func parseEntryTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range entryTimestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched %q", raw)
}
