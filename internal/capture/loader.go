package capture

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/davidkell/replay-audit/internal/config"
	"github.com/davidkell/replay-audit/internal/models"
	"github.com/davidkell/replay-audit/internal/utils"
)

// signalKeyLayout is the date/time encoding used in capture filenames,
// e.g. replay_20260101_090500_long.csv.
const signalKeyLayout = "20060102_150405"

// barTimestampLayouts are tried in order when parsing the bar table's
// timestamp column. Layouts without an offset are interpreted as UTC.
var barTimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseCaptureKey decomposes a capture filename into its identifying
// date/time/side triplet. It returns an error for malformed names so callers
// can decide to skip and log; it never aborts a batch on its own.
func ParseCaptureKey(filename string) (models.CaptureKey, error) {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return models.CaptureKey{}, utils.NewRecordErrorf(filename, "expected at least 3 underscore-separated tokens, got %d", len(parts))
	}

	ts, err := time.ParseInLocation(signalKeyLayout, parts[1]+"_"+parts[2], time.UTC)
	if err != nil {
		return models.CaptureKey{}, utils.NewRecordErrorf(filename, "unparseable date/time tokens %q_%q", parts[1], parts[2])
	}

	side := models.SideUnknown
	if len(parts) > 3 {
		side = models.ParseSide(parts[3])
	}

	return models.CaptureKey{
		Prefix:          parts[0],
		SignalTimestamp: ts,
		Side:            side,
	}, nil
}

// Loader reads a directory of capture files into Capture records. Malformed
// files are skipped and logged; only an unreadable root directory is fatal.
type Loader struct {
	cfg    config.CaptureConfig
	logger *logrus.Logger
}

// NewLoader creates a capture loader for the configured directory.
func NewLoader(cfg config.CaptureConfig, logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Loader{cfg: cfg, logger: logger}
}

// Files lists the capture files matching the configured prefix and
// extension, sorted by name. A missing directory yields no files and no
// error; any other directory read failure is fatal.
func (l *Loader) Files() ([]string, error) {
	pattern := filepath.Join(l.cfg.Directory, l.cfg.FilePrefix+"_*"+l.cfg.FileExtension)

	if _, err := os.Stat(l.cfg.Directory); err != nil {
		if os.IsNotExist(err) {
			l.logger.WithFields(logrus.Fields{
				"directory": l.cfg.Directory,
			}).Warn("Capture directory does not exist")
			return nil, nil
		}
		return nil, fmt.Errorf("unreadable capture directory %s: %w", l.cfg.Directory, err)
	}

	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid capture glob %s: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadAll loads every capture file matching the configured prefix and
// extension. Malformed files are skipped and logged.
func (l *Loader) LoadAll() ([]*models.Capture, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}

	captures := make([]*models.Capture, 0, len(files))
	for _, file := range files {
		c, err := l.LoadFile(file)
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"file":   file,
				"reason": err.Error(),
			}).Warn("Skipping capture file")
			continue
		}
		captures = append(captures, c)
	}

	l.logger.WithFields(logrus.Fields{
		"directory": l.cfg.Directory,
		"found":     len(files),
		"loaded":    len(captures),
	}).Info("Capture loading complete")

	return captures, nil
}

// LoadFile parses a single capture file. The returned error is a RecordError
// for any malformed content so the batch can continue without it.
func (l *Loader) LoadFile(path string) (*models.Capture, error) {
	key, err := ParseCaptureKey(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewRecordErrorf(path, "open failed: %v", err)
	}
	defer func() { _ = f.Close() }()

	bars, err := readBarTable(path, f)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, utils.NewRecordErrorf(path, "empty bar table")
	}

	// Sort ascending regardless of on-disk order, then drop duplicate
	// timestamps keeping the first occurrence.
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	deduped := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Timestamp.Equal(deduped[len(deduped)-1].Timestamp) {
			continue
		}
		deduped = append(deduped, b)
	}

	return &models.Capture{
		ID:              key.ID(),
		SignalTimestamp: key.SignalTimestamp,
		Side:            key.Side,
		Bars:            deduped,
		SourceFile:      filepath.Base(path),
	}, nil
}

// readBarTable parses the CSV bar table. Columns timestamp, open, high, low
// and close are required; volume is optional and defaults to zero.
func readBarTable(path string, f *os.File) ([]models.Bar, error) {
	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, utils.NewRecordErrorf(path, "csv parse failed: %v", err)
	}
	if len(rows) < 2 {
		return nil, utils.NewRecordErrorf(path, "empty bar table")
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, utils.NewRecordErrorf(path, "missing column %q", required)
		}
	}
	volumeIdx, hasVolume := cols["volume"]

	bars := make([]models.Bar, 0, len(rows)-1)
	for rowNum, row := range rows[1:] {
		ts, err := parseBarTimestamp(row[cols["timestamp"]])
		if err != nil {
			return nil, utils.NewRecordErrorf(path, "row %d: unparseable timestamp %q", rowNum+2, row[cols["timestamp"]])
		}

		bar := models.Bar{Timestamp: ts}
		for _, field := range []struct {
			name string
			dst  *decimal.Decimal
		}{
			{"open", &bar.Open},
			{"high", &bar.High},
			{"low", &bar.Low},
			{"close", &bar.Close},
		} {
			v, err := decimal.NewFromString(strings.TrimSpace(row[cols[field.name]]))
			if err != nil {
				return nil, utils.NewRecordErrorf(path, "row %d: unparseable %s %q", rowNum+2, field.name, row[cols[field.name]])
			}
			*field.dst = v
		}

		if hasVolume && volumeIdx < len(row) && strings.TrimSpace(row[volumeIdx]) != "" {
			v, err := decimal.NewFromString(strings.TrimSpace(row[volumeIdx]))
			if err != nil {
				return nil, utils.NewRecordErrorf(path, "row %d: unparseable volume %q", rowNum+2, row[volumeIdx])
			}
			bar.Volume = v
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// parseBarTimestamp tries the known timestamp layouts; values without an
// offset are treated as UTC.
func parseBarTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range barTimestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched %q", raw)
}
