package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeEvent is one record from the append-only trade journal. Events are
// immutable once read; timestamps are normalized to UTC during parsing.
type TradeEvent struct {
	Timestamp  time.Time       `json:"timestamp"`
	Side       Side            `json:"side"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	SourceLine int             `json:"source_line"`
}
