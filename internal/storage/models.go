package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// AnalysisSnapshot represents a persisted analysis run for one asset in one
// scheduler bucket.
type AnalysisSnapshot struct {
	Asset       string
	Bucket      time.Time
	Price       decimal.Decimal
	RSI         decimal.Decimal
	MACD        decimal.Decimal
	Score       decimal.Decimal
	Trend       string
	Quality     string
	SignalCount int
	Signals     json.RawMessage
	Synthetic   bool
	CreatedAt   time.Time
}

// EntryAlertRecord captures an emitted entry alert for de-duplication/auditing.
type EntryAlertRecord struct {
	ID        int64
	Asset     string
	BucketTS  time.Time
	Quality   string
	Score     decimal.Decimal
	Channels  []string
	CreatedAt time.Time
}
