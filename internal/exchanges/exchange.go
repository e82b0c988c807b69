package exchanges

import (
	"context"
	"time"
)

// HistoryRequest selects the klines to retrieve. End is exclusive.
type HistoryRequest struct {
	MarketType string
	BulkSize   string
	Symbol     string
	Timeframe  string
	Start      time.Time
	End        time.Time
}

// Exchange retrieves historical klines and writes them as a cache CSV at dst.
type Exchange interface {
	Name() string
	DownloadHistory(ctx context.Context, req HistoryRequest, dst string) (int, error)
}
