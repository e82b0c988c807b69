package models

import (
	"slices"
	"time"
)

// Cache CSV column names, in Binance kline archive order.
const (
	ColOpenTime      = "Open time"
	ColOpen          = "Open"
	ColHigh          = "High"
	ColLow           = "Low"
	ColClose         = "Close"
	ColVolume        = "Volume"
	ColCloseTime     = "Close time"
	ColQuoteVolume   = "Quote asset volume"
	ColTrades        = "Number of trades"
	ColTakerBuyBase  = "Taker buy base asset volume"
	ColTakerBuyQuote = "Taker buy quote asset volume"
	ColIgnore        = "Ignore"
)

// KlineColumns is the header written to every cache file.
var KlineColumns = []string{
	ColOpenTime, ColOpen, ColHigh, ColLow, ColClose, ColVolume, ColCloseTime,
	ColQuoteVolume, ColTrades, ColTakerBuyBase, ColTakerBuyQuote, ColIgnore,
}

// Frame is a candle table as loaded from the cache CSV. Cells stay in their
// textual form so the table can be written back or printed unchanged.
type Frame struct {
	Columns []string
	Rows    [][]string
}

type Candle struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Index returns the position of col, or -1.
func (f *Frame) Index(col string) int {
	return slices.Index(f.Columns, col)
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Columns: slices.Clone(f.Columns),
		Rows:    make([][]string, len(f.Rows)),
	}
	for i, row := range f.Rows {
		out.Rows[i] = slices.Clone(row)
	}
	return out
}

// Head returns a copy of the first n rows.
func (f *Frame) Head(n int) *Frame {
	n = max(0, min(n, len(f.Rows)))
	return (&Frame{Columns: f.Columns, Rows: f.Rows[:n]}).Clone()
}

// DropColumn removes col in place. It reports whether the column existed.
func (f *Frame) DropColumn(col string) bool {
	idx := f.Index(col)
	if idx < 0 {
		return false
	}
	f.Columns = slices.Delete(f.Columns, idx, idx+1)
	for i, row := range f.Rows {
		if idx < len(row) {
			f.Rows[i] = slices.Delete(row, idx, idx+1)
		}
	}
	return true
}
