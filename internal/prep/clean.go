package prep

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go-candleprep/pkg/models"
)

var (
	ErrMissingColumn   = errors.New("missing column")
	ErrTimestampFormat = errors.New("invalid timestamp")
	ErrRaggedRow       = errors.New("row length differs from header")
)

// TimestampLayout is the calendar form timestamp cells take after cleaning.
const TimestampLayout = time.RFC3339Nano

// 16+ digit epochs are microseconds (Binance spot archives from 2025 on)
const microsThreshold = 1e14

// Clean returns a copy of frame without the Ignore column, with Open time and
// Close time as UTC calendar timestamps, sorted ascending by Open time.
// Cells already in calendar form are kept, so Clean(Clean(f)) equals Clean(f).
func Clean(frame *models.Frame) (*models.Frame, error) {
	out := frame.Clone()
	out.DropColumn(models.ColIgnore)

	openIdx := out.Index(models.ColOpenTime)
	if openIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, models.ColOpenTime)
	}
	closeIdx := out.Index(models.ColCloseTime)
	if closeIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, models.ColCloseTime)
	}

	keys := make([]time.Time, len(out.Rows))
	for i, row := range out.Rows {
		if len(row) != len(out.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrRaggedRow, i+1, len(row), len(out.Columns))
		}
		for _, idx := range []int{openIdx, closeIdx} {
			ts, err := ParseTimestamp(row[idx])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+1, out.Columns[idx], err)
			}
			row[idx] = ts.Format(TimestampLayout)
			if idx == openIdx {
				keys[i] = ts
			}
		}
	}

	order := make([]int, len(out.Rows))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return keys[a].Compare(keys[b])
	})
	rows := make([][]string, len(order))
	for i, idx := range order {
		rows[i] = out.Rows[idx]
	}
	out.Rows = rows
	return out, nil
}

// ParseTimestamp accepts a non-negative integer epoch in milliseconds (or
// microseconds) or an RFC 3339 timestamp. Anything else is ErrTimestampFormat.
func ParseTimestamp(cell string) (time.Time, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty cell", ErrTimestampFormat)
	}
	if isDigits(s) {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrTimestampFormat, cell, err)
		}
		if v >= microsThreshold {
			return time.UnixMicro(v).UTC(), nil
		}
		return time.UnixMilli(v).UTC(), nil
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is neither epoch milliseconds nor RFC 3339", ErrTimestampFormat, cell)
	}
	return t.UTC(), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
