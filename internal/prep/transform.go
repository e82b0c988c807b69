package prep

import (
	"errors"
	"fmt"
	"math"

	"go-candleprep/internal/util"
	"go-candleprep/pkg/models"
)

var ErrPriceFormat = errors.New("invalid price")

// Candles decodes a cleaned frame by column name.
func Candles(frame *models.Frame) ([]models.Candle, error) {
	cols := []string{
		models.ColOpenTime, models.ColCloseTime,
		models.ColOpen, models.ColHigh, models.ColLow, models.ColClose, models.ColVolume,
	}
	idx := make(map[string]int, len(cols))
	for _, col := range cols {
		i := frame.Index(col)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
		idx[col] = i
	}

	candles := make([]models.Candle, len(frame.Rows))
	for r, row := range frame.Rows {
		if len(row) != len(frame.Columns) {
			return nil, fmt.Errorf("%w: row %d", ErrRaggedRow, r+1)
		}
		c := &candles[r]
		var err error
		if c.OpenTime, err = ParseTimestamp(row[idx[models.ColOpenTime]]); err != nil {
			return nil, fmt.Errorf("row %d: %w", r+1, err)
		}
		if c.CloseTime, err = ParseTimestamp(row[idx[models.ColCloseTime]]); err != nil {
			return nil, fmt.Errorf("row %d: %w", r+1, err)
		}
		for _, field := range []struct {
			col string
			dst *float64
		}{
			{models.ColOpen, &c.Open},
			{models.ColHigh, &c.High},
			{models.ColLow, &c.Low},
			{models.ColClose, &c.Close},
			{models.ColVolume, &c.Volume},
		} {
			v, err := util.ParseFloat(row[idx[field.col]])
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %v", ErrPriceFormat, r+1, field.col, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d column %q: %v is not finite", ErrPriceFormat, r+1, field.col, v)
			}
			*field.dst = v
		}
	}
	return candles, nil
}

// MidPrices returns (High+Low)/2 for every candle, in order.
func MidPrices(candles []models.Candle) []float64 {
	mid := make([]float64, len(candles))
	for i, c := range candles {
		mid[i] = (c.High + c.Low) / 2.0
	}
	return mid
}

// Split cuts series at len/2: train gets [0, n/2), test gets [n/2, n).
// Both are copies. For n < 2 train is empty.
func Split(series []float64) (train, test []float64) {
	half := len(series) / 2
	train = append(make([]float64, 0, half), series[:half]...)
	test = append(make([]float64, 0, len(series)-half), series[half:]...)
	return train, test
}
