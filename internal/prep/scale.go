package prep

import (
	"errors"
	"fmt"

	"go-candleprep/internal/common"
	"gonum.org/v1/gonum/floats"
)

var ErrEmptySeries = errors.New("empty series")

// MinMaxScaler maps values onto [0,1] using the range seen by Fit.
type MinMaxScaler struct {
	Min    float64
	Max    float64
	fitted bool
}

func (s *MinMaxScaler) Fit(values []float64) error {
	if len(values) == 0 {
		return ErrEmptySeries
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.fitted = true
	return nil
}

func (s *MinMaxScaler) Fitted() bool {
	return s.fitted
}

// Transform returns one single-element row per value. A constant fitted range maps everything to 0.
func (s *MinMaxScaler) Transform(values []float64) [][]float64 {
	out := make([][]float64, len(values))
	span := s.Max - s.Min
	for i, v := range values {
		scaled := 0.0
		if span != 0 {
			scaled = (v - s.Min) / span
		}
		out[i] = []float64{scaled}
	}
	return out
}

// FitTransform fits on values and transforms them. Empty input yields empty output.
func FitTransform(values []float64) ([][]float64, *MinMaxScaler) {
	s := &MinMaxScaler{}
	if err := s.Fit(values); err != nil {
		return [][]float64{}, s
	}
	return s.Transform(values), s
}

// Scaled holds both partitions as single-column sequences and the fitted scalers.
type Scaled struct {
	Train       [][]float64
	Test        [][]float64
	TrainScaler *MinMaxScaler
	TestScaler  *MinMaxScaler
}

// ScalePartitions scales train and test. In common.ScalingIndependent mode each
// partition is fitted on itself. In common.ScalingTrain mode test reuses the
// train scaler, so its values may fall outside [0,1]; with an empty train
// partition test falls back to its own range.
func ScalePartitions(train, test []float64, mode string) (*Scaled, error) {
	res := &Scaled{}
	res.Train, res.TrainScaler = FitTransform(train)
	switch mode {
	case common.ScalingIndependent:
		res.Test, res.TestScaler = FitTransform(test)
	case common.ScalingTrain:
		if !res.TrainScaler.Fitted() {
			res.Test, res.TestScaler = FitTransform(test)
			break
		}
		res.TestScaler = res.TrainScaler
		res.Test = res.TrainScaler.Transform(test)
	default:
		return nil, fmt.Errorf("unknown scaling mode %q", mode)
	}
	return res, nil
}

// Column flattens a single-column sequence.
func Column(rows [][]float64) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if len(r) > 0 {
			out = append(out, r[0])
		}
	}
	return out
}
