package stats

import (
	"math"

	"github.com/ezoic/predsql/dbframe"
	"github.com/ezoic/predsql/pkg/errors"
)

// ColumnSummary holds per-column descriptive statistics over finite values.
// Std is the population standard deviation. A column with no finite values
// has NaN moments and extrema.
type ColumnSummary struct {
	Name    string
	Count   int
	Missing int
	Mean    float64
	Std     float64
	Min     float64
	Max     float64
}

// Describe summarizes every column of f, skipping non-finite values.
func Describe(f *dbframe.Frame) ([]ColumnSummary, error) {
	if f == nil {
		return nil, errors.NewValueError("stats.Describe", "frame must not be nil")
	}

	names := f.Names()
	out := make([]ColumnSummary, 0, len(names))
	for _, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(name, col))
	}
	return out, nil
}

func summarize(name string, col []float64) ColumnSummary {
	s := ColumnSummary{
		Name: name,
		Mean: math.NaN(),
		Std:  math.NaN(),
		Min:  math.NaN(),
		Max:  math.NaN(),
	}

	sum := 0.0
	for _, v := range col {
		if !isFinite(v) {
			s.Missing++
			continue
		}
		if s.Count == 0 {
			s.Min, s.Max = v, v
		} else {
			if v < s.Min {
				s.Min = v
			}
			if v > s.Max {
				s.Max = v
			}
		}
		s.Count++
		sum += v
	}
	if s.Count == 0 {
		return s
	}
	s.Mean = sum / float64(s.Count)

	sumSquares := 0.0
	for _, v := range col {
		if isFinite(v) {
			diff := v - s.Mean
			sumSquares += diff * diff
		}
	}
	s.Std = math.Sqrt(sumSquares / float64(s.Count))
	return s
}
