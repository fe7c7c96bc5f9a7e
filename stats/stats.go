// Package stats computes column summaries and pairwise correlation over
// keyed frames.
//
// Missing values (NaN) never fail a computation: correlation uses pairwise
// deletion, so each column pair is evaluated over exactly the rows where
// both values are finite, and summaries count missing values explicitly.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/ezoic/predsql/dbframe"
	"github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/pkg/log"
)

// CorrelationMatrix holds the symmetric Pearson correlation of every column
// pair, plus the pairwise-complete observation count behind each entry.
type CorrelationMatrix struct {
	names []string
	index map[string]int
	r     []float64
	n     []int
	k     int
}

// Correlate computes the pairwise Pearson correlation of every column pair
// in f.
//
// Each pair is computed over the rows where both columns are finite
// (pairwise deletion). Pairs with fewer than two overlapping observations,
// or where either column has zero variance on the overlap, are NaN. The
// result is exactly symmetric, and the diagonal is exactly 1 for any
// non-degenerate column.
func Correlate(f *dbframe.Frame) (_ *CorrelationMatrix, err error) {
	defer errors.Recover(&err, "stats.Correlate")
	start := time.Now()

	if f == nil {
		return nil, errors.NewValueError("stats.Correlate", "frame must not be nil")
	}
	rows, k := f.NumRows(), f.NumCols()
	if rows == 0 || k == 0 {
		return nil, errors.NewModelError("stats.Correlate", "empty frame", errors.ErrEmptyData)
	}

	names := f.Names()
	cols := make([][]float64, k)
	for j, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}

	m := &CorrelationMatrix{
		names: names,
		index: make(map[string]int, k),
		r:     make([]float64, k*k),
		n:     make([]int, k*k),
		k:     k,
	}
	for j, name := range names {
		m.index[name] = j
	}

	for i := 0; i < k; i++ {
		// The diagonal goes through the same degeneracy rules but is pinned
		// to exactly 1 when defined.
		r, n := pearson(cols[i], cols[i])
		if !math.IsNaN(r) {
			r = 1.0
		}
		m.set(i, i, r, n)

		for j := i + 1; j < k; j++ {
			r, n := pearson(cols[i], cols[j])
			m.set(i, j, r, n)
			m.set(j, i, r, n)
		}
	}

	logger := log.GetLoggerWithName("stats")
	logger.Debug("correlation computed",
		log.FeaturesKey, k,
		log.RowsKey, rows,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return m, nil
}

// pearson computes the correlation of x and y over their pairwise-complete
// rows. Two passes: means first, then centered second moments, which keeps
// precision on columns whose mean dwarfs their spread (longitudes).
func pearson(x, y []float64) (float64, int) {
	n := 0
	sumX, sumY := 0.0, 0.0
	for i := range x {
		if isFinite(x[i]) && isFinite(y[i]) {
			n++
			sumX += x[i]
			sumY += y[i]
		}
	}
	if n < 2 {
		return math.NaN(), n
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxx, syy, sxy float64
	for i := range x {
		if isFinite(x[i]) && isFinite(y[i]) {
			dx := x[i] - meanX
			dy := y[i] - meanY
			sxx += dx * dx
			syy += dy * dy
			sxy += dx * dy
		}
	}
	if sxx == 0 || syy == 0 {
		return math.NaN(), n
	}

	r := sxy / math.Sqrt(sxx*syy)
	// Rounding can push |r| a hair past 1.
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, n
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (m *CorrelationMatrix) set(i, j int, r float64, n int) {
	m.r[i*m.k+j] = r
	m.n[i*m.k+j] = n
}

// Names returns the column names in matrix order.
func (m *CorrelationMatrix) Names() []string {
	return append([]string{}, m.names...)
}

// Size returns the number of columns.
func (m *CorrelationMatrix) Size() int { return m.k }

// At returns the correlation of columns i and j.
func (m *CorrelationMatrix) At(i, j int) float64 {
	return m.r[i*m.k+j]
}

// Count returns the number of pairwise-complete observations behind the
// (i, j) entry.
func (m *CorrelationMatrix) Count(i, j int) int {
	return m.n[i*m.k+j]
}

// Pair returns the correlation of two columns by name.
func (m *CorrelationMatrix) Pair(a, b string) (float64, error) {
	i, ok := m.index[a]
	if !ok {
		return 0, errors.Newf("stats: unknown column %q", a)
	}
	j, ok := m.index[b]
	if !ok {
		return 0, errors.Newf("stats: unknown column %q", b)
	}
	return m.At(i, j), nil
}

// Pair is one strongly correlated column pair.
type Pair struct {
	A string
	B string
	R float64
	N int
}

// StrongPairs returns every off-diagonal pair with |r| >= threshold, NaN
// entries excluded, each unordered pair once. Pairs sort by |r| descending,
// ties by name.
func (m *CorrelationMatrix) StrongPairs(threshold float64) []Pair {
	var pairs []Pair
	for i := 0; i < m.k; i++ {
		for j := i + 1; j < m.k; j++ {
			r := m.At(i, j)
			if math.IsNaN(r) || math.Abs(r) < threshold {
				continue
			}
			pairs = append(pairs, Pair{
				A: m.names[i],
				B: m.names[j],
				R: r,
				N: m.Count(i, j),
			})
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		ra, rb := math.Abs(pairs[a].R), math.Abs(pairs[b].R)
		if ra != rb {
			return ra > rb
		}
		if pairs[a].A != pairs[b].A {
			return pairs[a].A < pairs[b].A
		}
		return pairs[a].B < pairs[b].B
	})
	return pairs
}
