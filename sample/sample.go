// Package sample draws reproducible row subsets from a keyed table.
//
// Sampling works over the observed key range rather than a full table scan:
// draw distinct keys uniformly from [min, max], then fetch exactly those
// rows. On a dense key space this approximates simple random sampling at
// index cost; keys lost to deleted rows simply thin the sample.
package sample

import (
	"context"
	"math/rand/v2"
	"sort"

	"github.com/ezoic/predsql/dbframe"
	"github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/pkg/log"
)

// Keys draws n distinct keys uniformly from [lo, hi] and returns them
// sorted ascending. When n covers the whole range the full range comes
// back. n < 1 or an inverted range is a ValueError.
func Keys(rng *rand.Rand, lo, hi int64, n int) ([]int64, error) {
	const op = "sample.Keys"
	if rng == nil {
		return nil, errors.NewValueError(op, "rng must not be nil")
	}
	if n < 1 {
		return nil, errors.NewValueError(op, "sample size must be positive")
	}
	if lo > hi {
		return nil, errors.NewValueError(op, "key range is inverted")
	}

	span := uint64(hi-lo) + 1
	if uint64(n) >= span {
		out := make([]int64, 0, span)
		for k := lo; ; k++ {
			out = append(out, k)
			if k == hi {
				break
			}
		}
		return out, nil
	}

	seen := make(map[int64]struct{}, n)
	out := make([]int64, 0, n)
	for len(out) < n {
		k := lo + int64(rng.Uint64N(span))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Draw samples up to n rows of the named columns from the bound table.
//
// The same seed over the same key range always selects the same keys
// (rand/v2 PCG seeded with the seed in both words). Keys that fall in
// gaps of the id space match no row, so the frame may hold fewer than n
// rows. An empty source table is ErrEmptyData, never a silent empty frame.
func Draw(ctx context.Context, t *dbframe.Table, columns []string, n int, seed int64) (*dbframe.Frame, error) {
	const op = "sample.Draw"
	if t == nil {
		return nil, errors.NewValueError(op, "table must not be nil")
	}

	lo, hi, count, err := t.KeyRange(ctx)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	keys, err := Keys(rng, lo, hi, n)
	if err != nil {
		return nil, err
	}

	f, err := t.CollectByKeys(ctx, columns, keys)
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("sample")
	logger.Info("drew sample",
		log.TableKey, t.Name(),
		log.SamplesKey, f.NumRows(),
		"requested", n,
		"key_count", count,
		"seed", seed,
	)
	return f, nil
}
