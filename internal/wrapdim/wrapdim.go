// Package wrapdim normalizes possibly-negative dimension indices.
package wrapdim

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors returned by Normalize.
var (
	ErrDimensionOutOfRange = errors.New("dimension out of range")
	ErrNoDimensions        = errors.New("tensor has no dimensions")
)

// RangeError reports a dimension outside [Min, Max]. It matches
// ErrDimensionOutOfRange.
type RangeError struct {
	Dim, Min, Max int64
}

// Error renders the message as
// "dimension out of range (expected to be in range of [min, max], but got d)".
func (e *RangeError) Error() string {
	return fmt.Sprintf("%v (expected to be in range of [%d, %d], but got %d)", ErrDimensionOutOfRange, e.Min, e.Max, e.Dim)
}

// Is reports whether target is ErrDimensionOutOfRange.
func (e *RangeError) Is(target error) bool {
	return target == ErrDimensionOutOfRange
}

// Ranked is anything with a rank.
type Ranked interface {
	Dim() int
}

// Normalize maps dim into [0, rank-1], counting negative values from the end.
//
// A rank of zero is accepted only when wrapScalar is true, in which case the
// valid range is [-1, 0] and both map to 0. Out-of-range values are errors,
// never clamped.
func Normalize(dim, rank int64, wrapScalar bool) (int64, error) {
	if rank <= 0 {
		if !wrapScalar {
			return 0, errors.Wrapf(ErrNoDimensions, "dimension specified as %d", dim)
		}
		rank = 1
	}

	lo, hi := -rank, rank-1
	if dim < lo || dim > hi {
		return 0, &RangeError{Dim: dim, Min: lo, Max: hi}
	}
	if dim < 0 {
		dim += rank
	}
	return dim, nil
}

// ForRank is Normalize with scalar wrapping enabled.
func ForRank(dim int64, rank int) (int64, error) {
	return Normalize(dim, int64(rank), true)
}

// ForTensor normalizes dim against t's rank.
func ForTensor(dim int64, t Ranked) (int64, error) {
	return ForRank(dim, t.Dim())
}

// ForTensors normalizes dim against the rank of the first tensor.
// An empty list returns dim unchanged; the operator decides whether that is an error.
func ForTensors[T Ranked](dim int64, ts []T) (int64, error) {
	if len(ts) == 0 {
		return dim, nil
	}
	return ForTensor(dim, ts[0])
}

// ForSizes normalizes dim against the rank of the first size list.
// An empty list returns dim unchanged.
func ForSizes(dim int64, sizes [][]int64) (int64, error) {
	if len(sizes) == 0 {
		return dim, nil
	}
	return ForRank(dim, len(sizes[0]))
}

// LegacyCat wraps dim for concatenation, skipping entries whose sizes are
// exactly [0]. Such tensors were once the only empty tensors and cat has
// always ignored them. If every entry is skipped dim is returned unchanged.
func LegacyCat(dim int64, sizes [][]int64) (int64, error) {
	for _, s := range sizes {
		if len(s) == 1 && s[0] == 0 {
			continue
		}
		return ForRank(dim, len(s))
	}
	return dim, nil
}

// Sized is a Ranked value that also exposes its sizes.
type Sized interface {
	Ranked
	Size(d int) int
}

// LegacyCatTensors is LegacyCat over tensors.
func LegacyCatTensors[T Sized](dim int64, ts []T) (int64, error) {
	for _, t := range ts {
		if t.Dim() == 1 && t.Size(0) == 0 {
			continue
		}
		return ForTensor(dim, t)
	}
	return dim, nil
}
