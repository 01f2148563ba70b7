// Partitioning of image indices into train/val/test subsets.
//
// Two strategies are provided: a uniform random split (Random) and a
// label-stratified split (Stratified). SplitDataset orchestrates both
// over a dataset root and persists the resulting index lists.
package split

import (
	"errors"
	"fmt"
)

var ErrInvalidSplitConfig = errors.New("invalid split configuration")

// Fractions fixes how much of the dataset goes to validation and test.
// The remainder is the training set.
type Fractions struct {
	Val  float64
	Test float64
}

// Validate checks 0 < Val < 1, 0 <= Test < 1 and Val+Test < 1.
func (f Fractions) Validate() error {
	if !(0 < f.Val && f.Val < 1.0) {
		return fmt.Errorf(
			"%w: validation fraction (%v) must be > 0 and < 1.0",
			ErrInvalidSplitConfig, f.Val,
		)
	}
	if !(0 <= f.Test && f.Test < 1.0) {
		return fmt.Errorf(
			"%w: test fraction (%v) must be >= 0 and < 1.0",
			ErrInvalidSplitConfig, f.Test,
		)
	}
	if !(f.Val+f.Test < 1.0) {
		return fmt.Errorf(
			"%w: sum of validation (%v) and test (%v) fractions must be < 1.0",
			ErrInvalidSplitConfig, f.Val, f.Test,
		)
	}
	return nil
}

// Assignment is one train/val/test partitioning of image indices.
//
// The three sets are mutually disjoint. Each is sorted ascending and
// holds each index at most once. Test is nil when the test fraction of
// the request was zero.
type Assignment struct {
	Train []int
	Val   []int
	Test  []int
}
