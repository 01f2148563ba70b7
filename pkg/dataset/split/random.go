package split

import (
	"math/rand"
)

// Random partitions indices 0..n-1 by slicing a seeded permutation.
//
// Sizes are floor(n*Val) for val and floor(n*Test) for test; train
// takes the remainder. Disjointness is structural: the three runs are
// contiguous slices of one permutation. Same seed, same n: same
// Assignment.
func Random(n int, f Fractions, seed int64) Assignment {
	valSize := int(float64(n) * f.Val)
	testSize := int(float64(n) * f.Test)
	trainSize := n - valSize - testSize

	indices := rand.New(rand.NewSource(seed)).Perm(n)

	a := Assignment{
		Train: sortedInts(indices[:trainSize]),
		Val:   sortedInts(indices[trainSize : trainSize+valSize]),
	}
	if 0 < f.Test {
		a.Test = sortedInts(indices[trainSize+valSize:])
	}
	return a
}
