package split

import (
	"math/rand"

	"github.com/co2meal/stratum/pkg/utils"
	"github.com/co2meal/stratum/pkg/utils/tuple"
)

// indexLabelRow is one row of the stratification input: one (image
// index, label) occurrence. An image carrying k labels expands into k
// rows, which is why one image can be sampled into both sides of a
// split and why repair (removeCrossContamination) exists.
type indexLabelRow = tuple.Pair[int, string]

// Stratified partitions the images of labelsByImage so that the label
// distribution of each subset approximates the requested fractions.
//
//  1. Expand labelsByImage into (index, label) rows.
//  2. Labels with exactly one occurrence dataset-wide cannot be
//     stratified; their rows are pulled out and the images are forced
//     into train after the main split.
//  3. Split rows into train/temp with temp fraction Val+Test, then
//     repair train-vs-temp contamination.
//  4. With a zero test fraction, temp is the validation set.
//     Otherwise temp is split again into val/test (fraction
//     Test/(Val+Test)) and repaired val-vs-test. Repair runs
//     train-vs-temp first and val-vs-test second; repairing between
//     the later two sets earlier would skew their label balance.
//  5. Each side collapses to a deduplicated sorted index set.
//
// A single rand source seeded with seed drives both the samplers and
// the repair coin flips, so results are reproducible per seed.
//
// When every label is a singleton there is nothing to stratify: the
// result is empty (not an error), and the caller decides what to do.
func Stratified(labelsByImage map[int][]string, f Fractions, seed int64) (Assignment, error) {
	if err := f.Validate(); err != nil {
		return Assignment{}, err
	}

	rng := rand.New(rand.NewSource(seed))

	rows := expandRows(labelsByImage)
	rows, singles := extractSingletons(rows)
	if len(rows) == 0 {
		a := Assignment{Train: []int{}, Val: []int{}}
		if 0 < f.Test {
			a.Test = []int{}
		}
		return a, nil
	}

	train, temp := stratifiedSample(rows, f.Val+f.Test, rng)
	train, temp = removeCrossContamination(train, temp, rng)

	// Force-assignment of singleton-label images to train wins over the
	// sampler: an image carrying a singleton label next to a shared one
	// may have been sampled into temp through the shared label, and
	// leaving it there would break disjointness.
	singleSet := utils.ToSet(singles)
	temp = utils.Filter(temp, func(r indexLabelRow) bool {
		_, forced := singleSet[r.First]
		return !forced
	})
	train = utils.Concat(train, utils.Map(singles, func(i int) indexLabelRow {
		return tuple.PairOf(i, "")
	}))

	if f.Test == 0 {
		return Assignment{
			Train: collapse(train),
			Val:   collapse(temp),
		}, nil
	}

	val, test := stratifiedSample(temp, f.Test/(f.Val+f.Test), rng)
	val, test = removeCrossContamination(val, test, rng)

	// Dedupe only here. Doing it before the second sampling would
	// misstate per-label counts and skew the val/test balance.
	return Assignment{
		Train: collapse(train),
		Val:   collapse(val),
		Test:  collapse(test),
	}, nil
}

// expandRows flattens labelsByImage into (index, label) rows in
// deterministic order: ascending index, labels sorted within an image.
func expandRows(labelsByImage map[int][]string) []indexLabelRow {
	indices := utils.Sorted(
		utils.KeysOf(labelsByImage), func(a, b int) bool { return a < b },
	)

	rows := []indexLabelRow{}
	for _, i := range indices {
		labels := utils.Sorted(
			labelsByImage[i], func(a, b string) bool { return a < b },
		)
		for _, label := range labels {
			rows = append(rows, tuple.PairOf(i, label))
		}
	}
	return rows
}

// extractSingletons removes rows whose label occurs exactly once in
// rows, returning the remaining rows and the image indices of the
// removed ones. A singleton label cannot be split across subsets, so
// its image is destined for the training set.
func extractSingletons(rows []indexLabelRow) ([]indexLabelRow, []int) {
	support := map[string]int{}
	for _, r := range rows {
		support[r.Second] += 1
	}

	singles := []int{}
	kept := []indexLabelRow{}
	for _, r := range rows {
		if support[r.Second] == 1 {
			singles = append(singles, r.First)
			continue
		}
		kept = append(kept, r)
	}
	return kept, singles
}

// stratifiedSample splits rows into two sides so that, per label,
// about frac of the rows land on side b.
//
// Per label with c rows, b takes round(c*frac) rows, clamped into
// [1, c-1] when c >= 2 so that no label with enough support is left
// absent from either side. A label reduced to a single row (possible
// in the second-stage sampling after repair) keeps its row on side a.
// Row selection within a label is shuffled with rng; output keeps the
// ordering of rows.
func stratifiedSample(rows []indexLabelRow, frac float64, rng *rand.Rand) (a, b []indexLabelRow) {
	positions := map[string][]int{}
	for pos, r := range rows {
		positions[r.Second] = append(positions[r.Second], pos)
	}
	labels := utils.Sorted(
		utils.KeysOf(positions), func(x, y string) bool { return x < y },
	)

	picked := map[int]struct{}{}
	for _, label := range labels {
		group := positions[label]
		c := len(group)
		k := int(float64(c)*frac + 0.5)
		if 2 <= c {
			if k < 1 {
				k = 1
			}
			if c-1 < k {
				k = c - 1
			}
		} else {
			k = 0
		}

		shuffled := make([]int, c)
		copy(shuffled, group)
		rng.Shuffle(c, func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		for _, pos := range shuffled[:k] {
			picked[pos] = struct{}{}
		}
	}

	a = []indexLabelRow{}
	b = []indexLabelRow{}
	for pos, r := range rows {
		if _, ok := picked[pos]; ok {
			b = append(b, r)
		} else {
			a = append(a, r)
		}
	}
	return a, b
}

// removeCrossContamination drops image indices present on both sides.
//
// The duplicate set is computed once; each duplicate index gets one
// unbiased coin flip from rng deciding which side loses ALL rows
// carrying it. Rows are filtered in one bulk pass per side, so label
// multiplicities of the surviving rows stay truthful for later
// balance accounting. Duplicates are visited in ascending index order
// for reproducibility per seed.
func removeCrossContamination(a, b []indexLabelRow, rng *rand.Rand) ([]indexLabelRow, []indexLabelRow) {
	inA := utils.ToSet(utils.Map(a, func(r indexLabelRow) int { return r.First }))
	dup := []int{}
	for _, r := range b {
		if _, ok := inA[r.First]; ok {
			dup = append(dup, r.First)
		}
	}
	dup = utils.Sorted(utils.Unique(dup), func(x, y int) bool { return x < y })

	dropFromA := map[int]struct{}{}
	dropFromB := map[int]struct{}{}
	for _, index := range dup {
		if rng.Float64() > 0.5 {
			dropFromA[index] = struct{}{}
		} else {
			dropFromB[index] = struct{}{}
		}
	}

	a = utils.Filter(a, func(r indexLabelRow) bool {
		_, drop := dropFromA[r.First]
		return !drop
	})
	b = utils.Filter(b, func(r indexLabelRow) bool {
		_, drop := dropFromB[r.First]
		return !drop
	})
	return a, b
}

// collapse reduces rows to the sorted set of distinct image indices.
func collapse(rows []indexLabelRow) []int {
	indices, _ := tuple.UnzipPair(rows)
	return sortedInts(utils.Unique(indices))
}

func sortedInts(indices []int) []int {
	return utils.Sorted(indices, func(a, b int) bool { return a < b })
}
