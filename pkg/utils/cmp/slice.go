package cmp

func SliceEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for nth, va := range a {
		if va != b[nth] {
			return false
		}
	}
	return true
}

func SliceEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for nth := range a {
		if !pred(a[nth], b[nth]) {
			return false
		}
	}
	return true
}

// Check two slices have same content, ignoring ordering.
//
// Multiplicity matters: SliceContentEq([]int{1, 1, 2}, []int{1, 2, 2}) is false.
func SliceContentEq[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}

	count := map[T]int{}
	for _, va := range a {
		count[va] += 1
	}
	for _, vb := range b {
		count[vb] -= 1
		if count[vb] < 0 {
			return false
		}
	}
	return true
}

// Check a and b share no element.
func SliceDisjoint[T comparable](a, b []T) bool {
	inA := map[T]struct{}{}
	for _, va := range a {
		inA[va] = struct{}{}
	}
	for _, vb := range b {
		if _, ok := inA[vb]; ok {
			return false
		}
	}
	return true
}
