// Package fold partitions sample indices into cross-validation folds.
//
// A partition of n samples into k folds assigns every index in 0..n-1 to
// exactly one fold. Fold sizes differ by at most one: with m = n/k and
// r = n%k, the first r folds hold m+1 indices and the rest hold m.
package fold

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInvalidArgument is returned when the sample or fold count is out of
// range.
var ErrInvalidArgument = errors.New("fold: invalid argument")

// Split partitions n sample indices into k folds drawn from rng and
// returns, for each fold, the training complement and the held-out group.
// The held-out groups are pairwise disjoint and together cover 0..n-1;
// every index appears in exactly k-1 of the training sets.
//
// Requires n >= 1 and 1 <= k <= n.
func Split(n, k int, rng *rand.Rand) (training, heldout [][]int, err error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: %d samples", ErrInvalidArgument, n)
	}
	if k < 1 || k > n {
		return nil, nil, fmt.Errorf("%w: %d folds for %d samples", ErrInvalidArgument, k, n)
	}

	// A uniform random permutation is the sole source of randomness. The
	// folds are contiguous slices of it, with the first n%k folds one
	// element longer.
	perm := rng.Perm(n)

	training = make([][]int, k)
	heldout = make([][]int, k)

	size := n / k
	remainder := n % k

	idx := 0
	for i := 0; i < k; i++ {
		sz := size
		if i < remainder {
			sz++
		}
		heldout[i] = make([]int, sz)
		copy(heldout[i], perm[idx:idx+sz])

		training[i] = make([]int, n-sz)
		copy(training[i], perm[:idx])
		copy(training[i][idx:], perm[idx+sz:])

		idx += sz
	}
	return training, heldout, nil
}

// Partition partitions n sample indices into k disjoint groups drawn from
// rng, subject to the same size and range rules as Split. It is Split
// without the training complements.
func Partition(n, k int, rng *rand.Rand) ([][]int, error) {
	_, heldout, err := Split(n, k, rng)
	return heldout, err
}
