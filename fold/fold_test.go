package fold

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

// checkPartition verifies the partition invariants: the groups are pairwise
// disjoint, their union is 0..n-1, and the sizes are n/k or n/k+1 with
// exactly n%k groups of the larger size, in fold order.
func checkPartition(t *testing.T, name string, groups [][]int, n, k int) {
	t.Helper()
	if len(groups) != k {
		t.Errorf("case %s: got %d groups, want %d", name, len(groups), k)
		return
	}

	count := make([]int, n)
	for _, g := range groups {
		for _, idx := range g {
			if idx < 0 || idx >= n {
				t.Errorf("case %s: index %d out of range", name, idx)
				return
			}
			count[idx]++
		}
	}
	for idx, c := range count {
		if c != 1 {
			t.Errorf("case %s: index %d appears %d times, want 1", name, idx, c)
		}
	}

	size := n / k
	remainder := n % k
	for i, g := range groups {
		want := size
		if i < remainder {
			want++
		}
		if len(g) != want {
			t.Errorf("case %s: group %d has %d elements, want %d", name, i, len(g), want)
		}
	}
}

func TestPartition(t *testing.T) {
	for _, test := range []struct {
		name string
		n, k int
	}{
		{"Even", 10, 2},
		{"Uneven", 11, 3},
		{"OneExtra", 10, 3},
		{"Exact", 9, 3},
		{"SlightlyMoreSamples", 13, 11},
		{"LeaveOneOut", 13, 13},
		{"SingleFold", 12, 1},
		{"OneSample", 1, 1},
	} {
		rng := rand.New(rand.NewSource(1))
		groups, err := Partition(test.n, test.k, rng)
		if err != nil {
			t.Errorf("case %s: unexpected error: %v", test.name, err)
			continue
		}
		checkPartition(t, test.name, groups, test.n, test.k)
	}
}

func TestSplitComplement(t *testing.T) {
	const n, k = 17, 5
	rng := rand.New(rand.NewSource(3))
	training, heldout, err := Split(n, k, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkPartition(t, "Split", heldout, n, k)

	// Every sample must appear in exactly k-1 training sets.
	count := make([]int, n)
	for _, tr := range training {
		for _, idx := range tr {
			count[idx]++
		}
	}
	for idx, c := range count {
		if c != k-1 {
			t.Errorf("index %d appears in %d training sets, want %d", idx, c, k-1)
		}
	}

	// Within one fold, the training set and held-out group are disjoint.
	for i := range training {
		in := make(map[int]bool)
		for _, idx := range training[i] {
			in[idx] = true
		}
		for _, idx := range heldout[i] {
			if in[idx] {
				t.Errorf("fold %d: index %d is both trained on and held out", i, idx)
			}
		}
	}
}

func TestPartitionSizesInFoldOrder(t *testing.T) {
	// With n = 10 and k = 3 the single remainder element lands in the
	// first fold: sizes 4, 3, 3.
	groups, err := Partition(10, 3, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{4, 3, 3}
	for i, g := range groups {
		if len(g) != want[i] {
			t.Errorf("group %d has %d elements, want %d", i, len(g), want[i])
		}
	}
}

func TestPartitionLeaveOneOut(t *testing.T) {
	groups, err := Partition(8, 8, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, g := range groups {
		if len(g) != 1 {
			t.Errorf("group %d has %d elements, want 1", i, len(g))
		}
	}
}

func TestPartitionSingleFold(t *testing.T) {
	groups, err := Partition(6, 1, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 || len(groups[0]) != 6 {
		t.Fatalf("single fold does not contain all samples: %v", groups)
	}
	checkPartition(t, "SingleFold", groups, 6, 1)
}

func TestPartitionDeterminism(t *testing.T) {
	a, err := Partition(25, 4, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Partition(25, 4, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different partitions:\n%v\n%v", a, b)
	}
}

func TestPartitionInvalidArguments(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, test := range []struct {
		name string
		n, k int
	}{
		{"ZeroSamples", 0, 1},
		{"NegativeSamples", -3, 1},
		{"ZeroFolds", 10, 0},
		{"NegativeFolds", 10, -2},
		{"MoreFoldsThanSamples", 4, 5},
	} {
		_, err := Partition(test.n, test.k, rng)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("case %s: got error %v, want ErrInvalidArgument", test.name, err)
		}
	}
}
