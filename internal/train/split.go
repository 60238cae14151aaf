package train

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Partition holds row indices of the train and test sets
type Partition struct {
	Train []int
	Test  []int
}

// Split shuffles 0..n-1 with a seeded PCG source and holds out ceil(testFraction*n) rows.
// The same n, fraction and seed always give the same partition.
func Split(n int, testFraction float64, seed uint64) (Partition, error) {
	if testFraction <= 0 || testFraction >= 1 {
		return Partition{}, fmt.Errorf("test fraction %.3f must be in (0, 1)", testFraction)
	}
	testSize := int(math.Ceil(testFraction * float64(n)))
	if n < 2 || testSize >= n {
		return Partition{}, fmt.Errorf("%w: %d documents", ErrTooSmall, n)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(n)
	return Partition{
		Test:  perm[:testSize],
		Train: perm[testSize:],
	}, nil
}
