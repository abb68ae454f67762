package dsp

import (
	"fmt"
	"sync"

	"github.com/bft-labs/tracejack/internal/domain"
)

// Decimation by a large factor is done as a chain of small integer factors
// (at most 9 each, at most five stages).

var decitab = struct {
	mu   sync.Mutex
	nmax int
	tab  map[int][5]int
}{tab: map[int][5]int{}}

// mkDecitab fills the table with sequences for all factors up to nmax.
// Factors are listed largest first; the first sequence found for a product
// wins. Caller must hold decitab.mu.
func mkDecitab(nmax int) {
	for i := 1; i < 10; i++ {
		if i > nmax {
			break
		}
		for j := 1; j <= i; j++ {
			if i*j > nmax {
				break
			}
			for k := 1; k <= j; k++ {
				if i*j*k > nmax {
					break
				}
				for l := 1; l <= k; l++ {
					if i*j*k*l > nmax {
						break
					}
					for m := 1; m <= l; m++ {
						p := i * j * k * l * m
						if p > nmax {
							break
						}
						if _, ok := decitab.tab[p]; !ok {
							decitab.tab[p] = [5]int{i, j, k, l, m}
						}
					}
				}
			}
		}
	}
	decitab.nmax = nmax
}

// Decitab returns the decimation sequence for factor n, without unit stages.
// Returns ErrUnavailableDecimation if n cannot be factored into stages of at
// most 9.
func Decitab(n int) ([]int, error) {
	if n < 1 {
		return nil, fmt.Errorf("decimation factor %d: %w", n, domain.ErrUnavailableDecimation)
	}

	decitab.mu.Lock()
	defer decitab.mu.Unlock()

	if n > decitab.nmax {
		mkDecitab(n * 2)
	}
	seq, ok := decitab.tab[n]
	if !ok {
		return nil, fmt.Errorf("decimation factor %d: %w", n, domain.ErrUnavailableDecimation)
	}

	out := make([]int, 0, len(seq))
	for _, q := range seq {
		if q != 1 {
			out = append(out, q)
		}
	}
	return out, nil
}
