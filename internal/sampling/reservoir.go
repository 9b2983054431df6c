package sampling

import (
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
)

// ErrShortStream is returned when a stream yields fewer items than were requested.
var ErrShortStream = errors.New("stream shorter than requested sample")

// Reservoir draws n items uniformly without replacement from seq in a single
// pass (algorithm R). Every item of the stream ends up in the result with
// probability n / len(stream). The order of the result is the order of the
// reservoir slots, not the order of the stream.
func Reservoir[T any](r *rand.Rand, seq iter.Seq[T], n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("reservoir size must not be negative, got %d", n)
	}
	res := make([]T, 0, n)
	if n == 0 {
		return res, nil
	}

	i := 0
	for v := range seq {
		if len(res) < n {
			res = append(res, v)
			continue
		}
		// inclusive range [0, n+i]
		if j := r.IntN(n + i + 1); j < n {
			res[j] = v
		}
		i++
	}

	if len(res) < n {
		return nil, fmt.Errorf("%w: wanted %d, stream yielded %d", ErrShortStream, n, len(res))
	}
	return res, nil
}

// Range yields the integers in [min, max].
func Range(min, max int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if min > max {
			return
		}
		for v := min; ; v++ {
			if !yield(v) || v == max {
				return
			}
		}
	}
}
