package sources

import (
	"io"
	"iter"
)

// All returns a range-over-func view of src. Iteration stops at the source's
// end; a non-EOF error is yielded once with a nil sequence and then stops.
func All(src Source) iter.Seq2[[]int32, error] {
	return func(yield func([]int32, error) bool) {
		for {
			seq, err := src.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(seq, nil) {
				return
			}
		}
	}
}
