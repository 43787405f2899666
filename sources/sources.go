// Package sources provides streaming producers of integer token sequences for
// the seqbatch batcher.
//
// A Source yields one sequence of token ids per call to Next, with io.EOF
// signaling exhaustion, and declares the largest id it can produce via
// MaxToken. Token ids are positive; id 0 is reserved for padding and
// MaxToken()+1 for the end-of-sequence marker, neither of which a Source may
// ever yield.
//
// Sources do not sort or reorder sequences: batching efficiency concerns such
// as length-bucketing belong to whoever produces the underlying data.
package sources

import (
	"io"

	"github.com/pkg/errors"
)

// PadID is the reserved padding token id. No Source may yield it.
const PadID int32 = 0

// Source is a resumable producer of token id sequences.
//
// Implementations are single-pass: once Next returns io.EOF the source is
// exhausted for good. Restarting means constructing a new Source.
type Source interface {
	// MaxToken returns the largest token id this source can yield.
	// It is fixed for the lifetime of the source.
	MaxToken() int32

	// Next returns the next sequence of token ids, each in [1, MaxToken()].
	// A sequence may be empty. Next returns io.EOF once the source is
	// exhausted, and any other error fatally.
	Next() ([]int32, error)
}

// EosID returns the reserved end-of-sequence id for src, MaxToken()+1.
func EosID(src Source) int32 { return src.MaxToken() + 1 }

// slices is an in-memory Source backed by a slice of sequences.
type slices struct {
	maxToken int32
	seqs     [][]int32
	pos      int
}

// FromSlices returns a Source yielding the given sequences in order.
// If maxToken is 0, it is computed as the largest id present in seqs.
// All ids must be in [1, maxToken] once determined.
func FromSlices(maxToken int32, seqs ...[]int32) (Source, error) {
	if maxToken == 0 {
		for _, seq := range seqs {
			for _, id := range seq {
				if id > maxToken {
					maxToken = id
				}
			}
		}
	}
	if maxToken <= 0 {
		return nil, errors.Errorf("cannot determine max token id: got %d", maxToken)
	}
	for i, seq := range seqs {
		for _, id := range seq {
			if id < 1 || id > maxToken {
				return nil, errors.Errorf("sequence %d: token id %d out of range [1, %d]", i, id, maxToken)
			}
		}
	}
	return &slices{maxToken: maxToken, seqs: seqs}, nil
}

func (s *slices) MaxToken() int32 { return s.maxToken }

func (s *slices) Next() ([]int32, error) {
	if s.pos >= len(s.seqs) {
		return nil, io.EOF
	}
	seq := s.seqs[s.pos]
	s.pos++
	return seq, nil
}
