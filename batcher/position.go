package batcher

import "github.com/gomlx/seqbatch/sources"

// Position arithmetic for single time-steps, kept free of buffer and refill
// state so the index math can be tested on its own.

// encodeTokenAt returns the token a sequence contributes at wordIndex during
// the encode phase of a batch spanning maxLen steps (longest sequence plus
// one EOS slot).
//
// Source tokens are emitted in reverse: the position w counts down from
// maxLen as wordIndex grows. The EOS marker sits just past the sequence's
// last token (so it is emitted first, before the reversed tokens), and
// positions beyond that are padding.
func encodeTokenAt(seq []int32, wordIndex, maxLen int, eos int32) int32 {
	w := maxLen - wordIndex
	n := len(seq)
	switch {
	case w >= 1 && w <= n:
		return seq[w-1]
	case w == n+1:
		return eos
	default:
		return sources.PadID
	}
}

// decodeTokensAt returns the (input, output) pair a sequence contributes at
// wordIndex during the decode phase: the input stream is EOS followed by the
// sequence, the output stream is the sequence followed by EOS, padding after
// both end.
func decodeTokensAt(seq []int32, wordIndex int, eos int32) (in, out int32) {
	n := len(seq)
	switch {
	case wordIndex == 0:
		in = eos
	case wordIndex <= n:
		in = seq[wordIndex-1]
	default:
		in = sources.PadID
	}
	switch {
	case wordIndex < n:
		out = seq[wordIndex]
	case wordIndex == n:
		out = eos
	default:
		out = sources.PadID
	}
	return in, out
}
