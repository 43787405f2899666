package batcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestEncodeTokenAt tests the reverse-order position math: padding first,
// then EOS, then the sequence tokens back to front.
func TestEncodeTokenAt(t *testing.T) {
	seq := []int32{7, 8, 9}
	const maxLen = 5 // batch's longest sequence has 4 tokens
	const eos = int32(10)

	want := []int32{0, eos, 9, 8, 7}
	for wordIndex, wantID := range want {
		assert.Equal(t, wantID, encodeTokenAt(seq, wordIndex, maxLen, eos),
			"wordIndex=%d", wordIndex)
	}
}

// TestEncodeTokenAtEmptySequence tests that an empty sequence contributes a
// lone EOS at the last step and padding before it.
func TestEncodeTokenAtEmptySequence(t *testing.T) {
	const eos = int32(4)
	assert.Equal(t, eos, encodeTokenAt(nil, 0, 1, eos))

	// Within a longer batch the EOS shifts to the final position.
	assert.Equal(t, int32(0), encodeTokenAt(nil, 0, 3, eos))
	assert.Equal(t, int32(0), encodeTokenAt(nil, 1, 3, eos))
	assert.Equal(t, eos, encodeTokenAt(nil, 2, 3, eos))
}

// TestDecodeTokensAt tests the shifted input/output pairing: input is EOS
// then the sequence, output is the sequence then EOS.
func TestDecodeTokensAt(t *testing.T) {
	seq := []int32{4, 5}
	const eos = int32(9)

	tests := []struct {
		wordIndex int
		in, out   int32
	}{
		{0, eos, 4},
		{1, 4, 5},
		{2, 5, eos},
		{3, 0, 0},
	}
	for _, tc := range tests {
		in, out := decodeTokensAt(seq, tc.wordIndex, eos)
		assert.Equal(t, tc.in, in, "input at wordIndex=%d", tc.wordIndex)
		assert.Equal(t, tc.out, out, "output at wordIndex=%d", tc.wordIndex)
	}
}

// TestDecodeTokensAtEmptySequence tests the degenerate single-step case.
func TestDecodeTokensAtEmptySequence(t *testing.T) {
	const eos = int32(3)
	in, out := decodeTokensAt(nil, 0, eos)
	assert.Equal(t, eos, in)
	assert.Equal(t, eos, out)
}
