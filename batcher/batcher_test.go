package batcher

import (
	"io"
	"slices"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/seqbatch/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepData is an owned snapshot of one emitted step, since the batcher
// overwrites its tensors on every call.
type stepData struct {
	phase  Phase
	input  []int32
	output []int32 // nil for encode steps
	mask   []bool
}

// collectSparse drains the batcher (sparse storage) into owned snapshots.
func collectSparse(t *testing.T, p *PairedBatcher) []stepData {
	t.Helper()
	var out []stepData
	for step, err := range p.Steps() {
		require.NoError(t, err)
		d := stepData{
			phase: step.Phase,
			input: tensors.MustCopyFlatData[int32](step.Input),
			mask:  slices.Clone(step.Mask),
		}
		if step.Phase == PhaseEncode {
			require.Nil(t, step.Output)
		} else {
			require.NotNil(t, step.Output)
			d.output = tensors.MustCopyFlatData[int32](step.Output)
		}
		out = append(out, d)
	}
	return out
}

func mustSlices(t *testing.T, maxToken int32, seqs ...[]int32) sources.Source {
	t.Helper()
	src, err := sources.FromSlices(maxToken, seqs...)
	require.NoError(t, err)
	return src
}

// TestEncodePhaseSingleSequence tests that a batch of one sequence s emits
// len(s)+1 encode steps: EOS first, then the tokens of s back to front, all
// masked as real data.
func TestEncodePhaseSingleSequence(t *testing.T) {
	seq := []int32{3, 1, 2}
	p, err := NewPaired(
		mustSlices(t, 0, seq),
		mustSlices(t, 0, seq),
		&Config{BatchSize: 1},
	)
	require.NoError(t, err)

	steps := collectSparse(t, p)
	require.Len(t, steps, 8) // 4 encode + 4 decode

	const eos = int32(4)
	wantInputs := []int32{eos, 2, 1, 3}
	for i, want := range wantInputs {
		assert.Equal(t, PhaseEncode, steps[i].phase, "step %d", i)
		assert.Equal(t, []int32{want}, steps[i].input, "step %d", i)
		assert.Equal(t, []bool{true}, steps[i].mask, "step %d", i)
	}
}

// TestDecodePhaseSingleSequence tests the shifted input/output pairing for a
// batch of one target sequence t: input EOS,t[0..n-1]; output t[0..n-1],EOS.
func TestDecodePhaseSingleSequence(t *testing.T) {
	seq := []int32{3, 1, 2}
	p, err := NewPaired(
		mustSlices(t, 0, seq),
		mustSlices(t, 0, seq),
		&Config{BatchSize: 1},
	)
	require.NoError(t, err)

	steps := collectSparse(t, p)
	require.Len(t, steps, 8)

	const eos = int32(4)
	wantIn := []int32{eos, 3, 1, 2}
	wantOut := []int32{3, 1, 2, eos}
	for i := range wantIn {
		step := steps[4+i]
		assert.Equal(t, PhaseDecode, step.phase, "decode step %d", i)
		assert.Equal(t, []int32{wantIn[i]}, step.input, "decode step %d input", i)
		assert.Equal(t, []int32{wantOut[i]}, step.output, "decode step %d output", i)
		assert.Equal(t, []bool{true}, step.mask, "decode step %d mask", i)
	}
}

// TestWorkedExample tests the two-sentence translation batch end to end:
// four encode steps (longest source is 3 tokens, plus EOS) then four decode
// steps, with the boundary marker leading both phases.
func TestWorkedExample(t *testing.T) {
	srcPath := writeLinesFile(t, "src.txt", "The dog ran\nThe next sentence\n")
	tgtPath := writeLinesFile(t, "tgt.txt", "El perro corrio\nLa frase siguiente\n")

	p, err := FromFiles(srcPath, tgtPath, &Config{BatchSize: 2})
	require.NoError(t, err)

	steps := collectSparse(t, p)
	require.Len(t, steps, 8)

	// Source vocabulary in first-seen order:
	// The=1 dog=2 ran=3 next=4 sentence=5, EOS=6.
	wantEncode := [][]int32{
		{6, 6}, // both lanes open with the boundary marker
		{3, 5},
		{2, 4},
		{1, 1},
	}
	for i, want := range wantEncode {
		assert.Equal(t, PhaseEncode, steps[i].phase, "step %d", i)
		assert.Equal(t, want, steps[i].input, "encode step %d", i)
		assert.Equal(t, []bool{true, true}, steps[i].mask, "encode step %d", i)
	}

	// Target vocabulary: El=1 perro=2 corrio=3 La=4 frase=5 siguiente=6, EOS=7.
	wantDecodeIn := [][]int32{
		{7, 7},
		{1, 4},
		{2, 5},
		{3, 6},
	}
	wantDecodeOut := [][]int32{
		{1, 4},
		{2, 5},
		{3, 6},
		{7, 7},
	}
	for i := range wantDecodeIn {
		step := steps[4+i]
		assert.Equal(t, PhaseDecode, step.phase, "decode step %d", i)
		assert.Equal(t, wantDecodeIn[i], step.input, "decode step %d input", i)
		assert.Equal(t, wantDecodeOut[i], step.output, "decode step %d output", i)
		assert.Equal(t, []bool{true, true}, step.mask, "decode step %d", i)
	}
}

// TestPaddingWithinBatch tests that shorter sequences in a batch are padded
// with masked-out, pad-id columns.
func TestPaddingWithinBatch(t *testing.T) {
	p, err := NewPaired(
		mustSlices(t, 3, []int32{1, 2}, []int32{3}),
		mustSlices(t, 3, []int32{1, 2}, []int32{3}),
		&Config{BatchSize: 2},
	)
	require.NoError(t, err)

	steps := collectSparse(t, p)
	require.Len(t, steps, 6) // 3 encode + 3 decode, maxLen=3

	const eos = int32(4)
	// Encode, reversed: lane 0 = [EOS, 2, 1], lane 1 = [pad, EOS, 3].
	assert.Equal(t, []int32{eos, sources.PadID}, steps[0].input)
	assert.Equal(t, []bool{true, false}, steps[0].mask)
	assert.Equal(t, []int32{2, eos}, steps[1].input)
	assert.Equal(t, []bool{true, true}, steps[1].mask)
	assert.Equal(t, []int32{1, 3}, steps[2].input)
	assert.Equal(t, []bool{true, true}, steps[2].mask)

	// Decode: lane 1 runs out one step early.
	assert.Equal(t, []int32{eos, eos}, steps[3].input)
	assert.Equal(t, []int32{1, 3}, steps[3].output)
	assert.Equal(t, []int32{1, 3}, steps[4].input)
	assert.Equal(t, []int32{2, eos}, steps[4].output)
	assert.Equal(t, []int32{2, sources.PadID}, steps[5].input)
	assert.Equal(t, []int32{eos, sources.PadID}, steps[5].output)
	assert.Equal(t, []bool{true, false}, steps[5].mask)
}

// TestEmptySequence tests that a zero-length sequence produces exactly one
// encode step carrying only EOS, masked as real.
func TestEmptySequence(t *testing.T) {
	p, err := NewPaired(
		mustSlices(t, 5, nil),
		mustSlices(t, 5, nil),
		&Config{BatchSize: 1},
	)
	require.NoError(t, err)

	steps := collectSparse(t, p)
	require.Len(t, steps, 2)

	const eos = int32(6)
	assert.Equal(t, PhaseEncode, steps[0].phase)
	assert.Equal(t, []int32{eos}, steps[0].input)
	assert.Equal(t, []bool{true}, steps[0].mask)

	assert.Equal(t, PhaseDecode, steps[1].phase)
	assert.Equal(t, []int32{eos}, steps[1].input)
	assert.Equal(t, []int32{eos}, steps[1].output)
	assert.Equal(t, []bool{true}, steps[1].mask)
}

// TestIncompleteTerminalBatchDropped tests that a refill that cannot fill
// every slot drops the leftover sequences instead of reusing stale ones.
func TestIncompleteTerminalBatchDropped(t *testing.T) {
	// Three sequences with batch size two: the third can never form a batch.
	p, err := NewPaired(
		mustSlices(t, 3, []int32{1}, []int32{2}, []int32{3}),
		mustSlices(t, 3, []int32{1}, []int32{2}, []int32{3}),
		&Config{BatchSize: 2},
	)
	require.NoError(t, err)

	steps := collectSparse(t, p)
	// One pair of batches: 2 encode steps (maxLen=2) + 2 decode steps.
	require.Len(t, steps, 4)
	for _, step := range steps {
		for _, id := range step.input {
			assert.NotEqual(t, int32(3), id, "dropped sequence leaked into a batch")
		}
	}
}

// TestMismatchedStreamLengths tests that iteration halts at the first
// exhausted stream instead of pairing batches with stale data.
func TestMismatchedStreamLengths(t *testing.T) {
	p, err := NewPaired(
		mustSlices(t, 9, []int32{1}, []int32{2}, []int32{3}, []int32{4}),
		mustSlices(t, 9, []int32{5}, []int32{6}),
		&Config{BatchSize: 2},
	)
	require.NoError(t, err)

	steps := collectSparse(t, p)
	require.Len(t, steps, 4) // one pair only

	s := p.Start()
	assert.True(t, p.Done(s))
}

// TestMultipleBatches tests phase alternation across more than one pair of
// batches.
func TestMultipleBatches(t *testing.T) {
	p, err := NewPaired(
		mustSlices(t, 4, []int32{1}, []int32{2}, []int32{3}, []int32{4}),
		mustSlices(t, 4, []int32{4}, []int32{3}, []int32{2}, []int32{1}),
		&Config{BatchSize: 2},
	)
	require.NoError(t, err)

	steps := collectSparse(t, p)
	require.Len(t, steps, 8) // two pairs, 2+2 steps each

	wantPhases := []Phase{
		PhaseEncode, PhaseEncode, PhaseDecode, PhaseDecode,
		PhaseEncode, PhaseEncode, PhaseDecode, PhaseDecode,
	}
	for i, want := range wantPhases {
		assert.Equal(t, want, steps[i].phase, "step %d", i)
	}
	// Second pair carries the second batch's data.
	assert.Equal(t, []int32{3, 4}, steps[5].input)
	assert.Equal(t, []int32{2, 1}, steps[7].input)
}

// TestNextAfterDone tests that pulling past the end is an error, not a panic
// or a stale step.
func TestNextAfterDone(t *testing.T) {
	p, err := NewPaired(
		mustSlices(t, 2, []int32{1}),
		mustSlices(t, 2, []int32{2}),
		&Config{BatchSize: 2}, // batch can never fill
	)
	require.NoError(t, err)

	s := p.Start()
	require.True(t, p.Done(s))
	_, _, err = p.Next(s)
	assert.Error(t, err)
}

// stubSource lets tests hand the batcher degenerate collaborators.
type stubSource struct{ maxToken int32 }

func (s stubSource) MaxToken() int32        { return s.maxToken }
func (s stubSource) Next() ([]int32, error) { return nil, io.EOF }

// TestConstructionErrors tests fatal constructor validation.
func TestConstructionErrors(t *testing.T) {
	good := stubSource{maxToken: 5}

	_, err := NewPaired(nil, good, nil)
	assert.Error(t, err)
	_, err = NewPaired(good, nil, nil)
	assert.Error(t, err)
	_, err = NewPaired(stubSource{maxToken: 0}, good, nil)
	assert.Error(t, err)
	_, err = NewPaired(good, good, &Config{BatchSize: -1})
	assert.Error(t, err)
}

// TestDefaultConfig tests the documented defaults.
func TestDefaultConfig(t *testing.T) {
	cfg, err := (*Config)(nil).withDefaults()
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.False(t, cfg.Dense)
}

// TestStepClone tests that a cloned step survives the batcher advancing.
func TestStepClone(t *testing.T) {
	p, err := NewPaired(
		mustSlices(t, 0, []int32{3, 1, 2}),
		mustSlices(t, 0, []int32{3, 1, 2}),
		&Config{BatchSize: 1},
	)
	require.NoError(t, err)

	s := p.Start()
	step, s, err := p.Next(s)
	require.NoError(t, err)
	clone := step.Clone()
	firstInput := tensors.MustCopyFlatData[int32](step.Input)

	// Advance: the original step's tensor gets overwritten, the clone not.
	_, _, err = p.Next(s)
	require.NoError(t, err)
	assert.NotEqual(t, firstInput, tensors.MustCopyFlatData[int32](step.Input))
	assert.Equal(t, firstInput, tensors.MustCopyFlatData[int32](clone.Input))
}
