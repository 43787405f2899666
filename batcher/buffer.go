package batcher

import (
	"io"

	"github.com/gomlx/seqbatch/sources"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// batchBuffer owns one phase's worth of state: the current batch of raw
// sequences pulled from its source, the step tensors written in place, and
// the exhaustion flag. One buffer serves the encode phase of the source
// stream, another the decode phase of the target stream.
type batchBuffer struct {
	src  sources.Source
	eos  int32
	x    columnWriter
	y    columnWriter // nil on the encode side
	mask []bool

	batch  [][]int32 // nil once done
	maxLen int       // 1 + longest sequence in batch
	done   bool
}

func newBatchBuffer(src sources.Source, cfg *Config, withTarget bool) (*batchBuffer, error) {
	eos := sources.EosID(src)
	b := &batchBuffer{
		src:   src,
		eos:   eos,
		batch: make([][]int32, cfg.BatchSize),
		mask:  make([]bool, cfg.BatchSize),
	}
	var err error
	if b.x, err = newColumnWriter(cfg, int(eos)); err != nil {
		return nil, err
	}
	if withTarget {
		if b.y, err = newColumnWriter(cfg, int(eos)); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// refill replaces the batch wholesale with the next batchSize sequences.
// If the source runs out before every slot is filled, the incomplete batch is
// dropped and the buffer marked done: a partially refilled batch would leave
// previous sequences in the unfilled slots.
func (b *batchBuffer) refill() error {
	batchSize := len(b.batch)
	for i := range b.batch {
		seq, err := b.src.Next()
		if err == io.EOF {
			if i > 0 {
				klog.V(1).Infof("dropping incomplete terminal batch of %d/%d sequences", i, batchSize)
			}
			b.done = true
			b.batch = nil
			return nil
		}
		if err != nil {
			return errors.WithMessage(err, "while refilling batch")
		}
		b.batch[i] = seq
	}
	b.maxLen = 1
	for _, seq := range b.batch {
		if len(seq)+1 > b.maxLen {
			b.maxLen = len(seq) + 1
		}
	}
	return nil
}

// encodeStep emits the time-step at wordIndex for the current batch in the
// encode phase and returns the advanced cursor, refilling when the batch
// wraps.
func (b *batchBuffer) encodeStep(wordIndex int) (*Step, int, error) {
	for lane, seq := range b.batch {
		id := encodeTokenAt(seq, wordIndex, b.maxLen, b.eos)
		b.x.setColumn(lane, id)
		b.mask[lane] = id != sources.PadID
	}
	step := &Step{Phase: PhaseEncode, Input: b.x.tensor(), Mask: b.mask}
	wordIndex++
	if wordIndex == b.maxLen {
		wordIndex = 0
		if err := b.refill(); err != nil {
			return nil, 0, err
		}
	}
	return step, wordIndex, nil
}

// decodeStep emits the time-step at wordIndex for the current batch in the
// decode phase: input and shifted output columns, mask following the input.
func (b *batchBuffer) decodeStep(wordIndex int) (*Step, int, error) {
	for lane, seq := range b.batch {
		in, out := decodeTokensAt(seq, wordIndex, b.eos)
		b.x.setColumn(lane, in)
		b.y.setColumn(lane, out)
		b.mask[lane] = in != sources.PadID
	}
	step := &Step{Phase: PhaseDecode, Input: b.x.tensor(), Output: b.y.tensor(), Mask: b.mask}
	wordIndex++
	if wordIndex == b.maxLen {
		wordIndex = 0
		if err := b.refill(); err != nil {
			return nil, 0, err
		}
	}
	return step, wordIndex, nil
}
