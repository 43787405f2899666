// Package batcher turns two parallel streams of variable-length token
// sequences into a synchronized stream of fixed-width tensor time-steps for
// encoder-decoder training.
//
// Iteration alternates between two phases, one full batch at a time: an
// encode phase emitting source tokens in reverse order (closed by an EOS
// marker and padded to the batch's longest sequence), then a decode phase
// emitting target (input, shifted-output) token pairs. Each call to Next
// yields one time-step: one token column per batch lane plus a mask marking
// which lanes carry real data.
//
// Tensors are allocated once per batcher and overwritten in place every step;
// see Step for the aliasing contract.
package batcher

import (
	"iter"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/seqbatch/sources"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultBatchSize is used when Config.BatchSize is zero.
const DefaultBatchSize = 128

// Config selects batch geometry and storage strategy.
type Config struct {
	// BatchSize is the number of sequences per batch. Defaults to
	// DefaultBatchSize.
	BatchSize int

	// Dense selects fully materialized (vocabSize, batchSize) one-hot
	// matrices. The default (false) keeps each step as a (batchSize,) Int32
	// id vector instead.
	Dense bool

	// DType is the element type of dense one-hot matrices, Float32 by
	// default. Ignored unless Dense is set.
	DType dtypes.DType
}

func (c *Config) withDefaults() (Config, error) {
	var cfg Config
	if c != nil {
		cfg = *c
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 0 {
		return cfg, errors.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.DType == dtypes.InvalidDType {
		cfg.DType = dtypes.Float32
	}
	return cfg, nil
}

// State is the batcher's resumable iteration state: the cursor within the
// current batch and which phase owns it. It is opaque to callers — obtain it
// from Start, pass it to Done and Next, and replace it with the state Next
// returns.
type State struct {
	wordIndex int
	encoding  bool
}

// PairedBatcher co-iterates a source stream (encode phase) and a target
// stream (decode phase) as a single linear pull sequence of time-steps.
//
// The sequence is finite and not restartable: build a fresh PairedBatcher
// over fresh sources to iterate again.
type PairedBatcher struct {
	src, tgt *batchBuffer
	warned   bool
}

// NewPaired builds a batcher over parallel source and target streams, which
// must yield the same number of sequences, pairwise aligned.
func NewPaired(src, tgt sources.Source, cfg *Config) (*PairedBatcher, error) {
	if src == nil || tgt == nil {
		return nil, errors.Errorf("both source and target streams are required")
	}
	full, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if src.MaxToken() <= 0 || tgt.MaxToken() <= 0 {
		return nil, errors.Errorf("sources must declare a positive max token id, got %d and %d",
			src.MaxToken(), tgt.MaxToken())
	}
	p := &PairedBatcher{}
	if p.src, err = newBatchBuffer(src, &full, false); err != nil {
		return nil, errors.WithMessage(err, "building encode buffer")
	}
	if p.tgt, err = newBatchBuffer(tgt, &full, true); err != nil {
		return nil, errors.WithMessage(err, "building decode buffer")
	}
	if err = p.src.refill(); err != nil {
		return nil, errors.WithMessage(err, "filling first source batch")
	}
	if err = p.tgt.refill(); err != nil {
		return nil, errors.WithMessage(err, "filling first target batch")
	}
	return p, nil
}

// Start returns the initial iteration state: cursor at zero, encode phase.
func (p *PairedBatcher) Start() State {
	return State{wordIndex: 0, encoding: true}
}

// Done reports whether iteration has ended. The batcher only stops at a
// pair boundary (encode phase about to start), once either stream can no
// longer supply a full batch.
func (p *PairedBatcher) Done(s State) bool {
	if s.wordIndex != 0 || !s.encoding {
		return false
	}
	if !p.src.done && !p.tgt.done {
		return false
	}
	if p.src.done != p.tgt.done && !p.warned {
		p.warned = true
		klog.Warningf("source and target streams ended at different batch counts; trailing sequences of the longer stream are ignored")
	}
	return true
}

// Next emits the time-step at state s and returns the state for the
// following call. Calling Next on a done state is an error.
func (p *PairedBatcher) Next(s State) (*Step, State, error) {
	if p.Done(s) {
		return nil, s, errors.Errorf("iteration exhausted")
	}
	if s.encoding {
		step, w, err := p.src.encodeStep(s.wordIndex)
		if err != nil {
			return nil, s, err
		}
		// The encode phase holds until the batch wraps, then flips to decode.
		return step, State{wordIndex: w, encoding: w > 0}, nil
	}
	step, w, err := p.tgt.decodeStep(s.wordIndex)
	if err != nil {
		return nil, s, err
	}
	// Completing a decode batch flips back to encode for the next pair.
	return step, State{wordIndex: w, encoding: w == 0}, nil
}

// Steps returns a range-over-func view of the whole iteration. A non-nil
// error is yielded once with a nil step, then iteration stops.
func (p *PairedBatcher) Steps() iter.Seq2[*Step, error] {
	return func(yield func(*Step, error) bool) {
		s := p.Start()
		for !p.Done(s) {
			step, next, err := p.Next(s)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(step, nil) {
				return
			}
			s = next
		}
	}
}
