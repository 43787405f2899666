package batcher

import (
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Phase identifies which half of the encode/decode cycle a Step belongs to.
type Phase int

const (
	// PhaseEncode steps carry source tokens in reverse order and no target.
	PhaseEncode Phase = iota
	// PhaseDecode steps carry a target input token and the aligned shifted
	// output token.
	PhaseDecode
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseEncode:
		return "encode"
	case PhaseDecode:
		return "decode"
	default:
		return "invalid"
	}
}

// Step is one time-step of a minibatch: one token column per batch lane.
//
// Input and Mask are always set. Output is nil during the encode phase —
// check Phase rather than inferring it from nilness.
//
// Input, Output and Mask are views into storage owned by the batcher and
// overwritten on the next call: consume or Clone a Step before asking for the
// next one.
type Step struct {
	Phase  Phase
	Input  *tensors.Tensor
	Output *tensors.Tensor
	Mask   []bool
}

// Clone returns a deep copy of the step that survives subsequent calls into
// the batcher.
func (s *Step) Clone() *Step {
	c := &Step{Phase: s.Phase, Mask: slices.Clone(s.Mask)}
	if s.Input != nil {
		c.Input = cloneTensor(s.Input)
	}
	if s.Output != nil {
		c.Output = cloneTensor(s.Output)
	}
	return c
}
