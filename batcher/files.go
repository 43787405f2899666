package batcher

import (
	"github.com/gomlx/seqbatch/sources"
	"github.com/gomlx/seqbatch/vocab"
)

// fileOptions collects optional vocabularies for the file-based constructors.
type fileOptions struct {
	srcVocab, tgtVocab         *vocab.Vocabulary
	srcVocabPath, tgtVocabPath string
}

// FileOption configures FromFiles and FromFile.
type FileOption func(*fileOptions)

// WithSourceVocab supplies an already built vocabulary for the source stream
// instead of scanning the source file.
func WithSourceVocab(v *vocab.Vocabulary) FileOption {
	return func(o *fileOptions) { o.srcVocab = v }
}

// WithTargetVocab supplies an already built vocabulary for the target stream.
func WithTargetVocab(v *vocab.Vocabulary) FileOption {
	return func(o *fileOptions) { o.tgtVocab = v }
}

// WithSourceVocabFile loads the source vocabulary from a file (one record per
// line, whitespace-delimited tokens, ids in first-seen order).
func WithSourceVocabFile(path string) FileOption {
	return func(o *fileOptions) { o.srcVocabPath = path }
}

// WithTargetVocabFile loads the target vocabulary from a file.
func WithTargetVocabFile(path string) FileOption {
	return func(o *fileOptions) { o.tgtVocabPath = path }
}

func (o *fileOptions) sourceVocabulary() (*vocab.Vocabulary, error) {
	if o.srcVocab != nil {
		return o.srcVocab, nil
	}
	if o.srcVocabPath != "" {
		return vocab.FromFile(o.srcVocabPath)
	}
	return nil, nil
}

func (o *fileOptions) targetVocabulary() (*vocab.Vocabulary, error) {
	if o.tgtVocab != nil {
		return o.tgtVocab, nil
	}
	if o.tgtVocabPath != "" {
		return vocab.FromFile(o.tgtVocabPath)
	}
	return nil, nil
}

// FromFiles builds a PairedBatcher over two line-per-sequence text files.
// Without vocabulary options, each file is scanned once to build its own
// vocabulary in first-seen order.
func FromFiles(srcPath, tgtPath string, cfg *Config, opts ...FileOption) (*PairedBatcher, error) {
	var o fileOptions
	for _, opt := range opts {
		opt(&o)
	}
	srcVocab, err := o.sourceVocabulary()
	if err != nil {
		return nil, err
	}
	tgtVocab, err := o.targetVocabulary()
	if err != nil {
		return nil, err
	}
	src, err := sources.NewLines(srcPath, srcVocab)
	if err != nil {
		return nil, err
	}
	tgt, err := sources.NewLines(tgtPath, tgtVocab)
	if err != nil {
		return nil, err
	}
	return NewPaired(src, tgt, cfg)
}

// FromFile builds a PairedBatcher that reads the same file as both source and
// target (a copy task, useful for auto-encoders), with two independent
// readers sharing one vocabulary. A vocabulary supplied via the source
// options is used for both streams; target vocabulary options are ignored.
func FromFile(path string, cfg *Config, opts ...FileOption) (*PairedBatcher, error) {
	var o fileOptions
	for _, opt := range opts {
		opt(&o)
	}
	v, err := o.sourceVocabulary()
	if err != nil {
		return nil, err
	}
	if v == nil {
		if v, err = vocab.FromFile(path); err != nil {
			return nil, err
		}
	}
	src, err := sources.NewLines(path, v)
	if err != nil {
		return nil, err
	}
	tgt, err := sources.NewLines(path, v)
	if err != nil {
		return nil, err
	}
	return NewPaired(src, tgt, cfg)
}
