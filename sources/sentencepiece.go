package sources

import (
	"bufio"
	"io"
	"os"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/gomlx/seqbatch/internal/files"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// SentencePiece is a Source that tokenizes raw text lines with a SentencePiece
// model, one sequence per line.
//
// SentencePiece ids are 0-based, while this protocol reserves 0 for padding,
// so every id is shifted up by one: raw id r becomes token id r+1 and
// MaxToken() is the model's vocabulary size.
type SentencePiece struct {
	proc      *esentencepiece.Processor
	vocabSize int32
	file      *os.File
	scanner   *bufio.Scanner
	path      string
	eof       bool
}

// NewSentencePiece opens the text file at path and tokenizes it line by line
// with the SentencePiece model at modelPath. vocabSize is the model's
// vocabulary size and bounds the ids the model may emit.
func NewSentencePiece(path, modelPath string, vocabSize int) (*SentencePiece, error) {
	if vocabSize <= 0 {
		return nil, errors.Errorf("vocabSize must be positive, got %d", vocabSize)
	}
	proc, err := esentencepiece.NewProcessorFromPath(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load sentencepiece model from %q", modelPath)
	}
	f, err := files.Open(path)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &SentencePiece{
		proc:      proc,
		vocabSize: int32(vocabSize),
		file:      f,
		scanner:   scanner,
		path:      path,
	}, nil
}

// MaxToken implements Source.
func (s *SentencePiece) MaxToken() int32 { return s.vocabSize }

// Next implements Source.
func (s *SentencePiece) Next() ([]int32, error) {
	if s.eof {
		return nil, io.EOF
	}
	if !s.scanner.Scan() {
		s.eof = true
		if err := s.scanner.Err(); err != nil {
			return nil, errors.Wrapf(err, "failed reading %q", s.path)
		}
		if err := s.file.Close(); err != nil {
			klog.Warningf("failed to close %q: %v", s.path, err)
		}
		return nil, io.EOF
	}
	tokens := s.proc.Encode(s.scanner.Text())
	seq := make([]int32, len(tokens))
	for i, tok := range tokens {
		if tok.ID < 0 || int32(tok.ID) >= s.vocabSize {
			return nil, errors.Errorf("%s: sentencepiece id %d outside vocabulary of size %d", s.path, tok.ID, s.vocabSize)
		}
		seq[i] = int32(tok.ID) + 1
	}
	return seq, nil
}
