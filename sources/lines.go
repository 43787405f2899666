package sources

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/gomlx/seqbatch/internal/files"
	"github.com/gomlx/seqbatch/vocab"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Lines is a Source reading one whitespace-tokenized sequence per text line,
// mapping tokens to ids through a vocabulary.
type Lines struct {
	vocabulary *vocab.Vocabulary
	file       *os.File // nil when constructed from a reader
	scanner    *bufio.Scanner
	path       string // for error messages
	lineNum    int
	eof        bool
}

// NewLines opens the text file at path as a Source, one sequence per line.
//
// If v is nil, a vocabulary is first built by scanning the whole file once
// (first-seen id order); otherwise v is used as-is and any token absent from
// it is a hard error — there is no unknown-token id in this protocol.
func NewLines(path string, v *vocab.Vocabulary) (*Lines, error) {
	if v == nil {
		var err error
		v, err = vocab.FromFile(path)
		if err != nil {
			return nil, err
		}
		klog.V(1).Infof("built vocabulary of %d tokens from %q", v.Size(), path)
	}
	if v.MaxToken() <= 0 {
		return nil, errors.Errorf("empty vocabulary for %q", path)
	}
	f, err := files.Open(path)
	if err != nil {
		return nil, err
	}
	l := newLinesReader(f, v)
	l.file = f
	l.path = path
	return l, nil
}

// LinesFromReader wraps r as a line-per-sequence Source using vocabulary v,
// which must be non-nil and non-empty.
func LinesFromReader(r io.Reader, v *vocab.Vocabulary) (*Lines, error) {
	if v == nil || v.MaxToken() <= 0 {
		return nil, errors.Errorf("a non-empty vocabulary is required")
	}
	return newLinesReader(r, v), nil
}

func newLinesReader(r io.Reader, v *vocab.Vocabulary) *Lines {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Lines{vocabulary: v, scanner: scanner, path: "<reader>"}
}

// Vocabulary returns the vocabulary the source maps tokens through.
func (l *Lines) Vocabulary() *vocab.Vocabulary { return l.vocabulary }

// MaxToken implements Source.
func (l *Lines) MaxToken() int32 { return l.vocabulary.MaxToken() }

// Next implements Source. It returns one line's token ids, io.EOF at end of
// input, or an error naming the first unknown token.
func (l *Lines) Next() ([]int32, error) {
	if l.eof {
		return nil, io.EOF
	}
	if !l.scanner.Scan() {
		l.eof = true
		if err := l.scanner.Err(); err != nil {
			return nil, errors.Wrapf(err, "failed reading %q", l.path)
		}
		l.close()
		return nil, io.EOF
	}
	l.lineNum++
	tokens := strings.Fields(l.scanner.Text())
	seq := make([]int32, len(tokens))
	for i, token := range tokens {
		id, ok := l.vocabulary.ID(token)
		if !ok {
			return nil, errors.Errorf("%s:%d: token %q not in vocabulary", l.path, l.lineNum, token)
		}
		seq[i] = id
	}
	return seq, nil
}

func (l *Lines) close() {
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			klog.Warningf("failed to close %q: %v", l.path, err)
		}
		l.file = nil
	}
}
