// Package vocab builds and queries token vocabularies for the seqbatch data
// sources.
//
// A vocabulary maps token strings to positive integer ids, assigned in
// first-seen order starting at 1. Id 0 is reserved for padding and is never
// assigned to a token; id MaxToken()+1 is reserved for the end-of-sequence
// marker inserted by the batcher. Tokens are NFC-normalized before lookup so
// that visually identical strings with different codepoint compositions share
// one id.
package vocab

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gomlx/seqbatch/internal/files"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// Vocabulary is a token→id mapping with first-seen-order id assignment.
// It is not safe for concurrent mutation.
type Vocabulary struct {
	ids    map[string]int32
	tokens []string // tokens[id-1] is the token for id.
}

// New returns an empty vocabulary.
func New() *Vocabulary {
	return &Vocabulary{ids: make(map[string]int32)}
}

// Add returns the id for token, assigning the next free id if the token was
// not seen before. Duplicate tokens keep their first assigned id.
func (v *Vocabulary) Add(token string) int32 {
	token = norm.NFC.String(token)
	if id, ok := v.ids[token]; ok {
		return id
	}
	v.tokens = append(v.tokens, token)
	id := int32(len(v.tokens))
	v.ids[token] = id
	return id
}

// ID returns the id for token, or false if the token is unknown.
func (v *Vocabulary) ID(token string) (int32, bool) {
	id, ok := v.ids[norm.NFC.String(token)]
	return id, ok
}

// Token returns the token string for id, or false if id was never assigned.
func (v *Vocabulary) Token(id int32) (string, bool) {
	if id < 1 || int(id) > len(v.tokens) {
		return "", false
	}
	return v.tokens[id-1], true
}

// Size returns the number of distinct tokens.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// MaxToken returns the largest assigned token id, equal to Size().
func (v *Vocabulary) MaxToken() int32 { return int32(len(v.tokens)) }

// EosID returns the reserved end-of-sequence id, MaxToken()+1.
// It changes if more tokens are added, so freeze the vocabulary before
// handing it to a batcher.
func (v *Vocabulary) EosID() int32 { return v.MaxToken() + 1 }

// FromReader builds a vocabulary from whitespace-delimited tokens, one record
// per line. Ids are assigned in first-seen order starting at 1.
func FromReader(r io.Reader) (*Vocabulary, error) {
	v := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, token := range strings.Fields(scanner.Text()) {
			v.Add(token)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan vocabulary input")
	}
	return v, nil
}

// FromFile builds a vocabulary from the text file at path.
// See FromReader for the format.
func FromFile(path string) (*Vocabulary, error) {
	f, err := files.Open(path)
	if err != nil {
		return nil, errors.WithMessage(err, "while loading vocabulary")
	}
	defer func() { _ = f.Close() }()
	v, err := FromReader(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "while loading vocabulary from %q", path)
	}
	return v, nil
}

// Save writes the vocabulary, one token per line in id order. Loading the
// result with FromReader reproduces the same token→id assignment.
func (v *Vocabulary) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, token := range v.tokens {
		if _, err := fmt.Fprintln(bw, token); err != nil {
			return errors.Wrap(err, "failed to write vocabulary")
		}
	}
	return errors.Wrap(bw.Flush(), "failed to flush vocabulary")
}
