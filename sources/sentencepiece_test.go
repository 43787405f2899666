package sources

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNewSentencePieceValidation tests constructor validation; tokenization
// itself needs a real model file and is covered by go-sentencepiece.
func TestNewSentencePieceValidation(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.txt")

	_, err := NewSentencePiece(corpus, filepath.Join(dir, "model.spm"), 0)
	assert.Error(t, err)

	_, err = NewSentencePiece(corpus, filepath.Join(dir, "missing.spm"), 1000)
	assert.Error(t, err)
}
