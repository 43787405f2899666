package sources

import (
	"io"
	"os"

	"github.com/gomlx/seqbatch/internal/files"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// parquetRow is the row shape Parquet reads: a single list column of ids.
type parquetRow struct {
	IDs []int32 `parquet:"ids,list"`
}

const parquetChunkRows = 256

// Parquet is a Source streaming token id sequences from a parquet file with
// an "ids" list column, one sequence per row.
type Parquet struct {
	maxToken int32
	file     *os.File
	reader   *parquet.GenericReader[parquetRow]
	path     string
	buf      []parquetRow
	pos, n   int
	rowNum   int
	eof      bool
}

// NewParquet opens the parquet file at path as a Source. maxToken must be
// supplied (typically from the vocabulary the ids were produced with) since
// parquet rows carry no vocabulary metadata.
func NewParquet(path string, maxToken int32) (*Parquet, error) {
	if maxToken <= 0 {
		return nil, errors.Errorf("maxToken must be positive, got %d", maxToken)
	}
	f, err := files.Open(path)
	if err != nil {
		return nil, err
	}
	return &Parquet{
		maxToken: maxToken,
		file:     f,
		reader:   parquet.NewGenericReader[parquetRow](f),
		path:     path,
		buf:      make([]parquetRow, parquetChunkRows),
	}, nil
}

// MaxToken implements Source.
func (p *Parquet) MaxToken() int32 { return p.maxToken }

// Next implements Source.
func (p *Parquet) Next() ([]int32, error) {
	if p.eof {
		return nil, io.EOF
	}
	if p.pos >= p.n {
		n, err := p.reader.Read(p.buf)
		if n == 0 {
			if err != nil && err != io.EOF {
				return nil, errors.Wrapf(err, "failed reading parquet rows from %q", p.path)
			}
			p.eof = true
			p.close()
			return nil, io.EOF
		}
		p.pos, p.n = 0, n
	}
	row := p.buf[p.pos]
	p.pos++
	p.rowNum++
	for _, id := range row.IDs {
		if id < 1 || id > p.maxToken {
			return nil, errors.Errorf("%s: row %d: token id %d out of range [1, %d]", p.path, p.rowNum, id, p.maxToken)
		}
	}
	return row.IDs, nil
}

func (p *Parquet) close() {
	if err := p.reader.Close(); err != nil {
		klog.Warningf("failed to close parquet reader for %q: %v", p.path, err)
	}
	if err := p.file.Close(); err != nil {
		klog.Warningf("failed to close %q: %v", p.path, err)
	}
}
