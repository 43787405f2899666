package batcher

import (
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/seqbatch/sources"
	"github.com/pkg/errors"
)

// columnWriter is the storage strategy for one time-step's token columns.
// The rest of the batcher is agnostic to whether tokens are materialized as
// one-hot matrices or kept as id vectors.
type columnWriter interface {
	// setColumn writes the token id into the given batch lane.
	// sources.PadID produces the all-zero column.
	setColumn(lane int, id int32)
	// tensor returns the backing tensor, reused across calls.
	tensor() *tensors.Tensor
}

// denseColumns materializes one-hot columns in a (vocabSize, batchSize)
// float matrix. Token id t occupies row t-1: ids are 1-based with the pad id
// 0 mapping to an all-zero column.
type denseColumns struct {
	t          *tensors.Tensor
	rows, cols int
}

func newDenseColumns(dtype dtypes.DType, rows, cols int) (*denseColumns, error) {
	switch dtype {
	case dtypes.Float32, dtypes.Float64:
	default:
		return nil, errors.Errorf("unsupported element type %s for dense one-hot columns", dtype)
	}
	return &denseColumns{
		t:    tensors.FromShape(shapes.Make(dtype, rows, cols)),
		rows: rows,
		cols: cols,
	}, nil
}

func (d *denseColumns) setColumn(lane int, id int32) {
	switch d.t.DType() {
	case dtypes.Float32:
		writeOneHot[float32](d.t, d.rows, d.cols, lane, id)
	case dtypes.Float64:
		writeOneHot[float64](d.t, d.rows, d.cols, lane, id)
	}
}

func (d *denseColumns) tensor() *tensors.Tensor { return d.t }

func writeOneHot[T float32 | float64](t *tensors.Tensor, rows, cols, lane int, id int32) {
	tensors.MutableFlatData(t, func(flat []T) {
		for r := range rows {
			flat[r*cols+lane] = 0
		}
		if id != sources.PadID {
			flat[(int(id)-1)*cols+lane] = 1
		}
	})
}

// sparseColumns keeps tokens as a (batchSize,) Int32 id vector — the form an
// embedding lookup consumes directly. Pad lanes hold sources.PadID.
type sparseColumns struct {
	t *tensors.Tensor
}

func newSparseColumns(cols int) *sparseColumns {
	return &sparseColumns{t: tensors.FromShape(shapes.Make(dtypes.Int32, cols))}
}

func (s *sparseColumns) setColumn(lane int, id int32) {
	tensors.MutableFlatData(s.t, func(flat []int32) {
		flat[lane] = id
	})
}

func (s *sparseColumns) tensor() *tensors.Tensor { return s.t }

// newColumnWriter builds the storage backend selected by cfg for a vocabulary
// of vocabSize ids (EOS included).
func newColumnWriter(cfg *Config, vocabSize int) (columnWriter, error) {
	if cfg.Dense {
		return newDenseColumns(cfg.DType, vocabSize, cfg.BatchSize)
	}
	return newSparseColumns(cfg.BatchSize), nil
}

// cloneTensor returns an owned copy of t.
func cloneTensor(t *tensors.Tensor) *tensors.Tensor {
	dims := t.Shape().Dimensions
	switch t.DType() {
	case dtypes.Float32:
		return tensors.FromFlatDataAndDimensions(tensors.MustCopyFlatData[float32](t), dims...)
	case dtypes.Float64:
		return tensors.FromFlatDataAndDimensions(tensors.MustCopyFlatData[float64](t), dims...)
	case dtypes.Int32:
		return tensors.FromFlatDataAndDimensions(tensors.MustCopyFlatData[int32](t), dims...)
	default:
		panic(errors.Errorf("cloneTensor: unsupported dtype %s", t.DType()))
	}
}
