package tensor

import (
	"fmt"
)

// DType represents the data type of tensor elements
type DType int

const (
	Float32 DType = iota
	Int32
)

func (dt DType) String() string {
	switch dt {
	case Float32:
		return "Float32"
	case Int32:
		return "Int32"
	default:
		return "Unknown"
	}
}

// Size returns the size of one element in bytes
func (dt DType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	default:
		return 0
	}
}

// Tensor is a dense, CPU-resident n-dimensional array.
// Data is either []float32 or []int32 depending on DType.
type Tensor struct {
	Shape    []int
	DType    DType
	Data     interface{}
	NumElems int
}

// New creates a tensor with the given shape and data.
// If data is nil, the tensor is zero-initialized.
func New(shape []int, dtype DType, data interface{}) (*Tensor, error) {
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}

	t := &Tensor{
		Shape:    append([]int(nil), shape...),
		DType:    dtype,
		NumElems: n,
	}

	switch dtype {
	case Float32:
		if data == nil {
			t.Data = make([]float32, n)
			return t, nil
		}
		d, ok := data.([]float32)
		if !ok {
			return nil, fmt.Errorf("expected []float32 data for Float32 tensor, got %T", data)
		}
		if len(d) != n {
			return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(d), shape, n)
		}
		t.Data = d
	case Int32:
		if data == nil {
			t.Data = make([]int32, n)
			return t, nil
		}
		d, ok := data.([]int32)
		if !ok {
			return nil, fmt.Errorf("expected []int32 data for Int32 tensor, got %T", data)
		}
		if len(d) != n {
			return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(d), shape, n)
		}
		t.Data = d
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", dtype)
	}

	return t, nil
}

// Zeros creates a zero-initialized tensor
func Zeros(shape []int, dtype DType) (*Tensor, error) {
	return New(shape, dtype, nil)
}

// Float32s returns the underlying float32 data slice
func (t *Tensor) Float32s() []float32 {
	return t.Data.([]float32)
}

// Int32s returns the underlying int32 data slice
func (t *Tensor) Int32s() []int32 {
	return t.Data.([]int32)
}

// Clone returns a deep copy of the tensor
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{
		Shape:    append([]int(nil), t.Shape...),
		DType:    t.DType,
		NumElems: t.NumElems,
	}
	switch t.DType {
	case Float32:
		d := make([]float32, t.NumElems)
		copy(d, t.Float32s())
		c.Data = d
	case Int32:
		d := make([]int32, t.NumElems)
		copy(d, t.Int32s())
		c.Data = d
	}
	return c
}

// Reshape returns a view of the tensor with a new shape.
// The underlying data slice is shared with the original.
func (t *Tensor) Reshape(shape []int) (*Tensor, error) {
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if n != t.NumElems {
		return nil, fmt.Errorf("cannot reshape %v (%d elements) to %v (%d elements)", t.Shape, t.NumElems, shape, n)
	}
	return &Tensor{
		Shape:    append([]int(nil), shape...),
		DType:    t.DType,
		Data:     t.Data,
		NumElems: t.NumElems,
	}, nil
}

// SameShape reports whether two tensors have identical shapes
func (t *Tensor) SameShape(other *Tensor) bool {
	if len(t.Shape) != len(other.Shape) {
		return false
	}
	for i, dim := range t.Shape {
		if dim != other.Shape[i] {
			return false
		}
	}
	return true
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, dtype=%s)", t.Shape, t.DType)
}

func numElements(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("shape cannot be empty")
	}
	n := 1
	for _, dim := range shape {
		if dim <= 0 {
			return 0, fmt.Errorf("invalid dimension %d in shape %v", dim, shape)
		}
		n *= dim
	}
	return n, nil
}
