// Package tensor provides the dense float64 matrices used by the
// transformer forward pass. Data is stored in row-major order.
package tensor

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	// ErrShapeMismatch indicates incompatible shapes for an operation.
	ErrShapeMismatch = errors.New("tensor: shape mismatch")
)

// T is a dense matrix of float64 values.
//
// T is not safe for concurrent mutation. Synchronization must be
// handled by the caller if needed.
type T struct {
	data  []float64
	shape []int
}

// New creates a tensor with the given shape, initialized to zero.
// Panics on an invalid shape; shape errors are programmer bugs, not
// runtime conditions.
func New(shape ...int) *T {
	if len(shape) == 0 {
		panic("tensor: shape cannot be empty")
	}
	size := 1
	for i, dim := range shape {
		if dim <= 0 {
			panic(fmt.Sprintf("tensor: shape[%d] must be positive, got %d", i, dim))
		}
		size *= dim
	}
	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)
	return &T{
		data:  make([]float64, size),
		shape: shapeCopy,
	}
}

// NewRand creates a tensor with values drawn from a normal distribution
// (Box-Muller, stddev 0.02).
func NewRand(shape ...int) *T {
	t := New(shape...)
	for i := 0; i < len(t.data); i += 2 {
		u1, u2 := rand.Float64(), rand.Float64()
		mag := 0.02 * math.Sqrt(-2*math.Log(u1))
		t.data[i] = mag * math.Cos(2*math.Pi*u2)
		if i+1 < len(t.data) {
			t.data[i+1] = mag * math.Sin(2*math.Pi*u2)
		}
	}
	return t
}

// Shape returns a copy of the tensor's shape.
func (t *T) Shape() []int {
	shape := make([]int, len(t.shape))
	copy(shape, t.shape)
	return shape
}

// Dims returns the number of dimensions of the tensor.
func (t *T) Dims() int { return len(t.shape) }

// Size returns the total number of elements.
func (t *T) Size() int { return len(t.data) }

// Data returns the underlying flat data slice. Mutating it mutates the
// tensor.
func (t *T) Data() []float64 { return t.data }

// At returns the element at the given indices.
func (t *T) At(indices ...int) float64 {
	return t.data[t.flatIndex(indices)]
}

// Set stores value at the given indices.
func (t *T) Set(value float64, indices ...int) {
	t.data[t.flatIndex(indices)] = value
}

func (t *T) flatIndex(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: expected %d indices, got %d", len(t.shape), len(indices)))
	}
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dim %d (size %d)", indices[i], i, t.shape[i]))
		}
		idx += indices[i] * stride
		stride *= t.shape[i]
	}
	return idx
}

// Clone returns a deep copy of the tensor.
func (t *T) Clone() *T {
	c := New(t.shape...)
	copy(c.data, t.data)
	return c
}

// Row returns a copy of row i of a 2D tensor.
func (t *T) Row(i int) []float64 {
	if len(t.shape) != 2 {
		panic("tensor: Row requires a 2D tensor")
	}
	cols := t.shape[1]
	row := make([]float64, cols)
	copy(row, t.data[i*cols:(i+1)*cols])
	return row
}

// Add returns a + b element-wise.
func Add(a, b *T) *T {
	if !shapeEqual(a.shape, b.shape) {
		panic(ErrShapeMismatch)
	}
	out := New(a.shape...)
	for i := range a.data {
		out.data[i] = a.data[i] + b.data[i]
	}
	return out
}

// Scale returns a * scalar element-wise.
func Scale(a *T, scalar float64) *T {
	out := New(a.shape...)
	for i := range a.data {
		out.data[i] = a.data[i] * scalar
	}
	return out
}

// MatMul computes the matrix product of two 2D tensors.
func MatMul(a, b *T) *T {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		panic("tensor: MatMul requires 2D tensors")
	}
	m, k := a.shape[0], a.shape[1]
	k2, n := b.shape[0], b.shape[1]
	if k != k2 {
		panic(ErrShapeMismatch)
	}
	out := New(m, n)
	for i := 0; i < m; i++ {
		for l := 0; l < k; l++ {
			av := a.data[i*k+l]
			if av == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				out.data[i*n+j] += av * b.data[l*n+j]
			}
		}
	}
	return out
}

// Transpose returns the transpose of a 2D tensor.
func Transpose(a *T) *T {
	if len(a.shape) != 2 {
		panic("tensor: Transpose requires a 2D tensor")
	}
	rows, cols := a.shape[0], a.shape[1]
	out := New(cols, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.data[j*rows+i] = a.data[i*cols+j]
		}
	}
	return out
}

// GELU applies the Gaussian Error Linear Unit activation element-wise
// (tanh approximation).
func GELU(x *T) *T {
	out := New(x.shape...)
	for i, v := range x.data {
		inner := math.Sqrt(2.0/math.Pi) * (v + 0.044715*v*v*v)
		out.data[i] = 0.5 * v * (1.0 + math.Tanh(inner))
	}
	return out
}

// Softmax applies a numerically stable softmax along the last dimension
// of a 2D tensor.
func Softmax(x *T) *T {
	if len(x.shape) != 2 {
		panic("tensor: Softmax requires a 2D tensor")
	}
	rows, cols := x.shape[0], x.shape[1]
	out := New(rows, cols)
	for i := 0; i < rows; i++ {
		maxVal := x.data[i*cols]
		for j := 1; j < cols; j++ {
			if v := x.data[i*cols+j]; v > maxVal {
				maxVal = v
			}
		}
		sum := 0.0
		for j := 0; j < cols; j++ {
			e := math.Exp(x.data[i*cols+j] - maxVal)
			out.data[i*cols+j] = e
			sum += e
		}
		for j := 0; j < cols; j++ {
			out.data[i*cols+j] /= sum
		}
	}
	return out
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
