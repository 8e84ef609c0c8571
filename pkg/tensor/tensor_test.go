package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatMul(t *testing.T) {
	a := New(2, 3)
	b := New(3, 2)
	// a = [[1 2 3], [4 5 6]]
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			a.Set(float64(i*3+j+1), i, j)
		}
	}
	// b = [[7 8], [9 10], [11 12]]
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			b.Set(float64(i*2+j+7), i, j)
		}
	}

	out := MatMul(a, b)
	assert.Equal(t, []int{2, 2}, out.Shape())
	assert.Equal(t, 58.0, out.At(0, 0))
	assert.Equal(t, 64.0, out.At(0, 1))
	assert.Equal(t, 139.0, out.At(1, 0))
	assert.Equal(t, 154.0, out.At(1, 1))
}

func TestMatMulShapeMismatch(t *testing.T) {
	a := New(2, 3)
	b := New(2, 3)
	assert.Panics(t, func() { MatMul(a, b) })
}

func TestTranspose(t *testing.T) {
	a := New(2, 3)
	a.Set(1.0, 0, 1)
	a.Set(2.0, 1, 2)

	out := Transpose(a)
	assert.Equal(t, []int{3, 2}, out.Shape())
	assert.Equal(t, 1.0, out.At(1, 0))
	assert.Equal(t, 2.0, out.At(2, 1))
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	x := New(3, 4)
	x.Set(100.0, 0, 0)
	x.Set(-50.0, 1, 2)
	x.Set(3.0, 2, 3)

	out := Softmax(x)
	for i := 0; i < 3; i++ {
		sum := 0.0
		for j := 0; j < 4; j++ {
			v := out.At(i, j)
			assert.False(t, math.IsNaN(v))
			assert.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
	// The large logit dominates its row.
	assert.Greater(t, out.At(0, 0), 0.99)
}

func TestAddAndScale(t *testing.T) {
	a := New(2, 2)
	b := New(2, 2)
	a.Set(1.5, 0, 0)
	b.Set(2.5, 0, 0)

	sum := Add(a, b)
	assert.Equal(t, 4.0, sum.At(0, 0))

	scaled := Scale(sum, 0.5)
	assert.Equal(t, 2.0, scaled.At(0, 0))
}

func TestGELU(t *testing.T) {
	x := New(1, 3)
	x.Set(-10.0, 0, 0)
	x.Set(0.0, 0, 1)
	x.Set(10.0, 0, 2)

	out := GELU(x)
	assert.InDelta(t, 0.0, out.At(0, 0), 1e-3)
	assert.Equal(t, 0.0, out.At(0, 1))
	assert.InDelta(t, 10.0, out.At(0, 2), 1e-3)
}

func TestCloneIsIndependent(t *testing.T) {
	a := New(2, 2)
	a.Set(1.0, 0, 0)
	c := a.Clone()
	c.Set(9.0, 0, 0)
	assert.Equal(t, 1.0, a.At(0, 0))
	assert.Equal(t, 9.0, c.At(0, 0))
}

func TestRow(t *testing.T) {
	a := New(2, 3)
	a.Set(5.0, 1, 1)
	row := a.Row(1)
	assert.Equal(t, []float64{0, 5, 0}, row)
}
