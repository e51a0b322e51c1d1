package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	assert.Equal(t, 1, Shape{}.NumElements(), "empty shape is a scalar")
	assert.Equal(t, 6, Shape{2, 3}.NumElements())
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
}

func TestShapeComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Equal(t, []int{1}, Shape{7}.ComputeStrides())
	assert.Empty(t, Shape{}.ComputeStrides())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b, want Shape
		needs      bool
	}{
		{Shape{2, 3}, Shape{2, 3}, Shape{2, 3}, false},
		{Shape{2, 3}, Shape{3}, Shape{2, 3}, true},
		{Shape{2, 1}, Shape{1, 3}, Shape{2, 3}, true},
		{Shape{5}, Shape{1}, Shape{5}, true},
		{Shape{4, 1, 6}, Shape{7, 1}, Shape{4, 7, 6}, true},
	}
	for _, tc := range tests {
		got, needs, err := BroadcastShapes(tc.a, tc.b)
		require.NoError(t, err)
		assert.True(t, got.Equal(tc.want), "%v x %v -> %v, want %v", tc.a, tc.b, got, tc.want)
		assert.Equal(t, tc.needs, needs)
	}

	_, _, err := BroadcastShapes(Shape{2, 3}, Shape{4})
	assert.Error(t, err)
}

func TestRawTensorRefCounting(t *testing.T) {
	r := MustNewRaw(Shape{4}, Float64, CPU)
	assert.True(t, r.IsUnique())

	view := r.WithShape(Shape{2, 2})
	assert.False(t, r.IsUnique(), "a view shares the buffer")

	// Views alias memory.
	r.AsFloat64()[3] = 42
	assert.Equal(t, 42.0, view.AsFloat64()[3])
}

func TestForceNonUnique(t *testing.T) {
	r := MustNewRaw(Shape{2}, Float64, CPU)
	undo := r.ForceNonUnique()
	assert.False(t, r.IsUnique())
	undo()
	assert.True(t, r.IsUnique())
}

func TestClone_Deep(t *testing.T) {
	r := MustNewRaw(Shape{3}, Float64, CPU)
	r.AsFloat64()[0] = 1
	c := r.Clone()
	c.AsFloat64()[0] = 9
	assert.Equal(t, 1.0, r.AsFloat64()[0])
	assert.True(t, r.IsUnique())
	assert.True(t, c.IsUnique())
}

func TestAsFloat64_DTypeMismatchPanics(t *testing.T) {
	r := MustNewRaw(Shape{2}, Float32, CPU)
	assert.Panics(t, func() { r.AsFloat64() })
}

func TestFromSliceAndAccessors(t *testing.T) {
	b := stubBackend{}
	tt, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3}, b)
	require.NoError(t, err)

	assert.Equal(t, 6.0, tt.At(1, 2))
	tt.Set(9, 0, 1)
	assert.Equal(t, 9.0, tt.At(0, 1))
	assert.Panics(t, func() { tt.At(2, 0) })

	_, err = FromSlice([]float64{1, 2}, Shape{3}, b)
	assert.Error(t, err)
}

func TestLinspaceSlice(t *testing.T) {
	xs := LinspaceSlice(-1.0, 1.0, 5)
	assert.Equal(t, []float64{-1, -0.5, 0, 0.5, 1}, xs)
}

// stubBackend provides Device()/Name() for creation helpers; tests here never
// dispatch compute.
type stubBackend struct{ Backend }

func (stubBackend) Device() Device { return CPU }
func (stubBackend) Name() string   { return "stub" }
