package hyperstack

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaneCopiesInput(t *testing.T) {
	pix := []uint8{1, 2, 3, 4}
	p, err := NewUint8Plane(2, 2, pix)
	require.NoError(t, err)

	pix[0] = 99
	assert.Equal(t, 1.0, p.Value(0))

	out := p.Uint8s()
	out[1] = 99
	assert.Equal(t, 2.0, p.At(1, 0))
}

func TestPlaneSizeMismatch(t *testing.T) {
	_, err := NewUint16Plane(3, 3, make([]uint16, 8))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewPlane(ElementType(42), 1, 1)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestFromFloat64sClampsIntegers(t *testing.T) {
	p, err := FromFloat64s(Uint8, 4, 1, []float64{-3, 2.5, 300, math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 3, 255, 0}, p.Uint8s())

	f, err := FromFloat64s(Float32, 2, 1, []float64{-3.25, 1e6})
	require.NoError(t, err)
	assert.Equal(t, []float32{-3.25, 1e6}, f.Float32s())
}

func TestConvertWideningIsExact(t *testing.T) {
	p, err := NewUint8Plane(3, 1, []uint8{0, 128, 255})
	require.NoError(t, err)

	u16, err := p.Convert(Uint16)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 128, 255}, u16.Uint16s())

	f32, err := u16.Convert(Float32)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 128, 255}, f32.Float32s())

	same, err := f32.Convert(Float32)
	require.NoError(t, err)
	assert.Same(t, f32, same)
}

func TestPlaneBytesRoundTrip(t *testing.T) {
	planes := []*Plane{}
	u8, _ := NewUint8Plane(2, 2, []uint8{0, 1, 254, 255})
	u16, _ := NewUint16Plane(2, 2, []uint16{0, 1, 65534, 65535})
	i32, _ := NewInt32Plane(2, 2, []int32{math.MinInt32, -1, 0, math.MaxInt32})
	f32, _ := NewFloat32Plane(2, 2, []float32{-1.5, 0, float32(math.Inf(1)), 3.25})
	planes = append(planes, u8, u16, i32, f32)

	for _, p := range planes {
		got, err := PlaneFromBytes(p.Type(), p.Width(), p.Height(), p.Bytes())
		require.NoError(t, err, p.Type().String())
		assert.True(t, p.Equal(got), p.Type().String())
		assert.Equal(t, p.Digest(), got.Digest())
	}

	_, err := PlaneFromBytes(Uint16, 2, 2, make([]byte, 7))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRowAndColumn(t *testing.T) {
	p, err := NewUint16Plane(3, 2, []uint16{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, p.Row(1))
	assert.Equal(t, []float64{2, 5}, p.Column(1))
}

func TestParseElementType(t *testing.T) {
	for in, want := range map[string]ElementType{
		"8-bit": Uint8, "uint16": Uint16, "32-bit": Float32, "int32": Int32,
	} {
		got, err := ParseElementType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseElementType("rgb")
	assert.Error(t, err)
}
