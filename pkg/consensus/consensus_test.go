package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperstacks/pkg/hyperstack"
)

func uint8Stack(t *testing.T) *hyperstack.Hyperstack {
	t.Helper()
	pix := make([]uint8, 256)
	for i := range pix {
		pix[i] = uint8(i)
	}
	p, err := hyperstack.NewUint8Plane(16, 16, pix)
	require.NoError(t, err)
	return hyperstack.Single(p)
}

func float32Stack(t *testing.T) *hyperstack.Hyperstack {
	t.Helper()
	p, err := hyperstack.NewFloat32Plane(16, 16, make([]float32, 256))
	require.NoError(t, err)
	return hyperstack.Single(p)
}

func TestPromoteUint8AndFloat32(t *testing.T) {
	a, b := uint8Stack(t), float32Stack(t)

	out, err := Promote([]*hyperstack.Hyperstack{a, b}, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, hyperstack.Float32, out[0].Type())
	assert.Same(t, b, out[1], "inputs already at the target are untouched")

	got := out[0].PlaneAt(0).Float32s()
	for i, v := range got {
		assert.Equal(t, float32(i), v)
	}
	assert.Equal(t, hyperstack.Uint8, a.Type(), "input is not mutated")
}

func TestPromoteUint8AndUint16(t *testing.T) {
	p, err := hyperstack.NewUint16Plane(16, 16, make([]uint16, 256))
	require.NoError(t, err)
	out, err := Promote([]*hyperstack.Hyperstack{uint8Stack(t), hyperstack.Single(p)}, DefaultRanking)
	require.NoError(t, err)
	assert.Equal(t, hyperstack.Uint16, out[0].Type())
	assert.Equal(t, uint16(255), out[0].PlaneAt(0).Uint16s()[255])
}

func TestPromoteRejectsUnrankedType(t *testing.T) {
	p, err := hyperstack.NewInt32Plane(2, 2, []int32{1, 2, 3, 4})
	require.NoError(t, err)

	_, err = Promote([]*hyperstack.Hyperstack{uint8Stack(t), hyperstack.Single(p)}, nil)
	var mismatch *hyperstack.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, hyperstack.Int32, mismatch.Type)
	assert.ErrorIs(t, err, hyperstack.ErrTypeMismatch)

	custom := Ranking{hyperstack.Uint8, hyperstack.Int32}
	target, err := custom.Target(hyperstack.Int32, hyperstack.Uint8)
	require.NoError(t, err)
	assert.Equal(t, hyperstack.Int32, target)
}

func TestParseRanking(t *testing.T) {
	r, err := ParseRanking([]string{"uint8", " uint16 ", "int32"})
	require.NoError(t, err)
	assert.Equal(t, "uint8 < uint16 < int32", r.String())

	_, err = ParseRanking([]string{"uint8", "uint8"})
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)

	_, err = ParseRanking(nil)
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)
}

func TestRankingRejectsLossyOrder(t *testing.T) {
	tests := map[string]Ranking{
		"int32 below float32":  {hyperstack.Uint8, hyperstack.Uint16, hyperstack.Int32, hyperstack.Float32},
		"float32 below int32":  {hyperstack.Float32, hyperstack.Uint8, hyperstack.Int32},
		"float32 below uint8":  {hyperstack.Float32, hyperstack.Uint8},
		"uint16 below uint8":   {hyperstack.Uint16, hyperstack.Uint8},
		"invalid element type": {hyperstack.Uint8, hyperstack.ElementType(0)},
	}
	for name, r := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, r.Validate(), hyperstack.ErrConfiguration)
		})
	}

	for _, r := range []Ranking{DefaultRanking, {hyperstack.Uint8, hyperstack.Uint16, hyperstack.Int32}} {
		assert.NoError(t, r.Validate(), r.String())
	}
}

func TestPromoteRefusesLossyRanking(t *testing.T) {
	p, err := hyperstack.NewInt32Plane(1, 1, []int32{16777217})
	require.NoError(t, err)
	ints := hyperstack.Single(p)

	lossy := Ranking{hyperstack.Uint8, hyperstack.Uint16, hyperstack.Int32, hyperstack.Float32}
	_, err = Promote([]*hyperstack.Hyperstack{ints, float32Stack(t)}, lossy)
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)

	_, err = Promote([]*hyperstack.Hyperstack{float32Stack(t), uint8Stack(t)}, Ranking{hyperstack.Float32, hyperstack.Uint8, hyperstack.Int32})
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)

	_, err = ParseRanking([]string{"uint8", "int32", "float32"})
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)

	out, err := Promote([]*hyperstack.Hyperstack{uint8Stack(t), ints}, Ranking{hyperstack.Uint8, hyperstack.Int32})
	require.NoError(t, err)
	assert.Equal(t, hyperstack.Int32, out[0].Type())
	assert.Equal(t, []int32{16777217}, out[1].PlaneAt(0).Int32s())
}
