package hyperstack

// ToLinear converts a zero-based coordinate into the canonical linear plane
// index, where the channel varies fastest, then depth, then frame:
//
//	linear = t·nC·nZ + z·nC + c
//
// It fails only when nC or nZ is not positive.
func ToLinear(c, z, t, nC, nZ int) (int, error) {
	if err := checkLinearExtents(nC, nZ); err != nil {
		return 0, err
	}
	return t*nC*nZ + z*nC + c, nil
}

// FromLinear is the inverse of ToLinear.
func FromLinear(linear, nC, nZ int) (Coordinate, error) {
	if err := checkLinearExtents(nC, nZ); err != nil {
		return Coordinate{}, err
	}
	if linear < 0 {
		return Coordinate{}, NewConfigurationError("linear index", "negative linear index %d", linear)
	}
	return Coordinate{
		C: linear % nC,
		Z: (linear / nC) % nZ,
		T: linear / (nC * nZ),
	}, nil
}

// ToLinear1 is the one-based form of ToLinear.
func ToLinear1(c, z, t, nC, nZ int) (int, error) {
	linear, err := ToLinear(c, z, t, nC, nZ)
	if err != nil {
		return 0, err
	}
	return linear + 1, nil
}

// FromLinear1 is the inverse of ToLinear1.
func FromLinear1(linear1, nC, nZ int) (Coordinate, error) {
	return FromLinear(linear1-1, nC, nZ)
}

func checkLinearExtents(nC, nZ int) error {
	if nC <= 0 {
		return NewAxisError("linear index", Channel, "extent must be positive, got %d", nC)
	}
	if nZ <= 0 {
		return NewAxisError("linear index", Depth, "extent must be positive, got %d", nZ)
	}
	return nil
}

// WrapAxis is Wrap for an extent that has not been validated: n < 1 is a
// ConfigurationError naming axis.
func WrapAxis(axis Axis, x, n int) (int, error) {
	if n < 1 {
		return 0, NewAxisError("wrap", axis, "extent must be at least 1, got %d", n)
	}
	return Wrap(x, n), nil
}

// Wrap maps any integer onto [0, n). Negative values wrap from the end, so
// -1 addresses the last index. n must be at least 1; use WrapAxis when it
// may not be.
func Wrap(x, n int) int {
	if n < 1 {
		panic("hyperstack: wrap bound must be at least 1")
	}
	x %= n
	if x < 0 {
		x += n
	}
	return x
}
