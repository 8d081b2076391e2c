package hyperstack

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 fingerprint of pixel content.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Separate key spaces keep a one-plane stack from colliding with the
// plane it wraps.
var (
	planeDigestKey = [32]byte{
		'h', 'y', 'p', 'e', 'r', 's', 't', 'a', 'c', 'k', 's', '.', 'p', 'l', 'a', 'n', 'e',
	}
	stackDigestKey = [32]byte{
		'h', 'y', 'p', 'e', 'r', 's', 't', 'a', 'c', 'k', 's', '.', 's', 't', 'a', 'c', 'k',
	}
)

func newHasher(key [32]byte) *blake3.Hasher {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		// Only a wrong key length fails, and the key is fixed-size.
		panic("hyperstack: blake3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

// Digest hashes the plane's shape, type and little-endian pixels.
func (p *Plane) Digest() Digest {
	hasher := newHasher(planeDigestKey)
	writePlane(hasher, p)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}

// Digest hashes the stack's shape and every plane in linear order. Two
// stacks with equal digests are pixel-identical.
func (h *Hyperstack) Digest() Digest {
	hasher := newHasher(stackDigestKey)
	var header [4 * 8]byte
	binary.LittleEndian.PutUint64(header[0:], uint64(h.extents.C))
	binary.LittleEndian.PutUint64(header[8:], uint64(h.extents.Z))
	binary.LittleEndian.PutUint64(header[16:], uint64(h.extents.T))
	binary.LittleEndian.PutUint64(header[24:], uint64(len(h.planes)))
	hasher.Write(header[:])
	for _, p := range h.planes {
		writePlane(hasher, p)
	}
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}

func writePlane(hasher *blake3.Hasher, p *Plane) {
	var header [3 * 8]byte
	binary.LittleEndian.PutUint64(header[0:], uint64(p.width))
	binary.LittleEndian.PutUint64(header[8:], uint64(p.height))
	binary.LittleEndian.PutUint64(header[16:], uint64(p.typ))
	hasher.Write(header[:])
	hasher.Write(p.Bytes())
}
