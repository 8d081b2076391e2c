// Package stackfile stores a hyperstack and its annotations as a single
// CBOR document. Planes are compressed independently and the stack digest
// is checked on read, so a file that decodes is pixel-identical to the
// stack that was written.
package stackfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sync/errgroup"

	"hyperstacks/pkg/annotation"
	"hyperstacks/pkg/hyperstack"
)

// Extension is the file suffix used by the command line tool.
const Extension = ".hstk"

const (
	magic   = "hyperstacks"
	version = 1
)

// ErrCorrupt is wrapped by every read error caused by file content rather
// than I/O.
var ErrCorrupt = errors.New("corrupt stack file")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("stackfile: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{MaxArrayElements: 1 << 24}.DecMode()
	if err != nil {
		panic("stackfile: CBOR decoder initialization failed: " + err.Error())
	}
}

type document struct {
	Magic       string                  `cbor:"1,keyasint"`
	Version     int                     `cbor:"2,keyasint"`
	Width       int                     `cbor:"3,keyasint"`
	Height      int                     `cbor:"4,keyasint"`
	Type        string                  `cbor:"5,keyasint"`
	Extents     [3]int                  `cbor:"6,keyasint"`
	Digest      []byte                  `cbor:"7,keyasint"`
	Annotations []annotation.Annotation `cbor:"8,keyasint,omitempty"`
	Planes      []planeRecord           `cbor:"9,keyasint"`
}

type planeRecord struct {
	Compression Compression `cbor:"1,keyasint"`
	Data        []byte      `cbor:"2,keyasint"`
}

// File is a decoded stack file.
type File struct {
	Stack       *hyperstack.Hyperstack
	Annotations annotation.Set
}

// Write encodes h with its annotations. Planes that do not shrink under c
// are stored raw.
func Write(w io.Writer, h *hyperstack.Hyperstack, anns annotation.Set, c Compression) error {
	if h == nil {
		return errors.New("stackfile: nil stack")
	}
	digest := h.Digest()
	ext := h.Extents()
	doc := document{
		Magic:       magic,
		Version:     version,
		Width:       h.Width(),
		Height:      h.Height(),
		Type:        h.Type().String(),
		Extents:     [3]int{ext.C, ext.Z, ext.T},
		Digest:      digest[:],
		Annotations: anns,
		Planes:      make([]planeRecord, h.Len()),
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range h.Planes() {
		g.Go(func() error {
			raw := p.Bytes()
			data, err := compress(raw, c)
			switch {
			case errors.Is(err, errIncompressible):
				doc.Planes[i] = planeRecord{Compression: None, Data: raw}
			case err != nil:
				return fmt.Errorf("plane %d: %w", i, err)
			default:
				doc.Planes[i] = planeRecord{Compression: c, Data: data}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("stackfile: %w", err)
	}

	if err := encMode.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("stackfile: encoding: %w", err)
	}
	return nil
}

// Read decodes a stack file and verifies its digest.
func Read(r io.Reader) (*File, error) {
	var doc document
	if err := decMode.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrCorrupt, err)
	}
	if doc.Magic != magic {
		return nil, fmt.Errorf("%w: not a stack file", ErrCorrupt)
	}
	if doc.Version != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, doc.Version)
	}
	typ, err := hyperstack.ParseElementType(doc.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	ext := hyperstack.Extents{C: doc.Extents[0], Z: doc.Extents[1], T: doc.Extents[2]}
	if err := ext.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(doc.Planes) != ext.Len() {
		return nil, fmt.Errorf("%w: %s needs %d planes, file has %d", ErrCorrupt, ext, ext.Len(), len(doc.Planes))
	}
	if doc.Width < 1 || doc.Height < 1 {
		return nil, fmt.Errorf("%w: plane size %dx%d", ErrCorrupt, doc.Width, doc.Height)
	}

	size := doc.Width * doc.Height * typ.Size()
	planes := make([]*hyperstack.Plane, len(doc.Planes))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rec := range doc.Planes {
		g.Go(func() error {
			raw, err := decompress(rec.Data, rec.Compression, size)
			if err != nil {
				return fmt.Errorf("%w: plane %d: %v", ErrCorrupt, i, err)
			}
			p, err := hyperstack.PlaneFromBytes(typ, doc.Width, doc.Height, raw)
			if err != nil {
				return fmt.Errorf("%w: plane %d: %v", ErrCorrupt, i, err)
			}
			planes[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h, err := hyperstack.New(doc.Width, doc.Height, typ, ext, planes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	digest := h.Digest()
	if !bytes.Equal(digest[:], doc.Digest) {
		return nil, fmt.Errorf("%w: digest mismatch (file %x, content %s)", ErrCorrupt, doc.Digest, digest)
	}
	return &File{Stack: h, Annotations: doc.Annotations}, nil
}

// WriteFile writes to path atomically through a temporary sibling.
func WriteFile(path string, h *hyperstack.Hyperstack, anns annotation.Set, c Compression) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("stackfile: creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("stackfile: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, h, anns, c); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stackfile: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("stackfile: %w", err)
	}
	return nil
}

// ReadFile opens and decodes path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stackfile: %w", err)
	}
	defer f.Close()
	file, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}
