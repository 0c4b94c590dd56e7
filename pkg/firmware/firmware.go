// Package firmware loads ECU firmware images and decodes fixed-width
// integers from them.
//
// An Image is read-only once loaded: no extraction path writes back to it.
package firmware

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/tosih/xdf-exporter/pkg/models"
	"golang.org/x/xerrors"
)

// Image is an in-memory firmware image.
type Image struct {
	name   string
	data   []byte
	md5    string
	sha256 string
}

// Load reads the firmware image at path.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("firmware: could not read image %q: %w", path, err)
	}
	return newImage(filepath.Base(path), data), nil
}

// New creates an image from a copy of data.
func New(name string, data []byte) *Image {
	buf := make([]byte, len(data))
	copy(buf, data)
	return newImage(name, buf)
}

func newImage(name string, data []byte) *Image {
	m := md5.Sum(data)
	s := sha256.Sum256(data)
	return &Image{
		name:   name,
		data:   data,
		md5:    hex.EncodeToString(m[:]),
		sha256: hex.EncodeToString(s[:]),
	}
}

// Name returns the base name the image was loaded from.
func (img *Image) Name() string { return img.name }

// Size returns the image length in bytes.
func (img *Image) Size() int { return len(img.data) }

// MD5 returns the hex MD5 digest of the image, as the reference tool reports it.
func (img *Image) MD5() string { return img.md5 }

// SHA256 returns the hex SHA-256 digest of the image.
func (img *Image) SHA256() string { return img.sha256 }

// Identity returns the image fingerprint.
func (img *Image) Identity() models.Identity {
	return models.Identity{
		Name:   img.name,
		Size:   len(img.data),
		MD5:    img.md5,
		SHA256: img.sha256,
	}
}

// Contains reports whether the n-byte span starting at off lies within the image.
func (img *Image) Contains(off int64, n int) bool {
	size := int64(len(img.data))
	return off >= 0 && n >= 0 && off <= size && int64(n) <= size-off
}

// Bytes returns a copy of the n bytes at off.
func (img *Image) Bytes(off int64, n int) ([]byte, error) {
	if !img.Contains(off, n) {
		return nil, &OutOfRangeError{Offset: off, Length: n, Size: len(img.data)}
	}
	out := make([]byte, n)
	copy(out, img.data[off:off+int64(n)])
	return out, nil
}

// Read decodes the integer described by spec at file offset off.
// The raw address of spec is ignored; off is the already translated offset.
func (img *Image) Read(off int64, spec models.AddressSpec) (int64, error) {
	n := spec.Bytes()
	if !img.Contains(off, n) {
		return 0, &OutOfRangeError{Offset: off, Length: n, Size: len(img.data)}
	}
	return Decode(img.data[off:off+int64(n)], spec.Width, spec.Signed, spec.LittleEndian)
}
