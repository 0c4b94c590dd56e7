// Package reader resolves definition elements against a firmware image.
//
// Every method takes a warning sink and reports per-element failures there
// instead of returning errors: an element that cannot be read is omitted,
// never defaulted to zero.
package reader

import (
	"github.com/tosih/xdf-exporter/pkg/firmware"
	"github.com/tosih/xdf-exporter/pkg/models"
	"github.com/tosih/xdf-exporter/pkg/xdf"
)

// Reader reads constants, flags and tables from one image. It holds no
// mutable state and is safe for concurrent use.
type Reader struct {
	img         *firmware.Image
	base        xdf.BaseOffset
	orientation models.Orientation
}

// New returns a Reader. orientation is the default Z storage order for
// tables that do not declare one.
func New(img *firmware.Image, base xdf.BaseOffset, orientation models.Orientation) *Reader {
	if !orientation.Valid() {
		orientation = models.RowMajor
	}
	return &Reader{img: img, base: base, orientation: orientation}
}

// Image returns the image the reader reads from.
func (r *Reader) Image() *firmware.Image { return r.img }

// Base returns the base-offset rule applied to raw addresses.
func (r *Reader) Base() xdf.BaseOffset { return r.base }

// read decodes one value at the raw definition address plus delta bytes.
func (r *Reader) read(spec models.AddressSpec, delta int64) (int64, int64, error) {
	off := xdf.AddOffset(r.base.FileOffset(spec.Raw), delta)
	raw, err := r.img.Read(off, spec)
	return raw, off, err
}

func (r *Reader) outOfRange(sink *models.Sink, ref models.Ref, spec models.AddressSpec, off int64) {
	sink.Add(models.KindOutOfRange, models.SeverityWarning, ref,
		"address 0x%X (base %s) maps to file offset %d, outside the %d-byte image; value omitted",
		spec.Raw, r.base, off, r.img.Size())
}

// Constant reads and converts one scalar.
func (r *Reader) Constant(c *xdf.Constant, ref models.Ref, sink *models.Sink) (models.Constant, bool) {
	raw, off, err := r.read(c.Address, 0)
	if err != nil {
		r.outOfRange(sink, ref, c.Address, off)
		return models.Constant{}, false
	}

	conv := newConversion(c.Formula)
	value := conv.apply(float64(raw))
	conv.report(sink, ref, "")

	out := models.Constant{
		Title:         c.Title,
		Category:      c.Category,
		Units:         c.Units,
		Decimals:      c.Decimals,
		Address:       c.Address,
		FileOffset:    off,
		Formula:       c.Formula,
		Raw:           raw,
		Value:         value,
		FormulaFailed: conv.failed(),
	}
	if c.Min != nil && value < *c.Min {
		sink.Add(models.KindValueRange, models.SeverityWarning, ref,
			"value %g is below the declared minimum %g", value, *c.Min)
	}
	if c.Max != nil && value > *c.Max {
		sink.Add(models.KindValueRange, models.SeverityWarning, ref,
			"value %g is above the declared maximum %g", value, *c.Max)
	}
	return out, true
}

// Flag reads one byte and tests it against the flag mask.
func (r *Reader) Flag(f *xdf.Flag, ref models.Ref, sink *models.Sink) (models.Flag, bool) {
	spec := f.Address
	spec.Width = 8
	spec.Signed = false

	raw, off, err := r.read(spec, 0)
	if err != nil {
		r.outOfRange(sink, ref, spec, off)
		return models.Flag{}, false
	}
	return models.Flag{
		Title:      f.Title,
		Category:   f.Category,
		Address:    spec,
		FileOffset: off,
		Mask:       f.Mask,
		Raw:        uint8(raw),
		Set:        uint8(raw)&f.Mask != 0,
	}, true
}
