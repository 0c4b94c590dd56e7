// Package validate flags extraction results that look wrong.
//
// A zero-filled table is the typical symptom of a definition applied to
// the wrong firmware, or of a wrong base offset; the checks here turn such
// silent failures into visible warnings.
package validate

import (
	"github.com/tosih/xdf-exporter/pkg/models"
)

// Options tunes the heuristics.
type Options struct {
	// ZeroThreshold is the fraction of zero cells above which a table is
	// considered zero-filled.
	ZeroThreshold float64
	// UniformMinCells is the smallest table checked for uniform values.
	UniformMinCells int
	// CommonSizes lists the expected firmware image sizes in bytes.
	CommonSizes []int
}

// CommonSizes are the usual ECU image sizes, 16 KiB to 2 MiB.
var CommonSizes = []int{
	16 << 10, 32 << 10, 64 << 10, 128 << 10,
	256 << 10, 512 << 10, 1 << 20, 2 << 20,
}

// DefaultOptions returns the default heuristics.
func DefaultOptions() Options {
	return Options{
		ZeroThreshold:   0.95,
		UniformMinCells: 2,
		CommonSizes:     CommonSizes,
	}
}

var (
	firmwareRef   = models.Ref{Kind: models.ElementFirmware, Index: -1}
	definitionRef = models.Ref{Kind: models.ElementDefinition, Index: -1}
)

// Validate returns the warnings for res without modifying it.
func Validate(res *models.ExtractionResult, opts Options) []models.Warning {
	var sink models.Sink

	zeroFilled := 0
	for i := range res.Tables {
		t := &res.Tables[i]
		ref := models.Ref{Kind: models.ElementTable, Title: t.Title, Index: i}
		if ZeroFilled(t.Stats, opts.ZeroThreshold) {
			zeroFilled++
			sink.Add(models.KindZeroFill, models.SeverityWarning, ref,
				"%d of %d cells (%.1f%%) are zero",
				t.Stats.Zeros, t.Stats.Count, 100*float64(t.Stats.Zeros)/float64(t.Stats.Count))
			continue
		}
		if t.Stats.Count >= opts.UniformMinCells && t.Stats.Unique == 1 {
			sink.Add(models.KindUniform, models.SeverityWarning, ref,
				"all %d cells have the value %g", t.Stats.Count, t.Stats.Min)
		}
	}
	if n := len(res.Tables); n >= 2 && 2*zeroFilled >= n {
		ref := definitionRef
		ref.Title = res.Definition.Name
		sink.Add(models.KindZeroFill, models.SeverityError, ref,
			"%d of %d tables are zero-filled; the definition may not match this firmware or its base offset (%s0x%X) may be wrong",
			zeroFilled, n, sign(res.Definition.Subtract), res.Definition.BaseOffset)
	}

	if n := models.Count(res.Warnings, models.KindOutOfRange); n > 0 {
		ref := firmwareRef
		ref.Title = res.Firmware.Name
		sink.Add(models.KindOutOfRange, models.SeverityWarning, ref,
			"%d read(s) fell outside the %d-byte image", n, res.Firmware.Size)
	}

	if !commonSize(res.Firmware.Size, opts.CommonSizes) {
		ref := firmwareRef
		ref.Title = res.Firmware.Name
		sink.Add(models.KindUnusualSize, models.SeverityInfo, ref,
			"image size %d bytes (0x%X) is not a common ECU image size", res.Firmware.Size, res.Firmware.Size)
	}
	return sink.Warnings()
}

// ZeroFilled reports whether more than threshold of the cells are zero.
func ZeroFilled(st models.Statistics, threshold float64) bool {
	if st.Count == 0 {
		return false
	}
	return float64(st.Zeros)/float64(st.Count) > threshold
}

func commonSize(size int, sizes []int) bool {
	for _, s := range sizes {
		if s == size {
			return true
		}
	}
	return false
}

func sign(subtract bool) string {
	if subtract {
		return "-"
	}
	return "+"
}
