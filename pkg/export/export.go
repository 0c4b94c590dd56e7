// Package export writes extraction results as text, JSON, Markdown or CSV.
//
// Every writer keeps declaration order and surfaces every warning of the
// result: a warning is the only sign that a value may be wrong.
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tosih/xdf-exporter/pkg/models"
	"golang.org/x/xerrors"
)

// Format is an output format.
type Format string

const (
	Text     Format = "txt"
	JSON     Format = "json"
	Markdown Format = "md"
	CSV      Format = "csv"
)

// Formats lists the supported formats.
var Formats = []Format{Text, JSON, Markdown, CSV}

// Version is reported in export headers.
var Version = "1.0.0"

// Options carries export metadata.
type Options struct {
	// Generated is the export timestamp. The zero time omits it.
	Generated time.Time
}

// ParseFormat returns the format named s. "markdown" and "text" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "txt", "text":
		return Text, nil
	case "json":
		return JSON, nil
	case "md", "markdown":
		return Markdown, nil
	case "csv":
		return CSV, nil
	}
	return "", xerrors.Errorf("export: unknown format %q", s)
}

// FormatFromPath picks the format from the file extension of path.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Write renders res to w in the given format.
func Write(w io.Writer, res *models.ExtractionResult, f Format, opts Options) error {
	switch f {
	case Text:
		return WriteText(w, res, opts)
	case JSON:
		return WriteJSON(w, res, opts)
	case Markdown:
		return WriteMarkdown(w, res, opts)
	case CSV:
		return WriteCSV(w, res)
	}
	return xerrors.Errorf("export: unknown format %q", f)
}

// ToFile renders res to path, choosing the format from its extension.
func ToFile(path string, res *models.ExtractionResult, opts Options) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return xerrors.Errorf("export: could not create %q: %w", path, err)
	}
	if err := Write(file, res, f, opts); err != nil {
		file.Close()
		return xerrors.Errorf("export: could not write %q: %w", path, err)
	}
	return file.Close()
}

// FormatValue formats v with the given number of decimal places; zero
// or fewer rounds to an integer.
func FormatValue(v float64, decimals int) string {
	if decimals <= 0 {
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, decimals int) float64 {
	if decimals < 0 {
		decimals = 0
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func formatValues(vs []float64, decimals int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = FormatValue(v, decimals)
	}
	return strings.Join(parts, ", ")
}

func hexAddr(a int64) string {
	return fmt.Sprintf("0x%04X", a)
}

// truncate cuts s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// tableWarnings returns the warnings targeting table i of res.
func tableWarnings(res *models.ExtractionResult, i int) []models.Warning {
	var out []models.Warning
	for _, w := range res.Warnings {
		if w.Target.Kind == models.ElementTable && w.Target.Index == i {
			out = append(out, w)
		}
	}
	return out
}

// zeroTables returns the titles of tables flagged as zero-filled.
func zeroTables(res *models.ExtractionResult) []string {
	var out []string
	for i, t := range res.Tables {
		for _, w := range tableWarnings(res, i) {
			if w.Kind == models.KindZeroFill {
				out = append(out, t.Title)
				break
			}
		}
	}
	return out
}

func patchesByStatus(res *models.ExtractionResult, s models.PatchStatus) []models.Patch {
	var out []models.Patch
	for _, p := range res.Patches {
		if p.Status == s {
			out = append(out, p)
		}
	}
	return out
}
