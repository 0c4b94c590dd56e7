// Package patch detects whether definition patches are present in a
// firmware image.
package patch

import (
	"bytes"
	"fmt"

	"github.com/tosih/xdf-exporter/pkg/models"
	"github.com/tosih/xdf-exporter/pkg/reader"
	"github.com/tosih/xdf-exporter/pkg/xdf"
)

// Analyze reads the current bytes at every entry of p and classifies the
// patch. Entries that match neither pattern, or cannot be read, are
// reported to sink; the patch itself is always returned.
func Analyze(r *reader.Reader, p *xdf.Patch, ref models.Ref, sink *models.Sink) models.Patch {
	out := models.Patch{
		Title:       p.Title,
		Category:    p.Category,
		Description: p.Description,
		Entries:     make([]models.PatchEntry, 0, len(p.Entries)),
	}
	img := r.Image()
	for _, e := range p.Entries {
		off := r.Base().FileOffset(e.Address.Raw)
		entry := models.PatchEntry{
			Name:       e.Name,
			Address:    e.Address,
			FileOffset: off,
			Size:       e.Size,
			Applied:    e.Applied,
			Base:       e.Base,
		}
		cur, err := img.Bytes(off, e.Size)
		if err != nil {
			entry.Match = models.MatchUnreadable
			sink.Add(models.KindOutOfRange, models.SeverityWarning, ref,
				"entry %q: %d bytes at file offset %d are outside the %d-byte image",
				e.Name, e.Size, off, img.Size())
		} else {
			entry.Current = cur
			entry.Match = match(cur, e.Applied, e.Base)
			if entry.Match == models.MatchNone {
				sink.Add(models.KindPatchMismatch, models.SeverityWarning, ref,
					"entry %q: bytes %s at file offset %d match neither the patched %s nor the original %s",
					e.Name, hexBytes(cur), off, hexBytes(e.Applied), hexBytes(e.Base))
			}
		}
		out.Entries = append(out.Entries, entry)
	}
	out.Status = Classify(out.Entries)
	return out
}

// match compares current bytes against the applied pattern first, so an
// entry whose two patterns are identical counts as applied.
func match(cur, applied, base []byte) models.EntryMatch {
	switch {
	case len(applied) > 0 && bytes.Equal(cur, applied):
		return models.MatchApplied
	case len(base) > 0 && bytes.Equal(cur, base):
		return models.MatchBase
	default:
		return models.MatchNone
	}
}

// Classify derives the patch status from its compared entries. Applied
// and NotApplied require every entry to agree; any other mix with at
// least one matching entry is Partial.
func Classify(entries []models.PatchEntry) models.PatchStatus {
	var applied, base int
	for _, e := range entries {
		switch e.Match {
		case models.MatchApplied:
			applied++
		case models.MatchBase:
			base++
		}
	}
	switch {
	case applied == 0 && base == 0:
		return models.PatchUnknown
	case applied == len(entries):
		return models.PatchApplied
	case base == len(entries):
		return models.PatchNotApplied
	default:
		return models.PatchPartial
	}
}

func hexBytes(b []byte) string {
	if len(b) == 0 {
		return "(none)"
	}
	return fmt.Sprintf("% X", b)
}
