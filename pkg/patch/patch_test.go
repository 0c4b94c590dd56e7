package patch

import (
	"testing"

	"github.com/tosih/xdf-exporter/pkg/firmware"
	"github.com/tosih/xdf-exporter/pkg/models"
	"github.com/tosih/xdf-exporter/pkg/reader"
	"github.com/tosih/xdf-exporter/pkg/xdf"
)

func entry(name string, addr int64) xdf.PatchEntry {
	return xdf.PatchEntry{
		Name:    name,
		Address: models.AddressSpec{Raw: addr, Width: 8},
		Size:    2,
		Applied: []byte{0xAA, 0xBB},
		Base:    []byte{0x12, 0x34},
	}
}

func TestAnalyze(t *testing.T) {
	for _, tc := range []struct {
		name       string
		data       []byte
		want       models.PatchStatus
		mismatches int
		outOfRange int
	}{
		{"both applied", []byte{0xAA, 0xBB, 0xAA, 0xBB}, models.PatchApplied, 0, 0},
		{"both base", []byte{0x12, 0x34, 0x12, 0x34}, models.PatchNotApplied, 0, 0},
		{"one of each", []byte{0xAA, 0xBB, 0x12, 0x34}, models.PatchPartial, 0, 0},
		{"applied and foreign", []byte{0xAA, 0xBB, 0x00, 0x00}, models.PatchPartial, 1, 0},
		{"neither", []byte{0x00, 0x00, 0xFF, 0xFF}, models.PatchUnknown, 2, 0},
		{"truncated", []byte{0xAA, 0xBB, 0xAA}, models.PatchPartial, 0, 1},
		{"unreadable", []byte{0x00}, models.PatchUnknown, 0, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := reader.New(firmware.New("test.bin", tc.data), xdf.BaseOffset{}, models.RowMajor)
			p := &xdf.Patch{
				Title:   "Immo Off",
				Entries: []xdf.PatchEntry{entry("first", 0), entry("second", 2)},
			}
			var sink models.Sink
			got := Analyze(r, p, models.Ref{Kind: models.ElementPatch, Title: p.Title}, &sink)
			if got.Status != tc.want {
				t.Errorf("Status = %s, want %s", got.Status, tc.want)
			}
			if len(got.Entries) != 2 {
				t.Fatalf("got %d entries, want 2", len(got.Entries))
			}
			if n := models.Count(sink.Warnings(), models.KindPatchMismatch); n != tc.mismatches {
				t.Errorf("got %d PatchMismatch warnings, want %d", n, tc.mismatches)
			}
			if n := models.Count(sink.Warnings(), models.KindOutOfRange); n != tc.outOfRange {
				t.Errorf("got %d OutOfRange warnings, want %d", n, tc.outOfRange)
			}
		})
	}
}

func TestAnalyzeBaseOffset(t *testing.T) {
	data := []byte{0x00, 0x00, 0xAA, 0xBB}
	r := reader.New(firmware.New("test.bin", data), xdf.BaseOffset{Offset: 0x8000, Subtract: true}, models.RowMajor)
	p := &xdf.Patch{Title: "P", Entries: []xdf.PatchEntry{entry("e", 0x8002)}}

	var sink models.Sink
	got := Analyze(r, p, models.Ref{Kind: models.ElementPatch, Title: "P"}, &sink)
	if got.Status != models.PatchApplied {
		t.Errorf("Status = %s, want applied", got.Status)
	}
	if got.Entries[0].FileOffset != 2 {
		t.Errorf("FileOffset = %d, want 2", got.Entries[0].FileOffset)
	}
}

func TestClassifyIdenticalPatterns(t *testing.T) {
	if m := match([]byte{1}, []byte{1}, []byte{1}); m != models.MatchApplied {
		t.Errorf("match = %s, want applied", m)
	}
	if m := match([]byte{1}, nil, []byte{1}); m != models.MatchBase {
		t.Errorf("match = %s, want base", m)
	}
}
