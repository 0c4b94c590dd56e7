package extract

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/tosih/xdf-exporter/pkg/firmware"
	"github.com/tosih/xdf-exporter/pkg/models"
	"github.com/tosih/xdf-exporter/pkg/xdf"
)

const definition = `<XDFFORMAT version="1.60">
  <XDFHEADER>
    <deftitle>Bench</deftitle>
    <CATEGORY index="0x0" name="Engine" />
  </XDFHEADER>
  <XDFCONSTANT>
    <title>Rev Limit</title>
    <CATEGORYMEM index="0" category="0" />
    <EMBEDDEDDATA mmedaddress="0x3C42" mmedelementsizebits="16" />
    <MATH equation="X" />
  </XDFCONSTANT>
  <XDFCONSTANT>
    <title>Lost</title>
    <EMBEDDEDDATA mmedaddress="0x9000" mmedelementsizebits="8" />
  </XDFCONSTANT>
  <XDFFLAG>
    <title>Enable</title>
    <EMBEDDEDDATA mmedaddress="0x10" />
    <mask>0x01</mask>
  </XDFFLAG>
  <XDFTABLE>
    <title>Empty Map</title>
    <XDFAXIS id="x"><indexcount>4</indexcount></XDFAXIS>
    <XDFAXIS id="y"><indexcount>4</indexcount></XDFAXIS>
    <XDFAXIS id="z">
      <EMBEDDEDDATA mmedaddress="0x100" mmedrowcount="4" mmedcolcount="4" />
    </XDFAXIS>
  </XDFTABLE>
  <XDFTABLE>
    <title>Ramp</title>
    <XDFAXIS id="z">
      <EMBEDDEDDATA mmedaddress="0x200" mmedrowcount="2" mmedcolcount="2" />
      <MATH equation="X*2" />
    </XDFAXIS>
  </XDFTABLE>
  <XDFPATCH>
    <title>Mod</title>
    <XDFPATCHENTRY name="e" address="0x300" datasize="1" patchdata="AA" basedata="00" />
  </XDFPATCH>
</XDFFORMAT>`

func fixture(t *testing.T) (*firmware.Image, *xdf.Definition) {
	t.Helper()
	def, err := xdf.Parse("bench.xdf", []byte(definition))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data := make([]byte, 0x4000)
	data[0x3C42], data[0x3C43] = 0x17, 0x70
	data[0x10] = 0x01
	copy(data[0x200:], []byte{1, 2, 3, 4})
	data[0x300] = 0xAA
	return firmware.New("bench.bin", data), def
}

func TestRun(t *testing.T) {
	img, def := fixture(t)
	res, err := Run(context.Background(), img, def, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Constants) != 1 {
		t.Fatalf("got %d constants, want 1: %s", len(res.Constants), spew.Sdump(res.Constants))
	}
	c := res.Constants[0]
	if c.Title != "Rev Limit" || c.Value != 6000 || c.Category != "Engine" {
		t.Errorf("constant = %+v", c)
	}
	if len(res.Flags) != 1 || !res.Flags[0].Set {
		t.Errorf("flags = %+v", res.Flags)
	}
	if len(res.Tables) != 2 || res.Tables[1].Title != "Ramp" || res.Tables[1].Data[1][1] != 8 {
		t.Errorf("tables = %s", spew.Sdump(res.Tables))
	}
	if len(res.Patches) != 1 || res.Patches[0].Status != models.PatchApplied {
		t.Errorf("patches = %+v", res.Patches)
	}

	lost := res.WarningsFor(models.ElementConstant, "Lost")
	if len(lost) != 1 || lost[0].Kind != models.KindOutOfRange || lost[0].Target.Index != -1 {
		t.Errorf("warnings for omitted constant = %v", lost)
	}
	empty := res.WarningsFor(models.ElementTable, "Empty Map")
	if models.Count(empty, models.KindZeroFill) != 1 {
		t.Errorf("warnings for zero table = %v", empty)
	}
	for _, w := range empty {
		if w.Target.Index != 0 {
			t.Errorf("zero table warning index = %d, want 0", w.Target.Index)
		}
	}
	if n := models.Count(res.Warnings, models.KindUnusualSize); n != 0 {
		t.Errorf("16 KiB image reported as unusual")
	}
}

const hostile = `<XDFFORMAT>
  <XDFCONSTANT>
    <title>Far</title>
    <EMBEDDEDDATA mmedaddress="0x7FFFFFFFFFFFFFFF" mmedelementsizebits="8" />
  </XDFCONSTANT>
  <XDFTABLE>
    <title>Far Map</title>
    <XDFAXIS id="x">
      <EMBEDDEDDATA mmedaddress="0x7FFFFFFFFFFFFFF0" mmedelementsizebits="16" />
      <indexcount>4</indexcount>
    </XDFAXIS>
    <XDFAXIS id="z">
      <EMBEDDEDDATA mmedaddress="0x10" mmedelementsizebits="8" mmedrowcount="1" mmedcolcount="4" />
    </XDFAXIS>
  </XDFTABLE>
  <XDFTABLE>
    <title>Wide</title>
    <XDFAXIS id="z">
      <EMBEDDEDDATA mmedaddress="0x0" mmedelementsizebits="8" mmedrowcount="2" mmedcolcount="0x4000000000000000" />
    </XDFAXIS>
  </XDFTABLE>
  <XDFPATCH>
    <title>Far Patch</title>
    <XDFPATCHENTRY name="e" address="0x7FFFFFFFFFFFFFFF" datasize="2" patchdata="AAAA" basedata="0000" />
  </XDFPATCH>
</XDFFORMAT>`

func TestRunExtremeAddresses(t *testing.T) {
	def, err := xdf.Parse("far.xdf", []byte(hostile))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n := models.Count(def.Warnings, models.KindElementSkipped); n != 1 {
		t.Errorf("got %d ElementSkipped warnings, want 1 for the wide table: %v", n, def.Warnings)
	}
	img := firmware.New("far.bin", make([]byte, 64*1024))

	for _, workers := range []int{1, 4} {
		opts := DefaultOptions()
		opts.Workers = workers
		res, err := Run(context.Background(), img, def, opts)
		if err != nil {
			t.Fatalf("Run with %d workers: %v", workers, err)
		}
		if len(res.Constants) != 0 {
			t.Errorf("%d workers: got %d constants, want the far constant omitted", workers, len(res.Constants))
		}
		far := res.WarningsFor(models.ElementConstant, "Far")
		if len(far) != 1 || far[0].Kind != models.KindOutOfRange {
			t.Errorf("%d workers: warnings for far constant = %v", workers, far)
		}
		if len(res.Tables) != 1 || len(res.Tables[0].X.Values) != 0 {
			t.Errorf("%d workers: tables = %s", workers, spew.Sdump(res.Tables))
		}
		if len(res.Patches) != 1 || res.Patches[0].Entries[0].Match != models.MatchUnreadable {
			t.Errorf("%d workers: patches = %+v", workers, res.Patches)
		}
	}
}

func TestRunConcurrentOrder(t *testing.T) {
	img, def := fixture(t)
	want, err := Run(context.Background(), img, def, DefaultOptions())
	if err != nil {
		t.Fatalf("sequential Run: %v", err)
	}
	for _, workers := range []int{2, 4, 16} {
		opts := DefaultOptions()
		opts.Workers = workers
		got, err := Run(context.Background(), img, def, opts)
		if err != nil {
			t.Fatalf("Run with %d workers: %v", workers, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%d workers: result differs from sequential run:\n%s", workers, spew.Sdump(got))
		}
	}
}

func TestRunCancelled(t *testing.T) {
	img, def := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		opts := DefaultOptions()
		opts.Workers = workers
		_, err := Run(ctx, img, def, opts)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%d workers: err = %v, want context.Canceled", workers, err)
		}
	}
}

func TestRunLogsWarnings(t *testing.T) {
	img, def := fixture(t)
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = log.New(&buf)

	if _, err := Run(context.Background(), img, def, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"OutOfRange", "ZeroFill", "extraction complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("log does not mention %q:\n%s", want, out)
		}
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	img, _ := fixture(t)
	data, err := img.Bytes(0, img.Size())
	if err != nil {
		t.Fatal(err)
	}
	xdfPath := filepath.Join(dir, "bench.xdf")
	binPath := filepath.Join(dir, "bench.bin")
	if err := os.WriteFile(xdfPath, []byte(definition), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(binPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Files(context.Background(), xdfPath, binPath, DefaultOptions())
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if res.Firmware.MD5 != img.MD5() || res.Definition.Name != "Bench" {
		t.Errorf("identity = %+v / %+v", res.Firmware, res.Definition)
	}

	if _, err := Files(context.Background(), filepath.Join(dir, "missing.xdf"), binPath, DefaultOptions()); err == nil {
		t.Error("missing definition did not fail")
	}
	if _, err := Files(context.Background(), xdfPath, filepath.Join(dir, "missing.bin"), DefaultOptions()); err == nil {
		t.Error("missing firmware did not fail")
	}
}
