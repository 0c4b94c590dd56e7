package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tosih/xdf-exporter/pkg/models"
)

var mdEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

// WriteMarkdown writes a Markdown report of res.
func WriteMarkdown(w io.Writer, res *models.ExtractionResult, opts Options) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...interface{}) { fmt.Fprintf(bw, format, args...) }

	p("# ECU Calibration Export\n\n## Metadata\n\n")
	p("| Property | Value |\n|----------|-------|\n")
	p("| Source File | `%s` |\n", res.Firmware.Name)
	p("| Definition | `%s` |\n", res.Definition.Name)
	p("| Binary Size | %d bytes |\n", res.Firmware.Size)
	p("| MD5 Checksum | `%s` |\n", res.Firmware.MD5)
	p("| SHA-256 | `%s` |\n", res.Firmware.SHA256)
	if !opts.Generated.IsZero() {
		p("| Export Date | %s |\n", opts.Generated.Format("2006-01-02 15:04:05"))
	}
	p("| Exporter | xdf-exporter v%s |\n\n", Version)

	p("## Summary\n\n")
	p("- **Scalars:** %d\n", len(res.Constants))
	p("- **Flags:** %d\n", len(res.Flags))
	p("- **Tables:** %d\n", len(res.Tables))
	p("- **Patches:** %d\n", len(res.Patches))
	p("- **Warnings:** %d\n\n", len(res.Warnings))

	p("## Table of Contents\n\n")
	p("1. [Scalar Values](#scalar-values)\n2. [Flags](#flags)\n3. [Tables](#tables)\n")
	p("4. [Patches](#patches)\n5. [Warnings](#warnings)\n\n")

	p("---\n\n## Scalar Values\n\n")
	p("| Parameter | Value | Unit | Category | Address |\n")
	p("|-----------|-------|------|----------|---------|\n")
	for _, c := range res.Constants {
		unit := c.Units
		if unit == "" {
			unit = "-"
		}
		p("| %s | %s | %s | %s | `%s` |\n", mdEscaper.Replace(c.Title), FormatValue(c.Value, c.Decimals),
			mdEscaper.Replace(unit), mdEscaper.Replace(c.Category), hexAddr(c.Address.Raw))
	}

	p("\n---\n\n## Flags\n\n")
	p("| Flag | Status | Category | Address |\n|------|--------|----------|---------|\n")
	for _, f := range res.Flags {
		p("| %s | %s | %s | `%s` |\n", mdEscaper.Replace(f.Title), f.State(),
			mdEscaper.Replace(f.Category), hexAddr(f.Address.Raw))
	}

	p("\n---\n\n## Tables\n\n")
	for i := range res.Tables {
		writeMarkdownTable(p, i+1, &res.Tables[i], tableWarnings(res, i))
	}

	p("\n---\n\n## Patches\n\n")
	p("**Total Patches:** %d\n", len(res.Patches))
	groups := []struct {
		title  string
		status models.PatchStatus
	}{
		{"Applied", models.PatchApplied},
		{"Not Applied", models.PatchNotApplied},
		{"Partially Applied", models.PatchPartial},
		{"Unknown", models.PatchUnknown},
	}
	for _, g := range groups {
		p("- %s: %d\n", g.title, len(patchesByStatus(res, g.status)))
	}
	p("\n")
	for _, g := range groups {
		ps := patchesByStatus(res, g.status)
		if len(ps) == 0 {
			continue
		}
		p("### %s Patches\n\n", g.title)
		for _, pt := range ps {
			p("- **%s**", mdEscaper.Replace(pt.Title))
			if pt.Description != "" {
				p(": %s", mdEscaper.Replace(truncate(pt.Description, 150)))
			}
			p("\n")
		}
		p("\n")
	}

	p("\n---\n\n## Warnings\n\n")
	if len(res.Warnings) == 0 {
		p("No warnings.\n")
	} else {
		p("| Severity | Kind | Target | Message |\n|----------|------|--------|---------|\n")
		for _, wn := range res.Warnings {
			p("| %s | %s | %s | %s |\n", wn.Severity, wn.Kind,
				mdEscaper.Replace(wn.Target.String()), mdEscaper.Replace(wn.Message))
		}
	}
	return bw.Flush()
}

func writeMarkdownTable(p func(string, ...interface{}), n int, t *models.Table, warnings []models.Warning) {
	p("### %d. %s\n\n", n, t.Title)
	p("**Category:** %s\n\n", t.Category)

	p("**Axes:**\n")
	for _, ax := range []struct {
		name string
		axis *models.Axis
	}{{"X-Axis", &t.X}, {"Y-Axis", &t.Y}, {"Z-Axis (Data)", &t.Z}} {
		unit := ""
		if ax.axis.Units != "" {
			unit = fmt.Sprintf(" (%s)", ax.axis.Units)
		}
		p("- %s: %d points%s\n", ax.name, ax.axis.Count, unit)
	}
	p("\n")

	unit := ""
	if t.Z.Units != "" {
		unit = " " + t.Z.Units
	}
	p("**Statistics:**\n")
	p("- Min: %.4f%s\n", t.Stats.Min, unit)
	p("- Max: %.4f%s\n", t.Stats.Max, unit)
	p("- Avg: %.4f%s\n", t.Stats.Mean, unit)
	p("- Dimensions: %d x %d\n\n", t.Rows(), t.Cols())

	for _, w := range warnings {
		p("> **%s:** %s\n\n", w.Kind, mdEscaper.Replace(w.Message))
	}

	if t.Rows() == 0 || t.Cols() == 0 {
		return
	}
	p("**Full Data Table** (%d rows x %d cols):\n\n", t.Rows(), t.Cols())
	if len(t.X.Values) > 0 {
		p("| Y \\ X |")
		for c := 0; c < t.Cols(); c++ {
			if c < len(t.X.Values) {
				p(" %s |", FormatValue(t.X.Values[c], t.X.Decimals))
			} else {
				p(" C%d |", c)
			}
		}
	} else {
		p("| Row |")
		for c := 0; c < t.Cols(); c++ {
			p(" C%d |", c)
		}
	}
	p("\n|-----|%s\n", strings.Repeat("------|", t.Cols()))
	for r, row := range t.Data {
		label := fmt.Sprint(r)
		if r < len(t.Y.Values) {
			label = FormatValue(t.Y.Values[r], t.Y.Decimals)
		}
		p("| %s |", label)
		for _, v := range row {
			p(" %s |", FormatValue(v, t.Decimals))
		}
		p("\n")
	}
	p("\n")
}
