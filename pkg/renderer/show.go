package renderer

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/term"
	"github.com/pterm/pterm"
	"github.com/tosih/xdf-exporter/pkg/export"
	"github.com/tosih/xdf-exporter/pkg/models"
)

// DefaultWidth is the wrap width used when the terminal size is unknown.
const DefaultWidth = 100

// ShowResult prints a full extraction result to the terminal.
func ShowResult(res *models.ExtractionResult, displayMode string) {
	pterm.DefaultHeader.WithFullWidth().Println(res.Definition.Name)
	ShowSummary(res)

	if len(res.Constants) > 0 {
		pterm.DefaultSection.Println("Scalars")
		data := [][]string{{"Title", "Category", "Address", "Value", "Unit"}}
		for _, c := range res.Constants {
			data = append(data, []string{
				c.Title,
				c.Category,
				fmt.Sprintf("0x%04X", c.Address.Raw),
				export.FormatValue(c.Value, c.Decimals),
				c.Units,
			})
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	if len(res.Flags) > 0 {
		pterm.DefaultSection.Println("Flags")
		data := [][]string{{"Title", "Category", "Address", "Mask", "State"}}
		for _, f := range res.Flags {
			state := pterm.FgGray.Sprint(f.State())
			if f.Set {
				state = pterm.FgGreen.Sprint(f.State())
			}
			data = append(data, []string{
				f.Title,
				f.Category,
				fmt.Sprintf("0x%04X", f.Address.Raw),
				fmt.Sprintf("0x%02X", f.Mask),
				state,
			})
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	if len(res.Tables) > 0 {
		pterm.DefaultSection.Println("Tables")
		for i := range res.Tables {
			RenderTable(&res.Tables[i], displayMode)
		}
	}

	if len(res.Patches) > 0 {
		pterm.DefaultSection.Println("Patches")
		ShowPatches(res)
	}

	if len(res.Warnings) > 0 {
		pterm.DefaultSection.Println("Warnings")
		RenderWarnings(res.Warnings)
	}
}

// ShowSummary prints the firmware identity and element counts.
func ShowSummary(res *models.ExtractionResult) {
	pterm.DefaultBulletList.WithItems([]pterm.BulletListItem{
		{Level: 0, Text: fmt.Sprintf("Firmware: %s (%d bytes)", res.Firmware.Name, res.Firmware.Size)},
		{Level: 1, Text: "MD5: " + res.Firmware.MD5},
		{Level: 1, Text: "SHA-256: " + res.Firmware.SHA256},
		{Level: 0, Text: fmt.Sprintf("Definition: %s", res.Definition.Source)},
		{Level: 0, Text: fmt.Sprintf("Scalars: %d  Flags: %d  Tables: %d  Patches: %d  Warnings: %d",
			len(res.Constants), len(res.Flags), len(res.Tables), len(res.Patches), len(res.Warnings))},
	}).Render()
}

// ShowPatches prints every patch with its status and per-entry match.
func ShowPatches(res *models.ExtractionResult) {
	data := [][]string{{"Patch", "Status", "Entry", "Address", "Current", "Match"}}
	for _, p := range res.Patches {
		for i, e := range p.Entries {
			title, status := "", ""
			if i == 0 {
				title, status = p.Title, statusStyle(p.Status).Sprint(p.Status)
			}
			data = append(data, []string{
				title,
				status,
				e.Name,
				fmt.Sprintf("0x%04X", e.Address.Raw),
				strings.ToUpper(fmt.Sprintf("% x", e.Current)),
				string(e.Match),
			})
		}
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func statusStyle(s models.PatchStatus) *pterm.Style {
	switch s {
	case models.PatchApplied:
		return pterm.NewStyle(pterm.FgGreen)
	case models.PatchNotApplied:
		return pterm.NewStyle(pterm.FgCyan)
	case models.PatchPartial:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// RenderWarnings prints warnings through the pterm printer of their severity.
func RenderWarnings(ws []models.Warning) {
	for _, w := range ws {
		msg := fmt.Sprintf("%s %s: %s", w.Kind, w.Target, w.Message)
		switch w.Severity {
		case models.SeverityError:
			pterm.Error.Println(msg)
		case models.SeverityWarning:
			pterm.Warning.Println(msg)
		default:
			pterm.Info.Println(msg)
		}
	}
}

// RenderMarkdown renders a markdown document for the terminal. The style
// is plain when stdout is not a terminal. A non-positive width wraps at
// the terminal width.
func RenderMarkdown(md string, width int) (string, error) {
	style := "notty"
	if term.IsTerminal(os.Stdout.Fd()) {
		style = "dark"
		if width <= 0 {
			if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
				width = w
			}
		}
	}
	if width <= 0 {
		width = DefaultWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	return r.Render(md)
}
