package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tosih/xdf-exporter/pkg/export"
	"github.com/tosih/xdf-exporter/pkg/models"
	"github.com/tosih/xdf-exporter/pkg/renderer"
)

func newShowCmd(g *globals) *cobra.Command {
	var (
		mode     string
		filter   string
		list     bool
		markdown bool
		width    int
	)
	cmd := &cobra.Command{
		Use:   "show <definition.xdf> <image.bin>",
		Short: "Display extracted data in the terminal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case renderer.ModeValues, renderer.ModeHeatmap, renderer.ModeSymbols:
			default:
				return fmt.Errorf("unknown display mode %q", mode)
			}

			res, _, err := g.extract(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			res = filterTables(res, filter)

			switch {
			case markdown:
				var buf bytes.Buffer
				if err := export.WriteMarkdown(&buf, res, export.Options{}); err != nil {
					return err
				}
				out, err := renderer.RenderMarkdown(buf.String(), width)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
			case list:
				renderer.ListTables(res)
			default:
				renderer.ShowResult(res, mode)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", renderer.ModeValues, "Table display mode: values, heatmap or symbols")
	cmd.Flags().StringVarP(&filter, "table", "t", "all", "Only show tables whose title contains this")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List tables only")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render the Markdown report")
	cmd.Flags().IntVar(&width, "width", 0, "Markdown wrap width (default terminal width)")
	return cmd
}

func newPatchesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "patches <definition.xdf> <image.bin>",
		Short: "Show which patches are applied to an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _, err := g.extract(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			if len(res.Patches) == 0 {
				pterm.Info.Println("The definition has no patches")
				return nil
			}
			renderer.ShowPatches(res)

			var ws []models.Warning
			for _, w := range res.Warnings {
				if w.Target.Kind == models.ElementPatch {
					ws = append(ws, w)
				}
			}
			renderer.RenderWarnings(ws)
			return nil
		},
	}
}

// filterTables returns res with only the tables whose title contains
// filter. Warnings of dropped tables are dropped with them and the
// indices of the rest are renumbered.
func filterTables(res *models.ExtractionResult, filter string) *models.ExtractionResult {
	filter = strings.ToLower(filter)
	if filter == "" || filter == "all" {
		return res
	}

	out := *res
	out.Tables = nil
	index := make(map[int]int)
	for i, t := range res.Tables {
		if strings.Contains(strings.ToLower(t.Title), filter) {
			index[i] = len(out.Tables)
			out.Tables = append(out.Tables, t)
		}
	}
	out.Warnings = nil
	for _, w := range res.Warnings {
		if w.Target.Kind == models.ElementTable && w.Target.Index >= 0 {
			n, ok := index[w.Target.Index]
			if !ok {
				continue
			}
			w.Target.Index = n
		}
		out.Warnings = append(out.Warnings, w)
	}
	return &out
}
