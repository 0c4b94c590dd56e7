package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tosih/xdf-exporter/pkg/export"
)

func newExportCmd(g *globals) *cobra.Command {
	var (
		output string
		format string
		csvDir string
		filter string
	)
	cmd := &cobra.Command{
		Use:   "export <definition.xdf> <image.bin>",
		Short: "Export extracted data as text, JSON, Markdown or CSV",
		Long: `Export writes the extraction result to a file or to stdout.
The format comes from --format, then the extension of --output, then the
configured default. --csv-dir additionally writes one CSV file per table.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, cfg, err := g.extract(cmd, args[0], args[1])
			if err != nil {
				return err
			}

			var f export.Format
			switch {
			case format != "":
				f, err = export.ParseFormat(format)
			case output != "":
				f, err = export.FormatFromPath(output)
				if err != nil {
					f, err = export.ParseFormat(cfg.Format)
				}
			default:
				f, err = export.ParseFormat(cfg.Format)
			}
			if err != nil {
				return err
			}

			opts := export.Options{Generated: time.Now()}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}
			if err := export.Write(w, res, f, opts); err != nil {
				return err
			}
			if output != "" {
				pterm.Success.Printf("Exported %d scalars, %d flags, %d tables, %d patches to %s\n",
					len(res.Constants), len(res.Flags), len(res.Tables), len(res.Patches), output)
				if n := len(res.Warnings); n > 0 {
					pterm.Warning.Printf("%d warnings, see the report\n", n)
				}
			}

			if csvDir != "" {
				if _, err := export.TablesToCSV(csvDir, res, filter); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: txt, json, md or csv")
	cmd.Flags().StringVar(&csvDir, "csv-dir", "", "Also write one CSV file per table into this directory")
	cmd.Flags().StringVar(&filter, "table", "all", "Tables written by --csv-dir (substring of the title)")
	return cmd
}
