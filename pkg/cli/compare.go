package cli

import (
	"github.com/spf13/cobra"
	"github.com/tosih/xdf-exporter/pkg/compare"
	"github.com/tosih/xdf-exporter/pkg/extract"
	"github.com/tosih/xdf-exporter/pkg/firmware"
	"github.com/tosih/xdf-exporter/pkg/models"
	"github.com/tosih/xdf-exporter/pkg/xdf"
	"golang.org/x/sync/errgroup"
)

func newCompareCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <definition.xdf> <a.bin> <b.bin>",
		Short: "Compare two images under one definition",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config(cmd)
			if err != nil {
				return err
			}
			def, err := xdf.ParseFile(args[0])
			if err != nil {
				return err
			}
			lg := g.logger()
			defer lg.Close()
			opts := extract.OptionsFrom(cfg, lg.Logger)

			var results [2]*models.ExtractionResult
			eg, ctx := errgroup.WithContext(cmd.Context())
			for i, path := range args[1:] {
				eg.Go(func() error {
					img, err := firmware.Load(path)
					if err != nil {
						return err
					}
					results[i], err = extract.Run(ctx, img, def, opts)
					return err
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			compare.Display(compare.Diff(results[0], results[1]), args[1], args[2])
			return nil
		},
	}
}
