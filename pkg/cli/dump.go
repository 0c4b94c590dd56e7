package cli

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"github.com/tosih/xdf-exporter/pkg/xdf"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "dump <definition.xdf>",
		Short:  "Dump the parsed definition model",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := xdf.ParseFile(args[0])
			if err != nil {
				return err
			}
			dumpConfig.Fdump(cmd.OutOrStdout(), def)
			return nil
		},
	}
}
