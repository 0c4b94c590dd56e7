package cli

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"github.com/tosih/xdf-exporter/pkg/config"
	"github.com/tosih/xdf-exporter/pkg/export"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema <config|export>",
		Short:     "Generate JSON schema for the configuration or the JSON export",
		Hidden:    true,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"config", "export"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var s *jsonschema.Schema
			switch args[0] {
			case "config":
				s = config.Schema()
			case "export":
				s = export.Schema()
			default:
				return fmt.Errorf("unknown schema %q (want config or export)", args[0])
			}
			bts, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return nil
		},
	}
}
