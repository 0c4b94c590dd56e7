// Package cli is the xdf-exporter command tree.
package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"github.com/tosih/xdf-exporter/pkg/config"
	"github.com/tosih/xdf-exporter/pkg/extract"
	"github.com/tosih/xdf-exporter/pkg/logging"
	"github.com/tosih/xdf-exporter/pkg/models"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath  string
	workers     int
	orientation string
	debug       bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:   "xdf-exporter",
		Short: "Extract calibration data from ECU images using TunerPro XDF definitions",
		Long: `xdf-exporter reads a TunerPro XDF definition and an ECU binary image and
extracts every scalar, flag, table and patch the definition describes.
Anything that looks wrong is reported as a warning, never hidden.`,
		Example: `
# Export a full text report
xdf-exporter export m21.xdf 0261200520.bin -o report.txt

# Show tables as heatmaps
xdf-exporter show m21.xdf 0261200520.bin --mode heatmap --table ignition

# Compare a stock and a tuned image
xdf-exporter compare m21.xdf stock.bin tuned.bin
  `,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "JSON configuration file")
	rootCmd.PersistentFlags().IntVarP(&g.workers, "workers", "w", 0, "Elements extracted concurrently (overrides config)")
	rootCmd.PersistentFlags().StringVar(&g.orientation, "orientation", "", "Default table orientation: row-major or column-major (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&g.debug, "debug", "d", false, "Debug logging")

	rootCmd.AddCommand(
		newExportCmd(g),
		newShowCmd(g),
		newPatchesCmd(g),
		newCompareCmd(g),
		newEvalCmd(),
		newDumpCmd(),
		newSchemaCmd(),
	)
	return rootCmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	rootCmd := NewRootCmd()

	// Bypass fang when output is being piped
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// config resolves the configuration: defaults, then the config file,
// then the environment, then command-line flags.
func (g *globals) config(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return cfg, err
		}
	}
	cfg, err := config.FromEnv(cfg)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = g.workers
	}
	if flags.Changed("orientation") {
		cfg.Orientation = models.Orientation(g.orientation)
	}
	return cfg, cfg.Validate()
}

// logger builds the run logger. The caller closes it.
func (g *globals) logger() *logging.LoggerCloser {
	lg := logging.New()
	if g.debug {
		lg.SetLevel(log.DebugLevel)
	}
	return lg
}

// extract runs one extraction with the resolved configuration.
func (g *globals) extract(cmd *cobra.Command, xdfPath, binPath string) (*models.ExtractionResult, config.Config, error) {
	cfg, err := g.config(cmd)
	if err != nil {
		return nil, cfg, err
	}
	lg := g.logger()
	defer lg.Close()

	lg.Debug("extracting", "definition", xdfPath, "firmware", binPath, "workers", cfg.Workers, "orientation", cfg.Orientation)
	res, err := extract.Files(cmd.Context(), xdfPath, binPath, extract.OptionsFrom(cfg, lg.Logger))
	return res, cfg, err
}
