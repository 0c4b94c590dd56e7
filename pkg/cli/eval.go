package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/tosih/xdf-exporter/pkg/formula"
)

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <formula> [raw...]",
		Short: "Evaluate a conversion formula",
		Long: `Eval compiles a definition conversion formula and applies it to raw values.
Without raw values it starts an interactive prompt; enter "quit" or Ctrl-D to leave.`,
		Example: `
xdf-exporter eval "X*0.75-48" 128 0xFF
  `,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formula.Compile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) > 1 {
				for _, s := range args[1:] {
					if err := evalOne(out, f, s); err != nil {
						return err
					}
				}
				return nil
			}
			return repl(out, f)
		},
	}
}

func evalOne(w io.Writer, f *formula.Formula, s string) error {
	x, err := parseRaw(s)
	if err != nil {
		return err
	}
	v, err := f.Eval(x)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s = %s\n", s, strconv.FormatFloat(v, 'g', -1, 64))
	return nil
}

// parseRaw accepts decimal, 0x hex and floating point input.
func parseRaw(s string) (float64, error) {
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(n), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid raw value %q", s)
	}
	return v, nil
}

func repl(w io.Writer, f *formula.Formula) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Fprintf(w, "f(X) = %s\n", f)
	for {
		input, err := line.Prompt("X> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		switch input {
		case "":
			continue
		case "quit", "exit":
			return nil
		}
		line.AppendHistory(input)
		if err := evalOne(w, f, input); err != nil {
			fmt.Fprintln(w, "error:", err)
		}
	}
}
