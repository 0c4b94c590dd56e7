// Package extract runs one extraction: every definition element is read
// from the firmware image, the results are validated, and all warnings
// are gathered in declaration order.
package extract

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/tosih/xdf-exporter/pkg/config"
	"github.com/tosih/xdf-exporter/pkg/firmware"
	"github.com/tosih/xdf-exporter/pkg/logging"
	"github.com/tosih/xdf-exporter/pkg/models"
	"github.com/tosih/xdf-exporter/pkg/patch"
	"github.com/tosih/xdf-exporter/pkg/reader"
	"github.com/tosih/xdf-exporter/pkg/validate"
	"github.com/tosih/xdf-exporter/pkg/xdf"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Options controls an extraction run.
type Options struct {
	// Logger receives every warning as it is attached. Nil discards.
	Logger *log.Logger
	// Orientation is the Z storage order of tables that declare none.
	Orientation models.Orientation
	// Workers bounds the number of elements extracted concurrently.
	// Values below 2 extract sequentially.
	Workers int
	// Validate tunes the validation heuristics.
	Validate validate.Options
}

// DefaultOptions returns sequential, row-major options with the default
// validation heuristics.
func DefaultOptions() Options {
	return Options{
		Orientation: models.RowMajor,
		Workers:     1,
		Validate:    validate.DefaultOptions(),
	}
}

// OptionsFrom derives run options from a configuration.
func OptionsFrom(cfg config.Config, lg *log.Logger) Options {
	return Options{
		Logger:      lg,
		Orientation: cfg.Orientation,
		Workers:     cfg.Workers,
		Validate:    cfg.ValidateOptions(),
	}
}

// Files loads a definition and a firmware image and extracts one from the
// other. Failing to parse the definition or read the image is fatal.
func Files(ctx context.Context, xdfPath, binPath string, opts Options) (*models.ExtractionResult, error) {
	def, err := xdf.ParseFile(xdfPath)
	if err != nil {
		return nil, err
	}
	img, err := firmware.Load(binPath)
	if err != nil {
		return nil, err
	}
	return Run(ctx, img, def, opts)
}

// outcome is the result of one element. Exactly one of the value fields
// is set when the element was extracted.
type outcome struct {
	constant *models.Constant
	flag     *models.Flag
	table    *models.Table
	patch    *models.Patch
	sink     models.Sink
}

// Run extracts every element of def from img. Elements are independent;
// with Workers > 1 they are processed concurrently, but the result and
// its warnings keep declaration order. Cancellation is honored between
// elements only.
func Run(ctx context.Context, img *firmware.Image, def *xdf.Definition, opts Options) (*models.ExtractionResult, error) {
	lg := opts.Logger
	if lg == nil {
		lg = logging.Discard()
	}
	rd := reader.New(img, def.Base, opts.Orientation)

	outs := make([]outcome, len(def.Elements))
	if opts.Workers < 2 {
		for i, e := range def.Elements {
			if err := ctx.Err(); err != nil {
				return nil, xerrors.Errorf("extract: cancelled after %d of %d elements: %w", i, len(def.Elements), err)
			}
			outs[i] = extractOne(rd, e)
		}
	} else {
		grp, gctx := errgroup.WithContext(ctx)
		grp.SetLimit(opts.Workers)
		for i, e := range def.Elements {
			grp.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outs[i] = extractOne(rd, e)
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return nil, xerrors.Errorf("extract: cancelled: %w", err)
		}
	}

	res := &models.ExtractionResult{
		Firmware:   img.Identity(),
		Definition: def.Info(),
		Constants:  []models.Constant{},
		Flags:      []models.Flag{},
		Tables:     []models.Table{},
		Patches:    []models.Patch{},
	}
	res.Warnings = append(res.Warnings, def.Warnings...)
	for i := range outs {
		o := &outs[i]
		idx := -1
		switch {
		case o.constant != nil:
			idx = len(res.Constants)
			res.Constants = append(res.Constants, *o.constant)
		case o.flag != nil:
			idx = len(res.Flags)
			res.Flags = append(res.Flags, *o.flag)
		case o.table != nil:
			idx = len(res.Tables)
			res.Tables = append(res.Tables, *o.table)
		case o.patch != nil:
			idx = len(res.Patches)
			res.Patches = append(res.Patches, *o.patch)
		}
		ws := o.sink.Warnings()
		for j := range ws {
			ws[j].Target.Index = idx
		}
		res.Warnings = append(res.Warnings, ws...)
	}
	res.Warnings = append(res.Warnings, validate.Validate(res, opts.Validate)...)

	for _, w := range res.Warnings {
		logWarning(lg, w)
	}
	lg.Info("extraction complete",
		"definition", res.Definition.Name,
		"firmware", res.Firmware.Name,
		"constants", len(res.Constants),
		"flags", len(res.Flags),
		"tables", len(res.Tables),
		"patches", len(res.Patches),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// extractOne dispatches on the element kind.
func extractOne(rd *reader.Reader, e xdf.Element) outcome {
	var o outcome
	ref := models.Ref{Kind: e.Kind(), Title: e.Name(), Index: -1}
	switch e := e.(type) {
	case *xdf.Constant:
		if c, ok := rd.Constant(e, ref, &o.sink); ok {
			o.constant = &c
		}
	case *xdf.Flag:
		if f, ok := rd.Flag(e, ref, &o.sink); ok {
			o.flag = &f
		}
	case *xdf.Table:
		if t, ok := rd.Table(e, ref, &o.sink); ok {
			o.table = &t
		}
	case *xdf.Patch:
		p := patch.Analyze(rd, e, ref, &o.sink)
		o.patch = &p
	}
	return o
}

func logWarning(lg *log.Logger, w models.Warning) {
	kv := []interface{}{"kind", w.Kind, "target", w.Target.String()}
	switch w.Severity {
	case models.SeverityInfo:
		lg.Info(w.Message, kv...)
	case models.SeverityError:
		lg.Error(w.Message, kv...)
	default:
		lg.Warn(w.Message, kv...)
	}
}
