// Package config holds the run configuration of the exporter.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/tosih/xdf-exporter/pkg/models"
	"github.com/tosih/xdf-exporter/pkg/validate"
	"golang.org/x/xerrors"
)

// Formats are the export formats.
var Formats = []string{"txt", "json", "md", "csv"}

// Config is the exporter configuration.
type Config struct {
	Orientation     models.Orientation `json:"orientation" jsonschema:"title=Matrix Orientation,description=Default storage order of table data,enum=row-major,enum=column-major,default=row-major"`
	ZeroThreshold   float64            `json:"zeroThreshold" jsonschema:"title=Zero Threshold,description=Fraction of zero cells above which a table is reported as zero-filled,minimum=0,maximum=1,default=0.95"`
	UniformMinCells int                `json:"uniformMinCells" jsonschema:"title=Uniform Minimum Cells,description=Smallest table checked for uniform values,minimum=1,default=2"`
	CommonSizesKiB  []int              `json:"commonSizesKiB" jsonschema:"title=Common Image Sizes,description=Expected firmware image sizes in KiB"`
	Workers         int                `json:"workers" jsonschema:"title=Workers,description=Number of elements extracted concurrently,minimum=1,default=1"`
	Format          string             `json:"format" jsonschema:"title=Default Format,description=Default export format,enum=txt,enum=json,enum=md,enum=csv,default=txt"`
}

// Default returns the default configuration.
func Default() Config {
	sizes := make([]int, len(validate.CommonSizes))
	for i, s := range validate.CommonSizes {
		sizes[i] = s >> 10
	}
	return Config{
		Orientation:     models.RowMajor,
		ZeroThreshold:   0.95,
		UniformMinCells: 2,
		CommonSizesKiB:  sizes,
		Workers:         1,
		Format:          "txt",
	}
}

// Load reads a JSON configuration file over the defaults. Unknown fields
// are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, xerrors.Errorf("config: could not read %q: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, xerrors.Errorf("config: could not decode %q: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// FromEnv applies the XDF_ORIENTATION, XDF_WORKERS and XDF_ZERO_THRESHOLD
// overrides to cfg.
func FromEnv(cfg Config) (Config, error) {
	if v := os.Getenv("XDF_ORIENTATION"); v != "" {
		cfg.Orientation = models.Orientation(strings.ToLower(v))
	}
	if v := os.Getenv("XDF_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, xerrors.Errorf("config: invalid XDF_WORKERS %q: %w", v, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("XDF_ZERO_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, xerrors.Errorf("config: invalid XDF_ZERO_THRESHOLD %q: %w", v, err)
		}
		cfg.ZeroThreshold = f
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	switch {
	case !c.Orientation.Valid():
		return xerrors.Errorf("config: unknown orientation %q", c.Orientation)
	case c.ZeroThreshold < 0 || c.ZeroThreshold > 1:
		return xerrors.Errorf("config: zero threshold %g outside [0, 1]", c.ZeroThreshold)
	case c.UniformMinCells < 1:
		return xerrors.Errorf("config: uniform minimum cells %d must be at least 1", c.UniformMinCells)
	case c.Workers < 1:
		return xerrors.Errorf("config: workers %d must be at least 1", c.Workers)
	case !validFormat(c.Format):
		return xerrors.Errorf("config: unknown format %q (want one of %s)", c.Format, strings.Join(Formats, ", "))
	}
	for _, s := range c.CommonSizesKiB {
		if s <= 0 {
			return xerrors.Errorf("config: image size %d KiB must be positive", s)
		}
	}
	return nil
}

// ValidateOptions returns the validator heuristics selected by c.
func (c Config) ValidateOptions() validate.Options {
	sizes := make([]int, len(c.CommonSizesKiB))
	for i, s := range c.CommonSizesKiB {
		sizes[i] = s << 10
	}
	return validate.Options{
		ZeroThreshold:   c.ZeroThreshold,
		UniformMinCells: c.UniformMinCells,
		CommonSizes:     sizes,
	}
}

// Schema returns the JSON schema of Config.
func Schema() *jsonschema.Schema {
	return new(jsonschema.Reflector).Reflect(&Config{})
}

func validFormat(f string) bool {
	for _, v := range Formats {
		if v == f {
			return true
		}
	}
	return false
}
