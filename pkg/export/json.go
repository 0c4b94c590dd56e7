package export

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/tosih/xdf-exporter/pkg/models"
)

// Document is the JSON export of an extraction result.
type Document struct {
	Metadata   Metadata         `json:"metadata"`
	Statistics Counts           `json:"statistics"`
	Scalars    []Scalar         `json:"scalars"`
	Flags      []Flag           `json:"flags"`
	Tables     []Table          `json:"tables"`
	Patches    []Patch          `json:"patches"`
	Warnings   []models.Warning `json:"warnings"`
}

// Metadata identifies the firmware and definition of an export.
type Metadata struct {
	SourceFile       string     `json:"source_file"`
	SourceDefinition string     `json:"source_definition"`
	BinarySize       int        `json:"binary_size"`
	MD5              string     `json:"md5_checksum"`
	SHA256           string     `json:"sha256_checksum"`
	BaseOffset       string     `json:"base_offset"`
	Exported         *time.Time `json:"export_timestamp,omitempty"`
	Version          string     `json:"exporter_version"`
}

// Counts holds the number of exported elements per kind.
type Counts struct {
	Scalars  int `json:"scalars_count"`
	Flags    int `json:"flags_count"`
	Tables   int `json:"tables_count"`
	Patches  int `json:"patches_count"`
	Warnings int `json:"warnings_count"`
}

// Scalar is an exported constant.
type Scalar struct {
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Address  string  `json:"address"`
	Offset   int64   `json:"file_offset"`
	Raw      int64   `json:"raw_value"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
	Equation string  `json:"equation"`
	Signed   bool    `json:"signed"`
	LSBFirst bool    `json:"lsb_first"`
	Bits     int     `json:"size_bits"`
	Decimals int     `json:"decimalpl"`
	Failed   bool    `json:"formula_failed,omitempty"`
}

// Flag is an exported flag.
type Flag struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Address  string `json:"address"`
	Mask     string `json:"mask"`
	IsSet    bool   `json:"is_set"`
}

// Axis is an exported table axis.
type Axis struct {
	Count    int       `json:"count"`
	Unit     string    `json:"unit"`
	Address  *string   `json:"address"`
	Source   string    `json:"source"`
	Labels   []float64 `json:"labels"`
	Equation string    `json:"equation"`
	Decimals int       `json:"decimalpl"`
}

// Dimensions are the read and declared sizes of a table.
type Dimensions struct {
	Rows         int `json:"rows"`
	Cols         int `json:"cols"`
	DeclaredRows int `json:"declared_rows"`
	DeclaredCols int `json:"declared_cols"`
}

// DataFormat describes the encoding of a table's cells.
type DataFormat struct {
	Signed      bool   `json:"signed"`
	LSBFirst    bool   `json:"lsb_first"`
	Bits        int    `json:"size_bits"`
	Decimals    int    `json:"decimalpl"`
	Orientation string `json:"orientation"`
}

// TableStats are the rounded statistics of a table.
type TableStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Unique int     `json:"unique_count"`
	Zeros  int     `json:"zero_count"`
}

// Table is an exported table.
type Table struct {
	Title      string          `json:"title"`
	Category   string          `json:"category"`
	Axes       map[string]Axis `json:"axes"`
	Data       [][]float64     `json:"data"`
	Dimensions Dimensions      `json:"dimensions"`
	Format     DataFormat      `json:"data_format"`
	Statistics TableStats      `json:"statistics"`
}

// PatchEntry is an exported patch comparison point.
type PatchEntry struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Size    int    `json:"size"`
	Current string `json:"current,omitempty"`
	Applied string `json:"patchdata,omitempty"`
	Base    string `json:"basedata,omitempty"`
	Match   string `json:"match"`
}

// Patch is an exported patch.
type Patch struct {
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	Count       int          `json:"entries_count"`
	Entries     []PatchEntry `json:"entries"`
}

// NewDocument converts res to its JSON document. Values are rounded to
// each element's decimal places.
func NewDocument(res *models.ExtractionResult, opts Options) Document {
	doc := Document{
		Metadata: Metadata{
			SourceFile:       res.Firmware.Name,
			SourceDefinition: res.Definition.Name,
			BinarySize:       res.Firmware.Size,
			MD5:              res.Firmware.MD5,
			SHA256:           res.Firmware.SHA256,
			BaseOffset:       baseOffset(res.Definition),
			Version:          Version,
		},
		Statistics: Counts{
			Scalars:  len(res.Constants),
			Flags:    len(res.Flags),
			Tables:   len(res.Tables),
			Patches:  len(res.Patches),
			Warnings: len(res.Warnings),
		},
		Scalars:  make([]Scalar, 0, len(res.Constants)),
		Flags:    make([]Flag, 0, len(res.Flags)),
		Tables:   make([]Table, 0, len(res.Tables)),
		Patches:  make([]Patch, 0, len(res.Patches)),
		Warnings: res.Warnings,
	}
	if !opts.Generated.IsZero() {
		ts := opts.Generated
		doc.Metadata.Exported = &ts
	}
	if doc.Warnings == nil {
		doc.Warnings = []models.Warning{}
	}

	for _, c := range res.Constants {
		doc.Scalars = append(doc.Scalars, Scalar{
			Title:    c.Title,
			Category: c.Category,
			Address:  hexAddr(c.Address.Raw),
			Offset:   c.FileOffset,
			Raw:      c.Raw,
			Value:    Round(c.Value, c.Decimals),
			Unit:     c.Units,
			Equation: c.Formula,
			Signed:   c.Address.Signed,
			LSBFirst: c.Address.LittleEndian,
			Bits:     c.Address.Width,
			Decimals: c.Decimals,
			Failed:   c.FormulaFailed,
		})
	}
	for _, f := range res.Flags {
		doc.Flags = append(doc.Flags, Flag{
			Title:    f.Title,
			Category: f.Category,
			Address:  hexAddr(f.Address.Raw),
			Mask:     hexByte(f.Mask),
			IsSet:    f.Set,
		})
	}
	for i := range res.Tables {
		doc.Tables = append(doc.Tables, newTable(&res.Tables[i]))
	}
	for _, p := range res.Patches {
		jp := Patch{
			Title:       p.Title,
			Category:    p.Category,
			Description: p.Description,
			Status:      string(p.Status),
			Count:       len(p.Entries),
			Entries:     make([]PatchEntry, 0, len(p.Entries)),
		}
		for _, e := range p.Entries {
			jp.Entries = append(jp.Entries, PatchEntry{
				Name:    e.Name,
				Address: hexAddr(e.Address.Raw),
				Size:    e.Size,
				Current: upperHex(e.Current),
				Applied: upperHex(e.Applied),
				Base:    upperHex(e.Base),
				Match:   string(e.Match),
			})
		}
		doc.Patches = append(doc.Patches, jp)
	}
	return doc
}

func newTable(t *models.Table) Table {
	jt := Table{
		Title:    t.Title,
		Category: t.Category,
		Axes:     make(map[string]Axis, 3),
		Data:     make([][]float64, len(t.Data)),
		Dimensions: Dimensions{
			Rows:         t.Rows(),
			Cols:         t.Cols(),
			DeclaredRows: t.DeclaredRows,
			DeclaredCols: t.DeclaredCols,
		},
		Format: DataFormat{
			Decimals:    t.Decimals,
			Orientation: string(t.Orientation),
		},
		Statistics: TableStats{
			Min:    Round(t.Stats.Min, t.Decimals),
			Max:    Round(t.Stats.Max, t.Decimals),
			Avg:    Round(t.Stats.Mean, t.Decimals),
			Unique: t.Stats.Unique,
			Zeros:  t.Stats.Zeros,
		},
	}
	if a := t.Z.Address; a != nil {
		jt.Format.Signed = a.Signed
		jt.Format.LSBFirst = a.LittleEndian
		jt.Format.Bits = a.Width
	}
	for i, row := range t.Data {
		jt.Data[i] = make([]float64, len(row))
		for j, v := range row {
			jt.Data[i][j] = Round(v, t.Decimals)
		}
	}
	for _, ax := range []*models.Axis{&t.X, &t.Y, &t.Z} {
		ja := Axis{
			Count:    ax.Count,
			Unit:     ax.Units,
			Source:   string(ax.Source),
			Labels:   ax.Values,
			Equation: ax.Formula,
			Decimals: ax.Decimals,
		}
		if ax.Address != nil {
			s := hexAddr(ax.Address.Raw)
			ja.Address = &s
		}
		if ja.Labels == nil {
			ja.Labels = []float64{}
		}
		jt.Axes[string(ax.Role)] = ja
	}
	return jt
}

// WriteJSON writes the indented JSON document of res.
func WriteJSON(w io.Writer, res *models.ExtractionResult, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(res, opts))
}

// Schema returns the JSON schema of Document.
func Schema() *jsonschema.Schema {
	return new(jsonschema.Reflector).Reflect(&Document{})
}

func upperHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

func hexByte(b uint8) string {
	return "0x" + strings.ToUpper(hex.EncodeToString([]byte{b}))
}

func baseOffset(d models.DefinitionInfo) string {
	sign := "+"
	if d.Subtract {
		sign = "-"
	}
	return sign + hexAddr(d.BaseOffset)
}
