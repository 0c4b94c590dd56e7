package models

import "fmt"

// ElementKind names the kind of a definition element.
type ElementKind string

const (
	ElementConstant   ElementKind = "constant"
	ElementFlag       ElementKind = "flag"
	ElementTable      ElementKind = "table"
	ElementPatch      ElementKind = "patch"
	ElementDefinition ElementKind = "definition"
	ElementFirmware   ElementKind = "firmware"
)

// Uncategorized is the category of elements with no resolvable category.
const Uncategorized = "Uncategorized"

// AddressSpec describes how one value is laid out in definition address space.
type AddressSpec struct {
	Raw          int64 `json:"address"`
	Width        int   `json:"width"`
	Signed       bool  `json:"signed"`
	LittleEndian bool  `json:"littleEndian"`
}

// Bytes returns the width of one element in bytes.
func (a AddressSpec) Bytes() int { return a.Width / 8 }

// Valid reports whether the spec satisfies the width and address invariants.
func (a AddressSpec) Valid() bool {
	switch a.Width {
	case 8, 16, 32:
		return a.Raw >= 0
	default:
		return false
	}
}

func (a AddressSpec) String() string {
	endian := "BE"
	if a.LittleEndian {
		endian = "LE"
	}
	sign := "u"
	if a.Signed {
		sign = "s"
	}
	return fmt.Sprintf("0x%04X/%s%d/%s", a.Raw, sign, a.Width, endian)
}

// Orientation is the storage order of a table's Z matrix.
type Orientation string

const (
	RowMajor    Orientation = "row-major"
	ColumnMajor Orientation = "column-major"
)

// Valid reports whether o is a known orientation.
func (o Orientation) Valid() bool {
	return o == RowMajor || o == ColumnMajor
}

// AxisRole is the role of a table axis.
type AxisRole string

const (
	AxisX AxisRole = "x"
	AxisY AxisRole = "y"
	AxisZ AxisRole = "z"
)

// AxisSource records where axis values came from.
type AxisSource string

const (
	SourceMemory AxisSource = "memory"
	SourceLabels AxisSource = "labels"
	SourceNone   AxisSource = "none"
)

// Identity is the fingerprint of a firmware image.
type Identity struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	MD5    string `json:"md5"`
	SHA256 string `json:"sha256"`
}

// DefinitionInfo identifies the definition an extraction was run against.
type DefinitionInfo struct {
	Name       string `json:"name"`
	Source     string `json:"source"`
	BaseOffset int64  `json:"baseOffset"`
	Subtract   bool   `json:"subtract"`
}

// Constant is a resolved scalar.
type Constant struct {
	Title      string      `json:"title"`
	Category   string      `json:"category"`
	Units      string      `json:"units,omitempty"`
	Decimals   int         `json:"decimals"`
	Address    AddressSpec `json:"source"`
	FileOffset int64       `json:"fileOffset"`
	Formula    string      `json:"formula,omitempty"`
	Raw        int64       `json:"raw"`
	Value      float64     `json:"value"`
	// FormulaFailed is set when Value holds the raw decoded value because
	// the formula could not be evaluated.
	FormulaFailed bool `json:"formulaFailed,omitempty"`
}

// Flag is a resolved bit flag.
type Flag struct {
	Title      string      `json:"title"`
	Category   string      `json:"category"`
	Address    AddressSpec `json:"source"`
	FileOffset int64       `json:"fileOffset"`
	Mask       uint8       `json:"mask"`
	Raw        uint8       `json:"raw"`
	Set        bool        `json:"set"`
}

// State returns the reference-tool wording of the flag state.
func (f Flag) State() string {
	if f.Set {
		return "Set"
	}
	return "Not Set"
}

// Axis is a resolved table axis. Z axes carry no Values; their data lives in Table.Data.
type Axis struct {
	Role     AxisRole     `json:"role"`
	Units    string       `json:"units,omitempty"`
	Decimals int          `json:"decimals"`
	Address  *AddressSpec `json:"source,omitempty"`
	Formula  string       `json:"formula,omitempty"`
	Count    int          `json:"count"`
	Source   AxisSource   `json:"valueSource"`
	Values   []float64    `json:"values,omitempty"`
}

// Statistics summarises the transformed Z values of a table.
type Statistics struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Unique int     `json:"unique"`
	Zeros  int     `json:"zeros"`
}

// ComputeStatistics derives Statistics from a row-major matrix.
func ComputeStatistics(data [][]float64) Statistics {
	var (
		st     Statistics
		sum    float64
		unique = make(map[float64]struct{})
	)
	for _, row := range data {
		for _, v := range row {
			if st.Count == 0 || v < st.Min {
				st.Min = v
			}
			if st.Count == 0 || v > st.Max {
				st.Max = v
			}
			if v == 0 {
				st.Zeros++
			}
			sum += v
			unique[normZero(v)] = struct{}{}
			st.Count++
		}
	}
	if st.Count > 0 {
		st.Mean = sum / float64(st.Count)
	}
	st.Unique = len(unique)
	return st
}

// normZero folds -0 into +0 so both count as one distinct value.
func normZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

// Table is a resolved 2D lookup table.
type Table struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Decimals int    `json:"decimals"`
	X        Axis   `json:"x"`
	Y        Axis   `json:"y"`
	Z        Axis   `json:"z"`

	// DeclaredRows and DeclaredCols are the dimensions the definition asked for.
	DeclaredRows int `json:"declaredRows"`
	DeclaredCols int `json:"declaredCols"`

	Orientation Orientation `json:"orientation"`
	Data        [][]float64 `json:"data"`
	Stats       Statistics  `json:"statistics"`
}

// SetData replaces the table values and recomputes its statistics.
func (t *Table) SetData(data [][]float64) {
	t.Data = data
	t.Stats = ComputeStatistics(data)
}

// Rows returns the number of rows actually read.
func (t Table) Rows() int { return len(t.Data) }

// Cols returns the number of columns actually read.
func (t Table) Cols() int {
	if len(t.Data) == 0 {
		return 0
	}
	return len(t.Data[0])
}

// PatchStatus classifies the on-disk state of a patch.
type PatchStatus string

const (
	PatchApplied    PatchStatus = "applied"
	PatchNotApplied PatchStatus = "not_applied"
	PatchPartial    PatchStatus = "partial"
	PatchUnknown    PatchStatus = "unknown"
)

// EntryMatch is the comparison outcome for one patch entry.
type EntryMatch string

const (
	MatchApplied    EntryMatch = "applied"
	MatchBase       EntryMatch = "base"
	MatchNone       EntryMatch = "none"
	MatchUnreadable EntryMatch = "unreadable"
)

// PatchEntry is one comparison point of a patch.
type PatchEntry struct {
	Name       string      `json:"name"`
	Address    AddressSpec `json:"source"`
	FileOffset int64       `json:"fileOffset"`
	Size       int         `json:"size"`
	Applied    []byte      `json:"applied,omitempty"`
	Base       []byte      `json:"base,omitempty"`
	Current    []byte      `json:"current,omitempty"`
	Match      EntryMatch  `json:"match"`
}

// Patch is a resolved patch with its detected status.
type Patch struct {
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	Description string       `json:"description,omitempty"`
	Entries     []PatchEntry `json:"entries"`
	Status      PatchStatus  `json:"status"`
}

// ExtractionResult is the validated output of one extraction run.
// It is owned by the caller that requested the extraction.
type ExtractionResult struct {
	Firmware   Identity       `json:"firmware"`
	Definition DefinitionInfo `json:"definition"`
	Constants  []Constant     `json:"constants"`
	Flags      []Flag         `json:"flags"`
	Tables     []Table        `json:"tables"`
	Patches    []Patch        `json:"patches"`
	Warnings   []Warning      `json:"warnings"`
}

// WarningsFor returns the warnings attached to the element of the given kind and title.
func (r *ExtractionResult) WarningsFor(kind ElementKind, title string) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Target.Kind == kind && w.Target.Title == title {
			out = append(out, w)
		}
	}
	return out
}
