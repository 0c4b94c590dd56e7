package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pterm/pterm"
	"github.com/tosih/xdf-exporter/pkg/models"
	"golang.org/x/xerrors"
)

// WriteCSV writes every table of res as one CSV block: metadata comment
// lines, a header of X-axis values and one line per row led by its Y
// value. Blocks are separated by an empty record.
func WriteCSV(w io.Writer, res *models.ExtractionResult) error {
	cw := csv.NewWriter(w)
	for i := range res.Tables {
		if i > 0 {
			cw.Write([]string{""})
		}
		writeCSVTable(cw, &res.Tables[i])
	}
	cw.Flush()
	return cw.Error()
}

func writeCSVTable(cw *csv.Writer, t *models.Table) {
	cw.Write([]string{fmt.Sprintf("# %s", t.Title)})
	cw.Write([]string{fmt.Sprintf("# Category: %s", t.Category)})
	if t.Z.Address != nil {
		cw.Write([]string{fmt.Sprintf("# Address: 0x%04X", t.Z.Address.Raw)})
	}
	cw.Write([]string{fmt.Sprintf("# Size: %dx%d", t.Rows(), t.Cols())})
	cw.Write([]string{fmt.Sprintf("# Unit: %s", t.Z.Units)})

	header := []string{"Y\\X"}
	for j := 0; j < t.Cols(); j++ {
		if j < len(t.X.Values) {
			header = append(header, FormatValue(t.X.Values[j], t.X.Decimals))
		} else {
			header = append(header, fmt.Sprintf("C%d", j))
		}
	}
	cw.Write(header)

	for i, row := range t.Data {
		label := fmt.Sprintf("R%d", i)
		if i < len(t.Y.Values) {
			label = FormatValue(t.Y.Values[i], t.Y.Decimals)
		}
		rec := []string{label}
		for _, v := range row {
			rec = append(rec, FormatValue(v, t.Decimals))
		}
		cw.Write(rec)
	}
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// FileName returns the CSV file name used for a table title.
func FileName(title string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(title), "_"), "_")
	if name == "" {
		name = "table"
	}
	return name + ".csv"
}

// TablesToCSV writes one CSV file per table whose title contains filter
// (case-insensitive; "all" or empty selects every table) into dir.
// It returns the paths written.
func TablesToCSV(dir string, res *models.ExtractionResult, filter string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Errorf("export: could not create %q: %w", dir, err)
	}
	filter = strings.ToLower(filter)

	spinner, _ := pterm.DefaultSpinner.Start("Exporting tables to CSV...")
	var (
		paths []string
		seen  = make(map[string]int)
	)
	for i := range res.Tables {
		t := &res.Tables[i]
		if filter != "" && filter != "all" && !strings.Contains(strings.ToLower(t.Title), filter) {
			continue
		}
		name := FileName(t.Title)
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%s_%d.csv", strings.TrimSuffix(name, ".csv"), n+1)
		}
		seen[FileName(t.Title)]++

		path := filepath.Join(dir, name)
		if err := writeCSVFile(path, t); err != nil {
			spinner.Warning(fmt.Sprintf("Failed to export %s", t.Title))
			continue
		}
		paths = append(paths, path)
	}
	spinner.Success(fmt.Sprintf("%d tables exported to %s", len(paths), dir))
	return paths, nil
}

func writeCSVFile(path string, t *models.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	writeCSVTable(cw, t)
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
