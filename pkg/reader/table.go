package reader

import (
	"github.com/tosih/xdf-exporter/pkg/models"
	"github.com/tosih/xdf-exporter/pkg/xdf"
)

// Table assembles a table: both label axes and the Z matrix are read and
// converted independently, then cross-checked. Data is always returned
// row-major whatever the storage order. A Z region cut short by the end of
// the image yields the fully readable rows (or columns, for column-major
// storage) and one DimensionMismatch warning.
func (r *Reader) Table(t *xdf.Table, ref models.Ref, sink *models.Sink) (models.Table, bool) {
	rows, cols := t.Dims()
	orientation := r.orientation
	if t.Z.ColumnMajor {
		orientation = models.ColumnMajor
	}

	out := models.Table{
		Title:        t.Title,
		Category:     t.Category,
		Decimals:     t.Decimals,
		DeclaredRows: rows,
		DeclaredCols: cols,
		Orientation:  orientation,
		Z: models.Axis{
			Role:     models.AxisZ,
			Units:    t.Z.Units,
			Decimals: t.Z.Decimals,
			Address:  t.Z.Address,
			Formula:  t.Z.Formula,
			Count:    rows * cols,
			Source:   models.SourceMemory,
		},
	}

	data, ok := r.matrix(t, rows, cols, orientation, ref, sink)
	if !ok {
		return models.Table{}, false
	}
	out.SetData(data)

	out.X = r.axis(&t.X, cols, ref, sink)
	out.Y = r.axis(&t.Y, rows, ref, sink)
	for _, ax := range []struct {
		axis *xdf.Axis
		want int
		dim  string
	}{
		{&t.X, cols, "columns"},
		{&t.Y, rows, "rows"},
	} {
		if ax.axis.Count > 1 && ax.axis.Count != ax.want {
			sink.Add(models.KindDimensionMismatch, models.SeverityWarning, ref,
				"%s axis declares %d values but the matrix has %d %s",
				ax.axis.Role, ax.axis.Count, ax.want, ax.dim)
		}
	}
	return out, true
}

func (r *Reader) matrix(t *xdf.Table, rows, cols int, orientation models.Orientation,
	ref models.Ref, sink *models.Sink) ([][]float64, bool) {
	spec := *t.Z.Address

	// A line is a row for row-major storage and a column otherwise.
	lines, cells := rows, cols
	if orientation == models.ColumnMajor {
		lines, cells = cols, rows
	}
	cellStep := int64(spec.Bytes())
	if t.Z.MinorStride >= 8 {
		cellStep = int64(t.Z.MinorStride / 8)
	}
	lineStep := cellStep * int64(cells)
	if t.Z.MajorStride >= 8 {
		lineStep = int64(t.Z.MajorStride / 8)
	}

	// Every cell of a line starts at a distinct offset, so a line longer
	// than the image can never be read and at most size/cells lines fit.
	size := int64(r.img.Size())
	if int64(cells) > size {
		sink.Add(models.KindOutOfRange, models.SeverityWarning, ref,
			"declared %dx%d needs %d cells per %s, more than the %d-byte image holds; table omitted",
			rows, cols, cells, lineUnit(orientation), size)
		return nil, false
	}
	limit := lines
	if fit := size / int64(cells); int64(limit) > fit {
		limit = int(fit)
	}

	conv := newConversion(t.Z.Formula)
	var (
		read    [][]float64
		failOff = xdf.AddOffset(r.base.FileOffset(spec.Raw), int64(limit)*lineStep)
	)
lineLoop:
	for i := 0; i < limit; i++ {
		line := make([]float64, cells)
		for j := 0; j < cells; j++ {
			raw, off, err := r.read(spec, int64(i)*lineStep+int64(j)*cellStep)
			if err != nil {
				failOff = off
				break lineLoop
			}
			line[j] = conv.apply(float64(raw))
		}
		read = append(read, line)
	}
	conv.report(sink, ref, "z axis")

	if len(read) == 0 {
		r.outOfRange(sink, ref, spec, failOff)
		return nil, false
	}
	switch {
	case len(read) == limit && limit < lines:
		sink.Add(models.KindDimensionMismatch, models.SeverityWarning, ref,
			"declared %dx%d but only %d of %d %ss fit in the %d-byte image",
			rows, cols, len(read), lines, lineUnit(orientation), size)
	case len(read) < lines:
		sink.Add(models.KindDimensionMismatch, models.SeverityWarning, ref,
			"declared %dx%d but only %d of %d %ss are readable: file offset %d is beyond the %d-byte image",
			rows, cols, len(read), lines, lineUnit(orientation), failOff, size)
	}

	if orientation == models.RowMajor {
		return read, true
	}
	data := make([][]float64, rows)
	for i := range data {
		data[i] = make([]float64, len(read))
		for j, column := range read {
			data[i][j] = column[i]
		}
	}
	return data, true
}

// lineUnit names a stored line of the matrix.
func lineUnit(o models.Orientation) string {
	if o == models.ColumnMajor {
		return "column"
	}
	return "row"
}

// axis reads a label axis of n values: from memory when it has an
// address, else from its declared labels, else it is left empty.
func (r *Reader) axis(a *xdf.Axis, n int, ref models.Ref, sink *models.Sink) models.Axis {
	out := models.Axis{
		Role:     a.Role,
		Units:    a.Units,
		Decimals: a.Decimals,
		Address:  a.Address,
		Formula:  a.Formula,
		Source:   models.SourceNone,
	}
	conv := newConversion(a.Formula)
	what := string(a.Role) + " axis"

	switch {
	case a.Address != nil:
		count := a.Count
		if count <= 0 {
			count = n
		}
		step := int64(a.Address.Bytes())
		if a.MinorStride >= 8 {
			step = int64(a.MinorStride / 8)
		}
		out.Source = models.SourceMemory
		for i := 0; i < count; i++ {
			raw, off, err := r.read(*a.Address, int64(i)*step)
			if err != nil {
				sink.Add(models.KindOutOfRange, models.SeverityWarning, ref,
					"%s: value %d of %d at file offset %d is outside the %d-byte image; remaining values omitted",
					what, i+1, count, off, r.img.Size())
				break
			}
			out.Values = append(out.Values, conv.apply(float64(raw)))
		}
	case len(a.Labels) > 0:
		out.Source = models.SourceLabels
		for _, l := range a.Labels {
			out.Values = append(out.Values, conv.apply(l))
		}
	}
	conv.report(sink, ref, what)
	out.Count = len(out.Values)
	return out
}
