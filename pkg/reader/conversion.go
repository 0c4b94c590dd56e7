package reader

import (
	"github.com/tosih/xdf-exporter/pkg/formula"
	"github.com/tosih/xdf-exporter/pkg/models"
)

// conversion applies one element's formula to every raw value of the
// element. A formula that fails to compile or evaluate leaves the raw
// value in place; the failure is reported once per element.
type conversion struct {
	expr     string
	f        *formula.Formula
	err      error
	failures int
	total    int
}

func newConversion(expr string) *conversion {
	f, err := formula.Compile(expr)
	return &conversion{expr: expr, f: f, err: err}
}

func (c *conversion) apply(raw float64) float64 {
	c.total++
	if c.f == nil {
		c.failures++
		return raw
	}
	v, err := c.f.Eval(raw)
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		c.failures++
		return raw
	}
	return v
}

func (c *conversion) failed() bool { return c.failures > 0 }

// report adds a single Formula warning when any application failed.
// what names the part of the element, such as "x axis", or is empty.
func (c *conversion) report(sink *models.Sink, ref models.Ref, what string) {
	if c.failures == 0 {
		return
	}
	prefix := ""
	if what != "" {
		prefix = what + ": "
	}
	if c.total == 1 {
		sink.Add(models.KindFormula, models.SeverityWarning, ref,
			"%sformula %q failed, raw value kept: %v", prefix, c.expr, c.err)
		return
	}
	sink.Add(models.KindFormula, models.SeverityWarning, ref,
		"%sformula %q failed for %d of %d values, raw values kept: %v",
		prefix, c.expr, c.failures, c.total, c.err)
}
