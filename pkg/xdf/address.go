package xdf

import (
	"fmt"
	"math"
	"strings"

	"github.com/tosih/xdf-exporter/pkg/models"
)

// Type-flag bits of an embedded-data descriptor. Bit 0 and bit 1 follow
// the historical on-disk convention and must not be reordered.
const (
	FlagLittleEndian = 0x01
	FlagSigned       = 0x02
	FlagColumnMajor  = 0x04
)

const defaultWidth = 8

// Strategy resolves an AddressSpec from one element node. It reports
// false when the node does not carry the layout the strategy knows about.
type Strategy struct {
	Name    string
	Resolve func(n *Node) (models.AddressSpec, bool)
}

// Strategies is the address resolution chain, in priority order.
var Strategies = []Strategy{
	{Name: "embedded-address", Resolve: embeddedAddress},
	{Name: "typeflags-address", Resolve: typeFlagsAddress},
	{Name: "element-address", Resolve: elementAddress},
	{Name: "child-address", Resolve: childAddress},
}

// AddressResolutionError reports an element whose address could not be resolved.
type AddressResolutionError struct {
	Element string
	Tried   []string
	Reason  string
}

func (e *AddressResolutionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("xdf: could not resolve address of %s: %s", e.Element, e.Reason)
	}
	return fmt.Sprintf("xdf: could not resolve address of %s: no strategy matched (tried %s)",
		e.Element, strings.Join(e.Tried, ", "))
}

// Resolve runs the default strategy chain against n.
func Resolve(n *Node) (models.AddressSpec, error) {
	return ResolveWith(n, Strategies)
}

// ResolveWith tries each strategy in order and returns the first match.
// The matched spec must satisfy the AddressSpec invariants.
func ResolveWith(n *Node, strategies []Strategy) (models.AddressSpec, error) {
	tried := make([]string, 0, len(strategies))
	for _, s := range strategies {
		spec, ok := s.Resolve(n)
		if !ok {
			tried = append(tried, s.Name)
			continue
		}
		switch {
		case spec.Raw < 0:
			return spec, &AddressResolutionError{
				Element: describe(n),
				Reason:  fmt.Sprintf("negative address %d (%s)", spec.Raw, s.Name),
			}
		case !spec.Valid():
			return spec, &AddressResolutionError{
				Element: describe(n),
				Reason:  fmt.Sprintf("unsupported element width %d bits (%s)", spec.Width, s.Name),
			}
		}
		return spec, nil
	}
	return models.AddressSpec{}, &AddressResolutionError{Element: describe(n), Tried: tried}
}

func describe(n *Node) string {
	if n == nil {
		return "<nil>"
	}
	if title := n.LookupText("title", "name"); title != "" {
		return fmt.Sprintf("<%s> %q", n.Name, title)
	}
	if name, ok := n.Attr("name"); ok {
		return fmt.Sprintf("<%s> %q", n.Name, name)
	}
	if id, ok := n.Attr("id"); ok {
		return fmt.Sprintf("<%s id=%q>", n.Name, id)
	}
	return "<" + n.Name + ">"
}

// embedded returns the embedded-data descriptor of n, if any.
func embedded(n *Node) *Node {
	return n.Lookup("EMBEDDEDDATA")
}

// layout fills width, signedness and endianness. The embedded-data
// descriptor wins over attributes on the element itself.
func layout(n *Node, raw int64) models.AddressSpec {
	spec := models.AddressSpec{Raw: raw, Width: defaultWidth}
	e := embedded(n)

	if w, ok := attrInt(e, "mmedelementsizebits"); ok {
		spec.Width = int(w)
	} else if w, ok := attrInt(n, "sizebits"); ok {
		spec.Width = int(w)
	} else if w, ok := attrInt(n, "elementsizebits"); ok {
		spec.Width = int(w)
	}

	flags, ok := attrInt(e, "mmedtypeflags")
	if !ok {
		flags, _ = attrInt(n, "typeflags")
	}
	spec.LittleEndian = flags&FlagLittleEndian != 0
	spec.Signed = flags&FlagSigned != 0
	return spec
}

// typeFlags returns the raw type-flag bits of n's descriptor.
func typeFlags(n *Node) int64 {
	flags, ok := attrInt(embedded(n), "mmedtypeflags")
	if !ok {
		flags, _ = attrInt(n, "typeflags")
	}
	return flags
}

// embeddedAddress: <EMBEDDEDDATA mmedaddress="0x3C42" .../>
func embeddedAddress(n *Node) (models.AddressSpec, bool) {
	addr, ok := attrInt(embedded(n), "mmedaddress")
	if !ok {
		return models.AddressSpec{}, false
	}
	return layout(n, addr), true
}

// typeFlagsAddress: <EMBEDDEDDATA mmedtypeflags="0x02" address="0x3C42"/>,
// a dialect that pairs the type flags with a plain address attribute.
func typeFlagsAddress(n *Node) (models.AddressSpec, bool) {
	e := embedded(n)
	if _, ok := e.Attr("mmedtypeflags"); !ok {
		return models.AddressSpec{}, false
	}
	for _, name := range []string{"address", "mmedaddr"} {
		if addr, ok := attrInt(e, name); ok {
			return layout(n, addr), true
		}
	}
	return models.AddressSpec{}, false
}

// elementAddress: <XDFFLAG address="0x1F00">
func elementAddress(n *Node) (models.AddressSpec, bool) {
	addr, ok := attrInt(n, "address")
	if !ok {
		return models.AddressSpec{}, false
	}
	return layout(n, addr), true
}

// childAddress: <mem>0x1F00</mem>, <memory>..</memory> or <addr>..</addr>.
func childAddress(n *Node) (models.AddressSpec, bool) {
	for _, tag := range []string{"mem", "memory", "addr"} {
		if addr, ok := textInt(n, tag); ok {
			return layout(n, addr), true
		}
	}
	return models.AddressSpec{}, false
}

// BaseOffset translates definition-space addresses to file offsets.
type BaseOffset struct {
	Offset   int64
	Subtract bool
}

// FileOffset maps a raw definition address to a file byte offset. The
// result may be negative or beyond the image; callers check bounds.
// It saturates instead of wrapping so a huge address never maps back
// into the image.
func (b BaseOffset) FileOffset(raw int64) int64 {
	if b.Subtract {
		if b.Offset == math.MinInt64 {
			return math.MaxInt64
		}
		return AddOffset(raw, -b.Offset)
	}
	return AddOffset(raw, b.Offset)
}

// AddOffset returns off+delta, saturated to the int64 range.
func AddOffset(off, delta int64) int64 {
	switch {
	case delta > 0 && off > math.MaxInt64-delta:
		return math.MaxInt64
	case delta < 0 && off < math.MinInt64-delta:
		return math.MinInt64
	}
	return off + delta
}

func (b BaseOffset) String() string {
	op := "+"
	if b.Subtract {
		op = "-"
	}
	return fmt.Sprintf("%s0x%X", op, b.Offset)
}
