package models

import (
	"errors"
	"fmt"
	"strings"
)

// WarningKind classifies a Warning.
type WarningKind string

const (
	KindZeroFill          WarningKind = "ZeroFill"
	KindUniform           WarningKind = "Uniform"
	KindOutOfRange        WarningKind = "OutOfRange"
	KindUnusualSize       WarningKind = "UnusualSize"
	KindDimensionMismatch WarningKind = "DimensionMismatch"
	KindAddressResolution WarningKind = "AddressResolution"
	KindFormula           WarningKind = "Formula"
	KindElementSkipped    WarningKind = "ElementSkipped"
	KindValueRange        WarningKind = "ValueRange"
	KindPatchMismatch     WarningKind = "PatchMismatch"
)

// Severity of a Warning. Warnings never block extraction regardless of severity.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("models: unknown severity %q", b)
	}
	return nil
}

// Ref identifies the element a Warning is attached to. Index is the
// position of the element in the result slice of its kind, or -1 when
// the element was not extracted or the warning is not about one element.
type Ref struct {
	Kind  ElementKind `json:"kind"`
	Title string      `json:"title,omitempty"`
	Index int         `json:"index"`
}

func (r Ref) String() string {
	if r.Title == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s %q", r.Kind, r.Title)
}

// Warning is an append-only annotation on an extraction result.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Severity Severity    `json:"severity"`
	Target   Ref         `json:"target"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Target, w.Message)
}

// Sink collects warnings raised while resolving, decoding and evaluating
// elements. A Sink is not safe for concurrent use; concurrent callers
// use one Sink per element and merge them in order.
type Sink struct {
	list []Warning
}

// Add appends a warning built from a format string.
func (s *Sink) Add(kind WarningKind, sev Severity, target Ref, format string, args ...interface{}) {
	s.list = append(s.list, Warning{
		Kind:     kind,
		Severity: sev,
		Target:   target,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Append appends already-built warnings.
func (s *Sink) Append(ws ...Warning) {
	s.list = append(s.list, ws...)
}

// Warnings returns a copy of the collected warnings.
func (s *Sink) Warnings() []Warning {
	if len(s.list) == 0 {
		return nil
	}
	out := make([]Warning, len(s.list))
	copy(out, s.list)
	return out
}

// Len returns the number of collected warnings.
func (s *Sink) Len() int { return len(s.list) }

// Count returns how many warnings of the given kind were collected.
func Count(ws []Warning, kind WarningKind) int {
	n := 0
	for _, w := range ws {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// ErrDimensionMismatch describes a table whose readable cells do not
// cover its declared geometry.
var ErrDimensionMismatch = errors.New("table dimensions do not match readable data")
