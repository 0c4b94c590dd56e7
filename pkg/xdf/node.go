package xdf

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/xerrors"
)

// Node is a generic XML element. Definitions come in several structural
// dialects, so they are decoded into a tree and queried by tag name
// rather than unmarshaled into fixed structs.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ParseTree decodes an XML document into its root node.
func ParseTree(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	dec.CharsetReader = charsetReader

	var (
		root  *Node
		stack []*Node
		text  []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: tok.Name.Local, Attrs: make(map[string]string, len(tok.Attr))}
			for _, attr := range tok.Attr {
				n.Attrs[attr.Name.Local] = attr.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, xerrors.Errorf("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			text = append(text, new(strings.Builder))
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(tok)
			}
		}
	}
	if root == nil {
		return nil, xerrors.Errorf("empty document")
	}
	return root, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, xerrors.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, xerrors.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Attr returns the named attribute, trimmed.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Child returns the first direct child with the given tag.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Find returns the first descendant with the given tag, depth first.
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
		if d := c.Find(name); d != nil {
			return d
		}
	}
	return nil
}

// Lookup prefers a direct child and falls back to any descendant.
func (n *Node) Lookup(name string) *Node {
	if c := n.Child(name); c != nil {
		return c
	}
	return n.Find(name)
}

// FindAll returns every descendant with the given tag, in document order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	n.walk(func(c *Node) bool {
		if c.Name == name {
			out = append(out, c)
		}
		return true
	})
	return out
}

// walk visits the descendants of n in document order. Returning false
// from fn skips the subtree of the visited node.
func (n *Node) walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	for _, c := range n.Children {
		if fn(c) {
			c.walk(fn)
		}
	}
}

// LookupText returns the text of the first matching child or descendant.
func (n *Node) LookupText(names ...string) string {
	for _, name := range names {
		if c := n.Lookup(name); c != nil && c.Text != "" {
			return c.Text
		}
	}
	return ""
}

// parseInt parses a decimal or 0x-prefixed hexadecimal integer.
func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return strconv.ParseInt(s[2:], 16, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

func attrInt(n *Node, name string) (int64, bool) {
	s, ok := n.Attr(name)
	if !ok {
		return 0, false
	}
	v, err := parseInt(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func textInt(n *Node, name string) (int64, bool) {
	s := n.LookupText(name)
	if s == "" {
		return 0, false
	}
	v, err := parseInt(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func textFloat(n *Node, names ...string) *float64 {
	s := n.LookupText(names...)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func attrFloat(n *Node, name string) (float64, bool) {
	s, ok := n.Attr(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
