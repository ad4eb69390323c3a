package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Region ids the loader writes into.
const (
	RegionMetrics  = "metrics"
	RegionRegistry = "registry"
	RegionDeployed = "deployed"
	RegionAlerts   = "alerts"
)

// Regions lists every display region in render order.
var Regions = []string{RegionMetrics, RegionRegistry, RegionDeployed, RegionAlerts}

// Document is a parsed HTML page. It is not safe for concurrent mutation.
type Document struct {
	root *html.Node
}

// ParseDocument parses a full HTML page.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseDocumentString is ParseDocument over a string.
func ParseDocumentString(s string) (*Document, error) {
	return ParseDocument(strings.NewReader(s))
}

// Region returns the first element whose id attribute matches.
func (d *Document) Region(id string) (*Region, error) {
	if n := findByID(d.root, id); n != nil {
		return &Region{id: id, node: n}, nil
	}
	return nil, &RegionNotFoundError{ID: id}
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Namespace == "" && a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// Region is a display region whose content is replaced wholesale.
type Region struct {
	id   string
	node *html.Node
}

// ID returns the region's element id.
func (r *Region) ID() string { return r.id }

// Replace drops the current children and appends nodes in order.
func (r *Region) Replace(nodes ...*html.Node) {
	for c := r.node.FirstChild; c != nil; {
		next := c.NextSibling
		r.node.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		r.node.AppendChild(n)
	}
}

// Empty reports whether the region has no element or non-blank text children.
func (r *Region) Empty() bool {
	for c := r.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode || strings.TrimSpace(c.Data) != "" {
			return false
		}
	}
	return true
}

// InnerHTML renders the region's children.
func (r *Region) InnerHTML() string {
	var buf bytes.Buffer
	for c := r.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// Text returns the text of each child on its own line.
func (r *Region) Text() string {
	var lines []string
	for c := r.node.FirstChild; c != nil; c = c.NextSibling {
		var sb strings.Builder
		collectText(&sb, c)
		if s := sb.String(); strings.TrimSpace(s) != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}

// Find returns the first descendant element with the given tag.
func (r *Region) Find(a atom.Atom) *html.Node {
	return findElement(r.node, a)
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func collectText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(sb, c)
	}
}

// TextContent returns the concatenated text under n.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	collectText(&sb, n)
	return sb.String()
}
