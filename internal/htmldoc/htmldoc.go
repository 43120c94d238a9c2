// Package htmldoc implements snapshot.Document over a parsed HTML tree.
//
// It is used for static files that need no script execution: the parsed tree
// is treated as an already loaded page.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/v0xg/pagesnap/internal/snapshot"
)

// ErrNotFound is returned when a lookup or removal misses.
var ErrNotFound = snapshot.ErrNotFound

// Document is a mutable HTML tree.
type Document struct {
	root      *html.Node
	mutations int
}

// Open parses the HTML file at path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: open: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse parses HTML from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return &Document{root: root}, nil
}

// WaitLoad reports that the document is loaded. A parsed tree has nothing
// left to load.
func (d *Document) WaitLoad() error { return nil }

// Mutations returns the number of nodes removed so far.
func (d *Document) Mutations() int { return d.mutations }

// DocumentElement returns the root <html> element.
func (d *Document) DocumentElement() *html.Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *html.Node {
	return findAtom(d.root, atom.Body)
}

// ElementByID returns the first element in document order whose id attribute
// equals id.
func (d *Document) ElementByID(id string) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.root)
	return found
}

// ElementText implements snapshot.Document.
func (d *Document) ElementText(_ context.Context, id string) (string, bool, error) {
	n := d.ElementByID(id)
	if n == nil {
		return "", false, nil
	}
	return TextContent(n), true, nil
}

// RemoveElement implements snapshot.Document.
func (d *Document) RemoveElement(_ context.Context, id string) error {
	n := d.ElementByID(id)
	if n == nil || n.Parent == nil {
		return fmt.Errorf("htmldoc: #%s: %w", id, ErrNotFound)
	}
	n.Parent.RemoveChild(n)
	d.mutations++
	return nil
}

// RemoveBodyChild implements snapshot.Document.
func (d *Document) RemoveBodyChild(_ context.Context, id string) error {
	body := d.Body()
	if body == nil {
		return fmt.Errorf("htmldoc: body: %w", ErrNotFound)
	}
	n := d.ElementByID(id)
	if n == nil || n.Parent != body {
		return fmt.Errorf("htmldoc: #%s is not a child of body: %w", id, ErrNotFound)
	}
	body.RemoveChild(n)
	d.mutations++
	return nil
}

// OuterHTML implements snapshot.Document.
func (d *Document) OuterHTML(_ context.Context) (string, error) {
	el := d.DocumentElement()
	if el == nil {
		return "", nil
	}
	var sb strings.Builder
	if err := html.Render(&sb, el); err != nil {
		return "", fmt.Errorf("htmldoc: render: %w", err)
	}
	return sb.String(), nil
}

// TextContent concatenates every text node under n, untrimmed.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findAtom(c, a); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
