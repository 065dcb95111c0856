package bulletin

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultTitle is used for documents without a <title>.
const DefaultTitle = "Haftalık Bülten"

// Document is a parsed source document.
type Document struct {
	root *html.Node
	body *html.Node
}

// Parse reads an HTML document and strips the parts that are never
// published: comments, <style> elements and inline style attributes.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	clean(root)

	doc := &Document{root: root}
	doc.body = findElement(root, atom.Body)
	if doc.body == nil {
		doc.body = root
	}
	return doc, nil
}

// Title returns the trimmed <title> text, or DefaultTitle.
func (d *Document) Title() string {
	n := findElement(d.root, atom.Title)
	if n == nil {
		return DefaultTitle
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	title := strings.TrimSpace(sb.String())
	if title == "" {
		return DefaultTitle
	}
	return title
}

// Body renders the inner HTML of <body>.
func (d *Document) Body() (string, error) {
	var buf bytes.Buffer
	for c := d.body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render body: %w", err)
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// RewriteRefs replaces every src and href value inside <body> for which fn
// reports true.
func (d *Document) RewriteRefs(fn func(ref string) (string, bool)) {
	walk(d.body, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		for i, a := range n.Attr {
			if a.Namespace != "" || (a.Key != "src" && a.Key != "href") {
				continue
			}
			if v, ok := fn(a.Val); ok {
				n.Attr[i].Val = v
			}
		}
	})
}

// Extract returns the title and cleaned body of an HTML document.
func Extract(src []byte) (title, body string, err error) {
	doc, err := Parse(bytes.NewReader(src))
	if err != nil {
		return "", "", err
	}
	body, err = doc.Body()
	if err != nil {
		return "", "", err
	}
	return doc.Title(), body, nil
}

// clean removes comments, <style> elements and style attributes.
func clean(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && c.DataAtom == atom.Style:
			n.RemoveChild(c)
		default:
			if c.Type == html.ElementNode {
				c.Attr = dropAttr(c.Attr, "style")
			}
			clean(c)
		}
		c = next
	}
}

func dropAttr(attrs []html.Attribute, key string) []html.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	return out
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
