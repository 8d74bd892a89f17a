package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/novelcipher/internal/protect"
)

// Element creates a detached element with the given classes.
func Element(tag string, classes ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	if len(classes) > 0 {
		setAttr(n, "class", strings.Join(classes, " "))
	}
	return n
}

// Text creates a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// HasClass reports whether n's class attribute contains class.
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Style parses n's inline style attribute.
func Style(n *html.Node) []protect.StyleProperty {
	var out []protect.StyleProperty
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out = append(out, protect.StyleProperty{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return out
}

// StyleValue returns the value of one inline style property.
func StyleValue(n *html.Node, name string) string {
	for _, p := range Style(n) {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// TextContent concatenates the text nodes under n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// target adapts a node to protect.Target.
type target struct{ n *html.Node }

func (t target) IsTextInput() bool {
	if t.n.Type != html.ElementNode {
		return false
	}
	return t.n.DataAtom == atom.Input || t.n.DataAtom == atom.Textarea
}

func (t target) WithinClass(class string) bool {
	for c := t.n; c != nil; c = c.Parent {
		if HasClass(c, class) {
			return true
		}
	}
	return false
}
