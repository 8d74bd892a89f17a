// Package dom is an in-memory render surface built on golang.org/x/net/html.
// It models the parts of a browser document the protection enforcer relies
// on: element classes and inline styles, on-event handler properties (one per
// event type and node) and document-level listeners, with bubbling dispatch.
package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/novelcipher/internal/protect"
)

// Handler receives a dispatched event.
type Handler func(*Event)

// Document is a render tree plus its event handlers.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	handlers  map[*html.Node]map[protect.EventType]Handler
	listeners map[protect.EventType][]Handler

	globalGuarded bool
}

const blankPage = "<!DOCTYPE html><html><head></head><body></body></html>"

// NewDocument returns an empty HTML document.
func NewDocument() *Document {
	doc, err := Parse(strings.NewReader(blankPage))
	if err != nil {
		panic(fmt.Sprintf("dom: parse blank page: %v", err))
	}
	return doc
}

// Parse builds a Document from HTML.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{
		root:      root,
		handlers:  make(map[*html.Node]map[protect.EventType]Handler),
		listeners: make(map[protect.EventType][]Handler),
	}, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the body element, or nil.
func (d *Document) Body() *html.Node {
	return find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
}

// ElementByID returns the first element with the given id, or nil.
func (d *Document) ElementByID(id string) *html.Node {
	return find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	})
}

// FirstByClass returns the first element carrying class, or nil.
func (d *Document) FirstByClass(class string) *html.Node {
	return find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && HasClass(n, class)
	})
}

// Append adds child as the last child of parent.
func (d *Document) Append(parent, child *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	parent.AppendChild(child)
}

// Remove detaches n from its parent and drops the handlers registered on
// n and its descendants.
func (d *Document) Remove(n *html.Node) {
	if n == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	walk(n, func(c *html.Node) { delete(d.handlers, c) })
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// SetOn assigns the on-event handler property of n for typ, replacing any
// previous one. A nil handler clears the property.
func (d *Document) SetOn(n *html.Node, typ protect.EventType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h == nil {
		delete(d.handlers[n], typ)
		return
	}
	hs, ok := d.handlers[n]
	if !ok {
		hs = make(map[protect.EventType]Handler)
		d.handlers[n] = hs
	}
	hs[typ] = h
}

// On reports whether n has an on-event handler for typ.
func (d *Document) On(n *html.Node, typ protect.EventType) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.handlers[n][typ]
	return ok
}

// AddEventListener registers a document-level listener. Listeners are not
// deduplicated.
func (d *Document) AddEventListener(typ protect.EventType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[typ] = append(d.listeners[typ], h)
}

// claimGlobalGuards marks the document as carrying the global guards. It
// returns false if it already did.
func (d *Document) claimGlobalGuards() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.globalGuarded {
		return false
	}
	d.globalGuarded = true
	return true
}

// ListenerCount returns the number of document listeners for typ.
func (d *Document) ListenerCount(typ protect.EventType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners[typ])
}

// Dispatch delivers ev to the on-handlers of its target and each ancestor,
// then to the document listeners. It reports whether the default action
// still applies.
func (d *Document) Dispatch(ev *Event) bool {
	d.mu.Lock()
	var chain []Handler
	for n := ev.target; n != nil; n = n.Parent {
		if h, ok := d.handlers[n][ev.typ]; ok {
			chain = append(chain, h)
		}
	}
	chain = append(chain, d.listeners[ev.typ]...)
	d.mu.Unlock()

	for _, h := range chain {
		h(ev)
	}
	return !ev.prevented
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// RenderNode writes n and its subtree as HTML.
func (d *Document) RenderNode(w io.Writer, n *html.Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, n)
}

// AddClass adds class to n's class list if absent.
func (d *Document) AddClass(n *html.Node, class string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if HasClass(n, class) {
		return
	}
	setAttr(n, "class", strings.TrimSpace(attr(n, "class")+" "+class))
}

// RemoveClass removes class from n's class list.
func (d *Document) RemoveClass(n *html.Node, class string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var kept []string
	for _, c := range strings.Fields(attr(n, "class")) {
		if c != class {
			kept = append(kept, c)
		}
	}
	setAttr(n, "class", strings.Join(kept, " "))
}

// SetStyle sets one inline style property on n.
func (d *Document) SetStyle(n *html.Node, name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	props := Style(n)
	replaced := false
	for i := range props {
		if props[i].Name == name {
			props[i].Value = value
			replaced = true
		}
	}
	if !replaced {
		props = append(props, protect.StyleProperty{Name: name, Value: value})
	}
	parts := make([]string, len(props))
	for i, p := range props {
		parts[i] = p.Name + ": " + p.Value
	}
	setAttr(n, "style", strings.Join(parts, "; ")+";")
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if got := find(c, match); got != nil {
			return got
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
