package dom

import (
	"golang.org/x/net/html"

	"github.com/starford/novelcipher/internal/protect"
)

// Event is a synthetic interaction event.
type Event struct {
	typ       protect.EventType
	target    *html.Node
	key       string
	ctrl      bool
	meta      bool
	prevented bool
}

// NewEvent creates an event of typ aimed at target. target may be nil.
func NewEvent(typ protect.EventType, target *html.Node) *Event {
	return &Event{typ: typ, target: target}
}

// NewKeyDown creates a keydown event.
func NewKeyDown(target *html.Node, key string, ctrl, meta bool) *Event {
	return &Event{typ: protect.EventKeyDown, target: target, key: key, ctrl: ctrl, meta: meta}
}

// Type implements protect.Event.
func (e *Event) Type() protect.EventType { return e.typ }

// Target implements protect.Event.
func (e *Event) Target() protect.Target {
	if e.target == nil {
		return nil
	}
	return target{n: e.target}
}

// Key implements protect.Event.
func (e *Event) Key() string { return e.key }

// Modifier implements protect.Event.
func (e *Event) Modifier() bool { return e.ctrl || e.meta }

// PreventDefault implements protect.Event.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether a handler cancelled the event.
func (e *Event) DefaultPrevented() bool { return e.prevented }
