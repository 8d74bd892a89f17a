// Package protect decides which user actions on rendered chapter text are
// cancelled and attaches that policy to a render surface through a Mechanism.
//
// Protection is a client-side deterrent. Nothing in this package returns an
// error: an absent region or event target degrades to a no-op so that content
// rendering is never blocked.
package protect

import "strings"

// EventType names an interaction event.
type EventType string

// Events intercepted by the enforcer.
const (
	EventCopy        EventType = "copy"
	EventCut         EventType = "cut"
	EventPaste       EventType = "paste"
	EventContextMenu EventType = "contextmenu"
	EventDragStart   EventType = "dragstart"
	EventDrag        EventType = "drag"
	EventDragEnd     EventType = "dragend"
	EventKeyDown     EventType = "keydown"
	EventSelectStart EventType = "selectstart"
)

// Class names shared with the view layer.
const (
	ClassProtected = "protected-content"
	ClassNoSelect  = "no-select"
)

// Target is the node an event was dispatched on.
type Target interface {
	// IsTextInput reports whether the node is an editable text control.
	IsTextInput() bool
	// WithinClass reports whether the node or an ancestor carries class.
	WithinClass(class string) bool
}

// Event is the view of an interaction event the policy needs.
type Event interface {
	Type() EventType
	// Target may return nil.
	Target() Target
	Key() string
	// Modifier reports whether Control or Meta was held.
	Modifier() bool
	PreventDefault()
}

// StyleProperty is an inline style declaration.
type StyleProperty struct {
	Name  string
	Value string
}

// Policy is the set of actions blocked on and around protected regions.
type Policy struct {
	ProtectedClass string
	NoSelectClass  string
	// RegionEvents are cancelled unconditionally on a protected region.
	RegionEvents []EventType
	// Styles are applied inline to a protected region.
	Styles []StyleProperty
	// ShortcutKeys are blocked when pressed with Control or Meta.
	ShortcutKeys []string
}

// DefaultPolicy blocks clipboard, drag and context-menu actions on regions,
// and the copy, cut, print, save and select-all shortcuts.
func DefaultPolicy() *Policy {
	return &Policy{
		ProtectedClass: ClassProtected,
		NoSelectClass:  ClassNoSelect,
		RegionEvents: []EventType{
			EventCopy, EventCut, EventPaste,
			EventContextMenu,
			EventDragStart, EventDrag, EventDragEnd,
		},
		Styles: []StyleProperty{
			{Name: "-webkit-touch-callout", Value: "none"},
			{Name: "-webkit-user-select", Value: "none"},
			{Name: "-khtml-user-select", Value: "none"},
			{Name: "-moz-user-select", Value: "none"},
			{Name: "-ms-user-select", Value: "none"},
			{Name: "user-select", Value: "none"},
		},
		ShortcutKeys: []string{"c", "x", "p", "s", "a"},
	}
}

// CancelRegionEvent is the handler attached to a protected region for each
// of RegionEvents.
func (p *Policy) CancelRegionEvent(ev Event) {
	if ev == nil {
		return
	}
	ev.PreventDefault()
}

// BlocksShortcut reports whether key pressed with the given modifier state
// is an extraction shortcut.
func (p *Policy) BlocksShortcut(key string, modifier bool) bool {
	if !modifier {
		return false
	}
	key = strings.ToLower(key)
	for _, k := range p.ShortcutKeys {
		if k == key {
			return true
		}
	}
	return false
}

// HandleKeyDown cancels extraction shortcuts unless they were typed into a
// text input.
func (p *Policy) HandleKeyDown(ev Event) {
	if ev == nil || !p.BlocksShortcut(ev.Key(), ev.Modifier()) {
		return
	}
	if t := ev.Target(); t != nil && t.IsTextInput() {
		return
	}
	ev.PreventDefault()
}

// AllowsSelection reports whether selection may start on t.
func (p *Policy) AllowsSelection(t Target) bool {
	if t == nil || t.IsTextInput() {
		return true
	}
	return !t.WithinClass(p.ProtectedClass)
}

// HandleSelectStart cancels selection starting inside a protected region.
func (p *Policy) HandleSelectStart(ev Event) {
	if ev == nil || p.AllowsSelection(ev.Target()) {
		return
	}
	ev.PreventDefault()
}

// BlocksContextMenu reports whether the context menu is suppressed on t.
func (p *Policy) BlocksContextMenu(t Target) bool {
	return t != nil && t.WithinClass(p.ProtectedClass)
}

// HandleContextMenu cancels the context menu inside protected regions.
func (p *Policy) HandleContextMenu(ev Event) {
	if ev == nil || !p.BlocksContextMenu(ev.Target()) {
		return
	}
	ev.PreventDefault()
}

// GlobalHandlers maps each document-level event to its policy handler.
func (p *Policy) GlobalHandlers() map[EventType]func(Event) {
	return map[EventType]func(Event){
		EventKeyDown:     p.HandleKeyDown,
		EventSelectStart: p.HandleSelectStart,
		EventContextMenu: p.HandleContextMenu,
	}
}
