//go:build js && wasm

package jsdom

import (
	"sync"
	"syscall/js"

	"github.com/starford/novelcipher/internal/protect"
)

// Guards implements protect.Mechanism for the page's document.
type Guards struct {
	document js.Value

	mu       sync.Mutex
	handlers map[protect.EventType]js.Func
	global   []js.Func
}

var _ protect.Mechanism[js.Value] = (*Guards)(nil)

// NewGuards returns the mechanism for the global document.
func NewGuards() *Guards {
	return &Guards{
		document: js.Global().Get("document"),
		handlers: make(map[protect.EventType]js.Func),
	}
}

// Present implements protect.Mechanism.
func (g *Guards) Present(region js.Value) bool {
	return region.Truthy()
}

// AttachGuards implements protect.Mechanism. Handler functions are shared by
// all regions, so re-attaching assigns the same function again.
func (g *Guards) AttachGuards(region js.Value, p *protect.Policy) {
	region.Get("classList").Call("add", p.NoSelectClass)
	style := region.Get("style")
	for _, s := range p.Styles {
		style.Call("setProperty", s.Name, s.Value)
	}
	for _, typ := range p.RegionEvents {
		region.Set("on"+string(typ), g.regionHandler(typ, p))
	}
}

func (g *Guards) regionHandler(typ protect.EventType, p *protect.Policy) js.Func {
	g.mu.Lock()
	defer g.mu.Unlock()
	if fn, ok := g.handlers[typ]; ok {
		return fn
	}
	fn := js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) > 0 {
			p.CancelRegionEvent(event{v: args[0]})
		}
		return nil
	})
	g.handlers[typ] = fn
	return fn
}

// documentGuarded records that the page's document carries the global
// guards. A wasm module sees exactly one document.
var (
	documentMu      sync.Mutex
	documentGuarded bool
)

// InstallGlobalGuards implements protect.Mechanism.
func (g *Guards) InstallGlobalGuards(p *protect.Policy) bool {
	documentMu.Lock()
	defer documentMu.Unlock()
	if documentGuarded {
		return false
	}
	documentGuarded = true

	g.mu.Lock()
	defer g.mu.Unlock()
	for typ, h := range p.GlobalHandlers() {
		fn := js.FuncOf(func(_ js.Value, args []js.Value) any {
			if len(args) > 0 {
				h(event{v: args[0]})
			}
			return nil
		})
		g.global = append(g.global, fn)
		g.document.Call("addEventListener", string(typ), fn)
	}
	return true
}

// NewEnforcer returns an enforcer bound to the page's document.
func NewEnforcer(opts ...protect.EnforcerOption) *protect.Enforcer[js.Value] {
	return protect.NewEnforcer[js.Value](NewGuards(), opts...)
}

type event struct{ v js.Value }

func (e event) Type() protect.EventType { return protect.EventType(e.v.Get("type").String()) }

func (e event) Target() protect.Target {
	t := e.v.Get("target")
	if !t.Truthy() {
		return nil
	}
	return target{v: t}
}

func (e event) Key() string {
	k := e.v.Get("key")
	if k.Type() != js.TypeString {
		return ""
	}
	return k.String()
}

func (e event) Modifier() bool {
	return e.v.Get("ctrlKey").Truthy() || e.v.Get("metaKey").Truthy()
}

func (e event) PreventDefault() { e.v.Call("preventDefault") }

const elementNode = 1

type target struct{ v js.Value }

func (t target) isElement() bool {
	nt := t.v.Get("nodeType")
	return nt.Type() == js.TypeNumber && nt.Int() == elementNode
}

// element returns the target itself, or the parent element of a text node.
func (t target) element() js.Value {
	if t.isElement() {
		return t.v
	}
	parent := t.v.Get("parentElement")
	if parent.Type() != js.TypeObject {
		return js.Null()
	}
	return parent
}

func (t target) IsTextInput() bool {
	if !t.isElement() {
		return false
	}
	switch t.v.Get("tagName").String() {
	case "INPUT", "TEXTAREA":
		return true
	}
	return false
}

func (t target) WithinClass(class string) bool {
	el := t.element()
	if !el.Truthy() {
		return false
	}
	return el.Call("closest", "."+class).Truthy()
}
