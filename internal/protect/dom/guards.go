package dom

import (
	"golang.org/x/net/html"

	"github.com/starford/novelcipher/internal/protect"
)

// Guards implements protect.Mechanism for a Document.
type Guards struct {
	doc *Document
}

var _ protect.Mechanism[*html.Node] = (*Guards)(nil)

// NewGuards returns the mechanism for doc.
func NewGuards(doc *Document) *Guards {
	return &Guards{doc: doc}
}

// Present implements protect.Mechanism.
func (g *Guards) Present(region *html.Node) bool {
	return region != nil
}

// AttachGuards implements protect.Mechanism.
func (g *Guards) AttachGuards(region *html.Node, p *protect.Policy) {
	g.doc.AddClass(region, p.NoSelectClass)
	for _, s := range p.Styles {
		g.doc.SetStyle(region, s.Name, s.Value)
	}
	for _, typ := range p.RegionEvents {
		g.doc.SetOn(region, typ, func(ev *Event) { p.CancelRegionEvent(ev) })
	}
}

// InstallGlobalGuards implements protect.Mechanism.
func (g *Guards) InstallGlobalGuards(p *protect.Policy) bool {
	if !g.doc.claimGlobalGuards() {
		return false
	}
	for typ, h := range p.GlobalHandlers() {
		g.doc.AddEventListener(typ, func(ev *Event) { h(ev) })
	}
	return true
}

// NewEnforcer returns an enforcer bound to doc.
func NewEnforcer(doc *Document, opts ...protect.EnforcerOption) *protect.Enforcer[*html.Node] {
	return protect.NewEnforcer[*html.Node](NewGuards(doc), opts...)
}
