// Package reader turns sealed chapters into protected render-tree regions:
// fetch, decrypt, display transform, render and guard.
package reader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/starford/novelcipher/internal/cipher"
	"github.com/starford/novelcipher/internal/metrics"
	"github.com/starford/novelcipher/internal/protect"
	"github.com/starford/novelcipher/internal/protect/dom"
)

// Region classes.
const (
	ClassContent   = "reader-content"
	ClassParagraph = "mb-4"
)

// FontSize selects the text size class of the region.
type FontSize string

// Font sizes, smallest first.
const (
	FontSmall  FontSize = "small"
	FontMedium FontSize = "medium"
	FontLarge  FontSize = "large"
	FontXLarge FontSize = "x-large"
)

var fontSizes = []FontSize{FontSmall, FontMedium, FontLarge, FontXLarge}

// Class returns the CSS class for f, defaulting to medium.
func (f FontSize) Class() string {
	switch f {
	case FontSmall:
		return "text-base"
	case FontLarge:
		return "text-2xl"
	case FontXLarge:
		return "text-3xl"
	default:
		return "text-xl"
	}
}

// Larger returns the next size up, saturating at x-large.
func (f FontSize) Larger() FontSize { return f.step(1) }

// Smaller returns the next size down, saturating at small.
func (f FontSize) Smaller() FontSize { return f.step(-1) }

func (f FontSize) step(d int) FontSize {
	i := 1
	for j, s := range fontSizes {
		if s == f {
			i = j
		}
	}
	i = min(max(i+d, 0), len(fontSizes)-1)
	return fontSizes[i]
}

// Page is one opened chapter.
type Page struct {
	Number     int
	Title      string
	Prev, Next int
	// Paragraphs as rendered, possibly a single placeholder.
	Paragraphs []string
	// Region is the protected node holding the paragraphs.
	Region *html.Node
	// Err is the open failure when a placeholder was rendered.
	Err error
}

// Pipeline renders chapters from a Source into a Document.
type Pipeline struct {
	source   Source
	cipher   *cipher.Service
	doc      *dom.Document
	enforcer *protect.Enforcer[*html.Node]
	logger   *slog.Logger

	mu       sync.Mutex
	mount    *html.Node
	region   *html.Node
	fontSize FontSize
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMount sets the node regions are appended to. Defaults to the body.
func WithMount(n *html.Node) Option {
	return func(p *Pipeline) { p.mount = n }
}

// WithFontSize sets the initial font size.
func WithFontSize(f FontSize) Option {
	return func(p *Pipeline) { p.fontSize = f }
}

// WithEnforcer replaces the default enforcer over the document.
func WithEnforcer(e *protect.Enforcer[*html.Node]) Option {
	return func(p *Pipeline) { p.enforcer = e }
}

// New creates a Pipeline rendering into doc.
func New(source Source, c *cipher.Service, doc *dom.Document, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   source,
		cipher:   c,
		doc:      doc,
		logger:   slog.Default(),
		fontSize: FontMedium,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.enforcer == nil {
		p.enforcer = dom.NewEnforcer(doc,
			protect.WithLogger(p.logger),
			protect.WithObserver(metrics.GuardObserver{}))
	}
	if p.mount == nil {
		p.mount = doc.Body()
	}
	return p
}

// Document returns the render target.
func (p *Pipeline) Document() *dom.Document { return p.doc }

// Open fetches chapter number and replaces the current region with its
// protected rendering. A payload that cannot be opened renders the matching
// placeholder and is reported in Page.Err; fetch failures render nothing.
func (p *Pipeline) Open(ctx context.Context, number int) (*Page, error) {
	p.enforcer.SetupGlobalCopyProtection()

	d, err := p.source.Fetch(ctx, number)
	if err != nil {
		return nil, err
	}

	text, openErr := p.reveal(d.Ciphertext)
	if openErr != nil {
		p.logger.Warn("reader: chapter failed to open",
			slog.Int("number", number),
			slog.String("error", openErr.Error()))
	}

	paragraphs := strings.Split(text, "\n\n")
	region := p.render(paragraphs)

	return &Page{
		Number:     d.Number,
		Title:      d.Title,
		Prev:       d.Prev,
		Next:       d.Next,
		Paragraphs: paragraphs,
		Region:     region,
		Err:        openErr,
	}, nil
}

// reveal decrypts the payload and passes it through the display transform.
func (p *Pipeline) reveal(ciphertext string) (string, error) {
	opened := p.cipher.Open(ciphertext)
	if !opened.OK() {
		metrics.OpenFailures.WithLabelValues(metrics.StageDecrypt).Inc()
		return opened.Display(), opened.Err
	}
	shown := cipher.Reveal(cipher.ObscureForDisplay(opened.Text))
	if !shown.OK() {
		metrics.OpenFailures.WithLabelValues(metrics.StageDeobscure).Inc()
	}
	return shown.Display(), shown.Err
}

// render swaps in a fresh region and guards it.
func (p *Pipeline) render(paragraphs []string) *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.region != nil {
		p.doc.Remove(p.region)
	}
	region := dom.Element("div", ClassContent, p.enforcer.Policy().ProtectedClass, p.fontSize.Class())
	for _, para := range paragraphs {
		el := dom.Element("p", ClassParagraph)
		el.AppendChild(dom.Text(para))
		region.AppendChild(el)
	}
	p.doc.Append(p.mount, region)
	p.region = region

	p.enforcer.ApplyCopyProtection(region)
	return region
}

// SetFontSize changes the size class of the current region.
func (p *Pipeline) SetFontSize(f FontSize) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.region != nil {
		p.doc.RemoveClass(p.region, p.fontSize.Class())
		p.doc.AddClass(p.region, f.Class())
	}
	p.fontSize = f
}

// FontSize returns the current font size.
func (p *Pipeline) FontSize() FontSize {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fontSize
}

// HTML renders the current region, or "" before the first Open.
func (p *Pipeline) HTML() (string, error) {
	p.mu.Lock()
	region := p.region
	p.mu.Unlock()
	if region == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := p.doc.RenderNode(&buf, region); err != nil {
		return "", fmt.Errorf("reader: render: %w", err)
	}
	return buf.String(), nil
}
