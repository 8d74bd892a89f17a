package protect

import (
	"log/slog"
	"sync"
)

// Mechanism intercepts events on a concrete render surface. R is the
// surface's node handle.
type Mechanism[R any] interface {
	// Present reports whether region refers to a live node.
	Present(region R) bool
	// AttachGuards marks region non-selectable and assigns cancelling
	// handlers for p.RegionEvents. Repeated calls replace the handlers.
	AttachGuards(region R, p *Policy)
	// InstallGlobalGuards adds document-level listeners for
	// p.GlobalHandlers unless the document already carries them, and
	// reports whether it installed anything. The installed state belongs to
	// the document, so enforcers sharing a document install once in total.
	// p.GlobalHandlers.
	InstallGlobalGuards(p *Policy) bool
}

// Observer is notified of guard changes. Used for metrics.
type Observer interface {
	GuardsAttached()
	GlobalGuardsInstalled()
}

// Enforcer applies a Policy through a Mechanism.
type Enforcer[R any] struct {
	mech     Mechanism[R]
	policy   *Policy
	logger   *slog.Logger
	observer Observer

	globalOnce sync.Once
}

// EnforcerOption configures an Enforcer.
type EnforcerOption func(*enforcerOptions)

type enforcerOptions struct {
	policy   *Policy
	logger   *slog.Logger
	observer Observer
}

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p *Policy) EnforcerOption {
	return func(o *enforcerOptions) { o.policy = p }
}

// WithLogger sets the enforcer's logger.
func WithLogger(l *slog.Logger) EnforcerOption {
	return func(o *enforcerOptions) { o.logger = l }
}

// WithObserver registers an Observer.
func WithObserver(obs Observer) EnforcerOption {
	return func(o *enforcerOptions) { o.observer = obs }
}

// NewEnforcer creates an Enforcer over mech.
func NewEnforcer[R any](mech Mechanism[R], opts ...EnforcerOption) *Enforcer[R] {
	o := enforcerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.policy == nil {
		o.policy = DefaultPolicy()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Enforcer[R]{mech: mech, policy: o.policy, logger: o.logger, observer: o.observer}
}

// Policy returns the enforced policy.
func (e *Enforcer[R]) Policy() *Policy { return e.policy }

// ApplyCopyProtection guards region. It must be called after the region is
// populated and again whenever its content node is replaced. An absent
// region is ignored.
func (e *Enforcer[R]) ApplyCopyProtection(region R) {
	if e == nil || e.mech == nil || !e.mech.Present(region) {
		if e != nil && e.logger != nil {
			e.logger.Debug("protect: no region to guard")
		}
		return
	}
	e.mech.AttachGuards(region, e.policy)
	if e.observer != nil {
		e.observer.GuardsAttached()
	}
}

// SetupGlobalCopyProtection installs the document-level guards. Only the
// first call per document has an effect, whichever enforcer makes it.
func (e *Enforcer[R]) SetupGlobalCopyProtection() {
	if e == nil || e.mech == nil {
		return
	}
	e.globalOnce.Do(func() {
		if !e.mech.InstallGlobalGuards(e.policy) {
			e.logger.Debug("protect: global guards already present")
			return
		}
		e.logger.Debug("protect: global guards installed")
		if e.observer != nil {
			e.observer.GlobalGuardsInstalled()
		}
	})
}
