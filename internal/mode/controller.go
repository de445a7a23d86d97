// internal/mode/controller.go

// Package mode owns the Inactive/Active lifecycle of the edit agent. While
// active, page interaction events are suppressed at the capture phase so
// clicks select elements instead of navigating, and the body carries a
// crosshair cursor. Deactivation restores the page silently.
package mode

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/editbridge/internal/dom"
	"github.com/xkilldash9x/editbridge/internal/overlay"
)

// Controller toggles the agent between inactive and active editing state.
type Controller struct {
	mu       sync.Mutex
	doc      dom.Document
	overlays *overlay.Manager
	log      *zap.Logger

	active    bool
	cancels   []func()
	onChange  func(active bool)
	savedCur  string
	savedSel  string
	hadStyles bool
}

// NewController creates a controller. onChange, if non-nil, is invoked after
// every successful state transition; deactivation from teardown paths passes
// through it too so the embedder can announce state.
func NewController(doc dom.Document, overlays *overlay.Manager, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{doc: doc, overlays: overlays, log: logger}
}

// OnChange registers the state-transition hook.
func (c *Controller) OnChange(fn func(active bool)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Active reports the current state.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Activate enters editing state. Repeat calls are no-ops and do not stack
// listeners or re-fire the change hook.
func (c *Controller) Activate() {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return
	}
	c.active = true

	// Capture-phase suppression: the document-level listener runs before any
	// page handler, so preventing and stopping here starves the page's own
	// click/submit/drag handlers while editing.
	for _, kind := range dom.InteractionEvents {
		cancel := c.doc.Listen(kind, true, c.suppress)
		c.cancels = append(c.cancels, cancel)
	}

	if body := c.doc.Body(); body != nil {
		c.savedCur = body.Style("cursor")
		c.savedSel = body.Style("user-select")
		c.hadStyles = true
		c.doc.SetStyles(body, map[string]string{
			"cursor":      "crosshair",
			"user-select": "none",
		})
	}

	hook := c.onChange
	c.mu.Unlock()

	c.log.Info("visual edit mode activated")
	if hook != nil {
		hook(true)
	}
}

// Deactivate leaves editing state, hides overlays and removes the
// suppression listeners. Idempotent; deactivating an inactive controller
// does nothing and emits nothing.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false

	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil

	if body := c.doc.Body(); body != nil && c.hadStyles {
		c.doc.SetStyles(body, map[string]string{
			"cursor":      c.savedCur,
			"user-select": c.savedSel,
		})
		c.hadStyles = false
	}

	hook := c.onChange
	c.mu.Unlock()

	c.overlays.HideAll()
	c.log.Info("visual edit mode deactivated")
	if hook != nil {
		hook(false)
	}
}

// suppress is the capture-phase handler installed per interaction event.
// Scroll and resize are not in the suppression set, so overlay tracking
// keeps working while active.
func (c *Controller) suppress(ev *dom.Event) {
	c.mu.Lock()
	on := c.active
	c.mu.Unlock()
	if !on {
		return
	}
	ev.PreventDefault()
	ev.StopImmediatePropagation()
}
