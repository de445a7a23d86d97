// internal/overlay/manager.go
package overlay

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/editbridge/internal/dom"
	"github.com/xkilldash9x/editbridge/internal/selector"
)

const (
	hoverColor     = "#0da2e7"
	selectionColor = "#f0650e"
	tooltipBg      = "#1d1d1f"
	overlayZIndex  = "2147483646"
	viewportGutter = 8.0
	tooltipHeight  = 24.0
	tooltipWidth   = 160.0
)

// Manager owns the three transient visual affordances: a hover box, a
// selection box and an info tooltip. Each is created lazily at most once,
// reused, hidden, and removed only on teardown. A single scroll/resize
// listener pair keeps the currently highlighted element tracked instead of
// re-registering listeners per hover.
type Manager struct {
	mu  sync.Mutex
	doc dom.Document
	log *zap.Logger

	hover     *dom.Node
	selection *dom.Node
	tooltip   *dom.Node

	// Each visible overlay follows its own element; the tooltip follows the
	// hover target whenever it has a label.
	hoverTarget  *dom.Node
	selTarget    *dom.Node
	tooltipLabel string
	cancelScroll func()
	cancelResize func()

	// onTeardown lets the owner clear selector cache state together with the
	// overlay nodes, so neither references stale elements.
	onTeardown func()
}

// NewManager creates an overlay manager over the document. logger may be nil.
func NewManager(doc dom.Document, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{doc: doc, log: logger}
}

// OnTeardown registers a hook invoked by Teardown.
func (m *Manager) OnTeardown(fn func()) {
	m.mu.Lock()
	m.onTeardown = fn
	m.mu.Unlock()
}

// ensureNode creates the named overlay node if absent and returns it.
// Creation is idempotent; repeat calls return the existing node.
func (m *Manager) ensureNode(existing **dom.Node, role, borderColor string) *dom.Node {
	if *existing != nil {
		return *existing
	}
	n := m.doc.CreateElement("div")
	n.SetAttr(selector.OverlayMarkerAttr, role)
	m.doc.AppendToBody(n)
	styles := map[string]string{
		"position":       "fixed",
		"display":        "none",
		"pointer-events": "none",
		"z-index":        overlayZIndex,
		"box-sizing":     "border-box",
	}
	if borderColor != "" {
		styles["border"] = "2px solid " + borderColor
		styles["background"] = "transparent"
	}
	m.doc.SetStyles(n, styles)
	*existing = n
	return n
}

// HoverOverlay lazily creates the hover box.
func (m *Manager) HoverOverlay() *dom.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureNode(&m.hover, "hover", hoverColor)
}

// SelectionOverlay lazily creates the selection box.
func (m *Manager) SelectionOverlay() *dom.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureNode(&m.selection, "selection", selectionColor)
}

// Tooltip lazily creates the info tooltip node.
func (m *Manager) Tooltip() *dom.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tooltip != nil {
		return m.tooltip
	}
	n := m.ensureNode(&m.tooltip, "tooltip", "")
	m.doc.SetStyles(n, map[string]string{
		"background":    tooltipBg,
		"color":         "#ffffff",
		"font-size":     "12px",
		"padding":       "4px 8px",
		"border-radius": "4px",
		"white-space":   "nowrap",
	})
	return n
}

// Position synchronizes an overlay's rect to the element's current geometry.
// Fixed positioning keeps the box aligned to viewport coordinates regardless
// of scroll position.
func (m *Manager) Position(overlay *dom.Node, el *dom.Node) {
	r := el.Bounds()
	m.doc.SetStyles(overlay, map[string]string{
		"display": "block",
		"left":    px(r.Left),
		"top":     px(r.Top),
		"width":   px(r.Width),
		"height":  px(r.Height),
	})
}

// PositionTooltip places the tooltip above the element, flipping below when
// there is no headroom, and clamps it horizontally inside the viewport.
func (m *Manager) PositionTooltip(tooltip *dom.Node, el *dom.Node, text string) {
	r := el.Bounds()
	vp := m.doc.Viewport()

	top := r.Top - tooltipHeight - viewportGutter
	if top < viewportGutter {
		top = r.Top + r.Height + viewportGutter
	}
	left := r.Left
	if left+tooltipWidth > vp.Width-viewportGutter {
		left = vp.Width - tooltipWidth - viewportGutter
	}
	if left < viewportGutter {
		left = viewportGutter
	}

	tooltip.SetText(text)
	m.doc.SetStyles(tooltip, map[string]string{
		"display": "block",
		"left":    px(left),
		"top":     px(top),
		"width":   px(tooltipWidth),
		"height":  px(tooltipHeight),
	})
}

// ShowHover highlights the element with the hover box and tooltip and starts
// tracking it through scroll/resize.
func (m *Manager) ShowHover(el *dom.Node, label string) {
	hover := m.HoverOverlay()
	m.Position(hover, el)
	if label != "" {
		m.PositionTooltip(m.Tooltip(), el, label)
	}
	m.mu.Lock()
	m.hoverTarget = el
	m.tooltipLabel = label
	m.mu.Unlock()
	m.installTrackingListeners()
}

// ShowSelection marks the element as selected.
func (m *Manager) ShowSelection(el *dom.Node) {
	sel := m.SelectionOverlay()
	m.Position(sel, el)
	m.mu.Lock()
	m.selTarget = el
	m.mu.Unlock()
	m.installTrackingListeners()
}

// HighlightSelector resolves a controller-supplied selector and applies the
// selection overlay to it.
func (m *Manager) HighlightSelector(sel string) error {
	nodes, err := m.doc.Query(sel)
	if err != nil {
		// Malformed input from the controller is a non-match, not a crash.
		return fmt.Errorf("selector did not resolve: %s", sel)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("no element matches selector: %s", sel)
	}
	m.ShowSelection(nodes[0])
	return nil
}

// HideHover hides the hover box and tooltip and stops tracking.
func (m *Manager) HideHover() {
	m.mu.Lock()
	if m.hover != nil {
		m.doc.SetStyles(m.hover, map[string]string{"display": "none"})
	}
	if m.tooltip != nil {
		m.doc.SetStyles(m.tooltip, map[string]string{"display": "none"})
	}
	m.hoverTarget = nil
	m.tooltipLabel = ""
	m.mu.Unlock()
}

// HideAll hides every overlay without destroying the nodes.
func (m *Manager) HideAll() {
	m.HideHover()
	m.mu.Lock()
	if m.selection != nil {
		m.doc.SetStyles(m.selection, map[string]string{"display": "none"})
	}
	m.selTarget = nil
	m.mu.Unlock()
}

// installTrackingListeners registers the scroll/resize pair once, lazily, on
// first highlight. The handlers re-position whatever element is currently
// tracked, so hovering a new element costs no listener churn.
func (m *Manager) installTrackingListeners() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelScroll != nil {
		return
	}
	sync := func(*dom.Event) { m.syncTracked() }
	m.cancelScroll = m.doc.Listen(dom.EventScroll, false, sync)
	m.cancelResize = m.doc.Listen(dom.EventResize, false, sync)
	m.log.Debug("overlay tracking listeners installed")
}

// syncTracked re-positions every overlay that is currently following an
// element: the hover box and its tooltip against the hover target, the
// selection box against its own.
func (m *Manager) syncTracked() {
	m.mu.Lock()
	hoverEl, hover := m.hoverTarget, m.hover
	selEl, sel := m.selTarget, m.selection
	label, tooltip := m.tooltipLabel, m.tooltip
	m.mu.Unlock()

	if hoverEl != nil && hover != nil {
		m.Position(hover, hoverEl)
		if label != "" && tooltip != nil {
			m.PositionTooltip(tooltip, hoverEl, label)
		}
	}
	if selEl != nil && sel != nil {
		m.Position(sel, selEl)
	}
}

// Teardown removes every overlay node from the document, cancels the
// tracking listeners and fires the teardown hook so cached selector state is
// cleared with it.
func (m *Manager) Teardown() {
	m.mu.Lock()
	for _, n := range []*dom.Node{m.hover, m.selection, m.tooltip} {
		if n != nil {
			m.doc.Remove(n)
		}
	}
	m.hover, m.selection, m.tooltip = nil, nil, nil
	m.hoverTarget, m.selTarget, m.tooltipLabel = nil, nil, ""
	if m.cancelScroll != nil {
		m.cancelScroll()
		m.cancelScroll = nil
	}
	if m.cancelResize != nil {
		m.cancelResize()
		m.cancelResize = nil
	}
	hook := m.onTeardown
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
}
