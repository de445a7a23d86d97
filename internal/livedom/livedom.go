// internal/livedom/livedom.go

// Package livedom backs the dom.Document contract with a real Chrome tab via
// chromedp. The element tree is a parsed snapshot of the live page zipped
// with the browser's own layout rects; overlay mutations and event
// suppression are mirrored into the page through injected script.
package livedom

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/editbridge/internal/dom"
)

const handleAttr = "data-editbridge-handle"

// activeFlagScript runs before every document loads. It installs
// capture-phase interception for interaction events, gated on a window flag
// the agent flips when edit mode toggles.
const activeFlagScript = `(() => {
  window.__editbridgeActive = false;
  const kinds = ["click","dblclick","contextmenu","mousedown","mouseup",
    "pointerdown","pointerup","submit","dragstart","touchstart"];
  for (const kind of kinds) {
    window.addEventListener(kind, (ev) => {
      if (!window.__editbridgeActive) return;
      if (ev.target && ev.target.closest &&
          ev.target.closest("[data-editbridge-overlay]")) return;
      ev.preventDefault();
      ev.stopImmediatePropagation();
    }, { capture: true });
  }
})();`

// pageStateScript samples everything a snapshot refresh needs in one round
// trip: per-element client rects in document order, viewport, scroll and
// referrer. The walker rejects script and style subtrees because the Go-side
// snapshot parser drops those elements; rects are matched to snapshot nodes
// positionally, so both traversals must visit the same elements in the same
// order.
const pageStateScript = `(() => {
  const rects = [];
  const walker = document.createTreeWalker(
    document.documentElement,
    NodeFilter.SHOW_ELEMENT,
    (node) => (node.tagName === "SCRIPT" || node.tagName === "STYLE")
      ? NodeFilter.FILTER_REJECT
      : NodeFilter.FILTER_ACCEPT,
  );
  let el = document.documentElement;
  while (el) {
    const r = el.getBoundingClientRect();
    rects.push([r.left, r.top, r.width, r.height]);
    el = walker.nextNode();
  }
  return {
    rects: rects,
    vw: window.innerWidth, vh: window.innerHeight,
    sx: window.scrollX, sy: window.scrollY,
    referrer: document.referrer,
  };
})()`

type pageState struct {
	Rects    [][4]float64 `json:"rects"`
	VW       float64      `json:"vw"`
	VH       float64      `json:"vh"`
	SX       float64      `json:"sx"`
	SY       float64      `json:"sy"`
	Referrer string       `json:"referrer"`
}

// Document adapts a Chrome tab to the dom.Document interface. Reads are
// served from the latest snapshot; writes are mirrored into the page.
type Document struct {
	ctx context.Context
	log *zap.Logger

	mu       sync.Mutex
	snap     *dom.MemoryDocument
	handles  map[*dom.Node]string
	scroll   dom.Point
	viewport dom.Size
	referrer string

	// Listeners live here, not on the snapshot: refreshes replace the
	// snapshot wholesale and must not drop registrations.
	listeners  []listenerReg
	nextLID    uint64
	suppressed int

	pollCancel context.CancelFunc
}

type listenerReg struct {
	id   uint64
	kind dom.EventKind
	fn   dom.Listener
}

var _ dom.Document = (*Document)(nil)

// New attaches to a chromedp tab context, installs the suppression hook and
// navigates to targetURL. The caller owns the tab's lifetime.
func New(ctx context.Context, targetURL string, logger *zap.Logger) (*Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Document{
		ctx:     ctx,
		log:     logger.Named("livedom"),
		handles: map[*dom.Node]string{},
	}

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(c context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(activeFlagScript).Do(c)
			return err
		}),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("attach to %s: %w", targetURL, err)
	}
	if err := d.Refresh(ctx); err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithCancel(ctx)
	d.pollCancel = cancel
	go d.pollViewport(pollCtx)
	return d, nil
}

// Close stops the viewport poller. The tab context itself belongs to the
// caller.
func (d *Document) Close() {
	if d.pollCancel != nil {
		d.pollCancel()
	}
}

// Refresh re-snapshots the page: outer HTML parsed into an element tree,
// then each element's bounds overwritten with the browser's client rects.
func (d *Document) Refresh(ctx context.Context) error {
	var html string
	var state pageState
	err := chromedp.Run(ctx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(pageStateScript, &state),
	)
	if err != nil {
		return fmt.Errorf("snapshot page: %w", err)
	}

	snap, err := dom.ParseString(html, dom.Size{Width: state.VW, Height: state.VH})
	if err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	applyRects(snap.Root(), state.Rects)
	snap.SetReferrer(state.Referrer)

	d.mu.Lock()
	d.snap = snap
	d.scroll = dom.Point{X: state.SX, Y: state.SY}
	d.viewport = dom.Size{Width: state.VW, Height: state.VH}
	d.referrer = state.Referrer
	d.mu.Unlock()
	return nil
}

func (d *Document) snapshot() *dom.MemoryDocument {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

func (d *Document) Root() *dom.Node { return d.snapshot().Root() }
func (d *Document) Body() *dom.Node { return d.snapshot().Body() }

func (d *Document) Query(sel string) ([]*dom.Node, error) {
	return d.snapshot().Query(sel)
}

func (d *Document) ElementsFromPoint(x, y float64) []*dom.Node {
	return d.snapshot().ElementsFromPoint(x, y)
}

func (d *Document) Viewport() dom.Size {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewport
}

// ScrollOffset is always zero here: snapshot rects come from
// getBoundingClientRect, which is already viewport-relative.
func (d *Document) ScrollOffset() dom.Point { return dom.Point{} }

func (d *Document) FrameOffset() dom.Point { return dom.Point{} }

func (d *Document) Referrer() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.referrer
}

func (d *Document) CreateElement(tag string) *dom.Node {
	return d.snapshot().CreateElement(tag)
}

// AppendToBody mirrors the node into the page under a generated handle so
// later style writes can address it.
func (d *Document) AppendToBody(n *dom.Node) {
	handle := uuid.New().String()
	d.mu.Lock()
	d.handles[n] = handle
	d.mu.Unlock()
	n.SetAttr(handleAttr, handle)
	d.snapshot().AppendToBody(n)

	script := fmt.Sprintf(`(() => {
  const el = document.createElement(%q);
  el.setAttribute(%q, %q);
  for (const [k, v] of %s) el.setAttribute(k, v);
  document.body.appendChild(el);
})();`, n.Tag(), handleAttr, handle, jsAttrPairs(n))
	d.eval(script)
}

func (d *Document) Remove(n *dom.Node) {
	d.mu.Lock()
	handle, ok := d.handles[n]
	delete(d.handles, n)
	d.mu.Unlock()
	d.snapshot().Remove(n)
	if ok {
		d.eval(fmt.Sprintf(
			`document.querySelector('[%s="%s"]')?.remove();`, handleAttr, handle))
	}
}

// SetStyles writes styles to the snapshot node and mirrors style plus text
// content to the page-side twin.
func (d *Document) SetStyles(n *dom.Node, styles map[string]string) {
	d.snapshot().SetStyles(n, styles)
	d.mu.Lock()
	handle, ok := d.handles[n]
	d.mu.Unlock()
	if !ok {
		// The body has no handle but mode styling targets it.
		if n.Tag() == "body" {
			var b strings.Builder
			for prop, val := range styles {
				fmt.Fprintf(&b, "document.body.style.setProperty(%q, %q);", prop, val)
			}
			d.eval(b.String())
		}
		return
	}
	var b strings.Builder
	for prop, val := range styles {
		fmt.Fprintf(&b, "el.style.setProperty(%q, %q);", prop, val)
	}
	d.eval(fmt.Sprintf(`(() => {
  const el = document.querySelector('[%s="%s"]');
  if (!el) return;
  %s
  el.textContent = %q;
})();`, handleAttr, handle, b.String(), n.Text()))
}

// Listen registers a document-level listener. Real event interception runs
// inside the page, so capture-phase interaction listeners translate to the
// in-page suppression flag: the first one turns it on, cancelling the last
// turns it off. Scroll and resize listeners are fed by the viewport poller.
func (d *Document) Listen(kind dom.EventKind, capture bool, fn dom.Listener) func() {
	if capture && isInteraction(kind) {
		d.mu.Lock()
		d.suppressed++
		if d.suppressed == 1 {
			d.eval(`window.__editbridgeActive = true;`)
		}
		d.mu.Unlock()

		var once sync.Once
		return func() {
			once.Do(func() {
				d.mu.Lock()
				d.suppressed--
				if d.suppressed == 0 {
					d.eval(`window.__editbridgeActive = false;`)
				}
				d.mu.Unlock()
			})
		}
	}

	d.mu.Lock()
	d.nextLID++
	id := d.nextLID
	d.listeners = append(d.listeners, listenerReg{id: id, kind: kind, fn: fn})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, reg := range d.listeners {
				if reg.id == id {
					d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// dispatch delivers an event to local listeners of the kind.
func (d *Document) dispatch(kind dom.EventKind) {
	d.mu.Lock()
	regs := make([]listenerReg, 0, len(d.listeners))
	for _, reg := range d.listeners {
		if reg.kind == kind {
			regs = append(regs, reg)
		}
	}
	root := d.snap.Root()
	d.mu.Unlock()

	ev := &dom.Event{Kind: kind, Target: root}
	for _, reg := range regs {
		reg.fn(ev)
	}
}

// pollViewport watches scroll and viewport changes and replays them as
// events on the snapshot so overlay tracking stays glued to the page.
func (d *Document) pollViewport(ctx context.Context) {
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		var state pageState
		if err := chromedp.Run(ctx, chromedp.Evaluate(pageStateScript, &state)); err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Debug("viewport poll failed", zap.Error(err))
			continue
		}

		d.mu.Lock()
		scrolled := d.scroll != (dom.Point{X: state.SX, Y: state.SY})
		resized := d.viewport != (dom.Size{Width: state.VW, Height: state.VH})
		d.scroll = dom.Point{X: state.SX, Y: state.SY}
		d.viewport = dom.Size{Width: state.VW, Height: state.VH}
		d.mu.Unlock()

		if !scrolled && !resized {
			continue
		}
		// Geometry moved under us; refresh rects before telling listeners.
		if err := d.Refresh(ctx); err != nil {
			d.log.Debug("snapshot refresh failed", zap.Error(err))
			continue
		}
		if scrolled {
			d.dispatch(dom.EventScroll)
		}
		if resized {
			d.dispatch(dom.EventResize)
		}
	}
}

func (d *Document) eval(script string) {
	if err := chromedp.Run(d.ctx, chromedp.Evaluate(script, nil)); err != nil {
		d.log.Warn("page mutation failed", zap.Error(err))
	}
}

func isInteraction(kind dom.EventKind) bool {
	for _, k := range dom.InteractionEvents {
		if k == kind {
			return true
		}
	}
	return false
}

// applyRects overwrites snapshot bounds with the browser's client rects,
// matched positionally. The in-page walker and the snapshot parser exclude
// the same elements (script and style subtrees), so index i in the rect list
// is the i-th node of the snapshot's document-order walk. A short rect list
// leaves the tail on its layout-pass bounds.
func applyRects(root *dom.Node, rects [][4]float64) {
	i := 0
	root.Walk(func(n *dom.Node) {
		if i < len(rects) {
			r := rects[i]
			n.SetBounds(dom.Rect{Left: r[0], Top: r[1], Width: r[2], Height: r[3]})
		}
		i++
	})
}

// jsAttrPairs renders a node's attributes as a JS array literal of pairs.
func jsAttrPairs(n *dom.Node) string {
	var b strings.Builder
	b.WriteByte('[')
	for name, val := range n.Attrs() {
		fmt.Fprintf(&b, "[%q,%q],", name, val)
	}
	b.WriteByte(']')
	return b.String()
}
