// internal/dom/document.go
package dom

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Document is the capability surface the agent needs from a rendered page.
// The memory implementation below backs tests and static-file serving; the
// livedom package provides the same surface over a Chrome target.
type Document interface {
	// Root returns the document element (html).
	Root() *Node
	// Body returns the body element.
	Body() *Node
	// Query runs a structural query over the whole document. A syntax error
	// is returned as *ErrInvalidSelector; a valid selector that matches
	// nothing returns an empty slice and nil error.
	Query(selector string) ([]*Node, error)
	// ElementsFromPoint hit-tests the viewport point and returns candidates
	// topmost first. No filtering is applied; callers skip their own nodes.
	ElementsFromPoint(x, y float64) []*Node

	Viewport() Size
	ScrollOffset() Point
	// FrameOffset is the document's offset inside an enclosing frame, zero
	// when the document is top-level.
	FrameOffset() Point
	Referrer() string

	// CreateElement builds a detached element owned by this document.
	CreateElement(tag string) *Node
	// AppendToBody attaches a node as the last child of body.
	AppendToBody(n *Node)
	// Remove detaches a node from the tree.
	Remove(n *Node)
	// SetStyles applies inline style declarations to a node.
	SetStyles(n *Node, styles map[string]string)

	// Listen registers a document-level listener for kind; capture selects
	// the capture phase. The returned func unregisters it. Registration is
	// safe at any time; cancel is idempotent.
	Listen(kind EventKind, capture bool, fn Listener) (cancel func())
}

// MemoryDocument is a self-contained Document over a parsed HTML tree with
// synthetic block layout. It additionally supports synthetic event dispatch,
// which the live backend does not.
type MemoryDocument struct {
	mu        sync.Mutex
	root      *Node
	body      *Node
	viewport  Size
	scroll    Point
	frameOff  Point
	referrer  string
	listeners []listenerReg
	nextLID   uint64
}

var _ Document = (*MemoryDocument)(nil)

// Parse builds a MemoryDocument from an HTML stream and runs the layout pass
// against the given viewport.
func Parse(r io.Reader, viewport Size) (*MemoryDocument, error) {
	hn, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	doc := &MemoryDocument{viewport: viewport}
	doc.root = convertTree(hn)
	if doc.root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	for _, c := range doc.root.Children() {
		if c.Tag() == "body" {
			doc.body = c
			break
		}
	}
	if doc.body == nil {
		doc.body = doc.root
	}
	doc.relayout()
	return doc, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string, viewport Size) (*MemoryDocument, error) {
	return Parse(strings.NewReader(s), viewport)
}

// convertTree maps an x/net/html tree onto the package's element tree,
// folding text nodes into their parent and dropping comments and scripts.
func convertTree(hn *html.Node) *Node {
	if hn.Type == html.DocumentNode {
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				return convertTree(c)
			}
		}
		return nil
	}
	if hn.Type != html.ElementNode {
		return nil
	}
	n := NewNode(hn.Data)
	for _, attr := range hn.Attr {
		n.SetAttr(attr.Key, attr.Val)
	}
	if style, ok := n.Attr("style"); ok {
		for prop, val := range parseInlineStyle(style) {
			n.setStyle(prop, val)
		}
	}
	var text strings.Builder
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text.WriteString(c.Data)
		case html.ElementNode:
			if c.Data == "script" || c.Data == "style" {
				continue
			}
			if child := convertTree(c); child != nil {
				n.Append(child)
			}
		}
	}
	n.SetText(strings.TrimSpace(text.String()))
	return n
}

func (d *MemoryDocument) Root() *Node { return d.root }
func (d *MemoryDocument) Body() *Node { return d.body }

func (d *MemoryDocument) Viewport() Size      { return d.viewport }
func (d *MemoryDocument) ScrollOffset() Point { return d.scroll }
func (d *MemoryDocument) FrameOffset() Point  { return d.frameOff }
func (d *MemoryDocument) Referrer() string    { return d.referrer }

// SetScrollOffset updates the scroll position and emits a scroll event.
func (d *MemoryDocument) SetScrollOffset(p Point) {
	d.scroll = p
	d.Dispatch(&Event{Kind: EventScroll, Target: d.root})
}

// SetFrameOffset marks the document as embedded at the given offset.
func (d *MemoryDocument) SetFrameOffset(p Point) { d.frameOff = p }

// SetReferrer sets the value reported by Referrer.
func (d *MemoryDocument) SetReferrer(ref string) { d.referrer = ref }

// Resize changes the viewport, reruns layout and emits a resize event.
func (d *MemoryDocument) Resize(s Size) {
	d.viewport = s
	d.relayout()
	d.Dispatch(&Event{Kind: EventResize, Target: d.root})
}

// Query parses and evaluates a selector over the whole tree.
func (d *MemoryDocument) Query(selector string) ([]*Node, error) {
	list, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	var out []*Node
	d.root.Walk(func(n *Node) {
		if Matches(n, list) {
			out = append(out, n)
		}
	})
	return out, nil
}

// ElementsFromPoint returns every element whose bounds contain the point,
// deepest and latest-in-document first, mirroring a topmost-first hit-test.
func (d *MemoryDocument) ElementsFromPoint(x, y float64) []*Node {
	type hit struct {
		n     *Node
		depth int
		order int
	}
	var hits []hit
	order := 0
	d.root.Walk(func(n *Node) {
		order++
		if n.Bounds().Contains(x, y) {
			hits = append(hits, hit{n: n, depth: n.Depth(), order: order})
		}
	})
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].depth != hits[j].depth {
			return hits[i].depth > hits[j].depth
		}
		return hits[i].order > hits[j].order
	})
	out := make([]*Node, len(hits))
	for i, h := range hits {
		out[i] = h.n
	}
	return out
}

func (d *MemoryDocument) CreateElement(tag string) *Node {
	return NewNode(tag)
}

func (d *MemoryDocument) AppendToBody(n *Node) {
	d.body.Append(n)
}

func (d *MemoryDocument) Remove(n *Node) {
	n.detach()
}

func (d *MemoryDocument) SetStyles(n *Node, styles map[string]string) {
	for prop, val := range styles {
		n.setStyle(prop, val)
	}
	// Overlay positioning writes geometry through styles; reflect it in the
	// node bounds so hit-testing and assertions see the same rect.
	if r, ok := rectFromStyles(n); ok {
		n.SetBounds(r)
	}
}

// Listen registers a document-level listener.
func (d *MemoryDocument) Listen(kind EventKind, capture bool, fn Listener) (cancel func()) {
	d.mu.Lock()
	d.nextLID++
	id := d.nextLID
	d.listeners = append(d.listeners, listenerReg{id: id, kind: kind, capture: capture, fn: fn})
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

// ListenerCount reports how many listeners are registered for kind; tests use
// it to verify idempotent install/uninstall.
func (d *MemoryDocument) ListenerCount(kind EventKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, reg := range d.listeners {
		if reg.kind == kind {
			n++
		}
	}
	return n
}

// Dispatch delivers an event through the capture phase, then the bubble
// phase. Document-level capture listeners run first, so a suppression
// handler calling StopImmediatePropagation starves every later handler.
// Returns the event so callers can inspect the outcome flags.
func (d *MemoryDocument) Dispatch(ev *Event) *Event {
	d.mu.Lock()
	regs := make([]listenerReg, len(d.listeners))
	copy(regs, d.listeners)
	d.mu.Unlock()

	for _, reg := range regs {
		if reg.kind != ev.Kind || !reg.capture {
			continue
		}
		if ev.stoppedImmediate {
			return ev
		}
		reg.fn(ev)
	}
	if ev.stopped {
		return ev
	}
	for _, reg := range regs {
		if reg.kind != ev.Kind || reg.capture {
			continue
		}
		if ev.stoppedImmediate {
			return ev
		}
		reg.fn(ev)
	}
	return ev
}

// DispatchAt synthesizes an interaction event targeted at the topmost element
// under the point.
func (d *MemoryDocument) DispatchAt(kind EventKind, x, y float64) *Event {
	ev := &Event{Kind: kind, X: x, Y: y}
	if hits := d.ElementsFromPoint(x, y); len(hits) > 0 {
		ev.Target = hits[0]
	} else {
		ev.Target = d.root
	}
	return d.Dispatch(ev)
}
