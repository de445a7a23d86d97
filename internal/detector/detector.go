// internal/detector/detector.go
package detector

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/editbridge/internal/dom"
	"github.com/xkilldash9x/editbridge/internal/selector"
)

// Detector resolves controller-space coordinates to the most relevant real
// element, filtering out the agent's own overlay artifacts.
type Detector struct {
	doc dom.Document
	log *zap.Logger
}

// New creates a detector over the document. logger may be nil.
func New(doc dom.Document, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{doc: doc, log: logger}
}

// ResolveAt translates the coordinate into local viewport space and hit-tests
// it, returning the topmost candidate that is neither one of the agent's
// overlay nodes nor the document root. Returns nil when nothing valid is
// under the point.
func (d *Detector) ResolveAt(x, y float64) *dom.Node {
	x, y = d.translate(x, y)

	for _, n := range d.doc.ElementsFromPoint(x, y) {
		if isOverlayNode(n) {
			continue
		}
		if n == d.doc.Root() {
			continue
		}
		return n
	}
	d.log.Debug("no element at point", zap.Float64("x", x), zap.Float64("y", y))
	return nil
}

// translate converts controller coordinates to local viewport coordinates.
// Inside a nested frame the controller measures from its own viewport, so the
// frame's offset and the local scroll position are subtracted; a top-level
// document (zero frame offset) passes coordinates through unchanged.
func (d *Detector) translate(x, y float64) (float64, float64) {
	off := d.doc.FrameOffset()
	if off.X == 0 && off.Y == 0 {
		return x, y
	}
	scroll := d.doc.ScrollOffset()
	return x - off.X - scroll.X, y - off.Y - scroll.Y
}

// isOverlayNode reports whether the node or any ancestor carries the overlay
// marker; tooltip children must be skipped just like the overlay box itself.
func isOverlayNode(n *dom.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.HasAttr(selector.OverlayMarkerAttr) {
			return true
		}
	}
	return false
}
