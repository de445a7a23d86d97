// internal/dom/layout.go
package dom

import (
	"strconv"
	"strings"
)

// The memory document does not render anything, but pointer detection needs
// geometry. This is a deliberately small block-layout pass: children stack
// vertically inside the parent's width, explicit inline px values win, and
// absolutely/fixed positioned nodes are taken out of flow. Fixtures that need
// exact rects set them with SetBounds or inline styles.

const defaultLineHeight = 20.0

// relayout assigns bounds to every node in the tree.
func (d *MemoryDocument) relayout() {
	if d.root == nil {
		return
	}
	d.layoutBlock(d.root, 0, 0, d.viewport.Width)
}

// layoutBlock positions n at (x, y) with the given width and returns the
// height it occupies in flow.
func (d *MemoryDocument) layoutBlock(n *Node, x, y, width float64) float64 {
	if r, ok := rectFromStyles(n); ok {
		n.SetBounds(r)
		// Out-of-flow nodes still lay out their children inside themselves.
		cy := r.Top
		for _, c := range n.Children() {
			cy += d.layoutBlock(c, r.Left, cy, r.Width)
		}
		if isOutOfFlow(n) {
			return 0
		}
		return r.Height
	}

	if w := pxValue(n.Style("width")); w > 0 {
		width = w
	}

	cy := y
	for _, c := range n.Children() {
		cy += d.layoutBlock(c, x, cy, width)
	}

	height := cy - y
	if height == 0 && n.text != "" {
		height = defaultLineHeight
	}
	if h := pxValue(n.Style("height")); h > 0 {
		height = h
	}
	n.SetBounds(Rect{Left: x, Top: y, Width: width, Height: height})
	if isOutOfFlow(n) {
		return 0
	}
	return height
}

func isOutOfFlow(n *Node) bool {
	switch n.Style("position") {
	case "absolute", "fixed":
		return true
	}
	return false
}

// rectFromStyles derives an explicit rect from inline positioning styles.
// All four of left/top/width/height must be present.
func rectFromStyles(n *Node) (Rect, bool) {
	if !isOutOfFlow(n) {
		return Rect{}, false
	}
	left, okL := pxValueOK(n.Style("left"))
	top, okT := pxValueOK(n.Style("top"))
	w, okW := pxValueOK(n.Style("width"))
	h, okH := pxValueOK(n.Style("height"))
	if !okL || !okT || !okW || !okH {
		return Rect{}, false
	}
	return Rect{Left: left, Top: top, Width: w, Height: h}, true
}

func pxValue(v string) float64 {
	f, _ := pxValueOK(v)
	return f
}

func pxValueOK(v string) (float64, bool) {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
