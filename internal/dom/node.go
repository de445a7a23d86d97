// internal/dom/node.go
package dom

import (
	"strings"
)

// Rect is an axis-aligned box in viewport coordinates.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Contains reports whether the point (x, y) falls inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x < r.Left+r.Width && y >= r.Top && y < r.Top+r.Height
}

// Point is a 2D offset in CSS pixels.
type Point struct {
	X float64
	Y float64
}

// Size is a viewport dimension in CSS pixels.
type Size struct {
	Width  float64
	Height float64
}

// Node is a single element in a rendered tree. Identity is pointer equality;
// a Node is never serialized and must not outlive its Document.
type Node struct {
	tag      string
	attrs    map[string]string
	parent   *Node
	children []*Node
	text     string // direct text content, not including descendants

	// bounds is the viewport-relative geometry assigned by the layout pass
	// (or mirrored from a live page).
	bounds Rect

	// styles holds inline style declarations, lowercased property names.
	styles map[string]string

	// backendID links the node to its counterpart in a live page, when the
	// document has one. Empty for purely in-memory nodes.
	backendID string
}

// NewNode constructs a detached element node.
func NewNode(tag string) *Node {
	return &Node{
		tag:    strings.ToLower(tag),
		attrs:  make(map[string]string),
		styles: make(map[string]string),
	}
}

// Tag returns the lowercase tag name.
func (n *Node) Tag() string { return n.tag }

// Parent returns the parent element, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the element children in document order.
func (n *Node) Children() []*Node { return n.children }

// Attr returns the value of an attribute and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.attrs[strings.ToLower(name)]
	return v, ok
}

// SetAttr sets an attribute value.
func (n *Node) SetAttr(name, value string) {
	n.attrs[strings.ToLower(name)] = value
}

// HasAttr reports attribute presence.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.attrs[strings.ToLower(name)]
	return ok
}

// Attrs returns the attribute map. Callers must treat it as read-only.
func (n *Node) Attrs() map[string]string { return n.attrs }

// ID returns the id attribute, or "".
func (n *Node) ID() string {
	v, _ := n.attrs["id"]
	return v
}

// ClassName returns the raw class attribute.
func (n *Node) ClassName() string {
	v, _ := n.attrs["class"]
	return v
}

// Classes returns the whitespace-split class list.
func (n *Node) Classes() []string {
	return strings.Fields(n.ClassName())
}

// HasClass reports whether the class list contains name.
func (n *Node) HasClass(name string) bool {
	for _, c := range n.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

// Text returns the concatenated text content of the node and its descendants,
// with runs of whitespace collapsed.
func (n *Node) Text() string {
	var sb strings.Builder
	n.collectText(&sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func (n *Node) collectText(sb *strings.Builder) {
	if n.text != "" {
		sb.WriteString(n.text)
		sb.WriteByte(' ')
	}
	for _, c := range n.children {
		c.collectText(sb)
	}
}

// SetText sets the node's direct text content.
func (n *Node) SetText(s string) { n.text = s }

// Bounds returns the node's viewport-relative geometry.
func (n *Node) Bounds() Rect { return n.bounds }

// SetBounds overrides the node's geometry. The layout pass uses this, and
// tests position fixtures with it.
func (n *Node) SetBounds(r Rect) { n.bounds = r }

// Style returns an inline style property (lowercase name), or "".
func (n *Node) Style(prop string) string {
	return n.styles[strings.ToLower(prop)]
}

// StyleOr returns an inline style property or the fallback when unset.
func (n *Node) StyleOr(prop, fallback string) string {
	if v, ok := n.styles[strings.ToLower(prop)]; ok {
		return v
	}
	return fallback
}

// setStyle records one inline declaration. Mutation from outside the package
// goes through Document.SetStyles so live backends can mirror it.
func (n *Node) setStyle(prop, val string) {
	n.styles[strings.ToLower(strings.TrimSpace(prop))] = strings.TrimSpace(val)
}

// Append attaches child as the last child of n.
func (n *Node) Append(child *Node) {
	child.detach()
	child.parent = n
	n.children = append(n.children, child)
}

// detach removes the node from its current parent, if any.
func (n *Node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// IndexAmongSameTag returns the 1-based ordinal of the node among element
// siblings sharing its tag name, as used by :nth-of-type.
func (n *Node) IndexAmongSameTag() int {
	if n.parent == nil {
		return 1
	}
	idx := 1
	for _, sib := range n.parent.children {
		if sib == n {
			return idx
		}
		if sib.tag == n.tag {
			idx++
		}
	}
	return idx
}

// PrevElementSibling returns the nearest preceding element sibling, or nil.
func (n *Node) PrevElementSibling() *Node {
	if n.parent == nil {
		return nil
	}
	var prev *Node
	for _, sib := range n.parent.children {
		if sib == n {
			return prev
		}
		prev = sib
	}
	return nil
}

// Contains reports whether other is n or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Depth returns the number of ancestors above the node.
func (n *Node) Depth() int {
	d := 0
	for cur := n.parent; cur != nil; cur = cur.parent {
		d++
	}
	return d
}

// Walk visits the node and every descendant in document order.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, c := range n.children {
		c.Walk(visit)
	}
}

// parseInlineStyle splits a style attribute into declarations.
func parseInlineStyle(attr string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(attr, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.TrimSpace(val)
		if prop != "" && val != "" {
			out[prop] = val
		}
	}
	return out
}
