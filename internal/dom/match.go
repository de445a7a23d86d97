// internal/dom/match.go
package dom

import "strings"

// Matches reports whether the node satisfies any complex selector in the list.
func Matches(n *Node, list SelectorList) bool {
	for _, cs := range list {
		idx := len(cs.Parts) - 1
		if idx < 0 {
			continue
		}
		if matchComplex(n, cs, idx) {
			return true
		}
	}
	return false
}

// matchComplex walks the compound parts right-to-left, following the
// combinator attached to each part to pick candidate ancestors or siblings.
func matchComplex(n *Node, cs ComplexSelector, index int) bool {
	if n == nil || index < 0 {
		return false
	}
	part := cs.Parts[index]
	if !matchSimple(n, part.Simple) {
		return false
	}
	if index == 0 {
		return true
	}
	next := index - 1
	switch part.Combinator {
	case CombinatorDescendant:
		for p := n.Parent(); p != nil; p = p.Parent() {
			if matchComplex(p, cs, next) {
				return true
			}
		}
		return false
	case CombinatorChild:
		return matchComplex(n.Parent(), cs, next)
	case CombinatorAdjacentSibling:
		return matchComplex(n.PrevElementSibling(), cs, next)
	case CombinatorGeneralSibling:
		for sib := n.PrevElementSibling(); sib != nil; sib = sib.PrevElementSibling() {
			if matchComplex(sib, cs, next) {
				return true
			}
		}
		return false
	case CombinatorNone:
		return true
	}
	return false
}

func matchSimple(n *Node, sel SimpleSelector) bool {
	if sel.TagName != "" && sel.TagName != "*" && n.Tag() != sel.TagName {
		return false
	}
	if sel.ID != "" && n.ID() != sel.ID {
		return false
	}
	for _, cls := range sel.Classes {
		if !n.HasClass(cls) {
			return false
		}
	}
	for _, attr := range sel.Attributes {
		if !matchAttribute(n, attr) {
			return false
		}
	}
	if sel.NthOfType > 0 && n.IndexAmongSameTag() != sel.NthOfType {
		return false
	}
	return true
}

func matchAttribute(n *Node, sel AttributeSelector) bool {
	actual, found := n.Attr(sel.Name)
	switch sel.Operator {
	case "":
		return found
	case "=":
		return found && actual == sel.Value
	case "~=":
		if !found {
			return false
		}
		for _, word := range strings.Fields(actual) {
			if word == sel.Value {
				return true
			}
		}
		return false
	case "|=":
		return found && (actual == sel.Value || strings.HasPrefix(actual, sel.Value+"-"))
	case "^=":
		return found && sel.Value != "" && strings.HasPrefix(actual, sel.Value)
	case "$=":
		return found && sel.Value != "" && strings.HasSuffix(actual, sel.Value)
	case "*=":
		return found && sel.Value != "" && strings.Contains(actual, sel.Value)
	default:
		return false
	}
}

// EscapeIdent escapes a string for use as a CSS identifier (class names, ids)
// in a generated selector, backslash-escaping anything outside the ident set.
func EscapeIdent(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isIdentChar(ch) {
			sb.WriteByte(ch)
			continue
		}
		sb.WriteByte('\\')
		sb.WriteByte(ch)
	}
	return sb.String()
}

// EscapeAttrValue escapes a string for embedding in a double-quoted attribute
// selector value.
func EscapeAttrValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
