// internal/selector/engine.go
package selector

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/xkilldash9x/editbridge/internal/dom"
)

// OverlayMarkerAttr tags nodes the agent itself injects. The engine never
// anchors a selector on it and the detector skips nodes carrying it.
const OverlayMarkerAttr = "data-editbridge-overlay"

// Verdict classifies one uniqueness probe. Malformed selector syntax is a
// first-class outcome here rather than an exception: probes fold it into the
// "keep looking" path, and nothing ever propagates a syntax error upward.
type Verdict int

const (
	VerdictUnique Verdict = iota
	VerdictNotUnique
	VerdictInvalidSyntax
)

// Options tunes a single Compute call.
type Options struct {
	// Root bounds ancestor-path construction. Defaults to the document body.
	Root *dom.Node
	// Budget is the time allowance before the engine skips straight to the
	// structural fallback.
	Budget time.Duration
	// MaxDepth caps the ancestor chain length.
	MaxDepth int
	// PreferDataAttrs enables the data-* attribute step.
	PreferDataAttrs bool
	// FilterUtilityClasses enables atomic-CSS class filtering. When false,
	// every class is treated as semantic.
	FilterUtilityClasses bool
}

// DefaultOptions mirrors the bridge configuration defaults.
func DefaultOptions() Options {
	return Options{
		Budget:               50 * time.Millisecond,
		MaxDepth:             8,
		PreferDataAttrs:      true,
		FilterUtilityClasses: true,
	}
}

// Engine computes stable, minimal, unique selectors for live nodes.
type Engine struct {
	doc   dom.Document
	cache *Cache
	log   *zap.Logger
}

// NewEngine creates an engine over the document. logger may be nil.
func NewEngine(doc dom.Document, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{doc: doc, cache: NewCache(), log: logger}
}

// InvalidateAll drops every cached selector. Teardown calls this so cached
// strings never outlive the elements they were computed for.
func (e *Engine) InvalidateAll() {
	e.cache.Clear()
}

// Compute returns a selector that resolves to exactly el at call time, or ""
// when none could be produced within the configured budget and depth. It
// never panics; internal failures degrade to "".
func (e *Engine) Compute(el *dom.Node, opts Options) (sel string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("selector computation panicked", zap.Any("panic", r))
			sel = ""
		}
	}()
	if el == nil {
		return ""
	}
	if opts.Root == nil {
		opts.Root = e.doc.Body()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultOptions().MaxDepth
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultOptions().Budget
	}

	// Cached values are revalidated against the live document; mutation can
	// have silently invalidated them.
	if cached, ok := e.cache.Get(el); ok {
		if e.verify(cached, el) == VerdictUnique {
			return cached
		}
		e.cache.Drop(el)
	}

	sel = e.compute(el, opts)
	if sel != "" {
		e.cache.Put(el, sel)
	}
	return sel
}

func (e *Engine) compute(el *dom.Node, opts Options) string {
	start := time.Now()

	// 1. Document-unique, well-formed identifier attribute.
	if id := el.ID(); wellFormedID(id) {
		if s := "#" + dom.EscapeIdent(id); e.verify(s, el) == VerdictUnique {
			return s
		}
	}

	// 2. data-* attribute equality, short values only.
	if opts.PreferDataAttrs {
		if s := e.tryDataAttributes(el); s != "" {
			return s
		}
	}

	semantic := e.semanticClassesOf(el, opts)

	// 3. Up to three semantic classes as a compound class selector.
	if len(semantic) > 0 {
		s := classSelector("", semantic, 3)
		if e.verify(s, el) == VerdictUnique {
			return s
		}

		// 4. Tag-qualified, capped at two classes.
		s = classSelector(el.Tag(), semantic, 2)
		if e.verify(s, el) == VerdictUnique {
			return s
		}
	}

	// 5. Out of budget: go straight to the structural fallback.
	if time.Since(start) <= opts.Budget {
		// 6. Ancestor path, shortest unique suffix.
		if s := e.tryAncestorPath(el, opts); s != "" {
			return s
		}
	} else {
		e.log.Debug("selector budget exhausted, using structural fallback",
			zap.Duration("budget", opts.Budget))
	}

	// 7. Ordinal-qualified structural path, unique by construction but still
	// verified against the live document before being trusted.
	return e.tryStructuralPath(el, opts)
}

// verify probes document-wide uniqueness: exactly one match, and that match
// is the target itself.
func (e *Engine) verify(sel string, target *dom.Node) Verdict {
	nodes, err := e.doc.Query(sel)
	if err != nil {
		return VerdictInvalidSyntax
	}
	if len(nodes) == 1 && nodes[0] == target {
		return VerdictUnique
	}
	return VerdictNotUnique
}

func (e *Engine) tryDataAttributes(el *dom.Node) string {
	names := make([]string, 0, 4)
	for name := range el.Attrs() {
		if !strings.HasPrefix(name, "data-") || name == OverlayMarkerAttr {
			continue
		}
		names = append(names, name)
	}
	// Deterministic order, with conventional test hooks first.
	sort.Slice(names, func(i, j int) bool {
		pi, pj := dataAttrPriority(names[i]), dataAttrPriority(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		val, _ := el.Attr(name)
		if val == "" || len(val) > 32 {
			continue
		}
		s := fmt.Sprintf("[%s=\"%s\"]", name, dom.EscapeAttrValue(val))
		if e.verify(s, el) == VerdictUnique {
			return s
		}
	}
	return ""
}

func dataAttrPriority(name string) int {
	switch name {
	case "data-testid", "data-test-id", "data-test", "data-cy", "data-qa":
		return 0
	}
	return 1
}

func (e *Engine) semanticClassesOf(el *dom.Node, opts Options) []string {
	classes := el.Classes()
	if !opts.FilterUtilityClasses {
		return classes
	}
	return SemanticClasses(classes)
}

// classSelector renders tag + up to max classes as a compound selector.
func classSelector(tag string, classes []string, max int) string {
	var sb strings.Builder
	sb.WriteString(tag)
	for i, c := range classes {
		if i >= max {
			break
		}
		sb.WriteByte('.')
		sb.WriteString(dom.EscapeIdent(c))
	}
	return sb.String()
}

// tryAncestorPath builds a child-combinator chain of per-ancestor fragments
// from the element up to the root or depth cap, then returns the shortest
// suffix of that chain that still resolves uniquely to the element.
func (e *Engine) tryAncestorPath(el *dom.Node, opts Options) string {
	frags := e.pathFragments(el, opts, false)
	if len(frags) == 0 {
		return ""
	}
	// Suffixes shortest-first: the first unique one is the minimal path.
	for i := len(frags) - 1; i >= 0; i-- {
		s := strings.Join(frags[i:], " > ")
		if e.verify(s, el) == VerdictUnique {
			return s
		}
	}
	return ""
}

// tryStructuralPath forces an ordinal qualifier onto every fragment so the
// full path is unique by construction, then verifies it anyway.
func (e *Engine) tryStructuralPath(el *dom.Node, opts Options) string {
	frags := e.pathFragments(el, opts, true)
	if len(frags) == 0 {
		return ""
	}
	s := strings.Join(frags, " > ")
	if e.verify(s, el) == VerdictUnique {
		return s
	}
	return ""
}

// pathFragments returns per-ancestor fragments ordered root-first. When
// structural is set, every fragment carries :nth-of-type; otherwise fragments
// are tag plus up to two semantic classes.
func (e *Engine) pathFragments(el *dom.Node, opts Options, structural bool) []string {
	var frags []string
	for cur := el; cur != nil && cur != opts.Root && len(frags) < opts.MaxDepth; cur = cur.Parent() {
		if cur.Tag() == "html" {
			break
		}
		var frag string
		if structural {
			frag = fmt.Sprintf("%s:nth-of-type(%d)", cur.Tag(), cur.IndexAmongSameTag())
		} else {
			frag = classSelector(cur.Tag(), e.semanticClassesOf(cur, opts), 2)
		}
		frags = append(frags, frag)
	}
	// Built element-first; reverse to root-first order.
	for i, j := 0, len(frags)-1; i < j; i, j = i+1, j-1 {
		frags[i], frags[j] = frags[j], frags[i]
	}
	return frags
}

// Framework-generated or internal id prefixes that churn across renders.
var generatedIDPrefixes = []string{
	"radix-", "react-", "ember", "headlessui-", "mui-", "mantine-", "__",
}

const maxIDLength = 64

// wellFormedID applies the identifier naming rules: non-empty, bounded
// length, no leading digit, no whitespace, not framework-generated.
func wellFormedID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	if unicode.IsDigit(rune(id[0])) {
		return false
	}
	if strings.ContainsAny(id, " \t\n\r") {
		return false
	}
	// React's useId emits colon-delimited ids like ":r1:".
	if strings.Contains(id, ":") {
		return false
	}
	lower := strings.ToLower(id)
	for _, prefix := range generatedIDPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}
