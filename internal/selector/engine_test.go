package selector_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/editbridge/internal/dom"
	"github.com/xkilldash9x/editbridge/internal/selector"
)

const storefrontHTML = `
<html>
<body>
	<header id="site-header" class="p-4 flex site-header">
		<h1 class="text-xl font-bold">Shop</h1>
		<nav class="main-nav">
			<a href="/catalog" class="nav-link">Catalog</a>
			<a href="/cart" class="nav-link cart-link">Cart</a>
		</nav>
	</header>
	<main>
		<section class="product-grid grid gap-4">
			<article class="product-card">
				<h2 class="product-title">Alpha</h2>
				<button class="p-2 bg-blue-500 btn-primary" data-testid="add-alpha">Add</button>
			</article>
			<article class="product-card">
				<h2 class="product-title">Beta</h2>
				<button class="p-2 bg-blue-500 btn-primary">Add</button>
			</article>
			<article class="product-card featured-card">
				<h2 class="product-title">Gamma</h2>
				<button id="9digits" class="p-2">Add</button>
			</article>
		</section>
		<div class="css-x8k2j1">
			<span class="mt-2 px-3"></span>
			<span class="mt-2 px-3"></span>
		</div>
	</main>
</body>
</html>`

func newFixture(t *testing.T) (*dom.MemoryDocument, *selector.Engine) {
	t.Helper()
	doc, err := dom.ParseString(storefrontHTML, dom.Size{Width: 1280, Height: 800})
	require.NoError(t, err)
	return doc, selector.NewEngine(doc, nil)
}

func queryOne(t *testing.T, doc *dom.MemoryDocument, sel string) *dom.Node {
	t.Helper()
	nodes, err := doc.Query(sel)
	require.NoError(t, err)
	require.Len(t, nodes, 1, "fixture query %q", sel)
	return nodes[0]
}

// verifyResolves asserts the uniqueness + correctness invariant: the selector
// matches exactly one node and that node is the target.
func verifyResolves(t *testing.T, doc *dom.MemoryDocument, sel string, target *dom.Node) {
	t.Helper()
	nodes, err := doc.Query(sel)
	require.NoError(t, err, "generated selector %q must be parseable", sel)
	require.Len(t, nodes, 1, "generated selector %q must be unique", sel)
	assert.Same(t, target, nodes[0], "generated selector %q must resolve to the target", sel)
}

func TestComputeIDShortcut(t *testing.T) {
	doc, eng := newFixture(t)
	header := queryOne(t, doc, "header")

	sel := eng.Compute(header, selector.DefaultOptions())
	assert.Equal(t, "#site-header", sel)
	verifyResolves(t, doc, sel, header)
}

func TestComputeRejectsMalformedID(t *testing.T) {
	doc, eng := newFixture(t)
	// This button's id starts with a digit, so the id step must be skipped.
	btn := queryOne(t, doc, ".featured-card button")

	sel := eng.Compute(btn, selector.DefaultOptions())
	require.NotEmpty(t, sel)
	assert.NotEqual(t, "#9digits", sel)
	verifyResolves(t, doc, sel, btn)
}

func TestComputeDataAttribute(t *testing.T) {
	doc, eng := newFixture(t)
	btn := queryOne(t, doc, `[data-testid="add-alpha"]`)

	sel := eng.Compute(btn, selector.DefaultOptions())
	assert.Equal(t, `[data-testid="add-alpha"]`, sel)
	verifyResolves(t, doc, sel, btn)
}

func TestComputeSemanticClasses(t *testing.T) {
	doc, eng := newFixture(t)
	cart := queryOne(t, doc, ".cart-link")

	sel := eng.Compute(cart, selector.DefaultOptions())
	verifyResolves(t, doc, sel, cart)
	assert.NotContains(t, sel, "p-4")
	assert.NotContains(t, sel, "flex")
}

func TestComputeAncestorPathDisambiguates(t *testing.T) {
	doc, eng := newFixture(t)
	// The second Add button has no id, no data attribute, and classes shared
	// with its sibling, so only a path or ordinal can pin it down.
	buttons, err := doc.Query("article button")
	require.NoError(t, err)
	require.Len(t, buttons, 3)
	second := buttons[1]

	sel := eng.Compute(second, selector.DefaultOptions())
	require.NotEmpty(t, sel)
	verifyResolves(t, doc, sel, second)
}

func TestComputeStructuralFallbackTotality(t *testing.T) {
	doc, eng := newFixture(t)
	all, err := doc.Query("body *")
	require.NoError(t, err)
	require.NotEmpty(t, all)

	opts := selector.DefaultOptions()
	for _, el := range all {
		sel := eng.Compute(el, opts)
		require.NotEmpty(t, sel, "every attached element within depth must get a selector (tag %s)", el.Tag())
		verifyResolves(t, doc, sel, el)
	}
}

func TestComputeBudgetSkipsToStructural(t *testing.T) {
	doc, eng := newFixture(t)
	// Anonymous span with only utility classes and an unusable generated
	// parent class; with a spent budget the engine must still produce the
	// ordinal path.
	spans, err := doc.Query("span")
	require.NoError(t, err)
	require.Len(t, spans, 2)

	opts := selector.DefaultOptions()
	opts.Budget = time.Nanosecond
	sel := eng.Compute(spans[1], opts)
	require.NotEmpty(t, sel)
	assert.Contains(t, sel, ":nth-of-type(")
	verifyResolves(t, doc, sel, spans[1])
}

func TestComputeIdempotentCached(t *testing.T) {
	doc, eng := newFixture(t)
	card := queryOne(t, doc, ".featured-card")

	first := eng.Compute(card, selector.DefaultOptions())
	require.NotEmpty(t, first)
	second := eng.Compute(card, selector.DefaultOptions())
	assert.Equal(t, first, second)
	verifyResolves(t, doc, second, card)
}

func TestComputeCacheRevalidatedAfterMutation(t *testing.T) {
	doc, eng := newFixture(t)
	nav := queryOne(t, doc, ".main-nav")

	first := eng.Compute(nav, selector.DefaultOptions())
	assert.Equal(t, ".main-nav", first)

	// Introduce a second element matching the cached selector; the stale
	// cache entry must not be reused as-is.
	imposter := doc.CreateElement("nav")
	imposter.SetAttr("class", "main-nav")
	doc.AppendToBody(imposter)

	second := eng.Compute(nav, selector.DefaultOptions())
	require.NotEmpty(t, second)
	assert.NotEqual(t, ".main-nav", second)
	verifyResolves(t, doc, second, nav)
}

func TestComputeNilElement(t *testing.T) {
	_, eng := newFixture(t)
	assert.Empty(t, eng.Compute(nil, selector.DefaultOptions()))
}

func TestInvalidateAll(t *testing.T) {
	doc, eng := newFixture(t)
	card := queryOne(t, doc, ".featured-card")
	require.NotEmpty(t, eng.Compute(card, selector.DefaultOptions()))
	eng.InvalidateAll()
	// Recomputation still works and still satisfies the invariant.
	sel := eng.Compute(card, selector.DefaultOptions())
	verifyResolves(t, doc, sel, card)
}
