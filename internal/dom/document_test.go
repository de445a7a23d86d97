package dom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/editbridge/internal/dom"
)

const fixtureHTML = `
<html>
<body>
	<div id="header" class="site-header">
		<h1>Storefront</h1>
	</div>
	<div class="content">
		<p class="intro">First</p>
		<p>Second</p>
		<ul class="product-list">
			<li class="product-card">Item 1</li>
			<li class="product-card">Item 2</li>
			<li id="featured" class="product-card featured">Item 3</li>
		</ul>
	</div>
	<div class="content">
		<button class="btn btn-primary" data-testid="checkout">Checkout</button>
	</div>
</body>
</html>`

func mustParse(t *testing.T) *dom.MemoryDocument {
	t.Helper()
	doc, err := dom.ParseString(fixtureHTML, dom.Size{Width: 1024, Height: 768})
	require.NoError(t, err)
	return doc
}

func TestQuery(t *testing.T) {
	doc := mustParse(t)

	tests := []struct {
		name     string
		selector string
		want     int
	}{
		{"by id", "#featured", 1},
		{"by tag", "p", 2},
		{"by class", ".product-card", 3},
		{"compound class", ".product-card.featured", 1},
		{"tag and class", "li.featured", 1},
		{"descendant", ".content p", 2},
		{"child", "ul > li", 3},
		{"attribute", `[data-testid="checkout"]`, 1},
		{"nth-of-type", "li:nth-of-type(2)", 1},
		{"group", "h1, button", 2},
		{"no match", ".missing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := doc.Query(tt.selector)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestQueryInvalidSyntax(t *testing.T) {
	doc := mustParse(t)
	_, err := doc.Query("li:first-child")
	require.Error(t, err)
	var invalid *dom.ErrInvalidSelector
	assert.ErrorAs(t, err, &invalid)
}

func TestQueryIdentity(t *testing.T) {
	doc := mustParse(t)
	featured, err := doc.Query("#featured")
	require.NoError(t, err)
	require.Len(t, featured, 1)

	again, err := doc.Query("li.featured")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Same(t, featured[0], again[0], "queries for the same element must return the same node")
}

func TestNthOfTypeOrdinal(t *testing.T) {
	doc := mustParse(t)
	items, err := doc.Query("li")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 1, items[0].IndexAmongSameTag())
	assert.Equal(t, 3, items[2].IndexAmongSameTag())

	third, err := doc.Query("ul > li:nth-of-type(3)")
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Same(t, items[2], third[0])
}

func TestElementsFromPoint(t *testing.T) {
	doc := mustParse(t)
	button, err := doc.Query("button")
	require.NoError(t, err)
	require.Len(t, button, 1)
	r := button[0].Bounds()
	require.Greater(t, r.Height, 0.0)

	hits := doc.ElementsFromPoint(r.Left+1, r.Top+1)
	require.NotEmpty(t, hits)
	assert.Same(t, button[0], hits[0], "topmost hit should be the deepest node under the point")
}

func TestElementsFromPointMiss(t *testing.T) {
	doc := mustParse(t)
	hits := doc.ElementsFromPoint(5000, 5000)
	assert.Empty(t, hits)
}

func TestDispatchPhases(t *testing.T) {
	doc := mustParse(t)
	var order []string

	cancelCapture := doc.Listen(dom.EventClick, true, func(ev *dom.Event) {
		order = append(order, "capture")
	})
	defer cancelCapture()
	cancelBubble := doc.Listen(dom.EventClick, false, func(ev *dom.Event) {
		order = append(order, "bubble")
	})
	defer cancelBubble()

	doc.DispatchAt(dom.EventClick, 10, 10)
	assert.Equal(t, []string{"capture", "bubble"}, order)
}

func TestDispatchStopImmediate(t *testing.T) {
	doc := mustParse(t)
	var later int

	cancel := doc.Listen(dom.EventClick, true, func(ev *dom.Event) {
		ev.PreventDefault()
		ev.StopImmediatePropagation()
	})
	defer cancel()
	cancel2 := doc.Listen(dom.EventClick, true, func(ev *dom.Event) { later++ })
	defer cancel2()
	cancel3 := doc.Listen(dom.EventClick, false, func(ev *dom.Event) { later++ })
	defer cancel3()

	ev := doc.DispatchAt(dom.EventClick, 10, 10)
	assert.True(t, ev.DefaultPrevented())
	assert.Zero(t, later, "no handler may run after stopImmediatePropagation")
}

func TestListenCancelIdempotent(t *testing.T) {
	doc := mustParse(t)
	cancel := doc.Listen(dom.EventScroll, false, func(ev *dom.Event) {})
	assert.Equal(t, 1, doc.ListenerCount(dom.EventScroll))
	cancel()
	cancel()
	assert.Equal(t, 0, doc.ListenerCount(dom.EventScroll))
}

func TestOverlayStylesDriveBounds(t *testing.T) {
	doc := mustParse(t)
	n := doc.CreateElement("div")
	doc.AppendToBody(n)
	doc.SetStyles(n, map[string]string{
		"position": "fixed",
		"left":     "10px",
		"top":      "20px",
		"width":    "100px",
		"height":   "50px",
	})
	assert.Equal(t, dom.Rect{Left: 10, Top: 20, Width: 100, Height: 50}, n.Bounds())

	doc.Remove(n)
	assert.Nil(t, n.Parent())
}

func TestTextCollapsesWhitespace(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><p>  hello
		world </p></body></html>`, dom.Size{Width: 800, Height: 600})
	require.NoError(t, err)
	p, err := doc.Query("p")
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Equal(t, "hello world", p[0].Text())
}
