package detector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/editbridge/internal/detector"
	"github.com/xkilldash9x/editbridge/internal/dom"
	"github.com/xkilldash9x/editbridge/internal/selector"
)

const pageHTML = `
<html>
<body>
	<div id="banner" style="height: 40px">Banner</div>
	<button id="buy">Buy now</button>
</body>
</html>`

func newPage(t *testing.T) *dom.MemoryDocument {
	t.Helper()
	doc, err := dom.ParseString(pageHTML, dom.Size{Width: 800, Height: 600})
	require.NoError(t, err)
	return doc
}

func TestResolveAt(t *testing.T) {
	doc := newPage(t)
	det := detector.New(doc, nil)

	banner, err := doc.Query("#banner")
	require.NoError(t, err)
	require.Len(t, banner, 1)

	got := det.ResolveAt(10, 10)
	assert.Same(t, banner[0], got)
}

func TestResolveAtNothing(t *testing.T) {
	doc := newPage(t)
	det := detector.New(doc, nil)
	assert.Nil(t, det.ResolveAt(700, 500))
}

func TestResolveAtSkipsOverlayNodes(t *testing.T) {
	doc := newPage(t)
	det := detector.New(doc, nil)

	buy, err := doc.Query("#buy")
	require.NoError(t, err)
	require.Len(t, buy, 1)
	r := buy[0].Bounds()

	// Park an overlay box exactly over the button, with a child inside it.
	overlay := doc.CreateElement("div")
	overlay.SetAttr(selector.OverlayMarkerAttr, "hover")
	doc.AppendToBody(overlay)
	doc.SetStyles(overlay, map[string]string{
		"position": "fixed",
		"left":     "0px", "top": "40px", "width": "800px", "height": "100px",
	})
	label := doc.CreateElement("span")
	overlay.Append(label)
	label.SetBounds(overlay.Bounds())

	got := det.ResolveAt(r.Left+1, r.Top+1)
	assert.Same(t, buy[0], got, "overlay and its children must be invisible to detection")
}

func TestResolveAtFrameTranslation(t *testing.T) {
	doc := newPage(t)
	doc.SetFrameOffset(dom.Point{X: 100, Y: 50})
	det := detector.New(doc, nil)

	banner, err := doc.Query("#banner")
	require.NoError(t, err)

	// Controller-space (110, 60) lands at local (10, 10).
	got := det.ResolveAt(110, 60)
	assert.Same(t, banner[0], got)

	// Scroll shifts the mapping further.
	doc.SetScrollOffset(dom.Point{X: 0, Y: 20})
	got = det.ResolveAt(110, 80)
	assert.Same(t, banner[0], got)
}
