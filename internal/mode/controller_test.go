// internal/mode/controller_test.go
package mode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/editbridge/internal/dom"
	"github.com/xkilldash9x/editbridge/internal/mode"
	"github.com/xkilldash9x/editbridge/internal/overlay"
)

func newController(t *testing.T) (*mode.Controller, *dom.MemoryDocument) {
	t.Helper()
	doc, err := dom.ParseString(
		`<html><body><a id="link" href="/away">Go</a></body></html>`,
		dom.Size{Width: 800, Height: 600},
	)
	require.NoError(t, err)
	return mode.NewController(doc, overlay.NewManager(doc, nil), nil), doc
}

func TestActivateSuppressesInteraction(t *testing.T) {
	c, doc := newController(t)

	pageClicks := 0
	doc.Listen(dom.EventClick, false, func(*dom.Event) { pageClicks++ })

	c.Activate()
	require.True(t, c.Active())

	link, err := doc.Query("#link")
	require.NoError(t, err)
	ev := doc.Dispatch(&dom.Event{Kind: dom.EventClick, Target: link[0]})
	assert.True(t, ev.DefaultPrevented())
	assert.Zero(t, pageClicks, "page handlers must not run while active")

	c.Deactivate()
	ev = doc.Dispatch(&dom.Event{Kind: dom.EventClick, Target: link[0]})
	assert.False(t, ev.DefaultPrevented())
	assert.Equal(t, 1, pageClicks)
}

func TestActivateIdempotent(t *testing.T) {
	c, doc := newController(t)

	transitions := 0
	c.OnChange(func(bool) { transitions++ })

	c.Activate()
	c.Activate()
	c.Activate()

	assert.Equal(t, 1, transitions)
	// One suppression listener per interaction kind, not per Activate call.
	assert.Equal(t, 1, doc.ListenerCount(dom.EventClick))
	assert.Equal(t, 1, doc.ListenerCount(dom.EventSubmit))
}

func TestDeactivateIdempotentAndSilent(t *testing.T) {
	c, doc := newController(t)

	var states []bool
	c.OnChange(func(on bool) { states = append(states, on) })

	c.Deactivate() // inactive already: no hook, no listener churn
	assert.Empty(t, states)

	c.Activate()
	c.Deactivate()
	c.Deactivate()

	assert.Equal(t, []bool{true, false}, states)
	assert.Zero(t, doc.ListenerCount(dom.EventClick))
}

func TestBodyStylesRestored(t *testing.T) {
	c, doc := newController(t)
	body := doc.Body()
	doc.SetStyles(body, map[string]string{"cursor": "pointer"})

	c.Activate()
	assert.Equal(t, "crosshair", body.Style("cursor"))
	assert.Equal(t, "none", body.Style("user-select"))

	c.Deactivate()
	assert.Equal(t, "pointer", body.Style("cursor"))
	assert.Equal(t, "", body.Style("user-select"))
}

func TestScrollNotSuppressed(t *testing.T) {
	c, doc := newController(t)
	scrolls := 0
	doc.Listen(dom.EventScroll, false, func(*dom.Event) { scrolls++ })

	c.Activate()
	doc.SetScrollOffset(dom.Point{X: 0, Y: 120})
	assert.Equal(t, 1, scrolls, "scroll must reach overlay tracking while active")
}
