// internal/bridge/security_test.go
package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustedParentAlwaysWins(t *testing.T) {
	v := newOriginValidator(nil)
	v.SetParentOrigin("https://builder.example.com")

	assert.True(t, v.Trusted("https://builder.example.com"))

	// Even a restrictive allow-list cannot lock out the controlling frame.
	v.SetAllowedOrigins([]string{"https://only.this.one"})
	assert.True(t, v.Trusted("https://builder.example.com"))
	assert.True(t, v.Trusted("https://only.this.one"))
	assert.False(t, v.Trusted("https://somewhere.else"))
}

func TestDefaultPatternsCoverHostedAndLocal(t *testing.T) {
	v := newOriginValidator(nil)

	for _, origin := range []string{
		"https://lovable.app",
		"https://preview.lovable.app",
		"https://lovable.dev",
		"https://id-preview.lovable.dev",
		"http://localhost:3000",
		"http://127.0.0.1:8080",
	} {
		assert.True(t, v.Trusted(origin), origin)
	}

	assert.False(t, v.Trusted("https://evil.example.com"))
	assert.False(t, v.Trusted("https://lovable.app.evil.com"), "glob must anchor the whole origin")
	assert.False(t, v.Trusted(""))
}

func TestStrictModeWithoutAllowList(t *testing.T) {
	v := newOriginValidator(nil)
	v.SetSelfOrigin("https://app.example.com")
	v.SetStrict(true)

	assert.True(t, v.Trusted("https://app.example.com"), "same-origin stays trusted in strict mode")
	assert.False(t, v.Trusted("https://preview.lovable.app"), "strict mode drops the seeded defaults")

	v.SetParentOrigin("https://editor.example.com")
	assert.True(t, v.Trusted("https://editor.example.com"))
}

func TestAllowListGlobAndWildcard(t *testing.T) {
	v := newOriginValidator(nil)
	v.SetAllowedOrigins([]string{"https://*.trusted.io", "https://exact.example.com"})

	assert.True(t, v.Trusted("https://a.trusted.io"))
	assert.True(t, v.Trusted("https://exact.example.com"))
	assert.False(t, v.Trusted("https://trusted.io.evil.com"))
	assert.False(t, v.Trusted("http://localhost:3000"), "explicit list replaces the defaults")

	v.SetAllowedOrigins([]string{"*"})
	assert.True(t, v.Trusted("https://anything.at.all"))
}

func TestOutboundTargetFallback(t *testing.T) {
	v := newOriginValidator(nil)
	assert.Equal(t, "*", v.Target(""))
	assert.Equal(t, "https://ref.example.com", v.Target("https://ref.example.com"))

	v.SetParentOrigin("https://parent.example.com")
	assert.Equal(t, "https://parent.example.com", v.Target("https://ref.example.com"))
}

func TestOriginOf(t *testing.T) {
	assert.Equal(t, "https://editor.lovable.app", OriginOf("https://editor.lovable.app/projects/42?x=1"))
	assert.Equal(t, "http://localhost:3000", OriginOf("http://localhost:3000/"))
	assert.Equal(t, "", OriginOf(""))
	assert.Equal(t, "", OriginOf("not a url"))
}
