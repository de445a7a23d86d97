package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"tag", "div", false},
		{"id", "#main", false},
		{"tag with id", "div#main", false},
		{"classes", ".btn.btn-primary", false},
		{"compound", "button.btn-primary#submit", false},
		{"descendant", "div .item", false},
		{"child", "ul > li", false},
		{"adjacent sibling", "h1 + p", false},
		{"general sibling", "h1 ~ p", false},
		{"group", "h1, h2, .title", false},
		{"attribute presence", "[disabled]", false},
		{"attribute equality", `[data-testid="cart"]`, false},
		{"attribute single quotes", `[data-testid='cart']`, false},
		{"attribute operators", `a[href^="https"][href$=".html"]`, false},
		{"nth-of-type", "li:nth-of-type(3)", false},
		{"structural path", "body > div:nth-of-type(2) > p:nth-of-type(1)", false},
		{"escaped class", `.a\:b`, false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"bare combinator", ">", true},
		{"dangling group", "div,", true},
		{"unknown pseudo", "div:hover", true},
		{"nth without argument", "li:nth-of-type", true},
		{"nth zero", "li:nth-of-type(0)", true},
		{"unterminated attribute", `[data-x="y"`, true},
		{"bad attribute operator", `[href!="x"]`, true},
		{"stray character", "div@", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := ParseSelector(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var invalid *ErrInvalidSelector
				assert.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, list)
		})
	}
}

func TestParseSelectorStructure(t *testing.T) {
	list, err := ParseSelector(`div.card > a[href="/x"]:nth-of-type(2), #alt`)
	require.NoError(t, err)
	require.Len(t, list, 2)

	first := list[0]
	require.Len(t, first.Parts, 2)
	assert.Equal(t, "div", first.Parts[0].Simple.TagName)
	assert.Equal(t, []string{"card"}, first.Parts[0].Simple.Classes)
	assert.Equal(t, CombinatorChild, first.Parts[1].Combinator)
	assert.Equal(t, "a", first.Parts[1].Simple.TagName)
	assert.Equal(t, 2, first.Parts[1].Simple.NthOfType)
	require.Len(t, first.Parts[1].Simple.Attributes, 1)
	assert.Equal(t, "/x", first.Parts[1].Simple.Attributes[0].Value)

	assert.Equal(t, "alt", list[1].Parts[0].Simple.ID)
}

func TestEscapeIdent(t *testing.T) {
	assert.Equal(t, "btn-primary", EscapeIdent("btn-primary"))
	assert.Equal(t, `hover\:bg-red`, EscapeIdent("hover:bg-red"))
	assert.Equal(t, `w-\[20px\]`, EscapeIdent("w-[20px]"))
}
