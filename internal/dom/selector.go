// internal/dom/selector.go
package dom

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSelector wraps every selector syntax failure so callers can
// distinguish malformed input from a valid selector that matched nothing.
type ErrInvalidSelector struct {
	Selector string
	Reason   string
}

func (e *ErrInvalidSelector) Error() string {
	return fmt.Sprintf("invalid selector %q: %s", e.Selector, e.Reason)
}

// SelectorList is a comma-separated group of complex selectors.
type SelectorList []ComplexSelector

// ComplexSelector is a sequence of simple selectors joined by combinators
// (e.g. "div > p.intro").
type ComplexSelector struct {
	Parts []CompoundPart
}

// CompoundPart pairs a simple selector with the combinator that precedes it.
type CompoundPart struct {
	Combinator Combinator
	Simple     SimpleSelector
}

// SimpleSelector is one compound step: tag, id, classes, attributes and an
// optional :nth-of-type ordinal (0 means absent).
type SimpleSelector struct {
	TagName    string
	ID         string
	Classes    []string
	Attributes []AttributeSelector
	NthOfType  int
}

// AttributeSelector is `[name]` or `[name op "value"]`.
type AttributeSelector struct {
	Name     string
	Operator string // "", "=", "~=", "|=", "^=", "$=", "*="
	Value    string
}

// IsValid reports whether the simple selector has at least one component.
func (s SimpleSelector) IsValid() bool {
	return s.TagName != "" || s.ID != "" || len(s.Classes) > 0 ||
		len(s.Attributes) > 0 || s.NthOfType > 0
}

// Combinator relates a compound part to the one before it.
type Combinator int

const (
	CombinatorNone            Combinator = iota // first part
	CombinatorDescendant                        // whitespace
	CombinatorChild                             // >
	CombinatorAdjacentSibling                   // +
	CombinatorGeneralSibling                    // ~
)

// ParseSelector parses a structural query string. Unlike a forgiving CSS
// cascade parser, any construct the matcher cannot honor is an error; the
// selector engine folds those errors into its InvalidSyntax verdict.
func ParseSelector(input string) (SelectorList, error) {
	p := &selParser{input: input}
	list, err := p.parseList()
	if err != nil {
		return nil, &ErrInvalidSelector{Selector: input, Reason: err.Error()}
	}
	if len(list) == 0 {
		return nil, &ErrInvalidSelector{Selector: input, Reason: "empty selector"}
	}
	return list, nil
}

type selParser struct {
	input string
	pos   int
}

func (p *selParser) parseList() (SelectorList, error) {
	var list SelectorList
	for {
		p.consumeWhitespace()
		if p.eof() {
			break
		}
		complexSel, err := p.parseComplex()
		if err != nil {
			return nil, err
		}
		if len(complexSel.Parts) == 0 {
			return nil, fmt.Errorf("empty selector in group")
		}
		list = append(list, complexSel)

		p.consumeWhitespace()
		if p.eof() {
			break
		}
		if p.current() != ',' {
			return nil, fmt.Errorf("unexpected character %q", p.current())
		}
		p.consume()
	}
	return list, nil
}

func (p *selParser) parseComplex() (ComplexSelector, error) {
	var cs ComplexSelector
	combinator := CombinatorNone

	for {
		p.consumeWhitespace()
		if p.eof() || p.current() == ',' {
			break
		}

		simple, err := p.parseSimple()
		if err != nil {
			return cs, err
		}
		cs.Parts = append(cs.Parts, CompoundPart{Combinator: combinator, Simple: simple})

		// A combinator may be surrounded by whitespace; bare whitespace
		// before another simple selector is the descendant combinator.
		sawSpace := p.consumeWhitespace() > 0
		if p.eof() || p.current() == ',' {
			break
		}
		switch p.current() {
		case '>':
			combinator = CombinatorChild
			p.consume()
		case '+':
			combinator = CombinatorAdjacentSibling
			p.consume()
		case '~':
			combinator = CombinatorGeneralSibling
			p.consume()
		default:
			if !sawSpace {
				return cs, fmt.Errorf("unexpected character %q", p.current())
			}
			combinator = CombinatorDescendant
		}
	}
	return cs, nil
}

func (p *selParser) parseSimple() (SimpleSelector, error) {
	sel := SimpleSelector{}

	if !p.eof() {
		ch := p.current()
		if ch == '*' {
			p.consume()
			sel.TagName = "*"
		} else if isIdentStart(ch) {
			sel.TagName = strings.ToLower(p.parseIdent())
		}
	}

	for !p.eof() {
		switch p.current() {
		case '#':
			p.consume()
			id := p.parseIdent()
			if id == "" {
				return sel, fmt.Errorf("expected identifier after '#'")
			}
			sel.ID = id
		case '.':
			p.consume()
			cls := p.parseIdent()
			if cls == "" {
				return sel, fmt.Errorf("expected identifier after '.'")
			}
			sel.Classes = append(sel.Classes, cls)
		case '[':
			p.consume()
			attr, err := p.parseAttribute()
			if err != nil {
				return sel, err
			}
			sel.Attributes = append(sel.Attributes, attr)
		case ':':
			p.consume()
			nth, err := p.parseNthOfType()
			if err != nil {
				return sel, err
			}
			sel.NthOfType = nth
		default:
			if !sel.IsValid() {
				return sel, fmt.Errorf("unexpected character %q", p.current())
			}
			return sel, nil
		}
	}

	if !sel.IsValid() {
		return sel, fmt.Errorf("empty simple selector")
	}
	return sel, nil
}

// parseNthOfType handles the single pseudo-class the matcher supports.
// Anything else is a syntax error rather than a silent non-match.
func (p *selParser) parseNthOfType() (int, error) {
	name := p.parseIdent()
	if name != "nth-of-type" {
		return 0, fmt.Errorf("unsupported pseudo-class :%s", name)
	}
	if p.eof() || p.current() != '(' {
		return 0, fmt.Errorf(":nth-of-type requires an argument")
	}
	p.consume()
	p.consumeWhitespace()
	start := p.pos
	for !p.eof() && p.current() >= '0' && p.current() <= '9' {
		p.pos++
	}
	arg := p.input[start:p.pos]
	p.consumeWhitespace()
	if p.eof() || p.current() != ')' {
		return 0, fmt.Errorf("unterminated :nth-of-type argument")
	}
	p.consume()

	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf(":nth-of-type argument must be a positive integer")
	}
	return n, nil
}

func (p *selParser) parseAttribute() (AttributeSelector, error) {
	p.consumeWhitespace()
	name := p.parseIdent()
	if name == "" {
		return AttributeSelector{}, fmt.Errorf("expected attribute name")
	}
	p.consumeWhitespace()
	if p.eof() {
		return AttributeSelector{}, fmt.Errorf("unterminated attribute selector")
	}

	// Presence selector: [disabled]
	if p.current() == ']' {
		p.consume()
		return AttributeSelector{Name: strings.ToLower(name)}, nil
	}

	var op strings.Builder
	switch p.current() {
	case '=':
		op.WriteByte(p.consume())
	case '~', '|', '^', '$', '*':
		op.WriteByte(p.consume())
		if p.eof() || p.current() != '=' {
			return AttributeSelector{}, fmt.Errorf("malformed attribute operator")
		}
		op.WriteByte(p.consume())
	default:
		return AttributeSelector{}, fmt.Errorf("unexpected character %q in attribute selector", p.current())
	}

	p.consumeWhitespace()
	var value string
	if !p.eof() && (p.current() == '"' || p.current() == '\'') {
		quote := p.consume()
		start := p.pos
		for !p.eof() && p.current() != quote {
			if p.current() == '\\' {
				p.pos++
			}
			p.pos++
		}
		if p.eof() {
			return AttributeSelector{}, fmt.Errorf("unterminated quoted attribute value")
		}
		value = unescapeSelector(p.input[start:p.pos])
		p.consume()
	} else {
		value = p.parseIdent()
	}
	p.consumeWhitespace()
	if p.eof() || p.current() != ']' {
		return AttributeSelector{}, fmt.Errorf("expected ']' to close attribute selector")
	}
	p.consume()

	return AttributeSelector{Name: strings.ToLower(name), Operator: op.String(), Value: value}, nil
}

// -- Lexer helpers --

func (p *selParser) eof() bool { return p.pos >= len(p.input) }

func (p *selParser) current() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *selParser) consume() byte {
	ch := p.current()
	if !p.eof() {
		p.pos++
	}
	return ch
}

func (p *selParser) consumeWhitespace() int {
	n := 0
	for !p.eof() && isSelWhitespace(p.current()) {
		p.pos++
		n++
	}
	return n
}

func (p *selParser) parseIdent() string {
	start := p.pos
	for !p.eof() {
		ch := p.current()
		if isIdentChar(ch) {
			p.pos++
			continue
		}
		if ch == '\\' && p.pos+1 < len(p.input) {
			p.pos += 2
			continue
		}
		break
	}
	return unescapeSelector(p.input[start:p.pos])
}

func unescapeSelector(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isSelWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '-'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
