// internal/selector/classes.go
package selector

import (
	"regexp"
	"strings"
)

// Utility-class recognition. Atomic CSS classes (Tailwind and friends) encode
// styling, not author intent, and churn across builds, so they are useless as
// selector anchors. The tables below cover the structural naming patterns:
// spacing, sizing, color, layout, typography, plus state and breakpoint
// prefixes.

var utilityExactClasses = map[string]struct{}{
	"flex": {}, "inline-flex": {}, "grid": {}, "inline-grid": {},
	"block": {}, "inline-block": {}, "inline": {}, "hidden": {},
	"container": {}, "relative": {}, "absolute": {}, "fixed": {},
	"sticky": {}, "static": {}, "visible": {}, "invisible": {},
	"truncate": {}, "italic": {}, "underline": {}, "uppercase": {},
	"lowercase": {}, "capitalize": {}, "antialiased": {},
	"rounded": {}, "border": {}, "shadow": {}, "transition": {},
	"grow": {}, "shrink": {}, "flex-1": {}, "flex-auto": {}, "flex-none": {},
}

var utilityPrefixPatterns = regexp.MustCompile(`^(?:` +
	// spacing: p-4, px-2, mt-2, -mx-1, space-x-2, gap-4
	`-?[pm][trblxy]?-|space-[xy]-|gap(?:-[xy])?-|inset(?:-[xy])?-` +
	// sizing: w-full, h-4, min-w-0, max-h-screen, size-6
	`|w-|h-|min-w-|min-h-|max-w-|max-h-|size-` +
	// color and decoration: bg-red-500, text-sm, text-gray-900, fill-, stroke-
	`|bg-|text-|fill-|stroke-|decoration-|placeholder-|caret-|accent-` +
	// borders, rings, shadows, opacity: border-t, rounded-lg, ring-2
	`|border-|rounded-|ring-|outline-|divide-|shadow-|opacity-` +
	// layout: flex-row, grid-cols-3, col-span-2, order-1, z-10, basis-
	`|flex-|grid-|col-|row-|order-|z-|basis-|justify-|items-|content-|self-|place-` +
	// typography: font-bold, leading-6, tracking-wide, list-none, whitespace-
	`|font-|leading-|tracking-|list-|align-|whitespace-|break-|indent-` +
	// position offsets and overflow: top-0, left-1/2, overflow-hidden, object-
	`|top-|right-|bottom-|left-|start-|end-|overflow-|overscroll-|object-` +
	// effects and interactivity: blur-, transition-, duration-, cursor-, select-
	`|blur-|brightness-|contrast-|grayscale-|backdrop-|transition-|duration-|ease-|delay-|animate-` +
	`|cursor-|select-|pointer-events-|scroll-|snap-|touch-|will-change-` +
	// transforms and misc: translate-, rotate-, scale-, skew-, origin-, aspect-
	`|-?translate-|-?rotate-|-?scale-|-?skew-|origin-|aspect-|columns-|float-|clear-` +
	`)`)

// statePrefixPattern catches pseudo-class and breakpoint variants like
// "hover:bg-red-500", "md:flex", "dark:text-white", "group-hover:underline".
var statePrefixPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*:`)

// arbitraryValuePattern catches bracketed arbitrary values like "w-[117px]".
var arbitraryValuePattern = regexp.MustCompile(`\[[^\]]*\]`)

// generatedClassPattern catches CSS-in-JS output such as "css-1q2w3e" or
// "sc-bdVaJa" and hashed module classes.
var generatedClassPattern = regexp.MustCompile(`^(?:css|sc|jsx|emotion)-|_[a-zA-Z0-9]{5,}$`)

const maxSemanticClassLength = 40

// IsUtilityClass reports whether a class name is an atomic/utility class or
// otherwise unfit to anchor a selector.
func IsUtilityClass(class string) bool {
	if class == "" {
		return true
	}
	if _, ok := utilityExactClasses[class]; ok {
		return true
	}
	if statePrefixPattern.MatchString(class) {
		return true
	}
	if arbitraryValuePattern.MatchString(class) {
		return true
	}
	if utilityPrefixPatterns.MatchString(class) {
		return true
	}
	return false
}

// isGeneratedLooking rejects overlong or build-hashed class names.
func isGeneratedLooking(class string) bool {
	if len(class) > maxSemanticClassLength {
		return true
	}
	if generatedClassPattern.MatchString(class) {
		return true
	}
	// A long token of mixed letters and digits with no separators reads as a
	// hash, not a name.
	if len(class) >= 10 && !strings.ContainsAny(class, "-_") &&
		strings.ContainsAny(class, "0123456789") {
		return true
	}
	return false
}

// SemanticClasses filters a class list down to names that convey author
// intent, preserving order.
func SemanticClasses(classes []string) []string {
	var out []string
	for _, c := range classes {
		if IsUtilityClass(c) || isGeneratedLooking(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}
