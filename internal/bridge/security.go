// internal/bridge/security.go
package bridge

import (
	"sync"

	"github.com/gobwas/glob"
	"go.uber.org/zap"
)

// defaultTrustedPatterns seed the validator when the embedder supplies no
// allow-list of its own. Wildcards cover the hosted-editor subdomains plus
// local development.
var defaultTrustedPatterns = []string{
	"https://lovable.app",
	"https://*.lovable.app",
	"https://lovable.dev",
	"https://*.lovable.dev",
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// originValidator decides whether an inbound message origin is trusted and
// which origin outbound events should target. All reads and updates are
// serialized; Configure commands can rewrite the rules at runtime.
type originValidator struct {
	mu sync.RWMutex

	parentOrigin string
	selfOrigin   string
	strict       bool

	exact    map[string]struct{}
	patterns []glob.Glob
	wildcard bool
	hasList  bool

	log *zap.Logger
}

func newOriginValidator(logger *zap.Logger) *originValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &originValidator{
		exact: map[string]struct{}{},
		log:   logger,
	}
	v.setAllowedLocked(defaultTrustedPatterns, false)
	return v
}

// SetParentOrigin pins the embedding frame's origin. The parent stays trusted
// even when a later allow-list omits it; cutting off the controlling frame
// mid-session would strand the agent.
func (v *originValidator) SetParentOrigin(origin string) {
	v.mu.Lock()
	v.parentOrigin = origin
	v.mu.Unlock()
}

// SetSelfOrigin records the page's own origin for same-origin checks.
func (v *originValidator) SetSelfOrigin(origin string) {
	v.mu.Lock()
	v.selfOrigin = origin
	v.mu.Unlock()
}

// SetStrict toggles strict origin checking.
func (v *originValidator) SetStrict(strict bool) {
	v.mu.Lock()
	v.strict = strict
	v.mu.Unlock()
}

// SetAllowedOrigins replaces the allow-list. Entries compile as anchored glob
// patterns; entries that fail to compile are logged and skipped rather than
// silently widening or narrowing the list.
func (v *originValidator) SetAllowedOrigins(origins []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setAllowedLocked(origins, true)
}

func (v *originValidator) setAllowedLocked(origins []string, explicit bool) {
	v.exact = map[string]struct{}{}
	v.patterns = nil
	v.wildcard = false
	v.hasList = explicit && len(origins) > 0
	for _, o := range origins {
		if o == "*" {
			v.wildcard = true
			continue
		}
		v.exact[o] = struct{}{}
		g, err := glob.Compile(o)
		if err != nil {
			v.log.Warn("invalid origin pattern skipped", zap.String("pattern", o), zap.Error(err))
			continue
		}
		v.patterns = append(v.patterns, g)
	}
}

// Trusted reports whether a message from origin may be processed.
func (v *originValidator) Trusted(origin string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if origin == "" {
		return false
	}
	if v.parentOrigin != "" && origin == v.parentOrigin {
		return true
	}

	if v.hasList {
		if v.wildcard {
			return true
		}
		if _, ok := v.exact[origin]; ok {
			return true
		}
		for _, g := range v.patterns {
			if g.Match(origin) {
				return true
			}
		}
		return false
	}

	// No explicit allow-list: same-origin traffic is always fine, and in
	// non-strict mode the seeded defaults decide the rest.
	if v.selfOrigin != "" && origin == v.selfOrigin {
		return true
	}
	if v.strict {
		return false
	}
	for _, g := range v.patterns {
		if g.Match(origin) {
			return true
		}
	}
	if _, ok := v.exact[origin]; ok {
		return true
	}
	return false
}

// Target picks the outbound destination origin: the known parent when pinned,
// the referrer origin as the next-best guess, and "*" only as a last resort.
func (v *originValidator) Target(referrerOrigin string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.parentOrigin != "" {
		return v.parentOrigin
	}
	if referrerOrigin != "" {
		return referrerOrigin
	}
	return "*"
}
