// internal/bridge/config.go
package bridge

import (
	"sync"
	"time"

	"github.com/xkilldash9x/editbridge/api/schemas"
	"github.com/xkilldash9x/editbridge/internal/selector"
)

// Settings is the runtime-mutable bridge configuration. A Configure command
// merges its present fields over the current values.
type Settings struct {
	ParentOrigin      string
	AllowedOrigins    []string
	StrictOriginCheck bool
	AutoDetectParent  bool
	EnableDebug       bool

	// SelfOrigin is the origin of the page the agent is embedded in.
	// Same-origin messages are trusted when no explicit allow-list is set;
	// it is not reachable through Configure commands.
	SelfOrigin string

	// FrameInterval paces detect handling; at most one detect is processed
	// per interval, the rest of the burst is dropped.
	FrameInterval time.Duration

	// Selector tunes the selector computation pipeline for detect commands.
	Selector selector.Options
}

// DefaultSettings mirror a fresh embed: auto-detect the parent frame, no
// explicit allow-list, one detect per display frame.
func DefaultSettings() Settings {
	return Settings{
		AutoDetectParent: true,
		FrameInterval:    16 * time.Millisecond,
		Selector:         selector.DefaultOptions(),
	}
}

// settingsStore serializes runtime reconfiguration against the dispatch loop.
type settingsStore struct {
	mu  sync.RWMutex
	cur Settings
}

func newSettingsStore(s Settings) *settingsStore {
	if s.FrameInterval <= 0 {
		s.FrameInterval = DefaultSettings().FrameInterval
	}
	if s.Selector.Budget <= 0 {
		s.Selector = selector.DefaultOptions()
	}
	return &settingsStore{cur: s}
}

// Snapshot returns a copy of the current settings.
func (s *settingsStore) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cur
	out.AllowedOrigins = append([]string(nil), s.cur.AllowedOrigins...)
	return out
}

// Apply merges a Configure command and reports which origin-relevant parts
// changed so the caller can refresh the validator.
func (s *settingsStore) Apply(cmd schemas.ConfigureCommand) (parentChanged, originsChanged, strictChanged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cmd.ParentOrigin != nil && *cmd.ParentOrigin != s.cur.ParentOrigin {
		s.cur.ParentOrigin = *cmd.ParentOrigin
		parentChanged = true
	}
	if cmd.AllowedOrigins != nil {
		s.cur.AllowedOrigins = append([]string(nil), cmd.AllowedOrigins...)
		originsChanged = true
	}
	if cmd.StrictOriginCheck != nil && *cmd.StrictOriginCheck != s.cur.StrictOriginCheck {
		s.cur.StrictOriginCheck = *cmd.StrictOriginCheck
		strictChanged = true
	}
	if cmd.AutoDetectParent != nil {
		s.cur.AutoDetectParent = *cmd.AutoDetectParent
	}
	if cmd.EnableDebug != nil {
		s.cur.EnableDebug = *cmd.EnableDebug
	}
	return parentChanged, originsChanged, strictChanged
}
