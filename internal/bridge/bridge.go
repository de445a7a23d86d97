// internal/bridge/bridge.go

// Package bridge ties the detection, selector and overlay machinery to a
// message transport, implementing the command/event protocol a visual-edit
// controller speaks to the embedded page agent.
package bridge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/editbridge/api/schemas"
	"github.com/xkilldash9x/editbridge/internal/detector"
	"github.com/xkilldash9x/editbridge/internal/dom"
	"github.com/xkilldash9x/editbridge/internal/mode"
	"github.com/xkilldash9x/editbridge/internal/overlay"
	"github.com/xkilldash9x/editbridge/internal/selector"
)

// Version is reported in the startup ready event.
const Version = "1.2.0"

// Features advertises the command surface to the controller.
var Features = []string{"detect", "highlight", "element-info", "configure"}

// Bridge is the agent's message loop: it validates inbound origins, decodes
// commands, drives the detector/selector/overlay pipeline and emits events.
type Bridge struct {
	doc       dom.Document
	det       *detector.Detector
	eng       *selector.Engine
	overlays  *overlay.Manager
	modeCtl   *mode.Controller
	validator *originValidator
	settings  *settingsStore
	gate      *frameGate
	transport Transport
	log       *zap.Logger
}

// New wires a bridge over the document and transport. Settings may be the
// zero value; defaults are filled in.
func New(doc dom.Document, transport Transport, settings Settings, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("bridge")

	eng := selector.NewEngine(doc, log)
	overlays := overlay.NewManager(doc, log)
	overlays.OnTeardown(eng.InvalidateAll)

	b := &Bridge{
		doc:       doc,
		det:       detector.New(doc, log),
		eng:       eng,
		overlays:  overlays,
		modeCtl:   mode.NewController(doc, overlays, log),
		validator: newOriginValidator(log),
		settings:  newSettingsStore(settings),
		gate:      newFrameGate(),
		transport: transport,
		log:       log,
	}

	snap := b.settings.Snapshot()
	if snap.ParentOrigin != "" {
		b.validator.SetParentOrigin(snap.ParentOrigin)
	} else if snap.AutoDetectParent {
		if ref := OriginOf(doc.Referrer()); ref != "" {
			b.validator.SetParentOrigin(ref)
			log.Info("parent origin auto-detected", zap.String("origin", ref))
		}
	}
	if snap.SelfOrigin != "" {
		b.validator.SetSelfOrigin(snap.SelfOrigin)
	}
	if len(snap.AllowedOrigins) > 0 {
		b.validator.SetAllowedOrigins(snap.AllowedOrigins)
	}
	b.validator.SetStrict(snap.StrictOriginCheck)

	b.modeCtl.OnChange(func(active bool) {
		if active {
			b.emit(schemas.EvtReady, schemas.ReadyEvent{Active: true})
		} else {
			b.gate.Reset()
		}
	})
	return b
}

// Mode exposes the lifecycle controller, mainly for embedders and tests.
func (b *Bridge) Mode() *mode.Controller { return b.modeCtl }

// Run announces readiness and processes commands until ctx is cancelled or
// the transport closes. Individual command faults are reported as error
// events; they never stop the loop.
func (b *Bridge) Run(ctx context.Context) error {
	b.emit(schemas.EvtReady, schemas.ReadyEvent{Version: Version, Features: Features})

	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return ctx.Err()
		case in, ok := <-b.transport.Receive():
			if !ok {
				b.shutdown()
				return nil
			}
			b.handle(in)
		}
	}
}

func (b *Bridge) shutdown() {
	b.modeCtl.Deactivate()
	b.overlays.Teardown()
}

// handle processes one inbound frame. A panic in a command handler is
// downgraded to an error event so a single poisoned message cannot take the
// agent down.
func (b *Bridge) handle(in Inbound) {
	if !b.validator.Trusted(in.Origin) {
		b.log.Warn("message from untrusted origin dropped", zap.String("origin", in.Origin))
		return
	}

	msg, err := decodeMessage(in.Payload)
	if err != nil {
		b.log.Debug("undecodable frame dropped", zap.Error(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("command handler panicked",
				zap.String("type", string(msg.Type)), zap.Any("panic", r))
			b.emit(schemas.EvtError, schemas.ErrorEvent{
				Error:   fmt.Sprintf("internal error handling %s", msg.Type),
				Command: msg.Type,
			})
		}
	}()

	switch msg.Type {
	case schemas.CmdActivate:
		b.modeCtl.Activate()
	case schemas.CmdDeactivate:
		b.modeCtl.Deactivate()
	case schemas.CmdDetectElement:
		b.handleDetect(msg)
	case schemas.CmdHighlight:
		b.handleHighlight(msg)
	case schemas.CmdClearHighlight:
		b.overlays.HideAll()
	case schemas.CmdElementInfo:
		b.handleElementInfo(msg)
	case schemas.CmdConfigure:
		b.handleConfigure(msg)
	default:
		// Foreign frames share the channel; anything unrecognized is not ours.
		b.log.Debug("ignoring unrecognized message type", zap.String("type", string(msg.Type)))
	}
}

func (b *Bridge) handleDetect(msg decoded) {
	var cmd schemas.DetectCommand
	if err := decodePayload(msg, &cmd); err != nil {
		b.emitError(err.Error(), msg.Type, "", "")
		return
	}
	if !cmd.Action.Valid() {
		b.emitError(fmt.Sprintf("unknown detect action %q", cmd.Action), msg.Type, "", string(cmd.Action))
		return
	}
	if !b.modeCtl.Active() {
		b.log.Debug("detect ignored while inactive")
		return
	}
	if !b.gate.TryAcquire(b.settings.Snapshot().FrameInterval) {
		return
	}

	el := b.det.ResolveAt(cmd.X, cmd.Y)
	if el == nil {
		b.emit(schemas.EvtNoElement, schemas.NoElementEvent{Action: cmd.Action})
		return
	}

	sel := b.eng.Compute(el, b.settings.Snapshot().Selector)
	if sel == "" {
		b.emitError("selector computation failed", msg.Type, "", string(cmd.Action))
		return
	}

	switch cmd.Action {
	case schemas.ActionHover:
		b.overlays.ShowHover(el, sel)
		b.emit(schemas.EvtElementHovered, schemas.SelectorEvent{Selector: sel})
	case schemas.ActionClick:
		b.overlays.HideHover()
		b.overlays.ShowSelection(el)
		b.emit(schemas.EvtElementClicked, schemas.SelectorEvent{Selector: sel})
	}
}

func (b *Bridge) handleHighlight(msg decoded) {
	var cmd schemas.SelectorCommand
	if err := decodePayload(msg, &cmd); err != nil {
		b.emitError(err.Error(), msg.Type, "", "")
		return
	}
	if strings.TrimSpace(cmd.Selector) == "" {
		b.emitError("highlight requires a selector", msg.Type, "", "")
		return
	}
	if err := b.overlays.HighlightSelector(cmd.Selector); err != nil {
		b.emitError(err.Error(), msg.Type, cmd.Selector, "")
	}
}

func (b *Bridge) handleElementInfo(msg decoded) {
	var cmd schemas.SelectorCommand
	if err := decodePayload(msg, &cmd); err != nil {
		b.emitError(err.Error(), msg.Type, "", "")
		return
	}
	nodes, err := b.doc.Query(cmd.Selector)
	if err != nil {
		b.emitError(fmt.Sprintf("invalid selector: %v", err), msg.Type, cmd.Selector, "")
		return
	}
	if len(nodes) == 0 {
		b.emitError("no element matches selector", msg.Type, cmd.Selector, "")
		return
	}
	b.emit(schemas.EvtElementInfo, elementInfo(cmd.Selector, nodes[0]))
}

func (b *Bridge) handleConfigure(msg decoded) {
	var cmd schemas.ConfigureCommand
	if err := decodePayload(msg, &cmd); err != nil {
		b.emitError(err.Error(), msg.Type, "", "")
		return
	}
	b.Configure(cmd)
}

// Configure applies a runtime configuration change. Embedders can call it
// directly; the VISUAL_EDIT_CONFIGURE command routes here as well.
func (b *Bridge) Configure(cmd schemas.ConfigureCommand) {
	parentChanged, originsChanged, strictChanged := b.settings.Apply(cmd)
	snap := b.settings.Snapshot()
	if parentChanged {
		b.validator.SetParentOrigin(snap.ParentOrigin)
	}
	if originsChanged {
		b.validator.SetAllowedOrigins(snap.AllowedOrigins)
	}
	if strictChanged {
		b.validator.SetStrict(snap.StrictOriginCheck)
	}
	b.log.Info("runtime configuration applied",
		zap.Bool("parent_changed", parentChanged),
		zap.Bool("origins_changed", originsChanged),
		zap.Bool("strict_changed", strictChanged))
}

// SetAllowedOrigins replaces the inbound allow-list and the strict flag.
func (b *Bridge) SetAllowedOrigins(origins []string, strict bool) {
	b.Configure(schemas.ConfigureCommand{
		AllowedOrigins:    origins,
		StrictOriginCheck: &strict,
	})
}

// ConfigSnapshot returns a copy of the effective runtime settings.
func (b *Bridge) ConfigSnapshot() Settings {
	return b.settings.Snapshot()
}

// elementInfo snapshots the reportable state of an element.
func elementInfo(sel string, n *dom.Node) schemas.ElementInfoEvent {
	r := n.Bounds()
	return schemas.ElementInfoEvent{
		Selector:        sel,
		TagName:         n.Tag(),
		ClassName:       n.ClassName(),
		SemanticClasses: selector.SemanticClasses(n.Classes()),
		TextContent:     truncate(n.Text(), 100),
		ComputedStyles: schemas.ComputedStyles{
			Color:           n.StyleOr("color", "rgb(0, 0, 0)"),
			BackgroundColor: n.StyleOr("background-color", "rgba(0, 0, 0, 0)"),
			FontSize:        n.StyleOr("font-size", "16px"),
			Padding:         n.StyleOr("padding", "0px"),
			Margin:          n.StyleOr("margin", "0px"),
			Width:           n.StyleOr("width", px(r.Width)),
			Height:          n.StyleOr("height", px(r.Height)),
		},
		BoundingRect: schemas.BoundingRect{
			Top:    r.Top,
			Left:   r.Left,
			Width:  r.Width,
			Height: r.Height,
		},
	}
}

func (b *Bridge) emit(t schemas.MessageType, payload any) {
	blob, err := encodeEvent(t, payload)
	if err != nil {
		b.log.Error("event encode failed", zap.String("type", string(t)), zap.Error(err))
		return
	}
	target := b.validator.Target(OriginOf(b.doc.Referrer()))
	if err := b.transport.Send(Outbound{Payload: blob, TargetOrigin: target}); err != nil {
		b.log.Warn("event send failed", zap.String("type", string(t)), zap.Error(err))
	}
}

func (b *Bridge) emitError(text string, cmd schemas.MessageType, sel, action string) {
	b.log.Warn("command failed",
		zap.String("command", string(cmd)), zap.String("error", text))
	b.emit(schemas.EvtError, schemas.ErrorEvent{
		Error:    text,
		Command:  cmd,
		Selector: sel,
		Action:   action,
	})
}

// OriginOf reduces a URL to its origin (scheme://host[:port]).
func OriginOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// truncate clips s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
