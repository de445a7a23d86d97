package schemas

// -- Wire Envelope --

// Source is the fixed tag stamped on every message the agent emits. Controllers
// use it to tell agent traffic apart from other frames sharing the channel.
const Source = "visual-edit-agent"

// MessageType discriminates commands (controller -> agent) and events
// (agent -> controller) on the wire.
type MessageType string

// Command types accepted from the controller.
const (
	CmdActivate       MessageType = "VISUAL_EDIT_ACTIVATE"
	CmdDeactivate     MessageType = "VISUAL_EDIT_DEACTIVATE"
	CmdDetectElement  MessageType = "VISUAL_EDIT_DETECT_ELEMENT"
	CmdHighlight      MessageType = "VISUAL_EDIT_HIGHLIGHT_ELEMENT"
	CmdClearHighlight MessageType = "VISUAL_EDIT_CLEAR_HIGHLIGHT"
	CmdElementInfo    MessageType = "VISUAL_EDIT_GET_ELEMENT_INFO"
	CmdConfigure      MessageType = "VISUAL_EDIT_CONFIGURE"
)

// Event types emitted to the controller.
const (
	EvtReady          MessageType = "VISUAL_EDIT_READY"
	EvtElementHovered MessageType = "ELEMENT_HOVERED"
	EvtElementClicked MessageType = "ELEMENT_CLICKED"
	EvtElementInfo    MessageType = "ELEMENT_INFO"
	EvtNoElement      MessageType = "NO_ELEMENT_DETECTED"
	EvtError          MessageType = "VISUAL_EDIT_ERROR"
)

// Envelope carries the fields common to every wire message. Type-specific
// payload fields are flattened alongside these at the top level, so command
// structs embed Envelope rather than nesting a payload object.
type Envelope struct {
	Source    string      `json:"source"`
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

// DetectAction discriminates the two detection flows.
type DetectAction string

const (
	ActionHover DetectAction = "hover"
	ActionClick DetectAction = "click"
)

// Valid reports whether the action is one the agent understands.
func (a DetectAction) Valid() bool {
	return a == ActionHover || a == ActionClick
}

// -- Command Payloads --

// DetectCommand asks the agent to resolve the element at a controller-space
// coordinate and report its selector.
type DetectCommand struct {
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Action DetectAction `json:"action"`
}

// SelectorCommand carries a controller-supplied selector; used by both the
// highlight and element-info commands.
type SelectorCommand struct {
	Selector string `json:"selector"`
}

// ConfigureCommand merges recognized fields into the agent's runtime
// configuration. Pointer fields distinguish "absent" from zero values.
type ConfigureCommand struct {
	ParentOrigin      *string  `json:"parentOrigin,omitempty"`
	AllowedOrigins    []string `json:"allowedOrigins,omitempty"`
	StrictOriginCheck *bool    `json:"strictOriginCheck,omitempty"`
	AutoDetectParent  *bool    `json:"autoDetectParent,omitempty"`
	EnableDebug       *bool    `json:"enableDebug,omitempty"`
}

// -- Event Payloads --

// ReadyEvent is emitted once at startup (version + features) and again with
// Active set on every activation.
type ReadyEvent struct {
	Version  string   `json:"version,omitempty"`
	Features []string `json:"features,omitempty"`
	Active   bool     `json:"active,omitempty"`
}

// SelectorEvent reports the selector computed for a detected or highlighted
// element.
type SelectorEvent struct {
	Selector string `json:"selector"`
}

// NoElementEvent reports that a detect command resolved to nothing.
type NoElementEvent struct {
	Action DetectAction `json:"action"`
}

// BoundingRect is the viewport-relative geometry of an element.
type BoundingRect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ComputedStyles is the fixed subset of style properties reported by the
// element-info lookup.
type ComputedStyles struct {
	Color           string `json:"color"`
	BackgroundColor string `json:"backgroundColor"`
	FontSize        string `json:"fontSize"`
	Padding         string `json:"padding"`
	Margin          string `json:"margin"`
	Width           string `json:"width"`
	Height          string `json:"height"`
}

// ElementInfoEvent describes a single element resolved from a
// controller-supplied selector.
type ElementInfoEvent struct {
	Selector        string         `json:"selector"`
	TagName         string         `json:"tagName"`
	ClassName       string         `json:"className"`
	SemanticClasses []string       `json:"semanticClasses"`
	TextContent     string         `json:"textContent"`
	ComputedStyles  ComputedStyles `json:"computedStyles"`
	BoundingRect    BoundingRect   `json:"boundingRect"`
}

// ErrorEvent reports a fault to the controller. Context fields identify the
// command that failed; none of these faults stop the message loop.
type ErrorEvent struct {
	Error    string      `json:"error"`
	Command  MessageType `json:"command,omitempty"`
	Selector string      `json:"selector,omitempty"`
	Action   string      `json:"action,omitempty"`
}
