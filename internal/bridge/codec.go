// internal/bridge/codec.go
package bridge

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/editbridge/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// decoded is one parsed inbound message: the envelope fields plus the raw
// bytes so the dispatcher can re-decode into the type-specific payload.
type decoded struct {
	schemas.Envelope
	raw []byte
}

// decodeMessage parses the envelope off an inbound frame. Frames that are not
// JSON objects or carry no type are rejected; the dispatcher drops them
// without a reply.
func decodeMessage(payload []byte) (decoded, error) {
	var env schemas.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return decoded{}, fmt.Errorf("malformed message: %w", err)
	}
	if env.Type == "" {
		return decoded{}, fmt.Errorf("message missing type")
	}
	return decoded{Envelope: env, raw: payload}, nil
}

// decodePayload re-parses the frame into a type-specific command struct.
func decodePayload(d decoded, out any) error {
	if err := json.Unmarshal(d.raw, out); err != nil {
		return fmt.Errorf("malformed %s payload: %w", d.Type, err)
	}
	return nil
}

// encodeEvent flattens an event payload alongside the envelope fields, the
// way controllers expect: source, type and timestamp at the top level next to
// the payload's own fields.
func encodeEvent(t schemas.MessageType, payload any) ([]byte, error) {
	fields := map[string]any{}
	if payload != nil {
		blob, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", t, err)
		}
		if err := json.Unmarshal(blob, &fields); err != nil {
			return nil, fmt.Errorf("encode %s: %w", t, err)
		}
	}
	fields["source"] = schemas.Source
	fields["type"] = t
	fields["timestamp"] = time.Now().UnixMilli()
	return json.Marshal(fields)
}
