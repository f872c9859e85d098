// Package wsprotocol implements the JSON envelope framing used over an
// already-established WebSocket stream (spec.md §4.16): handshake, event,
// and command envelopes, plus the inbound-to-GameEvent normalization that
// never crashes on malformed input.
package wsprotocol

import "encoding/json"

// ClientType identifies a connecting peer's declared role (spec.md §3
// "WS client entry").
type ClientType string

const (
	ClientUserscript ClientType = "userscript"
	ClientUI         ClientType = "ui"
	ClientFirmware   ClientType = "firmware"
	ClientUnknown    ClientType = "unknown"
)

// ParseClientType maps a wire string to a ClientType, defaulting to
// ClientUnknown for anything unrecognized rather than erroring.
func ParseClientType(s string) ClientType {
	switch ClientType(s) {
	case ClientUserscript, ClientUI, ClientFirmware:
		return ClientType(s)
	default:
		return ClientUnknown
	}
}

// envelope is the outermost wire shape shared by every message type.
type envelope struct {
	Type       string          `json:"type"`
	ClientType string          `json:"clientType,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type eventPayload struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type cmdPayload struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// dataFields is the nested shape of the "data" object carried on an event
// payload (spec.md §4.16 "Key inbound events").
type dataFields struct {
	NukeUnitID *uint32 `json:"nukeUnitID,omitempty"`
	UnitID     *uint32 `json:"unitID,omitempty"`
	NukeType   string  `json:"type,omitempty"`
	TargetTile string  `json:"targetTile,omitempty"`
	Victory    *bool   `json:"victory,omitempty"`
	SoundIndex *int    `json:"sound_index,omitempty"`
	Troops     *struct {
		Current int64 `json:"current"`
		Max     int64 `json:"max"`
	} `json:"troops,omitempty"`
}
