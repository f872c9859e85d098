package wsprotocol

import (
	"encoding/json"

	"tacsuitcase/internal/event"
)

// MessageKind identifies which envelope shape was parsed.
type MessageKind int

const (
	MsgUnknown MessageKind = iota
	MsgHandshake
	MsgEvent
	MsgCmd
)

// Message is the parsed form of an inbound frame.
type Message struct {
	Kind       MessageKind
	ClientType ClientType   // set when Kind == MsgHandshake
	Event      event.GameEvent // set when Kind == MsgEvent
	CmdAction  string       // set when Kind == MsgCmd
	CmdParams  json.RawMessage
}

// Parse decodes a raw inbound frame. It never returns an error: malformed
// or unrecognized input becomes an INFO-kind GameEvent carrying the raw
// text as its message, per spec.md §4.16 ("never crash on malformed
// input"). raw longer than event.MaxDataBytes is truncated before being
// stored as a fallback message.
func Parse(raw []byte) Message {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Message{Kind: MsgUnknown, Event: infoFallback(raw)}
	}

	switch env.Type {
	case "handshake":
		return Message{Kind: MsgHandshake, ClientType: ParseClientType(env.ClientType)}
	case "event":
		return Message{Kind: MsgEvent, Event: parseEventPayload(env.Payload, raw)}
	case "cmd":
		var cmd cmdPayload
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return Message{Kind: MsgUnknown, Event: infoFallback(raw)}
		}
		return Message{Kind: MsgCmd, CmdAction: cmd.Action, CmdParams: cmd.Params}
	default:
		return Message{Kind: MsgUnknown, Event: infoFallback(raw)}
	}
}

func infoFallback(raw []byte) event.GameEvent {
	msg := string(raw)
	if len(msg) > event.MaxDataBytes {
		msg = msg[:event.MaxDataBytes]
	}
	return event.GameEvent{Kind: event.INFO, Message: msg}
}

func parseEventPayload(payload json.RawMessage, raw []byte) event.GameEvent {
	var ep eventPayload
	if err := json.Unmarshal(payload, &ep); err != nil {
		return infoFallback(raw)
	}

	kind := event.ParseKind(ep.Type)
	ge := event.GameEvent{
		Kind:        kind,
		TimestampMs: ep.Timestamp,
		Message:     ep.Message,
	}

	var df dataFields
	if len(ep.Data) > 0 {
		if err := json.Unmarshal(ep.Data, &df); err == nil {
			if df.NukeUnitID != nil {
				ge.Data.NukeUnitID = *df.NukeUnitID
			}
			if df.UnitID != nil {
				ge.Data.UnitID = *df.UnitID
			}
			ge.Data.NukeType = df.NukeType
			ge.Data.TargetTile = df.TargetTile
			if df.Victory != nil {
				ge.Data.HasVictory = true
				ge.Data.Victory = *df.Victory
			}
			if df.SoundIndex != nil {
				ge.Data.SoundIndex = *df.SoundIndex
			}
			if df.Troops != nil {
				ge.Data.HasTroops = true
				ge.Data.TroopsCurr = df.Troops.Current
				ge.Data.TroopsMax = df.Troops.Max
			}
		}
		rawData := string(ep.Data)
		if len(rawData) > event.MaxDataBytes {
			rawData = rawData[:event.MaxDataBytes]
		}
		ge.Data.Raw = rawData
	}

	return ge
}
