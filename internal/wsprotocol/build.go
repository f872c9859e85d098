package wsprotocol

import (
	"encoding/json"
	"fmt"

	"tacsuitcase/internal/event"
)

// BuildHandshake serializes a handshake envelope for clientType.
func BuildHandshake(clientType ClientType) []byte {
	b, _ := json.Marshal(envelope{Type: "handshake", ClientType: string(clientType)})
	return b
}

// BuildEvent serializes ge as a byte-compatible event envelope (spec.md
// §4.16: "build_event(game_event) -> json ... byte-compatible with the
// specified envelopes").
func BuildEvent(ge event.GameEvent) ([]byte, error) {
	data := buildDataFields(ge.Data)
	var dataRaw json.RawMessage
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("wsprotocol: marshal event data: %w", err)
		}
		dataRaw = raw
	}

	payload := eventPayload{
		Type:      ge.Kind.String(),
		Timestamp: ge.TimestampMs,
		Message:   ge.Message,
		Data:      dataRaw,
	}
	payloadRaw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wsprotocol: marshal event payload: %w", err)
	}

	return json.Marshal(envelope{Type: "event", Payload: payloadRaw})
}

func buildDataFields(d event.Data) *dataFields {
	df := &dataFields{}
	any := false

	if d.NukeUnitID != 0 {
		v := d.NukeUnitID
		df.NukeUnitID = &v
		any = true
	}
	if d.UnitID != 0 {
		v := d.UnitID
		df.UnitID = &v
		any = true
	}
	if d.NukeType != "" {
		df.NukeType = d.NukeType
		any = true
	}
	if d.TargetTile != "" {
		df.TargetTile = d.TargetTile
		any = true
	}
	if d.HasVictory {
		v := d.Victory
		df.Victory = &v
		any = true
	}
	if d.SoundIndex != 0 {
		v := d.SoundIndex
		df.SoundIndex = &v
		any = true
	}
	if d.HasTroops {
		df.Troops = &struct {
			Current int64 `json:"current"`
			Max     int64 `json:"max"`
		}{Current: d.TroopsCurr, Max: d.TroopsMax}
		any = true
	}

	if !any {
		return nil
	}
	return df
}

// BuildSetTroopsPercent serializes the "set-troops-percent" outbound
// command (spec.md §4.16).
func BuildSetTroopsPercent(percent int) ([]byte, error) {
	params, err := json.Marshal(struct {
		Percent int `json:"percent"`
	}{Percent: percent})
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(cmdPayload{Action: "set-troops-percent", Params: params})
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: "cmd", Payload: payload})
}

// BuildPing serializes the outbound "ping" command.
func BuildPing() ([]byte, error) {
	payload, err := json.Marshal(cmdPayload{Action: "ping"})
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: "cmd", Payload: payload})
}
