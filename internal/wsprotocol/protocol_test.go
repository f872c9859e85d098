package wsprotocol

import (
	"testing"

	"tacsuitcase/internal/event"
)

func TestParseHandshake(t *testing.T) {
	msg := Parse([]byte(`{"type":"handshake","clientType":"userscript"}`))
	if msg.Kind != MsgHandshake {
		t.Fatalf("expected MsgHandshake, got %v", msg.Kind)
	}
	if msg.ClientType != ClientUserscript {
		t.Fatalf("expected userscript, got %v", msg.ClientType)
	}
}

func TestParseUnknownClientTypeBecomesUnknown(t *testing.T) {
	msg := Parse([]byte(`{"type":"handshake","clientType":"spectator"}`))
	if msg.ClientType != ClientUnknown {
		t.Fatalf("expected ClientUnknown, got %v", msg.ClientType)
	}
}

func TestParseTroopUpdateEvent(t *testing.T) {
	raw := `{"type":"event","payload":{"type":"TROOP_UPDATE","timestamp":123,"message":"","data":{"troops":{"current":500,"max":1000}}}}`
	msg := Parse([]byte(raw))
	if msg.Kind != MsgEvent {
		t.Fatalf("expected MsgEvent, got %v", msg.Kind)
	}
	if msg.Event.Kind != event.TroopUpdate {
		t.Fatalf("expected TROOP_UPDATE, got %v", msg.Event.Kind)
	}
	if !msg.Event.Data.HasTroops || msg.Event.Data.TroopsCurr != 500 || msg.Event.Data.TroopsMax != 1000 {
		t.Fatalf("unexpected troop data: %+v", msg.Event.Data)
	}
}

func TestParseNukeLaunchedEvent(t *testing.T) {
	raw := `{"type":"event","payload":{"type":"NUKE_LAUNCHED","timestamp":1,"message":"","data":{"nukeUnitID":77,"type":"Atom","targetTile":"B4"}}}`
	msg := Parse([]byte(raw))
	if msg.Event.Kind != event.NukeLaunched {
		t.Fatalf("expected NUKE_LAUNCHED, got %v", msg.Event.Kind)
	}
	if msg.Event.Data.NukeUnitID != 77 || msg.Event.Data.NukeType != "Atom" || msg.Event.Data.TargetTile != "B4" {
		t.Fatalf("unexpected data: %+v", msg.Event.Data)
	}
}

func TestParseGameEndCarriesVictory(t *testing.T) {
	raw := `{"type":"event","payload":{"type":"GAME_END","timestamp":1,"message":"","data":{"victory":true}}}`
	msg := Parse([]byte(raw))
	if !msg.Event.Data.HasVictory || !msg.Event.Data.Victory {
		t.Fatalf("expected victory=true, got %+v", msg.Event.Data)
	}
}

func TestParseUnknownEventKindBecomesInfo(t *testing.T) {
	raw := `{"type":"event","payload":{"type":"SOMETHING_NEW","timestamp":1,"message":"hi"}}`
	msg := Parse([]byte(raw))
	if msg.Event.Kind != event.INFO {
		t.Fatalf("expected INFO for unrecognized event kind, got %v", msg.Event.Kind)
	}
}

func TestParseMalformedJSONNeverCrashesAndBecomesInfo(t *testing.T) {
	msg := Parse([]byte(`not even json {`))
	if msg.Kind != MsgUnknown || msg.Event.Kind != event.INFO {
		t.Fatalf("expected unknown/INFO fallback, got %+v", msg)
	}
}

func TestParseEmptyPayloadEventBecomesInfo(t *testing.T) {
	// spec.md §8 S6: {"type":"event","payload":{}}
	msg := Parse([]byte(`{"type":"event","payload":{}}`))
	if msg.Kind != MsgEvent {
		t.Fatalf("expected MsgEvent (payload parses, just has no fields), got %v", msg.Kind)
	}
	if msg.Event.Kind != event.INFO {
		t.Fatalf("expected an empty type string to parse as INFO, got %v", msg.Event.Kind)
	}
}

func TestParseCmd(t *testing.T) {
	raw := `{"type":"cmd","payload":{"action":"ping","params":{}}}`
	msg := Parse([]byte(raw))
	if msg.Kind != MsgCmd || msg.CmdAction != "ping" {
		t.Fatalf("unexpected cmd parse: %+v", msg)
	}
}

func TestBuildEventRoundTripsTroopUpdate(t *testing.T) {
	ge := event.GameEvent{
		Kind:        event.TroopUpdate,
		TimestampMs: 999,
		Message:     "troops",
		Data:        event.Data{HasTroops: true, TroopsCurr: 10, TroopsMax: 20},
	}
	raw, err := BuildEvent(ge)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := Parse(raw)
	if msg.Event.Kind != event.TroopUpdate || !msg.Event.Data.HasTroops {
		t.Fatalf("round trip failed: %+v", msg.Event)
	}
	if msg.Event.Data.TroopsCurr != 10 || msg.Event.Data.TroopsMax != 20 {
		t.Fatalf("unexpected troop values: %+v", msg.Event.Data)
	}
}

func TestBuildHandshake(t *testing.T) {
	raw := BuildHandshake(ClientUI)
	msg := Parse(raw)
	if msg.Kind != MsgHandshake || msg.ClientType != ClientUI {
		t.Fatalf("unexpected: %+v", msg)
	}
}

func TestBuildSetTroopsPercent(t *testing.T) {
	raw, err := BuildSetTroopsPercent(51)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := Parse(raw)
	if msg.Kind != MsgCmd || msg.CmdAction != "set-troops-percent" {
		t.Fatalf("unexpected: %+v", msg)
	}
}
