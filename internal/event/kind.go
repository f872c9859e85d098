// Package event defines the game/internal event model and the dispatcher
// that routes events to hardware modules.
package event

// Kind enumerates every event that can flow through the dispatcher, both
// the game-facing kinds carried over the websocket and the internal
// lifecycle kinds generated locally (network, websocket, button presses).
type Kind int

const (
	// ANY is the wildcard kind: a handler registered under ANY receives
	// every event, after all type-specific handlers for that event have run.
	ANY Kind = iota
	INVALID

	// Game event kinds (spec.md §3 "Game event").
	INFO
	ERROR
	GameSpawning
	GameStart
	GameEnd
	SoundPlay
	HardwareDiagnostic
	NukeLaunched
	NukeExploded
	NukeIntercepted
	AlertAtom
	AlertHydro
	AlertMirv
	AlertLand
	AlertNaval
	TroopUpdate
	HardwareTest

	// Internal-only kinds (spec.md §3 "Internal event").
	NetworkConnected
	NetworkDisconnected
	WSConnected
	WSDisconnected
	WSError
	ButtonPressed
)

var kindNames = map[Kind]string{
	ANY:                 "ANY",
	INVALID:             "INVALID",
	INFO:                "INFO",
	ERROR:               "ERROR",
	GameSpawning:        "GAME_SPAWNING",
	GameStart:           "GAME_START",
	GameEnd:             "GAME_END",
	SoundPlay:           "SOUND_PLAY",
	HardwareDiagnostic:  "HARDWARE_DIAGNOSTIC",
	NukeLaunched:        "NUKE_LAUNCHED",
	NukeExploded:        "NUKE_EXPLODED",
	NukeIntercepted:     "NUKE_INTERCEPTED",
	AlertAtom:           "ALERT_ATOM",
	AlertHydro:          "ALERT_HYDRO",
	AlertMirv:           "ALERT_MIRV",
	AlertLand:           "ALERT_LAND",
	AlertNaval:          "ALERT_NAVAL",
	TroopUpdate:         "TROOP_UPDATE",
	HardwareTest:        "HARDWARE_TEST",
	NetworkConnected:    "NETWORK_CONNECTED",
	NetworkDisconnected: "NETWORK_DISCONNECTED",
	WSConnected:         "WS_CONNECTED",
	WSDisconnected:      "WS_DISCONNECTED",
	WSError:             "WS_ERROR",
	ButtonPressed:       "BUTTON_PRESSED",
}

// nameToKind is the inverse of kindNames, built once at init for
// ParseKind — the only place wire strings are translated into Kind values
// (spec.md §9 "string-based event-kind routing").
var nameToKind map[string]Kind

func init() {
	nameToKind = make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		nameToKind[n] = k
	}
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseKind maps a wire "type" string to a Kind. Unknown strings map to
// INFO so malformed or unrecognized input is never fatal (spec.md P4).
func ParseKind(s string) Kind {
	if k, ok := nameToKind[s]; ok {
		return k
	}
	return INFO
}

// Source identifies who originated an internal event.
type Source int

const (
	SourceUnknown Source = iota
	SourceButton
	SourceWebsocket
	SourceTimer
	SourceSystem
)

func (s Source) String() string {
	switch s {
	case SourceButton:
		return "BUTTON"
	case SourceWebsocket:
		return "WEBSOCKET"
	case SourceTimer:
		return "TIMER"
	case SourceSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}
