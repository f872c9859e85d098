// Package can implements the audio module's CAN wire protocol (spec.md
// §4.10): builds and parses PLAY_SOUND / STOP_SOUND / SOUND_STATUS /
// SOUND_ACK frames. The byte layout is normative (spec.md §8 P10); this
// codec is the authority, not any narrative description of it.
package can

import "fmt"

// Standard 11-bit CAN IDs used by the audio module.
const (
	IDPlaySound   uint32 = 0x420
	IDStopSound   uint32 = 0x421
	IDSoundStatus uint32 = 0x422
	IDSoundAck    uint32 = 0x423
)

// PlaySoundFlag bits (spec.md §4.10).
type PlaySoundFlag byte

const (
	FlagInterrupt    PlaySoundFlag = 1 << 0
	FlagHighPriority PlaySoundFlag = 1 << 1
	FlagLoop         PlaySoundFlag = 1 << 2
)

// VolumePotentiometer means "use the audio module's own potentiometer"
// instead of an explicit override (spec.md §4.10).
const VolumePotentiometer byte = 0xFF

// PlaySound is the payload of a 0x420 PLAY_SOUND frame.
type PlaySound struct {
	SoundIndex uint16
	Flags      PlaySoundFlag
	Volume     byte
	ReqID      uint16
}

// Encode builds the 8-byte payload:
// [sound_index_lo, sound_index_hi, flags, volume, req_id_lo, req_id_hi, 0, 0].
func (p PlaySound) Encode() [8]byte {
	var b [8]byte
	b[0] = byte(p.SoundIndex)
	b[1] = byte(p.SoundIndex >> 8)
	b[2] = byte(p.Flags)
	b[3] = p.Volume
	b[4] = byte(p.ReqID)
	b[5] = byte(p.ReqID >> 8)
	return b
}

// DecodePlaySound parses a PLAY_SOUND payload.
func DecodePlaySound(b []byte) (PlaySound, error) {
	if len(b) < 6 {
		return PlaySound{}, fmt.Errorf("can: PLAY_SOUND payload too short: %d bytes", len(b))
	}
	return PlaySound{
		SoundIndex: uint16(b[0]) | uint16(b[1])<<8,
		Flags:      PlaySoundFlag(b[2]),
		Volume:     b[3],
		ReqID:      uint16(b[4]) | uint16(b[5])<<8,
	}, nil
}

// StopSoundFlag bits (spec.md §4.10).
type StopSoundFlag byte

const FlagStopAll StopSoundFlag = 1 << 0

// StopSound is the payload of a 0x421 STOP_SOUND frame.
type StopSound struct {
	QueueID byte
	Flags   StopSoundFlag
	ReqID   uint16
}

// Encode builds [queue_id, flags, req_id_lo, req_id_hi, 0, 0, 0, 0].
func (s StopSound) Encode() [8]byte {
	var b [8]byte
	b[0] = s.QueueID
	b[1] = byte(s.Flags)
	b[2] = byte(s.ReqID)
	b[3] = byte(s.ReqID >> 8)
	return b
}

// DecodeStopSound parses a STOP_SOUND payload.
func DecodeStopSound(b []byte) (StopSound, error) {
	if len(b) < 4 {
		return StopSound{}, fmt.Errorf("can: STOP_SOUND payload too short: %d bytes", len(b))
	}
	return StopSound{
		QueueID: b[0],
		Flags:   StopSoundFlag(b[1]),
		ReqID:   uint16(b[2]) | uint16(b[3])<<8,
	}, nil
}

// SoundStatus is the payload of a 0x422 SOUND_STATUS frame.
type SoundStatus struct {
	StateBits    byte
	CurrentSound uint16
	ErrorCode    byte
	Volume       byte
	UptimeSec    uint32 // carried in 3 bytes, so truncated to 24 bits
}

// Encode builds [state, current_sound_lo, current_sound_hi, error,
// volume, uptime_lo, uptime_mid, uptime_hi].
func (s SoundStatus) Encode() [8]byte {
	var b [8]byte
	b[0] = s.StateBits
	b[1] = byte(s.CurrentSound)
	b[2] = byte(s.CurrentSound >> 8)
	b[3] = s.ErrorCode
	b[4] = s.Volume
	b[5] = byte(s.UptimeSec)
	b[6] = byte(s.UptimeSec >> 8)
	b[7] = byte(s.UptimeSec >> 16)
	return b
}

// DecodeSoundStatus parses a SOUND_STATUS payload.
func DecodeSoundStatus(b []byte) (SoundStatus, error) {
	if len(b) < 8 {
		return SoundStatus{}, fmt.Errorf("can: SOUND_STATUS payload too short: %d bytes", len(b))
	}
	return SoundStatus{
		StateBits:    b[0],
		CurrentSound: uint16(b[1]) | uint16(b[2])<<8,
		ErrorCode:    b[3],
		Volume:       b[4],
		UptimeSec:    uint32(b[5]) | uint32(b[6])<<8 | uint32(b[7])<<16,
	}, nil
}

// AckErrorCode enumerates SOUND_ACK error codes the sound module must
// recognize (spec.md §4.10 "mixer-full (0x01)").
type AckErrorCode byte

const (
	AckOK        AckErrorCode = 0x00
	AckMixerFull AckErrorCode = 0x01
)

// SoundAck is the payload of a 0x423 SOUND_ACK frame.
type SoundAck struct {
	OK         bool
	SoundIndex uint16
	QueueID    byte
	ErrorCode  AckErrorCode
	ReqID      uint16
}

// Encode builds [ok, sound_index_lo, sound_index_hi, queue_id, error_code,
// req_id_lo, req_id_hi, 0].
func (a SoundAck) Encode() [8]byte {
	var b [8]byte
	if a.OK {
		b[0] = 1
	}
	b[1] = byte(a.SoundIndex)
	b[2] = byte(a.SoundIndex >> 8)
	b[3] = a.QueueID
	b[4] = byte(a.ErrorCode)
	b[5] = byte(a.ReqID)
	b[6] = byte(a.ReqID >> 8)
	return b
}

// DecodeSoundAck parses a SOUND_ACK payload.
func DecodeSoundAck(b []byte) (SoundAck, error) {
	if len(b) < 7 {
		return SoundAck{}, fmt.Errorf("can: SOUND_ACK payload too short: %d bytes", len(b))
	}
	return SoundAck{
		OK:         b[0] != 0,
		SoundIndex: uint16(b[1]) | uint16(b[2])<<8,
		QueueID:    b[3],
		ErrorCode:  AckErrorCode(b[4]),
		ReqID:      uint16(b[5]) | uint16(b[6])<<8,
	}, nil
}
