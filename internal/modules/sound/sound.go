// Package sound implements the Sound Module (spec.md §4.10): translates
// SOUND_PLAY and a set of internal cues into CAN PLAY_SOUND frames, tracks
// the queue-id the audio module assigns to each accepted play so looping
// cues (e.g. an alert siren) can later be stopped, and retries once on a
// mixer-full ACK. Grounded on the hwmodule.Module vtable and the teacher's
// handler-dispatch style (a switch over event kinds, same shape as
// gamephase.Machine.Update).
package sound

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tacsuitcase/internal/can"
	"tacsuitcase/internal/event"
	"tacsuitcase/internal/hwmodule"
)

// AckTimeout and RetryDelay are the CAN ACK wait policy (spec.md §5, §4.10).
const (
	AckTimeout = 200 * time.Millisecond
	RetryDelay = 500 * time.Millisecond
)

// Sound indices for internal cues. The full game sound bank is defined by
// the userscript; these are the fixed indices the controller itself knows
// how to trigger without a SOUND_PLAY payload.
const (
	soundGameStart     = 1
	soundAlertAtom     = 10
	soundAlertHydro    = 11
	soundAlertMirv     = 12
	soundAlertLand     = 13
	soundAlertNaval    = 14
	soundNukeLaunched  = 20
	soundNukeExploded  = 21
	soundNukeIntercept = 22
	soundVictory       = 30
	soundDefeat        = 31
)

// pendingReq tracks an outstanding PLAY_SOUND awaiting an ACK.
type pendingReq struct {
	frame       can.PlaySound
	retriesLeft int
	timer       *time.Timer
}

// Module implements hwmodule.Module, translating events into CAN frames.
type Module struct {
	mu sync.Mutex

	transport can.Transport

	status      hwmodule.Status
	nextReqID   uint16
	pending     map[uint16]*pendingReq
	loopQueueID map[int]uint8 // sound_index -> queue id, for cancelling loops

	sleep func(time.Duration)
	// afterFunc schedules the ACK timeout; overridden in tests to drive the
	// timeout deterministically instead of waiting on a wall-clock timer.
	afterFunc func(time.Duration, func()) *time.Timer
}

// New returns a Module that will send over transport once Init is called.
func New(transport can.Transport) *Module {
	return &Module{
		transport:   transport,
		pending:     make(map[uint16]*pendingReq),
		loopQueueID: make(map[int]uint8),
		sleep:       time.Sleep,
		afterFunc:   time.AfterFunc,
	}
}

func (m *Module) Name() string { return "sound" }

func (m *Module) Init() error {
	m.mu.Lock()
	m.status.Initialized = true
	m.status.Operational = true
	m.mu.Unlock()
	return nil
}

func (m *Module) Update() error { return nil }

func (m *Module) GetStatus() hwmodule.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Module) Shutdown() error { return m.transport.Close() }

// HandleEvent translates a recognized event kind into a PLAY_SOUND frame.
func (m *Module) HandleEvent(e event.Event) bool {
	switch e.GameEvent.Kind {
	case event.SoundPlay:
		idx := e.GameEvent.Data.SoundIndex
		m.play(idx, can.PlaySoundFlag(0), can.VolumePotentiometer)
		return true
	case event.GameStart:
		m.play(soundGameStart, 0, can.VolumePotentiometer)
		return true
	case event.AlertAtom:
		m.play(soundAlertAtom, can.FlagLoop, can.VolumePotentiometer)
		return true
	case event.AlertHydro:
		m.play(soundAlertHydro, can.FlagLoop, can.VolumePotentiometer)
		return true
	case event.AlertMirv:
		m.play(soundAlertMirv, can.FlagLoop, can.VolumePotentiometer)
		return true
	case event.AlertLand:
		m.play(soundAlertLand, can.FlagLoop, can.VolumePotentiometer)
		return true
	case event.AlertNaval:
		m.play(soundAlertNaval, can.FlagLoop, can.VolumePotentiometer)
		return true
	case event.NukeLaunched:
		m.play(soundNukeLaunched, 0, can.VolumePotentiometer)
		return true
	case event.NukeExploded:
		m.stopLoopsFor(soundAlertAtom, soundAlertHydro, soundAlertMirv, soundAlertLand, soundAlertNaval)
		m.play(soundNukeExploded, 0, can.VolumePotentiometer)
		return true
	case event.NukeIntercepted:
		m.stopLoopsFor(soundAlertAtom, soundAlertHydro, soundAlertMirv, soundAlertLand, soundAlertNaval)
		m.play(soundNukeIntercept, 0, can.VolumePotentiometer)
		return true
	case event.GameEnd:
		if e.GameEvent.Data.HasVictory && e.GameEvent.Data.Victory {
			m.play(soundVictory, 0, can.VolumePotentiometer)
		} else {
			m.play(soundDefeat, 0, can.VolumePotentiometer)
		}
		return true
	}
	return false
}

func (m *Module) nextID() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextReqID++
	return m.nextReqID
}

// play builds and sends a PLAY_SOUND frame, bounded by SendTimeout
// (spec.md §4.10 "Non-blocking send with 100 ms timeout").
func (m *Module) play(soundIndex int, flags can.PlaySoundFlag, volume uint8) {
	reqID := m.nextID()
	frame := can.PlaySound{SoundIndex: uint16(soundIndex), Flags: flags, Volume: volume, ReqID: reqID}
	req := &pendingReq{frame: frame, retriesLeft: 1}

	m.mu.Lock()
	m.pending[reqID] = req
	m.mu.Unlock()
	m.armTimeout(req)

	m.send(frame)
}

// armTimeout schedules req's ACK timeout (spec.md §4.10/§5 "ACK timeout is
// 200 ms"). If the audio module never answers, the entry is dropped from
// m.pending and the module's error count is bumped; an ACK that arrives in
// time stops the timer in HandleAck before it ever fires.
func (m *Module) armTimeout(req *pendingReq) {
	req.timer = m.afterFunc(AckTimeout, func() {
		m.mu.Lock()
		_, stillPending := m.pending[req.frame.ReqID]
		if stillPending {
			delete(m.pending, req.frame.ReqID)
		}
		m.mu.Unlock()
		if stillPending {
			m.bumpError(fmt.Errorf("sound: ACK timeout for sound_index=%d req_id=%d", req.frame.SoundIndex, req.frame.ReqID))
		}
	})
}

func (m *Module) send(frame can.PlaySound) {
	ctx, cancel := context.WithTimeout(context.Background(), can.SendTimeout)
	defer cancel()

	raw := frame.Encode()
	if err := m.transport.Send(ctx, can.Frame{ID: can.IDPlaySound, Data: raw}); err != nil {
		log.Printf("sound: send PLAY_SOUND failed: %v", err)
		m.bumpError(err)
		return
	}
}

// stopLoopsFor sends STOP_SOUND for any tracked queue id belonging to the
// given sound indices, clearing them from the tracking table.
func (m *Module) stopLoopsFor(soundIndices ...int) {
	for _, idx := range soundIndices {
		m.mu.Lock()
		qid, ok := m.loopQueueID[idx]
		if ok {
			delete(m.loopQueueID, idx)
		}
		m.mu.Unlock()
		if !ok {
			continue
		}
		reqID := m.nextID()
		stop := can.StopSound{QueueID: qid, Flags: 0, ReqID: reqID}
		ctx, cancel := context.WithTimeout(context.Background(), can.SendTimeout)
		if err := m.transport.Send(ctx, can.Frame{ID: can.IDStopSound, Data: stop.Encode()}); err != nil {
			log.Printf("sound: send STOP_SOUND failed: %v", err)
		}
		cancel()
	}
}

// HandleAck processes an inbound SOUND_ACK frame: on success it records the
// assigned queue id (if the original request used LOOP) so it can later be
// stopped; on mixer-full it retries once after RetryDelay.
func (m *Module) HandleAck(ack can.SoundAck) {
	m.mu.Lock()
	req, ok := m.pending[ack.ReqID]
	if ok {
		delete(m.pending, ack.ReqID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if req.timer != nil {
		req.timer.Stop()
	}

	if ack.OK {
		if req.frame.Flags&can.FlagLoop != 0 {
			m.mu.Lock()
			m.loopQueueID[int(req.frame.SoundIndex)] = ack.QueueID
			m.mu.Unlock()
		}
		return
	}

	if ack.ErrorCode == can.AckMixerFull && req.retriesLeft > 0 {
		req.retriesLeft--
		go func() {
			m.sleep(RetryDelay)
			m.mu.Lock()
			m.pending[req.frame.ReqID] = req
			m.mu.Unlock()
			m.armTimeout(req)
			m.send(req.frame)
		}()
		return
	}

	m.bumpError(fmt.Errorf("sound: play rejected, error_code=0x%02x", ack.ErrorCode))
}

func (m *Module) bumpError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.ErrorCount++
	m.status.LastError = err.Error()
}
