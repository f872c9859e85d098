package iotask

import "sync"

// ChannelConfig describes one ADC channel (spec.md §3 "ADC channel
// record").
type ChannelConfig struct {
	ID                     string
	HwChannel              int
	I2CAddr                uint8
	ChangeThresholdPercent uint8
	Name                   string
}

// ChannelValue is the latest reading for a channel, read atomically by
// callers via GetValue (spec.md §4.12.2: "modules poll via
// get_value(channel)").
type ChannelValue struct {
	Raw       int16
	Percent   uint8
	UpdatedMs int64
}

// channelReader is the subset of *adc.ADC this handler needs.
type channelReader interface {
	ReadChannel(ch int) (int16, error)
}

// ADCHandler scans configured channels on a cadence driven by the I/O
// scheduler and stores the latest value per channel. It never posts
// events; modules pull values on demand (spec.md §4.12.2).
type ADCHandler struct {
	reader   channelReader
	channels []ChannelConfig

	mu     sync.RWMutex
	values map[string]ChannelValue

	nowMs func() int64
}

// NewADCHandler returns a handler for the given channel set.
func NewADCHandler(reader channelReader, channels []ChannelConfig) *ADCHandler {
	return &ADCHandler{
		reader:   reader,
		channels: channels,
		values:   make(map[string]ChannelValue, len(channels)),
		nowMs:    defaultNowMs,
	}
}

// Scan performs a single-shot read for every configured channel and stores
// the result. A per-channel read error is skipped (the stale value is kept)
// rather than aborting the whole scan.
func (a *ADCHandler) Scan() {
	now := a.nowMs()
	for _, ch := range a.channels {
		raw, err := a.reader.ReadChannel(ch.HwChannel)
		if err != nil {
			continue
		}
		percent := scaleToPercent(raw)

		a.mu.Lock()
		a.values[ch.ID] = ChannelValue{Raw: raw, Percent: percent, UpdatedMs: now}
		a.mu.Unlock()
	}
}

// scaleToPercent implements spec.md §4.12.2:
// "percent = min(100, max(0, raw*100/4095))".
func scaleToPercent(raw int16) uint8 {
	v := int(raw) * 100 / 4095
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return uint8(v)
}

// GetValue returns the latest stored reading for channel id.
func (a *ADCHandler) GetValue(id string) (ChannelValue, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[id]
	return v, ok
}
