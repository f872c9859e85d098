package iotask

import (
	"context"
	"log"
	"time"
)

// ScanInterval is the button-scan cadence (spec.md §4.12).
const ScanInterval = 50 * time.Millisecond

// ADCTickDivisor is how many button-scan ticks make up one ADC scan
// (spec.md §4.12: "every 100/50 = 2 ticks invoke ADC Handler scan").
const ADCTickDivisor = 2

// Scheduler drives the button handler every tick and the ADC handler
// every ADCTickDivisor ticks, on a single goroutine (spec.md §4.12).
type Scheduler struct {
	buttons *ButtonHandler
	adc     *ADCHandler
	tick    time.Duration
}

// NewScheduler returns a scheduler for the given handlers.
func NewScheduler(buttons *ButtonHandler, adc *ADCHandler) *Scheduler {
	return &Scheduler{buttons: buttons, adc: adc, tick: ScanInterval}
}

// Run drives the scan loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var counter int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.buttons.Scan(); err != nil {
				log.Printf("iotask: button scan failed: %v", err)
			}
			counter++
			if counter >= ADCTickDivisor {
				counter = 0
				s.adc.Scan()
			}
		}
	}
}
