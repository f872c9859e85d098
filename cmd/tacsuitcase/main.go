// Command tacsuitcase is the controller's entry point: it builds the
// System aggregate (every driver, tracker, engine and module) and runs it
// until interrupted. This is the "pass opaque handles down from a System
// aggregate constructed in app_main" strategy spec.md §9 calls for in
// place of the source's global singletons, grounded on the teacher's
// server/main.go wiring order (load config, open peripherals non-fatally,
// construct the hub/aggregate, start the HTTP listener, start background
// loops, block on signal, shut down in reverse).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tacsuitcase/internal/adc"
	"tacsuitcase/internal/can"
	"tacsuitcase/internal/config"
	"tacsuitcase/internal/event"
	"tacsuitcase/internal/gamephase"
	"tacsuitcase/internal/hwdriver"
	"tacsuitcase/internal/hwmodule"
	"tacsuitcase/internal/i2cbus"
	"tacsuitcase/internal/iotask"
	"tacsuitcase/internal/lcd"
	"tacsuitcase/internal/ledengine"
	"tacsuitcase/internal/mcp23017"
	"tacsuitcase/internal/modules/alert"
	"tacsuitcase/internal/modules/mainpower"
	"tacsuitcase/internal/modules/nukemodule"
	"tacsuitcase/internal/modules/sound"
	"tacsuitcase/internal/modules/systemstatus"
	"tacsuitcase/internal/modules/troops"
	"tacsuitcase/internal/nuke"
	"tacsuitcase/internal/statusled"
	"tacsuitcase/internal/wsserver"
)

// moduleTickInterval drives the hwmodule manager's Update tick (spec.md
// §4.4: "called from the module manager at >= 50 Hz").
const moduleTickInterval = 20 * time.Millisecond

// peripherals collects every handle opened on the shared I2C bus (spec.md
// §5 "I2C bus: shared by MCP23017s, LCD, ADS1015 ... all access goes
// through the shared bus handle"). Any entry may be nil if its peripheral
// was absent at boot; callers fall back to a null/logging implementation
// rather than crash (spec.md §7 "PeripheralDown").
type peripherals struct {
	inputBoard  *mcp23017.Board
	outputBoard *mcp23017.Board
	display     systemstatus.Display
	sliderADC   *adc.ADC
}

func openPeripherals(cfg *config.Config) peripherals {
	bus, err := i2cbus.Open(cfg.I2C.Device)
	if err != nil {
		log.Println("main: i2c bus open error, running with no I2C peripherals:", err)
		return peripherals{display: hwdriver.NullDisplay{}}
	}

	p := peripherals{}

	p.outputBoard = mcp23017.New("board1-output", bus.Device(cfg.I2C.OutputExpander))
	if err := p.outputBoard.Configure(0x0000, 0x0000, 0x0000, 0x0000); err != nil {
		log.Println("main: board1 (output expander) configure error:", err)
	}

	p.inputBoard = mcp23017.New("board0-input", bus.Device(cfg.I2C.InputExpander))
	if err := p.inputBoard.Configure(0xFFFF, 0x0000, 0xFFFF, 0x0000); err != nil {
		log.Println("main: board0 (input expander) configure error:", err)
	}

	if panel, err := lcd.New(bus.Device(cfg.I2C.LCDAddress)); err != nil {
		log.Println("main: lcd init error (continuing without display):", err)
		p.display = hwdriver.NullDisplay{}
	} else {
		p.display = panel
	}

	p.sliderADC = adc.New(bus.Device(cfg.I2C.ADCAddress))

	return p
}

func main() {
	result := config.Load(".")
	cfg := result.Config

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dispatcher := event.New()
	go dispatcher.Run(ctx)

	periph := openPeripherals(cfg)

	var ledDriver ledengine.Driver = hwdriver.NullDriver{}
	if periph.outputBoard != nil {
		ledDriver = hwdriver.NewLEDBoard(periph.outputBoard)
	}
	leds := ledengine.New(ledDriver)
	go leds.Run(ctx)

	if periph.inputBoard != nil {
		go healthLoop(ctx, periph.inputBoard)
	}
	if periph.outputBoard != nil {
		go healthLoop(ctx, periph.outputBoard)
	}

	tracker := nuke.New()
	wsSrv := wsserver.New(dispatcher)

	statusMod := systemstatus.New(periph.display)

	var adcHandler *iotask.ADCHandler
	var sliderSrc troops.SliderSource // left nil if the ADC never probed; avoids a typed-nil interface
	if periph.sliderADC != nil {
		adcHandler = iotask.NewADCHandler(periph.sliderADC, []iotask.ChannelConfig{
			{ID: troops.SliderChannelID, HwChannel: 0, I2CAddr: cfg.I2C.ADCAddress, ChangeThresholdPercent: troops.ChangeThreshold, Name: "troops_slider"},
		})
		sliderSrc = adcHandler
	}
	troopsMod := troops.New(periph.display, sliderSrc, wsSrv, statusMod)
	nukeMod := nukemodule.New(tracker, leds, wsSrv)
	alertMod := alert.New(tracker, leds)
	powerMod := mainpower.New(leds)

	canTransport := setupCAN(ctx, cfg)
	soundMod := sound.New(canTransport)
	go runCANAckLoop(ctx, canTransport, soundMod)

	manager := hwmodule.NewManager()
	for _, reg := range []struct {
		mod     hwmodule.Module
		enabled bool
	}{
		{statusMod, true},
		{troopsMod, true},
		{nukeMod, true},
		{alertMod, true},
		{powerMod, true},
		{soundMod, true},
	} {
		if err := manager.Register(reg.mod, reg.enabled); err != nil {
			log.Fatal("main: register module: ", err)
		}
	}
	if err := manager.InitAll(); err != nil {
		log.Fatal("main: module init: ", err)
	}

	phaseMachine := gamephase.New()
	indicator := setupStatusLED(cfg)
	phaseMachine.OnChange(func(_, next gamephase.Phase) {
		if indicator != nil {
			indicator.SetPhase(next)
		}
	})

	wireDispatcher(dispatcher, manager, phaseMachine, indicator, tracker)

	if periph.inputBoard != nil && adcHandler != nil {
		runIOTask(ctx, periph.inputBoard, adcHandler, dispatcher)
	}

	go func() {
		ticker := time.NewTicker(moduleTickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				manager.UpdateAll()
			}
		}
	}()

	go monitorModuleHealth(ctx, manager, indicator)

	// The physical Wi-Fi layer is an external collaborator (spec.md §1);
	// this core only observes its "network-up" contract. Absent real
	// link-state plumbing, the controller treats the network as already
	// established by the time app_main runs.
	dispatcher.PostSimple(event.NetworkConnected, event.SourceSystem)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsSrv)

	ln, err := wsserver.Listen(cfg.WS.Addr)
	if err != nil {
		log.Fatal("main: listen: ", err)
	}
	log.Println("tacsuitcase: listening on", cfg.WS.Addr, "tls:", wsserver.TLSEnabled)
	statusMod.SetWSListening(true)

	go func() {
		if err := wsserver.Serve(ln, mux); err != nil {
			log.Println("main: http serve error:", err)
		}
	}()

	<-ctx.Done()
	log.Println("main: shutting down")
	for _, err := range manager.ShutdownAll() {
		log.Println("main: shutdown error:", err)
	}
}

// healthLoop runs the MCP23017 periodic health check and attempts recovery
// once a board is observed unhealthy (spec.md §4.13).
func healthLoop(ctx context.Context, board *mcp23017.Board) {
	ticker := time.NewTicker(mcp23017.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := board.HealthCheck(); err != nil {
				log.Printf("mcp23017[%s]: health check error: %v", board.Name(), err)
			}
			if !board.GetHealth().Healthy {
				if err := board.Recover(); err != nil {
					log.Printf("mcp23017[%s]: recovery attempt failed: %v", board.Name(), err)
				}
			}
		}
	}
}

// runCANAckLoop reads inbound CAN frames off transport and routes
// SOUND_ACK frames (ID 0x423) to the sound module (spec.md §4.10 "Queue-id
// lifecycle"). Other frame IDs (status, diagnostics) are skipped without
// logging; nothing in this core consumes them.
func runCANAckLoop(ctx context.Context, transport can.Transport, soundMod *sound.Module) {
	for {
		frame, err := transport.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Println("main: can recv error:", err)
			continue
		}
		if frame.ID != can.IDSoundAck {
			continue
		}
		ack, err := can.DecodeSoundAck(frame.Data[:])
		if err != nil {
			log.Println("main: can: malformed SOUND_ACK:", err)
			continue
		}
		soundMod.HandleAck(ack)
	}
}

// setupCAN returns a mock or real SocketCAN transport per config (spec.md
// §4.10, §6.2).
func setupCAN(ctx context.Context, cfg *config.Config) can.Transport {
	if cfg.CAN.Mock {
		return can.NewMockTransport()
	}
	t, err := can.DialSocketCAN(ctx, cfg.CAN.Interface)
	if err != nil {
		log.Println("main: can dial error, falling back to mock:", err)
		return can.NewMockTransport()
	}
	return t
}

// setupStatusLED requests the RGB indicator's GPIO lines. A missing GPIO
// chip is non-fatal: the rest of the controller runs with no visible
// status glow.
func setupStatusLED(cfg *config.Config) *statusled.Indicator {
	ind, err := statusled.New(statusled.Config{
		GPIOChip:  cfg.StatusLED.GPIOChip,
		RedLine:   cfg.StatusLED.RedLine,
		GreenLine: cfg.StatusLED.GreenLine,
		BlueLine:  cfg.StatusLED.BlueLine,
	})
	if err != nil {
		log.Println("main: status LED init error (continuing without indicator):", err)
		return nil
	}
	return ind
}

// wireDispatcher registers every dispatcher-level observer that isn't a
// hwmodule: the phase machine (registered on the specific kinds it reacts
// to, so it settles before the module manager's ANY-routed handler sees
// the same event, per spec.md §5 ordering guarantees), the nuke tracker's
// GAME_END reset, the RGB indicator's connectivity inputs, and the module
// manager's RouteEvent.
func wireDispatcher(d *event.Dispatcher, manager *hwmodule.Manager, phase *gamephase.Machine, indicator *statusled.Indicator, tracker *nuke.Tracker) {
	for _, kind := range []event.Kind{event.GameSpawning, event.GameStart, event.GameEnd} {
		d.Register(kind, "gamephase", func(e event.Event) bool {
			phase.Update(e.GameEvent.Kind, e.GameEvent.Data)
			return false
		}, nil)
	}

	d.Register(event.WSConnected, "gamephase-reset", func(e event.Event) bool {
		phase.Reset()
		return false
	}, nil)
	d.Register(event.WSDisconnected, "gamephase-reset", func(e event.Event) bool {
		phase.Reset()
		return false
	}, nil)

	d.Register(event.GameEnd, "nuke-tracker-clear", func(e event.Event) bool {
		tracker.ClearAll()
		return false
	}, nil)

	if indicator != nil {
		d.Register(event.NetworkConnected, "statusled", func(e event.Event) bool {
			indicator.SetNetworkUp(true)
			return false
		}, nil)
		d.Register(event.NetworkDisconnected, "statusled", func(e event.Event) bool {
			indicator.SetNetworkUp(false)
			return false
		}, nil)
		d.Register(event.WSConnected, "statusled", func(e event.Event) bool {
			indicator.SetUserscriptConnected(true)
			return false
		}, nil)
		d.Register(event.WSDisconnected, "statusled", func(e event.Event) bool {
			indicator.SetUserscriptConnected(false)
			return false
		}, nil)
	}

	d.Register(event.ANY, "hwmodule-manager", func(e event.Event) bool {
		manager.RouteEvent(e)
		return false
	}, nil)
}

// monitorModuleHealth periodically snapshots every module's status and
// feeds "any module in ERROR" into the RGB indicator (spec.md §7:
// "The RGB indicator reflects 'any module in ERROR'").
func monitorModuleHealth(ctx context.Context, manager *hwmodule.Manager, indicator *statusled.Indicator) {
	if indicator == nil {
		return
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			anyError := false
			for _, status := range manager.Snapshot() {
				if status.Initialized && !status.Operational {
					anyError = true
					break
				}
			}
			indicator.SetError(anyError)
		}
	}
}

// runIOTask wires the button/ADC scanner and starts it (spec.md §4.12).
func runIOTask(ctx context.Context, inputBoard *mcp23017.Board, adcHandler *iotask.ADCHandler, dispatcher *event.Dispatcher) {
	buttons := iotask.NewButtonHandler(inputBoard, dispatcher.Post)
	sched := iotask.NewScheduler(buttons, adcHandler)
	go sched.Run(ctx)
}
