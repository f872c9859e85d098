// Package config loads the controller's runtime configuration from
// config.default.yaml with optional overrides from config.yaml, following
// the teacher's server/config.Load layering (defaults file required,
// overrides file optional and merged on top, durations parsed once after
// merge).
package config

import (
	"encoding/json"
	"log"
	"os"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"
)

// I2CConfig names the shared bus device and the fixed addresses from
// spec.md §6.3.
type I2CConfig struct {
	Device          string `yaml:"device"          json:"device"`
	InputExpander   uint8  `yaml:"inputExpander"   json:"inputExpander"`
	OutputExpander  uint8  `yaml:"outputExpander"  json:"outputExpander"`
	LCDAddress      uint8  `yaml:"lcdAddress"      json:"lcdAddress"`
	ADCAddress      uint8  `yaml:"adcAddress"      json:"adcAddress"`
}

// CANConfig names the SocketCAN interface used for the audio module link
// (spec.md §6.2).
type CANConfig struct {
	Interface string `yaml:"interface" json:"interface"`
	Mock      bool   `yaml:"mock"      json:"mock"`
}

// StatusLEDConfig names the GPIO chip/lines for the RGB status indicator
// (spec.md §4.17).
type StatusLEDConfig struct {
	GPIOChip  string `yaml:"gpioChip"  json:"gpioChip"`
	RedLine   int    `yaml:"redLine"   json:"redLine"`
	GreenLine int    `yaml:"greenLine" json:"greenLine"`
	BlueLine  int    `yaml:"blueLine"  json:"blueLine"`
}

// WSConfig names the WebSocket listen address. TLS is not configured
// here; it is a build-time switch in internal/wsserver.
type WSConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Config holds all runtime configuration (spec.md §6).
type Config struct {
	I2C       I2CConfig       `yaml:"i2c"       json:"i2c"`
	CAN       CANConfig       `yaml:"can"       json:"can"`
	StatusLED StatusLEDConfig `yaml:"statusLed" json:"statusLed"`
	WS        WSConfig        `yaml:"ws"        json:"ws"`

	ScanIntervalMs string `yaml:"scanIntervalMs" json:"scanIntervalMs"`

	// ScanInterval is parsed once after merge; not serialized.
	ScanInterval time.Duration `yaml:"-" json:"-"`
}

// LoadResult holds both the effective merged config and the raw defaults,
// matching the teacher's pattern; SaveOverrides diffs the two.
type LoadResult struct {
	Config   *Config
	Defaults *Config
}

// Load reads dir+"/config.default.yaml" as the baseline, then layers
// dir+"/config.yaml" on top if present and well-formed.
func Load(dir string) *LoadResult {
	var defaults Config

	data, err := os.ReadFile(dir + "/config.default.yaml")
	if err != nil {
		log.Fatal("config: read error: ", err)
	}
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		log.Fatal("config: parse error: ", err)
	}

	cfg := defaults
	if ovData, err := os.ReadFile(dir + "/config.yaml"); err == nil {
		if err := yaml.Unmarshal(ovData, &cfg); err != nil {
			log.Println("config: ignoring malformed config.yaml:", err)
		}
	}

	parseDurations(&cfg)
	parseDurations(&defaults)

	return &LoadResult{Config: &cfg, Defaults: &defaults}
}

func parseDurations(cfg *Config) {
	cfg.ScanInterval = parseDuration(cfg.ScanIntervalMs, "scanIntervalMs")
}

func parseDuration(s, field string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("config: invalid %s %q: %v", field, s, err)
	}
	return d
}

// SaveOverrides writes only the fields that differ from defaults to
// dir+"/config.yaml", same diff-against-defaults approach as the teacher's
// SaveOverrides.
func SaveOverrides(dir string, updated, defaults Config) error {
	uMap := toMap(updated)
	dMap := toMap(defaults)
	diff := diffMaps(uMap, dMap)
	data, err := yaml.Marshal(diff)
	if err != nil {
		return err
	}
	return os.WriteFile(dir+"/config.yaml", data, 0644)
}

func toMap(v any) map[string]any {
	b, _ := json.Marshal(v)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

func diffMaps(override, defaults map[string]any) map[string]any {
	result := map[string]any{}
	for k, ov := range override {
		dv, ok := defaults[k]
		if !ok {
			result[k] = ov
			continue
		}
		if om, ok2 := ov.(map[string]any); ok2 {
			if dm, ok3 := dv.(map[string]any); ok3 {
				sub := diffMaps(om, dm)
				if len(sub) > 0 {
					result[k] = sub
				}
				continue
			}
		}
		if !reflect.DeepEqual(ov, dv) {
			result[k] = ov
		}
	}
	return result
}
