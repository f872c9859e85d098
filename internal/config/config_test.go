package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
}

const defaultYAML = `
i2c:
  device: /dev/i2c-1
  inputExpander: 32
  outputExpander: 33
  lcdAddress: 39
  adcAddress: 72
can:
  interface: can0
  mock: true
statusLed:
  gpioChip: gpiochip0
  redLine: 1
  greenLine: 2
  blueLine: 3
ws:
  addr: ":3000"
scanIntervalMs: 50ms
`

func TestLoadAppliesDefaultsWhenNoOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.default.yaml", defaultYAML)

	res := Load(dir)
	if res.Config.I2C.Device != "/dev/i2c-1" {
		t.Fatalf("unexpected i2c device: %q", res.Config.I2C.Device)
	}
	if res.Config.ScanInterval.Milliseconds() != 50 {
		t.Fatalf("expected 50ms scan interval, got %v", res.Config.ScanInterval)
	}
}

func TestLoadMergesOverrideOnTopOfDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.default.yaml", defaultYAML)
	writeFile(t, dir, "config.yaml", "ws:\n  addr: \":9000\"\n")

	res := Load(dir)
	if res.Config.WS.Addr != ":9000" {
		t.Fatalf("expected override addr :9000, got %q", res.Config.WS.Addr)
	}
	// Defaults snapshot must be unaffected by the override.
	if res.Defaults.WS.Addr != ":3000" {
		t.Fatalf("expected defaults addr :3000, got %q", res.Defaults.WS.Addr)
	}
	// Fields not present in the override still come from defaults.
	if res.Config.I2C.Device != "/dev/i2c-1" {
		t.Fatalf("expected i2c device to fall back to default, got %q", res.Config.I2C.Device)
	}
}

func TestSaveOverridesWritesOnlyDiffFromDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.default.yaml", defaultYAML)
	res := Load(dir)

	updated := *res.Config
	updated.WS.Addr = ":9001"

	if err := SaveOverrides(dir, updated, *res.Defaults); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("expected config.yaml to be written: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty diff file")
	}

	reloaded := Load(dir)
	if reloaded.Config.WS.Addr != ":9001" {
		t.Fatalf("expected reload to pick up saved override, got %q", reloaded.Config.WS.Addr)
	}
}

func TestCredentialStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi.json")
	store := NewCredentialStore(path)

	if store.Exists() {
		t.Fatal("expected no credentials initially")
	}

	if err := store.Save(WiFiCredentials{SSID: "tabletop", Password: "s3cret"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.Exists() {
		t.Fatal("expected credentials to exist after save")
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SSID != "tabletop" || got.Password != "s3cret" {
		t.Fatalf("unexpected credentials: %+v", got)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Exists() {
		t.Fatal("expected credentials to be gone after clear")
	}
}

func TestIdentityStoreDefaultsToZeroValueWhenUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	store := NewIdentityStore(path)

	id, err := store.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != (Identity{}) {
		t.Fatalf("expected zero value, got %+v", id)
	}

	if err := store.Set(Identity{OwnerName: "Ada", Serial: "SN-001"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.OwnerName != "Ada" || got.Serial != "SN-001" {
		t.Fatalf("unexpected identity: %+v", got)
	}

	if err := store.FactoryReset(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = store.Get()
	if got != (Identity{}) {
		t.Fatalf("expected zero value after factory reset, got %+v", got)
	}
}
