package hardware

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func testBoard() *BoardConfig {
	return &BoardConfig{
		BoardName: "test-board",
		DirectIO: DirectIOConfig{
			RelayOutputs: RelayOutputConfig{
				Count:         8,
				ControlMethod: ControlShiftRegister,
				Pins:          RelayControlPins{Data: "11", Clock: "13", Latch: "15", OE: "16"},
				PointIDPrefix: "RLY",
			},
			DigitalInputs: DigitalInputConfig{
				Count:             4,
				Pins:              []string{"29", "31", "33", "35"},
				PointIDPrefix:     "DI",
				PointIDStartIndex: 1,
			},
			AnalogInputs: []AnalogInputConfig{
				{Type: "0-5V", Count: 4, ResolutionBits: 10, PointIDPrefix: "AI", PointIDStartIndex: 1},
			},
		},
	}
}

func TestLoadBoardConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.json")

	data := []byte(`{
		"boardName": "fertigate-hat-v1",
		"directIO": {
			"relayOutputs": {
				"count": 8,
				"controlMethod": "ShiftRegister",
				"pins": {"data": "11", "clock": "13", "latch": "15"},
				"pointIdPrefix": "RLY",
				"pointIdStartIndex": 0
			},
			"digitalInputs": {
				"count": 2,
				"pins": ["29", "31"],
				"pointIdPrefix": "DI",
				"pointIdStartIndex": 1
			},
			"analogInputs": [
				{"type": "0-5V", "count": 4, "resolutionBits": 10, "pointIdPrefix": "AI", "pointIdStartIndex": 1}
			]
		}
	}`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadBoardConfig(path)
	if err != nil {
		t.Fatalf("LoadBoardConfig() error = %v", err)
	}
	if cfg.BoardName != "fertigate-hat-v1" {
		t.Errorf("BoardName = %q", cfg.BoardName)
	}
	if cfg.DirectIO.RelayOutputs.Count != 8 {
		t.Errorf("relay count = %d, want 8", cfg.DirectIO.RelayOutputs.Count)
	}
}

func TestLoadBoardConfig_Missing(t *testing.T) {
	if _, err := LoadBoardConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("LoadBoardConfig() missing file succeeded")
	}
}

func TestLoadBoardConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBoardConfig(path); err == nil {
		t.Fatal("LoadBoardConfig() malformed file succeeded")
	}
}

func TestBoardConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BoardConfig)
		wantErr string
	}{
		{
			name:   "valid shift register board",
			mutate: func(c *BoardConfig) {},
		},
		{
			name: "valid direct gpio board",
			mutate: func(c *BoardConfig) {
				c.DirectIO.RelayOutputs.ControlMethod = ControlDirectGPIO
				c.DirectIO.RelayOutputs.GPIOPins = []string{"3", "5", "7", "11", "13", "15", "19", "21"}
			},
		},
		{
			name: "shift register missing latch pin",
			mutate: func(c *BoardConfig) {
				c.DirectIO.RelayOutputs.Pins.Latch = ""
			},
			wantErr: "latch",
		},
		{
			name: "direct gpio pin count mismatch",
			mutate: func(c *BoardConfig) {
				c.DirectIO.RelayOutputs.ControlMethod = ControlDirectGPIO
				c.DirectIO.RelayOutputs.GPIOPins = []string{"3", "5"}
			},
			wantErr: "gpioPins",
		},
		{
			name: "unknown control method",
			mutate: func(c *BoardConfig) {
				c.DirectIO.RelayOutputs.ControlMethod = "I2CExpander"
			},
			wantErr: "control method",
		},
		{
			name: "relay bank without point prefix",
			mutate: func(c *BoardConfig) {
				c.DirectIO.RelayOutputs.PointIDPrefix = ""
			},
			wantErr: "pointIdPrefix",
		},
		{
			name: "digital pin count mismatch",
			mutate: func(c *BoardConfig) {
				c.DirectIO.DigitalInputs.Pins = []string{"29"}
			},
			wantErr: "digital input pins",
		},
		{
			name: "analog bank with zero count",
			mutate: func(c *BoardConfig) {
				c.DirectIO.AnalogInputs[0].Count = 0
			},
			wantErr: "non-positive count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testBoard()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestBoardConfig_PointIDs(t *testing.T) {
	cfg := testBoard()

	wantRelays := []string{"RLY0", "RLY1", "RLY2", "RLY3", "RLY4", "RLY5", "RLY6", "RLY7"}
	if got := cfg.RelayPointIDs(); !reflect.DeepEqual(got, wantRelays) {
		t.Errorf("RelayPointIDs() = %v, want %v", got, wantRelays)
	}

	wantDigital := []string{"DI1", "DI2", "DI3", "DI4"}
	if got := cfg.DigitalInputPointIDs(); !reflect.DeepEqual(got, wantDigital) {
		t.Errorf("DigitalInputPointIDs() = %v, want %v", got, wantDigital)
	}

	wantAnalog := []string{"AI1", "AI2", "AI3", "AI4"}
	if got := cfg.AnalogInputPointIDs(); !reflect.DeepEqual(got, wantAnalog) {
		t.Errorf("AnalogInputPointIDs() = %v, want %v", got, wantAnalog)
	}
}
