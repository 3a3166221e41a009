package hardware

import (
	"encoding/json"
	"fmt"
	"os"
)

// Relay control methods supported by the board description.
const (
	ControlShiftRegister = "ShiftRegister"
	ControlDirectGPIO    = "DirectGPIO"
)

// RelayControlPins are the shift-register control lines.
type RelayControlPins struct {
	Data  string `json:"data"`
	Clock string `json:"clock"`
	Latch string `json:"latch"`
	OE    string `json:"oe,omitempty"`
}

// RelayOutputConfig describes the board's relay bank.
type RelayOutputConfig struct {
	Count         int              `json:"count"`
	ControlMethod string           `json:"controlMethod"`
	Pins          RelayControlPins `json:"pins,omitempty"`
	// GPIOPins lists one pin per relay for the DirectGPIO method.
	GPIOPins          []string `json:"gpioPins,omitempty"`
	PointIDPrefix     string   `json:"pointIdPrefix"`
	PointIDStartIndex int      `json:"pointIdStartIndex"`
}

// DigitalInputConfig describes the board's digital input bank.
type DigitalInputConfig struct {
	Count             int      `json:"count"`
	Pins              []string `json:"pins"`
	PointIDPrefix     string   `json:"pointIdPrefix"`
	PointIDStartIndex int      `json:"pointIdStartIndex"`
}

// AnalogInputConfig describes one analog input bank.
type AnalogInputConfig struct {
	Type              string `json:"type"` // e.g. "0-5V"
	Count             int    `json:"count"`
	ResolutionBits    int    `json:"resolutionBits"`
	PointIDPrefix     string `json:"pointIdPrefix"`
	PointIDStartIndex int    `json:"pointIdStartIndex"`
}

// DirectIOConfig groups the directly-attached IO banks.
type DirectIOConfig struct {
	RelayOutputs  RelayOutputConfig   `json:"relayOutputs"`
	DigitalInputs DigitalInputConfig  `json:"digitalInputs"`
	AnalogInputs  []AnalogInputConfig `json:"analogInputs"`
}

// BoardConfig is the root of the read-only board IO description file.
type BoardConfig struct {
	BoardName string         `json:"boardName"`
	DirectIO  DirectIOConfig `json:"directIO"`
}

// LoadBoardConfig reads and validates the board description. The file is
// a read-only input; a missing or malformed file is fatal to startup.
func LoadBoardConfig(path string) (*BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading board config: %w", err)
	}

	var cfg BoardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing board config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating board config: %w", err)
	}
	return &cfg, nil
}

// Validate checks internal consistency of the board description.
func (c *BoardConfig) Validate() error {
	relays := c.DirectIO.RelayOutputs
	if relays.Count > 0 {
		switch relays.ControlMethod {
		case ControlShiftRegister:
			if relays.Pins.Data == "" || relays.Pins.Clock == "" || relays.Pins.Latch == "" {
				return fmt.Errorf("shift register relays need data, clock and latch pins")
			}
		case ControlDirectGPIO:
			if len(relays.GPIOPins) != relays.Count {
				return fmt.Errorf("relay gpioPins has %d entries for %d relays", len(relays.GPIOPins), relays.Count)
			}
		default:
			return fmt.Errorf("unknown relay control method %q", relays.ControlMethod)
		}
		if relays.PointIDPrefix == "" {
			return fmt.Errorf("relay outputs need a pointIdPrefix")
		}
	}

	di := c.DirectIO.DigitalInputs
	if di.Count > 0 {
		if len(di.Pins) != di.Count {
			return fmt.Errorf("digital input pins has %d entries for %d inputs", len(di.Pins), di.Count)
		}
		if di.PointIDPrefix == "" {
			return fmt.Errorf("digital inputs need a pointIdPrefix")
		}
	}

	for i, ai := range c.DirectIO.AnalogInputs {
		if ai.Count <= 0 {
			return fmt.Errorf("analog input bank %d has non-positive count", i)
		}
		if ai.PointIDPrefix == "" {
			return fmt.Errorf("analog input bank %d needs a pointIdPrefix", i)
		}
	}

	return nil
}

// RelayPointIDs returns the point ids of the relay bank in channel order:
// prefix + (startIndex + channel).
func (c *BoardConfig) RelayPointIDs() []string {
	r := c.DirectIO.RelayOutputs
	ids := make([]string, r.Count)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%d", r.PointIDPrefix, r.PointIDStartIndex+i)
	}
	return ids
}

// DigitalInputPointIDs returns the point ids of the digital input bank.
func (c *BoardConfig) DigitalInputPointIDs() []string {
	d := c.DirectIO.DigitalInputs
	ids := make([]string, d.Count)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%d", d.PointIDPrefix, d.PointIDStartIndex+i)
	}
	return ids
}

// AnalogInputPointIDs returns the point ids of every analog bank,
// flattened in declaration order; the returned channel numbers align
// with Driver.AnalogRead.
func (c *BoardConfig) AnalogInputPointIDs() []string {
	var ids []string
	for _, bank := range c.DirectIO.AnalogInputs {
		for i := 0; i < bank.Count; i++ {
			ids = append(ids, fmt.Sprintf("%s%d", bank.PointIDPrefix, bank.PointIDStartIndex+i))
		}
	}
	return ids
}
