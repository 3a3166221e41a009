package hardware

import (
	"fmt"
	"sync"
)

// MockDriver simulates a controller board in memory. It is the default
// adaptor in development builds and the test double for every layer
// above the driver interface.
type MockDriver struct {
	mu      sync.Mutex
	board   *BoardConfig
	relays  []bool
	digital []bool
	analog  []int
}

// NewMockDriver builds a mock with every channel off / zero.
func NewMockDriver(board *BoardConfig) *MockDriver {
	analogCount := 0
	for _, bank := range board.DirectIO.AnalogInputs {
		analogCount += bank.Count
	}
	return &MockDriver{
		board:   board,
		relays:  make([]bool, board.DirectIO.RelayOutputs.Count),
		digital: make([]bool, board.DirectIO.DigitalInputs.Count),
		analog:  make([]int, analogCount),
	}
}

func (m *MockDriver) Connect() error { return nil }
func (m *MockDriver) Close() error   { return nil }

func (m *MockDriver) SetRelay(channel int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel < 0 || channel >= len(m.relays) {
		return fmt.Errorf("relay channel %d out of range", channel)
	}
	m.relays[channel] = on
	return nil
}

func (m *MockDriver) DigitalRead(channel int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel < 0 || channel >= len(m.digital) {
		return false, fmt.Errorf("digital input channel %d out of range", channel)
	}
	return m.digital[channel], nil
}

func (m *MockDriver) AnalogRead(channel int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel < 0 || channel >= len(m.analog) {
		return 0, fmt.Errorf("analog input channel %d out of range", channel)
	}
	return m.analog[channel], nil
}

// RelayState reports the current simulated relay state.
func (m *MockDriver) RelayState(channel int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel < 0 || channel >= len(m.relays) {
		return false
	}
	return m.relays[channel]
}

// SetDigitalInput seeds a simulated digital input for tests.
func (m *MockDriver) SetDigitalInput(channel int, high bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel >= 0 && channel < len(m.digital) {
		m.digital[channel] = high
	}
}

// SetAnalogInput seeds a simulated analog input for tests.
func (m *MockDriver) SetAnalogInput(channel, value int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel >= 0 && channel < len(m.analog) {
		m.analog[channel] = value
	}
}
