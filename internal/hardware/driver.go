package hardware

import "fmt"

// Driver abstracts the physical IO of one controller board. Channel
// numbers are zero-based positions within each bank; the mapping to
// point ids happens in the output/input layers via the board config.
//
// Implementations are not required to be safe for concurrent writes; the
// output dispatcher serialises all relay writes through one worker.
type Driver interface {
	// Connect initialises the underlying platform.
	Connect() error

	// Close releases platform resources.
	Close() error

	// SetRelay drives one relay channel on or off.
	SetRelay(channel int, on bool) error

	// DigitalRead samples one digital input channel.
	DigitalRead(channel int) (bool, error)

	// AnalogRead samples one analog input channel, returning the raw
	// converter value.
	AnalogRead(channel int) (int, error)
}

// NewDriver builds a Driver for the configured adaptor.
//
// Parameters:
//   - adaptor: "raspi" for real hardware, "mock" for development
//   - board: validated board description
func NewDriver(adaptor string, board *BoardConfig) (Driver, error) {
	switch adaptor {
	case "raspi":
		return newPiDriver(board)
	case "mock":
		return NewMockDriver(board), nil
	default:
		return nil, fmt.Errorf("unknown hardware adaptor %q", adaptor)
	}
}
