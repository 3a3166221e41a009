package hardware

import (
	"fmt"
	"strconv"

	"gobot.io/x/gobot/v2/drivers/gpio"
	"gobot.io/x/gobot/v2/drivers/spi"
	"gobot.io/x/gobot/v2/platforms/raspi"
)

// piDriver drives a Raspberry Pi carrier board: relays either directly on
// GPIO pins or through a 74HC595 shift register, digital inputs on GPIO,
// and analog inputs through an MCP3008 ADC on SPI.
type piDriver struct {
	board   *BoardConfig
	adaptor *raspi.Adaptor

	relays []*gpio.RelayDriver // DirectGPIO method
	sr     *shiftRegister      // ShiftRegister method

	adc *spi.MCP3008Driver
}

func newPiDriver(board *BoardConfig) (*piDriver, error) {
	adaptor := raspi.NewAdaptor()

	d := &piDriver{
		board:   board,
		adaptor: adaptor,
	}

	relayCfg := board.DirectIO.RelayOutputs
	switch relayCfg.ControlMethod {
	case ControlDirectGPIO:
		for _, pin := range relayCfg.GPIOPins {
			d.relays = append(d.relays, gpio.NewRelayDriver(adaptor, pin))
		}
	case ControlShiftRegister:
		d.sr = newShiftRegister(adaptor, relayCfg.Count, relayCfg.Pins)
	}

	if len(board.DirectIO.AnalogInputs) > 0 {
		d.adc = spi.NewMCP3008Driver(adaptor)
	}

	return d, nil
}

// Connect brings up the adaptor and every attached driver.
func (d *piDriver) Connect() error {
	if err := d.adaptor.Connect(); err != nil {
		return fmt.Errorf("connecting raspi adaptor: %w", err)
	}
	for i, r := range d.relays {
		if err := r.Start(); err != nil {
			return fmt.Errorf("starting relay driver %d: %w", i, err)
		}
	}
	if d.sr != nil {
		if err := d.sr.init(); err != nil {
			return fmt.Errorf("initialising shift register: %w", err)
		}
	}
	if d.adc != nil {
		if err := d.adc.Start(); err != nil {
			return fmt.Errorf("starting MCP3008 driver: %w", err)
		}
	}
	return nil
}

// Close halts drivers and disconnects the adaptor.
func (d *piDriver) Close() error {
	for _, r := range d.relays {
		_ = r.Halt()
	}
	if d.adc != nil {
		_ = d.adc.Halt()
	}
	return d.adaptor.Finalize()
}

// SetRelay drives one relay channel.
func (d *piDriver) SetRelay(channel int, on bool) error {
	if d.sr != nil {
		return d.sr.set(channel, on)
	}
	if channel < 0 || channel >= len(d.relays) {
		return fmt.Errorf("relay channel %d out of range", channel)
	}
	if on {
		return d.relays[channel].On()
	}
	return d.relays[channel].Off()
}

// DigitalRead samples one digital input channel.
func (d *piDriver) DigitalRead(channel int) (bool, error) {
	pins := d.board.DirectIO.DigitalInputs.Pins
	if channel < 0 || channel >= len(pins) {
		return false, fmt.Errorf("digital input channel %d out of range", channel)
	}
	v, err := d.adaptor.DigitalRead(pins[channel])
	if err != nil {
		return false, fmt.Errorf("reading digital input %s: %w", pins[channel], err)
	}
	return v == 1, nil
}

// AnalogRead samples one ADC channel.
func (d *piDriver) AnalogRead(channel int) (int, error) {
	if d.adc == nil {
		return 0, fmt.Errorf("no ADC configured")
	}
	v, err := d.adc.AnalogRead(strconv.Itoa(channel))
	if err != nil {
		return 0, fmt.Errorf("reading ADC channel %d: %w", channel, err)
	}
	return v, nil
}
