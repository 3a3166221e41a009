package hardware

import (
	"fmt"

	"gobot.io/x/gobot/v2/drivers/gpio"
)

// shiftRegister bit-bangs a 74HC595 (or daisy-chained pair) that drives
// the relay bank. The full register is rewritten on every change from a
// held state mask, so one relay toggle never disturbs its neighbours.
type shiftRegister struct {
	writer gpio.DigitalWriter
	count  int
	pins   RelayControlPins
	state  uint32
}

func newShiftRegister(writer gpio.DigitalWriter, count int, pins RelayControlPins) *shiftRegister {
	return &shiftRegister{
		writer: writer,
		count:  count,
		pins:   pins,
	}
}

// init drives the register to all-off and enables outputs.
func (s *shiftRegister) init() error {
	s.state = 0
	if err := s.flush(); err != nil {
		return err
	}
	// OE is active-low; pull it down once the register holds a known state.
	if s.pins.OE != "" {
		if err := s.writer.DigitalWrite(s.pins.OE, 0); err != nil {
			return fmt.Errorf("enabling register outputs: %w", err)
		}
	}
	return nil
}

// set updates one relay bit and rewrites the register.
func (s *shiftRegister) set(channel int, on bool) error {
	if channel < 0 || channel >= s.count {
		return fmt.Errorf("relay channel %d out of range", channel)
	}
	if on {
		s.state |= 1 << uint(channel)
	} else {
		s.state &^= 1 << uint(channel)
	}
	return s.flush()
}

// flush shifts the state mask out MSB first and latches it.
func (s *shiftRegister) flush() error {
	if err := s.writer.DigitalWrite(s.pins.Latch, 0); err != nil {
		return fmt.Errorf("lowering latch: %w", err)
	}

	for bit := s.count - 1; bit >= 0; bit-- {
		if err := s.writer.DigitalWrite(s.pins.Clock, 0); err != nil {
			return fmt.Errorf("lowering clock: %w", err)
		}
		var level byte
		if s.state&(1<<uint(bit)) != 0 {
			level = 1
		}
		if err := s.writer.DigitalWrite(s.pins.Data, level); err != nil {
			return fmt.Errorf("writing data bit %d: %w", bit, err)
		}
		if err := s.writer.DigitalWrite(s.pins.Clock, 1); err != nil {
			return fmt.Errorf("raising clock: %w", err)
		}
	}

	if err := s.writer.DigitalWrite(s.pins.Latch, 1); err != nil {
		return fmt.Errorf("raising latch: %w", err)
	}
	return nil
}
