package hardware

import "testing"

func TestNewDriver(t *testing.T) {
	board := testBoard()

	d, err := NewDriver("mock", board)
	if err != nil {
		t.Fatalf("NewDriver(mock) error = %v", err)
	}
	if _, ok := d.(*MockDriver); !ok {
		t.Errorf("NewDriver(mock) returned %T", d)
	}

	if _, err := NewDriver("arduino", board); err == nil {
		t.Error("NewDriver(arduino) succeeded, want error")
	}
}

func TestMockDriver_Relays(t *testing.T) {
	m := NewMockDriver(testBoard())
	if err := m.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := m.SetRelay(3, true); err != nil {
		t.Fatalf("SetRelay() error = %v", err)
	}
	if !m.RelayState(3) {
		t.Error("relay 3 not on after SetRelay")
	}
	if m.RelayState(2) {
		t.Error("relay 2 on without a command")
	}

	if err := m.SetRelay(3, false); err != nil {
		t.Fatalf("SetRelay(off) error = %v", err)
	}
	if m.RelayState(3) {
		t.Error("relay 3 still on after off command")
	}

	if err := m.SetRelay(99, true); err == nil {
		t.Error("SetRelay(99) succeeded, want out of range error")
	}
}

func TestMockDriver_Inputs(t *testing.T) {
	m := NewMockDriver(testBoard())

	m.SetDigitalInput(1, true)
	got, err := m.DigitalRead(1)
	if err != nil {
		t.Fatalf("DigitalRead() error = %v", err)
	}
	if !got {
		t.Error("DigitalRead(1) = false after seeding high")
	}

	m.SetAnalogInput(2, 512)
	v, err := m.AnalogRead(2)
	if err != nil {
		t.Fatalf("AnalogRead() error = %v", err)
	}
	if v != 512 {
		t.Errorf("AnalogRead(2) = %d, want 512", v)
	}

	if _, err := m.DigitalRead(9); err == nil {
		t.Error("DigitalRead(9) succeeded, want out of range error")
	}
	if _, err := m.AnalogRead(9); err == nil {
		t.Error("AnalogRead(9) succeeded, want out of range error")
	}
}
