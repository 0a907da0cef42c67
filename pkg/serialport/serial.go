package serialport

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// Serial is the Port implementation backed by a physical (or USB CDC)
// serial device via go.bug.st/serial.
type Serial struct {
	cfg Config

	mu   sync.Mutex
	port serial.Port
}

// NewSerial returns an unopened serial port for cfg.
func NewSerial(cfg Config) *Serial {
	return &Serial{cfg: cfg.withDefaults()}
}

// Open opens the device. DTR and RTS are forced low immediately after the
// open so the attached microcontroller does not see a spurious reset pulse;
// some OS drivers assert both lines as a side effect of opening.
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: s.cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.cfg.Device, mode)
	if err != nil {
		return fmt.Errorf("knoblink serialport: open %s: %w", s.cfg.Device, err)
	}

	if err := port.SetDTR(false); err != nil {
		port.Close()
		return fmt.Errorf("knoblink serialport: clear DTR: %w", err)
	}
	if err := port.SetRTS(false); err != nil {
		port.Close()
		return fmt.Errorf("knoblink serialport: clear RTS: %w", err)
	}
	if err := port.SetReadTimeout(s.cfg.PollTimeout); err != nil {
		port.Close()
		return fmt.Errorf("knoblink serialport: set read timeout: %w", err)
	}

	s.port = port
	return nil
}

func (s *Serial) Read(p []byte) (int, error) {
	port := s.current()
	if port == nil {
		return 0, ErrClosed
	}
	// go.bug.st returns (0, nil) when the read timeout elapses, which is
	// exactly the idle-poll contract of Port.Read.
	return port.Read(p)
}

func (s *Serial) Write(p []byte) (int, error) {
	port := s.current()
	if port == nil {
		return 0, ErrClosed
	}
	return port.Write(p)
}

func (s *Serial) Drain() error {
	port := s.current()
	if port == nil {
		return ErrClosed
	}
	return port.Drain()
}

// AssertReset drives the ESP32 reset sequence input: DTR low, RTS high.
func (s *Serial) AssertReset() error {
	port := s.current()
	if port == nil {
		return ErrClosed
	}
	if err := port.SetDTR(false); err != nil {
		return fmt.Errorf("knoblink serialport: assert reset: %w", err)
	}
	if err := port.SetRTS(true); err != nil {
		return fmt.Errorf("knoblink serialport: assert reset: %w", err)
	}
	return nil
}

// ReleaseReset returns RTS to inactive, letting the device boot.
func (s *Serial) ReleaseReset() error {
	port := s.current()
	if port == nil {
		return ErrClosed
	}
	if err := port.SetRTS(false); err != nil {
		return fmt.Errorf("knoblink serialport: release reset: %w", err)
	}
	return nil
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *Serial) current() serial.Port {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}
