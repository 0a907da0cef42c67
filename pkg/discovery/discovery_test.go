package discovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func fakeEnumerate(ports ...*enumerator.PortDetails) Enumerate {
	return func() ([]*enumerator.PortDetails, error) {
		return ports, nil
	}
}

func TestFindPortsPrefersUSBIDMatch(t *testing.T) {
	got, err := findPorts(fakeEnumerate(
		&enumerator.PortDetails{Name: "/dev/ttyS0"},
		&enumerator.PortDetails{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", Product: "FTDI USB Serial"},
		&enumerator.PortDetails{Name: "/dev/ttyACM0", IsUSB: true, VID: "303A", PID: "1001", Product: "ESP32-S3"},
	))
	require.NoError(t, err)
	// VID/PID matching is case-insensitive and beats the FTDI keyword match.
	assert.Equal(t, []string{"/dev/ttyACM0"}, got)
}

func TestFindPortsKeywordFallback(t *testing.T) {
	got, err := findPorts(fakeEnumerate(
		&enumerator.PortDetails{Name: "/dev/ttyACM1", IsUSB: true, VID: "dead", PID: "beef", Product: "Bluetooth HID bridge"},
		&enumerator.PortDetails{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", Product: "FTDI USB Serial"},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/ttyUSB0"}, got)
}

func TestFindPortsReturnsEverythingWhenNothingMatches(t *testing.T) {
	got, err := findPorts(fakeEnumerate(
		&enumerator.PortDetails{Name: "/dev/ttyS0"},
		&enumerator.PortDetails{Name: "/dev/ttyS1"},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/ttyS0", "/dev/ttyS1"}, got)
}

func TestFindPortsEnumerateFailure(t *testing.T) {
	_, err := findPorts(func() ([]*enumerator.PortDetails, error) {
		return nil, errors.New("no permission")
	})
	assert.Error(t, err)
}
