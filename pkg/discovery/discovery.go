// Package discovery finds serial ports that are likely SmartKnob devices.
//
// Detection runs in three tiers: exact USB VID/PID matches first,
// description/manufacturer keyword matches second, and finally — so a user
// with an unrecognized adapter is never stranded — every available port.
package discovery

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// usbID is a USB vendor/product pair, formatted lowercase hex without a
// leading 0x, as enumerator reports them.
type usbID struct {
	vid string
	pid string
}

// knownIDs lists USB bridges shipped on SmartKnob hardware.
var knownIDs = []usbID{
	{"1a86", "7523"}, // CH340 USB-to-serial bridge
	{"303a", "1001"}, // ESP32-S3 native USB CDC
}

// excludeKeywords filters ports that are certainly not a knob.
var excludeKeywords = []string{
	"bluetooth", "hid", "mouse", "keyboard", "audio", "webcam",
	"camera", "printer", "scanner", "modem", "fax", "virtual", "loopback",
}

// serialKeywords marks generic USB-serial adapters worth trying when no
// exact VID/PID match exists.
var serialKeywords = []string{
	"esp32", "ch340", "cp210", "cp2102", "ftdi", "usb serial", "uart",
}

// Enumerate returns the detailed serial port list. Swappable for tests.
type Enumerate func() ([]*enumerator.PortDetails, error)

// FindPorts returns candidate device paths, most likely first, using the
// system enumerator.
func FindPorts() ([]string, error) {
	return findPorts(enumerator.GetDetailedPortsList)
}

func findPorts(enumerate Enumerate) ([]string, error) {
	ports, err := enumerate()
	if err != nil {
		return nil, fmt.Errorf("knoblink discovery: enumerate ports: %w", err)
	}

	// Tier 1: exact USB VID/PID.
	var candidates []string
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		for _, id := range knownIDs {
			if strings.EqualFold(p.VID, id.vid) && strings.EqualFold(p.PID, id.pid) {
				candidates = append(candidates, p.Name)
				break
			}
		}
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	// Tier 2: description keywords, minus the obvious non-devices.
	for _, p := range ports {
		desc := strings.ToLower(p.Product)
		if excluded(desc) {
			continue
		}
		for _, kw := range serialKeywords {
			if strings.Contains(desc, kw) {
				candidates = append(candidates, p.Name)
				break
			}
		}
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	// Tier 3: everything. Let the caller (or the protocol itself) decide.
	for _, p := range ports {
		candidates = append(candidates, p.Name)
	}
	return candidates, nil
}

func excluded(desc string) bool {
	for _, kw := range excludeKeywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}
