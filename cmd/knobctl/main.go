// Command knobctl is the operator CLI for SmartKnob devices: port
// discovery, live monitoring, configuration pushes, and an interactive
// dashboard.
package main

import "github.com/smartknob/knoblink/cmd/knobctl/cmd"

func main() {
	cmd.Execute()
}
