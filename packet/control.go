package packet

import "fmt"

// Control is the semantic view of a control packet payload. The byte
// offsets below are wire contract shared with remote consumers:
//
//	0 emergency_stop
//	1 step_forward
//	2 stop
//	3 refresh
//	4 start
//	5 capture
//
// Offsets 6-9 are reserved. Never reorder.
type Control struct {
	EmergencyStop bool
	StepForward   bool
	Stop          bool
	Refresh       bool
	Start         bool
	Capture       bool
}

const controlFlagCount = 6

// ControlFlags interprets p's payload as a control buffer. A nonzero byte
// at a flag's offset sets the flag.
func (p Packet) ControlFlags() (Control, error) {
	if len(p.Payload) < controlFlagCount {
		return Control{}, fmt.Errorf("control: %w: got %d, want at least %d", ErrTruncated, len(p.Payload), controlFlagCount)
	}
	return Control{
		EmergencyStop: p.Payload[0] != 0,
		StepForward:   p.Payload[1] != 0,
		Stop:          p.Payload[2] != 0,
		Refresh:       p.Payload[3] != 0,
		Start:         p.Payload[4] != 0,
		Capture:       p.Payload[5] != 0,
	}, nil
}

// Bytes renders the flags as a control-shape payload (10 bytes, reserved
// tail zeroed).
func (c Control) Bytes() []byte {
	buf := make([]byte, ControlShape.PayloadSize)
	set := func(off int, on bool) {
		if on {
			buf[off] = 1
		}
	}
	set(0, c.EmergencyStop)
	set(1, c.StepForward)
	set(2, c.Stop)
	set(3, c.Refresh)
	set(4, c.Start)
	set(5, c.Capture)
	return buf
}
