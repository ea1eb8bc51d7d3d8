package dpm

import (
	"fmt"
	"io"

	"github.com/tinypd/pdsink/pdmsg"
)

// LoggingPolicy wraps a Policy and writes a textual description of every
// capability list it sees to W before delegating. Mostly useful for
// bring-up, watching what a charger actually advertises.
type LoggingPolicy struct {
	W    io.Writer
	Sep  string
	Base Policy
}

// Validate delegates to Base, or succeeds if there is none.
func (l *LoggingPolicy) Validate() error {
	if l.Base == nil {
		return nil
	}
	return l.Base.Validate()
}

// SelectCapability logs caps, then delegates to Base. With no Base it
// returns a zero RDO, which PE turns into a request for the position-1
// vSafe5V supply with the Capability Mismatch bit set.
func (l *LoggingPolicy) SelectCapability(caps []pdmsg.PDO) (pdmsg.RDO, pdmsg.PDO) {
	fmt.Fprintf(l.W, "received %d profiles:%s", len(caps), l.Sep)
	for i, p := range caps {
		fmt.Fprintf(l.W, "  %d) ", i+1)
		switch {
		case p.Type() == pdmsg.PDOTypeFixed:
			fx := pdmsg.FixedPDO(p)
			fmt.Fprintf(l.W, "fixed %.1fV @ max %.1fA", float32(fx.Voltage())/1000, float32(fx.MaxCurrent())/1000)
		case p.Type() == pdmsg.PDOTypeAugmented && p.AugmentedSubtype() == pdmsg.APDOSprPPS:
			pps := pdmsg.PPSPDO(p)
			limited := ""
			if pps.IsPowerLimited() {
				limited = " (power limited)"
			}
			fmt.Fprintf(l.W, "PPS %.1f-%.1fV @ max %.1fA%s",
				float32(pps.MinVoltage())/1000, float32(pps.MaxVoltage())/1000, float32(pps.MaxCurrent())/1000, limited)
		case p.Type() == pdmsg.PDOTypeAugmented && p.AugmentedSubtype() == pdmsg.APDOSprAVS:
			fmt.Fprint(l.W, "SPR-AVS")
		case p.Type() == pdmsg.PDOTypeAugmented && p.AugmentedSubtype() == pdmsg.APDOEprAVS:
			av := pdmsg.EPRAVSPDO(p)
			fmt.Fprintf(l.W, "EPR-AVS %.1f-%.1fV @ %dW", float32(av.MinVoltage())/1000, float32(av.MaxVoltage())/1000, av.PDP())
		case p.Type() == pdmsg.PDOTypeBattery:
			fmt.Fprint(l.W, "battery (not supported)")
		case p.Type() == pdmsg.PDOTypeVariable:
			fmt.Fprint(l.W, "variable (not supported)")
		default:
			fmt.Fprint(l.W, "unrecognized")
		}
		fmt.Fprint(l.W, l.Sep)
	}
	if l.Base == nil {
		return pdmsg.RDO(0), pdmsg.PDO(0)
	}
	return l.Base.SelectCapability(caps)
}
