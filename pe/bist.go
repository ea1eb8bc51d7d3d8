package pe

import (
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// PESinkBISTActivate (4.5) dispatches a received BIST message by mode.
// Only Carrier Mode needs a dedicated state: every other mode this stack
// recognizes is either a no-op from PE's point of view or already
// rejected upstream by Ready's message dispatch.
var PESinkBISTActivate = softReset(&pdState{
	Name: "pe-snk-bist-activate",
	Enter: func(pe *PE) *pdState {
		if pe.bistMode == pdmsg.BISTModeCarrier {
			return PESinkBISTCarrierMode
		}
		return PESinkReady
	},
})

// PESinkBISTCarrierMode (4.5) drives the physical layer's BIST carrier
// signal for tBISTContMode, a test-equipment-only mode the source leaves
// by cutting power.
var PESinkBISTCarrierMode = &pdState{
	Name: "pe-snk-bist-carrier-mode",
	Enter: func(pe *PE) *pdState {
		pe.PRL.SetBISTCarrierEnable(true)
		pe.Port.Timers.Start(port.TimeoutBISTCarrierMode)
		return nil
	},
	Process: func(pe *PE) *pdState {
		if pe.Port.Timers.IsExpired(port.TimeoutBISTCarrierMode) {
			return PESinkStartup
		}
		return nil
	},
	Exit: func(pe *PE) {
		pe.Port.Timers.Stop(port.TimeoutBISTCarrierMode)
		pe.PRL.SetBISTCarrierEnable(false)
	},
}
