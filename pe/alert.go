package pe

import "github.com/tinypd/pdsink/dpm"

// PESinkSourceAlertReceived (4.5) forwards an Alert message's ADO to the
// DPM and returns to Ready; this stack does not itself interpret alert
// bits, leaving that to whatever policy the DPM implements.
var PESinkSourceAlertReceived = softReset(&pdState{
	Name: "pe-snk-source-alert-received",
	Enter: func(pe *PE) *pdState {
		pe.notifyData(dpm.EventAlert, pe.alertData)
		return PESinkReady
	},
})
