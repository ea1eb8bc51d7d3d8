package dpm

import "github.com/tinypd/pdsink/pdmsg"

// Manager is the default DPM: a Policy decides which offered capability to
// request, a fixed sink capability list answers Get_Sink_Cap, and
// notifications are handed to an injected sink so an application can log,
// drive UI, or simply ignore them.
type Manager struct {
	Policy    Policy
	SinkPDOs  []pdmsg.PDO
	EPRWattsN uint32
	OnEvent   func(Event)
}

// Notify forwards e to OnEvent, if one was supplied.
func (m *Manager) Notify(e Event) {
	if m.OnEvent != nil {
		m.OnEvent(e)
	}
}

// SelectCapability delegates to Policy. A Manager with no Policy returns
// a zero RDO, which PE turns into a request for the position-1 vSafe5V
// supply with the Capability Mismatch bit set.
func (m *Manager) SelectCapability(caps []pdmsg.PDO) (pdmsg.RDO, pdmsg.PDO) {
	if m.Policy == nil {
		return pdmsg.RDO(0), pdmsg.PDO(0)
	}
	return m.Policy.SelectCapability(caps)
}

// SinkCapabilities returns this sink's own advertised capability list.
func (m *Manager) SinkCapabilities() []pdmsg.PDO { return m.SinkPDOs }

// EPRWatts returns the PDP this sink requests when entering EPR mode.
func (m *Manager) EPRWatts() uint32 { return m.EPRWattsN }
