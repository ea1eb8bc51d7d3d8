// Package dpm is the device policy manager boundary: the set of outbound
// events the policy engine reports progress through, and the synchronous
// callbacks it uses to ask what to request. No concrete board-level policy
// choice belongs in the core protocol stack; this package only defines the
// contract and a handful of generically useful policies (constant current,
// constant voltage, constant power) an application can use directly or wrap.
package dpm

import "github.com/tinypd/pdsink/pdmsg"

// EventKind enumerates the outbound messages the policy engine posts to the
// DPM as it moves through the sink state diagram.
type EventKind uint8

// Outbound DPM events.
const (
	EventStartup EventKind = iota
	EventTransitToDefault
	EventSrcCapsReceived
	EventSelectCapDone
	EventSrcDisabled
	EventAlert
	EventEPREntryFailed
	EventSnkReady
	EventHandshakeDone
	EventNewPowerLevelAccepted
	EventNewPowerLevelRejected
	EventCableAttached
	EventCableDetached
)

// Event is one outbound notification from PE to the DPM. Data carries the
// Alert Data Object for EventAlert or the failure reason for
// EventEPREntryFailed; it is unused by every other kind.
type Event struct {
	Kind EventKind
	Data uint32
}

// DPM is the device policy manager contract the policy engine is built
// against. Implementations run synchronously inside the task loop: none of
// these calls may block.
type DPM interface {
	// Notify delivers an outbound event.
	Notify(e Event)

	// SelectCapability picks which of caps to request, given the full
	// power-range set (SPR or SPR+EPR according to what PE currently has).
	// pdo is the entry rdo.ObjectPosition() identifies, returned alongside
	// the RDO so EPR callers can read its PDP/voltage range without a
	// second lookup.
	SelectCapability(caps []pdmsg.PDO) (rdo pdmsg.RDO, pdo pdmsg.PDO)

	// SinkCapabilities returns this sink's own advertised capability list,
	// for a Get_Sink_Cap/EPR_Get_Sink_Cap reply.
	SinkCapabilities() []pdmsg.PDO

	// EPRWatts returns the PDP this sink requests when entering EPR mode.
	EPRWatts() uint32
}
