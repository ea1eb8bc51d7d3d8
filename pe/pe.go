// Package pe implements the USB-PD sink policy engine: the 23-state
// machine that runs source capability negotiation, the EPR entry/exit
// handshake, Hard/Soft Reset recovery, and the Ready state's response to
// everything the source can send once a contract is in place.
//
// PE drives the protocol layer (package prl) for every message it sends
// or receives and reports progress to a dpm.DPM, but never touches the
// driver or the wire directly - that split mirrors how prl.PRL itself
// only wires its five sub-FSMs together rather than owning their state.
package pe

import (
	"encoding/binary"

	"github.com/tinypd/pdsink/dpm"
	"github.com/tinypd/pdsink/fsm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
	"github.com/tinypd/pdsink/prl"
)

// pdState is this package's state-node type, named for brevity since
// every state in this package shares the same context type.
type pdState = fsm.State[PE]

// RequestProgress is the four-way classification CheckRequestProgress
// derives from the TX_COMPLETE/PROTOCOL_ERROR flags and the recorded PRL
// error kind for any
// state that just asked PRL to send a Request, EPR_Request or
// EPR_Keep_Alive and is waiting on the source's reply.
type RequestProgress uint8

// Request progress outcomes.
const (
	ProgressPending RequestProgress = iota
	ProgressFinished
	ProgressDiscarded
	ProgressFailed
)

// PE is the policy engine for one port.
type PE struct {
	Port *port.Port
	PRL  *prl.PRL
	DPM  dpm.DPM

	machine *fsm.Machine[PE]

	// Evaluate_Capability / Select_Capability scratch.
	pendingCaps    []pdmsg.PDO
	capsRevision   pdmsg.Revision
	rdoToSend      pdmsg.RDO
	pdoSelected    pdmsg.PDO
	requestIsEPR   bool
	eprEnterWatts  uint32
	bistMode       pdmsg.BISTMode
	giveSinkCapExt bool
	alertData      uint32

	requestProgress RequestProgress
	lastPRLError    port.PRLError

	reportedHandshake bool
}

// New returns a PE ready to Tick, wired against p/prl and reporting to d.
func New(p *port.Port, pr *prl.PRL, d dpm.DPM) *PE {
	pe := &PE{Port: p, PRL: pr, DPM: d}
	pe.machine = fsm.New(pe, PENotAttached)
	return pe
}

// StateName returns the name of the current state, for logging.
func (pe *PE) StateName() string { return pe.machine.StateName() }

// Tick runs one step of the FSM. Called unconditionally once per task
// pass: most states only act on a flag or timer, so re-running Process
// when nothing changed is a cheap no-op, the same contract tc.TC and
// prl's sub-FSMs already rely on.
//
// A Soft Reset arriving from the source preempts whatever PE is doing,
// the same way prl's own sub-FSMs force a layer reset on one: the
// protocol layer has already torn down Tx/RCH/TCH by the time it sets
// PEFlagSoftResetReceived, so PE only needs to jump state.
func (pe *PE) Tick() {
	if pe.Port.PEFlags.TestAndClear(port.PEFlagSoftResetReceived) {
		pe.machine.Goto(PESinkSoftReset)
	}
	pe.machine.Tick()
}

// drainPRLError reports whether RCH or TCH has reported a transfer
// failure since the last call and, if so, clears it and records which
// one in lastPRLError.
func (pe *PE) drainPRLError() bool {
	rch := pe.Port.RCHFlags.TestAndClear(port.RCHFlagErrorPending)
	tch := pe.Port.TCHFlags.TestAndClear(port.TCHFlagErrorPending)
	if !rch && !tch {
		return false
	}
	pe.lastPRLError = pe.Port.TCHError
	if pe.lastPRLError == port.PRLErrorNone {
		pe.lastPRLError = pe.Port.RCHError
	}
	pe.Port.TCHError = port.PRLErrorNone
	pe.Port.RCHError = port.PRLErrorNone
	return true
}

// tryReceive reports whether a new message arrived from PRL since the
// last call, returning it.
func (pe *PE) tryReceive() (port.Message, bool) {
	if !pe.Port.PEFlags.TestAndClear(port.PEFlagMsgReceived) {
		return port.Message{}, false
	}
	return pe.Port.RxMsg, true
}

// notify forwards an event to the DPM, if one was supplied.
func (pe *PE) notify(kind dpm.EventKind) { pe.notifyData(kind, 0) }

func (pe *PE) notifyData(kind dpm.EventKind, data uint32) {
	if pe.DPM != nil {
		pe.DPM.Notify(dpm.Event{Kind: kind, Data: data})
	}
}

// newHeader builds a header with the fields every message this sink
// sends shares: sink power role, UFP data role, current negotiated
// revision.
func (pe *PE) newHeader(messageType uint8) pdmsg.Header {
	var h pdmsg.Header
	h.SetMessageType(messageType)
	h.SetPowerRole(pdmsg.PowerRoleSink)
	h.SetDataRole(pdmsg.DataRoleUFP)
	h.SetSpecRevision(pe.Port.Revision)
	return h
}

// sendCtrl enqueues a bare control message.
func (pe *PE) sendCtrl(t pdmsg.CtrlType) {
	pe.PRL.EnqueueMessage(pdmsg.Message{Header: pe.newHeader(uint8(t))})
}

// sendData enqueues a data message carrying objs.
func (pe *PE) sendData(t pdmsg.DataType, objs ...uint32) {
	h := pe.newHeader(uint8(t))
	h.SetDataObjectCount(uint8(len(objs)))
	var m pdmsg.Message
	m.Header = h
	copy(m.Data[:], objs)
	pe.PRL.EnqueueMessage(m)
}

// sendExtControl enqueues an Extended_Control message carrying a 2-byte
// ECDB.
func (pe *PE) sendExtControl(t pdmsg.ExtCtrlType) {
	h := pe.newHeader(uint8(pdmsg.ExtExtendedControl))
	h.SetExtended(true)

	var eh pdmsg.ExtHeader
	eh.SetChunked(true)
	eh.SetDataSize(2)

	var ecdb pdmsg.ECDB
	ecdb.SetControlType(t)

	var em pdmsg.ExtMessage
	em.Header = h
	em.ExtHeader = eh
	binary.LittleEndian.PutUint16(em.Payload[:2], uint16(ecdb))
	pe.PRL.EnqueueExtMessage(em)
}

// sendRequest enqueues a Request or EPR_Request message for rdo.
func (pe *PE) sendRequest(rdo pdmsg.RDO, epr bool) {
	if !epr {
		pe.sendData(pdmsg.DataRequest, uint32(rdo))
		return
	}
	// EPR_Request carries the RDO plus the source PDO it targets, so the
	// source does not have to remember its own offer (6.4.9).
	pe.sendData(pdmsg.DataEPRRequest, uint32(rdo), uint32(pe.pdoSelected))
}

// sendSinkCapabilities replies to Get_Sink_Cap (extended=false) or
// EPR_Get_Sink_Cap (extended=true).
func (pe *PE) sendSinkCapabilities(extended bool) {
	caps := pe.DPM.SinkCapabilities()

	if !extended {
		objs := make([]uint32, 0, pdmsg.MaxDataObjects)
		for _, p := range caps {
			if len(objs) >= pdmsg.MaxDataObjects {
				break
			}
			objs = append(objs, uint32(p))
		}
		pe.sendData(pdmsg.DataSinkCapabilities, objs...)
		return
	}

	h := pe.newHeader(uint8(pdmsg.ExtEPRSinkCapabilities))
	h.SetExtended(true)
	var em pdmsg.ExtMessage
	em.Header = h
	n := 0
	for _, p := range caps {
		if n+4 > len(em.Payload) {
			break
		}
		binary.LittleEndian.PutUint32(em.Payload[n:], uint32(p))
		n += 4
	}
	var eh pdmsg.ExtHeader
	eh.SetChunked(true)
	eh.SetDataSize(uint16(n))
	em.ExtHeader = eh
	pe.PRL.EnqueueExtMessage(em)
}

// extractCaps pulls the PDO list out of a Source_Capabilities or
// EPR_Source_Capabilities message.
func extractCaps(msg port.Message) (caps []pdmsg.PDO, isEPR bool) {
	if !msg.IsExt {
		n := int(msg.Msg.DataObjectCount())
		out := make([]pdmsg.PDO, n)
		for i := 0; i < n; i++ {
			out[i] = pdmsg.PDO(msg.Msg.Data[i])
		}
		return out, false
	}
	n := msg.Ext.Len() / 4
	out := make([]pdmsg.PDO, n)
	for i := 0; i < n; i++ {
		out[i] = pdmsg.PDO(binary.LittleEndian.Uint32(msg.Ext.Payload[i*4:]))
	}
	return out, true
}
