// Package port holds the state shared by every sub-FSM of a single
// Type-C port: the sink's negotiated contract, the in-flight and
// reassembled messages, the timers, and the flag sets the state machines
// use to hand work to each other. It plays the role the teacher's
// PolicyEngine struct plays for a single FSM, generalized to the seven
// cooperating machines (TC, PE, PRL's five sub-FSMs) this stack runs.
package port

import (
	"sync/atomic"

	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/tcpc"
)

// nRetryCount is the number of retransmission retries allowed once a
// spec revision 3.0 (or later) contract is in effect; nRetryCountRev20
// applies while talking to a 2.0-only partner.
const (
	nRetryCount      = 3
	nRetryCountRev20 = 2
)

// MaxPdoObjects and MaxPdoObjectsSPR bound how many power data objects a
// source or sink capabilities message may carry, mirroring rev 3.2's EPR
// (11) and SPR (7) limits.
const (
	MaxPdoObjects    = 11
	MaxPdoObjectsSPR = 7
)

// nHardResetCount bounds consecutive hard resets: the policy engine gives
// up and reports to the DPM once its counter exceeds this value, which
// happens on hard reset number nHardResetCount+1.
const nHardResetCount = 2

// PRLError enumerates protocol-layer failures the policy engine needs to
// react to. Defined here, rather than in package prl, so that both port
// and prl can refer to it without an import cycle.
type PRLError uint8

// Protocol layer errors.
const (
	PRLErrorNone PRLError = iota
	RCHErrorBadSequence
	RCHErrorSendFail
	RCHErrorSequenceDiscarded
	RCHErrorSequenceTimeout
	TCHErrorEnquireDiscarded
	TCHErrorBadSequence
	TCHErrorSendFail
	TCHErrorDiscarded
	TCHErrorSequenceTimeout
)

// Notifier delivers an asynchronous wakeup to one of the port's state
// machines, standing in for the original's message router: rather than
// every sub-FSM polling a shared struct on a fixed tick, whichever side
// changed something pokes the consumer so the task loop can run its
// Process step promptly.
type Notifier interface {
	Notify()
}

// NotifierFunc adapts a plain function to a Notifier.
type NotifierFunc func()

// Notify implements Notifier.
func (f NotifierFunc) Notify() { f() }

// Port is the state shared across TC, PE and the PRL sub-FSMs for one
// Type-C connector. All exported flag/field fields are written from at
// most one state machine at a time (see the concurrency notes above each
// FSM package), except where noted atomic.
type Port struct {
	Timers *Timers

	Attached atomic.Bool

	// Policy engine data.
	PEFlags     PEFlags
	DPMRequests DPMRequestFlags

	RxMsg Message
	TxMsg Message

	SourceCaps       [MaxPdoObjects]pdmsg.PDO
	SourceCapsCount  uint8
	HardResetCounter uint8

	// RDOContracted tracks the object position and type of the currently
	// contracted RDO; RDOToRequest is staged by the DPM/PE for the next
	// Request message.
	RDOContracted pdmsg.RDO
	RDOToRequest  pdmsg.RDO

	// Protocol layer / driver data.
	PRLHRFlags PRLHRFlags
	PRLTxFlags PRLTxFlags
	RCHFlags   RCHFlags
	TCHFlags   TCHFlags

	TxMsgIDCounter         uint8 // cyclic 0..7
	TxRetryCounter         int8
	RxMsgIDStored          int8
	RCHChunkNumberExpected int8
	TCHChunkNumberToSend   int8
	RCHError               PRLError
	TCHError               PRLError

	// Shared with the driver.
	RxChunk      pdmsg.Chunk
	TxChunk      pdmsg.Chunk
	tcpcTxStatus atomic.Int32 // tcpc.TransmitStatus

	// Revision negotiated with the source. This stack only ever talks
	// SOP to the port partner, so a single revision (unlike a full stack
	// that must track SOP'/SOP'' separately) is enough.
	Revision pdmsg.Revision

	// Wakeup notifiers for each consumer of port state.
	NotifyTask Notifier
	NotifyTC   Notifier
	NotifyPE   Notifier
	NotifyPRL  Notifier
	NotifyDPM  Notifier

	waitDPMTransitToDefault atomic.Bool
}

// New builds a Port with its timers driven by now and its rolling
// receive-message-id tracker primed to "none seen yet". A zero-valued
// Port would otherwise start with RxMsgIDStored == 0, indistinguishable
// from having already accepted a message with id 0, and silently drop
// the first inbound message from a source whose counter also starts at 0.
func New(now func() uint32) *Port {
	return &Port{
		Timers:        NewTimers(now),
		RxMsgIDStored: -1,
	}
}

// Message is a reassembled message of either kind, paired with which kind
// it is so PE/PRL don't need a second signal.
type Message struct {
	IsExt bool
	Msg   pdmsg.Message
	Ext   pdmsg.ExtMessage
}

// AdvanceTxMsgID advances the 3-bit cyclic message id counter used to
// stamp each transmitted message.
func (p *Port) AdvanceTxMsgID() {
	p.TxMsgIDCounter = (p.TxMsgIDCounter + 1) & 0b111
}

// TCPCTxStatus returns the last transmit status reported by the driver.
func (p *Port) TCPCTxStatus() tcpc.TransmitStatus {
	return tcpc.TransmitStatus(p.tcpcTxStatus.Load())
}

// SetTCPCTxStatus records a transmit status reported by the driver.
func (p *Port) SetTCPCTxStatus(s tcpc.TransmitStatus) {
	p.tcpcTxStatus.Store(int32(s))
}

// IsAMSActive reports whether an atomic message sequence is currently
// open.
func (p *Port) IsAMSActive() bool { return p.PEFlags.Test(PEFlagAMSActive) }

// WaitDPMTransitToDefault records whether the policy engine is waiting on
// the DPM to finish transitioning back to default parameters, e.g. after
// a hard reset.
func (p *Port) WaitDPMTransitToDefault(enable bool) { p.waitDPMTransitToDefault.Store(enable) }

// IsWaitingDPMTransitToDefault reports the flag set by
// WaitDPMTransitToDefault.
func (p *Port) IsWaitingDPMTransitToDefault() bool { return p.waitDPMTransitToDefault.Load() }

// IsPRLRunning reports whether the protocol layer has finished its PHY
// layer reset and is processing messages normally.
func (p *Port) IsPRLRunning() bool {
	return !p.PRLHRFlags.Test(PRLHRFlagHardResetFromPartner) && !p.PRLHRFlags.Test(PRLHRFlagHardResetFromPE)
}

// IsPRLBusy reports whether the protocol layer currently has a
// transmission in flight or queued.
func (p *Port) IsPRLBusy() bool {
	return p.PRLTxFlags.Test(PRLTxFlagChunkEnqueued) || p.TCPCTxStatus() == tcpc.TransmitWaiting
}

// MaxRetries returns the number of retransmission retries allowed for the
// currently negotiated revision.
func (p *Port) MaxRetries() int8 {
	if p.Revision > pdmsg.Revision20 {
		return nRetryCount
	}
	return nRetryCountRev20
}

// MaxHardResets returns nHardResetCount: once the consecutive hard reset
// counter exceeds it, the policy engine gives up and reports Src_Disabled
// to the DPM.
func (p *Port) MaxHardResets() uint8 { return nHardResetCount }
