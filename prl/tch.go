package prl

import (
	"github.com/tinypd/pdsink/fsm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// TCH splits outgoing extended messages into chunks and drives the
// partner's request/response chunk protocol; non-extended messages pass
// straight through to Tx.
type TCH struct {
	prl     *PRL
	machine *fsm.Machine[TCH]

	outgoing   port.Message
	sendingExt pdmsg.ExtMessage
	chunkIndex int
	reroute    pdmsg.Chunk
}

func newTCH(p *PRL) *TCH {
	t := &TCH{prl: p}
	t.machine = fsm.New(t, TCHWaitForMessageRequestFromPolicyEngine)
	return t
}

func (t *TCH) tick() { t.machine.Tick() }

func (t *TCH) forceLayerReset() { t.machine.Goto(TCHWaitForMessageRequestFromPolicyEngine) }

// enqueueFromPE stages msg to be transmitted.
func (t *TCH) enqueueFromPE(msg port.Message) {
	t.outgoing = msg
	t.prl.Port.TCHFlags.Set(port.TCHFlagMsgFromPEEnqueued)
}

// deliverChunkRequest routes an inbound chunk-request chunk here while a
// chunked send is in flight.
func (t *TCH) deliverChunkRequest(c pdmsg.Chunk) {
	t.reroute = c
	t.prl.Port.TCHFlags.Set(port.TCHFlagChunkFromRx)
}

// isWaiting reports whether TCH has nothing in flight: used by Rx's
// chunk-routing rule to decide whether an inbound chunk belongs to TCH
// or RCH.
func (t *TCH) isWaiting() bool {
	return t.machine.StateName() == TCHWaitForMessageRequestFromPolicyEngine.Name
}

// TCHWaitForMessageRequestFromPolicyEngine idles until PE enqueues a
// message.
var TCHWaitForMessageRequestFromPolicyEngine = &fsm.State[TCH]{
	Name: "tch-wait-for-message-request-from-policy-engine",
	Process: func(t *TCH) *fsm.State[TCH] {
		if !t.prl.Port.TCHFlags.TestAndClear(port.TCHFlagMsgFromPEEnqueued) {
			return nil
		}
		if !t.outgoing.IsExt {
			return TCHPassDownMessage
		}
		t.sendingExt = t.outgoing.Ext
		t.chunkIndex = 0
		return TCHPrepareToSendChunkedMessage
	},
}

// TCHPassDownMessage hands a non-extended message straight to Tx.
var TCHPassDownMessage = &fsm.State[TCH]{
	Name: "tch-pass-down-message",
	Enter: func(t *TCH) *fsm.State[TCH] {
		t.prl.enqueueTx(t.outgoing.Msg.ToChunk())
		return TCHWaitForTransmissionComplete
	},
}

// TCHWaitForTransmissionComplete waits for Tx to finish.
var TCHWaitForTransmissionComplete = &fsm.State[TCH]{
	Name: "tch-wait-for-transmission-complete",
	Process: func(t *TCH) *fsm.State[TCH] {
		if t.prl.Port.PRLTxFlags.TestAndClear(port.PRLTxFlagCompleted) {
			return TCHMessageSent
		}
		if t.prl.Port.PRLTxFlags.TestAndClear(port.PRLTxFlagError) {
			t.prl.Port.TCHError = port.TCHErrorSendFail
			return TCHReportError
		}
		if t.prl.Port.PRLTxFlags.TestAndClear(port.PRLTxFlagDiscarded) {
			t.prl.Port.TCHError = port.TCHErrorDiscarded
			return TCHReportError
		}
		return nil
	},
}

// TCHMessageSent notifies PE that transmission succeeded.
var TCHMessageSent = &fsm.State[TCH]{
	Name: "tch-message-sent",
	Enter: func(t *TCH) *fsm.State[TCH] {
		t.prl.Port.PEFlags.Set(port.PEFlagTxComplete)
		if t.prl.Port.NotifyPE != nil {
			t.prl.Port.NotifyPE.Notify()
		}
		return tchWaitForMessage
	},
}

// TCHPrepareToSendChunkedMessage resets chunk bookkeeping before the
// first Construct_Chunked_Message.
var TCHPrepareToSendChunkedMessage = &fsm.State[TCH]{
	Name: "tch-prepare-to-send-chunked-message",
	Enter: func(t *TCH) *fsm.State[TCH] {
		t.prl.Port.TCHChunkNumberToSend = 0
		return TCHConstructChunkedMessage
	},
}

// TCHConstructChunkedMessage builds the next chunk of the outgoing
// message.
var TCHConstructChunkedMessage = &fsm.State[TCH]{
	Name: "tch-construct-chunked-message",
	Enter: func(t *TCH) *fsm.State[TCH] {
		t.sendingExt.ExtHeader.SetChunked(true)
		c := t.sendingExt.ChunkAt(t.chunkIndex)
		t.prl.enqueueTx(c)
		return TCHSendingChunkedMessage
	},
}

// TCHSendingChunkedMessage waits for the chunk's transmission to
// complete.
var TCHSendingChunkedMessage = &fsm.State[TCH]{
	Name: "tch-sending-chunked-message",
	Process: func(t *TCH) *fsm.State[TCH] {
		if t.prl.Port.PRLTxFlags.TestAndClear(port.PRLTxFlagError) {
			t.prl.Port.TCHError = port.TCHErrorSendFail
			return TCHReportError
		}
		if t.prl.Port.PRLTxFlags.TestAndClear(port.PRLTxFlagDiscarded) {
			t.prl.Port.TCHError = port.TCHErrorDiscarded
			return TCHReportError
		}
		if !t.prl.Port.PRLTxFlags.TestAndClear(port.PRLTxFlagCompleted) {
			return nil
		}
		if t.chunkIndex+1 >= t.sendingExt.ChunkCount() {
			return TCHMessageSent
		}
		t.chunkIndex++
		t.prl.Port.TCHChunkNumberToSend = int8(t.chunkIndex)
		return TCHWaitChunkRequest
	},
}

// TCHWaitChunkRequest waits for the partner to request the next chunk.
var TCHWaitChunkRequest = &fsm.State[TCH]{
	Name: "tch-wait-chunk-request",
	Enter: func(t *TCH) *fsm.State[TCH] {
		t.prl.Port.Timers.Start(port.TimeoutChunkSenderRequest)
		return nil
	},
	Process: func(t *TCH) *fsm.State[TCH] {
		if t.prl.Port.TCHFlags.TestAndClear(port.TCHFlagChunkFromRx) {
			eh := t.reroute.ExtHeader()
			if !t.reroute.Header.Extended() || !eh.RequestChunk() {
				return TCHMessageReceived
			}
			if int(eh.ChunkNumber()) != t.chunkIndex {
				t.prl.Port.TCHError = port.TCHErrorBadSequence
				return TCHReportError
			}
			return tchConstructChunk
		}
		if t.prl.Port.Timers.IsExpired(port.TimeoutChunkSenderRequest) {
			t.prl.Port.TCHError = port.TCHErrorSequenceTimeout
			return TCHReportError
		}
		return nil
	},
	Exit: func(t *TCH) {
		t.prl.Port.Timers.Stop(port.TimeoutChunkSenderRequest)
	},
}

// TCHMessageReceived re-routes a chunk that turned out not to be the
// expected request down to RCH, and reports the interrupted send as a
// discard.
var TCHMessageReceived = &fsm.State[TCH]{
	Name: "tch-message-received",
	Enter: func(t *TCH) *fsm.State[TCH] {
		t.prl.rch.deliver(t.reroute)
		t.prl.Port.TCHError = port.TCHErrorDiscarded
		return TCHReportError
	},
}

// TCHReportError surfaces a TCH failure to PE.
var TCHReportError = &fsm.State[TCH]{
	Name: "tch-report-error",
	Enter: func(t *TCH) *fsm.State[TCH] {
		t.prl.Port.TCHFlags.Set(port.TCHFlagErrorPending)
		if t.prl.Port.NotifyPE != nil {
			t.prl.Port.NotifyPE.Notify()
		}
		return tchWaitForMessage
	},
}

// tchWaitForMessage and tchConstructChunk are
// TCHWaitForMessageRequestFromPolicyEngine and TCHConstructChunkedMessage,
// assigned in init: the states that lead back to them would otherwise
// make the package-level state variables an initialization cycle.
var (
	tchWaitForMessage *fsm.State[TCH]
	tchConstructChunk *fsm.State[TCH]
)

func init() {
	tchWaitForMessage = TCHWaitForMessageRequestFromPolicyEngine
	tchConstructChunk = TCHConstructChunkedMessage
}
