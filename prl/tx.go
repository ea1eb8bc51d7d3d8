package prl

import (
	"github.com/tinypd/pdsink/fsm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
	"github.com/tinypd/pdsink/tcpc"
)

// Tx is the protocol layer's message-transmission sub-machine. Only the
// hardware-GoodCRC variant is implemented: every supported controller is
// expected to retransmit and wait for GoodCRC in hardware, so this
// machine's retry loop only engages when the driver reports outright
// failure, not a missing GoodCRC.
type Tx struct {
	prl     *PRL
	machine *fsm.Machine[Tx]

	chunk pdmsg.Chunk
}

func newTx(p *PRL) *Tx {
	t := &Tx{prl: p}
	t.machine = fsm.New(t, TxPHYLayerReset)
	return t
}

func (t *Tx) tick() { t.machine.Tick() }

func (t *Tx) forceLayerReset() { t.machine.Goto(TxPHYLayerReset) }

// enqueue stages chunk for transmission and wakes the machine if it is
// idle in Wait_for_Message_Request.
func (t *Tx) enqueue(chunk pdmsg.Chunk) {
	t.chunk = chunk
	t.prl.Port.PRLTxFlags.Set(port.PRLTxFlagChunkEnqueued)
}

// discard aborts whatever Tx is doing right now in favor of newly
// received data, per the "incoming RX wins" rule.
func (t *Tx) discard() {
	if t.machine.StateName() == TxWaitForMessageRequest.Name {
		return
	}
	t.machine.Goto(TxDiscardMessage)
}

// TxPHYLayerReset clears transmit bookkeeping after a layer reset.
var TxPHYLayerReset = &fsm.State[Tx]{
	Name: "tx-phy-layer-reset",
	Enter: func(t *Tx) *fsm.State[Tx] {
		t.prl.Port.TxRetryCounter = 0
		t.prl.Port.PRLTxFlags.ClearAll()
		return TxWaitForMessageRequest
	},
}

// TxWaitForMessageRequest idles until RCH or TCH enqueues a chunk.
var TxWaitForMessageRequest = &fsm.State[Tx]{
	Name: "tx-wait-for-message-request",
	Process: func(t *Tx) *fsm.State[Tx] {
		if !t.prl.Port.PRLTxFlags.TestAndClear(port.PRLTxFlagChunkEnqueued) {
			return nil
		}
		if !t.prl.Port.IsAMSActive() {
			return TxSnkStartOfAMS
		}
		return TxConstructMessage
	},
}

// TxSnkStartOfAMS marks the start of a new atomic message sequence.
var TxSnkStartOfAMS = &fsm.State[Tx]{
	Name: "tx-snk-start-of-ams",
	Enter: func(t *Tx) *fsm.State[Tx] {
		t.prl.Port.PRLTxFlags.Set(port.PRLTxFlagStartOfAMSDetected)
		return TxSnkPending
	},
}

// TxSnkPending gates the first transmission of an AMS on SinkTxOK,
// unless this is a Soft Reset which bypasses the gate.
var TxSnkPending = &fsm.State[Tx]{
	Name: "tx-snk-pending",
	Enter: func(t *Tx) *fsm.State[Tx] {
		t.prl.Driver.ReqActiveCC()
		return nil
	},
	Process: func(t *Tx) *fsm.State[Tx] {
		if isSoftReset(t.chunk) {
			return TxConstructMessage
		}
		if !t.prl.Driver.IsActiveCCDone() {
			return nil
		}
		if t.prl.Driver.GetCC(tcpc.Active) == tcpc.SinkTxOK {
			return TxConstructMessage
		}
		t.prl.Driver.ReqActiveCC()
		return nil
	},
}

// TxConstructMessage stamps the chunk header and hands it to the driver.
var TxConstructMessage = &fsm.State[Tx]{
	Name: "tx-construct-message",
	Enter: func(t *Tx) *fsm.State[Tx] {
		t.chunk.Header.SetMessageID(t.prl.Port.TxMsgIDCounter)
		t.chunk.Header.SetSpecRevision(t.prl.Port.Revision)
		t.prl.Port.SetTCPCTxStatus(tcpc.TransmitUnset)
		t.prl.Driver.ReqTransmit(t.chunk)
		return txWaitForPHYResponse
	},
}

// txWaitForPHYResponse is TxWaitForPHYResponse, assigned in init: the
// retry path leads from it back to TxConstructMessage, which would
// otherwise make the package-level state variables an initialization
// cycle.
var txWaitForPHYResponse *fsm.State[Tx]

func init() { txWaitForPHYResponse = TxWaitForPHYResponse }

// TxWaitForPHYResponse waits for the driver's verdict on the attempt.
var TxWaitForPHYResponse = &fsm.State[Tx]{
	Name: "tx-wait-for-phy-response",
	Process: func(t *Tx) *fsm.State[Tx] {
		switch t.prl.Driver.TransmitStatus() {
		case tcpc.TransmitSucceeded:
			return TxMatchMessageID
		case tcpc.TransmitFailed:
			return TxCheckRetryCounter
		default:
			return nil
		}
	},
}

// TxMatchMessageID exists for naming parity: the GoodCRC message id is
// validated by the driver before it reports success.
var TxMatchMessageID = &fsm.State[Tx]{
	Name: "tx-match-message-id",
	Enter: func(t *Tx) *fsm.State[Tx] {
		return TxMessageSent
	},
}

// TxMessageSent completes a successful transmission.
var TxMessageSent = &fsm.State[Tx]{
	Name: "tx-message-sent",
	Enter: func(t *Tx) *fsm.State[Tx] {
		t.prl.Port.AdvanceTxMsgID()
		t.prl.Port.TxRetryCounter = 0
		t.prl.Port.PRLTxFlags.Set(port.PRLTxFlagCompleted)
		return TxWaitForMessageRequest
	},
}

// TxCheckRetryCounter retries a failed transmission up to the negotiated
// revision's retry ceiling.
var TxCheckRetryCounter = &fsm.State[Tx]{
	Name: "tx-check-retry-counter",
	Enter: func(t *Tx) *fsm.State[Tx] {
		t.prl.Port.TxRetryCounter++
		if t.prl.Port.TxRetryCounter > t.prl.Port.MaxRetries() {
			return TxTransmissionError
		}
		return TxConstructMessage
	},
}

// TxTransmissionError gives up on the transmission and reports TX_ERROR.
var TxTransmissionError = &fsm.State[Tx]{
	Name: "tx-transmission-error",
	Enter: func(t *Tx) *fsm.State[Tx] {
		t.prl.Port.AdvanceTxMsgID()
		t.prl.Port.TxRetryCounter = 0
		t.prl.Port.PRLTxFlags.Set(port.PRLTxFlagError)
		return TxWaitForMessageRequest
	},
}

// TxDiscardMessage abandons an in-flight or queued transmission because a
// new inbound message preempted it.
var TxDiscardMessage = &fsm.State[Tx]{
	Name: "tx-discard-message",
	Enter: func(t *Tx) *fsm.State[Tx] {
		t.prl.Port.AdvanceTxMsgID()
		t.prl.Port.TxRetryCounter = 0
		t.prl.Port.PRLTxFlags.Set(port.PRLTxFlagDiscarded)
		return TxWaitForMessageRequest
	},
}

func isSoftReset(c pdmsg.Chunk) bool {
	return !c.Header.Extended() && c.Header.IsCtrl() && pdmsg.CtrlType(c.Header.MessageType()) == pdmsg.CtrlSoftReset
}
