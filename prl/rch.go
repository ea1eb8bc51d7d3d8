package prl

import (
	"github.com/tinypd/pdsink/fsm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// RCH reassembles inbound chunked extended messages and hands the
// completed message up to PE. Unchunked legacy extended messages are out
// of scope and are rejected as a bad sequence.
type RCH struct {
	prl     *PRL
	machine *fsm.Machine[RCH]

	assembling pdmsg.ExtMessage
	firstChunk pdmsg.Chunk
}

func newRCH(p *PRL) *RCH {
	r := &RCH{prl: p}
	r.machine = fsm.New(r, RCHWaitForMessageFromProtocolLayer)
	return r
}

func (r *RCH) tick() { r.machine.Tick() }

func (r *RCH) forceLayerReset() { r.machine.Goto(RCHWaitForMessageFromProtocolLayer) }

// deliver hands an inbound extended chunk to RCH.
func (r *RCH) deliver(c pdmsg.Chunk) {
	r.firstChunk = c
	r.prl.Port.RCHFlags.Set(port.RCHFlagRxEnqueued)
}

// RCHWaitForMessageFromProtocolLayer idles until Rx routes a chunk here.
var RCHWaitForMessageFromProtocolLayer = &fsm.State[RCH]{
	Name: "rch-wait-for-message-from-protocol-layer",
	Process: func(r *RCH) *fsm.State[RCH] {
		if !r.prl.Port.RCHFlags.TestAndClear(port.RCHFlagRxEnqueued) {
			return nil
		}
		if !r.firstChunk.Header.Extended() {
			r.prl.Port.RxMsg = port.Message{Msg: pdmsg.ChunkToMessage(r.firstChunk)}
			r.prl.Port.PEFlags.Set(port.PEFlagMsgReceived)
			if r.prl.Port.NotifyPE != nil {
				r.prl.Port.NotifyPE.Notify()
			}
			return nil
		}
		if !r.firstChunk.ExtHeader().Chunked() {
			r.prl.Port.RCHError = port.RCHErrorBadSequence
			return RCHReportError // legacy unchunked extended messages are unsupported
		}
		r.assembling = pdmsg.ExtMessage{
			Header:    r.firstChunk.Header,
			ExtHeader: r.firstChunk.ExtHeader(),
		}
		r.prl.Port.RCHChunkNumberExpected = 0
		return RCHProcessingExtendedMessage
	},
}

// RCHProcessingExtendedMessage validates and appends the chunk currently
// held in firstChunk/next inbound chunk into the reassembly buffer.
var RCHProcessingExtendedMessage = &fsm.State[RCH]{
	Name: "rch-processing-extended-message",
	Enter: func(r *RCH) *fsm.State[RCH] {
		return r.acceptChunk(r.firstChunk)
	},
	Process: func(r *RCH) *fsm.State[RCH] {
		if !r.prl.Port.RCHFlags.TestAndClear(port.RCHFlagRxEnqueued) {
			return nil
		}
		return r.acceptChunk(r.firstChunk)
	},
}

func (r *RCH) acceptChunk(c pdmsg.Chunk) *fsm.State[RCH] {
	eh := c.ExtHeader()
	if int8(eh.ChunkNumber()) != r.prl.Port.RCHChunkNumberExpected ||
		eh.ChunkNumber() >= maxChunksPerMsg ||
		eh.DataSize() > pdmsg.MaxExtDataBytes ||
		eh.RequestChunk() ||
		!eh.Chunked() {
		r.prl.Port.RCHError = port.RCHErrorBadSequence
		return RCHReportError
	}

	start := int(eh.ChunkNumber()) * pdmsg.MaxChunkDataBytes
	copy(r.assembling.Payload[start:], c.ChunkPayload())

	total := int(r.assembling.ExtHeader.DataSize())
	if (int(eh.ChunkNumber())+1)*pdmsg.MaxChunkDataBytes >= total {
		return RCHPassUpMessage
	}

	r.prl.Port.RCHChunkNumberExpected++
	return rchRequestingChunk
}

// RCHRequestingChunk asks the partner for the next chunk.
var RCHRequestingChunk = &fsm.State[RCH]{
	Name: "rch-requesting-chunk",
	Enter: func(r *RCH) *fsm.State[RCH] {
		var req pdmsg.Chunk
		req.Header = r.assembling.Header
		req.Header.SetDataObjectCount(1)
		req.Header.SetExtended(true)
		eh := r.assembling.ExtHeader
		eh.SetRequestChunk(true)
		eh.SetChunkNumber(uint8(r.prl.Port.RCHChunkNumberExpected))
		eh.SetDataSize(0)
		req.SetExtHeader(eh)
		req.DataLen = 2

		r.prl.Port.Timers.Stop(port.TimeoutSenderResponse)
		r.prl.enqueueTx(req)
		return RCHWaitingChunk
	},
}

// RCHWaitingChunk arms the sequence timer and waits for the next chunk.
var RCHWaitingChunk = &fsm.State[RCH]{
	Name: "rch-waiting-chunk",
	Enter: func(r *RCH) *fsm.State[RCH] {
		r.prl.Port.Timers.Start(port.TimeoutChunkSenderResponse)
		r.prl.Port.Timers.Start(port.TimeoutSenderResponse)
		return nil
	},
	Process: func(r *RCH) *fsm.State[RCH] {
		if r.prl.Port.PRLTxFlags.TestAndClear(port.PRLTxFlagError) {
			r.prl.Port.RCHError = port.RCHErrorSendFail
			return RCHReportError
		}
		if r.prl.Port.RCHFlags.TestAndClear(port.RCHFlagRxEnqueued) {
			if !r.firstChunk.Header.Extended() {
				r.prl.Port.RCHError = port.RCHErrorSequenceDiscarded
				return RCHReportError
			}
			return r.acceptChunk(r.firstChunk)
		}
		if r.prl.Port.Timers.IsExpired(port.TimeoutChunkSenderResponse) {
			r.prl.Port.RCHError = port.RCHErrorSequenceTimeout
			return RCHReportError
		}
		return nil
	},
	Exit: func(r *RCH) {
		r.prl.Port.Timers.Stop(port.TimeoutChunkSenderResponse)
	},
}

// RCHPassUpMessage delivers the fully reassembled message to PE.
var RCHPassUpMessage = &fsm.State[RCH]{
	Name: "rch-pass-up-message",
	Enter: func(r *RCH) *fsm.State[RCH] {
		r.prl.Port.RxMsg = port.Message{IsExt: true, Ext: r.assembling}
		r.prl.Port.PEFlags.Set(port.PEFlagMsgReceived)
		if r.prl.Port.NotifyPE != nil {
			r.prl.Port.NotifyPE.Notify()
		}
		return rchWaitForMessage
	},
}

// RCHReportError surfaces an RCH failure to PE.
var RCHReportError = &fsm.State[RCH]{
	Name: "rch-report-error",
	Enter: func(r *RCH) *fsm.State[RCH] {
		if r.prl.Port.RCHError == port.PRLErrorNone {
			r.prl.Port.RCHError = port.RCHErrorBadSequence
		}
		r.prl.Port.RCHFlags.Set(port.RCHFlagErrorPending)
		if r.prl.Port.NotifyPE != nil {
			r.prl.Port.NotifyPE.Notify()
		}
		return rchWaitForMessage
	},
}

const maxChunksPerMsg = 10

// rchWaitForMessage and rchRequestingChunk are RCHWaitForMessageFromProtocolLayer
// and RCHRequestingChunk, assigned in init: the states that lead back to
// them would otherwise make the package-level state variables an
// initialization cycle.
var (
	rchWaitForMessage  *fsm.State[RCH]
	rchRequestingChunk *fsm.State[RCH]
)

func init() {
	rchWaitForMessage = RCHWaitForMessageFromProtocolLayer
	rchRequestingChunk = RCHRequestingChunk
}
