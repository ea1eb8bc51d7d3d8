package prl

import (
	"github.com/tinypd/pdsink/fsm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// Rx is the protocol layer's message-reception sub-machine: it pulls a
// freshly received chunk from the driver, filters duplicate message ids,
// and routes accepted chunks to RCH or TCH. GoodCRC itself is handled by
// the driver, so the corresponding state here is a pass-through kept for
// naming parity with the reference machine.
type Rx struct {
	prl     *PRL
	machine *fsm.Machine[Rx]

	pending pdmsg.Chunk
}

func newRx(p *PRL) *Rx {
	r := &Rx{prl: p}
	r.machine = fsm.New(r, RxWaitForPHYMessage)
	return r
}

func (r *Rx) tick() { r.machine.Tick() }

// forceLayerReset requests a layer reset on the next tick, the way a
// Soft Reset control message or a protocol error elsewhere does.
func (r *Rx) forceLayerReset() { r.machine.Goto(RxLayerResetForReceive) }

// RxWaitForPHYMessage waits for the driver to report a freshly received
// chunk.
var RxWaitForPHYMessage = &fsm.State[Rx]{
	Name: "rx-wait-for-phy-message",
	Process: func(r *Rx) *fsm.State[Rx] {
		var c pdmsg.Chunk
		if !r.prl.Driver.FetchRxData(&c) {
			return nil
		}
		if !c.Header.Extended() && c.Header.IsCtrl() && pdmsg.CtrlType(c.Header.MessageType()) == pdmsg.CtrlSoftReset {
			return RxLayerResetForReceive
		}
		r.pending = c
		return RxSendGoodCRC
	},
}

// RxLayerResetForReceive tears every other sub-FSM back to its initial
// state and notifies PE that a Soft Reset arrived.
var RxLayerResetForReceive = &fsm.State[Rx]{
	Name: "rx-layer-reset-for-receive",
	Enter: func(r *Rx) *fsm.State[Rx] {
		r.prl.resetForSoftReset()
		r.prl.Port.RxMsgIDStored = -1
		r.prl.Port.PEFlags.Set(port.PEFlagSoftResetReceived)
		if r.prl.Port.NotifyPE != nil {
			r.prl.Port.NotifyPE.Notify()
		}
		return rxWaitForPHYMessage
	},
}

// RxSendGoodCRC exists for naming parity with the reference FSM; the
// driver already answered with GoodCRC in hardware.
var RxSendGoodCRC = &fsm.State[Rx]{
	Name: "rx-send-goodcrc",
	Enter: func(r *Rx) *fsm.State[Rx] {
		return RxCheckMessageID
	},
}

// RxCheckMessageID discards a message whose id matches the last one
// accepted, the rolling-counter duplicate filter required by the spec.
var RxCheckMessageID = &fsm.State[Rx]{
	Name: "rx-check-message-id",
	Enter: func(r *Rx) *fsm.State[Rx] {
		id := int8(r.pending.Header.MessageID())
		if id == r.prl.Port.RxMsgIDStored {
			return rxWaitForPHYMessage
		}
		return RxStoreMessageID
	},
}

// RxStoreMessageID records the accepted message id and routes the chunk
// to whichever of RCH/TCH owns it right now.
var RxStoreMessageID = &fsm.State[Rx]{
	Name: "rx-store-message-id",
	Enter: func(r *Rx) *fsm.State[Rx] {
		r.prl.Port.RxMsgIDStored = int8(r.pending.Header.MessageID())
		r.prl.routeInboundChunk(r.pending)
		return rxWaitForPHYMessage
	},
}

// rxWaitForPHYMessage is RxWaitForPHYMessage, assigned in init: the
// states that return to it would otherwise make the package-level state
// variables an initialization cycle.
var rxWaitForPHYMessage *fsm.State[Rx]

func init() { rxWaitForPHYMessage = RxWaitForPHYMessage }
