// Package prl is the USB-PD protocol layer: five cooperating sub-machines
// (Rx, Tx, RCH, TCH, HR) that turn driver-level chunks into reassembled
// messages for the policy engine, and PE messages back into chunks for
// the driver. PRL owns none of its sub-FSMs' state directly; it only
// wires them together and drives their tick order.
package prl

import (
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
	"github.com/tinypd/pdsink/tcpc"
)

// PRL is one port's protocol layer.
type PRL struct {
	Port   *port.Port
	Driver tcpc.Driver

	rx  *Rx
	tx  *Tx
	rch *RCH
	tch *TCH
	hr  *HR
}

// New builds a protocol layer bound to p and d.
func New(p *port.Port, d tcpc.Driver) *PRL {
	prl := &PRL{Port: p, Driver: d}
	prl.rx = newRx(prl)
	prl.tx = newTx(prl)
	prl.rch = newRCH(prl)
	prl.tch = newTCH(prl)
	prl.hr = newHR(prl)
	return prl
}

// Tick runs one task pass of the protocol layer, in the order required by
// the concurrent-event cases in the PRL specification: a transmit success
// must be consumed by Tx before a same-tick RX can discard it, and a
// chunk accepted by RCH/TCH partway through the pass must be allowed to
// re-enter TCH/RCH promptly rather than waiting for the next pass.
func (p *PRL) Tick() {
	if p.Driver.HardResetReceived() {
		p.hr.requestFromPartner()
	}

	if !p.hr.isIdle() {
		p.hr.tick()
		return
	}

	if p.Driver.TransmitStatus() == tcpc.TransmitSucceeded {
		p.tx.tick()
	}
	p.rx.tick()
	p.rch.tick()
	p.tch.tick()
	p.tx.tick()
	p.tch.tick()
	p.tch.tick()
	p.rch.tick()

	p.hr.tick()
}

// EnqueueMessage stages a non-extended message from PE for transmission.
func (p *PRL) EnqueueMessage(msg pdmsg.Message) {
	p.tch.enqueueFromPE(port.Message{IsExt: false, Msg: msg})
}

// EnqueueExtMessage stages a chunked extended message from PE for
// transmission.
func (p *PRL) EnqueueExtMessage(msg pdmsg.ExtMessage) {
	p.tch.enqueueFromPE(port.Message{IsExt: true, Ext: msg})
}

// RequestHardReset asks the protocol layer to drive a PE-initiated hard
// reset.
func (p *PRL) RequestHardReset() { p.hr.requestFromPE() }

// SignalPEHardResetComplete tells HR that PE has finished its own hard
// reset recovery, letting the protocol layer resume normal operation.
func (p *PRL) SignalPEHardResetComplete() {
	p.Port.PRLHRFlags.Set(port.PRLHRFlagPEHardResetComplete)
}

// IsRunning reports whether the protocol layer is out of hard reset and
// processing messages normally.
func (p *PRL) IsRunning() bool { return p.hr.isIdle() }

// SetBISTCarrierEnable asks the driver to turn the BIST carrier signal on
// or off, on PE's behalf.
func (p *PRL) SetBISTCarrierEnable(enable bool) { p.Driver.ReqBISTCarrierEnable(enable) }

// IsBISTCarrierEnableDone reports whether the driver finished the last
// SetBISTCarrierEnable request.
func (p *PRL) IsBISTCarrierEnableDone() bool { return p.Driver.IsBISTCarrierEnableDone() }

// enqueueTx hands a chunk straight to Tx, bypassing RCH/TCH bookkeeping;
// used for RCH's and TCH's own protocol traffic (chunk requests, chunked
// message bodies).
func (p *PRL) enqueueTx(c pdmsg.Chunk) { p.tx.enqueue(c) }

// routeInboundChunk implements Rx's "chunk message router" rule: if TCH
// is not waiting (it has a PE-enqueued message in flight, or is mid-chunk)
// it owns the chunk, since it is the only sub-FSM expecting a chunk
// request or a TCH-interrupting message right now; otherwise RCH takes
// it. A transmission in flight is discarded, since an inbound message
// always outranks whatever this port was about to send.
func (p *PRL) routeInboundChunk(c pdmsg.Chunk) {
	p.tx.discard()
	if !p.tch.isWaiting() {
		p.tch.deliverChunkRequest(c)
		return
	}
	p.rch.deliver(c)
}

// resetForSoftReset tears Tx, RCH and TCH back to their initial states,
// the recovery both a Soft Reset control message and a Hard Reset demand
// before anything else happens.
func (p *PRL) resetForSoftReset() {
	p.tx.forceLayerReset()
	p.rch.forceLayerReset()
	p.tch.forceLayerReset()
}
