package prl_test

import (
	"testing"

	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
	"github.com/tinypd/pdsink/prl"
	"github.com/tinypd/pdsink/tcpc"
	"github.com/tinypd/pdsink/tcpctest"
)

func newTestPort() (*port.Port, *tcpctest.FakeDriver) {
	var now uint32
	p := port.New(func() uint32 { return now })
	p.Revision = pdmsg.Revision30
	d := tcpctest.NewFakeDriver()
	d.SetCC(tcpc.SinkTxOK, tcpc.CCLevelNone) // polarity defaults to CC1
	return p, d
}

func pingMessage() pdmsg.Message {
	var m pdmsg.Message
	m.Header.SetMessageType(uint8(pdmsg.CtrlPing))
	return m
}

// TestOutboundMessageTransmits drives a plain control message from PE
// through TCH -> Tx -> the driver and checks PE sees completion.
func TestOutboundMessageTransmits(t *testing.T) {
	p, d := newTestPort()
	pl := prl.New(p, d)

	pl.EnqueueMessage(pingMessage())

	for i := 0; i < 10 && !p.PEFlags.Test(port.PEFlagTxComplete); i++ {
		pl.Tick()
	}
	if !p.PEFlags.Test(port.PEFlagTxComplete) {
		t.Fatalf("expected PEFlagTxComplete after enqueueing a message")
	}
	if d.LastSent().Header.MessageType() != uint8(pdmsg.CtrlPing) {
		t.Errorf("driver sent message type %d, want Ping", d.LastSent().Header.MessageType())
	}
}

// TestInboundMessageReassembled pushes a single non-extended chunk as if
// received from the partner and checks RCH routes it straight up to PE.
func TestInboundMessageReassembled(t *testing.T) {
	p, d := newTestPort()
	pl := prl.New(p, d)

	d.PushRx(pingMessage().ToChunk())

	for i := 0; i < 10 && !p.PEFlags.Test(port.PEFlagMsgReceived); i++ {
		pl.Tick()
	}
	if !p.PEFlags.Test(port.PEFlagMsgReceived) {
		t.Fatalf("expected PEFlagMsgReceived after an inbound chunk")
	}
	if p.RxMsg.IsExt {
		t.Fatalf("expected a non-extended RxMsg")
	}
	if p.RxMsg.Msg.Header.MessageType() != uint8(pdmsg.CtrlPing) {
		t.Errorf("RxMsg type = %d, want Ping", p.RxMsg.Msg.Header.MessageType())
	}
}

// TestHardResetFromPartner checks that a driver-reported hard reset
// suspends normal PRL processing until PE signals recovery is complete.
// A partner-initiated hard reset only indicates the event to PE; it does
// not ask the driver to send one back out.
func TestHardResetFromPartner(t *testing.T) {
	p, d := newTestPort()
	pl := prl.New(p, d)

	d.SignalHardReset()
	for i := 0; i < 10 && pl.IsRunning(); i++ {
		pl.Tick()
	}

	if pl.IsRunning() {
		t.Fatalf("expected PRL to be busy with a hard reset")
	}
	if d.HardResetsSent() != 0 {
		t.Errorf("a partner-initiated hard reset should not ask the driver to send one")
	}

	pl.SignalPEHardResetComplete()
	for i := 0; i < 10 && !pl.IsRunning(); i++ {
		pl.Tick()
	}
	if !pl.IsRunning() {
		t.Fatalf("expected PRL to resume normal operation once PE signals completion")
	}
}
