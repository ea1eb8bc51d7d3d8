// Package tcpctest provides a fake tcpc.Driver for testing the PE, PRL
// and TC state machines without real silicon.
package tcpctest

import (
	"sync"

	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/tcpc"
)

// FakeDriver is an in-memory tcpc.Driver. Every Req/IsXDone pair
// completes on the very next poll unless a test sets a Delay* counter,
// so most PE/PRL tests can treat it as synchronous.
type FakeDriver struct {
	mu sync.Mutex

	cc       [2]tcpc.CCLevel
	vbusOK   bool
	polarity tcpc.Polarity
	hwFeat   tcpc.HWFeatures

	rxEnabled bool
	rx        []pdmsg.Chunk

	txStatus    tcpc.TransmitStatus
	lastSent    pdmsg.Chunk
	hardResetRx bool
	hardResets  int

	// These report done, not pending: like leapsync.LeapSync.IsReady,
	// they stay true once a request completes until the next Req call,
	// since FakeDriver resolves every request synchronously.
	scanCCDone    bool
	activeCCDone  bool
	setPolDone    bool
	rxEnableDone  bool
	bistDone      bool
	hardResetDone bool

	// SetupErr, if set, is returned by Setup.
	SetupErr error

	// DelayTransmit, when > 0, holds TransmitStatus at TransmitWaiting
	// for that many polls before resolving to TransmitSucceeded.
	DelayTransmit int
}

// NewFakeDriver returns a FakeDriver with its receiver enabled and with
// hardware GoodCRC send/receive and retransmit automated, matching a
// typical modern TCPC chip.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		rxEnabled: true,
		txStatus:  tcpc.TransmitUnset,
		hwFeat: tcpc.HWFeatures{
			RxGoodCRCSend:    true,
			TxGoodCRCReceive: true,
			TxRetransmit:     true,
		},
	}
}

func (f *FakeDriver) Setup() error { return f.SetupErr }

func (f *FakeDriver) ReqScanCC() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanCCDone = true
}

func (f *FakeDriver) IsScanCCDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scanCCDone
}

func (f *FakeDriver) ReqActiveCC() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activeCCDone = true
}

func (f *FakeDriver) IsActiveCCDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeCCDone
}

func (f *FakeDriver) GetCC(cc tcpc.CC) tcpc.CCLevel {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch cc {
	case tcpc.CC1:
		return f.cc[0]
	case tcpc.CC2:
		return f.cc[1]
	case tcpc.Active:
		if f.polarity == tcpc.PolarityCC2 {
			return f.cc[1]
		}
		return f.cc[0]
	}
	return tcpc.CCLevelNone
}

func (f *FakeDriver) IsVBUSOK() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vbusOK
}

func (f *FakeDriver) ReqSetPolarity(active tcpc.Polarity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polarity = active
	f.setPolDone = true
}

func (f *FakeDriver) IsSetPolarityDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setPolDone
}

func (f *FakeDriver) ReqRxEnable(enable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rxEnabled = enable
	if !enable {
		f.rx = nil
	}
	f.rxEnableDone = true
}

func (f *FakeDriver) IsRxEnableDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rxEnableDone
}

func (f *FakeDriver) FetchRxData(dst *pdmsg.Chunk) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.rxEnabled || len(f.rx) == 0 {
		return false
	}
	*dst = f.rx[0]
	f.rx = f.rx[1:]
	return true
}

func (f *FakeDriver) ReqTransmit(chunk pdmsg.Chunk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSent = chunk
	if f.DelayTransmit > 0 {
		f.txStatus = tcpc.TransmitWaiting
		return
	}
	f.txStatus = tcpc.TransmitSucceeded
}

func (f *FakeDriver) TransmitStatus() tcpc.TransmitStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txStatus == tcpc.TransmitWaiting && f.DelayTransmit > 0 {
		f.DelayTransmit--
		if f.DelayTransmit == 0 {
			f.txStatus = tcpc.TransmitSucceeded
		}
	}
	return f.txStatus
}

func (f *FakeDriver) ReqBISTCarrierEnable(enable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bistDone = true
}

func (f *FakeDriver) IsBISTCarrierEnableDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bistDone
}

func (f *FakeDriver) ReqHardResetSend() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hardResetDone = true
	f.hardResets++
	f.txStatus = tcpc.TransmitSucceeded
}

func (f *FakeDriver) IsHardResetSendDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hardResetDone
}

func (f *FakeDriver) HardResetReceived() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hardResetRx {
		return false
	}
	f.hardResetRx = false
	return true
}

func (f *FakeDriver) GetHWFeatures() tcpc.HWFeatures {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hwFeat
}

// --- test helpers, not part of tcpc.Driver ---

// SetCC sets the comparator levels returned for CC1/CC2.
func (f *FakeDriver) SetCC(cc1, cc2 tcpc.CCLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cc[0], f.cc[1] = cc1, cc2
}

// SetVBUSOK sets the VBUS-present flag.
func (f *FakeDriver) SetVBUSOK(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vbusOK = ok
}

// SetHWFeatures overrides the automated-feature set reported to the PRL.
func (f *FakeDriver) SetHWFeatures(hw tcpc.HWFeatures) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hwFeat = hw
}

// PushRx queues a chunk as if received from the partner.
func (f *FakeDriver) PushRx(c pdmsg.Chunk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = append(f.rx, c)
}

// SignalHardReset marks a hard reset as observed on the wire, to be
// reported by the next HardResetReceived call.
func (f *FakeDriver) SignalHardReset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hardResetRx = true
}

// LastSent returns the most recently transmitted chunk.
func (f *FakeDriver) LastSent() pdmsg.Chunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSent
}

// HardResetsSent returns how many times ReqHardResetSend was called.
func (f *FakeDriver) HardResetsSent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hardResets
}
