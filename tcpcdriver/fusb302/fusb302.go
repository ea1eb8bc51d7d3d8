// Package fusb302 implements tcpc.Driver for the FUSB302 family of
// Type-C port controllers from ONSemi.
package fusb302

import (
	"sync/atomic"
	"time"

	"github.com/tinypd/pdsink/leapsync"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/ringqueue"
	"github.com/tinypd/pdsink/tcpc"
	"github.com/tinypd/pdsink/tcpcdriver"
)

// MPN represents the manufacturer part number.
type MPN uint8

// I2CAddress returns the I2C address of the FUSB302.
func (m MPN) I2CAddress() uint8 { return uint8(m) }

// Manufacturer part numbers.
const (
	FUSB302BUCX   MPN = 0b100010
	FUSB302BMPX   MPN = 0b100010
	FUSB302VMPX   MPN = 0b100010
	FUSB302B01MPX MPN = 0b100011
	FUSB302B10MPX MPN = 0b100100
	FUSB302B11MPX MPN = 0b100101
)

// pollInterval is how often the background goroutine services the bus
// when no LeapSync job is pending, bounding how stale GetCC/IsVBUSOK can
// get between jobs.
const pollInterval = time.Millisecond

// rxQueueCapacity is the depth of the driver-to-task RX chunk buffer;
// must be a power of two (ringqueue.New).
const rxQueueCapacity = 8

// FUSB302 is a Type-C port controller driver for the FUSB302 IC. All bus
// I/O happens on a single goroutine started by Setup; every Req method
// only enquires a LeapSync job for that goroutine to pick up, and every
// IsXDone method polls the matching slot - the async request/poll
// contract tcpc.Driver requires, built on the same LeapSync primitive
// the wider stack uses to cross the task/ISR boundary (4.2), in place of
// the reference driver's blocking Tx/Rx/SendReset calls.
type FUSB302 struct {
	i2c  tcpcdriver.I2C
	addr uint16

	wake func()

	scanCC    leapsync.LeapSync[struct{}]
	activeCC  leapsync.LeapSync[struct{}]
	setPol    leapsync.LeapSync[tcpc.Polarity]
	rxEnable  leapsync.LeapSync[bool]
	transmit  leapsync.LeapSync[pdmsg.Chunk]
	bistCarr  leapsync.LeapSync[bool]
	hardReset leapsync.LeapSync[struct{}]

	cc1, cc2 atomic.Int32 // tcpc.CCLevel
	vbusOK   atomic.Bool
	txStatus atomic.Int32 // tcpc.TransmitStatus
	hardRst  atomic.Bool

	rx *ringqueue.Queue[pdmsg.Chunk]

	polarity tcpc.Polarity // poll goroutine only
	intA     uint8         // poll goroutine only: interrupts latched between polls
	buf      [9 + pdmsg.ChunkPayloadCap]byte
}

// New returns a controller ready for Setup. Call SetWakeFunc before
// Setup if the caller wants a callback when CC, VBUS, transmit status or
// RX state changes; without one, a PdStack still notices on its next
// idle-sleep poll.
//
// I2C port must have <=1Mhz frequency.
func New(i2c tcpcdriver.I2C, mpn MPN) *FUSB302 {
	return &FUSB302{
		i2c:  i2c,
		addr: uint16(mpn.I2CAddress()),
		rx:   ringqueue.New[pdmsg.Chunk](rxQueueCapacity),
	}
}

// SetWakeFunc installs wake, called from the poll goroutine whenever CC,
// VBUS, transmit status or RX state changes. Must be called before
// Setup; not safe to change concurrently with a running poll loop.
func (f *FUSB302) SetWakeFunc(wake func()) { f.wake = wake }

func (f *FUSB302) write(r uint8, d byte) error {
	f.buf[0], f.buf[1] = r, d
	return f.i2c.Tx(f.addr, f.buf[:2], nil)
}

func (f *FUSB302) read(r uint8) (byte, error) {
	f.buf[0] = r
	err := f.i2c.Tx(f.addr, f.buf[:1], f.buf[1:2])
	return f.buf[1], err
}

func (f *FUSB302) writeMany(r uint8, d []byte) error {
	f.buf[0] = r
	copy(f.buf[1:], d)
	return f.i2c.Tx(f.addr, f.buf[:len(d)+1], nil)
}

func (f *FUSB302) readMany(r uint8, d []byte) error {
	f.buf[0] = r
	err := f.i2c.Tx(f.addr, f.buf[:1], f.buf[1:len(d)+1])
	if err == nil {
		copy(d, f.buf[1:len(d)+1])
	}
	return err
}

// Setup resets the chip to a known sink configuration and starts the
// background polling goroutine. Only one call to Setup is supported.
func (f *FUSB302) Setup() error {
	if err := f.write(regReset, regResetSWReset); err != nil {
		return err
	}
	if err := f.write(regControl1, 0b100); err != nil { // flush RX FIFO
		return err
	}
	if err := f.write(regPower, regPowerPwrAll); err != nil {
		return err
	}
	// Manual CC measurement and polarity: TC (package tc) owns detection
	// and debounce in software, so auto-toggle/auto-GCRC stay off until
	// ReqSetPolarity picks a side.
	if err := f.write(regControl3, regControl3AutoRetry|regControl3NRetries); err != nil {
		return err
	}
	go f.pollLoop()
	return nil
}

func (f *FUSB302) pollLoop() {
	for {
		f.serviceJobs()
		f.pollStatus()
		time.Sleep(pollInterval)
	}
}

// serviceJobs runs at most one claimed LeapSync job per pass, in a fixed
// priority order; each leaves its own IsXDone slot ready to poll once
// the matching hardware action finishes.
func (f *FUSB302) serviceJobs() {
	if f.scanCC.IsEnquired() {
		f.scanCC.MarkStarted()
		f.measureCC(tcpc.CC1)
		f.measureCC(tcpc.CC2)
		f.scanCC.MarkFinished()
		f.notify()
		return
	}
	if f.activeCC.IsEnquired() {
		f.activeCC.MarkStarted()
		f.measureCC(tcpc.Active)
		f.activeCC.MarkFinished()
		f.notify()
		return
	}
	if f.setPol.IsEnquired() {
		pol := f.setPol.MarkStarted()
		f.applyPolarity(pol)
		f.setPol.MarkFinished()
		f.notify()
		return
	}
	if f.rxEnable.IsEnquired() {
		en := f.rxEnable.MarkStarted()
		f.applyRxEnable(en)
		f.rxEnable.MarkFinished()
		f.notify()
		return
	}
	if f.transmit.IsEnquired() {
		c := f.transmit.MarkStarted()
		f.doTransmit(c)
		f.transmit.MarkFinished()
		f.notify()
		return
	}
	if f.bistCarr.IsEnquired() {
		en := f.bistCarr.MarkStarted()
		f.applyBISTCarrier(en)
		f.bistCarr.MarkFinished()
		f.notify()
		return
	}
	if f.hardReset.IsEnquired() {
		f.hardReset.MarkStarted()
		f.doHardResetSend()
		f.hardReset.MarkFinished()
		f.notify()
		return
	}
}

func (f *FUSB302) notify() {
	if f.wake != nil {
		f.wake()
	}
}

// measureCC points the comparator mux at cc (or both, for a full scan)
// and reads BC_LVL out of STATUS0, storing the result for GetCC.
func (f *FUSB302) measureCC(cc tcpc.CC) {
	switch cc {
	case tcpc.CC1:
		f.write(regSwitches0, regSwitches0MeasCC1|regSwitches0CC1PdEn|regSwitches0CC2PdEn)
		time.Sleep(250 * time.Microsecond)
		s0, _ := f.read(regStatus0)
		f.cc1.Store(int32(ccLevelFromBCLVL(s0)))
	case tcpc.CC2:
		f.write(regSwitches0, regSwitches0MeasCC2|regSwitches0CC1PdEn|regSwitches0CC2PdEn)
		time.Sleep(250 * time.Microsecond)
		s0, _ := f.read(regStatus0)
		f.cc2.Store(int32(ccLevelFromBCLVL(s0)))
	case tcpc.Active:
		meas := uint8(regSwitches0MeasCC1)
		if f.polarity == tcpc.PolarityCC2 {
			meas = regSwitches0MeasCC2
		}
		f.write(regSwitches0, meas|regSwitches0CC1PdEn|regSwitches0CC2PdEn)
		time.Sleep(250 * time.Microsecond)
		s0, _ := f.read(regStatus0)
		lvl := ccLevelFromBCLVL(s0)
		if f.polarity == tcpc.PolarityCC2 {
			f.cc2.Store(int32(lvl))
		} else {
			f.cc1.Store(int32(lvl))
		}
	}
	s0, err := f.read(regStatus0)
	if err == nil {
		f.vbusOK.Store(s0&regStatus0VBusOK != 0)
	}
}

func ccLevelFromBCLVL(status0 byte) tcpc.CCLevel {
	switch status0 & 0b11 {
	case 1:
		return tcpc.CCLevelRp0A5
	case 2:
		return tcpc.CCLevelRp1A5
	case 3:
		return tcpc.CCLevelRp3A0
	default:
		return tcpc.CCLevelNone
	}
}

// applyPolarity latches tx/rx onto the chosen CC line and turns on
// hardware GoodCRC and auto-retry, since only the selected line carries
// the control channel from here on.
func (f *FUSB302) applyPolarity(pol tcpc.Polarity) {
	f.polarity = pol
	switch pol {
	case tcpc.PolarityCC1:
		f.write(regSwitches1, regSwitches1SpecRev1|regSwitches1AutoGCRC|regSwitches1TxCC1En)
		f.write(regSwitches0, regSwitches0MeasCC1|regSwitches0CC1PdEn|regSwitches0CC2PdEn)
	case tcpc.PolarityCC2:
		f.write(regSwitches1, regSwitches1SpecRev1|regSwitches1AutoGCRC|regSwitches1TxCC2En)
		f.write(regSwitches0, regSwitches0MeasCC2|regSwitches0CC1PdEn|regSwitches0CC2PdEn)
	default:
		f.write(regSwitches1, 0)
		f.write(regSwitches0, regSwitches0CC1PdEn|regSwitches0CC2PdEn)
	}
}

func (f *FUSB302) applyRxEnable(enable bool) {
	if !enable {
		f.write(regControl1, 0b100) // flush RX FIFO
		f.rx.ClearFromProducer()
		return
	}
	f.write(regControl0, 0b01100100) // flush TX FIFO
}

// doTransmit writes chunk onto the TX FIFO with the SOP/EOP tokens the
// chip expects, then polls INTERRUPTA for the GoodCRC/retry-fail result
// auto-retry settles on.
func (f *FUSB302) doTransmit(c pdmsg.Chunk) {
	f.txStatus.Store(int32(tcpc.TransmitWaiting))

	var b [4 + 9 + pdmsg.ChunkPayloadCap]byte
	n := 4
	b[0], b[1], b[2], b[3] = fifoTokenSync1, fifoTokenSync1, fifoTokenSync1, fifoTokenSync2
	dlen := c.Encode(b[n+1:])
	b[n] = fifoTokenPackSym | uint8(dlen)
	n += 1 + dlen
	b[n], b[n+1], b[n+2], b[n+3] = fifoTokenJamCRC, fifoTokenEOP, fifoTokenTxOff, fifoTokenTxOn
	n += 4

	if err := f.writeMany(regFIFOs, b[:n]); err != nil {
		f.txStatus.Store(int32(tcpc.TransmitFailed))
		return
	}

	for i := 0; i < 10; i++ {
		r, err := f.read(regInterruptA)
		if err != nil {
			f.txStatus.Store(int32(tcpc.TransmitFailed))
			return
		}
		f.intA |= r
		if r&regInterruptATxSuccess != 0 {
			f.txStatus.Store(int32(tcpc.TransmitSucceeded))
			return
		}
		if r&regInterruptARetryFail != 0 {
			f.txStatus.Store(int32(tcpc.TransmitFailed))
			return
		}
		time.Sleep(time.Millisecond)
	}
	f.txStatus.Store(int32(tcpc.TransmitFailed))
}

func (f *FUSB302) applyBISTCarrier(enable bool) {
	if enable {
		f.write(regControl1, 0b10000000) // BIST_MODE2: continuous carrier
	} else {
		f.write(regControl1, 0)
	}
}

func (f *FUSB302) doHardResetSend() {
	r, err := f.read(regControl3)
	if err != nil {
		return
	}
	f.write(regControl3, r|regControl3SendHardReset)
	for i := 0; i < 5; i++ {
		intA, err := f.read(regInterruptA)
		if err != nil {
			return
		}
		f.intA |= intA
		if intA&regInterruptAHardSent != 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// pollStatus drains pending interrupts and the RX FIFO, the way the
// reference driver's Alert did, except results land in atomics and the
// RX ring buffer instead of being returned to a caller.
func (f *FUSB302) pollStatus() {
	var regs [2]byte
	if err := f.readMany(regStatus0A, regs[:1]); err != nil {
		return
	}
	intA, err := f.read(regInterruptA)
	if err != nil {
		return
	}
	intA |= f.intA
	f.intA = 0

	intT, err := f.read(regInterrupt)
	if err != nil {
		return
	}

	if intA&regInterruptAHardReset != 0 {
		f.hardRst.Store(true)
		f.notify()
	}
	// A Soft Reset has a normal message encoding and arrives through the
	// RX FIFO below like any other control message; regInterruptASoftReset
	// only flags that the PHY itself also noticed, which needs no separate
	// handling here.

	if intT&regInterruptVBusOK != 0 {
		s0, err := f.read(regStatus0)
		if err == nil {
			f.vbusOK.Store(s0&regStatus0VBusOK != 0)
			f.notify()
		}
	}

	if intT&regInterruptCRCChk != 0 {
		for {
			s1, err := f.read(regStatus1)
			if err != nil || s1&regStatus1RxEmpty != 0 {
				break
			}
			c, ok := f.readChunk()
			if !ok {
				break
			}
			if c.Header.IsCtrl() && pdmsg.CtrlType(c.Header.MessageType()) == pdmsg.CtrlGoodCRC {
				continue
			}
			f.rx.Push(c)
		}
		f.notify()
	}
}

func (f *FUSB302) readChunk() (pdmsg.Chunk, bool) {
	var hdr [2]byte
	if err := f.readMany(regFIFOs, hdr[:]); err != nil {
		return pdmsg.Chunk{}, false
	}
	h := pdmsg.Header(uint16(hdr[1])<<8 | uint16(hdr[0]))
	n := int(h.DataObjectCount()) * 4
	if h.Extended() {
		n = pdmsg.ChunkPayloadCap
	}
	var payload [pdmsg.ChunkPayloadCap + 4]byte // +4 for trailing CRC, discarded
	if err := f.readMany(regFIFOs, payload[:n+4]); err != nil {
		return pdmsg.Chunk{}, false
	}
	var wire [2 + pdmsg.ChunkPayloadCap]byte
	copy(wire[:2], hdr[:])
	copy(wire[2:], payload[:n])
	c := pdmsg.DecodeChunk(wire[:2+n])
	return c, true
}

// ReqScanCC implements tcpc.Driver.
func (f *FUSB302) ReqScanCC() { f.scanCC.Enquire(struct{}{}) }

// IsScanCCDone implements tcpc.Driver.
func (f *FUSB302) IsScanCCDone() bool { return f.scanCC.IsReady() }

// ReqActiveCC implements tcpc.Driver.
func (f *FUSB302) ReqActiveCC() { f.activeCC.Enquire(struct{}{}) }

// IsActiveCCDone implements tcpc.Driver.
func (f *FUSB302) IsActiveCCDone() bool { return f.activeCC.IsReady() }

// GetCC implements tcpc.Driver.
func (f *FUSB302) GetCC(cc tcpc.CC) tcpc.CCLevel {
	switch cc {
	case tcpc.CC2:
		return tcpc.CCLevel(f.cc2.Load())
	case tcpc.Active:
		if f.polarity == tcpc.PolarityCC2 {
			return tcpc.CCLevel(f.cc2.Load())
		}
		return tcpc.CCLevel(f.cc1.Load())
	default:
		return tcpc.CCLevel(f.cc1.Load())
	}
}

// IsVBUSOK implements tcpc.Driver.
func (f *FUSB302) IsVBUSOK() bool { return f.vbusOK.Load() }

// ReqSetPolarity implements tcpc.Driver.
func (f *FUSB302) ReqSetPolarity(active tcpc.Polarity) { f.setPol.Enquire(active) }

// IsSetPolarityDone implements tcpc.Driver.
func (f *FUSB302) IsSetPolarityDone() bool { return f.setPol.IsReady() }

// ReqRxEnable implements tcpc.Driver.
func (f *FUSB302) ReqRxEnable(enable bool) { f.rxEnable.Enquire(enable) }

// IsRxEnableDone implements tcpc.Driver.
func (f *FUSB302) IsRxEnableDone() bool { return f.rxEnable.IsReady() }

// FetchRxData implements tcpc.Driver.
func (f *FUSB302) FetchRxData(dst *pdmsg.Chunk) bool {
	c, ok := f.rx.Pop()
	if !ok {
		return false
	}
	*dst = c
	return true
}

// ReqTransmit implements tcpc.Driver.
func (f *FUSB302) ReqTransmit(chunk pdmsg.Chunk) { f.transmit.Enquire(chunk) }

// TransmitStatus implements tcpc.Driver.
func (f *FUSB302) TransmitStatus() tcpc.TransmitStatus {
	return tcpc.TransmitStatus(f.txStatus.Load())
}

// ReqBISTCarrierEnable implements tcpc.Driver.
func (f *FUSB302) ReqBISTCarrierEnable(enable bool) { f.bistCarr.Enquire(enable) }

// IsBISTCarrierEnableDone implements tcpc.Driver.
func (f *FUSB302) IsBISTCarrierEnableDone() bool { return f.bistCarr.IsReady() }

// ReqHardResetSend implements tcpc.Driver.
func (f *FUSB302) ReqHardResetSend() { f.hardReset.Enquire(struct{}{}) }

// IsHardResetSendDone implements tcpc.Driver.
func (f *FUSB302) IsHardResetSendDone() bool { return f.hardReset.IsReady() }

// HardResetReceived implements tcpc.Driver.
func (f *FUSB302) HardResetReceived() bool { return f.hardRst.CompareAndSwap(true, false) }

// GetHWFeatures implements tcpc.Driver.
func (f *FUSB302) GetHWFeatures() tcpc.HWFeatures {
	return tcpc.HWFeatures{
		RxGoodCRCSend:    true,
		TxGoodCRCReceive: true,
		TxRetransmit:     true,
	}
}

const (
	regSwitches0        = 0x02
	regSwitches0MeasCC2 = 1 << 3
	regSwitches0MeasCC1 = 1 << 2
	regSwitches0CC2PdEn = 1 << 1
	regSwitches0CC1PdEn = 1 << 0

	regSwitches1         = 0x03
	regSwitches1SpecRev1 = 1 << 6
	regSwitches1AutoGCRC = 1 << 2
	regSwitches1TxCC2En  = 1 << 1
	regSwitches1TxCC1En  = 1 << 0

	regControl0 = 0x06
	regControl1 = 0x07

	regControl3              = 0x09
	regControl3SendHardReset = 1 << 6
	regControl3AutoRetry     = 1 << 0
	regControl3NRetries      = 0b11 << 1 // 3 retries

	regPower       = 0x0B
	regPowerPwrAll = 0xF

	regReset        = 0x0C
	regResetSWReset = 1 << 0

	regStatus0A            = 0x3C
	regStatus0ARxSoftReset = 1 << 1
	regStatus0ARxHardReset = 1 << 0

	regInterruptA          = 0x3E
	regInterruptARetryFail = 1 << 4
	regInterruptAHardSent  = 1 << 3
	regInterruptATxSuccess = 1 << 2
	regInterruptASoftReset = 1 << 1
	regInterruptAHardReset = 1 << 0

	regStatus0       = 0x40
	regStatus0VBusOK = 1 << 7

	regStatus1        = 0x41
	regStatus1RxEmpty = 1 << 5

	regInterrupt       = 0x42
	regInterruptVBusOK = 1 << 7
	regInterruptCRCChk = 1 << 4

	regFIFOs = 0x43

	fifoTokenTxOn    = 0xA1
	fifoTokenSync1   = 0x12
	fifoTokenSync2   = 0x13
	fifoTokenPackSym = 0x80
	fifoTokenJamCRC  = 0xFF
	fifoTokenEOP     = 0x14
	fifoTokenTxOff   = 0xFE
)
