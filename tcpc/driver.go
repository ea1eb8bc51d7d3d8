// Package tcpc defines the contract between this protocol stack and the
// physical Type-C port controller chip that drives it. A Driver is fully
// asynchronous: every action is issued with a Req method and polled for
// completion with a matching IsXDone method, since on real hardware the
// controller usually sits behind a slow bus like I2C.
//
// The one concrete chip implementation in this module is package
// tcpcdriver/fusb302; board bring-up and bus plumbing belong to whoever
// wires a Driver up to real silicon.
package tcpc

import "github.com/tinypd/pdsink/pdmsg"

// CC names the two CC pins, plus a pseudo-selector for "whichever one
// polarity detection picked".
type CC uint8

// CC pin identifiers.
const (
	CC1    CC = 0
	CC2    CC = 1
	Active CC = 2
)

// Polarity records which CC pin is carrying the Type-C control channel.
type Polarity uint8

// Polarity values. None means detection has not completed yet.
const (
	PolarityCC1  Polarity = 0
	PolarityCC2  Polarity = 1
	PolarityNone Polarity = 2
)

// CCLevel is the voltage range reported by the CC comparator,
// corresponding to a source's advertised current via Rp.
type CCLevel uint8

// CC comparator levels.
const (
	CCLevelNone  CCLevel = 0
	CCLevelRp0A5 CCLevel = 1
	CCLevelRp1A5 CCLevel = 2
	CCLevelRp3A0 CCLevel = 3
)

// SinkTxNG and SinkTxOK are the rp 3.0 collision-avoidance CC levels a
// sink watches for before it is allowed to transmit.
const (
	SinkTxNG = CCLevelRp1A5
	SinkTxOK = CCLevelRp3A0
)

// TransmitStatus reports the outcome of a requested transmission. Chips
// with hardware GoodCRC handling report SUCCEEDED only once the GoodCRC
// response has actually come back.
type TransmitStatus int8

// Transmit outcomes.
const (
	TransmitUnset     TransmitStatus = -1
	TransmitWaiting   TransmitStatus = 0
	TransmitSucceeded TransmitStatus = 1
	TransmitFailed    TransmitStatus = 2
	TransmitDiscarded TransmitStatus = 3
)

// HWFeatures describes what a given controller automates in hardware, so
// the protocol layer can skip the software equivalent.
type HWFeatures struct {
	RxGoodCRCSend    bool
	TxGoodCRCReceive bool
	TxRetransmit     bool
	CCUpdateEvent    bool
	UnchunkedExtMsg  bool
}

// Driver is the async request/poll contract a port controller chip must
// satisfy. Every Req call starts an operation; the matching IsXDone call
// is polled until it returns true, at which point any associated getter
// (GetCC, FetchRxData, ...) becomes valid to call.
type Driver interface {
	// Setup brings the controller up after power-on or reset.
	Setup() error

	// ReqScanCC starts a full dual-CC voltage scan, used only for manual
	// polarity detection.
	ReqScanCC()
	IsScanCCDone() bool

	// ReqActiveCC starts a scan of only the already-selected active CC
	// pin, used for SinkTxOK polling during an active AMS.
	ReqActiveCC()
	IsActiveCCDone() bool

	// GetCC returns the level last fetched for cc by ReqScanCC or
	// ReqActiveCC.
	GetCC(cc CC) CCLevel

	// IsVBUSOK reports whether VBUS is present.
	IsVBUSOK() bool

	// ReqSetPolarity latches which CC pin carries the control channel.
	// Only a fresh attach should call this; it must not be reset by any
	// other request.
	ReqSetPolarity(active Polarity)
	IsSetPolarityDone() bool

	// ReqRxEnable enables or disables the message receiver. Disabling
	// flushes the RX FIFO; enabling flushes the TX FIFO.
	ReqRxEnable(enable bool)
	IsRxEnableDone() bool

	// FetchRxData pulls one pending received chunk into dst and reports
	// true, or reports false if nothing was pending.
	FetchRxData(dst *pdmsg.Chunk) bool

	// ReqTransmit sends chunk. Progress is observed via TransmitStatus.
	ReqTransmit(chunk pdmsg.Chunk)
	TransmitStatus() TransmitStatus

	// ReqBISTCarrierEnable turns the BIST carrier signal on or off.
	ReqBISTCarrierEnable(enable bool)
	IsBISTCarrierEnableDone() bool

	// ReqHardResetSend asks the controller to signal a hard reset on the
	// wire.
	ReqHardResetSend()
	IsHardResetSendDone() bool

	// HardResetReceived reports, and clears, whether the controller
	// detected a hard reset signaled by the source since the last call.
	// Hard Reset has no message encoding - it is BMC signaling the
	// controller itself must recognize - so unlike a Soft Reset, which
	// arrives as an ordinary chunk through FetchRxData, this is the only
	// path by which the protocol layer learns of one.
	HardResetReceived() bool

	// GetHWFeatures describes what this controller automates.
	GetHWFeatures() HWFeatures
}
