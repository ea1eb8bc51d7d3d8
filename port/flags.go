package port

import "github.com/tinypd/pdsink/flagset"

// DPMRequestFlag enumerates requests the device policy manager can queue
// up for the policy engine to act on. Unused stays at zero so that a
// zero-valued request field reads as "no request" rather than aliasing a
// real flag.
type DPMRequestFlag int

// DPM request flags.
const (
	DPMRequestUnused DPMRequestFlag = iota
	DPMRequestNewPowerLevel
	DPMRequestEPRModeEntry
	DPMRequestGetPPSStatus
	DPMRequestGetSourceInfo
	DPMRequestGetRevision

	dpmRequestCount
)

// DPMRequestFlags is an atomic set of DPMRequestFlag.
type DPMRequestFlags = flagset.Set[DPMRequestFlag]

// PEFlag enumerates policy engine state, some set by the protocol layer
// to report transfer outcomes, some local bookkeeping for state
// transitions.
type PEFlag int

// Policy engine flags.
const (
	// Set by PRL to report transfer outcomes.
	PEFlagTxComplete PEFlag = iota
	PEFlagMsgDiscarded
	PEFlagMsgReceived
	PEFlagSoftResetReceived

	// By default a PRL error causes a soft reset. A state can set
	// ForwardPRLError on entry to instead surface ProtocolError.
	PEFlagForwardPRLError
	PEFlagProtocolError

	PEFlagHasExplicitContract
	PEFlagInEPRMode
	PEFlagAMSActive
	PEFlagAMSFirstMsgSent
	PEFlagEPRAutoEnterDisabled

	// Local flags controlling state behavior.
	PEFlagWaitDPMTransitToDefault
	PEFlagPRLHardResetPending
	PEFlagIsFromEvaluateCapability
	PEFlagHRByCapsTimeout
	PEFlagDoSoftResetOnUnsupported
	PEFlagCanSendSoftReset
	PEFlagTransmitRequestSucceeded

	peFlagCount
)

// PEFlags is an atomic set of PEFlag.
type PEFlags = flagset.Set[PEFlag]

// RCHFlag enumerates flags of the protocol layer's receive chunking
// sub-FSM.
type RCHFlag int

// RCH flags.
const (
	RCHFlagRxEnqueued RCHFlag = iota
	RCHFlagErrorPending

	rchFlagCount
)

// RCHFlags is an atomic set of RCHFlag.
type RCHFlags = flagset.Set[RCHFlag]

// TCHFlag enumerates flags of the protocol layer's transmit chunking
// sub-FSM.
type TCHFlag int

// TCH flags.
const (
	TCHFlagMsgFromPEEnqueued TCHFlag = iota
	TCHFlagChunkFromRx
	TCHFlagErrorPending

	tchFlagCount
)

// TCHFlags is an atomic set of TCHFlag.
type TCHFlags = flagset.Set[TCHFlag]

// PRLTxFlag enumerates flags of the protocol layer's message transmission
// sub-FSM.
type PRLTxFlag int

// PRL tx flags.
const (
	PRLTxFlagChunkEnqueued PRLTxFlag = iota
	PRLTxFlagCompleted
	PRLTxFlagDiscarded
	PRLTxFlagError
	PRLTxFlagStartOfAMSDetected

	prlTxFlagCount
)

// PRLTxFlags is an atomic set of PRLTxFlag.
type PRLTxFlags = flagset.Set[PRLTxFlag]

// PRLHRFlag enumerates flags of the protocol layer's hard reset sub-FSM.
type PRLHRFlag int

// PRL hard reset flags.
const (
	PRLHRFlagHardResetFromPartner PRLHRFlag = iota
	PRLHRFlagHardResetFromPE
	PRLHRFlagPEHardResetComplete

	prlHRFlagCount
)

// PRLHRFlags is an atomic set of PRLHRFlag.
type PRLHRFlags = flagset.Set[PRLHRFlag]
