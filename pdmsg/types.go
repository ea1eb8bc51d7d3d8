package pdmsg

// CtrlType enumerates 6.3 control message types this stack sends or
// understands. Values match Table 6.5 exactly.
type CtrlType uint8

// Control message types (Table 6.5). Deprecated and out-of-scope types
// (DR_Swap, PR_Swap, VCONN_Swap, Data_Reset*, FR_Swap, ...) are omitted;
// unrecognized incoming ones are handled as "anything else" in PE Ready.
const (
	CtrlGoodCRC      CtrlType = 1
	CtrlGotoMin      CtrlType = 2
	CtrlAccept       CtrlType = 3
	CtrlReject       CtrlType = 4
	CtrlPing         CtrlType = 5
	CtrlPSRDY        CtrlType = 6
	CtrlGetSourceCap CtrlType = 7
	CtrlGetSinkCap   CtrlType = 8
	CtrlWait         CtrlType = 12
	CtrlSoftReset    CtrlType = 13
	CtrlNotSupported CtrlType = 16
	CtrlGetRevision  CtrlType = 24
)

// DataType enumerates 6.4 data message types (Table 6.6).
type DataType uint8

// Data message types this stack produces or consumes.
const (
	DataSourceCapabilities DataType = 1
	DataRequest            DataType = 2
	DataBIST               DataType = 3
	DataSinkCapabilities   DataType = 4
	DataAlert              DataType = 6
	DataEPRRequest         DataType = 9
	DataEPRMode            DataType = 10
	DataRevision           DataType = 12
	DataVendorDefined      DataType = 15
)

// ExtType enumerates 6.5 extended message types (Table 6.53) relevant to a
// sink. Unchunked legacy extended messages are out of scope.
type ExtType uint8

// Extended message types.
const (
	ExtSinkCapabilitiesExtended ExtType = 15
	ExtExtendedControl          ExtType = 16
	ExtEPRSourceCapabilities     ExtType = 17
	ExtEPRSinkCapabilities       ExtType = 18
)

// ExtCtrlType enumerates the payload of an Extended_Control message
// (6.5.14), the only extended-control exchanges a sink needs.
type ExtCtrlType uint8

// Extended control sub-types.
const (
	ExtCtrlEPRGetSourceCap ExtCtrlType = 1
	ExtCtrlEPRGetSinkCap   ExtCtrlType = 2
	ExtCtrlEPRKeepAlive    ExtCtrlType = 3
	ExtCtrlEPRKeepAliveAck ExtCtrlType = 4
)

// EPRModeAction enumerates the EPR_Mode data message's action byte.
type EPRModeAction uint8

// EPR mode actions (6.4.10.3.1).
const (
	EPRModeEnter             EPRModeAction = 1
	EPRModeEnterAcknowledged EPRModeAction = 2
	EPRModeEnterSucceeded    EPRModeAction = 3
	EPRModeEnterFailed       EPRModeAction = 4
	EPRModeExit              EPRModeAction = 5
)

// BISTMode enumerates the BIST data message's mode nibble (6.4.3).
type BISTMode uint8

// BIST modes. Only Carrier and TestData are meaningful to a sink; the
// shared-capacity pair is part of the spec but never produced by this
// stack since it does not implement a source role.
const (
	BISTModeCarrier             BISTMode = 5
	BISTModeTestData            BISTMode = 8
	BISTModeSharedCapacityEnter BISTMode = 9
	BISTModeSharedCapacityExit  BISTMode = 10
)
