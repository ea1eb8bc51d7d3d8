package pdmsg

// EPRMDO is the EPR_Mode data message's single data object (6.4.10.3.1):
// an action byte followed by three reserved/data bytes used only by the
// Enter action on the source side.
type EPRMDO uint32

// Action returns the EPR mode action.
func (d EPRMDO) Action() EPRModeAction { return EPRModeAction(d & 0xFF) }

// SetAction sets the EPR mode action.
func (d *EPRMDO) SetAction(a EPRModeAction) {
	*d = (*d &^ 0xFF) | EPRMDO(a)
}

// Data returns the action's 24-bit data field (PDP watts for Enter,
// unused otherwise).
func (d EPRMDO) Data() uint32 { return uint32(d>>8) & 0xFFFFFF }

// SetData sets the action's 24-bit data field.
func (d *EPRMDO) SetData(v uint32) {
	*d = (*d &^ (0xFFFFFF << 8)) | EPRMDO(v&0xFFFFFF)<<8
}

// ECDB is the 2-byte Extended_Control data block (6.5.14), the payload
// following the extended header in an Extended_Control message.
type ECDB uint16

// ControlType returns the extended control sub-type.
func (e ECDB) ControlType() ExtCtrlType { return ExtCtrlType(e & 0xFF) }

// SetControlType sets the extended control sub-type.
func (e *ECDB) SetControlType(t ExtCtrlType) {
	*e = (*e &^ 0xFF) | ECDB(t)
}

// Data returns the control data byte, unused by the keep-alive exchanges a
// sink performs.
func (e ECDB) Data() uint8 { return uint8(e >> 8) }

// RMDO is the Revision Message Data Object (6.4.12), the payload of a
// Revision data message.
type RMDO uint32

// RevisionMajor returns the major revision (bits 31:28).
func (r RMDO) RevisionMajor() uint8 { return uint8(r >> 28) }

// RevisionMinor returns the minor revision (bits 27:24).
func (r RMDO) RevisionMinor() uint8 { return uint8((r >> 24) & 0xF) }

// VersionMajor returns the major spec version (bits 23:20).
func (r RMDO) VersionMajor() uint8 { return uint8((r >> 20) & 0xF) }

// VersionMinor returns the minor spec version (bits 19:16).
func (r RMDO) VersionMinor() uint8 { return uint8((r >> 16) & 0xF) }

// BISTDO is the BIST data message's data object (6.4.3): a mode nibble in
// the top byte, the rest reserved.
type BISTDO uint32

// Mode returns the requested BIST mode.
func (d BISTDO) Mode() BISTMode { return BISTMode(d >> 28) }

// SetMode sets the requested BIST mode.
func (d *BISTDO) SetMode(m BISTMode) {
	*d = (*d &^ (0xF << 28)) | BISTDO(m&0xF)<<28
}
