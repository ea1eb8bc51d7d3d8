package pdmsg

// RDO is a generic Request Data Object (6.4.2), the single 32-bit data
// object carried by a Request or EPR_Request message.
type RDO uint32

// ObjectPosition returns the 1-based source PDO position this request
// targets (bits 31:28).
func (r RDO) ObjectPosition() uint8 { return uint8((r >> 28) & 0xF) }

// SetObjectPosition sets the 1-based source PDO position.
func (r *RDO) SetObjectPosition(pos uint8) {
	*r = (*r &^ (0xF << 28)) | RDO(pos&0xF)<<28
}

// GiveBack reports the GiveBackFlag bit. Always false for this stack: the
// sink never requests the lower "will accept less" behavior.
func (r RDO) GiveBack() bool { return r&(1<<27) != 0 }

// CapabilityMismatch reports the CapabilityMismatch bit.
func (r RDO) CapabilityMismatch() bool { return r&(1<<26) != 0 }

// SetCapabilityMismatch sets or clears the CapabilityMismatch bit.
func (r *RDO) SetCapabilityMismatch(v bool) {
	if v {
		*r |= 1 << 26
	} else {
		*r &^= 1 << 26
	}
}

// USBCommCapable reports the USB communications capable bit.
func (r RDO) USBCommCapable() bool { return r&(1<<25) != 0 }

// SetUSBCommCapable sets or clears the USB communications capable bit.
func (r *RDO) SetUSBCommCapable(v bool) {
	if v {
		*r |= 1 << 25
	} else {
		*r &^= 1 << 25
	}
}

// NoUSBSuspend reports the No_USB_Suspend bit.
func (r RDO) NoUSBSuspend() bool { return r&(1<<24) != 0 }

// SetNoUSBSuspend sets or clears the No_USB_Suspend bit.
func (r *RDO) SetNoUSBSuspend(v bool) {
	if v {
		*r |= 1 << 24
	} else {
		*r &^= 1 << 24
	}
}

// UnchunkedExtendedSupported reports the Unchunked_Extended_Message_Supported
// bit. Always false: this stack only implements the chunked transport.
func (r RDO) UnchunkedExtendedSupported() bool { return r&(1<<23) != 0 }

// EPRModeCapable reports the EPR_Mode_Capable bit, set on a request that
// also doubles as part of EPR entry.
func (r RDO) EPRModeCapable() bool { return r&(1<<22) != 0 }

// SetEPRModeCapable sets or clears the EPR_Mode_Capable bit.
func (r *RDO) SetEPRModeCapable(v bool) {
	if v {
		*r |= 1 << 22
	} else {
		*r &^= 1 << 22
	}
}

// RDOFixedOrVariable is a Request Data Object whose lower 20 bits use the
// fixed/variable operating-current layout (Table 6.18): bits 19:10 are the
// operating current, bits 9:0 the maximum current, both in 10 mA steps.
type RDOFixedOrVariable uint32

// OperatingCurrent returns the requested operating current in milliamps.
func (r RDOFixedOrVariable) OperatingCurrent() uint16 { return uint16((r>>10)&0x3FF) * 10 }

// SetOperatingCurrent rounds ma down to the nearest 10 mA step.
func (r *RDOFixedOrVariable) SetOperatingCurrent(ma uint16) {
	*r = (*r &^ (0x3FF << 10)) | RDOFixedOrVariable(ma/10&0x3FF)<<10
}

// MaxOperatingCurrent returns the requested maximum current in milliamps.
func (r RDOFixedOrVariable) MaxOperatingCurrent() uint16 { return uint16(r&0x3FF) * 10 }

// SetMaxOperatingCurrent rounds ma down to the nearest 10 mA step.
func (r *RDOFixedOrVariable) SetMaxOperatingCurrent(ma uint16) {
	*r = (*r &^ 0x3FF) | RDOFixedOrVariable(ma/10&0x3FF)
}

// RDOPPS is a Request Data Object targeting a PPS APDO (Table 6.21): bits
// 19:9 are the output voltage in 20 mV steps, bits 6:0 the operating current
// in 50 mA steps.
type RDOPPS uint32

// OutputVoltage returns the requested output voltage in millivolts.
func (r RDOPPS) OutputVoltage() uint16 { return uint16((r>>9)&0x7FF) * 20 }

// SetOutputVoltage rounds mv down to the nearest 20 mV step.
func (r *RDOPPS) SetOutputVoltage(mv uint16) {
	*r = (*r &^ (0x7FF << 9)) | RDOPPS(mv/20&0x7FF)<<9
}

// OperatingCurrent returns the requested operating current in milliamps.
func (r RDOPPS) OperatingCurrent() uint16 { return uint16(r&0x7F) * 50 }

// SetOperatingCurrent rounds ma down to the nearest 50 mA step.
func (r *RDOPPS) SetOperatingCurrent(ma uint16) {
	*r = (*r &^ 0x7F) | RDOPPS(ma/50&0x7F)
}

// RDOAVS is a Request Data Object targeting an AVS APDO (EPR or SPR): bits
// 19:9 are the output voltage in 25 mV steps (the two low bits of that
// field are reserved and must be zero, giving an effective 100 mV
// granularity), bits 6:0 the operating current in 50 mA steps.
type RDOAVS uint32

// OutputVoltage returns the requested output voltage in millivolts.
func (r RDOAVS) OutputVoltage() uint16 { return uint16((r>>9)&0x7FF) * 25 }

// SetOutputVoltage rounds mv down to the nearest 100 mV step, per the AVS
// requirement that the bottom two bits of the voltage field stay zero.
func (r *RDOAVS) SetOutputVoltage(mv uint16) {
	steps := (mv / 100) * 4
	*r = (*r &^ (0x7FF << 9)) | RDOAVS(steps&0x7FF)<<9
}

// OperatingCurrent returns the requested operating current in milliamps.
func (r RDOAVS) OperatingCurrent() uint16 { return uint16(r&0x7F) * 50 }

// SetOperatingCurrent rounds ma down to the nearest 50 mA step.
func (r *RDOAVS) SetOperatingCurrent(ma uint16) {
	*r = (*r &^ 0x7F) | RDOAVS(ma/50&0x7F)
}
