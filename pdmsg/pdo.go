package pdmsg

// PDO is a generic 32-bit power data object. Inspect Type (and, for
// augmented objects, AugmentedSubtype) before converting to a specific
// variant.
type PDO uint32

// PDOType is the top two bits of any PDO (6.4.1).
type PDOType uint8

// PDO kinds. Battery and Variable supply are part of the spec but are
// explicitly a non-goal for this sink stack.
const (
	PDOTypeFixed     PDOType = 0
	PDOTypeBattery   PDOType = 1
	PDOTypeVariable  PDOType = 2
	PDOTypeAugmented PDOType = 3
)

// Type returns the PDO's top-level type.
func (o PDO) Type() PDOType { return PDOType((o >> 30) & 0b11) }

// AugmentedSubtype is the APDO subtype, valid only when Type is
// PDOTypeAugmented.
type AugmentedSubtype uint8

// APDO subtypes (6.4.1).
const (
	APDOSprPPS AugmentedSubtype = 0
	APDOEprAVS AugmentedSubtype = 1
	APDOSprAVS AugmentedSubtype = 2
)

// AugmentedSubtype returns the APDO subtype bits. Only meaningful when
// Type() == PDOTypeAugmented.
func (o PDO) AugmentedSubtype() AugmentedSubtype { return AugmentedSubtype((o >> 28) & 0b11) }

// FixedPDO is a Fixed Supply Power Data Object (6.4.1.2.1, Table 6.9).
type FixedPDO uint32

// Voltage returns the fixed voltage in millivolts (50 mV steps).
func (o FixedPDO) Voltage() uint16 { return uint16((o>>10)&0x3FF) * 50 }

// SetVoltage rounds v down to the nearest 50 mV step and stores it.
func (o *FixedPDO) SetVoltage(mv uint16) {
	*o = (*o &^ (0x3FF << 10)) | FixedPDO(mv/50&0x3FF)<<10
}

// MaxCurrent returns the maximum current in milliamps (10 mA steps).
func (o FixedPDO) MaxCurrent() uint16 { return uint16(o&0x3FF) * 10 }

// SetMaxCurrent rounds ma down to the nearest 10 mA step and stores it.
func (o *FixedPDO) SetMaxCurrent(ma uint16) {
	*o = (*o &^ 0x3FF) | FixedPDO(ma/10&0x3FF)
}

// EPRCapable reports whether the source advertises EPR mode support via
// this (always position-1) fixed PDO.
func (o FixedPDO) EPRCapable() bool { return o&(1<<23) != 0 }

// SetEPRCapable sets or clears the EPR-capable flag.
func (o *FixedPDO) SetEPRCapable(v bool) { setBit32((*uint32)(o), 23, v) }

// USBCommCapable reports the USB communications capable flag.
func (o FixedPDO) USBCommCapable() bool { return o&(1<<26) != 0 }

// SetUSBCommCapable sets or clears the USB communications capable flag.
func (o *FixedPDO) SetUSBCommCapable(v bool) { setBit32((*uint32)(o), 26, v) }

// DualRolePower reports the dual-role-power flag.
func (o FixedPDO) DualRolePower() bool { return o&(1<<29) != 0 }

// SetDualRolePower sets or clears the dual-role-power flag.
func (o *FixedPDO) SetDualRolePower(v bool) { setBit32((*uint32)(o), 29, v) }

// SetType stamps the top-level PDO type bits.
func (o *FixedPDO) setType() { *o = (*o &^ (0b11 << 30)) | FixedPDO(PDOTypeFixed)<<30 }

// NewFixedPDO returns a blank Fixed Supply PDO with the type bits stamped.
func NewFixedPDO() FixedPDO {
	var o FixedPDO
	o.setType()
	return o
}

// PPSPDO is an SPR Programmable Power Supply APDO (6.4.1.2.4, Table 6.13).
type PPSPDO uint32

// MinVoltage returns the minimum output voltage in millivolts (100 mV steps).
func (o PPSPDO) MinVoltage() uint16 { return uint16((o>>8)&0xFF) * 100 }

// SetMinVoltage rounds mv down to the nearest 100 mV step and stores it.
func (o *PPSPDO) SetMinVoltage(mv uint16) {
	*o = (*o &^ (0xFF << 8)) | PPSPDO(mv/100&0xFF)<<8
}

// MaxVoltage returns the maximum output voltage in millivolts (100 mV steps).
func (o PPSPDO) MaxVoltage() uint16 { return uint16((o>>17)&0xFF) * 100 }

// SetMaxVoltage rounds mv down to the nearest 100 mV step and stores it.
func (o *PPSPDO) SetMaxVoltage(mv uint16) {
	*o = (*o &^ (0xFF << 17)) | PPSPDO(mv/100&0xFF)<<17
}

// MaxCurrent returns the maximum output current in milliamps (50 mA steps).
func (o PPSPDO) MaxCurrent() uint16 { return uint16(o&0x7F) * 50 }

// SetMaxCurrent rounds ma down to the nearest 50 mA step and stores it.
func (o *PPSPDO) SetMaxCurrent(ma uint16) {
	*o = (*o &^ 0x7F) | PPSPDO(ma/50&0x7F)
}

// IsPowerLimited reports the PPS power-limited flag.
func (o PPSPDO) IsPowerLimited() bool { return o&(1<<27) != 0 }

// NewPPSPDO returns a blank SPR-PPS APDO with the type/subtype bits stamped.
func NewPPSPDO() PPSPDO {
	o := PPSPDO(PDOTypeAugmented) << 30
	o |= PPSPDO(APDOSprPPS) << 28
	return o
}

// SPRAVSPDO is an SPR Adjustable Voltage Supply APDO. It reports maximum
// current separately at 15 V and 20 V since SPR-AVS only ever operates
// between those two rails.
type SPRAVSPDO uint32

// MaxCurrent15V returns the maximum current available at 15 V, in
// milliamps (10 mA steps).
func (o SPRAVSPDO) MaxCurrent15V() uint16 { return uint16((o>>10)&0x3FF) * 10 }

// SetMaxCurrent15V rounds ma down to the nearest 10 mA step and stores it.
func (o *SPRAVSPDO) SetMaxCurrent15V(ma uint16) {
	*o = (*o &^ (0x3FF << 10)) | SPRAVSPDO(ma/10&0x3FF)<<10
}

// MaxCurrent20V returns the maximum current available at 20 V, in
// milliamps (10 mA steps). Zero means the 20 V rail is not offered.
func (o SPRAVSPDO) MaxCurrent20V() uint16 { return uint16(o&0x3FF) * 10 }

// SetMaxCurrent20V rounds ma down to the nearest 10 mA step and stores it.
func (o *SPRAVSPDO) SetMaxCurrent20V(ma uint16) {
	*o = (*o &^ 0x3FF) | SPRAVSPDO(ma/10&0x3FF)
}

// NewSPRAVSPDO returns a blank SPR-AVS APDO with the type/subtype bits
// stamped.
func NewSPRAVSPDO() SPRAVSPDO {
	o := SPRAVSPDO(PDOTypeAugmented) << 30
	o |= SPRAVSPDO(APDOSprAVS) << 28
	return o
}

// EPRAVSPDO is an EPR Adjustable Voltage Supply APDO (Table 6.15).
type EPRAVSPDO uint32

// MinVoltage returns the minimum output voltage in millivolts (100 mV steps).
func (o EPRAVSPDO) MinVoltage() uint16 { return uint16((o>>8)&0xFF) * 100 }

// SetMinVoltage rounds mv down to the nearest 100 mV step and stores it.
func (o *EPRAVSPDO) SetMinVoltage(mv uint16) {
	*o = (*o &^ (0xFF << 8)) | EPRAVSPDO(mv/100&0xFF)<<8
}

// MaxVoltage returns the maximum output voltage in millivolts (100 mV steps).
func (o EPRAVSPDO) MaxVoltage() uint16 { return uint16((o>>17)&0x1FF) * 100 }

// SetMaxVoltage rounds mv down to the nearest 100 mV step and stores it.
func (o *EPRAVSPDO) SetMaxVoltage(mv uint16) {
	*o = (*o &^ (0x1FF << 17)) | EPRAVSPDO(mv/100&0x1FF)<<17
}

// PDP returns the source power data product in watts (1 W steps).
func (o EPRAVSPDO) PDP() uint8 { return uint8(o & 0xFF) }

// SetPDP sets the power data product in watts.
func (o *EPRAVSPDO) SetPDP(w uint8) {
	*o = (*o &^ 0xFF) | EPRAVSPDO(w)
}

// NewEPRAVSPDO returns a blank EPR-AVS APDO with the type/subtype bits
// stamped.
func NewEPRAVSPDO() EPRAVSPDO {
	o := EPRAVSPDO(PDOTypeAugmented) << 30
	o |= EPRAVSPDO(APDOEprAVS) << 28
	return o
}

func setBit32(v *uint32, bit uint, set bool) {
	if set {
		*v |= 1 << bit
	} else {
		*v &^= 1 << bit
	}
}
