package pe

import (
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// errInvalidCaps is returned by validateSourceCapabilities; the PE
// states that call it only care whether it's nil.
type errInvalidCaps string

func (e errInvalidCaps) Error() string { return string(e) }

// eprOnlyVoltage is the Fixed PDO voltage above which a supply is
// EPR-only (4.7 rule 3: Fixed > 20V must live at positions 8..11).
const eprOnlyVoltage = 20000

// isEPROnly reports whether p may only appear at an EPR position
// (8..11): a Fixed supply above 20V, or an EPR-AVS APDO.
func isEPROnly(p pdmsg.PDO) bool {
	if p.Type() == pdmsg.PDOTypeFixed {
		return pdmsg.FixedPDO(p).Voltage() > eprOnlyVoltage
	}
	return p.Type() == pdmsg.PDOTypeAugmented && p.AugmentedSubtype() == pdmsg.APDOEprAVS
}

// validateSourceCapabilities implements the 4.7 source-capabilities
// validator: position 1 must be the fixed vSafe5V supply, EPR-only and
// SPR supplies must not mix across the 1..7 / 8..11 position split, at
// most one SPR-AVS and one EPR-AVS APDO may be present, and within each
// PDO type the objects must appear in ascending order (strictly for
// Fixed voltages, non-decreasing for PPS max-voltage), matching the
// ordering rev 3.2 6.4.1 requires a compliant source to send. A source
// that violates this is treated as too broken to negotiate with rather
// than guessed at.
func validateSourceCapabilities(caps []pdmsg.PDO) error {
	if len(caps) == 0 {
		return errInvalidCaps("no source capabilities")
	}
	if len(caps) > port.MaxPdoObjects {
		return errInvalidCaps("too many source capabilities")
	}
	if caps[0].Type() != pdmsg.PDOTypeFixed || pdmsg.FixedPDO(caps[0]).Voltage() != 5000 {
		return errInvalidCaps("first source capability is not the vSafe5V fixed supply")
	}

	var lastFixed, lastPPSMax uint16
	var sprAVSCount, eprAVSCount int
	seenNonFixed := false

	for i, p := range caps {
		pos := i + 1
		eprOnly := isEPROnly(p)
		if pos <= port.MaxPdoObjectsSPR && eprOnly {
			return errInvalidCaps("EPR-only supply in an SPR position")
		}
		if pos > port.MaxPdoObjectsSPR && !eprOnly {
			return errInvalidCaps("SPR supply in an EPR-only position")
		}
		// The EPR block orders its own Fixed/non-Fixed objects
		// independently of the SPR block: EPR-AVS conventionally
		// precedes the EPR Fixed supplies at position 8, so "a Fixed
		// object may not follow a non-Fixed one" resets at the
		// SPR/EPR boundary rather than applying to the whole list, and
		// the EPR-AVS object itself does not count as non-Fixed.
		if pos == port.MaxPdoObjectsSPR+1 {
			seenNonFixed = false
		}

		switch p.Type() {
		case pdmsg.PDOTypeFixed:
			if seenNonFixed {
				return errInvalidCaps("fixed supply out of order")
			}
			v := pdmsg.FixedPDO(p).Voltage()
			if i > 0 && v <= lastFixed {
				return errInvalidCaps("fixed supplies not in ascending voltage order")
			}
			lastFixed = v
		case pdmsg.PDOTypeBattery, pdmsg.PDOTypeVariable:
			seenNonFixed = true
		case pdmsg.PDOTypeAugmented:
			if p.AugmentedSubtype() != pdmsg.APDOEprAVS {
				seenNonFixed = true
			}
			switch p.AugmentedSubtype() {
			case pdmsg.APDOSprPPS:
				pps := pdmsg.PPSPDO(p)
				if pps.MinVoltage() > pps.MaxVoltage() {
					return errInvalidCaps("PPS supply has min voltage above max voltage")
				}
				if pps.MaxVoltage() < lastPPSMax {
					return errInvalidCaps("PPS supplies not in non-decreasing max-voltage order")
				}
				lastPPSMax = pps.MaxVoltage()
			case pdmsg.APDOSprAVS:
				sprAVSCount++
				if sprAVSCount > 1 {
					return errInvalidCaps("more than one SPR-AVS supply")
				}
			case pdmsg.APDOEprAVS:
				av := pdmsg.EPRAVSPDO(p)
				if av.MinVoltage() > av.MaxVoltage() {
					return errInvalidCaps("EPR-AVS supply has min voltage above max voltage")
				}
				eprAVSCount++
				if eprAVSCount > 1 {
					return errInvalidCaps("more than one EPR-AVS supply")
				}
			}
		}
	}
	return nil
}
