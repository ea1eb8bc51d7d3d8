package dpm

import "github.com/tinypd/pdsink/pdmsg"

// Policy picks a request out of a source's advertised capability list.
// SelectCapability never sees EPR-only positions unless the caller is
// already in EPR mode, since PE truncates the list itself (4.5,
// PE_SNK_Evaluate_Capability).
type Policy interface {
	// Validate reports an error if the policy's own parameters are
	// inconsistent, before it ever sees a capability list.
	Validate() error
	SelectCapability(caps []pdmsg.PDO) (pdmsg.RDO, pdmsg.PDO)
}

var (
	errCCBadCurrent          = errorString("dpm: current must be >= 1000mA & <= 5000mA")
	errBadVoltage            = errorString("dpm: voltage must be >= 3300mV & <= 21000mV")
	errCVBadCurrent          = errorString("dpm: current must be >= 0mA & <= 5000mA")
	errMaxCurrentLessThanMin = errorString("dpm: max current must be >= min current")
	errMaxVoltageLessThanMin = errorString("dpm: max voltage must be >= min voltage")
)

type errorString string

func (e errorString) Error() string { return string(e) }

// CCPolicy requests a constant current from a PPS profile: the source is
// expected to drop voltage under load to hold current at or below
// MaxCurrent, and raise it back up to MaxVoltage as load drops. Useful for
// driving LEDs or charging batteries. Only a PPS-capable source can satisfy
// this; a plain fixed-supply source never matches.
type CCPolicy struct {
	MinVoltage         uint16 // mV
	MaxVoltage         uint16 // mV
	MinCurrent         uint16 // mA, must be >= 1000 per PPS
	MaxCurrent         uint16 // mA, must be >= 1000 per PPS
	PreferLowerVoltage bool
}

// Validate reports an error if the policy parameters are invalid.
func (c CCPolicy) Validate() error {
	if c.MinCurrent < 1000 || c.MaxCurrent < 1000 || c.MinCurrent > 5000 || c.MaxCurrent > 5000 {
		return errCCBadCurrent
	}
	if c.MinVoltage < 3300 || c.MaxVoltage < 3300 || c.MinVoltage > 21000 || c.MaxVoltage > 21000 {
		return errBadVoltage
	}
	if c.MinCurrent > c.MaxCurrent {
		return errMaxCurrentLessThanMin
	}
	if c.MinVoltage > c.MaxVoltage {
		return errMaxVoltageLessThanMin
	}
	return nil
}

// SelectCapability picks the best PPS profile in range, preferring the
// lowest or highest qualifying voltage according to PreferLowerVoltage.
func (c CCPolicy) SelectCapability(caps []pdmsg.PDO) (pdmsg.RDO, pdmsg.PDO) {
	var bestVoltage uint16
	if c.PreferLowerVoltage {
		bestVoltage = ^uint16(0)
	}
	var rdo pdmsg.RDO
	var best pdmsg.PDO
	found := false
	for i, p := range caps {
		if p.Type() != pdmsg.PDOTypeAugmented || p.AugmentedSubtype() != pdmsg.APDOSprPPS {
			continue
		}
		pps := pdmsg.PPSPDO(p)
		minV, maxV := c.MinVoltage, c.MaxVoltage
		if minV < pps.MinVoltage() {
			minV = pps.MinVoltage()
		}
		if maxV > pps.MaxVoltage() {
			maxV = pps.MaxVoltage()
		}
		if minV > maxV || pps.MaxCurrent() < c.MinCurrent {
			continue
		}
		cur := pps.MaxCurrent()
		if cur > c.MaxCurrent {
			cur = c.MaxCurrent
		}
		pickLow := c.PreferLowerVoltage && minV < bestVoltage
		pickHigh := !c.PreferLowerVoltage && maxV > bestVoltage
		if !found || pickLow || pickHigh {
			v := maxV
			if c.PreferLowerVoltage {
				v = minV
			}
			rdo = buildPPSRequest(i+1, v, cur)
			best = p
			bestVoltage = v
			found = true
		}
	}
	return rdo, best
}

// CVPolicy requests a constant voltage at a minimum current, from whichever
// of a fixed or PPS profile satisfies it. PPS profiles get a current margin
// added so the supply does not clamp right at the edge of what was asked
// for.
type CVPolicy struct {
	MinVoltage         uint16 // mV
	MaxVoltage         uint16 // mV
	Current            uint16 // mA
	PreferLowerVoltage bool
	PreferPPS          bool
}

const cvCurrentMargin = 150 // mA

// Validate reports an error if the policy parameters are invalid.
func (c CVPolicy) Validate() error {
	if c.Current > 5000 {
		return errCVBadCurrent
	}
	if c.MinVoltage < 3300 || c.MaxVoltage < 3300 || c.MinVoltage > 21000 || c.MaxVoltage > 21000 {
		return errBadVoltage
	}
	if c.MinVoltage > c.MaxVoltage {
		return errMaxVoltageLessThanMin
	}
	return nil
}

// SelectCapability picks the best matching fixed or PPS profile.
func (c CVPolicy) SelectCapability(caps []pdmsg.PDO) (pdmsg.RDO, pdmsg.PDO) {
	ppsMaxCurrent := c.Current + cvCurrentMargin

	var bestFixedV, bestPPSV uint16
	if c.PreferLowerVoltage {
		bestFixedV, bestPPSV = ^uint16(0), ^uint16(0)
	}
	var fixedRDO, ppsRDO pdmsg.RDO
	var fixedPDO, ppsPDO pdmsg.PDO
	haveFixed, havePPS := false, false

	for i, p := range caps {
		switch {
		case p.Type() == pdmsg.PDOTypeFixed:
			fx := pdmsg.FixedPDO(p)
			v := fx.Voltage()
			if v < c.MinVoltage || v > c.MaxVoltage || fx.MaxCurrent() < c.Current {
				continue
			}
			if !haveFixed || (c.PreferLowerVoltage && v < bestFixedV) || (!c.PreferLowerVoltage && v > bestFixedV) {
				fixedRDO = buildFixedRequest(i+1, c.Current)
				fixedPDO = p
				bestFixedV = v
				haveFixed = true
			}
		case p.Type() == pdmsg.PDOTypeAugmented && p.AugmentedSubtype() == pdmsg.APDOSprPPS:
			pps := pdmsg.PPSPDO(p)
			minV, maxV := c.MinVoltage, c.MaxVoltage
			if minV < pps.MinVoltage() {
				minV = pps.MinVoltage()
			}
			if maxV > pps.MaxVoltage() {
				maxV = pps.MaxVoltage()
			}
			if minV > maxV || ppsMaxCurrent > pps.MaxCurrent() {
				continue
			}
			v := maxV
			if c.PreferLowerVoltage {
				v = minV
			}
			if !havePPS || (c.PreferLowerVoltage && v < bestPPSV) || (!c.PreferLowerVoltage && v > bestPPSV) {
				ppsRDO = buildPPSRequest(i+1, v, c.Current)
				ppsPDO = p
				bestPPSV = v
				havePPS = true
			}
		}
	}

	switch {
	case !haveFixed:
		return ppsRDO, ppsPDO
	case !havePPS:
		return fixedRDO, fixedPDO
	case c.PreferPPS:
		return ppsRDO, ppsPDO
	default:
		return fixedRDO, fixedPDO
	}
}

// CPPolicy requests a constant power at the negotiated voltage; current is
// derived from power/voltage at request time rather than supplied directly.
type CPPolicy struct {
	MinVoltage         uint16 // mV
	MaxVoltage         uint16 // mV
	PowerMW            uint32 // mW
	PreferLowerVoltage bool
	PreferPPS          bool
}

// SelectCapability picks the best matching fixed or PPS profile, deriving
// the requested current from PowerMW at each candidate voltage.
func (c CPPolicy) SelectCapability(caps []pdmsg.PDO) (pdmsg.RDO, pdmsg.PDO) {
	var bestFixedV, bestPPSV uint16
	if c.PreferLowerVoltage {
		bestFixedV, bestPPSV = ^uint16(0), ^uint16(0)
	}
	var fixedRDO, ppsRDO pdmsg.RDO
	var fixedPDO, ppsPDO pdmsg.PDO
	haveFixed, havePPS := false, false

	for i, p := range caps {
		switch {
		case p.Type() == pdmsg.PDOTypeFixed:
			fx := pdmsg.FixedPDO(p)
			v := fx.Voltage()
			if v == 0 || v < c.MinVoltage || v > c.MaxVoltage {
				continue
			}
			cur := uint16(c.PowerMW * 1000 / uint32(v))
			if fx.MaxCurrent() < cur {
				continue
			}
			if !haveFixed || (c.PreferLowerVoltage && v < bestFixedV) || (!c.PreferLowerVoltage && v > bestFixedV) {
				fixedRDO = buildFixedRequest(i+1, cur)
				fixedPDO = p
				bestFixedV = v
				haveFixed = true
			}
		case p.Type() == pdmsg.PDOTypeAugmented && p.AugmentedSubtype() == pdmsg.APDOSprPPS:
			pps := pdmsg.PPSPDO(p)
			minV, maxV := c.MinVoltage, c.MaxVoltage
			if minV < pps.MinVoltage() {
				minV = pps.MinVoltage()
			}
			if maxV > pps.MaxVoltage() {
				maxV = pps.MaxVoltage()
			}
			if minV > maxV {
				continue
			}
			v := maxV
			if c.PreferLowerVoltage {
				v = minV
			}
			if v == 0 {
				continue
			}
			cur := uint16(c.PowerMW * 1000 / uint32(v))
			if pps.MaxCurrent() < cur+cvCurrentMargin {
				continue
			}
			if !havePPS || (c.PreferLowerVoltage && v < bestPPSV) || (!c.PreferLowerVoltage && v > bestPPSV) {
				ppsRDO = buildPPSRequest(i+1, v, cur)
				ppsPDO = p
				bestPPSV = v
				havePPS = true
			}
		}
	}

	switch {
	case !haveFixed:
		return ppsRDO, ppsPDO
	case !havePPS:
		return fixedRDO, fixedPDO
	case c.PreferPPS:
		return ppsRDO, ppsPDO
	default:
		return fixedRDO, fixedPDO
	}
}

func buildFixedRequest(pos int, ma uint16) pdmsg.RDO {
	var rdo pdmsg.RDO
	rdo.SetObjectPosition(uint8(pos))
	var fv pdmsg.RDOFixedOrVariable
	fv.SetOperatingCurrent(ma)
	fv.SetMaxOperatingCurrent(ma)
	return rdo | pdmsg.RDO(fv)
}

func buildPPSRequest(pos int, mv, ma uint16) pdmsg.RDO {
	var rdo pdmsg.RDO
	rdo.SetObjectPosition(uint8(pos))
	var pps pdmsg.RDOPPS
	pps.SetOutputVoltage(mv)
	pps.SetOperatingCurrent(ma)
	return rdo | pdmsg.RDO(pps)
}
