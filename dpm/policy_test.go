package dpm

import "testing"

import "github.com/tinypd/pdsink/pdmsg"

func fixedPDO(mv, ma uint16) pdmsg.PDO {
	o := pdmsg.NewFixedPDO()
	o.SetVoltage(mv)
	o.SetMaxCurrent(ma)
	return pdmsg.PDO(o)
}

func ppsPDO(minMV, maxMV, maxMA uint16) pdmsg.PDO {
	o := pdmsg.NewPPSPDO()
	o.SetMinVoltage(minMV)
	o.SetMaxVoltage(maxMV)
	o.SetMaxCurrent(maxMA)
	return pdmsg.PDO(o)
}

func TestCCPolicySelectsHighestVoltagePPS(t *testing.T) {
	caps := []pdmsg.PDO{
		fixedPDO(5000, 3000),
		ppsPDO(3300, 11000, 3000),
		ppsPDO(3300, 21000, 5000),
	}
	p := CCPolicy{MinVoltage: 3300, MaxVoltage: 21000, MinCurrent: 1000, MaxCurrent: 2000}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	rdo, pdo := p.SelectCapability(caps)
	if rdo.ObjectPosition() != 3 {
		t.Fatalf("object position = %d, want 3", rdo.ObjectPosition())
	}
	if pdmsg.PPSPDO(pdo).MaxVoltage() != 21000 {
		t.Fatalf("selected PDO max voltage = %d, want 21000", pdmsg.PPSPDO(pdo).MaxVoltage())
	}
	ppsRDO := pdmsg.RDOPPS(rdo)
	if ppsRDO.OutputVoltage() != 21000 {
		t.Fatalf("requested voltage = %d, want 21000", ppsRDO.OutputVoltage())
	}
	if ppsRDO.OperatingCurrent() != 2000 {
		t.Fatalf("requested current = %d, want 2000", ppsRDO.OperatingCurrent())
	}
}

func TestCCPolicyRejectsSourceWithNoPPS(t *testing.T) {
	caps := []pdmsg.PDO{fixedPDO(5000, 3000), fixedPDO(9000, 3000)}
	p := CCPolicy{MinVoltage: 3300, MaxVoltage: 21000, MinCurrent: 1000, MaxCurrent: 2000}
	rdo, _ := p.SelectCapability(caps)
	if rdo.ObjectPosition() != 0 {
		t.Fatalf("object position = %d, want 0 (no match)", rdo.ObjectPosition())
	}
}

func TestCVPolicyPrefersFixedOverPPS(t *testing.T) {
	caps := []pdmsg.PDO{
		fixedPDO(5000, 3000),
		fixedPDO(20000, 3000),
		ppsPDO(3300, 21000, 5000),
	}
	p := CVPolicy{MinVoltage: 15000, MaxVoltage: 21000, Current: 2000}
	rdo, pdo := p.SelectCapability(caps)
	if rdo.ObjectPosition() != 2 {
		t.Fatalf("object position = %d, want 2 (the fixed 20V entry)", rdo.ObjectPosition())
	}
	if pdmsg.FixedPDO(pdo).Voltage() != 20000 {
		t.Fatalf("selected voltage = %d, want 20000", pdmsg.FixedPDO(pdo).Voltage())
	}
}

func TestCVPolicyFallsBackToPPSWhenNoFixedMatches(t *testing.T) {
	caps := []pdmsg.PDO{fixedPDO(5000, 3000), ppsPDO(3300, 21000, 3000)}
	p := CVPolicy{MinVoltage: 18000, MaxVoltage: 21000, Current: 2000}
	rdo, _ := p.SelectCapability(caps)
	if rdo.ObjectPosition() != 2 {
		t.Fatalf("object position = %d, want 2 (the PPS entry)", rdo.ObjectPosition())
	}
}

func TestCPPolicyDerivesCurrentFromPower(t *testing.T) {
	caps := []pdmsg.PDO{fixedPDO(5000, 3000), fixedPDO(20000, 3000)}
	p := CPPolicy{MinVoltage: 15000, MaxVoltage: 21000, PowerMW: 60000}
	rdo, _ := p.SelectCapability(caps)
	if rdo.ObjectPosition() != 2 {
		t.Fatalf("object position = %d, want 2", rdo.ObjectPosition())
	}
	fv := pdmsg.RDOFixedOrVariable(rdo)
	if fv.OperatingCurrent() != 3000 {
		t.Fatalf("operating current = %d, want 3000 (60W/20V)", fv.OperatingCurrent())
	}
}
