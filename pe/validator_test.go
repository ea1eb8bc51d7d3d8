package pe

import (
	"testing"

	"github.com/tinypd/pdsink/pdmsg"
)

func fixedPDO(mv uint16) pdmsg.PDO {
	o := pdmsg.NewFixedPDO()
	o.SetVoltage(mv)
	o.SetMaxCurrent(3000)
	return pdmsg.PDO(o)
}

func ppsPDO(minMV, maxMV uint16) pdmsg.PDO {
	o := pdmsg.NewPPSPDO()
	o.SetMinVoltage(minMV)
	o.SetMaxVoltage(maxMV)
	o.SetMaxCurrent(3000)
	return pdmsg.PDO(o)
}

func sprAVSPDO() pdmsg.PDO {
	o := pdmsg.NewSPRAVSPDO()
	o.SetMaxCurrent15V(3000)
	return pdmsg.PDO(o)
}

func eprAVSPDO(minMV, maxMV uint16, pdp uint8) pdmsg.PDO {
	o := pdmsg.NewEPRAVSPDO()
	o.SetMinVoltage(minMV)
	o.SetMaxVoltage(maxMV)
	o.SetPDP(pdp)
	return pdmsg.PDO(o)
}

func TestValidateSourceCapabilities(t *testing.T) {
	cases := []struct {
		name    string
		caps    []pdmsg.PDO
		wantErr bool
	}{
		{
			name:    "empty rejected",
			caps:    nil,
			wantErr: true,
		},
		{
			name:    "first not vSafe5V rejected",
			caps:    []pdmsg.PDO{fixedPDO(9000), fixedPDO(5000)},
			wantErr: true,
		},
		{
			name:    "plain ascending fixed accepted",
			caps:    []pdmsg.PDO{fixedPDO(5000), fixedPDO(9000), fixedPDO(15000), fixedPDO(20000)},
			wantErr: false,
		},
		{
			name:    "non-ascending fixed rejected",
			caps:    []pdmsg.PDO{fixedPDO(5000), fixedPDO(15000), fixedPDO(9000)},
			wantErr: true,
		},
		{
			name:    "duplicate fixed voltage rejected",
			caps:    []pdmsg.PDO{fixedPDO(5000), fixedPDO(9000), fixedPDO(9000)},
			wantErr: true,
		},
		{
			name:    "non-decreasing PPS max voltage accepted",
			caps:    []pdmsg.PDO{fixedPDO(5000), fixedPDO(9000), ppsPDO(3300, 11000), ppsPDO(3300, 21000)},
			wantErr: false,
		},
		{
			name:    "descending PPS max voltage rejected",
			caps:    []pdmsg.PDO{fixedPDO(5000), fixedPDO(9000), ppsPDO(3300, 21000), ppsPDO(3300, 11000)},
			wantErr: true,
		},
		{
			name:    "equal PPS max voltage accepted (duplicates allowed)",
			caps:    []pdmsg.PDO{fixedPDO(5000), ppsPDO(3300, 11000), ppsPDO(3300, 11000)},
			wantErr: false,
		},
		{
			name:    "single SPR-AVS accepted",
			caps:    []pdmsg.PDO{fixedPDO(5000), fixedPDO(9000), sprAVSPDO()},
			wantErr: false,
		},
		{
			name:    "two SPR-AVS rejected",
			caps:    []pdmsg.PDO{fixedPDO(5000), sprAVSPDO(), sprAVSPDO()},
			wantErr: true,
		},
		{
			name: "two EPR-AVS rejected",
			caps: []pdmsg.PDO{
				fixedPDO(5000), fixedPDO(9000), fixedPDO(15000), fixedPDO(20000),
				ppsPDO(3300, 11000), ppsPDO(3300, 21000), sprAVSPDO(),
				eprAVSPDO(15000, 28000, 100), eprAVSPDO(15000, 48000, 140),
			},
			wantErr: true,
		},
		{
			name: "EPR-only fixed in an SPR position rejected",
			caps: []pdmsg.PDO{fixedPDO(5000), fixedPDO(28000)},
			wantErr: true,
		},
		{
			name: "SPR fixed in an EPR-only position rejected",
			caps: append(
				make([]pdmsg.PDO, 0, 8),
				fixedPDO(5000), fixedPDO(9000), fixedPDO(15000), fixedPDO(20000),
				ppsPDO(3300, 11000), sprAVSPDO(), ppsPDO(3300, 21000),
				fixedPDO(9000), // position 8, SPR voltage - invalid in an EPR-only slot
			),
			wantErr: true,
		},
		{
			name: "valid full EPR list accepted",
			caps: []pdmsg.PDO{
				fixedPDO(5000), fixedPDO(9000), fixedPDO(15000), fixedPDO(20000),
				ppsPDO(3300, 11000), ppsPDO(3300, 21000), sprAVSPDO(),
				eprAVSPDO(15000, 28000, 100), fixedPDO(28000), fixedPDO(36000), fixedPDO(48000),
			},
			wantErr: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := validateSourceCapabilities(c.caps)
			if (err != nil) != c.wantErr {
				t.Errorf("validateSourceCapabilities() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}
