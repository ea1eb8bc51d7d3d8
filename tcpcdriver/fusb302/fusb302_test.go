package fusb302

import (
	"testing"

	"github.com/tinypd/pdsink/tcpc"
)

func TestCCLevelFromBCLVL(t *testing.T) {
	cases := []struct {
		status0 byte
		want    tcpc.CCLevel
	}{
		{0b00, tcpc.CCLevelNone},
		{0b01, tcpc.CCLevelRp0A5},
		{0b10, tcpc.CCLevelRp1A5},
		{0b11, tcpc.CCLevelRp3A0},
		// high bits outside the BC_LVL field must not affect the result.
		{0b11111100, tcpc.CCLevelNone},
		{0b11111101, tcpc.CCLevelRp0A5},
	}
	for _, c := range cases {
		if got := ccLevelFromBCLVL(c.status0); got != c.want {
			t.Errorf("ccLevelFromBCLVL(%#08b) = %v, want %v", c.status0, got, c.want)
		}
	}
}

func TestMPNI2CAddress(t *testing.T) {
	if got, want := FUSB302BMPX.I2CAddress(), uint8(0b100010); got != want {
		t.Errorf("I2CAddress() = %#x, want %#x", got, want)
	}
	if got, want := FUSB302B10MPX.I2CAddress(), uint8(0b100100); got != want {
		t.Errorf("I2CAddress() = %#x, want %#x", got, want)
	}
}
