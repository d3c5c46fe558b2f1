package max30102

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/i2c/i2ctest"
)

func TestSetMode(t *testing.T) {
	d, p := newTestDevice(t, i2ctest.IO{Addr: Addr, W: []byte{ModeCfg, ModeHR}})
	require.NoError(t, d.SetMode(ModeHR))
	require.Equal(t, ModeHR, d.Config().Mode)
	require.Equal(t, len(initOps())+1, p.Count)
}

func TestSetModeInvalid(t *testing.T) {
	d, p := newTestDevice(t)
	err := d.SetMode(0x05)
	require.True(t, errors.Is(err, ErrInvalidParam))
	require.Equal(t, len(initOps()), p.Count, "rejected mode must not touch the bus")
	require.Equal(t, ModeSpO2, d.Config().Mode, "snapshot must keep the last accepted value")
}

func TestSetSlot(t *testing.T) {
	testCases := []struct {
		name      string
		slot, led byte
		reg       byte
		current   byte
		want      byte
		cfgIdx    int
	}{
		{"slot 1 low nibble", 1, LedNone, MultiLedModeS2S1, 0x21, 0x20, 0},
		{"slot 2 high nibble", 2, LedIR, MultiLedModeS2S1, 0x21, 0x21, 0},
		{"slot 3 low nibble", 3, LedRed, MultiLedModeS4S3, 0x00, 0x01, 1},
		{"slot 4 preserves sibling", 4, LedIR, MultiLedModeS4S3, 0x01, 0x21, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := newTestDevice(t,
				i2ctest.IO{Addr: Addr, W: []byte{tc.reg}, R: []byte{tc.current}},
				i2ctest.IO{Addr: Addr, W: []byte{tc.reg, tc.want}},
			)
			require.NoError(t, d.SetSlot(tc.slot, tc.led))
			require.Equal(t, tc.want, d.Config().Slots[tc.cfgIdx])
		})
	}
}

func TestSetSlotInvalid(t *testing.T) {
	d, p := newTestDevice(t)
	for _, tc := range []struct{ slot, led byte }{
		{0, LedRed},
		{5, LedRed},
		{1, slotLedMax + 1},
	} {
		err := d.SetSlot(tc.slot, tc.led)
		require.True(t, errors.Is(err, ErrInvalidParam), "slot %d led %d", tc.slot, tc.led)
	}
	require.Equal(t, len(initOps()), p.Count, "rejected assignments must not touch the bus")
}

func TestSetFIFOConfig(t *testing.T) {
	d, _ := newTestDevice(t, i2ctest.IO{Addr: Addr, W: []byte{FIFOCfg, 0x5F}})
	require.NoError(t, d.SetFIFOConfig(0x5F))
	require.Equal(t, byte(0x5F), d.Config().FIFO)
}

func TestDefaultConfigBytes(t *testing.T) {
	// The exact bytes the init sequence puts on the wire.
	require.Equal(t, byte(0x70), defaultFIFOConfig)
	require.Equal(t, byte(0x47), defaultSpO2Config)
	require.Equal(t, byte(0x21), defaultSlotS2S1)
	require.Equal(t, byte(0xC0), defaultIntEna)
}

func TestSetSpO2Config(t *testing.T) {
	// Pulse width code 1, sample rate code 3, 8192 ADC range.
	d, _ := newTestDevice(t, i2ctest.IO{Addr: Addr, W: []byte{SpO2Cfg, 0x4D}})
	require.NoError(t, d.SetSpO2Config(0x4D))
	require.Equal(t, byte(0x4D), d.Config().SpO2)
}

func TestSetSpO2ConfigInvalid(t *testing.T) {
	d, p := newTestDevice(t)
	for _, cfg := range []byte{
		0x80,        // reserved bit set
		5<<2 | 0x00, // rate code 5 too fast for pulse width code 0
		7<<2 | 0x01, // rate code 7 too fast for pulse width code 1
	} {
		err := d.SetSpO2Config(cfg)
		require.True(t, errors.Is(err, ErrInvalidParam), "config %#02x", cfg)
	}
	require.Equal(t, len(initOps()), p.Count)
	require.Equal(t, byte(defaultSpO2Config), d.Config().SpO2)
}

func TestSetInterrupt(t *testing.T) {
	t.Run("die temp lives in the second enable register", func(t *testing.T) {
		d, _ := newTestDevice(t,
			i2ctest.IO{Addr: Addr, W: []byte{IntEna2}, R: []byte{0x00}},
			i2ctest.IO{Addr: Addr, W: []byte{IntEna2, DieTempReady}},
		)
		require.NoError(t, d.SetInterrupt(IntDieTempReady, true))
		require.Equal(t, byte(DieTempReady), d.Config().IntEna[1])
	})
	t.Run("disable preserves other sources", func(t *testing.T) {
		d, _ := newTestDevice(t,
			i2ctest.IO{Addr: Addr, W: []byte{IntEna1}, R: []byte{0xC0}},
			i2ctest.IO{Addr: Addr, W: []byte{IntEna1, NewFIFOData}},
		)
		require.NoError(t, d.SetInterrupt(IntFIFOFull, false))
		require.Equal(t, byte(NewFIFOData), d.Config().IntEna[0])
	})
}

func TestSetInterruptInvalid(t *testing.T) {
	d, p := newTestDevice(t)
	err := d.SetInterrupt(Interrupt(3), true)
	require.True(t, errors.Is(err, ErrInvalidParam))
	require.Equal(t, len(initOps()), p.Count)
}
