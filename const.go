package max30102

// Register addresses
const (
	IntStat1         = 0x00
	IntStat2         = 0x01
	IntEna1          = 0x02
	IntEna2          = 0x03
	FIFOWrPtr        = 0x04
	OvfCount         = 0x05
	FIFORdPtr        = 0x06
	FIFOData         = 0x07
	FIFOCfg          = 0x08
	ModeCfg          = 0x09
	SpO2Cfg          = 0x0A
	Led1PA           = 0x0C
	Led2PA           = 0x0D
	MultiLedModeS2S1 = 0x11
	MultiLedModeS4S3 = 0x12
	TempInt          = 0x1F
	TempFrac         = 0x20
	TempCfg          = 0x21
	RegRevID         = 0xFE
	RegPartID        = 0xFF
)

// Interrupt status flags. Both status registers clear on read.
const (
	// Status 1
	FIFOFull              byte = 1 << 7
	NewFIFOData           byte = 1 << 6
	AmbientLightCancelOvf byte = 1 << 5
	PowerReady            byte = 1 << 0

	// Status 2
	DieTempReady byte = 1 << 1
)

// Interrupt identifies one of the device's interrupt sources by its bit
// position in the corresponding status register.
type Interrupt byte

// Interrupt sources accepted by SetInterrupt.
const (
	IntPowerReady   Interrupt = 0
	IntDieTempReady Interrupt = 1
	IntALCOverflow  Interrupt = 5
	IntNewSample    Interrupt = 6
	IntFIFOFull     Interrupt = 7
)

// Device constants
const (
	Addr   = 0x57
	PartID = 0x15

	// FIFODepth is the number of sample pairs the hardware ring buffer
	// holds. Each pair occupies 6 bytes, 18 significant bits per channel.
	FIFODepth = 32

	sampleBytes = 6
)

// Operating modes
const (
	ModeHR       byte = 0x02
	ModeSpO2     byte = 0x03
	ModeMultiLed byte = 0x07
)

// LED slot assignments
const (
	LedNone byte = 0
	LedRed  byte = 1
	LedIR   byte = 2

	slotLedMax byte = 3
)

// Settings
const (
	TempEna      byte = 0x01
	ResetControl byte = 0x40
)

// SpO2 sample rate control, pre-shifted into bits 4:2.
const (
	SR50 = iota << 2
	SR100
	SR200
	SR400
	SR800
	SR1000
	SR1600
	SR3200
)

// LED pulse width control, bits 1:0. PW411 selects 18-bit resolution.
const (
	PW69 = iota
	PW118
	PW215
	PW411
)

// SpO2 ADC full-scale range control, bits 6:5.
const (
	ADC2048 = iota << 5
	ADC4096
	ADC8192
	ADC16384
)

// FIFO configuration fields.
const (
	fifoSmpAve8  byte = 0x03 << 5
	fifoRollover byte = 1 << 4
)

// Power-on defaults written by the init sequence: 8-sample averaging with
// rollover, SpO2 mode at 100 samples/s, 411us pulses (18-bit), 8192 ADC
// range, ~6.4mA on both LEDs, slot1=Red/slot2=IR, FIFO-full and
// sample-ready interrupts enabled.
const (
	defaultFIFOConfig byte = fifoSmpAve8 | fifoRollover
	defaultSpO2Config byte = ADC8192 | SR100 | PW411
	defaultPulseAmp   byte = 0x1F
	defaultSlotS2S1   byte = LedIR<<4 | LedRed
	defaultIntEna     byte = FIFOFull | NewFIFOData
)
