package max30102

// Register is one entry of a diagnostic register dump.
type Register struct {
	Addr  byte
	Name  string
	Value byte
}

// dumpRegs lists the registers safe to read for diagnostics. The
// interrupt status registers clear on read and are deliberately absent.
var dumpRegs = []struct {
	addr byte
	name string
}{
	{IntEna1, "Interrupt Enable 1"},
	{IntEna2, "Interrupt Enable 2"},
	{FIFOWrPtr, "FIFO Write Pointer"},
	{OvfCount, "Overflow Counter"},
	{FIFORdPtr, "FIFO Read Pointer"},
	{FIFOCfg, "FIFO Config"},
	{ModeCfg, "Mode Config"},
	{SpO2Cfg, "SpO2 Config"},
	{Led1PA, "LED1 Pulse Amplitude"},
	{Led2PA, "LED2 Pulse Amplitude"},
	{MultiLedModeS2S1, "Multi-LED Mode S2/S1"},
	{MultiLedModeS4S3, "Multi-LED Mode S4/S3"},
	{TempInt, "Die Temp Integer"},
	{TempFrac, "Die Temp Fraction"},
	{TempCfg, "Die Temp Config"},
	{RegRevID, "Revision ID"},
	{RegPartID, "Part ID"},
}

// DumpRegisters reads the diagnostic register set in one locked pass.
func (d *Device) DumpRegisters() ([]Register, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := make([]Register, 0, len(dumpRegs))
	for _, r := range dumpRegs {
		v, err := d.readReg(r.addr)
		if err != nil {
			return nil, err
		}
		regs = append(regs, Register{Addr: r.addr, Name: r.name, Value: v})
	}
	return regs, nil
}

// DumpFIFO returns a copy of the current mailbox contents without
// consuming them, or ErrNoData when the mailbox is empty.
func (d *Device) DumpFIFO() (*Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.boxFull {
		return nil, ErrNoData
	}
	s := d.box
	return &s, nil
}
