package max30102

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
)

// drainChunk is the largest slice of FIFO data moved per transaction: 5
// whole sample pairs, keeping each burst within the 32-byte transfer
// limit. The FIFO data register auto-advances the hardware read pointer,
// so chunked reads drain contiguously.
const drainChunk = 5 * sampleBytes

// HandleInterrupt is the acquisition entry point, invoked once per
// falling edge of the interrupt line. It never sleeps. Delivery may be
// coalesced by the host, so an invocation with no actionable status bits
// is a no-op. Corrupt FIFO state abandons the drain for this cycle; it is
// retried on the next interrupt.
func (d *Device) HandleInterrupt() {
	if err := d.handleInterrupt(); err != nil {
		glog.Errorf("max30102: interrupt handling failed: %v", err)
	}
}

func (d *Device) handleInterrupt() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// One read each, in order. Both registers clear on read.
	status1, err := d.readReg(IntStat1)
	if err != nil {
		return fmt.Errorf("could not read interrupt status 1: %w", err)
	}
	status2, err := d.readReg(IntStat2)
	if err != nil {
		return fmt.Errorf("could not read interrupt status 2: %w", err)
	}
	glog.V(2).Infof("max30102: interrupt status1=%#02x status2=%#02x", status1, status2)

	if status1&FIFOFull != 0 {
		if err := d.drainFIFO(); err != nil {
			if errors.Is(err, ErrCorruptFIFO) {
				glog.Warningf("max30102: %v, drain skipped", err)
			} else {
				return err
			}
		}
	}

	if status1&NewFIFOData != 0 {
		glog.V(1).Info("max30102: sample ready")
	}
	if status1&AmbientLightCancelOvf != 0 {
		glog.Warning("max30102: ambient light cancellation overflow, reduce LED current")
	}
	if status1&PowerReady != 0 {
		glog.V(1).Info("max30102: power ready")
	}
	if status2&DieTempReady != 0 {
		glog.V(1).Info("max30102: die temperature ready")
	}
	return nil
}

// drainFIFO reads the whole unread span of the hardware FIFO, decodes it
// and publishes the sample set. The caller must hold d.mu.
func (d *Device) drainFIFO() error {
	wr, err := d.readReg(FIFOWrPtr)
	if err != nil {
		return fmt.Errorf("could not read FIFO write pointer: %w", err)
	}
	rd, err := d.readReg(FIFORdPtr)
	if err != nil {
		return fmt.Errorf("could not read FIFO read pointer: %w", err)
	}
	count := (int(wr) - int(rd) + FIFODepth) % FIFODepth
	if count <= 0 || count > FIFODepth {
		return fmt.Errorf("write pointer %d, read pointer %d: %w", wr, rd, ErrCorruptFIFO)
	}

	ovf, err := d.readReg(OvfCount)
	if err != nil {
		return fmt.Errorf("could not read overflow counter: %w", err)
	}
	if ovf > 0 {
		glog.Warningf("max30102: FIFO overflow, %d samples lost", ovf)
	}

	scratch := make([]byte, count*sampleBytes)
	for off := 0; off < len(scratch); off += drainChunk {
		n := len(scratch) - off
		if n > drainChunk {
			n = drainChunk
		}
		b, err := d.readBurst(FIFOData, n)
		if err != nil {
			return fmt.Errorf("could not read FIFO data: %w", err)
		}
		copy(scratch[off:], b)
	}

	var s Sample
	for i := 0; i < count; i++ {
		s.Red[i], s.IR[i] = decodeSample(scratch[i*sampleBytes:])
	}
	s.Len = uint8(count)
	s.Overflow = ovf
	d.publishSamples(&s)
	glog.V(1).Infof("max30102: drained %d samples", count)
	return nil
}

// decodeSample unpacks one 6-byte FIFO group into an 18-bit Red and IR
// pair. Each channel is 18 significant bits packed into a 3-byte
// big-endian field with 6 trailing don't-care bits.
func decodeSample(b []byte) (red, ir uint32) {
	red = uint32(b[0])<<10 | uint32(b[1])<<2 | uint32(b[2])>>6
	ir = uint32(b[3])<<10 | uint32(b[4])<<2 | uint32(b[5])>>6
	return red, ir
}

// Temperature runs one die-temperature conversion: trigger, poll the
// ready bit every 10ms for up to 10 attempts (the device typically
// converts in ~29ms), then combine the signed integer register with the
// 1/16 degree fraction. The reading is cached for LastTemperature. The
// poll sleeps, so Temperature must only be called from request context,
// never from the interrupt path.
func (d *Device) Temperature() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writeReg(TempCfg, TempEna); err != nil {
		return 0, fmt.Errorf("max30102: could not start temperature conversion: %w", err)
	}

	ready := false
	for i := 0; i < d.tempPollTries; i++ {
		time.Sleep(d.tempPollEvery)
		status, err := d.readReg(IntStat2)
		if err != nil {
			return 0, fmt.Errorf("max30102: could not poll temperature state: %w", err)
		}
		if status&DieTempReady != 0 {
			ready = true
			break
		}
	}
	if !ready {
		return 0, fmt.Errorf("max30102: temperature conversion: %w", ErrTimeout)
	}

	ti, err := d.readReg(TempInt)
	if err != nil {
		return 0, fmt.Errorf("max30102: could not read integer part of temperature: %w", err)
	}
	tf, err := d.readReg(TempFrac)
	if err != nil {
		return 0, fmt.Errorf("max30102: could not read fractional part of temperature: %w", err)
	}

	t := float64(int8(ti)) + float64(tf&0x0F)*0.0625
	d.lastTemp = t
	d.tempValid = true
	return t, nil
}

// LastTemperature returns the cached result of the most recent completed
// conversion, if any.
func (d *Device) LastTemperature() (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastTemp, d.tempValid
}
