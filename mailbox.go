package max30102

import "context"

// Sample is one drained FIFO batch: up to 32 Red/IR pairs of 18-bit
// values. A Sample handed to a consumer is always fully populated;
// entries past Len are zero. Overflow counts samples the hardware dropped
// before this drain (a warning, not a failure).
type Sample struct {
	Red      [FIFODepth]uint32
	IR       [FIFODepth]uint32
	Len      uint8
	Overflow uint8
}

// publishSamples places a set in the single-slot mailbox, overwriting any
// unconsumed predecessor (newest data wins, no queueing), and wakes every
// waiter by closing the notify channel. The caller must hold d.mu;
// publishing under the same lock that guards consumption is what keeps a
// set from ever being observed torn.
func (d *Device) publishSamples(s *Sample) {
	d.box = *s
	d.boxFull = true
	d.boxSeq++
	close(d.notify)
	d.notify = make(chan struct{})
}

// TryReadFIFO consumes the pending sample set without blocking. It
// returns ErrNoData when the mailbox is empty.
func (d *Device) TryReadFIFO() (*Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.boxFull {
		return nil, ErrNoData
	}
	s := d.box
	d.boxFull = false
	return &s, nil
}

// ReadFIFO consumes the pending sample set, suspending until one is
// published or ctx is done. Cancellation returns ctx.Err().
func (d *Device) ReadFIFO(ctx context.Context) (*Sample, error) {
	for {
		d.mu.Lock()
		if d.boxFull {
			s := d.box
			d.boxFull = false
			d.mu.Unlock()
			return &s, nil
		}
		ch := d.notify
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
			// Another consumer may win the race to the set; loop
			// and re-check.
		}
	}
}

// ObserveFIFO returns a copy of the next sample set published after seq,
// along with that set's sequence number, without consuming it. Pass 0 to
// start observing, then feed each returned number back in. A lagging
// observer skips to the newest set. Observation leaves the set in the
// mailbox for ReadFIFO consumers.
func (d *Device) ObserveFIFO(ctx context.Context, seq uint64) (*Sample, uint64, error) {
	for {
		d.mu.Lock()
		if d.boxSeq > seq {
			s := d.box
			n := d.boxSeq
			d.mu.Unlock()
			return &s, n, nil
		}
		ch := d.notify
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-ch:
		}
	}
}

// Ready reports whether a sample read would currently succeed without
// suspending.
func (d *Device) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.boxFull
}
