package max30102

import "errors"

var (
	// ErrNotDevice is returned on attach when the part ID register does
	// not read the MAX30102 signature (0x15).
	ErrNotDevice = errors.New("max30102: part ID does not match (0x15)")

	// ErrInvalidParam is returned when a mode, slot, LED or configuration
	// value is outside the allowed set. It is always raised before any
	// bus access.
	ErrInvalidParam = errors.New("max30102: invalid parameter")

	// ErrNoData is returned by a non-blocking sample read when no
	// unconsumed sample set is in the mailbox.
	ErrNoData = errors.New("max30102: no sample set available")

	// ErrTimeout is returned when a bounded poll (reset completion,
	// temperature conversion) exhausts its attempts.
	ErrTimeout = errors.New("max30102: timed out")

	// ErrCorruptFIFO is raised when the FIFO write/read pointers yield a
	// sample count of 0 or more than the FIFO depth. The drain is
	// abandoned and retried on the next interrupt.
	ErrCorruptFIFO = errors.New("max30102: corrupt FIFO pointer state")
)
