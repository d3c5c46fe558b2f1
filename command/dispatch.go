package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/biosignal/max30102"
)

var errBadCommand = errors.New("command: unknown command code")

// Dispatcher validates requests and routes them to a device. It performs
// no hardware access itself; every outcome maps to exactly one Status.
type Dispatcher struct {
	Dev *max30102.Device
}

// Dispatch handles one request and shapes the reply. The context bounds
// blocking reads; cancellation surfaces as StatusCancelled.
func (dp *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	data, err := dp.handle(ctx, req)
	return &Response{Seq: req.Seq, Status: StatusOf(err), Data: data}
}

func (dp *Dispatcher) handle(ctx context.Context, req *Request) ([]byte, error) {
	switch req.Code {
	case CodeReadFIFO:
		if err := wantLen(req, 1); err != nil {
			return nil, err
		}
		var s *max30102.Sample
		var err error
		if req.Data[0]&FlagWait != 0 {
			s, err = dp.Dev.ReadFIFO(ctx)
		} else {
			s, err = dp.Dev.TryReadFIFO()
		}
		if err != nil {
			return nil, err
		}
		return EncodeFIFO(s), nil

	case CodeReadTemp:
		if err := wantLen(req, 0); err != nil {
			return nil, err
		}
		t, err := dp.Dev.Temperature()
		if err != nil {
			return nil, err
		}
		return EncodeTemp(t), nil

	case CodeSetMode:
		if err := wantLen(req, 1); err != nil {
			return nil, err
		}
		return nil, dp.Dev.SetMode(req.Data[0])

	case CodeSetSlot:
		if err := wantLen(req, 2); err != nil {
			return nil, err
		}
		return nil, dp.Dev.SetSlot(req.Data[0], req.Data[1])

	case CodeSetFIFOConfig:
		if err := wantLen(req, 1); err != nil {
			return nil, err
		}
		return nil, dp.Dev.SetFIFOConfig(req.Data[0])

	case CodeSetSpO2Config:
		if err := wantLen(req, 1); err != nil {
			return nil, err
		}
		return nil, dp.Dev.SetSpO2Config(req.Data[0])

	case CodePoll:
		if err := wantLen(req, 0); err != nil {
			return nil, err
		}
		if dp.Dev.Ready() {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case CodeDumpRegs:
		if err := wantLen(req, 0); err != nil {
			return nil, err
		}
		regs, err := dp.Dev.DumpRegisters()
		if err != nil {
			return nil, err
		}
		return EncodeRegs(regs), nil
	}
	return nil, errBadCommand
}

func wantLen(req *Request, n int) error {
	if len(req.Data) != n {
		return fmt.Errorf("command: code %d payload of %d bytes, want %d: %w",
			req.Code, len(req.Data), n, max30102.ErrInvalidParam)
	}
	return nil
}

// StatusOf maps an error onto the closed status taxonomy. Anything
// outside the known sentinels is a bus transport failure.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, max30102.ErrInvalidParam):
		return StatusInvalidParam
	case errors.Is(err, max30102.ErrNoData):
		return StatusNoData
	case errors.Is(err, max30102.ErrTimeout):
		return StatusTimeout
	case errors.Is(err, max30102.ErrCorruptFIFO):
		return StatusCorruptFIFO
	case errors.Is(err, errBadCommand):
		return StatusBadCommand
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	}
	return StatusIO
}
