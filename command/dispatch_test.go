package command

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/i2c/i2ctest"

	"github.com/biosignal/max30102"
)

// attachOps is the bus trace of a successful device attach, needed before
// any dispatch can be exercised.
func attachOps() []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: max30102.Addr, W: []byte{max30102.RegPartID}, R: []byte{max30102.PartID}},
		{Addr: max30102.Addr, W: []byte{max30102.ModeCfg, max30102.ResetControl}},
		{Addr: max30102.Addr, W: []byte{max30102.ModeCfg}, R: []byte{0x00}},
		{Addr: max30102.Addr, W: []byte{max30102.FIFOWrPtr, 0x00}},
		{Addr: max30102.Addr, W: []byte{max30102.FIFORdPtr, 0x00}},
		{Addr: max30102.Addr, W: []byte{max30102.OvfCount, 0x00}},
		{Addr: max30102.Addr, W: []byte{max30102.FIFOCfg, 0x70}},
		{Addr: max30102.Addr, W: []byte{max30102.ModeCfg, 0x03}},
		{Addr: max30102.Addr, W: []byte{max30102.SpO2Cfg, 0x47}},
		{Addr: max30102.Addr, W: []byte{max30102.Led1PA, 0x1F}},
		{Addr: max30102.Addr, W: []byte{max30102.Led2PA, 0x1F}},
		{Addr: max30102.Addr, W: []byte{max30102.MultiLedModeS2S1, 0x21}},
		{Addr: max30102.Addr, W: []byte{max30102.MultiLedModeS4S3, 0x00}},
		{Addr: max30102.Addr, W: []byte{max30102.IntEna1, 0xC0}},
	}
}

func newDispatcher(t *testing.T, extra ...i2ctest.IO) (*Dispatcher, *i2ctest.Playback) {
	t.Helper()
	p := &i2ctest.Playback{Ops: append(attachOps(), extra...), DontPanic: true}
	dev, err := max30102.Connect(p, 0)
	require.NoError(t, err)
	return &Dispatcher{Dev: dev}, p
}

func TestDispatchUnknownCode(t *testing.T) {
	dp, _ := newDispatcher(t)
	resp := dp.Dispatch(context.Background(), &Request{Seq: 3, Code: Code(0xEE)})
	require.Equal(t, byte(3), resp.Seq)
	require.Equal(t, StatusBadCommand, resp.Status)
	require.Empty(t, resp.Data)
}

func TestDispatchPayloadLength(t *testing.T) {
	dp, p := newDispatcher(t)
	for _, req := range []*Request{
		{Code: CodeReadFIFO},
		{Code: CodeSetMode, Data: []byte{1, 2}},
		{Code: CodeSetSlot, Data: []byte{1}},
		{Code: CodePoll, Data: []byte{0}},
		{Code: CodeReadTemp, Data: []byte{0}},
		{Code: CodeSetSpO2Config, Data: []byte{}},
		{Code: CodeSetFIFOConfig, Data: []byte{1, 2}},
	} {
		resp := dp.Dispatch(context.Background(), req)
		require.Equal(t, StatusInvalidParam, resp.Status, "code %d", req.Code)
	}
	require.Equal(t, len(attachOps()), p.Count, "rejected requests must not touch the bus")
}

func TestDispatchSetMode(t *testing.T) {
	dp, _ := newDispatcher(t, i2ctest.IO{Addr: max30102.Addr, W: []byte{max30102.ModeCfg, max30102.ModeHR}})
	resp := dp.Dispatch(context.Background(), &Request{Seq: 1, Code: CodeSetMode, Data: []byte{max30102.ModeHR}})
	require.Equal(t, StatusOK, resp.Status)
	require.Empty(t, resp.Data)
}

func TestDispatchSetSlotInvalid(t *testing.T) {
	dp, p := newDispatcher(t)
	resp := dp.Dispatch(context.Background(), &Request{Code: CodeSetSlot, Data: []byte{5, 1}})
	require.Equal(t, StatusInvalidParam, resp.Status)
	require.Equal(t, len(attachOps()), p.Count)
}

func TestDispatchReadFIFOEmpty(t *testing.T) {
	dp, _ := newDispatcher(t)
	resp := dp.Dispatch(context.Background(), &Request{Code: CodeReadFIFO, Data: []byte{0}})
	require.Equal(t, StatusNoData, resp.Status)
}

func TestDispatchReadFIFO(t *testing.T) {
	// One drained sample: red=300, ir=400 in the 18-bit wire layout.
	drain := []i2ctest.IO{
		{Addr: max30102.Addr, W: []byte{max30102.IntStat1}, R: []byte{max30102.FIFOFull}},
		{Addr: max30102.Addr, W: []byte{max30102.IntStat2}, R: []byte{0x00}},
		{Addr: max30102.Addr, W: []byte{max30102.FIFOWrPtr}, R: []byte{0x01}},
		{Addr: max30102.Addr, W: []byte{max30102.FIFORdPtr}, R: []byte{0x00}},
		{Addr: max30102.Addr, W: []byte{max30102.OvfCount}, R: []byte{0x00}},
		{Addr: max30102.Addr, W: []byte{max30102.FIFOData}, R: []byte{0x00, 0x4B, 0x00, 0x00, 0x64, 0x00}},
	}
	dp, _ := newDispatcher(t, drain...)
	dp.Dev.HandleInterrupt()

	resp := dp.Dispatch(context.Background(), &Request{Seq: 8, Code: CodeReadFIFO, Data: []byte{0}})
	require.Equal(t, StatusOK, resp.Status)
	require.Equal(t, byte(8), resp.Seq)

	s, err := DecodeFIFO(resp.Data)
	require.NoError(t, err)
	require.Equal(t, uint8(1), s.Len)
	require.Equal(t, uint32(300), s.Red[0])
	require.Equal(t, uint32(400), s.IR[0])
}

func TestDispatchReadFIFOWaitCancelled(t *testing.T) {
	dp, _ := newDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := dp.Dispatch(ctx, &Request{Code: CodeReadFIFO, Data: []byte{FlagWait}})
	require.Equal(t, StatusCancelled, resp.Status)
}

func TestDispatchPoll(t *testing.T) {
	dp, _ := newDispatcher(t)
	resp := dp.Dispatch(context.Background(), &Request{Code: CodePoll})
	require.Equal(t, StatusOK, resp.Status)
	require.Equal(t, []byte{0}, resp.Data)
}

func TestDispatchDumpRegs(t *testing.T) {
	// DumpRegisters reads 17 diagnostic registers in a fixed order; only
	// the first and last are checked here.
	var extra []i2ctest.IO
	for i, addr := range []byte{
		max30102.IntEna1, max30102.IntEna2,
		max30102.FIFOWrPtr, max30102.OvfCount, max30102.FIFORdPtr,
		max30102.FIFOCfg, max30102.ModeCfg, max30102.SpO2Cfg,
		max30102.Led1PA, max30102.Led2PA,
		max30102.MultiLedModeS2S1, max30102.MultiLedModeS4S3,
		max30102.TempInt, max30102.TempFrac, max30102.TempCfg,
		max30102.RegRevID, max30102.RegPartID,
	} {
		extra = append(extra, i2ctest.IO{Addr: max30102.Addr, W: []byte{addr}, R: []byte{byte(i)}})
	}
	dp, _ := newDispatcher(t, extra...)

	resp := dp.Dispatch(context.Background(), &Request{Code: CodeDumpRegs})
	require.Equal(t, StatusOK, resp.Status)
	regs, err := DecodeRegs(resp.Data)
	require.NoError(t, err)
	require.Len(t, regs, 17)
	require.Equal(t, byte(max30102.IntEna1), regs[0].Addr)
	require.Equal(t, byte(max30102.RegPartID), regs[16].Addr)
	require.Equal(t, byte(16), regs[16].Value)
}

func TestStatusOf(t *testing.T) {
	testCases := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{max30102.ErrInvalidParam, StatusInvalidParam},
		{fmt.Errorf("wrapped: %w", max30102.ErrNoData), StatusNoData},
		{fmt.Errorf("wrapped: %w", max30102.ErrTimeout), StatusTimeout},
		{max30102.ErrCorruptFIFO, StatusCorruptFIFO},
		{errBadCommand, StatusBadCommand},
		{context.Canceled, StatusCancelled},
		{context.DeadlineExceeded, StatusCancelled},
		{errors.New("bus glitch"), StatusIO},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.want, StatusOf(tc.err), "error %v", tc.err)
	}
}
