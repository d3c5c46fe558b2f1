// Package command implements the fixed-payload request/response surface
// of the acquisition driver: request framing, the closed status taxonomy,
// payload codecs, and the dispatcher that routes requests to a device.
package command

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/biosignal/max30102"
)

// Code identifies one operation of the command surface.
type Code byte

// Command codes. The wire numbering is stable.
const (
	CodeReadFIFO Code = iota
	CodeReadTemp
	CodeSetMode
	CodeSetSlot
	CodeSetFIFOConfig
	CodeSetSpO2Config
	CodePoll
	CodeDumpRegs
)

// Status is the single outcome byte of a response. Every request either
// returns data with StatusOK or fails with exactly one other status.
type Status byte

// Response statuses.
const (
	StatusOK Status = iota
	StatusIO
	StatusInvalidParam
	StatusNoData
	StatusTimeout
	StatusCorruptFIFO
	// StatusExhausted is reserved for scratch allocation failure. It is
	// part of the wire contract but never produced by this
	// implementation: Go allocation failure is not locally recoverable.
	StatusExhausted
	StatusCancelled
	StatusBadCommand
)

var statusNames = map[Status]string{
	StatusOK:           "ok",
	StatusIO:           "io error",
	StatusInvalidParam: "invalid parameter",
	StatusNoData:       "no data",
	StatusTimeout:      "timeout",
	StatusCorruptFIFO:  "corrupt fifo",
	StatusExhausted:    "exhausted",
	StatusCancelled:    "cancelled",
	StatusBadCommand:   "bad command",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status %d", byte(s))
}

// ReadFIFO request flags.
const (
	// FlagWait makes the read suspend until a sample set is published
	// instead of failing with StatusNoData.
	FlagWait byte = 1 << 0
)

var (
	// ErrShortPacket is returned when a frame is too short to carry its
	// header.
	ErrShortPacket = errors.New("command: packet too short")
)

// Request is one framed command: sequence byte, code byte, payload.
type Request struct {
	Seq  byte
	Code Code
	Data []byte
}

// Bytes encodes the request for sending.
func (r *Request) Bytes() []byte {
	b := make([]byte, len(r.Data)+2)
	b[0], b[1] = r.Seq, byte(r.Code)
	copy(b[2:], r.Data)
	return b
}

// ParseRequest decodes a framed request.
func ParseRequest(b []byte) (*Request, error) {
	if len(b) < 2 {
		return nil, ErrShortPacket
	}
	return &Request{Seq: b[0], Code: Code(b[1]), Data: b[2:]}, nil
}

// Response is the reply to one request, echoing its sequence byte.
type Response struct {
	Seq    byte
	Status Status
	Data   []byte
}

// Bytes encodes the response for sending.
func (r *Response) Bytes() []byte {
	b := make([]byte, len(r.Data)+2)
	b[0], b[1] = r.Seq, byte(r.Status)
	copy(b[2:], r.Data)
	return b
}

// ParseResponse decodes a framed response.
func ParseResponse(b []byte) (*Response, error) {
	if len(b) < 2 {
		return nil, ErrShortPacket
	}
	return &Response{Seq: b[0], Status: Status(b[1]), Data: b[2:]}, nil
}

// FIFOPayloadLen is the fixed size of a ReadFIFO reply payload: 32
// little-endian u32 Red samples, 32 IR samples, the count, and the
// hardware overflow warning counter.
const FIFOPayloadLen = 8*max30102.FIFODepth + 2

// EncodeFIFO packs a sample set into the ReadFIFO reply layout.
func EncodeFIFO(s *max30102.Sample) []byte {
	b := make([]byte, FIFOPayloadLen)
	for i, v := range s.Red {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	for i, v := range s.IR {
		binary.LittleEndian.PutUint32(b[4*max30102.FIFODepth+4*i:], v)
	}
	b[FIFOPayloadLen-2] = s.Len
	b[FIFOPayloadLen-1] = s.Overflow
	return b
}

// DecodeFIFO unpacks a ReadFIFO reply payload.
func DecodeFIFO(b []byte) (*max30102.Sample, error) {
	if len(b) != FIFOPayloadLen {
		return nil, fmt.Errorf("command: FIFO payload of %d bytes: %w", len(b), ErrShortPacket)
	}
	var s max30102.Sample
	for i := range s.Red {
		s.Red[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	for i := range s.IR {
		s.IR[i] = binary.LittleEndian.Uint32(b[4*max30102.FIFODepth+4*i:])
	}
	s.Len = b[FIFOPayloadLen-2]
	s.Overflow = b[FIFOPayloadLen-1]
	return &s, nil
}

// EncodeTemp packs a temperature reading as little-endian float32 bits,
// the layout of the original command surface.
func EncodeTemp(t float64) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(t)))
	return b
}

// DecodeTemp unpacks a ReadTemp reply payload.
func DecodeTemp(b []byte) (float64, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("command: temperature payload of %d bytes: %w", len(b), ErrShortPacket)
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
}

// EncodeRegs packs a register dump as addr/value pairs.
func EncodeRegs(regs []max30102.Register) []byte {
	b := make([]byte, 0, 2*len(regs))
	for _, r := range regs {
		b = append(b, r.Addr, r.Value)
	}
	return b
}

// DecodeRegs unpacks a DumpRegs reply payload into addr/value pairs.
func DecodeRegs(b []byte) ([]max30102.Register, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("command: register dump of %d bytes: %w", len(b), ErrShortPacket)
	}
	regs := make([]max30102.Register, 0, len(b)/2)
	for i := 0; i < len(b); i += 2 {
		regs = append(regs, max30102.Register{Addr: b[i], Value: b[i+1]})
	}
	return regs, nil
}
