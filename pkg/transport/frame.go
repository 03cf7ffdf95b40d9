package transport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-imm/pkg/pools"
)

// Phase identifies the step of an all-reduce round a frame belongs to.
type Phase byte

const (
	// PhaseGather: the coordinator asks for contributions; ranks answer with
	// their local vector.
	PhaseGather Phase = iota + 1
	// PhaseScatter: the coordinator sends the reduced vector; ranks answer
	// with an empty acknowledgement.
	PhaseScatter
)

func (p Phase) String() string {
	switch p {
	case PhaseGather:
		return "gather"
	case PhaseScatter:
		return "scatter"
	default:
		return fmt.Sprintf("phase(%d)", byte(p))
	}
}

// headerSize is phase(1) + round(8) + rank(4) + count(4).
const headerSize = 17

// ErrMalformedFrame is returned for frames that cannot be decoded.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one message of an all-reduce round.
type Frame struct {
	Phase  Phase
	Round  uint64
	Rank   uint32
	Values []uint64
}

// Encode serialises f little-endian and compresses it with snappy. Count
// vectors are sparse in practice, which snappy shrinks well.
func Encode(f Frame) []byte {
	raw := pools.GetBytesSized(headerSize + 8*len(f.Values))
	defer pools.PutBytes(raw)

	raw[0] = byte(f.Phase)
	binary.LittleEndian.PutUint64(raw[1:9], f.Round)
	binary.LittleEndian.PutUint32(raw[9:13], f.Rank)
	binary.LittleEndian.PutUint32(raw[13:17], uint32(len(f.Values)))
	for i, v := range f.Values {
		binary.LittleEndian.PutUint64(raw[headerSize+8*i:], v)
	}
	return snappy.Encode(nil, raw)
}

// Decode reverses Encode.
func Decode(data []byte) (Frame, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	buf := pools.GetBytesSized(n)
	defer pools.PutBytes(buf)

	raw, err := snappy.Decode(buf, data)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(raw) < headerSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(raw))
	}

	f := Frame{
		Phase: Phase(raw[0]),
		Round: binary.LittleEndian.Uint64(raw[1:9]),
		Rank:  binary.LittleEndian.Uint32(raw[9:13]),
	}
	if f.Phase != PhaseGather && f.Phase != PhaseScatter {
		return Frame{}, fmt.Errorf("%w: unknown %s", ErrMalformedFrame, f.Phase)
	}
	count := int(binary.LittleEndian.Uint32(raw[13:17]))
	if len(raw) != headerSize+8*count {
		return Frame{}, fmt.Errorf("%w: %d values in %d bytes", ErrMalformedFrame, count, len(raw))
	}
	if count > 0 {
		f.Values = make([]uint64, count)
		for i := range f.Values {
			f.Values[i] = binary.LittleEndian.Uint64(raw[headerSize+8*i:])
		}
	}
	return f, nil
}
