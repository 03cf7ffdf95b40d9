package transport

import (
	"errors"
	"slices"
	"testing"

	"github.com/golang/snappy"
)

func TestFrameEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{"gather request", Frame{Phase: PhaseGather, Round: 3}},
		{"contribution", Frame{Phase: PhaseGather, Round: 3, Rank: 2, Values: []uint64{0, 0, 7, 0, 1 << 40}}},
		{"scatter", Frame{Phase: PhaseScatter, Round: 1 << 33, Values: make([]uint64, 5000)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(Encode(tt.frame))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Phase != tt.frame.Phase || got.Round != tt.frame.Round || got.Rank != tt.frame.Rank {
				t.Errorf("header = %+v, want %+v", got, tt.frame)
			}
			if !slices.Equal(got.Values, tt.frame.Values) && !(len(got.Values) == 0 && len(tt.frame.Values) == 0) {
				t.Errorf("values differ")
			}
		})
	}
}

func TestFrameCompressesSparseVectors(t *testing.T) {
	values := make([]uint64, 10000)
	values[17] = 4
	encoded := Encode(Frame{Phase: PhaseGather, Round: 1, Rank: 1, Values: values})
	if len(encoded) > 8*len(values)/10 {
		t.Errorf("sparse frame encoded to %d bytes, expected heavy compression", len(encoded))
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	valid := Encode(Frame{Phase: PhaseGather, Round: 1, Values: []uint64{1, 2}})
	raw, err := snappy.Decode(nil, valid)
	if err != nil {
		t.Fatal(err)
	}

	badPhase := slices.Clone(raw)
	badPhase[0] = 9
	truncated := raw[:len(raw)-3]

	tests := []struct {
		name string
		data []byte
	}{
		{"not snappy", []byte{0xff, 0xff, 0xff, 0xff, 0xff}},
		{"short header", snappy.Encode(nil, []byte{1, 2, 3})},
		{"unknown phase", snappy.Encode(nil, badPhase)},
		{"truncated values", snappy.Encode(nil, truncated)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("Decode = %v, want ErrMalformedFrame", err)
			}
		})
	}
}
