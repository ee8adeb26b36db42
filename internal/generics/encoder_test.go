package generics

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdlforge/internal/steptrack"
)

func newTestEncoder() (*Encoder, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewEncoder(steptrack.New(&buf)), &buf
}

func TestEncodeLiterals(t *testing.T) {
	cases := []struct {
		name string
		def  Definition
		want string
	}{
		{"hex vector", Definition{Name: "G", Type: TypeBitVector, Value: "dac00001", Width: 32}, "32'hDAC00001"},
		{"hex vector 0x prefix", Definition{Name: "G", Type: TypeBitVector, Value: "0xFF", Width: 8}, "8'hFF"},
		{"hex vector padded", Definition{Name: "G", Type: TypeBitVector, Value: "f", Width: 16}, "16'h000F"},
		{"binary vector", Definition{Name: "G", Type: TypeBitVector, Value: "10", Width: 2, Base: BaseBinary}, "2'b10"},
		{"binary vector padded", Definition{Name: "G", Type: TypeBitVector, Value: "0b1", Width: 4, Base: BaseBinary}, "4'b0001"},
		{"unsigned defaults to decimal", Definition{Name: "G", Type: TypeUnsigned, Value: "7", Width: 8}, "8'd7"},
		{"signed decimal", Definition{Name: "G", Type: TypeSigned, Value: "-3", Width: 8}, "8'd-3"},
		{"bit", Definition{Name: "G", Type: TypeBit, Value: "1"}, "1'b1"},
		{"boolean true", Definition{Name: "G", Type: TypeBoolean, Value: "true"}, "1'b1"},
		{"boolean one", Definition{Name: "G", Type: TypeBoolean, Value: "1"}, "1'b1"},
		{"boolean false", Definition{Name: "G", Type: TypeBoolean, Value: "false"}, "1'b0"},
		{"integer verbatim", Definition{Name: "G", Type: TypeInteger, Value: "8"}, "8"},
		{"real verbatim", Definition{Name: "G", Type: TypeReal, Value: "3.14"}, "3.14"},
		{"string quoted", Definition{Name: "G", Type: TypeString, Value: "hello"}, `"hello"`},
		{"whitespace trimmed", Definition{Name: "G", Type: TypeInteger, Value: "  42 "}, "42"},
	}

	enc, _ := newTestEncoder()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := enc.Encode(tc.def)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEncodeRejects(t *testing.T) {
	cases := []struct {
		name   string
		def    Definition
		reason EncodingReason
	}{
		{"vector without width", Definition{Name: "G", Type: TypeBitVector, Value: "ff"}, InvalidWidth},
		{"hex too wide", Definition{Name: "G", Type: TypeBitVector, Value: "fff", Width: 8}, InvalidWidth},
		{"binary too wide", Definition{Name: "G", Type: TypeBitVector, Value: "111", Width: 2, Base: BaseBinary}, InvalidWidth},
		{"bad hex digits", Definition{Name: "G", Type: TypeBitVector, Value: "xyz", Width: 8}, InvalidDigitsForBase},
		{"bad binary digits", Definition{Name: "G", Type: TypeBitVector, Value: "12", Width: 8, Base: BaseBinary}, InvalidDigitsForBase},
		{"bad decimal digits", Definition{Name: "G", Type: TypeUnsigned, Value: "1f", Width: 8}, InvalidDigitsForBase},
		{"bad bit", Definition{Name: "G", Type: TypeBit, Value: "2"}, InvalidDigitsForBase},
		{"unknown type", Definition{Name: "G", Type: "record", Value: "x"}, InvalidDigitsForBase},
	}

	enc, _ := newTestEncoder()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := enc.Encode(tc.def)
			require.Error(t, err)
			var ee *EncodingError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tc.reason, ee.Reason)
		})
	}
}

func TestEncodeHexIdempotentWidth(t *testing.T) {
	// A value already at full digit count stays unpadded.
	enc, _ := newTestEncoder()
	got, err := enc.Encode(Definition{Name: "G", Type: TypeBitVector, Value: "DAC00001", Width: 32})
	require.NoError(t, err)
	assert.Equal(t, "32'hDAC00001", got)
}

func TestEncodeAllPreservesOrder(t *testing.T) {
	enc, _ := newTestEncoder()
	out := enc.EncodeAll(context.Background(), []Definition{
		{Name: "WIDTH", Type: TypeInteger, Value: "8"},
		{Name: "MAGIC", Type: TypeBitVector, Value: "dac00001", Width: 32},
		{Name: "EN", Type: TypeBoolean, Value: "true"},
	})
	assert.Equal(t, "WIDTH=8 MAGIC=32'hDAC00001 EN=1'b1", out)
}

func TestEncodeAllSkipsUnresolvedRuntimeOnly(t *testing.T) {
	enc, out := newTestEncoder()
	got := enc.EncodeAll(context.Background(), []Definition{
		{Name: "DEPLOY", Type: TypeString, Value: "${DEPLOY_PATH}", RuntimeOnly: true},
		{Name: "WIDTH", Type: TypeInteger, Value: "8"},
	})
	assert.Equal(t, "WIDTH=8", got)
	assert.Contains(t, out.String(), "INFO:")
	assert.Contains(t, out.String(), "DEPLOY")
}

func TestEncodeAllEncodesResolvedRuntimeOnly(t *testing.T) {
	enc, _ := newTestEncoder()
	got := enc.EncodeAll(context.Background(), []Definition{
		{Name: "DEPLOY", Type: TypeString, Value: "/srv/fpga", RuntimeOnly: true},
	})
	assert.Equal(t, `DEPLOY="/srv/fpga"`, got)
}

func TestEncodeAllFallsBackToRawValue(t *testing.T) {
	enc, out := newTestEncoder()
	got := enc.EncodeAll(context.Background(), []Definition{
		{Name: "BAD", Type: TypeBitVector, Value: "fff", Width: 8},
	})
	assert.Equal(t, "BAD=fff", got)
	assert.Contains(t, out.String(), "WARNING:")

	w, e := stepCounts(enc)
	assert.Equal(t, 1, w)
	assert.Zero(t, e)
}

func stepCounts(enc *Encoder) (int, int) {
	return enc.tracker.Counts(StepApplyGenerics)
}

func TestEncodeAllEmpty(t *testing.T) {
	enc, _ := newTestEncoder()
	assert.Equal(t, "", enc.EncodeAll(context.Background(), nil))
}
