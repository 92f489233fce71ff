package binfmt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectBYMLEndian(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		want    Endian
		wantErr Kind
	}{
		{name: "big endian magic", buf: []byte("BY"), want: BigEndian},
		{name: "little endian magic", buf: []byte("YB"), want: LittleEndian},
		{name: "trailing bytes ignored", buf: []byte("BYxxxx"), want: BigEndian},
		{name: "bad magic", buf: []byte("XX"), wantErr: BadMagic},
		{name: "too short", buf: []byte("B"), wantErr: InsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectBYMLEndian(tt.buf)
			if tt.wantErr != 0 || tt.name == "bad magic" || tt.name == "too short" {
				require.Error(t, err)
				var typed *Error
				require.ErrorAs(t, err, &typed)
				require.Equal(t, tt.wantErr, typed.Kind)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDetectSARCEndian(t *testing.T) {
	tests := []struct {
		name    string
		bom     []byte
		want    Endian
		wantErr bool
	}{
		{name: "big endian bom", bom: []byte{0xFE, 0xFF}, want: BigEndian},
		{name: "little endian bom", bom: []byte{0xFF, 0xFE}, want: LittleEndian},
		{name: "garbage bom", bom: []byte{0x00, 0x00}, wantErr: true},
		{name: "too short", bom: []byte{0xFE}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectSARCEndian(tt.bom)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeSARCBOM_RoundTrip(t *testing.T) {
	for _, e := range []Endian{BigEndian, LittleEndian} {
		bom := EncodeSARCBOM(e)
		got, err := DetectSARCEndian(bom)
		require.NoError(t, err)
		require.Equal(t, e, got)
	}
}

func TestEndian_String(t *testing.T) {
	require.Equal(t, "big", BigEndian.String())
	require.Equal(t, "little", LittleEndian.String())
}
