package binfmt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckMultiplyOverflow(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint64
		wantErr bool
	}{
		{name: "no overflow - small numbers", a: 10, b: 20, wantErr: false},
		{name: "no overflow - one zero", a: 0, b: math.MaxUint64, wantErr: false},
		{name: "no overflow - both zero", a: 0, b: 0, wantErr: false},
		{name: "overflow - max * 2", a: math.MaxUint64, b: 2, wantErr: true},
		{name: "overflow - large numbers", a: math.MaxUint64 / 2, b: 3, wantErr: true},
		{name: "no overflow - exact max", a: math.MaxUint64, b: 1, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMultiplyOverflow(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSafeMultiply(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint64
		want    uint64
		wantErr bool
	}{
		{name: "normal multiplication", a: 10, b: 20, want: 200},
		{name: "zero multiplication", a: 0, b: 100, want: 0},
		{name: "overflow", a: math.MaxUint64, b: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeMultiply(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestValidateBufferSize(t *testing.T) {
	tests := []struct {
		name        string
		size        uint64
		maxSize     uint64
		wantErr     bool
		errContains string
	}{
		{name: "valid size", size: 1000, maxSize: 10000},
		{name: "exact max", size: 10000, maxSize: 10000},
		{name: "zero size is a valid empty blob or container", size: 0, maxSize: 10000},
		{name: "exceeds max", size: 10001, maxSize: 10000, wantErr: true, errContains: "exceeds maximum"},
		{
			name: "malicious container entry count", size: MaxContainerEntries + 1,
			maxSize: MaxContainerEntries, wantErr: true, errContains: "exceeds maximum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBufferSize(tt.size, tt.maxSize, "test")
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					require.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
		})
	}
}
