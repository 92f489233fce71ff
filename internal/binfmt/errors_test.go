package binfmt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		message  string
		expected string
	}{
		{
			name:     "bad magic",
			kind:     BadMagic,
			message:  `expected "BY" or "YB"`,
			expected: `bad magic: expected "BY" or "YB"`,
		},
		{
			name:     "invalid version",
			kind:     InvalidVersion,
			message:  "version 9 outside 1..7",
			expected: "invalid version: version 9 outside 1..7",
		},
		{
			name:     "type error",
			kind:     TypeError,
			message:  "found I32, expected Map",
			expected: "type error: found I32, expected Map",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &Error{Kind: tt.kind, Message: tt.message}
			require.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestNew(t *testing.T) {
	err := New(InsufficientData, "need %d bytes, have %d", 16, 4)
	require.EqualError(t, err, "insufficient data: need 16 bytes, have 4")

	var typed *Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, InsufficientData, typed.Kind)
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name    string
		context string
		cause   error
		wantNil bool
	}{
		{
			name:    "wrap non-nil error",
			context: "reading header",
			cause:   errors.New("truncated buffer"),
			wantNil: false,
		},
		{
			name:    "wrap nil error returns nil",
			context: "some operation",
			cause:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap(tt.context, tt.cause)

			if tt.wantNil {
				require.Nil(t, err)
				return
			}

			require.NotNil(t, err)
			require.Contains(t, err.Error(), tt.context)
			require.True(t, errors.Is(err, tt.cause))
		})
	}
}

func TestWrap_PreservesErrorKind(t *testing.T) {
	base := New(BadMagic, "expected SARC")
	wrapped := Wrap("opening archive", base)

	var typed *Error
	require.True(t, errors.As(wrapped, &typed))
	require.Equal(t, BadMagic, typed.Kind)
}

func TestWrap_ChainedWrapping(t *testing.T) {
	base := errors.New("base error")
	level1 := Wrap("level 1", base)
	level2 := Wrap("level 2", level1)
	level3 := Wrap("level 3", level2)

	require.NotNil(t, level3)
	require.Contains(t, level3.Error(), "level 3")
	require.True(t, errors.Is(level3, base))
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "bad magic", BadMagic.String())
	require.Equal(t, "invalid version", InvalidVersion.String())
	require.Equal(t, "insufficient data", InsufficientData.String())
	require.Equal(t, "invalid data", InvalidData.String())
	require.Equal(t, "type error", TypeError.String())
	require.Equal(t, "invalid utf8", InvalidUTF8.String())
	require.Equal(t, "external", External.String())
}
