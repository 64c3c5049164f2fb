package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		record Record
	}{
		{name: "no password", record: Record{URL: "x"}},
		{name: "empty password", record: Record{URL: "x", Password: Secret("")}},
		{name: "empty url", record: Record{URL: ""}},
		{name: "empty url and password", record: Record{URL: "", Password: Secret("")}},
		{name: "unicode", record: Record{URL: "https://例え.jp/ä?q=ü", Password: Secret("pässwörd")}},
		{name: "long url", record: Record{URL: "https://example.com/" + strings.Repeat("a", 70000), Password: Secret("p")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeRecord(tt.record)
			require.NoError(t, err)

			got, err := DecodeRecord(data)
			require.NoError(t, err)
			require.Equal(t, tt.record, got)
		})
	}
}

func TestEncodeRecordLayout(t *testing.T) {
	absent, err := EncodeRecord(Record{URL: "x"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 'x', 0xff, 0xff, 0xff, 0xff}, absent)

	empty, err := EncodeRecord(Record{URL: "x", Password: Secret("")})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 'x', 0, 0, 0, 0}, empty)

	assert.NotEqual(t, absent, empty)

	withPassword, err := EncodeRecord(Record{URL: "ab", Password: Secret("pw")})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 2, 'a', 'b', 0, 0, 0, 2, 'p', 'w'}, withPassword)
}

func TestDecodeRecordErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty input", data: nil, want: ErrTooShort},
		{name: "partial url length", data: []byte{0, 0, 0}, want: ErrTooShort},
		{name: "url shorter than declared", data: []byte{0, 0, 0, 5, 'a', 'b'}, want: ErrTooShort},
		{name: "missing password length", data: []byte{0, 0, 0, 1, 'x'}, want: ErrTooShort},
		{name: "partial password length", data: []byte{0, 0, 0, 1, 'x', 0xff, 0xff}, want: ErrTooShort},
		{name: "password shorter than declared", data: []byte{0, 0, 0, 1, 'x', 0, 0, 0, 3, 'p'}, want: ErrTooShort},
		{name: "sentinel is a literal url length", data: []byte{0xff, 0xff, 0xff, 0xff, 'x'}, want: ErrTooShort},
		{name: "byte after absent password", data: []byte{0, 0, 0, 1, 'x', 0xff, 0xff, 0xff, 0xff, 0}, want: ErrTooLong},
		{name: "byte after password", data: []byte{0, 0, 0, 1, 'x', 0, 0, 0, 1, 'p', 'q'}, want: ErrTooLong},
		{name: "byte after empty password", data: []byte{0, 0, 0, 0, 0, 0, 0, 0, 0}, want: ErrTooLong},
		{name: "invalid utf-8 url", data: []byte{0, 0, 0, 1, 0xff, 0xff, 0xff, 0xff, 0xff}, want: ErrInvalidText},
		{name: "invalid utf-8 password", data: []byte{0, 0, 0, 1, 'x', 0, 0, 0, 2, 0xc3, 0x28}, want: ErrInvalidText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecord(tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecoderRejectsPayloadByteWithNothingLeft(t *testing.T) {
	d := decoder{state: statePasswordPayload}
	err := d.feed('x')
	require.ErrorIs(t, err, ErrInternal)
}

func TestDecoderStates(t *testing.T) {
	var d decoder
	steps := []struct {
		in   byte
		want decodeState
	}{
		{0, stateURLLength},
		{0, stateURLLength},
		{0, stateURLLength},
		{2, stateURLPayload},
		{'a', stateURLPayload},
		{'b', statePasswordLength},
		{0xff, statePasswordLength},
		{0xff, statePasswordLength},
		{0xff, statePasswordLength},
		{0xff, stateDone},
	}
	for i, step := range steps {
		require.NoError(t, d.feed(step.in), "byte %d", i)
		assert.Equal(t, step.want, d.state, "after byte %d", i)
	}

	rec, err := d.result()
	require.NoError(t, err)
	assert.Equal(t, Record{URL: "ab"}, rec)
	assert.Equal(t, "done", d.state.String())
}
