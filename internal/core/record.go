package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// Record is the value stored under a short key.
// A nil Password means the record is not password-protected; a non-nil empty
// Password is a valid, distinct value.
type Record struct {
	URL      string
	Password *string
}

// Secret returns a pointer to s, for building Records and credentials.
func Secret(s string) *string {
	return &s
}

const (
	// lengthSize is the size in bytes of each big-endian field length prefix.
	lengthSize = 4
	// noPassword is the reserved password length marking an absent password.
	noPassword uint32 = math.MaxUint32
)

var (
	ErrTooShort       = errors.New("record: input ends before the record is complete")
	ErrTooLong        = errors.New("record: unexpected bytes after the record")
	ErrInternal       = errors.New("record: decoder reached an invalid state")
	ErrInvalidText    = errors.New("record: field is not valid UTF-8")
	ErrFieldTooLarge  = errors.New("record: field does not fit a 32-bit length")
	errUnexpectedByte = fmt.Errorf("%w: payload byte with nothing left to read", ErrInternal)
)

// EncodeRecord serializes r as
//
//	[u32 url_len][url][u32 password_len | 0xFFFFFFFF][password]
//
// with big-endian lengths and no padding.
func EncodeRecord(r Record) ([]byte, error) {
	if uint64(len(r.URL)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: url is %d bytes", ErrFieldTooLarge, len(r.URL))
	}
	size := 2*lengthSize + len(r.URL)
	if r.Password != nil {
		// MaxUint32 itself is reserved for noPassword.
		if uint64(len(*r.Password)) >= math.MaxUint32 {
			return nil, fmt.Errorf("%w: password is %d bytes", ErrFieldTooLarge, len(*r.Password))
		}
		size += len(*r.Password)
	}

	out := make([]byte, 0, size)
	out = binary.BigEndian.AppendUint32(out, uint32(len(r.URL)))
	out = append(out, r.URL...)
	if r.Password == nil {
		return binary.BigEndian.AppendUint32(out, noPassword), nil
	}
	out = binary.BigEndian.AppendUint32(out, uint32(len(*r.Password)))
	return append(out, *r.Password...), nil
}

// DecodeRecord reconstructs a Record from bytes produced by EncodeRecord.
// Every returned error matches one of ErrTooShort, ErrTooLong, ErrInternal or
// ErrInvalidText.
func DecodeRecord(data []byte) (Record, error) {
	var d decoder
	for _, b := range data {
		if err := d.feed(b); err != nil {
			return Record{}, err
		}
	}
	return d.result()
}

// target is the record field the decoder is currently filling.
type target uint8

const (
	targetURL target = iota
	targetPassword
	targetDone
)

// phase is the part of a field the decoder is currently reading.
type phase uint8

const (
	phaseLength phase = iota
	phasePayload
)

// decodeState enumerates every (target, phase) combination the decoder can be in.
type decodeState struct {
	target target
	phase  phase
}

var (
	stateURLLength       = decodeState{targetURL, phaseLength}
	stateURLPayload      = decodeState{targetURL, phasePayload}
	statePasswordLength  = decodeState{targetPassword, phaseLength}
	statePasswordPayload = decodeState{targetPassword, phasePayload}
	stateDone            = decodeState{targetDone, phaseLength}
)

func (s decodeState) String() string {
	switch s {
	case stateURLLength:
		return "url/length"
	case stateURLPayload:
		return "url/payload"
	case statePasswordLength:
		return "password/length"
	case statePasswordPayload:
		return "password/payload"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("invalid(%d/%d)", s.target, s.phase)
}

// decoder is an incremental byte-at-a-time parser for the record format.
type decoder struct {
	state decodeState

	length    [lengthSize]byte
	lengthPos int
	remaining uint32
	payload   []byte

	record Record
}

func (d *decoder) feed(b byte) error {
	switch d.state {
	case stateDone:
		return ErrTooLong
	case stateURLLength, statePasswordLength:
		return d.feedLength(b)
	case stateURLPayload, statePasswordPayload:
		return d.feedPayload(b)
	}
	return fmt.Errorf("%w: state %s", ErrInternal, d.state)
}

func (d *decoder) feedLength(b byte) error {
	d.length[d.lengthPos] = b
	d.lengthPos++
	if d.lengthPos < lengthSize {
		return nil
	}

	n := binary.BigEndian.Uint32(d.length[:])
	d.lengthPos = 0
	if d.state.target == targetPassword && n == noPassword {
		d.record.Password = nil
		d.state = stateDone
		return nil
	}

	d.remaining = n
	d.state.phase = phasePayload
	if n == 0 {
		return d.commit()
	}
	d.payload = make([]byte, 0, min(n, 4096))
	return nil
}

func (d *decoder) feedPayload(b byte) error {
	if d.remaining == 0 {
		return errUnexpectedByte
	}
	d.payload = append(d.payload, b)
	d.remaining--
	if d.remaining == 0 {
		return d.commit()
	}
	return nil
}

// commit stores the buffered payload in the current field and advances to the next one.
func (d *decoder) commit() error {
	if !utf8.Valid(d.payload) {
		return fmt.Errorf("%w: %s", ErrInvalidText, d.state)
	}
	text := string(d.payload)
	d.payload = nil

	switch d.state.target {
	case targetURL:
		d.record.URL = text
		d.state = statePasswordLength
	case targetPassword:
		d.record.Password = &text
		d.state = stateDone
	default:
		return fmt.Errorf("%w: commit in state %s", ErrInternal, d.state)
	}
	return nil
}

func (d *decoder) result() (Record, error) {
	if d.state != stateDone {
		return Record{}, fmt.Errorf("%w: stopped in state %s", ErrTooShort, d.state)
	}
	return d.record, nil
}
