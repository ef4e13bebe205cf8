package settings

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Backing storage is little-endian, matching the firmware's native layout.
var byteOrder = binary.LittleEndian

type intCodec struct{}

func (intCodec) Format(blob []byte) (string, error) {
	switch len(blob) {
	case 1:
		return strconv.FormatInt(int64(int8(blob[0])), 10), nil
	case 2:
		return strconv.FormatInt(int64(int16(byteOrder.Uint16(blob))), 10), nil
	case 4:
		return strconv.FormatInt(int64(int32(byteOrder.Uint32(blob))), 10), nil
	}
	return "", fmt.Errorf("%w: int of %d bytes", ErrUnsupportedWidth, len(blob))
}

func (intCodec) Parse(blob []byte, text string) error {
	bits := len(blob) * 8
	switch len(blob) {
	case 1, 2, 4:
	default:
		return fmt.Errorf("%w: int of %d bytes", ErrUnsupportedWidth, len(blob))
	}
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, bits)
	if err != nil {
		return fmt.Errorf("%w: %q is not an int%d", ErrInvalidValue, text, bits)
	}
	switch len(blob) {
	case 1:
		blob[0] = byte(int8(v))
	case 2:
		byteOrder.PutUint16(blob, uint16(int16(v)))
	case 4:
		byteOrder.PutUint32(blob, uint32(int32(v)))
	}
	return nil
}

// floatCodec renders with 12 significant digits, like %.12g.
type floatCodec struct{}

const floatDigits = 12

func (floatCodec) Format(blob []byte) (string, error) {
	switch len(blob) {
	case 4:
		v := math.Float32frombits(byteOrder.Uint32(blob))
		return strconv.FormatFloat(float64(v), 'g', floatDigits, 64), nil
	case 8:
		v := math.Float64frombits(byteOrder.Uint64(blob))
		return strconv.FormatFloat(v, 'g', floatDigits, 64), nil
	}
	return "", fmt.Errorf("%w: float of %d bytes", ErrUnsupportedWidth, len(blob))
}

func (floatCodec) Parse(blob []byte, text string) error {
	switch len(blob) {
	case 4:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 32)
		if err != nil {
			return fmt.Errorf("%w: %q is not a float32", ErrInvalidValue, text)
		}
		byteOrder.PutUint32(blob, math.Float32bits(float32(v)))
		return nil
	case 8:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a float64", ErrInvalidValue, text)
		}
		byteOrder.PutUint64(blob, math.Float64bits(v))
		return nil
	}
	return fmt.Errorf("%w: float of %d bytes", ErrUnsupportedWidth, len(blob))
}

// stringCodec treats the blob as a NUL-padded character buffer.
type stringCodec struct{}

func (stringCodec) Format(blob []byte) (string, error) {
	if i := bytes.IndexByte(blob, 0); i >= 0 {
		blob = blob[:i]
	}
	return string(blob), nil
}

// Parse truncates text to the blob and zero-fills the remainder.
func (stringCodec) Parse(blob []byte, text string) error {
	n := copy(blob, text)
	clear(blob[n:])
	return nil
}

// EnumCodec stores a one-byte index into an ordered list of names.
type EnumCodec struct {
	names []string
}

// MaxEnumNames is the most names a one-byte index can address.
const MaxEnumNames = 256

func NewEnumCodec(names ...string) (*EnumCodec, error) {
	if len(names) == 0 || len(names) > MaxEnumNames {
		return nil, fmt.Errorf("%w: %d names", ErrInvalidEnum, len(names))
	}
	for i, n := range names {
		if n == "" || strings.ContainsAny(n, ",\x00") {
			return nil, fmt.Errorf("%w: name[%d]=%q", ErrInvalidEnum, i, n)
		}
	}
	return &EnumCodec{names: append([]string(nil), names...)}, nil
}

func (c *EnumCodec) Format(blob []byte) (string, error) {
	if len(blob) < 1 {
		return "", fmt.Errorf("%w: enum of %d bytes", ErrUnsupportedWidth, len(blob))
	}
	idx := int(blob[0])
	if idx >= len(c.names) {
		return "", fmt.Errorf("%w: enum index %d of %d", ErrInvalidValue, idx, len(c.names))
	}
	return c.names[idx], nil
}

// Parse matches text exactly, case included.
func (c *EnumCodec) Parse(blob []byte, text string) error {
	if len(blob) < 1 {
		return fmt.Errorf("%w: enum of %d bytes", ErrUnsupportedWidth, len(blob))
	}
	for i, n := range c.names {
		if n == text {
			blob[0] = byte(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q not in %v", ErrInvalidValue, text, c.names)
}

func (c *EnumCodec) FormatType() string {
	return "enum:" + strings.Join(c.names, ",")
}
