package settings

import "math"

// Helpers for building and inspecting little-endian backing storage.

func Int8Value(v int8) []byte { return []byte{byte(v)} }

func Int16Value(v int16) []byte {
	b := make([]byte, 2)
	byteOrder.PutUint16(b, uint16(v))
	return b
}

func Int32Value(v int32) []byte {
	b := make([]byte, 4)
	byteOrder.PutUint32(b, uint32(v))
	return b
}

func Float32Value(v float32) []byte {
	b := make([]byte, 4)
	byteOrder.PutUint32(b, math.Float32bits(v))
	return b
}

func Float64Value(v float64) []byte {
	b := make([]byte, 8)
	byteOrder.PutUint64(b, math.Float64bits(v))
	return b
}

// StringValue returns a size-byte buffer holding s, truncated or zero-padded.
func StringValue(s string, size int) []byte {
	b := make([]byte, size)
	copy(b, s)
	return b
}

func BoolValue(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func Int8(b []byte) int8       { return int8(b[0]) }
func Int16(b []byte) int16     { return int16(byteOrder.Uint16(b)) }
func Int32(b []byte) int32     { return int32(byteOrder.Uint32(b)) }
func Float32(b []byte) float32 { return math.Float32frombits(byteOrder.Uint32(b)) }
func Float64(b []byte) float64 { return math.Float64frombits(byteOrder.Uint64(b)) }
func Bool(b []byte) bool       { return b[0] != 0 }

func PutInt32(b []byte, v int32)     { byteOrder.PutUint32(b, uint32(v)) }
func PutFloat32(b []byte, v float32) { byteOrder.PutUint32(b, math.Float32bits(v)) }
func PutFloat64(b []byte, v float64) { byteOrder.PutUint64(b, math.Float64bits(v)) }
