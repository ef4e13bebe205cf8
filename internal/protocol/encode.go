package protocol

import "io"

// PayloadWriter fills a caller-provided buffer and never writes past its end.
// Writes that do not fit are cut at the boundary and reported as ErrPayloadTruncated.
type PayloadWriter struct {
	buf       []byte
	n         int
	truncated bool
}

var _ io.Writer = (*PayloadWriter)(nil)

func NewPayloadWriter(buf []byte) *PayloadWriter {
	return &PayloadWriter{buf: buf}
}

func (w *PayloadWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.n:], p)
	w.n += n
	if n < len(p) {
		w.truncated = true
		return n, ErrPayloadTruncated
	}
	return n, nil
}

func (w *PayloadWriter) WriteString(s string) (int, error) {
	n := copy(w.buf[w.n:], s)
	w.n += n
	if n < len(s) {
		w.truncated = true
		return n, ErrPayloadTruncated
	}
	return n, nil
}

func (w *PayloadWriter) WriteByte(c byte) error {
	if w.n >= len(w.buf) {
		w.truncated = true
		return ErrPayloadTruncated
	}
	w.buf[w.n] = c
	w.n++
	return nil
}

// WriteField writes s followed by a terminator.
func (w *PayloadWriter) WriteField(s string) error {
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	return w.WriteByte(Terminator)
}

func (w *PayloadWriter) Len() int        { return w.n }
func (w *PayloadWriter) Bytes() []byte   { return w.buf[:w.n] }
func (w *PayloadWriter) Truncated() bool { return w.truncated }

// EncodeFields returns fields as consecutive NUL-terminated strings bounded by MaxPayload.
func EncodeFields(fields ...string) ([]byte, error) {
	var buf [MaxPayload]byte
	w := NewPayloadWriter(buf[:])
	for _, f := range fields {
		if err := w.WriteField(f); err != nil {
			return append([]byte(nil), w.Bytes()...), err
		}
	}
	return append([]byte(nil), w.Bytes()...), nil
}

// EncodeWrite builds a SETTINGS_WRITE payload.
func EncodeWrite(section, name, value string) ([]byte, error) {
	return EncodeFields(section, name, value)
}

// EncodeReadRequest builds a SETTINGS_READ_REQ payload.
func EncodeReadRequest(section, name string) ([]byte, error) {
	return EncodeFields(section, name)
}
