package classfile

import (
	"bytes"
	"encoding/binary"
)

// ByteWriter writes big-endian class file data.
type ByteWriter struct {
	buf bytes.Buffer
}

// NewByteWriter creates an empty writer.
func NewByteWriter() *ByteWriter {
	return &ByteWriter{}
}

// WriteU8 writes one byte.
func (w *ByteWriter) WriteU8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteU16 writes a big-endian uint16.
func (w *ByteWriter) WriteU16(v uint16) {
	w.buf.Write(binary.BigEndian.AppendUint16(nil, v))
}

// WriteU32 writes a big-endian uint32.
func (w *ByteWriter) WriteU32(v uint32) {
	w.buf.Write(binary.BigEndian.AppendUint32(nil, v))
}

// WriteBytes writes b unchanged.
func (w *ByteWriter) WriteBytes(b []byte) {
	w.buf.Write(b)
}

// Bytes returns the written data.
func (w *ByteWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *ByteWriter) Len() int {
	return w.buf.Len()
}

// reader consumes big-endian class file data. The first short read sets err
// and every later read returns zero values.
type reader struct {
	data []byte
	pos  int
	err  error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = ErrTruncated
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}
