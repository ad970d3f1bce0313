package main

import (
	"bytes"
	"encoding/binary"
)

// codeBuffer is an append-only byte cursor with the ability to seek back to
// an earlier position, overwrite bytes there, and leave the logical
// end-of-buffer untouched. It is the single shared resource every backend
// and container emitter writes through.
//
// Callers record a patch position as an int returned from pos() and
// overwrite it later with patchU32At/patchBytesAt once the value it needs
// to hold is known, instead of memorizing "offset N inside instruction X"
// constants by hand.
type codeBuffer struct {
	buf bytes.Buffer
}

// pos returns the current write cursor, i.e. the number of bytes written so far.
func (b *codeBuffer) pos() int {
	return b.buf.Len()
}

func (b *codeBuffer) writeByte(v byte) {
	b.buf.WriteByte(v)
}

func (b *codeBuffer) writeN(v byte, n int) {
	for i := 0; i < n; i++ {
		b.buf.WriteByte(v)
	}
}

func (b *codeBuffer) writeBytes(bs []byte) {
	b.buf.Write(bs)
}

func (b *codeBuffer) writeU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
}

func (b *codeBuffer) writeU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
}

func (b *codeBuffer) writeI32(v int32) {
	b.writeU32(uint32(v))
}

func (b *codeBuffer) writeU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf.Write(tmp[:])
}

// bytes returns the full image built so far. The caller must not mutate it
// in a way that changes its length; patchU32At/patchBytesAt are the only
// sanctioned ways to rewrite already-written bytes.
func (b *codeBuffer) bytes() []byte {
	return b.buf.Bytes()
}

// patchU32At blindly overwrites 4 bytes at pos with v, little-endian. pos
// must be a position the caller itself previously recorded; codeBuffer never
// reads its own output back to find patch sites.
func (b *codeBuffer) patchU32At(pos int, v uint32) {
	raw := b.buf.Bytes()
	binary.LittleEndian.PutUint32(raw[pos:pos+4], v)
}

// patchBytesAt overwrites len(bs) bytes starting at pos.
func (b *codeBuffer) patchBytesAt(pos int, bs []byte) {
	raw := b.buf.Bytes()
	copy(raw[pos:pos+len(bs)], bs)
}

// align pads the buffer with fill bytes until pos() is a multiple of n.
func (b *codeBuffer) align(n int, fill byte) {
	for b.pos()%n != 0 {
		b.writeByte(fill)
	}
}

// alignUp rounds v up to the next multiple of n.
func alignUp(v, n int) int {
	if v%n == 0 {
		return v
	}
	return v + (n - v%n)
}
