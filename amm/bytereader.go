package amm

import (
	"encoding/binary"
)

// ByteReader walks raw account data at fixed offsets. Reads past the
// end return zero; callers bounds-check with Remaining first.
type ByteReader struct {
	data   []byte
	offset int
}

func NewByteReader(data []byte) *ByteReader {
	return &ByteReader{data: data, offset: 0}
}

func (br *ByteReader) Remaining() int {
	return len(br.data) - br.offset
}

// Skip advances past n bytes without reading them.
func (br *ByteReader) Skip(n int) {
	br.offset += n
}

func (br *ByteReader) ReadU8() uint8 {
	if br.offset+1 > len(br.data) {
		return 0
	}
	val := br.data[br.offset]
	br.offset++
	return val
}

func (br *ByteReader) ReadU64() uint64 {
	if br.offset+8 > len(br.data) {
		return 0
	}
	val := binary.LittleEndian.Uint64(br.data[br.offset:])
	br.offset += 8
	return val
}
