package wire

import "encoding/binary"

// Little-endian field accessors used throughout the packet layouts.
// These are thin wrappers over encoding/binary kept here so every layout
// in the package states its byte order in exactly one place.

// U16 reads a little-endian uint16 at offset off.
func U16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off:])
}

// U32 reads a little-endian uint32 at offset off.
func U32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}

// U64 reads a little-endian uint64 at offset off.
func U64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off:])
}

// PutU16 writes a little-endian uint16 at offset off.
func PutU16(b []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(b[off:], v)
}

// PutU32 writes a little-endian uint32 at offset off.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}

// PutU64 writes a little-endian uint64 at offset off.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:], v)
}
