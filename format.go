// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
)

// Magic bytes of the MPQ header and of the optional user data block
// that may precede it.
var (
	headerMagic   = [4]byte{'M', 'P', 'Q', 0x1a}
	userDataMagic = [4]byte{'M', 'P', 'Q', 0x1b}
)

// MPQ format constants
const (
	// Header sizes
	headerSizeV1 = 0x20 // 32 bytes, format version 0
	headerSizeV2 = 0x2C // 44 bytes, format version 1

	// Fixed part of the user data block
	userDataFixedSize = 0x10

	// Hash and block table entries are both 16 bytes on disk
	tableEntrySize = 16

	// Block table entry flags
	fileImplode      = 0x00000100 // Imploded (PKWARE compression)
	fileCompress     = 0x00000200 // Compressed (per-sector codec byte)
	fileEncrypted    = 0x00010000 // Encrypted
	fileFixKey       = 0x00020000 // Key adjusted by block offset
	fileSingleUnit   = 0x01000000 // Single unit (not split into sectors)
	fileDeleteMarker = 0x02000000 // File is a deletion marker
	fileSectorCRC    = 0x04000000 // Sector CRC values after data
	fileExists       = 0x80000000 // File exists

	// Hash table entry constants
	hashTableEmpty   = 0xFFFFFFFF
	hashTableDeleted = 0xFFFFFFFE
)

// UserDataHeader is the shunt block that precedes the MPQ header in
// replay archives. The game stores its own metadata in Content and the
// archive proper begins at MPQHeaderOffset.
type UserDataHeader struct {
	UserDataSize       uint32 // Bytes reserved for user data
	MPQHeaderOffset    uint32 // Absolute offset of the MPQ header
	UserDataHeaderSize uint32 // Length of Content
	Content            []byte
}

// Header is the parsed MPQ header.
type Header struct {
	Magic             [4]byte
	HeaderSize        uint32
	ArchiveSize       uint32
	FormatVersion     uint16
	SectorSizeShift   uint16
	HashTableOffset   uint32
	BlockTableOffset  uint32
	HashTableEntries  uint32
	BlockTableEntries uint32

	// Extended fields, present when FormatVersion is 1.
	ExtendedBlockTableOffset int64
	HashTableOffsetHigh      int16
	BlockTableOffsetHigh     int16

	// Offset is the absolute position of the MPQ header within the
	// backing buffer: 0 for bare archives, nonzero when a user data
	// block precedes the header. Table and file offsets in the header
	// are relative to this position.
	Offset int64

	// UserData is set when the archive starts with a user data block.
	UserData *UserDataHeader
}

// HashEntry maps a pair of name hashes to a block table index.
type HashEntry struct {
	HashA      uint32
	HashB      uint32
	Locale     uint16
	Platform   uint16
	BlockIndex uint32
}

// BlockEntry describes one stored file region.
type BlockEntry struct {
	Offset       uint32 // Relative to the MPQ header
	ArchivedSize uint32 // Bytes on disk
	Size         uint32 // Logical (decoded) bytes
	Flags        uint32
}

// readHeader locates and parses the MPQ header, following the user
// data shunt when the buffer starts with one.
func readHeader(data []byte) (*Header, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes is too short for a header", ErrInvalidFormat, len(data))
	}

	var magic [4]byte
	copy(magic[:], data[:4])

	var headerOffset int64
	var userData *UserDataHeader

	switch magic {
	case headerMagic:
		// The MPQ header sits at the start of the buffer.
	case userDataMagic:
		u, err := readUserData(data)
		if err != nil {
			return nil, err
		}
		userData = u
		headerOffset = int64(u.MPQHeaderOffset)
	default:
		return nil, fmt.Errorf("%w: bad magic % X", ErrInvalidFormat, magic)
	}

	h, err := parseHeader(data, headerOffset)
	if err != nil {
		return nil, err
	}
	h.Offset = headerOffset
	h.UserData = userData
	return h, nil
}

// readUserData parses the 16-byte user data block and its content.
func readUserData(data []byte) (*UserDataHeader, error) {
	if len(data) < userDataFixedSize {
		return nil, fmt.Errorf("%w: truncated user data block", ErrInvalidFormat)
	}

	u := &UserDataHeader{
		UserDataSize:       binary.LittleEndian.Uint32(data[4:8]),
		MPQHeaderOffset:    binary.LittleEndian.Uint32(data[8:12]),
		UserDataHeaderSize: binary.LittleEndian.Uint32(data[12:16]),
	}

	end := int64(userDataFixedSize) + int64(u.UserDataHeaderSize)
	if end > int64(len(data)) {
		return nil, fmt.Errorf("%w: user data content of %d bytes overruns archive", ErrInvalidFormat, u.UserDataHeaderSize)
	}
	u.Content = make([]byte, u.UserDataHeaderSize)
	copy(u.Content, data[userDataFixedSize:end])

	return u, nil
}

// parseHeader reads the fixed header at offset, plus the extended tail
// for format version 1 archives.
func parseHeader(data []byte, offset int64) (*Header, error) {
	if offset < 0 || offset+headerSizeV1 > int64(len(data)) {
		return nil, fmt.Errorf("%w: header at offset %d overruns archive", ErrInvalidFormat, offset)
	}
	buf := data[offset:]

	h := &Header{}
	copy(h.Magic[:], buf[:4])
	if h.Magic != headerMagic {
		return nil, fmt.Errorf("%w: bad header magic % X at offset %d", ErrInvalidFormat, h.Magic, offset)
	}

	h.HeaderSize = binary.LittleEndian.Uint32(buf[4:8])
	h.ArchiveSize = binary.LittleEndian.Uint32(buf[8:12])
	h.FormatVersion = binary.LittleEndian.Uint16(buf[12:14])
	h.SectorSizeShift = binary.LittleEndian.Uint16(buf[14:16])
	h.HashTableOffset = binary.LittleEndian.Uint32(buf[16:20])
	h.BlockTableOffset = binary.LittleEndian.Uint32(buf[20:24])
	h.HashTableEntries = binary.LittleEndian.Uint32(buf[24:28])
	h.BlockTableEntries = binary.LittleEndian.Uint32(buf[28:32])

	if h.FormatVersion > 1 {
		return nil, &UnsupportedVersionError{Version: h.FormatVersion}
	}

	if h.FormatVersion == 1 {
		if offset+headerSizeV2 > int64(len(data)) {
			return nil, fmt.Errorf("%w: extended header overruns archive", ErrInvalidFormat)
		}
		h.ExtendedBlockTableOffset = int64(binary.LittleEndian.Uint64(buf[32:40]))
		h.HashTableOffsetHigh = int16(binary.LittleEndian.Uint16(buf[40:42]))
		h.BlockTableOffsetHigh = int16(binary.LittleEndian.Uint16(buf[42:44]))
	}

	return h, nil
}

// Table records come out of the decryptor big-endian; see doc.go.

func parseHashEntry(rec []byte) HashEntry {
	return HashEntry{
		HashA:      binary.BigEndian.Uint32(rec[0:4]),
		HashB:      binary.BigEndian.Uint32(rec[4:8]),
		Locale:     binary.BigEndian.Uint16(rec[8:10]),
		Platform:   binary.BigEndian.Uint16(rec[10:12]),
		BlockIndex: binary.BigEndian.Uint32(rec[12:16]),
	}
}

func parseBlockEntry(rec []byte) BlockEntry {
	return BlockEntry{
		Offset:       binary.BigEndian.Uint32(rec[0:4]),
		ArchivedSize: binary.BigEndian.Uint32(rec[4:8]),
		Size:         binary.BigEndian.Uint32(rec[8:12]),
		Flags:        binary.BigEndian.Uint32(rec[12:16]),
	}
}
