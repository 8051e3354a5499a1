// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// "(attributes)" metadata file layout
const (
	attributesName      = "(attributes)"
	attributesVersion   = 100
	attributesFlagCRC32 = 0x00000001
)

// Attributes is the parsed "(attributes)" metadata file. When the
// CRC32 flag is set it carries one checksum per block table entry;
// placeholder entries (typically the attributes file itself) hold 0.
type Attributes struct {
	Version uint32
	Flags   uint32
	CRC32   []uint32
}

// Attributes reads the archive's "(attributes)" file, or returns nil
// when the archive does not carry one.
func (a *Archive) Attributes() (*Attributes, error) {
	data, err := a.ReadFile(attributesName)
	if err != nil || data == nil {
		return nil, err
	}

	if len(data) < 8 {
		return nil, fmt.Errorf("%w: attributes file of %d bytes", ErrCorruptPayload, len(data))
	}
	attrs := &Attributes{
		Version: binary.LittleEndian.Uint32(data[0:4]),
		Flags:   binary.LittleEndian.Uint32(data[4:8]),
	}

	if attrs.Flags&attributesFlagCRC32 != 0 {
		rest := data[8:]
		count := len(a.blockTable)
		if len(rest)/4 < count {
			count = len(rest) / 4
		}
		attrs.CRC32 = make([]uint32, count)
		for i := range attrs.CRC32 {
			attrs.CRC32[i] = binary.LittleEndian.Uint32(rest[i*4:])
		}
	}

	return attrs, nil
}

// VerifyFile checks the named file's contents against the CRC32 stored
// in "(attributes)". It returns (false, nil) when the archive has no
// attributes, no CRC array, or no checksum for the file's block; a
// true result means the checksum was present and matched.
func (a *Archive) VerifyFile(name string) (bool, error) {
	attrs, err := a.Attributes()
	if err != nil || attrs == nil || attrs.CRC32 == nil {
		return false, err
	}

	entry := a.locate(name)
	if entry == nil || entry.BlockIndex >= uint32(len(attrs.CRC32)) {
		return false, nil
	}
	want := attrs.CRC32[entry.BlockIndex]
	if want == 0 {
		return false, nil
	}

	data, err := a.ReadFile(name)
	if err != nil || data == nil {
		return false, err
	}
	return crc32.ChecksumIEEE(data) == want, nil
}
