// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/adler32"
	"hash/crc32"
	"testing"
)

// Helpers for fabricating archives in memory. This is the write side
// of the format reduced to what the tests need: encrypted tables in
// the byte order the reader expects, an optional user data prefix,
// and single-unit or sector-split payloads.

// fixtureFile is one entry staged into a fabricated archive.
type fixtureFile struct {
	name    string
	payload []byte // bytes as stored on disk
	size    uint32 // logical size recorded in the block table
	flags   uint32
	crc     uint32 // CRC32 recorded in "(attributes)", 0 for placeholders
	listed  bool   // include in "(listfile)"
}

// rawFile stages an uncompressed single-unit file.
func rawFile(name string, data []byte) fixtureFile {
	return fixtureFile{
		name:    name,
		payload: append([]byte(nil), data...),
		size:    uint32(len(data)),
		flags:   fileExists | fileSingleUnit,
		crc:     crc32.ChecksumIEEE(data),
		listed:  true,
	}
}

// zlibFile stages a zlib-compressed single-unit file. The data must
// compress below its own size or the reader will hand back the raw
// payload.
func zlibFile(t *testing.T, name string, data []byte) fixtureFile {
	t.Helper()

	payload := append([]byte{compressionZlib}, deflate(t, data)...)
	if len(payload) >= len(data) {
		t.Fatalf("fixture %s does not compress: %d -> %d bytes", name, len(data), len(payload))
	}
	return fixtureFile{
		name:    name,
		payload: payload,
		size:    uint32(len(data)),
		flags:   fileExists | fileSingleUnit | fileCompress,
		crc:     crc32.ChecksumIEEE(data),
		listed:  true,
	}
}

// sectoredFile stages a sector-split file, compressing each chunk when
// asked. withCRCs appends an adler32 per data sector ahead of the end
// marker.
func sectoredFile(t *testing.T, name string, data []byte, sectorSize uint32, compress, withCRCs bool) fixtureFile {
	t.Helper()

	var chunks [][]byte
	for begin := uint32(0); begin < uint32(len(data)); begin += sectorSize {
		stop := begin + sectorSize
		if stop > uint32(len(data)) {
			stop = uint32(len(data))
		}
		chunks = append(chunks, data[begin:stop])
	}
	if uint32(len(data))%sectorSize == 0 {
		// Terminal zero-length sector, matching the on-disk layout for
		// exact multiples.
		chunks = append(chunks, nil)
	}

	encoded := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		encoded[i] = chunk
		if compress && len(chunk) > 0 {
			z := append([]byte{compressionZlib}, deflate(t, chunk)...)
			if len(z) >= len(chunk) {
				t.Fatalf("fixture %s has an incompressible sector of %d bytes", name, len(chunk))
			}
			encoded[i] = z
		}
	}

	numEntries := len(chunks) + 1
	if withCRCs {
		numEntries++
	}

	positions := make([]uint32, 0, numEntries)
	cursor := uint32(numEntries * 4)
	positions = append(positions, cursor)
	for _, enc := range encoded {
		cursor += uint32(len(enc))
		positions = append(positions, cursor)
	}

	var crcRegion []byte
	if withCRCs {
		crcRegion = make([]byte, 4*len(chunks))
		for i, enc := range encoded {
			binary.LittleEndian.PutUint32(crcRegion[i*4:], adler32.Checksum(enc))
		}
		cursor += uint32(len(crcRegion))
		positions = append(positions, cursor)
	}

	var payload bytes.Buffer
	for _, pos := range positions {
		var word [4]byte
		binary.LittleEndian.PutUint32(word[:], pos)
		payload.Write(word[:])
	}
	for _, enc := range encoded {
		payload.Write(enc)
	}
	payload.Write(crcRegion)

	flags := uint32(fileExists)
	if compress {
		flags |= fileCompress
	}
	if withCRCs {
		flags |= fileSectorCRC
	}
	return fixtureFile{
		name:    name,
		payload: payload.Bytes(),
		size:    uint32(len(data)),
		flags:   flags,
		crc:     crc32.ChecksumIEEE(data),
		listed:  true,
	}
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		t.Fatalf("create zlib writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

// fixtureArchive describes an archive to fabricate.
type fixtureArchive struct {
	headerOffset  uint32 // user data shunt target; 0 means no prefix
	userContent   []byte
	formatVersion uint16
	sectorShift   uint16
	hashTableSize uint32 // defaults to 16
	files         []fixtureFile
	listfile      bool
	attributes    bool
}

func (f fixtureArchive) build(t *testing.T) []byte {
	t.Helper()

	hashSize := f.hashTableSize
	if hashSize == 0 {
		hashSize = 16
	}

	headerSize := uint32(headerSizeV1)
	if f.formatVersion == 1 {
		headerSize = headerSizeV2
	}

	files := append([]fixtureFile(nil), f.files...)

	if f.listfile {
		var names bytes.Buffer
		for _, file := range files {
			if file.listed {
				names.WriteString(file.name)
				names.WriteString("\r\n")
			}
		}
		lf := rawFile(listfileName, names.Bytes())
		lf.crc = 0
		lf.listed = false
		files = append(files, lf)
	}

	if f.attributes {
		count := len(files) + 1 // the attributes block itself is last
		attrs := make([]byte, 8+4*count)
		binary.LittleEndian.PutUint32(attrs[0:4], attributesVersion)
		binary.LittleEndian.PutUint32(attrs[4:8], attributesFlagCRC32)
		for i, file := range files {
			binary.LittleEndian.PutUint32(attrs[8+i*4:], file.crc)
		}
		af := rawFile(attributesName, attrs)
		af.crc = 0
		af.listed = false
		files = append(files, af)
	}

	// Lay out the payloads directly after the header.
	var body bytes.Buffer
	blockTable := make([]BlockEntry, len(files))
	cursor := headerSize
	for i, file := range files {
		blockTable[i] = BlockEntry{
			Offset:       cursor,
			ArchivedSize: uint32(len(file.payload)),
			Size:         file.size,
			Flags:        file.flags,
		}
		body.Write(file.payload)
		cursor += uint32(len(file.payload))
	}

	hashTable := make([]HashEntry, hashSize)
	for i := range hashTable {
		hashTable[i] = HashEntry{
			HashA:      0xFFFFFFFF,
			HashB:      0xFFFFFFFF,
			Locale:     0xFFFF,
			Platform:   0xFFFF,
			BlockIndex: hashTableEmpty,
		}
	}
	for i, file := range files {
		placeHashEntry(t, hashTable, file.name, uint32(i))
	}

	hashPlain := make([]byte, len(hashTable)*tableEntrySize)
	for i, e := range hashTable {
		rec := hashPlain[i*tableEntrySize:]
		binary.BigEndian.PutUint32(rec[0:4], e.HashA)
		binary.BigEndian.PutUint32(rec[4:8], e.HashB)
		binary.BigEndian.PutUint16(rec[8:10], e.Locale)
		binary.BigEndian.PutUint16(rec[10:12], e.Platform)
		binary.BigEndian.PutUint32(rec[12:16], e.BlockIndex)
	}
	blockPlain := make([]byte, len(blockTable)*tableEntrySize)
	for i, e := range blockTable {
		rec := blockPlain[i*tableEntrySize:]
		binary.BigEndian.PutUint32(rec[0:4], e.Offset)
		binary.BigEndian.PutUint32(rec[4:8], e.ArchivedSize)
		binary.BigEndian.PutUint32(rec[8:12], e.Size)
		binary.BigEndian.PutUint32(rec[12:16], e.Flags)
	}

	hashEnc := encryptBytes(hashPlain, hashString("(hash table)", hashTypeFileKey))
	blockEnc := encryptBytes(blockPlain, hashString("(block table)", hashTypeFileKey))

	hashOffset := cursor
	cursor += uint32(len(hashEnc))
	blockOffset := cursor
	cursor += uint32(len(blockEnc))
	archiveSize := cursor

	head := make([]byte, headerSize)
	copy(head[0:4], headerMagic[:])
	binary.LittleEndian.PutUint32(head[4:8], headerSize)
	binary.LittleEndian.PutUint32(head[8:12], archiveSize)
	binary.LittleEndian.PutUint16(head[12:14], f.formatVersion)
	binary.LittleEndian.PutUint16(head[14:16], f.sectorShift)
	binary.LittleEndian.PutUint32(head[16:20], hashOffset)
	binary.LittleEndian.PutUint32(head[20:24], blockOffset)
	binary.LittleEndian.PutUint32(head[24:28], hashSize)
	binary.LittleEndian.PutUint32(head[28:32], uint32(len(blockTable)))
	// The extended tail for version 1 stays zero.

	var out bytes.Buffer
	if f.headerOffset > 0 {
		if int(f.headerOffset) < userDataFixedSize+len(f.userContent) {
			t.Fatalf("header offset %d cannot hold %d bytes of user content", f.headerOffset, len(f.userContent))
		}
		prefix := make([]byte, f.headerOffset)
		copy(prefix[0:4], userDataMagic[:])
		binary.LittleEndian.PutUint32(prefix[4:8], f.headerOffset-userDataFixedSize)
		binary.LittleEndian.PutUint32(prefix[8:12], f.headerOffset)
		binary.LittleEndian.PutUint32(prefix[12:16], uint32(len(f.userContent)))
		copy(prefix[userDataFixedSize:], f.userContent)
		out.Write(prefix)
	}
	out.Write(head)
	out.Write(body.Bytes())
	out.Write(hashEnc)
	out.Write(blockEnc)
	return out.Bytes()
}

// placeHashEntry inserts a name into the table with the conventional
// open-addressing probe.
func placeHashEntry(t *testing.T, table []HashEntry, name string, blockIndex uint32) {
	t.Helper()

	size := uint32(len(table))
	start := hashString(name, hashTypeTableOffset) % size
	for i := uint32(0); i < size; i++ {
		idx := (start + i) % size
		if table[idx].BlockIndex == hashTableEmpty || table[idx].BlockIndex == hashTableDeleted {
			table[idx] = HashEntry{
				HashA:      hashString(name, hashTypeNameA),
				HashB:      hashString(name, hashTypeNameB),
				BlockIndex: blockIndex,
			}
			return
		}
	}
	t.Fatalf("hash table full placing %s", name)
}

// encryptBytes is the build-side inverse of decryptBytes: big-endian
// plaintext in, little-endian ciphertext out.
func encryptBytes(data []byte, key uint32) []byte {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(data[i*4:])
	}

	encryptBlock(words, key)

	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}
