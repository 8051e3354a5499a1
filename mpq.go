// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
	"hash/adler32"
	"os"

	"github.com/sirupsen/logrus"
)

// Options configures how an archive is opened. The zero value loads
// the listfile, skips sector checksum verification and logs through a
// default logger.
type Options struct {
	// SkipListfile leaves the file enumeration unloaded. Files returns
	// nil and ExtractAll fails, but ReadFile still works by name.
	SkipListfile bool

	// VerifyChecksums checks raw sectors against the adler32 values
	// stored for blocks carrying the sector CRC flag.
	VerifyChecksums bool

	// Logger receives debug-level progress. Nil selects a default.
	Logger *logrus.Logger
}

// Archive is a read-only MPQ archive held in memory. It is immutable
// after Open or New returns, so concurrent readers need no locking;
// every payload handed out is freshly allocated.
type Archive struct {
	data       []byte
	header     *Header
	hashTable  []HashEntry
	blockTable []BlockEntry
	files      []string
	verifyCRCs bool
	log        *logrus.Logger
}

// Open reads the archive at path into memory and parses it.
func Open(path string, opts *Options) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return New(data, opts)
}

// New parses an archive from an in-memory buffer. The Archive keeps a
// reference to data for its lifetime; callers must not mutate it.
func New(data []byte, opts *Options) (*Archive, error) {
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}

	header, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"offset":  header.Offset,
		"version": header.FormatVersion,
		"hashes":  header.HashTableEntries,
		"blocks":  header.BlockTableEntries,
	}).Debug("parsed MPQ header")

	a := &Archive{
		data:       data,
		header:     header,
		verifyCRCs: opts.VerifyChecksums,
		log:        log,
	}

	if a.hashTable, err = a.readHashTable(); err != nil {
		return nil, err
	}
	if a.blockTable, err = a.readBlockTable(); err != nil {
		return nil, err
	}

	if !opts.SkipListfile {
		if err := a.loadListfile(); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Header returns the parsed archive header.
func (a *Archive) Header() *Header { return a.header }

// HashTable returns the decrypted hash table.
func (a *Archive) HashTable() []HashEntry { return a.hashTable }

// BlockTable returns the decrypted block table.
func (a *Archive) BlockTable() []BlockEntry { return a.blockTable }

// tableKind selects which encrypted metadata table to read. Each table
// is encrypted with the hash of its conventional name.
type tableKind int

const (
	hashTableKind tableKind = iota
	blockTableKind
)

func (k tableKind) String() string {
	if k == hashTableKind {
		return "(hash table)"
	}
	return "(block table)"
}

// readTableData slices a table out of the backing buffer and decrypts
// it, returning the plaintext records and the entry count.
func (a *Archive) readTableData(kind tableKind) ([]byte, uint32, error) {
	var offset, entries uint32
	switch kind {
	case hashTableKind:
		offset, entries = a.header.HashTableOffset, a.header.HashTableEntries
	default:
		offset, entries = a.header.BlockTableOffset, a.header.BlockTableEntries
	}

	base := a.header.Offset + int64(offset)
	length := int64(entries) * tableEntrySize
	if base < 0 || base+length > int64(len(a.data)) {
		return nil, 0, fmt.Errorf("%w: %s at [%d,%d) overruns archive of %d bytes",
			ErrInvalidFormat, kind, base, base+length, len(a.data))
	}

	key := hashString(kind.String(), hashTypeFileKey)
	plain := decryptBytes(a.data[base:base+length], key)
	a.log.WithFields(logrus.Fields{"table": kind.String(), "entries": entries}).Debug("decrypted table")

	return plain, entries, nil
}

func (a *Archive) readHashTable() ([]HashEntry, error) {
	plain, entries, err := a.readTableData(hashTableKind)
	if err != nil {
		return nil, err
	}
	table := make([]HashEntry, entries)
	for i := range table {
		table[i] = parseHashEntry(plain[i*tableEntrySize:])
	}
	return table, nil
}

func (a *Archive) readBlockTable() ([]BlockEntry, error) {
	plain, entries, err := a.readTableData(blockTableKind)
	if err != nil {
		return nil, err
	}
	table := make([]BlockEntry, entries)
	for i := range table {
		table[i] = parseBlockEntry(plain[i*tableEntrySize:])
	}
	return table, nil
}

// locate resolves a filename to its hash table entry, or nil when no
// entry carries the name's hash pair.
func (a *Archive) locate(name string) *HashEntry {
	hashA := hashString(name, hashTypeNameA)
	hashB := hashString(name, hashTypeNameB)

	for i := range a.hashTable {
		e := &a.hashTable[i]
		if e.HashA == hashA && e.HashB == hashB {
			return e
		}
	}
	return nil
}

// ReadFile returns the decoded contents of the named file, or
// (nil, nil) when the archive holds no live entry under that name.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	return a.readFile(name, false)
}

// ReadFileForced is ReadFile, except that compressed payloads are
// decompressed even when the block sizes suggest the data was stored
// raw.
func (a *Archive) ReadFileForced(name string) ([]byte, error) {
	return a.readFile(name, true)
}

func (a *Archive) readFile(name string, forceDecompress bool) ([]byte, error) {
	entry := a.locate(name)
	if entry == nil {
		return nil, nil
	}
	if entry.BlockIndex >= uint32(len(a.blockTable)) {
		return nil, fmt.Errorf("%w: hash entry for %q references block %d of %d",
			ErrInvalidFormat, name, entry.BlockIndex, len(a.blockTable))
	}
	block := &a.blockTable[entry.BlockIndex]

	if block.Flags&fileExists == 0 {
		return nil, nil
	}
	if block.ArchivedSize == 0 {
		return nil, nil
	}
	if block.Flags&(fileEncrypted|fileFixKey) != 0 {
		return nil, &UnsupportedFeatureError{Feature: "encrypted file"}
	}
	if block.Flags&fileImplode != 0 {
		return nil, &UnsupportedFeatureError{Feature: "imploded file"}
	}

	start := a.header.Offset + int64(block.Offset)
	end := start + int64(block.ArchivedSize)
	if start < 0 || end > int64(len(a.data)) {
		return nil, fmt.Errorf("%w: file data for %q at [%d,%d) overruns archive of %d bytes",
			ErrInvalidFormat, name, start, end, len(a.data))
	}
	payload := a.data[start:end]

	if block.Flags&fileSingleUnit != 0 {
		if block.Flags&fileCompress != 0 && (forceDecompress || block.Size > block.ArchivedSize) {
			out, err := decompressSector(payload)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return out, nil
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	}

	out, err := a.readSectors(payload, block, forceDecompress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// readSectors reassembles a sector-split payload. The payload opens
// with a table of offsets relative to the payload start; the final
// offset only delimits, it is not a data sector, and with sector CRCs
// the region before it holds checksums rather than data.
func (a *Archive) readSectors(payload []byte, block *BlockEntry, forceDecompress bool) ([]byte, error) {
	sectorSize := uint32(512) << a.header.SectorSizeShift

	// One sector beyond the full ones, even for exact multiples; the
	// extra sector delimits zero bytes and is never decompressed below.
	numSectors := block.Size/sectorSize + 1
	hasCRCs := block.Flags&fileSectorCRC != 0
	if hasCRCs {
		numSectors++
	}

	tableLen := (int64(numSectors) + 1) * 4
	if tableLen > int64(len(payload)) {
		return nil, fmt.Errorf("%w: sector table of %d entries overruns %d payload bytes",
			ErrCorruptPayload, numSectors+1, len(payload))
	}
	positions := make([]uint32, numSectors+1)
	for i := range positions {
		positions[i] = binary.LittleEndian.Uint32(payload[i*4:])
	}

	effective := len(positions) - 1
	if hasCRCs {
		effective = len(positions) - 2
	}
	a.log.WithFields(logrus.Fields{"sectors": effective, "size": block.Size}).Debug("reading sectors")

	var (
		out       = make([]byte, 0, block.Size)
		raws      [][]byte
		remaining = int64(block.Size)
	)
	for i := 0; i < effective; i++ {
		begin, stop := positions[i], positions[i+1]
		if begin > stop || int64(stop) > int64(len(payload)) {
			return nil, fmt.Errorf("%w: sector %d spans [%d,%d) in %d payload bytes",
				ErrCorruptPayload, i, begin, stop, len(payload))
		}
		raw := payload[begin:stop]

		decoded := raw
		if block.Flags&fileCompress != 0 && len(raw) > 0 && (forceDecompress || remaining > int64(len(raw))) {
			var err error
			if decoded, err = decompressSector(raw); err != nil {
				return nil, fmt.Errorf("sector %d: %w", i, err)
			}
		}

		out = append(out, decoded...)
		remaining -= int64(len(decoded))
		if remaining < 0 {
			return nil, fmt.Errorf("%w: sectors decode to more than %d bytes", ErrCorruptPayload, block.Size)
		}

		if hasCRCs && a.verifyCRCs {
			raws = append(raws, raw)
		}
	}

	if hasCRCs && a.verifyCRCs {
		if err := verifySectorCRCs(payload, positions, raws); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// verifySectorCRCs checks each raw sector against the adler32 array
// stored between the last data sector and the end marker. A stored
// zero means the sector was not checksummed.
func verifySectorCRCs(payload []byte, positions []uint32, raws [][]byte) error {
	crcBegin, crcEnd := positions[len(positions)-2], positions[len(positions)-1]
	if crcBegin > crcEnd || int64(crcEnd) > int64(len(payload)) {
		return fmt.Errorf("%w: sector CRC region spans [%d,%d) in %d payload bytes",
			ErrCorruptPayload, crcBegin, crcEnd, len(payload))
	}
	region := payload[crcBegin:crcEnd]

	n := len(region) / 4
	for i, raw := range raws {
		if i >= n {
			break
		}
		want := binary.LittleEndian.Uint32(region[i*4:])
		if want == 0 {
			continue
		}
		if got := adler32.Checksum(raw); got != want {
			return fmt.Errorf("%w: sector %d checksum 0x%08X, want 0x%08X", ErrCorruptPayload, i, got, want)
		}
	}
	return nil
}
