// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import "encoding/binary"

// Hash types for the hash function
const (
	hashTypeTableOffset = 0
	hashTypeNameA       = 1
	hashTypeNameB       = 2
	hashTypeFileKey     = 3
)

// cryptTable is the encryption/hash lookup table
var cryptTable [0x500]uint32

func init() {
	// Initialize the encryption table using the standard MPQ algorithm
	seed := uint32(0x00100001)

	for index1 := 0; index1 < 0x100; index1++ {
		index2 := index1
		for i := 0; i < 5; i++ {
			seed = (seed*125 + 3) % 0x2AAAAB
			temp1 := (seed & 0xFFFF) << 0x10

			seed = (seed*125 + 3) % 0x2AAAAB
			temp2 := seed & 0xFFFF

			cryptTable[index2] = temp1 | temp2
			index2 += 0x100
		}
	}
}

// hashString computes the MPQ hash of a string.
// Replay archives store flat ASCII names, so the uppercase fold is the
// only canonicalization applied.
func hashString(s string, hashType uint32) uint32 {
	seed1 := uint32(0x7FED7FED)
	seed2 := uint32(0xEEEEEEEE)

	for i := 0; i < len(s); i++ {
		ch := uint32(s[i])
		// Convert to uppercase
		if ch >= 'a' && ch <= 'z' {
			ch -= 0x20
		}

		seed1 = cryptTable[hashType*0x100+ch] ^ (seed1 + seed2)
		seed2 = ch + seed1 + seed2 + (seed2 << 5) + 3
	}

	return seed1
}

// encryptBlock encrypts a block of words in place.
// The reader itself never encrypts; tests use this to fabricate
// archives and to exercise the round trip.
func encryptBlock(data []uint32, key uint32) {
	seed := uint32(0xEEEEEEEE)

	for i := range data {
		seed += cryptTable[0x400+(key&0xFF)]
		plain := data[i]
		encrypted := plain ^ (key + seed)
		key = ((^key << 0x15) + 0x11111111) | (key >> 0x0B)
		seed = plain + seed + (seed << 5) + 3
		data[i] = encrypted
	}
}

// decryptBlock decrypts a block of words in place
func decryptBlock(data []uint32, key uint32) {
	seed := uint32(0xEEEEEEEE)

	for i := range data {
		seed += cryptTable[0x400+(key&0xFF)]
		encrypted := data[i]
		plain := encrypted ^ (key + seed)
		key = ((^key << 0x15) + 0x11111111) | (key >> 0x0B)
		seed = plain + seed + (seed << 5) + 3
		data[i] = plain
	}
}

// decryptBytes decrypts data with key and returns a fresh slice.
// Ciphertext words are read little-endian and plaintext words are
// written back big-endian; the table parsers expect exactly that byte
// order (see the package notes in doc.go). len(data) must be a
// multiple of 4; a ragged tail is not processed.
func decryptBytes(data []byte, key uint32) []byte {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}

	decryptBlock(words, key)

	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(out[i*4:], w)
	}
	return out
}
