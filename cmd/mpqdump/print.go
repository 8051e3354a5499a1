// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	mpq "github.com/suprsokr/sc2mpq"
)

func printHeaders(h *mpq.Header) {
	fmt.Println("MPQ archive header")
	fmt.Println("------------------")
	fmt.Printf("%-26s %s\n", "magic", printableMagic(h.Magic))
	fmt.Printf("%-26s %d\n", "header size", h.HeaderSize)
	fmt.Printf("%-26s %d\n", "archive size", h.ArchiveSize)
	fmt.Printf("%-26s %d\n", "format version", h.FormatVersion)
	fmt.Printf("%-26s %d\n", "sector size shift", h.SectorSizeShift)
	fmt.Printf("%-26s 0x%08X\n", "hash table offset", h.HashTableOffset)
	fmt.Printf("%-26s 0x%08X\n", "block table offset", h.BlockTableOffset)
	fmt.Printf("%-26s %d\n", "hash table entries", h.HashTableEntries)
	fmt.Printf("%-26s %d\n", "block table entries", h.BlockTableEntries)
	if h.FormatVersion == 1 {
		fmt.Printf("%-26s %d\n", "extended block table", h.ExtendedBlockTableOffset)
		fmt.Printf("%-26s %d\n", "hash table offset high", h.HashTableOffsetHigh)
		fmt.Printf("%-26s %d\n", "block table offset high", h.BlockTableOffsetHigh)
	}
	fmt.Printf("%-26s %d\n", "offset", h.Offset)
	fmt.Println()

	if h.UserData != nil {
		u := h.UserData
		fmt.Println("MPQ user data header")
		fmt.Println("--------------------")
		fmt.Printf("%-26s %d\n", "user data size", u.UserDataSize)
		fmt.Printf("%-26s 0x%08X\n", "mpq header offset", u.MPQHeaderOffset)
		fmt.Printf("%-26s %d\n", "user data header size", u.UserDataHeaderSize)
		fmt.Println()
	}
}

func printableMagic(m [4]byte) string {
	return fmt.Sprintf("%s\\x%02x", m[:3], m[3])
}

func printHashTable(entries []mpq.HashEntry) {
	fmt.Println("MPQ archive hash table")
	fmt.Println("----------------------")
	fmt.Println(" Hash A   Hash B  Locl Plat BlockIdx")
	for _, e := range entries {
		fmt.Printf("%08X %08X %04X %04X %08X\n", e.HashA, e.HashB, e.Locale, e.Platform, e.BlockIndex)
	}
	fmt.Println()
}

func printBlockTable(entries []mpq.BlockEntry) {
	fmt.Println("MPQ archive block table")
	fmt.Println("-----------------------")
	fmt.Println("  Offset  ArchSize RealSize    Flags")
	for _, e := range entries {
		fmt.Printf("%08X %9d %8d %8X\n", e.Offset, e.ArchivedSize, e.Size, e.Flags)
	}
	fmt.Println()
}
