// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package mpq provides pure Go support for reading MPQ (Mo'PaQ) archives
of the flavor StarCraft II wraps its replay files in.

MPQ is an archive format created by Blizzard Entertainment. Replay
archives are small, fit comfortably in memory, and carry the game's
own metadata in a user data block in front of the archive proper. This
package parses the whole archive out of a byte buffer: it locates the
header behind the optional user data block, decrypts the hash and
block tables, resolves file names through the hash table, and
reassembles sector-split, compressed payloads.

# Basic Usage

	archive, err := mpq.Open("game.SC2Replay", nil)
	if err != nil {
		log.Fatal(err)
	}

	details, err := archive.ReadFile("replay.details")
	if err != nil {
		log.Fatal(err)
	}
	if details == nil {
		log.Fatal("no replay.details in archive")
	}

A file that is not in the archive is not an error: ReadFile returns a
nil slice and a nil error. Errors are reserved for archives and
payloads that are actually broken, and for storage features this
package refuses (see below).

# Byte Order

The archive header is little-endian. The hash and block tables are
decrypted as little-endian words but their records are then parsed
big-endian. That byte swap is inherited from the tooling this package
interoperates with and is deliberately preserved; the table values it
produces are the ones existing replay consumers expect.

Similarly, a "compressed" sector whose codec byte is 0x00 is returned
whole, codec byte included, because that is what those same consumers
rely on.

# Limitations

This package reads replay-style archives and nothing more:

  - No archive writing or modification
  - No encrypted file payloads (the table encryption is supported; a
    file with the encryption flag is refused)
  - No PKWare imploded payloads
  - No format versions above 1 (Cataclysm-era v2/v3 headers are
    rejected)
  - Only the stored, zlib and bzip2 sector codecs
*/
package mpq
