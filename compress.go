// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"compress/bzip2"
	"compress/zlib"
	"fmt"
	"io"
)

// Codec bytes prefixing each compressed sector
const (
	compressionStored = 0x00 // Stored, codec byte kept in the output
	compressionZlib   = 0x02 // Zlib compression
	compressionBzip2  = 0x10 // BZip2 compression
)

// decompressSector expands one compressed sector or single-unit
// payload. The first byte selects the codec. A stored sector (0x00) is
// returned whole, codec byte included; replay tooling depends on the
// marker surviving the round trip.
func decompressSector(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty sector", ErrCorruptPayload)
	}

	switch data[0] {
	case compressionStored:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil

	case compressionZlib:
		r, err := zlib.NewReader(bytes.NewReader(data[1:]))
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrCorruptPayload, err)
		}
		defer r.Close()

		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrCorruptPayload, err)
		}
		return out, nil

	case compressionBzip2:
		out, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(data[1:])))
		if err != nil {
			return nil, fmt.Errorf("%w: bzip2: %v", ErrCorruptPayload, err)
		}
		return out, nil

	default:
		return nil, &UnsupportedCompressionError{Codec: data[0]}
	}
}
