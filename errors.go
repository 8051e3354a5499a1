// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"errors"
	"fmt"
)

// Sentinel errors. ErrInvalidFormat and ErrCorruptPayload are wrapped
// with positional detail when returned; match all of them with
// errors.Is.
var (
	// ErrInvalidFormat indicates the input is not an MPQ archive, or
	// its header and table geometry contradict the backing buffer.
	ErrInvalidFormat = errors.New("invalid MPQ archive")

	// ErrCorruptPayload indicates damaged file data: sector offsets
	// out of range, oversized sector output, or a decoder failure.
	ErrCorruptPayload = errors.New("corrupt file payload")

	// ErrNoListfile is returned by ExtractAll when the archive was
	// opened without a listfile or does not contain one.
	ErrNoListfile = errors.New("archive has no listfile")
)

// UnsupportedVersionError is returned for format versions above 1.
// Later versions add header fields this package does not parse.
type UnsupportedVersionError struct {
	Version uint16
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported MPQ format version %d", e.Version)
}

// UnsupportedFeatureError is returned when a requested file uses a
// storage feature this package refuses, such as payload encryption.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("unsupported MPQ feature: %s", e.Feature)
}

// UnsupportedCompressionError is returned when a sector's codec byte
// names a compression scheme this package does not decode.
type UnsupportedCompressionError struct {
	Codec byte
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("unsupported compression type 0x%02X", e.Codec)
}
