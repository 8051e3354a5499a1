// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"fmt"
	"strings"
)

// listfileName is the conventional enumeration file.
const listfileName = "(listfile)"

// loadListfile populates the file enumeration. An archive without a
// listfile is not an error; Files just stays nil.
func (a *Archive) loadListfile() error {
	data, err := a.ReadFile(listfileName)
	if err != nil {
		return fmt.Errorf("read listfile: %w", err)
	}
	if data == nil {
		return nil
	}

	a.files = splitListfile(data)
	a.log.WithField("files", len(a.files)).Debug("loaded listfile")
	return nil
}

// splitListfile splits the CRLF-separated enumeration, dropping
// trailing blank lines.
func splitListfile(data []byte) []string {
	lines := strings.Split(string(data), "\r\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Files returns the archive enumeration in listfile order, or nil when
// the listfile was skipped or is absent.
func (a *Archive) Files() []string { return a.files }

// ExtractedFile pairs a listfile entry with its decoded contents.
// Data is nil when the named entry cannot be resolved.
type ExtractedFile struct {
	Name string
	Data []byte
}

// ExtractAll decodes every listfile entry in order.
func (a *Archive) ExtractAll() ([]ExtractedFile, error) {
	if a.files == nil {
		return nil, ErrNoListfile
	}

	out := make([]ExtractedFile, 0, len(a.files))
	for _, name := range a.files {
		data, err := a.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		out = append(out, ExtractedFile{Name: name, Data: data})
	}
	return out, nil
}
