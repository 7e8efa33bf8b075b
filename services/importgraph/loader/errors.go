// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFiles is returned when LoadFiles or NewWatcher get no paths.
	ErrNoFiles = errors.New("no import files given")

	// ErrInvalidFile is returned when an import file cannot be decoded or
	// fails validation.
	ErrInvalidFile = errors.New("invalid import file")
)

// FileError ties a load failure to the file that caused it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error {
	return e.Err
}
