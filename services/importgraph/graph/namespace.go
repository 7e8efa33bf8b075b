// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"strings"
)

// moduleSeparator joins the segments of a module name.
const moduleSeparator = "."

// IsDescendant reports whether candidate lies strictly beneath ancestor.
//
// "a.b.c" is a descendant of "a" and "a.b"; "a" is not a descendant of
// itself and "ab" is not a descendant of "a".
func IsDescendant(candidate, ancestor string) bool {
	return len(candidate) > len(ancestor)+1 &&
		strings.HasPrefix(candidate, ancestor) &&
		candidate[len(ancestor)] == '.'
}

// IsSameOrDescendant reports whether candidate equals ancestor or lies beneath it.
func IsSameOrDescendant(candidate, ancestor string) bool {
	return candidate == ancestor || IsDescendant(candidate, ancestor)
}

// isImmediateChild reports whether candidate is exactly one segment below parent.
func isImmediateChild(candidate, parent string) bool {
	if !IsDescendant(candidate, parent) {
		return false
	}
	return !strings.Contains(candidate[len(parent)+1:], moduleSeparator)
}

// ParentOf returns the module one level above module.
//
// Returns ("", false) for top-level modules.
func ParentOf(module string) (string, bool) {
	i := strings.LastIndex(module, moduleSeparator)
	if i < 0 {
		return "", false
	}
	return module[:i], true
}

// RootOf returns the first segment of module.
func RootOf(module string) string {
	if i := strings.Index(module, moduleSeparator); i >= 0 {
		return module[:i]
	}
	return module
}

// validateModuleName rejects names with empty segments.
func validateModuleName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidModuleName)
	}
	for _, segment := range strings.Split(name, moduleSeparator) {
		if segment == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidModuleName, name)
		}
	}
	return nil
}

// packagesOverlap reports whether a and b are the same module or one
// contains the other.
func packagesOverlap(a, b string) bool {
	return IsSameOrDescendant(a, b) || IsDescendant(b, a)
}
