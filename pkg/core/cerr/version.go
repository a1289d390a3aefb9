// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cerr

import "fmt"

// MalformedVersionError indicates an error condition where a version
// string did not match the v<major>.<minor> grammar with non-negative
// integer components. This error is internal to the registry; version
// strings are generated by the versioning engine, so a malformed one
// marks a programming or data corruption issue and should not reach
// API clients.
type MalformedVersionError struct {
	Input string // the rejected version string
}

// Error returns a string representation of the `e` error instance.
// This method causes *MalformedVersionError to implement the error
// interface.
func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf(
		"malformed version string: %q does not match v<major>.<minor>",
		e.Input,
	)
}
