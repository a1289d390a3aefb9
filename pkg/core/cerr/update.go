// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cerr

// InvalidUpdateError indicates that a proposed update may not be
// applied to a data product, either because it changes a metadata
// field which is outside of the updatable fields set, or because it
// addresses a table schema which is not present in the current
// version. The update is rejected without side effects; callers
// receive a bad request status and no automatic retry takes place.
type InvalidUpdateError struct {
	Reason string
}

// Error returns a string representation of the `e` error instance.
// This method causes *InvalidUpdateError to implement the error
// interface.
func (e *InvalidUpdateError) Error() string {
	return e.Reason
}

// InvalidUpdate wraps an InvalidUpdateError with the given reason,
// marking it as a bad request, so the API layer reports it with a
// 400 status code.
func InvalidUpdate(reason string) *Error {
	return BadRequest(&InvalidUpdateError{Reason: reason})
}
