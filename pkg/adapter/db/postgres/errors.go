// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolationCode is the PostgreSQL SQLSTATE code which is
// reported when an INSERT or UPDATE statement violates a uniqueness
// constraint.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports if the err error (possibly after
// unwrapping) is a PostgreSQL unique constraint violation. Repository
// packages use this check in order to translate constraint conflicts,
// such as two requests racing to advance the same product head to the
// same (name, version) pair, into conflict errors for their callers.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
