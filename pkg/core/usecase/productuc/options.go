// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package productuc

import (
	"errors"
	"time"
)

// Option is a functional option for the data products use case.
type Option func(uc *UseCase) error

// WithClock option configures a data products UseCase instance to
// obtain the current time from the given now function instead of the
// system clock. The creation date and last updated operational
// attributes are stamped using this clock, hence, test cases may fix
// it to a deterministic time source. This option may be passed to the
// New() function.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) error {
		if now == nil {
			return errors.New("clock function must be non-nil")
		}
		if uc.now != nil {
			return errors.New("clock is already configured")
		}
		uc.now = now
		return nil
	}
}
