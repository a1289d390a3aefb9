// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dataproducts/registry/pkg/core/cerr"
)

// Version represents a released data product version, consisting of
// two components. First component indicates the major version.
// Incrementing it represents backward-incompatible changes such as
// removed tables, removed columns, or changed column types. Second
// component is the minor version which represents additions and
// changes which are backward compatible for data consumers, such as
// added columns or updated descriptions.
//
// No patch component is considered because the registry only versions
// the externally visible shape of a data product. Changes which are
// invisible to consumers do not produce a new version row at all.
type Version struct {
	Major int
	Minor int
}

// ParseVersion deserializes a version string of the form
// v<major>.<minor> where both components are non-negative integers.
// Any surplus input, a missing v prefix, signs, or non-numeric
// components fail with a *cerr.MalformedVersionError.
func ParseVersion(s string) (Version, error) {
	rest, found := strings.CutPrefix(s, "v")
	if !found {
		return Version{}, &cerr.MalformedVersionError{Input: s}
	}
	majorStr, minorStr, found := strings.Cut(rest, ".")
	if !found {
		return Version{}, &cerr.MalformedVersionError{Input: s}
	}
	major, err := parseComponent(majorStr)
	if err != nil {
		return Version{}, &cerr.MalformedVersionError{Input: s}
	}
	minor, err := parseComponent(minorStr)
	if err != nil {
		return Version{}, &cerr.MalformedVersionError{Input: s}
	}
	return Version{Major: major, Minor: minor}, nil
}

// parseComponent converts one version component to a non-negative
// integer. The strconv.Atoi accepts a leading sign character, hence,
// components are verified to contain digits alone beforehand.
func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty version component")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf(
				"the %q component is not numeric", s,
			)
		}
	}
	return strconv.Atoi(s)
}

// String returns the v version as a string like v<major>.<minor>,
// so parsing and formatting a valid version string round-trips.
func (v Version) String() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// MarshalText implements encoding.TextMarshaler interface and
// serializes `v` version as its string representation.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText deserializes text byte slice as a v<major>.<minor>
// string and fills the v Version instance. In case of errors, v will
// be left unchanged.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// IncrementMajor returns the next major version, resetting the minor
// component to zero.
func (v Version) IncrementMajor() Version {
	return Version{Major: v.Major + 1, Minor: 0}
}

// IncrementMinor returns the next minor version within the same major
// version series.
func (v Version) IncrementMinor() Version {
	return Version{Major: v.Major, Minor: v.Minor + 1}
}

// Compare returns -1, 0, or 1 if the v version is ordered before,
// equal to, or after the o version respectively. Ordering is
// lexicographic over the (major, minor) pair.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major && v.Major < o.Major:
		return -1
	case v.Major != o.Major:
		return 1
	case v.Minor < o.Minor:
		return -1
	case v.Minor > o.Minor:
		return 1
	default:
		return 0
	}
}

// IsZero reports if v is left uninitialized. A registered data product
// version always starts at v1.0, hence, the zero value marks a
// version snapshot which was never committed.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}
