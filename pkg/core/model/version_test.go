// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model_test

import (
	"testing"

	"github.com/dataproducts/registry/pkg/core/cerr"
	"github.com/dataproducts/registry/pkg/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	for _, tc := range []struct {
		in    string
		major int
		minor int
	}{
		{"v1.0", 1, 0},
		{"v1.1", 1, 1},
		{"v2.0", 2, 0},
		{"v10.25", 10, 25},
		{"v0.0", 0, 0},
	} {
		t.Run(tc.in, func(t *testing.T) {
			v, err := model.ParseVersion(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.major, v.Major)
			assert.Equal(t, tc.minor, v.Minor)
		})
	}
}

func TestParseVersionRoundTrip(t *testing.T) {
	for _, in := range []string{"v1.0", "v2.13", "v100.4"} {
		v, err := model.ParseVersion(in)
		require.NoError(t, err)
		assert.Equal(t, in, v.String())
	}
}

func TestParseVersionMalformed(t *testing.T) {
	for _, in := range []string{
		"", "v", "1.0", "v1", "v1.", "v.1", "v1.0.0", "va.b",
		"v-1.0", "v1.-2", "v+1.0", "v1.0 ", " v1.0", "v1 . 0",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := model.ParseVersion(in)
			var mve *cerr.MalformedVersionError
			require.ErrorAs(t, err, &mve)
			assert.Equal(t, in, mve.Input)
		})
	}
}

func TestVersionIncrements(t *testing.T) {
	v := model.Version{Major: 1, Minor: 2}
	assert.Equal(t, model.Version{Major: 2, Minor: 0}, v.IncrementMajor())
	assert.Equal(t, model.Version{Major: 1, Minor: 3}, v.IncrementMinor())
	// the receiver stays unchanged
	assert.Equal(t, model.Version{Major: 1, Minor: 2}, v)
}

func TestVersionCompare(t *testing.T) {
	for _, tc := range []struct {
		a, b     string
		expected int
	}{
		{"v1.0", "v1.0", 0},
		{"v1.0", "v1.1", -1},
		{"v1.1", "v1.0", 1},
		{"v1.9", "v2.0", -1},
		{"v2.0", "v1.25", 1},
	} {
		a, err := model.ParseVersion(tc.a)
		require.NoError(t, err)
		b, err := model.ParseVersion(tc.b)
		require.NoError(t, err)
		assert.Equal(
			t, tc.expected, a.Compare(b),
			"comparing %s with %s", tc.a, tc.b,
		)
	}
}

func TestVersionTextMarshalling(t *testing.T) {
	v := model.Version{Major: 3, Minor: 7}
	text, err := v.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "v3.7", string(text))

	var parsed model.Version
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, v, parsed)

	err = parsed.UnmarshalText([]byte("not-a-version"))
	require.Error(t, err)
	// a failed unmarshalling leaves the receiver unchanged
	assert.Equal(t, v, parsed)
}
