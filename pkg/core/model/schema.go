// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// NamePattern restricts the externally visible short names of data
// products and their tables (and also the column names within them).
var NamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ColumnTypePattern is the anchored, case-sensitive grammar of the
// acceptable column data types, covering the integer family with
// optional unsigned and width prefixes, floating point and decimal
// types, sized and unsized character types, and the scalar string,
// boolean, date, and timestamp types.
var ColumnTypePattern = regexp.MustCompile(
	`^(u?(tiny|small|big|)int` +
		`|float|double` +
		`|decimal\(\d{1,2},\s?\d{1,2}\)` +
		`|char\(\d{1,3}\)|varchar\(\d{0,5}\)|varchar` +
		`|string|boolean|date|timestamp)$`,
)

// Column describes one column of a table schema by its name, data
// type, and a free text description which feeds the data catalogue.
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Validate ensures that the column name and its data type match their
// respective grammars.
func (c Column) Validate() error {
	if !NamePattern.MatchString(c.Name) {
		return fmt.Errorf(
			"column name %q must match %s",
			c.Name, NamePattern.String(),
		)
	}
	if !ColumnTypePattern.MatchString(c.Type) {
		return fmt.Errorf(
			"column %q has unacceptable type %q",
			c.Name, c.Type,
		)
	}
	return nil
}

// Schema is one table definition which belongs to exactly one
// ProductVersion. Each version holds its own Schema instances; the
// versioning engine copies (not shares) schemas across versions so
// version immutability is structural, not advisory.
type Schema struct {
	ID               uuid.UUID // opaque internal identifier
	Name             string    // table name, unique within a version
	TableDescription string    // description of the table contents
	Columns          []Column  // ordered column descriptors
}

// ExternalID returns the identifier by which clients address this
// table within the productName data product.
func (s *Schema) ExternalID(productName string) string {
	return fmt.Sprintf("dp:%s:%s", productName, s.Name)
}

// Validate ensures that the table name and every column match the
// acceptable grammars, and that no column name repeats.
func (s *Schema) Validate() error {
	if !NamePattern.MatchString(s.Name) {
		return fmt.Errorf(
			"table name %q must match %s",
			s.Name, NamePattern.String(),
		)
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("column %q is repeated", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Copy allocates an independent copy of the s schema with a fresh
// (zero) identifier, so it may be attached to a new version snapshot
// without sharing any state with the source version.
func (s *Schema) Copy() *Schema {
	cols := make([]Column, len(s.Columns))
	copy(cols, s.Columns)
	return &Schema{
		Name:             s.Name,
		TableDescription: s.TableDescription,
		Columns:          cols,
	}
}
