// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package versioning contains the semantic versioning engine of the
// registry. Given the current metadata of a data product and a
// proposed modification, the classifier decides if the change is
// unchanged, backward compatible (minor), backward incompatible
// (major), or forbidden, and the Engine derives the next version
// snapshot accordingly, carrying unrelated table schemas forward.
//
// Any time a change would break consumers of the data product, the
// major version is incremented, e.g. removing tables, removing
// columns, or changing column types. Backward compatible changes
// increment the minor version, e.g. updated descriptions or added
// columns.
package versioning

import (
	"maps"
	"sort"

	"github.com/dataproducts/registry/pkg/core/model"
)

// UpdateType classifies a proposed update of a data product.
// Values form a lattice ordered as
// Unchanged < MinorUpdate < MajorUpdate < NotAllowed
// and independent classification dimensions combine by taking their
// maximum through the Merge method.
type UpdateType int

// These constants enumerate the update classifications in their
// lattice order.
const (
	Unchanged UpdateType = iota
	MinorUpdate
	MajorUpdate
	NotAllowed
)

// String returns a human readable name of the u update type.
func (u UpdateType) String() string {
	switch u {
	case Unchanged:
		return "unchanged"
	case MinorUpdate:
		return "minor"
	case MajorUpdate:
		return "major"
	case NotAllowed:
		return "not-allowed"
	default:
		return "unknown"
	}
}

// Merge combines two independently classified dimensions of one
// update by taking their maximum in the lattice order.
func (u UpdateType) Merge(o UpdateType) UpdateType {
	if o > u {
		return o
	}
	return u
}

// updatableMetadataKeys is the fixed set of metadata attributes which
// producers may change. A difference in any attribute outside of this
// set classifies the whole update as NotAllowed. Metadata changes are
// never major on their own.
var updatableMetadataKeys = map[string]struct{}{
	"description":             {},
	"email":                   {},
	"owner":                   {},
	"owner_display_name":      {},
	"domain":                  {},
	"status":                  {},
	"dpia_required":           {},
	"retention_period":        {},
	"maintainer":              {},
	"maintainer_display_name": {},
	"tags":                    {},
}

// ignoredMetadataKeys are the primary and foreign key attributes of a
// version row which never participate in a metadata diff.
var ignoredMetadataKeys = map[string]struct{}{
	"id":         {},
	"version":    {},
	"product_id": {},
	"schemas":    {},
}

// MetadataDiff reports the outcome of comparing the current metadata
// attributes with a proposed set.
type MetadataDiff struct {
	// Changed holds the sorted names of attributes whose proposed
	// values differ from the current ones.
	Changed []string
	// Forbidden holds the sorted subset of Changed which is outside
	// of the updatable metadata fields set.
	Forbidden []string
}

// ClassifyMetadata compares the proposed attribute values with the
// current ones and classifies the difference. Attributes missing from
// the proposed map are treated as untouched and primary/foreign key
// attributes are ignored. Two nil values are not a change. Any changed
// attribute outside of the updatable set makes the whole update
// NotAllowed; otherwise a non-empty difference is a MinorUpdate and an
// empty difference is Unchanged.
func ClassifyMetadata(
	current, proposed map[string]any,
) (UpdateType, MetadataDiff) {
	var diff MetadataDiff
	for key, value := range proposed {
		if _, ignored := ignoredMetadataKeys[key]; ignored {
			continue
		}
		if equalAttrValues(current[key], value) {
			continue
		}
		diff.Changed = append(diff.Changed, key)
		if _, ok := updatableMetadataKeys[key]; !ok {
			diff.Forbidden = append(diff.Forbidden, key)
		}
	}
	sort.Strings(diff.Changed)
	sort.Strings(diff.Forbidden)
	switch {
	case len(diff.Forbidden) > 0:
		return NotAllowed, diff
	case len(diff.Changed) > 0:
		return MinorUpdate, diff
	default:
		return Unchanged, diff
	}
}

// equalAttrValues compares two metadata attribute values. Pointer
// valued attributes compare by their pointed-to values with two nil
// pointers being equal, and tags mappings compare by their entries.
// All other attributes are comparable scalars.
func equalAttrValues(a, b any) bool {
	switch av := a.(type) {
	case *string:
		bv, ok := b.(*string)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == bv
		}
		return *av == *bv
	case model.Tags:
		bv, ok := b.(model.Tags)
		return ok && maps.Equal(av, bv)
	default:
		return a == b
	}
}

// ColumnChanges reports how the column set of a table schema changed,
// matching columns of the old and new schemas by name.
type ColumnChanges struct {
	Added               []string // present in new, absent in old
	Removed             []string // present in old, absent in new
	TypesChanged        []string // retained columns with new types
	DescriptionsChanged []string // retained columns with new texts
}

// IsZero reports if no column level change was detected.
func (c ColumnChanges) IsZero() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 &&
		len(c.TypesChanged) == 0 && len(c.DescriptionsChanged) == 0
}

// SchemaDiff reports the outcome of comparing two table schemas with
// the same name.
type SchemaDiff struct {
	// NonColumnFields holds the sorted names of the changed schema
	// attributes other than the column set.
	NonColumnFields []string
	// Columns details the column level changes.
	Columns ColumnChanges
}

// ClassifySchema compares the old and new table schemas and
// classifies the difference. Removed columns and type changes on
// retained columns break consumers and are MajorUpdate signals, while
// added columns and description changes are MinorUpdate signals. The
// only non-column attribute whose change is minor is the table
// description; any other non-column attribute change is major. The
// overall classification is the lattice maximum across all signals,
// so a major column signal wins over a minor non-column one.
func ClassifySchema(
	old, updated *model.Schema,
) (UpdateType, SchemaDiff) {
	var diff SchemaDiff
	kind := Unchanged

	if old.TableDescription != updated.TableDescription {
		diff.NonColumnFields = append(
			diff.NonColumnFields, "table_description",
		)
		kind = kind.Merge(MinorUpdate)
	}
	if old.Name != updated.Name {
		diff.NonColumnFields = append(diff.NonColumnFields, "name")
		kind = kind.Merge(MajorUpdate)
	}
	sort.Strings(diff.NonColumnFields)

	diff.Columns = diffColumns(old.Columns, updated.Columns)
	if len(diff.Columns.Removed) > 0 ||
		len(diff.Columns.TypesChanged) > 0 {
		kind = kind.Merge(MajorUpdate)
	} else if len(diff.Columns.Added) > 0 ||
		len(diff.Columns.DescriptionsChanged) > 0 {
		kind = kind.Merge(MinorUpdate)
	}
	return kind, diff
}

// diffColumns matches the old and new column descriptors by name and
// collects the added, removed, retyped, and redescribed column names
// in sorted order.
func diffColumns(old, updated []model.Column) ColumnChanges {
	oldByName := make(map[string]model.Column, len(old))
	for _, c := range old {
		oldByName[c.Name] = c
	}
	newByName := make(map[string]model.Column, len(updated))
	for _, c := range updated {
		newByName[c.Name] = c
	}

	var changes ColumnChanges
	for name := range newByName {
		if _, ok := oldByName[name]; !ok {
			changes.Added = append(changes.Added, name)
		}
	}
	for name, oc := range oldByName {
		nc, ok := newByName[name]
		if !ok {
			changes.Removed = append(changes.Removed, name)
			continue
		}
		if oc.Type != nc.Type {
			changes.TypesChanged = append(changes.TypesChanged, name)
		}
		if oc.Description != nc.Description {
			changes.DescriptionsChanged = append(
				changes.DescriptionsChanged, name,
			)
		}
	}
	sort.Strings(changes.Added)
	sort.Strings(changes.Removed)
	sort.Strings(changes.TypesChanged)
	sort.Strings(changes.DescriptionsChanged)
	return changes
}

// MetadataAttrs flattens the metadata attributes of the v version
// snapshot into a map keyed by the attribute names which the
// classifier understands.
func MetadataAttrs(v *model.ProductVersion) map[string]any {
	return map[string]any{
		"name":                    v.Name,
		"description":             v.Description,
		"domain":                  v.Domain,
		"status":                  v.Status,
		"email":                   v.Email,
		"retention_period":        v.RetentionPeriod,
		"dpia_required":           v.DPIARequired,
		"owner":                   v.Owner,
		"owner_display_name":      v.OwnerDisplayName,
		"maintainer":              v.Maintainer,
		"maintainer_display_name": v.MaintainerDisplayName,
		"tags":                    v.Tags,
	}
}
