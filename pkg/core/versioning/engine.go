// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package versioning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dataproducts/registry/pkg/core/cerr"
	"github.com/dataproducts/registry/pkg/core/log"
	"github.com/dataproducts/registry/pkg/core/model"
)

// MetadataPatch is a partial mapping from metadata attribute names to
// their proposed new values. Attribute names follow the keys which
// are produced by the MetadataAttrs function and values carry the
// corresponding model types (string, model.Status, int, bool,
// *string, or model.Tags).
type MetadataPatch map[string]any

// SchemaPatch is a partial update of one table schema. A nil field
// leaves the corresponding attribute of the current schema unchanged.
type SchemaPatch struct {
	TableDescription *string
	Columns          []model.Column
}

// Engine applies proposed updates to the loaded current version of a
// data product, producing new unsaved version snapshots. The returned
// snapshots carry every untouched schema forward as an independent
// copy, so each version is self-contained and a consumer fetching the
// product at any point sees exactly the schemas which were in force.
// Persisting a produced snapshot and re-pointing the product head is
// the responsibility of the caller and its metadata store.
type Engine struct {
	current *model.ProductVersion
}

// NewEngine instantiates a versioning engine over the cur current
// version. The current version must have been committed beforehand,
// that is, it must carry a version number; otherwise there is no
// baseline to derive the next version number from.
func NewEngine(cur *model.ProductVersion) (*Engine, error) {
	if cur == nil || cur.Version.IsZero() {
		return nil, cerr.InvalidUpdate(
			"current metadata must have a version set",
		)
	}
	return &Engine{current: cur}, nil
}

// RemoveSchemas produces a new version snapshot which no longer
// contains the named table schemas. Removing a table breaks consumers
// unconditionally, hence, the major version is incremented and every
// remaining schema is copied forward with the metadata attributes
// inherited unchanged. If any name does not belong to a schema of the
// current version, the whole operation fails without side effects.
// An empty set of names is a no-op returning the current version.
func (e *Engine) RemoveSchemas(
	ctx context.Context, names ...string,
) (*model.ProductVersion, error) {
	if len(names) == 0 {
		return e.current, nil
	}
	removeSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		removeSet[n] = struct{}{}
	}
	var unknown []string
	for n := range removeSet {
		if e.current.Schema(n) == nil {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, cerr.InvalidUpdate(fmt.Sprintf(
			"invalid schemas found in schema list: %v", unknown,
		))
	}
	log.Info(
		ctx, "removing schemas",
		slog.String("product", e.current.Name),
		slog.Any("schemas", names),
	)
	next := e.current.Next(e.current.Version.IncrementMajor())
	for _, s := range e.current.Schemas {
		if _, gone := removeSet[s.Name]; !gone {
			next.Schemas = append(next.Schemas, s.Copy())
		}
	}
	return next, nil
}

// UpdateMetadata classifies the patch against the current metadata
// attributes and produces the resulting version snapshot. A patch
// touching an attribute outside of the updatable set fails, an
// effectively empty patch returns the current version unchanged (so
// no new row is written), and any acceptable difference increments
// the minor version with the new values applied and all schemas
// copied forward. Metadata updates never bump the major version.
func (e *Engine) UpdateMetadata(
	ctx context.Context, patch MetadataPatch,
) (*model.ProductVersion, error) {
	kind, diff := ClassifyMetadata(MetadataAttrs(e.current), patch)
	switch kind {
	case NotAllowed:
		return nil, cerr.InvalidUpdate(fmt.Sprintf(
			"non-updatable metadata fields changed: %v",
			diff.Forbidden,
		))
	case Unchanged:
		log.Info(
			ctx, "nothing changed in metadata update",
			slog.String("product", e.current.Name),
		)
		return e.current, nil
	}
	log.Info(
		ctx, "metadata update",
		slog.String("product", e.current.Name),
		slog.String("kind", kind.String()),
		slog.Any("changed", diff.Changed),
	)
	next := e.current.Next(e.current.Version.IncrementMinor())
	applyMetadata(next, patch)
	for _, s := range e.current.Schemas {
		next.Schemas = append(next.Schemas, s.Copy())
	}
	return next, nil
}

// UpdateSchema rebuilds the tableName table schema with the patched
// attributes, classifies it against the current one, and produces the
// resulting version snapshot. The target table must exist in the
// current version. An unchanged schema returns the current version as
// is; a minor difference increments the minor version and a major one
// increments the major version. In both cases the target schema is
// replaced by its patched copy while all other schemas are copied
// forward verbatim.
func (e *Engine) UpdateSchema(
	ctx context.Context, tableName string, patch SchemaPatch,
) (*model.ProductVersion, error) {
	target := e.current.Schema(tableName)
	if target == nil {
		return nil, cerr.NotFound(fmt.Errorf(
			"data product version %s has no table %q",
			e.current.ExternalID(), tableName,
		))
	}
	updated := target.Copy()
	if patch.TableDescription != nil {
		updated.TableDescription = *patch.TableDescription
	}
	if patch.Columns != nil {
		updated.Columns = make([]model.Column, len(patch.Columns))
		copy(updated.Columns, patch.Columns)
	}

	kind, diff := ClassifySchema(target, updated)
	if kind == Unchanged {
		log.Info(
			ctx, "schema is unchanged, not increasing version",
			slog.String("product", e.current.Name),
			slog.String("table", tableName),
		)
		return e.current, nil
	}
	log.Info(
		ctx, "schema update",
		slog.String("product", e.current.Name),
		slog.String("table", tableName),
		slog.String("kind", kind.String()),
		slog.Any("changed_fields", diff.NonColumnFields),
		slog.Any("added_columns", diff.Columns.Added),
		slog.Any("removed_columns", diff.Columns.Removed),
		slog.Any("types_changed", diff.Columns.TypesChanged),
	)

	nextVersion := e.current.Version.IncrementMinor()
	if kind == MajorUpdate {
		nextVersion = e.current.Version.IncrementMajor()
	}
	next := e.current.Next(nextVersion)
	for _, s := range e.current.Schemas {
		if s.Name == tableName {
			next.Schemas = append(next.Schemas, updated)
		} else {
			next.Schemas = append(next.Schemas, s.Copy())
		}
	}
	return next, nil
}

// applyMetadata overwrites the metadata attributes of v with the
// values carried by the patch. The patch has been classified already,
// hence, every changed key names an updatable attribute with a value
// of its model type; other keys (such as an unchanged name) are
// skipped.
func applyMetadata(v *model.ProductVersion, patch MetadataPatch) {
	for key, value := range patch {
		switch key {
		case "description":
			v.Description = value.(string)
		case "email":
			v.Email = value.(string)
		case "owner":
			v.Owner = value.(string)
		case "owner_display_name":
			v.OwnerDisplayName = value.(string)
		case "domain":
			v.Domain = value.(string)
		case "status":
			v.Status = value.(model.Status)
		case "dpia_required":
			v.DPIARequired = value.(bool)
		case "retention_period":
			v.RetentionPeriod = value.(int)
		case "maintainer":
			v.Maintainer = value.(*string)
		case "maintainer_display_name":
			v.MaintainerDisplayName = value.(*string)
		case "tags":
			v.Tags = value.(model.Tags).Copy()
		}
	}
}
