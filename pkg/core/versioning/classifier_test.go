// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package versioning_test

import (
	"testing"

	"github.com/dataproducts/registry/pkg/core/model"
	"github.com/dataproducts/registry/pkg/core/versioning"
	"github.com/stretchr/testify/assert"
)

func strAddr(s string) *string {
	return &s
}

func currentAttrs() map[string]any {
	return map[string]any{
		"name":                    "abc",
		"description":             "desc",
		"domain":                  "test",
		"status":                  model.StatusDraft,
		"email":                   "a@b.c",
		"retention_period":        3000,
		"dpia_required":           false,
		"owner":                   "a@b.c",
		"owner_display_name":      "A B",
		"maintainer":              (*string)(nil),
		"maintainer_display_name": (*string)(nil),
		"tags":                    model.Tags{"env": "dev"},
	}
}

func TestClassifyMetadataUnchanged(t *testing.T) {
	kind, diff := versioning.ClassifyMetadata(
		currentAttrs(), currentAttrs(),
	)
	assert.Equal(t, versioning.Unchanged, kind)
	assert.Empty(t, diff.Changed)
	assert.Empty(t, diff.Forbidden)
}

func TestClassifyMetadataMinor(t *testing.T) {
	proposed := currentAttrs()
	proposed["domain"] = "test2"
	proposed["maintainer"] = strAddr("m@b.c")
	kind, diff := versioning.ClassifyMetadata(currentAttrs(), proposed)
	assert.Equal(t, versioning.MinorUpdate, kind)
	assert.Equal(t, []string{"domain", "maintainer"}, diff.Changed)
	assert.Empty(t, diff.Forbidden)
}

func TestClassifyMetadataTags(t *testing.T) {
	proposed := currentAttrs()
	proposed["tags"] = model.Tags{"env": "dev"}
	kind, _ := versioning.ClassifyMetadata(currentAttrs(), proposed)
	assert.Equal(t, versioning.Unchanged, kind,
		"an equal tags mapping is not a change")

	proposed["tags"] = model.Tags{"env": "prod"}
	kind, diff := versioning.ClassifyMetadata(currentAttrs(), proposed)
	assert.Equal(t, versioning.MinorUpdate, kind)
	assert.Equal(t, []string{"tags"}, diff.Changed)
}

func TestClassifyMetadataForbidden(t *testing.T) {
	proposed := currentAttrs()
	proposed["name"] = "new_name"
	proposed["domain"] = "test2"
	kind, diff := versioning.ClassifyMetadata(currentAttrs(), proposed)
	assert.Equal(t, versioning.NotAllowed, kind)
	assert.Equal(t, []string{"domain", "name"}, diff.Changed)
	assert.Equal(t, []string{"name"}, diff.Forbidden)
}

func TestClassifyMetadataIgnoresKeys(t *testing.T) {
	proposed := currentAttrs()
	proposed["id"] = "whatever"
	proposed["version"] = "v9.9"
	kind, diff := versioning.ClassifyMetadata(currentAttrs(), proposed)
	assert.Equal(t, versioning.Unchanged, kind)
	assert.Empty(t, diff.Changed)
}

func baseSchema() *model.Schema {
	return &model.Schema{
		Name:             "statement",
		TableDescription: "desc",
		Columns: []model.Column{
			{Name: "id", Type: "bigint", Description: ""},
			{Name: "name", Type: "string", Description: "abc"},
		},
	}
}

func TestClassifySchema(t *testing.T) {
	for _, tc := range []struct {
		name     string
		mutate   func(s *model.Schema)
		expected versioning.UpdateType
	}{
		{
			name:     "identical",
			mutate:   func(s *model.Schema) {},
			expected: versioning.Unchanged,
		},
		{
			name: "added column",
			mutate: func(s *model.Schema) {
				s.Columns = append(s.Columns, model.Column{
					Name: "extra", Type: "string",
				})
			},
			expected: versioning.MinorUpdate,
		},
		{
			name: "removed column",
			mutate: func(s *model.Schema) {
				s.Columns = s.Columns[:1]
			},
			expected: versioning.MajorUpdate,
		},
		{
			name: "type change",
			mutate: func(s *model.Schema) {
				s.Columns[0].Type = "string"
			},
			expected: versioning.MajorUpdate,
		},
		{
			name: "column description change",
			mutate: func(s *model.Schema) {
				s.Columns[1].Description = "xyz"
			},
			expected: versioning.MinorUpdate,
		},
		{
			name: "table description change",
			mutate: func(s *model.Schema) {
				s.TableDescription = "new description"
			},
			expected: versioning.MinorUpdate,
		},
		{
			name: "major column signal wins over minor signals",
			mutate: func(s *model.Schema) {
				s.TableDescription = "new description"
				s.Columns = []model.Column{s.Columns[0]}
			},
			expected: versioning.MajorUpdate,
		},
		{
			name: "added and removed columns combine to major",
			mutate: func(s *model.Schema) {
				s.Columns = []model.Column{
					s.Columns[0],
					{Name: "renamed", Type: "string"},
				}
			},
			expected: versioning.MajorUpdate,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			updated := baseSchema()
			tc.mutate(updated)
			kind, _ := versioning.ClassifySchema(
				baseSchema(), updated,
			)
			assert.Equal(t, tc.expected, kind)
		})
	}
}

func TestClassifySchemaDiffDetails(t *testing.T) {
	updated := baseSchema()
	updated.Columns = []model.Column{
		{Name: "id", Type: "string", Description: "pk"},
		{Name: "extra", Type: "boolean"},
	}
	kind, diff := versioning.ClassifySchema(baseSchema(), updated)
	assert.Equal(t, versioning.MajorUpdate, kind)
	assert.Equal(t, []string{"extra"}, diff.Columns.Added)
	assert.Equal(t, []string{"name"}, diff.Columns.Removed)
	assert.Equal(t, []string{"id"}, diff.Columns.TypesChanged)
	assert.Equal(t, []string{"id"}, diff.Columns.DescriptionsChanged)
}

func TestUpdateTypeMerge(t *testing.T) {
	assert.Equal(
		t, versioning.MajorUpdate,
		versioning.MinorUpdate.Merge(versioning.MajorUpdate),
	)
	assert.Equal(
		t, versioning.NotAllowed,
		versioning.NotAllowed.Merge(versioning.Unchanged),
	)
	assert.Equal(
		t, versioning.MinorUpdate,
		versioning.MinorUpdate.Merge(versioning.Unchanged),
	)
}
