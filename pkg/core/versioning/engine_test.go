// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package versioning_test

import (
	"context"
	"testing"

	"github.com/dataproducts/registry/pkg/core/cerr"
	"github.com/dataproducts/registry/pkg/core/model"
	"github.com/dataproducts/registry/pkg/core/versioning"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite

	Ctx     context.Context
	Current *model.ProductVersion
	Engine  *versioning.Engine
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, &EngineTestSuite{Ctx: context.Background()})
}

func (ets *EngineTestSuite) SetupTest() {
	ets.Current = &model.ProductVersion{
		ID:      uuid.New(),
		Name:    "abc",
		Version: model.Version{Major: 1, Minor: 0},
		Metadata: model.Metadata{
			Description: "desc",
			Domain:      "test",
			Status:      model.StatusDraft,
			Tags:        model.Tags{},
		},
		Schemas: []*model.Schema{
			{
				ID:   uuid.New(),
				Name: "table1",
				Columns: []model.Column{
					{Name: "foo", Type: "string", Description: "abc"},
				},
			},
			{
				ID:   uuid.New(),
				Name: "table2",
				Columns: []model.Column{
					{Name: "bar", Type: "int", Description: ""},
				},
			},
		},
	}
	eng, err := versioning.NewEngine(ets.Current)
	ets.Require().NoError(err)
	ets.Engine = eng
}

func (ets *EngineTestSuite) TestRemoveSchemas() {
	result, err := ets.Engine.RemoveSchemas(ets.Ctx, "table1")
	ets.Require().NoError(err)
	ets.Equal(uuid.Nil, result.ID)
	ets.Equal("v2.0", result.Version.String())
	ets.Equal("abc", result.Name)
	ets.Equal([]string{"table2"}, result.SchemaNames())
	for _, s := range result.Schemas {
		ets.Equal(uuid.Nil, s.ID)
	}
	// the current version stays untouched
	ets.Equal(
		[]string{"table1", "table2"}, ets.Current.SchemaNames(),
	)
}

func (ets *EngineTestSuite) TestRemoveUnknownSchema() {
	result, err := ets.Engine.RemoveSchemas(ets.Ctx, "table3")
	ets.Nil(result)
	var iue *cerr.InvalidUpdateError
	ets.Require().ErrorAs(err, &iue)
}

func (ets *EngineTestSuite) TestRemoveNoSchemas() {
	result, err := ets.Engine.RemoveSchemas(ets.Ctx)
	ets.Require().NoError(err)
	ets.Same(ets.Current, result)
}

func (ets *EngineTestSuite) TestMinorMetadataUpdate() {
	result, err := ets.Engine.UpdateMetadata(
		ets.Ctx, versioning.MetadataPatch{"domain": "test2"},
	)
	ets.Require().NoError(err)
	ets.NotSame(ets.Current, result)
	ets.Equal("v1.1", result.Version.String())
	ets.Equal(uuid.Nil, result.ID)
	ets.Equal("abc", result.Name)
	ets.Equal("test2", result.Domain)
	ets.Equal([]string{"table1", "table2"}, result.SchemaNames())
	for _, s := range result.Schemas {
		ets.Equal(uuid.Nil, s.ID)
	}
	// the current version stays untouched
	ets.Equal("test", ets.Current.Domain)
}

func (ets *EngineTestSuite) TestNoopMetadataUpdate() {
	result, err := ets.Engine.UpdateMetadata(
		ets.Ctx, versioning.MetadataPatch{"domain": "test"},
	)
	ets.Require().NoError(err)
	ets.Same(ets.Current, result)
	ets.Equal("v1.0", result.Version.String())
}

func (ets *EngineTestSuite) TestMinorSchemaUpdate() {
	result, err := ets.Engine.UpdateSchema(
		ets.Ctx, "table1", versioning.SchemaPatch{
			TableDescription: strAddr("new description"),
		},
	)
	ets.Require().NoError(err)
	ets.Equal("v1.1", result.Version.String())
	descs := make([]string, 0, 2)
	for _, s := range result.Schemas {
		ets.Equal(uuid.Nil, s.ID)
		descs = append(descs, s.TableDescription)
	}
	ets.Equal([]string{"new description", ""}, descs)
}

func (ets *EngineTestSuite) TestMajorSchemaUpdate() {
	result, err := ets.Engine.UpdateSchema(
		ets.Ctx, "table1", versioning.SchemaPatch{
			Columns: []model.Column{
				{Name: "food", Type: "string", Description: "nom"},
			},
		},
	)
	ets.Require().NoError(err)
	ets.Equal("v2.0", result.Version.String())
	ets.Equal(
		[]model.Column{
			{Name: "food", Type: "string", Description: "nom"},
		},
		result.Schemas[0].Columns,
	)
	// table2 is carried forward verbatim with a fresh identity
	ets.Equal("table2", result.Schemas[1].Name)
	ets.Equal(uuid.Nil, result.Schemas[1].ID)
	ets.Equal(
		ets.Current.Schemas[1].Columns, result.Schemas[1].Columns,
	)
}

func (ets *EngineTestSuite) TestUnchangedSchemaUpdate() {
	result, err := ets.Engine.UpdateSchema(
		ets.Ctx, "table1", versioning.SchemaPatch{
			Columns: []model.Column{
				{Name: "foo", Type: "string", Description: "abc"},
			},
		},
	)
	ets.Require().NoError(err)
	ets.Same(ets.Current, result)
	ets.Equal("v1.0", result.Version.String())
}

func (ets *EngineTestSuite) TestUpdateMissingSchema() {
	result, err := ets.Engine.UpdateSchema(
		ets.Ctx, "table3", versioning.SchemaPatch{
			TableDescription: strAddr("x"),
		},
	)
	ets.Nil(result)
	var ce *cerr.Error
	ets.Require().ErrorAs(err, &ce)
	ets.Equal(404, ce.HTTPStatusCode)
}

func (ets *EngineTestSuite) TestCannotUpdateName() {
	result, err := ets.Engine.UpdateMetadata(
		ets.Ctx, versioning.MetadataPatch{"name": "new_name"},
	)
	ets.Nil(result)
	var iue *cerr.InvalidUpdateError
	ets.Require().ErrorAs(err, &iue)
}

func (ets *EngineTestSuite) TestCannotOperateWithoutAVersion() {
	// The versioning engine must operate on a product version that
	// has already been saved to the metadata store - otherwise it
	// won't have a version number already.
	_, err := versioning.NewEngine(&model.ProductVersion{
		Name: "new_product",
	})
	var iue *cerr.InvalidUpdateError
	ets.Require().ErrorAs(err, &iue)

	_, err = versioning.NewEngine(nil)
	ets.Require().Error(err)
}

func (ets *EngineTestSuite) TestSchemasAreCopiedNotShared() {
	result, err := ets.Engine.UpdateMetadata(
		ets.Ctx, versioning.MetadataPatch{"domain": "test2"},
	)
	ets.Require().NoError(err)
	result.Schemas[0].Columns[0].Type = "boolean"
	ets.Equal(
		"string", ets.Current.Schemas[0].Columns[0].Type,
		"mutating a copied schema must not affect the source version",
	)
}
