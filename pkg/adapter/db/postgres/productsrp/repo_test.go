// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package productsrp_test

import (
	"context"
	"testing"
	"time"

	"github.com/bitcomplete/sqltestutil"
	"github.com/dataproducts/registry/internal/test/dbcontainer"
	"github.com/dataproducts/registry/pkg/adapter/db/postgres"
	"github.com/dataproducts/registry/pkg/adapter/db/postgres/dbinit"
	"github.com/dataproducts/registry/pkg/adapter/db/postgres/productsrp"
	"github.com/dataproducts/registry/pkg/core/cerr"
	"github.com/dataproducts/registry/pkg/core/model"
	"github.com/dataproducts/registry/pkg/core/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type IntegrationReposTestSuite struct {
	suite.Suite

	Ctx  context.Context
	Pg   *sqltestutil.PostgresContainer
	Pool *postgres.Pool
	Repo *productsrp.Repo
}

func TestIntegrationReposTestSuite(t *testing.T) {
	ctx := context.Background()
	pg, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return // errors are already logged
	}
	suite.Run(t, &IntegrationReposTestSuite{
		Ctx:  ctx,
		Pg:   pg,
		Pool: pool,
		Repo: productsrp.New(),
	})
}

func (irts *IntegrationReposTestSuite) SetupSuite() {
	err := irts.Pool.Conn(
		irts.Ctx, func(ctx context.Context, c repo.Conn) error {
			return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
				return dbinit.New(tx).InitProdSchema(ctx)
			})
		},
	)
	irts.Require().NoError(err, "failed to create registry tables")
}

// inTx runs the f handler in one transaction of a fresh connection.
func (irts *IntegrationReposTestSuite) inTx(
	f func(ctx context.Context, q repo.ProductsTxQueryer) error,
) error {
	return irts.Pool.Conn(
		irts.Ctx, func(ctx context.Context, c repo.Conn) error {
			return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
				return f(ctx, irts.Repo.Tx(tx))
			})
		},
	)
}

func initialVersion(name string) *model.ProductVersion {
	return &model.ProductVersion{
		Name:    name,
		Version: model.Version{Major: 1, Minor: 0},
		Metadata: model.Metadata{
			Description:      "desc",
			Domain:           "HMPPS",
			Status:           model.StatusDraft,
			Email:            "team@example.org",
			RetentionPeriod:  3000,
			Owner:            "team@example.org",
			OwnerDisplayName: "Team",
			Tags:             model.Tags{"env": "test"},
		},
		Schemas: []*model.Schema{
			{
				Name:             "statement",
				TableDescription: "desc",
				Columns: []model.Column{
					{Name: "id", Type: "bigint", Description: ""},
				},
			},
		},
	}
}

func (irts *IntegrationReposTestSuite) TestCreateAndFetch() {
	var created *model.ProductVersion
	err := irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		var err error
		created, err = q.CreateProduct(ctx, initialVersion("prod_a"))
		return err
	})
	irts.Require().NoError(err)
	irts.NotEqual(uuid.Nil, created.ID)
	irts.Require().Len(created.Schemas, 1)
	irts.NotEqual(uuid.Nil, created.Schemas[0].ID)

	var fetched *model.ProductVersion
	err = irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		var err error
		fetched, err = q.FetchLatest(ctx, "prod_a")
		return err
	})
	irts.Require().NoError(err)
	irts.Equal(created.ID, fetched.ID)
	irts.Equal("prod_a", fetched.Name)
	irts.Equal("v1.0", fetched.Version.String())
	irts.Equal(model.Tags{"env": "test"}, fetched.Tags)
	irts.Equal([]string{"statement"}, fetched.SchemaNames())
}

func (irts *IntegrationReposTestSuite) TestDuplicateProduct() {
	err := irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		_, err := q.CreateProduct(ctx, initialVersion("prod_dup"))
		return err
	})
	irts.Require().NoError(err)

	err = irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		_, err := q.CreateProduct(ctx, initialVersion("prod_dup"))
		return err
	})
	var ce *cerr.Error
	irts.Require().ErrorAs(err, &ce)
	irts.Equal(409, ce.HTTPStatusCode)
}

func (irts *IntegrationReposTestSuite) TestAdvanceHead() {
	err := irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		_, err := q.CreateProduct(ctx, initialVersion("prod_adv"))
		return err
	})
	irts.Require().NoError(err)

	var advanced *model.ProductVersion
	err = irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		cur, err := q.FetchLatest(ctx, "prod_adv")
		if err != nil {
			return err
		}
		next := cur.Next(cur.Version.IncrementMinor())
		for _, s := range cur.Schemas {
			next.Schemas = append(next.Schemas, s.Copy())
		}
		next.Description = "updated"
		advanced, err = q.AdvanceHead(ctx, "prod_adv", next)
		return err
	})
	irts.Require().NoError(err)
	irts.Equal("v1.1", advanced.Version.String())
	irts.NotEqual(uuid.Nil, advanced.ID)

	var head *model.ProductVersion
	err = irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		var err error
		head, err = q.FetchLatest(ctx, "prod_adv")
		return err
	})
	irts.Require().NoError(err)
	irts.Equal(advanced.ID, head.ID, "the head points at the new version")
	irts.Equal("updated", head.Description)

	// the prior version stays addressable with its own schemas
	var prior *model.ProductVersion
	err = irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		var err error
		prior, err = q.FetchByNameAndVersion(
			ctx, "prod_adv", model.Version{Major: 1, Minor: 0},
		)
		return err
	})
	irts.Require().NoError(err)
	irts.Equal("desc", prior.Description)
	irts.Equal([]string{"statement"}, prior.SchemaNames())
	irts.NotEqual(
		prior.Schemas[0].ID, head.Schemas[0].ID,
		"schemas are copied, not shared, across versions",
	)
}

func (irts *IntegrationReposTestSuite) TestAdvanceHeadConflict() {
	err := irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		_, err := q.CreateProduct(ctx, initialVersion("prod_conflict"))
		return err
	})
	irts.Require().NoError(err)

	advance := func() error {
		return irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
			cur, err := q.FetchLatest(ctx, "prod_conflict")
			if err != nil {
				return err
			}
			next := cur.Next(cur.Version.IncrementMinor())
			next.Description = "race"
			_, err = q.AdvanceHead(ctx, "prod_conflict", next)
			return err
		})
	}
	irts.Require().NoError(advance())

	// repeating the same advance targets the same (name, version)
	// pair and must observe the uniqueness constraint
	err = irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		cur, err := q.FetchByNameAndVersion(
			ctx, "prod_conflict", model.Version{Major: 1, Minor: 0},
		)
		if err != nil {
			return err
		}
		next := cur.Next(cur.Version.IncrementMinor())
		_, err = q.AdvanceHead(ctx, "prod_conflict", next)
		return err
	})
	var ce *cerr.Error
	irts.Require().ErrorAs(err, &ce)
	irts.Equal(409, ce.HTTPStatusCode)
}

func (irts *IntegrationReposTestSuite) TestSchemas() {
	err := irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		_, err := q.CreateProduct(ctx, initialVersion("prod_schemas"))
		return err
	})
	irts.Require().NoError(err)

	err = irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		cur, err := q.FetchLatest(ctx, "prod_schemas")
		if err != nil {
			return err
		}
		_, err = q.CreateSchema(ctx, cur.ID, &model.Schema{
			Name: "report",
			Columns: []model.Column{
				{Name: "id", Type: "bigint", Description: ""},
			},
		})
		return err
	})
	irts.Require().NoError(err)

	var s *model.Schema
	err = irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		var err error
		s, err = q.FetchSchema(ctx, "prod_schemas", "report")
		return err
	})
	irts.Require().NoError(err)
	irts.Equal("report", s.Name)
	irts.Len(s.Columns, 1)

	// a duplicate (version, name) pair is a conflict
	err = irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		cur, err := q.FetchLatest(ctx, "prod_schemas")
		if err != nil {
			return err
		}
		_, err = q.CreateSchema(ctx, cur.ID, &model.Schema{
			Name: "report",
		})
		return err
	})
	var ce *cerr.Error
	irts.Require().ErrorAs(err, &ce)
	irts.Equal(409, ce.HTTPStatusCode)

	err = irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		_, err := q.FetchSchema(ctx, "prod_schemas", "missing")
		return err
	})
	irts.Require().ErrorAs(err, &ce)
	irts.Equal(404, ce.HTTPStatusCode)
}

func (irts *IntegrationReposTestSuite) TestListLatest() {
	for _, name := range []string{"prod_list_b", "prod_list_a"} {
		err := irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
			_, err := q.CreateProduct(ctx, initialVersion(name))
			return err
		})
		irts.Require().NoError(err)
	}

	var vs []*model.ProductVersion
	err := irts.inTx(func(ctx context.Context, q repo.ProductsTxQueryer) error {
		var err error
		vs, err = q.ListLatest(ctx)
		return err
	})
	irts.Require().NoError(err)
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, v.Name)
	}
	irts.IsIncreasing(names, "heads are ordered by product name")
	irts.Contains(names, "prod_list_a")
	irts.Contains(names, "prod_list_b")
}
