// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package productuc contains the data products UseCase which supports
// the registry use cases: registering a data product with its initial
// version, discovering and fetching products, evolving their metadata
// and table schemas through the semantic versioning engine, and
// removing tables from the next major version.
//
// Every use case acquires one database connection and runs all of its
// reads and writes in a single transaction, so a failed update leaves
// no partial state behind and the head pointer of a product can only
// ever reference a version which was produced by the same transaction.
package productuc

import (
	"context"
	"time"

	"github.com/dataproducts/registry/pkg/core/model"
	"github.com/dataproducts/registry/pkg/core/repo"
	"github.com/dataproducts/registry/pkg/core/versioning"
)

// initialVersion is the version number assigned to the first snapshot
// of every registered data product.
var initialVersion = model.Version{Major: 1, Minor: 0}

// UseCase represents the data products use case. It holds a database
// connection pool, the products repository instance (to be guided
// with the DB pool), and a clock for stamping operational attributes.
type UseCase struct {
	pool       repo.Pool
	productsrp repo.Products

	now func() time.Time
}

// New instantiates a data products use case.
// Required parameters are passed individually, so caller has to
// provision them and whenever they change, caller will notice and fix
// them due to a compilation error.
// Optional parameters are passed as a series of functional options
// in order to facilitate their validation and flexibility.
func New(p repo.Pool, r repo.Products, opts ...Option) (*UseCase, error) {
	uc := &UseCase{pool: p, productsrp: r}
	for _, opt := range opts {
		if err := opt(uc); err != nil {
			return nil, err
		}
	}
	if uc.now == nil {
		uc.now = func() time.Time { return time.Now().UTC() }
	}
	return uc, nil
}

// Create use case registers a new data product. The given metadata
// seeds an initial version snapshot at v1.0 with no schemas and a
// stamped creation date; the product row is created pointing at it as
// the head. A duplicate product name yields a conflict error.
func (uc *UseCase) Create(
	ctx context.Context, name string, md model.Metadata,
) (v *model.ProductVersion, err error) {
	now := uc.now()
	initial := &model.ProductVersion{
		Name:     name,
		Version:  initialVersion,
		Metadata: md,
		Operational: model.Operational{
			CreationDate: &now,
		},
	}
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.productsrp.Tx(tx)
			v, err = q.CreateProduct(ctx, initial)
			return err
		})
	})
	if err != nil {
		v = nil
	}
	return
}

// Get use case loads the version snapshot which the name product
// currently points at.
func (uc *UseCase) Get(
	ctx context.Context, name string,
) (v *model.ProductVersion, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.productsrp.Tx(tx)
			v, err = q.FetchLatest(ctx, name)
			return err
		})
	})
	if err != nil {
		v = nil
	}
	return
}

// List use case loads the head version snapshot of every registered
// product, ordered by product name.
func (uc *UseCase) List(
	ctx context.Context,
) (vs []*model.ProductVersion, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.productsrp.Tx(tx)
			vs, err = q.ListLatest(ctx)
			return err
		})
	})
	if err != nil {
		vs = nil
	}
	return
}

// UpdateMetadata use case routes a partial metadata update through
// the versioning engine. An effectively empty difference returns the
// current head unchanged without writing a new row; an acceptable
// difference produces the next minor version and advances the head
// atomically. A patch touching a non-updatable field fails with a bad
// request error and a concurrent advance of the same product fails
// with a conflict error.
func (uc *UseCase) UpdateMetadata(
	ctx context.Context, name string, patch versioning.MetadataPatch,
) (v *model.ProductVersion, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.productsrp.Tx(tx)
			cur, err2 := q.FetchLatest(ctx, name)
			if err2 != nil {
				return err2
			}
			eng, err2 := versioning.NewEngine(cur)
			if err2 != nil {
				return err2
			}
			next, err2 := eng.UpdateMetadata(ctx, patch)
			if err2 != nil {
				return err2
			}
			if next == cur {
				v = cur
				return nil
			}
			uc.stampLastUpdated(next)
			v, err2 = q.AdvanceHead(ctx, name, next)
			return err2
		})
	})
	if err != nil {
		v = nil
	}
	return
}

// CreateSchema use case attaches a new table schema to the current
// version of the name product. The product version number is not
// affected; a duplicate table name within the current version fails
// with a conflict error.
func (uc *UseCase) CreateSchema(
	ctx context.Context, name string, schema *model.Schema,
) (s *model.Schema, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.productsrp.Tx(tx)
			cur, err2 := q.FetchLatest(ctx, name)
			if err2 != nil {
				return err2
			}
			s, err2 = q.CreateSchema(ctx, cur.ID, schema)
			return err2
		})
	})
	if err != nil {
		s = nil
	}
	return
}

// GetSchema use case loads the tableName table schema from the
// current version of the name product.
func (uc *UseCase) GetSchema(
	ctx context.Context, name, tableName string,
) (s *model.Schema, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.productsrp.Tx(tx)
			s, err = q.FetchSchema(ctx, name, tableName)
			return err
		})
	})
	if err != nil {
		s = nil
	}
	return
}

// UpdateSchema use case routes a partial schema update through the
// versioning engine. An unchanged schema returns the current head as
// is; a backward compatible change produces the next minor version
// and a breaking change the next major version, advancing the head
// atomically in both cases.
func (uc *UseCase) UpdateSchema(
	ctx context.Context,
	name, tableName string,
	patch versioning.SchemaPatch,
) (v *model.ProductVersion, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.productsrp.Tx(tx)
			cur, err2 := q.FetchLatest(ctx, name)
			if err2 != nil {
				return err2
			}
			eng, err2 := versioning.NewEngine(cur)
			if err2 != nil {
				return err2
			}
			next, err2 := eng.UpdateSchema(ctx, tableName, patch)
			if err2 != nil {
				return err2
			}
			if next == cur {
				v = cur
				return nil
			}
			uc.stampLastUpdated(next)
			v, err2 = q.AdvanceHead(ctx, name, next)
			return err2
		})
	})
	if err != nil {
		v = nil
	}
	return
}

// RemoveSchema use case drops the tableName table from the next major
// version of the name product, advancing the head atomically.
func (uc *UseCase) RemoveSchema(
	ctx context.Context, name, tableName string,
) (v *model.ProductVersion, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.productsrp.Tx(tx)
			cur, err2 := q.FetchLatest(ctx, name)
			if err2 != nil {
				return err2
			}
			eng, err2 := versioning.NewEngine(cur)
			if err2 != nil {
				return err2
			}
			next, err2 := eng.RemoveSchemas(ctx, tableName)
			if err2 != nil {
				return err2
			}
			if next == cur {
				v = cur
				return nil
			}
			uc.stampLastUpdated(next)
			v, err2 = q.AdvanceHead(ctx, name, next)
			return err2
		})
	})
	if err != nil {
		v = nil
	}
	return
}

func (uc *UseCase) stampLastUpdated(v *model.ProductVersion) {
	now := uc.now()
	v.LastUpdated = &now
}
