// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package productsrp is the adapter for the data products metadata
// store. It exposes the productsrp.Repo type in order to allow use
// cases to persist products, their immutable version snapshots, and
// table schemas under the registry uniqueness invariants.
package productsrp

import (
	"context"

	"github.com/dataproducts/registry/pkg/adapter/db/postgres"
	"github.com/dataproducts/registry/pkg/core/model"
	"github.com/dataproducts/registry/pkg/core/repo"
	"github.com/google/uuid"
)

// Repo represents the data products repository instance.
type Repo struct {
}

// New instantiates a products Repo struct. Although this New does not
// perform complex operations, and users may use &productsrp.Repo{}
// directly too, but this method improves the code readability as
// productsrp.New() making the package to look alike a data type.
func New() *Repo {
	return &Repo{}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn takes a Conn interface instance, unwraps it as required,
// and returns a ProductsConnQueryer interface which (with access to
// the implementation-dependent connection object) can run different
// permitted operations on the metadata store.
// The connQueryer itself is not mentioned as the return value since
// it is not exported. Otherwise, the general rule is to take
// interfaces as arguments and return exported structs.
func (products *Repo) Conn(c repo.Conn) repo.ProductsConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) CreateProduct(ctx context.Context, initial *model.ProductVersion) (*model.ProductVersion, error) {
	return CreateProduct(ctx, cq.Conn, initial)
}

func (cq connQueryer) AdvanceHead(ctx context.Context, name string, next *model.ProductVersion) (*model.ProductVersion, error) {
	return AdvanceHead(ctx, cq.Conn, name, next)
}

func (cq connQueryer) FetchByNameAndVersion(ctx context.Context, name string, version model.Version) (*model.ProductVersion, error) {
	return FetchByNameAndVersion(ctx, cq.Conn, name, version)
}

func (cq connQueryer) FetchLatest(ctx context.Context, name string) (*model.ProductVersion, error) {
	return FetchLatest(ctx, cq.Conn, name)
}

func (cq connQueryer) ListLatest(ctx context.Context) ([]*model.ProductVersion, error) {
	return ListLatest(ctx, cq.Conn)
}

func (cq connQueryer) CreateSchema(ctx context.Context, versionID uuid.UUID, schema *model.Schema) (*model.Schema, error) {
	return CreateSchema(ctx, cq.Conn, versionID, schema)
}

func (cq connQueryer) FetchSchema(ctx context.Context, productName, tableName string) (*model.Schema, error) {
	return FetchSchema(ctx, cq.Conn, productName, tableName)
}

type txQueryer struct {
	*postgres.Tx
}

// Tx takes a Tx interface instance, unwraps it as required,
// and returns a ProductsTxQueryer interface which (with access to the
// implementation-dependent transaction object) can run different
// permitted operations on the metadata store.
// The txQueryer itself is not mentioned as the return value since
// it is not exported. Otherwise, the general rule is to take
// interfaces as arguments and return exported structs.
func (products *Repo) Tx(tx repo.Tx) repo.ProductsTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

func (tq txQueryer) CreateProduct(ctx context.Context, initial *model.ProductVersion) (*model.ProductVersion, error) {
	return CreateProduct(ctx, tq.Tx, initial)
}

func (tq txQueryer) AdvanceHead(ctx context.Context, name string, next *model.ProductVersion) (*model.ProductVersion, error) {
	return AdvanceHead(ctx, tq.Tx, name, next)
}

func (tq txQueryer) FetchByNameAndVersion(ctx context.Context, name string, version model.Version) (*model.ProductVersion, error) {
	return FetchByNameAndVersion(ctx, tq.Tx, name, version)
}

func (tq txQueryer) FetchLatest(ctx context.Context, name string) (*model.ProductVersion, error) {
	return FetchLatest(ctx, tq.Tx, name)
}

func (tq txQueryer) ListLatest(ctx context.Context) ([]*model.ProductVersion, error) {
	return ListLatest(ctx, tq.Tx)
}

func (tq txQueryer) CreateSchema(ctx context.Context, versionID uuid.UUID, schema *model.Schema) (*model.Schema, error) {
	return CreateSchema(ctx, tq.Tx, versionID, schema)
}

func (tq txQueryer) FetchSchema(ctx context.Context, productName, tableName string) (*model.Schema, error) {
	return FetchSchema(ctx, tq.Tx, productName, tableName)
}
