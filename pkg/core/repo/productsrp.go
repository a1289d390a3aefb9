// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/dataproducts/registry/pkg/core/model"
	"github.com/google/uuid"
)

// ProductsConnQueryer interface lists all operations which may be
// executed in a Products repository having an open connection with
// auto-committed transactions.
// Those operations which must be executed in a connection (and may not
// be executed in an ongoing transaction which may keep running other
// statements after this one) must be listed here, while other
// operations which do not strictly require an open connection (and may
// use an open transaction too) must be defined in the embedded
// ProductsQueryer interface. This design allows a unified
// implementation, while forcing developers to think about the
// consequences of having one or multiple transactions.
type ProductsConnQueryer interface {
	ProductsQueryer
}

// ProductsTxQueryer interface lists all operations which may be
// executed in a Products repository having an ongoing transaction.
// The registry runs every API call inside one transaction, so the
// common ProductsQueryer operations are all that is needed here; the
// embedding keeps the distinction explicit nevertheless.
type ProductsTxQueryer interface {
	ProductsQueryer
}

// ProductsQueryer interface lists the metadata store operations which
// may be executed having either a connection or transaction at hand.
// All operations preserve these invariants: every product points at
// exactly one of its own versions, the (name, version) pair is
// globally unique across versions, schema names are unique within one
// version, and a committed version (with its schemas) never mutates.
type ProductsQueryer interface {
	// CreateProduct persists the initial unsaved version snapshot,
	// creates the Product row pointing at it as the head, and returns
	// the persisted version with assigned identifiers. It fails with
	// a conflict error if a product with the same name exists.
	CreateProduct(ctx context.Context, initial *model.ProductVersion) (*model.ProductVersion, error)

	// AdvanceHead persists the next unsaved version snapshot as a
	// sibling version of the name product and re-points the product
	// head to reference it. Both writes belong to the ambient
	// transaction; a concurrent advance producing the same
	// (name, version) pair aborts with a conflict error.
	AdvanceHead(ctx context.Context, name string, next *model.ProductVersion) (*model.ProductVersion, error)

	// FetchByNameAndVersion loads one exact version snapshot with its
	// schemas, failing with a not found error if it does not exist.
	FetchByNameAndVersion(ctx context.Context, name string, version model.Version) (*model.ProductVersion, error)

	// FetchLatest loads the version snapshot which is currently
	// pointed to by the head of the name product, failing with a not
	// found error for an unknown product.
	FetchLatest(ctx context.Context, name string) (*model.ProductVersion, error)

	// ListLatest loads the head version snapshot of every product,
	// ordered by product name.
	ListLatest(ctx context.Context) ([]*model.ProductVersion, error)

	// CreateSchema persists one table schema bound to the versionID
	// version, returning it with an assigned identifier. It fails
	// with a conflict error on a duplicate (version, name) pair.
	CreateSchema(ctx context.Context, versionID uuid.UUID, schema *model.Schema) (*model.Schema, error)

	// FetchSchema loads the tableName table schema belonging to the
	// current version of the productName product, failing with a not
	// found error if the product or the table is absent.
	FetchSchema(ctx context.Context, productName, tableName string) (*model.Schema, error)
}

// Products interface represents the metadata store repository for the
// data products, their version snapshots, and table schemas.
// A repository interface should provide two methods of Conn and Tx in
// order to encourage developer to explicitly decide that a connection
// or a transaction is required for execution of a SQL statement. Each
// of those two methods will take a Conn/Tx interface which was
// provided by the repository implementation (from the adapter layer)
// beforehand. Implementation of these Conn()/Tx() methods may safely
// unwrap these interfaces and access the underlying structs if
// needed, hence, the unwrapping is performed just once.
type Products interface {
	// Conn takes a Conn interface instance, unwraps it as required,
	// and returns a ProductsConnQueryer interface which (with access
	// to the implementation-dependent connection object) can run the
	// permitted metadata store operations.
	Conn(Conn) ProductsConnQueryer

	// Tx takes a Tx interface instance, unwraps it as required, and
	// returns a ProductsTxQueryer interface which (with access to the
	// implementation-dependent transaction object) can run the
	// permitted metadata store operations.
	Tx(Tx) ProductsTxQueryer
}
