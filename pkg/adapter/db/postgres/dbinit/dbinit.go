// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package dbinit provides the Initializer type for creation of the
// registry database tables, having development or production suitable
// initial data.
//
// The package contains (and embeds) three .sql files. The schema.sql
// contains DDL statements for creating the products, versions, and
// schemas tables with their uniqueness constraints. The dev.sql and
// prod.sql files contain data insertion statements and may be
// executed after feeding the schema.sql file in order to insert
// initial sample data which are suitable for a development or
// production environment respectively.
package dbinit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/dataproducts/registry/pkg/core/repo"
)

// Initializer struct provides the database initialization logic.
// Each instance wraps and uses a single transaction of the target
// database, but the caller is responsible to commit that transaction
// in order to finalize the initialization results.
type Initializer struct {
	tx repo.Tx
}

// New creates a new Initializer instance, wrapping the given `tx`
// database transaction. The initializer expects the target database
// to exist and only tries to create the registry tables in it.
func New(tx repo.Tx) *Initializer {
	return &Initializer{
		tx: tx,
	}
}

// schemaDDLStatements embeds the schema.sql file contents which are
// supposed to create the products, versions, and schemas tables.
// No data rows are inserted by these statements.
//
//go:embed schema.sql
var schemaDDLStatements string

// devDataStatements embeds the dev.sql file contents which are
// supposed to fill the registry tables (which must be created
// previously) with the development suitable initial data.
//
//go:embed dev.sql
var devDataStatements string

// prodDataStatements embeds the prod.sql file contents which are
// supposed to fill the registry tables (which must be created
// previously) with the production suitable initial data.
//
//go:embed prod.sql
var prodDataStatements string

// InitDevSchema creates the registry tables and fills them with the
// development suitable initial data, including one example data
// product with a table schema.
func (init *Initializer) InitDevSchema(ctx context.Context) error {
	if _, err := init.tx.Exec(ctx, schemaDDLStatements); err != nil {
		return fmt.Errorf("creating registry tables: %w", err)
	}
	if _, err := init.tx.Exec(ctx, devDataStatements); err != nil {
		return fmt.Errorf("inserting dev records: %w", err)
	}
	return nil
}

// InitProdSchema creates the registry tables and fills them with the
// production suitable initial data. The registry starts out empty in
// production; producers register their data products through the API.
func (init *Initializer) InitProdSchema(ctx context.Context) error {
	if _, err := init.tx.Exec(ctx, schemaDDLStatements); err != nil {
		return fmt.Errorf("creating registry tables: %w", err)
	}
	if _, err := init.tx.Exec(ctx, prodDataStatements); err != nil {
		return fmt.Errorf("inserting prod records: %w", err)
	}
	return nil
}
