// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"context"
	"fmt"

	"github.com/dataproducts/registry/pkg/adapter/config"
	"github.com/dataproducts/registry/pkg/adapter/db/postgres/dbinit"
	"github.com/dataproducts/registry/pkg/core/repo"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management actions",
	Long: `Database management actions can be chosen by sub-commands.
For fresh installation in a development or production environment,
the init-dev or init-prod may be used. The database connection
information are read from the config file. The target database must
contain no registry tables beforehand; otherwise, the initialization
transaction fails and no changes are made.`,
}

var initDevCmd = &cobra.Command{
	Use:   "init-dev",
	Short: "Initialize database contents with development suitable data",
	Long: `Initialize database contents with development suitable data,
creating the products, versions, and schemas tables and inserting one
example data product with a table schema, so the API may be explored
right away.`,
	RunE: initDev,
	Args: cobra.NoArgs,
}

var initProdCmd = &cobra.Command{
	Use:   "init-prod",
	Short: "Initialize database contents with production suitable data",
	Long: `Initialize database contents with production suitable data,
creating the products, versions, and schemas tables without any data
rows. Data products are registered by producers through the API.`,
	RunE: initProd,
	Args: cobra.NoArgs,
}

func initDev(_ *cobra.Command, _ []string) error {
	return initDB(func(ctx context.Context, init *dbinit.Initializer) error {
		return init.InitDevSchema(ctx)
	})
}

func initProd(_ *cobra.Command, _ []string) error {
	return initDB(func(ctx context.Context, init *dbinit.Initializer) error {
		return init.InitProdSchema(ctx)
	})
}

// initDB connects to the configured database and runs the f
// initialization function in a single transaction, so a failed
// initialization leaves the database untouched.
func initDB(
	f func(context.Context, *dbinit.Initializer) error,
) error {
	ctx := context.Background()
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}
	p, err := c.Database.NewPool(ctx)
	if err != nil {
		return fmt.Errorf("creating DB pool: %w", err)
	}
	defer p.Close()
	err = p.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return f(ctx, dbinit.New(tx))
		})
	})
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	return nil
}

func init() {
	dbCmd.AddCommand(initDevCmd)
	dbCmd.AddCommand(initProdCmd)
	rootCmd.AddCommand(dbCmd)
}
