// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package command provides the root and sub-commands for the data
// products registry. Commands are organized using the cobra library.
// The root command starts the web server itself while the "db"
// sub-command can be used for the database initialization actions and
// the "token" sub-command for generation of bearer token hashes.
//
//	./regweb [-c /path/of/main/config.yaml]          # start web server
//	./regweb db init-dev [-c /path/of/main/config.yaml]
//	./regweb db init-prod [-c /path/of/main/config.yaml]
//	./regweb token hash
package command

import (
	"context"
	"fmt"
	"os"

	"github.com/dataproducts/registry/pkg/adapter/config"
	"github.com/dataproducts/registry/pkg/adapter/restful/gin/routes"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "regweb",
	Short: "The data products metadata registry web server",
	Long: `The data products metadata registry records descriptions of
analytical data products, the tabular schemas which they expose, and
the evolution of both over time. Producers register new data products,
attach table schemas to them, and submit updates; consumers discover
products, fetch the canonical shape of each table, and pin to a
specific version. Every accepted update is classified by a semantic
versioning engine as backward compatible or breaking, the next
v<major>.<minor> version number is derived accordingly, and a new
immutable version snapshot is committed while the product head is
re-pointed atomically.`,
	RunE: startWebServer,
}

func startWebServer(_ *cobra.Command, _ []string) error {
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
	e, err := c.NewEngine()
	if err != nil {
		return fmt.Errorf("creating Gin engine: %w", err)
	}
	if err = routes.Register(e, p); err != nil {
		return fmt.Errorf("registering routes: %w", err)
	}
	if err = e.Run(c.Gin.Addr); err != nil {
		return fmt.Errorf("running Gin engine: %w", err)
	}
	return nil
}

// Execute runs the rootCmd which in turn parses CLI arguments and
// flags and runs the most specific cobra command. The exit code may
// be a boolean (zero for success and non-zero for failure) or may be
// chosen based on the error condition (if it is desired to report
// several error conditions in the CLI of this program).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(fixConfigPath)
	rootCmd.PersistentFlags().StringVarP(
		&cfgPath, "config", "c", "", "config file path",
	)
}

// fixConfigPath ensures that cfgPath is set respectively by either the
// CLI args, the CONFIG_FILE environment variable, or its default value.
// By the way, default value is not necessarily a single path and may
// check several paths sequentially and take the highest priority one
// among the existing paths. For example, a user-specific path may take
// precedence over a file in /etc which is selected over a file in /usr.
func fixConfigPath() {
	if cfgPath != "" {
		return
	}
	var found bool
	if cfgPath, found = os.LookupEnv("CONFIG_FILE"); !found {
		// the default path should usually be in the /etc directory
		cfgPath = "configs/sample-config.yaml"
	}
}
