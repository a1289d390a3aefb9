// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package routes contains all resource packages and facilitates
// instantiation and registration of all repo, use case, and resource
// packages. Each use case package is named like productuc and each
// repository package is named like productsrp.
package routes

import (
	"fmt"
	"net/http"

	"github.com/dataproducts/registry/pkg/adapter/db/postgres/productsrp"
	"github.com/dataproducts/registry/pkg/adapter/restful/gin/idempotency"
	"github.com/dataproducts/registry/pkg/adapter/restful/gin/productsrs"
	"github.com/dataproducts/registry/pkg/core/repo"
	"github.com/dataproducts/registry/pkg/core/usecase/productuc"
	"github.com/gin-gonic/gin"
)

// Register instantiates the relevant repositories and use cases. The
// p connections pool is passed to the use case instances, so they may
// acquire/release connections and transactions on demand. These
// connections/transactions will be passed to the repositories later
// in order to run relevant queries on them and accomplish those use
// cases.
// Register instantiates a series of "resource" structs, from packages
// which are named like productsrs, in order to adapt the use cases
// interfaces with the REST APIs. These resources are registered as
// request handlers using the e gin-gonic engine instance, together
// with one process-wide idempotency cache and a liveness endpoint.
// Possible errors will be returned after possible wrapping.
func Register(e *gin.Engine, p repo.Pool) error {
	productsRepo := productsrp.New()
	productsUseCase, err := productuc.New(p, productsRepo)
	if err != nil {
		return fmt.Errorf("creating products use case: %w", err)
	}
	idem := idempotency.New()
	r := e.Group("/")
	productsrs.Register(r, productsUseCase, idem)
	e.GET("/healthz", healthz)
	return nil
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
