// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package productsrs realizes the data products resource, allowing
// the registry REST APIs to be accepted and delegated to the data
// products use cases respectively. Products are addressed by their
// dp:<name> identifiers and table schemas by dp:<name>:<table>; the
// exposed state is always the current version of a product and every
// accepted write advances its head through the versioning engine.
package productsrs

import (
	"net/http"

	"github.com/dataproducts/registry/pkg/adapter/restful/gin/idempotency"
	"github.com/dataproducts/registry/pkg/adapter/restful/gin/serdser"
	"github.com/dataproducts/registry/pkg/core/usecase/productuc"
	"github.com/gin-gonic/gin"
)

type resource struct {
	products *productuc.UseCase
}

// Register instantiates a resource adapting the data products use
// case instance with the relevant REST APIs including:
//  1. POST request to /data-products/
//     in order to register a data product at version v1.0.
//  2. GET requests to /data-products/ and /data-products/:id
//     in order to list all products or fetch one by its dp:<name> id.
//  3. PUT request to /data-products/:id
//     in order to update the product metadata (a minor update).
//  4. POST, GET, PUT, and DELETE requests to /schemas/:id
//     in order to manage table schemas by their dp:<name>:<table>
//     ids, routing updates through the semantic versioning engine.
//
// The idempotency cache guards the product registration endpoint, so
// a repeated identical registration replays the recorded response
// instead of reporting a name conflict.
func Register(
	r *gin.RouterGroup,
	products *productuc.UseCase,
	idem *idempotency.Cache,
) {
	rs := &resource{products: products}
	r.POST("/data-products/", idem.Middleware(), rs.CreateProduct)
	r.GET("/data-products/", rs.ListProducts)
	r.GET("/data-products/:id", rs.GetProduct)
	r.PUT("/data-products/:id", rs.UpdateProduct)
	r.POST("/schemas/:id", rs.CreateSchema)
	r.GET("/schemas/:id", rs.GetSchema)
	r.PUT("/schemas/:id", rs.UpdateSchema)
	r.DELETE("/schemas/:id", rs.DeleteSchema)
}

func (rs *resource) CreateProduct(c *gin.Context) {
	req := rs.DserProductReq(c)
	if req == nil {
		return
	}
	v, err := rs.products.Create(c, req.Name, req.metadata())
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerProduct(v))
}

func (rs *resource) ListProducts(c *gin.Context) {
	vs, err := rs.products.List(c)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	reads := make([]productRead, 0, len(vs))
	for _, v := range vs {
		reads = append(reads, SerProduct(v))
	}
	c.JSON(http.StatusOK, reads)
}

func (rs *resource) GetProduct(c *gin.Context) {
	name, err := parseProductID(c.Param("id"))
	if err != nil {
		serInvalidID(c, err)
		return
	}
	v, err := rs.products.Get(c, name)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerProduct(v))
}

func (rs *resource) UpdateProduct(c *gin.Context) {
	name, err := parseProductID(c.Param("id"))
	if err != nil {
		serInvalidID(c, err)
		return
	}
	req := rs.DserProductReq(c)
	if req == nil {
		return
	}
	v, err := rs.products.UpdateMetadata(c, name, req.patch())
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerProduct(v))
}

func (rs *resource) CreateSchema(c *gin.Context) {
	name, tableName, err := parseSchemaID(c.Param("id"))
	if err != nil {
		serInvalidID(c, err)
		return
	}
	schema := rs.DserSchemaCreateReq(c, tableName)
	if schema == nil {
		return
	}
	s, err := rs.products.CreateSchema(c, name, schema)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerSchema(s))
}

func (rs *resource) GetSchema(c *gin.Context) {
	name, tableName, err := parseSchemaID(c.Param("id"))
	if err != nil {
		serInvalidID(c, err)
		return
	}
	s, err := rs.products.GetSchema(c, name, tableName)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerSchema(s))
}

func (rs *resource) UpdateSchema(c *gin.Context) {
	name, tableName, err := parseSchemaID(c.Param("id"))
	if err != nil {
		serInvalidID(c, err)
		return
	}
	patch := rs.DserSchemaUpdateReq(c, tableName)
	if patch == nil {
		return
	}
	v, err := rs.products.UpdateSchema(c, name, tableName, *patch)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerSchemaAt(v, v.Schema(tableName)))
}

func (rs *resource) DeleteSchema(c *gin.Context) {
	name, tableName, err := parseSchemaID(c.Param("id"))
	if err != nil {
		serInvalidID(c, err)
		return
	}
	v, err := rs.products.RemoveSchema(c, name, tableName)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerProduct(v))
}
