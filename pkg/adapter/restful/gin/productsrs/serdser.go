// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package productsrs

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dataproducts/registry/pkg/adapter/restful/gin/serdser"
	"github.com/dataproducts/registry/pkg/core/model"
	"github.com/dataproducts/registry/pkg/core/versioning"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// parseProductID splits an external product identifier of the form
// dp:<name> and returns the product name.
func parseProductID(id string) (string, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 2 || parts[0] != "dp" ||
		!model.NamePattern.MatchString(parts[1]) {
		return "", fmt.Errorf("Invalid id: %s", id)
	}
	return parts[1], nil
}

// parseSchemaID splits an external schema identifier of the form
// dp:<name>:<table> and returns the product and table names.
func parseSchemaID(id string) (string, string, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 || parts[0] != "dp" ||
		!model.NamePattern.MatchString(parts[1]) ||
		!model.NamePattern.MatchString(parts[2]) {
		return "", "", fmt.Errorf("Invalid id: %s", id)
	}
	return parts[1], parts[2], nil
}

// serInvalidID reports a malformed external identifier with a 400
// response carrying the exact rejected identifier.
func serInvalidID(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
}

type rawProductReq struct {
	Name                  string            `json:"name" binding:"required"`
	Description           string            `json:"description" binding:"required"`
	Domain                string            `json:"domain" binding:"required"`
	Owner                 string            `json:"dataProductOwner" binding:"required"`
	OwnerDisplayName      string            `json:"dataProductOwnerDisplayName" binding:"required"`
	Maintainer            *string           `json:"dataProductMaintainer"`
	MaintainerDisplayName *string           `json:"dataProductMaintainerDisplayName"`
	Email                 string            `json:"email" binding:"required,email"`
	Status                string            `json:"status" binding:"required,oneof=draft published retired"`
	RetentionPeriod       *int              `json:"retentionPeriod" binding:"required,min=0"`
	DPIARequired          *bool             `json:"dpiaRequired" binding:"required"`
	Tags                  map[string]string `json:"tags"`

	// Schemas is accepted for symmetry with the read responses; the
	// listed table names are informational and table schemas are
	// registered through their own resource.
	Schemas []string `json:"schemas"`
}

// metadata converts the bound request to the model metadata struct.
func (req *rawProductReq) metadata() model.Metadata {
	tags := model.Tags(req.Tags)
	if tags == nil {
		tags = make(model.Tags)
	}
	return model.Metadata{
		Description:           req.Description,
		Domain:                req.Domain,
		Status:                model.Status(req.Status),
		Email:                 req.Email,
		RetentionPeriod:       *req.RetentionPeriod,
		DPIARequired:          *req.DPIARequired,
		Owner:                 req.Owner,
		OwnerDisplayName:      req.OwnerDisplayName,
		Maintainer:            req.Maintainer,
		MaintainerDisplayName: req.MaintainerDisplayName,
		Tags:                  tags,
	}
}

// patch converts the bound request to a metadata patch for the
// versioning engine, keyed by the internal attribute names. The name
// is included deliberately; the classifier rejects a renaming attempt
// like every other non-updatable field change.
func (req *rawProductReq) patch() versioning.MetadataPatch {
	md := req.metadata()
	return versioning.MetadataPatch{
		"name":                    req.Name,
		"description":             md.Description,
		"domain":                  md.Domain,
		"status":                  md.Status,
		"email":                   md.Email,
		"retention_period":        md.RetentionPeriod,
		"dpia_required":           md.DPIARequired,
		"owner":                   md.Owner,
		"owner_display_name":      md.OwnerDisplayName,
		"maintainer":              md.Maintainer,
		"maintainer_display_name": md.MaintainerDisplayName,
		"tags":                    md.Tags,
	}
}

// DserProductReq binds and validates a product payload from the
// request body, reporting binding and validation failures with 400
// responses. It returns nil if the request was already answered.
func (rs *resource) DserProductReq(c *gin.Context) *rawProductReq {
	req := &rawProductReq{}
	if ok := serdser.Bind(c, req, binding.JSON); !ok {
		return nil
	}
	var errs map[string][]string
	if !model.NamePattern.MatchString(req.Name) {
		serdser.AddErr(
			&errs, "name",
			fmt.Sprintf(
				"name must match %s", model.NamePattern.String(),
			),
		)
	}
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return nil
	}
	return req
}

type rawColumn struct {
	Name        string `json:"name" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Description string `json:"description"`
}

type rawSchemaCreateReq struct {
	TableDescription string      `json:"tableDescription"`
	Columns          []rawColumn `json:"columns" binding:"required,dive"`
}

type rawSchemaUpdateReq struct {
	TableDescription *string      `json:"tableDescription"`
	Columns          *[]rawColumn `json:"columns" binding:"omitempty,dive"`
}

// toModelColumns converts the bound column descriptors, preserving
// their input order.
func toModelColumns(cols []rawColumn) []model.Column {
	out := make([]model.Column, 0, len(cols))
	for _, rc := range cols {
		out = append(out, model.Column{
			Name:        rc.Name,
			Type:        rc.Type,
			Description: rc.Description,
		})
	}
	return out
}

// DserSchemaCreateReq binds a schema creation payload and validates
// the resulting table definition (name and column grammars, unique
// column names). It returns nil if the request was already answered.
func (rs *resource) DserSchemaCreateReq(
	c *gin.Context, tableName string,
) *model.Schema {
	req := &rawSchemaCreateReq{}
	if ok := serdser.Bind(c, req, binding.JSON); !ok {
		return nil
	}
	schema := &model.Schema{
		Name:             tableName,
		TableDescription: req.TableDescription,
		Columns:          toModelColumns(req.Columns),
	}
	if err := schema.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return nil
	}
	return schema
}

// DserSchemaUpdateReq binds a partial schema update payload and
// validates the patched attributes. It returns nil if the request was
// already answered.
func (rs *resource) DserSchemaUpdateReq(
	c *gin.Context, tableName string,
) *versioning.SchemaPatch {
	req := &rawSchemaUpdateReq{}
	if ok := serdser.Bind(c, req, binding.JSON); !ok {
		return nil
	}
	patch := &versioning.SchemaPatch{
		TableDescription: req.TableDescription,
	}
	if req.Columns != nil {
		patch.Columns = toModelColumns(*req.Columns)
		probe := &model.Schema{
			Name:    tableName,
			Columns: patch.Columns,
		}
		if err := probe.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"detail": err.Error(),
			})
			return nil
		}
	}
	return patch
}

type productRead struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	Description           string            `json:"description"`
	Domain                string            `json:"domain"`
	Owner                 string            `json:"dataProductOwner"`
	OwnerDisplayName      string            `json:"dataProductOwnerDisplayName"`
	Maintainer            *string           `json:"dataProductMaintainer,omitempty"`
	MaintainerDisplayName *string           `json:"dataProductMaintainerDisplayName,omitempty"`
	Email                 string            `json:"email"`
	Status                string            `json:"status"`
	RetentionPeriod       int               `json:"retentionPeriod"`
	DPIARequired          bool              `json:"dpiaRequired"`
	Version               string            `json:"version"`
	Schemas               []string          `json:"schemas"`
	Tags                  map[string]string `json:"tags"`
	DPIALocation          *string           `json:"dpiaLocation,omitempty"`
	LastUpdated           *time.Time        `json:"lastUpdated,omitempty"`
	CreationDate          *time.Time        `json:"creationDate,omitempty"`
	StorageLocation       *string           `json:"storageLocation,omitempty"`
	RowCount              *int64            `json:"rowCount,omitempty"`
}

// SerProduct converts the head version snapshot of a product to its
// wire representation. The id addresses the Product; the exact
// version is reported by the version field.
func SerProduct(v *model.ProductVersion) productRead {
	tags := map[string]string(v.Tags)
	if tags == nil {
		tags = map[string]string{}
	}
	schemas := v.SchemaNames()
	if schemas == nil {
		schemas = []string{}
	}
	return productRead{
		ID:                    "dp:" + v.Name,
		Name:                  v.Name,
		Description:           v.Description,
		Domain:                v.Domain,
		Owner:                 v.Owner,
		OwnerDisplayName:      v.OwnerDisplayName,
		Maintainer:            v.Maintainer,
		MaintainerDisplayName: v.MaintainerDisplayName,
		Email:                 v.Email,
		Status:                string(v.Status),
		RetentionPeriod:       v.RetentionPeriod,
		DPIARequired:          v.DPIARequired,
		Version:               v.Version.String(),
		Schemas:               schemas,
		Tags:                  tags,
		DPIALocation:          v.DPIALocation,
		LastUpdated:           v.LastUpdated,
		CreationDate:          v.CreationDate,
		StorageLocation:       v.StorageLocation,
		RowCount:              v.RowCount,
	}
}

type schemaRead struct {
	ID               string        `json:"id,omitempty"`
	Version          string        `json:"version,omitempty"`
	TableDescription string        `json:"tableDescription"`
	Columns          []model.Column `json:"columns"`
}

// SerSchema converts a table schema to its wire representation.
func SerSchema(s *model.Schema) schemaRead {
	cols := s.Columns
	if cols == nil {
		cols = []model.Column{}
	}
	return schemaRead{
		TableDescription: s.TableDescription,
		Columns:          cols,
	}
}

// SerSchemaAt converts a table schema to its wire representation,
// annotated with its external identifier and the product version it
// belongs to. Update responses use this form, so callers can observe
// the version increment which their change produced.
func SerSchemaAt(
	v *model.ProductVersion, s *model.Schema,
) schemaRead {
	sr := SerSchema(s)
	sr.ID = s.ExternalID(v.Name)
	sr.Version = v.Version.String()
	return sr
}
