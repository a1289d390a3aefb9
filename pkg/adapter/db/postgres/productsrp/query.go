// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package productsrp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dataproducts/registry/pkg/adapter/db/postgres"
	"github.com/dataproducts/registry/pkg/core/cerr"
	"github.com/dataproducts/registry/pkg/core/model"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gProduct struct {
	PID              uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Name             string
	CurrentVersionID uuid.UUID `gorm:"type:uuid"`
}

func (gp *gProduct) TableName() string {
	return "products"
}

type gVersion struct {
	VID                   uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	Name                  string
	Version               string
	Description           string
	Domain                string
	Status                string
	Email                 string
	RetentionPeriod       int
	DPIARequired          bool `gorm:"column:dpia_required"`
	Owner                 string
	OwnerDisplayName      string
	Maintainer            *string
	MaintainerDisplayName *string
	Tags                  string  `gorm:"type:jsonb"`
	DPIALocation          *string `gorm:"column:dpia_location"`
	LastUpdated           *time.Time
	CreationDate          *time.Time
	StorageLocation       *string
	RowCount              *int64
}

func (gv *gVersion) TableName() string {
	return "versions"
}

func newGVersion(v *model.ProductVersion) (*gVersion, error) {
	tags, err := json.Marshal(v.Tags.Copy())
	if err != nil {
		return nil, fmt.Errorf("marshalling tags: %w", err)
	}
	return &gVersion{
		VID:                   uuid.New(),
		Name:                  v.Name,
		Version:               v.Version.String(),
		Description:           v.Description,
		Domain:                v.Domain,
		Status:                string(v.Status),
		Email:                 v.Email,
		RetentionPeriod:       v.RetentionPeriod,
		DPIARequired:          v.DPIARequired,
		Owner:                 v.Owner,
		OwnerDisplayName:      v.OwnerDisplayName,
		Maintainer:            v.Maintainer,
		MaintainerDisplayName: v.MaintainerDisplayName,
		Tags:                  string(tags),
		DPIALocation:          v.DPIALocation,
		LastUpdated:           v.LastUpdated,
		CreationDate:          v.CreationDate,
		StorageLocation:       v.StorageLocation,
		RowCount:              v.RowCount,
	}, nil
}

func (gv *gVersion) Model() (*model.ProductVersion, error) {
	version, err := model.ParseVersion(gv.Version)
	if err != nil {
		return nil, err
	}
	tags := make(model.Tags)
	if gv.Tags != "" {
		if err := json.Unmarshal([]byte(gv.Tags), &tags); err != nil {
			return nil, fmt.Errorf("unmarshalling tags: %w", err)
		}
	}
	return &model.ProductVersion{
		ID:      gv.VID,
		Name:    gv.Name,
		Version: version,
		Metadata: model.Metadata{
			Description:           gv.Description,
			Domain:                gv.Domain,
			Status:                model.Status(gv.Status),
			Email:                 gv.Email,
			RetentionPeriod:       gv.RetentionPeriod,
			DPIARequired:          gv.DPIARequired,
			Owner:                 gv.Owner,
			OwnerDisplayName:      gv.OwnerDisplayName,
			Maintainer:            gv.Maintainer,
			MaintainerDisplayName: gv.MaintainerDisplayName,
			Tags:                  tags,
		},
		Operational: model.Operational{
			DPIALocation:    gv.DPIALocation,
			LastUpdated:     gv.LastUpdated,
			CreationDate:    gv.CreationDate,
			StorageLocation: gv.StorageLocation,
			RowCount:        gv.RowCount,
		},
	}, nil
}

type gSchema struct {
	SID              uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	VersionID        uuid.UUID `gorm:"type:uuid"`
	Name             string
	TableDescription string
	Columns          string `gorm:"type:jsonb"`
}

func (gs *gSchema) TableName() string {
	return "schemas"
}

func newGSchema(versionID uuid.UUID, s *model.Schema) (*gSchema, error) {
	cols := s.Columns
	if cols == nil {
		cols = []model.Column{}
	}
	colsJSON, err := json.Marshal(cols)
	if err != nil {
		return nil, fmt.Errorf("marshalling columns: %w", err)
	}
	return &gSchema{
		SID:              uuid.New(),
		VersionID:        versionID,
		Name:             s.Name,
		TableDescription: s.TableDescription,
		Columns:          string(colsJSON),
	}, nil
}

func (gs *gSchema) Model() (*model.Schema, error) {
	var cols []model.Column
	if gs.Columns != "" {
		if err := json.Unmarshal([]byte(gs.Columns), &cols); err != nil {
			return nil, fmt.Errorf("unmarshalling columns: %w", err)
		}
	}
	return &model.Schema{
		ID:               gs.SID,
		Name:             gs.Name,
		TableDescription: gs.TableDescription,
		Columns:          cols,
	}, nil
}

// CreateProduct persists the initial version snapshot with its table
// schemas (if any), creates the product row pointing at it as the
// head, and returns the persisted snapshot with assigned identifiers.
// A product with the same name makes the uniqueness constraint fire
// and the whole operation fail with a conflict error.
// This generic function allows a unified implementation to be used
// for both of the connection and transaction receiving methods.
func CreateProduct[Q postgres.Queryer](
	ctx context.Context, q Q, initial *model.ProductVersion,
) (*model.ProductVersion, error) {
	gdb := q.GORM(ctx)
	gv, err := newGVersion(initial)
	if err != nil {
		return nil, err
	}
	if err := gdb.Create(gv).Error; err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, cerr.Conflict(fmt.Errorf(
				"a data product named %q already exists",
				initial.Name,
			))
		}
		return nil, fmt.Errorf("inserting version: %w", err)
	}
	saved, err := insertSchemas(gdb, gv.VID, initial.Schemas)
	if err != nil {
		return nil, err
	}
	gp := &gProduct{
		PID:              uuid.New(),
		Name:             initial.Name,
		CurrentVersionID: gv.VID,
	}
	if err := gdb.Create(gp).Error; err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, cerr.Conflict(fmt.Errorf(
				"a data product named %q already exists",
				initial.Name,
			))
		}
		return nil, fmt.Errorf("inserting product: %w", err)
	}
	v, err := gv.Model()
	if err != nil {
		return nil, err
	}
	v.Schemas = saved
	return v, nil
}

// AdvanceHead persists the next version snapshot as a sibling version
// of the name product and re-points the product head to reference it.
// Since both writes run in the ambient transaction, a concurrent
// advance producing the same (name, version) pair aborts with a
// conflict error and leaves no partial state behind.
// This generic function allows a unified implementation to be used
// for both of the connection and transaction receiving methods.
func AdvanceHead[Q postgres.Queryer](
	ctx context.Context, q Q, name string, next *model.ProductVersion,
) (*model.ProductVersion, error) {
	gdb := q.GORM(ctx)
	var gp gProduct
	err := gdb.Where("name = ?", name).Take(&gp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundProduct(name)
	} else if err != nil {
		return nil, fmt.Errorf("querying product: %w", err)
	}
	gv, err := newGVersion(next)
	if err != nil {
		return nil, err
	}
	if err := gdb.Create(gv).Error; err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, cerr.Conflict(fmt.Errorf(
				"version %s of data product %q was created concurrently",
				next.Version, name,
			))
		}
		return nil, fmt.Errorf("inserting version: %w", err)
	}
	saved, err := insertSchemas(gdb, gv.VID, next.Schemas)
	if err != nil {
		return nil, err
	}
	err = gdb.Model(&gProduct{}).Where("id = ?", gp.PID).
		Update("current_version_id", gv.VID).Error
	if err != nil {
		return nil, fmt.Errorf("advancing head: %w", err)
	}
	v, err := gv.Model()
	if err != nil {
		return nil, err
	}
	v.Schemas = saved
	return v, nil
}

// FetchByNameAndVersion loads one exact version snapshot with its
// table schemas by the unique (name, version) pair.
// This generic function allows a unified implementation to be used
// for both of the connection and transaction receiving methods.
func FetchByNameAndVersion[Q postgres.Queryer](
	ctx context.Context, q Q, name string, version model.Version,
) (*model.ProductVersion, error) {
	gdb := q.GORM(ctx)
	var gv gVersion
	err := gdb.Where(
		"name = ? AND version = ?", name, version.String(),
	).Take(&gv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cerr.NotFound(fmt.Errorf(
			"Data product does not exist with id dp:%s:%s",
			name, version,
		))
	} else if err != nil {
		return nil, fmt.Errorf("querying version: %w", err)
	}
	return loadVersion(gdb, &gv)
}

// FetchLatest loads the version snapshot which is currently pointed
// to by the head of the name product, together with its schemas.
// This generic function allows a unified implementation to be used
// for both of the connection and transaction receiving methods.
func FetchLatest[Q postgres.Queryer](
	ctx context.Context, q Q, name string,
) (*model.ProductVersion, error) {
	gdb := q.GORM(ctx)
	var gv gVersion
	err := gdb.Model(&gVersion{}).
		Select("versions.*").
		Joins("JOIN products ON products.current_version_id = versions.id").
		Where("products.name = ?", name).
		Take(&gv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundProduct(name)
	} else if err != nil {
		return nil, fmt.Errorf("querying head version: %w", err)
	}
	return loadVersion(gdb, &gv)
}

// ListLatest loads the head version snapshot of every product with
// its schemas, ordered by product name.
// This generic function allows a unified implementation to be used
// for both of the connection and transaction receiving methods.
func ListLatest[Q postgres.Queryer](
	ctx context.Context, q Q,
) ([]*model.ProductVersion, error) {
	gdb := q.GORM(ctx)
	var gvs []gVersion
	err := gdb.Model(&gVersion{}).
		Select("versions.*").
		Joins("JOIN products ON products.current_version_id = versions.id").
		Order("products.name").
		Find(&gvs).Error
	if err != nil {
		return nil, fmt.Errorf("querying head versions: %w", err)
	}
	vs := make([]*model.ProductVersion, 0, len(gvs))
	for i := range gvs {
		v, err := loadVersion(gdb, &gvs[i])
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

// CreateSchema persists one table schema bound to the versionID
// version, returning it with an assigned identifier. A duplicate
// (version, name) pair fails with a conflict error.
// This generic function allows a unified implementation to be used
// for both of the connection and transaction receiving methods.
func CreateSchema[Q postgres.Queryer](
	ctx context.Context, q Q, versionID uuid.UUID, s *model.Schema,
) (*model.Schema, error) {
	gdb := q.GORM(ctx)
	gs, err := newGSchema(versionID, s)
	if err != nil {
		return nil, err
	}
	if err := gdb.Create(gs).Error; err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, cerr.Conflict(fmt.Errorf(
				"a schema named %q already exists in this version",
				s.Name,
			))
		}
		return nil, fmt.Errorf("inserting schema: %w", err)
	}
	return gs.Model()
}

// FetchSchema loads the tableName table schema belonging to the
// current version of the productName product.
// This generic function allows a unified implementation to be used
// for both of the connection and transaction receiving methods.
func FetchSchema[Q postgres.Queryer](
	ctx context.Context, q Q, productName, tableName string,
) (*model.Schema, error) {
	gdb := q.GORM(ctx)
	var gs gSchema
	err := gdb.Model(&gSchema{}).
		Select("schemas.*").
		Joins("JOIN products ON products.current_version_id = schemas.version_id").
		Where("products.name = ? AND schemas.name = ?",
			productName, tableName).
		Take(&gs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cerr.NotFound(fmt.Errorf(
			"id dp:%s:%s references a schema that does not exist",
			productName, tableName,
		))
	} else if err != nil {
		return nil, fmt.Errorf("querying schema: %w", err)
	}
	return gs.Model()
}

// insertSchemas persists every schema of a freshly inserted version
// row, ordered deterministically by name through the caller, and
// returns their model representations with assigned identifiers.
func insertSchemas(
	gdb *gorm.DB, versionID uuid.UUID, schemas []*model.Schema,
) ([]*model.Schema, error) {
	saved := make([]*model.Schema, 0, len(schemas))
	for _, s := range schemas {
		gs, err := newGSchema(versionID, s)
		if err != nil {
			return nil, err
		}
		if err := gdb.Create(gs).Error; err != nil {
			if postgres.IsUniqueViolation(err) {
				return nil, cerr.Conflict(fmt.Errorf(
					"a schema named %q already exists in this version",
					s.Name,
				))
			}
			return nil, fmt.Errorf("inserting schema: %w", err)
		}
		m, err := gs.Model()
		if err != nil {
			return nil, err
		}
		saved = append(saved, m)
	}
	return saved, nil
}

// loadVersion converts a version row to its model and fills it with
// the table schemas of that version, ordered by name.
func loadVersion(
	gdb *gorm.DB, gv *gVersion,
) (*model.ProductVersion, error) {
	v, err := gv.Model()
	if err != nil {
		return nil, err
	}
	var gss []gSchema
	err = gdb.Where("version_id = ?", gv.VID).
		Order("name").Find(&gss).Error
	if err != nil {
		return nil, fmt.Errorf("querying schemas: %w", err)
	}
	for i := range gss {
		s, err := gss[i].Model()
		if err != nil {
			return nil, err
		}
		v.Schemas = append(v.Schemas, s)
	}
	return v, nil
}

func notFoundProduct(name string) error {
	return cerr.NotFound(fmt.Errorf(
		"Data product does not exist with id dp:%s", name,
	))
}
