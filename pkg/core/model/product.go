// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package model defines the inner most layer of the Clean Architecture
// containing the business-level models, also called entities or domain.
// This layer may not depend on outter layers, while all other layers
// may depend on it.
// The registry domain consists of three entities. A Product is the
// long-lived identity of a data product. A ProductVersion is one
// immutable snapshot of the metadata and table schemas of a product,
// and a Schema is one table definition which belongs to exactly one
// ProductVersion. A Product points at exactly one ProductVersion as
// its current head and each accepted write advances that head.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is an enum representing the lifecycle status of one version
// of a data product. It is a metadata attribute which communicates
// the overall status of the data product, but is not reflected to any
// actual deployment status.
type Status string

// These constants enumerate the acceptable Status values.
const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusRetired   Status = "retired"
)

// ParseStatus converts the s string to a Status value, failing for
// any string which does not name a known status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusDraft, StatusPublished, StatusRetired:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status: %q", s)
	}
}

// Validate ensures that st contains one of the known status values.
func (st Status) Validate() error {
	_, err := ParseStatus(string(st))
	return err
}

// Tags is a free-form key to value mapping which may be attached to
// one version of a data product. Keys are unique per version.
type Tags map[string]string

// Copy returns an independent copy of the t tags mapping, so a new
// version snapshot may not observe mutations through an older one.
// A nil mapping is copied as an empty non-nil mapping because tags
// are always serialized as an object.
func (t Tags) Copy() Tags {
	c := make(Tags, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// Product is the long-lived identity of a data product. It is created
// when a producer registers an initial version and is never destroyed.
// The CurrentVersionID strong reference is advanced by every accepted
// write and always points at exactly one ProductVersion which belongs
// to this product.
type Product struct {
	ID               uuid.UUID // opaque internal identifier
	Name             string    // externally visible unique short name
	CurrentVersionID uuid.UUID // head reference, see ProductVersion
}

// ExternalID returns the identifier by which clients address the
// product, like dp:my_data_product.
func (p *Product) ExternalID() string {
	return "dp:" + p.Name
}

// Metadata contains the descriptive attributes of one version of a
// data product. All of these attributes may be updated through the
// versioning engine which classifies such updates as backward
// compatible, yielding a minor version increment.
type Metadata struct {
	Description           string  // business description of the product
	Domain                string  // owning organizational domain
	Status                Status  // draft, published, or retired
	Email                 string  // point of contact address
	RetentionPeriod       int     // retention period of the data, days
	DPIARequired          bool    // if a DPIA is needed for access
	Owner                 string  // unique identifier of the owner
	OwnerDisplayName      string  // human-readable owner name
	Maintainer            *string // optional secondary party
	MaintainerDisplayName *string // human-readable maintainer name
	Tags                  Tags    // additional key/value tags
}

// Operational contains the attributes of one version which are
// generated by the platform rather than provided by producers. All
// fields are nullable since they are filled lazily by operational
// processes.
type Operational struct {
	DPIALocation    *string    // storage location of the DPIA file
	LastUpdated     *time.Time // time of the last accepted write
	CreationDate    *time.Time // creation time of the data product
	StorageLocation *string    // path to the data in this product
	RowCount        *int64     // total row count heuristic
}

// ProductVersion is an immutable snapshot of the metadata of a data
// product at a point in time. Once committed, neither its attributes
// nor its Schemas change; a new snapshot is produced instead and the
// owning Product's head is re-pointed to it. A prior version remains
// addressable forever through its unique (Name, Version) pair.
//
// The product name is denormalized onto every version row, so the
// database can reject concurrent head-advance races with a uniqueness
// constraint over (name, version) without pessimistic locks.
type ProductVersion struct {
	ID      uuid.UUID // opaque internal identifier, zero if unsaved
	Name    string    // duplicated from the owning Product
	Version Version   // v<major>.<minor> pair

	Metadata
	Operational

	// Schemas is the ordered (by name) set of table schemas which
	// belong to this version. Schemas are never shared across
	// versions; the versioning engine copies them forward.
	Schemas []*Schema
}

// ExternalID returns the informational identifier of this exact
// version snapshot, like dp:my_data_product:v1.2. Clients address
// the Product, not a specific version.
func (v *ProductVersion) ExternalID() string {
	return fmt.Sprintf("dp:%s:%s", v.Name, v.Version)
}

// Schema looks up a table schema of this version by name, returning
// nil if this version holds no schema with that name.
func (v *ProductVersion) Schema(name string) *Schema {
	for _, s := range v.Schemas {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// SchemaNames returns the names of all table schemas which belong to
// this version, preserving their order.
func (v *ProductVersion) SchemaNames() []string {
	names := make([]string, 0, len(v.Schemas))
	for _, s := range v.Schemas {
		names = append(names, s.Name)
	}
	return names
}

// Next returns an unsaved snapshot carrying the metadata and
// operational attributes of v with the given next version number and
// no schemas yet. The caller is responsible to fill the Schemas slice
// with fresh copies and to persist the result atomically.
func (v *ProductVersion) Next(next Version) *ProductVersion {
	return &ProductVersion{
		Name:        v.Name,
		Version:     next,
		Metadata:    v.copyMetadata(),
		Operational: v.copyOperational(),
	}
}

func (v *ProductVersion) copyMetadata() Metadata {
	m := v.Metadata
	m.Maintainer = copyStrPtr(v.Maintainer)
	m.MaintainerDisplayName = copyStrPtr(v.MaintainerDisplayName)
	m.Tags = v.Tags.Copy()
	return m
}

func (v *ProductVersion) copyOperational() Operational {
	o := v.Operational
	o.DPIALocation = copyStrPtr(v.DPIALocation)
	o.StorageLocation = copyStrPtr(v.StorageLocation)
	if v.LastUpdated != nil {
		t := *v.LastUpdated
		o.LastUpdated = &t
	}
	if v.CreationDate != nil {
		t := *v.CreationDate
		o.CreationDate = &t
	}
	if v.RowCount != nil {
		n := *v.RowCount
		o.RowCount = &n
	}
	return o
}

func copyStrPtr(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
