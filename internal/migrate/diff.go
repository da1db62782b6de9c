// Package migrate compares two canonical schemas and generates the SQL that
// moves a database from the old one to the new one.
package migrate

import (
	"github.com/tordrt/schemabridge/internal/schema"
)

// Facet names one aspect of a column that can change between schemas.
type Facet string

const (
	FacetNullability Facet = "nullability"
	FacetType        Facet = "type"
	FacetDefault     Facet = "default"
	FacetUniqueness  Facet = "uniqueness"
)

// ColumnDiff is a column present on both sides whose definition changed.
type ColumnDiff struct {
	Name    string
	Old     schema.Attribute
	New     schema.Attribute
	Changes []Facet
}

// Has reports whether f is among the changed facets.
func (c ColumnDiff) Has(f Facet) bool {
	for _, ch := range c.Changes {
		if ch == f {
			return true
		}
	}
	return false
}

// TableDiff lists the column changes of a table present on both sides.
type TableDiff struct {
	Name            string
	ColumnsToAdd    []schema.Attribute
	ColumnsToRemove []schema.Attribute
	ColumnsToModify []ColumnDiff
}

// IsEmpty reports whether the table is unchanged.
func (t TableDiff) IsEmpty() bool {
	return len(t.ColumnsToAdd) == 0 && len(t.ColumnsToRemove) == 0 && len(t.ColumnsToModify) == 0
}

// Diff is the difference between two schemas. Entities and attributes are
// matched by name, so a rename shows up as a removal plus an addition.
type Diff struct {
	TablesToAdd    []schema.Entity
	TablesToRemove []schema.Entity
	TablesToModify []TableDiff

	from, to *schema.Schema
}

// IsEmpty reports whether both schemas have the same tables and columns.
func (d *Diff) IsEmpty() bool {
	return len(d.TablesToAdd) == 0 && len(d.TablesToRemove) == 0 && len(d.TablesToModify) == 0
}

// Compare computes the difference between from and to. Both schemas must pass
// schema.Validate; otherwise a *schema.DiffError names the failing side.
// Neither input is modified.
func Compare(from, to *schema.Schema) (*Diff, error) {
	if err := schema.Validate(from, false); err != nil {
		return nil, &schema.DiffError{Side: "old", Err: err}
	}
	if err := schema.Validate(to, false); err != nil {
		return nil, &schema.DiffError{Side: "new", Err: err}
	}

	d := &Diff{from: from, to: to}
	for _, e := range to.Entities {
		prev := from.Entity(e.Name)
		if prev == nil {
			d.TablesToAdd = append(d.TablesToAdd, e)
			continue
		}
		if td := diffTable(*prev, e); !td.IsEmpty() {
			d.TablesToModify = append(d.TablesToModify, td)
		}
	}
	for _, e := range from.Entities {
		if to.Entity(e.Name) == nil {
			d.TablesToRemove = append(d.TablesToRemove, e)
		}
	}
	return d, nil
}

func diffTable(from, to schema.Entity) TableDiff {
	td := TableDiff{Name: to.Name}
	for _, a := range to.Attributes {
		prev := from.Attribute(a.Name)
		if prev == nil {
			td.ColumnsToAdd = append(td.ColumnsToAdd, a)
			continue
		}
		if changes := diffColumn(*prev, a); len(changes) > 0 {
			td.ColumnsToModify = append(td.ColumnsToModify, ColumnDiff{Name: a.Name, Old: *prev, New: a, Changes: changes})
		}
	}
	for _, a := range from.Attributes {
		if !to.HasAttribute(a.Name) {
			td.ColumnsToRemove = append(td.ColumnsToRemove, a)
		}
	}
	return td
}

func diffColumn(from, to schema.Attribute) []Facet {
	var changes []Facet
	if from.IsOptional != to.IsOptional {
		changes = append(changes, FacetNullability)
	}
	if from.Type != to.Type || from.Length != to.Length || from.Precision != to.Precision ||
		from.Scale != to.Scale || from.Enum != to.Enum {
		changes = append(changes, FacetType)
	}
	if from.Default != to.Default {
		changes = append(changes, FacetDefault)
	}
	if from.IsUnique != to.IsUnique {
		changes = append(changes, FacetUniqueness)
	}
	return changes
}
