// Package builder turns normalized parse results into the canonical schema.
package builder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/dialect"
	"github.com/tordrt/schemabridge/internal/schema"
)

// Build maps every parsed table of res to an entity and resolves foreign keys
// into relations in a second pass, so references to tables declared later in
// the script still resolve. res must already be normalized for d.
//
// Foreign keys whose target columns are not a primary key or unique are
// still recorded. Unknown column types become text and are logged; with
// opts.Strict they are reported as a *schema.ValidationError instead.
func Build(d dialect.Dialect, res *ddl.Result, opts schema.Options) (*schema.Schema, error) {
	b := &builder{
		dialect: d,
		res:     res,
		logger:  opts.Log(),
		index:   make(map[string]int),
	}

	for _, e := range res.Enums {
		b.addEnum(schema.Enum{Name: e.Name, Values: e.Values})
	}
	tables := b.dedupe(res.Tables)
	for _, t := range tables {
		b.addEntity(t)
	}
	for _, t := range tables {
		b.addRelations(t)
	}

	if opts.Strict && len(b.problems) > 0 {
		return nil, &schema.ValidationError{Problems: b.problems}
	}
	if err := schema.Validate(&b.out, opts.Strict); err != nil {
		return nil, err
	}
	return &b.out, nil
}

type builder struct {
	dialect  dialect.Dialect
	res      *ddl.Result
	logger   *slog.Logger
	out      schema.Schema
	index    map[string]int // lower-cased entity name -> position in out.Entities
	problems []string
}

func (b *builder) addEnum(e schema.Enum) {
	if existing := b.out.Enum(e.Name); existing != nil {
		existing.Values = e.Values
		return
	}
	b.out.Enums = append(b.out.Enums, e)
}

// enumFor returns the declared enum named like typ, if any.
func (b *builder) enumFor(typ string) *ddl.ParsedEnum {
	for i := range b.res.Enums {
		if strings.EqualFold(b.res.Enums[i].Name, typ) {
			return &b.res.Enums[i]
		}
	}
	return nil
}

func (b *builder) addEntity(t ddl.ParsedTable) {
	entity := schema.Entity{
		Name:    t.Name,
		Comment: t.Comment,
	}

	pk := make(map[string]bool)
	for _, name := range t.PrimaryKey {
		if col := t.Column(name); col != nil {
			entity.PrimaryKey = append(entity.PrimaryKey, col.Name)
			pk[col.Name] = true
		} else {
			entity.PrimaryKey = append(entity.PrimaryKey, name)
		}
	}

	for _, col := range t.Columns {
		entity.Attributes = append(entity.Attributes, b.attribute(t, col, pk[col.Name]))
	}

	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 {
			continue
		}
		for i := range entity.Attributes {
			a := &entity.Attributes[i]
			if !strings.EqualFold(a.Name, fk.Columns[0]) {
				continue
			}
			ref := &schema.Reference{Table: fk.RefTable, OnDelete: fk.OnDelete, OnUpdate: fk.OnUpdate}
			if len(fk.RefColumns) > 0 {
				ref.Column = fk.RefColumns[0]
			}
			a.References = ref
		}
	}

	for _, u := range t.Uniques {
		if len(u) > 1 {
			entity.Uniques = append(entity.Uniques, columnNames(t, u))
		}
	}
	for _, idx := range t.Indexes {
		entity.Indexes = append(entity.Indexes, schema.Index{
			Name:    idx.Name,
			Columns: columnNames(t, idx.Columns),
			Unique:  idx.Unique,
		})
	}
	for _, c := range t.Checks {
		b.out.Checks = append(b.out.Checks, schema.Check{Entity: t.Name, Name: c.Name, Expression: c.Expression})
	}

	b.index[strings.ToLower(t.Name)] = len(b.out.Entities)
	b.out.Entities = append(b.out.Entities, entity)
}

// dedupe merges tables declared more than once. The later definition wins
// and keeps the position of the first.
func (b *builder) dedupe(tables []ddl.ParsedTable) []ddl.ParsedTable {
	out := make([]ddl.ParsedTable, 0, len(tables))
	pos := make(map[string]int, len(tables))
	for _, t := range tables {
		key := strings.ToLower(t.Name)
		if i, ok := pos[key]; ok {
			b.logger.Warn("duplicate table, later definition wins", "table", t.Name)
			out[i] = t
			continue
		}
		pos[key] = len(out)
		out = append(out, t)
	}
	return out
}

func (b *builder) attribute(t ddl.ParsedTable, col ddl.ParsedColumn, inPK bool) schema.Attribute {
	attr := schema.Attribute{
		Name:            col.Name,
		IsPrimaryKey:    col.PrimaryKey || inPK,
		IsUnique:        col.Unique,
		IsAutoIncrement: col.AutoIncrement,
		Comment:         col.Comment,
	}
	attr.IsOptional = col.Nullable && !attr.IsPrimaryKey
	if col.Default != nil {
		attr.Default = *col.Default
	}

	if enum := b.enumFor(col.Type); enum != nil && !col.Array {
		attr.Type = schema.TypeString
		attr.Enum = enum.Name
		return attr
	}
	if len(col.EnumValues) > 0 {
		name := t.Name + "_" + col.Name
		b.addEnum(schema.Enum{Name: name, Values: col.EnumValues})
		attr.Type = schema.TypeString
		attr.Enum = name
		return attr
	}

	info, known := dialect.Canonical(b.dialect, col)
	if !known {
		b.logger.Warn("unknown column type, using text",
			"dialect", b.dialect.String(), "table", t.Name, "column", col.Name, "type", col.RawType())
		b.problems = append(b.problems, fmt.Sprintf("entity %q: attribute %q has unknown type %s", t.Name, col.Name, col.RawType()))
	}
	attr.Type = info.Type
	attr.Length = info.Length
	attr.Precision = info.Precision
	attr.Scale = info.Scale
	return attr
}

// addRelations records one relation per foreign key of t.
func (b *builder) addRelations(t ddl.ParsedTable) {
	source := b.entity(t.Name)
	for _, fk := range t.ForeignKeys {
		rel := schema.Relation{
			Name:          fk.Name,
			SourceEntity:  source.Name,
			TargetEntity:  fk.RefTable,
			SourceColumns: columnNames(t, fk.Columns),
			TargetColumns: fk.RefColumns,
			OnDelete:      fk.OnDelete,
			OnUpdate:      fk.OnUpdate,
			Cardinality:   schema.ManyToOne,
		}
		if target := b.entity(fk.RefTable); target != nil {
			rel.TargetEntity = target.Name
			if len(rel.TargetColumns) == 0 {
				rel.TargetColumns = target.PrimaryKey
			}
			rel.TargetColumns = attributeNames(target, rel.TargetColumns)
		} else {
			b.logger.Debug("foreign key target not found", "table", t.Name, "target", fk.RefTable)
		}
		if rel.Name == "" {
			rel.Name = "fk_" + source.Name + "_" + strings.Join(rel.SourceColumns, "_")
		}
		if isUniqueSet(source, rel.SourceColumns) {
			rel.Cardinality = schema.OneToOne
		}

		for i := range source.Attributes {
			if ref := source.Attributes[i].References; ref != nil && strings.EqualFold(ref.Table, fk.RefTable) {
				ref.Table = rel.TargetEntity
				if ref.Column == "" && len(rel.TargetColumns) == 1 {
					ref.Column = rel.TargetColumns[0]
				}
			}
		}
		b.out.Relations = append(b.out.Relations, rel)
	}
}

func (b *builder) entity(name string) *schema.Entity {
	i, ok := b.index[strings.ToLower(name)]
	if !ok {
		return nil
	}
	return &b.out.Entities[i]
}

// isUniqueSet reports whether cols are exactly the primary key or a unique
// constraint of e.
func isUniqueSet(e *schema.Entity, cols []string) bool {
	if sameSet(cols, e.PrimaryKey) {
		return true
	}
	if len(cols) == 1 {
		if a := e.Attribute(cols[0]); a != nil && a.IsUnique {
			return true
		}
	}
	for _, u := range e.Uniques {
		if sameSet(cols, u) {
			return true
		}
	}
	return false
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for _, x := range a {
		found := false
		for _, y := range b {
			if strings.EqualFold(x, y) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// columnNames maps names to the spelling the table declares them with.
func columnNames(t ddl.ParsedTable, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n
		if col := t.Column(n); col != nil {
			out[i] = col.Name
		}
	}
	return out
}

func attributeNames(e *schema.Entity, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n
		for _, a := range e.Attributes {
			if strings.EqualFold(a.Name, n) {
				out[i] = a.Name
				break
			}
		}
	}
	return out
}
