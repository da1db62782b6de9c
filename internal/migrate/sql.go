package migrate

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tordrt/schemabridge/internal/emitter"
	"github.com/tordrt/schemabridge/internal/schema"
)

// Result is a generated migration script.
type Result struct {
	SQL      string
	Warnings []Warning
	// Success is true once the script is complete. Warnings do not change it.
	Success bool
}

// GenerateSQL renders d as a single PostgreSQL transaction: new enum types
// and tables first, then column changes, then drops. Every drop produces a
// DataLoss warning.
func GenerateSQL(d *Diff, opts schema.Options) (Result, error) {
	if d == nil || d.to == nil || d.from == nil {
		return Result{}, errors.New("generate migration: diff was not produced by Compare")
	}

	g := &generator{
		d:       d,
		opts:    opts,
		removed: make(map[string]bool, len(d.TablesToRemove)),
	}
	for _, e := range d.TablesToRemove {
		g.removed[e.Name] = true
	}

	var b strings.Builder
	g.fmt = emitter.NewSQLFormatter(&b, emitter.PostgreSQL, opts)

	fmt.Fprintf(&b, "-- Generated by schemabridge at %s\n", opts.Timestamp().Format(time.RFC3339))
	b.WriteString("BEGIN;\n")

	g.createEnums(&b)
	g.createTables(&b)
	for _, td := range d.TablesToModify {
		g.alterTable(&b, td)
	}
	g.dropTables(&b)

	b.WriteString("\nCOMMIT;\n")
	return Result{SQL: b.String(), Warnings: g.warnings, Success: true}, nil
}

type generator struct {
	d        *Diff
	opts     schema.Options
	fmt      *emitter.SQLFormatter
	removed  map[string]bool
	warnings []Warning
}

func (g *generator) warn(kind WarningKind, table, column, detail string) {
	g.warnings = append(g.warnings, Warning{Kind: kind, Table: table, Column: column, Detail: detail})
}

func (g *generator) createEnums(b *strings.Builder) {
	for _, en := range g.d.to.Enums {
		if g.d.from.Enum(en.Name) != nil {
			continue
		}
		if stmt := g.fmt.CreateEnum(en); stmt != "" {
			fmt.Fprintf(b, "\n%s\n", stmt)
		}
	}
}

func (g *generator) createTables(b *strings.Builder) {
	if len(g.d.TablesToAdd) == 0 {
		return
	}
	ordered, _ := emitter.Order(g.d.TablesToAdd, g.d.to.Relations)
	for _, e := range ordered {
		b.WriteString("\n")
		g.fmt.WriteCreateTable(g.d.to, e)
	}
	for _, e := range ordered {
		for _, r := range g.d.to.RelationsFrom(e.Name) {
			g.addForeignKey(b, r)
		}
	}
}

// addForeignKey attaches r unless its target is gone, which is reported
// instead.
func (g *generator) addForeignKey(b *strings.Builder, r schema.Relation) {
	if g.removed[r.TargetEntity] || g.d.to.Entity(r.TargetEntity) == nil {
		g.warn(UnresolvedReference, r.SourceEntity, strings.Join(r.SourceColumns, ","),
			fmt.Sprintf("references table %q, which does not exist after this migration; the foreign key is not created", r.TargetEntity))
		return
	}
	fmt.Fprintf(b, "%s\n", g.fmt.AddForeignKey(r))
}

func (g *generator) alterTable(b *strings.Builder, td TableDiff) {
	entity := g.d.to.Entity(td.Name)
	table := g.fmt.QuoteTable(td.Name)
	b.WriteString("\n")

	for _, a := range td.ColumnsToAdd {
		def, check := g.fmt.ColumnDefinition(g.d.to, *entity, a)
		fmt.Fprintf(b, "ALTER TABLE %s ADD COLUMN %s;\n", table, def)
		if check != "" {
			fmt.Fprintf(b, "ALTER TABLE %s ADD %s;\n", table, check)
		}
	}
	for _, r := range g.d.to.RelationsFrom(td.Name) {
		if touchesAny(r.SourceColumns, td.ColumnsToAdd) {
			g.addForeignKey(b, r)
		}
	}

	for _, c := range td.ColumnsToModify {
		g.alterColumn(b, *entity, table, c)
	}

	for _, a := range td.ColumnsToRemove {
		fmt.Fprintf(b, "ALTER TABLE %s DROP COLUMN %s;\n", table, g.fmt.QuoteIdent(a.Name))
		g.warn(DataLoss, td.Name, a.Name, "dropping the column permanently deletes its values in every row")
	}
}

func (g *generator) alterColumn(b *strings.Builder, e schema.Entity, table string, c ColumnDiff) {
	col := g.fmt.QuoteIdent(c.Name)
	alter := "ALTER TABLE " + table + " ALTER COLUMN " + col

	if c.Has(FacetType) {
		typ := g.fmt.ColumnType(g.d.to, e, c.New)
		fmt.Fprintf(b, "%s TYPE %s USING %s::%s;\n", alter, typ, col, typ)
		if narrowing(c.Old, c.New) {
			g.warn(TypeNarrowing, e.Name, c.Name,
				fmt.Sprintf("changing type from %s to %s may truncate or reject existing values", describe(c.Old), describe(c.New)))
		}
	}
	if c.Has(FacetNullability) {
		if c.New.IsOptional {
			fmt.Fprintf(b, "%s DROP NOT NULL;\n", alter)
		} else {
			fmt.Fprintf(b, "%s SET NOT NULL;\n", alter)
		}
	}
	if c.Has(FacetDefault) {
		if c.New.Default == "" {
			fmt.Fprintf(b, "%s DROP DEFAULT;\n", alter)
		} else {
			fmt.Fprintf(b, "%s SET DEFAULT %s;\n", alter, g.fmt.DefaultValue(c.New.Default))
		}
	}
	if c.Has(FacetUniqueness) {
		name := g.fmt.QuoteIdent(e.Name + "_" + c.Name + "_key")
		if c.New.IsUnique {
			fmt.Fprintf(b, "ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);\n", table, name, col)
		} else {
			fmt.Fprintf(b, "ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;\n", table, name)
		}
	}
}

// dropTables drops removed tables, referencing tables first.
func (g *generator) dropTables(b *strings.Builder) {
	if len(g.d.TablesToRemove) == 0 {
		return
	}
	ordered, _ := emitter.Order(g.d.TablesToRemove, g.d.from.Relations)
	slices.Reverse(ordered)
	b.WriteString("\n")
	for _, e := range ordered {
		fmt.Fprintf(b, "DROP TABLE %s;\n", g.fmt.QuoteTable(e.Name))
		g.warn(DataLoss, e.Name, "", "dropping the table permanently deletes all of its rows")
	}
}

func touchesAny(cols []string, added []schema.Attribute) bool {
	for _, a := range added {
		if slices.Contains(cols, a.Name) {
			return true
		}
	}
	return false
}

// widening lists type changes that never lose information.
var widening = map[[2]schema.Type]bool{
	{schema.TypeInteger, schema.TypeBigint}:  true,
	{schema.TypeInteger, schema.TypeDecimal}: true,
	{schema.TypeInteger, schema.TypeNumber}:  true,
	{schema.TypeBigint, schema.TypeDecimal}:  true,
	{schema.TypeString, schema.TypeText}:     true,
	{schema.TypeDate, schema.TypeTimestamp}:  true,
	{schema.TypeUUID, schema.TypeText}:       true,
}

// narrowing reports whether changing from one definition to another may
// truncate or reject existing values.
func narrowing(from, to schema.Attribute) bool {
	if to.Enum != "" && to.Enum != from.Enum {
		return true
	}
	if from.Type != to.Type {
		return to.Type != schema.TypeText && !widening[[2]schema.Type{from.Type, to.Type}]
	}
	switch to.Type {
	case schema.TypeString:
		return to.Length > 0 && (from.Length == 0 || to.Length < from.Length)
	case schema.TypeDecimal:
		return to.Precision > 0 && (from.Precision == 0 || to.Precision < from.Precision || to.Scale < from.Scale)
	}
	return false
}

func describe(a schema.Attribute) string {
	switch {
	case a.Enum != "":
		return "enum " + a.Enum
	case a.Type == schema.TypeString && a.Length > 0:
		return fmt.Sprintf("string(%d)", a.Length)
	case a.Type == schema.TypeDecimal && a.Precision > 0:
		return fmt.Sprintf("decimal(%d,%d)", a.Precision, a.Scale)
	}
	return string(a.Type)
}
