package emitter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// TypeORMFormatter renders TypeORM entity classes in one TypeScript module.
type TypeORMFormatter struct {
	writer io.Writer
	opts   schema.Options
}

// NewTypeORMFormatter creates a TypeORM formatter.
func NewTypeORMFormatter(w io.Writer, opts schema.Options) *TypeORMFormatter {
	return &TypeORMFormatter{writer: w, opts: opts}
}

type tsType struct {
	column string // TypeORM column type
	ts     string // TypeScript property type
}

var typeormTypes = map[schema.Type]tsType{
	schema.TypeString:    {"varchar", "string"},
	schema.TypeText:      {"text", "string"},
	schema.TypeInteger:   {"int", "number"},
	schema.TypeBigint:    {"bigint", "string"},
	schema.TypeDecimal:   {"decimal", "string"},
	schema.TypeNumber:    {"float", "number"},
	schema.TypeBoolean:   {"boolean", "boolean"},
	schema.TypeDate:      {"date", "string"},
	schema.TypeTimestamp: {"timestamp", "Date"},
	schema.TypeUUID:      {"uuid", "string"},
	schema.TypeJSON:      {"json", "Record<string, unknown>"},
	schema.TypeBinary:    {"blob", "Buffer"},
}

// Format writes the import line, enums and one decorated class per entity.
func (f *TypeORMFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintf(f.writer, "// %s\n", header(f.opts))
	_, _ = fmt.Fprintln(f.writer, `import { Column, Entity, Index, JoinColumn, ManyToOne, OneToOne, PrimaryColumn, PrimaryGeneratedColumn, Unique } from "typeorm";`)

	for _, en := range s.Enums {
		_, _ = fmt.Fprintf(f.writer, "\nexport enum %s {\n", pascalCase(en.Name))
		for _, v := range en.Values {
			_, _ = fmt.Fprintf(f.writer, "  %s = %s,\n", pascalCase(v), strconv.Quote(v))
		}
		_, _ = fmt.Fprintln(f.writer, "}")
	}

	for _, e := range orderedEntities(s) {
		_, _ = fmt.Fprintln(f.writer)
		f.writeEntity(s, e)
	}
	return nil
}

func (f *TypeORMFormatter) writeEntity(s *schema.Schema, e schema.Entity) {
	if f.opts.IncludeComments && e.Comment != "" {
		_, _ = fmt.Fprintf(f.writer, "/** %s */\n", e.Comment)
	}
	_, _ = fmt.Fprintf(f.writer, "@Entity({ name: %s })\n", strconv.Quote(e.Name))
	for _, u := range e.Uniques {
		_, _ = fmt.Fprintf(f.writer, "@Unique(%s, [%s])\n", strconv.Quote(uniqueName(e.Name, u)), tsPropertyList(u))
	}
	for _, idx := range e.Indexes {
		opts := ""
		if idx.Unique {
			opts = ", { unique: true }"
		}
		_, _ = fmt.Fprintf(f.writer, "@Index(%s, [%s]%s)\n", strconv.Quote(indexName(e.Name, idx)), tsPropertyList(idx.Columns), opts)
	}
	_, _ = fmt.Fprintf(f.writer, "export class %s {\n", pascalCase(e.Name))

	used := make(map[string]bool, len(e.Attributes))
	for i, a := range e.Attributes {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer)
		}
		used[fieldName(a.Name)] = true
		f.writeColumn(s, e, a)
	}

	for _, r := range foreignKeys(s, e.Name) {
		if s.Entity(r.TargetEntity) == nil {
			f.opts.Log().Warn("relation target missing, skipping relation property", "relation", relationName(r), "target", r.TargetEntity)
			continue
		}
		target := pascalCase(r.TargetEntity)
		decorator := "ManyToOne"
		if r.Cardinality == schema.OneToOne {
			decorator = "OneToOne"
		}
		var opts []string
		if r.OnDelete != "" {
			opts = append(opts, "onDelete: "+strconv.Quote(strings.ToUpper(r.OnDelete)))
		}
		if r.OnUpdate != "" {
			opts = append(opts, "onUpdate: "+strconv.Quote(strings.ToUpper(r.OnUpdate)))
		}
		optStr := ""
		if len(opts) > 0 {
			optStr = ", { " + strings.Join(opts, ", ") + " }"
		}

		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintf(f.writer, "  @%s(() => %s%s)\n", decorator, target, optStr)
		_, _ = fmt.Fprintf(f.writer, "  @JoinColumn(%s)\n", joinColumns(r))
		_, _ = fmt.Fprintf(f.writer, "  %s?: %s;\n", claimName(used, camelCase(r.TargetEntity)), target)
	}
	_, _ = fmt.Fprintln(f.writer, "}")
}

func joinColumns(r schema.Relation) string {
	cols := make([]string, len(r.SourceColumns))
	for i, c := range r.SourceColumns {
		ref := ""
		if i < len(r.TargetColumns) {
			ref = ", referencedColumnName: " + strconv.Quote(r.TargetColumns[i])
		}
		cols[i] = "{ name: " + strconv.Quote(c) + ref + " }"
	}
	if len(cols) == 1 {
		return cols[0]
	}
	return "[" + strings.Join(cols, ", ") + "]"
}

func (f *TypeORMFormatter) writeColumn(s *schema.Schema, e schema.Entity, a schema.Attribute) {
	t, ok := typeormTypes[a.Type]
	if !ok {
		f.opts.Log().Warn("unknown type, using text", "table", e.Name, "column", a.Name, "type", string(a.Type), "target", TypeORM.String())
		t = tsType{"text", "string"}
	}

	prop := fieldName(a.Name)
	var opts []string
	if prop != a.Name {
		opts = append(opts, "name: "+strconv.Quote(a.Name))
	}

	pk := e.IsPrimaryKeyColumn(a.Name) || a.IsPrimaryKey
	decorator := "Column"
	switch {
	case pk && a.IsAutoIncrement:
		decorator = "PrimaryGeneratedColumn"
	case pk && a.Type == schema.TypeUUID && a.Default == schema.DefaultUUID:
		decorator = "PrimaryGeneratedColumn"
		opts = append([]string{`"uuid"`}, opts...)
	case pk:
		decorator = "PrimaryColumn"
	}

	if decorator != "PrimaryGeneratedColumn" {
		en := s.Enum(a.Enum)
		if a.Enum != "" && en != nil {
			opts = append(opts, `type: "enum"`, "enum: "+pascalCase(en.Name))
			t.ts = pascalCase(en.Name)
		} else {
			opts = append(opts, "type: "+strconv.Quote(t.column))
		}
		switch {
		case a.Type == schema.TypeString && a.Length > 0:
			opts = append(opts, "length: "+strconv.Itoa(a.Length))
		case a.Type == schema.TypeDecimal && a.Precision > 0:
			opts = append(opts, "precision: "+strconv.Itoa(a.Precision), "scale: "+strconv.Itoa(a.Scale))
		}
		if a.IsOptional {
			opts = append(opts, "nullable: true")
		}
		if a.IsUnique && !pk {
			opts = append(opts, "unique: true")
		}
		if def := typeormDefault(a.Default, en != nil); def != "" {
			opts = append(opts, "default: "+def)
		}
		if f.opts.IncludeComments && a.Comment != "" {
			opts = append(opts, "comment: "+strconv.Quote(a.Comment))
		}
	}

	args := ""
	if len(opts) > 0 {
		if strings.HasPrefix(opts[0], `"`) {
			args = opts[0]
			if len(opts) > 1 {
				args += ", { " + strings.Join(opts[1:], ", ") + " }"
			}
		} else {
			args = "{ " + strings.Join(opts, ", ") + " }"
		}
	}
	ts := t.ts
	if a.IsOptional {
		ts += " | null"
	}
	_, _ = fmt.Fprintf(f.writer, "  @%s(%s)\n", decorator, args)
	_, _ = fmt.Fprintf(f.writer, "  %s!: %s;\n", prop, ts)
}

func typeormDefault(def string, isEnum bool) string {
	switch def {
	case "":
		return ""
	case schema.DefaultNow:
		return `() => "CURRENT_TIMESTAMP"`
	case schema.DefaultUUID:
		return `() => "gen_random_uuid()"`
	case schema.DefaultTrue, schema.DefaultFalse:
		return def
	}
	if isStringLiteral(def) {
		return strconv.Quote(unquoteLiteral(def))
	}
	if _, err := strconv.ParseFloat(def, 64); err == nil && !isEnum {
		return def
	}
	return "() => " + strconv.Quote(def)
}

func tsPropertyList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strconv.Quote(fieldName(c))
	}
	return strings.Join(out, ", ")
}
