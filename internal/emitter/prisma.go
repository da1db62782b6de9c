package emitter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// PrismaFormatter renders a Prisma schema file.
type PrismaFormatter struct {
	writer io.Writer
	opts   schema.Options
}

// NewPrismaFormatter creates a Prisma formatter.
func NewPrismaFormatter(w io.Writer, opts schema.Options) *PrismaFormatter {
	return &PrismaFormatter{writer: w, opts: opts}
}

var prismaTypes = map[schema.Type]string{
	schema.TypeString:    "String",
	schema.TypeText:      "String",
	schema.TypeInteger:   "Int",
	schema.TypeBigint:    "BigInt",
	schema.TypeDecimal:   "Decimal",
	schema.TypeNumber:    "Float",
	schema.TypeBoolean:   "Boolean",
	schema.TypeDate:      "DateTime",
	schema.TypeTimestamp: "DateTime",
	schema.TypeUUID:      "String",
	schema.TypeJSON:      "Json",
	schema.TypeBinary:    "Bytes",
}

var prismaActions = map[string]string{
	"CASCADE":     "Cascade",
	"SET NULL":    "SetNull",
	"SET DEFAULT": "SetDefault",
	"RESTRICT":    "Restrict",
	"NO ACTION":   "NoAction",
}

// Format writes datasource and generator blocks, enums, then one model per
// entity with relation fields on both sides.
func (f *PrismaFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintf(f.writer, "// %s\n\n", header(f.opts))
	_, _ = fmt.Fprintln(f.writer, "datasource db {\n  provider = \"postgresql\"\n  url      = env(\"DATABASE_URL\")\n}")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintln(f.writer, "generator client {\n  provider = \"prisma-client-js\"\n}")

	for _, en := range s.Enums {
		_, _ = fmt.Fprintf(f.writer, "\nenum %s {\n", pascalCase(en.Name))
		for _, v := range en.Values {
			if id := prismaEnumValue(v); id != v {
				_, _ = fmt.Fprintf(f.writer, "  %s @map(%q)\n", id, v)
			} else {
				_, _ = fmt.Fprintf(f.writer, "  %s\n", v)
			}
		}
		_, _ = fmt.Fprintf(f.writer, "  @@map(%q)\n}\n", en.Name)
	}

	fields := f.relationFields(s)
	for _, e := range orderedEntities(s) {
		_, _ = fmt.Fprintln(f.writer)
		f.writeModel(s, e, fields[e.Name])
	}
	return nil
}

// relationFields builds the owning and back-reference fields of every
// resolved relation, keyed by the model they appear on.
func (f *PrismaFormatter) relationFields(s *schema.Schema) map[string][]string {
	used := make(map[string]map[string]bool, len(s.Entities))
	for _, e := range s.Entities {
		names := make(map[string]bool, len(e.Attributes))
		for _, a := range e.Attributes {
			names[prismaField(a.Name)] = true
		}
		used[e.Name] = names
	}

	pairs := make(map[[2]string]int)
	for _, e := range s.Entities {
		for _, r := range foreignKeys(s, e.Name) {
			pairs[pairKey(r.SourceEntity, r.TargetEntity)]++
		}
	}

	out := make(map[string][]string)
	for _, e := range s.Entities {
		for _, r := range foreignKeys(s, e.Name) {
			if s.Entity(r.TargetEntity) == nil {
				f.opts.Log().Warn("relation target missing, skipping relation field", "relation", relationName(r), "target", r.TargetEntity)
				continue
			}
			named := r.SourceEntity == r.TargetEntity || pairs[pairKey(r.SourceEntity, r.TargetEntity)] > 1
			label := ""
			if named {
				label = strconv.Quote(relationName(r)) + ", "
			}

			owner := claimName(used[r.SourceEntity], camelCase(r.TargetEntity))
			optional := ""
			src := s.Entity(r.SourceEntity)
			for _, col := range r.SourceColumns {
				if a := src.Attribute(col); a != nil && a.IsOptional {
					optional = "?"
				}
			}
			var attrs []string
			attrs = append(attrs, "fields: ["+prismaFieldList(r.SourceColumns)+"]", "references: ["+prismaFieldList(r.TargetColumns)+"]")
			if a, ok := prismaActions[strings.ToUpper(r.OnDelete)]; ok {
				attrs = append(attrs, "onDelete: "+a)
			}
			if a, ok := prismaActions[strings.ToUpper(r.OnUpdate)]; ok {
				attrs = append(attrs, "onUpdate: "+a)
			}
			out[r.SourceEntity] = append(out[r.SourceEntity],
				fmt.Sprintf("%s %s%s @relation(%s%s)", owner, pascalCase(r.TargetEntity), optional, label, strings.Join(attrs, ", ")))

			backType := pascalCase(r.SourceEntity) + "[]"
			backName := plural(camelCase(r.SourceEntity))
			if r.Cardinality == schema.OneToOne {
				backType = pascalCase(r.SourceEntity) + "?"
				backName = camelCase(r.SourceEntity)
			}
			if named {
				backName += pascalCase(relationName(r))
			}
			back := claimName(used[r.TargetEntity], backName)
			line := fmt.Sprintf("%s %s", back, backType)
			if named {
				line += fmt.Sprintf(" @relation(%s)", strconv.Quote(relationName(r)))
			}
			out[r.TargetEntity] = append(out[r.TargetEntity], line)
		}
	}
	return out
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func (f *PrismaFormatter) writeModel(s *schema.Schema, e schema.Entity, relations []string) {
	model := pascalCase(e.Name)
	if f.opts.IncludeComments && e.Comment != "" {
		_, _ = fmt.Fprintf(f.writer, "/// %s\n", e.Comment)
	}
	_, _ = fmt.Fprintf(f.writer, "model %s {\n", model)

	for _, a := range e.Attributes {
		if f.opts.IncludeComments && a.Comment != "" {
			_, _ = fmt.Fprintf(f.writer, "  /// %s\n", a.Comment)
		}
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.field(s, e, a))
	}
	for _, line := range relations {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", line)
	}

	var blocks []string
	if pk := primaryKey(e); len(pk) > 1 {
		blocks = append(blocks, "@@id(["+prismaFieldList(pk)+"])")
	}
	for _, u := range e.Uniques {
		blocks = append(blocks, fmt.Sprintf("@@unique([%s], map: %q)", prismaFieldList(u), uniqueName(e.Name, u)))
	}
	for _, idx := range e.Indexes {
		kind := "@@index"
		if idx.Unique {
			kind = "@@unique"
		}
		blocks = append(blocks, fmt.Sprintf("%s([%s], map: %q)", kind, prismaFieldList(idx.Columns), indexName(e.Name, idx)))
	}
	if model != e.Name {
		blocks = append(blocks, fmt.Sprintf("@@map(%q)", e.Name))
	}
	if len(blocks) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		for _, b := range blocks {
			_, _ = fmt.Fprintf(f.writer, "  %s\n", b)
		}
	}
	_, _ = fmt.Fprintln(f.writer, "}")
}

func (f *PrismaFormatter) field(s *schema.Schema, e schema.Entity, a schema.Attribute) string {
	typ, ok := prismaTypes[a.Type]
	if !ok {
		f.opts.Log().Warn("unknown type, using String", "table", e.Name, "column", a.Name, "type", string(a.Type), "target", Prisma.String())
		typ = "String"
	}
	enum := s.Enum(a.Enum)
	if a.Enum != "" && enum != nil {
		typ = pascalCase(enum.Name)
	}
	if a.IsOptional {
		typ += "?"
	}

	var attrs []string
	if singlePK(e, a) {
		attrs = append(attrs, "@id")
	}
	if def := f.defaultValue(a, enum != nil); def != "" {
		attrs = append(attrs, "@default("+def+")")
	}
	if a.IsUnique && !singlePK(e, a) {
		attrs = append(attrs, "@unique")
	}
	if native := prismaNative(a); native != "" && enum == nil {
		attrs = append(attrs, native)
	}
	name := prismaField(a.Name)
	if name != a.Name {
		attrs = append(attrs, fmt.Sprintf("@map(%q)", a.Name))
	}

	line := name + " " + typ
	if len(attrs) > 0 {
		line += " " + strings.Join(attrs, " ")
	}
	return line
}

func (f *PrismaFormatter) defaultValue(a schema.Attribute, isEnum bool) string {
	if a.IsAutoIncrement {
		return "autoincrement()"
	}
	switch a.Default {
	case "":
		return ""
	case schema.DefaultNow:
		return "now()"
	case schema.DefaultUUID:
		return "uuid()"
	case schema.DefaultTrue, schema.DefaultFalse:
		return a.Default
	}
	if isStringLiteral(a.Default) {
		v := unquoteLiteral(a.Default)
		if isEnum {
			return prismaEnumValue(v)
		}
		return strconv.Quote(v)
	}
	if _, err := strconv.ParseFloat(a.Default, 64); err == nil {
		return a.Default
	}
	return "dbgenerated(" + strconv.Quote(a.Default) + ")"
}

// prismaNative returns the @db attribute narrowing the scalar type, or "".
func prismaNative(a schema.Attribute) string {
	switch {
	case a.Type == schema.TypeString && a.Length > 0:
		return fmt.Sprintf("@db.VarChar(%d)", a.Length)
	case a.Type == schema.TypeDecimal && a.Precision > 0:
		return fmt.Sprintf("@db.Decimal(%d, %d)", a.Precision, a.Scale)
	case a.Type == schema.TypeUUID:
		return "@db.Uuid"
	case a.Type == schema.TypeDate:
		return "@db.Date"
	}
	return ""
}

// prismaField strips characters Prisma field names cannot start with.
func prismaField(name string) string {
	return fieldName(name)
}

func prismaFieldList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prismaField(c)
	}
	return strings.Join(out, ", ")
}

// prismaEnumValue makes an enum value a valid Prisma identifier.
func prismaEnumValue(v string) string {
	if isPlainIdent(v) {
		return v
	}
	return camelCase(v)
}

func plural(name string) string {
	if strings.HasSuffix(name, "s") {
		return name
	}
	return name + "s"
}
