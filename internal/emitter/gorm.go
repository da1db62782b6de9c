package emitter

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"sort"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// GORMFormatter renders GORM model structs as a gofmt-ed Go file.
type GORMFormatter struct {
	writer io.Writer
	opts   schema.Options
}

// NewGORMFormatter creates a GORM formatter.
func NewGORMFormatter(w io.Writer, opts schema.Options) *GORMFormatter {
	return &GORMFormatter{writer: w, opts: opts}
}

// gormPackage is the package clause of generated files.
const gormPackage = "models"

type goType struct {
	name   string
	pkg    string // import path the type needs, if any
	column string // gorm type tag
}

var gormTypes = map[schema.Type]goType{
	schema.TypeString:    {name: "string"},
	schema.TypeText:      {name: "string", column: "text"},
	schema.TypeInteger:   {name: "int32"},
	schema.TypeBigint:    {name: "int64"},
	schema.TypeDecimal:   {name: "string", column: "decimal"},
	schema.TypeNumber:    {name: "float64"},
	schema.TypeBoolean:   {name: "bool"},
	schema.TypeDate:      {name: "time.Time", pkg: "time", column: "date"},
	schema.TypeTimestamp: {name: "time.Time", pkg: "time"},
	schema.TypeUUID:      {name: "string", column: "uuid"},
	schema.TypeJSON:      {name: "json.RawMessage", pkg: "encoding/json", column: "json"},
	schema.TypeBinary:    {name: "[]byte"},
}

// Format renders every entity and formats the result with go/format.
func (f *GORMFormatter) Format(s *schema.Schema) error {
	var body bytes.Buffer
	imports := map[string]bool{}
	for _, e := range orderedEntities(s) {
		f.writeModel(&body, s, e, imports)
	}

	var out bytes.Buffer
	_, _ = fmt.Fprintf(&out, "// %s\n\npackage %s\n\n", header(f.opts), gormPackage)
	if len(imports) == 1 {
		for p := range imports {
			_, _ = fmt.Fprintf(&out, "import %q\n", p)
		}
	} else if len(imports) > 1 {
		paths := make([]string, 0, len(imports))
		for p := range imports {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		_, _ = fmt.Fprintln(&out, "import (")
		for _, p := range paths {
			_, _ = fmt.Fprintf(&out, "\t%q\n", p)
		}
		_, _ = fmt.Fprintln(&out, ")")
	}
	out.Write(body.Bytes())

	src, err := format.Source(out.Bytes())
	if err != nil {
		return fmt.Errorf("format generated models: %w", err)
	}
	_, err = f.writer.Write(src)
	return err
}

func (f *GORMFormatter) writeModel(w io.Writer, s *schema.Schema, e schema.Entity, imports map[string]bool) {
	name := goName(e.Name)
	indexTags := gormIndexTags(e)

	_, _ = fmt.Fprintln(w)
	if f.opts.IncludeComments && e.Comment != "" {
		_, _ = fmt.Fprintf(w, "// %s %s\n", name, oneLine(e.Comment))
	} else {
		_, _ = fmt.Fprintf(w, "// %s maps the %s table.\n", name, e.Name)
	}
	_, _ = fmt.Fprintf(w, "type %s struct {\n", name)

	used := make(map[string]bool, len(e.Attributes))
	fields := make(map[string]string, len(e.Attributes))
	for _, a := range e.Attributes {
		t, ok := gormTypes[a.Type]
		if !ok {
			f.opts.Log().Warn("unknown type, using string", "table", e.Name, "column", a.Name, "type", string(a.Type), "target", GORM.String())
			t = goType{name: "string", column: "text"}
		}
		if t.pkg != "" {
			imports[t.pkg] = true
		}
		typ := t.name
		if a.IsOptional && !strings.HasPrefix(typ, "[]") && typ != "json.RawMessage" {
			typ = "*" + typ
		}
		field := claimName(used, goName(a.Name))
		fields[a.Name] = field
		_, _ = fmt.Fprintf(w, "\t%s %s `gorm:\"%s\"`\n", field, typ, strings.Join(f.tags(e, a, t, indexTags[a.Name]), ";"))
	}

	for _, r := range foreignKeys(s, e.Name) {
		target := s.Entity(r.TargetEntity)
		if target == nil {
			f.opts.Log().Warn("relation target missing, skipping association", "relation", relationName(r), "target", r.TargetEntity)
			continue
		}
		var fks, refs []string
		for _, c := range r.SourceColumns {
			fks = append(fks, fields[c])
		}
		for _, c := range r.TargetColumns {
			refs = append(refs, goName(c))
		}
		tag := fmt.Sprintf("foreignKey:%s;references:%s", strings.Join(fks, ","), strings.Join(refs, ","))
		if c := gormConstraint(r); c != "" {
			tag += ";constraint:" + c
		}
		field := claimName(used, goName(r.TargetEntity))
		_, _ = fmt.Fprintf(w, "\t%s *%s `gorm:\"%s\"`\n", field, goName(target.Name), tag)
	}
	_, _ = fmt.Fprintln(w, "}")

	_, _ = fmt.Fprintf(w, "\n// TableName overrides the table name used by %s.\n", name)
	_, _ = fmt.Fprintf(w, "func (%s) TableName() string {\n\treturn %q\n}\n", name, e.Name)
}

func (f *GORMFormatter) tags(e schema.Entity, a schema.Attribute, t goType, indexes []string) []string {
	tags := []string{"column:" + a.Name}
	switch {
	case a.Type == schema.TypeString && a.Length > 0:
		tags = append(tags, fmt.Sprintf("size:%d", a.Length))
	case a.Type == schema.TypeDecimal && a.Precision > 0:
		tags = append(tags, fmt.Sprintf("type:decimal(%d,%d)", a.Precision, a.Scale))
	case t.column != "":
		tags = append(tags, "type:"+t.column)
	}
	if e.IsPrimaryKeyColumn(a.Name) || a.IsPrimaryKey {
		tags = append(tags, "primaryKey")
	}
	if a.IsAutoIncrement {
		tags = append(tags, "autoIncrement")
	}
	if !a.IsOptional {
		tags = append(tags, "not null")
	}
	if a.IsUnique && !singlePK(e, a) {
		tags = append(tags, "unique")
	}
	if def := gormDefault(a.Default); def != "" {
		tags = append(tags, "default:"+def)
	}
	tags = append(tags, indexes...)
	if f.opts.IncludeComments && a.Comment != "" {
		tags = append(tags, "comment:"+gormTagValue(a.Comment))
	}
	return tags
}

// gormIndexTags returns index and uniqueIndex tags per column. Columns of a
// composite index share the index name.
func gormIndexTags(e schema.Entity) map[string][]string {
	out := make(map[string][]string)
	for _, u := range e.Uniques {
		for _, c := range u {
			out[c] = append(out[c], "uniqueIndex:"+uniqueName(e.Name, u))
		}
	}
	for _, idx := range e.Indexes {
		kind := "index:"
		if idx.Unique {
			kind = "uniqueIndex:"
		}
		for _, c := range idx.Columns {
			out[c] = append(out[c], kind+indexName(e.Name, idx))
		}
	}
	return out
}

func gormDefault(def string) string {
	switch def {
	case "":
		return ""
	case schema.DefaultNow:
		return "CURRENT_TIMESTAMP"
	case schema.DefaultUUID:
		return "gen_random_uuid()"
	}
	if isStringLiteral(def) {
		return gormTagValue(unquoteLiteral(def))
	}
	return gormTagValue(def)
}

func gormConstraint(r schema.Relation) string {
	var parts []string
	if r.OnDelete != "" {
		parts = append(parts, "OnDelete:"+strings.ToUpper(r.OnDelete))
	}
	if r.OnUpdate != "" {
		parts = append(parts, "OnUpdate:"+strings.ToUpper(r.OnUpdate))
	}
	return strings.Join(parts, ",")
}

// gormTagValue strips characters that would end a tag or the struct tag
// literal.
func gormTagValue(v string) string {
	return strings.NewReplacer(";", ",", "`", "'", `"`, "'", "\n", " ").Replace(v)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
