// Package schema defines the canonical, dialect-neutral schema model shared by
// every parser, emitter and the migration differ.
package schema

// Type is a canonical column type.
type Type string

// Canonical type vocabulary.
const (
	TypeString    Type = "string"
	TypeText      Type = "text"
	TypeInteger   Type = "integer"
	TypeBigint    Type = "bigint"
	TypeDecimal   Type = "decimal"
	TypeNumber    Type = "number"
	TypeBoolean   Type = "boolean"
	TypeDate      Type = "date"
	TypeTimestamp Type = "timestamp"
	TypeUUID      Type = "uuid"
	TypeJSON      Type = "json"
	TypeBinary    Type = "binary"
)

// Types lists the canonical vocabulary in a stable order.
var Types = []Type{
	TypeString, TypeText, TypeInteger, TypeBigint, TypeDecimal, TypeNumber,
	TypeBoolean, TypeDate, TypeTimestamp, TypeUUID, TypeJSON, TypeBinary,
}

// IsCanonical reports whether t belongs to the canonical vocabulary.
func (t Type) IsCanonical() bool {
	for _, c := range Types {
		if c == t {
			return true
		}
	}
	return false
}

// Shared default vocabulary produced by every dialect normalizer.
const (
	DefaultNow   = "now()"
	DefaultUUID  = "uuid()"
	DefaultTrue  = "true"
	DefaultFalse = "false"
)

// Schema represents a complete schema: the unit of conversion.
type Schema struct {
	Entities  []Entity   `json:"entities" yaml:"entities"`
	Relations []Relation `json:"relations,omitempty" yaml:"relations,omitempty"`
	Enums     []Enum     `json:"enums,omitempty" yaml:"enums,omitempty"`
	Checks    []Check    `json:"checks,omitempty" yaml:"checks,omitempty"`
	Comment   string     `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Entity represents a table
type Entity struct {
	Name       string      `json:"name" yaml:"name"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
	PrimaryKey []string    `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty"`
	Indexes    []Index     `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	Uniques    [][]string  `json:"uniques,omitempty" yaml:"uniques,omitempty"`
	Comment    string      `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Attribute represents a table column
type Attribute struct {
	Name            string     `json:"name" yaml:"name"`
	Type            Type       `json:"type" yaml:"type"`
	Length          int        `json:"length,omitempty" yaml:"length,omitempty"`
	Precision       int        `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale           int        `json:"scale,omitempty" yaml:"scale,omitempty"`
	IsPrimaryKey    bool       `json:"isPrimaryKey,omitempty" yaml:"isPrimaryKey,omitempty"`
	IsOptional      bool       `json:"isOptional,omitempty" yaml:"isOptional,omitempty"`
	IsUnique        bool       `json:"isUnique,omitempty" yaml:"isUnique,omitempty"`
	IsAutoIncrement bool       `json:"isAutoIncrement,omitempty" yaml:"isAutoIncrement,omitempty"`
	Default         string     `json:"default,omitempty" yaml:"default,omitempty"`
	References      *Reference `json:"references,omitempty" yaml:"references,omitempty"`
	Enum            string     `json:"enum,omitempty" yaml:"enum,omitempty"`
	Comment         string     `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Reference is a single-column foreign key carried on the attribute itself.
type Reference struct {
	Table    string `json:"table" yaml:"table"`
	Column   string `json:"column" yaml:"column"`
	OnDelete string `json:"onDelete,omitempty" yaml:"onDelete,omitempty"`
	OnUpdate string `json:"onUpdate,omitempty" yaml:"onUpdate,omitempty"`
}

// Relation represents a resolved foreign key relationship
type Relation struct {
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	SourceEntity  string   `json:"sourceEntity" yaml:"sourceEntity"`
	TargetEntity  string   `json:"targetEntity" yaml:"targetEntity"`
	SourceColumns []string `json:"sourceColumns" yaml:"sourceColumns"`
	TargetColumns []string `json:"targetColumns" yaml:"targetColumns"`
	OnDelete      string   `json:"onDelete,omitempty" yaml:"onDelete,omitempty"`
	OnUpdate      string   `json:"onUpdate,omitempty" yaml:"onUpdate,omitempty"`
	Cardinality   string   `json:"cardinality,omitempty" yaml:"cardinality,omitempty"` // N:1, 1:1
}

// Relation cardinalities.
const (
	ManyToOne = "N:1"
	OneToOne  = "1:1"
)

// Index represents a secondary index
type Index struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Columns []string `json:"columns" yaml:"columns"`
	Unique  bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// Enum is a named set of allowed string values.
type Enum struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// Check is a table-level check constraint.
type Check struct {
	Entity     string `json:"entity" yaml:"entity"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Expression string `json:"expression" yaml:"expression"`
}

// Entity returns the entity with the given name, or nil.
func (s *Schema) Entity(name string) *Entity {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i]
		}
	}
	return nil
}

// Enum returns the enum with the given name, or nil.
func (s *Schema) Enum(name string) *Enum {
	for i := range s.Enums {
		if s.Enums[i].Name == name {
			return &s.Enums[i]
		}
	}
	return nil
}

// ChecksFor returns the check constraints declared on an entity.
func (s *Schema) ChecksFor(entity string) []Check {
	var out []Check
	for _, c := range s.Checks {
		if c.Entity == entity {
			out = append(out, c)
		}
	}
	return out
}

// RelationsFrom returns the relations whose source is the given entity.
func (s *Schema) RelationsFrom(entity string) []Relation {
	var out []Relation
	for _, r := range s.Relations {
		if r.SourceEntity == entity {
			out = append(out, r)
		}
	}
	return out
}

// RelationsTo returns the relations pointing at the given entity.
func (s *Schema) RelationsTo(entity string) []Relation {
	var out []Relation
	for _, r := range s.Relations {
		if r.TargetEntity == entity {
			out = append(out, r)
		}
	}
	return out
}

// Attribute returns the attribute with the given name, or nil.
func (e *Entity) Attribute(name string) *Attribute {
	for i := range e.Attributes {
		if e.Attributes[i].Name == name {
			return &e.Attributes[i]
		}
	}
	return nil
}

// IsPrimaryKeyColumn reports whether name is part of the primary key.
func (e *Entity) IsPrimaryKeyColumn(name string) bool {
	for _, pk := range e.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

// HasAttribute reports whether the entity declares a column with that name.
func (e *Entity) HasAttribute(name string) bool {
	return e.Attribute(name) != nil
}
