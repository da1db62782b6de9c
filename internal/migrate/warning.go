package migrate

import "fmt"

// WarningKind classifies a migration warning.
type WarningKind int

const (
	// DataLoss marks a dropped table or column.
	DataLoss WarningKind = iota
	// TypeNarrowing marks a type change that may truncate or reject values.
	TypeNarrowing
	// UnresolvedReference marks an added table or column whose foreign key
	// points at a table that will not exist.
	UnresolvedReference
)

func (k WarningKind) String() string {
	switch k {
	case DataLoss:
		return "data loss"
	case TypeNarrowing:
		return "type narrowing"
	case UnresolvedReference:
		return "unresolved reference"
	}
	return "unknown"
}

// Warning describes a statement the caller should review before applying the
// migration. Warnings never stop generation.
type Warning struct {
	Kind   WarningKind
	Table  string
	Column string
	Detail string
}

func (w Warning) String() string {
	where := fmt.Sprintf("table %q", w.Table)
	if w.Column != "" {
		where = fmt.Sprintf("column %q.%q", w.Table, w.Column)
	}
	return fmt.Sprintf("%s: %s: %s", w.Kind, where, w.Detail)
}
