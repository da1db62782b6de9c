package schema

import "fmt"

// Validate checks the data-model invariants of s. In strict mode it also
// reports relations whose target entity or columns do not exist and
// attributes whose type is outside the canonical vocabulary.
func Validate(s *Schema, strict bool) error {
	if s == nil {
		return &ValidationError{Problems: []string{"schema is nil"}}
	}

	var problems []string
	seen := make(map[string]bool, len(s.Entities))

	for _, e := range s.Entities {
		if e.Name == "" {
			problems = append(problems, "entity with empty name")
			continue
		}
		if seen[e.Name] {
			problems = append(problems, fmt.Sprintf("duplicate entity %q", e.Name))
		}
		seen[e.Name] = true

		cols := make(map[string]bool, len(e.Attributes))
		for _, a := range e.Attributes {
			if cols[a.Name] {
				problems = append(problems, fmt.Sprintf("entity %q: duplicate attribute %q", e.Name, a.Name))
			}
			cols[a.Name] = true

			if a.IsPrimaryKey && a.IsOptional {
				problems = append(problems, fmt.Sprintf("entity %q: primary key attribute %q is optional", e.Name, a.Name))
			}
			if strict && !a.Type.IsCanonical() {
				problems = append(problems, fmt.Sprintf("entity %q: attribute %q has non-canonical type %q", e.Name, a.Name, a.Type))
			}
			if strict && a.Enum != "" && s.Enum(a.Enum) == nil {
				problems = append(problems, fmt.Sprintf("entity %q: attribute %q uses undeclared enum %q", e.Name, a.Name, a.Enum))
			}
		}

		for _, pk := range e.PrimaryKey {
			if !cols[pk] {
				problems = append(problems, fmt.Sprintf("entity %q: primary key column %q does not exist", e.Name, pk))
			}
		}
	}

	if strict {
		for _, r := range s.Relations {
			problems = append(problems, unresolved(s, r)...)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Unresolved returns a description of every relation in s that points at a
// missing entity or column.
func Unresolved(s *Schema) []string {
	var out []string
	for _, r := range s.Relations {
		out = append(out, unresolved(s, r)...)
	}
	return out
}

func unresolved(s *Schema, r Relation) []string {
	target := s.Entity(r.TargetEntity)
	if target == nil {
		return []string{fmt.Sprintf("relation %s -> %s: target entity does not exist", r.SourceEntity, r.TargetEntity)}
	}
	var out []string
	for _, col := range r.TargetColumns {
		if !target.HasAttribute(col) {
			out = append(out, fmt.Sprintf("relation %s -> %s: target column %q does not exist", r.SourceEntity, r.TargetEntity, col))
		}
	}
	return out
}
