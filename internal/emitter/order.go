package emitter

import "github.com/tordrt/schemabridge/internal/schema"

// Order sorts entities so that every entity comes after the entities its
// foreign keys point at. Each round places the first remaining entity whose
// targets are all placed; when none qualifies the entities form a cycle and
// the first remaining one is placed anyway and reported in forced. Self
// references and targets outside the list are ignored. The inputs are not
// modified.
func Order(entities []schema.Entity, relations []schema.Relation) (ordered []schema.Entity, forced []string) {
	known := make(map[string]bool, len(entities))
	for _, e := range entities {
		known[e.Name] = true
	}

	deps := make(map[string][]string, len(entities))
	addDep := func(from, to string) {
		if from == to || !known[to] {
			return
		}
		deps[from] = append(deps[from], to)
	}
	for _, e := range entities {
		for _, a := range e.Attributes {
			if a.References != nil {
				addDep(e.Name, a.References.Table)
			}
		}
	}
	for _, r := range relations {
		addDep(r.SourceEntity, r.TargetEntity)
	}

	remaining := make([]schema.Entity, len(entities))
	copy(remaining, entities)
	placed := make(map[string]bool, len(entities))
	ordered = make([]schema.Entity, 0, len(entities))

	for len(remaining) > 0 {
		next := -1
		for i, e := range remaining {
			if ready(deps[e.Name], placed) {
				next = i
				break
			}
		}
		if next < 0 {
			next = 0
			forced = append(forced, remaining[0].Name)
		}
		placed[remaining[next].Name] = true
		ordered = append(ordered, remaining[next])
		remaining = append(remaining[:next], remaining[next+1:]...)
	}
	return ordered, forced
}

func ready(deps []string, placed map[string]bool) bool {
	for _, d := range deps {
		if !placed[d] {
			return false
		}
	}
	return true
}

// orderedEntities returns the entities of s in dependency order, the order
// every emitter writes them in.
func orderedEntities(s *schema.Schema) []schema.Entity {
	out, _ := Order(s.Entities, s.Relations)
	return out
}
