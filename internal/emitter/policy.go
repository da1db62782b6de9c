package emitter

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// Columns that scope a row to its owner.
var ownerColumns = []string{"owner_id", "user_id"}

// ownerColumn returns the first owner column of e, or "".
func ownerColumn(e schema.Entity) string {
	for _, name := range ownerColumns {
		if e.HasAttribute(name) {
			return name
		}
	}
	return ""
}

// writePolicies enables row level security on every table. Tables with an
// owner column get one policy per command restricted to the current user;
// other tables get a single policy for the authenticated role.
func (f *SQLFormatter) writePolicies(entities []schema.Entity) {
	if len(entities) == 0 {
		return
	}
	f.section("Row level security")
	for _, e := range entities {
		table := f.QuoteTable(e.Name)
		_, _ = fmt.Fprintf(f.writer, "ALTER TABLE %s ENABLE ROW LEVEL SECURITY;\n", table)

		owner := ownerColumn(e)
		if owner == "" {
			_, _ = fmt.Fprintf(f.writer, "CREATE POLICY %s ON %s FOR ALL TO authenticated USING (true) WITH CHECK (true);\n\n",
				f.d.quote(e.Name+"_authenticated_all"), table)
			continue
		}

		match := f.ownerMatch(owner)
		for _, cmd := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
			name := f.d.quote(e.Name + "_owner_" + strings.ToLower(cmd))
			switch cmd {
			case "INSERT":
				_, _ = fmt.Fprintf(f.writer, "CREATE POLICY %s ON %s FOR INSERT WITH CHECK (%s);\n", name, table, match)
			case "UPDATE":
				_, _ = fmt.Fprintf(f.writer, "CREATE POLICY %s ON %s FOR UPDATE USING (%s) WITH CHECK (%s);\n", name, table, match, match)
			default:
				_, _ = fmt.Fprintf(f.writer, "CREATE POLICY %s ON %s FOR %s USING (%s);\n", name, table, cmd, match)
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

// ownerMatch compares the owner column with the current user: auth.uid() on
// Supabase, a session setting elsewhere.
func (f *SQLFormatter) ownerMatch(column string) string {
	if f.target == Supabase {
		return f.d.quote(column) + " = auth.uid()"
	}
	return f.d.quote(column) + "::text = current_setting('app.current_user_id', true)"
}
