package emitter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemabridge/internal/schema"
	"github.com/tordrt/schemabridge/internal/testutil"
)

func usersSchema() *schema.Schema {
	return &schema.Schema{Entities: []schema.Entity{{
		Name:       "Users",
		PrimaryKey: []string{"Id"},
		Attributes: []schema.Attribute{
			{Name: "Id", Type: schema.TypeInteger, IsPrimaryKey: true, IsAutoIncrement: true},
			{Name: "Email", Type: schema.TypeString, Length: 255, IsUnique: true},
			{Name: "CreatedAt", Type: schema.TypeTimestamp, IsOptional: true, Default: schema.DefaultNow},
		},
	}}}
}

// mutualSchema has two tables referencing each other.
func mutualSchema() *schema.Schema {
	return &schema.Schema{
		Entities: []schema.Entity{
			{Name: "a", PrimaryKey: []string{"id"}, Attributes: []schema.Attribute{
				{Name: "id", Type: schema.TypeInteger, IsPrimaryKey: true},
				{Name: "b_id", Type: schema.TypeInteger, IsOptional: true},
			}},
			{Name: "b", PrimaryKey: []string{"id"}, Attributes: []schema.Attribute{
				{Name: "id", Type: schema.TypeInteger, IsPrimaryKey: true},
				{Name: "a_id", Type: schema.TypeInteger, IsOptional: true},
			}},
		},
		Relations: []schema.Relation{
			{Name: "fk_a_b", SourceEntity: "a", TargetEntity: "b", SourceColumns: []string{"b_id"}, TargetColumns: []string{"id"}, Cardinality: schema.ManyToOne},
			{Name: "fk_b_a", SourceEntity: "b", TargetEntity: "a", SourceColumns: []string{"a_id"}, TargetColumns: []string{"id"}, Cardinality: schema.ManyToOne},
		},
	}
}

func testOptions(t *testing.T) schema.Options {
	return schema.Options{Now: testutil.FixedNow(), Logger: testutil.NewTestLogger(t)}
}

func emit(t *testing.T, s *schema.Schema, target Target, opts schema.Options) string {
	t.Helper()
	out, err := Emit(s, target, opts)
	require.NoError(t, err)
	return out
}

func names(entities []schema.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name      string
		entities  []schema.Entity
		relations []schema.Relation
		want      []string
		forced    []string
	}{
		{
			name:     "referenced table first",
			entities: []schema.Entity{{Name: "b"}, {Name: "a"}},
			relations: []schema.Relation{
				{SourceEntity: "b", TargetEntity: "a"},
			},
			want: []string{"a", "b"},
		},
		{
			name: "attribute references count",
			entities: []schema.Entity{
				{Name: "posts", Attributes: []schema.Attribute{{Name: "user_id", References: &schema.Reference{Table: "users", Column: "id"}}}},
				{Name: "users"},
			},
			want: []string{"users", "posts"},
		},
		{
			name:      "self reference ignored",
			entities:  []schema.Entity{{Name: "nodes"}},
			relations: []schema.Relation{{SourceEntity: "nodes", TargetEntity: "nodes"}},
			want:      []string{"nodes"},
		},
		{
			name:      "unknown target ignored",
			entities:  []schema.Entity{{Name: "a"}},
			relations: []schema.Relation{{SourceEntity: "a", TargetEntity: "ghost"}},
			want:      []string{"a"},
		},
		{
			name:     "cycle forces the first remaining",
			entities: []schema.Entity{{Name: "a"}, {Name: "b"}, {Name: "c"}},
			relations: []schema.Relation{
				{SourceEntity: "a", TargetEntity: "b"},
				{SourceEntity: "b", TargetEntity: "a"},
			},
			want:   []string{"c", "a", "b"},
			forced: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := names(tt.entities)
			ordered, forced := Order(tt.entities, tt.relations)
			assert.Equal(t, tt.want, names(ordered))
			assert.Equal(t, tt.forced, forced)
			assert.Equal(t, before, names(tt.entities))
		})
	}
}

func TestEmit_UsersPerTarget(t *testing.T) {
	tests := []struct {
		target Target
		want   []string
	}{
		{PostgreSQL, []string{
			`CREATE TABLE "public"."Users" (`,
			`"Id" SERIAL PRIMARY KEY,`,
			`"Email" VARCHAR(255) NOT NULL UNIQUE,`,
			`"CreatedAt" TIMESTAMP DEFAULT now()`,
		}},
		{MySQL, []string{
			"CREATE TABLE `Users` (",
			"`Id` INT AUTO_INCREMENT PRIMARY KEY,",
			"`Email` VARCHAR(255) NOT NULL UNIQUE,",
			"`CreatedAt` DATETIME DEFAULT CURRENT_TIMESTAMP",
		}},
		{SQLServer, []string{
			"CREATE TABLE [Users] (",
			"[Id] INT IDENTITY(1,1) PRIMARY KEY,",
			"[Email] NVARCHAR(255) NOT NULL UNIQUE,",
			"[CreatedAt] DATETIME2 DEFAULT GETDATE()",
		}},
		{Oracle, []string{
			`"Id" NUMBER(10) GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,`,
			`"Email" VARCHAR2(255) NOT NULL UNIQUE,`,
			`"CreatedAt" TIMESTAMP DEFAULT SYSTIMESTAMP`,
		}},
		{SQLite, []string{
			`"Id" INTEGER PRIMARY KEY AUTOINCREMENT,`,
			`"CreatedAt" DATETIME DEFAULT CURRENT_TIMESTAMP`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			out := emit(t, usersSchema(), tt.target, testOptions(t))
			assert.True(t, strings.HasPrefix(out, "-- Generated by schemabridge at 2024-01-02T03:04:05Z\n"))
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestEmit_Deterministic(t *testing.T) {
	opts := testOptions(t)
	for _, target := range Targets {
		first := emit(t, mutualSchema(), target, opts)
		second := emit(t, mutualSchema(), target, opts)
		assert.Equal(t, first, second, target.String())
	}

	later := opts
	later.Now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	a := strings.SplitN(emit(t, usersSchema(), PostgreSQL, opts), "\n", 2)
	b := strings.SplitN(emit(t, usersSchema(), PostgreSQL, later), "\n", 2)
	assert.NotEqual(t, a[0], b[0])
	assert.Equal(t, a[1], b[1])
}

func TestEmit_MutualForeignKeysDeferred(t *testing.T) {
	for _, target := range []Target{PostgreSQL, Supabase, MySQL, SQLServer, Oracle} {
		t.Run(target.String(), func(t *testing.T) {
			out := emit(t, mutualSchema(), target, testOptions(t))

			lastCreate := strings.LastIndex(out, "CREATE TABLE")
			firstAlter := strings.Index(out, "ALTER TABLE")
			require.Equal(t, 2, strings.Count(out, "CREATE TABLE"))
			require.Equal(t, 2, strings.Count(out, "ADD CONSTRAINT"))
			assert.Less(t, lastCreate, firstAlter)
		})
	}
}

func TestEmit_SQLiteInlinesForeignKeys(t *testing.T) {
	out := emit(t, mutualSchema(), SQLite, testOptions(t))
	assert.NotContains(t, out, "ALTER TABLE")
	assert.Contains(t, out, `CONSTRAINT "fk_a_b" FOREIGN KEY ("b_id") REFERENCES "b" ("id")`)
}

func TestEmit_ForeignKeyActions(t *testing.T) {
	s := mutualSchema()
	s.Relations[0].OnDelete = "RESTRICT"
	s.Relations[0].OnUpdate = "CASCADE"

	pg := emit(t, s, PostgreSQL, testOptions(t))
	assert.Contains(t, pg, `ALTER TABLE "public"."a" ADD CONSTRAINT "fk_a_b" FOREIGN KEY ("b_id") REFERENCES "public"."b" ("id") ON DELETE RESTRICT ON UPDATE CASCADE;`)

	mssql := emit(t, s, SQLServer, testOptions(t))
	assert.Contains(t, mssql, "ON DELETE NO ACTION ON UPDATE CASCADE;")

	oracle := emit(t, s, Oracle, testOptions(t))
	assert.Contains(t, oracle, `REFERENCES "b" ("id");`)
}

func TestEmit_ConstraintsEnumsIndexes(t *testing.T) {
	s := &schema.Schema{
		Enums: []schema.Enum{{Name: "status", Values: []string{"active", "archived"}}},
		Entities: []schema.Entity{{
			Name:       "memberships",
			PrimaryKey: []string{"org_id", "user_id"},
			Attributes: []schema.Attribute{
				{Name: "org_id", Type: schema.TypeInteger, IsPrimaryKey: true},
				{Name: "user_id", Type: schema.TypeInteger, IsPrimaryKey: true},
				{Name: "state", Type: schema.TypeString, Enum: "status", Default: "'active'"},
				{Name: "a", Type: schema.TypeInteger, IsOptional: true},
				{Name: "b", Type: schema.TypeInteger, IsOptional: true},
			},
			Uniques: [][]string{{"a", "b"}},
			Indexes: []schema.Index{{Columns: []string{"state"}}},
		}},
		Checks: []schema.Check{{Entity: "memberships", Expression: "a < b"}},
	}

	pg := emit(t, s, PostgreSQL, testOptions(t))
	assert.Contains(t, pg, `CREATE TYPE "public"."status" AS ENUM ('active', 'archived');`)
	assert.Contains(t, pg, `"state" "public"."status" DEFAULT 'active' NOT NULL`)
	assert.Contains(t, pg, `CONSTRAINT "pk_memberships" PRIMARY KEY ("org_id", "user_id")`)
	assert.Contains(t, pg, `CONSTRAINT "uq_memberships_a_b" UNIQUE ("a", "b")`)
	assert.Contains(t, pg, `CONSTRAINT "chk_memberships_1" CHECK (a < b)`)
	assert.Contains(t, pg, `CREATE INDEX "idx_memberships_state" ON "public"."memberships" ("state");`)
	assert.Contains(t, pg, `"org_id" INTEGER NOT NULL,`)

	mysql := emit(t, s, MySQL, testOptions(t))
	assert.Contains(t, mysql, "`state` ENUM('active', 'archived') DEFAULT 'active' NOT NULL")

	sqlite := emit(t, s, SQLite, testOptions(t))
	assert.Contains(t, sqlite, `"state" VARCHAR(255) DEFAULT 'active' NOT NULL`)
	assert.Contains(t, sqlite, `CONSTRAINT "chk_memberships_state" CHECK ("state" IN ('active', 'archived'))`)
}

func TestEmit_BooleanAndUUIDDefaults(t *testing.T) {
	s := &schema.Schema{Entities: []schema.Entity{{
		Name:       "flags",
		PrimaryKey: []string{"id"},
		Attributes: []schema.Attribute{
			{Name: "id", Type: schema.TypeUUID, IsPrimaryKey: true, Default: schema.DefaultUUID},
			{Name: "on", Type: schema.TypeBoolean, Default: schema.DefaultTrue},
		},
	}}}

	assert.Contains(t, emit(t, s, PostgreSQL, testOptions(t)), `"id" UUID DEFAULT gen_random_uuid() PRIMARY KEY`)
	assert.Contains(t, emit(t, s, PostgreSQL, testOptions(t)), `"on" BOOLEAN DEFAULT TRUE NOT NULL`)
	assert.Contains(t, emit(t, s, SQLServer, testOptions(t)), "[id] UNIQUEIDENTIFIER DEFAULT NEWID() PRIMARY KEY")
	assert.Contains(t, emit(t, s, SQLServer, testOptions(t)), "[on] BIT DEFAULT 1 NOT NULL")
	assert.Contains(t, emit(t, s, MySQL, testOptions(t)), "`id` CHAR(36) DEFAULT (UUID()) PRIMARY KEY")
}

func TestEmit_Options(t *testing.T) {
	s := usersSchema()
	s.Entities[0].Comment = "registered users"
	s.Entities[0].Attributes[1].Comment = "login"

	opts := testOptions(t)
	opts.Schema = "app"
	opts.CreateSchema = true
	opts.IncludeComments = true
	opts.AddTimestamps = true

	out := emit(t, s, PostgreSQL, opts)
	assert.Contains(t, out, `CREATE SCHEMA IF NOT EXISTS "app";`)
	assert.Contains(t, out, `CREATE TABLE "app"."Users" (`)
	assert.Contains(t, out, `COMMENT ON TABLE "app"."Users" IS 'registered users';`)
	assert.Contains(t, out, `COMMENT ON COLUMN "app"."Users"."Email" IS 'login';`)
	assert.Contains(t, out, `"created_at" TIMESTAMP DEFAULT now() NOT NULL`)
	assert.Contains(t, out, `"updated_at" TIMESTAMP DEFAULT now() NOT NULL`)
	assert.Contains(t, out, "-- Tables\n")

	mysql := emit(t, s, MySQL, opts)
	assert.Contains(t, mysql, "`Email` VARCHAR(255) NOT NULL UNIQUE COMMENT 'login'")
	assert.Contains(t, mysql, ") COMMENT='registered users';")

	assert.Len(t, s.Entities[0].Attributes, 3, "input schema must not be modified")
}

func TestEmit_RowLevelSecurity(t *testing.T) {
	s := &schema.Schema{Entities: []schema.Entity{
		{Name: "notes", PrimaryKey: []string{"id"}, Attributes: []schema.Attribute{
			{Name: "id", Type: schema.TypeInteger, IsPrimaryKey: true},
			{Name: "owner_id", Type: schema.TypeUUID},
		}},
		{Name: "tags", PrimaryKey: []string{"id"}, Attributes: []schema.Attribute{
			{Name: "id", Type: schema.TypeInteger, IsPrimaryKey: true},
		}},
	}}
	opts := testOptions(t)
	opts.WithRLS = true

	supa := emit(t, s, Supabase, opts)
	assert.Contains(t, supa, `ALTER TABLE "public"."notes" ENABLE ROW LEVEL SECURITY;`)
	assert.Equal(t, 4, strings.Count(supa, `ON "public"."notes" FOR`))
	assert.Contains(t, supa, `CREATE POLICY "notes_owner_select" ON "public"."notes" FOR SELECT USING ("owner_id" = auth.uid());`)
	assert.Contains(t, supa, `CREATE POLICY "tags_authenticated_all" ON "public"."tags" FOR ALL TO authenticated USING (true) WITH CHECK (true);`)

	pg := emit(t, s, PostgreSQL, opts)
	assert.Contains(t, pg, `"owner_id"::text = current_setting('app.current_user_id', true)`)

	mysql := emit(t, s, MySQL, opts)
	assert.NotContains(t, mysql, "ROW LEVEL SECURITY")
}

func TestEmit_UnknownTypeFallsBack(t *testing.T) {
	s := &schema.Schema{Entities: []schema.Entity{{Name: "places", Attributes: []schema.Attribute{
		{Name: "area", Type: schema.Type("geography"), IsOptional: true},
	}}}}

	assert.Contains(t, emit(t, s, PostgreSQL, testOptions(t)), `"area" TEXT`)
	assert.Contains(t, emit(t, s, SQLServer, testOptions(t)), "[area] NVARCHAR(MAX)")

	strict := testOptions(t)
	strict.Strict = true
	_, err := Emit(s, PostgreSQL, strict)
	assert.True(t, schema.IsValidationError(err))
}

func TestEmit_InvalidSchemaProducesNoOutput(t *testing.T) {
	s := &schema.Schema{Entities: []schema.Entity{{Name: "a"}, {Name: "a"}}}
	var b strings.Builder
	err := EmitTo(&b, s, PostgreSQL, testOptions(t))
	require.Error(t, err)
	assert.True(t, schema.IsValidationError(err))
	assert.Empty(t, b.String())
}

func TestLookupTarget(t *testing.T) {
	for _, name := range []string{"postgresql", "Postgres", "MSSQL", "md", "gorm"} {
		_, err := LookupTarget(name)
		assert.NoError(t, err, name)
	}

	_, err := LookupTarget("cobol")
	require.Error(t, err)
	assert.True(t, schema.IsUnsupportedDialect(err))
	assert.Contains(t, err.Error(), "cobol")

	for _, target := range Targets {
		got, err := LookupTarget(target.String())
		require.NoError(t, err)
		assert.Equal(t, target, got)
	}
}
