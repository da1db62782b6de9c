package ddl

import (
	"log/slog"
	"strings"

	"github.com/tordrt/schemabridge/internal/sqltoken"
)

// Grammar holds the lexical settings of one source dialect.
type Grammar struct {
	Quoting sqltoken.Quoting
	// BatchSeparator accepts the SQL Server GO separator between statements.
	BatchSeparator bool
}

// Parser turns a DDL script into ParsedTable records.
type Parser struct {
	grammar          Grammar
	preserveComments bool
	logger           *slog.Logger
}

// NewParser creates a parser for the given grammar. A nil logger discards
// diagnostics.
func NewParser(g Grammar, preserveComments bool, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{grammar: g, preserveComments: preserveComments, logger: logger}
}

// Parse parses every statement of script. Statements that are not
// recognized DDL are ignored; DDL statements that fail to parse are recorded
// in Result.Skipped.
func (p *Parser) Parse(script string) *Result {
	res := &Result{}
	stmts := sqltoken.SplitStatements(script, p.grammar.Quoting, p.grammar.BatchSeparator)

	for i, stmt := range stmts {
		toks := sqltoken.Tokenize(stmt, p.grammar.Quoting)
		if len(toks) == 0 {
			continue
		}
		c := newCursor(stmt, toks)

		var err *ParseError
		switch {
		case isCreateTable(c):
			err = p.parseCreateTable(c, res)
		case isCreateIndex(c):
			err = p.parseCreateIndex(c, res)
		case c.peek().Is("CREATE") && c.peekAt(1).Is("TYPE"):
			err = p.parseCreateType(c, res)
		case c.peek().Is("ALTER") && c.peekAt(1).Is("TABLE"):
			err = p.parseAlterTable(c, res)
		case c.peek().Is("COMMENT") && c.peekAt(1).Is("ON"):
			err = p.parseCommentOn(c, res)
		default:
			p.logger.Debug("ignoring non-DDL statement", "statement", i+1)
			continue
		}

		if err != nil {
			err.Statement = i + 1
			res.Skipped = append(res.Skipped, err)
			p.logger.Debug("skipping statement", "statement", i+1, "error", err.Message)
		}
	}

	if !p.preserveComments {
		stripComments(res)
	}
	return res
}

func isCreateTable(c *cursor) bool {
	if !c.peek().Is("CREATE") {
		return false
	}
	for i := 1; i < 5; i++ {
		tok := c.peekAt(i)
		if tok.Is("TABLE") {
			return true
		}
		if !(tok.Is("OR") || tok.Is("REPLACE") || tok.Is("TEMP") || tok.Is("TEMPORARY") ||
			tok.Is("GLOBAL") || tok.Is("LOCAL") || tok.Is("UNLOGGED")) {
			return false
		}
	}
	return false
}

func isCreateIndex(c *cursor) bool {
	if !c.peek().Is("CREATE") {
		return false
	}
	for i := 1; i < 4; i++ {
		tok := c.peekAt(i)
		if tok.Is("INDEX") {
			return true
		}
		if !(tok.Is("UNIQUE") || tok.Is("CLUSTERED") || tok.Is("NONCLUSTERED") || tok.Is("BITMAP") ||
			tok.Is("FULLTEXT") || tok.Is("SPATIAL")) {
			return false
		}
	}
	return false
}

// parseCreateTable parses CREATE TABLE [IF NOT EXISTS] name ( elements ) [options].
func (p *Parser) parseCreateTable(c *cursor, res *Result) *ParseError {
	for !c.peek().Is("TABLE") {
		c.next()
	}
	c.next()
	c.accept("IF", "NOT", "EXISTS")

	ns, name, err := c.qualifiedName()
	if err != nil {
		return err
	}
	if c.peek().Is("AS") {
		return c.errorf(c.peek(), "CREATE TABLE %s AS SELECT is not supported", name)
	}

	body, perr := c.parenGroup()
	if perr != nil {
		return perr
	}

	table := ParsedTable{Name: name, Namespace: ns}
	for _, clause := range sqltoken.SplitTokens(body, ",") {
		cc := newCursor(c.src, clause)
		if isTableConstraint(cc) {
			if err := p.parseTableConstraint(cc, &table); err != nil {
				return err
			}
			continue
		}
		col, check, err := p.parseColumn(cc)
		if err != nil {
			return err
		}
		table.Columns = append(table.Columns, col)
		if check != nil {
			table.Checks = append(table.Checks, *check)
		}
	}
	if len(table.Columns) == 0 {
		return c.errorf(c.peek(), errNoColumns, name)
	}

	p.parseTableOptions(c, &table)
	finishTable(&table)
	if err := checkTable(c, &table); err != nil {
		return err
	}

	if existing := res.Table(table.Name); existing != nil {
		p.logger.Warn("table declared twice, keeping the later definition", "table", table.Name)
		*existing = table
		return nil
	}
	res.Tables = append(res.Tables, table)
	return nil
}

// parseTableOptions reads the trailing options of CREATE TABLE. Only a
// COMMENT option is kept.
func (p *Parser) parseTableOptions(c *cursor, table *ParsedTable) {
	for !c.done() {
		if c.accept("COMMENT") {
			c.acceptPunct("=")
			if tok := c.peek(); tok.Kind == sqltoken.String {
				table.Comment = tok.Text
			}
		}
		c.next()
	}
}

// finishTable folds column-level key flags into table-level lists so both
// spellings produce the same record.
func finishTable(t *ParsedTable) {
	if len(t.PrimaryKey) == 0 {
		for _, col := range t.Columns {
			if col.PrimaryKey {
				t.PrimaryKey = append(t.PrimaryKey, col.Name)
			}
		}
	}
	for i := range t.Columns {
		col := &t.Columns[i]
		for _, pk := range t.PrimaryKey {
			if strings.EqualFold(pk, col.Name) {
				col.PrimaryKey = true
				col.Nullable = false
			}
		}
		if col.References != nil {
			t.ForeignKeys = append(t.ForeignKeys, ParsedForeignKey{
				Columns:    []string{col.Name},
				RefTable:   col.References.Table,
				RefColumns: col.References.Columns,
				OnDelete:   col.References.OnDelete,
				OnUpdate:   col.References.OnUpdate,
			})
		}
	}
	for _, u := range t.Uniques {
		if len(u) == 1 {
			if col := t.Column(u[0]); col != nil {
				col.Unique = true
			}
		}
	}
}

// checkTable rejects a table whose keys or indexes name missing columns, or
// that declares a column twice.
func checkTable(c *cursor, t *ParsedTable) *ParseError {
	for i, col := range t.Columns {
		for _, prev := range t.Columns[:i] {
			if strings.EqualFold(prev.Name, col.Name) {
				return c.errorf(c.peek(), errDuplicateColumn, t.Name, col.Name)
			}
		}
	}
	missing := func(kind string, cols []string) *ParseError {
		for _, name := range cols {
			if t.Column(name) == nil {
				return c.errorf(c.peek(), errMissingColumn, t.Name, kind, name)
			}
		}
		return nil
	}
	if err := missing("primary key", t.PrimaryKey); err != nil {
		return err
	}
	for _, u := range t.Uniques {
		if err := missing("unique constraint", u); err != nil {
			return err
		}
	}
	for _, idx := range t.Indexes {
		if err := missing("index "+idx.Name, idx.Columns); err != nil {
			return err
		}
	}
	for _, fk := range t.ForeignKeys {
		if err := missing("foreign key", fk.Columns); err != nil {
			return err
		}
	}
	return nil
}

func isTableConstraint(c *cursor) bool {
	tok := c.peek()
	switch {
	case tok.Is("CONSTRAINT"), tok.Is("PRIMARY"), tok.Is("FOREIGN"), tok.Is("CHECK"),
		tok.Is("FULLTEXT"), tok.Is("SPATIAL"):
		return true
	case tok.Is("UNIQUE"), tok.Is("KEY"), tok.Is("INDEX"):
		// "unique" or "key" could also be a column name followed by a type
		next := c.peekAt(1)
		return next.IsPunct("(") || next.Is("KEY") || next.Is("INDEX") || next.IsName() && c.peekAt(2).IsPunct("(") && !isTypeName(next.Text)
	}
	return false
}

// parseTableConstraint parses one table-level constraint into t.
func (p *Parser) parseTableConstraint(c *cursor, t *ParsedTable) *ParseError {
	name := ""
	if c.accept("CONSTRAINT") {
		n, err := c.name()
		if err != nil {
			return err
		}
		name = n
	}

	switch {
	case c.accept("PRIMARY", "KEY"):
		c.acceptAny("CLUSTERED", "NONCLUSTERED")
		cols, err := c.nameList()
		if err != nil {
			return err
		}
		t.PrimaryKey = cols

	case c.accept("FOREIGN", "KEY"):
		if c.peek().IsName() {
			c.next() // MySQL index name
		}
		cols, err := c.nameList()
		if err != nil {
			return err
		}
		ref, perr := p.parseReferences(c)
		if perr != nil {
			return perr
		}
		refCols := ref.Columns
		if len(refCols) == 0 {
			refCols = cols
		}
		t.ForeignKeys = append(t.ForeignKeys, ParsedForeignKey{
			Name:       name,
			Columns:    cols,
			RefTable:   ref.Table,
			RefColumns: refCols,
			OnDelete:   ref.OnDelete,
			OnUpdate:   ref.OnUpdate,
		})

	case c.accept("UNIQUE"):
		c.acceptAny("KEY", "INDEX")
		c.acceptAny("CLUSTERED", "NONCLUSTERED")
		if c.peek().IsName() {
			n, _ := c.name()
			if name == "" {
				name = n
			}
		}
		cols, err := c.nameList()
		if err != nil {
			return err
		}
		t.Uniques = append(t.Uniques, cols)

	case c.accept("CHECK"):
		inner, err := c.parenGroup()
		if err != nil {
			return err
		}
		t.Checks = append(t.Checks, ParsedCheck{Name: name, Expression: c.rawText(inner)})

	case c.accept("DEFAULT"):
		// SQL Server: ADD CONSTRAINT df DEFAULT (expr) FOR column
		expr, err := defaultExpr(c)
		if err != nil {
			return err
		}
		if err := c.expect("FOR"); err != nil {
			return err
		}
		colName, err := c.name()
		if err != nil {
			return err
		}
		if col := t.Column(colName); col != nil {
			col.Default = &expr
		}

	default:
		// MySQL KEY/INDEX/FULLTEXT/SPATIAL index definitions
		c.acceptAny("FULLTEXT", "SPATIAL")
		if _, ok := c.acceptAny("KEY", "INDEX"); !ok {
			return c.errorf(c.peek(), errUnexpectedToken, c.peek(), "table constraint")
		}
		idx := ParsedIndex{}
		if c.peek().IsName() {
			idx.Name, _ = c.name()
		}
		cols, err := c.nameList()
		if err != nil {
			return err
		}
		idx.Columns = cols
		t.Indexes = append(t.Indexes, idx)
	}
	return nil
}

// parseReferences parses REFERENCES table [(cols)] [ON DELETE a] [ON UPDATE a].
func (p *Parser) parseReferences(c *cursor) (*ParsedReference, *ParseError) {
	if err := c.expect("REFERENCES"); err != nil {
		return nil, err
	}
	_, table, err := c.qualifiedName()
	if err != nil {
		return nil, err
	}
	ref := &ParsedReference{Table: table}
	if c.peek().IsPunct("(") {
		cols, err := c.nameList()
		if err != nil {
			return nil, err
		}
		ref.Columns = cols
	}
	for {
		switch {
		case c.accept("ON", "DELETE"):
			ref.OnDelete = parseAction(c)
		case c.accept("ON", "UPDATE"):
			ref.OnUpdate = parseAction(c)
		case c.accept("MATCH"):
			c.next()
		case c.accept("NOT", "DEFERRABLE"), c.accept("DEFERRABLE"):
		case c.accept("INITIALLY"):
			c.next()
		case c.accept("NOT", "FOR", "REPLICATION"):
		default:
			return ref, nil
		}
	}
}

func parseAction(c *cursor) string {
	switch {
	case c.accept("CASCADE"):
		return "CASCADE"
	case c.accept("SET", "NULL"):
		return "SET NULL"
	case c.accept("SET", "DEFAULT"):
		return "SET DEFAULT"
	case c.accept("RESTRICT"):
		return "RESTRICT"
	case c.accept("NO", "ACTION"):
		return "NO ACTION"
	}
	return ""
}

// parseCreateIndex parses CREATE [UNIQUE] INDEX [name] ON table (cols).
func (p *Parser) parseCreateIndex(c *cursor, res *Result) *ParseError {
	c.next() // CREATE
	idx := ParsedIndex{}
	for !c.peek().Is("INDEX") {
		if c.next().Is("UNIQUE") {
			idx.Unique = true
		}
	}
	c.next()
	c.accept("CONCURRENTLY")
	c.accept("IF", "NOT", "EXISTS")

	if !c.peek().Is("ON") {
		_, n, err := c.qualifiedName()
		if err != nil {
			return err
		}
		idx.Name = n
	}
	if err := c.expect("ON"); err != nil {
		return err
	}
	c.accept("ONLY")
	_, tableName, err := c.qualifiedName()
	if err != nil {
		return err
	}
	if c.accept("USING") {
		c.next()
	}
	cols, err := c.nameList()
	if err != nil {
		return err
	}
	idx.Columns = cols

	table := res.Table(tableName)
	if table == nil {
		return c.errorf(c.peek(), errUnknownTable, tableName)
	}
	for _, col := range idx.Columns {
		if table.Column(col) == nil {
			return c.errorf(c.peek(), errMissingColumn, table.Name, "index "+idx.Name, col)
		}
	}
	table.Indexes = append(table.Indexes, idx)
	return nil
}

// parseCreateType parses CREATE TYPE name AS ENUM ('a', 'b').
func (p *Parser) parseCreateType(c *cursor, res *Result) *ParseError {
	c.next()
	c.next()
	_, name, err := c.qualifiedName()
	if err != nil {
		return err
	}
	if !c.accept("AS", "ENUM") {
		// composite and range types are outside the supported subset
		return nil
	}
	inner, err := c.parenGroup()
	if err != nil {
		return err
	}
	enum := ParsedEnum{Name: name}
	for _, tok := range inner {
		if tok.Kind == sqltoken.String {
			enum.Values = append(enum.Values, tok.Text)
		}
	}
	res.Enums = append(res.Enums, enum)
	return nil
}

// parseAlterTable parses ALTER TABLE name ADD ... [, ADD ...]. Actions other
// than ADD are ignored. The actions apply to a copy of the table that
// replaces it only when every action succeeded.
func (p *Parser) parseAlterTable(c *cursor, res *Result) *ParseError {
	c.next()
	c.next()
	c.accept("IF", "EXISTS")
	c.accept("ONLY")
	_, name, err := c.qualifiedName()
	if err != nil {
		return err
	}
	existing := res.Table(name)
	if existing == nil {
		return c.errorf(c.peek(), errUnknownTable, name)
	}
	table := existing.clone()

	for _, action := range sqltoken.SplitTokens(c.toks[c.pos:], ",") {
		ac := newCursor(c.src, action)
		if !ac.accept("ADD") {
			continue
		}
		if isTableConstraint(ac) {
			if err := p.parseTableConstraint(ac, table); err != nil {
				return err
			}
			continue
		}
		ac.accept("COLUMN")
		ac.accept("IF", "NOT", "EXISTS")
		col, check, err := p.parseColumn(ac)
		if err != nil {
			return err
		}
		table.Columns = append(table.Columns, col)
		if check != nil {
			table.Checks = append(table.Checks, *check)
		}
	}
	finishTable(table)
	table.ForeignKeys = dedupeForeignKeys(table.ForeignKeys)
	if err := checkTable(c, table); err != nil {
		return err
	}
	*existing = *table
	return nil
}

func dedupeForeignKeys(fks []ParsedForeignKey) []ParsedForeignKey {
	out := fks[:0]
	seen := make(map[string]bool, len(fks))
	for _, fk := range fks {
		key := strings.ToLower(strings.Join(fk.Columns, ",") + "->" + fk.RefTable + "(" + strings.Join(fk.RefColumns, ",") + ")")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, fk)
	}
	return out
}

// parseCommentOn parses COMMENT ON TABLE t IS '...' and COMMENT ON COLUMN
// t.c IS '...'.
func (p *Parser) parseCommentOn(c *cursor, res *Result) *ParseError {
	c.next()
	c.next()
	kind, ok := c.acceptAny("TABLE", "COLUMN")
	if !ok {
		return nil
	}
	var parts []string
	for {
		part, err := c.name()
		if err != nil {
			return err
		}
		parts = append(parts, part)
		if !c.acceptPunct(".") {
			break
		}
	}
	if err := c.expect("IS"); err != nil {
		return err
	}
	text := ""
	if tok := c.next(); tok.Kind == sqltoken.String {
		text = tok.Text
	}

	if kind == "TABLE" {
		table := res.Table(parts[len(parts)-1])
		if table == nil {
			return c.errorf(c.peek(), errUnknownTable, parts[len(parts)-1])
		}
		table.Comment = text
		return nil
	}
	if len(parts) < 2 {
		return c.errorf(c.peek(), "column comment needs table.column")
	}
	table := res.Table(parts[len(parts)-2])
	if table == nil {
		return c.errorf(c.peek(), errUnknownTable, parts[len(parts)-2])
	}
	if col := table.Column(parts[len(parts)-1]); col != nil {
		col.Comment = text
	}
	return nil
}

func stripComments(res *Result) {
	for i := range res.Tables {
		res.Tables[i].Comment = ""
		for j := range res.Tables[i].Columns {
			res.Tables[i].Columns[j].Comment = ""
		}
	}
}
