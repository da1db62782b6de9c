package ddl

import (
	"strings"

	"github.com/tordrt/schemabridge/internal/sqltoken"
)

// constraintStart lists the keywords that end a DEFAULT expression.
var constraintStart = map[string]bool{
	"NOT": true, "NULL": true, "PRIMARY": true, "UNIQUE": true, "REFERENCES": true,
	"CHECK": true, "CONSTRAINT": true, "COLLATE": true, "COMMENT": true,
	"AUTO_INCREMENT": true, "AUTOINCREMENT": true, "IDENTITY": true,
	"GENERATED": true, "ON": true, "DEFAULT": true, "CHARACTER": true, "CHARSET": true,
	"FOR": true,
}

// ignoredColumnWords are column attributes with no schema meaning.
var ignoredColumnWords = map[string]bool{
	"ROWGUIDCOL": true, "SPARSE": true, "FILESTREAM": true, "ASC": true, "DESC": true,
	"VISIBLE": true, "INVISIBLE": true, "ENABLE": true, "DISABLE": true, "SIGNED": true,
	"UNSIGNED": true, "ZEROFILL": true, "CLUSTERED": true, "NONCLUSTERED": true,
	"BINARY": true, "STORED": true, "VIRTUAL": true, "PERSISTED": true,
}

// typeWords are type names that may start a column type, used to tell a
// column called "key" or "unique" apart from a table constraint.
var typeWords = map[string]bool{
	"INT": true, "INTEGER": true, "BIGINT": true, "SMALLINT": true, "TINYINT": true,
	"MEDIUMINT": true, "DECIMAL": true, "NUMERIC": true, "NUMBER": true, "FLOAT": true,
	"REAL": true, "DOUBLE": true, "CHAR": true, "NCHAR": true, "VARCHAR": true,
	"NVARCHAR": true, "VARCHAR2": true, "NVARCHAR2": true, "TEXT": true, "BIT": true,
	"BINARY": true, "VARBINARY": true, "RAW": true, "TIME": true, "TIMESTAMP": true,
	"DATETIME": true, "DATETIME2": true, "CHARACTER": true, "BOOLEAN": true, "BOOL": true,
}

func isTypeName(s string) bool {
	return typeWords[strings.ToUpper(s)]
}

// parseColumn parses "name type [constraints...]". An inline CHECK is
// returned separately so the caller can attach it to the table.
func (p *Parser) parseColumn(c *cursor) (ParsedColumn, *ParsedCheck, *ParseError) {
	col := ParsedColumn{Nullable: true}

	name, err := c.name()
	if err != nil {
		return col, nil, err
	}
	col.Name = name

	if err := parseColumnType(c, &col); err != nil {
		return col, nil, err
	}

	var check *ParsedCheck
	constraintName := ""
	for !c.done() {
		tok := c.peek()
		switch {
		case c.accept("NOT", "NULL"):
			col.Nullable = false
		case c.accept("NULL"):
			col.Nullable = true
		case c.accept("PRIMARY", "KEY"):
			col.PrimaryKey = true
			col.Nullable = false
			c.acceptAny("ASC", "DESC")
			if c.accept("AUTOINCREMENT") {
				col.AutoIncrement = true
			}
		case c.accept("UNIQUE"):
			c.acceptAny("KEY")
			col.Unique = true
		case c.accept("DEFAULT"):
			expr, err := defaultExpr(c)
			if err != nil {
				return col, nil, err
			}
			col.Default = &expr
		case c.accept("AUTO_INCREMENT"), c.accept("AUTOINCREMENT"):
			col.AutoIncrement = true
		case c.accept("IDENTITY"):
			col.AutoIncrement = true
			if c.peek().IsPunct("(") {
				if _, err := c.parenGroup(); err != nil {
					return col, nil, err
				}
			}
		case c.accept("GENERATED"):
			if err := generatedClause(c, &col); err != nil {
				return col, nil, err
			}
		case tok.Is("REFERENCES"):
			ref, err := p.parseReferences(c)
			if err != nil {
				return col, nil, err
			}
			col.References = ref
		case c.accept("CHECK"):
			inner, err := c.parenGroup()
			if err != nil {
				return col, nil, err
			}
			check = &ParsedCheck{Name: constraintName, Expression: c.rawText(inner)}
		case c.accept("CONSTRAINT"):
			n, err := c.name()
			if err != nil {
				return col, nil, err
			}
			constraintName = n
			continue
		case c.accept("COLLATE"):
			c.next()
		case c.accept("CHARACTER", "SET"), c.accept("CHARSET"):
			c.next()
		case c.accept("COMMENT"):
			if t := c.next(); t.Kind == sqltoken.String {
				col.Comment = t.Text
			}
		case c.accept("ON", "UPDATE"):
			if _, err := defaultExpr(c); err != nil {
				return col, nil, err
			}
		case tok.Kind == sqltoken.Ident && ignoredColumnWords[strings.ToUpper(tok.Text)]:
			c.next()
		default:
			return col, nil, c.errorf(tok, errUnexpectedToken, tok, "column constraint")
		}
		constraintName = ""
	}
	return col, check, nil
}

// parseColumnType reads a possibly multi-word type name with its arguments.
func parseColumnType(c *cursor, col *ParsedColumn) *ParseError {
	_, typeName, err := c.qualifiedName()
	if err != nil {
		return err
	}
	parts := []string{strings.ToUpper(typeName)}

	switch parts[0] {
	case "DOUBLE":
		if c.accept("PRECISION") {
			parts = append(parts, "PRECISION")
		}
	case "CHARACTER", "CHAR", "NCHAR", "BIT":
		if c.accept("VARYING") {
			parts = append(parts, "VARYING")
		}
	case "NATIONAL":
		if kw, ok := c.acceptAny("CHARACTER", "CHAR"); ok {
			parts = append(parts, kw)
		}
		if c.accept("VARYING") {
			parts = append(parts, "VARYING")
		}
	case "LONG":
		if kw, ok := c.acceptAny("RAW", "VARCHAR"); ok {
			parts = append(parts, kw)
		}
	}

	if c.peek().IsPunct("(") {
		inner, err := c.parenGroup()
		if err != nil {
			return err
		}
		if parts[0] == "ENUM" || parts[0] == "SET" {
			for _, tok := range inner {
				if tok.Kind == sqltoken.String {
					col.EnumValues = append(col.EnumValues, tok.Text)
				}
			}
		} else {
			for _, group := range sqltoken.SplitTokens(inner, ",") {
				col.Args = append(col.Args, strings.ToUpper(group[0].Text))
			}
		}
	}

	switch {
	case c.accept("WITH", "TIME", "ZONE"):
		parts = append(parts, "WITH", "TIME", "ZONE")
	case c.accept("WITH", "LOCAL", "TIME", "ZONE"):
		parts = append(parts, "WITH", "LOCAL", "TIME", "ZONE")
	case c.accept("WITHOUT", "TIME", "ZONE"):
	}

	for {
		if c.accept("UNSIGNED") {
			col.Unsigned = true
			continue
		}
		if c.accept("ZEROFILL") || c.accept("SIGNED") {
			continue
		}
		if c.peek().IsPunct("[") {
			c.next()
			if c.peek().Kind == sqltoken.Number {
				c.next()
			}
			if err := c.expectPunct("]"); err != nil {
				return err
			}
			col.Array = true
			continue
		}
		if c.accept("ARRAY") {
			col.Array = true
			continue
		}
		break
	}

	col.Type = strings.Join(parts, " ")
	return nil
}

// defaultExpr consumes a DEFAULT expression and returns its source text.
func defaultExpr(c *cursor) (string, *ParseError) {
	start := c.pos
	if c.done() {
		return "", c.errorf(c.peek(), errUnexpectedToken, c.peek(), "default expression")
	}
	if err := skipTerm(c); err != nil {
		return "", err
	}
	for !c.done() {
		tok := c.peek()
		if tok.IsPunct("::") {
			// the cast target may itself be a keyword, e.g. ::character varying
			c.next()
			c.next()
			continue
		}
		if tok.Kind == sqltoken.Ident && constraintStart[strings.ToUpper(tok.Text)] {
			break
		}
		if err := skipTerm(c); err != nil {
			return "", err
		}
	}
	return c.rawText(c.toks[start:c.pos]), nil
}

// skipTerm consumes one token, or a whole parenthesized group.
func skipTerm(c *cursor) *ParseError {
	if c.peek().IsPunct("(") {
		_, err := c.parenGroup()
		return err
	}
	c.next()
	return nil
}

// generatedClause handles GENERATED {ALWAYS | BY DEFAULT [ON NULL]} AS
// IDENTITY [(...)] and computed GENERATED ALWAYS AS (expr) columns.
func generatedClause(c *cursor, col *ParsedColumn) *ParseError {
	if !c.accept("ALWAYS") {
		if err := c.expect("BY", "DEFAULT"); err != nil {
			return err
		}
		c.accept("ON", "NULL")
	}
	if err := c.expect("AS"); err != nil {
		return err
	}
	if c.accept("IDENTITY") {
		col.AutoIncrement = true
		col.Nullable = false
	}
	if c.peek().IsPunct("(") {
		if _, err := c.parenGroup(); err != nil {
			return err
		}
	}
	return nil
}

// ParseType parses a bare column type as a database catalog reports it, for
// example "int(10) unsigned" or "enum('a','b')". Only the type fields of the
// returned column are set.
func ParseType(raw string, q sqltoken.Quoting) (ParsedColumn, error) {
	col := ParsedColumn{Nullable: true}
	toks := sqltoken.Tokenize(raw, q)
	if len(toks) == 0 {
		return col, &ParseError{Message: "empty column type"}
	}
	c := newCursor(raw, toks)
	if err := parseColumnType(c, &col); err != nil {
		return col, err
	}
	if !c.done() {
		return col, c.errorf(c.peek(), errUnexpectedToken, c.peek(), "end of type")
	}
	return col, nil
}
