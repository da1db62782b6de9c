package ddl

import (
	"strconv"
	"strings"

	"github.com/tordrt/schemabridge/internal/sqltoken"
)

// object is a JavaScript object literal with its key order kept.
type object struct {
	keys []string
	vals map[string]any
}

func (o *object) get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

func (o *object) object(key string) *object {
	v, _ := o.get(key)
	obj, _ := v.(*object)
	return obj
}

func (o *object) str(key string) string {
	v, _ := o.get(key)
	s, _ := v.(string)
	return s
}

// ParseDocuments reads a MongoDB shell script. Collections come from
// db.createCollection calls with a $jsonSchema validator; indexes from
// db.<name>.createIndex and db.getCollection("<name>").createIndex calls.
func (p *Parser) ParseDocuments(script string) *Result {
	res := &Result{}
	toks := sqltoken.Tokenize(script, sqltoken.Quoting{})
	c := newCursor(script, toks)

	stmt := 0
	for !c.done() {
		if !(c.peek().Is("db") && c.peekAt(1).IsPunct(".")) {
			c.next()
			continue
		}
		stmt++
		start := c.peek()
		c.next()
		c.next()

		var err *ParseError
		switch {
		case c.peek().Is("createCollection"):
			c.next()
			err = p.parseCreateCollection(c, res)
		case c.peek().Is("getCollection"):
			c.next()
			args, perr := callArgs(c)
			if perr != nil {
				err = perr
				break
			}
			name, _ := first(args).(string)
			err = p.parseCollectionCall(c, res, name, start)
		case c.peek().IsName() && c.peekAt(1).IsPunct("."):
			name := c.next().Text
			err = p.parseCollectionCall(c, res, name, start)
		default:
			c.next()
			continue
		}
		if err != nil {
			err.Statement = stmt
			res.Skipped = append(res.Skipped, err)
			p.logger.Debug("skipping statement", "statement", stmt, "error", err.Message)
			skipToStatementEnd(c)
		}
	}

	if !p.preserveComments {
		stripComments(res)
	}
	return res
}

func skipToStatementEnd(c *cursor) {
	for !c.done() && !c.peek().IsPunct(";") {
		if c.peek().Is("db") && c.peekAt(1).IsPunct(".") {
			return
		}
		c.next()
	}
}

// parseCollectionCall handles ".createIndex(keys, options)" after a
// collection reference. Other collection methods are ignored.
func (p *Parser) parseCollectionCall(c *cursor, res *Result, name string, start sqltoken.Token) *ParseError {
	if err := c.expectPunct("."); err != nil {
		return err
	}
	method, err := c.name()
	if err != nil {
		return err
	}
	if method != "createIndex" {
		// data and admin calls are not schema
		_, err := c.parenGroup()
		return err
	}
	args, err := callArgs(c)
	if err != nil {
		return err
	}

	table := res.Table(name)
	if table == nil {
		return c.errorf(start, errUnknownTable, name)
	}
	keys, _ := first(args).(*object)
	if keys == nil || len(keys.keys) == 0 {
		return c.errorf(start, "createIndex needs a key document")
	}
	idx := ParsedIndex{Columns: keys.keys}
	if len(args) > 1 {
		if opts, ok := args[1].(*object); ok {
			idx.Name = opts.str("name")
			unique, _ := opts.get("unique")
			idx.Unique = unique == true
		}
	}
	table.Indexes = append(table.Indexes, idx)
	return nil
}

// parseCreateCollection handles ("name", {validator: {$jsonSchema: {...}}}).
func (p *Parser) parseCreateCollection(c *cursor, res *Result) *ParseError {
	at := c.peek()
	args, err := callArgs(c)
	if err != nil {
		return err
	}
	name, ok := first(args).(string)
	if !ok || name == "" {
		return c.errorf(at, errUnexpectedToken, at, "collection name")
	}

	table := ParsedTable{Name: name, PrimaryKey: []string{"_id"}}
	var jsonSchema *object
	if len(args) > 1 {
		if opts, ok := args[1].(*object); ok {
			jsonSchema = opts.object("validator").object("$jsonSchema")
		}
	}

	required := map[string]bool{}
	if jsonSchema != nil {
		if list, ok := jsonSchema.vals["required"].([]any); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					required[s] = true
				}
			}
		}
		table.Comment = jsonSchema.str("description")
	}

	props := jsonSchema.object("properties")
	if _, declared := props.get("_id"); !declared {
		table.Columns = append(table.Columns, ParsedColumn{Name: "_id", Type: "OBJECTID", PrimaryKey: true})
	}
	if props != nil {
		for _, key := range props.keys {
			field, _ := props.vals[key].(*object)
			col := documentColumn(key, field)
			col.Nullable = !required[key] && key != "_id"
			col.PrimaryKey = key == "_id"
			table.Columns = append(table.Columns, col)
		}
	}

	if existing := res.Table(name); existing != nil {
		p.logger.Warn("collection declared twice, keeping the later definition", "collection", name)
		*existing = table
		return nil
	}
	res.Tables = append(res.Tables, table)
	return nil
}

// documentColumn maps one $jsonSchema property to a column.
func documentColumn(name string, field *object) ParsedColumn {
	col := ParsedColumn{Name: name, Type: "STRING"}
	if field == nil {
		return col
	}

	switch bt := field.vals["bsonType"].(type) {
	case string:
		col.Type = strings.ToUpper(bt)
	case []any:
		for _, v := range bt {
			s, _ := v.(string)
			if s == "null" {
				continue
			}
			col.Type = strings.ToUpper(s)
			break
		}
	}
	if list, ok := field.vals["enum"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				col.EnumValues = append(col.EnumValues, s)
			}
		}
	}
	if n, ok := field.vals["maxLength"].(float64); ok && n > 0 {
		col.Args = []string{strconv.Itoa(int(n))}
	}
	col.Comment = field.str("description")
	return col
}

func first(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// callArgs consumes "(arg, ...)" and returns the decoded arguments.
func callArgs(c *cursor) ([]any, *ParseError) {
	inner, err := c.parenGroup()
	if err != nil {
		return nil, err
	}
	var args []any
	for _, group := range sqltoken.SplitTokens(inner, ",") {
		ac := newCursor(c.src, group)
		v, err := jsValue(ac)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// jsValue decodes one literal: object, array, string, number, boolean,
// null, or a constructor call such as ObjectId("...") which yields its
// first argument.
func jsValue(c *cursor) (any, *ParseError) {
	tok := c.peek()
	switch {
	case tok.IsPunct("{"):
		return jsObject(c)
	case tok.IsPunct("["):
		return jsArray(c)
	case tok.Kind == sqltoken.String, tok.Kind == sqltoken.QuotedIdent:
		c.next()
		return tok.Text, nil
	case tok.Kind == sqltoken.Number:
		c.next()
		n, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, c.errorf(tok, "invalid number %s", tok)
		}
		return n, nil
	case tok.IsPunct("-") && c.peekAt(1).Kind == sqltoken.Number:
		c.next()
		v, err := jsValue(c)
		if err != nil {
			return nil, err
		}
		return -v.(float64), nil
	case tok.Is("true"):
		c.next()
		return true, nil
	case tok.Is("false"):
		c.next()
		return false, nil
	case tok.Is("null"):
		c.next()
		return nil, nil
	case tok.Is("new") || tok.Kind == sqltoken.Ident && c.peekAt(1).IsPunct("("):
		c.accept("new")
		c.next()
		args, err := callArgs(c)
		if err != nil {
			return nil, err
		}
		return first(args), nil
	}
	return nil, c.errorf(tok, errUnexpectedToken, tok, "value")
}

func jsObject(c *cursor) (*object, *ParseError) {
	open := c.next()
	obj := &object{vals: map[string]any{}}
	for {
		if c.acceptPunct("}") {
			return obj, nil
		}
		if c.done() {
			return nil, c.errorf(open, errUnbalanced)
		}
		key := c.peek()
		if !key.IsName() && key.Kind != sqltoken.String {
			return nil, c.errorf(key, errUnexpectedToken, key, "object key")
		}
		c.next()
		if err := c.expectPunct(":"); err != nil {
			return nil, err
		}
		v, err := jsValue(c)
		if err != nil {
			return nil, err
		}
		if _, dup := obj.vals[key.Text]; !dup {
			obj.keys = append(obj.keys, key.Text)
		}
		obj.vals[key.Text] = v
		if !c.acceptPunct(",") && !c.peek().IsPunct("}") {
			return nil, c.errorf(c.peek(), errUnexpectedToken, c.peek(), `"," or "}"`)
		}
	}
}

func jsArray(c *cursor) ([]any, *ParseError) {
	open := c.next()
	list := []any{}
	for {
		if c.acceptPunct("]") {
			return list, nil
		}
		if c.done() {
			return nil, c.errorf(open, errUnbalanced)
		}
		v, err := jsValue(c)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
		if !c.acceptPunct(",") && !c.peek().IsPunct("]") {
			return nil, c.errorf(c.peek(), errUnexpectedToken, c.peek(), `"," or "]"`)
		}
	}
}
