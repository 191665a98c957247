package sql

import (
	"fmt"
	"strings"

	"github.com/nickyhof/TabDB/core"
)

type StatementType int

const (
	UseStatementType StatementType = iota
	CreateDatabaseStatementType
	CreateTableStatementType
	DropDatabaseStatementType
	DropTableStatementType
	AlterTableStatementType
	InsertStatementType
	SelectStatementType
	UpdateStatementType
	DeleteStatementType
	JoinStatementType
)

type Statement interface {
	Type() StatementType
}

type UseStatement struct {
	Database string
}

type CreateDatabaseStatement struct {
	Database string
}

type DropDatabaseStatement struct {
	Database string
}

type CreateTableStatement struct {
	Table   string
	Columns []AttributeName
}

type DropTableStatement struct {
	Table string
}

type AlterAction int

const (
	AlterAdd AlterAction = iota
	AlterDrop
)

type AlterTableStatement struct {
	Table  string
	Action AlterAction
	Column AttributeName
}

type InsertStatement struct {
	Table  string
	Values []Value
}

// SelectStatement selects from Table. A nil Columns means the wildcard and
// a nil Where means every row.
type SelectStatement struct {
	Table   string
	Columns []AttributeName
	Where   Condition
}

type SetClause struct {
	Column AttributeName
	Value  Value
}

type UpdateStatement struct {
	Table   string
	Updates []SetClause
	Where   Condition
}

type DeleteStatement struct {
	Table string
	Where Condition
}

type JoinStatement struct {
	Left        string
	Right       string
	LeftColumn  AttributeName
	RightColumn AttributeName
}

func (s UseStatement) Type() StatementType {
	return UseStatementType
}

func (s CreateDatabaseStatement) Type() StatementType {
	return CreateDatabaseStatementType
}

func (s DropDatabaseStatement) Type() StatementType {
	return DropDatabaseStatementType
}

func (s CreateTableStatement) Type() StatementType {
	return CreateTableStatementType
}

func (s DropTableStatement) Type() StatementType {
	return DropTableStatementType
}

func (s AlterTableStatement) Type() StatementType {
	return AlterTableStatementType
}

func (s InsertStatement) Type() StatementType {
	return InsertStatementType
}

func (s SelectStatement) Type() StatementType {
	return SelectStatementType
}

func (s UpdateStatement) Type() StatementType {
	return UpdateStatementType
}

func (s DeleteStatement) Type() StatementType {
	return DeleteStatementType
}

func (s JoinStatement) Type() StatementType {
	return JoinStatementType
}

// ParseError is a grammar error. Message is the text reported to the client
// and Position the index of the token the parser stopped at.
type ParseError struct {
	Message  string
	Position int
}

func (e *ParseError) Error() string {
	return e.Message
}

const unknownStatementMessage = `Expected "USE" or "CREATE" or "DROP" or "ALTER" or "INSERT" or "SELECT" or "UPDATE" or "DELETE" or "JOIN" keyword to begin the query.`

type Parser struct {
	lexer *Lexer
}

func NewParser(command string) *Parser {
	lexer := NewLexer(command)
	return &Parser{lexer: lexer}
}

// Parse reads one statement and requires it to be followed by ";". Parsing
// stops at the first error.
func (parser *Parser) Parse() (Statement, error) {
	statement, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}
	if parser.lexer.PeekToken().Type != Semicolon {
		return nil, parser.unterminated()
	}
	return statement, nil
}

func (parser *Parser) parseStatement() (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case Use:
		return ParseUse(parser)
	case Create:
		return ParseCreate(parser)
	case Drop:
		return ParseDrop(parser)
	case Alter:
		return ParseAlter(parser)
	case Insert:
		return ParseInsert(parser)
	case Select:
		return ParseSelect(parser)
	case Update:
		return ParseUpdate(parser)
	case Delete:
		return ParseDelete(parser)
	case Join:
		return ParseJoin(parser)
	default:
		return nil, parser.fail(unknownStatementMessage)
	}
}

func ParseUse(parser *Parser) (Statement, error) {
	name, err := parser.parseName("[DatabaseName]")
	if err != nil {
		return nil, err
	}
	return UseStatement{Database: name}, nil
}

func ParseCreate(parser *Parser) (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case TableKeyword:
		return ParseCreateTable(parser)
	case DatabaseKeyword:
		return ParseCreateDatabase(parser)
	case EOF:
		return nil, parser.unterminated()
	default:
		return nil, parser.fail("Expected TABLE or DATABASE keyword after CREATE keyword.")
	}
}

func ParseCreateDatabase(parser *Parser) (Statement, error) {
	name, err := parser.parseName("[DatabaseName]")
	if err != nil {
		return nil, err
	}
	return CreateDatabaseStatement{Database: name}, nil
}

func ParseCreateTable(parser *Parser) (Statement, error) {
	var statement CreateTableStatement

	name, err := parser.parseName("[TableName]")
	if err != nil {
		return nil, err
	}
	statement.Table = name

	if parser.lexer.PeekToken().Type != ParenOpen {
		return statement, nil
	}
	parser.lexer.NextToken()

	columns, err := parser.parseAttributeList(ParenClose, "Expected a list of attributes after ( character.")
	if err != nil {
		return nil, err
	}
	parser.lexer.NextToken() // )
	statement.Columns = columns

	return statement, nil
}

func ParseDrop(parser *Parser) (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case TableKeyword:
		name, err := parser.parseName("[TableName]")
		if err != nil {
			return nil, err
		}
		return DropTableStatement{Table: name}, nil
	case DatabaseKeyword:
		name, err := parser.parseName("[DatabaseName]")
		if err != nil {
			return nil, err
		}
		return DropDatabaseStatement{Database: name}, nil
	case EOF:
		return nil, parser.unterminated()
	default:
		return nil, parser.fail("Expected TABLE or DATABASE keyword after DROP keyword.")
	}
}

func ParseAlter(parser *Parser) (Statement, error) {
	var statement AlterTableStatement

	if err := parser.expect(TableKeyword, "TABLE"); err != nil {
		return nil, err
	}
	name, err := parser.parseName("[TableName]")
	if err != nil {
		return nil, err
	}
	statement.Table = name

	token := parser.lexer.PeekToken()
	switch token.Type {
	case Add:
		statement.Action = AlterAdd
	case Drop:
		statement.Action = AlterDrop
	case EOF:
		return nil, parser.unterminated()
	default:
		return nil, parser.fail("Expected ADD or DROP keyword after [TableName] \"%s\".", name)
	}
	parser.lexer.NextToken()

	column, err := parser.parseAttribute()
	if err != nil {
		return nil, err
	}
	statement.Column = column

	return statement, nil
}

func ParseInsert(parser *Parser) (Statement, error) {
	var statement InsertStatement

	if err := parser.expect(Into, "INTO"); err != nil {
		return nil, err
	}
	name, err := parser.parseName("[TableName]")
	if err != nil {
		return nil, err
	}
	statement.Table = name

	if err := parser.expect(Values, "VALUES"); err != nil {
		return nil, err
	}
	if err := parser.expect(ParenOpen, "("); err != nil {
		return nil, err
	}

	const listMessage = "Expected a list of values after ( character."
	for {
		token := parser.lexer.PeekToken()
		if token.Type == EOF {
			return nil, parser.unterminated()
		}
		if !isValue(token) {
			return nil, parser.fail(listMessage)
		}
		parser.lexer.NextToken()
		statement.Values = append(statement.Values, Value{Raw: token.Value})

		token = parser.lexer.NextToken()
		switch token.Type {
		case Comma:
			continue
		case ParenClose:
			return statement, nil
		case EOF:
			return nil, parser.unterminated()
		default:
			return nil, parser.fail(listMessage)
		}
	}
}

func ParseSelect(parser *Parser) (Statement, error) {
	var statement SelectStatement

	switch parser.lexer.PeekToken().Type {
	case Wildcard:
		parser.lexer.NextToken()
	case EOF:
		return nil, parser.unterminated()
	default:
		columns, err := parser.parseAttributeList(From, `Expected "*" or a list of attributes after SELECT keyword.`)
		if err != nil {
			return nil, err
		}
		statement.Columns = columns
	}

	if err := parser.expect(From, "FROM"); err != nil {
		return nil, err
	}
	name, err := parser.parseName("[TableName]")
	if err != nil {
		return nil, err
	}
	statement.Table = name

	switch parser.lexer.PeekToken().Type {
	case Where:
		parser.lexer.NextToken()
		where, err := ParseWhere(parser)
		if err != nil {
			return nil, err
		}
		statement.Where = where
	case Semicolon, EOF:
	default:
		return nil, parser.fail("Expected \"WHERE\" keyword or \";\" to terminate the query after [TableName] \"%s\".", name)
	}

	return statement, nil
}

func ParseUpdate(parser *Parser) (Statement, error) {
	var statement UpdateStatement

	name, err := parser.parseName("[TableName]")
	if err != nil {
		return nil, err
	}
	statement.Table = name

	if err := parser.expect(Set, "SET"); err != nil {
		return nil, err
	}

	const listMessage = "Expected a named value list after SET keyword."
	for {
		if parser.lexer.PeekToken().Type == Where {
			return nil, parser.fail(listMessage)
		}
		column, err := parser.parseAttribute()
		if err != nil {
			return nil, err
		}
		if err := parser.need(Assign, listMessage); err != nil {
			return nil, err
		}
		token := parser.lexer.PeekToken()
		if token.Type == EOF {
			return nil, parser.unterminated()
		}
		if !isValue(token) {
			return nil, parser.fail(listMessage)
		}
		parser.lexer.NextToken()
		statement.Updates = append(statement.Updates, SetClause{Column: column, Value: Value{Raw: token.Value}})

		token = parser.lexer.PeekToken()
		if token.Type == Comma {
			parser.lexer.NextToken()
			continue
		}
		if token.Type == Where || token.Type == EOF {
			break
		}
		return nil, parser.fail(listMessage)
	}

	if err := parser.expect(Where, "WHERE"); err != nil {
		return nil, err
	}
	where, err := ParseWhere(parser)
	if err != nil {
		return nil, err
	}
	statement.Where = where

	return statement, nil
}

func ParseDelete(parser *Parser) (Statement, error) {
	var statement DeleteStatement

	if err := parser.expect(From, "FROM"); err != nil {
		return nil, err
	}
	name, err := parser.parseName("[TableName]")
	if err != nil {
		return nil, err
	}
	statement.Table = name

	if err := parser.expect(Where, "WHERE"); err != nil {
		return nil, err
	}
	where, err := ParseWhere(parser)
	if err != nil {
		return nil, err
	}
	statement.Where = where

	return statement, nil
}

func ParseJoin(parser *Parser) (Statement, error) {
	var statement JoinStatement
	var err error

	if statement.Left, err = parser.parseName("[TableName]"); err != nil {
		return nil, err
	}
	if err = parser.expect(And, "AND"); err != nil {
		return nil, err
	}
	if statement.Right, err = parser.parseName("[TableName]"); err != nil {
		return nil, err
	}
	if err = parser.expect(On, "ON"); err != nil {
		return nil, err
	}
	if statement.LeftColumn, err = parser.parseAttribute(); err != nil {
		return nil, err
	}
	if err = parser.expect(And, "AND"); err != nil {
		return nil, err
	}
	if statement.RightColumn, err = parser.parseAttribute(); err != nil {
		return nil, err
	}

	return statement, nil
}

// ParseWhere reads a condition. Without brackets AND and OR group strictly
// left to right: a OR b AND c is (a OR b) AND c.
func ParseWhere(parser *Parser) (Condition, error) {
	condition, err := parseConditionChain(parser)
	if err != nil {
		return nil, err
	}
	if parser.lexer.PeekToken().Type == ParenClose {
		return nil, parser.fail("Extraneous bracket \")\".")
	}
	return condition, nil
}

func parseConditionChain(parser *Parser) (Condition, error) {
	left, err := parseConditionTerm(parser)
	if err != nil {
		return nil, err
	}

	for {
		var operator LogicalOperator
		switch parser.lexer.PeekToken().Type {
		case And:
			operator = LogicalAnd
		case Or:
			operator = LogicalOr
		case ParenOpen:
			return nil, parser.fail("Expected a [BoolOperator] AND or OR before \"(\".")
		default:
			return left, nil
		}
		parser.lexer.NextToken()

		right, err := parseConditionTerm(parser)
		if err != nil {
			return nil, err
		}
		left = BinaryCondition{Operator: operator, Left: left, Right: right}
	}
}

func parseConditionTerm(parser *Parser) (Condition, error) {
	if parser.lexer.PeekToken().Type == ParenOpen {
		parser.lexer.NextToken()
		inner, err := parseConditionChain(parser)
		if err != nil {
			return nil, err
		}
		switch parser.lexer.PeekToken().Type {
		case ParenClose:
			parser.lexer.NextToken()
			return inner, nil
		case EOF:
			return nil, parser.unterminated()
		default:
			return nil, parser.fail("Expected a closing bracket \")\".")
		}
	}

	attribute, err := parser.parseAttribute()
	if err != nil {
		return nil, err
	}

	token := parser.lexer.PeekToken()
	if token.Type == EOF {
		return nil, parser.unterminated()
	}
	operator, ok := comparatorFor(token)
	if !ok {
		return nil, parser.fail("Expected a [Comparator] keyword after [AttributeName] \"%s\".", parser.lexer.Previous().Value)
	}
	parser.lexer.NextToken()

	token = parser.lexer.PeekToken()
	if token.Type == EOF {
		return nil, parser.unterminated()
	}
	if !isValue(token) {
		return nil, parser.fail("Expected a [Value] after [Comparator] \"%s\".", parser.lexer.Previous().Value)
	}
	parser.lexer.NextToken()

	return Comparison{Attribute: attribute, Operator: operator, Value: Value{Raw: token.Value}}, nil
}

// parseAttributeList reads "attr {, attr}" up to, but not including, end.
func (parser *Parser) parseAttributeList(end TokenType, message string) ([]AttributeName, error) {
	var attributes []AttributeName
	for {
		switch parser.lexer.PeekToken().Type {
		case end:
			return nil, parser.fail("%s", message)
		case EOF:
			return nil, parser.unterminated()
		}

		attribute, err := parser.parseAttribute()
		if err != nil {
			return nil, err
		}
		attributes = append(attributes, attribute)

		switch parser.lexer.PeekToken().Type {
		case Comma:
			parser.lexer.NextToken()
		case end:
			return attributes, nil
		case EOF:
			return nil, parser.unterminated()
		default:
			return nil, parser.fail("%s", message)
		}
	}
}

func (parser *Parser) parseName(category string) (string, error) {
	token := parser.lexer.PeekToken()
	if token.Type == EOF {
		return "", parser.unterminated()
	}
	if err := parser.checkName(token.Value, category); err != nil {
		return "", err
	}
	parser.lexer.NextToken()
	return token.Value, nil
}

func (parser *Parser) parseAttribute() (AttributeName, error) {
	token := parser.lexer.PeekToken()
	if token.Type == EOF {
		return AttributeName{}, parser.unterminated()
	}

	if qualifiedNamePattern.MatchString(token.Value) {
		table, column, _ := strings.Cut(token.Value, ".")
		if err := parser.checkName(table, "[TableName]"); err != nil {
			return AttributeName{}, err
		}
		if err := parser.checkName(column, "[AttributeName]"); err != nil {
			return AttributeName{}, err
		}
		parser.lexer.NextToken()
		return AttributeName{Table: table, Column: core.ColumnName(column)}, nil
	}

	if err := parser.checkName(token.Value, "[AttributeName]"); err != nil {
		return AttributeName{}, err
	}
	parser.lexer.NextToken()
	return AttributeName{Column: core.ColumnName(token.Value)}, nil
}

func (parser *Parser) checkName(name, category string) error {
	if !plainNamePattern.MatchString(name) {
		return parser.fail("The %s \"%s\" is not alphanumeric.", category, name)
	}
	if keyword := reservedKeyword(name); keyword != "" {
		return parser.fail("The %s \"%s\" matches the SQL keyword %s.", category, name, keyword)
	}
	return nil
}

// expect consumes a keyword or symbol that must follow the previous token.
func (parser *Parser) expect(tokenType TokenType, word string) error {
	return parser.need(tokenType, fmt.Sprintf("Expected \"%s\" keyword after \"%s\".", word, parser.lexer.Previous().Value))
}

func (parser *Parser) need(tokenType TokenType, message string) error {
	token := parser.lexer.PeekToken()
	if token.Type == EOF {
		return parser.unterminated()
	}
	if token.Type != tokenType {
		return parser.fail("%s", message)
	}
	parser.lexer.NextToken()
	return nil
}

func (parser *Parser) unterminated() error {
	token := parser.lexer.PeekToken()
	if token.Type == EOF {
		token = parser.lexer.Last()
	}
	return parser.fail("Expected \";\" to terminate the query. Found \"%s\" instead.", token.Value)
}

func (parser *Parser) fail(format string, args ...any) error {
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	return &ParseError{Message: message, Position: parser.lexer.Position()}
}
