package sql

import (
	"regexp"
	"strings"
)

type Token struct {
	Type  TokenType
	Value string
}

type TokenType int

const (
	Identifier TokenType = iota
	QualifiedIdentifier
	Wildcard
	String
	Int
	Float
	Comma
	Semicolon
	ParenOpen
	ParenClose
	Assign
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	Use
	Create
	DatabaseKeyword
	TableKeyword
	Drop
	Alter
	Insert
	Into
	Values
	Select
	From
	Where
	Update
	Set
	Delete
	Join
	And
	On
	Add
	True
	False
	Null
	Or
	Like
	Illegal
	EOF
)

// Keywords lists every reserved word. Names must not match any of them.
var Keywords = []string{
	"USE", "CREATE", "DATABASE", "TABLE", "DROP", "ALTER", "INSERT", "INTO",
	"VALUES", "SELECT", "FROM", "WHERE", "UPDATE", "SET", "DELETE", "JOIN",
	"AND", "ON", "ADD", "TRUE", "FALSE", "NULL", "OR", "LIKE",
}

var (
	plainNamePattern     = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	qualifiedNamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+\.[a-zA-Z0-9]+$`)
	intPattern           = regexp.MustCompile(`^[+-]?[0-9]+$`)
	floatPattern         = regexp.MustCompile(`^[+-]?[0-9]+\.[0-9]+$`)
	stringPattern        = regexp.MustCompile("^'[^'\t\r\n]*'$")
)

// Padded before splitting. Two-character operators come first so the
// single-character pass can leave them whole.
var (
	paddedSymbols   = []string{"(", ")", ",", ";", "==", "!=", "<=", ">="}
	paddedOperators = []string{"=", "<", ">"}
)

type Lexer struct {
	tokens []Token
	pos    int
}

func NewLexer(command string) *Lexer {
	words := Tokenize(command)
	tokens := make([]Token, len(words))
	for i, word := range words {
		tokens[i] = Token{Type: lookupType(word), Value: word}
	}
	return &Lexer{tokens: tokens}
}

// NextToken returns the token at the cursor and advances past it.
func (l *Lexer) NextToken() Token {
	token := l.PeekToken()
	if l.pos < len(l.tokens) {
		l.pos++
	}
	return token
}

func (l *Lexer) PeekToken() Token {
	if l.pos >= len(l.tokens) {
		return Token{Type: EOF}
	}
	return l.tokens[l.pos]
}

// Previous returns the token before the cursor.
func (l *Lexer) Previous() Token {
	if l.pos == 0 || len(l.tokens) == 0 {
		return Token{Type: EOF}
	}
	return l.tokens[l.pos-1]
}

// Last returns the final token of the command.
func (l *Lexer) Last() Token {
	if len(l.tokens) == 0 {
		return Token{Type: EOF}
	}
	return l.tokens[len(l.tokens)-1]
}

// Position returns the index of the token at the cursor.
func (l *Lexer) Position() int {
	return l.pos
}

// Tokenize splits a command into tokens. Text between single quotes
// becomes one token with its quotes kept; quotes cannot be escaped.
func Tokenize(command string) []string {
	fragments := strings.Split(strings.TrimSpace(command), "'")

	var tokens []string
	for i, fragment := range fragments {
		if i%2 == 1 {
			tokens = append(tokens, "'"+fragment+"'")
			continue
		}
		tokens = append(tokens, splitFragment(fragment)...)
	}
	return tokens
}

func splitFragment(fragment string) []string {
	for _, symbol := range paddedSymbols {
		fragment = strings.ReplaceAll(fragment, symbol, " "+symbol+" ")
	}

	var tokens []string
	for _, word := range strings.Fields(fragment) {
		if isCompoundOperator(word) {
			tokens = append(tokens, word)
			continue
		}
		for _, operator := range paddedOperators {
			word = strings.ReplaceAll(word, operator, " "+operator+" ")
		}
		tokens = append(tokens, strings.Fields(word)...)
	}
	return tokens
}

func isCompoundOperator(word string) bool {
	switch word {
	case "==", "!=", "<=", ">=":
		return true
	}
	return false
}

func lookupType(word string) TokenType {
	switch word {
	case "(":
		return ParenOpen
	case ")":
		return ParenClose
	case ",":
		return Comma
	case ";":
		return Semicolon
	case "*":
		return Wildcard
	case "=":
		return Assign
	case "==":
		return Equals
	case "!=":
		return NotEquals
	case "<":
		return LessThan
	case ">":
		return GreaterThan
	case "<=":
		return LessThanOrEqual
	case ">=":
		return GreaterThanOrEqual
	}

	if stringPattern.MatchString(word) {
		return String
	}
	if keyword := lookupKeyword(word); keyword != Identifier {
		return keyword
	}

	switch {
	case intPattern.MatchString(word):
		return Int
	case floatPattern.MatchString(word):
		return Float
	case plainNamePattern.MatchString(word):
		return Identifier
	case qualifiedNamePattern.MatchString(word):
		return QualifiedIdentifier
	default:
		return Illegal
	}
}

func lookupKeyword(word string) TokenType {
	switch strings.ToUpper(word) {
	case "USE":
		return Use
	case "CREATE":
		return Create
	case "DATABASE":
		return DatabaseKeyword
	case "TABLE":
		return TableKeyword
	case "DROP":
		return Drop
	case "ALTER":
		return Alter
	case "INSERT":
		return Insert
	case "INTO":
		return Into
	case "VALUES":
		return Values
	case "SELECT":
		return Select
	case "FROM":
		return From
	case "WHERE":
		return Where
	case "UPDATE":
		return Update
	case "SET":
		return Set
	case "DELETE":
		return Delete
	case "JOIN":
		return Join
	case "AND":
		return And
	case "ON":
		return On
	case "ADD":
		return Add
	case "TRUE":
		return True
	case "FALSE":
		return False
	case "NULL":
		return Null
	case "OR":
		return Or
	case "LIKE":
		return Like
	default:
		return Identifier
	}
}

// reservedKeyword returns the keyword a name collides with, or "".
func reservedKeyword(name string) string {
	upper := strings.ToUpper(name)
	for _, keyword := range Keywords {
		if upper == keyword {
			return keyword
		}
	}
	return ""
}
