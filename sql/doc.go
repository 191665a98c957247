// Package sql provides lexing and parsing for the TabDB command language.
//
// The lexer isolates quoted string literals, pads brackets, commas,
// semicolons and comparison operators with spaces, and splits the rest on
// whitespace. The parser is a recursive-descent recognizer producing one
// Statement per command; WHERE clauses become a Condition tree.
//
// # Parser Usage
//
//	parser := sql.NewParser("SELECT name FROM people WHERE age > 20 OR name LIKE 'gu';")
//	statement, err := parser.Parse()
//	if err != nil {
//	    fmt.Println(err) // the message sent to the client
//	}
//
// # Conditions
//
// AND and OR have equal precedence and group strictly left to right;
// only brackets change grouping:
//
//	a == 1 OR a == 7 AND a == 1    // ((a == 1 OR a == 7) AND a == 1)
//	a == 1 OR (a == 7 AND a == 1)  // (a == 1 OR (a == 7 AND a == 1))
//
// # Supported Statements
//
//   - USE, CREATE DATABASE, DROP DATABASE
//   - CREATE TABLE, DROP TABLE, ALTER TABLE ... ADD|DROP
//   - INSERT INTO ... VALUES (...)
//   - SELECT, UPDATE, DELETE with WHERE
//   - JOIN a AND b ON x AND y
package sql
