// Package TabDB provides a small SQL-like database that keeps every table
// as a tab separated text file and records every change as a Git commit.
//
// A data directory holds one subdirectory per database. Each table is stored
// as <table>.tab next to a <table>.info file holding the last id handed out,
// so ids are never reused even after rows are deleted.
//
// # Quick Start
//
//	instance, _ := TabDB.OpenMemory()
//	engine := instance.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.Handle("CREATE DATABASE markbook;")
//	engine.Handle("USE markbook;")
//	engine.Handle("CREATE TABLE marks (name, mark, pass);")
//	engine.Handle("INSERT INTO marks VALUES ('Steve', 65, TRUE);")
//
//	fmt.Println(engine.Handle("SELECT * FROM marks WHERE mark > 60;"))
//	// [OK]
//	// id	name	mark	pass
//	// 1	Steve	65	TRUE
//
// # Supported Statements
//
//   - USE, CREATE DATABASE, CREATE TABLE, DROP DATABASE, DROP TABLE
//   - ALTER TABLE ... ADD / DROP
//   - INSERT INTO ... VALUES
//   - SELECT, UPDATE ... SET, DELETE FROM, with an optional WHERE
//   - JOIN ... AND ... ON ... AND ...
//
// Conditions use ==, !=, >, <, >=, <= and LIKE, combined with AND and OR
// and grouped with brackets.
package TabDB
