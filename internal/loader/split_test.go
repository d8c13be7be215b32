package loader

import (
	"strings"
	"testing"
)

func TestSplitStatementsSimple(t *testing.T) {
	script := `CREATE TABLE a (id int);
CREATE TABLE b (id int);`
	stmts := SplitStatements(script)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (id int);" || stmts[1] != "CREATE TABLE b (id int);" {
		t.Fatalf("unexpected statements: %v", stmts)
	}
}

func TestSplitStatementsDropsCommentsAndBlankLines(t *testing.T) {
	script := `-- schema setup

CREATE TABLE a (id int);

-- second table
CREATE TABLE b (id int);
`
	stmts := SplitStatements(script)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(stmts), stmts)
	}
	for _, stmt := range stmts {
		if strings.Contains(stmt, "--") {
			t.Fatalf("comment leaked into statement: %q", stmt)
		}
	}
}

func TestSplitStatementsKeepsDollarQuotedBodyIntact(t *testing.T) {
	script := `CREATE OR REPLACE FUNCTION add_account(name text) RETURNS void AS $$
BEGIN
  INSERT INTO accounts (name) VALUES (name);
  UPDATE stats SET accounts = accounts + 1;
END;
$$ LANGUAGE plpgsql;
SELECT add_account('test');`
	stmts := SplitStatements(script)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(stmts), stmts)
	}
	if !strings.Contains(stmts[0], "UPDATE stats SET accounts = accounts + 1;") {
		t.Fatalf("function body was split: %q", stmts[0])
	}
	if stmts[1] != "SELECT add_account('test');" {
		t.Fatalf("unexpected trailing statement: %q", stmts[1])
	}
}

func TestSplitStatementsNamedDollarTag(t *testing.T) {
	script := `CREATE OR REPLACE FUNCTION f() RETURNS text AS $body$
SELECT 'semicolons; inside; stay';
$body$ LANGUAGE sql;`
	stmts := SplitStatements(script)
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d: %v", len(stmts), stmts)
	}
}

func TestSplitStatementsKeepsCommentInsideBody(t *testing.T) {
	script := `CREATE OR REPLACE FUNCTION f() RETURNS int AS $$
-- keep this comment, it is part of the body
SELECT 1;
$$ LANGUAGE sql;`
	stmts := SplitStatements(script)
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d: %v", len(stmts), stmts)
	}
	if !strings.Contains(stmts[0], "keep this comment") {
		t.Fatalf("body comment dropped: %q", stmts[0])
	}
}

func TestSplitStatementsUnterminatedTail(t *testing.T) {
	stmts := SplitStatements("SELECT 1")
	if len(stmts) != 1 || stmts[0] != "SELECT 1" {
		t.Fatalf("unexpected statements: %v", stmts)
	}
}

func TestSplitStatementsEmptyScript(t *testing.T) {
	if stmts := SplitStatements("  \n-- nothing here\n"); stmts != nil {
		t.Fatalf("expected no statements, got %v", stmts)
	}
}
