package loader

import (
	"bufio"
	"regexp"
	"strings"
)

var dollarTagRE = regexp.MustCompile(`\$[A-Za-z_]*\$`)

// SplitStatements splits a semicolon-terminated SQL script into executable
// statements. It drops blank lines and single-line comments that start with
// "--", and never splits inside a dollar-quoted body, so plpgsql function
// definitions stay intact.
func SplitStatements(script string) []string {
	scanner := bufio.NewScanner(strings.NewReader(script))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var stmts []string
	var current strings.Builder
	var openTag string

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if openTag == "" && (trimmed == "" || strings.HasPrefix(trimmed, "--")) {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')

		for _, tag := range dollarTagRE.FindAllString(line, -1) {
			switch {
			case openTag == "":
				openTag = tag
			case tag == openTag:
				openTag = ""
			}
		}
		if openTag == "" && strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, tail)
	}
	return stmts
}
