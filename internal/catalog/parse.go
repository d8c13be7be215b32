// Package catalog parses stored-procedure and view definitions out of SQL
// text and exposes each by name as a callable bound to a live database.
package catalog

import "regexp"

// Kind discriminates the two registrable definition kinds.
type Kind string

const (
	// KindFunction is a stored procedure defined via CREATE OR REPLACE FUNCTION.
	KindFunction Kind = "function"
	// KindView is a view defined via CREATE OR REPLACE VIEW.
	KindView Kind = "view"
)

// Header is a single extracted definition header.
type Header struct {
	Kind Kind
	Name string
}

// Definition headers are matched case-sensitively; lowercase or schema-qualified
// spellings are intentionally not registered.
var headerRE = regexp.MustCompile(`(?m)CREATE OR REPLACE (FUNCTION|VIEW) (\w+)`)

// ParseHeaders extracts every conforming definition header from sqlText, in
// order of appearance. Text without a conforming header yields no entries.
func ParseHeaders(sqlText string) []Header {
	matches := headerRE.FindAllStringSubmatch(sqlText, -1)
	if len(matches) == 0 {
		return nil
	}
	headers := make([]Header, 0, len(matches))
	for _, m := range matches {
		kind := KindFunction
		if m[1] == "VIEW" {
			kind = KindView
		}
		headers = append(headers, Header{Kind: kind, Name: m[2]})
	}
	return headers
}
