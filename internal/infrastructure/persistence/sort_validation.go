package persistence

import "strings"

// SortClause builds an ORDER BY expression from caller-supplied sort
// parameters. Both parts are validated because they are interpolated into
// SQL: the field must appear in the allowed set or the fallback is used, and
// the direction collapses to ASC or DESC.
func SortClause(field, direction string, allowed map[string]bool, fallback string) string {
	col := strings.TrimSpace(field)
	if col == "" || !allowed[col] {
		col = fallback
	}

	dir := "DESC"
	if strings.EqualFold(strings.TrimSpace(direction), "asc") {
		dir = "ASC"
	}

	return col + " " + dir
}
