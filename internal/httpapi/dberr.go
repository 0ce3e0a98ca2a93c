package httpapi

import "strings"

// isConstraintErr identifies SQLite uniqueness violations so handlers
// can answer "already exists" instead of a generic 500.
func isConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	// modernc/sqlite surfaces these as strings.
	return strings.Contains(s, "unique constraint") ||
		strings.Contains(s, "constraint failed")
}
