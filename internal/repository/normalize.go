package repository

import "golang.org/x/text/cases"

// FoldCase normalizes a string for case-insensitive comparison.
// SQLite's lower() folds ASCII only, so uniqueness keys (email, the
// title/author pair) are folded here over the full Unicode range before
// they reach the database. Both drivers store the folded value in a key
// column and compare against it, which keeps the backends in agreement.
func FoldCase(s string) string {
	return cases.Fold().String(s)
}
