package postgres

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories that have no dedicated service
// package (clients, phone numbers, users). Service-backed aggregates return
// their own package's sentinel instead.
var ErrNotFound = errors.New("record not found")

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// orderClause builds an ORDER BY fragment from a whitelist. Unknown sort
// keys fall back to the default so user input never reaches the SQL text.
func orderClause(sortBy string, desc bool, allowed map[string]string, def string) string {
	col, ok := allowed[sortBy]
	if !ok {
		col = def
		desc = true
	}
	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	return " ORDER BY " + col + dir
}

// nullStr converts an optional string pointer for INSERT/UPDATE params.
func nullStr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// strPtr converts a scanned NullString back to an optional pointer.
func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// timePtr converts a scanned NullTime back to an optional pointer.
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
