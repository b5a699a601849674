// Package postgres contains the raw-SQL repository implementations.
//
// Every repository is a thin struct over *sql.DB. Queries are parameterized,
// scoped by organization_id, and never interpolate user input — dynamic
// pieces (sort columns, filter clauses) are built from whitelists only.
package postgres
