package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Applies every .sql file in the migrations directory, in name order,
// skipping ones already recorded in schema_migrations. Each file runs
// in its own transaction.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping")
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name       text PRIMARY KEY,
		applied_at timestamptz NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		log.Fatal().Err(err).Msg("ensure schema_migrations")
	}

	applied := map[string]bool{}
	rows, err := db.Query("SELECT name FROM schema_migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("read applied migrations")
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			log.Fatal().Err(err).Msg("scan migration name")
		}
		applied[name] = true
	}
	rows.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("read migrations dir")
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var ran, skipped int
	for _, f := range files {
		if applied[f] {
			skipped++
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			log.Fatal().Err(err).Str("file", f).Msg("read migration")
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			log.Fatal().Err(err).Msg("begin")
		}
		if _, err := tx.Exec(string(data)); err != nil {
			tx.Rollback()
			log.Fatal().Err(err).Str("file", f).Msg("migration failed")
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (name) VALUES ($1)", f); err != nil {
			tx.Rollback()
			log.Fatal().Err(err).Str("file", f).Msg("record migration")
		}
		if err := tx.Commit(); err != nil {
			log.Fatal().Err(err).Str("file", f).Msg("commit")
		}
		fmt.Printf("  %s OK\n", f)
		ran++
	}
	log.Info().Int("applied", ran).Int("skipped", skipped).Msg("migrations complete")
}
