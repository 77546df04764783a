package main

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
)

// maintenanceDSN points databaseURL at the postgres maintenance database and
// returns the name of the database it originally named.
func maintenanceDSN(databaseURL string) (dsn, name string, err error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse database url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", "", fmt.Errorf("createdb needs a postgres url, got %q", u.Scheme)
	}
	name = strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", "", fmt.Errorf("database url has no database name")
	}
	u.Path = "/postgres"
	return u.String(), name, nil
}

// createDatabase creates the database named in databaseURL if it is missing.
func createDatabase(databaseURL string) (bool, error) {
	dsn, name, err := maintenanceDSN(databaseURL)
	if err != nil {
		return false, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return false, fmt.Errorf("failed to open maintenance database: %w", err)
	}
	defer db.Close()

	var exists bool
	if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up database %s: %w", name, err)
	}
	if exists {
		return false, nil
	}

	if _, err := db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(name)); err != nil {
		return false, fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return true, nil
}
