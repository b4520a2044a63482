// Package db reads patient tables out of SQLite files.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3"

	"hospitalpredict/dataset"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open opens a SQLite file read-only.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// QueryPatients reads every row of table with the patient column contract.
func QueryPatients(ctx context.Context, database *sql.DB, table string) ([]dataset.Patient, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	rows, err := database.QueryContext(ctx, fmt.Sprintf(
		`SELECT Age, Fever, BP, Sugar, Disease FROM %s ORDER BY rowid`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := make([]dataset.Patient, 0)
	for rows.Next() {
		var p dataset.Patient
		var disease sql.NullString
		if err := rows.Scan(&p.Age, &p.Fever, &p.BP, &p.Sugar, &disease); err != nil {
			return nil, fmt.Errorf("%w: %v", dataset.ErrMalformedValue, err)
		}
		if !disease.Valid || disease.String == "" {
			return nil, fmt.Errorf("%w: row %d has no %s", dataset.ErrMalformedValue, len(patients)+1, dataset.ColumnDisease)
		}
		p.Disease = disease.String
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return patients, nil
}

// Source serves a patient table stored in a SQLite database.
type Source struct {
	Path  string
	Table string
}

func (s Source) Load(ctx context.Context) (*dataset.Table, error) {
	database, err := Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer database.Close()

	patients, err := QueryPatients(ctx, database, s.Table)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", s.Path, s.Table, err)
	}
	return dataset.NewTable(patients), nil
}

func (s Source) String() string {
	return "sqlite:" + s.Path + "#" + s.Table
}
