package db

import (
	"embed"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/marcus-crane/scrapeboard/models"

	_ "modernc.org/sqlite"
)

type SqliteStore struct {
	DB *sqlx.DB
}

func NewSqliteStore(dsn string) (Store, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single writer avoids SQLITE_BUSY from concurrent ingests.
	db.SetMaxOpenConns(1)
	return &SqliteStore{
		DB: db,
	}, nil
}

func (s *SqliteStore) ApplyMigrations(migrations embed.FS) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return err
	}

	if err := goose.Up(s.DB.DB, "."); err != nil {
		return err
	}

	return nil
}

func (s *SqliteStore) GetLatest(limit int) ([]models.ScrapeRecord, error) {
	return selectLatest(s.DB, limit)
}

func (s *SqliteStore) Insert(record models.ScrapeRecord) (int64, error) {
	return insertRecord(s.DB, record)
}

func (s *SqliteStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	return deleteOlderThan(s.DB, cutoff)
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
