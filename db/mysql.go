package db

import (
	"embed"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/marcus-crane/scrapeboard/models"

	_ "github.com/go-sql-driver/mysql"
)

type MysqlStore struct {
	DB *sqlx.DB
}

func NewMysqlStore(dsn string) (Store, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, err
	}
	return &MysqlStore{
		DB: db,
	}, nil
}

func (s *MysqlStore) ApplyMigrations(migrations embed.FS) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(string(goose.DialectMySQL)); err != nil {
		return err
	}

	if err := goose.Up(s.DB.DB, "mysql"); err != nil {
		return err
	}

	return nil
}

func (s *MysqlStore) GetLatest(limit int) ([]models.ScrapeRecord, error) {
	return selectLatest(s.DB, limit)
}

func (s *MysqlStore) Insert(record models.ScrapeRecord) (int64, error) {
	return insertRecord(s.DB, record)
}

func (s *MysqlStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	return deleteOlderThan(s.DB, cutoff)
}

func (s *MysqlStore) Close() error {
	return s.DB.Close()
}
