package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marcus-crane/scrapeboard/models"
)

var ErrInvalidLimit = errors.New("limit must be greater than zero")

type Store interface {
	ApplyMigrations(migrations embed.FS) error
	GetLatest(limit int) ([]models.ScrapeRecord, error)
	Insert(record models.ScrapeRecord) (int64, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
	Close() error
}

type requestRow struct {
	ID            int64           `db:"id"`
	ProviderName  string          `db:"provider_name"`
	URL           string          `db:"url"`
	ResponseCode  sql.NullInt64   `db:"response_code"`
	ResponseDelay sql.NullFloat64 `db:"response_delay"`
	ScrapedAt     int64           `db:"scraped_at"`
}

type mediaRow struct {
	RequestID int64  `db:"scrape_request_id"`
	MediaURL  string `db:"media_url"`
	PageURL   string `db:"page_url"`
}

func (r requestRow) toRecord() models.ScrapeRecord {
	record := models.ScrapeRecord{
		ProviderName: r.ProviderName,
		URL:          r.URL,
		Date:         models.FormatDate(time.UnixMilli(r.ScrapedAt)),
		Media:        []models.MediaItem{},
	}
	if r.ResponseCode.Valid {
		code := int(r.ResponseCode.Int64)
		record.ResponseCode = &code
	}
	if r.ResponseDelay.Valid {
		delay := r.ResponseDelay.Float64
		record.ResponseDelay = &delay
	}
	return record
}

const (
	selectLatestQuery = "SELECT id, provider_name, url, response_code, response_delay, scraped_at FROM scrape_requests ORDER BY scraped_at desc, id desc LIMIT ?"
	selectMediaQuery  = "SELECT scrape_request_id, media_url, page_url FROM media WHERE scrape_request_id IN (?) ORDER BY id"
	insertRequestSQL  = "INSERT INTO scrape_requests (provider_name, url, response_code, response_delay, scraped_at) VALUES (?, ?, ?, ?, ?)"
	insertMediaSQL    = "INSERT INTO media (scrape_request_id, media_url, page_url) VALUES (?, ?, ?)"
	deleteMediaSQL    = "DELETE FROM media WHERE scrape_request_id IN (SELECT id FROM scrape_requests WHERE scraped_at < ?)"
	deleteRequestsSQL = "DELETE FROM scrape_requests WHERE scraped_at < ?"
)

// selectLatest is shared by the sql backed stores since both drivers accept
// the same placeholder style.
func selectLatest(db *sqlx.DB, limit int) ([]models.ScrapeRecord, error) {
	records := []models.ScrapeRecord{}
	if limit <= 0 {
		return records, ErrInvalidLimit
	}
	rows := []requestRow{}
	if err := db.Select(&rows, selectLatestQuery, limit); err != nil {
		return records, err
	}
	if len(rows) == 0 {
		return records, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	query, args, err := sqlx.In(selectMediaQuery, ids)
	if err != nil {
		return records, err
	}
	media := []mediaRow{}
	if err := db.Select(&media, db.Rebind(query), args...); err != nil {
		return records, err
	}
	byRequest := map[int64][]models.MediaItem{}
	for _, m := range media {
		byRequest[m.RequestID] = append(byRequest[m.RequestID], models.MediaItem{
			MediaURL: m.MediaURL,
			PageURL:  m.PageURL,
		})
	}

	for _, row := range rows {
		record := row.toRecord()
		if items, ok := byRequest[row.ID]; ok {
			record.Media = items
		}
		records = append(records, record)
	}
	return records, nil
}

func scrapedAt(record models.ScrapeRecord) (int64, error) {
	if record.Date == "" {
		return time.Now().UnixMilli(), nil
	}
	t, err := record.ParsedDate()
	if err != nil {
		return 0, fmt.Errorf("invalid record date %q: %w", record.Date, err)
	}
	return t.UnixMilli(), nil
}

func insertRecord(db *sqlx.DB, record models.ScrapeRecord) (int64, error) {
	at, err := scrapedAt(record)
	if err != nil {
		return 0, err
	}
	tx, err := db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(insertRequestSQL, record.ProviderName, record.URL, record.ResponseCode, record.ResponseDelay, at)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, m := range record.Media {
		if _, err := tx.Exec(insertMediaSQL, id, m.MediaURL, m.PageURL); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// deleteOlderThan removes media explicitly rather than relying on foreign key
// enforcement, which sqlite leaves off per connection.
func deleteOlderThan(db *sqlx.DB, cutoff time.Time) (int64, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	at := cutoff.UnixMilli()
	if _, err := tx.Exec(deleteMediaSQL, at); err != nil {
		return 0, err
	}
	res, err := tx.Exec(deleteRequestsSQL, at)
	if err != nil {
		return 0, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}
