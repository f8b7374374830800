package models

import (
	"fmt"
	"time"
)

// ScrapeRecord is a single observation of a URL made by one of the scrapers.
// The dashboard treats these as read-only.
type ScrapeRecord struct {
	ProviderName  string      `json:"provider_name"`
	URL           string      `json:"url"`
	ResponseCode  *int        `json:"response_code"`
	ResponseDelay *float64    `json:"response_delay"` // milliseconds
	Date          string      `json:"date"`
	Media         []MediaItem `json:"media"`
}

type MediaItem struct {
	MediaURL string `json:"media_url" db:"media_url"`
	PageURL  string `json:"page_url" db:"page_url"`
}

// Scrapers have historically emitted both RFC 3339 timestamps and naive
// timestamps without an offset. Naive values are always UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (r ScrapeRecord) HasMedia() bool {
	return len(r.Media) > 0
}

func (r ScrapeRecord) ParsedDate() (time.Time, error) {
	return ParseDate(r.Date)
}

func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// FormatDate is the inverse of ParseDate for values produced by the store.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
