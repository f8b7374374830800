package db

import (
	"embed"
	"sort"
	"sync"
	"time"

	"github.com/marcus-crane/scrapeboard/models"
)

type memoryEntry struct {
	id        int64
	scrapedAt int64
	record    models.ScrapeRecord
}

// MemoryStore keeps records for the lifetime of the process. It backs local
// development and tests where no database is configured.
type MemoryStore struct {
	m      *sync.Mutex
	nextID int64
	data   []memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    new(sync.Mutex),
		data: []memoryEntry{},
	}
}

func (ms *MemoryStore) ApplyMigrations(migrations embed.FS) error {
	return nil
}

func (ms *MemoryStore) GetLatest(limit int) ([]models.ScrapeRecord, error) {
	records := []models.ScrapeRecord{}
	if limit <= 0 {
		return records, ErrInvalidLimit
	}
	ms.m.Lock()
	entries := make([]memoryEntry, len(ms.data))
	copy(entries, ms.data)
	ms.m.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].scrapedAt != entries[j].scrapedAt {
			return entries[i].scrapedAt > entries[j].scrapedAt
		}
		return entries[i].id > entries[j].id
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for _, e := range entries {
		record := e.record
		record.Media = append([]models.MediaItem{}, e.record.Media...)
		records = append(records, record)
	}
	return records, nil
}

func (ms *MemoryStore) Insert(record models.ScrapeRecord) (int64, error) {
	at, err := scrapedAt(record)
	if err != nil {
		return 0, err
	}
	stored := record
	stored.Date = models.FormatDate(time.UnixMilli(at))
	stored.Media = append([]models.MediaItem{}, record.Media...)

	ms.m.Lock()
	defer ms.m.Unlock()
	ms.nextID++
	ms.data = append(ms.data, memoryEntry{id: ms.nextID, scrapedAt: at, record: stored})
	return ms.nextID, nil
}

func (ms *MemoryStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	at := cutoff.UnixMilli()
	kept := ms.data[:0]
	var deleted int64
	for _, e := range ms.data {
		if e.scrapedAt < at {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	ms.data = kept
	return deleted, nil
}

func (ms *MemoryStore) Close() error {
	return nil
}
