package events

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/r3labs/sse/v2"

	"github.com/marcus-crane/scrapeboard/models"
)

const RequestsStream = "requests"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type announcement struct {
	Count int `json:"count"`
}

// Broker fans out notices about new scrape records to connected dashboards.
type Broker struct {
	server *sse.Server

	mu         sync.Mutex
	lastDigest uint64
	seen       bool
}

func NewBroker() *Broker {
	server := sse.New()
	server.AutoReplay = false
	server.CreateStream(RequestsStream)
	return &Broker{server: server}
}

func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.server.ServeHTTP(w, r)
}

func (b *Broker) Announce(count int) {
	payload, err := json.Marshal(announcement{Count: count})
	if err != nil {
		slog.Error("failed to encode announcement", slog.String("error", err.Error()))
		return
	}
	b.server.Publish(RequestsStream, &sse.Event{Data: payload})
}

// AnnounceIfChanged publishes when the records differ from the last set it was
// given. The first call always publishes so pages waiting on a slow first
// fetch reload once it lands.
func (b *Broker) AnnounceIfChanged(records []models.ScrapeRecord) bool {
	digest, err := Digest(records)
	if err != nil {
		slog.Error("failed to digest records", slog.String("error", err.Error()))
		return false
	}
	b.mu.Lock()
	changed := !b.seen || digest != b.lastDigest
	b.lastDigest = digest
	b.seen = true
	b.mu.Unlock()

	if changed {
		slog.Debug("records changed, announcing", slog.Int("count", len(records)))
		b.Announce(len(records))
	}
	return changed
}

func (b *Broker) Close() {
	b.server.Close()
}

func Digest(records []models.ScrapeRecord) (uint64, error) {
	h := xxhash.New()
	if err := json.NewEncoder(h).Encode(records); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
