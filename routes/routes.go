package routes

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	hmacext "github.com/alexellis/hmac/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"

	"github.com/marcus-crane/scrapeboard/dashboard"
	"github.com/marcus-crane/scrapeboard/db"
	"github.com/marcus-crane/scrapeboard/events"
	"github.com/marcus-crane/scrapeboard/models"
	"github.com/marcus-crane/scrapeboard/notify"
)

const (
	RequestIDHeader = "X-Request-Id"
	SignatureHeader = "X-Scrapeboard-Signature"

	maxIngestBytes = 1 << 20
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Invalidator interface {
	Invalidate()
}

type Deps struct {
	Dashboard http.Handler
	// Cache is invalidated whenever a new record is ingested.
	Cache    Invalidator
	Broker   *events.Broker
	Notifier notify.Notifier
	// Store is optional; without it the /api/requests routes are not served.
	Store          db.Store
	RequestsLimit  int
	IngestSecret   string
	AllowedOrigins []string
}

func renderJSONMessage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	res := map[string]string{"message": message}
	json.NewEncoder(w).Encode(res)
}

func renderJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func Register(mux *http.ServeMux, deps Deps) http.Handler {
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}

	mux.Handle("GET /{$}", deps.Dashboard)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api", func(w http.ResponseWriter, r *http.Request) {
		renderJSONMessage(w, "This is the base of Scrapeboard's API")
	})

	if deps.Store != nil {
		mux.HandleFunc("GET /api/requests", listRequests(deps.Store, deps.RequestsLimit))
		mux.HandleFunc("POST /api/requests", ingestRequest(deps))
	}

	mux.Handle("GET /events", deps.Broker)

	mux.Handle("GET /static/", http.StripPrefix("/static/", longCache(http.FileServerFS(dashboard.Static()))))

	c := cors.New(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	})

	return requestID(c.Handler(mux))
}

func listRequests(store db.Store, limit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		records, err := store.GetLatest(limit)
		if err != nil {
			slog.Error("Failed to load latest records",
				slog.String("error", err.Error()),
				slog.String("request_id", w.Header().Get(RequestIDHeader)))
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("[]"))
			return
		}
		json.NewEncoder(w).Encode(records)
	}
}

func ingestRequest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.IngestSecret == "" {
			renderJSONError(w, http.StatusServiceUnavailable, "this endpoint is not properly configured")
			return
		}

		signature := r.Header.Get(SignatureHeader)
		if signature == "" {
			renderJSONError(w, http.StatusUnauthorized, "no signature was provided")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				renderJSONError(w, http.StatusRequestEntityTooLarge, "request body is too large")
				return
			}
			renderJSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		signature = strings.TrimPrefix(signature, "sha256=")
		if err := hmacext.Validate(body, "sha256="+signature, deps.IngestSecret); err != nil {
			slog.Warn("Failed signature validation", slog.String("error", err.Error()))
			renderJSONError(w, http.StatusUnauthorized, "signature failed validation")
			return
		}

		var record models.ScrapeRecord
		if err := json.Unmarshal(body, &record); err != nil {
			renderJSONError(w, http.StatusBadRequest, "failed to unmarshal request body")
			return
		}
		if record.URL == "" || record.ProviderName == "" {
			renderJSONError(w, http.StatusBadRequest, "provider_name and url are required")
			return
		}
		if record.Date != "" {
			if _, err := record.ParsedDate(); err != nil {
				renderJSONError(w, http.StatusBadRequest, "date is not a valid timestamp")
				return
			}
		}

		id, err := deps.Store.Insert(record)
		if err != nil {
			slog.Error("Failed to store record", slog.String("error", err.Error()))
			renderJSONError(w, http.StatusInternalServerError, "failed to store record")
			return
		}
		slog.Info("Stored scrape record",
			slog.Int64("id", id),
			slog.String("provider", record.ProviderName),
			slog.Int("media", len(record.Media)))

		if deps.Cache != nil {
			deps.Cache.Invalidate()
		}
		if deps.Broker != nil {
			deps.Broker.Announce(1)
		}
		if record.HasMedia() {
			go func() {
				if err := deps.Notifier.Notify(record); err != nil {
					slog.Error("Failed to send notification", slog.String("error", err.Error()))
				}
			}()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]int64{"id": id})
	}
}

func longCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		next.ServeHTTP(w, r)
	})
}

// requestID leaves the ResponseWriter unwrapped so the event stream can still flush.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		slog.Debug("Handling request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", id))
		next.ServeHTTP(w, r)
	})
}
