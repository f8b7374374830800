package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static exposes the stylesheet and provider icons rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(w io.Writer, page Page) error {
	return r.tmpl.ExecuteTemplate(w, "dashboard.html", page)
}

// Handler serves the dashboard. Colour mode is fixed at startup.
type Handler struct {
	Service   *Service
	Renderer  *Renderer
	ColorMode ColorMode
	Now       func() time.Time
}

func NewHandler(service *Service, renderer *Renderer, mode ColorMode) *Handler {
	return &Handler{
		Service:   service,
		Renderer:  renderer,
		ColorMode: mode,
		Now:       time.Now,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result := h.Service.Load(r.Context())
	page := BuildPage(result, h.Now(), h.ColorMode)

	var buf bytes.Buffer
	if err := h.Renderer.Render(&buf, page); err != nil {
		slog.Error("Failed to render dashboard", slog.String("error", err.Error()))
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Referrer-Policy", "no-referrer")
	if result.State != Success {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.Write(buf.Bytes())
}
