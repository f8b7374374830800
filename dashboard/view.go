package dashboard

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/marcus-crane/scrapeboard/models"
	"github.com/marcus-crane/scrapeboard/providers"
)

type ColorMode string

const (
	Dark  ColorMode = "dark"
	Light ColorMode = "light"
)

func ParseColorMode(value string) (ColorMode, error) {
	switch ColorMode(strings.ToLower(strings.TrimSpace(value))) {
	case Dark, "":
		return Dark, nil
	case Light:
		return Light, nil
	}
	return "", fmt.Errorf("unsupported colour mode %q", value)
}

type Thumbnail struct {
	Src  string
	Href string
}

// Card is everything the template needs to draw a single record.
type Card struct {
	Provider      providers.Details
	URL           string
	Date          string
	RelativeDate  string
	HasMedia      bool
	ResponseCode  int
	ResponseDelay string
	Thumbnails    []Thumbnail
}

func (c Card) Class() string {
	if c.HasMedia {
		return "card has-media"
	}
	return "card low-signal"
}

type Page struct {
	Title        string
	ColorMode    ColorMode
	State        State
	Reason       string
	Cards        []Card
	RefreshAfter int // seconds
}

func (p Page) Pending() bool { return p.State == Pending }
func (p Page) Failed() bool  { return p.State == Failure }

// BuildPage lays out a fetch result for rendering. Records keep the order the
// backend sent them in.
func BuildPage(result Result, now time.Time, mode ColorMode) Page {
	page := Page{
		Title:        "Latest Updates",
		ColorMode:    mode,
		State:        result.State,
		Reason:       result.Reason,
		RefreshAfter: 3,
	}
	if result.State != Success {
		return page
	}
	page.Cards = make([]Card, 0, len(result.Records))
	for _, record := range result.Records {
		page.Cards = append(page.Cards, BuildCard(record, now))
	}
	return page
}

func BuildCard(record models.ScrapeRecord, now time.Time) Card {
	details, ok := providers.Resolve(record.ProviderName)
	if !ok {
		slog.Debug("Unrecognised provider, using placeholder icon", slog.String("provider", record.ProviderName))
	}
	card := Card{
		Provider:     details,
		URL:          record.URL,
		Date:         record.Date,
		RelativeDate: RelativeTime(record.Date, now),
		HasMedia:     record.HasMedia(),
	}
	if record.ResponseCode != nil {
		card.ResponseCode = *record.ResponseCode
	}
	if record.ResponseDelay != nil {
		card.ResponseDelay = humanize.Commaf(math.Round(*record.ResponseDelay)) + " ms"
	}
	for _, m := range record.Media {
		card.Thumbnails = append(card.Thumbnails, Thumbnail{Src: m.MediaURL, Href: m.PageURL})
	}
	return card
}

// RelativeTime renders a record date relative to now, eg; "3 days ago".
// Dates we can't make sense of are shown as-is.
func RelativeTime(raw string, now time.Time) string {
	t, err := models.ParseDate(raw)
	if err != nil {
		return raw
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
