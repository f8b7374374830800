package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gregdel/pushover"

	"github.com/marcus-crane/scrapeboard/models"
	"github.com/marcus-crane/scrapeboard/providers"
)

// MaxListedMedia caps how many media links go into a single message.
const MaxListedMedia = 8

type Notifier interface {
	Notify(record models.ScrapeRecord) error
}

type Noop struct{}

func (Noop) Notify(models.ScrapeRecord) error { return nil }

type sender interface {
	SendMessage(message *pushover.Message, recipient *pushover.Recipient) (*pushover.Response, error)
}

type Pushover struct {
	app       sender
	recipient *pushover.Recipient
}

// New returns a Pushover notifier, or Noop when either credential is missing.
func New(token, recipient string) Notifier {
	if token == "" || recipient == "" {
		slog.Info("Pushover credentials not set, notifications disabled")
		return Noop{}
	}
	return &Pushover{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(recipient),
	}
}

func (p *Pushover) Notify(record models.ScrapeRecord) error {
	if !record.HasMedia() {
		return nil
	}
	_, err := p.app.SendMessage(BuildMessage(record), p.recipient)
	if err != nil {
		return fmt.Errorf("failed to send pushover message: %w", err)
	}
	return nil
}

func BuildMessage(record models.ScrapeRecord) *pushover.Message {
	details, _ := providers.Resolve(record.ProviderName)

	lines := []string{}
	for i, m := range record.Media {
		if i == MaxListedMedia {
			lines = append(lines, fmt.Sprintf("...and %d more", len(record.Media)-MaxListedMedia))
			break
		}
		lines = append(lines, m.MediaURL)
	}

	message := &pushover.Message{
		Title:    fmt.Sprintf("New media from %s", details.Label),
		Message:  strings.Join(lines, "\n"),
		URL:      record.URL,
		URLTitle: details.Label,
	}
	if t, err := record.ParsedDate(); err == nil {
		message.Timestamp = t.Unix()
	}
	return message
}
