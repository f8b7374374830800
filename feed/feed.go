package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/marcus-crane/scrapeboard/models"
	"github.com/marcus-crane/scrapeboard/utils"
)

const maxBodyBytes = 10 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusError is returned when the backend answers with anything other than 2xx.
// The body is kept since it's usually the only clue as to what went wrong.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed responded with status %d", e.Code)
}

// DecodeError is returned when the backend answered successfully but the body
// was not a JSON array of records.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("feed returned an unexpected body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type Client struct {
	Endpoint   string
	HTTPClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		Endpoint:   endpoint,
		HTTPClient: utils.NewHTTPClient(timeout),
	}
}

func (c *Client) FetchRecords(ctx context.Context) ([]models.ScrapeRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to contact feed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{Code: res.StatusCode, Body: string(body)}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &DecodeError{Body: string(body), Err: fmt.Errorf("expected a JSON array")}
	}

	records := []models.ScrapeRecord{}
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &DecodeError{Body: string(body), Err: err}
	}
	return records, nil
}
