package dashboard

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/marcus-crane/scrapeboard/feed"
	"github.com/marcus-crane/scrapeboard/models"
)

type State int

const (
	Pending State = iota
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Result is the outcome of asking the backend for records during a single render.
// Records is only meaningful for Success and Reason only for Failure.
type Result struct {
	State     State
	Records   []models.ScrapeRecord
	Reason    string
	FetchedAt time.Time
}

func PendingResult() Result {
	return Result{State: Pending}
}

func SuccessResult(records []models.ScrapeRecord, fetchedAt time.Time) Result {
	if records == nil {
		records = []models.ScrapeRecord{}
	}
	return Result{State: Success, Records: records, FetchedAt: fetchedAt}
}

func FailureResult(err error) Result {
	return Result{State: Failure, Reason: describeError(err)}
}

// describeError turns a fetch error into something fit for the page. The full
// error goes to the logs instead.
func describeError(err error) string {
	var statusErr *feed.StatusError
	var decodeErr *feed.DecodeError
	switch {
	case err == nil:
		return "unknown error"
	case errors.As(err, &statusErr):
		return "the backend responded with status " + strconv.Itoa(statusErr.Code)
	case errors.As(err, &decodeErr):
		return "the backend returned data that could not be read"
	case errors.Is(err, context.DeadlineExceeded):
		return "the backend took too long to respond"
	default:
		return "the backend could not be reached"
	}
}
